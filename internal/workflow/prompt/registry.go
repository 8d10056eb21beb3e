// Package prompt 管理内嵌的提示词模板
package prompt

import (
	"embed"
	"fmt"
	"strings"
	"sync"

	einoprompt "github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
)

//go:embed templates/*.txt
var templatesFS embed.FS

type PromptID string

const (
	PromptProposalContentV1 PromptID = "proposal_content_v1"
	PromptFunFactV1         PromptID = "fun_fact_v1"
	PromptTechPulseV1       PromptID = "tech_pulse_v1"
)

// Registry 按 ID 懒加载并缓存 ChatTemplate
// 模板使用 FString 语法，字面量花括号需写成 {{ }}
type Registry struct {
	mu    sync.RWMutex
	cache map[PromptID]einoprompt.ChatTemplate
}

func NewRegistry() *Registry {
	return &Registry{
		cache: make(map[PromptID]einoprompt.ChatTemplate),
	}
}

func (r *Registry) ChatTemplate(id PromptID) (einoprompt.ChatTemplate, error) {
	if r == nil {
		return nil, fmt.Errorf("prompt registry is nil")
	}

	r.mu.RLock()
	if tpl, ok := r.cache[id]; ok {
		r.mu.RUnlock()
		return tpl, nil
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	if tpl, ok := r.cache[id]; ok {
		return tpl, nil
	}

	system, user, err := loadPrompt(id)
	if err != nil {
		return nil, err
	}

	tpl := einoprompt.FromMessages(
		schema.FString,
		schema.SystemMessage(system),
		schema.UserMessage(user),
	)
	r.cache[id] = tpl
	return tpl, nil
}

func loadPrompt(id PromptID) (system string, user string, err error) {
	switch id {
	case PromptProposalContentV1, PromptFunFactV1, PromptTechPulseV1:
	default:
		return "", "", fmt.Errorf("unknown prompt id: %s", id)
	}
	system, err = readEmbeddedText("templates/" + string(id) + ".system.txt")
	if err != nil {
		return "", "", err
	}
	user, err = readEmbeddedText("templates/" + string(id) + ".user.txt")
	if err != nil {
		return "", "", err
	}
	return system, user, nil
}

func readEmbeddedText(path string) (string, error) {
	b, err := templatesFS.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}
