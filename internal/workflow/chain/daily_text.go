package chain

import (
	"context"
	"fmt"
	"strings"

	llmctx "rfp-bot/internal/domain/service"
	wfmodel "rfp-bot/internal/workflow/model"
	workflowport "rfp-bot/internal/workflow/port"
	workflowprompt "rfp-bot/internal/workflow/prompt"
)

// DailyTextChain 单轮生成纯文本，用于每日推送
type DailyTextChain struct {
	factory  workflowport.ChatModelFactory
	promptID workflowprompt.PromptID
	workflow string
}

func NewFunFactChain(factory workflowport.ChatModelFactory) *DailyTextChain {
	return &DailyTextChain{factory: factory, promptID: workflowprompt.PromptFunFactV1, workflow: llmctx.WorkflowFunFact}
}

func NewTechPulseChain(factory workflowport.ChatModelFactory) *DailyTextChain {
	return &DailyTextChain{factory: factory, promptID: workflowprompt.PromptTechPulseV1, workflow: llmctx.WorkflowTechPulse}
}

func (c *DailyTextChain) Invoke(ctx context.Context, in *wfmodel.DailyTextInput) (string, error) {
	if c == nil || c.factory == nil {
		return "", fmt.Errorf("llm factory not configured")
	}
	if in == nil {
		return "", fmt.Errorf("input is nil")
	}

	tpl, err := defaultPromptRegistry.ChatTemplate(c.promptID)
	if err != nil {
		return "", err
	}
	msgs, err := tpl.Format(ctx, map[string]any{"today": strings.TrimSpace(in.Today)})
	if err != nil {
		return "", err
	}

	provider := strings.TrimSpace(in.Provider)
	ctx = llmctx.WithWorkflowProvider(ctx, c.workflow, provider)
	chatModel, err := c.factory.Get(ctx, provider)
	if err != nil {
		return "", err
	}

	outMsg, err := chatModel.Generate(ctx, msgs, buildModelOptions(in.ModelOptions, nil)...)
	if err != nil {
		return "", err
	}
	if outMsg == nil || strings.TrimSpace(outMsg.Content) == "" {
		return "", fmt.Errorf("empty llm response")
	}
	return strings.TrimSpace(outMsg.Content), nil
}
