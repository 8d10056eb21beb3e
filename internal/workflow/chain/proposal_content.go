// Package chain 基于 eino compose 编排的 LLM 调用链
package chain

import (
	"context"
	"fmt"
	"strings"
	"sync"

	openaiopts "github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"rfp-bot/internal/domain/entity"
	llmctx "rfp-bot/internal/domain/service"
	wfmodel "rfp-bot/internal/workflow/model"
	wfnode "rfp-bot/internal/workflow/node"
	workflowport "rfp-bot/internal/workflow/port"
	workflowprompt "rfp-bot/internal/workflow/prompt"
	"rfp-bot/pkg/logger"
)

// maxDetailRunes 详细需求进入提示词前的截断长度
const maxDetailRunes = 24000

var defaultPromptRegistry = workflowprompt.NewRegistry()

// ProposalContentChain 生成结构化提案正文
type ProposalContentChain struct {
	factory workflowport.ChatModelFactory

	chainOnce sync.Once
	chain     compose.Runnable[*wfmodel.ProposalContentInput, *entity.ProposalContent]
	chainErr  error
}

func NewProposalContentChain(factory workflowport.ChatModelFactory) *ProposalContentChain {
	return &ProposalContentChain{factory: factory}
}

func (c *ProposalContentChain) Invoke(ctx context.Context, in *wfmodel.ProposalContentInput) (*entity.ProposalContent, error) {
	if c == nil || c.factory == nil {
		return nil, fmt.Errorf("llm factory not configured")
	}
	if in == nil {
		return nil, fmt.Errorf("input is nil")
	}

	chain, err := c.getChain()
	if err != nil {
		return nil, err
	}
	return chain.Invoke(ctx, in)
}

type proposalContentState struct {
	In       *wfmodel.ProposalContentInput
	Messages []*schema.Message
	OutMsg   *schema.Message
}

func (c *ProposalContentChain) getChain() (compose.Runnable[*wfmodel.ProposalContentInput, *entity.ProposalContent], error) {
	c.chainOnce.Do(func() {
		c.chain, c.chainErr = c.buildChain(context.Background())
	})
	return c.chain, c.chainErr
}

func (c *ProposalContentChain) buildChain(ctx context.Context) (compose.Runnable[*wfmodel.ProposalContentInput, *entity.ProposalContent], error) {
	chain := compose.NewChain[*wfmodel.ProposalContentInput, *entity.ProposalContent]()

	chain.AppendLambda(
		compose.InvokableLambda(func(_ context.Context, in *wfmodel.ProposalContentInput) (*proposalContentState, error) {
			if in == nil {
				return nil, fmt.Errorf("input is nil")
			}
			if strings.TrimSpace(in.ClientName) == "" {
				return nil, fmt.Errorf("client name is required")
			}
			return &proposalContentState{In: in}, nil
		}),
		compose.WithNodeName("proposal_content.init"),
	)

	chain.AppendLambda(
		compose.InvokableLambda(func(ctx context.Context, st *proposalContentState) (*proposalContentState, error) {
			msgs, err := formatProposalContentMessages(ctx, st.In)
			if err != nil {
				return nil, err
			}
			st.Messages = msgs
			return st, nil
		}),
		compose.WithNodeName("proposal_content.template"),
	)

	chain.AppendLambda(
		compose.InvokableLambda(func(ctx context.Context, st *proposalContentState) (*proposalContentState, error) {
			provider := strings.TrimSpace(st.In.Provider)
			ctx = llmctx.WithWorkflowProvider(ctx, llmctx.WorkflowProposalContent, provider)
			chatModel, err := c.factory.Get(ctx, provider)
			if err != nil {
				return nil, err
			}

			outMsg, err := chatModel.Generate(ctx, st.Messages, buildModelOptions(st.In.ModelOptions, proposalContentSchema())...)
			if err != nil && wfnode.IsResponseFormatUnsupportedError(err) {
				logger.Warn(ctx, "llm json_schema not supported, fallback to prompt-only",
					"provider", provider,
					"model", strings.TrimSpace(st.In.Model),
					"error", err.Error(),
				)
				outMsg, err = chatModel.Generate(ctx, st.Messages, buildModelOptions(st.In.ModelOptions, nil)...)
			}
			if err != nil {
				return nil, err
			}
			if outMsg == nil {
				return nil, fmt.Errorf("empty llm response")
			}
			st.OutMsg = outMsg
			return st, nil
		}),
		compose.WithNodeName("proposal_content.llm"),
	)

	chain.AppendLambda(
		compose.InvokableLambda(func(_ context.Context, st *proposalContentState) (*entity.ProposalContent, error) {
			content, err := wfnode.DecodeJSON[entity.ProposalContent](st.OutMsg.Content)
			if err != nil {
				return nil, err
			}
			normalizeProposalContent(content, st.In)
			return content, nil
		}),
		compose.WithNodeName("proposal_content.parse"),
	)

	return chain.Compile(ctx)
}

func formatProposalContentMessages(ctx context.Context, in *wfmodel.ProposalContentInput) ([]*schema.Message, error) {
	tpl, err := defaultPromptRegistry.ChatTemplate(workflowprompt.PromptProposalContentV1)
	if err != nil {
		return nil, err
	}
	vars := map[string]any{
		"brand_name":           strings.TrimSpace(in.BrandName),
		"brand_tagline":        strings.TrimSpace(in.BrandTagline),
		"client_name":          strings.TrimSpace(in.ClientName),
		"project_name":         wfnode.OrPlaceholder(in.ProjectName, "(suggest one)"),
		"scale":                wfnode.OrPlaceholder(in.Scale, "Medium"),
		"currency":             wfnode.OrPlaceholder(in.CurrencyLabel, "₹ INR"),
		"brief_requirement":    wfnode.OrPlaceholder(in.BriefRequirement, "(not provided)"),
		"detailed_requirement": wfnode.OrPlaceholder(wfnode.TruncateByRunes(in.DetailedRequirement, maxDetailRunes), "(not provided)"),
	}
	return tpl.Format(ctx, vars)
}

// normalizeProposalContent 补齐模型遗漏的字段
func normalizeProposalContent(c *entity.ProposalContent, in *wfmodel.ProposalContentInput) {
	if strings.TrimSpace(c.ProjectName) == "" {
		c.ProjectName = strings.TrimSpace(in.ProjectName)
	}
	c.ArchitectureDiagram = strings.TrimSpace(c.ArchitectureDiagram)
}

// buildModelOptions schema 为 nil 时不请求结构化输出
func buildModelOptions(in wfmodel.ModelOptions, jsonSchema map[string]any) []model.Option {
	opts := make([]model.Option, 0, 4)
	if in.Temperature != nil {
		opts = append(opts, model.WithTemperature(*in.Temperature))
	}
	if in.MaxTokens != nil {
		opts = append(opts, model.WithMaxTokens(*in.MaxTokens))
	}
	if strings.TrimSpace(in.Model) != "" {
		opts = append(opts, model.WithModel(strings.TrimSpace(in.Model)))
	}
	if jsonSchema != nil {
		opts = append(opts, openaiopts.WithExtraFields(map[string]any{
			"response_format": map[string]any{
				"type": "json_schema",
				"json_schema": map[string]any{
					"name":   "proposal_content",
					"strict": false,
					"schema": jsonSchema,
				},
			},
		}))
	}
	return opts
}

func proposalContentSchema() map[string]any {
	str := map[string]any{"type": "string"}
	strList := map[string]any{"type": "array", "items": str}
	return map[string]any{
		"type": "object",
		"required": []any{
			"project_name", "executive_summary", "objectives", "scope",
			"tech_stack", "timeline", "pricing", "architecture_diagram", "why_us",
		},
		"properties": map[string]any{
			"project_name":      str,
			"executive_summary": str,
			"objectives":        strList,
			"scope":             strList,
			"tech_stack": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"frontend":       strList,
					"backend":        strList,
					"database":       strList,
					"infrastructure": strList,
				},
			},
			"timeline": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type":     "object",
					"required": []any{"phase", "duration", "deliverables"},
					"properties": map[string]any{
						"phase":        str,
						"duration":     str,
						"deliverables": strList,
					},
				},
			},
			"pricing": map[string]any{
				"type":     "object",
				"required": []any{"items", "total"},
				"properties": map[string]any{
					"items": map[string]any{
						"type": "array",
						"items": map[string]any{
							"type":       "object",
							"required":   []any{"item", "amount"},
							"properties": map[string]any{"item": str, "amount": str},
						},
					},
					"total": str,
					"notes": str,
				},
			},
			"architecture_diagram": str,
			"why_us":               strList,
		},
	}
}
