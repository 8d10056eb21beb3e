package llm

import (
	"context"

	"rfp-bot/internal/config"
	"rfp-bot/internal/domain/entity"
	wfchain "rfp-bot/internal/workflow/chain"
	wfmodel "rfp-bot/internal/workflow/model"
	workflowport "rfp-bot/internal/workflow/port"
	apperrors "rfp-bot/pkg/errors"
)

// ContentGenerator 通过提案正文链生成结构化内容
type ContentGenerator struct {
	chain    *wfchain.ProposalContentChain
	brand    config.BrandConfig
	provider string
}

// NewContentGenerator 创建提案正文生成器
func NewContentGenerator(factory workflowport.ChatModelFactory, cfg *config.Config) *ContentGenerator {
	return &ContentGenerator{
		chain:    wfchain.NewProposalContentChain(factory),
		brand:    cfg.Brand,
		provider: cfg.LLM.DefaultProvider,
	}
}

func (g *ContentGenerator) GenerateContent(ctx context.Context, req entity.ProposalRequest) (*entity.ProposalContent, error) {
	content, err := g.chain.Invoke(ctx, &wfmodel.ProposalContentInput{
		BrandName:           g.brand.Name,
		BrandTagline:        g.brand.Tagline,
		ClientName:          req.ClientName,
		ProjectName:         req.ProjectName,
		BriefRequirement:    req.BriefRequirement,
		DetailedRequirement: req.DetailedRequirement,
		CurrencyLabel:       req.Currency.Label(),
		Scale:               string(req.Scale),
		ModelOptions:        wfmodel.ModelOptions{Provider: g.provider},
	})
	if err != nil {
		return nil, apperrors.ErrLLMCallFailed.WithError(err)
	}
	return content, nil
}
