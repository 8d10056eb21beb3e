package llm

import (
	"context"

	"rfp-bot/internal/config"
	wfchain "rfp-bot/internal/workflow/chain"
	wfmodel "rfp-bot/internal/workflow/model"
	workflowport "rfp-bot/internal/workflow/port"
	apperrors "rfp-bot/pkg/errors"
)

// DailyWriter 生成每日推送文本，模型可单独配置为更便宜的型号
type DailyWriter struct {
	funFact   *wfchain.DailyTextChain
	techPulse *wfchain.DailyTextChain
	opts      wfmodel.ModelOptions
}

func NewDailyWriter(factory workflowport.ChatModelFactory, cfg *config.Config) *DailyWriter {
	return &DailyWriter{
		funFact:   wfchain.NewFunFactChain(factory),
		techPulse: wfchain.NewTechPulseChain(factory),
		opts: wfmodel.ModelOptions{
			Provider: cfg.LLM.DefaultProvider,
			Model:    cfg.Jobs.Model,
		},
	}
}

// FunFact today 形如 "Monday, 02 January 2006"
func (w *DailyWriter) FunFact(ctx context.Context, today string) (string, error) {
	return w.invoke(ctx, w.funFact, today)
}

func (w *DailyWriter) TechPulse(ctx context.Context, today string) (string, error) {
	return w.invoke(ctx, w.techPulse, today)
}

func (w *DailyWriter) invoke(ctx context.Context, c *wfchain.DailyTextChain, today string) (string, error) {
	text, err := c.Invoke(ctx, &wfmodel.DailyTextInput{Today: today, ModelOptions: w.opts})
	if err != nil {
		return "", apperrors.ErrLLMCallFailed.WithError(err)
	}
	return text, nil
}
