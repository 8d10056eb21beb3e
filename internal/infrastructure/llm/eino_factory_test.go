package llm

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rfp-bot/internal/config"
)

func testConfig() *config.Config {
	return &config.Config{
		LLM: config.LLMConfig{
			DefaultProvider: "openai",
			Providers: map[string]config.ProviderConfig{
				"openai": {APIKey: "sk-test", BaseURL: "http://127.0.0.1:1/v1", Model: "gpt-5-mini", Timeout: time.Second},
				"nokey":  {Model: "gpt-5-mini"},
			},
		},
	}
}

func TestEinoFactoryCachesDefaultProvider(t *testing.T) {
	f := NewEinoFactory(testConfig())

	a, err := f.Get(context.Background(), "")
	require.NoError(t, err)
	b, err := f.Get(context.Background(), "openai")
	require.NoError(t, err)
	assert.Same(t, a, b)
}

func TestEinoFactoryErrors(t *testing.T) {
	f := NewEinoFactory(testConfig())

	_, err := f.Get(context.Background(), "missing")
	assert.ErrorContains(t, err, "not found")

	_, err = f.Get(context.Background(), "nokey")
	assert.ErrorContains(t, err, "no api key")
}

func TestNewChatModelConfigOmitsUnsetSampling(t *testing.T) {
	cfg := newChatModelConfig(config.ProviderConfig{Model: "gpt-5-mini"})
	assert.Nil(t, cfg.Temperature)
	assert.Nil(t, cfg.MaxTokens)

	cfg = newChatModelConfig(config.ProviderConfig{Model: "gpt-4o", Temperature: 0.7, MaxTokens: 2048})
	require.NotNil(t, cfg.Temperature)
	assert.InDelta(t, 0.7, *cfg.Temperature, 0.001)
	assert.Equal(t, 2048, *cfg.MaxTokens)
}
