package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
}

func TestExpandEnv(t *testing.T) {
	t.Setenv("RFP_TEST_SET", "value")

	cases := []struct {
		in   string
		want string
	}{
		{"a: ${RFP_TEST_SET}", "a: value"},
		{"a: ${RFP_TEST_SET:fallback}", "a: value"},
		{"a: ${RFP_TEST_UNSET:fallback}", "a: fallback"},
		{"a: ${RFP_TEST_UNSET:}", "a: "},
		{"a: ${RFP_TEST_UNSET}", "a: ${RFP_TEST_UNSET}"},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			assert.Equal(t, tc.want, expandEnv(tc.in))
		})
	}
}

func TestLoadFromAppliesDefaultsAndPlaceholders(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("APP_ENV", "test")
	t.Setenv("RFP_TEST_DOMAIN", "bot.example.com")
	writeConfig(t, dir, "config.yaml", `
app:
  domain: "${RFP_TEST_DOMAIN:}"
telegram:
  token: "${RFP_TEST_TOKEN:abc}"
  default_chat_id: 12345
`)
	writeConfig(t, dir, "config.test.yaml", `
server:
  http:
    port: 8088
`)

	cfg, err := LoadFrom(dir)
	require.NoError(t, err)

	assert.Equal(t, "rfp-bot", cfg.App.Name)
	assert.Equal(t, "abc", cfg.Telegram.Token)
	assert.Equal(t, int64(12345), cfg.Telegram.DefaultChatID)
	assert.Equal(t, 8088, cfg.Server.HTTP.Port)
	assert.Equal(t, 30*time.Minute, cfg.Session.Timeout)
	assert.Equal(t, "memory", cfg.Session.Backend)
	assert.Equal(t, "Asia/Kolkata", cfg.Jobs.Timezone)
	assert.Equal(t, int64(5*1024*1024), cfg.Document.MaxBytes)
	assert.Equal(t, "Sparktoship", cfg.Brand.Name)
	assert.Equal(t, "http://bot.example.com:8088", cfg.PublicBaseURL())
}

func TestLoadFromRejectsInvalidBackend(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "config.yaml", "session:\n  backend: etcd\n")

	_, err := LoadFrom(dir)
	assert.ErrorContains(t, err, "session.backend")
}

func TestLoadFromRedisBackendRequiresRedis(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "config.yaml", "session:\n  backend: redis\n")

	_, err := LoadFrom(dir)
	assert.ErrorContains(t, err, "cache.redis.enabled")
}

func TestLoadFromMissingFile(t *testing.T) {
	_, err := LoadFrom(t.TempDir())
	assert.Error(t, err)
}

func TestPublicBaseURLWithoutDomain(t *testing.T) {
	cfg := &Config{Server: ServerConfig{HTTP: HTTPServerConfig{Port: 5000}}}
	assert.Equal(t, "http://localhost:5000", cfg.PublicBaseURL())
}
