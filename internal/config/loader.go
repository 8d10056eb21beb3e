// Package config 提供配置加载功能
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/viper"
)

// envPlaceholder 匹配 ${VAR} 或 ${VAR:default}
// g1: 变量名, g2: 默认值部分（含冒号）, g3: 默认值内容
var envPlaceholder = regexp.MustCompile(`\${(\w+)(:([^}]*))?}`)

// Load 从 configs 目录加载配置
func Load() (*Config, error) {
	return LoadFrom("configs")
}

// LoadFrom 从指定目录加载配置
// 按优先级加载：默认配置 -> 环境配置 -> 环境变量
func LoadFrom(dir string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	// 1. 加载默认配置
	if err := loadConfigFile(v, filepath.Join(dir, "config.yaml"), false); err != nil {
		return nil, err
	}

	// 2. 加载环境特定配置
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}
	envFile := filepath.Join(dir, fmt.Sprintf("config.%s.yaml", env))
	if err := loadConfigFile(v, envFile, true); err != nil {
		return nil, err
	}

	// 3. 绑定环境变量 (直接覆盖)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// 设置默认值 (兜底)
	setDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// loadConfigFile 读取文件，执行环境变量替换，并加载到 viper
func loadConfigFile(v *viper.Viper, path string, optional bool) error {
	content, err := os.ReadFile(path)
	if err != nil {
		if optional && os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	reader := strings.NewReader(expandEnv(string(content)))
	if v.ConfigFileUsed() == "" {
		if err := v.ReadConfig(reader); err != nil {
			return fmt.Errorf("failed to read processed config %s: %w", path, err)
		}
		// 手动标记已加载文件，防止后续 ReadInConfig 报错
		v.SetConfigFile(path)
	} else {
		if err := v.MergeConfig(reader); err != nil {
			return fmt.Errorf("failed to merge processed config %s: %w", path, err)
		}
	}

	return nil
}

// expandEnv 替换字符串中的 ${VAR:default} 占位符
func expandEnv(s string) string {
	return envPlaceholder.ReplaceAllStringFunc(s, func(match string) string {
		submatch := envPlaceholder.FindStringSubmatch(match)
		key := submatch[1]
		hasDefault := submatch[2] != ""
		defVal := submatch[3]

		if val, ok := os.LookupEnv(key); ok {
			return val
		}
		if hasDefault {
			return defVal
		}
		// 保留原样以便识别未定义的变量
		return match
	})
}

// MustLoad 加载配置，失败时 panic
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg
}

// validate 校验取值范围
func (c *Config) validate() error {
	switch c.Session.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("invalid session.backend %q: want memory or redis", c.Session.Backend)
	}
	if c.Session.Backend == "redis" && !c.Cache.Redis.Enabled {
		return fmt.Errorf("session.backend is redis but cache.redis.enabled is false")
	}
	if c.Telegram.Workers < 1 {
		return fmt.Errorf("telegram.workers must be >= 1, got %d", c.Telegram.Workers)
	}
	if c.Session.Timeout <= 0 {
		return fmt.Errorf("session.timeout must be positive")
	}
	return nil
}

// setDefaults 设置配置默认值
func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "rfp-bot")
	v.SetDefault("app.version", "v0.0.0")
	v.SetDefault("app.env", "development")

	// HTTP 服务器默认值
	v.SetDefault("server.http.host", "0.0.0.0")
	v.SetDefault("server.http.port", 5000)
	v.SetDefault("server.http.read_timeout", "30s")
	v.SetDefault("server.http.write_timeout", "60s")
	v.SetDefault("server.http.idle_timeout", "120s")

	// Telegram
	v.SetDefault("telegram.poll_timeout", 30)
	v.SetDefault("telegram.workers", 4)
	v.SetDefault("telegram.queue_size", 64)
	v.SetDefault("telegram.download_timeout", "30s")

	// 会话
	v.SetDefault("session.backend", "memory")
	v.SetDefault("session.timeout", "30m")
	v.SetDefault("session.key_prefix", "rfp:session:")

	// 产物存储
	v.SetDefault("storage.static_dir", "static")
	v.SetDefault("storage.proposals_dir", "static/proposals")
	v.SetDefault("storage.generated_dir", "static/generated")
	v.SetDefault("storage.index_file", "static/proposals/index.json")

	// 品牌
	v.SetDefault("brand.name", "Sparktoship")
	v.SetDefault("brand.website", "https://sparktoship.com")
	v.SetDefault("brand.tagline", "Solution Architecture & Engineering")

	// LLM
	v.SetDefault("llm.default_provider", "openai")

	// 图片生成
	v.SetDefault("image.model", "gpt-image-1.5")
	v.SetDefault("image.size", "1024x1024")
	v.SetDefault("image.quality", "low")
	v.SetDefault("image.timeout", "120s")
	v.SetDefault("image.max_dimension", 1024)
	v.SetDefault("image.jpeg_quality", 60)

	// 抓取
	v.SetDefault("scraper.timeout", "10s")
	v.SetDefault("scraper.cache_ttl", "24h")
	v.SetDefault("scraper.user_agent", "Mozilla/5.0 (compatible; ProposalBot/1.0)")

	// 文档摄取
	v.SetDefault("document.max_bytes", 5*1024*1024)
	v.SetDefault("document.max_words", 5000)
	v.SetDefault("document.timeout", "30s")
	v.SetDefault("document.user_agent", "Mozilla/5.0 (compatible; ProposalBot/1.0)")

	// 架构图
	v.SetDefault("diagram.command", "npx")
	v.SetDefault("diagram.args", []string{"-y", "@mermaid-js/mermaid-cli", "mmdc"})
	v.SetDefault("diagram.timeout", "60s")
	v.SetDefault("diagram.width", 1200)
	v.SetDefault("diagram.background", "transparent")

	// 定时任务
	v.SetDefault("jobs.enabled", true)
	v.SetDefault("jobs.timezone", "Asia/Kolkata")
	v.SetDefault("jobs.fun_fact_cron", "0 11 * * *")
	v.SetDefault("jobs.tech_pulse_cron", "30 11 * * *")
	v.SetDefault("jobs.model", "gpt-5-nano")

	// Redis 默认值
	v.SetDefault("cache.redis.enabled", false)
	v.SetDefault("cache.redis.host", "localhost")
	v.SetDefault("cache.redis.port", 6379)
	v.SetDefault("cache.redis.db", 0)
	v.SetDefault("cache.redis.pool_size", 20)
	v.SetDefault("cache.redis.min_idle_conns", 2)
	v.SetDefault("cache.redis.dial_timeout", "5s")
	v.SetDefault("cache.redis.read_timeout", "3s")
	v.SetDefault("cache.redis.write_timeout", "3s")

	// 可观测性默认值
	v.SetDefault("observability.logging.level", "info")
	v.SetDefault("observability.logging.format", "json")
	v.SetDefault("observability.tracing.enabled", false)
	v.SetDefault("observability.tracing.endpoint", "localhost:4317")
	v.SetDefault("observability.tracing.sample_rate", 1.0)
	v.SetDefault("observability.metrics.enabled", true)
	v.SetDefault("observability.metrics.path", "/metrics")

	// 安全默认值
	v.SetDefault("security.rate_limit.enabled", false)
	v.SetDefault("security.rate_limit.requests_per_second", 20)
	v.SetDefault("security.rate_limit.burst", 40)
	v.SetDefault("security.cors.allowed_origins", []string{"*"})
	v.SetDefault("security.cors.allowed_methods", []string{"GET", "HEAD", "OPTIONS"})
	v.SetDefault("security.cors.allowed_headers", []string{"Origin", "Content-Type", "X-Request-ID"})
}
