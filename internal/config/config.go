// Package config 提供配置加载和管理功能
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config 应用配置根结构
type Config struct {
	App           AppConfig           `yaml:"app" mapstructure:"app"`
	Server        ServerConfig        `yaml:"server" mapstructure:"server"`
	Telegram      TelegramConfig      `yaml:"telegram" mapstructure:"telegram"`
	Session       SessionConfig       `yaml:"session" mapstructure:"session"`
	Storage       StorageConfig       `yaml:"storage" mapstructure:"storage"`
	Brand         BrandConfig         `yaml:"brand" mapstructure:"brand"`
	LLM           LLMConfig           `yaml:"llm" mapstructure:"llm"`
	Image         ImageConfig         `yaml:"image" mapstructure:"image"`
	Scraper       ScraperConfig       `yaml:"scraper" mapstructure:"scraper"`
	Document      DocumentConfig      `yaml:"document" mapstructure:"document"`
	Diagram       DiagramConfig       `yaml:"diagram" mapstructure:"diagram"`
	Jobs          JobsConfig          `yaml:"jobs" mapstructure:"jobs"`
	Cache         CacheConfig         `yaml:"cache" mapstructure:"cache"`
	Observability ObservabilityConfig `yaml:"observability" mapstructure:"observability"`
	Security      SecurityConfig      `yaml:"security" mapstructure:"security"`
}

// AppConfig 应用基础配置
type AppConfig struct {
	Name    string `yaml:"name" mapstructure:"name"`
	Version string `yaml:"version" mapstructure:"version"`
	Env     string `yaml:"env" mapstructure:"env"`
	// Domain 对外访问域名，用于拼接提案链接
	Domain string `yaml:"domain" mapstructure:"domain"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	HTTP HTTPServerConfig `yaml:"http" mapstructure:"http"`
}

// HTTPServerConfig HTTP 服务器配置
type HTTPServerConfig struct {
	Host         string        `yaml:"host" mapstructure:"host"`
	Port         int           `yaml:"port" mapstructure:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" mapstructure:"idle_timeout"`
}

// TelegramConfig Telegram 机器人配置
type TelegramConfig struct {
	Token string `yaml:"token" mapstructure:"token"`
	// DefaultChatID 定时任务推送的目标会话，0 表示未配置
	DefaultChatID   int64         `yaml:"default_chat_id" mapstructure:"default_chat_id"`
	PollTimeout     int           `yaml:"poll_timeout" mapstructure:"poll_timeout"`
	Workers         int           `yaml:"workers" mapstructure:"workers"`
	QueueSize       int           `yaml:"queue_size" mapstructure:"queue_size"`
	DownloadTimeout time.Duration `yaml:"download_timeout" mapstructure:"download_timeout"`
	Debug           bool          `yaml:"debug" mapstructure:"debug"`
}

// SessionConfig 会话存储配置
type SessionConfig struct {
	Backend   string        `yaml:"backend" mapstructure:"backend"` // memory | redis
	Timeout   time.Duration `yaml:"timeout" mapstructure:"timeout"`
	KeyPrefix string        `yaml:"key_prefix" mapstructure:"key_prefix"`
}

// StorageConfig 本地产物存储配置
type StorageConfig struct {
	StaticDir    string `yaml:"static_dir" mapstructure:"static_dir"`
	ProposalsDir string `yaml:"proposals_dir" mapstructure:"proposals_dir"`
	GeneratedDir string `yaml:"generated_dir" mapstructure:"generated_dir"`
	IndexFile    string `yaml:"index_file" mapstructure:"index_file"`
}

// BrandConfig 提案方品牌信息
type BrandConfig struct {
	Name    string `yaml:"name" mapstructure:"name"`
	Website string `yaml:"website" mapstructure:"website"`
	Tagline string `yaml:"tagline" mapstructure:"tagline"`
}

// LLMConfig LLM 配置
type LLMConfig struct {
	DefaultProvider string                    `yaml:"default_provider" mapstructure:"default_provider"`
	Providers       map[string]ProviderConfig `yaml:"providers" mapstructure:"providers"`
}

// ProviderConfig LLM 提供商配置
type ProviderConfig struct {
	APIKey      string        `yaml:"api_key" mapstructure:"api_key"`
	BaseURL     string        `yaml:"base_url" mapstructure:"base_url"`
	Model       string        `yaml:"model" mapstructure:"model"`
	MaxTokens   int           `yaml:"max_tokens" mapstructure:"max_tokens"`
	Temperature float64       `yaml:"temperature" mapstructure:"temperature"`
	Timeout     time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// ImageConfig 图片生成配置
type ImageConfig struct {
	APIKey  string        `yaml:"api_key" mapstructure:"api_key"`
	BaseURL string        `yaml:"base_url" mapstructure:"base_url"`
	Model   string        `yaml:"model" mapstructure:"model"`
	Size    string        `yaml:"size" mapstructure:"size"`
	Quality string        `yaml:"quality" mapstructure:"quality"`
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
	// MaxDimension 发送前压缩的最长边像素
	MaxDimension int `yaml:"max_dimension" mapstructure:"max_dimension"`
	JPEGQuality  int `yaml:"jpeg_quality" mapstructure:"jpeg_quality"`
}

// ScraperConfig 客户品牌抓取配置
type ScraperConfig struct {
	Timeout   time.Duration `yaml:"timeout" mapstructure:"timeout"`
	CacheTTL  time.Duration `yaml:"cache_ttl" mapstructure:"cache_ttl"`
	UserAgent string        `yaml:"user_agent" mapstructure:"user_agent"`
	// AllowPrivate 仅用于本地调试，关闭内网地址校验
	AllowPrivate bool `yaml:"allow_private" mapstructure:"allow_private"`
}

// DocumentConfig 需求文档摄取配置
type DocumentConfig struct {
	MaxBytes  int64         `yaml:"max_bytes" mapstructure:"max_bytes"`
	MaxWords  int           `yaml:"max_words" mapstructure:"max_words"`
	Timeout   time.Duration `yaml:"timeout" mapstructure:"timeout"`
	UserAgent string        `yaml:"user_agent" mapstructure:"user_agent"`
}

// DiagramConfig 架构图渲染配置
type DiagramConfig struct {
	Command    string        `yaml:"command" mapstructure:"command"`
	Args       []string      `yaml:"args" mapstructure:"args"`
	Timeout    time.Duration `yaml:"timeout" mapstructure:"timeout"`
	Width      int           `yaml:"width" mapstructure:"width"`
	Background string        `yaml:"background" mapstructure:"background"`
}

// JobsConfig 定时任务配置
type JobsConfig struct {
	Enabled       bool   `yaml:"enabled" mapstructure:"enabled"`
	Timezone      string `yaml:"timezone" mapstructure:"timezone"`
	FunFactCron   string `yaml:"fun_fact_cron" mapstructure:"fun_fact_cron"`
	TechPulseCron string `yaml:"tech_pulse_cron" mapstructure:"tech_pulse_cron"`
	Model         string `yaml:"model" mapstructure:"model"`
}

// CacheConfig 缓存配置
type CacheConfig struct {
	Redis RedisConfig `yaml:"redis" mapstructure:"redis"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Enabled      bool          `yaml:"enabled" mapstructure:"enabled"`
	Host         string        `yaml:"host" mapstructure:"host"`
	Port         int           `yaml:"port" mapstructure:"port"`
	Password     string        `yaml:"password" mapstructure:"password"`
	DB           int           `yaml:"db" mapstructure:"db"`
	PoolSize     int           `yaml:"pool_size" mapstructure:"pool_size"`
	MinIdleConns int           `yaml:"min_idle_conns" mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `yaml:"dial_timeout" mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
}

// ObservabilityConfig 可观测性配置
type ObservabilityConfig struct {
	Logging LoggingConfig `yaml:"logging" mapstructure:"logging"`
	Tracing TracingConfig `yaml:"tracing" mapstructure:"tracing"`
	Metrics MetricsConfig `yaml:"metrics" mapstructure:"metrics"`
}

// LoggingConfig 日志配置
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// TracingConfig 追踪配置
type TracingConfig struct {
	Enabled    bool    `yaml:"enabled" mapstructure:"enabled"`
	Endpoint   string  `yaml:"endpoint" mapstructure:"endpoint"`
	SampleRate float64 `yaml:"sample_rate" mapstructure:"sample_rate"`
}

// MetricsConfig 指标配置
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Path    string `yaml:"path" mapstructure:"path"`
}

// SecurityConfig 安全配置
type SecurityConfig struct {
	RateLimit RateLimitConfig `yaml:"rate_limit" mapstructure:"rate_limit"`
	CORS      CORSConfig      `yaml:"cors" mapstructure:"cors"`
}

// RateLimitConfig 限流配置
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled" mapstructure:"enabled"`
	RequestsPerSecond int  `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	Burst             int  `yaml:"burst" mapstructure:"burst"`
}

// CORSConfig CORS 配置
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods" mapstructure:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers" mapstructure:"allowed_headers"`
}

// PublicBaseURL 返回对外可访问的基础地址
func (c *Config) PublicBaseURL() string {
	domain := strings.TrimSpace(c.App.Domain)
	if domain == "" {
		return fmt.Sprintf("http://localhost:%d", c.Server.HTTP.Port)
	}
	return fmt.Sprintf("http://%s:%d", domain, c.Server.HTTP.Port)
}

// Addr 返回 host:port
func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
