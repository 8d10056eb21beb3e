package wire

import (
	"context"
	"fmt"
	"os"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/wire"

	"rfp-bot/internal/application/digest"
	"rfp-bot/internal/application/pitch"
	"rfp-bot/internal/application/proposal"
	"rfp-bot/internal/config"
	"rfp-bot/internal/domain/repository"
	"rfp-bot/internal/domain/service"
	"rfp-bot/internal/infrastructure/diagram"
	"rfp-bot/internal/infrastructure/document"
	"rfp-bot/internal/infrastructure/imagegen"
	"rfp-bot/internal/infrastructure/llm"
	"rfp-bot/internal/infrastructure/persistence/filestore"
	"rfp-bot/internal/infrastructure/persistence/memory"
	"rfp-bot/internal/infrastructure/persistence/redis"
	"rfp-bot/internal/infrastructure/scraper"
	"rfp-bot/internal/interfaces/http/router"
	"rfp-bot/internal/interfaces/telegram"
	workflowport "rfp-bot/internal/workflow/port"
	"rfp-bot/pkg/logger"
)

// App 完整运行时：HTTP 仪表盘、Telegram 机器人与每日调度
type App struct {
	Router *router.Router
	Bot    *telegram.Bot
	// Scheduler 为 nil 表示定时任务未启用
	Scheduler *digest.Scheduler
}

// StorageSet 本地产物存储
var StorageSet = wire.NewSet(
	ProvideProposalIndex,
	ProvideArtifactStore,
	wire.Bind(new(repository.ProposalIndex), new(*filestore.ProposalIndex)),
	wire.Bind(new(repository.ArtifactStore), new(*filestore.ArtifactStore)),
)

// GenerationSet 提案生成链路
var GenerationSet = wire.NewSet(
	ProvideLocation,
	ProvideScraper,
	ProvideMermaidRenderer,
	llm.NewEinoFactory,
	llm.NewContentGenerator,
	ProvideBuilder,
	wire.Bind(new(workflowport.ChatModelFactory), new(*llm.EinoFactory)),
	wire.Bind(new(service.BrandingScraper), new(*scraper.Scraper)),
	wire.Bind(new(service.ContentGenerator), new(*llm.ContentGenerator)),
	wire.Bind(new(service.DiagramRenderer), new(*diagram.MermaidRenderer)),
)

// TelegramSet 机器人与对话状态机
var TelegramSet = wire.NewSet(
	ProvideBotAPI,
	ProvideSender,
	ProvideDownloader,
	ProvideDispatcher,
	ProvideSessionStore,
	ProvideIngestor,
	ProvideMachine,
	ProvideHandler,
	ProvideBot,
)

// DigestSet 每日推送
var DigestSet = wire.NewSet(
	llm.NewDailyWriter,
	ProvideImageGenerator,
	ProvideDailyJobs,
	ProvideScheduler,
)

// ProvideRedisClient 未启用 redis 时返回 nil
func ProvideRedisClient(ctx context.Context, cfg *config.Config) (*redis.Client, func(), error) {
	if !cfg.Cache.Redis.Enabled {
		return nil, func() {}, nil
	}
	client, err := redis.NewClient(&cfg.Cache.Redis)
	if err != nil {
		return nil, nil, err
	}
	logger.Info(ctx, "redis connected", "addr", cfg.Cache.Redis.Addr())
	cleanup := func() {
		_ = client.Close()
	}
	return client, cleanup, nil
}

// ProvideProposalIndex 提供提案索引
func ProvideProposalIndex(cfg *config.Config) *filestore.ProposalIndex {
	return filestore.NewProposalIndex(cfg.Storage.IndexFile)
}

// ProvideArtifactStore 提供产物存储，启动时确保目录存在
func ProvideArtifactStore(cfg *config.Config) (*filestore.ArtifactStore, error) {
	for _, dir := range []string{cfg.Storage.StaticDir, cfg.Storage.ProposalsDir, cfg.Storage.GeneratedDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage dir %s: %w", dir, err)
		}
	}
	return filestore.NewArtifactStore(cfg.Storage.ProposalsDir), nil
}

// ProvideLocation 日期与定时任务使用的时区
func ProvideLocation(cfg *config.Config) (*time.Location, error) {
	if cfg.Jobs.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(cfg.Jobs.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", cfg.Jobs.Timezone, err)
	}
	return loc, nil
}

// ProvideScraper 启用 redis 时缓存抓取结果
func ProvideScraper(cfg *config.Config, client *redis.Client) *scraper.Scraper {
	var opts []scraper.Option
	if client != nil && cfg.Scraper.CacheTTL > 0 {
		opts = append(opts, scraper.WithCache(redis.NewCache(client, "branding"), cfg.Scraper.CacheTTL))
	}
	return scraper.New(cfg.Scraper, opts...)
}

func ProvideMermaidRenderer(cfg *config.Config) *diagram.MermaidRenderer {
	return diagram.NewMermaidRenderer(cfg.Diagram)
}

// ProvideBuilder 提供提案生成器
func ProvideBuilder(
	cfg *config.Config,
	loc *time.Location,
	scr service.BrandingScraper,
	content service.ContentGenerator,
	renderer service.DiagramRenderer,
	artifacts repository.ArtifactStore,
	index repository.ProposalIndex,
) *proposal.Builder {
	return proposal.NewBuilder(scr, content, renderer, artifacts, index, proposal.Config{
		Brand: proposal.Brand{
			Name:    cfg.Brand.Name,
			Website: cfg.Brand.Website,
			Tagline: cfg.Brand.Tagline,
		},
		Location: loc,
	})
}

// ProvideRouter 启用 redis 时开启就绪检查与限流
func ProvideRouter(cfg *config.Config, index repository.ProposalIndex, artifacts repository.ArtifactStore, client *redis.Client) *router.Router {
	deps := router.Deps{
		Index:     index,
		Artifacts: artifacts,
	}
	if client != nil {
		deps.Redis = client
		deps.Limiter = redis.NewRateLimiter(client)
		deps.LimiterKey = redis.BuildRateLimitKey
	}
	return router.New(cfg, deps)
}

// ProvideBotAPI 连接 Telegram
func ProvideBotAPI(cfg *config.Config) (*tgbotapi.BotAPI, error) {
	return telegram.NewAPI(cfg.Telegram)
}

func ProvideSender(api *tgbotapi.BotAPI) *telegram.Sender {
	return telegram.NewSender(api)
}

func ProvideDownloader(cfg *config.Config, api *tgbotapi.BotAPI) *telegram.Downloader {
	return telegram.NewDownloader(api, cfg.Telegram.DownloadTimeout, cfg.Document.MaxBytes)
}

func ProvideDispatcher(cfg *config.Config) *telegram.Dispatcher {
	return telegram.NewDispatcher(cfg.Telegram.Workers, cfg.Telegram.QueueSize)
}

// ProvideSessionStore 按配置选择会话后端
func ProvideSessionStore(cfg *config.Config, client *redis.Client) (repository.SessionStore, error) {
	switch cfg.Session.Backend {
	case "redis":
		if client == nil {
			return nil, fmt.Errorf("session backend redis requires cache.redis.enabled")
		}
		return redis.NewSessionStore(client, cfg.Session.KeyPrefix, cfg.Session.Timeout), nil
	default:
		return memory.NewSessionStore(cfg.Session.Timeout), nil
	}
}

func ProvideIngestor(cfg *config.Config) *document.Ingestor {
	return document.NewIngestor(cfg.Document, document.WithAllowPrivate(cfg.Scraper.AllowPrivate))
}

// ProvideMachine 提供 /pitch 状态机
func ProvideMachine(
	cfg *config.Config,
	store repository.SessionStore,
	sender *telegram.Sender,
	ingestor *document.Ingestor,
	builder *proposal.Builder,
) *pitch.Machine {
	return pitch.NewMachine(store, sender, ingestor, builder, pitch.Config{
		BaseURL:        cfg.PublicBaseURL(),
		MaxUploadBytes: cfg.Document.MaxBytes,
	})
}

func ProvideHandler(
	cfg *config.Config,
	machine *pitch.Machine,
	jobs *digest.Jobs,
	index repository.ProposalIndex,
	sender *telegram.Sender,
	downloader *telegram.Downloader,
) *telegram.Handler {
	return telegram.NewHandler(machine, jobs, index, sender, downloader, cfg.PublicBaseURL())
}

func ProvideBot(cfg *config.Config, api *tgbotapi.BotAPI, handler *telegram.Handler, dispatcher *telegram.Dispatcher) *telegram.Bot {
	return telegram.NewBot(api, handler, dispatcher, cfg.Telegram)
}

// ProvideImageGenerator 未配置 API key 时返回 nil，趣闻只发文本
func ProvideImageGenerator(ctx context.Context, cfg *config.Config, loc *time.Location) service.ImageGenerator {
	gen, err := imagegen.New(cfg.Image, cfg.Storage.GeneratedDir, imagegen.WithLocation(loc))
	if err != nil {
		logger.Warn(ctx, "image generation disabled", "error", err.Error())
		return nil
	}
	return gen
}

// ProvideDailyJobs 提供每日推送任务
func ProvideDailyJobs(
	cfg *config.Config,
	loc *time.Location,
	writer *llm.DailyWriter,
	images service.ImageGenerator,
	sender *telegram.Sender,
) *digest.Jobs {
	return digest.NewJobs(writer, images, sender, digest.Config{
		DefaultChatID: cfg.Telegram.DefaultChatID,
		Location:      loc,
		MaxImageSide:  cfg.Image.MaxDimension,
		JPEGQuality:   cfg.Image.JPEGQuality,
	})
}

// ProvideScheduler 定时任务关闭时返回 nil
func ProvideScheduler(ctx context.Context, cfg *config.Config, loc *time.Location, jobs *digest.Jobs) (*digest.Scheduler, error) {
	if !cfg.Jobs.Enabled {
		return nil, nil
	}
	return digest.NewScheduler(ctx, jobs, loc, cfg.Jobs.FunFactCron, cfg.Jobs.TechPulseCron)
}
