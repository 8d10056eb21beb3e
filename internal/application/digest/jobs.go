// Package digest 每日趣闻与 AI 技术速递推送
package digest

import (
	"context"
	"strings"
	"time"

	"rfp-bot/internal/domain/service"
	"rfp-bot/internal/infrastructure/imagegen"
	"rfp-bot/pkg/logger"
	"rfp-bot/pkg/metrics"
)

const (
	JobFunFact   = "fun_fact"
	JobTechPulse = "tech_pulse"
)

const (
	funFactHeader    = "🧠 *Daily Fun Fact*\n\n"
	funFactCaption   = "🎨 _Illustration of today's fun fact_"
	funFactImageName = "funfact.jpg"
	imagePromptRunes = 300
	pulseDivider     = "━━━━━━━━━━━━━━━━━━━━\n"
)

// TextWriter 生成每日文本
type TextWriter interface {
	FunFact(ctx context.Context, today string) (string, error)
	TechPulse(ctx context.Context, today string) (string, error)
}

// Config 推送配置
type Config struct {
	// DefaultChatID 定时推送目标，0 表示跳过
	DefaultChatID int64
	Location      *time.Location
	MaxImageSide  int
	JPEGQuality   int
}

// Jobs 两个每日任务，既可由调度器触发，也可由命令针对任意会话触发
type Jobs struct {
	writer    TextWriter
	images    service.ImageGenerator
	messenger service.Messenger
	cfg       Config
	now       func() time.Time
}

// NewJobs images 为 nil 时趣闻只发文本
func NewJobs(writer TextWriter, images service.ImageGenerator, messenger service.Messenger, cfg Config) *Jobs {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &Jobs{
		writer:    writer,
		images:    images,
		messenger: messenger,
		cfg:       cfg,
		now:       time.Now,
	}
}

// ScheduledFunFact 推送到默认会话
func (j *Jobs) ScheduledFunFact(ctx context.Context) {
	j.scheduled(ctx, JobFunFact, j.FunFact)
}

// ScheduledTechPulse 推送到默认会话
func (j *Jobs) ScheduledTechPulse(ctx context.Context) {
	j.scheduled(ctx, JobTechPulse, j.TechPulse)
}

func (j *Jobs) scheduled(ctx context.Context, job string, run func(context.Context, int64) error) {
	ctx = logger.WithContext(ctx, logger.JobKey, job)
	if j.cfg.DefaultChatID == 0 {
		logger.Warn(ctx, "scheduled job skipped, no default chat id configured")
		metrics.JobRunsTotal.WithLabelValues(job, "skipped").Inc()
		return
	}
	_ = run(ctx, j.cfg.DefaultChatID)
}

// FunFact 先发文本，再尽力补一张插图；插图失败不算任务失败
func (j *Jobs) FunFact(ctx context.Context, chatID int64) (err error) {
	ctx = logger.WithChat(logger.WithContext(ctx, logger.JobKey, JobFunFact), chatID)
	defer j.record(ctx, JobFunFact, &err)

	fact, err := j.writer.FunFact(ctx, j.today())
	if err != nil {
		return err
	}
	logger.Info(ctx, "fun fact generated", "chars", len(fact))

	if err := j.messenger.SendText(ctx, chatID, service.OutgoingText{
		Text:      funFactHeader + fact,
		ParseMode: service.ParseModeMarkdown,
	}); err != nil {
		return err
	}

	j.illustrate(ctx, chatID, fact)
	return nil
}

func (j *Jobs) illustrate(ctx context.Context, chatID int64, fact string) {
	if j.images == nil {
		return
	}
	img, err := j.images.GenerateImage(ctx, ImagePrompt(fact))
	if err != nil {
		logger.Warn(ctx, "image generation failed, sending text only", "error", err.Error())
		return
	}

	data, err := imagegen.Compress(img.Data, j.cfg.MaxImageSide, j.cfg.JPEGQuality)
	if err != nil {
		logger.Warn(ctx, "image compression failed", "error", err.Error(), "image_id", img.ID)
		return
	}

	if err := j.messenger.SendPhoto(ctx, chatID, service.OutgoingPhoto{
		Data:      data,
		FileName:  funFactImageName,
		Caption:   funFactCaption,
		ParseMode: service.ParseModeMarkdown,
	}); err != nil {
		logger.Warn(ctx, "failed to send fun fact image", "error", err.Error())
	}
}

// TechPulse 超长时按换行切分为多条
func (j *Jobs) TechPulse(ctx context.Context, chatID int64) (err error) {
	ctx = logger.WithChat(logger.WithContext(ctx, logger.JobKey, JobTechPulse), chatID)
	defer j.record(ctx, JobTechPulse, &err)

	content, err := j.writer.TechPulse(ctx, j.today())
	if err != nil {
		return err
	}
	logger.Info(ctx, "tech pulse generated", "chars", len(content))

	for _, part := range service.SplitMessage(PulseHeader(j.now().In(j.cfg.Location))+content, service.MaxMessageLength) {
		if err := j.messenger.SendText(ctx, chatID, service.OutgoingText{
			Text:      part,
			ParseMode: service.ParseModeMarkdown,
		}); err != nil {
			return err
		}
	}
	return nil
}

func (j *Jobs) record(ctx context.Context, job string, err *error) {
	if *err != nil {
		logger.Error(ctx, "job failed", *err)
		metrics.JobRunsTotal.WithLabelValues(job, "error").Inc()
		return
	}
	logger.Info(ctx, "job completed")
	metrics.JobRunsTotal.WithLabelValues(job, "success").Inc()
}

// today 形如 "Monday, 02 January 2006"
func (j *Jobs) today() string {
	return j.now().In(j.cfg.Location).Format("Monday, 02 January 2006")
}

// ImagePrompt 插图提示词只取趣闻前 300 个字符
func ImagePrompt(fact string) string {
	r := []rune(strings.TrimSpace(fact))
	if len(r) > imagePromptRunes {
		r = r[:imagePromptRunes]
	}
	return "A colorful, whimsical illustration of this fun fact: " + string(r)
}

func PulseHeader(t time.Time) string {
	return "🔥 *AI Tech Pulse — " + t.Format("02 Jan 2006") + "*\n\n" + pulseDivider
}
