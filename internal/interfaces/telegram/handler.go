package telegram

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"rfp-bot/internal/application/pitch"
	"rfp-bot/internal/domain/entity"
	"rfp-bot/internal/domain/repository"
	"rfp-bot/internal/domain/service"
	"rfp-bot/pkg/logger"
	"rfp-bot/pkg/metrics"
)

const recentProposals = 10

const (
	msgNoProposals      = "📋 No proposals generated yet. Send /pitch to create one!"
	msgProposalsFailed  = "❌ Could not load proposals right now. Please try again later."
	msgFunFactRunning   = "🧠 Fetching a fun fact... Please wait."
	msgTechPulseRunning = "🔥 Gathering the AI tech pulse... Please wait."
	msgJobFailed        = "❌ Could not generate that right now. Please try again later."
)

// PitchFlow 引导式提案状态机
type PitchFlow interface {
	Start(ctx context.Context, ev pitch.Event, args string)
	Cancel(ctx context.Context, ev pitch.Event)
	HandleText(ctx context.Context, ev pitch.Event)
	HandleUpload(ctx context.Context, ev pitch.Event, up pitch.Upload)
}

// DailyJobs 可按需触发的每日推送
type DailyJobs interface {
	FunFact(ctx context.Context, chatID int64) error
	TechPulse(ctx context.Context, chatID int64) error
}

// FileFetcher 下载用户上传的文件
type FileFetcher interface {
	Download(ctx context.Context, fileID string) ([]byte, error)
}

// Handler 把 Telegram 更新路由到对应用例
type Handler struct {
	flow      PitchFlow
	jobs      DailyJobs
	index     repository.ProposalIndex
	messenger service.Messenger
	files     FileFetcher
	baseURL   string
}

func NewHandler(
	flow PitchFlow,
	jobs DailyJobs,
	index repository.ProposalIndex,
	messenger service.Messenger,
	files FileFetcher,
	baseURL string,
) *Handler {
	return &Handler{
		flow:      flow,
		jobs:      jobs,
		index:     index,
		messenger: messenger,
		files:     files,
		baseURL:   strings.TrimRight(baseURL, "/"),
	}
}

// HandleUpdate 处理一条更新，调用方保证同一会话串行
func (h *Handler) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	msg := update.Message
	if msg == nil || msg.Chat == nil {
		metrics.TelegramUpdatesTotal.WithLabelValues("other").Inc()
		return
	}

	ev := pitch.Event{ChatID: msg.Chat.ID, MessageID: msg.MessageID, Text: msg.Text}
	ctx = logger.WithChat(ctx, ev.ChatID)

	switch {
	case msg.Document != nil:
		metrics.TelegramUpdatesTotal.WithLabelValues("document").Inc()
		h.handleDocument(ctx, ev, msg.Document)
	case msg.IsCommand():
		metrics.TelegramUpdatesTotal.WithLabelValues("command").Inc()
		h.handleCommand(ctx, ev, msg.Command(), msg.CommandArguments())
	case msg.Text != "":
		metrics.TelegramUpdatesTotal.WithLabelValues("text").Inc()
		h.flow.HandleText(ctx, ev)
	default:
		metrics.TelegramUpdatesTotal.WithLabelValues("other").Inc()
	}
}

func (h *Handler) handleCommand(ctx context.Context, ev pitch.Event, cmd, args string) {
	logger.Debug(ctx, "command received", "command", cmd)

	switch cmd {
	case "start", "help":
		h.reply(ctx, ev, pitch.WelcomeMessage())
	case "pitch":
		h.flow.Start(ctx, ev, args)
	case "cancel":
		h.flow.Cancel(ctx, ev)
	case "proposals":
		h.listProposals(ctx, ev)
	case "funfact":
		h.runJob(ctx, ev, msgFunFactRunning, h.jobs.FunFact)
	case "aipulse", "aitechpulse":
		h.runJob(ctx, ev, msgTechPulseRunning, h.jobs.TechPulse)
	default:
		// 未知命令按普通文本处理，会话外会被忽略
		h.flow.HandleText(ctx, ev)
	}
}

func (h *Handler) handleDocument(ctx context.Context, ev pitch.Event, doc *tgbotapi.Document) {
	fileID := doc.FileID
	h.flow.HandleUpload(ctx, ev, pitch.Upload{
		FileName: doc.FileName,
		Size:     int64(doc.FileSize),
		Fetch: func(ctx context.Context) ([]byte, error) {
			return h.files.Download(ctx, fileID)
		},
	})
}

func (h *Handler) listProposals(ctx context.Context, ev pitch.Event) {
	records, err := h.index.List(ctx, recentProposals)
	if err != nil {
		logger.Error(ctx, "failed to load proposal index", err)
		h.reply(ctx, ev, service.OutgoingText{Text: msgProposalsFailed})
		return
	}
	if len(records) == 0 {
		h.reply(ctx, ev, service.OutgoingText{Text: msgNoProposals})
		return
	}
	h.reply(ctx, ev, service.OutgoingText{
		Text:           FormatProposalList(records, h.baseURL),
		ParseMode:      service.ParseModeMarkdownV2,
		DisablePreview: true,
	})
}

func (h *Handler) runJob(ctx context.Context, ev pitch.Event, ack string, run func(context.Context, int64) error) {
	h.reply(ctx, ev, service.OutgoingText{Text: ack})
	if err := run(ctx, ev.ChatID); err != nil {
		h.reply(ctx, ev, service.OutgoingText{Text: msgJobFailed})
	}
}

func (h *Handler) reply(ctx context.Context, ev pitch.Event, msg service.OutgoingText) {
	msg.ReplyTo = ev.MessageID
	if err := h.messenger.SendText(ctx, ev.ChatID, msg); err != nil {
		logger.Error(ctx, "failed to send reply", err)
	}
}

// FormatProposalList /proposals 的 MarkdownV2 列表
func FormatProposalList(records []*entity.ProposalRecord, baseURL string) string {
	lines := []string{"📋 *Recent Proposals:*\n"}
	for i, p := range records {
		lines = append(lines, fmt.Sprintf(
			"%d\\. *%s* — %s\n   📅 %s • 🔗 [View Proposal](%s)",
			i+1,
			service.EscapeMarkdownV2(p.ClientName),
			service.EscapeMarkdownV2(p.ProjectName),
			service.EscapeMarkdownV2(p.CreatedAt.Format("2006-01-02")),
			escapeLinkURL(baseURL+p.URL),
		))
	}
	return strings.Join(lines, "\n\n")
}

// escapeLinkURL 链接地址内只需转义 ) 与反斜杠
func escapeLinkURL(u string) string {
	return strings.NewReplacer(`\`, `\\`, `)`, `\)`).Replace(u)
}
