package pitch

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"time"
	"unicode"

	"rfp-bot/internal/domain/entity"
	"rfp-bot/internal/domain/repository"
	"rfp-bot/internal/domain/service"
	"rfp-bot/pkg/logger"
	"rfp-bot/pkg/metrics"
)

// 生成路径，用作指标标签
const (
	pathGuided = "guided"
	pathQuick  = "quick"
)

// stepHandler 单步校验函数
type stepHandler func(entity.Session, string) (entity.Session, error)

// Config 状态机配置
type Config struct {
	// BaseURL 拼接提案链接的对外地址
	BaseURL        string
	MaxUploadBytes int64
}

// Machine 引导式提案对话状态机
// 调用方需保证同一 chat 的事件按到达顺序串行处理
type Machine struct {
	store     repository.SessionStore
	messenger service.Messenger
	fetcher   DocumentFetcher
	builder   ProposalBuilder
	cfg       Config
	steps     map[entity.Step]stepHandler
}

// NewMachine 创建状态机
func NewMachine(
	store repository.SessionStore,
	messenger service.Messenger,
	fetcher DocumentFetcher,
	builder ProposalBuilder,
	cfg Config,
) *Machine {
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = DefaultMaxUploadBytes
	}
	return &Machine{
		store:     store,
		messenger: messenger,
		fetcher:   fetcher,
		builder:   builder,
		cfg:       cfg,
		steps: map[entity.Step]stepHandler{
			entity.StepAwaitingClientInfo: ParseClientInfo,
			entity.StepAwaitingBrief:      ParseBrief,
			entity.StepAwaitingCurrency:   ParseCurrency,
			entity.StepAwaitingScale:      ParseScale,
		},
	}
}

// Start 处理 /pitch 命令
// 参数以 URL 开头时走快捷路径，直接生成且不读写会话；否则新建会话
func (m *Machine) Start(ctx context.Context, ev Event, args string) {
	ctx = logger.WithChat(ctx, ev.ChatID)

	if clientURL, projectName, ok := parseQuickArgs(args); ok {
		m.reply(ctx, ev, analyzing(clientURL))
		m.generate(ctx, ev, entity.ProposalRequest{
			ClientURL:   clientURL,
			ProjectName: projectName,
			Currency:    entity.CurrencyINR,
			Scale:       entity.ScaleMedium,
		}, pathQuick)
		return
	}

	if _, err := m.store.Create(ctx, ev.ChatID); err != nil {
		m.storeFailed(ctx, ev, "failed to create pitch session", err)
		return
	}
	metrics.SessionTransitions.WithLabelValues(entity.StepAwaitingClientInfo.String(), "started").Inc()
	m.reply(ctx, ev, markdownV2(msgAskClientInfo))
}

// Cancel 处理 /cancel 命令
func (m *Machine) Cancel(ctx context.Context, ev Event) {
	ctx = logger.WithChat(ctx, ev.ChatID)
	m.cancel(ctx, ev, msgCancelledCommand)
}

// HandleText 处理会话中的普通文本
func (m *Machine) HandleText(ctx context.Context, ev Event) {
	ctx = logger.WithChat(ctx, ev.ChatID)
	text := strings.TrimSpace(ev.Text)

	if IsCancel(text) {
		m.cancel(ctx, ev, msgCancelled)
		return
	}

	session, err := m.store.Get(ctx, ev.ChatID)
	if err != nil {
		m.storeFailed(ctx, ev, "failed to load pitch session", err)
		return
	}
	if session == nil {
		// 没有会话时忽略普通文本
		return
	}

	if session.Step == entity.StepAwaitingDocument {
		m.handleDocumentText(ctx, ev, session, text)
		return
	}

	handler, ok := m.steps[session.Step]
	if !ok {
		logger.Warn(ctx, "session in unknown step, discarding", "step", session.Step.String())
		m.deleteSession(ctx, ev.ChatID)
		m.reply(ctx, ev, plain(msgSessionEnded))
		return
	}

	next, err := handler(*session, text)
	if err != nil {
		m.rejected(ctx, ev, session.Step, err)
		return
	}
	if err := m.store.Save(ctx, &next); err != nil {
		m.storeFailed(ctx, ev, "failed to save pitch session", err)
		return
	}
	metrics.SessionTransitions.WithLabelValues(session.Step.String(), "advanced").Inc()

	switch next.Step {
	case entity.StepAwaitingBrief:
		m.reply(ctx, ev, clientInfoAccepted(next))
	case entity.StepAwaitingCurrency:
		m.reply(ctx, ev, markdownV2(msgAskCurrency))
	case entity.StepAwaitingScale:
		m.reply(ctx, ev, currencyAccepted(next))
	case entity.StepAwaitingDocument:
		m.reply(ctx, ev, scaleAccepted(next))
	}
}

// HandleUpload 处理文档上传，仅在文档步骤有效
func (m *Machine) HandleUpload(ctx context.Context, ev Event, up Upload) {
	ctx = logger.WithChat(ctx, ev.ChatID)

	session, err := m.store.Get(ctx, ev.ChatID)
	if err != nil {
		m.storeFailed(ctx, ev, "failed to load pitch session", err)
		return
	}
	if session == nil || session.Step != entity.StepAwaitingDocument {
		m.reply(ctx, ev, plain(msgUploadOutsideSession))
		return
	}

	fileName := UploadFileName(up.FileName)
	if err := ValidateUpload(fileName, up.Size, m.cfg.MaxUploadBytes); err != nil {
		m.rejected(ctx, ev, session.Step, err)
		return
	}

	m.reply(ctx, ev, processingUpload(fileName))

	data, err := up.Fetch(ctx)
	if err != nil {
		logger.Error(ctx, "failed to download uploaded document", err, "file", fileName)
		metrics.DocumentIngestTotal.WithLabelValues("upload", "error").Inc()
		m.reply(ctx, ev, uploadFailed("Could not download the file from Telegram. Please try again."))
		return
	}

	text, err := m.fetcher.ParseUpload(ctx, data, fileName)
	if err != nil {
		metrics.DocumentIngestTotal.WithLabelValues("upload", "error").Inc()
		m.ingestFailed(ctx, ev, err, uploadFailed)
		return
	}
	metrics.DocumentIngestTotal.WithLabelValues("upload", "success").Inc()

	next := ApplyDocument(*session, text)
	m.reply(ctx, ev, uploadExtracted(fileName, WordCount(text)))
	m.complete(ctx, ev, &next)
}

// handleDocumentText 文档步骤的文本输入：skip 或链接
func (m *Machine) handleDocumentText(ctx context.Context, ev Event, session *entity.Session, text string) {
	reply, err := ParseDocumentReply(text)
	if err != nil {
		m.rejected(ctx, ev, session.Step, err)
		return
	}

	if reply.Skip {
		m.reply(ctx, ev, plain(msgGenerating))
		m.complete(ctx, ev, session)
		return
	}

	m.reply(ctx, ev, plain(msgFetchingURL))
	text, err = m.fetcher.FetchURL(ctx, reply.URL)
	if err != nil {
		metrics.DocumentIngestTotal.WithLabelValues("url", "error").Inc()
		m.ingestFailed(ctx, ev, err, urlFailed)
		return
	}
	metrics.DocumentIngestTotal.WithLabelValues("url", "success").Inc()

	next := ApplyDocument(*session, text)
	m.reply(ctx, ev, urlExtracted(WordCount(text)))
	m.complete(ctx, ev, &next)
}

// complete 生成一次提案后无条件删除会话
func (m *Machine) complete(ctx context.Context, ev Event, session *entity.Session) {
	defer m.deleteSession(ctx, ev.ChatID)
	metrics.SessionTransitions.WithLabelValues(session.Step.String(), "advanced").Inc()
	m.generate(ctx, ev, session.Request(), pathGuided)
}

// generate 调用生成端口并投递结果，panic 与错误都转换为通用失败回复
func (m *Machine) generate(ctx context.Context, ev Event, req entity.ProposalRequest, path string) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			logger.Error(ctx, "proposal generation panicked", fmt.Errorf("%v", r), "stack", string(debug.Stack()))
			metrics.ProposalGenerationTotal.WithLabelValues(path, "panic").Inc()
			m.reply(ctx, ev, plain(msgGenerateFailed))
		}
	}()

	result, err := m.builder.Build(ctx, req)
	metrics.ProposalGenerationDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		logger.Error(ctx, "proposal generation failed", err, "path", path)
		metrics.ProposalGenerationTotal.WithLabelValues(path, "error").Inc()
		m.reply(ctx, ev, plain(msgGenerateFailed))
		return
	}

	status := "success"
	if result.Content == nil {
		status = "degraded"
	}
	metrics.ProposalGenerationTotal.WithLabelValues(path, status).Inc()
	logger.Info(logger.WithContext(ctx, logger.ProposalIDKey, result.ProposalID), "proposal generated",
		"path", path, "diagram", result.DiagramAvailable, "duration_ms", time.Since(start).Milliseconds())

	m.deliver(ctx, ev, result)
}

// deliver 有架构图时发图片，失败则退回纯文本
func (m *Machine) deliver(ctx context.Context, ev Event, result *entity.ProposalResult) {
	caption := ResultCaption(result, m.cfg.BaseURL)

	if result.DiagramAvailable && result.DiagramPath != "" {
		err := m.messenger.SendPhoto(ctx, ev.ChatID, service.OutgoingPhoto{
			Path:      result.DiagramPath,
			Caption:   caption,
			ParseMode: service.ParseModeMarkdownV2,
		})
		if err == nil {
			return
		}
		logger.Warn(ctx, "failed to send diagram photo, falling back to text", "error", err.Error())
	}

	m.reply(ctx, ev, markdownV2(caption))
}

func (m *Machine) cancel(ctx context.Context, ev Event, ack string) {
	session, err := m.store.Get(ctx, ev.ChatID)
	if err != nil {
		m.storeFailed(ctx, ev, "failed to load pitch session", err)
		return
	}
	if session == nil {
		m.reply(ctx, ev, plain(msgNothingToCancel))
		return
	}
	if err := m.store.Delete(ctx, ev.ChatID); err != nil {
		m.storeFailed(ctx, ev, "failed to delete pitch session", err)
		return
	}
	metrics.SessionTransitions.WithLabelValues(session.Step.String(), "cancelled").Inc()
	m.reply(ctx, ev, plain(ack))
}

// rejected 回复拒绝原因，会话保持原步骤
func (m *Machine) rejected(ctx context.Context, ev Event, step entity.Step, err error) {
	metrics.SessionTransitions.WithLabelValues(step.String(), "rejected").Inc()

	var rej *Rejection
	if !errors.As(err, &rej) {
		logger.Error(ctx, "unexpected step error", err, "step", step.String())
		m.reply(ctx, ev, plain(msgGenerateFailed))
		return
	}
	logger.Debug(ctx, "step input rejected", "step", step.String(), "reason", string(rej.Reason))

	switch rej.Reason {
	case ReasonMissingClientName:
		m.reply(ctx, ev, markdownV2(msgMissingClientName))
	case ReasonUnknownCurrency:
		m.reply(ctx, ev, markdown(msgUnknownCurrency))
	case ReasonNotAURL:
		m.reply(ctx, ev, markdownV2(msgNotAURL))
	case ReasonUnsupportedFile:
		m.reply(ctx, ev, unsupportedFile(rej.Detail))
	case ReasonFileTooLarge:
		m.reply(ctx, ev, markdown(msgFileTooLarge))
	case ReasonIngestionFailed:
		m.reply(ctx, ev, uploadFailed(rej.Detail))
	}
}

// ingestFailed 文档摄取失败，提示用户换一个文档或跳过
func (m *Machine) ingestFailed(ctx context.Context, ev Event, err error, render func(string) service.OutgoingText) {
	metrics.SessionTransitions.WithLabelValues(entity.StepAwaitingDocument.String(), "rejected").Inc()
	rej := ingestionRejection(ctx, err)
	m.reply(ctx, ev, render(rej.Detail))
}

// storeFailed 会话存储出错时也要回复用户；会话已被删除时提示重新开始
func (m *Machine) storeFailed(ctx context.Context, ev Event, msg string, err error) {
	if errors.Is(err, repository.ErrSessionGone) {
		logger.Debug(ctx, "session disappeared before save")
		m.reply(ctx, ev, plain(msgSessionEnded))
		return
	}
	logger.Error(ctx, msg, err)
	m.reply(ctx, ev, plain(msgSessionUnavailable))
}

func (m *Machine) deleteSession(ctx context.Context, chatID int64) {
	if err := m.store.Delete(ctx, chatID); err != nil {
		logger.Error(ctx, "failed to delete pitch session", err)
	}
}

func (m *Machine) reply(ctx context.Context, ev Event, msg service.OutgoingText) {
	msg.ReplyTo = ev.MessageID
	if err := m.messenger.SendText(ctx, ev.ChatID, msg); err != nil {
		logger.Error(ctx, "failed to send reply", err)
	}
}

// parseQuickArgs 解析 /pitch <url> [project name]
func parseQuickArgs(args string) (clientURL, projectName string, ok bool) {
	args = strings.TrimSpace(args)
	if args == "" {
		return "", "", false
	}
	first, rest := args, ""
	if idx := strings.IndexFunc(args, unicode.IsSpace); idx >= 0 {
		first, rest = args[:idx], args[idx:]
	}
	lower := strings.ToLower(first)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") && !strings.HasPrefix(lower, "www.") {
		return "", "", false
	}
	return NormalizeURL(first), strings.TrimSpace(rest), true
}

// ingestionRejection 把摄取错误转换为带用户提示的拒绝
func ingestionRejection(ctx context.Context, err error) *Rejection {
	msg := "Could not read the document. Please try another file or link."
	var uf UserFacing
	if errors.As(err, &uf) {
		msg = uf.UserMessage()
	} else {
		logger.Error(ctx, "document ingestion failed", err)
	}
	return reject(ReasonIngestionFailed, msg)
}
