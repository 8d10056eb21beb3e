// Package telegram Telegram Bot API 适配层：长轮询、按会话分片的分发与消息发送
package telegram

import (
	"context"
	"errors"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"rfp-bot/internal/domain/service"
	"rfp-bot/pkg/logger"
	"rfp-bot/pkg/metrics"
)

// maxRetryAfter 限流等待上限，超过则直接放弃
const maxRetryAfter = 30 * time.Second

// botClient BotAPI 中用到的部分，测试替换为假实现
type botClient interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetFileDirectURL(fileID string) (string, error)
}

// Sender 实现 service.Messenger
type Sender struct {
	bot botClient
}

func NewSender(bot botClient) *Sender {
	return &Sender{bot: bot}
}

var _ service.Messenger = (*Sender)(nil)

// SendText 超长文本按换行切分；格式解析失败时降级为纯文本重发
func (s *Sender) SendText(ctx context.Context, chatID int64, msg service.OutgoingText) error {
	for i, part := range service.SplitMessage(msg.Text, service.MaxMessageLength) {
		cfg := tgbotapi.NewMessage(chatID, part)
		cfg.ParseMode = msg.ParseMode
		cfg.DisableWebPagePreview = msg.DisablePreview
		if i == 0 && msg.ReplyTo != 0 {
			cfg.ReplyToMessageID = msg.ReplyTo
			cfg.AllowSendingWithoutReply = true
		}

		err := s.send(ctx, "text", cfg)
		if err != nil && cfg.ParseMode != "" && isParseError(err) {
			logger.Warn(ctx, "telegram rejected markup, resending as plain text", "parse_mode", cfg.ParseMode)
			cfg.ParseMode = ""
			err = s.send(ctx, "text", cfg)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// SendPhoto 本地文件或内存数据二选一
func (s *Sender) SendPhoto(ctx context.Context, chatID int64, photo service.OutgoingPhoto) error {
	var file tgbotapi.RequestFileData
	switch {
	case len(photo.Data) > 0:
		name := photo.FileName
		if name == "" {
			name = "image.jpg"
		}
		file = tgbotapi.FileBytes{Name: name, Bytes: photo.Data}
	case photo.Path != "":
		file = tgbotapi.FilePath(photo.Path)
	default:
		return errors.New("photo has neither path nor data")
	}

	cfg := tgbotapi.NewPhoto(chatID, file)
	cfg.Caption = photo.Caption
	cfg.ParseMode = photo.ParseMode
	if photo.ReplyTo != 0 {
		cfg.ReplyToMessageID = photo.ReplyTo
		cfg.AllowSendingWithoutReply = true
	}
	return s.send(ctx, "photo", cfg)
}

// send 遇到 429 时按 retry_after 等待后重试一次
func (s *Sender) send(ctx context.Context, kind string, c tgbotapi.Chattable) error {
	_, err := s.bot.Send(c)
	if wait, ok := retryAfter(err); ok {
		logger.Warn(ctx, "telegram rate limited", "retry_after", wait.String())
		select {
		case <-time.After(wait):
			_, err = s.bot.Send(c)
		case <-ctx.Done():
			err = ctx.Err()
		}
	}

	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.TelegramSendTotal.WithLabelValues(kind, status).Inc()
	return err
}

func isParseError(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), "can't parse entities")
}

func retryAfter(err error) (time.Duration, bool) {
	var apiErr *tgbotapi.Error
	if !errors.As(err, &apiErr) || apiErr.Code != 429 || apiErr.RetryAfter <= 0 {
		return 0, false
	}
	wait := time.Duration(apiErr.RetryAfter) * time.Second
	return wait, wait <= maxRetryAfter
}
