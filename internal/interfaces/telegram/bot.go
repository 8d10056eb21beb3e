package telegram

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"rfp-bot/internal/config"
	"rfp-bot/pkg/logger"
)

// NewAPI 创建 Bot API 客户端，会调用一次 getMe 校验 token
func NewAPI(cfg config.TelegramConfig) (*tgbotapi.BotAPI, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("telegram token is required")
	}
	_ = tgbotapi.SetLogger(botLogger{})

	api, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("connect telegram: %w", err)
	}
	api.Debug = cfg.Debug
	return api, nil
}

// Bot 长轮询拉取更新并交给分发器
type Bot struct {
	api         *tgbotapi.BotAPI
	handler     *Handler
	dispatcher  *Dispatcher
	pollTimeout int
}

func NewBot(api *tgbotapi.BotAPI, handler *Handler, dispatcher *Dispatcher, cfg config.TelegramConfig) *Bot {
	timeout := cfg.PollTimeout
	if timeout <= 0 {
		timeout = 30
	}
	return &Bot{api: api, handler: handler, dispatcher: dispatcher, pollTimeout: timeout}
}

// Run 阻塞直到 ctx 取消，返回前等待已排队的更新处理完
func (b *Bot) Run(ctx context.Context) error {
	if err := b.dispatcher.Start(context.WithoutCancel(ctx)); err != nil {
		return err
	}
	defer b.dispatcher.Stop()

	u := tgbotapi.NewUpdate(0)
	u.Timeout = b.pollTimeout
	updates := b.api.GetUpdatesChan(u)
	defer b.api.StopReceivingUpdates()

	logger.Info(ctx, "telegram bot polling started", "username", b.api.Self.UserName)

	for {
		select {
		case <-ctx.Done():
			logger.Info(ctx, "telegram bot polling stopped")
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			b.dispatch(ctx, update)
		}
	}
}

func (b *Bot) dispatch(ctx context.Context, update tgbotapi.Update) {
	chat := update.FromChat()
	if chat == nil {
		return
	}
	ok := b.dispatcher.Submit(ctx, chat.ID, func(ctx context.Context) {
		b.handler.HandleUpdate(ctx, update)
	})
	if !ok {
		logger.Warn(logger.WithChat(ctx, chat.ID), "telegram update dropped, dispatcher unavailable", "update_id", update.UpdateID)
	}
}

// botLogger 把库内部日志接到 slog
type botLogger struct{}

func (botLogger) Println(v ...any) {
	logger.Debug(context.Background(), "telegram: "+fmt.Sprint(v...))
}

func (botLogger) Printf(format string, v ...any) {
	logger.Debug(context.Background(), "telegram: "+fmt.Sprintf(format, v...))
}
