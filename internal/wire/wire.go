//go:build wireinject
// +build wireinject

// Package wire 提供依赖注入配置
package wire

import (
	"context"

	"github.com/google/wire"

	"rfp-bot/internal/config"
	"rfp-bot/internal/interfaces/http/router"
)

// InitializeApp 初始化完整应用（HTTP + 机器人 + 调度）
func InitializeApp(ctx context.Context, cfg *config.Config) (*App, func(), error) {
	wire.Build(
		ProvideRedisClient,
		StorageSet,
		GenerationSet,
		TelegramSet,
		DigestSet,
		ProvideRouter,
		wire.Struct(new(App), "*"),
	)
	return nil, nil, nil
}

// InitializeHTTPOnly 未配置机器人 token 时只提供仪表盘
func InitializeHTTPOnly(ctx context.Context, cfg *config.Config) (*router.Router, func(), error) {
	wire.Build(
		ProvideRedisClient,
		StorageSet,
		ProvideRouter,
	)
	return nil, nil, nil
}
