// Package main 提案机器人服务入口
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"rfp-bot/internal/config"
	einoobs "rfp-bot/internal/observability/eino"
	"rfp-bot/internal/wire"
	"rfp-bot/pkg/logger"
	"rfp-bot/pkg/tracer"
)

// Version 版本信息，构建时注入
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(
		cfg.Observability.Logging.Level,
		cfg.Observability.Logging.Format,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log := logger.FromContext(ctx)
	log.Info("starting rfp-bot",
		"version", Version,
		"build_time", BuildTime,
		"env", cfg.App.Env,
	)

	shutdown, err := tracer.Init(ctx, tracer.Config{
		ServiceName: cfg.App.Name,
		Endpoint:    cfg.Observability.Tracing.Endpoint,
		SampleRate:  cfg.Observability.Tracing.SampleRate,
		Enabled:     cfg.Observability.Tracing.Enabled,
	})
	if err != nil {
		logger.Fatal(ctx, "failed to init tracer", err)
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			log.Error("failed to shutdown tracer", "error", err)
		}
	}()

	einoobs.Init()

	if err := run(ctx, cfg); err != nil {
		logger.Error(ctx, "rfp-bot exited with error", err)
		os.Exit(1)
	}
	log.Info("rfp-bot exited")
}

func run(ctx context.Context, cfg *config.Config) error {
	g, ctx := errgroup.WithContext(ctx)

	var handler http.Handler
	if cfg.Telegram.Token == "" {
		logger.Warn(ctx, "TELEGRAM_BOT_TOKEN not set, serving dashboard only")
		r, cleanup, err := wire.InitializeHTTPOnly(ctx, cfg)
		if err != nil {
			return fmt.Errorf("initialize http: %w", err)
		}
		defer cleanup()
		handler = r.Engine()
	} else {
		app, cleanup, err := wire.InitializeApp(ctx, cfg)
		if err != nil {
			return fmt.Errorf("initialize app: %w", err)
		}
		defer cleanup()
		handler = app.Router.Engine()

		g.Go(func() error {
			return app.Bot.Run(ctx)
		})

		if app.Scheduler != nil {
			app.Scheduler.Start()
			for i, next := range app.Scheduler.Next() {
				logger.Info(ctx, "next scheduled run", "entry", i, "at", next.Format(time.RFC3339))
			}
			g.Go(func() error {
				<-ctx.Done()
				stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				defer cancel()
				return app.Scheduler.Stop(stopCtx)
			})
		}
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.HTTP.Host, cfg.Server.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  cfg.Server.HTTP.ReadTimeout,
		WriteTimeout: cfg.Server.HTTP.WriteTimeout,
		IdleTimeout:  cfg.Server.HTTP.IdleTimeout,
	}

	g.Go(func() error {
		logger.Info(ctx, "http server starting", "addr", addr, "public_url", cfg.PublicBaseURL())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		logger.Info(context.Background(), "shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
