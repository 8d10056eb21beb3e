// Package diagram 调用 mermaid-cli 渲染架构图
package diagram

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"rfp-bot/internal/config"
	apperrors "rfp-bot/pkg/errors"
	"rfp-bot/pkg/logger"
	"rfp-bot/pkg/metrics"
)

const (
	defaultTimeout    = 60 * time.Second
	defaultWidth      = 1200
	defaultBackground = "transparent"
	puppeteerConfig   = `{"args":["--no-sandbox","--disable-setuid-sandbox"]}`
	maxStderrLog      = 2000
)

var defaultCommand = []string{"npx", "-y", "@mermaid-js/mermaid-cli", "mmdc"}

// MermaidRenderer 以子进程方式运行 mmdc
type MermaidRenderer struct {
	command    []string
	timeout    time.Duration
	width      int
	background string
}

func NewMermaidRenderer(cfg config.DiagramConfig) *MermaidRenderer {
	r := &MermaidRenderer{
		command:    defaultCommand,
		timeout:    cfg.Timeout,
		width:      cfg.Width,
		background: cfg.Background,
	}
	if strings.TrimSpace(cfg.Command) != "" {
		r.command = append([]string{cfg.Command}, cfg.Args...)
	}
	if r.timeout <= 0 {
		r.timeout = defaultTimeout
	}
	if r.width <= 0 {
		r.width = defaultWidth
	}
	if r.background == "" {
		r.background = defaultBackground
	}
	return r
}

// Render 把 source 渲染为 outPath，中间文件写在 outPath 同目录并在结束后删除
func (r *MermaidRenderer) Render(ctx context.Context, source, outPath string) (err error) {
	start := time.Now()
	defer func() {
		status := "success"
		if err != nil {
			status = "error"
		}
		metrics.DiagramRenderDuration.WithLabelValues(status).Observe(time.Since(start).Seconds())
	}()

	if strings.TrimSpace(source) == "" {
		return apperrors.ErrDiagramFailed.WithDetail("empty diagram source")
	}

	dir := filepath.Dir(outPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return apperrors.ErrDiagramFailed.WithError(err)
	}
	inPath := filepath.Join(dir, "diagram.mmd")
	cfgPath := filepath.Join(dir, "puppeteer.json")
	if err := os.WriteFile(inPath, []byte(source), 0o644); err != nil {
		return apperrors.ErrDiagramFailed.WithError(err)
	}
	defer os.Remove(inPath)
	if err := os.WriteFile(cfgPath, []byte(puppeteerConfig), 0o644); err != nil {
		return apperrors.ErrDiagramFailed.WithError(err)
	}
	defer os.Remove(cfgPath)

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	args := append([]string{}, r.command[1:]...)
	args = append(args,
		"-i", inPath,
		"-o", outPath,
		"-b", r.background,
		"-w", strconv.Itoa(r.width),
		"-p", cfgPath,
	)
	cmd := exec.CommandContext(ctx, r.command[0], args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	// npx 会派生子进程，超时后不再等待其关闭管道
	cmd.WaitDelay = 5 * time.Second

	if err := cmd.Run(); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("mermaid render timed out after %s: %w", r.timeout, err)
		}
		logger.Warn(ctx, "mermaid render failed", "error", err.Error(), "stderr", truncate(stderr.String(), maxStderrLog))
		return apperrors.ErrDiagramFailed.WithError(err)
	}

	info, err := os.Stat(outPath)
	if err != nil || info.Size() == 0 {
		return apperrors.ErrDiagramFailed.WithDetail("renderer produced no image")
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
