// Package imagegen 通过 OpenAI Images 接口生成插图
package imagegen

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"rfp-bot/internal/config"
	"rfp-bot/internal/domain/service"
	apperrors "rfp-bot/pkg/errors"
	"rfp-bot/pkg/logger"
	"rfp-bot/pkg/metrics"
)

const maxDownloadBytes = 20 << 20

// Generator 文生图客户端，结果保存到 dir
type Generator struct {
	client   openai.Client
	http     *http.Client
	model    string
	size     string
	quality  string
	dir      string
	location *time.Location
}

// Option 生成器选项
type Option func(*Generator)

// WithLocation 图片 ID 中时间戳使用的时区
func WithLocation(loc *time.Location) Option {
	return func(g *Generator) { g.location = loc }
}

// WithHTTPClient 下载 URL 形式结果时使用的客户端
func WithHTTPClient(c *http.Client) Option {
	return func(g *Generator) { g.http = c }
}

// New 创建生成器
func New(cfg config.ImageConfig, dir string, opts ...Option) (*Generator, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("image api key is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithRequestTimeout(timeout),
		option.WithMaxRetries(1),
	}
	if cfg.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.BaseURL))
	}

	g := &Generator{
		client:   openai.NewClient(reqOpts...),
		http:     &http.Client{Timeout: 30 * time.Second},
		model:    orDefault(cfg.Model, "gpt-image-1.5"),
		size:     orDefault(cfg.Size, "1024x1024"),
		quality:  orDefault(cfg.Quality, "auto"),
		dir:      dir,
		location: time.UTC,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// GenerateImage 生成一张图片；接口未返回 base64 时回退到下载 URL
func (g *Generator) GenerateImage(ctx context.Context, prompt string) (img *service.GeneratedImage, err error) {
	defer func() {
		status := "success"
		if err != nil {
			status = "error"
		}
		metrics.ImageGenerationTotal.WithLabelValues(status).Inc()
	}()

	resp, err := g.client.Images.Generate(ctx, openai.ImageGenerateParams{
		Prompt:  prompt,
		Model:   openai.ImageModel(g.model),
		N:       openai.Int(1),
		Size:    openai.ImageGenerateParamsSize(g.size),
		Quality: openai.ImageGenerateParamsQuality(g.quality),
	})
	if err != nil {
		return nil, apperrors.ErrImageFailed.WithError(err)
	}
	if resp == nil || len(resp.Data) == 0 {
		return nil, apperrors.ErrImageFailed.WithDetail("empty image response")
	}

	data, err := g.decode(ctx, resp.Data[0])
	if err != nil {
		return nil, apperrors.ErrImageFailed.WithError(err)
	}

	img, err = g.save(data)
	if err != nil {
		return nil, apperrors.ErrStorage.WithError(err)
	}
	logger.Info(ctx, "image generated", "image_id", img.ID, "bytes", len(data))
	return img, nil
}

func (g *Generator) decode(ctx context.Context, item openai.Image) ([]byte, error) {
	if item.B64JSON != "" {
		return base64.StdEncoding.DecodeString(item.B64JSON)
	}
	if item.URL == "" {
		return nil, fmt.Errorf("no image data in response")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, item.URL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := g.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download image: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download image: http %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxDownloadBytes))
}

func (g *Generator) save(data []byte) (*service.GeneratedImage, error) {
	if err := os.MkdirAll(g.dir, 0o755); err != nil {
		return nil, err
	}
	id := newImageID(time.Now().In(g.location))
	path := filepath.Join(g.dir, id+".png")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return nil, err
	}
	return &service.GeneratedImage{ID: id, Path: path, Data: data}, nil
}

func newImageID(now time.Time) string {
	return "img-" + now.Format("20060102-150405") + "-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:6]
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
