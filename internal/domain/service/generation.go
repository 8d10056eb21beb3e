package service

import (
	"context"

	"rfp-bot/internal/domain/entity"
)

// ContentGenerator 生成结构化提案正文
// req.ClientName 已由调用方补齐，ProjectName 为空时由模型给出
type ContentGenerator interface {
	GenerateContent(ctx context.Context, req entity.ProposalRequest) (*entity.ProposalContent, error)
}

// DiagramRenderer 把 Mermaid 源码渲染为 PNG
type DiagramRenderer interface {
	Render(ctx context.Context, source, outPath string) error
}

// BrandingScraper 抓取客户品牌信息，失败时返回按域名推断的默认值
type BrandingScraper interface {
	Scrape(ctx context.Context, rawURL string) entity.ClientBranding
}

// GeneratedImage 生成并落盘的图片
type GeneratedImage struct {
	ID   string
	Path string
	Data []byte
}

// ImageGenerator 文生图
type ImageGenerator interface {
	GenerateImage(ctx context.Context, prompt string) (*GeneratedImage, error)
}
