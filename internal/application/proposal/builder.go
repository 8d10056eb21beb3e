// Package proposal 串联品牌抓取、正文生成、架构图渲染与产物落盘
package proposal

import (
	"context"
	"path"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"rfp-bot/internal/domain/entity"
	"rfp-bot/internal/domain/repository"
	"rfp-bot/internal/domain/service"
	"rfp-bot/internal/infrastructure/diagram"
	apperrors "rfp-bot/pkg/errors"
	"rfp-bot/pkg/logger"
	"rfp-bot/pkg/tracer"
)

// Config 生成器配置
type Config struct {
	Brand Brand
	// AssetPrefix 产物目录对应的静态访问前缀，如 /static/proposals
	AssetPrefix string
	// Location 提案 ID 与页面日期使用的时区
	Location *time.Location
}

// Builder 提案生成入口，引导流程与快捷路径共用
type Builder struct {
	scraper   service.BrandingScraper
	content   service.ContentGenerator
	renderer  service.DiagramRenderer
	artifacts repository.ArtifactStore
	index     repository.ProposalIndex
	cfg       Config
	now       func() time.Time
}

// NewBuilder 创建提案生成器
func NewBuilder(
	scraper service.BrandingScraper,
	content service.ContentGenerator,
	renderer service.DiagramRenderer,
	artifacts repository.ArtifactStore,
	index repository.ProposalIndex,
	cfg Config,
) *Builder {
	if cfg.AssetPrefix == "" {
		cfg.AssetPrefix = "/static/proposals"
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &Builder{
		scraper:   scraper,
		content:   content,
		renderer:  renderer,
		artifacts: artifacts,
		index:     index,
		cfg:       cfg,
		now:       time.Now,
	}
}

// Build 生成一份提案
// 正文生成失败时降级为通用内容，架构图失败只影响 DiagramAvailable；
// 只有产物写入或索引追加失败才返回错误
func (b *Builder) Build(ctx context.Context, req entity.ProposalRequest) (_ *entity.ProposalResult, err error) {
	req.ClientName = strings.TrimSpace(req.ClientName)
	req.ClientURL = strings.TrimSpace(req.ClientURL)
	req.ProjectName = strings.TrimSpace(req.ProjectName)
	if req.ClientName == "" && req.ClientURL == "" {
		return nil, apperrors.ErrInvalidParam.WithDetail("client name or url is required")
	}
	if req.Currency == "" {
		req.Currency = entity.CurrencyINR
	}
	if req.Scale == "" {
		req.Scale = entity.ScaleMedium
	}

	ctx, span := tracer.Start(ctx, "proposal.build")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	now := b.now().In(b.cfg.Location)
	client := b.branding(ctx, req)
	id := NewID(client.Name, now)
	ctx = logger.WithContext(ctx, logger.ProposalIDKey, id)
	span.SetAttributes(
		attribute.String("proposal.id", id),
		attribute.String("proposal.client", client.Name),
		attribute.Bool("proposal.has_document", req.DetailedRequirement != ""),
	)

	contentReq := req
	contentReq.ClientName = client.Name
	content, cerr := b.content.GenerateContent(ctx, contentReq)
	if cerr != nil {
		logger.Error(ctx, "proposal content generation failed, using generic content", cerr)
		content = nil
	}

	projectName := req.ProjectName
	if projectName == "" && content != nil {
		projectName = strings.TrimSpace(content.ProjectName)
	}
	if projectName == "" {
		projectName = client.Name + " Integration"
	}

	diagramPath, diagramOK := b.renderDiagram(ctx, id, client.Name, content)
	span.SetAttributes(attribute.Bool("proposal.diagram", diagramOK))

	html, err := renderHTML(pageData{
		Brand:            b.cfg.Brand,
		Client:           client,
		ProjectName:      projectName,
		ProposalID:       id,
		Currency:         req.Currency.Label(),
		Scale:            string(req.Scale),
		Brief:            req.BriefRequirement,
		DiagramAvailable: diagramOK,
		DiagramFile:      path.Join(b.cfg.AssetPrefix, id, path.Base(diagramPath)),
		Content:          content,
		GeneratedAt:      formatDate(now),
	})
	if err != nil {
		return nil, apperrors.ErrGenerationFailed.WithError(err)
	}
	if err := b.artifacts.WriteHTML(id, html); err != nil {
		return nil, err
	}

	proposalURL := "/proposal/" + id
	if err := b.index.Append(ctx, &entity.ProposalRecord{
		ID:          id,
		ClientName:  client.Name,
		ProjectName: projectName,
		ClientURL:   req.ClientURL,
		CreatedAt:   now,
		URL:         proposalURL,
	}); err != nil {
		return nil, err
	}

	logger.Info(ctx, "proposal built",
		"client", client.Name,
		"ai_content", content != nil,
		"diagram", diagramOK,
	)

	result := &entity.ProposalResult{
		Client:           client,
		ProjectName:      projectName,
		ProposalID:       id,
		ProposalURL:      proposalURL,
		DiagramAvailable: diagramOK,
		Content:          content,
	}
	if diagramOK {
		result.DiagramPath = diagramPath
	}
	return result, nil
}

// branding 有网址时抓取，显式给出的客户名优先于网页标题
func (b *Builder) branding(ctx context.Context, req entity.ProposalRequest) entity.ClientBranding {
	if req.ClientURL == "" {
		return entity.ClientBranding{Name: req.ClientName, PrimaryColor: entity.DefaultPrimaryColor}
	}
	client := b.scraper.Scrape(ctx, req.ClientURL)
	if req.ClientName != "" {
		client.Name = req.ClientName
	}
	if strings.TrimSpace(client.Name) == "" {
		client.Name = "Client"
	}
	if client.PrimaryColor == "" {
		client.PrimaryColor = entity.DefaultPrimaryColor
	}
	return client
}

// renderDiagram 优先使用模型给出的 Mermaid 源码，失败不影响提案
func (b *Builder) renderDiagram(ctx context.Context, id, clientName string, content *entity.ProposalContent) (string, bool) {
	out, err := b.artifacts.DiagramPath(id)
	if err != nil {
		logger.Error(ctx, "failed to prepare diagram path", err)
		return "", false
	}

	source := ""
	if content != nil {
		source = strings.TrimSpace(content.ArchitectureDiagram)
	}
	if source == "" {
		source = diagram.DefaultSource(clientName, b.cfg.Brand.Name)
	}

	if err := b.renderer.Render(ctx, source, out); err != nil {
		logger.Warn(ctx, "architecture diagram unavailable", "error", err.Error())
		return out, false
	}
	return out, true
}
