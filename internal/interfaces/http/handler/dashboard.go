package handler

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/gin-gonic/gin"

	"rfp-bot/internal/domain/entity"
	"rfp-bot/internal/domain/repository"
	"rfp-bot/pkg/logger"
)

//go:embed templates/dashboard.html
var dashboardFS embed.FS

var dashboardTmpl = template.Must(template.ParseFS(dashboardFS, "templates/dashboard.html"))

// legacyProposalFile 早期单提案版本留下的页面
const legacyProposalFile = "proposal.html"

// Brand 仪表盘页头信息
type Brand struct {
	Name    string
	Tagline string
}

type dashboardCard struct {
	URL         string
	ClientName  string
	ProjectName string
	Initial     string
	Date        string
	Delay       string
}

type dashboardPage struct {
	Brand     Brand
	Proposals []dashboardCard
	Year      int
}

// DashboardHandler 提案仪表盘与提案页面
type DashboardHandler struct {
	index     repository.ProposalIndex
	artifacts repository.ArtifactStore
	staticDir string
	brand     Brand
	now       func() time.Time
}

// NewDashboardHandler 创建仪表盘处理器
func NewDashboardHandler(index repository.ProposalIndex, artifacts repository.ArtifactStore, staticDir string, brand Brand) *DashboardHandler {
	return &DashboardHandler{
		index:     index,
		artifacts: artifacts,
		staticDir: staticDir,
		brand:     brand,
		now:       time.Now,
	}
}

// Index 提案仪表盘
// @Summary 提案仪表盘
// @Tags Dashboard
// @Produce html
// @Success 200
// @Router / [get]
func (h *DashboardHandler) Index(c *gin.Context) {
	records, err := h.index.List(c.Request.Context(), 0)
	if err != nil {
		// 索引损坏时仍然渲染空仪表盘
		logger.Error(c.Request.Context(), "failed to load proposal index", err)
	}
	h.render(c, records)
}

// Latest 有提案时展示仪表盘，否则回落到旧版单页提案
// @Router /proposal [get]
func (h *DashboardHandler) Latest(c *gin.Context) {
	records, err := h.index.List(c.Request.Context(), 0)
	if err != nil {
		logger.Error(c.Request.Context(), "failed to load proposal index", err)
	}
	if len(records) > 0 {
		h.render(c, records)
		return
	}

	legacy := filepath.Join(h.staticDir, legacyProposalFile)
	if info, statErr := os.Stat(legacy); statErr == nil && !info.IsDir() {
		c.Header("Cache-Control", "no-cache")
		c.File(legacy)
		return
	}
	h.render(c, nil)
}

// View 返回指定提案的页面
// @Param id path string true "提案 ID"
// @Success 200
// @Failure 404
// @Router /proposal/{id} [get]
func (h *DashboardHandler) View(c *gin.Context) {
	path, ok := h.artifacts.HTMLPath(c.Param("id"))
	if !ok {
		c.String(http.StatusNotFound, "404 page not found")
		return
	}
	c.Header("Cache-Control", "no-cache")
	c.File(path)
}

func (h *DashboardHandler) render(c *gin.Context, records []*entity.ProposalRecord) {
	page := dashboardPage{
		Brand:     h.brand,
		Proposals: make([]dashboardCard, 0, len(records)),
		Year:      h.now().Year(),
	}
	for i, r := range records {
		page.Proposals = append(page.Proposals, dashboardCard{
			URL:         r.URL,
			ClientName:  r.ClientName,
			ProjectName: r.ProjectName,
			Initial:     initial(r.ClientName),
			Date:        recordDate(r.CreatedAt),
			Delay:       fmt.Sprintf("%.2f", float64(i+1)*0.05+0.2),
		})
	}

	var buf bytes.Buffer
	if err := dashboardTmpl.Execute(&buf, page); err != nil {
		logger.Error(c.Request.Context(), "failed to render dashboard", err)
		c.String(http.StatusInternalServerError, "internal server error")
		return
	}
	c.Header("Cache-Control", "no-cache")
	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}

// initial 客户名首字母大写，空名返回 ?
func initial(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "?"
	}
	r, _ := utf8.DecodeRuneInString(name)
	return string(unicode.ToUpper(r))
}

func recordDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}
