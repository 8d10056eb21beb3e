// Package scraper 抓取客户网站的名称、logo 与主题色
package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"rfp-bot/internal/config"
	"rfp-bot/internal/domain/entity"
	"rfp-bot/internal/infrastructure/netguard"
	"rfp-bot/pkg/logger"
)

const (
	maxTitleRunes   = 40
	maxPageBytes    = 2 << 20
	faviconTimeout  = 5 * time.Second
	defaultTimeout  = 10 * time.Second
	defaultUA       = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
	cacheKeyVersion = "v1:"
)

var (
	styleHexPattern = regexp.MustCompile(`#[0-9a-fA-F]{6}`)
	colorPattern    = regexp.MustCompile(`^#[0-9a-fA-F]{3,8}$`)
	titleSeparators = []string{"|", "-", "–"}
	iconRels        = [][]string{{"icon"}, {"shortcut", "icon"}, {"apple-touch-icon"}}
)

// Cache 抓取结果缓存
type Cache interface {
	GetOrLoadSafe(ctx context.Context, key string, ttl time.Duration, loader func() (interface{}, error)) ([]byte, error)
}

// Scraper 客户品牌抓取器，任何失败都退回按域名推断的默认值
type Scraper struct {
	client       *http.Client
	userAgent    string
	resolver     netguard.Resolver
	allowPrivate bool
	cache        Cache
	cacheTTL     time.Duration
}

type Option func(*Scraper)

// WithCache 启用结果缓存
func WithCache(c Cache, ttl time.Duration) Option {
	return func(s *Scraper) {
		s.cache = c
		s.cacheTTL = ttl
	}
}

// WithResolver 替换域名解析
func WithResolver(r netguard.Resolver) Option {
	return func(s *Scraper) { s.resolver = r }
}

// WithHTTPClient 替换 HTTP 客户端，重定向策略仍会被覆盖为不跟随
func WithHTTPClient(c *http.Client) Option {
	return func(s *Scraper) { s.client = c }
}

func New(cfg config.ScraperConfig, opts ...Option) *Scraper {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	ua := strings.TrimSpace(cfg.UserAgent)
	if ua == "" {
		ua = defaultUA
	}
	s := &Scraper{
		client:       &http.Client{Timeout: timeout},
		userAgent:    ua,
		resolver:     net.DefaultResolver,
		allowPrivate: cfg.AllowPrivate,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.client.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}
	return s
}

// Scrape 抓取品牌信息，永不返回错误
func (s *Scraper) Scrape(ctx context.Context, rawURL string) entity.ClientBranding {
	if s.cache == nil {
		return s.scrape(ctx, rawURL)
	}

	raw, err := s.cache.GetOrLoadSafe(ctx, cacheKeyVersion+rawURL, s.cacheTTL, func() (interface{}, error) {
		return s.scrape(ctx, rawURL), nil
	})
	if err == nil {
		var b entity.ClientBranding
		if err := json.Unmarshal(raw, &b); err == nil {
			return b
		}
	}
	return s.scrape(ctx, rawURL)
}

func (s *Scraper) scrape(ctx context.Context, rawURL string) entity.ClientBranding {
	branding := entity.ClientBranding{
		Name:         DefaultName(rawURL),
		URL:          rawURL,
		PrimaryColor: entity.DefaultPrimaryColor,
	}

	if !s.allowPrivate {
		if err := netguard.Check(ctx, s.resolver, rawURL); err != nil {
			logger.Warn(ctx, "blocked unsafe client url", "url", rawURL, "error", err.Error())
			return branding
		}
	}

	doc, base, err := s.fetch(ctx, rawURL)
	if err != nil {
		logger.Warn(ctx, "failed to scrape client site", "url", rawURL, "error", err.Error())
		return branding
	}

	if name := pageTitle(doc); name != "" {
		branding.Name = name
	}
	if logo := s.findLogo(ctx, doc, base); logo != "" {
		branding.LogoURL = logo
	}
	if color := findColor(doc); color != "" {
		branding.PrimaryColor = color
	}
	return branding
}

func (s *Scraper) fetch(ctx context.Context, rawURL string) (*goquery.Document, *url.URL, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, nil, fmt.Errorf("http status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, nil, fmt.Errorf("parse html: %w", err)
	}
	return doc, resp.Request.URL, nil
}

// pageTitle 取 <title> 中第一个分隔符之前的部分
func pageTitle(doc *goquery.Document) string {
	title := strings.TrimSpace(doc.Find("title").First().Text())
	for _, sep := range titleSeparators {
		title = strings.TrimSpace(strings.SplitN(title, sep, 2)[0])
	}
	r := []rune(title)
	if len(r) > maxTitleRunes {
		title = string(r[:maxTitleRunes])
	}
	return title
}

// findLogo og:image 优先，其次 icon 类 link，最后探测 /favicon.ico
func (s *Scraper) findLogo(ctx context.Context, doc *goquery.Document, base *url.URL) string {
	if content, ok := doc.Find(`meta[property="og:image"]`).First().Attr("content"); ok && strings.TrimSpace(content) != "" {
		return resolve(base, content)
	}

	for _, want := range iconRels {
		var href string
		doc.Find("link[rel]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
			rel, _ := sel.Attr("rel")
			h, ok := sel.Attr("href")
			if ok && strings.TrimSpace(h) != "" && sameTokens(strings.Fields(strings.ToLower(rel)), want) {
				href = h
				return false
			}
			return true
		})
		if href != "" {
			return resolve(base, href)
		}
	}

	favicon := resolve(base, "/favicon.ico")
	if s.headOK(ctx, favicon) {
		return favicon
	}
	return ""
}

func (s *Scraper) headOK(ctx context.Context, target string) bool {
	ctx, cancel := context.WithTimeout(ctx, faviconTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, target, nil)
	if err != nil {
		return false
	}
	req.Header.Set("User-Agent", s.userAgent)
	resp, err := s.client.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// findColor theme-color，其次 msapplication-TileColor，最后内联样式中的第一个 6 位色值
func findColor(doc *goquery.Document) string {
	color := metaContent(doc, "theme-color")
	if color == "" {
		color = metaContent(doc, "msapplication-TileColor")
	}
	if color == "" {
		doc.Find("style").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
			if m := styleHexPattern.FindString(sel.Text()); m != "" {
				color = m
				return false
			}
			return true
		})
	}
	if !colorPattern.MatchString(color) {
		return ""
	}
	return color
}

func metaContent(doc *goquery.Document, name string) string {
	v, _ := doc.Find(fmt.Sprintf(`meta[name=%q]`, name)).First().Attr("content")
	return strings.TrimSpace(v)
}

func resolve(base *url.URL, ref string) string {
	u, err := url.Parse(strings.TrimSpace(ref))
	if err != nil {
		return ""
	}
	return base.ResolveReference(u).String()
}

func sameTokens(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}
