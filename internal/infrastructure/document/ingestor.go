package document

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"rfp-bot/internal/config"
	"rfp-bot/internal/infrastructure/netguard"
	"rfp-bot/pkg/logger"
)

const (
	defaultMaxBytes  int64 = 5 * 1024 * 1024
	defaultMaxWords        = 5000
	defaultTimeout         = 30 * time.Second
	defaultUserAgent       = "Mozilla/5.0 (compatible; ProposalBot/1.0)"
	minGuessedChars        = 20
	maxRedirects           = 10
)

var (
	driveFilePattern = regexp.MustCompile(`drive\.google\.com/file/d/([^/?#]+)`)
	googleDocPattern = regexp.MustCompile(`docs\.google\.com/document/d/([^/?#]+)`)
)

// Ingestor 文档摄取
type Ingestor struct {
	client       *http.Client
	maxBytes     int64
	maxWords     int
	userAgent    string
	resolver     netguard.Resolver
	allowPrivate bool
}

type Option func(*Ingestor)

// WithResolver 替换域名解析
func WithResolver(r netguard.Resolver) Option {
	return func(i *Ingestor) { i.resolver = r }
}

// WithAllowPrivate 关闭内网地址校验，仅用于本地调试与测试
func WithAllowPrivate(allow bool) Option {
	return func(i *Ingestor) { i.allowPrivate = allow }
}

func NewIngestor(cfg config.DocumentConfig, opts ...Option) *Ingestor {
	i := &Ingestor{
		maxBytes:  cfg.MaxBytes,
		maxWords:  cfg.MaxWords,
		userAgent: strings.TrimSpace(cfg.UserAgent),
		resolver:  net.DefaultResolver,
	}
	if i.maxBytes <= 0 {
		i.maxBytes = defaultMaxBytes
	}
	if i.maxWords <= 0 {
		i.maxWords = defaultMaxWords
	}
	if i.userAgent == "" {
		i.userAgent = defaultUserAgent
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	for _, opt := range opts {
		opt(i)
	}
	i.client = &http.Client{
		Timeout:       timeout,
		CheckRedirect: i.checkRedirect,
	}
	return i
}

// ParseUpload 按扩展名解析上传文件
func (i *Ingestor) ParseUpload(ctx context.Context, data []byte, fileName string) (string, error) {
	if int64(len(data)) > i.maxBytes {
		return "", userError(fmt.Sprintf("File too large. Maximum size is %dMB.", i.maxBytes/(1024*1024)), nil)
	}

	ext := strings.ToLower(filepath.Ext(fileName))
	switch ext {
	case ".txt", ".md", ".markdown":
		text := CleanText(DecodeText(data))
		if text == "" {
			return "", userError("Could not read the text file.", nil)
		}
		return TruncateWords(text, i.maxWords), nil
	case ".pdf":
		text, err := ExtractPDF(data)
		if err != nil || text == "" {
			logger.Warn(ctx, "failed to extract uploaded pdf", "file", fileName, "error", errString(err))
			return "", userError("Could not extract text from PDF.", err)
		}
		return TruncateWords(text, i.maxWords), nil
	default:
		return "", userError(fmt.Sprintf("Unsupported file type: `%s`. Please upload a .txt, .md, or .pdf file.", ext), nil)
	}
}

// FetchURL 下载远程文档并按内容类型解析
func (i *Ingestor) FetchURL(ctx context.Context, rawURL string) (string, error) {
	downloadURL := ConvertShareURL(rawURL)
	if err := i.guard(ctx, downloadURL); err != nil {
		return "", userError("This link points to a private or unsupported address.", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, downloadURL, nil)
	if err != nil {
		return "", userError("Could not fetch the document: invalid URL.", err)
	}
	req.Header.Set("User-Agent", i.userAgent)

	resp, err := i.client.Do(req)
	if err != nil {
		if isTimeout(err) {
			return "", userError("Request timed out. Please check if the URL is accessible.", err)
		}
		logger.Warn(ctx, "remote document fetch failed", "url", downloadURL, "error", err.Error())
		return "", userError("Could not fetch the document. Please check the link.", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return "", userError(fmt.Sprintf("HTTP error %d. Make sure the link is publicly accessible.", resp.StatusCode), nil)
	}

	tooLarge := fmt.Sprintf("Remote file too large (>%dMB).", i.maxBytes/(1024*1024))
	if n, err := strconv.ParseInt(resp.Header.Get("Content-Length"), 10, 64); err == nil && n > i.maxBytes {
		return "", userError(tooLarge, nil)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, i.maxBytes+1))
	if err != nil {
		if isTimeout(err) {
			return "", userError("Request timed out. Please check if the URL is accessible.", err)
		}
		return "", userError("Could not fetch the document. Please check the link.", err)
	}
	if int64(len(data)) > i.maxBytes {
		return "", userError(tooLarge, nil)
	}

	return i.parseRemote(ctx, rawURL, resp.Header.Get("Content-Type"), data)
}

func (i *Ingestor) parseRemote(ctx context.Context, rawURL, contentType string, data []byte) (string, error) {
	contentType = strings.ToLower(contentType)
	path, host := "", ""
	if u, err := url.Parse(rawURL); err == nil {
		path = strings.ToLower(u.Path)
		host = strings.ToLower(u.Host)
	}

	switch {
	case strings.Contains(contentType, "application/pdf") || strings.HasSuffix(path, ".pdf"):
		text, err := ExtractPDF(data)
		if err != nil || text == "" {
			logger.Warn(ctx, "failed to extract remote pdf", "url", rawURL, "error", errString(err))
			return "", userError("Could not extract text from the PDF.", err)
		}
		return TruncateWords(text, i.maxWords), nil

	case strings.Contains(contentType, "text/html") && !strings.Contains(host, "google"):
		markdown, err := HTMLToMarkdown(DecodeText(data))
		text := CleanText(markdown)
		if err != nil || text == "" {
			return "", userError("Could not read the document.", err)
		}
		return TruncateWords(text, i.maxWords), nil

	case strings.Contains(contentType, "text/") ||
		hasTextExt(path) ||
		strings.Contains(host, "google"):
		text := CleanText(DecodeText(data))
		if text == "" {
			return "", userError("Could not read the document.", nil)
		}
		return TruncateWords(text, i.maxWords), nil
	}

	// 未知类型时按 UTF-8 文本尝试
	if utf8Text := CleanText(string(data)); utf8.Valid(data) && len(utf8Text) > minGuessedChars {
		return TruncateWords(utf8Text, i.maxWords), nil
	}
	return "", userError("Could not determine file type. Please share a direct link to a .pdf, .txt, or .md file.", nil)
}

func (i *Ingestor) guard(ctx context.Context, rawURL string) error {
	if i.allowPrivate {
		return nil
	}
	return netguard.Check(ctx, i.resolver, rawURL)
}

// checkRedirect 跟随网盘的下载跳转，但每一跳都重新校验地址
func (i *Ingestor) checkRedirect(req *http.Request, via []*http.Request) error {
	if len(via) >= maxRedirects {
		return errors.New("stopped after too many redirects")
	}
	return i.guard(req.Context(), req.URL.String())
}

// ConvertShareURL 把网盘分享链接转换为直接下载链接
func ConvertShareURL(rawURL string) string {
	if m := driveFilePattern.FindStringSubmatch(rawURL); m != nil {
		return "https://drive.google.com/uc?export=download&id=" + m[1]
	}
	if m := googleDocPattern.FindStringSubmatch(rawURL); m != nil {
		return "https://docs.google.com/document/d/" + m[1] + "/export?format=txt"
	}

	u, err := url.Parse(rawURL)
	if err != nil || !strings.Contains(strings.ToLower(u.Host), "dropbox.com") {
		return rawURL
	}
	switch {
	case strings.Contains(rawURL, "dl=0"):
		return strings.Replace(rawURL, "dl=0", "dl=1", 1)
	case !strings.Contains(rawURL, "dl="):
		sep := "?"
		if strings.Contains(rawURL, "?") {
			sep = "&"
		}
		return rawURL + sep + "dl=1"
	}
	return rawURL
}

func hasTextExt(path string) bool {
	for _, ext := range []string{".txt", ".md", ".markdown"} {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}
	return false
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func errString(err error) string {
	if err == nil {
		return "empty text"
	}
	return err.Error()
}
