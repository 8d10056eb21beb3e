// Package pitch 实现引导式 /pitch 对话的状态机与各步骤校验
package pitch

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"rfp-bot/internal/domain/entity"
)

// MaxBriefLength 简要需求的最大字符数
const MaxBriefLength = 500

// DefaultMaxUploadBytes 上传文件大小上限
const DefaultMaxUploadBytes int64 = 5 * 1024 * 1024

var (
	urlPattern  = regexp.MustCompile(`(?i)(https?://\S+|www\.\S+)`)
	skipPattern = regexp.MustCompile(`(?i)\bskip\b`)
	spaceRun    = regexp.MustCompile(`\s+`)
)

// allowedUploadExts 允许上传的文档扩展名
var allowedUploadExts = map[string]bool{
	".txt":      true,
	".md":       true,
	".markdown": true,
	".pdf":      true,
}

var (
	inrAliases = map[string]bool{"INR": true, "₹": true, "RUPEES": true, "RUPEE": true}
	usdAliases = map[string]bool{"USD": true, "$": true, "DOLLAR": true, "DOLLARS": true}
)

// RejectReason 输入被拒绝的原因
type RejectReason string

const (
	ReasonMissingClientName RejectReason = "missing_client_name"
	ReasonUnknownCurrency   RejectReason = "unknown_currency"
	ReasonNotAURL           RejectReason = "not_a_url"
	ReasonUnsupportedFile   RejectReason = "unsupported_file"
	ReasonFileTooLarge      RejectReason = "file_too_large"
	ReasonIngestionFailed   RejectReason = "ingestion_failed"
)

// Rejection 步骤输入不合法，会话保持在当前步骤
type Rejection struct {
	Reason RejectReason
	Detail string
}

func (r *Rejection) Error() string {
	if r.Detail == "" {
		return string(r.Reason)
	}
	return fmt.Sprintf("%s: %s", r.Reason, r.Detail)
}

func reject(reason RejectReason, detail string) *Rejection {
	return &Rejection{Reason: reason, Detail: detail}
}

// NormalizeURL 没有协议头时补上 https://
func NormalizeURL(raw string) string {
	lower := strings.ToLower(raw)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return raw
	}
	return "https://" + raw
}

// FindURL 返回文本中第一个 URL 及其位置，找不到时 ok 为 false
func FindURL(text string) (url string, start, end int, ok bool) {
	loc := urlPattern.FindStringIndex(text)
	if loc == nil {
		return "", 0, 0, false
	}
	return text[loc[0]:loc[1]], loc[0], loc[1], true
}

// stripSkip 移除独立的 skip 单词并压缩空白
func stripSkip(s string) string {
	s = skipPattern.ReplaceAllString(s, " ")
	return strings.TrimSpace(spaceRun.ReplaceAllString(s, " "))
}

// ParseClientInfo 第一步：客户名称与可选网址
// 名称取 URL 之前的文本，为空时取 URL 之后的文本
func ParseClientInfo(s entity.Session, text string) (entity.Session, error) {
	text = strings.TrimSpace(text)

	var name, clientURL string
	if raw, start, end, ok := FindURL(text); ok {
		clientURL = NormalizeURL(raw)
		name = stripSkip(text[:start])
		if name == "" {
			name = stripSkip(text[end:])
		}
	} else {
		name = stripSkip(text)
	}

	if name == "" {
		return s, reject(ReasonMissingClientName, "")
	}

	s.ClientName = name
	s.ClientURL = clientURL
	return advance(s), nil
}

// ParseBrief 第二步：简要需求，skip 表示不提供
func ParseBrief(s entity.Session, text string) (entity.Session, error) {
	text = strings.TrimSpace(text)
	if strings.EqualFold(text, "skip") {
		s.BriefRequirement = ""
	} else {
		s.BriefRequirement = truncateRunes(text, MaxBriefLength)
	}
	return advance(s), nil
}

// ParseCurrency 第三步：币种，不识别时拒绝
func ParseCurrency(s entity.Session, text string) (entity.Session, error) {
	choice := strings.ToUpper(strings.TrimSpace(text))
	switch {
	case inrAliases[choice]:
		s.Currency = entity.CurrencyINR
	case usdAliases[choice]:
		s.Currency = entity.CurrencyUSD
	default:
		return s, reject(ReasonUnknownCurrency, choice)
	}
	return advance(s), nil
}

// ParseScale 第四步：项目规模，无法识别时默认 Medium
func ParseScale(s entity.Session, text string) (entity.Session, error) {
	choice := strings.ToLower(strings.TrimSpace(text))
	switch {
	case strings.Contains(choice, "small"):
		s.Scale = entity.ScaleSmall
	case strings.Contains(choice, "high"),
		strings.Contains(choice, "large"),
		strings.Contains(choice, "enterprise"):
		s.Scale = entity.ScaleHigh
	default:
		s.Scale = entity.ScaleMedium
	}
	return advance(s), nil
}

// advance 按步骤的声明顺序推进一步，最后一步保持不变
func advance(s entity.Session) entity.Session {
	if next, ok := s.Step.Next(); ok {
		s.Step = next
	}
	return s
}

// DocumentReply 第五步文本输入的解析结果
type DocumentReply struct {
	Skip bool
	URL  string
}

// ParseDocumentReply 第五步：skip 或文档链接
func ParseDocumentReply(text string) (DocumentReply, error) {
	text = strings.TrimSpace(text)
	if strings.EqualFold(text, "skip") {
		return DocumentReply{Skip: true}, nil
	}
	raw, _, _, ok := FindURL(text)
	if !ok {
		return DocumentReply{}, reject(ReasonNotAURL, "")
	}
	return DocumentReply{URL: NormalizeURL(raw)}, nil
}

// ApplyDocument 写入提取出的需求文档文本
func ApplyDocument(s entity.Session, text string) entity.Session {
	s.DetailedRequirement = text
	return s
}

// UploadFileName 上传文件缺少文件名时的兜底
func UploadFileName(name string) string {
	if strings.TrimSpace(name) == "" {
		return "unknown.txt"
	}
	return name
}

// ValidateUpload 校验上传文件扩展名与大小，size <= 0 表示大小未知
func ValidateUpload(fileName string, size, maxBytes int64) error {
	ext := strings.ToLower(filepath.Ext(UploadFileName(fileName)))
	if !allowedUploadExts[ext] {
		return reject(ReasonUnsupportedFile, ext)
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxUploadBytes
	}
	if size > maxBytes {
		return reject(ReasonFileTooLarge, fmt.Sprintf("%d bytes", size))
	}
	return nil
}

// IsCancel 判断是否为取消指令
func IsCancel(text string) bool {
	t := strings.ToLower(strings.TrimSpace(text))
	return t == "cancel" || t == "/cancel"
}

// WordCount 按空白切分统计词数
func WordCount(text string) int {
	return len(strings.Fields(text))
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
