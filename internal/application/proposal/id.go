package proposal

import (
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
)

const maxSlugLen = 40

// Slug 客户名转为 URL 安全的短标识，非字母数字折叠为单个连字符
func Slug(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(name) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	s := strings.TrimRight(b.String(), "-")
	if len(s) > maxSlugLen {
		s = strings.TrimRight(s[:maxSlugLen], "-")
	}
	if s == "" {
		return "proposal"
	}
	return s
}

// NewID 生成提案 ID：slug-YYYYMMDD-HHMM-xxxxxx
// 末尾 6 位随机十六进制避免同一分钟内的冲突
func NewID(clientName string, now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:6]
	return Slug(clientName) + "-" + now.Format("20060102-1504") + "-" + suffix
}
