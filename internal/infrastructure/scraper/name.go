package scraper

import (
	"net/url"
	"strings"
)

// DefaultName 由域名推断客户名称：去掉 www. 后取第一段并首字母大写
func DefaultName(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return ""
	}
	host := strings.Replace(u.Host, "www.", "", 1)
	label := strings.SplitN(host, ".", 2)[0]
	if label == "" {
		return ""
	}
	r := []rune(strings.ToLower(label))
	return strings.ToUpper(string(r[0])) + string(r[1:])
}
