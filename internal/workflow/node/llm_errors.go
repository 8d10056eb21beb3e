package node

import "strings"

// IsResponseFormatUnsupportedError 判断提供商是否拒绝了 response_format/json_schema 参数
// 为 true 时调用方应去掉结构化输出参数重试
func IsResponseFormatUnsupportedError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "response_format"),
		strings.Contains(msg, "json_schema"),
		strings.Contains(msg, "response_schema"):
		return true
	case strings.Contains(msg, "unknown parameter") && strings.Contains(msg, "response"):
		return true
	case strings.Contains(msg, "unsupported") && strings.Contains(msg, "schema"):
		return true
	default:
		return false
	}
}
