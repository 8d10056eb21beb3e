package service

import (
	"context"
	"strings"
)

// 消息格式
const (
	ParseModeNone       = ""
	ParseModeMarkdown   = "Markdown"
	ParseModeMarkdownV2 = "MarkdownV2"
)

// MaxMessageLength 单条文本消息的长度上限
const MaxMessageLength = 4096

// OutgoingText 待发送的文本消息
type OutgoingText struct {
	Text           string
	ParseMode      string
	DisablePreview bool
	// ReplyTo 引用回复的消息 ID，0 表示不引用
	ReplyTo int
}

// OutgoingPhoto 待发送的图片消息，Path 与 Data 二选一
type OutgoingPhoto struct {
	Path      string
	Data      []byte
	FileName  string
	Caption   string
	ParseMode string
	ReplyTo   int
}

// Messenger 向会话发送消息的出站端口
type Messenger interface {
	SendText(ctx context.Context, chatID int64, msg OutgoingText) error
	SendPhoto(ctx context.Context, chatID int64, photo OutgoingPhoto) error
}

var markdownV2Escaper = strings.NewReplacer(
	"\\", "\\\\",
	"_", "\\_", "*", "\\*", "[", "\\[", "]", "\\]", "(", "\\(", ")", "\\)",
	"~", "\\~", "`", "\\`", ">", "\\>", "#", "\\#", "+", "\\+", "-", "\\-",
	"=", "\\=", "|", "\\|", "{", "\\{", "}", "\\}", ".", "\\.", "!", "\\!",
)

// EscapeMarkdownV2 转义 MarkdownV2 保留字符
func EscapeMarkdownV2(s string) string {
	return markdownV2Escaper.Replace(s)
}

// SplitMessage 按换行切分超长文本，每段不超过 limit 个字符
// 找不到换行时硬切；后续段去掉开头的换行
func SplitMessage(text string, limit int) []string {
	if limit <= 0 {
		limit = MaxMessageLength
	}
	runes := []rune(text)
	if len(runes) <= limit {
		return []string{text}
	}

	var parts []string
	for len(runes) > limit {
		cut := lastNewline(runes[:limit])
		if cut <= 0 {
			cut = limit
		}
		parts = append(parts, string(runes[:cut]))
		runes = trimLeadingNewlines(runes[cut:])
	}
	if len(runes) > 0 {
		parts = append(parts, string(runes))
	}
	return parts
}

func lastNewline(r []rune) int {
	for i := len(r) - 1; i >= 0; i-- {
		if r[i] == '\n' {
			return i
		}
	}
	return -1
}

func trimLeadingNewlines(r []rune) []rune {
	for len(r) > 0 && r[0] == '\n' {
		r = r[1:]
	}
	return r
}
