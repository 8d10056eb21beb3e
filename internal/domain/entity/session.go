// Package entity 定义领域实体
package entity

import (
	"fmt"
	"time"
)

// Step 引导式 /pitch 对话的当前步骤，按声明顺序单向推进
type Step int

const (
	StepAwaitingClientInfo Step = iota + 1
	StepAwaitingBrief
	StepAwaitingCurrency
	StepAwaitingScale
	StepAwaitingDocument
)

var stepNames = map[Step]string{
	StepAwaitingClientInfo: "awaiting_client_info",
	StepAwaitingBrief:      "awaiting_brief",
	StepAwaitingCurrency:   "awaiting_currency",
	StepAwaitingScale:      "awaiting_scale",
	StepAwaitingDocument:   "awaiting_document",
}

// String 返回步骤名
func (s Step) String() string {
	if name, ok := stepNames[s]; ok {
		return name
	}
	return fmt.Sprintf("step(%d)", int(s))
}

// Valid 是否为已定义的步骤
func (s Step) Valid() bool {
	_, ok := stepNames[s]
	return ok
}

// Next 返回下一步；最后一步之后返回 false，表示进入生成
func (s Step) Next() (Step, bool) {
	if !s.Valid() || s == StepAwaitingDocument {
		return s, false
	}
	return s + 1, true
}

// Before 判断 s 是否在 other 之前
func (s Step) Before(other Step) bool {
	return s < other
}

// MarshalText 以名称序列化，便于在 Redis 中阅读
func (s Step) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid step: %d", int(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText 从名称解析
func (s *Step) UnmarshalText(b []byte) error {
	name := string(b)
	for step, n := range stepNames {
		if n == name {
			*s = step
			return nil
		}
	}
	return fmt.Errorf("invalid step: %q", name)
}

// Currency 报价币种
type Currency string

const (
	CurrencyINR Currency = "INR"
	CurrencyUSD Currency = "USD"
)

// Label 展示用标签
func (c Currency) Label() string {
	switch c {
	case CurrencyUSD:
		return "$ USD"
	default:
		return "₹ INR"
	}
}

// Scale 项目规模
type Scale string

const (
	ScaleSmall  Scale = "Small"
	ScaleMedium Scale = "Medium"
	ScaleHigh   Scale = "High"
)

// Session 单个会话的引导流程状态
// 可选字段以空字符串表示缺省
type Session struct {
	ChatID              int64     `json:"chat_id"`
	Step                Step      `json:"step"`
	ClientName          string    `json:"client_name"`
	ClientURL           string    `json:"client_url,omitempty"`
	ProjectName         string    `json:"project_name,omitempty"`
	BriefRequirement    string    `json:"brief_requirement,omitempty"`
	DetailedRequirement string    `json:"detailed_requirement,omitempty"`
	Currency            Currency  `json:"currency"`
	Scale               Scale     `json:"project_scale"`
	LastActive          time.Time `json:"last_active"`
}

// NewSession 创建处于第一步的默认会话
func NewSession(chatID int64, now time.Time) *Session {
	return &Session{
		ChatID:     chatID,
		Step:       StepAwaitingClientInfo,
		Currency:   CurrencyINR,
		Scale:      ScaleMedium,
		LastActive: now,
	}
}

// Expired 判断会话是否超时
func (s *Session) Expired(now time.Time, timeout time.Duration) bool {
	return now.Sub(s.LastActive) > timeout
}

// Touch 刷新活跃时间
func (s *Session) Touch(now time.Time) {
	s.LastActive = now
}

// Request 将会话累计的字段转换为生成请求
func (s *Session) Request() ProposalRequest {
	return ProposalRequest{
		ClientName:          s.ClientName,
		ClientURL:           s.ClientURL,
		ProjectName:         s.ProjectName,
		BriefRequirement:    s.BriefRequirement,
		DetailedRequirement: s.DetailedRequirement,
		Currency:            s.Currency,
		Scale:               s.Scale,
	}
}
