package entity

import "time"

// ProposalRequest 一次提案生成的输入
type ProposalRequest struct {
	ClientName          string   `json:"client_name,omitempty"`
	ClientURL           string   `json:"client_url,omitempty"`
	ProjectName         string   `json:"project_name,omitempty"`
	BriefRequirement    string   `json:"brief_requirement,omitempty"`
	DetailedRequirement string   `json:"detailed_requirement,omitempty"`
	Currency            Currency `json:"currency"`
	Scale               Scale    `json:"project_scale"`
}

// ClientBranding 从客户网站抓取的品牌信息
type ClientBranding struct {
	Name         string `json:"name"`
	URL          string `json:"url,omitempty"`
	LogoURL      string `json:"logo_url,omitempty"`
	PrimaryColor string `json:"primary_color"`
}

// DefaultPrimaryColor 抓取不到主题色时的兜底颜色
const DefaultPrimaryColor = "#3B82F6"

// TimelinePhase 交付阶段
type TimelinePhase struct {
	Phase        string   `json:"phase"`
	Duration     string   `json:"duration"`
	Deliverables []string `json:"deliverables"`
}

// PricingItem 报价明细
type PricingItem struct {
	Item   string `json:"item"`
	Amount string `json:"amount"`
}

// Pricing 报价
type Pricing struct {
	Items []PricingItem `json:"items"`
	Total string        `json:"total"`
	Notes string        `json:"notes,omitempty"`
}

// TechStack 技术选型
type TechStack struct {
	Frontend       []string `json:"frontend"`
	Backend        []string `json:"backend"`
	Database       []string `json:"database"`
	Infrastructure []string `json:"infrastructure"`
}

// ProposalContent AI 生成的提案正文
type ProposalContent struct {
	ProjectName         string          `json:"project_name"`
	ExecutiveSummary    string          `json:"executive_summary"`
	Objectives          []string        `json:"objectives"`
	Scope               []string        `json:"scope"`
	TechStack           TechStack       `json:"tech_stack"`
	Timeline            []TimelinePhase `json:"timeline"`
	Pricing             Pricing         `json:"pricing"`
	ArchitectureDiagram string          `json:"architecture_diagram"`
	WhyUs               []string        `json:"why_us"`
}

// ProposalResult 生成结果
// Content 为 nil 表示 AI 正文生成失败，提案以通用内容降级呈现
type ProposalResult struct {
	Client           ClientBranding   `json:"client"`
	ProjectName      string           `json:"project_name"`
	ProposalID       string           `json:"proposal_id"`
	ProposalURL      string           `json:"proposal_url"`
	DiagramAvailable bool             `json:"diagram_available"`
	DiagramPath      string           `json:"-"`
	Content          *ProposalContent `json:"ai_content"`
}

// ProposalRecord 提案索引条目
type ProposalRecord struct {
	ID          string    `json:"id"`
	ClientName  string    `json:"client_name"`
	ProjectName string    `json:"project_name"`
	ClientURL   string    `json:"client_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	URL         string    `json:"url"`
}
