package model

// ProposalContentInput 提案正文生成的输入
type ProposalContentInput struct {
	BrandName    string
	BrandTagline string

	ClientName  string
	ProjectName string

	BriefRequirement    string
	DetailedRequirement string

	// CurrencyLabel 例如 "₹ INR"
	CurrencyLabel string
	Scale         string

	ModelOptions
}

// DailyTextInput 定时推送文本的输入
type DailyTextInput struct {
	// Today 形如 "Monday, 02 January 2006"
	Today string

	ModelOptions
}
