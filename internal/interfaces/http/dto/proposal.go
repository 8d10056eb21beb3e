package dto

import (
	"time"

	"rfp-bot/internal/domain/entity"
)

// ProposalResponse 提案索引条目
type ProposalResponse struct {
	ID          string `json:"id"`
	ClientName  string `json:"client_name"`
	ProjectName string `json:"project_name"`
	ClientURL   string `json:"client_url,omitempty"`
	URL         string `json:"url"`
	CreatedAt   string `json:"created_at"`
}

// ProposalListResponse 提案列表
type ProposalListResponse struct {
	Proposals []*ProposalResponse `json:"proposals"`
}

// ToProposalResponse 实体转换为响应
func ToProposalResponse(r *entity.ProposalRecord) *ProposalResponse {
	if r == nil {
		return nil
	}
	return &ProposalResponse{
		ID:          r.ID,
		ClientName:  r.ClientName,
		ProjectName: r.ProjectName,
		ClientURL:   r.ClientURL,
		URL:         r.URL,
		CreatedAt:   r.CreatedAt.Format(time.RFC3339),
	}
}

// ToProposalListResponse 批量转换
func ToProposalListResponse(records []*entity.ProposalRecord) *ProposalListResponse {
	out := make([]*ProposalResponse, 0, len(records))
	for _, r := range records {
		out = append(out, ToProposalResponse(r))
	}
	return &ProposalListResponse{Proposals: out}
}
