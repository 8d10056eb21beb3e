package repository

import (
	"context"

	"rfp-bot/internal/domain/entity"
)

// ProposalIndex 提案索引，按创建时间倒序
type ProposalIndex interface {
	// Append 插入到最前
	Append(ctx context.Context, record *entity.ProposalRecord) error
	// List 返回最新的 limit 条；limit <= 0 返回全部
	List(ctx context.Context, limit int) ([]*entity.ProposalRecord, error)
	// Page 分页查询
	Page(ctx context.Context, pagination Pagination) (*PagedResult[*entity.ProposalRecord], error)
	// Get 按 ID 查询，不存在返回 (nil, nil)
	Get(ctx context.Context, id string) (*entity.ProposalRecord, error)
}

// ArtifactStore 提案产物存储
type ArtifactStore interface {
	// Dir 返回提案目录（不存在则创建）
	Dir(id string) (string, error)
	// WriteHTML 写入渲染后的提案页面
	WriteHTML(id string, html []byte) error
	// HTMLPath 返回提案页面路径，不存在返回 false
	HTMLPath(id string) (string, bool)
	// DiagramPath 返回架构图的目标路径
	DiagramPath(id string) (string, error)
}
