// Package repository 定义数据访问层接口
package repository

import (
	"context"

	"rfp-bot/internal/domain/entity"
)

// SessionStore 会话存储
// 实现需保证单个 chat 的各操作互斥，且超时会话在读取时被惰性清除
type SessionStore interface {
	// Get 返回未过期的会话并刷新活跃时间；不存在或已过期返回 (nil, nil)
	Get(ctx context.Context, chatID int64) (*entity.Session, error)
	// Create 无条件覆盖为第一步的新会话
	Create(ctx context.Context, chatID int64) (*entity.Session, error)
	// Save 写回已存在的会话；会话已被删除时返回 ErrSessionGone
	Save(ctx context.Context, session *entity.Session) error
	// Delete 删除会话，不存在时为 no-op
	Delete(ctx context.Context, chatID int64) error
}
