// Package memory 提供进程内的会话存储
package memory

import (
	"context"
	"sync"
	"time"

	"rfp-bot/internal/domain/entity"
	"rfp-bot/internal/domain/repository"
	"rfp-bot/pkg/metrics"
)

// SessionStore 互斥锁保护的内存会话表，超时在访问时惰性清除
type SessionStore struct {
	mu       sync.Mutex
	sessions map[int64]*entity.Session
	timeout  time.Duration
	now      func() time.Time
}

// Option 配置项
type Option func(*SessionStore)

// WithClock 注入时钟（测试用）
func WithClock(now func() time.Time) Option {
	return func(s *SessionStore) { s.now = now }
}

// NewSessionStore 创建内存会话存储
func NewSessionStore(timeout time.Duration, opts ...Option) *SessionStore {
	s := &SessionStore{
		sessions: make(map[int64]*entity.Session),
		timeout:  timeout,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ repository.SessionStore = (*SessionStore)(nil)

// Get 返回会话副本，命中时刷新活跃时间
func (s *SessionStore) Get(_ context.Context, chatID int64) (*entity.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[chatID]
	if !ok {
		return nil, nil
	}
	now := s.now()
	if sess.Expired(now, s.timeout) {
		delete(s.sessions, chatID)
		metrics.SessionExpiredTotal.WithLabelValues("memory").Inc()
		s.updateGauge()
		return nil, nil
	}
	sess.Touch(now)
	cp := *sess
	return &cp, nil
}

// Create 覆盖为新会话
func (s *SessionStore) Create(_ context.Context, chatID int64) (*entity.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := entity.NewSession(chatID, s.now())
	s.sessions[chatID] = sess
	s.updateGauge()
	cp := *sess
	return &cp, nil
}

// Save 仅替换仍存在的会话
func (s *SessionStore) Save(_ context.Context, session *entity.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[session.ChatID]; !ok {
		return repository.ErrSessionGone
	}
	cp := *session
	cp.Touch(s.now())
	s.sessions[session.ChatID] = &cp
	return nil
}

// Delete 删除会话
func (s *SessionStore) Delete(_ context.Context, chatID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, chatID)
	s.updateGauge()
	return nil
}

// Len 当前保存的会话数（含尚未被清除的过期会话）
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *SessionStore) updateGauge() {
	metrics.ActiveSessions.Set(float64(len(s.sessions)))
}
