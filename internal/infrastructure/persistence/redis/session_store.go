package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"rfp-bot/internal/domain/entity"
	"rfp-bot/internal/domain/repository"
	"rfp-bot/pkg/logger"
	"rfp-bot/pkg/metrics"
)

// SessionStore 以 JSON 保存会话，TTL 与会话超时一致
// 同一 chat 的操作由上层分发器串行化，这里不做跨命令的事务
type SessionStore struct {
	client  *Client
	prefix  string
	timeout time.Duration
	now     func() time.Time
}

// NewSessionStore 创建 Redis 会话存储
func NewSessionStore(client *Client, prefix string, timeout time.Duration) *SessionStore {
	return &SessionStore{
		client:  client,
		prefix:  prefix,
		timeout: timeout,
		now:     time.Now,
	}
}

// WithClock 替换时钟（测试用）
func (s *SessionStore) WithClock(now func() time.Time) *SessionStore {
	s.now = now
	return s
}

var _ repository.SessionStore = (*SessionStore)(nil)

func (s *SessionStore) key(chatID int64) string {
	return s.prefix + strconv.FormatInt(chatID, 10)
}

// Get 读取会话并续期
func (s *SessionStore) Get(ctx context.Context, chatID int64) (*entity.Session, error) {
	key := s.key(chatID)
	raw, err := s.client.Get(ctx, key)
	if err != nil {
		if IsNil(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get session: %w", err)
	}

	var sess entity.Session
	if err := json.Unmarshal([]byte(raw), &sess); err != nil {
		// 无法解析的数据视为不存在并清除
		if delErr := s.client.Del(ctx, key); delErr != nil {
			logger.Error(ctx, "failed to drop corrupt session payload", delErr, "key", key)
		}
		return nil, nil
	}

	now := s.now()
	if sess.Expired(now, s.timeout) {
		metrics.SessionExpiredTotal.WithLabelValues("redis").Inc()
		if err := s.client.Del(ctx, key); err != nil {
			return nil, fmt.Errorf("reap session: %w", err)
		}
		return nil, nil
	}

	sess.Touch(now)
	ok, err := s.write(ctx, &sess, true)
	if err != nil {
		return nil, err
	}
	if !ok {
		// 读取与续期之间被删除
		return nil, nil
	}
	return &sess, nil
}

// Create 覆盖为新会话
func (s *SessionStore) Create(ctx context.Context, chatID int64) (*entity.Session, error) {
	sess := entity.NewSession(chatID, s.now())
	if _, err := s.write(ctx, sess, false); err != nil {
		return nil, err
	}
	return sess, nil
}

// Save 仅在会话仍存在时写回
func (s *SessionStore) Save(ctx context.Context, session *entity.Session) error {
	cp := *session
	cp.Touch(s.now())
	ok, err := s.write(ctx, &cp, true)
	if err != nil {
		return err
	}
	if !ok {
		return repository.ErrSessionGone
	}
	return nil
}

// Delete 删除会话
func (s *SessionStore) Delete(ctx context.Context, chatID int64) error {
	if err := s.client.Del(ctx, s.key(chatID)); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (s *SessionStore) write(ctx context.Context, sess *entity.Session, onlyIfExists bool) (bool, error) {
	b, err := json.Marshal(sess)
	if err != nil {
		return false, fmt.Errorf("marshal session: %w", err)
	}
	key := s.key(sess.ChatID)
	if onlyIfExists {
		ok, err := s.client.SetXX(ctx, key, b, s.timeout)
		if err != nil {
			return false, fmt.Errorf("save session: %w", err)
		}
		return ok, nil
	}
	if err := s.client.Set(ctx, key, b, s.timeout); err != nil {
		return false, fmt.Errorf("create session: %w", err)
	}
	return true, nil
}
