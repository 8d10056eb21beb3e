// Package filestore 基于本地文件的提案索引与产物存储
package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"rfp-bot/internal/domain/entity"
	"rfp-bot/internal/domain/repository"
	apperrors "rfp-bot/pkg/errors"
)

// ProposalIndex JSON 数组文件，最新的记录在最前
// 写入先落临时文件再 rename，读者不会看到半截内容
type ProposalIndex struct {
	mu   sync.RWMutex
	path string
}

func NewProposalIndex(path string) *ProposalIndex {
	return &ProposalIndex{path: path}
}

func (x *ProposalIndex) Append(_ context.Context, record *entity.ProposalRecord) error {
	if record == nil || record.ID == "" {
		return apperrors.ErrInvalidParam.WithDetail("record id is required")
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	records, err := x.load()
	if err != nil {
		return err
	}
	records = append([]*entity.ProposalRecord{record}, records...)
	return x.store(records)
}

func (x *ProposalIndex) List(_ context.Context, limit int) ([]*entity.ProposalRecord, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	records, err := x.load()
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

func (x *ProposalIndex) Page(_ context.Context, p repository.Pagination) (*repository.PagedResult[*entity.ProposalRecord], error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	records, err := x.load()
	if err != nil {
		return nil, err
	}
	total := len(records)
	start := min(p.Offset(), total)
	end := min(start+p.Limit(), total)
	return repository.NewPagedResult(records[start:end], int64(total), p), nil
}

func (x *ProposalIndex) Get(_ context.Context, id string) (*entity.ProposalRecord, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	records, err := x.load()
	if err != nil {
		return nil, err
	}
	for _, r := range records {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, nil
}

// load 文件不存在视为空索引
func (x *ProposalIndex) load() ([]*entity.ProposalRecord, error) {
	data, err := os.ReadFile(x.path)
	if errors.Is(err, os.ErrNotExist) {
		return []*entity.ProposalRecord{}, nil
	}
	if err != nil {
		return nil, apperrors.ErrStorage.WithError(err)
	}
	if len(data) == 0 {
		return []*entity.ProposalRecord{}, nil
	}

	var records []*entity.ProposalRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, apperrors.ErrStorage.WithError(fmt.Errorf("decode %s: %w", x.path, err))
	}
	return records, nil
}

func (x *ProposalIndex) store(records []*entity.ProposalRecord) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return apperrors.ErrStorage.WithError(err)
	}
	if err := writeFileAtomic(x.path, data); err != nil {
		return apperrors.ErrStorage.WithError(err)
	}
	return nil
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
