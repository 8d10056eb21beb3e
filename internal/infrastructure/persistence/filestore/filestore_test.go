package filestore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rfp-bot/internal/domain/entity"
	"rfp-bot/internal/domain/repository"
)

func record(id string) *entity.ProposalRecord {
	return &entity.ProposalRecord{
		ID:          id,
		ClientName:  "Acme",
		ProjectName: "Portal",
		CreatedAt:   time.Date(2026, 1, 2, 15, 4, 0, 0, time.UTC),
		URL:         "/proposal/" + id,
	}
}

func TestProposalIndexNewestFirst(t *testing.T) {
	ctx := context.Background()
	idx := NewProposalIndex(filepath.Join(t.TempDir(), "proposals", "index.json"))

	empty, err := idx.List(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, empty)

	for _, id := range []string{"a-1", "b-2", "c-3"} {
		require.NoError(t, idx.Append(ctx, record(id)))
	}

	all, err := idx.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "c-3", all[0].ID)
	assert.Equal(t, "a-1", all[2].ID)

	top, err := idx.List(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, top, 2)

	got, err := idx.Get(ctx, "b-2")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.CreatedAt.Equal(record("b-2").CreatedAt))

	missing, err := idx.Get(ctx, "zzz")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestProposalIndexPage(t *testing.T) {
	ctx := context.Background()
	idx := NewProposalIndex(filepath.Join(t.TempDir(), "index.json"))
	for i := 0; i < 5; i++ {
		require.NoError(t, idx.Append(ctx, record(fmt.Sprintf("p-%d", i))))
	}

	page, err := idx.Page(ctx, repository.NewPagination(2, 2))
	require.NoError(t, err)
	assert.Equal(t, int64(5), page.Total)
	assert.Equal(t, 3, page.TotalPages)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "p-2", page.Items[0].ID)

	beyond, err := idx.Page(ctx, repository.NewPagination(9, 2))
	require.NoError(t, err)
	assert.Empty(t, beyond.Items)
}

func TestProposalIndexConcurrentAppends(t *testing.T) {
	ctx := context.Background()
	idx := NewProposalIndex(filepath.Join(t.TempDir(), "index.json"))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, idx.Append(ctx, record(fmt.Sprintf("p-%d", i))))
		}(i)
	}
	wg.Wait()

	all, err := idx.List(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 20)
}

func TestProposalIndexCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := NewProposalIndex(path).List(context.Background(), 0)
	assert.Error(t, err)
}

func TestProposalIndexRejectsEmptyID(t *testing.T) {
	idx := NewProposalIndex(filepath.Join(t.TempDir(), "index.json"))
	assert.Error(t, idx.Append(context.Background(), &entity.ProposalRecord{}))
}

func TestArtifactStore(t *testing.T) {
	root := t.TempDir()
	s := NewArtifactStore(root)

	_, ok := s.HTMLPath("acme-20260102-1504-abc123")
	assert.False(t, ok)

	require.NoError(t, s.WriteHTML("acme-20260102-1504-abc123", []byte("<html></html>")))
	p, ok := s.HTMLPath("acme-20260102-1504-abc123")
	require.True(t, ok)
	assert.Equal(t, filepath.Join(root, "acme-20260102-1504-abc123", "proposal.html"), p)

	diagram, err := s.DiagramPath("acme-20260102-1504-abc123")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "acme-20260102-1504-abc123", "architecture.png"), diagram)
}

func TestArtifactStoreRejectsTraversal(t *testing.T) {
	s := NewArtifactStore(t.TempDir())
	for _, id := range []string{"../etc", "a/b", "", "UPPER", ".hidden"} {
		_, ok := s.HTMLPath(id)
		assert.False(t, ok, id)
		assert.Error(t, s.WriteHTML(id, []byte("x")), id)
	}
}
