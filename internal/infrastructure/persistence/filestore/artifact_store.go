package filestore

import (
	"os"
	"path/filepath"
	"regexp"

	apperrors "rfp-bot/pkg/errors"
)

const (
	htmlFileName    = "proposal.html"
	diagramFileName = "architecture.png"
)

// validID 提案 ID 只含小写字母、数字与连字符，防止路径穿越
var validID = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{0,127}$`)

// ArtifactStore 每个提案一个目录：<root>/<id>/proposal.html 与 architecture.png
type ArtifactStore struct {
	root string
}

func NewArtifactStore(root string) *ArtifactStore {
	return &ArtifactStore{root: root}
}

func (s *ArtifactStore) Dir(id string) (string, error) {
	if !validID.MatchString(id) {
		return "", apperrors.ErrInvalidParam.WithDetail("invalid proposal id")
	}
	dir := filepath.Join(s.root, id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", apperrors.ErrStorage.WithError(err)
	}
	return dir, nil
}

func (s *ArtifactStore) WriteHTML(id string, html []byte) error {
	dir, err := s.Dir(id)
	if err != nil {
		return err
	}
	if err := writeFileAtomic(filepath.Join(dir, htmlFileName), html); err != nil {
		return apperrors.ErrStorage.WithError(err)
	}
	return nil
}

func (s *ArtifactStore) HTMLPath(id string) (string, bool) {
	return s.existing(id, htmlFileName)
}

// DiagramPath 架构图的目标路径，不检查是否存在
func (s *ArtifactStore) DiagramPath(id string) (string, error) {
	dir, err := s.Dir(id)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, diagramFileName), nil
}

func (s *ArtifactStore) existing(id, name string) (string, bool) {
	if !validID.MatchString(id) {
		return "", false
	}
	p := filepath.Join(s.root, id, name)
	info, err := os.Stat(p)
	if err != nil || info.IsDir() {
		return "", false
	}
	return p, true
}
