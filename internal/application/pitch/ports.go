package pitch

import (
	"context"

	"rfp-bot/internal/domain/entity"
)

// DocumentFetcher 需求文档摄取端口
type DocumentFetcher interface {
	// FetchURL 下载远程文档并提取正文
	FetchURL(ctx context.Context, rawURL string) (string, error)
	// ParseUpload 从上传文件内容提取正文
	ParseUpload(ctx context.Context, data []byte, fileName string) (string, error)
}

// ProposalBuilder 提案生成端口
type ProposalBuilder interface {
	Build(ctx context.Context, req entity.ProposalRequest) (*entity.ProposalResult, error)
}

// UserFacing 可直接展示给用户的错误
type UserFacing interface {
	UserMessage() string
}

// Event 一条入站消息
type Event struct {
	ChatID    int64
	MessageID int
	Text      string
}

// Upload 一次文件上传，Fetch 在校验通过后才会被调用
type Upload struct {
	FileName string
	Size     int64
	Fetch    func(ctx context.Context) ([]byte, error)
}
