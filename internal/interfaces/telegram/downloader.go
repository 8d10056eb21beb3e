package telegram

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Downloader 通过文件直链下载用户上传的文档
type Downloader struct {
	bot      botClient
	http     *http.Client
	maxBytes int64
}

func NewDownloader(bot botClient, timeout time.Duration, maxBytes int64) *Downloader {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Downloader{
		bot:      bot,
		http:     &http.Client{Timeout: timeout},
		maxBytes: maxBytes,
	}
}

// Download 超过 maxBytes 视为失败
func (d *Downloader) Download(ctx context.Context, fileID string) ([]byte, error) {
	link, err := d.bot.GetFileDirectURL(fileID)
	if err != nil {
		return nil, fmt.Errorf("resolve file %s: %w", fileID, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return nil, err
	}
	resp, err := d.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download file: http %d", resp.StatusCode)
	}

	body := io.Reader(resp.Body)
	if d.maxBytes > 0 {
		body = io.LimitReader(resp.Body, d.maxBytes+1)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	if d.maxBytes > 0 && int64(len(data)) > d.maxBytes {
		return nil, fmt.Errorf("file exceeds %d bytes", d.maxBytes)
	}
	return data, nil
}
