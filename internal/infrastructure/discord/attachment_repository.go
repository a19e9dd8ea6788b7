package discord

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"kisanbot/internal/domain"
)

// 添付として受け付ける画像の拡張子
var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
}

// AttachmentRepository は、Discordの添付ファイルを取得するリポジトリです
type AttachmentRepository struct {
	client   *http.Client
	maxBytes int
	logger   *zap.Logger
}

// NewAttachmentRepository は新しいAttachmentRepositoryインスタンスを作成します
// clientがnilの場合は http.DefaultClient を使用します
func NewAttachmentRepository(client *http.Client, maxBytes int, logger *zap.Logger) *AttachmentRepository {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttachmentRepository{
		client:   client,
		maxBytes: maxBytes,
		logger:   logger,
	}
}

// IsImageAttachment は、添付ファイルが画像かどうかを判定します
func IsImageAttachment(att *discordgo.MessageAttachment) bool {
	if att == nil {
		return false
	}
	if strings.HasPrefix(strings.ToLower(att.ContentType), "image/") {
		return true
	}
	return imageExtensions[strings.ToLower(path.Ext(att.Filename))]
}

// Fetch は、添付ファイルをダウンロードしてImageBufferを返します
// サイズ上限を超える場合は domain.ErrImageTooLarge を返します
func (r *AttachmentRepository) Fetch(ctx context.Context, att *discordgo.MessageAttachment) (domain.ImageBuffer, error) {
	if att == nil || att.URL == "" {
		return domain.ImageBuffer{}, fmt.Errorf("添付ファイルのURLがありません")
	}
	if r.maxBytes > 0 && att.Size > r.maxBytes {
		return domain.ImageBuffer{}, fmt.Errorf("%w: %d バイト (最大 %d バイト)", domain.ErrImageTooLarge, att.Size, r.maxBytes)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, att.URL, nil)
	if err != nil {
		return domain.ImageBuffer{}, fmt.Errorf("リクエストの作成に失敗: %w", err)
	}

	r.logger.Debug("添付ファイルを取得中",
		zap.String("attachment_id", att.ID),
		zap.String("filename", att.Filename),
		zap.Int("size", att.Size))

	resp, err := r.client.Do(req)
	if err != nil {
		return domain.ImageBuffer{}, fmt.Errorf("添付ファイルの取得に失敗: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return domain.ImageBuffer{}, fmt.Errorf("添付ファイルの取得に失敗: HTTP %d", resp.StatusCode)
	}

	reader := io.Reader(resp.Body)
	if r.maxBytes > 0 {
		reader = io.LimitReader(resp.Body, int64(r.maxBytes)+1)
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return domain.ImageBuffer{}, fmt.Errorf("添付ファイルの読み込みに失敗: %w", err)
	}
	if r.maxBytes > 0 && len(data) > r.maxBytes {
		return domain.ImageBuffer{}, fmt.Errorf("%w: 最大 %d バイト", domain.ErrImageTooLarge, r.maxBytes)
	}

	declared := att.ContentType
	if declared == "" {
		declared = resp.Header.Get("Content-Type")
	}
	return domain.NewImageBuffer(data, declared, att.Filename), nil
}
