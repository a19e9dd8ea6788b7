package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"kisanbot/internal/domain"
)

// maxModelPages は、モデル一覧のページ送りの上限です
const maxModelPages = 20

// listModelsResponse は、モデル一覧APIの応答形式です
type listModelsResponse struct {
	Models        []domain.ModelDescriptor `json:"models"`
	NextPageToken string                   `json:"nextPageToken,omitempty"`
}

// ListModels は、設定された認証情報で利用可能なモデルをすべて返します
// 認証情報が未設定の場合は domain.ErrNotConfigured を返します
func (c *Client) ListModels(ctx context.Context) ([]domain.ModelDescriptor, error) {
	if !c.IsConfigured() {
		return nil, fmt.Errorf("モデル一覧を取得できません: %w", domain.ErrNotConfigured)
	}

	var models []domain.ModelDescriptor
	pageToken := ""
	for page := 0; page < maxModelPages; page++ {
		query := url.Values{}
		if pageToken != "" {
			query.Set("pageToken", pageToken)
		}

		req, err := c.newRequest(ctx, http.MethodGet, "models", query, nil)
		if err != nil {
			return nil, err
		}
		raw, err := c.do(req)
		if err != nil {
			return nil, fmt.Errorf("モデル一覧の取得に失敗: %w", err)
		}
		if raw.status < 200 || raw.status >= 300 {
			return nil, fmt.Errorf("モデル一覧の取得に失敗: %w", httpError(raw))
		}

		var resp listModelsResponse
		if err := json.Unmarshal(raw.body, &resp); err != nil {
			return nil, fmt.Errorf("モデル一覧の解析に失敗: %w", err)
		}
		models = append(models, resp.Models...)

		if resp.NextPageToken == "" {
			break
		}
		pageToken = resp.NextPageToken
	}

	c.logger.Debug("モデル一覧を取得しました", zap.Int("count", len(models)))
	return models, nil
}

// IsModelValid は、モデルIDが存在し generateContent に対応しているかを確認します
// 一覧の取得自体に失敗した場合は、呼び出しを妨げないよう有効とみなします
func (c *Client) IsModelValid(ctx context.Context, id domain.ModelID) domain.ModelValidity {
	models, err := c.ListModels(ctx)
	if err != nil {
		c.logger.Warn("モデル一覧を取得できないため検証をスキップします",
			zap.String("model", id.Short()),
			zap.Error(err))
		return domain.ModelValidity{OK: true}
	}
	return CheckModel(models, id)
}

// CheckModel は、取得済みのモデル一覧に対してモデルIDを検証します
func CheckModel(models []domain.ModelDescriptor, id domain.ModelID) domain.ModelValidity {
	for _, m := range models {
		if !m.Matches(id) {
			continue
		}
		if !m.Supports(domain.GenerateContentMethod) {
			return domain.ModelValidity{OK: false, Reason: domain.ModelUnsupportedMethod}
		}
		return domain.ModelValidity{OK: true}
	}
	return domain.ModelValidity{OK: false, Reason: domain.ModelNotFound}
}
