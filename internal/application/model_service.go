package application

import (
	"context"
	"fmt"
	"sort"

	"kisanbot/internal/domain"
)

// ModelCatalogService は、利用可能なモデルの一覧表示と検証を提供します
type ModelCatalogService struct {
	directory ModelDirectory
}

// NewModelCatalogService は新しいModelCatalogServiceインスタンスを作成します
func NewModelCatalogService(directory ModelDirectory) *ModelCatalogService {
	return &ModelCatalogService{directory: directory}
}

// GenerationModels は、generateContent に対応するモデルIDを名前順で返します
func (s *ModelCatalogService) GenerationModels(ctx context.Context) ([]string, error) {
	models, err := s.directory.ListModels(ctx)
	if err != nil {
		return nil, fmt.Errorf("モデル一覧の取得に失敗: %w", err)
	}
	ids := domain.GenerationCapableIDs(models)
	sort.Strings(ids)
	return ids, nil
}

// Check は、モデルIDが利用可能かどうかを返します
func (s *ModelCatalogService) Check(ctx context.Context, id domain.ModelID) domain.ModelValidity {
	return s.directory.IsModelValid(ctx, id)
}
