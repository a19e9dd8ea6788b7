package application

import (
	"context"

	"kisanbot/internal/domain"
)

// ImageValidator は、アップロード画像を検証するコンポーネントのインターフェースです
type ImageValidator interface {
	Validate(buf domain.ImageBuffer) domain.ValidationResult
}

// ImagePreprocessor は、検証済み画像を正規化するコンポーネントのインターフェースです
type ImagePreprocessor interface {
	Preprocess(data []byte) (domain.ProcessedImage, error)
}

// QualityAnalyzer は、画像品質のヒューリスティクスを計算するコンポーネントのインターフェースです
type QualityAnalyzer interface {
	Analyze(buffer []byte) (domain.QualityReport, error)
}

// ModelInvoker は、生成モデルを呼び出すクライアントのインターフェースです
type ModelInvoker interface {
	// Generate は、リモート側の失敗をDiagnostics付きの結果として返します
	// errorは認証情報の未設定やコンテキストの取り消しなど、呼び出し前後の異常のみです
	Generate(ctx context.Context, model domain.ModelID, req domain.GenerationRequest) (domain.GenerationResult, error)

	// DefaultModel は、既定のモデルIDを返します
	DefaultModel() domain.ModelID

	// FallbackModel は、代替モデルIDを返します。未設定なら空です
	FallbackModel() domain.ModelID
}

// ModelDirectory は、利用可能なモデルを照会するクライアントのインターフェースです
type ModelDirectory interface {
	ListModels(ctx context.Context) ([]domain.ModelDescriptor, error)
	IsModelValid(ctx context.Context, id domain.ModelID) domain.ModelValidity
}
