package application

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"kisanbot/internal/domain"
)

// invocationCode は、呼び出し失敗の診断情報をエラーコードへ変換します
// emptyCode は、候補が空のまま再試行を使い切った場合のコードです
func invocationCode(diagnostics *domain.Diagnostics, emptyCode domain.ErrorCode) domain.ErrorCode {
	if diagnostics == nil {
		return domain.CodeInternalError
	}
	switch {
	case diagnostics.Status == http.StatusNotFound:
		return domain.CodeModelNotFound
	case diagnostics.Status >= http.StatusInternalServerError:
		return domain.CodeModelError
	case diagnostics.Kind == domain.FailureEmpty:
		return emptyCode
	default:
		return domain.CodeInternalError
	}
}

// invocationErrorCode は、Generateが返したerrorをエラーコードへ変換します
func invocationErrorCode(err error) domain.ErrorCode {
	if errors.Is(err, domain.ErrNotConfigured) {
		return domain.CodeNotConfigured
	}
	return domain.CodeInternalError
}

// isFallbackEligible は、代替モデルで再試行すべき失敗かどうかを判定します
func isFallbackEligible(code domain.ErrorCode) bool {
	return code == domain.CodeModelNotFound || code == domain.CodeModelError
}

// generateWithFallback は、既定モデルを呼び出し、必要なら代替モデルで1度だけ再試行します
func generateWithFallback(ctx context.Context, invoker ModelInvoker, logger *zap.Logger, req domain.GenerationRequest, emptyCode domain.ErrorCode) (domain.GenerationResult, error) {
	primary := invoker.DefaultModel()
	result, err := invoker.Generate(ctx, primary, req)
	if err != nil {
		return result, fmt.Errorf("生成モデルの呼び出しに失敗: %w", err)
	}
	if result.OK() {
		return result, nil
	}

	fallback := invoker.FallbackModel()
	if fallback.IsZero() || fallback.Short() == primary.Short() {
		return result, nil
	}
	if !isFallbackEligible(invocationCode(result.Diagnostics, emptyCode)) {
		return result, nil
	}

	logger.Warn("代替モデルで再試行します",
		zap.String("primary", primary.Short()),
		zap.String("fallback", fallback.Short()),
		zap.Int("status", result.Diagnostics.Status))

	fallbackResult, err := invoker.Generate(ctx, fallback, req)
	if err != nil {
		return result, fmt.Errorf("代替モデルの呼び出しに失敗: %w", err)
	}
	if fallbackResult.OK() {
		return fallbackResult, nil
	}

	fallbackResult.Diagnostics.FallbackFrom = primary.Short()
	if len(fallbackResult.Diagnostics.AvailableModels) == 0 {
		fallbackResult.Diagnostics.AvailableModels = result.Diagnostics.AvailableModels
	}
	return fallbackResult, nil
}
