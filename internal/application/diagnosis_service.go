package application

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"kisanbot/internal/domain"
	"kisanbot/internal/infrastructure/config"
	"kisanbot/internal/infrastructure/metrics"
)

// DiagnosisApplicationService は、画像の検証から診断結果の返却までを制御するアプリケーションサービスです
// 検証 → 前処理 → (品質判定 ∥ モデル呼び出し) → 解析 → 品質ゲート の順に処理します
type DiagnosisApplicationService struct {
	validator    ImageValidator
	preprocessor ImagePreprocessor
	analyzer     QualityAnalyzer
	invoker      ModelInvoker
	prompts      *domain.PromptGenerator
	config       *config.ImageConfig
	logger       *zap.Logger
}

// NewDiagnosisApplicationService は新しいDiagnosisApplicationServiceインスタンスを作成します
func NewDiagnosisApplicationService(
	validator ImageValidator,
	preprocessor ImagePreprocessor,
	analyzer QualityAnalyzer,
	invoker ModelInvoker,
	prompts *domain.PromptGenerator,
	imageConfig *config.ImageConfig,
	logger *zap.Logger,
) *DiagnosisApplicationService {
	if prompts == nil {
		prompts = domain.NewPromptGenerator("", "", nil)
	}
	if imageConfig == nil {
		imageConfig = config.DefaultImageConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &DiagnosisApplicationService{
		validator:    validator,
		preprocessor: preprocessor,
		analyzer:     analyzer,
		invoker:      invoker,
		prompts:      prompts,
		config:       imageConfig,
		logger:       logger,
	}
}

// Diagnose は、data URI形式の画像を診断します
// 失敗はすべてエラーコード付きの結果として返し、パニックも INTERNAL_ERROR に変換します
func (s *DiagnosisApplicationService) Diagnose(ctx context.Context, imageDataURI string) domain.DiagnosisOutcome {
	uri, err := domain.ParseDataURI(imageDataURI, s.config.MaxBytes)
	if err != nil {
		s.logger.Info("data URIを解析できません", zap.Error(err))
		outcome := domain.NewDiagnosisError(domain.CodeInvalidImage, "", nil)
		metrics.ObserveOutcome("diagnose", string(outcome.Code))
		return outcome
	}
	return s.DiagnoseImage(ctx, uri.ImageBuffer(""))
}

// DiagnoseImage は、受信済みの画像バッファを診断します
func (s *DiagnosisApplicationService) DiagnoseImage(ctx context.Context, buf domain.ImageBuffer) (outcome domain.DiagnosisOutcome) {
	requestID := uuid.NewString()
	logger := s.logger.With(zap.String("request_id", requestID))

	defer func() {
		if r := recover(); r != nil {
			logger.Error("診断処理中にパニックが発生しました", zap.Any("panic", r), zap.Stack("stack"))
			outcome = domain.NewDiagnosisError(domain.CodeInternalError, "", nil)
		}
		metrics.ObserveOutcome("diagnose", string(outcome.Code))
		logger.Info("診断処理が完了しました",
			zap.String("status", string(outcome.Status)),
			zap.String("code", string(outcome.Code)))
	}()

	if s.config.MaxBytes > 0 && buf.Len() > s.config.MaxBytes {
		logger.Info("画像サイズが上限を超えています", zap.Int("bytes", buf.Len()))
		return domain.NewDiagnosisError(domain.CodeInvalidImage, "", nil)
	}

	// 1. 画像を検証
	validation := s.validator.Validate(buf)
	if !validation.OK {
		logger.Info("画像の検証に失敗しました", zap.String("reason", string(validation.Reason)))
		return domain.NewDiagnosisError(validation.ErrorCode(), "", nil)
	}

	// 2. 前処理
	processed, err := s.preprocessor.Preprocess(buf.Data)
	if err != nil {
		logger.Error("画像の前処理に失敗しました", zap.Error(err))
		if errors.Is(err, domain.ErrImageDecode) {
			return domain.NewDiagnosisError(domain.CodeInvalidImage, "", nil)
		}
		return domain.NewDiagnosisError(domain.CodeInternalError, "", nil)
	}
	logger.Debug("画像を前処理しました",
		zap.Int("source_width", validation.Width),
		zap.Int("source_height", validation.Height),
		zap.Stringer("processed", processed))

	// 3. 品質判定とモデル呼び出しを並行実行
	req := domain.GenerationRequest{
		Prompt:     s.prompts.DiagnosisPrompt(),
		Image:      processed.Buffer,
		ImageMIME:  processed.MIME(),
		JSONOutput: true,
	}

	var (
		report     domain.QualityReport
		qualityErr error
		result     domain.GenerationResult
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		defer recoverInto(&err)
		// 品質判定の失敗でモデル呼び出しを中断しない
		report, qualityErr = s.analyzer.Analyze(processed.Buffer)
		return nil
	})
	g.Go(func() (err error) {
		defer recoverInto(&err)
		result, err = generateWithFallback(gctx, s.invoker, logger, req, domain.CodeNoDetection)
		return err
	})
	if err := g.Wait(); err != nil {
		logger.Error("生成モデルの呼び出しに失敗しました", zap.Error(err))
		return domain.NewDiagnosisError(invocationErrorCode(err), "", nil)
	}

	if !result.OK() {
		code := invocationCode(result.Diagnostics, domain.CodeNoDetection)
		logger.Warn("生成モデルから有効な応答が得られませんでした",
			zap.String("code", string(code)),
			zap.Any("diagnostics", result.Diagnostics))
		return domain.NewDiagnosisError(code, "", result.Diagnostics)
	}

	// 4. モデル出力を解析
	diagnosis, err := domain.ParseDiagnosis(result.Text)
	if err != nil {
		logger.Warn("モデル出力を診断として解析できません", zap.Error(err))
		return domain.NewDiagnosisError(domain.CodeNoDetection, "", &domain.Diagnostics{
			Status:      http.StatusOK,
			StatusText:  http.StatusText(http.StatusOK),
			BodySnippet: truncateRunes(result.Text, 1000),
			ModelID:     result.ModelID.Short(),
			Attempt:     result.Attempts,
		})
	}

	// 5. 品質ゲート: 低信頼度または「健康」判定の場合のみ画像品質を問題にする
	if diagnosis.IsLowConfidence(s.config.ConfidenceThreshold) || diagnosis.IsHealthy() {
		if qualityErr != nil {
			logger.Error("画像の品質判定に失敗しました", zap.Error(qualityErr))
			return domain.NewDiagnosisError(domain.CodeInternalError, "", nil)
		}
		if code, rejected := qualityGate(report); rejected {
			metrics.QualityRejections.WithLabelValues(string(code)).Inc()
			logger.Info("画像品質により診断を保留しました",
				zap.String("code", string(code)),
				zap.String("disease", diagnosis.DiseaseName),
				zap.Float64("confidence", diagnosis.Confidence),
				zap.Float64("laplacian_variance", report.Metrics.LaplacianVariance),
				zap.Float64("max_channel_stddev", report.Metrics.MaxChannelStdDev))
			return domain.NewDiagnosisError(code, "", nil)
		}
	}

	return domain.NewDiagnosisOK(diagnosis)
}

// qualityGate は、品質レポートから返すべきエラーコードを決めます。ぼやけを優先します
func qualityGate(report domain.QualityReport) (domain.ErrorCode, bool) {
	switch {
	case report.IsBlurry:
		return domain.CodeImageTooBlurry, true
	case report.IsLowContrast:
		return domain.CodeImageLowContrast, true
	default:
		return "", false
	}
}

// recoverInto は、ゴルーチン内のパニックをerrorへ変換します
func recoverInto(err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("パニックから回復しました: %v", r)
	}
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
