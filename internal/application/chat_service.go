package application

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"kisanbot/internal/domain"
	"kisanbot/internal/infrastructure/config"
	"kisanbot/internal/infrastructure/metrics"
)

// defaultImageQuery は、画像のみが送られた場合の質問文です
const defaultImageQuery = "Analyze attached image."

// ChatApplicationService は、農家向けチャットアシスタントの質問応答を制御するアプリケーションサービスです
type ChatApplicationService struct {
	validator    ImageValidator
	preprocessor ImagePreprocessor
	invoker      ModelInvoker
	directory    ModelDirectory
	prompts      *domain.PromptGenerator
	imageConfig  *config.ImageConfig
	preflight    bool
	logger       *zap.Logger
}

// NewChatApplicationService は新しいChatApplicationServiceインスタンスを作成します
// directoryがnilの場合、事前のモデル検証は行いません
func NewChatApplicationService(
	validator ImageValidator,
	preprocessor ImagePreprocessor,
	invoker ModelInvoker,
	directory ModelDirectory,
	prompts *domain.PromptGenerator,
	imageConfig *config.ImageConfig,
	preflight bool,
	logger *zap.Logger,
) *ChatApplicationService {
	if prompts == nil {
		prompts = domain.NewPromptGenerator("", "", nil)
	}
	if imageConfig == nil {
		imageConfig = config.DefaultImageConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &ChatApplicationService{
		validator:    validator,
		preprocessor: preprocessor,
		invoker:      invoker,
		directory:    directory,
		prompts:      prompts,
		imageConfig:  imageConfig,
		preflight:    preflight && directory != nil,
		logger:       logger,
	}
}

// Ask は、質問(と任意の画像)に回答します
// 失敗はすべてエラーコード付きの結果として返します
func (s *ChatApplicationService) Ask(ctx context.Context, req domain.ChatRequest) (outcome domain.ChatOutcome) {
	logger := s.logger.With(zap.String("request_id", uuid.NewString()))

	defer func() {
		if r := recover(); r != nil {
			logger.Error("チャット処理中にパニックが発生しました", zap.Any("panic", r), zap.Stack("stack"))
			outcome = domain.NewChatError(domain.CodeInternalError, "", nil)
		}
		metrics.ObserveOutcome("chat", string(outcome.Code))
	}()

	query := strings.TrimSpace(req.Query)
	if query == "" {
		if !req.HasImage() {
			return domain.NewChatError(domain.CodeBadRequest, "", nil)
		}
		query = defaultImageQuery
	}

	genReq := domain.GenerationRequest{}

	// 1. 添付画像を検証・正規化
	if req.HasImage() {
		image, code, ok := s.prepareImage(logger, req.ImageDataURI)
		if !ok {
			return domain.NewChatError(code, "", nil)
		}
		genReq.Image = image.Buffer
		genReq.ImageMIME = image.MIME()
	}
	genReq.Prompt = s.prompts.ChatPrompt(query, genReq.HasImage())

	// 2. モデルの事前確認(取得できない場合は通す)
	if s.preflight {
		if failure, ok := s.checkModel(ctx, logger); !ok {
			return failure
		}
	}

	// 3. 生成モデルを呼び出し
	result, err := generateWithFallback(ctx, s.invoker, logger, genReq, domain.CodeNoOutput)
	if err != nil {
		code := invocationErrorCode(err)
		if code == domain.CodeNotConfigured {
			logger.Warn("生成モデルの認証情報が設定されていません")
		} else {
			logger.Error("生成モデルの呼び出しに失敗しました", zap.Error(err))
		}
		return domain.NewChatError(code, "", nil)
	}

	if !result.OK() {
		code := invocationCode(result.Diagnostics, domain.CodeNoOutput)
		message := ""
		if code == domain.CodeModelNotFound {
			message = "Configured model '" + result.Diagnostics.ModelID + "' is not available to this credential."
		}
		logger.Warn("生成モデルから有効な応答が得られませんでした",
			zap.String("code", string(code)),
			zap.Any("diagnostics", result.Diagnostics))
		return domain.NewChatError(code, message, result.Diagnostics)
	}

	answer := strings.TrimSpace(result.Text)
	if answer == "" {
		return domain.NewChatError(domain.CodeNoOutput, "", nil)
	}
	return domain.NewChatOK(answer)
}

// prepareImage は、data URIの画像を検証し前処理します
func (s *ChatApplicationService) prepareImage(logger *zap.Logger, dataURI string) (domain.ProcessedImage, domain.ErrorCode, bool) {
	uri, err := domain.ParseDataURI(dataURI, s.imageConfig.MaxBytes)
	if err != nil {
		logger.Info("添付画像のdata URIを解析できません", zap.Error(err))
		return domain.ProcessedImage{}, domain.CodeInvalidImage, false
	}

	validation := s.validator.Validate(uri.ImageBuffer(""))
	if !validation.OK {
		logger.Info("添付画像の検証に失敗しました", zap.String("reason", string(validation.Reason)))
		return domain.ProcessedImage{}, validation.ErrorCode(), false
	}

	processed, err := s.preprocessor.Preprocess(uri.Data)
	if err != nil {
		logger.Error("添付画像の前処理に失敗しました", zap.Error(err))
		return domain.ProcessedImage{}, domain.CodeInvalidImage, false
	}
	return processed, "", true
}

// checkModel は、既定モデルが利用可能かを確認します
// 別の代替モデルが設定されている場合は拒否せずに呼び出しへ進みます
func (s *ChatApplicationService) checkModel(ctx context.Context, logger *zap.Logger) (domain.ChatOutcome, bool) {
	model := s.invoker.DefaultModel()
	validity := s.directory.IsModelValid(ctx, model)
	if validity.OK {
		return domain.ChatOutcome{}, true
	}
	if fallback := s.invoker.FallbackModel(); !fallback.IsZero() && fallback.Short() != model.Short() {
		logger.Info("既定モデルは利用できないため代替モデルで試行します",
			zap.String("model", model.Short()),
			zap.String("fallback", fallback.Short()))
		return domain.ChatOutcome{}, true
	}

	diagnostics := &domain.Diagnostics{ModelID: model.Short()}
	if models, err := s.directory.ListModels(ctx); err == nil {
		diagnostics.AvailableModels = domain.GenerationCapableIDs(models)
	}

	logger.Warn("設定されたモデルは利用できません",
		zap.String("model", model.Short()),
		zap.String("reason", string(validity.Reason)))
	return domain.NewChatError(domain.CodeModelNotFound,
		"Configured model '"+model.Short()+"' is not available to this credential.",
		diagnostics), false
}
