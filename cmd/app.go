package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"kisanbot/configs"
	"kisanbot/internal/application"
	"kisanbot/internal/domain"
	"kisanbot/internal/infrastructure/gemini"
	"kisanbot/internal/infrastructure/imaging"
	"kisanbot/internal/infrastructure/logging"
)

// app は、コマンド間で共有する依存関係です
type app struct {
	config    *configs.Config
	logger    *zap.Logger
	client    *gemini.Client
	diagnosis *application.DiagnosisApplicationService
	chat      *application.ChatApplicationService
	models    *application.ModelCatalogService
}

// newApp は、設定を読み込んで検証し、依存関係を組み立てます
func newApp(validate func(*configs.Config) error) (*app, error) {
	cfg, err := configs.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("設定の読み込みに失敗: %w", err)
	}
	if validate != nil {
		if err := validate(cfg); err != nil {
			return nil, fmt.Errorf("設定の検証に失敗: %w", err)
		}
	}

	logger, err := logging.NewLogger(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("ロガーの作成に失敗: %w", err)
	}
	return buildApp(cfg, logger), nil
}

// buildApp は、読み込み済みの設定から依存関係を組み立てます
func buildApp(cfg *configs.Config, logger *zap.Logger) *app {
	validator := imaging.NewValidator(cfg.Image.MaxPixels, logger)
	preprocessor := imaging.NewPreprocessor(cfg.Image.MaxDimension, cfg.Image.JPEGQuality)
	analyzer := imaging.NewQualityAnalyzer(cfg.Image.BlurThreshold, cfg.Image.ContrastThreshold)
	client := gemini.NewClient(&cfg.Gemini, gemini.WithLogger(logger))
	prompts := domain.NewPromptGenerator("", "", domain.NewContextManager(cfg.Server.MaxQueryLength))

	return &app{
		config: cfg,
		logger: logger,
		client: client,
		diagnosis: application.NewDiagnosisApplicationService(
			validator, preprocessor, analyzer, client, prompts, &cfg.Image, logger,
		),
		chat: application.NewChatApplicationService(
			validator, preprocessor, client, client, prompts, &cfg.Image, cfg.Gemini.PreflightCheck, logger,
		),
		models: application.NewModelCatalogService(client),
	}
}

// Close は、バッファされたログを書き出します
func (a *app) Close() {
	_ = a.logger.Sync()
}

// printJSON は、値を整形したJSONとして出力します
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// readImageFile は、画像ファイルを読み込みます
func readImageFile(path string, maxBytes int) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("画像ファイルを開けません: %w", err)
	}
	if maxBytes > 0 && info.Size() > int64(maxBytes) {
		return nil, fmt.Errorf("%w: %d バイト (最大 %d バイト)", domain.ErrImageTooLarge, info.Size(), maxBytes)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("画像ファイルの読み込みに失敗: %w", err)
	}
	return data, nil
}
