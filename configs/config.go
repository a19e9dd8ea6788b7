package configs

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"kisanbot/internal/domain"
	"kisanbot/internal/infrastructure/config"
)

// 既定値
const (
	defaultRequestTimeout = 90 * time.Second
	defaultHTTPAddr       = ":8080"
	defaultMaxAttachment  = 8 << 20
	defaultLogLevel       = "info"
	defaultLogFormat      = "json"
	defaultLogSampleTick  = time.Minute
	defaultLogSampleFirst = 1
	defaultLogSampleAfter = 100
	defaultDotEnvFilename = ".env"
)

// Config は、アプリケーション全体の設定を定義します
type Config struct {
	Gemini  config.GeminiConfig
	Image   config.ImageConfig
	Server  config.ServerConfig
	Discord config.DiscordConfig
	Log     config.LogConfig
}

// LoadConfig は、環境変数から設定を読み込みます
// 認証情報の有無はここでは検証しないため、起動時に Validate を呼び出してください
func LoadConfig() (*Config, error) {
	// .envファイルを読み込み（ファイルが存在しない場合は無視）
	if err := godotenv.Load(defaultDotEnvFilename); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "警告: .envファイルの読み込みに失敗しました: %v\n", err)
	}

	cfg := &Config{
		Gemini: config.GeminiConfig{
			APIKey:           getEnvOrDefault("GENAI_API_KEY", ""),
			BearerToken:      getEnvOrDefault("GENAI_BEARER", ""),
			BaseURL:          getEnvOrDefault("GENAI_BASE_URL", config.DefaultBaseURL),
			ModelName:        getEnvOrDefault("GENAI_MODEL", config.DefaultModelName),
			FallbackModel:    getEnvOrDefault("GENAI_FALLBACK_MODEL", ""),
			MaxRetries:       getEnvAsIntOrDefault("GENAI_RETRIES", config.DefaultRetries),
			BackoffUnit:      getEnvAsDurationOrDefault("GENAI_BACKOFF_UNIT", config.DefaultBackoffUnit),
			HTTPTimeout:      getEnvAsDurationOrDefault("GENAI_HTTP_TIMEOUT", config.DefaultHTTPTimeout),
			BodySnippetLimit: getEnvAsIntOrDefault("GENAI_BODY_SNIPPET_LIMIT", config.DefaultBodySnippetLimit),
			PreflightCheck:   getEnvAsBoolOrDefault("GENAI_PREFLIGHT", true),
		},
		Image: config.ImageConfig{
			MaxDimension:        getEnvAsIntOrDefault("IMAGE_MAX_DIMENSION", config.DefaultMaxDimension),
			MaxBytes:            getEnvAsIntOrDefault("IMAGE_MAX_BYTES", config.DefaultMaxImageBytes),
			MaxPixels:           getEnvAsIntOrDefault("IMAGE_MAX_PIXELS", config.DefaultMaxPixels),
			JPEGQuality:         getEnvAsIntOrDefault("IMAGE_JPEG_QUALITY", config.DefaultJPEGQuality),
			BlurThreshold:       getEnvAsFloatOrDefault("IMAGE_BLUR_THRESHOLD", config.DefaultBlurThreshold),
			ContrastThreshold:   getEnvAsFloatOrDefault("IMAGE_CONTRAST_THRESHOLD", config.DefaultContrastThreshold),
			ConfidenceThreshold: getEnvAsFloatOrDefault("DIAGNOSIS_CONFIDENCE_THRESHOLD", config.DefaultConfidenceThreshold),
		},
		Server: config.ServerConfig{
			Addr:             getEnvOrDefault("HTTP_ADDR", defaultHTTPAddr),
			RequestTimeout:   getEnvAsDurationOrDefault("REQUEST_TIMEOUT", defaultRequestTimeout),
			AllowOrigins:     getEnvAsListOrDefault("CORS_ALLOW_ORIGINS", []string{"*"}),
			ExposeDiagnostic: getEnvAsBoolOrDefault("DEBUG_DIAGNOSTICS", false),
			MaxQueryLength:   getEnvAsIntOrDefault("CHAT_MAX_QUERY_LENGTH", domain.DefaultMaxQueryLength),
		},
		Discord: config.DiscordConfig{
			BotToken:      getEnvOrDefault("DISCORD_BOT_TOKEN", ""),
			MaxAttachment: getEnvAsIntOrDefault("DISCORD_MAX_ATTACHMENT_BYTES", defaultMaxAttachment),
		},
		Log: config.LogConfig{
			Level:            getEnvOrDefault("LOG_LEVEL", defaultLogLevel),
			Format:           getEnvOrDefault("LOG_FORMAT", defaultLogFormat),
			SampleTick:       getEnvAsDurationOrDefault("LOG_SAMPLE_TICK", defaultLogSampleTick),
			SampleFirst:      getEnvAsIntOrDefault("LOG_SAMPLE_FIRST", defaultLogSampleFirst),
			SampleThereafter: getEnvAsIntOrDefault("LOG_SAMPLE_THEREAFTER", defaultLogSampleAfter),
		},
	}

	if err := cfg.ValidateBounds(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate は、起動時に必要な設定がすべて揃っているかを検証します
func (c *Config) Validate() error {
	if !c.Gemini.HasCredential() {
		return fmt.Errorf("GENAI_API_KEY または GENAI_BEARER を設定してください: %w", domain.ErrNotConfigured)
	}
	if strings.TrimSpace(c.Gemini.ModelName) == "" {
		return fmt.Errorf("GENAI_MODEL が設定されていません: %w", domain.ErrNotConfigured)
	}
	return c.ValidateBounds()
}

// ValidateDiscord は、Discord Botの起動に必要な設定を検証します
func (c *Config) ValidateDiscord() error {
	if c.Discord.BotToken == "" {
		return fmt.Errorf("DISCORD_BOT_TOKEN が設定されていません")
	}
	return c.Validate()
}

// ValidateBounds は、数値設定の範囲を検証します
func (c *Config) ValidateBounds() error {
	if c.Gemini.MaxRetries < 0 {
		return fmt.Errorf("GENAI_RETRIES は0以上である必要があります")
	}
	if c.Gemini.BackoffUnit < 0 {
		return fmt.Errorf("GENAI_BACKOFF_UNIT は0以上である必要があります")
	}
	if c.Gemini.HTTPTimeout < 0 {
		return fmt.Errorf("GENAI_HTTP_TIMEOUT は0以上である必要があります")
	}
	if c.Image.MaxDimension <= 0 {
		return fmt.Errorf("IMAGE_MAX_DIMENSION は正の整数である必要があります")
	}
	if c.Image.MaxBytes <= 0 {
		return fmt.Errorf("IMAGE_MAX_BYTES は正の整数である必要があります")
	}
	if c.Image.JPEGQuality < 1 || c.Image.JPEGQuality > 100 {
		return fmt.Errorf("IMAGE_JPEG_QUALITY は1から100の範囲である必要があります")
	}
	if c.Image.BlurThreshold < 0 || c.Image.ContrastThreshold < 0 {
		return fmt.Errorf("品質判定のしきい値は0以上である必要があります")
	}
	if c.Image.ConfidenceThreshold < 0 || c.Image.ConfidenceThreshold > 1 {
		return fmt.Errorf("DIAGNOSIS_CONFIDENCE_THRESHOLD は0から1の範囲である必要があります")
	}
	if c.Server.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT は正の値である必要があります")
	}
	return nil
}

// getEnvOrDefault は、環境変数を取得し、存在しない場合はデフォルト値を返します
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsIntOrDefault は、環境変数を整数として取得し、存在しない場合はデフォルト値を返します
func getEnvAsIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsFloatOrDefault は、環境変数を浮動小数点数として取得し、存在しない場合はデフォルト値を返します
func getEnvAsFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// getEnvAsDurationOrDefault は、環境変数を時間として取得し、存在しない場合はデフォルト値を返します
func getEnvAsDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getEnvAsBoolOrDefault は、環境変数を真偽値として取得し、存在しない場合はデフォルト値を返します
func getEnvAsBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvAsListOrDefault は、カンマ区切りの環境変数をリストとして取得します
func getEnvAsListOrDefault(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var list []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			list = append(list, item)
		}
	}
	if len(list) == 0 {
		return defaultValue
	}
	return list
}
