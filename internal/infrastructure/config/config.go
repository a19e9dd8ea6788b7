package config

import "time"

// 既定値
const (
	DefaultBaseURL             = "https://generativelanguage.googleapis.com/v1beta"
	DefaultModelName           = "gemini-1.5-flash"
	DefaultRetries             = 1
	DefaultBackoffUnit         = 250 * time.Millisecond
	DefaultHTTPTimeout         = 60 * time.Second
	DefaultBodySnippetLimit    = 1000
	DefaultMaxDimension        = 1024
	DefaultMaxImageBytes       = 10 << 20
	DefaultMaxPixels           = 50_000_000
	DefaultJPEGQuality         = 90
	DefaultBlurThreshold       = 100.0
	DefaultContrastThreshold   = 20.0
	DefaultConfidenceThreshold = 0.6
)

// GeminiConfig は、生成モデルAPI関連の設定を定義します
type GeminiConfig struct {
	APIKey           string
	BearerToken      string
	BaseURL          string
	ModelName        string
	FallbackModel    string        // 代替モデル名（任意）
	MaxRetries       int           // 最大リトライ回数（初回を含まない）
	BackoffUnit      time.Duration // 線形バックオフの単位
	HTTPTimeout      time.Duration // 0の場合はタイムアウトなし
	BodySnippetLimit int           // 診断情報に含める応答本文の最大文字数
	PreflightCheck   bool          // チャット前にモデルの有効性を確認するか
}

// HasCredential は、APIキーまたはBearerトークンのいずれかが設定されているかを返します
func (c GeminiConfig) HasCredential() bool {
	return c.APIKey != "" || c.BearerToken != ""
}

// ImageConfig は、画像検証・前処理・品質判定の設定を定義します
type ImageConfig struct {
	MaxDimension        int
	MaxBytes            int
	MaxPixels           int
	JPEGQuality         int
	BlurThreshold       float64
	ContrastThreshold   float64
	ConfidenceThreshold float64
}

// ServerConfig は、HTTPサーバー関連の設定を定義します
type ServerConfig struct {
	Addr             string
	RequestTimeout   time.Duration
	AllowOrigins     []string
	ExposeDiagnostic bool // 応答にdiagnosticsを含めるか（デバッグ用）
	MaxQueryLength   int
}

// DiscordConfig は、Discord関連の設定を定義します
type DiscordConfig struct {
	BotToken      string
	MaxAttachment int
}

// LogConfig は、ログ出力の設定を定義します
type LogConfig struct {
	Level            string
	Format           string
	SampleTick       time.Duration
	SampleFirst      int
	SampleThereafter int
}

// DefaultGeminiConfig は、既定のGemini設定を返します
func DefaultGeminiConfig() *GeminiConfig {
	return &GeminiConfig{
		BaseURL:          DefaultBaseURL,
		ModelName:        DefaultModelName,
		MaxRetries:       DefaultRetries,
		BackoffUnit:      DefaultBackoffUnit,
		HTTPTimeout:      DefaultHTTPTimeout,
		BodySnippetLimit: DefaultBodySnippetLimit,
		PreflightCheck:   true,
	}
}

// DefaultImageConfig は、既定の画像設定を返します
func DefaultImageConfig() *ImageConfig {
	return &ImageConfig{
		MaxDimension:        DefaultMaxDimension,
		MaxBytes:            DefaultMaxImageBytes,
		MaxPixels:           DefaultMaxPixels,
		JPEGQuality:         DefaultJPEGQuality,
		BlurThreshold:       DefaultBlurThreshold,
		ContrastThreshold:   DefaultContrastThreshold,
		ConfidenceThreshold: DefaultConfidenceThreshold,
	}
}
