package domain

import "fmt"

// 対応するMIMEタイプ
const (
	MIMEJPEG = "image/jpeg"
	MIMEPNG  = "image/png"
	MIMEWEBP = "image/webp"
)

// SupportedMIMETypes は、診断に受け付ける画像形式の一覧です
var SupportedMIMETypes = []string{MIMEJPEG, MIMEPNG, MIMEWEBP}

// IsSupportedMIME は、指定されたMIMEタイプが受付対象かどうかを判定します
func IsSupportedMIME(mime string) bool {
	for _, m := range SupportedMIMETypes {
		if m == mime {
			return true
		}
	}
	return false
}

// ImageBuffer は、アップロードされた画像の生バイトと申告(または推定)されたMIMEタイプです
// リクエスト内でのみ使用され、受信後に変更されることはありません
type ImageBuffer struct {
	Data         []byte
	DeclaredMIME string
	Filename     string
}

// NewImageBuffer は新しいImageBufferを作成します
func NewImageBuffer(data []byte, declaredMIME, filename string) ImageBuffer {
	return ImageBuffer{
		Data:         data,
		DeclaredMIME: declaredMIME,
		Filename:     filename,
	}
}

// Len は、画像のバイト数を返します
func (b ImageBuffer) Len() int {
	return len(b.Data)
}

// ValidationReason は、画像検証に失敗した理由です
type ValidationReason string

const (
	ReasonUnsupportedMIME ValidationReason = "UNSUPPORTED_MIME"
	ReasonCorruptedImage  ValidationReason = "CORRUPTED_IMAGE"
	ReasonEmptyImage      ValidationReason = "EMPTY_IMAGE"
)

// ValidationResult は、画像検証の結果を表す値オブジェクトです
type ValidationResult struct {
	OK     bool             `json:"ok"`
	Reason ValidationReason `json:"reason,omitempty"`
	Width  int              `json:"width,omitempty"`
	Height int              `json:"height,omitempty"`
	MIME   string           `json:"mime,omitempty"`
}

// ValidImage は、検証成功の結果を作成します
func ValidImage(width, height int, mime string) ValidationResult {
	return ValidationResult{OK: true, Width: width, Height: height, MIME: mime}
}

// InvalidImage は、検証失敗の結果を作成します
func InvalidImage(reason ValidationReason) ValidationResult {
	return ValidationResult{OK: false, Reason: reason}
}

// ErrorCode は、検証失敗理由を診断結果のエラーコードへ変換します
func (r ValidationResult) ErrorCode() ErrorCode {
	if r.Reason == ReasonUnsupportedMIME {
		return CodeUnsupportedImageType
	}
	return CodeInvalidImage
}

// ProcessedImage は、前処理済みの画像です
// 長辺は最大寸法以下、アルファチャンネルなし、JPEGエンコード済みであることが保証されます
type ProcessedImage struct {
	Buffer []byte
	Width  int
	Height int
}

// MIME は、前処理済み画像のMIMEタイプを返します
func (p ProcessedImage) MIME() string {
	return MIMEJPEG
}

// String はProcessedImageの文字列表現を返します
func (p ProcessedImage) String() string {
	return fmt.Sprintf("ProcessedImage{%dx%d, %d bytes}", p.Width, p.Height, len(p.Buffer))
}

// QualityMetrics は、品質判定に使った生の統計値です
type QualityMetrics struct {
	LaplacianVariance float64 `json:"laplacianVariance"`
	MaxChannelStdDev  float64 `json:"maxChannelStdDev"`
}

// QualityReport は、画像品質ヒューリスティクスの判定結果です
type QualityReport struct {
	IsBlurry      bool           `json:"isBlurry"`
	IsLowContrast bool           `json:"isLowContrast"`
	Metrics       QualityMetrics `json:"metrics"`
}

// HasIssue は、何らかの品質問題があるかどうかを返します
func (q QualityReport) HasIssue() bool {
	return q.IsBlurry || q.IsLowContrast
}
