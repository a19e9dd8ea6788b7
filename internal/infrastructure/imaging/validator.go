package imaging

import (
	"bytes"
	"image"
	"strings"

	// 対応形式と、判別のみ行う非対応形式のデコーダーを登録
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"

	"kisanbot/internal/domain"
)

// Validator は、アップロードされた画像が対応形式の正しい画像かどうかを検証します
type Validator struct {
	maxPixels int
	logger    *zap.Logger
}

// NewValidator は新しいValidatorインスタンスを作成します
func NewValidator(maxPixels int, logger *zap.Logger) *Validator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Validator{
		maxPixels: maxPixels,
		logger:    logger,
	}
}

// Validate は、画像バッファを検証します
// 不正な入力に対しても常に結果を返し、パニックを外へ伝播させません
func (v *Validator) Validate(buf domain.ImageBuffer) (result domain.ValidationResult) {
	if buf.Len() == 0 {
		return domain.InvalidImage(domain.ReasonEmptyImage)
	}

	defer func() {
		if r := recover(); r != nil {
			v.logger.Error("画像デコーダーがパニックしました",
				zap.String("filename", buf.Filename),
				zap.Any("panic", r))
			result = domain.InvalidImage(domain.ReasonCorruptedImage)
		}
	}()

	cfg, format, err := image.DecodeConfig(bytes.NewReader(buf.Data))
	if err != nil {
		return v.classifyUndecodable(buf, err)
	}

	mime := "image/" + format
	if !domain.IsSupportedMIME(mime) {
		v.logger.Info("非対応の画像形式です",
			zap.String("filename", buf.Filename),
			zap.String("format", format))
		return domain.InvalidImage(domain.ReasonUnsupportedMIME)
	}

	if cfg.Width <= 0 || cfg.Height <= 0 {
		v.logger.Warn("画像の寸法が不正です",
			zap.String("filename", buf.Filename),
			zap.Int("width", cfg.Width),
			zap.Int("height", cfg.Height))
		return domain.InvalidImage(domain.ReasonCorruptedImage)
	}

	if v.maxPixels > 0 && cfg.Width*cfg.Height > v.maxPixels {
		v.logger.Warn("画素数が上限を超えています",
			zap.String("filename", buf.Filename),
			zap.Int("width", cfg.Width),
			zap.Int("height", cfg.Height),
			zap.Int("max_pixels", v.maxPixels))
		return domain.InvalidImage(domain.ReasonCorruptedImage)
	}

	// ヘッダーだけ正しく本体が壊れている画像を弾くため、全体をデコードする
	if _, _, err := image.Decode(bytes.NewReader(buf.Data)); err != nil {
		v.logger.Warn("画像本体のデコードに失敗しました",
			zap.String("filename", buf.Filename),
			zap.String("format", format),
			zap.Error(err))
		return domain.InvalidImage(domain.ReasonCorruptedImage)
	}

	return domain.ValidImage(cfg.Width, cfg.Height, mime)
}

// classifyUndecodable は、デコードできないバイト列を非対応形式か破損かに分類します
func (v *Validator) classifyUndecodable(buf domain.ImageBuffer, decodeErr error) domain.ValidationResult {
	detected := mimetype.Detect(buf.Data)
	detectedMIME := detected.String()
	if i := strings.IndexByte(detectedMIME, ';'); i >= 0 {
		detectedMIME = detectedMIME[:i]
	}

	fields := []zap.Field{
		zap.String("filename", buf.Filename),
		zap.String("declared_mime", buf.DeclaredMIME),
		zap.String("detected_mime", detectedMIME),
		zap.Error(decodeErr),
	}

	if isRecognizedForeignFormat(detectedMIME) {
		v.logger.Info("画像として扱えない形式です", fields...)
		return domain.InvalidImage(domain.ReasonUnsupportedMIME)
	}

	v.logger.Warn("画像の検証に失敗しました", fields...)
	return domain.InvalidImage(domain.ReasonCorruptedImage)
}

// isRecognizedForeignFormat は、認識はできるが対応していない形式かどうかを判定します
// 対応形式として検出されたのにデコードできない場合は破損とみなします
func isRecognizedForeignFormat(detected string) bool {
	switch {
	case detected == "", detected == "application/octet-stream", detected == "text/plain":
		return false
	case domain.IsSupportedMIME(detected):
		return false
	default:
		return true
	}
}
