package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"math"

	"golang.org/x/image/draw"

	"kisanbot/internal/domain"
)

// Preprocessor は、検証済みの画像を上限寸法以内・アルファなしのJPEGへ正規化します
type Preprocessor struct {
	maxDimension int
	jpegQuality  int
	background   color.Color
}

// NewPreprocessor は新しいPreprocessorインスタンスを作成します
func NewPreprocessor(maxDimension, jpegQuality int) *Preprocessor {
	if jpegQuality <= 0 || jpegQuality > 100 {
		jpegQuality = jpeg.DefaultQuality
	}
	return &Preprocessor{
		maxDimension: maxDimension,
		jpegQuality:  jpegQuality,
		background:   color.White,
	}
}

// Preprocess は、画像をデコードし、縮小・アルファ平坦化・JPEG再エンコードを行います
func (p *Preprocessor) Preprocess(data []byte) (domain.ProcessedImage, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return domain.ProcessedImage{}, fmt.Errorf("%w: %v", domain.ErrImageDecode, err)
	}

	bounds := src.Bounds()
	if bounds.Dx() <= 0 || bounds.Dy() <= 0 {
		return domain.ProcessedImage{}, fmt.Errorf("%w: 寸法が0です", domain.ErrImageDecode)
	}

	width, height := FitWithin(bounds.Dx(), bounds.Dy(), p.maxDimension)
	dst := image.NewRGBA(image.Rect(0, 0, width, height))

	// 不透明な背景の上に合成してアルファチャンネルを取り除く
	draw.Draw(dst, dst.Bounds(), image.NewUniform(p.background), image.Point{}, draw.Src)
	if width == bounds.Dx() && height == bounds.Dy() {
		draw.Draw(dst, dst.Bounds(), src, bounds.Min, draw.Over)
	} else {
		draw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, draw.Over, nil)
	}

	var out bytes.Buffer
	if err := jpeg.Encode(&out, dst, &jpeg.Options{Quality: p.jpegQuality}); err != nil {
		return domain.ProcessedImage{}, fmt.Errorf("JPEGエンコードに失敗: %w", err)
	}

	return domain.ProcessedImage{
		Buffer: out.Bytes(),
		Width:  width,
		Height: height,
	}, nil
}

// FitWithin は、縦横比を保ったまま長辺がmaxDimension以下になる寸法を返します
// 拡大は行わず、maxDimensionが0以下の場合は元の寸法を返します
func FitWithin(width, height, maxDimension int) (int, int) {
	if maxDimension <= 0 || (width <= maxDimension && height <= maxDimension) {
		return width, height
	}

	if width >= height {
		scaled := int(math.Round(float64(height) * float64(maxDimension) / float64(width)))
		return maxDimension, clamp(scaled, 1, maxDimension)
	}
	scaled := int(math.Round(float64(width) * float64(maxDimension) / float64(height)))
	return clamp(scaled, 1, maxDimension), maxDimension
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
