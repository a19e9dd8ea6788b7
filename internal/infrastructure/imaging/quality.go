package imaging

import (
	"bytes"
	"fmt"
	"image"
	"math"

	"golang.org/x/image/draw"

	"kisanbot/internal/domain"
)

// laplacianKernel は、ぼやけ検出に使う離散ラプラシアンです
var laplacianKernel = [3][3]float64{
	{0, 1, 0},
	{1, -4, 1},
	{0, 1, 0},
}

// QualityAnalyzer は、ぼやけとコントラストのヒューリスティクスを計算します
type QualityAnalyzer struct {
	blurThreshold     float64
	contrastThreshold float64
}

// NewQualityAnalyzer は新しいQualityAnalyzerインスタンスを作成します
func NewQualityAnalyzer(blurThreshold, contrastThreshold float64) *QualityAnalyzer {
	return &QualityAnalyzer{
		blurThreshold:     blurThreshold,
		contrastThreshold: contrastThreshold,
	}
}

// Analyze は、前処理済み画像のバイト列から品質レポートを作成します
func (a *QualityAnalyzer) Analyze(buffer []byte) (domain.QualityReport, error) {
	img, _, err := image.Decode(bytes.NewReader(buffer))
	if err != nil {
		return domain.QualityReport{}, fmt.Errorf("品質判定用の画像寸法を取得できません: %w", err)
	}
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return domain.QualityReport{}, fmt.Errorf("品質判定用の画像寸法を取得できません: %dx%d", b.Dx(), b.Dy())
	}
	return a.AnalyzeImage(img), nil
}

// AnalyzeImage は、デコード済み画像から品質レポートを作成します
func (a *QualityAnalyzer) AnalyzeImage(img image.Image) domain.QualityReport {
	variance := LaplacianVariance(toGray(img))
	stddev := MaxChannelStdDev(img)

	return domain.QualityReport{
		IsBlurry:      variance < a.blurThreshold,
		IsLowContrast: stddev < a.contrastThreshold,
		Metrics: domain.QualityMetrics{
			LaplacianVariance: variance,
			MaxChannelStdDev:  stddev,
		},
	}
}

// LaplacianVariance は、グレースケール画像にラプラシアンを畳み込んだ応答値の分散を返します
// 境界の画素は畳み込み対象外とし、3x3未満の画像では0を返します
func LaplacianVariance(gray *image.Gray) float64 {
	b := gray.Bounds()
	w, h := b.Dx(), b.Dy()
	if w < 3 || h < 3 {
		return 0
	}

	n := float64((w - 2) * (h - 2))
	var sum, sumSq float64
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			var acc float64
			for ky := -1; ky <= 1; ky++ {
				row := gray.Pix[(y+ky)*gray.Stride:]
				for kx := -1; kx <= 1; kx++ {
					k := laplacianKernel[ky+1][kx+1]
					if k == 0 {
						continue
					}
					acc += k * float64(row[x+kx])
				}
			}
			sum += acc
			sumSq += acc * acc
		}
	}

	mean := sum / n
	return math.Max(sumSq/n-mean*mean, 0)
}

// MaxChannelStdDev は、R・G・B各チャンネルの標準偏差のうち最大のものを返します
func MaxChannelStdDev(img image.Image) float64 {
	b := img.Bounds()
	n := float64(b.Dx() * b.Dy())
	if n == 0 {
		return 0
	}

	var sum, sumSq [3]float64
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			for i, v := range [3]uint32{r >> 8, g >> 8, bl >> 8} {
				f := float64(v)
				sum[i] += f
				sumSq[i] += f * f
			}
		}
	}

	maxStd := 0.0
	for i := 0; i < 3; i++ {
		mean := sum[i] / n
		variance := math.Max(sumSq[i]/n-mean*mean, 0)
		maxStd = math.Max(maxStd, math.Sqrt(variance))
	}
	return maxStd
}

// toGray は、画像を原点基準の8bitグレースケールへ変換します
func toGray(img image.Image) *image.Gray {
	b := img.Bounds()
	gray := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(gray, gray.Bounds(), img, b.Min, draw.Src)
	return gray
}
