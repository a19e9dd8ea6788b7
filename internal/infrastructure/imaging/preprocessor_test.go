package imaging

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kisanbot/internal/domain"
)

func TestFitWithin(t *testing.T) {
	tests := []struct {
		name         string
		w, h, max    int
		wantW, wantH int
	}{
		{name: "横長を縮小", w: 4000, h: 3000, max: 1024, wantW: 1024, wantH: 768},
		{name: "縦長を縮小", w: 1000, h: 2000, max: 1024, wantW: 512, wantH: 1024},
		{name: "正方形", w: 2048, h: 2048, max: 1024, wantW: 1024, wantH: 1024},
		{name: "上限以下は拡大しない", w: 640, h: 480, max: 1024, wantW: 640, wantH: 480},
		{name: "極端な縦横比でも1画素以上", w: 10000, h: 2, max: 100, wantW: 100, wantH: 1},
		{name: "上限0は元の寸法", w: 5000, h: 10, max: 0, wantW: 5000, wantH: 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, h := FitWithin(tt.w, tt.h, tt.max)
			assert.Equal(t, tt.wantW, w)
			assert.Equal(t, tt.wantH, h)
		})
	}
}

func TestPreprocessor_Preprocess(t *testing.T) {
	p := NewPreprocessor(64, 90)

	t.Run("長辺を上限へ縮小しJPEGを出力する", func(t *testing.T) {
		out, err := p.Preprocess(encodePNG(t, checkerboard(200, 100, 10)))
		require.NoError(t, err)

		assert.Equal(t, 64, out.Width)
		assert.Equal(t, 32, out.Height)
		assert.Equal(t, domain.MIMEJPEG, out.MIME())

		cfg, format, err := image.DecodeConfig(bytes.NewReader(out.Buffer))
		require.NoError(t, err)
		assert.Equal(t, "jpeg", format)
		assert.Equal(t, 64, cfg.Width)
		assert.Equal(t, 32, cfg.Height)
	})

	t.Run("小さい画像は拡大しない", func(t *testing.T) {
		out, err := p.Preprocess(encodePNG(t, checkerboard(20, 10, 2)))
		require.NoError(t, err)
		assert.Equal(t, 20, out.Width)
		assert.Equal(t, 10, out.Height)
	})

	t.Run("再処理しても寸法が変わらない", func(t *testing.T) {
		first, err := p.Preprocess(encodePNG(t, checkerboard(300, 90, 5)))
		require.NoError(t, err)
		second, err := p.Preprocess(first.Buffer)
		require.NoError(t, err)

		assert.Equal(t, first.Width, second.Width)
		assert.Equal(t, first.Height, second.Height)
	})

	t.Run("透明部分は白で平坦化される", func(t *testing.T) {
		transparent := image.NewNRGBA(image.Rect(0, 0, 16, 16))
		out, err := p.Preprocess(encodePNG(t, transparent))
		require.NoError(t, err)

		img, err := jpeg.Decode(bytes.NewReader(out.Buffer))
		require.NoError(t, err)
		r, g, b, _ := img.At(8, 8).RGBA()
		assert.Greater(t, r>>8, uint32(245))
		assert.Greater(t, g>>8, uint32(245))
		assert.Greater(t, b>>8, uint32(245))
	})

	t.Run("不透明な色は保たれる", func(t *testing.T) {
		out, err := p.Preprocess(encodePNG(t, uniform(16, 16, color.RGBA{R: 200, A: 255})))
		require.NoError(t, err)

		img, err := jpeg.Decode(bytes.NewReader(out.Buffer))
		require.NoError(t, err)
		r, g, _, _ := img.At(8, 8).RGBA()
		assert.Greater(t, r>>8, uint32(180))
		assert.Less(t, g>>8, uint32(40))
	})

	t.Run("デコードできない入力はErrImageDecode", func(t *testing.T) {
		_, err := p.Preprocess([]byte("not an image"))
		require.Error(t, err)
		assert.True(t, errors.Is(err, domain.ErrImageDecode))
	})
}
