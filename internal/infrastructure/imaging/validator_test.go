package imaging

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"

	"kisanbot/internal/domain"
)

func TestValidator_Validate(t *testing.T) {
	pngBytes := encodePNG(t, checkerboard(40, 30, 4))
	jpegBytes := encodeJPEG(t, uniform(20, 10, color.RGBA{R: 10, G: 200, B: 30, A: 255}))

	tests := []struct {
		name       string
		data       []byte
		wantOK     bool
		wantReason domain.ValidationReason
		wantMIME   string
		wantW      int
		wantH      int
	}{
		{
			name:     "PNGは受け付ける",
			data:     pngBytes,
			wantOK:   true,
			wantMIME: domain.MIMEPNG,
			wantW:    40,
			wantH:    30,
		},
		{
			name:     "JPEGは受け付ける",
			data:     jpegBytes,
			wantOK:   true,
			wantMIME: domain.MIMEJPEG,
			wantW:    20,
			wantH:    10,
		},
		{
			name:       "空のバッファ",
			data:       nil,
			wantReason: domain.ReasonEmptyImage,
		},
		{
			name:       "GIFは非対応",
			data:       encodeGIF(t, checkerboard(8, 8, 2)),
			wantReason: domain.ReasonUnsupportedMIME,
		},
		{
			name:       "PDFは非対応",
			data:       []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\n"),
			wantReason: domain.ReasonUnsupportedMIME,
		},
		{
			name:       "ランダムなバイト列は破損扱い",
			data:       []byte{0x13, 0x37, 0xde, 0xad, 0xbe, 0xef, 0x00, 0x42},
			wantReason: domain.ReasonCorruptedImage,
		},
		{
			name:       "途中で切れたPNGは破損扱い",
			data:       pngBytes[:len(pngBytes)/2],
			wantReason: domain.ReasonCorruptedImage,
		},
	}

	v := NewValidator(0, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := v.Validate(domain.NewImageBuffer(tt.data, "", "leaf"))
			assert.Equal(t, tt.wantOK, got.OK)
			if tt.wantOK {
				assert.Empty(t, got.Reason)
				assert.Equal(t, tt.wantMIME, got.MIME)
				assert.Equal(t, tt.wantW, got.Width)
				assert.Equal(t, tt.wantH, got.Height)
				return
			}
			assert.Equal(t, tt.wantReason, got.Reason)
		})
	}
}

func TestValidator_MaxPixels(t *testing.T) {
	v := NewValidator(100, nil)
	got := v.Validate(domain.NewImageBuffer(encodePNG(t, checkerboard(20, 20, 2)), domain.MIMEPNG, ""))

	assert.False(t, got.OK)
	assert.Equal(t, domain.ReasonCorruptedImage, got.Reason)
}

func TestValidator_IgnoresDeclaredMIME(t *testing.T) {
	v := NewValidator(0, nil)
	got := v.Validate(domain.NewImageBuffer(encodePNG(t, checkerboard(4, 4, 1)), "image/gif", "leaf.gif"))

	assert.True(t, got.OK)
	assert.Equal(t, domain.MIMEPNG, got.MIME)
}
