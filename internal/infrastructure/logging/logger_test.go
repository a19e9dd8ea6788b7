package logging

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"kisanbot/internal/infrastructure/config"
)

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger(config.LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, logger)

	_, err = NewLogger(config.LogConfig{Level: "loud"})
	assert.Error(t, err)
}

func TestMust(t *testing.T) {
	assert.NotNil(t, Must(nil, assert.AnError))
	l := zap.NewNop()
	assert.Same(t, l, Must(l, nil))
}

func TestRedact(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"クエリのキー", "GET https://x/v1beta/models?key=AIzaSECRET&pageSize=10", "GET https://x/v1beta/models?key=REDACTED&pageSize=10"},
		{"Bearer", "Authorization: Bearer ya29.abc-DEF_123", "Authorization: Bearer REDACTED"},
		{"対象なし", "plain message", "plain message"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Redact(tt.in))
		})
	}
}

func TestRedactURL(t *testing.T) {
	u, err := url.Parse("https://example.com/v1beta/models/gemini:generateContent?key=SECRET")
	require.NoError(t, err)

	got := RedactURL(u)
	assert.NotContains(t, got, "SECRET")
	assert.Contains(t, got, "key=REDACTED")
	assert.Equal(t, "SECRET", u.Query().Get("key"))
	assert.Equal(t, "", RedactURL(nil))
}
