package configs

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kisanbot/internal/domain"
	"kisanbot/internal/infrastructure/config"
)

func validConfig() *Config {
	return &Config{
		Gemini: config.GeminiConfig{
			APIKey:      "test-api-key",
			ModelName:   "gemini-1.5-flash",
			MaxRetries:  1,
			BackoffUnit: 250 * time.Millisecond,
			HTTPTimeout: time.Minute,
		},
		Image:   *config.DefaultImageConfig(),
		Server:  config.ServerConfig{RequestTimeout: 30 * time.Second},
		Discord: config.DiscordConfig{BotToken: "discord-token"},
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name          string
		mutate        func(c *Config)
		wantErr       bool
		wantNotConfig bool
	}{
		{name: "有効な設定", mutate: func(c *Config) {}},
		{name: "Bearerトークンのみでも有効", mutate: func(c *Config) { c.Gemini.APIKey = ""; c.Gemini.BearerToken = "token" }},
		{name: "認証情報なし", mutate: func(c *Config) { c.Gemini.APIKey = "" }, wantErr: true, wantNotConfig: true},
		{name: "モデル名なし", mutate: func(c *Config) { c.Gemini.ModelName = " " }, wantErr: true, wantNotConfig: true},
		{name: "負のリトライ回数", mutate: func(c *Config) { c.Gemini.MaxRetries = -1 }, wantErr: true},
		{name: "最大寸法が0", mutate: func(c *Config) { c.Image.MaxDimension = 0 }, wantErr: true},
		{name: "JPEG品質が範囲外", mutate: func(c *Config) { c.Image.JPEGQuality = 101 }, wantErr: true},
		{name: "信頼度しきい値が範囲外", mutate: func(c *Config) { c.Image.ConfidenceThreshold = 1.5 }, wantErr: true},
		{name: "タイムアウトが0", mutate: func(c *Config) { c.Server.RequestTimeout = 0 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.wantNotConfig, errors.Is(err, domain.ErrNotConfigured))
		})
	}
}

func TestConfig_ValidateDiscord(t *testing.T) {
	cfg := validConfig()
	assert.NoError(t, cfg.ValidateDiscord())

	cfg.Discord.BotToken = ""
	assert.Error(t, cfg.ValidateDiscord())
}

func TestLoadConfig_Defaults(t *testing.T) {
	for _, key := range []string{
		"GENAI_API_KEY", "GENAI_BEARER", "GENAI_MODEL", "GENAI_RETRIES", "GENAI_BACKOFF_UNIT",
		"IMAGE_MAX_DIMENSION", "IMAGE_BLUR_THRESHOLD", "CORS_ALLOW_ORIGINS", "REQUEST_TIMEOUT",
	} {
		t.Setenv(key, "")
	}

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, config.DefaultModelName, cfg.Gemini.ModelName)
	assert.Equal(t, 1, cfg.Gemini.MaxRetries)
	assert.Equal(t, 250*time.Millisecond, cfg.Gemini.BackoffUnit)
	assert.Equal(t, 1024, cfg.Image.MaxDimension)
	assert.Equal(t, 100.0, cfg.Image.BlurThreshold)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowOrigins)
	assert.Equal(t, 90*time.Second, cfg.Server.RequestTimeout)
	assert.False(t, cfg.Gemini.HasCredential())
	assert.True(t, errors.Is(cfg.Validate(), domain.ErrNotConfigured))
}

func TestLoadConfig_FromEnv(t *testing.T) {
	t.Setenv("GENAI_API_KEY", "k")
	t.Setenv("GENAI_FALLBACK_MODEL", "gemini-1.5-pro")
	t.Setenv("GENAI_RETRIES", "2")
	t.Setenv("GENAI_BACKOFF_UNIT", "10ms")
	t.Setenv("IMAGE_MAX_DIMENSION", "512")
	t.Setenv("IMAGE_CONTRAST_THRESHOLD", "12.5")
	t.Setenv("CORS_ALLOW_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("DEBUG_DIAGNOSTICS", "true")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.NoError(t, cfg.Validate())
	assert.Equal(t, "gemini-1.5-pro", cfg.Gemini.FallbackModel)
	assert.Equal(t, 2, cfg.Gemini.MaxRetries)
	assert.Equal(t, 10*time.Millisecond, cfg.Gemini.BackoffUnit)
	assert.Equal(t, 512, cfg.Image.MaxDimension)
	assert.Equal(t, 12.5, cfg.Image.ContrastThreshold)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.AllowOrigins)
	assert.True(t, cfg.Server.ExposeDiagnostic)
}

func TestLoadConfig_InvalidBounds(t *testing.T) {
	t.Setenv("IMAGE_JPEG_QUALITY", "0")

	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestGetEnvHelpers(t *testing.T) {
	t.Setenv("TEST_INT", "abc")
	t.Setenv("TEST_BOOL", "yes")
	t.Setenv("TEST_DURATION", "5s")

	assert.Equal(t, 7, getEnvAsIntOrDefault("TEST_INT", 7))
	assert.True(t, getEnvAsBoolOrDefault("TEST_BOOL", true))
	assert.Equal(t, 5*time.Second, getEnvAsDurationOrDefault("TEST_DURATION", time.Second))
	assert.Equal(t, []string{"x"}, getEnvAsListOrDefault("TEST_MISSING_LIST", []string{"x"}))
}
