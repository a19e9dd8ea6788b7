package logging

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"kisanbot/internal/infrastructure/config"
)

// NewLogger は、設定に従ってzapロガーを作成します
// 同一メッセージはサンプラーで間引かれるため、設定不備などの警告が大量に出力されることはありません
func NewLogger(cfg config.LogConfig) (*zap.Logger, error) {
	level := zap.NewAtomicLevel()
	if err := level.UnmarshalText([]byte(strings.ToLower(cfg.Level))); err != nil {
		return nil, fmt.Errorf("ログレベルの解析に失敗: %w", err)
	}

	var zcfg zap.Config
	if cfg.Format == "console" {
		zcfg = zap.NewDevelopmentConfig()
	} else {
		zcfg = zap.NewProductionConfig()
	}
	zcfg.Level = level
	// サンプリングは下のWrapCoreで行う
	zcfg.Sampling = nil

	tick := cfg.SampleTick
	if tick <= 0 {
		tick = time.Minute
	}
	first := cfg.SampleFirst
	if first <= 0 {
		first = 1
	}
	thereafter := cfg.SampleThereafter
	if thereafter <= 0 {
		thereafter = 100
	}

	return zcfg.Build(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
		return zapcore.NewSamplerWithOptions(core, tick, first, thereafter)
	}))
}

// Must は、ロガー作成に失敗した場合にNopロガーを返します
func Must(logger *zap.Logger, err error) *zap.Logger {
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

var (
	keyParamPattern = regexp.MustCompile(`(?i)([?&]key=)[^&\s"]+`)
	bearerPattern   = regexp.MustCompile(`(?i)(bearer\s+)[A-Za-z0-9._\-~+/]+=*`)
)

// Redact は、文字列中のAPIキーとBearerトークンを伏せ字にします
func Redact(s string) string {
	s = keyParamPattern.ReplaceAllString(s, "${1}REDACTED")
	return bearerPattern.ReplaceAllString(s, "${1}REDACTED")
}

// RedactURL は、URLのクエリからAPIキーを取り除いた文字列を返します
func RedactURL(u *url.URL) string {
	if u == nil {
		return ""
	}
	clone := *u
	q := clone.Query()
	if q.Has("key") {
		q.Set("key", "REDACTED")
		clone.RawQuery = q.Encode()
	}
	return clone.String()
}
