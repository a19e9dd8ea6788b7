package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"kisanbot/internal/domain"
	"kisanbot/internal/infrastructure/metrics"
)

// Payload は、generateContent へ送信するリクエスト本文です
type Payload struct {
	Contents         []*genai.Content        `json:"contents"`
	GenerationConfig *genai.GenerationConfig `json:"generationConfig,omitempty"`
}

// NewPayload は、プロンプトと任意の画像から単一ターンのリクエスト本文を作成します
// responseMIMEType が空でなければ、応答形式として指定します
func NewPayload(prompt domain.Prompt, image []byte, imageMIME, responseMIMEType string) *Payload {
	parts := []*genai.Part{genai.NewPartFromText(prompt.Content)}
	if len(image) > 0 {
		parts = append(parts, genai.NewPartFromBytes(image, imageMIME))
	}

	payload := &Payload{
		Contents: []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)},
	}
	if responseMIMEType != "" {
		payload.GenerationConfig = &genai.GenerationConfig{ResponseMIMEType: responseMIMEType}
	}
	return payload
}

// InvokeResult は、Invokeの結果です
// 成功時はResponseとTextが、失敗時はDiagnosticsが設定されます
type InvokeResult struct {
	Response    *genai.GenerateContentResponse
	Text        string
	Attempts    int
	Diagnostics *domain.Diagnostics
}

// OK は、呼び出しが成功したかどうかを返します
func (r InvokeResult) OK() bool {
	return r.Diagnostics == nil
}

// invokeSettings は、Invoke 1回分の設定です
type invokeSettings struct {
	retries int
}

// InvokeOption は、Invoke 1回分の設定を変更します
type InvokeOption func(*invokeSettings)

// WithRetries は、初回を含まないリトライ回数を指定します
// 非2xx応答・空の候補・ネットワーク障害はすべて同じ回数だけ再試行されます
func WithRetries(n int) InvokeOption {
	return func(s *invokeSettings) {
		if n >= 0 {
			s.retries = n
		}
	}
}

// Invoke は、指定モデルへ generateContent を送信します
// リモート側の失敗はエラーではなくDiagnostics付きの結果として返します
// errorを返すのは、認証情報の未設定・リクエスト作成の失敗・コンテキストの取り消しのみです
func (c *Client) Invoke(ctx context.Context, model domain.ModelID, payload *Payload, opts ...InvokeOption) (InvokeResult, error) {
	if !c.IsConfigured() {
		return InvokeResult{}, domain.ErrNotConfigured
	}
	if model.IsZero() {
		model = c.DefaultModel()
	}
	if model.IsZero() {
		return InvokeResult{}, fmt.Errorf("%w: モデルIDが未設定です", domain.ErrNotConfigured)
	}

	settings := invokeSettings{retries: c.config.MaxRetries}
	for _, opt := range opts {
		opt(&settings)
	}
	maxAttempts := settings.retries + 1

	logger := c.logger.With(zap.String("model", model.Short()))

	var lastErr *domain.InvocationError
	attempt := 0
	for attempt = 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			// 線形バックオフで待機
			backoffDuration := c.config.BackoffUnit * time.Duration(attempt-1)
			logger.Info("生成モデル呼び出しをリトライします",
				zap.Int("attempt", attempt),
				zap.Int("max_attempts", maxAttempts),
				zap.Duration("backoff", backoffDuration))

			select {
			case <-ctx.Done():
				return InvokeResult{Attempts: attempt - 1}, ctx.Err()
			case <-time.After(backoffDuration):
			}
		}

		resp, text, err := c.attempt(ctx, model, payload)
		if err == nil {
			metrics.ModelAttempts.WithLabelValues(model.Short(), metrics.ResultOK).Inc()
			return InvokeResult{Response: resp, Text: text, Attempts: attempt}, nil
		}

		invErr, ok := domain.AsInvocationError(err)
		if !ok {
			return InvokeResult{Attempts: attempt}, err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return InvokeResult{Attempts: attempt}, ctxErr
		}

		lastErr = invErr
		metrics.ModelAttempts.WithLabelValues(model.Short(), string(invErr.Kind)).Inc()
		logger.Warn("生成モデル呼び出しに失敗",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", maxAttempts),
			zap.Int("status", invErr.HTTPStatus),
			zap.String("kind", string(invErr.Kind)),
			zap.Bool("transient", invErr.Transient),
			zap.String("message", invErr.Message))
	}
	if attempt > maxAttempts {
		attempt = maxAttempts
	}

	diagnostics := c.buildDiagnostics(ctx, model, attempt, lastErr)
	logger.Error("生成モデル呼び出しが失敗しました",
		zap.Int("status", diagnostics.Status),
		zap.Int("attempts", diagnostics.Attempt),
		zap.String("body_snippet", diagnostics.BodySnippet),
		zap.Strings("available_models", diagnostics.AvailableModels))

	return InvokeResult{Attempts: attempt, Diagnostics: diagnostics}, nil
}

// attempt は、1回分のHTTP呼び出しを行い、応答を検証します
func (c *Client) attempt(ctx context.Context, model domain.ModelID, payload *Payload) (*genai.GenerateContentResponse, string, error) {
	path := model.ResourceName() + ":" + domain.GenerateContentMethod
	req, err := c.newRequest(ctx, http.MethodPost, path, nil, payload)
	if err != nil {
		return nil, "", err
	}

	started := time.Now()
	raw, err := c.do(req)
	metrics.ModelLatency.WithLabelValues(model.Short()).Observe(time.Since(started).Seconds())
	if err != nil {
		return nil, "", err
	}

	if raw.status < 200 || raw.status >= 300 {
		return nil, "", httpError(raw)
	}

	var resp genai.GenerateContentResponse
	if err := json.Unmarshal(raw.body, &resp); err != nil {
		// 200だが解析できない応答はソフト失敗として扱う
		return nil, "", domain.NewEmptyResponseError(raw.status, string(raw.body))
	}

	text, ok := candidateText(&resp)
	if !ok {
		return nil, "", domain.NewEmptyResponseError(raw.status, string(raw.body))
	}
	return &resp, text, nil
}

// candidateText は、最初の有効な候補のテキストを連結して返します
// 思考過程のパートは除外します
func candidateText(resp *genai.GenerateContentResponse) (string, bool) {
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		var builder strings.Builder
		for _, part := range candidate.Content.Parts {
			if part == nil || part.Thought {
				continue
			}
			builder.WriteString(part.Text)
		}
		if text := builder.String(); strings.TrimSpace(text) != "" {
			return text, true
		}
	}
	return "", false
}

// buildDiagnostics は、最後の失敗から診断情報を作成します
// 404の場合はモデル一覧を取得して添付しますが、その失敗はログに残すのみです
func (c *Client) buildDiagnostics(ctx context.Context, model domain.ModelID, attempts int, lastErr *domain.InvocationError) *domain.Diagnostics {
	diagnostics := &domain.Diagnostics{
		ModelID: model.Short(),
		Attempt: attempts,
	}
	if lastErr == nil {
		return diagnostics
	}

	diagnostics.Status = lastErr.HTTPStatus
	diagnostics.StatusText = lastErr.StatusText
	diagnostics.Kind = lastErr.Kind
	body := lastErr.Body
	if body == "" {
		body = lastErr.Message
	}
	diagnostics.BodySnippet = Truncate(body, c.config.BodySnippetLimit)

	if lastErr.HTTPStatus == http.StatusNotFound {
		models, err := c.ListModels(ctx)
		if err != nil {
			c.logger.Warn("診断用のモデル一覧取得に失敗しました", zap.Error(err))
		} else {
			diagnostics.AvailableModels = domain.GenerationCapableIDs(models)
		}
	}
	return diagnostics
}

// Truncate は、文字列を最大limit文字に切り詰めます。limitが0以下なら切り詰めません
func Truncate(s string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit])
}

// IsContextError は、コンテキストの取り消しまたは期限切れによるエラーかどうかを返します
func IsContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
