package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"kisanbot/internal/domain"
	"kisanbot/internal/infrastructure/config"
	"kisanbot/internal/infrastructure/logging"
)

// oauthAccessTokenPrefix は、APIキー欄にOAuthアクセストークンが設定された場合の判別に使います
const oauthAccessTokenPrefix = "ya29."

// Client は、生成モデルのREST APIと通信するクライアントです
// generateContent 呼び出しとモデル一覧の取得を担当します
type Client struct {
	httpClient *http.Client
	config     *config.GeminiConfig
	logger     *zap.Logger
}

// Option は、Clientの生成オプションです
type Option func(*Client)

// WithHTTPClient は、使用するHTTPクライアントを差し替えます
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithLogger は、ロガーを設定します
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient は新しいClientインスタンスを作成します
func NewClient(geminiConfig *config.GeminiConfig, opts ...Option) *Client {
	if geminiConfig == nil {
		geminiConfig = config.DefaultGeminiConfig()
	}

	c := &Client{
		httpClient: &http.Client{Timeout: geminiConfig.HTTPTimeout},
		config:     geminiConfig,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// DefaultModel は、設定された既定のモデルIDを返します
func (c *Client) DefaultModel() domain.ModelID {
	return domain.ModelID(c.config.ModelName)
}

// FallbackModel は、設定された代替モデルIDを返します(未設定なら空)
func (c *Client) FallbackModel() domain.ModelID {
	return domain.ModelID(c.config.FallbackModel)
}

// IsConfigured は、認証情報が設定されているかどうかを返します
func (c *Client) IsConfigured() bool {
	return c.config.HasCredential()
}

// bearerToken は、Authorizationヘッダーに使用するトークンを返します
// Bearerトークンが設定されていればそれを優先し、APIキー欄のOAuthトークンもBearerとして扱います
func (c *Client) bearerToken() string {
	if c.config.BearerToken != "" {
		return c.config.BearerToken
	}
	if strings.HasPrefix(c.config.APIKey, oauthAccessTokenPrefix) {
		return c.config.APIKey
	}
	return ""
}

// endpoint は、ベースURLとパスからリクエストURLを組み立て、必要ならAPIキーを付与します
func (c *Client) endpoint(path string, query url.Values) (*url.URL, error) {
	base := strings.TrimRight(c.config.BaseURL, "/")
	if base == "" {
		base = config.DefaultBaseURL
	}

	u, err := url.Parse(base + "/" + strings.TrimLeft(path, "/"))
	if err != nil {
		return nil, fmt.Errorf("エンドポイントURLの組み立てに失敗: %w", err)
	}

	q := u.Query()
	for k, vs := range query {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	if c.bearerToken() == "" && c.config.APIKey != "" {
		q.Set("key", c.config.APIKey)
	}
	u.RawQuery = q.Encode()
	return u, nil
}

// newRequest は、認証情報を付与したHTTPリクエストを作成します
func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body any) (*http.Request, error) {
	if !c.IsConfigured() {
		return nil, domain.ErrNotConfigured
	}

	u, err := c.endpoint(path, query)
	if err != nil {
		return nil, err
	}

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("リクエスト本文のエンコードに失敗: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return nil, fmt.Errorf("リクエストの作成に失敗: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if token := c.bearerToken(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, nil
}

// rawResponse は、1回のHTTP呼び出しの結果です
type rawResponse struct {
	status int
	body   []byte
}

// do は、リクエストを送信して本文を読み取ります
// ネットワーク障害はInvocationErrorへ正規化されます
func (c *Client) do(req *http.Request) (*rawResponse, error) {
	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		// *url.Error はURL(APIキーを含む)を保持しているため、伏せ字にしてから扱う
		return nil, domain.NewNetworkInvocationError(errors.New(logging.Redact(err.Error())))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, domain.NewNetworkInvocationError(fmt.Errorf("応答本文の読み取りに失敗: %s", logging.Redact(err.Error())))
	}

	c.logger.Debug("生成モデルAPIの応答を受信",
		zap.String("method", req.Method),
		zap.String("url", logging.RedactURL(req.URL)),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(started)))

	return &rawResponse{status: resp.StatusCode, body: body}, nil
}

// apiErrorEnvelope は、エラー応答 `{error: {...}}` の形式です
type apiErrorEnvelope struct {
	Error *genai.APIError `json:"error"`
}

// httpError は、非2xx応答をInvocationErrorへ変換します
func httpError(raw *rawResponse) *domain.InvocationError {
	message := http.StatusText(raw.status)
	var envelope apiErrorEnvelope
	if err := json.Unmarshal(raw.body, &envelope); err == nil && envelope.Error != nil && envelope.Error.Message != "" {
		message = envelope.Error.Message
	}
	return domain.NewHTTPInvocationError(raw.status, logging.Redact(message), logging.Redact(string(raw.body)))
}
