package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// ドメイン固有のエラー型を定義
var (
	// ErrEmptyImage は、画像データが空の場合のエラーです
	ErrEmptyImage = errors.New("画像データが空です")

	// ErrImageTooLarge は、画像データがサイズ上限を超えている場合のエラーです
	ErrImageTooLarge = errors.New("画像データがサイズ上限を超えています")

	// ErrInvalidDataURI は、data URIの形式が不正な場合のエラーです
	ErrInvalidDataURI = errors.New("data URIの形式が不正です")

	// ErrImageDecode は、画像のデコードに失敗した場合のエラーです
	ErrImageDecode = errors.New("画像のデコードに失敗しました")

	// ErrNotConfigured は、認証情報またはモデルが設定されていない場合のエラーです
	ErrNotConfigured = errors.New("生成モデルの認証情報が設定されていません")

	// ErrInvalidDiagnosis は、モデル出力が診断スキーマに適合しない場合のエラーです
	ErrInvalidDiagnosis = errors.New("モデル出力が診断スキーマに適合しません")

	// ErrInvalidPrompt は、無効なプロンプトの場合のエラーです
	ErrInvalidPrompt = errors.New("無効なプロンプトです")
)

// FailureKind は、モデル呼び出しの失敗の種類です
type FailureKind string

const (
	// FailureTransport は、非2xxのHTTP応答です
	FailureTransport FailureKind = "transport"
	// FailureEmpty は、HTTP 200だが候補が空の応答(ソフト失敗)です
	FailureEmpty FailureKind = "empty_response"
	// FailureNetwork は、応答を受け取る前のネットワーク障害です
	FailureNetwork FailureKind = "network"
)

// InvocationError は、リモート呼び出しの失敗を正規化したエラーです
// HTTPクライアントの返すあらゆるエラーは、呼び出し境界でこの型へ変換されます
type InvocationError struct {
	HTTPStatus int
	StatusText string
	Message    string
	Body       string
	Transient  bool
	Kind       FailureKind
}

// Error はerrorインターフェースを実装します
func (e *InvocationError) Error() string {
	if e.HTTPStatus > 0 {
		return fmt.Sprintf("モデル呼び出しに失敗 (status=%d %s): %s", e.HTTPStatus, e.StatusText, e.Message)
	}
	return fmt.Sprintf("モデル呼び出しに失敗 (%s): %s", e.Kind, e.Message)
}

// NewHTTPInvocationError は、非2xx応答からInvocationErrorを作成します
func NewHTTPInvocationError(status int, message, body string) *InvocationError {
	return &InvocationError{
		HTTPStatus: status,
		StatusText: http.StatusText(status),
		Message:    message,
		Body:       body,
		Transient:  IsTransientStatus(status),
		Kind:       FailureTransport,
	}
}

// NewEmptyResponseError は、候補が空の応答からInvocationErrorを作成します
func NewEmptyResponseError(status int, body string) *InvocationError {
	return &InvocationError{
		HTTPStatus: status,
		StatusText: http.StatusText(status),
		Message:    "応答に有効な候補が含まれていません",
		Body:       body,
		Transient:  true,
		Kind:       FailureEmpty,
	}
}

// NewNetworkInvocationError は、ネットワーク障害からInvocationErrorを作成します
func NewNetworkInvocationError(err error) *InvocationError {
	return &InvocationError{
		Message:   err.Error(),
		Transient: true,
		Kind:      FailureNetwork,
	}
}

// IsTransientStatus は、再試行で回復しうるHTTPステータスかどうかを判定します
func IsTransientStatus(status int) bool {
	switch {
	case status >= 500:
		return true
	case status == http.StatusTooManyRequests, status == http.StatusRequestTimeout:
		return true
	default:
		return false
	}
}

// AsInvocationError は、errからInvocationErrorを取り出します
func AsInvocationError(err error) (*InvocationError, bool) {
	var invErr *InvocationError
	if errors.As(err, &invErr) {
		return invErr, true
	}
	return nil, false
}
