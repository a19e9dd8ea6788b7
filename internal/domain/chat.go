package domain

// ChatRequest は、チャットアシスタントへの質問です
type ChatRequest struct {
	Query        string `json:"query,omitempty"`
	ImageDataURI string `json:"image,omitempty"`
}

// HasImage は、画像が添付されているかどうかを返します
func (r ChatRequest) HasImage() bool {
	return r.ImageDataURI != ""
}

// ChatOutcome は、チャットアシスタントの結果を表すタグ付きユニオンです
type ChatOutcome struct {
	Status          OutcomeStatus `json:"status"`
	Answer          string        `json:"answer,omitempty"`
	Code            ErrorCode     `json:"code,omitempty"`
	Message         string        `json:"message,omitempty"`
	Diagnostics     *Diagnostics  `json:"diagnostics,omitempty"`
	AvailableModels []string      `json:"availableModels,omitempty"`
}

// NewChatOK は、成功結果を作成します
func NewChatOK(answer string) ChatOutcome {
	return ChatOutcome{Status: StatusOK, Answer: answer}
}

// NewChatError は、エラー結果を作成します
func NewChatError(code ErrorCode, message string, diagnostics *Diagnostics) ChatOutcome {
	if code == "" {
		code = CodeInternalError
	}
	if message == "" {
		message = code.DefaultMessage()
	}
	outcome := ChatOutcome{
		Status:      StatusError,
		Code:        code,
		Message:     message,
		Diagnostics: diagnostics,
	}
	if diagnostics != nil {
		outcome.AvailableModels = diagnostics.AvailableModels
	}
	return outcome
}

// IsOK は、成功結果かどうかを返します
func (o ChatOutcome) IsOK() bool {
	return o.Status == StatusOK && o.Code == ""
}

// WithoutDiagnostics は、調査情報を取り除いたコピーを返します
func (o ChatOutcome) WithoutDiagnostics() ChatOutcome {
	o.Diagnostics = nil
	o.AvailableModels = nil
	return o
}
