package domain

// GenerationRequest は、生成モデルへの1ターン分のリクエストです
type GenerationRequest struct {
	Prompt     Prompt
	Image      []byte
	ImageMIME  string
	JSONOutput bool // 応答をJSONで要求するか
}

// HasImage は、画像が添付されているかどうかを返します
func (r GenerationRequest) HasImage() bool {
	return len(r.Image) > 0
}

// GenerationResult は、生成モデル呼び出しの結果です
// 成功時はText、失敗時はDiagnosticsが設定されます
type GenerationResult struct {
	Text        string
	ModelID     ModelID
	Attempts    int
	Diagnostics *Diagnostics
}

// OK は、呼び出しが成功したかどうかを返します
func (r GenerationResult) OK() bool {
	return r.Diagnostics == nil
}
