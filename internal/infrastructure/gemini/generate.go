package gemini

import (
	"context"

	"kisanbot/internal/domain"
)

const jsonMIMEType = "application/json"

// Generate は、ドメインのリクエストをgenerateContentの本文へ変換して呼び出します
func (c *Client) Generate(ctx context.Context, model domain.ModelID, req domain.GenerationRequest) (domain.GenerationResult, error) {
	if model.IsZero() {
		model = c.DefaultModel()
	}

	responseMIMEType := ""
	if req.JSONOutput {
		responseMIMEType = jsonMIMEType
	}

	result, err := c.Invoke(ctx, model, NewPayload(req.Prompt, req.Image, req.ImageMIME, responseMIMEType))
	return domain.GenerationResult{
		Text:        result.Text,
		ModelID:     model,
		Attempts:    result.Attempts,
		Diagnostics: result.Diagnostics,
	}, err
}
