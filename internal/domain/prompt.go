package domain

import (
	"fmt"
	"strings"
)

// Prompt は、生成モデルへ送信するために整形されたテキストを表現する値オブジェクトです
type Prompt struct {
	Content string
}

// NewPrompt は新しいPromptを作成します
func NewPrompt(content string) Prompt {
	return Prompt{Content: content}
}

// IsEmpty は、プロンプトが空かどうかを返します
func (p Prompt) IsEmpty() bool {
	return strings.TrimSpace(p.Content) == ""
}

const defaultDiagnosisInstruction = `You are an AI assistant specialized in plant disease detection and providing solutions for farmers.

Analyze the provided plant image and identify any potential diseases based on the observed symptoms. Provide a detailed solution, recommend a suitable pesticide, and suggest preventive measures to help the farmer protect their crops. If the plant looks healthy, set diseaseName to "Healthy".`

const diagnosisSchemaInstruction = `Respond ONLY with JSON matching this exact schema:
{
  "diseaseName": string,
  "symptoms": string[],
  "confidence": number between 0 and 1,
  "solution": string,
  "pesticideRecommendation": string,
  "preventiveMeasures": string[]
}`

const defaultChatInstruction = "You are a helpful AI assistant for farmers. Answer the following question to the best of your ability, using the provided image if available."

// PromptGenerator は、診断・チャット用のプロンプトを生成するビジネスロジックを担当します
type PromptGenerator struct {
	diagnosisInstruction string
	chatInstruction      string
	contextManager       *ContextManager
}

// NewPromptGenerator は新しいPromptGeneratorインスタンスを作成します
func NewPromptGenerator(diagnosisInstruction, chatInstruction string, contextManager *ContextManager) *PromptGenerator {
	if diagnosisInstruction == "" {
		diagnosisInstruction = defaultDiagnosisInstruction
	}
	if chatInstruction == "" {
		chatInstruction = defaultChatInstruction
	}
	if contextManager == nil {
		contextManager = NewContextManager(DefaultMaxQueryLength)
	}

	return &PromptGenerator{
		diagnosisInstruction: diagnosisInstruction,
		chatInstruction:      chatInstruction,
		contextManager:       contextManager,
	}
}

// DiagnosisPrompt は、病害診断用のプロンプトを生成します
func (pg *PromptGenerator) DiagnosisPrompt() Prompt {
	var builder strings.Builder
	builder.WriteString(pg.diagnosisInstruction)
	builder.WriteString("\n\n")
	builder.WriteString(diagnosisSchemaInstruction)
	return NewPrompt(builder.String())
}

// ChatPrompt は、ユーザーの質問からチャット用のプロンプトを生成します
func (pg *PromptGenerator) ChatPrompt(query string, hasImage bool) Prompt {
	query = pg.contextManager.TruncateUserQuestion(strings.TrimSpace(query))

	var builder strings.Builder
	builder.WriteString(pg.chatInstruction)
	builder.WriteString("\n\n")
	builder.WriteString(fmt.Sprintf("Question: %s", query))
	if hasImage {
		builder.WriteString("\n\nThe farmer attached a photo; use it as the primary source of information.")
	}
	return NewPrompt(builder.String())
}
