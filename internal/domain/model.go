package domain

import "strings"

// GenerateContentMethod は、診断・チャットに必要な生成メソッド名です
const GenerateContentMethod = "generateContent"

const modelResourcePrefix = "models/"

// ModelID は、生成モデルを識別する不透明な文字列です
type ModelID string

// ResourceName は、`models/` 接頭辞付きのリソース名を返します
func (m ModelID) ResourceName() string {
	s := strings.TrimSpace(string(m))
	if strings.HasPrefix(s, modelResourcePrefix) {
		return s
	}
	return modelResourcePrefix + s
}

// Short は、`models/` 接頭辞を除いたIDを返します
func (m ModelID) Short() string {
	return strings.TrimPrefix(strings.TrimSpace(string(m)), modelResourcePrefix)
}

// IsZero は、モデルIDが未設定かどうかを返します
func (m ModelID) IsZero() bool {
	return strings.TrimSpace(string(m)) == ""
}

// String はModelIDの文字列表現を返します
func (m ModelID) String() string {
	return m.Short()
}

// ModelDescriptor は、モデル一覧APIが返すモデル情報です
type ModelDescriptor struct {
	Name                       string   `json:"name"`
	DisplayName                string   `json:"displayName,omitempty"`
	Description                string   `json:"description,omitempty"`
	InputTokenLimit            int      `json:"inputTokenLimit,omitempty"`
	OutputTokenLimit           int      `json:"outputTokenLimit,omitempty"`
	SupportedGenerationMethods []string `json:"supportedGenerationMethods"`
}

// ID は、接頭辞を除いたモデルIDを返します
func (d ModelDescriptor) ID() string {
	return ModelID(d.Name).Short()
}

// Matches は、モデル名が指定IDに一致するか(末尾一致)を判定します
func (d ModelDescriptor) Matches(id ModelID) bool {
	short := id.Short()
	if short == "" {
		return false
	}
	return d.Name == short || strings.HasSuffix(d.Name, "/"+short)
}

// Supports は、指定された生成メソッドに対応しているかを判定します
func (d ModelDescriptor) Supports(method string) bool {
	for _, m := range d.SupportedGenerationMethods {
		if m == method {
			return true
		}
	}
	return false
}

// GenerationCapableIDs は、generateContent に対応するモデルのIDのみを返します
func GenerationCapableIDs(models []ModelDescriptor) []string {
	ids := make([]string, 0, len(models))
	for _, m := range models {
		if m.Supports(GenerateContentMethod) {
			ids = append(ids, m.ID())
		}
	}
	return ids
}

// ModelInvalidReason は、モデルが利用できない理由です
type ModelInvalidReason string

const (
	ModelNotFound          ModelInvalidReason = "NOT_FOUND"
	ModelUnsupportedMethod ModelInvalidReason = "UNSUPPORTED_METHOD"
)

// ModelValidity は、モデル検証の結果です
type ModelValidity struct {
	OK     bool               `json:"ok"`
	Reason ModelInvalidReason `json:"reason,omitempty"`
}
