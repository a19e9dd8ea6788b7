package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode"
)

// ErrorCode は、呼び出し元へ返すエラーの分類です
type ErrorCode string

const (
	CodeInvalidImage         ErrorCode = "INVALID_IMAGE"
	CodeUnsupportedImageType ErrorCode = "UNSUPPORTED_IMAGE_TYPE"
	CodeImageTooBlurry       ErrorCode = "IMAGE_TOO_BLURRY"
	CodeImageLowContrast     ErrorCode = "IMAGE_LOW_CONTRAST"
	CodeNoDetection          ErrorCode = "NO_DETECTION"
	CodeModelNotFound        ErrorCode = "MODEL_NOT_FOUND"
	CodeModelError           ErrorCode = "MODEL_ERROR"
	CodeInternalError        ErrorCode = "INTERNAL_ERROR"
	CodeNotConfigured        ErrorCode = "NOT_CONFIGURED"
	CodeBadRequest           ErrorCode = "BAD_REQUEST"
	CodeNoOutput             ErrorCode = "NO_OUTPUT"
)

var defaultMessages = map[ErrorCode]string{
	CodeInvalidImage:         "The uploaded image could not be read. Please upload a valid photo.",
	CodeUnsupportedImageType: "Unsupported image type. Please upload a JPEG, PNG or WEBP photo.",
	CodeImageTooBlurry:       "The photo is too blurry to diagnose reliably. Please retake it in focus.",
	CodeImageLowContrast:     "The photo has very low contrast. Please retake it in better light.",
	CodeNoDetection:          "No disease could be detected from this photo. Please try another photo.",
	CodeModelNotFound:        "The AI service is not available right now. Please contact the administrator.",
	CodeModelError:           "The AI model service is currently experiencing issues. Please try again later.",
	CodeInternalError:        "An unexpected error occurred while processing the request.",
	CodeNotConfigured:        "The AI assistant is not configured.",
	CodeBadRequest:           "Invalid request payload.",
	CodeNoOutput:             "Model returned no output.",
}

// DefaultMessage は、エンドユーザー向けの一般的なメッセージを返します
func (c ErrorCode) DefaultMessage() string {
	if msg, ok := defaultMessages[c]; ok {
		return msg
	}
	return defaultMessages[CodeInternalError]
}

// Diagnosis は、モデル出力を解析・検証して得られた病害診断です
type Diagnosis struct {
	DiseaseName             string     `json:"diseaseName"`
	Symptoms                StringList `json:"symptoms"`
	Confidence              float64    `json:"confidence"`
	Solution                string     `json:"solution"`
	PesticideRecommendation string     `json:"pesticideRecommendation"`
	PreventiveMeasures      StringList `json:"preventiveMeasures"`
}

// 直前に置かれると「健康」を打ち消す語
var healthyNegations = map[string]bool{"not": true, "non": true, "no": true}

// IsHealthy は、診断が「健康」を示しているかどうかを判定します
// "healthy" を単語として含み、直前が否定語でない場合のみ健康とみなします
func (d Diagnosis) IsHealthy() bool {
	words := strings.FieldsFunc(strings.ToLower(d.DiseaseName), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	for i, w := range words {
		if w != "healthy" {
			continue
		}
		if i > 0 && healthyNegations[words[i-1]] {
			continue
		}
		return true
	}
	return false
}

// IsLowConfidence は、信頼度がしきい値未満かどうかを判定します
func (d Diagnosis) IsLowConfidence(threshold float64) bool {
	return d.Confidence < threshold
}

// Validate は、診断がスキーマに適合しているかを検証します
func (d Diagnosis) Validate() error {
	if strings.TrimSpace(d.DiseaseName) == "" {
		return fmt.Errorf("%w: diseaseName が空です", ErrInvalidDiagnosis)
	}
	if d.Confidence < 0 || d.Confidence > 1 {
		return fmt.Errorf("%w: confidence が範囲外です (%v)", ErrInvalidDiagnosis, d.Confidence)
	}
	if d.Symptoms == nil {
		return fmt.Errorf("%w: symptoms がありません", ErrInvalidDiagnosis)
	}
	if d.PreventiveMeasures == nil {
		return fmt.Errorf("%w: preventiveMeasures がありません", ErrInvalidDiagnosis)
	}
	return nil
}

// StringList は、JSON配列または単一文字列のどちらからでも読み込める文字列リストです
type StringList []string

// UnmarshalJSON はjson.Unmarshalerを実装します
func (l *StringList) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		if list == nil {
			list = []string{}
		}
		*l = list
		return nil
	}

	var single string
	if err := json.Unmarshal(data, &single); err != nil {
		return fmt.Errorf("文字列または文字列配列である必要があります: %w", err)
	}
	single = strings.TrimSpace(single)
	if single == "" {
		*l = []string{}
		return nil
	}
	*l = []string{single}
	return nil
}

// rawDiagnosis は、必須フィールドの有無を判別するための中間表現です
type rawDiagnosis struct {
	DiseaseName             *string     `json:"diseaseName"`
	Symptoms                *StringList `json:"symptoms"`
	Confidence              *float64    `json:"confidence"`
	Solution                *string     `json:"solution"`
	PesticideRecommendation *string     `json:"pesticideRecommendation"`
	PreventiveMeasures      *StringList `json:"preventiveMeasures"`
}

// ParseDiagnosis は、モデルの生テキスト出力を解析して診断を作成します
// コードフェンスや前後の説明文は取り除かれます
func ParseDiagnosis(text string) (Diagnosis, error) {
	payload := ExtractJSONObject(text)
	if payload == "" {
		return Diagnosis{}, fmt.Errorf("%w: JSONオブジェクトが見つかりません", ErrInvalidDiagnosis)
	}

	var raw rawDiagnosis
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		return Diagnosis{}, fmt.Errorf("%w: %v", ErrInvalidDiagnosis, err)
	}

	missing := []string{}
	if raw.DiseaseName == nil {
		missing = append(missing, "diseaseName")
	}
	if raw.Symptoms == nil {
		missing = append(missing, "symptoms")
	}
	if raw.Confidence == nil {
		missing = append(missing, "confidence")
	}
	if raw.Solution == nil {
		missing = append(missing, "solution")
	}
	if raw.PesticideRecommendation == nil {
		missing = append(missing, "pesticideRecommendation")
	}
	if raw.PreventiveMeasures == nil {
		missing = append(missing, "preventiveMeasures")
	}
	if len(missing) > 0 {
		return Diagnosis{}, fmt.Errorf("%w: 必須フィールドがありません: %s", ErrInvalidDiagnosis, strings.Join(missing, ", "))
	}

	diagnosis := Diagnosis{
		DiseaseName:             strings.TrimSpace(*raw.DiseaseName),
		Symptoms:                *raw.Symptoms,
		Confidence:              *raw.Confidence,
		Solution:                *raw.Solution,
		PesticideRecommendation: *raw.PesticideRecommendation,
		PreventiveMeasures:      *raw.PreventiveMeasures,
	}
	if err := diagnosis.Validate(); err != nil {
		return Diagnosis{}, err
	}
	return diagnosis, nil
}

// ExtractJSONObject は、テキストから最初のJSONオブジェクト部分を抜き出します
func ExtractJSONObject(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```JSON")
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
		text = strings.TrimSpace(text)
	}

	// 最初の "{" から始まる最初のJSON値だけを取り出す
	for start := strings.Index(text, "{"); start >= 0; {
		var raw json.RawMessage
		if err := json.NewDecoder(strings.NewReader(text[start:])).Decode(&raw); err == nil {
			return string(raw)
		}
		next := strings.Index(text[start+1:], "{")
		if next < 0 {
			break
		}
		start += next + 1
	}
	return ""
}

// Diagnostics は、失敗時にのみ作成されるサーバー側の調査情報です
// 認証情報は決して含めません
type Diagnostics struct {
	Status          int         `json:"status"`
	StatusText      string      `json:"statusText"`
	BodySnippet     string      `json:"bodySnippet"`
	ModelID         string      `json:"modelId"`
	Attempt         int         `json:"attempt"`
	Kind            FailureKind `json:"kind,omitempty"`
	AvailableModels []string    `json:"availableModels,omitempty"`
	FallbackFrom    string      `json:"fallbackFrom,omitempty"`
}

// OutcomeStatus は、結果のタグです
type OutcomeStatus string

const (
	StatusOK    OutcomeStatus = "ok"
	StatusError OutcomeStatus = "error"
)

// DiagnosisOutcome は、診断フローの唯一の戻り値となるタグ付きユニオンです
// Diagnosis と Code はどちらか一方のみが設定されます
type DiagnosisOutcome struct {
	Status      OutcomeStatus `json:"status"`
	Diagnosis   *Diagnosis    `json:"diagnosis,omitempty"`
	Code        ErrorCode     `json:"code,omitempty"`
	Message     string        `json:"message,omitempty"`
	Diagnostics *Diagnostics  `json:"diagnostics,omitempty"`
}

// NewDiagnosisOK は、成功結果を作成します
func NewDiagnosisOK(d Diagnosis) DiagnosisOutcome {
	return DiagnosisOutcome{Status: StatusOK, Diagnosis: &d}
}

// NewDiagnosisError は、エラー結果を作成します
// messageが空の場合はエラーコードの既定メッセージを使用します
func NewDiagnosisError(code ErrorCode, message string, diagnostics *Diagnostics) DiagnosisOutcome {
	if code == "" {
		code = CodeInternalError
	}
	if message == "" {
		message = code.DefaultMessage()
	}
	return DiagnosisOutcome{
		Status:      StatusError,
		Code:        code,
		Message:     message,
		Diagnostics: diagnostics,
	}
}

// IsOK は、成功結果かどうかを返します
func (o DiagnosisOutcome) IsOK() bool {
	return o.Status == StatusOK && o.Diagnosis != nil && o.Code == ""
}

// Validate は、タグ付きユニオンの排他性を検証します
func (o DiagnosisOutcome) Validate() error {
	switch o.Status {
	case StatusOK:
		if o.Diagnosis == nil || o.Code != "" {
			return fmt.Errorf("ok結果には診断のみが必要です")
		}
	case StatusError:
		if o.Code == "" || o.Diagnosis != nil {
			return fmt.Errorf("error結果にはエラーコードのみが必要です")
		}
	default:
		return fmt.Errorf("不明なステータスです: %q", o.Status)
	}
	return nil
}

// WithoutDiagnostics は、調査情報を取り除いたコピーを返します
func (o DiagnosisOutcome) WithoutDiagnostics() DiagnosisOutcome {
	o.Diagnostics = nil
	return o
}
