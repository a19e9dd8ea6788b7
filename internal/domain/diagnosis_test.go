package domain

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDiagnosis(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		want    Diagnosis
		wantErr bool
	}{
		{
			name: "素のJSON",
			text: `{"diseaseName":"Leaf Rust","symptoms":["orange pustules"],"confidence":0.92,"solution":"Remove infected leaves","pesticideRecommendation":"Propiconazole","preventiveMeasures":["Rotate crops"]}`,
			want: Diagnosis{
				DiseaseName:             "Leaf Rust",
				Symptoms:                StringList{"orange pustules"},
				Confidence:              0.92,
				Solution:                "Remove infected leaves",
				PesticideRecommendation: "Propiconazole",
				PreventiveMeasures:      StringList{"Rotate crops"},
			},
		},
		{
			name: "コードフェンス付き",
			text: "```json\n{\"diseaseName\":\"Healthy\",\"symptoms\":[],\"confidence\":0.4,\"solution\":\"\",\"pesticideRecommendation\":\"\",\"preventiveMeasures\":[]}\n```",
			want: Diagnosis{
				DiseaseName:        "Healthy",
				Symptoms:           StringList{},
				Confidence:         0.4,
				PreventiveMeasures: StringList{},
			},
		},
		{
			name: "文字列の症状を配列として扱う",
			text: `Here you go: {"diseaseName":"Blight","symptoms":"brown spots","confidence":1,"solution":"s","pesticideRecommendation":"p","preventiveMeasures":"keep dry"}`,
			want: Diagnosis{
				DiseaseName:             "Blight",
				Symptoms:                StringList{"brown spots"},
				Confidence:              1,
				Solution:                "s",
				PesticideRecommendation: "p",
				PreventiveMeasures:      StringList{"keep dry"},
			},
		},
		{
			name: "JSONの後の説明文に波括弧",
			text: `{"diseaseName":"Blight","symptoms":[],"confidence":0.7,"solution":"s","pesticideRecommendation":"p","preventiveMeasures":[]}` + "\nNote: treat {early} for best results.",
			want: Diagnosis{
				DiseaseName:             "Blight",
				Symptoms:                StringList{},
				Confidence:              0.7,
				Solution:                "s",
				PesticideRecommendation: "p",
				PreventiveMeasures:      StringList{},
			},
		},
		{
			name:    "JSONなし",
			text:    "I cannot see a plant in this image.",
			wantErr: true,
		},
		{
			name:    "必須フィールド欠落",
			text:    `{"diseaseName":"Blight","confidence":0.5}`,
			wantErr: true,
		},
		{
			name:    "信頼度が範囲外",
			text:    `{"diseaseName":"Blight","symptoms":[],"confidence":1.5,"solution":"","pesticideRecommendation":"","preventiveMeasures":[]}`,
			wantErr: true,
		},
		{
			name:    "病名が空",
			text:    `{"diseaseName":"  ","symptoms":[],"confidence":0.5,"solution":"","pesticideRecommendation":"","preventiveMeasures":[]}`,
			wantErr: true,
		},
		{
			name:    "壊れたJSON",
			text:    `{"diseaseName": "Blight", }`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDiagnosis(tt.text)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidDiagnosis))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDiagnosis_HealthyAndConfidence(t *testing.T) {
	assert.True(t, Diagnosis{DiseaseName: "Healthy"}.IsHealthy())
	assert.True(t, Diagnosis{DiseaseName: "healthy plant"}.IsHealthy())
	assert.False(t, Diagnosis{DiseaseName: "Leaf Rust"}.IsHealthy())

	for _, name := range []string{"Unhealthy leaf (Leaf Blight)", "Not healthy: Early Blight", "non-healthy tissue", "Healthyish"} {
		assert.False(t, Diagnosis{DiseaseName: name}.IsHealthy(), name)
	}
	assert.True(t, Diagnosis{DiseaseName: "Plant is healthy"}.IsHealthy())

	assert.True(t, Diagnosis{Confidence: 0.3}.IsLowConfidence(0.6))
	assert.False(t, Diagnosis{Confidence: 0.6}.IsLowConfidence(0.6))
}

func TestDiagnosisOutcome_Exclusivity(t *testing.T) {
	ok := NewDiagnosisOK(Diagnosis{DiseaseName: "Leaf Rust"})
	require.NoError(t, ok.Validate())
	assert.True(t, ok.IsOK())
	assert.Empty(t, ok.Code)

	failed := NewDiagnosisError(CodeModelError, "", &Diagnostics{Status: 500})
	require.NoError(t, failed.Validate())
	assert.False(t, failed.IsOK())
	assert.Nil(t, failed.Diagnosis)
	assert.Equal(t, CodeModelError.DefaultMessage(), failed.Message)

	defaulted := NewDiagnosisError("", "", nil)
	assert.Equal(t, CodeInternalError, defaulted.Code)

	broken := DiagnosisOutcome{Status: StatusOK, Diagnosis: &Diagnosis{}, Code: CodeNoDetection}
	assert.Error(t, broken.Validate())
	assert.Error(t, DiagnosisOutcome{Status: StatusError}.Validate())
	assert.Error(t, DiagnosisOutcome{}.Validate())
}

func TestDiagnosisOutcome_JSON(t *testing.T) {
	failed := NewDiagnosisError(CodeModelNotFound, "", &Diagnostics{Status: 404, AvailableModels: []string{"gemini-1.5-flash"}})

	raw, err := json.Marshal(failed.WithoutDiagnostics())
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"error","code":"MODEL_NOT_FOUND","message":"`+CodeModelNotFound.DefaultMessage()+`"}`, string(raw))

	raw, err = json.Marshal(NewDiagnosisOK(Diagnosis{DiseaseName: "Leaf Rust", Symptoms: StringList{}, PreventiveMeasures: StringList{}, Confidence: 0.9}))
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"status":"ok"`)
	assert.NotContains(t, string(raw), `"code"`)
}

func TestExtractJSONObject(t *testing.T) {
	assert.Equal(t, `{"a":1}`, ExtractJSONObject("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":{"b":2}}`, ExtractJSONObject(`result: {"a":{"b":2}} done`))
	assert.Equal(t, "", ExtractJSONObject("no json here"))

	// JSONの後ろの説明文に含まれる波括弧は無視する
	assert.Equal(t, `{"a":1}`, ExtractJSONObject(`{"a":1} Note: {see docs}`))
	// JSONでない波括弧の後に本体がある場合
	assert.Equal(t, `{"a":1}`, ExtractJSONObject(`Format {like this}: {"a":1}`))
}
