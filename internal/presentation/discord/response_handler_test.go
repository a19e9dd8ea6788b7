package discord

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kisanbot/internal/domain"
)

func TestDiagnosisEmbed(t *testing.T) {
	t.Run("病害", func(t *testing.T) {
		embed := diagnosisEmbed(domain.NewDiagnosisOK(domain.Diagnosis{
			DiseaseName:        "Early Blight",
			Symptoms:           domain.StringList{"dark spots", " ", "yellow halo"},
			Confidence:         0.873,
			Solution:           "Remove infected leaves",
			PreventiveMeasures: domain.StringList{},
		}))

		assert.Equal(t, "🌿 Early Blight", embed.Title)
		assert.Equal(t, colorDisease, embed.Color)
		require.Len(t, embed.Fields, 5)
		assert.Equal(t, "87%", embed.Fields[0].Value)
		assert.Equal(t, "• dark spots\n• yellow halo", embed.Fields[1].Value)
		assert.Equal(t, "-", embed.Fields[3].Value)
		assert.Equal(t, "-", embed.Fields[4].Value)
	})

	t.Run("健康", func(t *testing.T) {
		embed := diagnosisEmbed(domain.NewDiagnosisOK(domain.Diagnosis{DiseaseName: "Healthy", Confidence: 0.95}))
		assert.Equal(t, colorHealthy, embed.Color)
	})

	t.Run("エラーは内部情報を含めない", func(t *testing.T) {
		outcome := domain.NewDiagnosisError(domain.CodeModelError, "", &domain.Diagnostics{
			Status:      503,
			BodySnippet: "upstream secret details",
		})
		embed := diagnosisEmbed(outcome)

		assert.Equal(t, colorError, embed.Color)
		assert.Equal(t, errorMessages[domain.CodeModelError], embed.Description)
		assert.NotContains(t, embed.Description, "upstream")
		assert.Empty(t, embed.Fields)
	})
}

func TestChatEmbed(t *testing.T) {
	embed := chatEmbed(domain.NewChatOK(strings.Repeat("あ", embedDescriptionLimit+10)))
	assert.Equal(t, embedDescriptionLimit, utf8.RuneCountInString(embed.Description))
	assert.True(t, strings.HasSuffix(embed.Description, "…"))

	embed = chatEmbed(domain.NewChatError(domain.CodeBadRequest, "", nil))
	assert.Equal(t, errorMessages[domain.CodeBadRequest], embed.Description)
}

func TestLocalizedMessage(t *testing.T) {
	codes := []domain.ErrorCode{
		domain.CodeInvalidImage, domain.CodeUnsupportedImageType, domain.CodeImageTooBlurry,
		domain.CodeImageLowContrast, domain.CodeNoDetection, domain.CodeModelNotFound,
		domain.CodeModelError, domain.CodeNotConfigured, domain.CodeBadRequest,
		domain.CodeNoOutput, domain.CodeInternalError,
	}
	for _, code := range codes {
		assert.NotEmpty(t, errorMessages[code], code)
	}
	assert.Equal(t, errorMessages[domain.CodeInternalError], localizedMessage("SOMETHING_ELSE"))
}

func TestFetchErrorEmbed(t *testing.T) {
	tooLarge := fetchErrorEmbed(fmt.Errorf("wrap: %w", domain.ErrImageTooLarge))
	assert.Contains(t, tooLarge.Description, "大きすぎます")

	other := fetchErrorEmbed(errors.New("dial tcp: refused"))
	assert.Equal(t, errorMessages[domain.CodeInternalError], other.Description)
}

func TestTruncateText(t *testing.T) {
	assert.Equal(t, "abc", truncateText("abc", 3))
	assert.Equal(t, "ab…", truncateText("abcd", 3))
	assert.Equal(t, "日本…", truncateText("日本語です", 3))
}
