package discord

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"

	"kisanbot/internal/domain"
)

// Discordの埋め込みの文字数制限
const (
	embedTitleLimit       = 256
	embedDescriptionLimit = 4096
	embedFieldLimit       = 1024
)

const (
	colorHealthy = 0x2ecc71
	colorDisease = 0xe67e22
	colorChat    = 0x3498db
	colorError   = 0xe74c3c
)

// errorMessages は、エラーコードごとの利用者向けメッセージです
// 内部情報(ステータスや応答本文)は含めません
var errorMessages = map[domain.ErrorCode]string{
	domain.CodeInvalidImage:         "画像を読み込めませんでした。別の写真を添付してください。",
	domain.CodeUnsupportedImageType: "対応していない画像形式です。JPEG・PNG・WEBPの写真を添付してください。",
	domain.CodeImageTooBlurry:       "写真がぼやけているため診断できません。ピントを合わせて撮り直してください。",
	domain.CodeImageLowContrast:     "写真のコントラストが低すぎます。明るい場所で撮り直してください。",
	domain.CodeNoDetection:          "この写真からは病害を特定できませんでした。別の角度から撮影した写真をお試しください。",
	domain.CodeModelNotFound:        "AIサービスが現在利用できません。管理者に連絡してください。",
	domain.CodeModelError:           "AIサービスで問題が発生しています。しばらく待ってから再度お試しください。",
	domain.CodeNotConfigured:        "AIアシスタントが設定されていません。管理者に連絡してください。",
	domain.CodeBadRequest:           "質問内容か植物の写真を添えてメンションしてください。",
	domain.CodeNoOutput:             "AIから回答が得られませんでした。質問を変えてお試しください。",
	domain.CodeInternalError:        "処理中に予期しないエラーが発生しました。",
}

// localizedMessage は、エラーコードに対応する利用者向けメッセージを返します
func localizedMessage(code domain.ErrorCode) string {
	if msg, ok := errorMessages[code]; ok {
		return msg
	}
	return errorMessages[domain.CodeInternalError]
}

// errorEmbed は、エラー結果の埋め込みを作成します
func errorEmbed(code domain.ErrorCode) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "❌ 処理できませんでした",
		Description: localizedMessage(code),
		Color:       colorError,
		Footer:      &discordgo.MessageEmbedFooter{Text: string(code)},
	}
}

// fetchErrorEmbed は、添付ファイル取得エラーの埋め込みを作成します
func fetchErrorEmbed(err error) *discordgo.MessageEmbed {
	if errors.Is(err, domain.ErrImageTooLarge) {
		embed := errorEmbed(domain.CodeInvalidImage)
		embed.Description = "画像のサイズが大きすぎます。小さい写真を添付してください。"
		return embed
	}
	return errorEmbed(domain.CodeInternalError)
}

// diagnosisEmbed は、診断結果の埋め込みを作成します
func diagnosisEmbed(outcome domain.DiagnosisOutcome) *discordgo.MessageEmbed {
	if !outcome.IsOK() {
		return errorEmbed(outcome.Code)
	}

	d := outcome.Diagnosis
	color := colorDisease
	if d.IsHealthy() {
		color = colorHealthy
	}

	return &discordgo.MessageEmbed{
		Title: truncateText("🌿 "+d.DiseaseName, embedTitleLimit),
		Color: color,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "信頼度", Value: formatConfidence(d.Confidence), Inline: true},
			{Name: "症状", Value: fieldValue(formatList(d.Symptoms))},
			{Name: "対処法", Value: fieldValue(d.Solution)},
			{Name: "推奨農薬", Value: fieldValue(d.PesticideRecommendation)},
			{Name: "予防策", Value: fieldValue(formatList(d.PreventiveMeasures))},
		},
		Footer: &discordgo.MessageEmbedFooter{Text: "AIによる診断結果です。最終的な判断は専門家にご相談ください。"},
	}
}

// chatEmbed は、チャット結果の埋め込みを作成します
func chatEmbed(outcome domain.ChatOutcome) *discordgo.MessageEmbed {
	if !outcome.IsOK() {
		return errorEmbed(outcome.Code)
	}
	return &discordgo.MessageEmbed{
		Description: truncateText(outcome.Answer, embedDescriptionLimit),
		Color:       colorChat,
	}
}

// formatConfidence は、0〜1の信頼度をパーセント表記にします
func formatConfidence(confidence float64) string {
	return fmt.Sprintf("%.0f%%", confidence*100)
}

// formatList は、文字列リストを箇条書きにします
func formatList(items []string) string {
	lines := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		lines = append(lines, "• "+item)
	}
	return strings.Join(lines, "\n")
}

// fieldValue は、埋め込みフィールドの値を制限内に収めます
// Discordは空のフィールド値を受け付けないため "-" で埋めます
func fieldValue(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "-"
	}
	return truncateText(s, embedFieldLimit)
}

// truncateText は、文字列を指定文字数以内に切り詰めます
func truncateText(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit-1]) + "…"
}
