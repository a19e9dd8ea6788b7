package domain

import (
	"strings"
	"unicode/utf8"
)

// DefaultMaxQueryLength は、質問の既定の最大文字数です
const DefaultMaxQueryLength = 4000

// ContextManager は、プロンプトに含めるテキストの長さを管理するドメインサービスです
type ContextManager struct {
	maxQueryLength int // 最大質問長（文字数）
}

// NewContextManager は新しいContextManagerインスタンスを作成します
func NewContextManager(maxQueryLength int) *ContextManager {
	if maxQueryLength <= 0 {
		maxQueryLength = DefaultMaxQueryLength
	}
	return &ContextManager{maxQueryLength: maxQueryLength}
}

// TruncateUserQuestion は、ユーザーの質問を指定された長さに制限します
func (cm *ContextManager) TruncateUserQuestion(userQuestion string) string {
	if utf8.RuneCountInString(userQuestion) <= cm.maxQueryLength {
		return userQuestion
	}

	runes := []rune(userQuestion)[:cm.maxQueryLength]
	truncated := string(runes)

	// 完全な文で終わるように調整
	lastPeriod := strings.LastIndexAny(truncated, ".?!。")
	if lastPeriod > 0 && utf8.RuneCountInString(truncated[:lastPeriod]) > cm.maxQueryLength-30 {
		_, size := utf8.DecodeRuneInString(truncated[lastPeriod:])
		return truncated[:lastPeriod+size]
	}
	return truncated
}

// IsTruncated は、質問が切り詰め対象かどうかを返します
func (cm *ContextManager) IsTruncated(userQuestion string) bool {
	return utf8.RuneCountInString(userQuestion) > cm.maxQueryLength
}
