package discord

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"kisanbot/internal/domain"
	infradiscord "kisanbot/internal/infrastructure/discord"
)

const (
	threadNameDiagnosis = "🌿 病害診断"
	threadNameChat      = "💬 栽培相談"
)

// MentionHandler は、Discordのメンション処理を担当するハンドラーです
type MentionHandler struct {
	messenger messenger
	diagnoser Diagnoser
	chat      ChatAssistant
	fetcher   AttachmentFetcher
	botID     string
	timeout   time.Duration
	logger    *zap.Logger

	mu          sync.RWMutex
	botUsername string

	wg sync.WaitGroup
}

// NewMentionHandler は新しいMentionHandlerインスタンスを作成します
func NewMentionHandler(
	messenger messenger,
	diagnoser Diagnoser,
	chat ChatAssistant,
	fetcher AttachmentFetcher,
	botID string,
	timeout time.Duration,
	logger *zap.Logger,
) *MentionHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MentionHandler{
		messenger: messenger,
		diagnoser: diagnoser,
		chat:      chat,
		fetcher:   fetcher,
		botID:     botID,
		timeout:   timeout,
		logger:    logger.Named("discord"),
	}
}

// SetBotUsername は、Botのユーザー名を設定します
func (h *MentionHandler) SetBotUsername(username string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.botUsername = username
}

func (h *MentionHandler) username() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.botUsername
}

// handleReady は、Botが準備完了した際のイベントを処理します
func (h *MentionHandler) handleReady(_ *discordgo.Session, event *discordgo.Ready) {
	if event.User == nil {
		return
	}
	h.logger.Info("Botが準備完了しました", zap.String("username", event.User.Username))
	h.SetBotUsername(event.User.Username)
}

// handleMessageCreate は、メッセージ作成イベントを処理します
func (h *MentionHandler) handleMessageCreate(_ *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Message == nil || m.Author == nil {
		return
	}
	// Bot自身および他のBotのメッセージは無視
	if m.Author.ID == h.botID || m.Author.Bot {
		return
	}
	if !h.isMentioned(m.Message) {
		return
	}

	h.logger.Debug("Botへのメンションを検出",
		zap.String("channel_id", m.ChannelID),
		zap.String("message_id", m.ID),
		zap.Int("attachments", len(m.Attachments)))

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		h.processMention(m.Message)
	}()
}

// isMentioned は、メッセージがBotへのメンションかどうかを判定します
func (h *MentionHandler) isMentioned(m *discordgo.Message) bool {
	for _, mention := range m.Mentions {
		if mention != nil && mention.ID == h.botID {
			return true
		}
	}

	// メンション配列が空の場合、コンテンツをチェック
	if len(m.Mentions) == 0 {
		username := h.username()
		if username == "" {
			return false
		}
		content := strings.ToLower(m.Content)
		return strings.Contains(content, "@"+strings.ToLower(username))
	}

	return false
}

// extractUserContent は、メンション部分を除去したユーザーのコンテンツを抽出します
func extractUserContent(m *discordgo.Message) string {
	content := m.Content
	for _, mention := range m.Mentions {
		if mention == nil {
			continue
		}
		content = strings.ReplaceAll(content, fmt.Sprintf("<@%s>", mention.ID), "")
		content = strings.ReplaceAll(content, fmt.Sprintf("<@!%s>", mention.ID), "")
	}
	return strings.TrimSpace(content)
}

// selectImageAttachment は、診断対象とする最初の画像添付を返します
func selectImageAttachment(attachments []*discordgo.MessageAttachment) *discordgo.MessageAttachment {
	for _, att := range attachments {
		if infradiscord.IsImageAttachment(att) {
			return att
		}
	}
	return nil
}

// processMention は、メンションをスレッド内で処理します
func (h *MentionHandler) processMention(m *discordgo.Message) {
	ctx, cancel := h.requestContext()
	defer cancel()

	att := selectImageAttachment(m.Attachments)
	threadName := threadNameChat
	if att != nil {
		threadName = threadNameDiagnosis
	}

	threadID, err := h.messenger.StartThread(m.ChannelID, m.ID, threadName)
	if err != nil {
		// スレッド作成に失敗した場合は通常のリプライとして送信
		h.logger.Warn("スレッド作成に失敗、リプライで送信します", zap.Error(err))
		embed := h.respond(ctx, m, att)
		if err := h.messenger.ReplyEmbed(m, embed); err != nil {
			h.logger.Error("応答メッセージの送信に失敗", zap.Error(err))
		}
		return
	}

	thinkingID, err := h.messenger.Send(threadID, thinkingMessage(att != nil))
	if err != nil {
		h.logger.Warn("処理中メッセージの送信に失敗", zap.Error(err))
	}

	embed := h.respond(ctx, m, att)

	if thinkingID != "" {
		if err := h.messenger.Delete(threadID, thinkingID); err != nil {
			h.logger.Warn("処理中メッセージの削除に失敗", zap.Error(err))
		}
	}
	if err := h.messenger.SendEmbed(threadID, embed); err != nil {
		h.logger.Error("スレッド内メッセージの送信に失敗", zap.String("thread_id", threadID), zap.Error(err))
	}
}

// respond は、添付画像があれば診断を、なければチャットを実行して応答を作成します
func (h *MentionHandler) respond(ctx context.Context, m *discordgo.Message, att *discordgo.MessageAttachment) *discordgo.MessageEmbed {
	if att != nil {
		buf, err := h.fetcher.Fetch(ctx, att)
		if err != nil {
			h.logger.Warn("添付ファイルの取得に失敗", zap.String("attachment_id", att.ID), zap.Error(err))
			return fetchErrorEmbed(err)
		}
		return diagnosisEmbed(h.diagnoser.DiagnoseImage(ctx, buf))
	}

	outcome := h.chat.Ask(ctx, domain.ChatRequest{Query: extractUserContent(m)})
	return chatEmbed(outcome)
}

func (h *MentionHandler) requestContext() (context.Context, context.CancelFunc) {
	if h.timeout > 0 {
		return context.WithTimeout(context.Background(), h.timeout)
	}
	return context.WithCancel(context.Background())
}

func thinkingMessage(diagnosis bool) string {
	if diagnosis {
		return "🔍 画像を診断中..."
	}
	return "🤔 考え中..."
}
