package discord

import (
	"context"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"kisanbot/internal/domain"
)

// threadArchiveMinutes は、応答スレッドが自動アーカイブされるまでの分数です
const threadArchiveMinutes = 60

// Diagnoser は、画像から病害を診断するサービスです
type Diagnoser interface {
	DiagnoseImage(ctx context.Context, buf domain.ImageBuffer) domain.DiagnosisOutcome
}

// ChatAssistant は、テキストの質問に回答するサービスです
type ChatAssistant interface {
	Ask(ctx context.Context, req domain.ChatRequest) domain.ChatOutcome
}

// AttachmentFetcher は、メッセージの添付ファイルを取得します
type AttachmentFetcher interface {
	Fetch(ctx context.Context, att *discordgo.MessageAttachment) (domain.ImageBuffer, error)
}

// messenger は、応答の送信に使うDiscord操作です
type messenger interface {
	StartThread(channelID, messageID, name string) (string, error)
	Send(channelID, content string) (string, error)
	SendEmbed(channelID string, embed *discordgo.MessageEmbed) error
	ReplyEmbed(m *discordgo.Message, embed *discordgo.MessageEmbed) error
	Delete(channelID, messageID string) error
}

// sessionMessenger は、discordgo.Session を使う messenger の実装です
type sessionMessenger struct {
	session *discordgo.Session
}

func (s sessionMessenger) StartThread(channelID, messageID, name string) (string, error) {
	thread, err := s.session.MessageThreadStart(channelID, messageID, name, threadArchiveMinutes)
	if err != nil {
		return "", err
	}
	return thread.ID, nil
}

func (s sessionMessenger) Send(channelID, content string) (string, error) {
	msg, err := s.session.ChannelMessageSend(channelID, content)
	if err != nil {
		return "", err
	}
	return msg.ID, nil
}

func (s sessionMessenger) SendEmbed(channelID string, embed *discordgo.MessageEmbed) error {
	_, err := s.session.ChannelMessageSendEmbed(channelID, embed)
	return err
}

func (s sessionMessenger) ReplyEmbed(m *discordgo.Message, embed *discordgo.MessageEmbed) error {
	_, err := s.session.ChannelMessageSendComplex(m.ChannelID, &discordgo.MessageSend{
		Embeds:    []*discordgo.MessageEmbed{embed},
		Reference: m.Reference(),
	})
	return err
}

func (s sessionMessenger) Delete(channelID, messageID string) error {
	return s.session.ChannelMessageDelete(channelID, messageID)
}

// DiscordHandler は、Discordのイベントハンドラです
type DiscordHandler struct {
	session        *discordgo.Session
	botID          string
	mentionHandler *MentionHandler
}

// NewDiscordHandler は新しいDiscordHandlerインスタンスを作成します
func NewDiscordHandler(
	session *discordgo.Session,
	diagnoser Diagnoser,
	chat ChatAssistant,
	fetcher AttachmentFetcher,
	botID string,
	timeout time.Duration,
	logger *zap.Logger,
) *DiscordHandler {
	mentionHandler := NewMentionHandler(sessionMessenger{session: session}, diagnoser, chat, fetcher, botID, timeout, logger)

	return &DiscordHandler{
		session:        session,
		botID:          botID,
		mentionHandler: mentionHandler,
	}
}

// SetupHandlers は、Discordのイベントハンドラを設定します
func (h *DiscordHandler) SetupHandlers() {
	h.session.AddHandler(h.mentionHandler.handleReady)
	h.session.AddHandler(h.mentionHandler.handleMessageCreate)
}

// Wait は、処理中のメンションがすべて完了するまで待機します
func (h *DiscordHandler) Wait() {
	h.mentionHandler.wg.Wait()
}
