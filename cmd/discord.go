package main

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"kisanbot/configs"
	infradiscord "kisanbot/internal/infrastructure/discord"
	presdiscord "kisanbot/internal/presentation/discord"
)

func newDiscordCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "discord",
		Short: "Discord Botを起動します",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp((*configs.Config).ValidateDiscord)
			if err != nil {
				return err
			}
			defer a.Close()

			// Discordセッションを作成
			session, err := discordgo.New("Bot " + a.config.Discord.BotToken)
			if err != nil {
				return fmt.Errorf("Discordセッションの作成に失敗: %w", err)
			}
			session.Identify.Intents = discordgo.IntentsGuildMessages |
				discordgo.IntentsDirectMessages |
				discordgo.IntentsMessageContent

			// Botの情報を取得
			user, err := session.User("@me")
			if err != nil {
				return fmt.Errorf("Bot情報の取得に失敗: %w", err)
			}
			a.logger.Info("Bot情報", zap.String("username", user.Username), zap.String("id", user.ID))

			fetcher := infradiscord.NewAttachmentRepository(session.Client, a.config.Discord.MaxAttachment, a.logger)
			handler := presdiscord.NewDiscordHandler(
				session, a.diagnosis, a.chat, fetcher, user.ID, a.config.Server.RequestTimeout, a.logger,
			)
			handler.SetupHandlers()

			// Discordに接続
			if err := session.Open(); err != nil {
				return fmt.Errorf("Discordへの接続に失敗: %w", err)
			}
			a.logger.Info("Discordに接続しました。Botが準備完了しました")

			<-cmd.Context().Done()
			a.logger.Info("終了シグナルを受信しました。Botを停止中...")

			if err := session.Close(); err != nil {
				a.logger.Warn("Discordセッションのクローズに失敗", zap.Error(err))
			}
			handler.Wait()
			a.logger.Info("Botが正常に停止しました")
			return nil
		},
	}
}
