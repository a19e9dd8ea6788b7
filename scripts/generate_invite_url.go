package main

import (
	"fmt"
	"log"

	"github.com/bwmarrin/discordgo"

	"kisanbot/configs"
)

// botPermissions は、診断Botがスレッドで応答するために必要な権限です
const botPermissions = discordgo.PermissionViewChannel |
	discordgo.PermissionSendMessages |
	discordgo.PermissionSendMessagesInThreads |
	discordgo.PermissionCreatePublicThreads |
	discordgo.PermissionEmbedLinks |
	discordgo.PermissionReadMessageHistory

func main() {
	cfg, err := configs.LoadConfig()
	if err != nil {
		log.Fatalf("設定の読み込みに失敗: %v", err)
	}
	if cfg.Discord.BotToken == "" {
		log.Fatal("DISCORD_BOT_TOKEN が設定されていません")
	}

	// Discordセッションを作成
	session, err := discordgo.New("Bot " + cfg.Discord.BotToken)
	if err != nil {
		log.Fatalf("Discordセッションの作成に失敗: %v", err)
	}
	defer session.Close()

	// Botの情報を取得
	user, err := session.User("@me")
	if err != nil {
		log.Fatalf("Bot情報の取得に失敗: %v", err)
	}

	fmt.Printf("🤖 Bot情報:\n")
	fmt.Printf("   名前: %s\n", user.Username)
	fmt.Printf("   Client ID: %s\n", user.ID)
	fmt.Println()

	inviteURL := fmt.Sprintf("https://discord.com/api/oauth2/authorize?client_id=%s&permissions=%d&scope=bot", user.ID, int64(botPermissions))

	fmt.Printf("🔗 Bot招待URL:\n")
	fmt.Printf("   %s\n", inviteURL)
	fmt.Println()

	fmt.Printf("📋 必要な権限 (合計: %d):\n", int64(botPermissions))
	fmt.Printf("   - View Channels\n")
	fmt.Printf("   - Send Messages / Send Messages in Threads\n")
	fmt.Printf("   - Create Public Threads\n")
	fmt.Printf("   - Embed Links\n")
	fmt.Printf("   - Read Message History\n")
	fmt.Println()

	fmt.Printf("🎯 Botの使い方:\n")
	fmt.Printf("   1. 植物の写真を添付してBotをメンション: @%s\n", user.Username)
	fmt.Printf("   2. Botがスレッドを作成し、病害の診断結果を返信します\n")
	fmt.Printf("   3. 写真なしでメンションすると栽培に関する質問に回答します\n")
	fmt.Printf("   4. Developer Portal で Message Content Intent を有効にしてください\n")
}
