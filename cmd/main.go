package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// version はビルド時に設定されます
var version = "dev"

func main() {
	// シグナルハンドリング
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "エラー: %v\n", err)
		os.Exit(1)
	}
}

// newRootCommand は、すべてのサブコマンドを登録したルートコマンドを作成します
func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "kisanbot",
		Short:         "植物の病害診断と栽培相談のAIアシスタント",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newServeCommand(),
		newDiscordCommand(),
		newDiagnoseCommand(),
		newChatCommand(),
		newModelsCommand(),
	)
	return root
}
