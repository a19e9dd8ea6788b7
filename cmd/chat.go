package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/spf13/cobra"

	"kisanbot/configs"
	"kisanbot/internal/domain"
)

func newChatCommand() *cobra.Command {
	var imagePath string

	cmd := &cobra.Command{
		Use:   "chat <question>",
		Short: "栽培に関する質問に回答します",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp((*configs.Config).Validate)
			if err != nil {
				return err
			}
			defer a.Close()

			req := domain.ChatRequest{Query: strings.Join(args, " ")}
			if imagePath != "" {
				data, err := readImageFile(imagePath, a.config.Image.MaxBytes)
				if err != nil {
					return err
				}
				req.ImageDataURI = domain.EncodeDataURI(mimetype.Detect(data).String(), data)
			}

			ctx, cancel := withTimeout(cmd.Context(), a.config.Server.RequestTimeout)
			defer cancel()

			outcome := a.chat.Ask(ctx, req)
			if !outcome.IsOK() {
				return fmt.Errorf("%s: %s", outcome.Code, outcome.Message)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), outcome.Answer)
			return err
		},
	}

	cmd.Flags().StringVar(&imagePath, "image", "", "質問に添付する画像ファイル")
	return cmd
}

// withTimeout は、正のタイムアウトが指定された場合のみ期限付きのコンテキストを返します
func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout > 0 {
		return context.WithTimeout(ctx, timeout)
	}
	return context.WithCancel(ctx)
}
