package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"kisanbot/configs"
	"kisanbot/internal/domain"
)

func newDiagnoseCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "diagnose <image-file>",
		Short: "画像ファイルを診断して結果をJSONで出力します",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp((*configs.Config).Validate)
			if err != nil {
				return err
			}
			defer a.Close()

			data, err := readImageFile(args[0], a.config.Image.MaxBytes)
			if err != nil {
				return err
			}

			ctx, cancel := withTimeout(cmd.Context(), a.config.Server.RequestTimeout)
			defer cancel()

			outcome := a.diagnosis.DiagnoseImage(ctx, domain.NewImageBuffer(data, "", filepath.Base(args[0])))
			if err := printJSON(cmd.OutOrStdout(), outcome); err != nil {
				return err
			}
			if !outcome.IsOK() {
				return fmt.Errorf("診断できませんでした: %s", outcome.Code)
			}
			return nil
		},
	}
}
