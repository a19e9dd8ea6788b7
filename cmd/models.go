package main

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"kisanbot/configs"
	"kisanbot/internal/domain"
)

func newModelsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "models",
		Short: "利用可能なモデルを照会します",
	}
	cmd.AddCommand(newModelsListCommand(), newModelsCheckCommand())
	return cmd
}

func newModelsListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "generateContent に対応するモデルを一覧表示します",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp((*configs.Config).Validate)
			if err != nil {
				return err
			}
			defer a.Close()

			ids, err := a.models.GenerationModels(cmd.Context())
			if err != nil {
				return describeListError(err)
			}
			for _, id := range ids {
				fmt.Fprintln(cmd.OutOrStdout(), id)
			}
			return nil
		},
	}
}

func newModelsCheckCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "check <model-id>",
		Short: "モデルが利用可能かを確認します",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp((*configs.Config).Validate)
			if err != nil {
				return err
			}
			defer a.Close()

			validity := a.models.Check(cmd.Context(), domain.ModelID(args[0]))
			if err := printJSON(cmd.OutOrStdout(), validity); err != nil {
				return err
			}
			if !validity.OK {
				return fmt.Errorf("モデル '%s' は利用できません: %s", args[0], validity.Reason)
			}
			return nil
		},
	}
}

// describeListError は、モデル一覧の取得エラーを利用者向けに言い換えます
// 認証エラーはそれ以外の失敗と区別して報告します
func describeListError(err error) error {
	if errors.Is(err, domain.ErrNotConfigured) {
		return fmt.Errorf("認証情報が設定されていません。GENAI_API_KEY または GENAI_BEARER を設定してください: %w", err)
	}
	if ie, ok := domain.AsInvocationError(err); ok {
		switch ie.HTTPStatus {
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("認証に失敗しました (HTTP %d)。認証情報と権限を確認してください: %w", ie.HTTPStatus, err)
		}
	}
	return fmt.Errorf("モデル一覧の取得に失敗: %w", err)
}
