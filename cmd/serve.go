package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"kisanbot/configs"
	"kisanbot/internal/presentation/httpapi"
)

// shutdownTimeout は、サーバー停止時に処理中のリクエストを待つ時間です
const shutdownTimeout = 15 * time.Second

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "HTTP APIサーバーを起動します",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp((*configs.Config).Validate)
			if err != nil {
				return err
			}
			defer a.Close()
			return a.serve(cmd.Context())
		},
	}
}

// router は、HTTP APIのルーターを作成します
func (a *app) router() *gin.Engine {
	return httpapi.NewRouter(httpapi.Options{
		Diagnoser:    a.diagnosis,
		Chat:         a.chat,
		Models:       a.models,
		Server:       a.config.Server,
		MaxBodyBytes: maxBodyBytes(a.config.Image.MaxBytes),
		Debug:        a.config.Log.Level == "debug",
		Logger:       a.logger,
	})
}

// maxBodyBytes は、base64化された画像を含むJSON本文の上限を計算します
func maxBodyBytes(maxImageBytes int) int64 {
	return int64(maxImageBytes)*4/3 + 4 + 1<<10
}

// serve は、コンテキストが取り消されるまでHTTPサーバーを実行します
func (a *app) serve(ctx context.Context) error {
	server := httpapi.NewServer(a.config.Server.Addr, a.router(), a.config.Server.RequestTimeout)

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTPサーバーを起動しました",
			zap.String("addr", a.config.Server.Addr),
			zap.String("model", a.client.DefaultModel().Short()))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	a.logger.Info("終了シグナルを受信しました。サーバーを停止中...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	a.logger.Info("サーバーが正常に停止しました")
	return nil
}
