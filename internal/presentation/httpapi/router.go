package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"kisanbot/internal/domain"
	"kisanbot/internal/infrastructure/config"
)

// Diagnoser は、data URI形式の画像を診断するサービスです
type Diagnoser interface {
	Diagnose(ctx context.Context, imageDataURI string) domain.DiagnosisOutcome
}

// ChatAssistant は、チャットの質問に回答するサービスです
type ChatAssistant interface {
	Ask(ctx context.Context, req domain.ChatRequest) domain.ChatOutcome
}

// ModelCatalog は、利用可能なモデルを照会するサービスです
type ModelCatalog interface {
	GenerationModels(ctx context.Context) ([]string, error)
	Check(ctx context.Context, id domain.ModelID) domain.ModelValidity
}

// Options は、ルーターの構成です
type Options struct {
	Diagnoser    Diagnoser
	Chat         ChatAssistant
	Models       ModelCatalog
	Server       config.ServerConfig
	MaxBodyBytes int64
	Debug        bool
	Logger       *zap.Logger
}

// NewRouter は、ミドルウェアとルートを設定したgin.Engineを作成します
func NewRouter(opts Options) *gin.Engine {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	if opts.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(recoveryMiddleware(logger))
	engine.Use(loggingMiddleware(logger))
	engine.Use(metricsMiddleware())
	engine.Use(cors.New(corsConfig(opts.Server.AllowOrigins)))

	h := &handler{
		diagnoser:        opts.Diagnoser,
		chat:             opts.Chat,
		models:           opts.Models,
		requestTimeout:   opts.Server.RequestTimeout,
		maxBodyBytes:     opts.MaxBodyBytes,
		exposeDiagnostic: opts.Server.ExposeDiagnostic,
		logger:           logger,
	}

	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := engine.Group("/api")
	api.POST("/diagnose", h.diagnose)
	api.POST("/ai-chat", h.aiChat)
	api.GET("/models", h.listModels)
	api.GET("/models/:id/check", h.checkModel)

	return engine
}

// corsConfig は、許可するオリジンからCORS設定を作成します
func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	return cfg
}

// NewServer は、タイムアウトを設定したHTTPサーバーを作成します
func NewServer(addr string, engine *gin.Engine, requestTimeout time.Duration) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      requestTimeout + 10*time.Second,
	}
}
