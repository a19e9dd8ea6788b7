package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"kisanbot/internal/domain"
)

type handler struct {
	diagnoser        Diagnoser
	chat             ChatAssistant
	models           ModelCatalog
	requestTimeout   time.Duration
	maxBodyBytes     int64
	exposeDiagnostic bool
	logger           *zap.Logger
}

// diagnoseRequest は、POST /api/diagnose の本文です
type diagnoseRequest struct {
	PlantImage string `json:"plantImage" binding:"required"`
}

// chatRequest は、POST /api/ai-chat の本文です
type chatRequest struct {
	Query string `json:"query"`
	Image string `json:"image"`
}

// errorResponse は、サービス層の結果を介さないエラー応答です
type errorResponse struct {
	Status  domain.OutcomeStatus `json:"status"`
	Code    domain.ErrorCode     `json:"code"`
	Message string               `json:"message"`
}

func errorBody(code domain.ErrorCode, message string) errorResponse {
	if message == "" {
		message = code.DefaultMessage()
	}
	return errorResponse{Status: domain.StatusError, Code: code, Message: message}
}

// StatusForCode は、エラーコードをHTTPステータスへ変換します
func StatusForCode(code domain.ErrorCode) int {
	switch code {
	case "":
		return http.StatusOK
	case domain.CodeBadRequest:
		return http.StatusBadRequest
	case domain.CodeInvalidImage, domain.CodeUnsupportedImageType,
		domain.CodeImageTooBlurry, domain.CodeImageLowContrast, domain.CodeNoDetection:
		return http.StatusUnprocessableEntity
	case domain.CodeModelNotFound, domain.CodeModelError, domain.CodeNoOutput:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// requestContext は、リクエストのタイムアウトを設定したコンテキストを返します
func (h *handler) requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	if h.requestTimeout <= 0 {
		return context.WithCancel(c.Request.Context())
	}
	return context.WithTimeout(c.Request.Context(), h.requestTimeout)
}

// limitBody は、リクエスト本文のサイズを制限します
func (h *handler) limitBody(c *gin.Context) {
	if h.maxBodyBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBodyBytes)
	}
}

// bindError は、本文の解析失敗に応じたエラー応答を返します
func (h *handler) bindError(c *gin.Context, err error) {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		c.JSON(http.StatusRequestEntityTooLarge, errorBody(domain.CodeInvalidImage, "The uploaded image is too large."))
		return
	}
	h.logger.Info("リクエスト本文を解析できません", zap.Error(err))
	c.JSON(http.StatusBadRequest, errorBody(domain.CodeBadRequest, ""))
}

func (h *handler) diagnose(c *gin.Context) {
	h.limitBody(c)

	var req diagnoseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindError(c, err)
		return
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	outcome := h.diagnoser.Diagnose(ctx, req.PlantImage)
	if !h.exposeDiagnostic {
		outcome = outcome.WithoutDiagnostics()
	}
	c.JSON(StatusForCode(outcome.Code), outcome)
}

func (h *handler) aiChat(c *gin.Context) {
	h.limitBody(c)

	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindError(c, err)
		return
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	outcome := h.chat.Ask(ctx, domain.ChatRequest{Query: req.Query, ImageDataURI: req.Image})
	if !h.exposeDiagnostic {
		outcome = outcome.WithoutDiagnostics()
	}
	c.JSON(StatusForCode(outcome.Code), outcome)
}

func (h *handler) listModels(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	ids, err := h.models.GenerationModels(ctx)
	if err != nil {
		h.logger.Warn("モデル一覧の取得に失敗しました", zap.Error(err))
		code := domain.CodeModelError
		if errors.Is(err, domain.ErrNotConfigured) {
			code = domain.CodeNotConfigured
		}
		c.JSON(StatusForCode(code), errorBody(code, ""))
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": domain.StatusOK, "models": ids})
}

func (h *handler) checkModel(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	id := domain.ModelID(c.Param("id"))
	validity := h.models.Check(ctx, id)
	c.JSON(http.StatusOK, gin.H{"model": id.Short(), "ok": validity.OK, "reason": validity.Reason})
}
