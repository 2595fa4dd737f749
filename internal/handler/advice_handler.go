package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hitoshi/kotakun/internal/advice"
	"github.com/hitoshi/kotakun/internal/line"
	"github.com/hitoshi/kotakun/internal/middleware"
	"github.com/hitoshi/kotakun/internal/model"
)

// AdviceServiceInterface はAIアドバイス生成のサービスインターフェース。
type AdviceServiceInterface interface {
	Generate(ctx context.Context, userID string) (*advice.Result, error)
}

// MessagePusher はユーザーIDを宛先としてメッセージを送信するインターフェース。
type MessagePusher interface {
	Push(ctx context.Context, to string, messages ...line.Message) error
}

// AdviceHandler はAIアドバイスの生成と送信のHTTPハンドラー。
type AdviceHandler struct {
	service   AdviceServiceInterface
	pusher    MessagePusher
	templates *line.Templates
	logger    *slog.Logger
}

// NewAdviceHandler はAdviceHandlerを生成する。
func NewAdviceHandler(service AdviceServiceInterface, pusher MessagePusher, templates *line.Templates, logger *slog.Logger) *AdviceHandler {
	return &AdviceHandler{
		service:   service,
		pusher:    pusher,
		templates: templates,
		logger:    logger,
	}
}

type generateAdviceRequest struct {
	UserID string `json:"userId"`
}

type generateAdviceResponse struct {
	Success       bool                   `json:"success"`
	AIAdvice      string                 `json:"aiAdvice"`
	NutritionData model.NutritionTargets `json:"nutritionData"`
}

type sendAdviceRequest struct {
	UserID        string                  `json:"userId"`
	AIAdvice      string                  `json:"aiAdvice"`
	NutritionData *model.NutritionTargets `json:"nutritionData"`
}

type successResponse struct {
	Success bool `json:"success"`
}

// Generate は保存済みのカウンセリング内容からAIアドバイスを生成する。
// POST /api/ai-advice
func (h *AdviceHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req generateAdviceRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	middleware.SetUserID(r.Context(), req.UserID)

	result, err := h.service.Generate(r.Context(), req.UserID)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, generateAdviceResponse{
		Success:       true,
		AIAdvice:      result.Advice,
		NutritionData: result.NutritionData,
	})
}

// Send はAIアドバイスと栄養目標をFlexメッセージでユーザーに送信する。
// POST /api/send-ai-advice
func (h *AdviceHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req sendAdviceRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	middleware.SetUserID(r.Context(), req.UserID)

	var missing []string
	if strings.TrimSpace(req.UserID) == "" {
		missing = append(missing, "userId")
	}
	if strings.TrimSpace(req.AIAdvice) == "" {
		missing = append(missing, "aiAdvice")
	}
	if req.NutritionData == nil {
		missing = append(missing, "nutritionData")
	}
	if len(missing) > 0 {
		handleServiceError(w, r, h.logger, model.NewMissingFieldError(missing...))
		return
	}

	if err := h.pusher.Push(r.Context(), req.UserID, h.templates.AIAdvice(req.AIAdvice, *req.NutritionData)); err != nil {
		h.logger.Error("AIアドバイスの送信に失敗しました",
			slog.String("user_id", req.UserID),
			slog.String("error", err.Error()),
		)
		handleServiceError(w, r, h.logger, model.NewUpstreamFailedError("line"))
		return
	}

	writeJSON(w, http.StatusOK, successResponse{Success: true})
}
