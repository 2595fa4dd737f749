package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hitoshi/kotakun/internal/middleware"
	"github.com/hitoshi/kotakun/internal/model"
)

// CounselingServiceInterface はカウンセリングハンドラーが必要とするサービスインターフェース。
type CounselingServiceInterface interface {
	// Submit はカウンセリングデータを保存し、算出した栄養目標を返す。
	Submit(ctx context.Context, userID string, profile *model.CounselingProfile) (*model.NutritionTargets, error)
	// Get はユーザーのレコードを返す。未登録の場合はnilを返す。
	Get(ctx context.Context, userID string) (*model.UserRecord, error)
}

// CounselingHandler はカウンセリングデータの登録と取得のHTTPハンドラー。
type CounselingHandler struct {
	service CounselingServiceInterface
	logger  *slog.Logger
}

// NewCounselingHandler はCounselingHandlerを生成する。
func NewCounselingHandler(service CounselingServiceInterface, logger *slog.Logger) *CounselingHandler {
	return &CounselingHandler{
		service: service,
		logger:  logger,
	}
}

// submitCounselingRequest はカウンセリング登録リクエストのボディ。
type submitCounselingRequest struct {
	UserID         string                   `json:"userId"`
	CounselingData *model.CounselingProfile `json:"counselingData"`
}

// submitCounselingResponse はカウンセリング登録のレスポンス。
type submitCounselingResponse struct {
	Success       bool                    `json:"success"`
	Message       string                  `json:"message"`
	NutritionData *model.NutritionTargets `json:"nutritionData"`
}

// counselingResponse はカウンセリングデータ取得のレスポンス。
// 未登録の場合もisRegistered=falseとnullで200を返す。
type counselingResponse struct {
	IsRegistered   bool                     `json:"isRegistered"`
	CounselingData *model.CounselingProfile `json:"counselingData"`
	NutritionData  *model.NutritionTargets  `json:"nutritionData"`
}

// Submit はカウンセリングデータを登録する。
// POST /api/counseling
func (h *CounselingHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req submitCounselingRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	middleware.SetUserID(r.Context(), req.UserID)

	targets, err := h.service.Submit(r.Context(), req.UserID, req.CounselingData)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, submitCounselingResponse{
		Success:       true,
		Message:       "Counseling data saved successfully",
		NutritionData: targets,
	})
}

// Get は保存済みのカウンセリングデータを返す。
// GET /api/counseling?userId=
func (h *CounselingHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(r.URL.Query().Get("userId"))
	middleware.SetUserID(r.Context(), userID)

	record, err := h.service.Get(r.Context(), userID)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	resp := counselingResponse{}
	if record != nil {
		resp.IsRegistered = record.IsRegistered
		resp.CounselingData = record.CounselingData
		resp.NutritionData = record.NutritionData
	}
	writeJSON(w, http.StatusOK, resp)
}
