package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/hitoshi/kotakun/internal/line"
	"github.com/hitoshi/kotakun/internal/middleware"
	"github.com/hitoshi/kotakun/internal/model"
)

// MessageHandler はLIFFアプリからのメッセージをトークへ転送するHTTPハンドラー。
type MessageHandler struct {
	pusher    MessagePusher
	templates *line.Templates
	logger    *slog.Logger
}

// NewMessageHandler はMessageHandlerを生成する。
func NewMessageHandler(pusher MessagePusher, templates *line.Templates, logger *slog.Logger) *MessageHandler {
	return &MessageHandler{
		pusher:    pusher,
		templates: templates,
		logger:    logger,
	}
}

type sendMessageRequest struct {
	UserID  string `json:"userId"`
	Message string `json:"message"`
}

// Send はメッセージをテキストとしてユーザーに送信する。
// POST /api/send-message
func (h *MessageHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req sendMessageRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	middleware.SetUserID(r.Context(), req.UserID)

	var missing []string
	if strings.TrimSpace(req.UserID) == "" {
		missing = append(missing, "userId")
	}
	if req.Message == "" {
		missing = append(missing, "message")
	}
	if len(missing) > 0 {
		handleServiceError(w, r, h.logger, model.NewMissingFieldError(missing...))
		return
	}

	if err := h.pusher.Push(r.Context(), req.UserID, h.templates.RelayText(req.Message)); err != nil {
		h.logger.Error("メッセージの送信に失敗しました",
			slog.String("user_id", req.UserID),
			slog.String("error", err.Error()),
		)
		handleServiceError(w, r, h.logger, model.NewUpstreamFailedError("line"))
		return
	}

	writeJSON(w, http.StatusOK, successResponse{Success: true})
}
