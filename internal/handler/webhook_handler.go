package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/hitoshi/kotakun/internal/line"
	"github.com/hitoshi/kotakun/internal/metrics"
	"github.com/hitoshi/kotakun/internal/middleware"
	"github.com/hitoshi/kotakun/internal/model"
	"github.com/hitoshi/kotakun/internal/webhook"
)

// 署名検証失敗の理由ラベル。
const (
	signatureFailureMissing  = "missing"
	signatureFailureMismatch = "mismatch"
)

// EventDispatcher は検証済みイベントを処理するインターフェース。
type EventDispatcher interface {
	Dispatch(ctx context.Context, events []line.Event) []webhook.Result
}

// WebhookHandler はLINEプラットフォームからのWebhookを受け付けるHTTPハンドラー。
type WebhookHandler struct {
	channelSecret string
	dispatcher    EventDispatcher
	recorder      metrics.EventRecorder
	logger        *slog.Logger
}

// NewWebhookHandler はWebhookHandlerを生成する。
func NewWebhookHandler(channelSecret string, dispatcher EventDispatcher, recorder metrics.EventRecorder, logger *slog.Logger) *WebhookHandler {
	if recorder == nil {
		recorder = metrics.Nop{}
	}
	return &WebhookHandler{
		channelSecret: channelSecret,
		dispatcher:    dispatcher,
		recorder:      recorder,
		logger:        logger,
	}
}

// webhookResponse はWebhookの応答ボディ。
type webhookResponse struct {
	Message string           `json:"message"`
	Results []webhook.Result `json:"results"`
}

// Handle はWebhookリクエストを処理する。
// POST /api/webhook
//
// 生のボディに対して署名を検証してからJSONとして解釈する。
// 署名が一致しない場合はイベントを1件も処理しない。
func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	signature := r.Header.Get(line.SignatureHeader)
	if signature == "" {
		h.recorder.RecordSignatureFailure(signatureFailureMissing)
		h.logger.Warn("署名ヘッダーのないWebhookを受信しました",
			slog.String("request_id", middleware.RequestIDFromContext(r.Context())),
		)
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewMissingSignatureError())
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBodySize))
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError())
		return
	}

	if err := line.VerifySignature(h.channelSecret, body, signature); err != nil {
		h.recorder.RecordSignatureFailure(signatureFailureMismatch)
		h.logger.Warn("Webhookの署名検証に失敗しました",
			slog.String("request_id", middleware.RequestIDFromContext(r.Context())),
		)
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidSignatureError())
		return
	}

	events, err := line.ParseEvents(body)
	if err != nil {
		h.logger.Warn("Webhookボディの解析に失敗しました",
			slog.String("error", err.Error()),
			slog.String("request_id", middleware.RequestIDFromContext(r.Context())),
		)
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError())
		return
	}

	results := h.dispatcher.Dispatch(r.Context(), events)

	writeJSON(w, http.StatusOK, webhookResponse{
		Message: "OK",
		Results: results,
	})
}
