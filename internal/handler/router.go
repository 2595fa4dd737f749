package handler

import (
	"log/slog"
	"net/http"
	"net/netip"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/kotakun/internal/line"
	"github.com/hitoshi/kotakun/internal/metrics"
	"github.com/hitoshi/kotakun/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	Logger *slog.Logger

	// ミドルウェア依存
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	// 転送ヘッダーを信用するリバースプロキシのアドレス範囲（空の場合は信用しない）
	TrustedProxies []netip.Prefix

	// メトリクス（nilの場合は/metricsを公開しない）
	Metrics         *metrics.Collector
	MetricsGatherer prometheus.Gatherer

	// ヘルスチェック
	HealthChecker HealthChecker

	// Webhook
	ChannelSecret   string
	EventDispatcher EventDispatcher

	// カウンセリング・AIアドバイス
	CounselingService CounselingServiceInterface
	AdviceService     AdviceServiceInterface

	// LINEへの送信
	MessagePusher MessagePusher
	Templates     *line.Templates
}

// NewRouter は全エンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	RealIP → RequestID → Logging → Recovery → SecurityHeaders → (API) CORS → RateLimit(General)
//
// Webhook・/health・/metricsはCORSとレート制限の外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()

	r.Use(middleware.NewRealIPMiddleware(deps.TrustedProxies))
	r.Use(middleware.NewRequestIDMiddleware())
	r.Use(middleware.NewLoggingMiddleware(logger))
	r.Use(middleware.NewRecoveryMiddleware(logger))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	if deps.Metrics != nil {
		r.Use(deps.Metrics.StatusMiddleware())
	}

	var recorder metrics.EventRecorder = metrics.Nop{}
	if deps.Metrics != nil {
		recorder = deps.Metrics
	}

	webhookHandler := NewWebhookHandler(deps.ChannelSecret, deps.EventDispatcher, recorder, logger)
	counselingHandler := NewCounselingHandler(deps.CounselingService, logger)
	adviceHandler := NewAdviceHandler(deps.AdviceService, deps.MessagePusher, deps.Templates, logger)
	messageHandler := NewMessageHandler(deps.MessagePusher, deps.Templates, logger)

	// --- 運用系 ---
	r.Get("/health", NewHealthHandler(deps.HealthChecker, logger))
	if deps.MetricsGatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.SetupMetricsRoute(deps.MetricsGatherer))
	}

	// --- LINEプラットフォームからのWebhook ---
	// 署名で認証するためCORSとレート制限は適用しない
	r.Post("/api/webhook", webhookHandler.Handle)

	// --- LIFFアプリから呼ばれるAPI ---
	// ミドルウェアスタック: CORS → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// プリフライトはCORSミドルウェアが204で応答する
		r.Options("/api/*", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		})

		r.Route("/api/counseling", func(r chi.Router) {
			r.Post("/", counselingHandler.Submit)
			r.Get("/", counselingHandler.Get)
		})
		// 旧パス
		r.Post("/api/submit-counseling", counselingHandler.Submit)
		r.Get("/api/submit-counseling", counselingHandler.Get)

		// POST /api/ai-advice - AIアドバイス生成（専用レート制限を追加）
		r.With(deps.RateLimiter.AIMiddleware()).Post("/api/ai-advice", adviceHandler.Generate)
		r.Post("/api/send-ai-advice", adviceHandler.Send)
		r.Post("/api/send-message", messageHandler.Send)
	})

	return r
}
