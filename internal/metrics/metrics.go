// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Webhookイベントの処理結果ラベル。
const (
	OutcomeHandled = "handled"
	OutcomeIgnored = "ignored"
	OutcomeFailed  = "failed"
)

// 外部サービス名ラベル。
const (
	ServiceLINE   = "line"
	ServiceGemini = "gemini"
)

// EventRecorder はWebhookイベント処理の記録インターフェース。
type EventRecorder interface {
	RecordWebhookEvent(eventType, outcome string)
	RecordSignatureFailure(reason string)
}

// UpstreamRecorder は外部サービス呼び出しの記録インターフェース。
type UpstreamRecorder interface {
	RecordUpstreamCall(service string, duration time.Duration, err error)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	webhookEvents     *prometheus.CounterVec
	signatureFailures *prometheus.CounterVec
	upstreamLatency   *prometheus.HistogramVec
	upstreamErrors    *prometheus.CounterVec
	submissions       prometheus.Counter
	httpStatus        *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		webhookEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kotakun_webhook_events_total",
			Help: "Webhookイベントの種別・処理結果別の件数",
		}, []string{"type", "outcome"}),
		signatureFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kotakun_webhook_signature_failures_total",
			Help: "Webhook署名検証の失敗件数",
		}, []string{"reason"}),
		upstreamLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "kotakun_upstream_latency_seconds",
			Help:    "外部サービス呼び出しのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"service"}),
		upstreamErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kotakun_upstream_errors_total",
			Help: "外部サービス呼び出しの失敗件数",
		}, []string{"service"}),
		submissions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kotakun_counseling_submissions_total",
			Help: "カウンセリングデータの登録件数",
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kotakun_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
	}

	reg.MustRegister(
		c.webhookEvents,
		c.signatureFailures,
		c.upstreamLatency,
		c.upstreamErrors,
		c.submissions,
		c.httpStatus,
	)

	return c
}

// RecordWebhookEvent はWebhookイベントの処理結果を記録する。
func (c *Collector) RecordWebhookEvent(eventType, outcome string) {
	c.webhookEvents.WithLabelValues(eventType, outcome).Inc()
}

// RecordSignatureFailure は署名検証の失敗を記録する。
func (c *Collector) RecordSignatureFailure(reason string) {
	c.signatureFailures.WithLabelValues(reason).Inc()
}

// RecordUpstreamCall は外部サービス呼び出しのレイテンシと失敗を記録する。
func (c *Collector) RecordUpstreamCall(service string, duration time.Duration, err error) {
	c.upstreamLatency.WithLabelValues(service).Observe(duration.Seconds())
	if err != nil {
		c.upstreamErrors.WithLabelValues(service).Inc()
	}
}

// RecordSubmission はカウンセリングデータの登録を記録する。
func (c *Collector) RecordSubmission() {
	c.submissions.Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// StatusMiddleware はレスポンスのステータスコードを記録するミドルウェアを返す。
func (c *Collector) StatusMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			c.RecordHTTPStatus(rec.status)
		})
	}
}

// statusWriter はステータスコードを記録するhttp.ResponseWriter。
type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.status = code
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(code)
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Nop は何も記録しない実装。メトリクスが不要なテストや構成で使う。
type Nop struct{}

func (Nop) RecordWebhookEvent(string, string) {}
func (Nop) RecordSignatureFailure(string) {}
func (Nop) RecordUpstreamCall(string, time.Duration, error) {}
func (Nop) RecordSubmission() {}

// compile-time interface checks
var (
	_ EventRecorder    = (*Collector)(nil)
	_ UpstreamRecorder = (*Collector)(nil)
	_ EventRecorder    = Nop{}
	_ UpstreamRecorder = Nop{}
)
