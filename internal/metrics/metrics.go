// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// ミドルウェアやハンドラーから利用する。
type MetricsCollector interface {
	RecordTokenIssued()
	RecordExchangeFailure(code string)
	RecordAuthFailure(reason string)
	RecordRateLimited(limitType string)
	RecordWebhookEvent(webhookCode string)
	RecordHTTPStatus(statusCode int)
	RecordRequestLatency(route string, duration time.Duration)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	tokensIssued    prometheus.Counter
	exchangeFail    *prometheus.CounterVec
	authFail        *prometheus.CounterVec
	rateLimited     *prometheus.CounterVec
	webhookEvents   *prometheus.CounterVec
	httpStatus      *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		tokensIssued: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bankmock_tokens_issued_total",
			Help: "発行したアクセストークンの合計数",
		}),
		exchangeFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bankmock_exchange_failures_total",
			Help: "公開トークン交換の失敗数（エラーコード別）",
		}, []string{"code"}),
		authFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bankmock_auth_failures_total",
			Help: "Bearer認証の失敗数（理由別）",
		}, []string{"reason"}),
		rateLimited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bankmock_rate_limited_total",
			Help: "レート制限で拒否したリクエスト数",
		}, []string{"limit_type"}),
		webhookEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bankmock_webhook_events_total",
			Help: "受信したWebhookイベント数",
		}, []string{"webhook_code"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bankmock_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "bankmock_http_request_duration_seconds",
			Help:    "ルート別のリクエスト処理時間（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
	}

	reg.MustRegister(
		c.tokensIssued,
		c.exchangeFail,
		c.authFail,
		c.rateLimited,
		c.webhookEvents,
		c.httpStatus,
		c.requestDuration,
	)

	return c
}

// RecordTokenIssued はアクセストークン発行を記録する。
func (c *Collector) RecordTokenIssued() {
	c.tokensIssued.Inc()
}

// RecordExchangeFailure は公開トークン交換の失敗を記録する。
func (c *Collector) RecordExchangeFailure(code string) {
	c.exchangeFail.WithLabelValues(code).Inc()
}

// RecordAuthFailure は認証失敗を記録する。
func (c *Collector) RecordAuthFailure(reason string) {
	c.authFail.WithLabelValues(reason).Inc()
}

// RecordRateLimited はレート制限による拒否を記録する。
func (c *Collector) RecordRateLimited(limitType string) {
	c.rateLimited.WithLabelValues(limitType).Inc()
}

// RecordWebhookEvent はWebhookイベントの受信を記録する。
func (c *Collector) RecordWebhookEvent(webhookCode string) {
	c.webhookEvents.WithLabelValues(webhookCode).Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordRequestLatency はルート別の処理時間を記録する。
func (c *Collector) RecordRequestLatency(route string, duration time.Duration) {
	c.requestDuration.WithLabelValues(route).Observe(duration.Seconds())
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// NewRegistry はGo・プロセスのランタイムメトリクスを登録済みのレジストリを返す。
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
	return reg
}
