package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/bankmock/internal/metrics"
	"github.com/hitoshi/bankmock/internal/middleware"
	"github.com/hitoshi/bankmock/internal/model"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	TokenVerifier     middleware.TokenVerifier
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	// TrustProxyHeaders がtrueの場合、X-Forwarded-For等からクライアントIPを決定する
	TrustProxyHeaders bool
	Logger            *slog.Logger

	// メトリクス
	Metrics         metrics.MetricsCollector
	MetricsGatherer prometheus.Gatherer // nilの場合は/metricsを公開しない

	// Linkフロー
	LinkService LinkServiceInterface

	// データ参照
	LedgerService LedgerServiceInterface

	// ヘルスチェック
	Personas PersonaCounter
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	RequestID → (RealIP) → Logging → Recovery → Metrics → SecurityHeaders → CORS
//
// データ参照ルートにはさらに BearerAuth → RateLimit(General) を適用する。
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	if deps.TrustProxyHeaders {
		r.Use(chimw.RealIP)
	}
	r.Use(middleware.NewLoggingMiddleware(logger))
	r.Use(middleware.NewRecoveryMiddleware())
	if deps.Metrics != nil {
		r.Use(middleware.NewMetricsMiddleware(deps.Metrics))
	}
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteErrorResponse(w, http.StatusNotFound, model.NewNotFoundError())
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteErrorResponse(w, http.StatusMethodNotAllowed, model.NewMethodNotAllowedError())
	})

	var (
		exchangeRecorder ExchangeRecorder
		webhookRecorder  WebhookRecorder
		authRecorder     middleware.AuthFailureRecorder
	)
	if deps.Metrics != nil {
		exchangeRecorder = deps.Metrics
		webhookRecorder = deps.Metrics
		authRecorder = deps.Metrics
	}

	linkHandler := NewLinkHandler(deps.LinkService, exchangeRecorder)
	dataHandler := NewDataHandler(deps.LedgerService)
	webhookHandler := NewWebhookHandler(webhookRecorder)
	healthHandler := NewHealthHandler(deps.Personas)

	// --- 認証不要のルート ---

	r.Get("/health", healthHandler.Health)
	if deps.MetricsGatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(deps.MetricsGatherer))
	}

	// Linkフロー（クライアントIP単位のレート制限）
	r.Group(func(r chi.Router) {
		r.Use(deps.RateLimiter.ExchangeMiddleware())

		r.Post("/link/token/create", linkHandler.CreateLinkToken)
		r.Post("/item/public_token/exchange", linkHandler.ExchangePublicToken)
	})

	r.Post("/webhook", webhookHandler.Receive)

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: BearerAuth → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewBearerAuthMiddleware(deps.TokenVerifier, authRecorder))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		r.Get("/accounts", dataHandler.ListAccounts)
		r.Get("/transactions", dataHandler.ListTransactions)
	})

	return r
}
