package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/hitoshi/bankmock/internal/ledger"
	"github.com/hitoshi/bankmock/internal/middleware"
	"github.com/hitoshi/bankmock/internal/model"
)

// LedgerServiceInterface はDataHandlerが必要とするサービスのインターフェース。
type LedgerServiceInterface interface {
	ListAccounts(ctx context.Context, persona string) ([]model.Account, error)
	ListTransactions(ctx context.Context, persona string, dateRange ledger.DateRange) ([]model.Transaction, error)
}

// DataHandler は口座・取引データ参照のHTTPハンドラー。
// Bearer認証ミドルウェアの内側に配置する。
type DataHandler struct {
	service LedgerServiceInterface
}

// NewDataHandler はDataHandlerを生成する。
func NewDataHandler(service LedgerServiceInterface) *DataHandler {
	return &DataHandler{service: service}
}

type accountsResponse struct {
	Accounts []model.Account `json:"accounts"`
}

type transactionsResponse struct {
	Transactions []model.Transaction `json:"transactions"`
}

// ListAccounts は認証済みペルソナの口座一覧を返す。
// GET /accounts
func (h *DataHandler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	sess, err := middleware.ItemSessionFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	accounts, err := h.service.ListAccounts(r.Context(), sess.Persona)
	if err != nil {
		slog.Error("failed to list accounts",
			slog.String("persona", sess.Persona),
			slog.String("item_id", sess.ItemID),
			slog.String("error", err.Error()),
		)
		middleware.WriteInternalServerError(w)
		return
	}

	if accounts == nil {
		accounts = []model.Account{}
	}
	writeJSON(w, http.StatusOK, accountsResponse{Accounts: accounts})
}

// ListTransactions は認証済みペルソナの取引一覧を返す。
// クエリパラメータstart・end（YYYY-MM-DD、両端を含む）で絞り込める。
// GET /transactions
func (h *DataHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	sess, err := middleware.ItemSessionFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	query := r.URL.Query()
	dateRange := ledger.ParseDateRange(query.Get("start"), query.Get("end"))

	transactions, err := h.service.ListTransactions(r.Context(), sess.Persona, dateRange)
	if err != nil {
		slog.Error("failed to list transactions",
			slog.String("persona", sess.Persona),
			slog.String("item_id", sess.ItemID),
			slog.String("error", err.Error()),
		)
		middleware.WriteInternalServerError(w)
		return
	}

	if transactions == nil {
		transactions = []model.Transaction{}
	}
	writeJSON(w, http.StatusOK, transactionsResponse{Transactions: transactions})
}
