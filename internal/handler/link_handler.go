package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/hitoshi/bankmock/internal/link"
	"github.com/hitoshi/bankmock/internal/model"
)

// maxRequestBodyBytes はリクエストボディの最大サイズ。
const maxRequestBodyBytes = 1 << 20

// LinkServiceInterface はLinkHandlerが必要とするサービスのインターフェース。
type LinkServiceInterface interface {
	CreateLinkToken(ctx context.Context) link.LinkToken
	ExchangePublicToken(ctx context.Context, publicToken string) (*link.Exchange, error)
}

// ExchangeRecorder は交換結果をメトリクスに記録するインターフェース。
type ExchangeRecorder interface {
	RecordTokenIssued()
	RecordExchangeFailure(code string)
}

// LinkHandler はLinkフロー関連のHTTPハンドラー。
type LinkHandler struct {
	service  LinkServiceInterface
	recorder ExchangeRecorder
}

// NewLinkHandler はLinkHandlerを生成する。recorderはnilでもよい。
func NewLinkHandler(service LinkServiceInterface, recorder ExchangeRecorder) *LinkHandler {
	return &LinkHandler{service: service, recorder: recorder}
}

// CreateLinkToken はリンクトークンを発行する。
// POST /link/token/create
func (h *LinkHandler) CreateLinkToken(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.CreateLinkToken(r.Context()))
}

// ExchangePublicToken は公開トークン（ペルソナ名）をアクセストークンに交換する。
// POST /item/public_token/exchange
func (h *LinkHandler) ExchangePublicToken(w http.ResponseWriter, r *http.Request) {
	publicToken, ok := decodePublicToken(w, r)
	if !ok {
		h.recordFailure(model.ErrCodePublicTokenRequired)
		handleServiceError(w, model.NewPublicTokenRequiredError())
		return
	}

	exchange, err := h.service.ExchangePublicToken(r.Context(), publicToken)
	if err != nil {
		var apiErr *model.APIError
		if errors.As(err, &apiErr) {
			h.recordFailure(apiErr.Code)
		} else {
			h.recordFailure(model.ErrCodeInternal)
		}
		handleServiceError(w, err)
		return
	}

	if h.recorder != nil {
		h.recorder.RecordTokenIssued()
	}
	writeJSON(w, http.StatusOK, exchange)
}

func (h *LinkHandler) recordFailure(code string) {
	if h.recorder != nil {
		h.recorder.RecordExchangeFailure(code)
	}
}

// decodePublicToken はJSONオブジェクトのボディからpublic_tokenを取り出す。
// ボディが壊れている場合、フィールドが無い・文字列でない・空の場合はfalseを返す。
func decodePublicToken(w http.ResponseWriter, r *http.Request) (string, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)

	var body map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return "", false
	}

	raw, exists := body["public_token"]
	if !exists {
		return "", false
	}

	var publicToken string
	if err := json.Unmarshal(raw, &publicToken); err != nil {
		return "", false
	}
	if publicToken == "" {
		return "", false
	}
	return publicToken, true
}
