package handler

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
)

// WebhookCodeTransactionsReady はwebhookスタブが通知するイベントコード。
const WebhookCodeTransactionsReady = "TRANSACTIONS_READY"

// WebhookRecorder はwebhookイベントをメトリクスに記録するインターフェース。
type WebhookRecorder interface {
	RecordWebhookEvent(webhookCode string)
}

// WebhookHandler はwebhook受信スタブ。
type WebhookHandler struct {
	recorder WebhookRecorder
}

// NewWebhookHandler はWebhookHandlerを生成する。recorderはnilでもよい。
func NewWebhookHandler(recorder WebhookRecorder) *WebhookHandler {
	return &WebhookHandler{recorder: recorder}
}

// Receive はwebhookを受け付け、TRANSACTIONS_READYイベントをログに出力する。
// ボディの内容は結果に影響しない。
// POST /webhook
func (h *WebhookHandler) Receive(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(io.LimitReader(r.Body, maxRequestBodyBytes))

	args := []any{slog.String("webhook_code", WebhookCodeTransactionsReady)}

	var payload struct {
		ItemID string `json:"item_id"`
	}
	if json.Unmarshal(body, &payload) == nil && payload.ItemID != "" {
		args = append(args, slog.String("item_id", payload.ItemID))
	}

	slog.Info("webhook_event", args...)
	if h.recorder != nil {
		h.recorder.RecordWebhookEvent(WebhookCodeTransactionsReady)
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
