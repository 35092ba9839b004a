package handler

import "net/http"

// PersonaCounter はロード済みペルソナ数を返すインターフェース。
type PersonaCounter interface {
	Len() int
}

// HealthHandler はヘルスチェック用のハンドラー。
type HealthHandler struct {
	personas PersonaCounter
}

// NewHealthHandler はHealthHandlerを生成する。
func NewHealthHandler(personas PersonaCounter) *HealthHandler {
	return &HealthHandler{personas: personas}
}

type healthResponse struct {
	Status   string `json:"status"`
	Personas int    `json:"personas"`
}

// Health はサービスの稼働状態を返す。
// GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	count := 0
	if h.personas != nil {
		count = h.personas.Len()
	}
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Personas: count})
}
