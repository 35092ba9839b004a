// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hitoshi/bankmock/internal/model"
)

const bearerPrefix = "Bearer "

// 認証失敗理由。ログとメトリクスでのみ区別し、クライアントには同じレスポンスを返す。
const (
	AuthFailureMissingCredential = "missing_credential"
	AuthFailureInvalidCredential = "invalid_credential"
)

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// itemSessionContextKey はリクエストコンテキストに認証済みセッションを格納するためのキー。
var itemSessionContextKey = contextKey("item_session")

// TokenVerifier はアクセストークンの検証に必要なインターフェース。
// token.Serviceが実装する。
type TokenVerifier interface {
	Verify(token string) (model.Claims, error)
}

// AuthFailureRecorder は認証失敗を記録するインターフェース。
type AuthFailureRecorder interface {
	RecordAuthFailure(reason string)
}

// NewBearerAuthMiddleware はAuthorizationヘッダーのBearerトークンを検証するミドルウェアを返す。
// 検証に成功した場合はペルソナとitem_idをリクエストコンテキストに注入する。
// ヘッダー欠落・形式不正・検証失敗のいずれも同じ401レスポンスを返す。
// recorderはnilでもよい。
func NewBearerAuthMiddleware(verifier TokenVerifier, recorder AuthFailureRecorder) func(next http.Handler) http.Handler {
	reject := func(w http.ResponseWriter, r *http.Request, reason string, err error) {
		attrs := []any{
			slog.String("reason", reason),
			slog.String("path", r.URL.Path),
		}
		if err != nil {
			attrs = append(attrs, slog.String("error", err.Error()))
		}
		slog.Warn("authentication failed", attrs...)

		if recorder != nil {
			recorder.RecordAuthFailure(reason)
		}

		w.Header().Set("WWW-Authenticate", `Bearer realm="bankmock"`)
		WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// 1. Authorizationヘッダーからトークンを取得
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, bearerPrefix) || len(header) == len(bearerPrefix) {
				reject(w, r, AuthFailureMissingCredential, nil)
				return
			}
			token := header[len(bearerPrefix):]

			// 2. トークンの署名と有効期限を検証
			claims, err := verifier.Verify(token)
			if err != nil {
				reject(w, r, AuthFailureInvalidCredential, err)
				return
			}

			// 3. 認証済みセッションをコンテキストに注入
			sess := model.ItemSession{
				Persona: claims.Persona,
				ItemID:  claims.ItemID,
			}
			annotateRequestLog(r.Context(), sess)

			ctx := ContextWithItemSession(r.Context(), sess)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ItemSessionFromContext はリクエストコンテキストから認証済みセッションを取得する。
// Bearer認証ミドルウェアを通過したリクエストでのみ有効。
func ItemSessionFromContext(ctx context.Context) (model.ItemSession, error) {
	sess, ok := ctx.Value(itemSessionContextKey).(model.ItemSession)
	if !ok || sess.Persona == "" {
		return model.ItemSession{}, fmt.Errorf("item session not found in context")
	}
	return sess, nil
}

// ContextWithItemSession はコンテキストに認証済みセッションを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithItemSession(ctx context.Context, sess model.ItemSession) context.Context {
	return context.WithValue(ctx, itemSessionContextKey, sess)
}
