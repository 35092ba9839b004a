package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// クライアントに返す原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, system
	Action   string // クライアント向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodePublicTokenRequired = "PUBLIC_TOKEN_REQUIRED"
	ErrCodeInvalidPersona      = "INVALID_PERSONA"
	ErrCodeUnauthorized        = "UNAUTHORIZED"
	ErrCodeRateLimitExceeded   = "RATE_LIMIT_EXCEEDED"
	ErrCodeNotFound            = "NOT_FOUND"
	ErrCodeMethodNotAllowed    = "METHOD_NOT_ALLOWED"
	ErrCodeInternal            = "INTERNAL_ERROR"
)

// NewPublicTokenRequiredError はpublic_token未指定エラーを生成する。
func NewPublicTokenRequiredError() *APIError {
	return &APIError{
		Code:     ErrCodePublicTokenRequired,
		Message:  "public_token is required",
		Category: "validation",
		Action:   "Send a JSON body with a string public_token field.",
	}
}

// NewInvalidPersonaError は未知のペルソナ指定エラーを生成する。
// ペルソナの存在有無を推測されないよう、バリデーションエラーとして扱う。
func NewInvalidPersonaError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidPersona,
		Message:  "invalid persona",
		Category: "validation",
		Action:   "Use one of the configured test personas as public_token.",
	}
}

// NewUnauthorizedError は認証エラーを生成する。
// トークン欠落・改ざん・期限切れのいずれでも同じ内容を返す。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "invalid or missing access token",
		Category: "auth",
		Action:   "Exchange a public_token for a new access_token and retry.",
	}
}

// NewNotFoundError は未定義のエンドポイントへのアクセスエラーを生成する。
func NewNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeNotFound,
		Message:  "endpoint not found",
		Category: "validation",
		Action:   "Check the request path.",
	}
}

// NewMethodNotAllowedError は許可されていないHTTPメソッドのエラーを生成する。
func NewMethodNotAllowedError() *APIError {
	return &APIError{
		Code:     ErrCodeMethodNotAllowed,
		Message:  "method not allowed",
		Category: "validation",
		Action:   "Check the HTTP method for this endpoint.",
	}
}

// NewInternalError は内部エラーを生成する。
// 詳細はログのみに記録する。
func NewInternalError() *APIError {
	return &APIError{
		Code:     ErrCodeInternal,
		Message:  "internal error",
		Category: "system",
		Action:   "Please wait and try again later.",
	}
}
