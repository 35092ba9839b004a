package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/bankmock/internal/model"
)

// --- モック定義 ---

type mockVerifier struct {
	verifyFn func(token string) (model.Claims, error)
	calls    int
}

func (m *mockVerifier) Verify(token string) (model.Claims, error) {
	m.calls++
	if m.verifyFn != nil {
		return m.verifyFn(token)
	}
	return model.Claims{}, errors.New("invalid")
}

// validTokenVerifier は"good-token"のみを受け付けるモック。
func validTokenVerifier() *mockVerifier {
	return &mockVerifier{
		verifyFn: func(token string) (model.Claims, error) {
			if token == "good-token" {
				return model.Claims{Persona: "steady", ItemID: "item-123"}, nil
			}
			return model.Claims{}, errors.New("signature is invalid")
		},
	}
}

type mockAuthFailureRecorder struct {
	reasons []string
}

func (m *mockAuthFailureRecorder) RecordAuthFailure(reason string) {
	m.reasons = append(m.reasons, reason)
}

// --- テスト ---

func TestBearerAuth_ValidToken_InjectsItemSession(t *testing.T) {
	mw := NewBearerAuthMiddleware(validTokenVerifier(), nil)

	var captured model.ItemSession
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, err := ItemSessionFromContext(r.Context())
		if err != nil {
			t.Errorf("expected no error, got %v", err)
		}
		captured = sess
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/accounts", nil)
	req.Header.Set("Authorization", "Bearer good-token")
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}
	if captured.Persona != "steady" {
		t.Errorf("Persona = %q, want %q", captured.Persona, "steady")
	}
	if captured.ItemID != "item-123" {
		t.Errorf("ItemID = %q, want %q", captured.ItemID, "item-123")
	}
}

func TestBearerAuth_MissingOrMalformedHeader_Returns401WithoutVerifying(t *testing.T) {
	tests := []struct {
		name   string
		header string
	}{
		{"no header", ""},
		{"basic scheme", "Basic dXNlcjpwYXNz"},
		{"lowercase scheme", "bearer good-token"},
		{"scheme only", "Bearer "},
		{"no space", "Bearergood-token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verifier := validTokenVerifier()
			recorder := &mockAuthFailureRecorder{}
			mw := NewBearerAuthMiddleware(verifier, recorder)

			handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				t.Fatal("handler should not be called")
			}))

			req := httptest.NewRequest(http.MethodGet, "/accounts", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			if w.Result().StatusCode != http.StatusUnauthorized {
				t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusUnauthorized)
			}
			if verifier.calls != 0 {
				t.Errorf("verifier called %d times, want 0", verifier.calls)
			}
			if len(recorder.reasons) != 1 || recorder.reasons[0] != AuthFailureMissingCredential {
				t.Errorf("reasons = %v, want [%s]", recorder.reasons, AuthFailureMissingCredential)
			}
		})
	}
}

func TestBearerAuth_InvalidToken_Returns401(t *testing.T) {
	recorder := &mockAuthFailureRecorder{}
	mw := NewBearerAuthMiddleware(validTokenVerifier(), recorder)

	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be called")
	}))

	req := httptest.NewRequest(http.MethodGet, "/transactions", nil)
	req.Header.Set("Authorization", "Bearer forged-token")
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusUnauthorized)
	}
	if got := resp.Header.Get("WWW-Authenticate"); got == "" {
		t.Error("expected WWW-Authenticate header")
	}
	if len(recorder.reasons) != 1 || recorder.reasons[0] != AuthFailureInvalidCredential {
		t.Errorf("reasons = %v, want [%s]", recorder.reasons, AuthFailureInvalidCredential)
	}
}

func TestBearerAuth_MissingAndInvalid_ReturnIdenticalBodies(t *testing.T) {
	mw := NewBearerAuthMiddleware(validTokenVerifier(), nil)
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be called")
	}))

	decode := func(header string) ErrorResponseBody {
		req := httptest.NewRequest(http.MethodGet, "/accounts", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		var body ErrorResponseBody
		if err := json.NewDecoder(w.Result().Body).Decode(&body); err != nil {
			t.Fatalf("failed to decode: %v", err)
		}
		return body
	}

	missing := decode("")
	invalid := decode("Bearer forged-token")

	if missing != invalid {
		t.Errorf("bodies differ: missing=%+v invalid=%+v", missing, invalid)
	}
	if missing.Code != model.ErrCodeUnauthorized {
		t.Errorf("code = %q, want %q", missing.Code, model.ErrCodeUnauthorized)
	}
}

func TestItemSessionFromContext_Missing_ReturnsError(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if _, err := ItemSessionFromContext(req.Context()); err == nil {
		t.Error("expected error for context without session")
	}
}

func TestContextWithItemSession_RoundTrip(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	ctx := ContextWithItemSession(req.Context(), model.ItemSession{Persona: "gig_worker", ItemID: "i-1"})

	sess, err := ItemSessionFromContext(ctx)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if sess.Persona != "gig_worker" || sess.ItemID != "i-1" {
		t.Errorf("session = %+v", sess)
	}
}
