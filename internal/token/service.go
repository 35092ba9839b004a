// Package token はアクセストークン（HS256署名JWT）の発行と検証を提供する。
// サーバー側にセッションテーブルを持たず、有効性は署名と有効期限のみで決まる。
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/hitoshi/bankmock/internal/model"
)

// DefaultTTL はアクセストークンのデフォルト有効期間。
const DefaultTTL = time.Hour

// ErrInvalidCredential はトークン検証に失敗した場合のエラー。
// 署名不正・形式不正・期限切れを区別せずに返す。
var ErrInvalidCredential = errors.New("invalid credential")

// Config はトークンサービスの設定。
type Config struct {
	SigningKey []byte        // HMAC署名鍵（必須）
	TTL        time.Duration // 0の場合はDefaultTTL
	Issuer     string        // 空の場合はissクレームを検証しない
}

// accessClaims はJWTに埋め込むクレーム。
type accessClaims struct {
	Persona string `json:"persona"`
	ItemID  string `json:"item_id"`
	jwt.RegisteredClaims
}

// Option はServiceの生成オプション。
type Option func(*Service)

// WithClock は現在時刻の取得関数を差し替える。テスト用。
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// Service はアクセストークンの発行と検証を行う。
// 生成後は状態を変更しないため、並行利用しても安全。
type Service struct {
	key    []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time
	parser *jwt.Parser
}

// NewService はServiceを生成する。
// 署名鍵が空の場合はエラーを返す。
func NewService(cfg Config, opts ...Option) (*Service, error) {
	if len(cfg.SigningKey) == 0 {
		return nil, fmt.Errorf("token signing key is required")
	}

	s := &Service{
		key:    append([]byte(nil), cfg.SigningKey...),
		ttl:    cfg.TTL,
		issuer: cfg.Issuer,
		now:    time.Now,
	}
	if s.ttl <= 0 {
		s.ttl = DefaultTTL
	}
	for _, opt := range opts {
		opt(s)
	}

	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	}
	if s.issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(s.issuer))
	}
	s.parser = jwt.NewParser(parserOpts...)

	return s, nil
}

// TTL はトークンの有効期間を返す。
func (s *Service) TTL() time.Duration {
	return s.ttl
}

// Issue はペルソナに紐づくアクセストークンを発行する。
// 呼び出しごとに新しいitem_idを生成する。ペルソナの存在確認は呼び出し元の責務。
func (s *Service) Issue(persona string) (string, model.Claims, error) {
	itemID, err := uuid.NewRandom()
	if err != nil {
		return "", model.Claims{}, fmt.Errorf("failed to generate item id: %w", err)
	}

	issuedAt := jwt.NewNumericDate(s.now())
	expiresAt := jwt.NewNumericDate(issuedAt.Add(s.ttl))

	claims := accessClaims{
		Persona: persona,
		ItemID:  itemID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			IssuedAt:  issuedAt,
			ExpiresAt: expiresAt,
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
	if err != nil {
		return "", model.Claims{}, fmt.Errorf("failed to sign access token: %w", err)
	}

	return signed, model.Claims{
		Persona:   claims.Persona,
		ItemID:    claims.ItemID,
		IssuedAt:  issuedAt.Time,
		ExpiresAt: expiresAt.Time,
	}, nil
}

// Verify はトークンの署名と有効期限を検証し、クレームを返す。
// 失敗理由によらずErrInvalidCredentialをラップしたエラーを返す。
func (s *Service) Verify(tokenString string) (model.Claims, error) {
	if tokenString == "" {
		return model.Claims{}, fmt.Errorf("%w: empty token", ErrInvalidCredential)
	}

	var claims accessClaims
	tok, err := s.parser.ParseWithClaims(tokenString, &claims, func(*jwt.Token) (any, error) {
		return s.key, nil
	})
	if err != nil {
		return model.Claims{}, fmt.Errorf("%w: %v", ErrInvalidCredential, err)
	}
	if !tok.Valid || claims.Persona == "" || claims.ItemID == "" {
		return model.Claims{}, fmt.Errorf("%w: incomplete claims", ErrInvalidCredential)
	}

	out := model.Claims{
		Persona:   claims.Persona,
		ItemID:    claims.ItemID,
		ExpiresAt: claims.ExpiresAt.Time,
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	return out, nil
}
