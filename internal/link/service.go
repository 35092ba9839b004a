// Package link はLinkフロー（リンクトークン発行、公開トークン交換）を提供する。
package link

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/bankmock/internal/model"
)

// PlaceholderLinkToken はcreate-link-tokenが返す固定のリンクトークン。
// 暗号的な意味はなく、どこでも検証されない。
const PlaceholderLinkToken = "mock-link-token"

// DefaultLinkTokenTTL はリンクトークンの見かけ上の有効期間。
const DefaultLinkTokenTTL = time.Hour

// PersonaChecker はペルソナの存在確認に必要なインターフェース。
type PersonaChecker interface {
	Has(name string) bool
}

// TokenIssuer はアクセストークン発行に必要なインターフェース。
// token.Serviceが実装する。
type TokenIssuer interface {
	Issue(persona string) (string, model.Claims, error)
}

// LinkToken はリンクトークン発行結果。
type LinkToken struct {
	LinkToken  string    `json:"link_token"`
	Expiration time.Time `json:"expiration"`
}

// Exchange は公開トークン交換結果。
type Exchange struct {
	AccessToken string `json:"access_token"`
	ItemID      string `json:"item_id"`
}

// ServiceConfig はLinkサービスの設定。
type ServiceConfig struct {
	LinkTokenTTL time.Duration
	Now          func() time.Time // nilの場合はtime.Now
}

// Service はLinkフローのビジネスロジックを提供する。
type Service struct {
	personas PersonaChecker
	issuer   TokenIssuer
	config   ServiceConfig
}

// NewService はServiceを生成する。
func NewService(personas PersonaChecker, issuer TokenIssuer, config ServiceConfig) *Service {
	if config.LinkTokenTTL <= 0 {
		config.LinkTokenTTL = DefaultLinkTokenTTL
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	return &Service{
		personas: personas,
		issuer:   issuer,
		config:   config,
	}
}

// CreateLinkToken は固定のリンクトークンと有効期限を返す。
func (s *Service) CreateLinkToken(ctx context.Context) LinkToken {
	return LinkToken{
		LinkToken:  PlaceholderLinkToken,
		Expiration: s.config.Now().UTC().Add(s.config.LinkTokenTTL),
	}
}

// ExchangePublicToken はペルソナ名をアクセストークンに交換する。
// 呼び出しごとに新しいitem_idを持つ独立したトークンを発行する。
// 未知のペルソナの場合はINVALID_PERSONAのAPIErrorを返す。
func (s *Service) ExchangePublicToken(ctx context.Context, publicToken string) (*Exchange, error) {
	if publicToken == "" {
		return nil, model.NewPublicTokenRequiredError()
	}
	if !s.personas.Has(publicToken) {
		return nil, model.NewInvalidPersonaError()
	}

	accessToken, claims, err := s.issuer.Issue(publicToken)
	if err != nil {
		return nil, fmt.Errorf("failed to issue access token: %w", err)
	}

	slog.Info("public token exchanged",
		slog.String("persona", claims.Persona),
		slog.String("item_id", claims.ItemID),
		slog.Time("expires_at", claims.ExpiresAt),
	)

	return &Exchange{
		AccessToken: accessToken,
		ItemID:      claims.ItemID,
	}, nil
}
