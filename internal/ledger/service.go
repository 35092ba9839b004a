// Package ledger は認証済みペルソナの口座・取引データの参照を提供する。
package ledger

import (
	"context"
	"fmt"

	"github.com/hitoshi/bankmock/internal/model"
)

// PersonaReader はペルソナデータの取得に必要なインターフェース。
// fixture.Storeの部分集合として定義する。
type PersonaReader interface {
	Get(name string) (model.Persona, error)
}

// Service は口座・取引の読み取り専用サービス。
type Service struct {
	store PersonaReader
}

// NewService はServiceを生成する。
func NewService(store PersonaReader) *Service {
	return &Service{store: store}
}

// ListAccounts はペルソナの口座一覧をフィクスチャの順序のまま返す。
// 検証済みトークンのペルソナがストアに存在しない場合は内部エラーとなる。
func (s *Service) ListAccounts(ctx context.Context, persona string) ([]model.Account, error) {
	p, err := s.store.Get(persona)
	if err != nil {
		return nil, fmt.Errorf("failed to load accounts: %w", err)
	}
	return append([]model.Account{}, p.Accounts...), nil
}

// ListTransactions はペルソナの取引一覧に日付範囲フィルタを適用して返す。
// 並び順はフィクスチャの順序を維持する（日付で並べ替えない）。
func (s *Service) ListTransactions(ctx context.Context, persona string, dateRange DateRange) ([]model.Transaction, error) {
	p, err := s.store.Get(persona)
	if err != nil {
		return nil, fmt.Errorf("failed to load transactions: %w", err)
	}
	return dateRange.Apply(p.Transactions), nil
}
