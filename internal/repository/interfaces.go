// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/hitoshi/bankmock/internal/model"
)

// PersonaRepository はペルソナのフィクスチャデータの永続化インターフェース。
type PersonaRepository interface {
	// LoadAll は全ペルソナを読み込む。口座・取引はインポート時の順序を保つ。
	LoadAll(ctx context.Context) (map[string]model.Persona, error)

	// ReplaceAll は保存済みの全ペルソナを同一トランザクションで置き換える。
	ReplaceAll(ctx context.Context, personas map[string]model.Persona) error
}
