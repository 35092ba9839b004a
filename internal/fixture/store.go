// Package fixture はペルソナごとのフィクスチャデータを保持する読み取り専用ストアを提供する。
package fixture

import (
	"errors"
	"fmt"
	"sort"

	"github.com/hitoshi/bankmock/internal/model"
)

// ErrPersonaNotFound はストアに存在しないペルソナを参照した場合のエラー。
var ErrPersonaNotFound = errors.New("persona not found")

// Store はペルソナ名からフィクスチャデータへのイミュータブルなマッピング。
// 生成後は書き込みが発生しないため、並行読み取りにロックは不要。
type Store struct {
	personas map[string]model.Persona
	names    []string
}

// NewStore は渡されたペルソナをコピーしてStoreを生成する。
// 呼び出し元が後からmapを変更してもStoreには影響しない。
func NewStore(personas map[string]model.Persona) *Store {
	s := &Store{
		personas: make(map[string]model.Persona, len(personas)),
		names:    make([]string, 0, len(personas)),
	}
	for name, p := range personas {
		s.personas[name] = model.Persona{
			Accounts:     append([]model.Account{}, p.Accounts...),
			Transactions: append([]model.Transaction{}, p.Transactions...),
		}
		s.names = append(s.names, name)
	}
	sort.Strings(s.names)
	return s
}

// Has はペルソナが存在するかどうかを返す。
func (s *Store) Has(name string) bool {
	_, ok := s.personas[name]
	return ok
}

// Get はペルソナのデータを返す。
// 存在しない場合はErrPersonaNotFoundをラップしたエラーを返す。
func (s *Store) Get(name string) (model.Persona, error) {
	p, ok := s.personas[name]
	if !ok {
		return model.Persona{}, fmt.Errorf("%w: %q", ErrPersonaNotFound, name)
	}
	return p, nil
}

// Names は登録済みペルソナ名を昇順で返す。
func (s *Store) Names() []string {
	return append([]string(nil), s.names...)
}

// Len は登録済みペルソナ数を返す。
func (s *Store) Len() int {
	return len(s.personas)
}
