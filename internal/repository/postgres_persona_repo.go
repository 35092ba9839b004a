package repository

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"github.com/hitoshi/bankmock/internal/model"
)

// PostgresPersonaRepo はPostgreSQLを使用したペルソナリポジトリ。
type PostgresPersonaRepo struct {
	db *sql.DB
}

// NewPostgresPersonaRepo はPostgresPersonaRepoを生成する。
func NewPostgresPersonaRepo(db *sql.DB) *PostgresPersonaRepo {
	return &PostgresPersonaRepo{db: db}
}

// LoadAll は全ペルソナを読み込む。
// 口座・取引を持たないペルソナは空スライスで返す。
func (r *PostgresPersonaRepo) LoadAll(ctx context.Context) (map[string]model.Persona, error) {
	personas := make(map[string]model.Persona)

	rows, err := r.db.QueryContext(ctx, `SELECT name FROM personas ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list personas: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan persona: %w", err)
		}
		personas[name] = model.Persona{
			Accounts:     []model.Account{},
			Transactions: []model.Transaction{},
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate personas: %w", err)
	}

	if err := r.loadAccounts(ctx, personas); err != nil {
		return nil, err
	}
	if err := r.loadTransactions(ctx, personas); err != nil {
		return nil, err
	}

	return personas, nil
}

func (r *PostgresPersonaRepo) loadAccounts(ctx context.Context, personas map[string]model.Persona) error {
	rows, err := r.db.QueryContext(ctx,
		`SELECT persona, id, name, type, balance
		 FROM accounts ORDER BY persona, position`,
	)
	if err != nil {
		return fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var persona string
		var acc model.Account
		if err := rows.Scan(&persona, &acc.ID, &acc.Name, &acc.Type, &acc.Balance); err != nil {
			return fmt.Errorf("failed to scan account: %w", err)
		}
		p := personas[persona]
		p.Accounts = append(p.Accounts, acc)
		personas[persona] = p
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate accounts: %w", err)
	}
	return nil
}

func (r *PostgresPersonaRepo) loadTransactions(ctx context.Context, personas map[string]model.Persona) error {
	rows, err := r.db.QueryContext(ctx,
		`SELECT persona, id, account_id, date, name, amount
		 FROM transactions ORDER BY persona, position`,
	)
	if err != nil {
		return fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var persona string
		var txn model.Transaction
		if err := rows.Scan(&persona, &txn.ID, &txn.AccountID, &txn.Date, &txn.Name, &txn.Amount); err != nil {
			return fmt.Errorf("failed to scan transaction: %w", err)
		}
		p := personas[persona]
		p.Transactions = append(p.Transactions, txn)
		personas[persona] = p
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate transactions: %w", err)
	}
	return nil
}

// ReplaceAll は保存済みの全ペルソナを削除し、指定されたペルソナを挿入する。
// 口座・取引はスライスの順序をpositionとして保存する。
func (r *PostgresPersonaRepo) ReplaceAll(ctx context.Context, personas map[string]model.Persona) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// accounts・transactionsはCASCADE削除される
	if _, err := tx.ExecContext(ctx, `DELETE FROM personas`); err != nil {
		return fmt.Errorf("failed to clear personas: %w", err)
	}

	names := make([]string, 0, len(personas))
	for name := range personas {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		p := personas[name]

		if _, err := tx.ExecContext(ctx, `INSERT INTO personas (name) VALUES ($1)`, name); err != nil {
			return fmt.Errorf("failed to insert persona %s: %w", name, err)
		}

		for i, acc := range p.Accounts {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO accounts (persona, position, id, name, type, balance)
				 VALUES ($1, $2, $3, $4, $5, $6)`,
				name, i, acc.ID, acc.Name, acc.Type, acc.Balance,
			)
			if err != nil {
				return fmt.Errorf("failed to insert account %s/%s: %w", name, acc.ID, err)
			}
		}

		for i, txn := range p.Transactions {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO transactions (persona, position, id, account_id, date, name, amount)
				 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
				name, i, txn.ID, txn.AccountID, txn.Date, txn.Name, txn.Amount,
			)
			if err != nil {
				return fmt.Errorf("failed to insert transaction %s/%s: %w", name, txn.ID, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
