// Package model はドメインモデルを定義する。
package model

import "github.com/shopspring/decimal"

func init() {
	// 残高・金額はJSON数値として入出力する（フィクスチャ形式との互換）。
	decimal.MarshalJSONWithoutQuotes = true
}

// Account はペルソナが保有する口座を表す。
type Account struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	Type    string          `json:"type"` // depository, credit 等
	Balance decimal.Decimal `json:"balance"`
}

// Transaction は口座の取引明細を表す。
// AccountIDの参照整合性は検証しない。
type Transaction struct {
	ID        string          `json:"id"`
	AccountID string          `json:"account_id"`
	Date      string          `json:"date"` // YYYY-MM-DD
	Name      string          `json:"name"`
	Amount    decimal.Decimal `json:"amount"` // 負: 出金、正: 入金
}

// Persona はテスト用の顧客1人分のフィクスチャデータを表す。
// 起動時に1回だけ生成され、以後変更されない。
type Persona struct {
	Accounts     []Account     `json:"accounts"`
	Transactions []Transaction `json:"transactions"`
}
