package model

import "time"

// Claims はアクセストークンに埋め込まれる署名済みペイロードを表す。
type Claims struct {
	Persona   string
	ItemID    string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// ItemSession は認証済みリクエストに紐づくペルソナとアイテムIDを表す。
// 1リクエストの間だけコンテキストに保持され、永続化されない。
type ItemSession struct {
	Persona string
	ItemID  string
}
