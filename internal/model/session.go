package model

import "time"

// Session : сессия, к которой привязан выданный JWT, logout помечает её отозванной
type Session struct {
	ID        string    `db:"id"`
	UserID    string    `db:"user_id"`
	ExpireAt  time.Time `db:"expire_at"`
	Revoked   bool      `db:"revoked"`
	UserAgent string    `db:"user_agent"`
	IpAddress string    `db:"ip_address"`
	CreatedAt time.Time `db:"created_at"`
}
