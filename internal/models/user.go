// internal/models/user.go
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type User struct {
	UserID         string          `json:"user_id"`
	Username       string          `json:"username"`
	ActiveCartID   *int64          `json:"active_cart_id"`
	RobloxNickname string          `json:"roblox_nickname"`
	PurchasesCount int             `json:"purchases_count"`
	TotalSpent     decimal.Decimal `json:"total_spent"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// Actor is whoever triggered an interaction.
type Actor struct {
	UserID   string
	Username string
	IsAdmin  bool
	IsVIP    bool
}
