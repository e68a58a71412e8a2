package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Order struct {
	OrderID        int64           `json:"order_id"`
	Reference      string          `json:"reference"`
	CartID         int64           `json:"cart_id"`
	UserID         string          `json:"user_id"`
	ProductType    ProductType     `json:"product_type"`
	ProductName    string          `json:"product_name"`
	QuantityLabel  string          `json:"quantity_label"`
	Price          decimal.Decimal `json:"price"`
	RobloxNickname string          `json:"roblox_nickname"`
	GamepassLink   string          `json:"gamepass_link"`
	DeliveredBy    string          `json:"delivered_by"`
	CompletedAt    time.Time       `json:"completed_at"`
}

type Review struct {
	ReviewID  int64     `json:"review_id"`
	OrderID   int64     `json:"order_id"`
	UserID    string    `json:"user_id"`
	Rating    int       `json:"rating"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}
