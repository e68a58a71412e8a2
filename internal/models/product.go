package models

import "github.com/shopspring/decimal"

type ProductType string

const (
	ProductAutomatized ProductType = "automatized"
	ProductManual      ProductType = "manual"
)

type PriceOption struct {
	Label string          `json:"label"`
	Price decimal.Decimal `json:"price"`
}

type Product struct {
	Name      string        `json:"name"`
	Emoji     string        `json:"emoji"`
	Category  string        `json:"category"`
	Type      ProductType   `json:"type"`
	Prices    []PriceOption `json:"prices"`
	VIPPrices []PriceOption `json:"vip_prices"`
}
