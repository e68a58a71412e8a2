// Package catalog holds the read-only product catalog injected into the
// cart service.
package catalog

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"robux-bot/config"
	"robux-bot/internal/models"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrPriceNotFound   = errors.New("price option not found")
)

type Catalog struct {
	products   []models.Product
	byName     map[string]int
	categories []string
}

// New validates the configured products and builds the catalog.
func New(products []config.ProductConfig) (*Catalog, error) {
	c := &Catalog{byName: make(map[string]int)}
	seenCategory := make(map[string]bool)

	for _, pc := range products {
		if pc.Name == "" {
			return nil, fmt.Errorf("product without name")
		}
		if _, dup := c.byName[pc.Name]; dup {
			return nil, fmt.Errorf("duplicate product %q", pc.Name)
		}
		if pc.Category == "" {
			return nil, fmt.Errorf("product %q has no category", pc.Name)
		}

		ptype := models.ProductType(pc.Type)
		if ptype != models.ProductAutomatized && ptype != models.ProductManual {
			return nil, fmt.Errorf("product %q has unknown type %q", pc.Name, pc.Type)
		}

		prices, err := parsePrices(pc.Prices)
		if err != nil {
			return nil, fmt.Errorf("product %q: %w", pc.Name, err)
		}
		if len(prices) == 0 {
			return nil, fmt.Errorf("product %q has no prices", pc.Name)
		}
		vip, err := parsePrices(pc.VIPPrices)
		if err != nil {
			return nil, fmt.Errorf("product %q vip prices: %w", pc.Name, err)
		}

		c.byName[pc.Name] = len(c.products)
		c.products = append(c.products, models.Product{
			Name:      pc.Name,
			Emoji:     pc.Emoji,
			Category:  pc.Category,
			Type:      ptype,
			Prices:    prices,
			VIPPrices: vip,
		})
		if !seenCategory[pc.Category] {
			seenCategory[pc.Category] = true
			c.categories = append(c.categories, pc.Category)
		}
	}

	return c, nil
}

func parsePrices(in []config.PriceConfig) ([]models.PriceOption, error) {
	out := make([]models.PriceOption, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, p := range in {
		if p.Label == "" {
			return nil, fmt.Errorf("price without label")
		}
		if seen[p.Label] {
			return nil, fmt.Errorf("duplicate price label %q", p.Label)
		}
		seen[p.Label] = true

		price, err := decimal.NewFromString(p.Price)
		if err != nil {
			return nil, fmt.Errorf("invalid price %q for %q: %w", p.Price, p.Label, err)
		}
		if !price.IsPositive() {
			return nil, fmt.Errorf("price for %q must be positive", p.Label)
		}
		out = append(out, models.PriceOption{Label: p.Label, Price: price})
	}
	return out, nil
}

// Categories returns the categories in configuration order.
func (c *Catalog) Categories() []string {
	return append([]string(nil), c.categories...)
}

func (c *Catalog) ProductsIn(category string) []models.Product {
	var out []models.Product
	for _, p := range c.products {
		if p.Category == category {
			out = append(out, p)
		}
	}
	return out
}

func (c *Catalog) Product(name string) (models.Product, error) {
	i, ok := c.byName[name]
	if !ok {
		return models.Product{}, fmt.Errorf("%w: %s", ErrProductNotFound, name)
	}
	return c.products[i], nil
}

// Price resolves the price of label. VIP buyers get the VIP tier when the
// product defines one for that label.
func (c *Catalog) Price(product models.Product, label string, vip bool) (decimal.Decimal, error) {
	if vip {
		for _, p := range product.VIPPrices {
			if p.Label == label {
				return p.Price, nil
			}
		}
	}
	for _, p := range product.Prices {
		if p.Label == label {
			return p.Price, nil
		}
	}
	return decimal.Zero, fmt.Errorf("%w: %s / %s", ErrPriceNotFound, product.Name, label)
}
