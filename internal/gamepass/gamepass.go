// Package gamepass covers the buyer-created Roblox asset used to deliver
// Robux: its target price and link validation.
package gamepass

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultFee is the share Roblox keeps from every gamepass sale.
var DefaultFee = decimal.RequireFromString("0.30")

// TargetPrice returns the value the buyer must set on the gamepass: the
// order price net of the fee, rounded to whole units.
func TargetPrice(price, fee decimal.Decimal) int64 {
	net := decimal.NewFromInt(1).Sub(fee)
	return price.Mul(net).Round(0).IntPart()
}

// ParseFee parses a fee fraction, which must lie in [0, 1).
func ParseFee(s string) (decimal.Decimal, error) {
	if s == "" {
		return DefaultFee, nil
	}
	fee, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid fee fraction %q: %w", s, err)
	}
	if fee.IsNegative() || fee.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return decimal.Zero, fmt.Errorf("fee fraction %s out of range", fee)
	}
	return fee, nil
}

type LinkValidator struct {
	re *regexp.Regexp
}

func NewLinkValidator(pattern string) (*LinkValidator, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid gamepass link pattern: %w", err)
	}
	return &LinkValidator{re: re}, nil
}

// Valid reports whether link points at a gamepass or store page.
func (v *LinkValidator) Valid(link string) bool {
	return v.re.MatchString(strings.TrimSpace(link))
}
