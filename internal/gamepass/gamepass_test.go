package gamepass

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"robux-bot/config"
)

func TestTargetPrice(t *testing.T) {
	tests := []struct {
		price string
		want  int64
	}{
		{"41.00", 29},
		{"4.50", 3},
		{"80.00", 56},
		{"195.00", 137},
		{"10.00", 7},
	}
	for _, tt := range tests {
		got := TargetPrice(decimal.RequireFromString(tt.price), DefaultFee)
		assert.Equal(t, tt.want, got, "price %s", tt.price)
	}
}

func TestParseFee(t *testing.T) {
	fee, err := ParseFee("")
	require.NoError(t, err)
	assert.True(t, fee.Equal(DefaultFee))

	fee, err = ParseFee("0.25")
	require.NoError(t, err)
	assert.Equal(t, "0.25", fee.String())

	for _, bad := range []string{"1", "1.5", "-0.1", "x"} {
		_, err := ParseFee(bad)
		assert.Error(t, err, bad)
	}
}

func TestLinkValidator(t *testing.T) {
	v, err := NewLinkValidator(config.DefaultLinkPattern)
	require.NoError(t, err)

	tests := []struct {
		link string
		want bool
	}{
		{"https://www.roblox.com/games/123/My-Game/store/456", true},
		{"https://www.roblox.com/game-pass/987654/Robux", true},
		{"https://roblox.com/pass/1", true},
		{"  https://www.roblox.com/games/1/x/store  ", true},
		{"http://web.roblox.com/games/1/store?tab=passes", true},
		{"not-a-link", false},
		{"https://www.roblox.com/games/123/My-Game", false},
		{"https://www.roblox.com/users/1/profile", false},
		{"https://evil.com/roblox.com/store/1", false},
		{"https://www.roblox.com.evil.com/store/1", false},
		{"https://www.roblox.com/games/1/storefront", false},
		{"", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, v.Valid(tt.link), tt.link)
	}
}

func TestNewLinkValidatorBadPattern(t *testing.T) {
	_, err := NewLinkValidator("(")
	assert.Error(t, err)
}
