package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadFromFile(t *testing.T) {
	t.Setenv("ROBUX_TEST_TOKEN", "secret-token")
	path := writeConfig(t, `
discord:
  token: "${ROBUX_TEST_TOKEN}"
  guildid: "100"
channels:
  store: "200"
  pending: "201"
  opslog: "202"
roles:
  admin: "300"
storage:
  driver: memory
cart:
  steptimeout: 5m
catalog:
  products:
    - name: Robux
      emoji: "💎"
      category: robux
      type: automatized
      prices:
        - label: "1000 Robux"
          price: "41.00"
`)

	cfg, err := LoadFrom(path)
	require.NoError(t, err)

	assert.Equal(t, "secret-token", cfg.Discord.Token)
	assert.Equal(t, "201", cfg.Channels.Pending)
	assert.Equal(t, 5*time.Minute, cfg.Cart.StepTimeout)
	assert.Equal(t, 48*time.Hour, cfg.Cart.PaymentTimeout)
	assert.Equal(t, "0.30", cfg.Cart.FeeFraction)
	assert.Equal(t, DefaultLinkPattern, cfg.Cart.LinkPattern)
	require.Len(t, cfg.Catalog.Products, 1)
	assert.Equal(t, "1000 Robux", cfg.Catalog.Products[0].Prices[0].Label)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromFileWithoutCatalogUsesDefaults(t *testing.T) {
	path := writeConfig(t, "server:\n  port: \"9090\"\n")

	cfg, err := LoadFrom(path)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, DefaultProducts(), cfg.Catalog.Products)
}

func TestLoadFromMissingFile(t *testing.T) {
	_, err := LoadFrom(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := &Config{}
		cfg.Discord.Token = "t"
		cfg.Discord.GuildID = "g"
		cfg.Channels.Store = "s"
		cfg.Channels.Pending = "p"
		cfg.Roles.Admin = "a"
		cfg.Storage.Driver = "postgres"
		cfg.Cart.StepTimeout = time.Minute
		cfg.Cart.PaymentTimeout = time.Hour
		return cfg
	}

	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{name: "valid", modify: func(c *Config) {}},
		{name: "missing token", modify: func(c *Config) { c.Discord.Token = "" }, wantErr: true},
		{name: "missing pending channel", modify: func(c *Config) { c.Channels.Pending = "" }, wantErr: true},
		{name: "missing admin role", modify: func(c *Config) { c.Roles.Admin = "" }, wantErr: true},
		{name: "zero step timeout", modify: func(c *Config) { c.Cart.StepTimeout = 0 }, wantErr: true},
		{name: "payment timeout at archive window", modify: func(c *Config) { c.Cart.PaymentTimeout = ThreadAutoArchive }},
		{name: "payment timeout past archive window", modify: func(c *Config) { c.Cart.PaymentTimeout = ThreadAutoArchive + time.Hour }, wantErr: true},
		{name: "step timeout past archive window", modify: func(c *Config) { c.Cart.StepTimeout = 8 * 24 * time.Hour }, wantErr: true},
		{name: "unknown driver", modify: func(c *Config) { c.Storage.Driver = "sqlite" }, wantErr: true},
		{name: "memory driver", modify: func(c *Config) { c.Storage.Driver = "memory" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.modify(cfg)
			err := cfg.Validate()
			assert.Equal(t, tt.wantErr, err != nil, "Validate() error = %v", err)
		})
	}
}
