// config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// ThreadAutoArchive is how long a cart thread may stay silent before the
// chat platform archives it. Cart deadlines must fit inside it.
const ThreadAutoArchive = 7 * 24 * time.Hour

type PriceConfig struct {
	Label string
	Price string
}

type ProductConfig struct {
	Name      string
	Emoji     string
	Category  string
	Type      string
	Prices    []PriceConfig
	VIPPrices []PriceConfig
}

type DBConfig struct {
	Host         string
	Port         string
	User         string
	Password     string
	DBName       string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	ConnLifetime time.Duration
}

type Config struct {
	Discord struct {
		Token   string
		GuildID string
	}
	Channels struct {
		// Store is the parent channel of every cart thread.
		Store   string
		Pending string
		OpsLog  string
	}
	Roles struct {
		Admin string
		VIP   string
	}
	Storage struct {
		Driver string
	}
	DB   DBConfig
	Cart struct {
		StepTimeout    time.Duration
		PaymentTimeout time.Duration
		SweepInterval  time.Duration
		FeeFraction    string
		LinkPattern    string
	}
	Pix struct {
		Key     string
		Holder  string
		Message string
	}
	Stripe struct {
		WebhookKey string
	}
	GPT struct {
		APIKey string
		Model  string
	}
	Telegram struct {
		Token     string
		OpsChatID int64
	}
	Server struct {
		Port string
	}
	Log struct {
		Development bool
		Level       string
	}
	Catalog struct {
		Products []ProductConfig
	}
	ShutdownTimeout time.Duration
}

// DefaultLinkPattern accepts roblox.com URLs that carry a store, pass or
// game-pass path segment.
const DefaultLinkPattern = `(?i)^https?://(?:www\.|web\.)?roblox\.com(?:/[^/\s?#]+)*/(?:store|pass|game-pass)(?:[/?#]\S*)?$`

// DefaultProducts is the catalog used when the config file does not carry one.
func DefaultProducts() []ProductConfig {
	return []ProductConfig{
		{
			Name:     "Robux",
			Emoji:    "💎",
			Category: "robux",
			Type:     "automatized",
			Prices: []PriceConfig{
				{Label: "100 Robux", Price: "4.50"},
				{Label: "500 Robux", Price: "21.00"},
				{Label: "1000 Robux", Price: "41.00"},
				{Label: "2000 Robux", Price: "80.00"},
				{Label: "5000 Robux", Price: "195.00"},
			},
			VIPPrices: []PriceConfig{
				{Label: "1000 Robux", Price: "38.00"},
				{Label: "2000 Robux", Price: "75.00"},
			},
		},
		{
			Name:     "Valorant Points",
			Emoji:    "🎯",
			Category: "jogos",
			Type:     "manual",
			Prices: []PriceConfig{
				{Label: "475 VP", Price: "19.90"},
				{Label: "1000 VP", Price: "39.90"},
			},
		},
		{
			Name:     "Free Fire Diamantes",
			Emoji:    "🔥",
			Category: "jogos",
			Type:     "manual",
			Prices: []PriceConfig{
				{Label: "520 Diamantes", Price: "19.90"},
			},
		},
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ShutdownTimeout", 10*time.Second)
	v.SetDefault("Storage.Driver", "postgres")
	v.SetDefault("GPT.Model", "gpt-4o-mini")
	v.SetDefault("Server.Port", "8080")
	v.SetDefault("DB.MaxOpenConns", 20)
	v.SetDefault("DB.MaxIdleConns", 10)
	v.SetDefault("DB.ConnLifetime", 5*time.Minute)
	v.SetDefault("Cart.StepTimeout", 10*time.Minute)
	v.SetDefault("Cart.PaymentTimeout", 48*time.Hour)
	v.SetDefault("Cart.SweepInterval", time.Minute)
	v.SetDefault("Cart.FeeFraction", "0.30")
	v.SetDefault("Cart.LinkPattern", DefaultLinkPattern)
	v.SetDefault("Log.Level", "info")
}

// Load loads the configuration from the usual search paths.
func Load() (*Config, error) {
	return LoadFrom("")
}

// LoadFrom loads the configuration from path, or from the search paths when
// path is empty. A missing file falls back to environment variables.
func LoadFrom(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("../config")
		v.AddConfigPath("$HOME/.robux-bot")
	}

	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if path != "" {
			return nil, fmt.Errorf("error reading config %s: %w", path, err)
		}
		return fromEnv(v), nil
	}

	// Process any ${ENV_VAR} syntax in the config values
	for _, key := range v.AllKeys() {
		value := v.GetString(key)
		if strings.HasPrefix(value, "${") && strings.HasSuffix(value, "}") {
			envVar := strings.TrimPrefix(strings.TrimSuffix(value, "}"), "${")
			if envValue := os.Getenv(envVar); envValue != "" {
				v.Set(key, envValue)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if len(cfg.Catalog.Products) == 0 {
		cfg.Catalog.Products = DefaultProducts()
	}

	return &cfg, nil
}

// fromEnv builds the config from environment variables only, keeping the
// defaults registered on v.
func fromEnv(v *viper.Viper) *Config {
	cfg := &Config{}

	cfg.Discord.Token = os.Getenv("DISCORD_TOKEN")
	cfg.Discord.GuildID = os.Getenv("DISCORD_GUILD_ID")
	cfg.Channels.Store = os.Getenv("CHANNEL_STORE")
	cfg.Channels.Pending = os.Getenv("CHANNEL_PENDING")
	cfg.Channels.OpsLog = os.Getenv("CHANNEL_OPS_LOG")
	cfg.Roles.Admin = os.Getenv("ROLE_ADMIN")
	cfg.Roles.VIP = os.Getenv("ROLE_VIP")
	cfg.Storage.Driver = getEnvOr("STORAGE_DRIVER", v.GetString("Storage.Driver"))
	cfg.DB.Host = getEnvOr("DB_HOST", "localhost")
	cfg.DB.Port = getEnvOr("DB_PORT", "5432")
	cfg.DB.User = getEnvOr("DB_USER", "postgres")
	cfg.DB.Password = getEnvOr("DB_PASSWORD", "postgres")
	cfg.DB.DBName = getEnvOr("DB_NAME", "robux_store")
	cfg.DB.SSLMode = getEnvOr("DB_SSL_MODE", "disable")
	cfg.DB.MaxOpenConns = v.GetInt("DB.MaxOpenConns")
	cfg.DB.MaxIdleConns = v.GetInt("DB.MaxIdleConns")
	cfg.DB.ConnLifetime = v.GetDuration("DB.ConnLifetime")
	cfg.Cart.StepTimeout = getDurationOr("CART_STEP_TIMEOUT", v.GetDuration("Cart.StepTimeout"))
	cfg.Cart.PaymentTimeout = getDurationOr("CART_PAYMENT_TIMEOUT", v.GetDuration("Cart.PaymentTimeout"))
	cfg.Cart.SweepInterval = v.GetDuration("Cart.SweepInterval")
	cfg.Cart.FeeFraction = getEnvOr("CART_FEE_FRACTION", v.GetString("Cart.FeeFraction"))
	cfg.Cart.LinkPattern = getEnvOr("CART_LINK_PATTERN", DefaultLinkPattern)
	cfg.Pix.Key = os.Getenv("PIX_KEY")
	cfg.Pix.Holder = os.Getenv("PIX_HOLDER")
	cfg.Pix.Message = os.Getenv("PIX_MESSAGE")
	cfg.Stripe.WebhookKey = os.Getenv("STRIPE_WEBHOOK_KEY")
	cfg.GPT.APIKey = os.Getenv("GPT_API_KEY")
	cfg.GPT.Model = getEnvOr("GPT_MODEL", v.GetString("GPT.Model"))
	cfg.Telegram.Token = os.Getenv("TELEGRAM_TOKEN")
	if id, err := strconv.ParseInt(os.Getenv("TELEGRAM_OPS_CHAT_ID"), 10, 64); err == nil {
		cfg.Telegram.OpsChatID = id
	}
	cfg.Server.Port = getEnvOr("SERVER_PORT", v.GetString("Server.Port"))
	cfg.Log.Development = os.Getenv("LOG_DEV") == "1"
	cfg.Log.Level = getEnvOr("LOG_LEVEL", v.GetString("Log.Level"))
	cfg.Catalog.Products = DefaultProducts()
	cfg.ShutdownTimeout = v.GetDuration("ShutdownTimeout")

	return cfg
}

// Validate reports the first missing piece of configuration the bot cannot
// run without.
func (c *Config) Validate() error {
	switch {
	case c.Discord.Token == "":
		return fmt.Errorf("discord token is not configured")
	case c.Discord.GuildID == "":
		return fmt.Errorf("discord guild id is not configured")
	case c.Channels.Store == "":
		return fmt.Errorf("store channel is not configured")
	case c.Channels.Pending == "":
		return fmt.Errorf("pending channel is not configured")
	case c.Roles.Admin == "":
		return fmt.Errorf("admin role is not configured")
	case c.Cart.StepTimeout <= 0:
		return fmt.Errorf("cart step timeout must be positive")
	case c.Cart.PaymentTimeout <= 0:
		return fmt.Errorf("cart payment timeout must be positive")
	case c.Cart.StepTimeout > ThreadAutoArchive || c.Cart.PaymentTimeout > ThreadAutoArchive:
		return fmt.Errorf("cart timeouts must not exceed the thread auto-archive window of %s", ThreadAutoArchive)
	}
	if c.Storage.Driver != "postgres" && c.Storage.Driver != "memory" {
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	return nil
}

// Helper function to get environment variable with default value
func getEnvOr(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDurationOr(key string, defaultValue time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return d
	}
	return defaultValue
}
