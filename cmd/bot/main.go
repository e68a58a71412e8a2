// cmd/bot/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"robux-bot/config"
	"robux-bot/internal/bot"
	"robux-bot/internal/cart"
	"robux-bot/internal/catalog"
	"robux-bot/internal/db"
	"robux-bot/internal/discord"
	"robux-bot/internal/gamepass"
	"robux-bot/internal/gpt"
	"robux-bot/internal/metrics"
	"robux-bot/internal/notify"
	"robux-bot/internal/payment"
	"robux-bot/internal/server"
	"robux-bot/pkg/logger"
)

func main() {
	l := logger.New()

	cfg, err := config.Load()
	if err != nil {
		l.Fatalw("Failed to load config", "error", err)
	}
	l = logger.FromConfig(cfg.Log.Development, cfg.Log.Level)
	defer func() { _ = l.Sync() }()

	l.Info("Starting Robux store bot...")

	if err := cfg.Validate(); err != nil {
		l.Fatalw("Invalid configuration", "error", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	repo, closeRepo := openStorage(ctx, cfg, l)
	defer closeRepo()

	cat, err := catalog.New(cfg.Catalog.Products)
	if err != nil {
		l.Fatalw("Invalid catalog", "error", err)
	}
	links, err := gamepass.NewLinkValidator(cfg.Cart.LinkPattern)
	if err != nil {
		l.Fatalw("Invalid gamepass link pattern", "error", err)
	}
	fee, err := gamepass.ParseFee(cfg.Cart.FeeFraction)
	if err != nil {
		l.Fatalw("Invalid gamepass fee", "error", err)
	}

	session, err := bot.NewSession(cfg.Discord.Token)
	if err != nil {
		l.Fatalw("Failed to create Discord session", "error", err)
	}
	platform := discord.NewPlatform(session)
	m := metrics.New()

	escalator := notify.NewEscalator(platform, cfg.Roles.Admin, cfg.Channels.Pending, m, l)
	if cfg.Telegram.Token != "" && cfg.Telegram.OpsChatID != 0 {
		mirror, err := notify.NewTelegramMirror(cfg.Telegram.Token, cfg.Telegram.OpsChatID)
		if err != nil {
			l.Warnw("Telegram mirror disabled", "error", err)
		} else {
			escalator.WithMirror(mirror)
		}
	}

	var opts []cart.Option
	if cfg.GPT.APIKey != "" {
		opts = append(opts, cart.WithHelpAssistant(gpt.NewClient(cfg.GPT.APIKey).WithModel(cfg.GPT.Model)))
	}

	pix := payment.Pix{Key: cfg.Pix.Key, Holder: cfg.Pix.Holder, Message: cfg.Pix.Message}
	if !pix.Configured() {
		l.Warn("PIX key is not configured, buyers cannot choose a payment method")
	}

	carts := cart.NewService(repo, cat, platform, escalator, links, cart.Settings{
		GuildID:         cfg.Discord.GuildID,
		StoreChannelID:  cfg.Channels.Store,
		OpsLogChannelID: cfg.Channels.OpsLog,
		AdminRoleID:     cfg.Roles.Admin,
		StepTimeout:     cfg.Cart.StepTimeout,
		PaymentTimeout:  cfg.Cart.PaymentTimeout,
		Fee:             fee,
		Pix:             pix,
	}, m, l, opts...)
	defer carts.Shutdown()

	sweepInterval := cfg.Cart.SweepInterval
	if sweepInterval <= 0 {
		sweepInterval = time.Minute
	}
	go carts.RunSweeper(ctx, sweepInterval)

	discordBot := bot.NewDiscordBot(session, carts, cat, bot.Settings{
		GuildID:     cfg.Discord.GuildID,
		AdminRoleID: cfg.Roles.Admin,
		VIPRoleID:   cfg.Roles.VIP,
	}, l)

	l.Info("Starting Discord bot...")
	if err := discordBot.Start(ctx); err != nil {
		l.Fatalw("Failed to start Discord bot", "error", err)
	}

	webhook := server.NewPaymentWebhook(payment.NewStripeClient(cfg.Stripe.WebhookKey), m, l)
	httpServer := server.NewServer(cfg.Server.Port, webhook, m, l)
	go func() {
		if err := httpServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.Fatalw("Failed to start HTTP server", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	l.Info("Shutting down bot...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Stop(shutdownCtx); err != nil {
		l.Errorw("Error during HTTP server shutdown", "error", err)
	}

	if err := discordBot.Stop(shutdownCtx); err != nil {
		l.Errorw("Error during bot shutdown", "error", err)
	}

	l.Info("Bot stopped successfully")
}

// openStorage connects the configured repository. Postgres is retried a few
// times because the database often starts alongside the bot.
func openStorage(ctx context.Context, cfg *config.Config, l *logger.Logger) (cart.Repository, func()) {
	if cfg.Storage.Driver == "memory" {
		l.Warn("Using in-memory storage, carts are lost on restart")
		return db.NewMemoryStore(), func() {}
	}

	var (
		database *db.PostgresDB
		err      error
	)
	maxRetries := 5
	for i := 0; i < maxRetries; i++ {
		database, err = db.NewPostgresDB(cfg.DB)
		if err == nil {
			break
		}
		l.Errorw("Failed to connect to database, retrying...", "attempt", i+1, "error", err)
		time.Sleep(time.Duration(i+1) * time.Second)
	}
	if database == nil {
		l.Fatalw("Failed to connect to database after multiple attempts", "error", err)
	}

	if err := database.Migrate(ctx); err != nil {
		database.Close()
		l.Fatalw("Failed to apply database schema", "error", err)
	}
	return database, database.Close
}
