// Package bot owns the Discord gateway session: it registers the slash
// commands and routes interactions, thread messages and thread lifecycle
// events to the cart service.
package bot

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"

	"robux-bot/internal/cart"
	"robux-bot/internal/catalog"
	"robux-bot/internal/models"
	"robux-bot/internal/ui"
	"robux-bot/pkg/logger"
)

const (
	CommandStore = "loja"
	CommandClose = "fechar"
)

// Each gateway event gets this long to finish its work.
const eventTimeout = 30 * time.Second

const intents = discordgo.IntentsGuilds |
	discordgo.IntentsGuildMembers |
	discordgo.IntentsGuildMessages |
	discordgo.IntentsDirectMessages |
	discordgo.IntentsMessageContent

// Carts is the slice of the cart service the bot drives.
type Carts interface {
	StartPurchase(ctx context.Context, actor models.Actor, category string) (ui.Reply, error)
	DiscardAndRestart(ctx context.Context, actor models.Actor, category string) (ui.Reply, error)
	Resume(ctx context.Context, actor models.Actor) (ui.Reply, error)
	SelectProduct(ctx context.Context, actor models.Actor, cartID int64, name string) (ui.Reply, error)
	SelectQuantity(ctx context.Context, actor models.Actor, cartID int64, label string) (ui.Reply, error)
	SelectPaymentMethod(ctx context.Context, actor models.Actor, cartID int64, method string) (ui.Reply, error)
	ApprovePayment(ctx context.Context, actor models.Actor, cartID int64) (ui.Reply, error)
	ConfirmGamepass(ctx context.Context, actor models.Actor, cartID int64, checks []string) (ui.Reply, error)
	RequestGamepassHelp(ctx context.Context, actor models.Actor, cartID int64) (ui.Reply, error)
	Claim(ctx context.Context, actor models.Actor, cartID int64) (ui.Reply, error)
	Deliver(ctx context.Context, actor models.Actor, cartID int64) (ui.Reply, error)
	CloseThread(ctx context.Context, actor models.Actor, threadID string) (ui.Reply, error)
	SubmitReview(ctx context.Context, actor models.Actor, orderID int64, rating int, text string) (ui.Reply, error)
	HandleThreadMessage(ctx context.Context, msg cart.ThreadMessage) error
	CloseByArchive(ctx context.Context, threadID string) error
}

var _ Carts = (*cart.Service)(nil)

type Settings struct {
	GuildID     string
	AdminRoleID string
	VIPRoleID   string
}

type DiscordBot struct {
	session  *discordgo.Session
	carts    Carts
	catalog  *catalog.Catalog
	settings Settings
	logger   *logger.Logger

	ctx      context.Context
	cancel   context.CancelFunc
	removers []func()
}

// NewSession prepares a gateway session with the intents the store needs.
// It does not connect.
func NewSession(token string) (*discordgo.Session, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create Discord session: %w", err)
	}
	session.Identify.Intents = intents
	session.StateEnabled = true
	return session, nil
}

func NewDiscordBot(session *discordgo.Session, carts Carts, cat *catalog.Catalog, settings Settings, l *logger.Logger) *DiscordBot {
	return &DiscordBot{
		session:  session,
		carts:    carts,
		catalog:  cat,
		settings: settings,
		logger:   l,
		ctx:      context.Background(),
	}
}

// Start registers the event handlers, connects to the gateway and installs
// the slash commands in the configured guild.
func (b *DiscordBot) Start(ctx context.Context) error {
	b.ctx, b.cancel = context.WithCancel(ctx)

	b.removers = append(b.removers,
		b.session.AddHandler(b.onReady),
		b.session.AddHandler(b.onInteraction),
		b.session.AddHandler(b.onMessage),
		b.session.AddHandler(b.onThreadUpdate),
		b.session.AddHandler(b.onThreadDelete),
	)

	if err := b.session.Open(); err != nil {
		return fmt.Errorf("failed to open Discord session: %w", err)
	}

	appID := b.session.State.User.ID
	if _, err := b.session.ApplicationCommandBulkOverwrite(appID, b.settings.GuildID, commands(), discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("failed to register slash commands: %w", err)
	}

	b.logger.Infow("Started receiving Discord events", "guild_id", b.settings.GuildID)
	return nil
}

func (b *DiscordBot) Stop(_ context.Context) error {
	if b.cancel != nil {
		b.cancel()
	}
	for _, remove := range b.removers {
		remove()
	}
	b.removers = nil

	if err := b.session.Close(); err != nil {
		return fmt.Errorf("failed to close Discord session: %w", err)
	}
	return nil
}

func commands() []*discordgo.ApplicationCommand {
	var manageChannels int64 = discordgo.PermissionManageChannels
	return []*discordgo.ApplicationCommand{
		{
			Name:                     CommandStore,
			Description:              "Publica o painel da loja neste canal",
			DefaultMemberPermissions: &manageChannels,
		},
		{
			Name:                     CommandClose,
			Description:              "Fecha o carrinho deste tópico",
			DefaultMemberPermissions: &manageChannels,
		},
	}
}

func (b *DiscordBot) onReady(_ *discordgo.Session, r *discordgo.Ready) {
	b.logger.Infow("Authorized on Discord", "username", r.User.Username, "guilds", len(r.Guilds))
}

// eventContext bounds the work done for one gateway event.
func (b *DiscordBot) eventContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(b.ctx, eventTimeout)
}

func (b *DiscordBot) recoverPanic(event string) {
	if r := recover(); r != nil {
		b.logger.Errorw("Recovered from panic while processing event", "event", event, "error", r)
	}
}

func (b *DiscordBot) onThreadUpdate(_ *discordgo.Session, t *discordgo.ThreadUpdate) {
	defer b.recoverPanic("thread_update")

	if t.Channel == nil || t.ThreadMetadata == nil || !t.ThreadMetadata.Archived {
		return
	}
	ctx, cancel := b.eventContext()
	defer cancel()

	if err := b.carts.CloseByArchive(ctx, t.ID); err != nil {
		b.logger.Errorw("Failed to close cart of archived thread", "thread_id", t.ID, "error", err)
	}
}

func (b *DiscordBot) onThreadDelete(_ *discordgo.Session, t *discordgo.ThreadDelete) {
	defer b.recoverPanic("thread_delete")

	if t.Channel == nil {
		return
	}
	ctx, cancel := b.eventContext()
	defer cancel()

	if err := b.carts.CloseByArchive(ctx, t.ID); err != nil {
		b.logger.Errorw("Failed to close cart of deleted thread", "thread_id", t.ID, "error", err)
	}
}
