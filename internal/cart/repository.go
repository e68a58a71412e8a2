package cart

import (
	"context"
	"time"

	"github.com/bwmarrin/discordgo"

	"robux-bot/internal/models"
	"robux-bot/internal/notify"
)

// Repository is the persistence the state machine needs. The carts table is
// the source of truth for the single-active-cart rule; the user's
// active_cart_id mirrors it and is cleared in the same step that moves a
// cart to a terminal status.
type Repository interface {
	EnsureUser(ctx context.Context, userID, username string) error
	GetUser(ctx context.Context, userID string) (*models.User, error)
	SetNickname(ctx context.Context, userID, nickname string) error

	FindActiveCartForUser(ctx context.Context, userID string) (*models.Cart, error)
	// CreateCart inserts c and points the user at it, or fails with
	// ErrActiveCartExists.
	CreateCart(ctx context.Context, c *models.Cart) error
	AttachThread(ctx context.Context, cartID int64, threadID string) error
	GetCart(ctx context.Context, cartID int64) (*models.Cart, error)
	GetCartByThread(ctx context.Context, threadID string) (*models.Cart, error)
	// Transition moves the cart to status to only if it still matches guard,
	// otherwise ErrStaleTransition. It bumps the cart version.
	Transition(ctx context.Context, cartID int64, guard Guard, to models.CartStatus, upd models.CartUpdate) (*models.Cart, error)
	SetPromptMessage(ctx context.Context, cartID int64, messageID string) error
	// Claim assigns the cart to adminID unless someone already claimed it.
	Claim(ctx context.Context, cartID int64, adminID string) (*models.Cart, error)
	// Complete moves the cart to completed under guard, records the order
	// and bumps the buyer's loyalty counters.
	Complete(ctx context.Context, cartID int64, guard Guard, order *models.Order) (*models.Cart, error)
	DueForExpiry(ctx context.Context, now time.Time) ([]*models.Cart, error)

	GetOrder(ctx context.Context, orderID int64) (*models.Order, error)
	InsertReview(ctx context.Context, r *models.Review) error
}

// Guard is the snapshot a write is conditioned on.
type Guard struct {
	Status  models.CartStatus
	Version int64
}

func GuardOf(c *models.Cart) Guard {
	return Guard{Status: c.Status, Version: c.Version}
}

// Platform is the chat action surface the state machine drives.
type Platform interface {
	CreatePrivateThread(ctx context.Context, parentChannelID, name string) (string, error)
	AddThreadMember(ctx context.Context, threadID, userID string) error
	Send(ctx context.Context, channelID string, msg *discordgo.MessageSend) (string, error)
	StripComponents(ctx context.Context, channelID, messageID string) error
	ArchiveThread(ctx context.Context, threadID string) error
	DeleteThread(ctx context.Context, threadID string) error
	SendDirect(ctx context.Context, userID string, msg *discordgo.MessageSend) error
	RoleMembers(ctx context.Context, guildID, roleID string) ([]string, error)
}

type Escalator interface {
	Escalate(ctx context.Context, esc notify.Escalation) error
}

// HelpAssistant drafts gamepass guidance for a buyer who asked for help.
type HelpAssistant interface {
	GamepassHelp(ctx context.Context, c models.Cart, target int64) (string, error)
}
