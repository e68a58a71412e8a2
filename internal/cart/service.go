// Package cart implements the purchase lifecycle: one cart per buyer, bound
// to a private thread, moved through its statuses by interactions, staff
// actions, expiry and thread archival.
package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/shopspring/decimal"

	"robux-bot/internal/catalog"
	"robux-bot/internal/gamepass"
	"robux-bot/internal/metrics"
	"robux-bot/internal/models"
	"robux-bot/internal/payment"
	"robux-bot/pkg/logger"
)

type Settings struct {
	GuildID         string
	StoreChannelID  string
	OpsLogChannelID string
	AdminRoleID     string
	// StepTimeout bounds every buyer step before payment.
	StepTimeout time.Duration
	// PaymentTimeout bounds the PIX wait and the buyer steps after payment.
	PaymentTimeout time.Duration
	Fee            decimal.Decimal
	Pix            payment.Pix
}

type Service struct {
	repo      Repository
	catalog   *catalog.Catalog
	platform  Platform
	escalator Escalator
	links     *gamepass.LinkValidator
	settings  Settings
	helper    HelpAssistant
	metrics   *metrics.Metrics
	logger    *logger.Logger
	now       func() time.Time

	userLocks *keyedMutex
	expiry    *expiryScheduler
}

type Option func(*Service)

func WithHelpAssistant(h HelpAssistant) Option {
	return func(s *Service) { s.helper = h }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(
	repo Repository,
	cat *catalog.Catalog,
	platform Platform,
	escalator Escalator,
	links *gamepass.LinkValidator,
	settings Settings,
	m *metrics.Metrics,
	l *logger.Logger,
	opts ...Option,
) *Service {
	s := &Service{
		repo:      repo,
		catalog:   cat,
		platform:  platform,
		escalator: escalator,
		links:     links,
		settings:  settings,
		metrics:   m,
		logger:    l,
		now:       time.Now,
		userLocks: newKeyedMutex(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.expiry = newExpiryScheduler(s.expireAsync)
	return s
}

// Shutdown disarms every pending expiry timer.
func (s *Service) Shutdown() {
	s.expiry.Stop()
}

func (s *Service) expireAsync(cartID int64) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.Expire(ctx, cartID); err != nil {
		s.logger.Errorw("Failed to expire cart", "cart_id", cartID, "error", err)
	}
}

// deadline returns when a cart entering status expires, or nil when the
// cart waits on staff and must not expire.
func (s *Service) deadline(status models.CartStatus) *time.Time {
	var d time.Duration
	switch status {
	case models.StatusInProgress, models.StatusQuantitySelected,
		models.StatusNicknameInformed, models.StatusAwaitingPaymentMethod:
		d = s.settings.StepTimeout
	case models.StatusAwaitingManualPix, models.StatusPaymentApproved,
		models.StatusGamepassConfirmed:
		d = s.settings.PaymentTimeout
	default:
		return nil
	}
	t := s.now().Add(d)
	return &t
}

func (s *Service) transition(ctx context.Context, c *models.Cart, to models.CartStatus, upd models.CartUpdate) (*models.Cart, error) {
	if err := CheckTransition(c.Status, to); err != nil {
		return nil, err
	}

	if dl := s.deadline(to); dl != nil && !to.IsTerminal() {
		upd.ExpiresAt = dl
	} else {
		upd.ClearExpiry = true
	}

	next, err := s.repo.Transition(ctx, c.CartID, GuardOf(c), to, upd)
	if err != nil {
		return nil, fmt.Errorf("transition cart %d %s -> %s: %w", c.CartID, c.Status, to, err)
	}

	if c.Status != to {
		s.metrics.Transitions.WithLabelValues(string(to)).Inc()
		s.logger.Infow("Cart transition",
			"cart_id", c.CartID,
			"user_id", c.UserID,
			"from", c.Status,
			"to", to)
	}
	s.arm(next)
	return next, nil
}

// arm keeps the expiry timer in line with the cart's deadline.
func (s *Service) arm(c *models.Cart) {
	if c.Status.IsTerminal() || c.ExpiresAt == nil {
		s.expiry.Cancel(c.CartID)
		return
	}
	s.expiry.Schedule(c.CartID, *c.ExpiresAt)
}

// prompt posts the next interactive step in the cart thread, retiring the
// controls of the previous one.
func (s *Service) prompt(ctx context.Context, c *models.Cart, msg *discordgo.MessageSend) error {
	s.stripPrompt(ctx, c)

	id, err := s.platform.Send(ctx, c.ThreadID, msg)
	if err != nil {
		return fmt.Errorf("send prompt to thread %s: %w", c.ThreadID, err)
	}
	if err := s.repo.SetPromptMessage(ctx, c.CartID, id); err != nil {
		s.logger.Warnw("Failed to record prompt message", "cart_id", c.CartID, "error", err)
	}
	c.PromptMessageID = id
	return nil
}

func (s *Service) stripPrompt(ctx context.Context, c *models.Cart) {
	if c.PromptMessageID == "" || c.ThreadID == "" {
		return
	}
	// The message may be gone already.
	if err := s.platform.StripComponents(ctx, c.ThreadID, c.PromptMessageID); err != nil {
		s.logger.Debugw("Failed to strip prompt components", "cart_id", c.CartID, "error", err)
	}
}

// teardown optionally posts notice, then retires the prompt and archives the
// thread. Failures are logged only.
func (s *Service) teardown(ctx context.Context, c *models.Cart, notice *discordgo.MessageSend) {
	if c.ThreadID == "" {
		return
	}
	if notice != nil {
		if _, err := s.platform.Send(ctx, c.ThreadID, notice); err != nil {
			s.logger.Warnw("Failed to post closing notice", "cart_id", c.CartID, "error", err)
		}
	}
	s.stripPrompt(ctx, c)
	if err := s.platform.ArchiveThread(ctx, c.ThreadID); err != nil {
		s.logger.Warnw("Failed to archive cart thread", "cart_id", c.CartID, "thread_id", c.ThreadID, "error", err)
	}
}

func (s *Service) opsLog(ctx context.Context, msg *discordgo.MessageSend) {
	if s.settings.OpsLogChannelID == "" {
		return
	}
	if _, err := s.platform.Send(ctx, s.settings.OpsLogChannelID, msg); err != nil {
		s.logger.Warnw("Failed to post ops log entry", "error", err)
	}
}

// loadOwned fetches a live cart the actor may act on as its buyer.
func (s *Service) loadOwned(ctx context.Context, actor models.Actor, cartID int64) (*models.Cart, error) {
	c, err := s.loadLive(ctx, cartID)
	if err != nil {
		return nil, err
	}
	if c.UserID != actor.UserID && !actor.IsAdmin {
		return nil, ErrForbidden
	}
	return c, nil
}

func (s *Service) loadLive(ctx context.Context, cartID int64) (*models.Cart, error) {
	c, err := s.repo.GetCart(ctx, cartID)
	if errors.Is(err, ErrNotFound) {
		return nil, invalid("Carrinho não encontrado.")
	}
	if err != nil {
		return nil, fmt.Errorf("get cart %d: %w", cartID, err)
	}
	if c.Status.IsTerminal() {
		return nil, invalid("Este carrinho já foi finalizado.")
	}
	return c, nil
}

func requireStatus(c *models.Cart, statuses ...models.CartStatus) error {
	for _, st := range statuses {
		if c.Status == st {
			return nil
		}
	}
	return invalid("Esta etapa já foi concluída ou ainda não está disponível.")
}

func requireAdmin(actor models.Actor) error {
	if !actor.IsAdmin {
		return ErrForbidden
	}
	return nil
}

// staleAsInvalid turns a lost race into a retry hint for the user.
func staleAsInvalid(err error) error {
	if errors.Is(err, ErrStaleTransition) || errors.Is(err, ErrInvalidTransition) {
		return invalid("Seu carrinho mudou enquanto você clicava. Confira a última mensagem e tente de novo.")
	}
	return err
}
