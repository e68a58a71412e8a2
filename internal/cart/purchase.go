package cart

import (
	"context"
	"errors"
	"fmt"

	"robux-bot/internal/models"
	"robux-bot/internal/ui"
	"robux-bot/pkg/logger"
)

// StartPurchase opens a cart for category, or returns the resume-or-restart
// prompt when the buyer already holds one.
func (s *Service) StartPurchase(ctx context.Context, actor models.Actor, category string) (ui.Reply, error) {
	products := s.catalog.ProductsIn(category)
	if len(products) == 0 {
		return ui.Reply{}, invalid("Categoria indisponível.")
	}

	unlock := s.userLocks.Lock(actor.UserID)
	defer unlock()

	if err := s.repo.EnsureUser(ctx, actor.UserID, actor.Username); err != nil {
		return ui.Reply{}, fmt.Errorf("ensure user %s: %w", actor.UserID, err)
	}

	existing, err := s.repo.FindActiveCartForUser(ctx, actor.UserID)
	switch {
	case err == nil:
		return ui.ExistingCart(existing, category, !committed(existing)), nil
	case !errors.Is(err, ErrNotFound):
		return ui.Reply{}, fmt.Errorf("find active cart for %s: %w", actor.UserID, err)
	}

	return s.openCart(ctx, actor, category, products)
}

// DiscardAndRestart cancels the buyer's active cart and opens a new one.
func (s *Service) DiscardAndRestart(ctx context.Context, actor models.Actor, category string) (ui.Reply, error) {
	products := s.catalog.ProductsIn(category)
	if len(products) == 0 {
		return ui.Reply{}, invalid("Categoria indisponível.")
	}

	unlock := s.userLocks.Lock(actor.UserID)
	defer unlock()

	if err := s.repo.EnsureUser(ctx, actor.UserID, actor.Username); err != nil {
		return ui.Reply{}, fmt.Errorf("ensure user %s: %w", actor.UserID, err)
	}

	existing, err := s.repo.FindActiveCartForUser(ctx, actor.UserID)
	switch {
	case err == nil:
		if committed(existing) {
			return ui.Reply{}, invalid("Seu carrinho atual já está com a equipe e não pode ser descartado.")
		}
		cancelled, err := s.transition(ctx, existing, models.StatusCancelled, models.CartUpdate{})
		if err != nil {
			return ui.Reply{}, staleAsInvalid(err)
		}
		s.teardown(ctx, cancelled, nil)
	case !errors.Is(err, ErrNotFound):
		return ui.Reply{}, fmt.Errorf("find active cart for %s: %w", actor.UserID, err)
	}

	return s.openCart(ctx, actor, category, products)
}

// Resume points the buyer back at their active cart.
func (s *Service) Resume(ctx context.Context, actor models.Actor) (ui.Reply, error) {
	c, err := s.repo.FindActiveCartForUser(ctx, actor.UserID)
	if errors.Is(err, ErrNotFound) {
		return ui.Reply{}, invalid("Você não tem nenhum carrinho aberto.")
	}
	if err != nil {
		return ui.Reply{}, fmt.Errorf("find active cart for %s: %w", actor.UserID, err)
	}
	return ui.ResumeCart(c.ThreadID), nil
}

// openCart persists the cart before creating its thread, and undoes the
// half that succeeded when the other fails. Callers hold the user lock.
func (s *Service) openCart(ctx context.Context, actor models.Actor, category string, products []models.Product) (ui.Reply, error) {
	c := &models.Cart{
		UserID:    actor.UserID,
		Category:  category,
		Status:    models.StatusInProgress,
		ExpiresAt: s.deadline(models.StatusInProgress),
	}
	if err := s.repo.CreateCart(ctx, c); err != nil {
		if errors.Is(err, ErrActiveCartExists) {
			if existing, ferr := s.repo.FindActiveCartForUser(ctx, actor.UserID); ferr == nil {
				return ui.ExistingCart(existing, category, !committed(existing)), nil
			}
		}
		return ui.Reply{}, fmt.Errorf("create cart for %s: %w", actor.UserID, err)
	}

	log := s.logger.With("cart_id", c.CartID, "user_id", actor.UserID)

	threadID, err := s.platform.CreatePrivateThread(ctx, s.settings.StoreChannelID, ui.ThreadName(actor.Username, c.CartID))
	if err != nil {
		s.abandon(ctx, c, log)
		return ui.Reply{}, fmt.Errorf("create thread for cart %d: %w", c.CartID, err)
	}

	if err := s.repo.AttachThread(ctx, c.CartID, threadID); err != nil {
		if derr := s.platform.DeleteThread(ctx, threadID); derr != nil {
			log.Errorw("Failed to delete orphan thread", "thread_id", threadID, "error", derr)
		}
		s.abandon(ctx, c, log)
		return ui.Reply{}, fmt.Errorf("attach thread to cart %d: %w", c.CartID, err)
	}
	c.ThreadID = threadID

	s.addMembers(ctx, c, log)
	s.opsLog(ctx, ui.OpsLogOpened(c, actor))

	if err := s.prompt(ctx, c, ui.ProductMenu(c, products)); err != nil {
		return ui.Reply{}, err
	}

	s.arm(c)
	s.metrics.CartsStarted.Inc()
	log.Infow("Cart opened", "thread_id", threadID, "category", category)

	return ui.CartCreated(threadID), nil
}

func (s *Service) abandon(ctx context.Context, c *models.Cart, log *logger.Logger) {
	upd := models.CartUpdate{ClearExpiry: true}
	if _, err := s.repo.Transition(ctx, c.CartID, GuardOf(c), models.StatusCancelled, upd); err != nil {
		log.Errorw("Failed to cancel orphan cart", "error", err)
	}
}

// addMembers invites the buyer and everyone holding the admin role right now.
func (s *Service) addMembers(ctx context.Context, c *models.Cart, log *logger.Logger) {
	if err := s.platform.AddThreadMember(ctx, c.ThreadID, c.UserID); err != nil {
		log.Errorw("Failed to add buyer to thread", "thread_id", c.ThreadID, "error", err)
	}

	admins, err := s.platform.RoleMembers(ctx, s.settings.GuildID, s.settings.AdminRoleID)
	if err != nil {
		log.Errorw("Failed to list admin role members", "error", err)
		return
	}
	for _, id := range admins {
		if id == c.UserID {
			continue
		}
		if err := s.platform.AddThreadMember(ctx, c.ThreadID, id); err != nil {
			log.Warnw("Failed to add admin to thread", "admin_id", id, "error", err)
		}
	}
}
