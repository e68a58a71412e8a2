package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"robux-bot/internal/models"
	"robux-bot/internal/ui"
)

// Expire closes a cart whose deadline passed. It is a no-op for carts that
// are terminal, were pushed to a later deadline or lost a race with another
// handler, so firing it twice is harmless.
func (s *Service) Expire(ctx context.Context, cartID int64) error {
	c, err := s.repo.GetCart(ctx, cartID)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("get cart %d: %w", cartID, err)
	}
	if c.Status.IsTerminal() || c.ExpiresAt == nil {
		return nil
	}
	if c.ExpiresAt.After(s.now()) {
		s.arm(c)
		return nil
	}

	active, err := s.repo.FindActiveCartForUser(ctx, c.UserID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("find active cart for %s: %w", c.UserID, err)
	}
	if err != nil || active.CartID != c.CartID {
		s.logger.Warnw("Expiring cart is not the user's open cart", "cart_id", cartID, "user_id", c.UserID)
		return nil
	}

	expired, err := s.transition(ctx, c, models.StatusExpired, models.CartUpdate{})
	if errors.Is(err, ErrStaleTransition) {
		return nil
	}
	if err != nil {
		return err
	}

	s.metrics.Expired.Inc()
	s.teardown(ctx, expired, ui.Expired())
	s.logger.Infow("Cart expired", "cart_id", cartID, "user_id", c.UserID, "from", c.Status)
	return nil
}

// CloseByArchive reacts to the thread being archived or deleted by anyone:
// a cart that is still open becomes closed_by_archive.
func (s *Service) CloseByArchive(ctx context.Context, threadID string) error {
	for attempt := 0; attempt < 3; attempt++ {
		c, err := s.repo.GetCartByThread(ctx, threadID)
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("get cart by thread %s: %w", threadID, err)
		}
		if c.Status.IsTerminal() {
			return nil
		}

		_, err = s.transition(ctx, c, models.StatusClosedByArchive, models.CartUpdate{})
		if errors.Is(err, ErrStaleTransition) {
			continue
		}
		if err != nil {
			return err
		}
		s.logger.Infow("Cart closed by thread archive", "cart_id", c.CartID, "thread_id", threadID, "from", c.Status)
		return nil
	}
	return fmt.Errorf("close cart of thread %s: %w", threadID, ErrStaleTransition)
}

// Sweep expires every cart whose deadline passed, covering timers lost to a
// restart.
func (s *Service) Sweep(ctx context.Context) error {
	due, err := s.repo.DueForExpiry(ctx, s.now())
	if err != nil {
		return fmt.Errorf("list carts due for expiry: %w", err)
	}
	for _, c := range due {
		if err := s.Expire(ctx, c.CartID); err != nil {
			s.logger.Errorw("Failed to expire cart", "cart_id", c.CartID, "error", err)
		}
	}
	return nil
}

// RunSweeper calls Sweep every interval until ctx is done.
func (s *Service) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := s.Sweep(ctx); err != nil {
			s.logger.Errorw("Expiry sweep failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
