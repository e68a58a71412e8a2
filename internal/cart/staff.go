package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"robux-bot/internal/gamepass"
	"robux-bot/internal/models"
	"robux-bot/internal/ui"
)

// ApprovePayment is the admin's confirmation that the PIX arrived. The buyer
// then gets the gamepass tutorial with the fee-adjusted target price.
func (s *Service) ApprovePayment(ctx context.Context, actor models.Actor, cartID int64) (ui.Reply, error) {
	if err := requireAdmin(actor); err != nil {
		return ui.Reply{}, err
	}
	c, err := s.loadLive(ctx, cartID)
	if err != nil {
		return ui.Reply{}, err
	}
	if c.Status != models.StatusAwaitingManualPix {
		return ui.Reply{}, invalid("Este pagamento já foi processado.")
	}

	target := gamepass.TargetPrice(c.Price, s.settings.Fee)
	next, err := s.transition(ctx, c, models.StatusPaymentApproved, models.CartUpdate{GamepassValue: &target})
	if err != nil {
		return ui.Reply{}, staleAsInvalid(err)
	}
	if err := s.prompt(ctx, next, ui.GamepassTutorial(next, target)); err != nil {
		return ui.Reply{}, err
	}

	s.logger.Infow("Payment approved", "cart_id", c.CartID, "admin_id", actor.UserID, "gamepass_value", target)
	return ui.Reply{Content: fmt.Sprintf("✅ Pagamento do carrinho #%d aprovado.", c.CartID)}, nil
}

// Claim assigns a pending cart to the first admin who clicks.
func (s *Service) Claim(ctx context.Context, actor models.Actor, cartID int64) (ui.Reply, error) {
	if err := requireAdmin(actor); err != nil {
		return ui.Reply{}, err
	}

	c, err := s.repo.Claim(ctx, cartID, actor.UserID)
	switch {
	case errors.Is(err, ErrAlreadyClaimed):
		if current, gerr := s.repo.GetCart(ctx, cartID); gerr == nil && current.ClaimedBy != "" {
			return ui.Reply{}, invalid(fmt.Sprintf("Este pedido já foi assumido por <@%s>.", current.ClaimedBy))
		}
		return ui.Reply{}, invalid("Este pedido já foi assumido.")
	case errors.Is(err, ErrNotFound):
		return ui.Reply{}, invalid("Carrinho não encontrado.")
	case errors.Is(err, ErrStaleTransition):
		return ui.Reply{}, invalid("Este carrinho já foi finalizado.")
	case err != nil:
		return ui.Reply{}, fmt.Errorf("claim cart %d: %w", cartID, err)
	}

	if _, err := s.platform.Send(ctx, c.ThreadID, ui.ClaimedNotice(actor.UserID)); err != nil {
		s.logger.Warnw("Failed to announce claim", "cart_id", cartID, "error", err)
	}
	s.logger.Infow("Cart claimed", "cart_id", cartID, "admin_id", actor.UserID)
	return ui.Reply{Content: fmt.Sprintf("🙋 Você assumiu o carrinho #%d.", cartID)}, nil
}

// Deliver completes the cart, records the order and asks for a review.
func (s *Service) Deliver(ctx context.Context, actor models.Actor, cartID int64) (ui.Reply, error) {
	if err := requireAdmin(actor); err != nil {
		return ui.Reply{}, err
	}
	c, err := s.loadLive(ctx, cartID)
	if err != nil {
		return ui.Reply{}, err
	}
	if c.Status != models.StatusAwaitingAdminDelivery {
		return ui.Reply{}, invalid("Este carrinho ainda não está pronto para entrega.")
	}
	if c.ClaimedBy != "" && c.ClaimedBy != actor.UserID {
		return ui.Reply{}, invalid(fmt.Sprintf("Este pedido foi assumido por <@%s>.", c.ClaimedBy))
	}

	order := &models.Order{
		Reference:      uuid.NewString(),
		CartID:         c.CartID,
		UserID:         c.UserID,
		ProductType:    c.ProductType,
		ProductName:    c.ProductName,
		QuantityLabel:  c.QuantityLabel,
		Price:          c.Price,
		RobloxNickname: c.RobloxNickname,
		GamepassLink:   c.GamepassLink,
		DeliveredBy:    actor.UserID,
	}
	done, err := s.repo.Complete(ctx, c.CartID, GuardOf(c), order)
	if err != nil {
		return ui.Reply{}, staleAsInvalid(fmt.Errorf("complete cart %d: %w", c.CartID, err))
	}

	s.expiry.Cancel(c.CartID)
	s.metrics.Transitions.WithLabelValues(string(models.StatusCompleted)).Inc()
	s.logger.Infow("Cart delivered",
		"cart_id", c.CartID,
		"order_id", order.OrderID,
		"reference", order.Reference,
		"admin_id", actor.UserID)

	s.teardown(ctx, done, ui.Delivered(order))
	if err := s.platform.SendDirect(ctx, c.UserID, ui.ReviewPrompt(order)); err != nil {
		s.logger.Warnw("Failed to send review prompt", "user_id", c.UserID, "error", err)
	}

	return ui.Reply{Content: fmt.Sprintf("📦 Pedido `%s` entregue.", order.Reference)}, nil
}

// CloseThread is the admin's explicit close of the cart bound to threadID.
func (s *Service) CloseThread(ctx context.Context, actor models.Actor, threadID string) (ui.Reply, error) {
	if err := requireAdmin(actor); err != nil {
		return ui.Reply{}, err
	}

	c, err := s.repo.GetCartByThread(ctx, threadID)
	if errors.Is(err, ErrNotFound) {
		return ui.Reply{}, invalid("Este canal não é um carrinho.")
	}
	if err != nil {
		return ui.Reply{}, fmt.Errorf("get cart by thread %s: %w", threadID, err)
	}
	if c.Status.IsTerminal() {
		return ui.Reply{}, invalid("Este carrinho já foi finalizado.")
	}

	closed, err := s.transition(ctx, c, models.StatusCancelled, models.CartUpdate{})
	if err != nil {
		return ui.Reply{}, staleAsInvalid(err)
	}

	s.opsLog(ctx, ui.OpsLogClosed(closed, actor))
	s.teardown(ctx, closed, ui.ClosedByAdmin(actor.UserID))

	return ui.Reply{Content: fmt.Sprintf("🔒 Carrinho #%d fechado.", c.CartID)}, nil
}
