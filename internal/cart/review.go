package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"robux-bot/internal/models"
	"robux-bot/internal/ui"
)

const maxReviewLength = 1000

func (s *Service) SubmitReview(ctx context.Context, actor models.Actor, orderID int64, rating int, text string) (ui.Reply, error) {
	if rating < 1 || rating > 5 {
		return ui.Reply{}, invalid("A nota deve ser de 1 a 5.")
	}

	order, err := s.repo.GetOrder(ctx, orderID)
	if errors.Is(err, ErrNotFound) {
		return ui.Reply{}, invalid("Pedido não encontrado.")
	}
	if err != nil {
		return ui.Reply{}, fmt.Errorf("get order %d: %w", orderID, err)
	}
	if order.UserID != actor.UserID {
		return ui.Reply{}, ErrForbidden
	}

	text = strings.TrimSpace(text)
	if r := []rune(text); len(r) > maxReviewLength {
		text = string(r[:maxReviewLength])
	}

	review := &models.Review{OrderID: orderID, UserID: actor.UserID, Rating: rating, Text: text}
	if err := s.repo.InsertReview(ctx, review); err != nil {
		if errors.Is(err, ErrReviewExists) {
			return ui.Reply{}, invalid("Você já avaliou este pedido.")
		}
		return ui.Reply{}, fmt.Errorf("insert review for order %d: %w", orderID, err)
	}

	s.logger.Infow("Review received", "order_id", orderID, "user_id", actor.UserID, "rating", rating)
	return ui.Reply{Content: "⭐ Obrigado pela avaliação!"}, nil
}
