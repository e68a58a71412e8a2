package cart

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"robux-bot/internal/catalog"
	"robux-bot/internal/models"
	"robux-bot/internal/notify"
	"robux-bot/internal/ui"
)

var nicknamePattern = regexp.MustCompile(`^[A-Za-z0-9_]{3,20}$`)

// ThreadMessage is a plain message posted inside a cart thread.
type ThreadMessage struct {
	ThreadID    string
	AuthorID    string
	Content     string
	Attachments []string
}

// SelectProduct records the product. Manual products go straight to staff;
// automatized ones continue with the quantity menu.
func (s *Service) SelectProduct(ctx context.Context, actor models.Actor, cartID int64, name string) (ui.Reply, error) {
	c, err := s.loadOwned(ctx, actor, cartID)
	if err != nil {
		return ui.Reply{}, err
	}
	if err := requireStatus(c, models.StatusInProgress); err != nil {
		return ui.Reply{}, err
	}

	p, err := s.catalog.Product(name)
	if errors.Is(err, catalog.ErrProductNotFound) || (err == nil && p.Category != c.Category) {
		return ui.Reply{}, invalid("Produto não encontrado.")
	}
	if err != nil {
		return ui.Reply{}, err
	}

	upd := models.CartUpdate{ProductName: &p.Name, ProductType: &p.Type}

	if p.Type == models.ProductManual {
		next, err := s.transition(ctx, c, models.StatusAwaitingAdminDelivery, upd)
		if err != nil {
			return ui.Reply{}, staleAsInvalid(err)
		}
		s.stripPrompt(ctx, next)
		if err := s.escalator.Escalate(ctx, notify.Escalation{Kind: notify.KindManualProduct, Cart: *next}); err != nil {
			s.logger.Errorw("Failed to escalate manual product", "cart_id", c.CartID, "error", err)
		}
		return ui.Reply{Content: "🧾 Este produto é entregue manualmente. Um atendente foi chamado no seu carrinho."}, nil
	}

	next, err := s.transition(ctx, c, models.StatusInProgress, upd)
	if err != nil {
		return ui.Reply{}, staleAsInvalid(err)
	}
	if err := s.prompt(ctx, next, ui.QuantityMenu(next, p, s.pricesFor(p, actor.IsVIP))); err != nil {
		return ui.Reply{}, err
	}
	return ui.Reply{Content: fmt.Sprintf("✅ %s selecionado.", p.Name)}, nil
}

func (s *Service) pricesFor(p models.Product, vip bool) []models.PriceOption {
	out := make([]models.PriceOption, 0, len(p.Prices))
	for _, opt := range p.Prices {
		price, err := s.catalog.Price(p, opt.Label, vip)
		if err != nil {
			continue
		}
		out = append(out, models.PriceOption{Label: opt.Label, Price: price})
	}
	return out
}

func (s *Service) SelectQuantity(ctx context.Context, actor models.Actor, cartID int64, label string) (ui.Reply, error) {
	c, err := s.loadOwned(ctx, actor, cartID)
	if err != nil {
		return ui.Reply{}, err
	}
	if err := requireStatus(c, models.StatusInProgress); err != nil {
		return ui.Reply{}, err
	}
	if c.ProductName == "" {
		return ui.Reply{}, invalid("Selecione o produto primeiro.")
	}

	p, err := s.catalog.Product(c.ProductName)
	if err != nil {
		return ui.Reply{}, invalid("Produto não encontrado.")
	}
	price, err := s.catalog.Price(p, label, actor.IsVIP)
	if err != nil {
		return ui.Reply{}, invalid("Quantidade inválida.")
	}

	next, err := s.transition(ctx, c, models.StatusQuantitySelected, models.CartUpdate{
		QuantityLabel: &label,
		Price:         &price,
	})
	if err != nil {
		return ui.Reply{}, staleAsInvalid(err)
	}
	if err := s.prompt(ctx, next, ui.NicknamePrompt(next)); err != nil {
		return ui.Reply{}, err
	}
	return ui.Reply{Content: fmt.Sprintf("✅ %s por %s.", label, ui.FormatBRL(price))}, nil
}

// HandleThreadMessage routes the buyer's free-text input by cart status:
// nickname, payment proof or gamepass link. Anything else is ignored.
func (s *Service) HandleThreadMessage(ctx context.Context, msg ThreadMessage) error {
	c, err := s.repo.GetCartByThread(ctx, msg.ThreadID)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("get cart by thread %s: %w", msg.ThreadID, err)
	}
	if c.Status.IsTerminal() || msg.AuthorID != c.UserID {
		return nil
	}

	switch c.Status {
	case models.StatusQuantitySelected:
		return s.submitNickname(ctx, c, msg.Content)
	case models.StatusAwaitingManualPix:
		return s.submitPaymentProof(ctx, c, msg)
	case models.StatusGamepassConfirmed:
		return s.submitGamepassLink(ctx, c, msg.Content)
	}
	return nil
}

func (s *Service) submitNickname(ctx context.Context, c *models.Cart, content string) error {
	nick := strings.TrimSpace(content)
	if !nicknamePattern.MatchString(nick) {
		_, err := s.platform.Send(ctx, c.ThreadID, ui.NicknameInvalid())
		return err
	}

	next, err := s.transition(ctx, c, models.StatusNicknameInformed, models.CartUpdate{RobloxNickname: &nick})
	if errors.Is(err, ErrStaleTransition) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := s.repo.SetNickname(ctx, c.UserID, nick); err != nil {
		s.logger.Warnw("Failed to remember nickname", "user_id", c.UserID, "error", err)
	}

	next, err = s.transition(ctx, next, models.StatusAwaitingPaymentMethod, models.CartUpdate{})
	if errors.Is(err, ErrStaleTransition) {
		return nil
	}
	if err != nil {
		return err
	}
	return s.prompt(ctx, next, ui.PaymentMethodMenu(next))
}

func (s *Service) SelectPaymentMethod(ctx context.Context, actor models.Actor, cartID int64, method string) (ui.Reply, error) {
	c, err := s.loadOwned(ctx, actor, cartID)
	if err != nil {
		return ui.Reply{}, err
	}
	if err := requireStatus(c, models.StatusAwaitingPaymentMethod); err != nil {
		return ui.Reply{}, err
	}
	if models.PaymentMethod(method) != models.PaymentPix || !s.settings.Pix.Configured() {
		return ui.Reply{}, invalid("Forma de pagamento indisponível no momento.")
	}

	pm := models.PaymentPix
	next, err := s.transition(ctx, c, models.StatusAwaitingManualPix, models.CartUpdate{PaymentMethod: &pm})
	if err != nil {
		return ui.Reply{}, staleAsInvalid(err)
	}

	pix := s.settings.Pix
	if err := s.prompt(ctx, next, ui.PixInstructions(next, pix.Key, pix.Holder, pix.Message, s.settings.PaymentTimeout)); err != nil {
		return ui.Reply{}, err
	}
	return ui.Reply{Content: "💠 Instruções de pagamento enviadas no carrinho."}, nil
}

// submitPaymentProof escalates the first proof only.
func (s *Service) submitPaymentProof(ctx context.Context, c *models.Cart, msg ThreadMessage) error {
	if c.ProofSubmittedAt != nil {
		return nil
	}
	detail := strings.Join(msg.Attachments, "\n")
	if detail == "" {
		detail = strings.TrimSpace(msg.Content)
	}
	if detail == "" {
		return nil
	}

	now := s.now()
	next, err := s.transition(ctx, c, models.StatusAwaitingManualPix, models.CartUpdate{ProofSubmittedAt: &now})
	if errors.Is(err, ErrStaleTransition) {
		return nil
	}
	if err != nil {
		return err
	}

	if _, err := s.platform.Send(ctx, next.ThreadID, ui.ProofReceived()); err != nil {
		s.logger.Warnw("Failed to acknowledge payment proof", "cart_id", c.CartID, "error", err)
	}
	if err := s.escalator.Escalate(ctx, notify.Escalation{Kind: notify.KindPaymentProof, Cart: *next, Detail: detail}); err != nil {
		return fmt.Errorf("escalate payment proof for cart %d: %w", c.CartID, err)
	}
	return nil
}

// ConfirmGamepass accepts the buyer's confirmation that the gamepass has the
// exact price and regional pricing disabled.
func (s *Service) ConfirmGamepass(ctx context.Context, actor models.Actor, cartID int64, checks []string) (ui.Reply, error) {
	c, err := s.loadOwned(ctx, actor, cartID)
	if err != nil {
		return ui.Reply{}, err
	}
	if err := requireStatus(c, models.StatusPaymentApproved, models.StatusAwaitingGamepassHelp); err != nil {
		return ui.Reply{}, err
	}
	if !hasAll(checks, ui.CheckExactPrice, ui.CheckRegionalPricing) {
		return ui.Reply{}, invalid("Marque as duas confirmações para continuar.")
	}

	next, err := s.transition(ctx, c, models.StatusGamepassConfirmed, models.CartUpdate{})
	if err != nil {
		return ui.Reply{}, staleAsInvalid(err)
	}
	if err := s.prompt(ctx, next, ui.LinkPrompt(next)); err != nil {
		return ui.Reply{}, err
	}
	return ui.Reply{Content: "✅ Confirmado! Envie o link do Gamepass no chat do carrinho."}, nil
}

func hasAll(got []string, want ...string) bool {
	for _, w := range want {
		found := false
		for _, g := range got {
			if g == w {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func (s *Service) RequestGamepassHelp(ctx context.Context, actor models.Actor, cartID int64) (ui.Reply, error) {
	c, err := s.loadOwned(ctx, actor, cartID)
	if err != nil {
		return ui.Reply{}, err
	}
	if c.Status == models.StatusAwaitingGamepassHelp {
		return ui.Reply{Content: "🆘 Um atendente já foi chamado."}, nil
	}
	if err := requireStatus(c, models.StatusPaymentApproved, models.StatusGamepassConfirmed); err != nil {
		return ui.Reply{}, err
	}

	next, err := s.transition(ctx, c, models.StatusAwaitingGamepassHelp, models.CartUpdate{})
	if err != nil {
		return ui.Reply{}, staleAsInvalid(err)
	}
	if err := s.escalator.Escalate(ctx, notify.Escalation{Kind: notify.KindGamepassHelp, Cart: *next}); err != nil {
		s.logger.Errorw("Failed to escalate gamepass help", "cart_id", c.CartID, "error", err)
	}

	// The buyer confirms again once helped, so the tutorial must be live.
	if c.Status == models.StatusGamepassConfirmed {
		if err := s.prompt(ctx, next, ui.GamepassTutorial(next, next.GamepassValue)); err != nil {
			s.logger.Warnw("Failed to repost gamepass tutorial", "cart_id", c.CartID, "error", err)
		}
	}

	if s.helper != nil {
		text, err := s.helper.GamepassHelp(ctx, *next, next.GamepassValue)
		if err != nil {
			s.logger.Warnw("Gamepass help assistant failed", "cart_id", c.CartID, "error", err)
		} else if _, err := s.platform.Send(ctx, next.ThreadID, ui.HelpGuidance(text)); err != nil {
			s.logger.Warnw("Failed to post gamepass guidance", "cart_id", c.CartID, "error", err)
		}
	}

	return ui.Reply{Content: "🆘 Um atendente foi chamado para te ajudar."}, nil
}

// submitGamepassLink rejects malformed links without touching the cart.
func (s *Service) submitGamepassLink(ctx context.Context, c *models.Cart, content string) error {
	link := strings.TrimSpace(content)
	if !s.links.Valid(link) {
		_, err := s.platform.Send(ctx, c.ThreadID, ui.LinkInvalid())
		return err
	}

	next, err := s.transition(ctx, c, models.StatusAwaitingAdminDelivery, models.CartUpdate{GamepassLink: &link})
	if errors.Is(err, ErrStaleTransition) {
		return nil
	}
	if err != nil {
		return err
	}
	s.stripPrompt(ctx, next)

	if err := s.escalator.Escalate(ctx, notify.Escalation{Kind: notify.KindDeliveryPending, Cart: *next}); err != nil {
		return fmt.Errorf("escalate delivery for cart %d: %w", c.CartID, err)
	}
	return nil
}
