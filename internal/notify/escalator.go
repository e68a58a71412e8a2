// Package notify posts the escalations that need a human: one notice in the
// cart thread mentioning the admin role and one summary in the pending-work
// channel.
package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"robux-bot/internal/metrics"
	"robux-bot/internal/models"
	"robux-bot/internal/ui"
	"robux-bot/pkg/logger"
)

type Kind string

const (
	KindManualProduct   Kind = "manual_product"
	KindGamepassHelp    Kind = "gamepass_help"
	KindPaymentProof    Kind = "payment_proof"
	KindDeliveryPending Kind = "delivery_pending"
)

// Title is the headline used in every channel for the kind.
func (k Kind) Title() string {
	switch k {
	case KindManualProduct:
		return "🧾 Pedido de entrega manual"
	case KindGamepassHelp:
		return "🆘 Cliente precisa de ajuda com o Gamepass"
	case KindPaymentProof:
		return "💠 Comprovante PIX enviado"
	case KindDeliveryPending:
		return "📦 Entrega pendente"
	}
	return string(k)
}

// threadBody is what the buyer reads in the thread next to the role ping.
func (k Kind) threadBody() string {
	switch k {
	case KindManualProduct:
		return "Este produto é entregue manualmente. Um atendente vai continuar o atendimento por aqui."
	case KindGamepassHelp:
		return "Um atendente vai te ajudar a criar o Gamepass."
	case KindPaymentProof:
		return "Comprovante recebido. Um atendente vai conferir o pagamento."
	case KindDeliveryPending:
		return "Tudo certo! Seu pedido foi enviado para a fila de entrega."
	}
	return ""
}

// Claimable kinds carry the claim/deliver controls in the pending channel.
func (k Kind) Claimable() bool {
	return k == KindManualProduct || k == KindDeliveryPending
}

type Escalation struct {
	Kind   Kind
	Cart   models.Cart
	Detail string
}

// Sender posts a message to a channel and returns its ID.
type Sender interface {
	Send(ctx context.Context, channelID string, msg *discordgo.MessageSend) (string, error)
}

// Mirror copies escalations to an out-of-band operations channel.
type Mirror interface {
	Mirror(ctx context.Context, esc Escalation) error
}

type Escalator struct {
	sender           Sender
	adminRoleID      string
	pendingChannelID string
	mirror           Mirror
	metrics          *metrics.Metrics
	logger           *logger.Logger
}

func NewEscalator(sender Sender, adminRoleID, pendingChannelID string, m *metrics.Metrics, l *logger.Logger) *Escalator {
	return &Escalator{
		sender:           sender,
		adminRoleID:      adminRoleID,
		pendingChannelID: pendingChannelID,
		metrics:          m,
		logger:           l,
	}
}

// WithMirror adds an out-of-band copy of every escalation.
func (e *Escalator) WithMirror(m Mirror) *Escalator {
	e.mirror = m
	return e
}

func (e *Escalator) Escalate(ctx context.Context, esc Escalation) error {
	cart := esc.Cart
	var errs []error

	body := esc.Kind.threadBody()
	if esc.Kind == KindPaymentProof {
		notice := ui.EscalationNotice(esc.Kind.Title(), body, &cart, e.adminRoleID)
		notice.Components = ui.PaymentApprovalControls(&cart)
		if _, err := e.sender.Send(ctx, cart.ThreadID, notice); err != nil {
			errs = append(errs, fmt.Errorf("thread notice: %w", err))
		}
	} else if _, err := e.sender.Send(ctx, cart.ThreadID, ui.EscalationNotice(esc.Kind.Title(), body, &cart, e.adminRoleID)); err != nil {
		errs = append(errs, fmt.Errorf("thread notice: %w", err))
	}

	summary := ui.PendingSummary(esc.Kind.Title(), &cart, esc.Detail, esc.Kind.Claimable())
	if _, err := e.sender.Send(ctx, e.pendingChannelID, summary); err != nil {
		errs = append(errs, fmt.Errorf("pending summary: %w", err))
	}

	if e.mirror != nil {
		if err := e.mirror.Mirror(ctx, esc); err != nil {
			e.logger.Warnw("Failed to mirror escalation", "kind", esc.Kind, "cart_id", cart.CartID, "error", err)
		}
	}

	e.metrics.Escalations.WithLabelValues(string(esc.Kind)).Inc()
	e.logger.Infow("Escalated cart", "kind", esc.Kind, "cart_id", cart.CartID, "thread_id", cart.ThreadID)

	return errors.Join(errs...)
}
