package cart

import (
	"fmt"

	"robux-bot/internal/models"
)

// transitions lists the forward moves of the purchase flow. Every
// non-terminal status may additionally move to cancelled, expired or
// closed_by_archive, and may be updated in place.
var transitions = map[models.CartStatus][]models.CartStatus{
	models.StatusInProgress: {
		models.StatusQuantitySelected,
		models.StatusAwaitingAdminDelivery,
	},
	models.StatusQuantitySelected:      {models.StatusNicknameInformed},
	models.StatusNicknameInformed:      {models.StatusAwaitingPaymentMethod},
	models.StatusAwaitingPaymentMethod: {models.StatusAwaitingManualPix},
	models.StatusAwaitingManualPix:     {models.StatusPaymentApproved},
	models.StatusPaymentApproved: {
		models.StatusGamepassConfirmed,
		models.StatusAwaitingGamepassHelp,
	},
	models.StatusAwaitingGamepassHelp: {models.StatusGamepassConfirmed},
	models.StatusGamepassConfirmed: {
		models.StatusAwaitingAdminDelivery,
		models.StatusAwaitingGamepassHelp,
	},
	models.StatusAwaitingAdminDelivery: {models.StatusCompleted},
}

// CheckTransition reports whether a cart may move from one status to another.
func CheckTransition(from, to models.CartStatus) error {
	if from.IsTerminal() {
		return fmt.Errorf("%w: %s is terminal", ErrInvalidTransition, from)
	}
	if from == to {
		return nil
	}
	switch to {
	case models.StatusCancelled, models.StatusExpired, models.StatusClosedByArchive:
		return nil
	}
	for _, next := range transitions[from] {
		if next == to {
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
}

// committed reports carts that hold a payment or wait on the team. The buyer
// can resume them but not discard them.
func committed(c *models.Cart) bool {
	switch c.Status {
	case models.StatusAwaitingAdminDelivery, models.StatusAwaitingGamepassHelp,
		models.StatusPaymentApproved, models.StatusGamepassConfirmed:
		return true
	case models.StatusAwaitingManualPix:
		return c.ProofSubmittedAt != nil
	}
	return false
}
