package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type CartStatus string

const (
	StatusInProgress            CartStatus = "in_progress"
	StatusQuantitySelected      CartStatus = "quantity_selected"
	StatusNicknameInformed      CartStatus = "nickname_informed"
	StatusAwaitingPaymentMethod CartStatus = "awaiting_payment_method_selection"
	StatusAwaitingManualPix     CartStatus = "awaiting_manual_pix_payment"
	StatusPaymentApproved       CartStatus = "payment_approved_awaiting_gamepass"
	StatusGamepassConfirmed     CartStatus = "gamepass_confirmed"
	StatusAwaitingAdminDelivery CartStatus = "awaiting_admin_delivery"
	StatusAwaitingGamepassHelp  CartStatus = "awaiting_gamepass_help"
	StatusCompleted             CartStatus = "completed"
	StatusCancelled             CartStatus = "cancelled"
	StatusExpired               CartStatus = "expired"
	StatusClosedByArchive       CartStatus = "closed_by_archive"
)

// TerminalStatuses lists every status from which no further transition occurs.
var TerminalStatuses = []CartStatus{
	StatusCompleted,
	StatusCancelled,
	StatusExpired,
	StatusClosedByArchive,
}

func (s CartStatus) IsTerminal() bool {
	for _, t := range TerminalStatuses {
		if s == t {
			return true
		}
	}
	return false
}

func (s CartStatus) String() string {
	return string(s)
}

type PaymentMethod string

const (
	PaymentPix PaymentMethod = "pix"
)

type Cart struct {
	CartID           int64           `json:"cart_id"`
	UserID           string          `json:"user_id"`
	ThreadID         string          `json:"thread_id"`
	Category         string          `json:"category"`
	ProductType      ProductType     `json:"product_type"`
	ProductName      string          `json:"product_name"`
	QuantityLabel    string          `json:"quantity_label"`
	Price            decimal.Decimal `json:"price"`
	RobloxNickname   string          `json:"roblox_nickname"`
	GamepassValue    int64           `json:"gamepass_value"`
	GamepassLink     string          `json:"gamepass_link"`
	PaymentMethod    PaymentMethod   `json:"payment_method"`
	ProofSubmittedAt *time.Time      `json:"proof_submitted_at"`
	ClaimedBy        string          `json:"claimed_by"`
	PromptMessageID  string          `json:"prompt_message_id"`
	Status           CartStatus      `json:"status"`
	Version          int64           `json:"version"`
	ExpiresAt        *time.Time      `json:"expires_at"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// CartUpdate carries the optional field changes applied together with a
// status transition. Nil fields are left untouched.
type CartUpdate struct {
	ProductType      *ProductType
	ProductName      *string
	QuantityLabel    *string
	Price            *decimal.Decimal
	RobloxNickname   *string
	GamepassValue    *int64
	GamepassLink     *string
	PaymentMethod    *PaymentMethod
	ProofSubmittedAt *time.Time
	PromptMessageID  *string
	ExpiresAt        *time.Time
	ClearExpiry      bool
}

// Apply copies the non-nil fields of u onto c.
func (u CartUpdate) Apply(c *Cart) {
	if u.ProductType != nil {
		c.ProductType = *u.ProductType
	}
	if u.ProductName != nil {
		c.ProductName = *u.ProductName
	}
	if u.QuantityLabel != nil {
		c.QuantityLabel = *u.QuantityLabel
	}
	if u.Price != nil {
		c.Price = *u.Price
	}
	if u.RobloxNickname != nil {
		c.RobloxNickname = *u.RobloxNickname
	}
	if u.GamepassValue != nil {
		c.GamepassValue = *u.GamepassValue
	}
	if u.GamepassLink != nil {
		c.GamepassLink = *u.GamepassLink
	}
	if u.PaymentMethod != nil {
		c.PaymentMethod = *u.PaymentMethod
	}
	if u.ProofSubmittedAt != nil {
		t := *u.ProofSubmittedAt
		c.ProofSubmittedAt = &t
	}
	if u.PromptMessageID != nil {
		c.PromptMessageID = *u.PromptMessageID
	}
	if u.ClearExpiry {
		c.ExpiresAt = nil
	} else if u.ExpiresAt != nil {
		t := *u.ExpiresAt
		c.ExpiresAt = &t
	}
}
