package ui

import (
	"fmt"
	"strconv"
	"strings"
)

// Component actions carried in custom IDs.
const (
	ActionCategory  = "category"
	ActionResume    = "resume"
	ActionRestart   = "restart"
	ActionProduct   = "product"
	ActionQuantity  = "quantity"
	ActionPayMethod = "paymethod"
	ActionApprove   = "approve"
	ActionConfirm   = "confirm"
	ActionHelp      = "help"
	ActionClaim     = "claim"
	ActionDeliver   = "deliver"
	ActionRate      = "rate"
	ActionReview    = "review"
)

// Gamepass preconditions the buyer must tick before sending the link.
const (
	CheckExactPrice      = "exact_price"
	CheckRegionalPricing = "regional_pricing_off"
)

// CustomID is the decoded form of "<action>:<id>[:<arg>]".
type CustomID struct {
	Action string
	ID     int64
	Arg    string
}

func (c CustomID) String() string {
	s := c.Action + ":" + strconv.FormatInt(c.ID, 10)
	if c.Arg != "" {
		s += ":" + c.Arg
	}
	return s
}

func NewID(action string, id int64, arg ...string) string {
	return CustomID{Action: action, ID: id, Arg: strings.Join(arg, ":")}.String()
}

func ParseCustomID(s string) (CustomID, error) {
	parts := strings.SplitN(s, ":", 3)
	if len(parts) < 2 || parts[0] == "" {
		return CustomID{}, fmt.Errorf("malformed custom id %q", s)
	}
	id, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return CustomID{}, fmt.Errorf("malformed custom id %q: %w", s, err)
	}
	c := CustomID{Action: parts[0], ID: id}
	if len(parts) == 3 {
		c.Arg = parts[2]
	}
	return c, nil
}
