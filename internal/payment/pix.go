package payment

// Pix holds what the buyer needs to pay manually.
type Pix struct {
	Key     string
	Holder  string
	Message string
}

func (p Pix) Configured() bool {
	return p.Key != ""
}
