package card

import "cardgate/internal/models"

// AddCardInput carries the raw card details for tokenization.
type AddCardInput struct {
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	CardNumber string `json:"card_number"`
	CVV        string `json:"cvv"`
	ExpMonth   string `json:"exp_month"`
	ExpYear    string `json:"exp_year"`
	CardID     string `json:"card_id,omitempty"` // optional explicit app id
}

// ChargeNewCardInput tokenizes and charges a card in a single processor
// call. Amount is in major units; the service converts to minor units.
type ChargeNewCardInput struct {
	Email      string                 `json:"email"`
	Phone      string                 `json:"phone"`
	CardNumber string                 `json:"card_number"`
	CVV        string                 `json:"cvv"`
	ExpMonth   string                 `json:"exp_month"`
	ExpYear    string                 `json:"exp_year"`
	Amount     float64                `json:"amount"`
	Subaccount string                 `json:"subaccount,omitempty"`
	CardID     string                 `json:"card_id,omitempty"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}

// DebitOptions are the optional knobs of a debit call.
type DebitOptions struct {
	Pin    string                 `json:"pin,omitempty"`
	Fields map[string]interface{} `json:"fields,omitempty"` // extra charge metadata
}

// CardRef identifies a stored card either by app card id or by an already
// loaded record.
type CardRef struct {
	ID   string
	Card *models.Card
}

// ByID references a card by its app-assigned id.
func ByID(id string) CardRef { return CardRef{ID: id} }

// ByCard references an already loaded card record.
func ByCard(c *models.Card) CardRef { return CardRef{Card: c} }

// IsZero reports an empty reference.
func (r CardRef) IsZero() bool { return r.ID == "" && r.Card == nil }

// StepUpAction names the verification factor a pending charge is waiting on.
type StepUpAction string

const (
	StepUpOTP   StepUpAction = "otp"
	StepUpPhone StepUpAction = "phone"
	StepUpPin   StepUpAction = "pin"
)

// StepUp is the caller-supplied value for a pending step-up verification.
// The action is explicit; the service never infers which field to read.
type StepUp struct {
	Action StepUpAction
	Value  string
}

// OTP builds a one-time-password step-up value.
func OTP(v string) StepUp { return StepUp{Action: StepUpOTP, Value: v} }

// Phone builds a phone-confirmation step-up value.
func Phone(v string) StepUp { return StepUp{Action: StepUpPhone, Value: v} }

// Pin builds a card-PIN step-up value.
func Pin(v string) StepUp { return StepUp{Action: StepUpPin, Value: v} }

// Config is the orchestrator policy surface.
type Config struct {
	// AllowReusable permits the saved-token fast path for cards that are
	// reusable and have at least one confirmed charge.
	AllowReusable bool
	// MaxStepUpRounds bounds convenience step-up loops driven on behalf of
	// a caller. Zero means DefaultMaxStepUpRounds.
	MaxStepUpRounds int
}

// DefaultMaxStepUpRounds bounds automatic step-up resubmission.
const DefaultMaxStepUpRounds = 5
