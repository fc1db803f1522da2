package gateway

import "strings"

// Envelope is the processor's uniform response shape. Business failures
// arrive as Status=false with an explanatory Message, not as transport
// errors.
type Envelope struct {
	Status  bool        `json:"status"`
	Message string      `json:"message"`
	Data    *ChargeData `json:"data"`
}

// TransactionStatus returns the nested transaction status, or "" when the
// envelope carries no data.
func (e *Envelope) TransactionStatus() string {
	if e == nil || e.Data == nil {
		return ""
	}
	return e.Data.Status
}

// Succeeded reports a confirmed successful transaction.
func (e *Envelope) Succeeded() bool {
	return e != nil && e.Status && e.TransactionStatus() == "success"
}

// PendingAction returns the step-up field the processor is waiting on
// (otp, phone or pin), or "" when no step-up is pending. The processor
// signals a pending step with a status of the form "send_<field>".
func (e *Envelope) PendingAction() string {
	status := e.TransactionStatus()
	if after, ok := strings.CutPrefix(status, "send_"); ok {
		return after
	}
	return ""
}

// AuthorizationCode returns the authorization code from the envelope,
// whether reported flat on the data object or nested in an authorization.
func (e *Envelope) AuthorizationCode() string {
	if e == nil || e.Data == nil {
		return ""
	}
	if e.Data.Authorization != nil && e.Data.Authorization.AuthorizationCode != "" {
		return e.Data.Authorization.AuthorizationCode
	}
	return e.Data.AuthorizationCode
}

// ChargeData is the data object of a charge, tokenization, status or
// verification response. Tokenization responses report the authorization
// fields flat; charge responses nest them under Authorization.
type ChargeData struct {
	Status    string `json:"status,omitempty"`
	Reference string `json:"reference,omitempty"`
	Amount    int64  `json:"amount,omitempty"`

	AuthorizationCode string `json:"authorization_code,omitempty"`
	CardType          string `json:"card_type,omitempty"`
	Bin               string `json:"bin,omitempty"`
	Last4             string `json:"last4,omitempty"`
	ExpMonth          string `json:"exp_month,omitempty"`
	ExpYear           string `json:"exp_year,omitempty"`
	Bank              string `json:"bank,omitempty"`
	Signature         string `json:"signature,omitempty"`
	Reusable          bool   `json:"reusable,omitempty"`
	CountryCode       string `json:"country_code,omitempty"`

	Authorization *Authorization         `json:"authorization,omitempty"`
	Customer      *Customer              `json:"customer,omitempty"`
	Metadata      map[string]interface{} `json:"metadata,omitempty"`
}

// Authorization is the processor's description of a tokenized card.
type Authorization struct {
	AuthorizationCode string `json:"authorization_code"`
	CardType          string `json:"card_type,omitempty"`
	Bin               string `json:"bin,omitempty"`
	Last4             string `json:"last4,omitempty"`
	ExpMonth          string `json:"exp_month,omitempty"`
	ExpYear           string `json:"exp_year,omitempty"`
	Bank              string `json:"bank,omitempty"`
	Signature         string `json:"signature,omitempty"`
	Reusable          bool   `json:"reusable,omitempty"`
	CountryCode       string `json:"country_code,omitempty"`
}

// Customer identifies the charged account holder.
type Customer struct {
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// CardDetails carries raw card data for tokenization or a combined
// tokenize-and-charge call.
type CardDetails struct {
	Number      string `json:"number"`
	CVV         string `json:"cvv"`
	ExpiryMonth string `json:"expiry_month"`
	ExpiryYear  string `json:"expiry_year"`
}

// TokenizeRequest is the body of a tokenization call.
type TokenizeRequest struct {
	Email string      `json:"email"`
	Card  CardDetails `json:"card"`
}

// ChargeRequest is the body of a fresh charge or a saved-token charge.
// Amount is in the processor's minor units.
type ChargeRequest struct {
	Email             string                 `json:"email"`
	Amount            int64                  `json:"amount"`
	AuthorizationCode string                 `json:"authorization_code,omitempty"`
	Card              *CardDetails           `json:"card,omitempty"`
	Pin               string                 `json:"pin,omitempty"`
	Subaccount        string                 `json:"subaccount,omitempty"`
	Metadata          map[string]interface{} `json:"metadata,omitempty"`
}
