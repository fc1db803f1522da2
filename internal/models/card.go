package models

import "time"

// Card statuses reported by the processor for a charge attempt.
const (
	ChargeStatusSuccess = "success"
	ChargeStatusFailed  = "failed"
	ChargeStatusPending = "pending"
)

// Card represents a tokenized payment card stored against a processor
// authorization. The raw card number is never stored; only its hash and
// the disclosed first-six/last-four digits survive tokenization.
type Card struct {
	ID                uint      `gorm:"primarykey" json:"-"`
	CardID            string    `gorm:"uniqueIndex;size:32" json:"card_id"`
	Email             string    `gorm:"index" json:"email"`
	Phone             string    `gorm:"index" json:"phone,omitempty"`
	AuthorizationCode string    `gorm:"uniqueIndex" json:"authorization_code"`
	CardType          string    `json:"card_type"`
	FirstSix          string    `gorm:"size:6" json:"first_six"`
	LastFour          string    `gorm:"size:4" json:"last_four"`
	HashedCard        JSON      `gorm:"type:jsonb" json:"hashed_card,omitempty"`
	ExpMonth          string    `gorm:"size:2" json:"exp_month"`
	ExpYear           string    `gorm:"size:4" json:"exp_year"`
	Bank              string    `json:"bank,omitempty"`
	Signature         string    `gorm:"uniqueIndex" json:"signature"`
	Reusable          bool      `json:"reusable"`
	CountryCode       string    `gorm:"size:2" json:"country_code"`
	Billed            bool      `gorm:"default:false" json:"billed"`
	Metadata          JSON      `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt         time.Time `json:"date_created"`
}

// HasIdentifier reports whether any of the card's identifying fields is set.
// A card without one cannot be addressed in the store.
func (c *Card) HasIdentifier() bool {
	return c.ID != 0 || c.CardID != "" || c.AuthorizationCode != "" || c.Signature != ""
}

// HashFunction is the digest used for hashed card numbers.
const HashFunction = "sha1"

// NewHashedCard builds the hashed-card sub-document stored alongside the
// disclosed digits to detect duplicate cards.
func NewHashedCard(digest string) JSON {
	return JSON{
		"function": HashFunction,
		"value":    digest,
	}
}
