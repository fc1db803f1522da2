package card

import (
	"context"

	"cardgate/internal/gateway"
	"cardgate/internal/models"
	"cardgate/internal/repositories"
)

// Service drives card tokenization and charge workflows against the
// processor and keeps the stored card records in step.
type Service interface {
	// AddCard tokenizes a card and persists it on success. A processor
	// decline comes back as the raw envelope with a nil card and nil error.
	AddCard(ctx context.Context, input AddCardInput) (*models.Card, *gateway.Envelope, error)

	// AddCardWithCharge tokenizes and charges in one processor call. The
	// card is not persisted yet; its hash and phone ride along in the
	// charge metadata so CompleteAddCardWithCharge can recover them.
	AddCardWithCharge(ctx context.Context, input ChargeNewCardInput) (*gateway.Envelope, error)

	// CompleteAddCardWithCharge verifies the referenced transaction and
	// persists the card embedded in the verification response. It returns
	// (nil, nil) when the verification carries no authorization.
	CompleteAddCardWithCharge(ctx context.Context, reference, cardID string) (*models.Card, error)

	// DebitCard charges a stored card, taking the saved-token fast path
	// only for reusable, previously billed cards when policy allows.
	DebitCard(ctx context.Context, ref CardRef, amount float64, opts DebitOptions) (*gateway.Envelope, error)

	// CompleteCharge submits a step-up value against a pending charge and
	// marks the owning card billed on confirmed success.
	CompleteCharge(ctx context.Context, ref CardRef, step StepUp, reference string) (*gateway.Envelope, error)

	// ResolveSteps drives a pending charge through bounded step-up rounds
	// using caller-supplied values, returning the last envelope. A round
	// whose pending action has no supplied value stops the loop.
	ResolveSteps(ctx context.Context, env *gateway.Envelope, supplied map[StepUpAction]string, ref CardRef) (*gateway.Envelope, error)

	// CheckStatus and VerifyTransaction are read-only status queries that
	// still record a confirmed success on the owning card.
	CheckStatus(ctx context.Context, reference string) (*gateway.Envelope, error)
	VerifyTransaction(ctx context.Context, reference string) (*gateway.Envelope, error)

	// DeleteCard removes a card, deactivating its processor authorization
	// first when the card was ever billed.
	DeleteCard(ctx context.Context, ref CardRef) error

	// Lookup helpers.
	GetCard(ctx context.Context, ref CardRef) (*models.Card, error)
	GetCardFromNumber(ctx context.Context, cardNumber string) (*models.Card, error)
	GetCards(ctx context.Context, owner string, opts repositories.ListOptions) ([]*models.Card, error)
	CountCards(ctx context.Context, owner string) (int64, error)
	CardExists(ctx context.Context, cardID string) (bool, error)
}

// Store is the slice of the card repository the orchestrator needs.
type Store interface {
	Create(ctx context.Context, card *models.Card) error
	MarkBilled(ctx context.Context, card *models.Card) error
	Delete(ctx context.Context, card *models.Card) error
	FindOne(ctx context.Context, filter repositories.Filter) (*models.Card, error)
	FindMany(ctx context.Context, filter repositories.Filter, opts repositories.ListOptions) ([]*models.Card, error)
	Count(ctx context.Context, filter repositories.Filter) (int64, error)
}

// Gateway is the processor client surface the orchestrator calls.
type Gateway interface {
	Tokenize(ctx context.Context, req gateway.TokenizeRequest) (*gateway.Envelope, error)
	Charge(ctx context.Context, req gateway.ChargeRequest) (*gateway.Envelope, error)
	ChargeAuthorization(ctx context.Context, req gateway.ChargeRequest) (*gateway.Envelope, error)
	DeactivateAuthorization(ctx context.Context, authorizationCode string) (*gateway.Envelope, error)
	SubmitOTP(ctx context.Context, otp, reference string) (*gateway.Envelope, error)
	SubmitPhone(ctx context.Context, phone, reference string) (*gateway.Envelope, error)
	SubmitPin(ctx context.Context, pin, reference string) (*gateway.Envelope, error)
	CheckStatus(ctx context.Context, reference string) (*gateway.Envelope, error)
	VerifyTransaction(ctx context.Context, reference string) (*gateway.Envelope, error)
}
