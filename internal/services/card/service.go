// Package card orchestrates card tokenization and charging against the
// payment processor, keeping stored card records in step with the
// processor's reported transaction state.
package card

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"log"
	"math"
	"net/mail"
	"strings"

	"cardgate/internal/gateway"
	"cardgate/internal/models"
	"cardgate/internal/repositories"
)

type service struct {
	store Store
	gw    Gateway
	cfg   Config
}

// NewService wires the orchestrator with its store, processor client and
// policy. All dependencies are explicit; there are no package-level
// handles.
func NewService(store Store, gw Gateway, cfg Config) Service {
	if cfg.MaxStepUpRounds <= 0 {
		cfg.MaxStepUpRounds = DefaultMaxStepUpRounds
	}
	return &service{store: store, gw: gw, cfg: cfg}
}

func (s *service) AddCard(ctx context.Context, input AddCardInput) (*models.Card, *gateway.Envelope, error) {
	number := cleanCardNumber(input.CardNumber)

	env, err := s.gw.Tokenize(ctx, gateway.TokenizeRequest{
		Email: input.Email,
		Card: gateway.CardDetails{
			Number:      number,
			CVV:         input.CVV,
			ExpiryMonth: input.ExpMonth,
			ExpiryYear:  input.ExpYear,
		},
	})
	if err != nil {
		return nil, nil, err
	}
	if !env.Status {
		// Processor decline; hand the envelope back for inspection.
		return nil, env, nil
	}
	data := env.Data
	if data == nil {
		return nil, env, fmt.Errorf("tokenization reported success without card data")
	}

	record := &models.Card{
		CardID:            input.CardID,
		Email:             input.Email,
		Phone:             input.Phone,
		AuthorizationCode: data.AuthorizationCode,
		CardType:          data.CardType,
		FirstSix:          data.Bin,
		LastFour:          data.Last4,
		HashedCard:        models.NewHashedCard(hashCardNumber(number)),
		ExpMonth:          data.ExpMonth,
		ExpYear:           data.ExpYear,
		Bank:              data.Bank,
		Signature:         data.Signature,
		Reusable:          data.Reusable,
		CountryCode:       data.CountryCode,
	}
	if err := s.store.Create(ctx, record); err != nil {
		return nil, env, err
	}
	return record, env, nil
}

func (s *service) AddCardWithCharge(ctx context.Context, input ChargeNewCardInput) (*gateway.Envelope, error) {
	number := cleanCardNumber(input.CardNumber)

	// The card is not persisted on this path. Everything needed to
	// reconstruct it rides along in the charge metadata and is read back
	// by CompleteAddCardWithCharge from the verification response.
	metadata := map[string]interface{}{
		"hashed_card": hashCardNumber(number),
		"phone":       input.Phone,
	}
	if input.CardID != "" {
		metadata["card_id"] = input.CardID
	}
	for k, v := range input.Metadata {
		metadata[k] = v
	}

	return s.gw.Charge(ctx, gateway.ChargeRequest{
		Email:  input.Email,
		Amount: minorUnits(input.Amount),
		Card: &gateway.CardDetails{
			Number:      number,
			CVV:         input.CVV,
			ExpiryMonth: input.ExpMonth,
			ExpiryYear:  input.ExpYear,
		},
		Subaccount: input.Subaccount,
		Metadata:   metadata,
	})
}

func (s *service) CompleteAddCardWithCharge(ctx context.Context, reference, cardID string) (*models.Card, error) {
	if reference == "" {
		return nil, ErrMissingReference
	}
	env, err := s.gw.VerifyTransaction(ctx, reference)
	if err != nil {
		return nil, err
	}
	if !env.Status || env.Data == nil || env.Data.Authorization == nil {
		return nil, nil
	}

	data := env.Data
	auth := data.Authorization
	record := &models.Card{
		CardID:            cardID,
		AuthorizationCode: auth.AuthorizationCode,
		CardType:          auth.CardType,
		FirstSix:          auth.Bin,
		LastFour:          auth.Last4,
		ExpMonth:          auth.ExpMonth,
		ExpYear:           auth.ExpYear,
		Bank:              auth.Bank,
		Signature:         auth.Signature,
		Reusable:          auth.Reusable,
		CountryCode:       auth.CountryCode,
		Billed:            env.Succeeded(),
	}
	if data.Customer != nil {
		record.Email = data.Customer.Email
	}
	if phone := metaString(data.Metadata, "phone"); phone != "" {
		record.Phone = phone
	}
	if digest := metaString(data.Metadata, "hashed_card"); digest != "" {
		record.HashedCard = models.NewHashedCard(digest)
	}
	if record.CardID == "" {
		record.CardID = metaString(data.Metadata, "card_id")
	}

	if err := s.store.Create(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

func (s *service) DebitCard(ctx context.Context, ref CardRef, amount float64, opts DebitOptions) (*gateway.Envelope, error) {
	record, err := s.resolveRef(ctx, ref)
	if err != nil {
		return nil, err
	}

	req := gateway.ChargeRequest{
		Email:             record.Email,
		Amount:            minorUnits(amount),
		AuthorizationCode: record.AuthorizationCode,
		Pin:               opts.Pin,
		Metadata:          opts.Fields,
	}

	// The saved-token fast path skips step-up verification; it is only
	// safe for cards the processor marked reusable that already carry a
	// confirmed charge, and only when policy allows it.
	var env *gateway.Envelope
	if record.Reusable && record.Billed && s.cfg.AllowReusable {
		env, err = s.gw.ChargeAuthorization(ctx, req)
	} else {
		env, err = s.gw.Charge(ctx, req)
	}
	if err != nil {
		return nil, err
	}

	if env.Succeeded() {
		if err := s.store.MarkBilled(ctx, record); err != nil {
			return env, fmt.Errorf("%w: %v", ErrBilledNotRecorded, err)
		}
	}
	return env, nil
}

func (s *service) CompleteCharge(ctx context.Context, ref CardRef, step StepUp, reference string) (*gateway.Envelope, error) {
	if reference == "" {
		return nil, ErrMissingReference
	}

	var env *gateway.Envelope
	var err error
	switch step.Action {
	case StepUpOTP:
		env, err = s.gw.SubmitOTP(ctx, step.Value, reference)
	case StepUpPhone:
		env, err = s.gw.SubmitPhone(ctx, step.Value, reference)
	case StepUpPin:
		env, err = s.gw.SubmitPin(ctx, step.Value, reference)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, step.Action)
	}
	if err != nil {
		return nil, err
	}

	if env.Succeeded() {
		if err := s.recordSuccess(ctx, ref, env); err != nil {
			return env, err
		}
	}
	return env, nil
}

// ResolveSteps drives a pending charge through step-up rounds using the
// caller-supplied values, one submission per pending action. The loop is
// bounded; anything still pending after the last round is returned as-is
// for out-of-band completion.
func (s *service) ResolveSteps(ctx context.Context, env *gateway.Envelope, supplied map[StepUpAction]string, ref CardRef) (*gateway.Envelope, error) {
	for round := 0; round < s.cfg.MaxStepUpRounds; round++ {
		action := StepUpAction(env.PendingAction())
		if action == "" {
			return env, nil
		}
		value, ok := supplied[action]
		if !ok || env.Data == nil || env.Data.Reference == "" {
			return env, nil
		}
		next, err := s.CompleteCharge(ctx, ref, StepUp{Action: action, Value: value}, env.Data.Reference)
		if err != nil {
			return env, err
		}
		env = next
	}
	return env, nil
}

func (s *service) CheckStatus(ctx context.Context, reference string) (*gateway.Envelope, error) {
	if reference == "" {
		return nil, ErrMissingReference
	}
	env, err := s.gw.CheckStatus(ctx, reference)
	if err != nil {
		return nil, err
	}
	if env.Succeeded() {
		if err := s.recordSuccess(ctx, CardRef{}, env); err != nil {
			return env, err
		}
	}
	return env, nil
}

func (s *service) VerifyTransaction(ctx context.Context, reference string) (*gateway.Envelope, error) {
	if reference == "" {
		return nil, ErrMissingReference
	}
	env, err := s.gw.VerifyTransaction(ctx, reference)
	if err != nil {
		return nil, err
	}
	if env.Succeeded() {
		if err := s.recordSuccess(ctx, CardRef{}, env); err != nil {
			return env, err
		}
	}
	return env, nil
}

func (s *service) DeleteCard(ctx context.Context, ref CardRef) error {
	record, err := s.resolveRef(ctx, ref)
	if err != nil {
		return err
	}

	// Deactivation is best-effort: the processor-side token should not
	// outlive the record, but a failure there never blocks the delete.
	if record.Billed {
		if env, err := s.gw.DeactivateAuthorization(ctx, record.AuthorizationCode); err != nil {
			log.Printf("authorization deactivation failed for card %s: %v", record.CardID, err)
		} else if !env.Status {
			log.Printf("authorization deactivation declined for card %s: %s", record.CardID, env.Message)
		}
	}

	return s.store.Delete(ctx, record)
}

func (s *service) GetCard(ctx context.Context, ref CardRef) (*models.Card, error) {
	if ref.Card != nil {
		return ref.Card, nil
	}
	if ref.ID == "" {
		return nil, ErrInvalidCardRef
	}
	return s.store.FindOne(ctx, repositories.Filter{"card_id": ref.ID})
}

func (s *service) GetCardFromNumber(ctx context.Context, cardNumber string) (*models.Card, error) {
	number := cleanCardNumber(cardNumber)
	if len(number) < 10 {
		return nil, ErrInvalidCardRef
	}
	return s.store.FindOne(ctx, repositories.Filter{
		"hashed_card.value": hashCardNumber(number),
		"first_six":         number[:6],
		"last_four":         number[len(number)-4:],
	})
}

func (s *service) GetCards(ctx context.Context, owner string, opts repositories.ListOptions) ([]*models.Card, error) {
	return s.store.FindMany(ctx, ownerFilter(owner), opts)
}

func (s *service) CountCards(ctx context.Context, owner string) (int64, error) {
	return s.store.Count(ctx, ownerFilter(owner))
}

func (s *service) CardExists(ctx context.Context, cardID string) (bool, error) {
	n, err := s.store.Count(ctx, repositories.Filter{"card_id": cardID})
	return n > 0, err
}

// recordSuccess marks the owning card billed after a confirmed charge.
// The card is resolved by explicit reference when given, otherwise by the
// authorization code the processor reported. A charge against a card this
// store never saw is tolerated.
func (s *service) recordSuccess(ctx context.Context, ref CardRef, env *gateway.Envelope) error {
	var record *models.Card
	var err error
	if !ref.IsZero() {
		record, err = s.resolveRef(ctx, ref)
	} else if code := env.AuthorizationCode(); code != "" {
		record, err = s.store.FindOne(ctx, repositories.Filter{"authorization_code": code})
	}
	if err != nil || record == nil {
		return err
	}
	if err := s.store.MarkBilled(ctx, record); err != nil {
		return fmt.Errorf("%w: %v", ErrBilledNotRecorded, err)
	}
	return nil
}

func (s *service) resolveRef(ctx context.Context, ref CardRef) (*models.Card, error) {
	if ref.Card != nil {
		return ref.Card, nil
	}
	if ref.ID == "" {
		return nil, ErrInvalidCardRef
	}
	record, err := s.store.FindOne(ctx, repositories.Filter{"card_id": ref.ID})
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, ErrCardNotFound
	}
	return record, nil
}

// cleanCardNumber strips all whitespace from a card number.
func cleanCardNumber(number string) string {
	return strings.Join(strings.Fields(number), "")
}

// hashCardNumber returns the hex digest stored in place of the number.
func hashCardNumber(number string) string {
	sum := sha1.Sum([]byte(number))
	return hex.EncodeToString(sum[:])
}

// minorUnits converts a major-unit amount to the processor's convention.
func minorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// ownerFilter treats the query as an email when it parses as one, else as
// a phone number.
func ownerFilter(owner string) repositories.Filter {
	owner = strings.TrimSpace(owner)
	if _, err := mail.ParseAddress(owner); err == nil {
		return repositories.Filter{"email": owner}
	}
	return repositories.Filter{"phone": owner}
}

func metaString(m map[string]interface{}, key string) string {
	if m == nil {
		return ""
	}
	if s, ok := m[key].(string); ok {
		return s
	}
	return ""
}
