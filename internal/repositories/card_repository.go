package repositories

import (
	"context"
	"errors"

	"cardgate/internal/models"
)

var (
	// ErrCardNotFound is returned by write operations that matched no row.
	ErrCardNotFound = errors.New("card not found")
	// ErrNoIdentifier is returned when a card carries none of its
	// identifying fields and cannot be addressed in the store.
	ErrNoIdentifier = errors.New("card has no identifying field")
)

// Filter is a field->value match applied to card queries. Keys with a dot
// address into a JSONB column, e.g. "hashed_card.value".
type Filter map[string]interface{}

// ListOptions paginate and order FindMany results.
type ListOptions struct {
	Limit int
	Skip  int
	Sort  string // GORM order expression; default "created_at asc"
}

// CardRepository is the store facade for tokenized card records.
type CardRepository interface {
	// Create assigns defaults (billed=false, generated card id) and
	// inserts the record.
	Create(ctx context.Context, card *models.Card) error

	// MarkBilled sets the billed flag to true for the card addressed by
	// its identifying fields. The write is a compare-and-set so two
	// concurrent callers cannot both observe an unbilled card; calling it
	// on an already billed card is a no-op success.
	MarkBilled(ctx context.Context, card *models.Card) error

	// Delete removes the card addressed by its identifying fields.
	Delete(ctx context.Context, card *models.Card) error

	// FindOne returns the first match or (nil, nil) on a miss.
	FindOne(ctx context.Context, filter Filter) (*models.Card, error)

	// FindMany returns matches ordered by creation time unless overridden.
	FindMany(ctx context.Context, filter Filter, opts ListOptions) ([]*models.Card, error)

	// Count returns the number of matches.
	Count(ctx context.Context, filter Filter) (int64, error)

	// CountField counts records with the given value in a single column.
	// It also serves the id allocator's collision checks.
	CountField(ctx context.Context, field, value string) (int64, error)
}
