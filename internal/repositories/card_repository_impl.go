package repositories

import (
	"context"
	"fmt"
	"log"

	"cardgate/internal/idgen"
	"cardgate/internal/models"

	"gorm.io/gorm"
)

// CardCache is the slice of the cache service the repository uses. A nil
// cache disables caching entirely.
type CardCache interface {
	GetCard(ctx context.Context, cardID string) (*models.Card, error)
	CacheCard(ctx context.Context, card *models.Card) error
	InvalidateCard(ctx context.Context, cardID string) error
}

type cardRepository struct {
	db    *gorm.DB
	cache CardCache
	idgen *idgen.Generator
}

// NewCardRepository builds the card store over the given database handle.
// The repository also backs the id allocator's collision checks.
func NewCardRepository(db *gorm.DB, cache CardCache) CardRepository {
	r := &cardRepository{db: db, cache: cache}
	r.idgen = idgen.New(r)
	return r
}

// cardIDAlloc fixes the app card id at eight alphanumeric characters.
var cardIDAlloc = idgen.Options{MinLen: 8, MaxLen: 8, Alphabet: idgen.Alnum}

func (r *cardRepository) Create(ctx context.Context, card *models.Card) error {
	if card.CardID == "" {
		id, err := r.idgen.Generate(ctx, "card_id", cardIDAlloc)
		if err != nil {
			return fmt.Errorf("failed to allocate card id: %w", err)
		}
		card.CardID = id
	}
	if err := r.db.WithContext(ctx).Create(card).Error; err != nil {
		return fmt.Errorf("failed to add card: %w", err)
	}
	return nil
}

func (r *cardRepository) MarkBilled(ctx context.Context, card *models.Card) error {
	filter, err := resolveFilter(card)
	if err != nil {
		return err
	}

	// Compare-and-set: only flip billed when it is still false, so two
	// concurrent charge confirmations cannot both observe an unbilled card.
	tx := applyFilter(r.db.WithContext(ctx).Model(&models.Card{}), filter)
	result := tx.Where("billed = ?", false).Update("billed", true)
	if result.Error != nil {
		return fmt.Errorf("unable to change card bill status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		// Either already billed (fine, idempotent) or missing.
		n, err := r.Count(ctx, filter)
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrCardNotFound
		}
	}
	card.Billed = true
	r.invalidate(ctx, card)
	return nil
}

func (r *cardRepository) Delete(ctx context.Context, card *models.Card) error {
	filter, err := resolveFilter(card)
	if err != nil {
		return err
	}
	result := applyFilter(r.db.WithContext(ctx), filter).Delete(&models.Card{})
	if result.Error != nil {
		return fmt.Errorf("unable to delete card: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrCardNotFound
	}
	r.invalidate(ctx, card)
	return nil
}

func (r *cardRepository) FindOne(ctx context.Context, filter Filter) (*models.Card, error) {
	// Lookups by app id alone are served read-through from the cache.
	if cardID, ok := cacheableLookup(filter); ok && r.cache != nil {
		if card, err := r.cache.GetCard(ctx, cardID); err == nil && card != nil {
			return card, nil
		}
	}

	var card models.Card
	err := applyFilter(r.db.WithContext(ctx), filter).First(&card).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get card: %w", err)
	}

	if r.cache != nil && card.CardID != "" {
		if err := r.cache.CacheCard(ctx, &card); err != nil {
			log.Printf("card cache write failed: %v", err)
		}
	}
	return &card, nil
}

func (r *cardRepository) FindMany(ctx context.Context, filter Filter, opts ListOptions) ([]*models.Card, error) {
	sort := opts.Sort
	if sort == "" {
		sort = "created_at asc"
	}
	tx := applyFilter(r.db.WithContext(ctx), filter).Order(sort)
	if opts.Limit > 0 {
		tx = tx.Limit(opts.Limit)
	}
	if opts.Skip > 0 {
		tx = tx.Offset(opts.Skip)
	}

	var cards []*models.Card
	if err := tx.Find(&cards).Error; err != nil {
		return nil, fmt.Errorf("failed to list cards: %w", err)
	}
	return cards, nil
}

func (r *cardRepository) Count(ctx context.Context, filter Filter) (int64, error) {
	var n int64
	tx := applyFilter(r.db.WithContext(ctx).Model(&models.Card{}), filter)
	if err := tx.Count(&n).Error; err != nil {
		return 0, fmt.Errorf("failed to count cards: %w", err)
	}
	return n, nil
}

func (r *cardRepository) CountField(ctx context.Context, field, value string) (int64, error) {
	return r.Count(ctx, Filter{field: value})
}

func (r *cardRepository) invalidate(ctx context.Context, card *models.Card) {
	if r.cache == nil || card.CardID == "" {
		return
	}
	if err := r.cache.InvalidateCard(ctx, card.CardID); err != nil {
		log.Printf("card cache invalidation failed: %v", err)
	}
}

// cacheableLookup reports whether the filter is a plain card_id lookup.
func cacheableLookup(filter Filter) (string, bool) {
	if len(filter) != 1 {
		return "", false
	}
	id, ok := filter["card_id"].(string)
	return id, ok && id != ""
}
