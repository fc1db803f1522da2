package repositories

import (
	"fmt"
	"strings"

	"cardgate/internal/models"

	"gorm.io/gorm"
)

// resolveFilter builds the lookup filter for a card from its identifying
// fields, in priority order: store id, app card id, authorization code,
// signature. Exactly one field ends up in the filter.
func resolveFilter(card *models.Card) (Filter, error) {
	switch {
	case card.ID != 0:
		return Filter{"id": card.ID}, nil
	case card.CardID != "":
		return Filter{"card_id": card.CardID}, nil
	case card.AuthorizationCode != "":
		return Filter{"authorization_code": card.AuthorizationCode}, nil
	case card.Signature != "":
		return Filter{"signature": card.Signature}, nil
	default:
		return nil, ErrNoIdentifier
	}
}

// applyFilter translates a Filter into WHERE clauses. Dotted keys address
// into JSONB columns: "hashed_card.value" becomes hashed_card->>'value'.
func applyFilter(tx *gorm.DB, filter Filter) *gorm.DB {
	for key, value := range filter {
		if col, field, ok := strings.Cut(key, "."); ok {
			tx = tx.Where(fmt.Sprintf("%s->>'%s' = ?", col, field), fmt.Sprint(value))
			continue
		}
		tx = tx.Where(map[string]interface{}{key: value})
	}
	return tx
}
