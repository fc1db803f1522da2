package handlers

import (
	"errors"

	"cardgate/internal/repositories"
	"cardgate/internal/services/card"
	"cardgate/internal/utils/response"

	"github.com/gofiber/fiber/v2"
)

// CardHandler exposes card lifecycle operations over HTTP.
type CardHandler struct {
	svc card.Service
}

func NewCardHandler(svc card.Service) *CardHandler {
	return &CardHandler{svc: svc}
}

// AddCard tokenizes a card and stores it. A processor decline is relayed
// as the processor's envelope with HTTP 200.
func (h *CardHandler) AddCard(c *fiber.Ctx) error {
	var input card.AddCardInput
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request format")
	}
	if input.Email == "" && input.Phone == "" {
		return response.BadRequest(c, "Either email or phone is required")
	}

	record, env, err := h.svc.AddCard(c.Context(), input)
	if err != nil {
		return response.ServerError(c, err.Error())
	}
	if record == nil {
		return response.Envelope(c, env)
	}
	return response.Success(c, "Card added successfully", record)
}

// GetCards lists a holder's cards. The owner query is treated as an email
// when it parses as one, otherwise as a phone number.
func (h *CardHandler) GetCards(c *fiber.Ctx) error {
	owner := c.Query("owner")
	if owner == "" {
		return response.BadRequest(c, "owner query parameter is required")
	}
	opts := repositories.ListOptions{
		Limit: c.QueryInt("limit"),
		Skip:  c.QueryInt("skip"),
	}

	cards, err := h.svc.GetCards(c.Context(), owner, opts)
	if err != nil {
		return response.ServerError(c, "Failed to fetch cards")
	}
	return response.Success(c, "Cards retrieved successfully", cards)
}

// CountCards returns the number of cards a holder owns.
func (h *CardHandler) CountCards(c *fiber.Ctx) error {
	owner := c.Query("owner")
	if owner == "" {
		return response.BadRequest(c, "owner query parameter is required")
	}
	n, err := h.svc.CountCards(c.Context(), owner)
	if err != nil {
		return response.ServerError(c, "Failed to count cards")
	}
	return response.Success(c, "Cards counted successfully", fiber.Map{"count": n})
}

// GetCard fetches a single card by its app id.
func (h *CardHandler) GetCard(c *fiber.Ctx) error {
	record, err := h.svc.GetCard(c.Context(), card.ByID(c.Params("id")))
	if err != nil {
		if errors.Is(err, card.ErrInvalidCardRef) {
			return response.BadRequest(c, "Invalid card ID")
		}
		return response.ServerError(c, "Failed to fetch card")
	}
	if record == nil {
		return response.NotFound(c, "Card not found")
	}
	return response.Success(c, "Card retrieved successfully", record)
}

// LookupCard finds a stored card matching a raw card number without ever
// storing the number.
func (h *CardHandler) LookupCard(c *fiber.Ctx) error {
	var body struct {
		CardNumber string `json:"card_number"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.BadRequest(c, "Invalid request format")
	}

	record, err := h.svc.GetCardFromNumber(c.Context(), body.CardNumber)
	if err != nil {
		if errors.Is(err, card.ErrInvalidCardRef) {
			return response.BadRequest(c, "Invalid card number")
		}
		return response.ServerError(c, "Failed to look up card")
	}
	if record == nil {
		return response.NotFound(c, "Card not found")
	}
	return response.Success(c, "Card retrieved successfully", record)
}

// DeleteCard removes a stored card, deactivating its processor token
// first when the card was ever billed.
func (h *CardHandler) DeleteCard(c *fiber.Ctx) error {
	err := h.svc.DeleteCard(c.Context(), card.ByID(c.Params("id")))
	if err != nil {
		switch {
		case errors.Is(err, card.ErrCardNotFound):
			return response.NotFound(c, "Card not found")
		case errors.Is(err, card.ErrInvalidCardRef):
			return response.BadRequest(c, "Invalid card ID")
		}
		return response.ServerError(c, "Failed to delete card")
	}
	return response.Success(c, "Card deleted successfully", nil)
}
