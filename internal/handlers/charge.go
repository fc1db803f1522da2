package handlers

import (
	"errors"

	"cardgate/internal/services/card"
	"cardgate/internal/utils/response"

	"github.com/gofiber/fiber/v2"
)

// ChargeHandler exposes the charge workflow: debiting stored cards,
// combined tokenize-and-charge, step-up completion and status queries.
type ChargeHandler struct {
	svc card.Service
}

func NewChargeHandler(svc card.Service) *ChargeHandler {
	return &ChargeHandler{svc: svc}
}

type debitRequest struct {
	Amount float64                `json:"amount"`
	Pin    string                 `json:"pin,omitempty"`
	Fields map[string]interface{} `json:"fields,omitempty"`

	// Step-up values the caller supplies upfront. When the processor asks
	// for one of these mid-charge, the matching value is submitted
	// automatically; anything else is returned pending.
	OTP   string `json:"otp,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// DebitCard charges a stored card and drives any step-up rounds the
// caller pre-supplied values for. A charge left pending is relayed with
// its reference so the caller can complete it out of band.
func (h *ChargeHandler) DebitCard(c *fiber.Ctx) error {
	var req debitRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request format")
	}
	if req.Amount <= 0 {
		return response.BadRequest(c, "Amount must be greater than zero")
	}
	ref := card.ByID(c.Params("id"))

	env, err := h.svc.DebitCard(c.Context(), ref, req.Amount, card.DebitOptions{
		Pin:    req.Pin,
		Fields: req.Fields,
	})
	if err != nil {
		return h.chargeError(c, env, err)
	}

	supplied := map[card.StepUpAction]string{}
	if req.OTP != "" {
		supplied[card.StepUpOTP] = req.OTP
	}
	if req.Phone != "" {
		supplied[card.StepUpPhone] = req.Phone
	}
	if req.Pin != "" {
		supplied[card.StepUpPin] = req.Pin
	}
	if len(supplied) > 0 {
		env, err = h.svc.ResolveSteps(c.Context(), env, supplied, ref)
		if err != nil {
			return h.chargeError(c, env, err)
		}
	}
	return response.Envelope(c, env)
}

// ChargeNewCard tokenizes and charges a card in one processor call. The
// card is persisted later via CompleteAddCard once the transaction is
// verified.
func (h *ChargeHandler) ChargeNewCard(c *fiber.Ctx) error {
	var input card.ChargeNewCardInput
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request format")
	}
	if input.Amount <= 0 {
		return response.BadRequest(c, "Amount must be greater than zero")
	}

	env, err := h.svc.AddCardWithCharge(c.Context(), input)
	if err != nil {
		return response.ServerError(c, err.Error())
	}
	return response.Envelope(c, env)
}

// CompleteAddCard verifies a tokenize-and-charge transaction and persists
// the card it produced.
func (h *ChargeHandler) CompleteAddCard(c *fiber.Ctx) error {
	var body struct {
		Reference string `json:"reference"`
		CardID    string `json:"card_id,omitempty"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.BadRequest(c, "Invalid request format")
	}

	record, err := h.svc.CompleteAddCardWithCharge(c.Context(), body.Reference, body.CardID)
	if err != nil {
		if errors.Is(err, card.ErrMissingReference) {
			return response.BadRequest(c, "Transaction reference is required")
		}
		return response.ServerError(c, err.Error())
	}
	if record == nil {
		return response.NotFound(c, "Transaction carries no card authorization")
	}
	return response.Success(c, "Card added successfully", record)
}

// CompleteCharge submits a step-up value (otp, phone or pin) against a
// pending charge.
func (h *ChargeHandler) CompleteCharge(c *fiber.Ctx) error {
	var body struct {
		Action    string `json:"action"`
		Value     string `json:"value"`
		Reference string `json:"reference"`
		CardID    string `json:"card_id,omitempty"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.BadRequest(c, "Invalid request format")
	}

	ref := card.CardRef{}
	if body.CardID != "" {
		ref = card.ByID(body.CardID)
	}

	env, err := h.svc.CompleteCharge(c.Context(), ref, card.StepUp{
		Action: card.StepUpAction(body.Action),
		Value:  body.Value,
	}, body.Reference)
	if err != nil {
		switch {
		case errors.Is(err, card.ErrUnknownAction):
			return response.BadRequest(c, "Unrecognized action parameter")
		case errors.Is(err, card.ErrMissingReference):
			return response.BadRequest(c, "Transaction reference is required")
		}
		return h.chargeError(c, env, err)
	}
	return response.Envelope(c, env)
}

// CheckStatus polls a pending charge by reference.
func (h *ChargeHandler) CheckStatus(c *fiber.Ctx) error {
	env, err := h.svc.CheckStatus(c.Context(), c.Params("reference"))
	if err != nil {
		if errors.Is(err, card.ErrMissingReference) {
			return response.BadRequest(c, "Transaction reference is required")
		}
		return h.chargeError(c, env, err)
	}
	return response.Envelope(c, env)
}

// VerifyTransaction fetches the final state of a transaction by reference.
func (h *ChargeHandler) VerifyTransaction(c *fiber.Ctx) error {
	env, err := h.svc.VerifyTransaction(c.Context(), c.Params("reference"))
	if err != nil {
		if errors.Is(err, card.ErrMissingReference) {
			return response.BadRequest(c, "Transaction reference is required")
		}
		return h.chargeError(c, env, err)
	}
	return response.Envelope(c, env)
}

// chargeError maps orchestrator failures to HTTP responses. A confirmed
// charge whose billed write failed still relays the envelope; the caller
// must see the money moved.
func (h *ChargeHandler) chargeError(c *fiber.Ctx, env interface{}, err error) error {
	switch {
	case errors.Is(err, card.ErrCardNotFound):
		return response.NotFound(c, "Card not found")
	case errors.Is(err, card.ErrInvalidCardRef):
		return response.BadRequest(c, "Invalid card reference")
	case errors.Is(err, card.ErrBilledNotRecorded):
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
			"data":  env,
		})
	}
	return response.ServerError(c, err.Error())
}
