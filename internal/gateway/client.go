// Package gateway wraps the payment processor's REST API. Each endpoint
// gets one method; responses are decoded into the processor's envelope
// regardless of HTTP status, so business failures surface as data rather
// than errors. The client adds no retries and no timeouts beyond what the
// injected http.Client enforces.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// Client talks to the processor over a preconfigured base URL and bearer
// credential.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// NewClient builds a Client. A nil httpClient falls back to
// http.DefaultClient.
func NewClient(cfg Config, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{cfg: cfg, httpClient: httpClient}
}

// Tokenize exchanges raw card details for an authorization token.
func (c *Client) Tokenize(ctx context.Context, req TokenizeRequest) (*Envelope, error) {
	return c.post(ctx, c.cfg.TokenizePath, req)
}

// Charge debits a card, tokenizing it in the same call when raw card
// details are supplied.
func (c *Client) Charge(ctx context.Context, req ChargeRequest) (*Envelope, error) {
	return c.post(ctx, c.cfg.ChargePath, req)
}

// ChargeAuthorization debits a previously tokenized, reusable card.
func (c *Client) ChargeAuthorization(ctx context.Context, req ChargeRequest) (*Envelope, error) {
	return c.post(ctx, c.cfg.ChargeAuthPath, req)
}

// DeactivateAuthorization invalidates an authorization token on the
// processor side.
func (c *Client) DeactivateAuthorization(ctx context.Context, authorizationCode string) (*Envelope, error) {
	return c.post(ctx, c.cfg.DeactivatePath, map[string]string{
		"authorization_code": authorizationCode,
	})
}

// SubmitOTP completes a pending charge awaiting a one-time password.
func (c *Client) SubmitOTP(ctx context.Context, otp, reference string) (*Envelope, error) {
	return c.post(ctx, c.cfg.SubmitOTPPath, map[string]string{
		"otp":       otp,
		"reference": reference,
	})
}

// SubmitPhone completes a pending charge awaiting a phone number.
func (c *Client) SubmitPhone(ctx context.Context, phone, reference string) (*Envelope, error) {
	return c.post(ctx, c.cfg.SubmitPhonePath, map[string]string{
		"phone":     phone,
		"reference": reference,
	})
}

// SubmitPin completes a pending charge awaiting a card PIN.
func (c *Client) SubmitPin(ctx context.Context, pin, reference string) (*Envelope, error) {
	return c.post(ctx, c.cfg.SubmitPinPath, map[string]string{
		"pin":       pin,
		"reference": reference,
	})
}

// CheckStatus polls the status of a pending charge.
func (c *Client) CheckStatus(ctx context.Context, reference string) (*Envelope, error) {
	return c.get(ctx, c.cfg.chargeStatusPath(reference))
}

// VerifyTransaction fetches the final state of a transaction.
func (c *Client) VerifyTransaction(ctx context.Context, reference string) (*Envelope, error) {
	return c.get(ctx, c.cfg.verifyPath(reference))
}

func (c *Client) post(ctx context.Context, path string, body interface{}) (*Envelope, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("gateway: encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("gateway: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req)
}

func (c *Client) get(ctx context.Context, path string) (*Envelope, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("gateway: build request: %w", err)
	}
	return c.do(req)
}

func (c *Client) do(req *http.Request) (*Envelope, error) {
	req.Header.Set("Authorization", "Bearer "+c.cfg.SecretKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gateway: %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	// Non-2xx bodies still carry the envelope; decode them the same way.
	var env Envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("gateway: decode response from %s: %w", req.URL.Path, err)
	}
	return &env, nil
}
