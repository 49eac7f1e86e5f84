// Package provider is a client for the payment provider's REST API.
package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"eventTicketing/internal/config"
	"eventTicketing/internal/lib/retry"
)

// Error codes the provider returns for refunds.
const (
	CodeChargeAlreadyRefunded = "charge_already_refunded"
	CodeAmountTooLarge        = "amount_too_large"
)

// Error is a non-2xx reply from the provider.
type Error struct {
	StatusCode int    `json:"-"`
	Type       string `json:"type"`
	Code       string `json:"code"`
	Message    string `json:"message"`
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("provider: %d %s: %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("provider: %d: %s", e.StatusCode, e.Message)
}

// Temporary reports whether the request may succeed if repeated.
func (e *Error) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= http.StatusInternalServerError
}

// HasCode reports whether err is a provider error with the given code.
func HasCode(err error, code string) bool {
	var perr *Error
	return errors.As(err, &perr) && perr.Code == code
}

type CustomerDetails struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

type CheckoutSession struct {
	ID              string            `json:"id"`
	Status          string            `json:"status"`
	PaymentStatus   string            `json:"payment_status"`
	PaymentIntent   string            `json:"payment_intent"`
	AmountTotal     int64             `json:"amount_total"`
	Currency        string            `json:"currency"`
	CustomerEmail   string            `json:"customer_email"`
	CustomerDetails *CustomerDetails  `json:"customer_details"`
	Metadata        map[string]string `json:"metadata"`
}

// Paid reports whether the session's money has been collected, or none
// was due.
func (s *CheckoutSession) Paid() bool {
	return s.PaymentStatus == "paid" || s.PaymentStatus == "no_payment_required"
}

type RefundParams struct {
	PaymentIntent  string
	Amount         int64
	Reason         string
	IdempotencyKey string
	Metadata       map[string]string
}

type Refund struct {
	ID            string `json:"id"`
	Amount        int64  `json:"amount"`
	Currency      string `json:"currency"`
	Status        string `json:"status"`
	PaymentIntent string `json:"payment_intent"`
}

type Client struct {
	hc      *http.Client
	baseURL string
	apiKey  string
	policy  retry.Policy
}

// DefaultTimeout is used when the configured request timeout is zero.
const DefaultTimeout = 10 * time.Second

func New(cfg config.Payment, policy retry.Policy) *Client {
	timeout := cfg.RequestTimeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	return &Client{
		hc:      &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		policy:  policy,
	}
}

// refundReasons are the reasons the provider accepts. Anything else is sent
// in the refund metadata instead.
var refundReasons = map[string]bool{
	"duplicate":             true,
	"fraudulent":            true,
	"requested_by_customer": true,
}

// CreateRefund refunds part or all of a payment. The idempotency key makes
// repeated calls with the same key return the original refund.
func (c *Client) CreateRefund(ctx context.Context, p RefundParams) (*Refund, error) {
	const op = "provider.Client.CreateRefund"

	form := url.Values{}
	form.Set("payment_intent", p.PaymentIntent)
	form.Set("amount", strconv.FormatInt(p.Amount, 10))
	if p.Reason != "" {
		if refundReasons[p.Reason] {
			form.Set("reason", p.Reason)
		} else {
			form.Set("metadata[reason]", p.Reason)
		}
	}
	for k, v := range p.Metadata {
		form.Set("metadata["+k+"]", v)
	}

	var refund Refund
	err := c.do(ctx, http.MethodPost, "/v1/refunds", form, p.IdempotencyKey, &refund)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &refund, nil
}

func (c *Client) GetCheckoutSession(ctx context.Context, id string) (*CheckoutSession, error) {
	const op = "provider.Client.GetCheckoutSession"

	var session CheckoutSession
	err := c.do(ctx, http.MethodGet, "/v1/checkout/sessions/"+url.PathEscape(id), nil, "", &session)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &session, nil
}

func (c *Client) do(ctx context.Context, method, path string, form url.Values, idempotencyKey string, out any) error {
	return retry.Do(ctx, c.policy, func(ctx context.Context) error {
		err := c.send(ctx, method, path, form, idempotencyKey, out)

		var perr *Error
		if errors.As(err, &perr) && !perr.Temporary() {
			return retry.Permanent(err)
		}
		return err
	})
}

func (c *Client) send(ctx context.Context, method, path string, form url.Values, idempotencyKey string, out any) error {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}

func decodeError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	var envelope struct {
		Error *Error `json:"error"`
	}
	if err := json.Unmarshal(raw, &envelope); err == nil && envelope.Error != nil {
		envelope.Error.StatusCode = resp.StatusCode
		return envelope.Error
	}

	return &Error{
		StatusCode: resp.StatusCode,
		Message:    strings.TrimSpace(string(raw)),
	}
}
