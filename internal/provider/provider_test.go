package provider

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"eventTicketing/internal/config"
	"eventTicketing/internal/lib/retry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(srv *httptest.Server) *Client {
	return New(
		config.Payment{BaseURL: srv.URL, APIKey: "sk_test_123"},
		retry.Policy{Attempts: 3, Delay: time.Millisecond},
	)
}

func TestCreateRefund(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/refunds", r.URL.Path)
		assert.Equal(t, "Bearer sk_test_123", r.Header.Get("Authorization"))
		assert.Equal(t, "refund:pay-1:0:500", r.Header.Get("Idempotency-Key"))

		require.NoError(t, r.ParseForm())
		assert.Equal(t, "pi_123", r.PostForm.Get("payment_intent"))
		assert.Equal(t, "500", r.PostForm.Get("amount"))
		assert.Equal(t, "requested_by_customer", r.PostForm.Get("reason"))
		assert.Equal(t, "reg-1", r.PostForm.Get("metadata[registration_id]"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"re_1","amount":500,"currency":"gbp","status":"succeeded","payment_intent":"pi_123"}`))
	}))
	defer srv.Close()

	refund, err := newTestClient(srv).CreateRefund(context.Background(), RefundParams{
		PaymentIntent:  "pi_123",
		Amount:         500,
		Reason:         "requested_by_customer",
		IdempotencyKey: "refund:pay-1:0:500",
		Metadata:       map[string]string{"registration_id": "reg-1"},
	})
	require.NoError(t, err)
	assert.Equal(t, "re_1", refund.ID)
	assert.Equal(t, int64(500), refund.Amount)
}

func TestCreateRefund_FreeTextReasonGoesToMetadata(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Empty(t, r.PostForm.Get("reason"))
		assert.Equal(t, "event cancelled", r.PostForm.Get("metadata[reason]"))
		_, _ = w.Write([]byte(`{"id":"re_1","amount":100}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv).CreateRefund(context.Background(), RefundParams{
		PaymentIntent: "pi_123", Amount: 100, Reason: "event cancelled",
	})
	require.NoError(t, err)
}

func TestCreateRefund_Errors(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name      string
		status    int
		body      string
		wantCalls int32
		wantCode  string
	}{
		{
			name:      "already refunded is not retried",
			status:    http.StatusBadRequest,
			body:      `{"error":{"type":"invalid_request_error","code":"charge_already_refunded","message":"Charge has already been refunded."}}`,
			wantCalls: 1,
			wantCode:  CodeChargeAlreadyRefunded,
		},
		{
			name:      "amount too large is not retried",
			status:    http.StatusBadRequest,
			body:      `{"error":{"type":"invalid_request_error","code":"amount_too_large","message":"Refund amount is greater than unrefunded amount."}}`,
			wantCalls: 1,
			wantCode:  CodeAmountTooLarge,
		},
		{
			name:      "server errors are retried",
			status:    http.StatusBadGateway,
			body:      `bad gateway`,
			wantCalls: 3,
		},
		{
			name:      "rate limits are retried",
			status:    http.StatusTooManyRequests,
			body:      `{"error":{"type":"rate_limit_error","message":"slow down"}}`,
			wantCalls: 3,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			_, err := newTestClient(srv).CreateRefund(context.Background(), RefundParams{PaymentIntent: "pi_1", Amount: 100})
			require.Error(t, err)
			assert.Equal(t, tc.wantCalls, calls.Load())

			var perr *Error
			require.True(t, errors.As(err, &perr))
			assert.Equal(t, tc.status, perr.StatusCode)
			if tc.wantCode != "" {
				assert.True(t, HasCode(err, tc.wantCode))
			}
		})
	}
}

func TestGetCheckoutSession(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/v1/checkout/sessions/cs_test_1", r.URL.Path)
		_, _ = w.Write([]byte(`{
			"id": "cs_test_1",
			"payment_status": "paid",
			"payment_intent": "pi_1",
			"amount_total": 1500,
			"currency": "gbp",
			"customer_details": {"email": "ann@example.com", "name": "Ann"},
			"metadata": {"userId": "u-1", "eventId": "ev-1"}
		}`))
	}))
	defer srv.Close()

	session, err := newTestClient(srv).GetCheckoutSession(context.Background(), "cs_test_1")
	require.NoError(t, err)
	assert.True(t, session.Paid())
	assert.Equal(t, int64(1500), session.AmountTotal)
	assert.Equal(t, "ann@example.com", session.CustomerDetails.Email)
	assert.Equal(t, "ev-1", session.Metadata["eventId"])
	assert.Equal(t, int32(2), calls.Load())
}
