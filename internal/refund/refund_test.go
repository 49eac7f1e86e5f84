package refund

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"eventTicketing/internal/lib/logger/handlers/slogdiscard"
	"eventTicketing/internal/lib/retry"
	"eventTicketing/internal/models"
	"eventTicketing/internal/notify"
	"eventTicketing/internal/provider"
	"eventTicketing/internal/storage"
	"eventTicketing/internal/storage/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	mu     sync.Mutex
	params []provider.RefundParams
	err    error
}

func (p *fakeProvider) CreateRefund(_ context.Context, params provider.RefundParams) (*provider.Refund, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return nil, p.err
	}
	p.params = append(p.params, params)
	return &provider.Refund{ID: fmt.Sprintf("re_%d", len(p.params)), Amount: params.Amount}, nil
}

type fakeSender struct {
	mu   sync.Mutex
	sent []notify.Message
	err  error
}

func (s *fakeSender) Send(_ context.Context, msg notify.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, msg)
	return nil
}

type fakeReminders struct {
	cancelled []string
}

func (r *fakeReminders) CancelReminders(_ context.Context, eventID string, recipient models.Recipient) error {
	r.cancelled = append(r.cancelled, eventID+"/"+recipient.Key())
	return nil
}

type fixture struct {
	proc      *Processor
	store     *memory.Storage
	provider  *fakeProvider
	sender    *fakeSender
	reminders *fakeReminders
	reg       *models.Registration
}

func newFixture(t *testing.T, amountTotal int64) *fixture {
	t.Helper()

	store := memory.New()
	start := time.Now().Add(7 * 24 * time.Hour)
	store.AddEvent(models.Event{ID: "ev-1", OrganiserID: "org-1", Title: "Gala", StartsAt: &start})

	reg, err := store.CreateRegistration(context.Background(), storage.NewRegistration{
		EventID:  "ev-1",
		Identity: models.Identity{UserID: "u-1", Email: "ann@example.com", Name: "Ann"},
		Quantity: 1,
		Payment:  &storage.NewPayment{SessionID: "cs_1", PaymentIntentID: "pi_1", AmountTotal: amountTotal, Currency: "gbp"},
	})
	require.NoError(t, err)

	f := &fixture{
		store:     store,
		provider:  &fakeProvider{},
		sender:    &fakeSender{},
		reminders: &fakeReminders{},
		reg:       reg,
	}
	f.proc = New(slogdiscard.NewDiscardLogger(), store, f.provider, f.reminders, f.sender, notify.NewRenderer(),
		retry.Policy{Attempts: 2, Delay: time.Millisecond})

	return f
}

func amount(n int64) *int64 { return &n }

func TestRefund_TwoHalves(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 1000)
	ctx := context.Background()

	out, err := f.proc.Refund(ctx, Request{EventID: "ev-1", RegistrationID: f.reg.ID, Amount: amount(500)})
	require.NoError(t, err)
	assert.False(t, out.Full)
	assert.False(t, out.RegistrationCancelled)
	assert.Equal(t, models.PaymentPartiallyRefunded, out.Payment.Status)

	reg, err := f.store.GetRegistration(ctx, f.reg.ID)
	require.NoError(t, err)
	assert.False(t, reg.Cancelled())

	out, err = f.proc.Refund(ctx, Request{EventID: "ev-1", RegistrationID: f.reg.ID, Amount: amount(500)})
	require.NoError(t, err)
	assert.True(t, out.Full)
	assert.True(t, out.RegistrationCancelled)
	assert.Equal(t, models.PaymentRefunded, out.Payment.Status)
	assert.Equal(t, out.Payment.AmountTotal, out.Payment.RefundedAmount)

	reg, err = f.store.GetRegistration(ctx, f.reg.ID)
	require.NoError(t, err)
	assert.True(t, reg.Cancelled())

	assert.Equal(t, []string{"ev-1/user:u-1"}, f.reminders.cancelled)
	assert.Len(t, f.sender.sent, 2)

	require.Len(t, f.provider.params, 2)
	assert.Equal(t, IdempotencyKey(f.reg.PaymentID, 0, 500), f.provider.params[0].IdempotencyKey)
	assert.Equal(t, IdempotencyKey(f.reg.PaymentID, 500, 500), f.provider.params[1].IdempotencyKey)

	_, err = f.proc.Refund(ctx, Request{EventID: "ev-1", RegistrationID: f.reg.ID})
	require.ErrorIs(t, err, ErrAlreadyRefunded)
}

func TestRefund_Monotonic(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 1000)
	ctx := context.Background()

	var refunded int64
	status := models.PaymentSucceeded
	for _, a := range []int64{300, 300, 300, 300, 300} {
		out, err := f.proc.Refund(ctx, Request{EventID: "ev-1", RegistrationID: f.reg.ID, Amount: amount(a)})
		if errors.Is(err, ErrAlreadyRefunded) {
			break
		}
		require.NoError(t, err)

		assert.GreaterOrEqual(t, out.Payment.RefundedAmount, refunded)
		assert.LessOrEqual(t, out.Payment.RefundedAmount, out.Payment.AmountTotal)
		assert.True(t, status == out.Payment.Status || status.CanTransition(out.Payment.Status),
			"%s -> %s", status, out.Payment.Status)

		refunded, status = out.Payment.RefundedAmount, out.Payment.Status
	}

	assert.Equal(t, int64(1000), refunded)
	assert.Equal(t, models.PaymentRefunded, status)
	// The last request was capped at the 100 that remained.
	assert.Equal(t, int64(100), f.provider.params[len(f.provider.params)-1].Amount)
}

func TestRefund_Rejections(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name        string
		req         func(f *fixture) Request
		providerErr error
		wantErr     error
	}{
		{
			name:    "zero amount",
			req:     func(f *fixture) Request { return Request{EventID: "ev-1", RegistrationID: f.reg.ID, Amount: amount(0)} },
			wantErr: ErrInvalidAmount,
		},
		{
			name:    "negative amount",
			req:     func(f *fixture) Request { return Request{EventID: "ev-1", RegistrationID: f.reg.ID, Amount: amount(-5)} },
			wantErr: ErrInvalidAmount,
		},
		{
			name:    "registration of another event",
			req:     func(f *fixture) Request { return Request{EventID: "ev-2", RegistrationID: f.reg.ID} },
			wantErr: storage.ErrRegistrationNotFound,
		},
		{
			name: "provider says already refunded",
			req:  func(f *fixture) Request { return Request{EventID: "ev-1", RegistrationID: f.reg.ID} },
			providerErr: &provider.Error{
				StatusCode: http.StatusBadRequest,
				Code:       provider.CodeChargeAlreadyRefunded,
			},
			wantErr: ErrAlreadyRefunded,
		},
		{
			name: "provider says amount too large",
			req:  func(f *fixture) Request { return Request{EventID: "ev-1", RegistrationID: f.reg.ID} },
			providerErr: &provider.Error{
				StatusCode: http.StatusBadRequest,
				Code:       provider.CodeAmountTooLarge,
			},
			wantErr: ErrAmountExceedsRemaining,
		},
		{
			name:        "provider outage",
			req:         func(f *fixture) Request { return Request{EventID: "ev-1", RegistrationID: f.reg.ID} },
			providerErr: &provider.Error{StatusCode: http.StatusBadGateway, Message: "bad gateway"},
			wantErr:     ErrProvider,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			f := newFixture(t, 1000)
			f.provider.err = tc.providerErr

			_, err := f.proc.Refund(context.Background(), tc.req(f))
			require.ErrorIs(t, err, tc.wantErr)

			p, err := f.store.GetPaymentByRegistration(context.Background(), f.reg.ID)
			require.NoError(t, err)
			assert.Equal(t, int64(0), p.RefundedAmount)
			assert.Equal(t, models.PaymentSucceeded, p.Status)
		})
	}
}

func TestRefund_NotificationFailureIsAWarning(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 1000)
	f.sender.err = errors.New("smtp down")

	out, err := f.proc.Refund(context.Background(), Request{EventID: "ev-1", RegistrationID: f.reg.ID})
	require.NoError(t, err)
	assert.True(t, out.Full)
	assert.True(t, out.RegistrationCancelled)
	require.Len(t, out.Warnings, 1)
	assert.Contains(t, out.Warnings[0], "failed to notify payer")
}

func TestFinalAmount(t *testing.T) {
	t.Parallel()

	p := &models.Payment{AmountTotal: 1000, RefundedAmount: 400}

	got, err := FinalAmount(nil, p)
	require.NoError(t, err)
	assert.Equal(t, int64(600), got)

	got, err = FinalAmount(amount(250), p)
	require.NoError(t, err)
	assert.Equal(t, int64(250), got)

	got, err = FinalAmount(amount(5000), p)
	require.NoError(t, err)
	assert.Equal(t, int64(600), got)

	_, err = FinalAmount(amount(0), p)
	require.ErrorIs(t, err, ErrInvalidAmount)

	_, err = FinalAmount(nil, &models.Payment{AmountTotal: 1000, RefundedAmount: 1000})
	require.ErrorIs(t, err, ErrAlreadyRefunded)
}
