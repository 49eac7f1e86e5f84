package storage

import (
	"errors"

	"eventTicketing/internal/models"
)

var (
	ErrEventNotFound        = errors.New("event not found")
	ErrTierNotFound         = errors.New("ticket tier not found")
	ErrRegistrationNotFound = errors.New("registration not found")
	ErrPaymentNotFound      = errors.New("payment not found")
	ErrOrganiserNotFound    = errors.New("organiser not found")
	ErrAlreadyRegistered    = errors.New("already registered for this event")
	ErrSoldOut              = errors.New("no tickets remaining")
	ErrRefundExceedsPayment = errors.New("refund exceeds the remaining payment amount")
	ErrPaymentNotRefundable = errors.New("payment is not in a refundable status")
)

// NewRegistration is the input of an atomic capacity-checked insert.
type NewRegistration struct {
	EventID  string
	TierID   string
	Identity models.Identity
	Quantity int
	External bool
	Payment  *NewPayment
}

// NewPayment links a confirmed provider payment to the registration it paid for.
type NewPayment struct {
	SessionID       string
	PaymentIntentID string
	AmountTotal     int64
	Currency        string
}
