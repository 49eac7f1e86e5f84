package models

import "time"

type PaymentStatus string

const (
	PaymentPending           PaymentStatus = "pending"
	PaymentSucceeded         PaymentStatus = "succeeded"
	PaymentFailed            PaymentStatus = "failed"
	PaymentPartiallyRefunded PaymentStatus = "partially_refunded"
	PaymentRefunded          PaymentStatus = "refunded"
)

var paymentRank = map[PaymentStatus]int{
	PaymentPending:           0,
	PaymentFailed:            1,
	PaymentSucceeded:         1,
	PaymentPartiallyRefunded: 2,
	PaymentRefunded:          3,
}

// CanTransition reports whether a payment may move from one status to the
// other. Statuses only move forward; failed is terminal.
func (s PaymentStatus) CanTransition(to PaymentStatus) bool {
	if s == to {
		return s == PaymentPartiallyRefunded
	}
	if s == PaymentFailed || s == PaymentRefunded {
		return false
	}
	if s == PaymentPending {
		return to == PaymentSucceeded || to == PaymentFailed
	}
	if to == PaymentFailed || to == PaymentPending {
		return false
	}
	return paymentRank[to] > paymentRank[s]
}

// Refundable reports whether money can still be returned in this status.
func (s PaymentStatus) Refundable() bool {
	return s == PaymentSucceeded || s == PaymentPartiallyRefunded
}

type Payment struct {
	ID              string        `json:"id"`
	RegistrationID  string        `json:"registration_id"`
	SessionID       string        `json:"session_id"`
	PaymentIntentID string        `json:"payment_intent_id"`
	AmountTotal     int64         `json:"amount_total"`
	Currency        string        `json:"currency"`
	Status          PaymentStatus `json:"status"`
	RefundedAmount  int64         `json:"refunded_amount"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

// Remaining is what is left to refund.
func (p *Payment) Remaining() int64 {
	return p.AmountTotal - p.RefundedAmount
}

// StatusAfterRefund is the status once refunded reaches the given total.
func StatusAfterRefund(amountTotal, refunded int64) PaymentStatus {
	if refunded >= amountTotal {
		return PaymentRefunded
	}
	return PaymentPartiallyRefunded
}
