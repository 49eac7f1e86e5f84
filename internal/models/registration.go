package models

import (
	"strings"
	"time"
)

type Registration struct {
	ID           string     `json:"id"`
	EventID      string     `json:"event_id"`
	TicketTierID string     `json:"ticket_tier_id,omitempty"`
	UserID       string     `json:"user_id,omitempty"`
	Email        string     `json:"email"`
	Name         string     `json:"name"`
	Quantity     int        `json:"quantity"`
	External     bool       `json:"external"`
	PaymentID    string     `json:"payment_id,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	CancelledAt  *time.Time `json:"cancelled_at,omitempty"`
}

func (r *Registration) Cancelled() bool {
	return r.CancelledAt != nil
}

// Recipient is who a registration's notifications go to.
func (r *Registration) Recipient() Recipient {
	if r.UserID != "" {
		return Recipient{UserID: r.UserID, Email: r.Email, Name: r.Name}
	}
	return Recipient{GuestEmail: r.Email, GuestName: r.Name}
}

// Identity is who is registering. Guests have no UserID.
type Identity struct {
	UserID string `json:"user_id,omitempty"`
	Email  string `json:"email" validate:"required,email"`
	Name   string `json:"name"`
}

func (i Identity) Guest() bool {
	return i.UserID == ""
}

// NormaliseEmail is the comparison form of an email address.
func NormaliseEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
