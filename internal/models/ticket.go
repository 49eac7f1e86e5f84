package models

import "time"

type TicketTier struct {
	ID              string     `json:"id"`
	EventID         string     `json:"event_id"`
	Name            string     `json:"name"`
	Price           int64      `json:"price"`
	Currency        string     `json:"currency"`
	Capacity        *int       `json:"capacity,omitempty"`
	ReleaseStart    *time.Time `json:"release_start,omitempty"`
	ReleaseEnd      *time.Time `json:"release_end,omitempty"`
	ReleasePriority int        `json:"release_priority"`
}

type TicketStatus string

const (
	TicketAvailable TicketStatus = "available"
	TicketSoldOut   TicketStatus = "sold_out"
	TicketUpcoming  TicketStatus = "upcoming"
	TicketEnded     TicketStatus = "ended"
)

// Availability is the live ledger view of one tier. Remaining is -1 when
// the tier has no capacity limit.
type Availability struct {
	TierID    string       `json:"tier_id"`
	Name      string       `json:"name"`
	Price     int64        `json:"price"`
	Currency  string       `json:"currency"`
	Sold      int          `json:"sold"`
	Remaining int          `json:"remaining"`
	Unlimited bool         `json:"unlimited"`
	Status    TicketStatus `json:"status"`
}
