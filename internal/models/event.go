package models

import (
	"time"
)

const (
	legacyDateLayout = "2006-01-02"
	legacyTimeLayout = "15:04"
)

type Event struct {
	ID                 string      `json:"id"`
	OrganiserID        string      `json:"organiser_id"`
	Title              string      `json:"title"`
	Location           string      `json:"location"`
	StartsAt           *time.Time  `json:"starts_at,omitempty"`
	EndsAt             *time.Time  `json:"ends_at,omitempty"`
	LegacyDate         string      `json:"-"`
	LegacyTime         string      `json:"-"`
	Timezone           string      `json:"timezone,omitempty"`
	Capacity           *int        `json:"capacity,omitempty"`
	Visibility         AccessLevel `json:"visibility"`
	RegistrationAccess AccessLevel `json:"registration_access"`
	ForwardEmail       string      `json:"forward_email,omitempty"`
	NotifyOrganiser    bool        `json:"notify_organiser"`
	Deleted            bool        `json:"-"`
}

// Start returns the event start. Events created before start timestamps were
// stored keep a separate date and time, which are combined in the event's
// timezone. A date without a time starts at midnight.
func (e *Event) Start() (time.Time, bool) {
	if e.StartsAt != nil {
		return e.StartsAt.UTC(), true
	}
	if e.LegacyDate == "" {
		return time.Time{}, false
	}

	loc := time.UTC
	if e.Timezone != "" {
		if l, err := time.LoadLocation(e.Timezone); err == nil {
			loc = l
		}
	}

	layout, value := legacyDateLayout, e.LegacyDate
	if e.LegacyTime != "" {
		layout += " " + legacyTimeLayout
		value += " " + normaliseLegacyTime(e.LegacyTime)
	}

	t, err := time.ParseInLocation(layout, value, loc)
	if err != nil {
		return time.Time{}, false
	}

	return t.UTC(), true
}

// normaliseLegacyTime trims seconds from "HH:MM:SS" values.
func normaliseLegacyTime(s string) string {
	if len(s) > 5 && s[2] == ':' && s[5] == ':' {
		return s[:5]
	}
	return s
}

// OrganiserContact is who receives organiser notifications for an event.
type OrganiserContact struct {
	UserID string
	Email  string
	Name   string
}
