package models

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

type JobType string

const (
	JobAttendeeReminder JobType = "attendee_reminder"
	JobOrganiserSummary JobType = "organiser_summary"
	JobExternalForward  JobType = "external_forward"
)

func (t JobType) Valid() bool {
	switch t {
	case JobAttendeeReminder, JobOrganiserSummary, JobExternalForward:
		return true
	}
	return false
}

var (
	ErrJobNoRecipient = errors.New("job has neither a user nor a guest recipient")
	ErrJobInvalidType = errors.New("job type is not valid")
	ErrJobNoEvent     = errors.New("job has no event")
)

// jobNamespace scopes job ids so they never collide with other UUIDv5 users.
var jobNamespace = uuid.MustParse("0b6f3c1e-5d4a-4f0e-9a51-7c2e8d9b1f20")

// Recipient is either a user or a guest identified by email.
type Recipient struct {
	UserID     string `json:"user_id,omitempty"`
	GuestEmail string `json:"guest_email,omitempty"`
	GuestName  string `json:"guest_name,omitempty"`

	// Email and Name carry a user's contact details when known. They are not
	// part of the recipient's identity.
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
}

// Key is the stable identity of the recipient: "user:<id>" or
// "guest:<email>". Empty when the recipient is not set.
func (r Recipient) Key() string {
	switch {
	case r.UserID != "":
		return "user:" + r.UserID
	case strings.TrimSpace(r.GuestEmail) != "":
		return "guest:" + NormaliseEmail(r.GuestEmail)
	}
	return ""
}

// Address is where to send mail for this recipient.
func (r Recipient) Address() string {
	if r.UserID != "" {
		return r.Email
	}
	return r.GuestEmail
}

func (r Recipient) DisplayName() string {
	if r.UserID != "" {
		return r.Name
	}
	return r.GuestName
}

type Job struct {
	ID        string    `json:"id"`
	Type      JobType   `json:"type"`
	EventID   string    `json:"event_id"`
	Recipient Recipient `json:"recipient"`
	FireAt    time.Time `json:"fire_at"`
	Attempts  int       `json:"attempts"`
	LastError string    `json:"last_error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// JobID derives the deterministic id of the (type, event, recipient) tuple.
func JobID(t JobType, eventID string, r Recipient) string {
	return uuid.NewSHA1(jobNamespace, []byte(string(t)+"|"+eventID+"|"+r.Key())).String()
}

// Validate rejects jobs that can never be delivered and fills in the id.
func (j *Job) Validate() error {
	if !j.Type.Valid() {
		return ErrJobInvalidType
	}
	if j.EventID == "" {
		return ErrJobNoEvent
	}
	if j.Recipient.Key() == "" {
		return ErrJobNoRecipient
	}
	j.ID = JobID(j.Type, j.EventID, j.Recipient)
	return nil
}

// Version identifies one scheduled delivery of a job. FireAt is the nominal
// fire time derived from the event start, so re-scheduling an unchanged event
// yields the same delivery.
func (j *Job) Version() string {
	return j.FireAt.UTC().Format(time.RFC3339)
}
