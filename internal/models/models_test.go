package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccessLevel_Permits(t *testing.T) {
	t.Parallel()

	assert.True(t, AccessVerifiedStudents.Permits(AccessStudentsOnly))
	assert.True(t, AccessPublic.Permits(AccessPublic))
	assert.False(t, AccessStudentsOnly.Permits(AccessUniversityExclusive))
	assert.False(t, AccessPublic.Permits(AccessStudentsOnly))
}

func TestAccessLevel_JSON(t *testing.T) {
	t.Parallel()

	b, err := json.Marshal(AccessVerifiedStudents)
	require.NoError(t, err)
	assert.Equal(t, `"verified_students"`, string(b))

	var level AccessLevel
	require.NoError(t, json.Unmarshal([]byte(`"university_exclusive"`), &level))
	assert.Equal(t, AccessUniversityExclusive, level)

	assert.Error(t, json.Unmarshal([]byte(`"staff"`), &level))
}

func TestEvent_Start(t *testing.T) {
	t.Parallel()

	stored := time.Date(2026, 3, 1, 18, 30, 0, 0, time.UTC)

	testCases := []struct {
		name   string
		event  Event
		want   time.Time
		wantOK bool
	}{
		{
			name:   "Stored timestamp",
			event:  Event{StartsAt: &stored, LegacyDate: "2020-01-01"},
			want:   stored,
			wantOK: true,
		},
		{
			name:   "Legacy date and time",
			event:  Event{LegacyDate: "2026-03-01", LegacyTime: "18:30"},
			want:   stored,
			wantOK: true,
		},
		{
			name:   "Legacy time with seconds",
			event:  Event{LegacyDate: "2026-03-01", LegacyTime: "18:30:00"},
			want:   stored,
			wantOK: true,
		},
		{
			name:   "Legacy date in a timezone",
			event:  Event{LegacyDate: "2026-07-01", LegacyTime: "19:00", Timezone: "Europe/London"},
			want:   time.Date(2026, 7, 1, 18, 0, 0, 0, time.UTC),
			wantOK: true,
		},
		{
			name:   "Legacy date only",
			event:  Event{LegacyDate: "2026-03-01"},
			want:   time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
			wantOK: true,
		},
		{
			name:  "No start at all",
			event: Event{},
		},
		{
			name:  "Garbage legacy date",
			event: Event{LegacyDate: "first of march"},
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got, ok := tc.event.Start()
			assert.Equal(t, tc.wantOK, ok)
			if tc.wantOK {
				assert.True(t, tc.want.Equal(got), "want %s got %s", tc.want, got)
			}
		})
	}
}

func TestPaymentStatus_CanTransition(t *testing.T) {
	t.Parallel()

	assert.True(t, PaymentPending.CanTransition(PaymentSucceeded))
	assert.True(t, PaymentSucceeded.CanTransition(PaymentPartiallyRefunded))
	assert.True(t, PaymentSucceeded.CanTransition(PaymentRefunded))
	assert.True(t, PaymentPartiallyRefunded.CanTransition(PaymentPartiallyRefunded))
	assert.True(t, PaymentPartiallyRefunded.CanTransition(PaymentRefunded))

	assert.False(t, PaymentRefunded.CanTransition(PaymentSucceeded))
	assert.False(t, PaymentRefunded.CanTransition(PaymentPartiallyRefunded))
	assert.False(t, PaymentPartiallyRefunded.CanTransition(PaymentSucceeded))
	assert.False(t, PaymentFailed.CanTransition(PaymentSucceeded))
	assert.False(t, PaymentSucceeded.CanTransition(PaymentPending))
}

func TestStatusAfterRefund(t *testing.T) {
	t.Parallel()

	assert.Equal(t, PaymentPartiallyRefunded, StatusAfterRefund(1000, 500))
	assert.Equal(t, PaymentRefunded, StatusAfterRefund(1000, 1000))
}

func TestRecipient_Key(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "user:u1", Recipient{UserID: "u1", GuestEmail: "x@y.z"}.Key())
	assert.Equal(t, "guest:ann@example.com", Recipient{GuestEmail: " Ann@Example.com "}.Key())
	assert.Equal(t, "", Recipient{GuestName: "Ann"}.Key())
}

func TestJob_Validate(t *testing.T) {
	t.Parallel()

	fireAt := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)

	job := Job{Type: JobAttendeeReminder, EventID: "e1", Recipient: Recipient{UserID: "u1"}, FireAt: fireAt}
	require.NoError(t, job.Validate())
	assert.Equal(t, JobID(JobAttendeeReminder, "e1", Recipient{UserID: "u1"}), job.ID)

	again := Job{Type: JobAttendeeReminder, EventID: "e1", Recipient: Recipient{UserID: "u1"}, FireAt: fireAt.Add(time.Hour)}
	require.NoError(t, again.Validate())
	assert.Equal(t, job.ID, again.ID, "fire time must not change the job id")
	assert.NotEqual(t, job.Version(), again.Version())

	other := Job{Type: JobOrganiserSummary, EventID: "e1", Recipient: Recipient{UserID: "u1"}}
	require.NoError(t, other.Validate())
	assert.NotEqual(t, job.ID, other.ID)

	noRecipient := Job{Type: JobAttendeeReminder, EventID: "e1"}
	assert.ErrorIs(t, noRecipient.Validate(), ErrJobNoRecipient)

	badType := Job{Type: "sms", EventID: "e1", Recipient: Recipient{UserID: "u1"}}
	assert.ErrorIs(t, badType.Validate(), ErrJobInvalidType)

	noEvent := Job{Type: JobAttendeeReminder, Recipient: Recipient{UserID: "u1"}}
	assert.ErrorIs(t, noEvent.Validate(), ErrJobNoEvent)
}
