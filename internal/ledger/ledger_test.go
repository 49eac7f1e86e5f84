package ledger

import (
	"context"
	"testing"
	"time"

	"eventTicketing/internal/models"
	"eventTicketing/internal/storage"
	"eventTicketing/internal/storage/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(n int) *int { return &n }
func timePtr(t time.Time) *time.Time { return &t }

func TestCompute(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

	cases := []struct {
		name          string
		tier          models.TicketTier
		sold          int
		wantStatus    models.TicketStatus
		wantRemaining int
	}{
		{
			name:          "available",
			tier:          models.TicketTier{Capacity: intPtr(10)},
			sold:          4,
			wantStatus:    models.TicketAvailable,
			wantRemaining: 6,
		},
		{
			name:          "sold out",
			tier:          models.TicketTier{Capacity: intPtr(3)},
			sold:          3,
			wantStatus:    models.TicketSoldOut,
			wantRemaining: 0,
		},
		{
			name:          "oversold never goes negative",
			tier:          models.TicketTier{Capacity: intPtr(3)},
			sold:          5,
			wantStatus:    models.TicketSoldOut,
			wantRemaining: 0,
		},
		{
			name:          "unlimited never sells out",
			tier:          models.TicketTier{},
			sold:          100000,
			wantStatus:    models.TicketAvailable,
			wantRemaining: -1,
		},
		{
			name:          "before release window",
			tier:          models.TicketTier{Capacity: intPtr(0), ReleaseStart: timePtr(now.Add(time.Hour))},
			wantStatus:    models.TicketUpcoming,
			wantRemaining: 0,
		},
		{
			name:          "after release window",
			tier:          models.TicketTier{Capacity: intPtr(10), ReleaseEnd: timePtr(now.Add(-time.Hour))},
			wantStatus:    models.TicketEnded,
			wantRemaining: 10,
		},
		{
			name: "inside release window",
			tier: models.TicketTier{
				Capacity:     intPtr(10),
				ReleaseStart: timePtr(now.Add(-time.Hour)),
				ReleaseEnd:   timePtr(now.Add(time.Hour)),
			},
			sold:          1,
			wantStatus:    models.TicketAvailable,
			wantRemaining: 9,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got := Compute(tc.tier, tc.sold, now)
			assert.Equal(t, tc.wantStatus, got.Status)
			assert.Equal(t, tc.wantRemaining, got.Remaining)
			assert.Equal(t, tc.tier.Capacity == nil, got.Unlimited)
		})
	}
}

func TestEventAvailability_TiersAreIndependent(t *testing.T) {
	t.Parallel()

	store := memory.New()
	store.AddEvent(models.Event{ID: "ev-1"})
	store.AddTier(models.TicketTier{ID: "early", EventID: "ev-1", Capacity: intPtr(1), ReleasePriority: 1})
	store.AddTier(models.TicketTier{ID: "general", EventID: "ev-1", Capacity: intPtr(5), ReleasePriority: 2})

	ctx := context.Background()
	_, err := store.CreateRegistration(ctx, storage.NewRegistration{
		EventID: "ev-1", TierID: "early", Quantity: 1,
		Identity: models.Identity{Email: "a@example.com"},
	})
	require.NoError(t, err)

	got, err := New(store).EventAvailability(ctx, "ev-1")
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "early", got[0].TierID)
	assert.Equal(t, models.TicketSoldOut, got[0].Status)
	assert.Equal(t, "general", got[1].TierID)
	assert.Equal(t, models.TicketAvailable, got[1].Status)
	assert.Equal(t, 5, got[1].Remaining)
}

func TestAvailability_UnknownTier(t *testing.T) {
	t.Parallel()

	_, err := New(memory.New()).Availability(context.Background(), "nope")
	require.ErrorIs(t, err, storage.ErrTierNotFound)
}
