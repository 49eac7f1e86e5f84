// Package ledger derives live ticket availability. Remaining capacity is
// always computed from non-cancelled registrations and never stored.
package ledger

import (
	"context"
	"fmt"
	"time"

	"eventTicketing/internal/models"
)

type Store interface {
	GetTicketTier(ctx context.Context, id string) (*models.TicketTier, error)
	ListTicketTiers(ctx context.Context, eventID string) ([]models.TicketTier, error)
	SoldQuantity(ctx context.Context, tierID string) (int, error)
}

type Ledger struct {
	store Store
	now   func() time.Time
}

func New(store Store) *Ledger {
	return &Ledger{store: store, now: time.Now}
}

// Compute is the availability of a tier with sold tickets at now. The
// release window is checked before capacity, so a tier that has not opened
// yet reports upcoming even when it has no capacity left.
func Compute(tier models.TicketTier, sold int, now time.Time) models.Availability {
	a := models.Availability{
		TierID:    tier.ID,
		Name:      tier.Name,
		Price:     tier.Price,
		Currency:  tier.Currency,
		Sold:      sold,
		Remaining: -1,
		Unlimited: tier.Capacity == nil,
	}

	if tier.Capacity != nil {
		a.Remaining = max(*tier.Capacity-sold, 0)
	}

	switch {
	case tier.ReleaseStart != nil && now.Before(*tier.ReleaseStart):
		a.Status = models.TicketUpcoming
	case tier.ReleaseEnd != nil && now.After(*tier.ReleaseEnd):
		a.Status = models.TicketEnded
	case tier.Capacity != nil && a.Remaining <= 0:
		a.Status = models.TicketSoldOut
	default:
		a.Status = models.TicketAvailable
	}

	return a
}

func (l *Ledger) Availability(ctx context.Context, tierID string) (models.Availability, error) {
	const op = "ledger.Availability"

	tier, err := l.store.GetTicketTier(ctx, tierID)
	if err != nil {
		return models.Availability{}, fmt.Errorf("%s: %w", op, err)
	}

	return l.compute(ctx, *tier)
}

// EventAvailability returns every tier of the event in release order. Tiers
// are independent ledgers.
func (l *Ledger) EventAvailability(ctx context.Context, eventID string) ([]models.Availability, error) {
	const op = "ledger.EventAvailability"

	tiers, err := l.store.ListTicketTiers(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	out := make([]models.Availability, 0, len(tiers))
	for _, tier := range tiers {
		a, err := l.compute(ctx, tier)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		out = append(out, a)
	}

	return out, nil
}

func (l *Ledger) compute(ctx context.Context, tier models.TicketTier) (models.Availability, error) {
	sold, err := l.store.SoldQuantity(ctx, tier.ID)
	if err != nil {
		return models.Availability{}, err
	}
	return Compute(tier, sold, l.now()), nil
}
