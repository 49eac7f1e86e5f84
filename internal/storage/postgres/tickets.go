package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"eventTicketing/internal/models"
	"eventTicketing/internal/storage"
)

const tierColumns = `id, event_id, name, price, currency, capacity, release_start, release_end, release_priority`

func scanTier(row rowScanner) (*models.TicketTier, error) {
	var (
		t                        models.TicketTier
		capacity                 sql.NullInt64
		releaseStart, releaseEnd sql.NullTime
	)

	err := row.Scan(
		&t.ID,
		&t.EventID,
		&t.Name,
		&t.Price,
		&t.Currency,
		&capacity,
		&releaseStart,
		&releaseEnd,
		&t.ReleasePriority,
	)
	if err != nil {
		return nil, err
	}

	if capacity.Valid {
		c := int(capacity.Int64)
		t.Capacity = &c
	}
	if releaseStart.Valid {
		rs := releaseStart.Time.UTC()
		t.ReleaseStart = &rs
	}
	if releaseEnd.Valid {
		re := releaseEnd.Time.UTC()
		t.ReleaseEnd = &re
	}

	return &t, nil
}

func (s *Storage) GetTicketTier(ctx context.Context, id string) (*models.TicketTier, error) {
	query := `SELECT ` + tierColumns + ` FROM ticket_tiers WHERE id = $1`

	tier, err := scanTier(s.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrTierNotFound
		}
		return nil, fmt.Errorf("failed to get ticket tier: %w", err)
	}

	return tier, nil
}

func (s *Storage) ListTicketTiers(ctx context.Context, eventID string) ([]models.TicketTier, error) {
	query := `
		SELECT ` + tierColumns + `
		FROM ticket_tiers
		WHERE event_id = $1
		ORDER BY release_priority, id`

	rows, err := s.DB.QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to list ticket tiers: %w", err)
	}
	defer rows.Close()

	var tiers []models.TicketTier
	for rows.Next() {
		tier, err := scanTier(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ticket tier: %w", err)
		}
		tiers = append(tiers, *tier)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ticket tiers: %w", err)
	}

	return tiers, nil
}

// SoldQuantity is the live sum of non-cancelled registrations for a tier.
func (s *Storage) SoldQuantity(ctx context.Context, tierID string) (int, error) {
	query := `
		SELECT COALESCE(SUM(quantity), 0)
		FROM registrations
		WHERE ticket_tier_id = $1 AND cancelled_at IS NULL`

	var sold int
	if err := s.DB.QueryRowContext(ctx, query, tierID).Scan(&sold); err != nil {
		return 0, fmt.Errorf("failed to get sold quantity: %w", err)
	}

	return sold, nil
}
