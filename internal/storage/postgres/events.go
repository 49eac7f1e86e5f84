package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"eventTicketing/internal/models"
	"eventTicketing/internal/storage"
)

const eventColumns = `id, organiser_id, title, location, starts_at, ends_at,
	COALESCE(event_date, ''), COALESCE(event_time, ''), timezone, capacity,
	visibility, registration_access, COALESCE(forward_email, ''), notify_organiser`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (*models.Event, error) {
	var (
		e                  models.Event
		startsAt, endsAt   sql.NullTime
		capacity           sql.NullInt64
		visibility, access string
	)

	err := row.Scan(
		&e.ID,
		&e.OrganiserID,
		&e.Title,
		&e.Location,
		&startsAt,
		&endsAt,
		&e.LegacyDate,
		&e.LegacyTime,
		&e.Timezone,
		&capacity,
		&visibility,
		&access,
		&e.ForwardEmail,
		&e.NotifyOrganiser,
	)
	if err != nil {
		return nil, err
	}

	if startsAt.Valid {
		t := startsAt.Time.UTC()
		e.StartsAt = &t
	}
	if endsAt.Valid {
		t := endsAt.Time.UTC()
		e.EndsAt = &t
	}
	if capacity.Valid {
		c := int(capacity.Int64)
		e.Capacity = &c
	}
	if e.Visibility, err = models.ParseAccessLevel(visibility); err != nil {
		return nil, err
	}
	if e.RegistrationAccess, err = models.ParseAccessLevel(access); err != nil {
		return nil, err
	}

	return &e, nil
}

func (s *Storage) GetEvent(ctx context.Context, id string) (*models.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1 AND deleted = FALSE`

	event, err := scanEvent(s.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrEventNotFound
		}
		return nil, fmt.Errorf("failed to get event: %w", err)
	}

	return event, nil
}

func (s *Storage) UpdateEventTimes(ctx context.Context, id string, startsAt, endsAt *time.Time) (*models.Event, error) {
	query := `
		UPDATE events
		SET starts_at = $2, ends_at = $3, updated_at = NOW()
		WHERE id = $1 AND deleted = FALSE
		RETURNING ` + eventColumns

	event, err := scanEvent(s.DB.QueryRowContext(ctx, query, id, startsAt, endsAt))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrEventNotFound
		}
		return nil, fmt.Errorf("failed to update event times: %w", err)
	}

	return event, nil
}

// EventsStartingBetween returns live events whose start falls in [from, to].
// Legacy events without a stored timestamp are matched on their date with a
// day of slack and filtered on the reconstructed start.
func (s *Storage) EventsStartingBetween(ctx context.Context, from, to time.Time) ([]models.Event, error) {
	query := `
		SELECT ` + eventColumns + `
		FROM events
		WHERE deleted = FALSE
		AND (
			starts_at BETWEEN $1 AND $2
			OR (starts_at IS NULL AND event_date BETWEEN $3 AND $4)
		)
		ORDER BY starts_at NULLS LAST, id`

	rows, err := s.DB.QueryContext(ctx, query,
		from, to,
		from.AddDate(0, 0, -1).Format("2006-01-02"),
		to.AddDate(0, 0, 1).Format("2006-01-02"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get upcoming events: %w", err)
	}
	defer rows.Close()

	var events []models.Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}

		start, ok := event.Start()
		if !ok || start.Before(from) || start.After(to) {
			continue
		}

		events = append(events, *event)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating events: %w", err)
	}

	return events, nil
}

func (s *Storage) OrganiserContact(ctx context.Context, eventID string) (models.OrganiserContact, error) {
	query := `
		SELECT u.id, u.email, u.name
		FROM events e
		JOIN users u ON u.id = e.organiser_id
		WHERE e.id = $1 AND e.deleted = FALSE`

	var c models.OrganiserContact
	err := s.DB.QueryRowContext(ctx, query, eventID).Scan(&c.UserID, &c.Email, &c.Name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c, storage.ErrOrganiserNotFound
		}
		return c, fmt.Errorf("failed to get organiser contact: %w", err)
	}

	return c, nil
}
