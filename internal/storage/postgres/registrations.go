package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"eventTicketing/internal/models"
	"eventTicketing/internal/storage"

	"github.com/google/uuid"
)

const registrationColumns = `r.id, r.event_id, COALESCE(r.ticket_tier_id, ''), COALESCE(r.user_id, ''),
	r.email, r.name, r.quantity, r.external, COALESCE(p.id::text, ''), r.created_at, r.cancelled_at`

const registrationFrom = ` FROM registrations r LEFT JOIN payments p ON p.registration_id = r.id `

func scanRegistration(row rowScanner) (*models.Registration, error) {
	var (
		r           models.Registration
		cancelledAt sql.NullTime
	)

	err := row.Scan(
		&r.ID,
		&r.EventID,
		&r.TicketTierID,
		&r.UserID,
		&r.Email,
		&r.Name,
		&r.Quantity,
		&r.External,
		&r.PaymentID,
		&r.CreatedAt,
		&cancelledAt,
	)
	if err != nil {
		return nil, err
	}

	if cancelledAt.Valid {
		t := cancelledAt.Time.UTC()
		r.CancelledAt = &t
	}

	return &r, nil
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func findActiveByEmail(ctx context.Context, q querier, eventID, email string) (*models.Registration, error) {
	query := `SELECT ` + registrationColumns + registrationFrom + `
		WHERE r.event_id = $1 AND lower(r.email) = lower($2) AND r.cancelled_at IS NULL`

	reg, err := scanRegistration(q.QueryRowContext(ctx, query, eventID, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrRegistrationNotFound
		}
		return nil, fmt.Errorf("failed to find registration: %w", err)
	}

	return reg, nil
}

func (s *Storage) FindActiveRegistration(ctx context.Context, eventID, email string) (*models.Registration, error) {
	return findActiveByEmail(ctx, s.DB, eventID, email)
}

// FindRegistrationBySession returns the registration a checkout session paid
// for, cancelled or not.
func (s *Storage) FindRegistrationBySession(ctx context.Context, sessionID string) (*models.Registration, error) {
	query := `SELECT ` + registrationColumns + registrationFrom + `WHERE p.session_id = $1`

	reg, err := scanRegistration(s.DB.QueryRowContext(ctx, query, sessionID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrRegistrationNotFound
		}
		return nil, fmt.Errorf("failed to find registration by session: %w", err)
	}

	return reg, nil
}

func (s *Storage) FindActiveRegistrationFor(ctx context.Context, eventID string, recipient models.Recipient) (*models.Registration, error) {
	if recipient.UserID == "" {
		return findActiveByEmail(ctx, s.DB, eventID, recipient.GuestEmail)
	}

	query := `SELECT ` + registrationColumns + registrationFrom + `
		WHERE r.event_id = $1 AND r.user_id = $2 AND r.cancelled_at IS NULL
		ORDER BY r.created_at
		LIMIT 1`

	reg, err := scanRegistration(s.DB.QueryRowContext(ctx, query, eventID, recipient.UserID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrRegistrationNotFound
		}
		return nil, fmt.Errorf("failed to find registration: %w", err)
	}

	return reg, nil
}

// CreateRegistration inserts a registration and its payment in one
// transaction. The event row lock serialises every capacity check for the
// event, so remaining capacity read under it cannot be taken by a concurrent
// insert before this one commits.
func (s *Storage) CreateRegistration(ctx context.Context, in storage.NewRegistration) (*models.Registration, error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var eventCapacity sql.NullInt64
	err = tx.QueryRowContext(ctx,
		`SELECT capacity FROM events WHERE id = $1 AND deleted = FALSE FOR UPDATE`,
		in.EventID,
	).Scan(&eventCapacity)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrEventNotFound
		}
		return nil, fmt.Errorf("failed to lock event: %w", err)
	}

	existing, err := findActiveByEmail(ctx, tx, in.EventID, in.Identity.Email)
	switch {
	case err == nil:
		return existing, storage.ErrAlreadyRegistered
	case !errors.Is(err, storage.ErrRegistrationNotFound):
		return nil, err
	}

	if eventCapacity.Valid {
		var sold int
		err = tx.QueryRowContext(ctx,
			`SELECT COALESCE(SUM(quantity), 0) FROM registrations WHERE event_id = $1 AND cancelled_at IS NULL`,
			in.EventID,
		).Scan(&sold)
		if err != nil {
			return nil, fmt.Errorf("failed to get event sold quantity: %w", err)
		}
		if sold+in.Quantity > int(eventCapacity.Int64) {
			return nil, storage.ErrSoldOut
		}
	}

	if in.TierID != "" {
		var tierCapacity sql.NullInt64
		err = tx.QueryRowContext(ctx,
			`SELECT capacity FROM ticket_tiers WHERE id = $1 AND event_id = $2`,
			in.TierID, in.EventID,
		).Scan(&tierCapacity)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, storage.ErrTierNotFound
			}
			return nil, fmt.Errorf("failed to get ticket tier: %w", err)
		}

		if tierCapacity.Valid {
			var sold int
			err = tx.QueryRowContext(ctx,
				`SELECT COALESCE(SUM(quantity), 0) FROM registrations WHERE ticket_tier_id = $1 AND cancelled_at IS NULL`,
				in.TierID,
			).Scan(&sold)
			if err != nil {
				return nil, fmt.Errorf("failed to get tier sold quantity: %w", err)
			}
			if sold+in.Quantity > int(tierCapacity.Int64) {
				return nil, storage.ErrSoldOut
			}
		}
	}

	reg := &models.Registration{
		ID:           uuid.NewString(),
		EventID:      in.EventID,
		TicketTierID: in.TierID,
		UserID:       in.Identity.UserID,
		Email:        in.Identity.Email,
		Name:         in.Identity.Name,
		Quantity:     in.Quantity,
		External:     in.External,
		CreatedAt:    time.Now().UTC(),
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO registrations (id, event_id, ticket_tier_id, user_id, email, name, quantity, external, created_at)
		VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), $5, $6, $7, $8, $9)`,
		reg.ID, reg.EventID, reg.TicketTierID, reg.UserID, reg.Email, reg.Name, reg.Quantity, reg.External, reg.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, storage.ErrAlreadyRegistered
		}
		return nil, fmt.Errorf("failed to create registration: %w", err)
	}

	if in.Payment != nil {
		reg.PaymentID = uuid.NewString()
		_, err = tx.ExecContext(ctx, `
			INSERT INTO payments (id, registration_id, session_id, payment_intent_id, amount_total, currency, status, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)`,
			reg.PaymentID, reg.ID, in.Payment.SessionID, in.Payment.PaymentIntentID,
			in.Payment.AmountTotal, in.Payment.Currency, models.PaymentSucceeded, reg.CreatedAt,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return nil, storage.ErrAlreadyRegistered
			}
			return nil, fmt.Errorf("failed to create payment: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		if isUniqueViolation(err) {
			return nil, storage.ErrAlreadyRegistered
		}
		return nil, fmt.Errorf("failed to commit registration: %w", err)
	}

	return reg, nil
}

func (s *Storage) GetRegistration(ctx context.Context, id string) (*models.Registration, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, storage.ErrRegistrationNotFound
	}

	query := `SELECT ` + registrationColumns + registrationFrom + `WHERE r.id = $1`

	reg, err := scanRegistration(s.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrRegistrationNotFound
		}
		return nil, fmt.Errorf("failed to get registration: %w", err)
	}

	return reg, nil
}

func (s *Storage) ActiveRegistrations(ctx context.Context, eventID string) ([]models.Registration, error) {
	query := `SELECT ` + registrationColumns + registrationFrom + `
		WHERE r.event_id = $1 AND r.cancelled_at IS NULL
		ORDER BY r.created_at`

	rows, err := s.DB.QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to get registrations: %w", err)
	}
	defer rows.Close()

	var regs []models.Registration
	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan registration: %w", err)
		}
		regs = append(regs, *reg)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating registrations: %w", err)
	}

	return regs, nil
}

// CancelRegistration is idempotent: cancelling a cancelled registration keeps
// the original cancellation time.
func (s *Storage) CancelRegistration(ctx context.Context, id string, at time.Time) error {
	if _, err := uuid.Parse(id); err != nil {
		return storage.ErrRegistrationNotFound
	}

	res, err := s.DB.ExecContext(ctx,
		`UPDATE registrations SET cancelled_at = COALESCE(cancelled_at, $2) WHERE id = $1`,
		id, at,
	)
	if err != nil {
		return fmt.Errorf("failed to cancel registration: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to cancel registration: %w", err)
	}
	if n == 0 {
		return storage.ErrRegistrationNotFound
	}

	return nil
}
