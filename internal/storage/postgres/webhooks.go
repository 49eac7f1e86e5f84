package postgres

import (
	"context"
	"fmt"
)

func (s *Storage) WebhookProcessed(ctx context.Context, eventID string) (bool, error) {
	var processed bool
	err := s.DB.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM webhook_events WHERE id = $1)`, eventID,
	).Scan(&processed)
	if err != nil {
		return false, fmt.Errorf("failed to check webhook event: %w", err)
	}

	return processed, nil
}

func (s *Storage) MarkWebhookProcessed(ctx context.Context, eventID, eventType string) error {
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO webhook_events (id, type) VALUES ($1, $2) ON CONFLICT (id) DO NOTHING`,
		eventID, eventType,
	)
	if err != nil {
		return fmt.Errorf("failed to mark webhook event: %w", err)
	}

	return nil
}
