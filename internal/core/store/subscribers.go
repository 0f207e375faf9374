package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ecomtrend/ecomtrend/internal/core"
)

// UpsertSubscriber records a newsletter signup. Re-subscribing an address
// reactivates it and keeps the original signup time.
func (s *Store) UpsertSubscriber(ctx context.Context, email string, subscribedAt time.Time) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return errors.New("subscriber email is required")
	}

	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO subscribers (email, subscribed_at, active)
		VALUES (?, ?, 1)
		ON CONFLICT(email) DO UPDATE SET active = 1
	`, email, subscribedAt.UTC().Unix())
	if err != nil {
		return fmt.Errorf("store subscriber: %w", err)
	}

	return nil
}

// ConfirmSubscriber marks a double-opt-in confirmation.
func (s *Store) ConfirmSubscriber(ctx context.Context, email string, confirmedAt time.Time) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	result, err := s.DB.ExecContext(ctx, `
		UPDATE subscribers SET confirmed_at = ?
		WHERE email = ? AND confirmed_at IS NULL
	`, confirmedAt.UTC().Unix(), strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return fmt.Errorf("confirm subscriber: %w", err)
	}

	affected, err := result.RowsAffected()
	if err == nil && affected == 0 {
		return fmt.Errorf("subscriber not found or already confirmed: %s", email)
	}

	return nil
}

// Unsubscribe deactivates an address. The row stays so the signup history
// survives a later re-subscribe.
func (s *Store) Unsubscribe(ctx context.Context, email string) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	_, err := s.DB.ExecContext(ctx, `
		UPDATE subscribers SET active = 0 WHERE email = ?
	`, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return fmt.Errorf("unsubscribe: %w", err)
	}

	return nil
}

// ListActiveSubscribers returns active signups ordered by email.
func (s *Store) ListActiveSubscribers(ctx context.Context) ([]core.Subscriber, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	rows, err := s.DB.QueryContext(ctx, `
		SELECT email, subscribed_at, confirmed_at, active
		FROM subscribers
		WHERE active = 1
		ORDER BY email
	`)
	if err != nil {
		return nil, fmt.Errorf("list subscribers: %w", err)
	}
	defer rows.Close() // nolint:errcheck // best-effort cleanup on SQL rows

	var subscribers []core.Subscriber
	for rows.Next() {
		var (
			sub          core.Subscriber
			subscribedAt int64
			confirmedAt  sql.NullInt64
			active       int
		)
		if err := rows.Scan(&sub.Email, &subscribedAt, &confirmedAt, &active); err != nil {
			return nil, fmt.Errorf("list subscribers: %w", err)
		}
		sub.SubscribedAt = time.Unix(subscribedAt, 0).UTC()
		sub.Active = active == 1
		if confirmedAt.Valid {
			confirmed := time.Unix(confirmedAt.Int64, 0).UTC()
			sub.ConfirmedAt = &confirmed
		}
		subscribers = append(subscribers, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list subscribers: %w", err)
	}

	return subscribers, nil
}
