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

// ErrDuplicateEmail is returned when a registration reuses an email address.
var ErrDuplicateEmail = errors.New("email already registered")

// CreateUser inserts a new user record.
func (s *Store) CreateUser(ctx context.Context, user core.User) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	email := strings.ToLower(strings.TrimSpace(user.Email))
	if email == "" {
		return errors.New("user email is required")
	}
	if strings.TrimSpace(user.ID) == "" {
		return errors.New("user id is required")
	}

	var expires sql.NullInt64
	if user.SubscriptionExpires != nil {
		expires = sql.NullInt64{Int64: user.SubscriptionExpires.UTC().Unix(), Valid: true}
	}

	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO users (user_id, email, plan, created_at, subscription_expires, api_calls_today, last_api_reset)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, user.ID, email, string(user.Plan), user.CreatedAt.UTC().Unix(), expires, user.APICallsToday, user.LastAPIReset.UTC().Unix())
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed: users.email") {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("store user: %w", err)
	}

	return nil
}

// GetUser returns a user by id, or nil when absent.
func (s *Store) GetUser(ctx context.Context, userID string) (*core.User, error) {
	return s.fetchUser(ctx, "user_id = ?", strings.TrimSpace(userID))
}

// GetUserByEmail returns a user by email, or nil when absent.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*core.User, error) {
	return s.fetchUser(ctx, "email = ?", strings.ToLower(strings.TrimSpace(email)))
}

func (s *Store) fetchUser(ctx context.Context, where string, arg string) (*core.User, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	if arg == "" {
		return nil, errors.New("user lookup key is required")
	}

	var (
		user      core.User
		plan      string
		createdAt int64
		expires   sql.NullInt64
		lastReset int64
	)

	row := s.DB.QueryRowContext(ctx, `
		SELECT user_id, email, plan, created_at, subscription_expires, api_calls_today, last_api_reset
		FROM users
		WHERE `+where, arg)

	if err := row.Scan(&user.ID, &user.Email, &plan, &createdAt, &expires, &user.APICallsToday, &lastReset); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetch user: %w", err)
	}

	user.Plan = core.Plan(plan)
	user.CreatedAt = time.Unix(createdAt, 0).UTC()
	user.LastAPIReset = time.Unix(lastReset, 0).UTC()
	if expires.Valid {
		expiry := time.Unix(expires.Int64, 0).UTC()
		user.SubscriptionExpires = &expiry
	}

	return &user, nil
}

// UpdateUserPlan changes a user's tier and expiry. A nil expiry clears it.
func (s *Store) UpdateUserPlan(ctx context.Context, userID string, plan core.Plan, expires *time.Time) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	var expiresValue sql.NullInt64
	if expires != nil {
		expiresValue = sql.NullInt64{Int64: expires.UTC().Unix(), Valid: true}
	}

	result, err := s.DB.ExecContext(ctx, `
		UPDATE users SET plan = ?, subscription_expires = ?
		WHERE user_id = ?
	`, string(plan), expiresValue, strings.TrimSpace(userID))
	if err != nil {
		return fmt.Errorf("update user plan: %w", err)
	}

	affected, err := result.RowsAffected()
	if err == nil && affected == 0 {
		return fmt.Errorf("user not found: %s", userID)
	}

	return nil
}

// RecordAPICall bumps the user's daily call counter, resetting it when the
// calendar day (UTC) has rolled over since the last reset. It returns the
// count after the increment.
func (s *Store) RecordAPICall(ctx context.Context, userID string, now time.Time) (int, error) {
	if s == nil || s.DB == nil {
		return 0, errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	if user == nil {
		return 0, fmt.Errorf("user not found: %s", userID)
	}

	now = now.UTC()
	calls := user.APICallsToday + 1
	reset := user.LastAPIReset
	if !sameDay(now, reset) {
		calls = 1
		reset = now
	}

	_, err = s.DB.ExecContext(ctx, `
		UPDATE users SET api_calls_today = ?, last_api_reset = ?
		WHERE user_id = ?
	`, calls, reset.Unix(), user.ID)
	if err != nil {
		return 0, fmt.Errorf("record api call: %w", err)
	}

	return calls, nil
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}
