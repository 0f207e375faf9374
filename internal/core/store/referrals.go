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

// UpsertReferralCode stores a user's invite code, keeping an existing code
// when the user already has one. It returns the effective code.
func (s *Store) UpsertReferralCode(ctx context.Context, code core.ReferralCode) (string, error) {
	if s == nil || s.DB == nil {
		return "", errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	if strings.TrimSpace(code.Code) == "" || strings.TrimSpace(code.UserID) == "" {
		return "", errors.New("referral code and user id are required")
	}

	var expiresAt sql.NullInt64
	if code.ExpiresAt != nil {
		expiresAt = sql.NullInt64{Int64: code.ExpiresAt.UTC().Unix(), Valid: true}
	}
	active := 0
	if code.Active {
		active = 1
	}

	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO referral_codes (code, user_id, created_at, expires_at, max_uses, use_count, active)
		VALUES (?, ?, ?, ?, ?, 0, ?)
		ON CONFLICT(user_id) DO NOTHING
	`, code.Code, code.UserID, code.CreatedAt.UTC().Unix(), expiresAt, code.MaxUses, active)
	if err != nil {
		return "", fmt.Errorf("store referral code: %w", err)
	}

	existing, err := s.GetReferralCodeByUser(ctx, code.UserID)
	if err != nil {
		return "", err
	}
	if existing == nil {
		return "", fmt.Errorf("referral code not stored for user %s", code.UserID)
	}

	return existing.Code, nil
}

// GetReferralCode resolves a code to its record, or nil when absent.
func (s *Store) GetReferralCode(ctx context.Context, code string) (*core.ReferralCode, error) {
	return s.fetchReferralCode(ctx, "code = ?", strings.ToUpper(strings.TrimSpace(code)))
}

// GetReferralCodeByUser returns a user's code, or nil when none was issued.
func (s *Store) GetReferralCodeByUser(ctx context.Context, userID string) (*core.ReferralCode, error) {
	return s.fetchReferralCode(ctx, "user_id = ?", strings.TrimSpace(userID))
}

func (s *Store) fetchReferralCode(ctx context.Context, where string, arg string) (*core.ReferralCode, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	if arg == "" {
		return nil, errors.New("referral lookup key is required")
	}

	var (
		record    core.ReferralCode
		createdAt int64
		expiresAt sql.NullInt64
	)

	row := s.DB.QueryRowContext(ctx, `
		SELECT code, user_id, created_at, expires_at, max_uses, use_count, active
		FROM referral_codes
		WHERE `+where, arg)

	if err := row.Scan(&record.Code, &record.UserID, &createdAt, &expiresAt,
		&record.MaxUses, &record.UseCount, &record.Active); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetch referral code: %w", err)
	}

	record.CreatedAt = time.Unix(createdAt, 0).UTC()
	if expiresAt.Valid {
		expiry := time.Unix(expiresAt.Int64, 0).UTC()
		record.ExpiresAt = &expiry
	}
	return &record, nil
}

// InsertReferral records a redeemed invite and bumps the code's use count.
// The referred-user primary key enforces one redemption per user.
func (s *Store) InsertReferral(ctx context.Context, referral core.Referral) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin referral tx: %w", err)
	}
	defer tx.Rollback() // nolint:errcheck // no-op after commit

	_, err = tx.ExecContext(ctx, `
		INSERT INTO referrals (referred_user_id, code, referrer_user_id, referred_at, referrer_credit, referred_credit)
		VALUES (?, ?, ?, ?, ?, ?)
	`, referral.ReferredUserID, referral.Code, referral.ReferrerUserID,
		referral.ReferredAt.UTC().Unix(), referral.ReferrerCredit, referral.ReferredCredit)
	if err != nil {
		return fmt.Errorf("store referral: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE referral_codes SET use_count = use_count + 1 WHERE code = ?
	`, referral.Code); err != nil {
		return fmt.Errorf("bump referral use count: %w", err)
	}

	if err := addCreditTx(ctx, tx, referral.ReferrerUserID, referral.ReferrerCredit, referral.ReferredAt); err != nil {
		return err
	}
	if err := addCreditTx(ctx, tx, referral.ReferredUserID, referral.ReferredCredit, referral.ReferredAt); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit referral: %w", err)
	}

	return nil
}

// GetReferral returns the redemption record for a referred user, or nil.
func (s *Store) GetReferral(ctx context.Context, referredUserID string) (*core.Referral, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	var (
		referral   core.Referral
		referredAt int64
	)

	row := s.DB.QueryRowContext(ctx, `
		SELECT referred_user_id, code, referrer_user_id, referred_at, referrer_credit, referred_credit
		FROM referrals
		WHERE referred_user_id = ?
	`, strings.TrimSpace(referredUserID))

	if err := row.Scan(&referral.ReferredUserID, &referral.Code, &referral.ReferrerUserID,
		&referredAt, &referral.ReferrerCredit, &referral.ReferredCredit); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetch referral: %w", err)
	}

	referral.ReferredAt = time.Unix(referredAt, 0).UTC()
	return &referral, nil
}

// CreditBalance returns a user's accumulated credit in JPY.
func (s *Store) CreditBalance(ctx context.Context, userID string) (int, error) {
	if s == nil || s.DB == nil {
		return 0, errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	var balance int
	row := s.DB.QueryRowContext(ctx, `
		SELECT balance_jpy FROM user_credits WHERE user_id = ?
	`, strings.TrimSpace(userID))
	if err := row.Scan(&balance); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("fetch credit balance: %w", err)
	}

	return balance, nil
}

func addCreditTx(ctx context.Context, tx *sql.Tx, userID string, amount int, at time.Time) error {
	if amount == 0 {
		return nil
	}

	_, err := tx.ExecContext(ctx, `
		INSERT INTO user_credits (user_id, balance_jpy, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			balance_jpy = balance_jpy + excluded.balance_jpy,
			updated_at = excluded.updated_at
	`, userID, amount, at.UTC().Unix())
	if err != nil {
		return fmt.Errorf("add credit: %w", err)
	}

	return nil
}
