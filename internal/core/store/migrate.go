package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		user_id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		plan TEXT NOT NULL DEFAULT 'free',
		created_at INTEGER NOT NULL,
		subscription_expires INTEGER,
		api_calls_today INTEGER NOT NULL DEFAULT 0,
		last_api_reset INTEGER NOT NULL
	);`,
	`CREATE INDEX IF NOT EXISTS idx_users_email ON users(email);`,
	`CREATE TABLE IF NOT EXISTS api_keys (
		key_id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		name TEXT NOT NULL,
		key_hash TEXT NOT NULL UNIQUE,
		created_at INTEGER NOT NULL,
		last_used INTEGER,
		revoked_at INTEGER
	);`,
	`CREATE INDEX IF NOT EXISTS idx_api_keys_user ON api_keys(user_id);`,
	`CREATE INDEX IF NOT EXISTS idx_api_keys_hash ON api_keys(key_hash);`,
	`CREATE TABLE IF NOT EXISTS subscribers (
		email TEXT PRIMARY KEY,
		subscribed_at INTEGER NOT NULL,
		confirmed_at INTEGER,
		active INTEGER NOT NULL DEFAULT 1
	);`,
	`CREATE TABLE IF NOT EXISTS referral_codes (
		code TEXT PRIMARY KEY,
		user_id TEXT NOT NULL UNIQUE,
		created_at INTEGER NOT NULL,
		expires_at INTEGER,
		max_uses INTEGER NOT NULL DEFAULT -1,
		use_count INTEGER NOT NULL DEFAULT 0,
		active INTEGER NOT NULL DEFAULT 1
	);`,
	`CREATE TABLE IF NOT EXISTS referrals (
		referred_user_id TEXT PRIMARY KEY,
		code TEXT NOT NULL,
		referrer_user_id TEXT NOT NULL,
		referred_at INTEGER NOT NULL,
		referrer_credit INTEGER NOT NULL,
		referred_credit INTEGER NOT NULL
	);`,
	`CREATE INDEX IF NOT EXISTS idx_referrals_referrer ON referrals(referrer_user_id);`,
	`CREATE TABLE IF NOT EXISTS user_credits (
		user_id TEXT PRIMARY KEY,
		balance_jpy INTEGER NOT NULL DEFAULT 0,
		updated_at INTEGER NOT NULL
	);`,
}

// Migrate ensures the required database tables exist.
func (s *Store) Migrate(ctx context.Context) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	for _, stmt := range schemaStatements {
		if _, err := s.DB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("store migration failed: %w", err)
		}
	}

	if err := s.ensureColumn(ctx, "subscribers", "confirmed_at", "INTEGER"); err != nil {
		return err
	}
	if err := s.ensureColumn(ctx, "referral_codes", "expires_at", "INTEGER"); err != nil {
		return err
	}
	if err := s.ensureColumn(ctx, "referral_codes", "max_uses", "INTEGER NOT NULL DEFAULT -1"); err != nil {
		return err
	}
	if err := s.ensureColumn(ctx, "referral_codes", "active", "INTEGER NOT NULL DEFAULT 1"); err != nil {
		return err
	}

	return nil
}

func (s *Store) ensureColumn(ctx context.Context, table, column, columnDef string) error {
	rows, err := s.DB.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return fmt.Errorf("inspect %s schema: %w", table, err)
	}
	defer rows.Close() // nolint:errcheck // best-effort cleanup on SQL rows

	for rows.Next() {
		var (
			cid     int
			name    string
			colType string
			notNull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dflt, &pk); err != nil {
			return fmt.Errorf("inspect %s columns: %w", table, err)
		}
		if name == column {
			return nil
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("inspect %s columns: %w", table, err)
	}

	if _, err := s.DB.ExecContext(ctx, fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, column, columnDef)); err != nil {
		return fmt.Errorf("add %s.%s column: %w", table, column, err)
	}

	return nil
}
