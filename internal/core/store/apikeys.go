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

// InsertAPIKey stores an issued key. Only the hash is persisted; the raw key
// is shown to the caller once and never stored.
func (s *Store) InsertAPIKey(ctx context.Context, key core.APIKey) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	if strings.TrimSpace(key.KeyID) == "" || strings.TrimSpace(key.KeyHash) == "" {
		return errors.New("api key id and hash are required")
	}

	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO api_keys (key_id, user_id, name, key_hash, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, key.KeyID, key.UserID, key.Name, key.KeyHash, key.CreatedAt.UTC().Unix())
	if err != nil {
		return fmt.Errorf("store api key: %w", err)
	}

	return nil
}

// GetAPIKeyByHash looks up a non-revoked key by its hash, or nil when absent.
func (s *Store) GetAPIKeyByHash(ctx context.Context, hash string) (*core.APIKey, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	row := s.DB.QueryRowContext(ctx, `
		SELECT key_id, user_id, name, key_hash, created_at, last_used, revoked_at
		FROM api_keys
		WHERE key_hash = ? AND revoked_at IS NULL
	`, strings.TrimSpace(hash))

	key, err := scanAPIKey(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetch api key: %w", err)
	}

	return key, nil
}

// ListAPIKeys returns all keys for a user, revoked ones included, newest
// first.
func (s *Store) ListAPIKeys(ctx context.Context, userID string) ([]core.APIKey, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	rows, err := s.DB.QueryContext(ctx, `
		SELECT key_id, user_id, name, key_hash, created_at, last_used, revoked_at
		FROM api_keys
		WHERE user_id = ?
		ORDER BY created_at DESC
	`, strings.TrimSpace(userID))
	if err != nil {
		return nil, fmt.Errorf("list api keys: %w", err)
	}
	defer rows.Close() // nolint:errcheck // best-effort cleanup on SQL rows

	var keys []core.APIKey
	for rows.Next() {
		key, err := scanAPIKey(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("list api keys: %w", err)
		}
		keys = append(keys, *key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list api keys: %w", err)
	}

	return keys, nil
}

// TouchAPIKey updates a key's last-used timestamp.
func (s *Store) TouchAPIKey(ctx context.Context, keyID string, usedAt time.Time) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	_, err := s.DB.ExecContext(ctx, `
		UPDATE api_keys SET last_used = ? WHERE key_id = ?
	`, usedAt.UTC().Unix(), strings.TrimSpace(keyID))
	if err != nil {
		return fmt.Errorf("touch api key: %w", err)
	}

	return nil
}

// RevokeAPIKey marks a key revoked. Revocation is idempotent; revoking an
// already revoked key keeps the original timestamp.
func (s *Store) RevokeAPIKey(ctx context.Context, userID, keyID string, revokedAt time.Time) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	result, err := s.DB.ExecContext(ctx, `
		UPDATE api_keys SET revoked_at = ?
		WHERE key_id = ? AND user_id = ? AND revoked_at IS NULL
	`, revokedAt.UTC().Unix(), strings.TrimSpace(keyID), strings.TrimSpace(userID))
	if err != nil {
		return fmt.Errorf("revoke api key: %w", err)
	}

	affected, err := result.RowsAffected()
	if err == nil && affected == 0 {
		return fmt.Errorf("api key not found: %s", keyID)
	}

	return nil
}

func scanAPIKey(scan func(dest ...any) error) (*core.APIKey, error) {
	var (
		key       core.APIKey
		createdAt int64
		lastUsed  sql.NullInt64
		revokedAt sql.NullInt64
	)

	if err := scan(&key.KeyID, &key.UserID, &key.Name, &key.KeyHash, &createdAt, &lastUsed, &revokedAt); err != nil {
		return nil, err
	}

	key.CreatedAt = time.Unix(createdAt, 0).UTC()
	if lastUsed.Valid {
		used := time.Unix(lastUsed.Int64, 0).UTC()
		key.LastUsed = &used
	}
	if revokedAt.Valid {
		revoked := time.Unix(revokedAt.Int64, 0).UTC()
		key.RevokedAt = &revoked
	}

	return &key, nil
}
