// Package auth implements account registration, API key issuance and
// verification, and per-plan usage quotas.
package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ecomtrend/ecomtrend/internal/core"
	"github.com/ecomtrend/ecomtrend/internal/core/store"
)

// keyPrefix marks raw API keys so leaked secrets are recognizable in scans.
const keyPrefix = "ect_"

// Sentinel errors surfaced to HTTP handlers.
var (
	ErrInvalidAPIKey       = errors.New("invalid api key")
	ErrSubscriptionExpired = errors.New("subscription expired")
	ErrQuotaExceeded       = errors.New("daily api call quota exceeded")
	ErrInvalidEmail        = errors.New("invalid email address")
)

// Service coordinates user and API key operations against the store.
type Service struct {
	store *store.Store
	clock func() time.Time
}

// Option adjusts a Service at construction.
type Option func(*Service)

// WithClock overrides the service's time source.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		s.clock = clock
	}
}

// NewService constructs a Service backed by the given store.
func NewService(st *store.Store, opts ...Option) *Service {
	s := &Service{store: st, clock: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RegisterUser creates a new account on the free tier. The email must look
// like an address; full verification is the mail round-trip's job.
func (s *Service) RegisterUser(ctx context.Context, email string) (*core.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if !plausibleEmail(email) {
		return nil, ErrInvalidEmail
	}

	now := s.clock().UTC()
	user := core.User{
		ID:           uuid.NewString(),
		Email:        email,
		Plan:         core.PlanFree,
		CreatedAt:    now,
		LastAPIReset: now,
	}

	if err := s.store.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	return &user, nil
}

// GenerateAPIKey issues a new key for a user. The raw key is returned once;
// only its SHA-256 hash is stored.
func (s *Service) GenerateAPIKey(ctx context.Context, userID, name string) (string, *core.APIKey, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return "", nil, err
	}
	if user == nil {
		return "", nil, fmt.Errorf("user not found: %s", userID)
	}

	raw, err := newRawKey()
	if err != nil {
		return "", nil, err
	}

	name = strings.TrimSpace(name)
	if name == "" {
		name = "default"
	}

	key := core.APIKey{
		KeyID:     uuid.NewString(),
		UserID:    user.ID,
		Name:      name,
		KeyHash:   HashKey(raw),
		CreatedAt: s.clock().UTC(),
	}

	if err := s.store.InsertAPIKey(ctx, key); err != nil {
		return "", nil, err
	}

	return raw, &key, nil
}

// Authenticate resolves a raw API key to its user. It rejects unknown and
// revoked keys, and paid plans whose subscription has lapsed. The key's
// last-used timestamp is updated on success.
func (s *Service) Authenticate(ctx context.Context, rawKey string) (*core.User, *core.APIKey, error) {
	rawKey = strings.TrimSpace(rawKey)
	if rawKey == "" || !strings.HasPrefix(rawKey, keyPrefix) {
		return nil, nil, ErrInvalidAPIKey
	}

	key, err := s.store.GetAPIKeyByHash(ctx, HashKey(rawKey))
	if err != nil {
		return nil, nil, err
	}
	if key == nil || subtle.ConstantTimeCompare([]byte(key.KeyHash), []byte(HashKey(rawKey))) != 1 {
		return nil, nil, ErrInvalidAPIKey
	}

	user, err := s.store.GetUser(ctx, key.UserID)
	if err != nil {
		return nil, nil, err
	}
	if user == nil {
		return nil, nil, ErrInvalidAPIKey
	}

	if !user.SubscriptionActive(s.clock()) {
		return nil, nil, ErrSubscriptionExpired
	}

	if err := s.store.TouchAPIKey(ctx, key.KeyID, s.clock()); err != nil {
		return nil, nil, err
	}

	return user, key, nil
}

// AuthorizeAPICall consumes one unit of the user's daily call quota. The
// counter resets at midnight UTC.
func (s *Service) AuthorizeAPICall(ctx context.Context, user *core.User) error {
	if user == nil {
		return ErrInvalidAPIKey
	}

	limit := user.Plan.Limits().APICallsPerDay
	count, err := s.store.RecordAPICall(ctx, user.ID, s.clock())
	if err != nil {
		return err
	}

	if limit != core.Unlimited && count > limit {
		return ErrQuotaExceeded
	}

	return nil
}

// RevokeAPIKey revokes one of the user's keys.
func (s *Service) RevokeAPIKey(ctx context.Context, userID, keyID string) error {
	return s.store.RevokeAPIKey(ctx, userID, keyID, s.clock())
}

// ListAPIKeys returns the user's keys, revoked ones included.
func (s *Service) ListAPIKeys(ctx context.Context, userID string) ([]core.APIKey, error) {
	return s.store.ListAPIKeys(ctx, userID)
}

// HashKey returns the hex SHA-256 digest of a raw key.
func HashKey(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

func newRawKey() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate api key: %w", err)
	}
	return keyPrefix + hex.EncodeToString(buf), nil
}

// plausibleEmail applies a cheap shape check: one @, non-empty local part,
// and a dotted domain.
func plausibleEmail(email string) bool {
	local, domain, ok := strings.Cut(email, "@")
	if !ok || local == "" || domain == "" {
		return false
	}
	if strings.Contains(domain, "@") {
		return false
	}
	dot := strings.LastIndex(domain, ".")
	return dot > 0 && dot < len(domain)-1
}
