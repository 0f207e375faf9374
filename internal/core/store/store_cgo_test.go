//go:build cgo

package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ecomtrend/ecomtrend/internal/config"
	"github.com/ecomtrend/ecomtrend/internal/core"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	ctx := context.Background()
	s, err := Open(ctx, config.StoreConfig{Driver: "libsql", Path: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, s.Migrate(ctx))
	t.Cleanup(func() {
		require.NoError(t, s.Close())
	})
	return s
}

func TestOpenMemoryStore(t *testing.T) {
	s := newTestStore(t)
	require.Equal(t, "libsql", s.Driver())
}

func TestUserLifecycle(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	created := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	user := core.User{
		ID:           "usr-1",
		Email:        "Alice@Example.com",
		Plan:         core.PlanFree,
		CreatedAt:    created,
		LastAPIReset: created,
	}
	require.NoError(t, s.CreateUser(ctx, user))

	// Email is normalized to lowercase on write and lookup.
	fetched, err := s.GetUserByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	require.NotNil(t, fetched)
	require.Equal(t, "usr-1", fetched.ID)
	require.Equal(t, core.PlanFree, fetched.Plan)
	require.Nil(t, fetched.SubscriptionExpires)

	dup := user
	dup.ID = "usr-2"
	require.ErrorIs(t, s.CreateUser(ctx, dup), ErrDuplicateEmail)

	expires := created.AddDate(0, 1, 0)
	require.NoError(t, s.UpdateUserPlan(ctx, "usr-1", core.PlanPro, &expires))

	fetched, err = s.GetUser(ctx, "usr-1")
	require.NoError(t, err)
	require.Equal(t, core.PlanPro, fetched.Plan)
	require.NotNil(t, fetched.SubscriptionExpires)
	require.Equal(t, expires, *fetched.SubscriptionExpires)

	require.Error(t, s.UpdateUserPlan(ctx, "usr-missing", core.PlanPro, nil))

	missing, err := s.GetUser(ctx, "usr-missing")
	require.NoError(t, err)
	require.Nil(t, missing)
}

func TestRecordAPICallDailyReset(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	created := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, s.CreateUser(ctx, core.User{
		ID: "usr-1", Email: "a@example.com", Plan: core.PlanFree,
		CreatedAt: created, LastAPIReset: created,
	}))

	count, err := s.RecordAPICall(ctx, "usr-1", created.Add(time.Minute))
	require.NoError(t, err)
	require.Equal(t, 1, count)

	count, err = s.RecordAPICall(ctx, "usr-1", created.Add(2*time.Minute))
	require.NoError(t, err)
	require.Equal(t, 2, count)

	// A new UTC day resets the counter.
	count, err = s.RecordAPICall(ctx, "usr-1", created.AddDate(0, 0, 1))
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

func TestAPIKeyLifecycle(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	created := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	key := core.APIKey{
		KeyID:     "key-1",
		UserID:    "usr-1",
		Name:      "ci",
		KeyHash:   "hash-1",
		CreatedAt: created,
	}
	require.NoError(t, s.InsertAPIKey(ctx, key))

	fetched, err := s.GetAPIKeyByHash(ctx, "hash-1")
	require.NoError(t, err)
	require.NotNil(t, fetched)
	require.Equal(t, "key-1", fetched.KeyID)
	require.Nil(t, fetched.LastUsed)

	require.NoError(t, s.TouchAPIKey(ctx, "key-1", created.Add(time.Hour)))
	fetched, err = s.GetAPIKeyByHash(ctx, "hash-1")
	require.NoError(t, err)
	require.NotNil(t, fetched.LastUsed)

	require.NoError(t, s.RevokeAPIKey(ctx, "usr-1", "key-1", created.Add(2*time.Hour)))

	// Revoked keys no longer resolve by hash.
	fetched, err = s.GetAPIKeyByHash(ctx, "hash-1")
	require.NoError(t, err)
	require.Nil(t, fetched)

	keys, err := s.ListAPIKeys(ctx, "usr-1")
	require.NoError(t, err)
	require.Len(t, keys, 1)
	require.NotNil(t, keys[0].RevokedAt)

	require.Error(t, s.RevokeAPIKey(ctx, "usr-1", "key-1", created.Add(3*time.Hour)))
}

func TestSubscriberLifecycle(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	signup := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, s.UpsertSubscriber(ctx, "Reader@Example.com", signup))
	require.NoError(t, s.ConfirmSubscriber(ctx, "reader@example.com", signup.Add(time.Hour)))

	subs, err := s.ListActiveSubscribers(ctx)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	require.Equal(t, "reader@example.com", subs[0].Email)
	require.True(t, subs[0].Active)
	require.NotNil(t, subs[0].ConfirmedAt)

	require.NoError(t, s.Unsubscribe(ctx, "reader@example.com"))
	subs, err = s.ListActiveSubscribers(ctx)
	require.NoError(t, err)
	require.Empty(t, subs)

	// Re-subscribing reactivates and keeps the original signup time.
	require.NoError(t, s.UpsertSubscriber(ctx, "reader@example.com", signup.AddDate(0, 0, 7)))
	subs, err = s.ListActiveSubscribers(ctx)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	require.Equal(t, signup, subs[0].SubscribedAt)
}

func TestReferralFlow(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	created := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	expiry := created.AddDate(0, 1, 0)
	code, err := s.UpsertReferralCode(ctx, core.ReferralCode{
		Code: "AB12CD34", UserID: "usr-1", CreatedAt: created,
		ExpiresAt: &expiry, MaxUses: 5, Active: true,
	})
	require.NoError(t, err)
	require.Equal(t, "AB12CD34", code)

	// A second issuance keeps the first code.
	code, err = s.UpsertReferralCode(ctx, core.ReferralCode{
		Code: "ZZ99ZZ99", UserID: "usr-1", CreatedAt: created.Add(time.Hour),
		MaxUses: core.Unlimited, Active: true,
	})
	require.NoError(t, err)
	require.Equal(t, "AB12CD34", code)

	require.NoError(t, s.InsertReferral(ctx, core.Referral{
		Code:           "AB12CD34",
		ReferrerUserID: "usr-1",
		ReferredUserID: "usr-2",
		ReferredAt:     created.Add(2 * time.Hour),
		ReferrerCredit: 500,
		ReferredCredit: 200,
	}))

	record, err := s.GetReferralCode(ctx, "ab12cd34")
	require.NoError(t, err)
	require.NotNil(t, record)
	require.Equal(t, 1, record.UseCount)
	require.Equal(t, 5, record.MaxUses)
	require.True(t, record.Active)
	require.NotNil(t, record.ExpiresAt)
	require.Equal(t, expiry, *record.ExpiresAt)

	referral, err := s.GetReferral(ctx, "usr-2")
	require.NoError(t, err)
	require.NotNil(t, referral)
	require.Equal(t, "usr-1", referral.ReferrerUserID)

	balance, err := s.CreditBalance(ctx, "usr-1")
	require.NoError(t, err)
	require.Equal(t, 500, balance)

	balance, err = s.CreditBalance(ctx, "usr-2")
	require.NoError(t, err)
	require.Equal(t, 200, balance)

	// The primary key rejects a second redemption by the same user.
	require.Error(t, s.InsertReferral(ctx, core.Referral{
		Code: "AB12CD34", ReferrerUserID: "usr-1", ReferredUserID: "usr-2",
		ReferredAt: created, ReferrerCredit: 500, ReferredCredit: 200,
	}))

	balance, err = s.CreditBalance(ctx, "usr-3")
	require.NoError(t, err)
	require.Zero(t, balance)
}
