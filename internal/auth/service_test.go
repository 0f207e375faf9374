//go:build cgo

package auth

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ecomtrend/ecomtrend/internal/config"
	"github.com/ecomtrend/ecomtrend/internal/core"
	"github.com/ecomtrend/ecomtrend/internal/core/store"
)

type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time {
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

func newTestService(t *testing.T) (*Service, *testClock) {
	t.Helper()

	ctx := context.Background()
	st, err := store.Open(ctx, config.StoreConfig{Driver: "libsql", Path: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, st.Migrate(ctx))
	t.Cleanup(func() {
		require.NoError(t, st.Close())
	})

	clock := &testClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	return NewService(st, WithClock(clock.Now)), clock
}

func TestRegisterUser(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	user, err := svc.RegisterUser(ctx, " Alice@Example.com ")
	require.NoError(t, err)
	require.Equal(t, "alice@example.com", user.Email)
	require.Equal(t, core.PlanFree, user.Plan)
	require.NotEmpty(t, user.ID)

	_, err = svc.RegisterUser(ctx, "alice@example.com")
	require.ErrorIs(t, err, store.ErrDuplicateEmail)

	for _, bad := range []string{"", "nodomain", "a@b", "@example.com", "a@@example.com"} {
		_, err := svc.RegisterUser(ctx, bad)
		require.ErrorIs(t, err, ErrInvalidEmail, "email %q", bad)
	}
}

func TestAPIKeyIssueAndAuthenticate(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	user, err := svc.RegisterUser(ctx, "alice@example.com")
	require.NoError(t, err)

	raw, key, err := svc.GenerateAPIKey(ctx, user.ID, "ci")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(raw, "ect_"))
	require.Len(t, raw, len("ect_")+64)
	require.Equal(t, HashKey(raw), key.KeyHash)

	authed, authedKey, err := svc.Authenticate(ctx, raw)
	require.NoError(t, err)
	require.Equal(t, user.ID, authed.ID)
	require.Equal(t, key.KeyID, authedKey.KeyID)

	keys, err := svc.ListAPIKeys(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, keys, 1)
	require.NotNil(t, keys[0].LastUsed)

	_, _, err = svc.Authenticate(ctx, "ect_"+strings.Repeat("0", 64))
	require.ErrorIs(t, err, ErrInvalidAPIKey)
	_, _, err = svc.Authenticate(ctx, "not-a-key")
	require.ErrorIs(t, err, ErrInvalidAPIKey)

	require.NoError(t, svc.RevokeAPIKey(ctx, user.ID, key.KeyID))
	_, _, err = svc.Authenticate(ctx, raw)
	require.ErrorIs(t, err, ErrInvalidAPIKey)
}

func TestAuthenticateExpiredSubscription(t *testing.T) {
	ctx := context.Background()
	svc, clock := newTestService(t)

	user, err := svc.RegisterUser(ctx, "alice@example.com")
	require.NoError(t, err)
	raw, _, err := svc.GenerateAPIKey(ctx, user.ID, "ci")
	require.NoError(t, err)

	expires := clock.Now().Add(24 * time.Hour)
	require.NoError(t, svc.store.UpdateUserPlan(ctx, user.ID, core.PlanPro, &expires))

	_, _, err = svc.Authenticate(ctx, raw)
	require.NoError(t, err)

	clock.Advance(25 * time.Hour)
	_, _, err = svc.Authenticate(ctx, raw)
	require.ErrorIs(t, err, ErrSubscriptionExpired)
}

func TestAuthorizeAPICallQuota(t *testing.T) {
	ctx := context.Background()
	svc, clock := newTestService(t)

	user, err := svc.RegisterUser(ctx, "alice@example.com")
	require.NoError(t, err)

	limit := core.PlanFree.Limits().APICallsPerDay
	for i := 0; i < limit; i++ {
		require.NoError(t, svc.AuthorizeAPICall(ctx, user))
	}
	require.ErrorIs(t, svc.AuthorizeAPICall(ctx, user), ErrQuotaExceeded)

	// Quota resets at the next UTC day.
	clock.Advance(24 * time.Hour)
	require.NoError(t, svc.AuthorizeAPICall(ctx, user))
}

func TestAuthorizeAPICallUnlimited(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	user, err := svc.RegisterUser(ctx, "ent@example.com")
	require.NoError(t, err)
	require.NoError(t, svc.store.UpdateUserPlan(ctx, user.ID, core.PlanEnterprise, nil))

	fetched, err := svc.store.GetUser(ctx, user.ID)
	require.NoError(t, err)

	for i := 0; i < 500; i++ {
		require.NoError(t, svc.AuthorizeAPICall(ctx, fetched))
	}
}

func TestReferralFlow(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	referrer, err := svc.RegisterUser(ctx, "referrer@example.com")
	require.NoError(t, err)
	referred, err := svc.RegisterUser(ctx, "referred@example.com")
	require.NoError(t, err)

	code, err := svc.IssueReferralCode(ctx, referrer.ID)
	require.NoError(t, err)
	require.Len(t, code.Code, 8)
	require.Equal(t, strings.ToUpper(code.Code), code.Code)

	// Issuance is idempotent per user.
	again, err := svc.IssueReferralCode(ctx, referrer.ID)
	require.NoError(t, err)
	require.Equal(t, code.Code, again.Code)

	_, err = svc.ApplyReferral(ctx, code.Code, referrer.ID)
	require.ErrorIs(t, err, ErrSelfReferral)

	_, err = svc.ApplyReferral(ctx, "DEADBEEF", referred.ID)
	require.ErrorIs(t, err, ErrUnknownReferralCode)

	referral, err := svc.ApplyReferral(ctx, code.Code, referred.ID)
	require.NoError(t, err)
	require.Equal(t, 500, referral.ReferrerCredit)
	require.Equal(t, 200, referral.ReferredCredit)

	_, err = svc.ApplyReferral(ctx, code.Code, referred.ID)
	require.ErrorIs(t, err, ErrAlreadyReferred)

	balance, err := svc.CreditBalance(ctx, referrer.ID)
	require.NoError(t, err)
	require.Equal(t, 500, balance)
	balance, err = svc.CreditBalance(ctx, referred.ID)
	require.NoError(t, err)
	require.Equal(t, 200, balance)
}

func TestReferralRedeemability(t *testing.T) {
	ctx := context.Background()
	svc, clock := newTestService(t)

	referrer, err := svc.RegisterUser(ctx, "referrer@example.com")
	require.NoError(t, err)
	first, err := svc.RegisterUser(ctx, "first@example.com")
	require.NoError(t, err)
	second, err := svc.RegisterUser(ctx, "second@example.com")
	require.NoError(t, err)

	code, err := svc.IssueReferralCode(ctx, referrer.ID)
	require.NoError(t, err)
	require.Equal(t, core.Unlimited, code.MaxUses)
	require.True(t, code.Active)
	require.Nil(t, code.ExpiresAt)

	// A single-use code exhausts after the first redemption.
	_, err = svc.store.DB.ExecContext(ctx, "UPDATE referral_codes SET max_uses = 1 WHERE code = ?", code.Code)
	require.NoError(t, err)
	_, err = svc.ApplyReferral(ctx, code.Code, first.ID)
	require.NoError(t, err)
	_, err = svc.ApplyReferral(ctx, code.Code, second.ID)
	require.ErrorIs(t, err, ErrReferralNotRedeemable)

	// A past expiry blocks redemption even with uses left.
	expired := clock.Now().Add(-time.Hour).Unix()
	_, err = svc.store.DB.ExecContext(ctx, "UPDATE referral_codes SET max_uses = -1, expires_at = ? WHERE code = ?", expired, code.Code)
	require.NoError(t, err)
	_, err = svc.ApplyReferral(ctx, code.Code, second.ID)
	require.ErrorIs(t, err, ErrReferralNotRedeemable)

	// So does deactivation.
	_, err = svc.store.DB.ExecContext(ctx, "UPDATE referral_codes SET expires_at = NULL, active = 0 WHERE code = ?", code.Code)
	require.NoError(t, err)
	_, err = svc.ApplyReferral(ctx, code.Code, second.ID)
	require.ErrorIs(t, err, ErrReferralNotRedeemable)
}

func TestHashKeyDeterministic(t *testing.T) {
	require.Equal(t, HashKey("ect_abc"), HashKey("ect_abc"))
	require.NotEqual(t, HashKey("ect_abc"), HashKey("ect_abd"))
	require.Len(t, HashKey("ect_abc"), 64)
}
