package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestReferralCodeRedeemable(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	code := &ReferralCode{Code: "AB12CD34", UserID: "usr-1", MaxUses: Unlimited, Active: true}
	require.True(t, code.Redeemable(now))

	var nilCode *ReferralCode
	require.False(t, nilCode.Redeemable(now))

	inactive := *code
	inactive.Active = false
	require.False(t, inactive.Redeemable(now))

	past := now.Add(-time.Hour)
	expired := *code
	expired.ExpiresAt = &past
	require.False(t, expired.Redeemable(now))

	future := now.Add(time.Hour)
	live := *code
	live.ExpiresAt = &future
	require.True(t, live.Redeemable(now))

	capped := *code
	capped.MaxUses = 3
	capped.UseCount = 2
	require.True(t, capped.Redeemable(now))
	capped.UseCount = 3
	require.False(t, capped.Redeemable(now))
}
