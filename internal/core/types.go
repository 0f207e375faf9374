package core

import "time"

// ProductSnapshot is one observed row from a movers & shakers listing.
// Snapshots are immutable once collected; optional fields are nil when the
// listing did not expose them.
type ProductSnapshot struct {
	ASIN              string    `json:"asin"`
	Name              string    `json:"name"`
	Category          string    `json:"category"`
	CurrentRank       int       `json:"current_rank"`
	PreviousRank      *int      `json:"previous_rank,omitempty"`
	RankChange        *int      `json:"rank_change,omitempty"`
	RankChangePercent *float64  `json:"rank_change_percent,omitempty"`
	Price             *float64  `json:"price,omitempty"`
	Currency          string    `json:"currency,omitempty"`
	ReviewCount       *int      `json:"review_count,omitempty"`
	Rating            *float64  `json:"rating,omitempty"`
	AffiliateURL      string    `json:"affiliate_url"`
	CollectedAt       time.Time `json:"collected_at,omitempty"`
}

// RankChangeValue returns the rank-change percentage, treating absent as zero.
func (p *ProductSnapshot) RankChangeValue() float64 {
	if p == nil || p.RankChangePercent == nil {
		return 0
	}
	return *p.RankChangePercent
}

// TrendResult is a scored snapshot. Results are derived fresh on every scoring
// request and never persisted.
type TrendResult struct {
	ProductSnapshot
	TrendScore float64 `json:"trend_score"`
}

// Subscriber is a newsletter signup.
type Subscriber struct {
	Email        string     `json:"email"`
	SubscribedAt time.Time  `json:"subscribed_at"`
	ConfirmedAt  *time.Time `json:"confirmed_at,omitempty"`
	Active       bool       `json:"active"`
}

// User is an API consumer with a subscription plan.
type User struct {
	ID                  string     `json:"user_id"`
	Email               string     `json:"email"`
	Plan                Plan       `json:"plan"`
	CreatedAt           time.Time  `json:"created_at"`
	SubscriptionExpires *time.Time `json:"subscription_expires,omitempty"`
	APICallsToday       int        `json:"api_calls_today"`
	LastAPIReset        time.Time  `json:"last_api_reset"`
}

// SubscriptionActive reports whether the user's plan is currently usable.
// Free never expires; paid plans require a future expiry.
func (u *User) SubscriptionActive(now time.Time) bool {
	if u == nil {
		return false
	}
	if u.Plan == PlanFree {
		return true
	}
	if u.SubscriptionExpires == nil {
		return false
	}
	return now.Before(*u.SubscriptionExpires)
}

// ReferralCode is a user's shareable invite code. MaxUses of Unlimited means
// the code never exhausts; a nil ExpiresAt means it never expires.
type ReferralCode struct {
	Code      string     `json:"code"`
	UserID    string     `json:"user_id"`
	CreatedAt time.Time  `json:"created_at"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	MaxUses   int        `json:"max_uses"`
	UseCount  int        `json:"use_count"`
	Active    bool       `json:"active"`
}

// Redeemable reports whether the code can still be redeemed at the given time.
func (c *ReferralCode) Redeemable(now time.Time) bool {
	if c == nil || !c.Active {
		return false
	}
	if c.ExpiresAt != nil && now.After(*c.ExpiresAt) {
		return false
	}
	if c.MaxUses != Unlimited && c.UseCount >= c.MaxUses {
		return false
	}
	return true
}

// Referral records one redeemed invite. A referred user can redeem at most
// one code, and never their own.
type Referral struct {
	Code           string    `json:"code"`
	ReferrerUserID string    `json:"referrer_user_id"`
	ReferredUserID string    `json:"referred_user_id"`
	ReferredAt     time.Time `json:"referred_at"`
	ReferrerCredit int       `json:"referrer_credit_jpy"`
	ReferredCredit int       `json:"referred_credit_jpy"`
}

// APIKey is the stored representation of an issued key. Only the SHA-256 hash
// of the raw key is retained.
type APIKey struct {
	KeyID     string     `json:"key_id"`
	UserID    string     `json:"user_id"`
	Name      string     `json:"name"`
	KeyHash   string     `json:"-"`
	CreatedAt time.Time  `json:"created_at"`
	LastUsed  *time.Time `json:"last_used,omitempty"`
	RevokedAt *time.Time `json:"revoked_at,omitempty"`
}
