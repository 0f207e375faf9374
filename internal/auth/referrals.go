package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/ecomtrend/ecomtrend/internal/core"
)

// Credits awarded when an invite is redeemed, in JPY.
const (
	referrerCreditJPY = 500
	referredCreditJPY = 200
)

// Referral errors surfaced to HTTP handlers.
var (
	ErrUnknownReferralCode   = errors.New("unknown referral code")
	ErrReferralNotRedeemable = errors.New("referral code is expired, exhausted or deactivated")
	ErrSelfReferral          = errors.New("cannot redeem your own referral code")
	ErrAlreadyReferred       = errors.New("referral code already redeemed by this user")
)

// IssueReferralCode returns the user's shareable invite code, creating one
// on first call. Codes are 8 uppercase hex characters.
func (s *Service) IssueReferralCode(ctx context.Context, userID string) (*core.ReferralCode, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, fmt.Errorf("user not found: %s", userID)
	}

	code, err := newReferralCode()
	if err != nil {
		return nil, err
	}

	effective, err := s.store.UpsertReferralCode(ctx, core.ReferralCode{
		Code:      code,
		UserID:    user.ID,
		CreatedAt: s.clock().UTC(),
		MaxUses:   core.Unlimited,
		Active:    true,
	})
	if err != nil {
		return nil, err
	}

	return s.store.GetReferralCode(ctx, effective)
}

// ApplyReferral redeems an invite code for a newly registered user. A user
// can redeem one code, never their own; both sides receive account credit.
func (s *Service) ApplyReferral(ctx context.Context, code, referredUserID string) (*core.Referral, error) {
	record, err := s.store.GetReferralCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, ErrUnknownReferralCode
	}
	if !record.Redeemable(s.clock()) {
		return nil, ErrReferralNotRedeemable
	}

	if record.UserID == strings.TrimSpace(referredUserID) {
		return nil, ErrSelfReferral
	}

	existing, err := s.store.GetReferral(ctx, referredUserID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrAlreadyReferred
	}

	referral := core.Referral{
		Code:           record.Code,
		ReferrerUserID: record.UserID,
		ReferredUserID: strings.TrimSpace(referredUserID),
		ReferredAt:     s.clock().UTC(),
		ReferrerCredit: referrerCreditJPY,
		ReferredCredit: referredCreditJPY,
	}

	if err := s.store.InsertReferral(ctx, referral); err != nil {
		return nil, err
	}

	return &referral, nil
}

// CreditBalance returns the user's accumulated referral credit in JPY.
func (s *Service) CreditBalance(ctx context.Context, userID string) (int, error) {
	return s.store.CreditBalance(ctx, userID)
}

func newReferralCode() (string, error) {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate referral code: %w", err)
	}
	return strings.ToUpper(hex.EncodeToString(buf)), nil
}
