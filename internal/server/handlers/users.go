package handlers

import (
	"encoding/json"
	goerrors "errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ecomtrend/ecomtrend/internal/auth"
	"github.com/ecomtrend/ecomtrend/internal/core"
	"github.com/ecomtrend/ecomtrend/internal/core/store"
	apperrors "github.com/ecomtrend/ecomtrend/internal/errors"
	"github.com/ecomtrend/ecomtrend/internal/server/middleware"
)

// UsersAPI serves account registration and API key management.
type UsersAPI struct {
	Auth *auth.Service
}

// NewUsersAPI constructs the users handler group.
func NewUsersAPI(svc *auth.Service) *UsersAPI {
	return &UsersAPI{Auth: svc}
}

// RegisterRequest is the body for POST /api/v1/users/register.
type RegisterRequest struct {
	Email        string `json:"email"`
	ReferralCode string `json:"referral_code,omitempty"`
}

// RegisterResponse returns the new account and its first API key. The raw key
// appears here exactly once; it cannot be recovered later.
type RegisterResponse struct {
	User            *core.User     `json:"user"`
	APIKey          string         `json:"api_key"`
	KeyID           string         `json:"key_id"`
	Referral        *core.Referral `json:"referral,omitempty"`
	ReferralWarning string         `json:"referral_warning,omitempty"`
}

// Register handles POST /api/v1/users/register.
func (h *UsersAPI) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, r, apperrors.NewInvalidInputError("request body must be valid JSON"))
		return
	}

	user, err := h.Auth.RegisterUser(r.Context(), req.Email)
	if err != nil {
		switch {
		case goerrors.Is(err, auth.ErrInvalidEmail):
			respondWithError(w, r, apperrors.NewValidationError("email address is not valid"))
		case goerrors.Is(err, store.ErrDuplicateEmail):
			respondWithError(w, r, apperrors.NewConflictError("email already registered"))
		default:
			respondWithError(w, r, apperrors.WrapDatabaseError(r.Context(), err, "failed to register user"))
		}
		return
	}

	rawKey, key, err := h.Auth.GenerateAPIKey(r.Context(), user.ID, "default")
	if err != nil {
		respondWithError(w, r, apperrors.WrapDatabaseError(r.Context(), err, "failed to issue api key"))
		return
	}

	response := RegisterResponse{
		User:   user,
		APIKey: rawKey,
		KeyID:  key.KeyID,
	}

	// Referral redemption is best-effort; a bad code does not undo the signup.
	if code := strings.TrimSpace(req.ReferralCode); code != "" {
		referral, err := h.Auth.ApplyReferral(r.Context(), code, user.ID)
		if err != nil {
			response.ReferralWarning = referralWarning(err)
		} else {
			response.Referral = referral
		}
	}

	writeJSON(w, http.StatusCreated, response)
}

// MeResponse is the payload for GET /api/v1/users/me.
type MeResponse struct {
	User             *core.User      `json:"user"`
	PlanLimits       core.PlanLimits `json:"plan_limits"`
	CreditBalanceJPY int             `json:"credit_balance_jpy"`
}

// Me handles GET /api/v1/users/me.
func (h *UsersAPI) Me(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())
	if user == nil {
		respondWithError(w, r, apperrors.NewUnauthorizedError("api key required"))
		return
	}

	balance, err := h.Auth.CreditBalance(r.Context(), user.ID)
	if err != nil {
		respondWithError(w, r, apperrors.WrapDatabaseError(r.Context(), err, "failed to load credit balance"))
		return
	}

	writeJSON(w, http.StatusOK, MeResponse{
		User:             user,
		PlanLimits:       user.Plan.Limits(),
		CreditBalanceJPY: balance,
	})
}

// CreateKeyRequest is the body for POST /api/v1/users/api-keys.
type CreateKeyRequest struct {
	Name string `json:"name"`
}

// CreateKeyResponse returns the new key. The raw key appears exactly once.
type CreateKeyResponse struct {
	APIKey string       `json:"api_key"`
	Key    *core.APIKey `json:"key"`
}

// CreateKey handles POST /api/v1/users/api-keys.
func (h *UsersAPI) CreateKey(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())
	if user == nil {
		respondWithError(w, r, apperrors.NewUnauthorizedError("api key required"))
		return
	}

	var req CreateKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, r, apperrors.NewInvalidInputError("request body must be valid JSON"))
		return
	}

	raw, key, err := h.Auth.GenerateAPIKey(r.Context(), user.ID, req.Name)
	if err != nil {
		respondWithError(w, r, apperrors.WrapDatabaseError(r.Context(), err, "failed to issue api key"))
		return
	}

	writeJSON(w, http.StatusCreated, CreateKeyResponse{APIKey: raw, Key: key})
}

// ListKeys handles GET /api/v1/users/api-keys.
func (h *UsersAPI) ListKeys(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())
	if user == nil {
		respondWithError(w, r, apperrors.NewUnauthorizedError("api key required"))
		return
	}

	keys, err := h.Auth.ListAPIKeys(r.Context(), user.ID)
	if err != nil {
		respondWithError(w, r, apperrors.WrapDatabaseError(r.Context(), err, "failed to list api keys"))
		return
	}
	if keys == nil {
		keys = []core.APIKey{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"count": len(keys),
		"keys":  keys,
	})
}

// RevokeKey handles DELETE /api/v1/users/api-keys/{keyID}.
func (h *UsersAPI) RevokeKey(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())
	if user == nil {
		respondWithError(w, r, apperrors.NewUnauthorizedError("api key required"))
		return
	}

	keyID := chi.URLParam(r, "keyID")
	if keyID == "" {
		respondWithError(w, r, apperrors.NewInvalidInputError("key id is required"))
		return
	}

	if err := h.Auth.RevokeAPIKey(r.Context(), user.ID, keyID); err != nil {
		respondWithError(w, r, apperrors.NewNotFoundError("api key not found or already revoked"))
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "revoked", "key_id": keyID})
}

// ReferralCode handles GET /api/v1/users/referral-code. The code is created
// on first request and stable afterwards.
func (h *UsersAPI) ReferralCode(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())
	if user == nil {
		respondWithError(w, r, apperrors.NewUnauthorizedError("api key required"))
		return
	}

	code, err := h.Auth.IssueReferralCode(r.Context(), user.ID)
	if err != nil {
		respondWithError(w, r, apperrors.WrapDatabaseError(r.Context(), err, "failed to issue referral code"))
		return
	}

	writeJSON(w, http.StatusOK, code)
}

func referralWarning(err error) string {
	switch {
	case goerrors.Is(err, auth.ErrUnknownReferralCode):
		return "referral code not found"
	case goerrors.Is(err, auth.ErrReferralNotRedeemable):
		return "referral code is no longer redeemable"
	case goerrors.Is(err, auth.ErrSelfReferral):
		return "cannot redeem your own referral code"
	case goerrors.Is(err, auth.ErrAlreadyReferred):
		return "referral code already redeemed"
	default:
		return "referral could not be applied"
	}
}
