package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/ecomtrend/ecomtrend/internal/core/store"
	apperrors "github.com/ecomtrend/ecomtrend/internal/errors"
)

// NewsletterAPI serves newsletter signup, confirmation and unsubscribe.
type NewsletterAPI struct {
	Store *store.Store
	Clock func() time.Time
}

// NewNewsletterAPI constructs the newsletter handler group.
func NewNewsletterAPI(st *store.Store) *NewsletterAPI {
	return &NewsletterAPI{Store: st, Clock: time.Now}
}

type newsletterRequest struct {
	Email string `json:"email"`
}

// Subscribe handles POST /api/v1/newsletter/subscribe. Re-subscribing an
// existing address reactivates it.
func (h *NewsletterAPI) Subscribe(w http.ResponseWriter, r *http.Request) {
	email, ok := h.decodeEmail(w, r)
	if !ok {
		return
	}

	if err := h.Store.UpsertSubscriber(r.Context(), email, h.now()); err != nil {
		respondWithError(w, r, apperrors.WrapDatabaseError(r.Context(), err, "failed to store subscriber"))
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"status": "subscribed", "email": email})
}

// Confirm handles POST /api/v1/newsletter/confirm, completing double opt-in.
func (h *NewsletterAPI) Confirm(w http.ResponseWriter, r *http.Request) {
	email, ok := h.decodeEmail(w, r)
	if !ok {
		return
	}

	if err := h.Store.ConfirmSubscriber(r.Context(), email, h.now()); err != nil {
		respondWithError(w, r, apperrors.NewNotFoundError("subscriber not found or already confirmed"))
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "confirmed", "email": email})
}

// Unsubscribe handles POST /api/v1/newsletter/unsubscribe. Unsubscribing is
// idempotent; unknown addresses return success.
func (h *NewsletterAPI) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	email, ok := h.decodeEmail(w, r)
	if !ok {
		return
	}

	if err := h.Store.Unsubscribe(r.Context(), email); err != nil {
		respondWithError(w, r, apperrors.WrapDatabaseError(r.Context(), err, "failed to unsubscribe"))
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "unsubscribed", "email": email})
}

func (h *NewsletterAPI) decodeEmail(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req newsletterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, r, apperrors.NewInvalidInputError("request body must be valid JSON"))
		return "", false
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if !plausibleEmail(email) {
		respondWithError(w, r, apperrors.NewValidationError("email address is not valid"))
		return "", false
	}
	return email, true
}

func (h *NewsletterAPI) now() time.Time {
	if h.Clock != nil {
		return h.Clock()
	}
	return time.Now()
}

// plausibleEmail applies the same shape check used at registration.
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
