package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	apperrors "github.com/ecomtrend/ecomtrend/internal/errors"
	"github.com/ecomtrend/ecomtrend/internal/metrics"

	"github.com/ecomtrend/ecomtrend/internal/core"
	"github.com/ecomtrend/ecomtrend/internal/core/analyzer"
	"github.com/ecomtrend/ecomtrend/internal/core/snapshot"
	"github.com/ecomtrend/ecomtrend/internal/server/middleware"
)

// Query parameter bounds for trend listings.
const (
	defaultTrendLimit   = 20
	maxTrendLimit       = 100
	anonymousTrendLimit = 10
	defaultThreshold    = 50.0
)

// TrendsAPI serves scored trend data from the latest snapshot. Results are
// computed per request; nothing is cached between calls.
type TrendsAPI struct {
	Loader       *snapshot.Loader
	AffiliateTag string
	Clock        func() time.Time
}

// NewTrendsAPI constructs the trends handler group.
func NewTrendsAPI(loader *snapshot.Loader, affiliateTag string) *TrendsAPI {
	return &TrendsAPI{Loader: loader, AffiliateTag: affiliateTag, Clock: time.Now}
}

// TrendListResponse is the payload for trend listings.
type TrendListResponse struct {
	GeneratedAt time.Time          `json:"generated_at"`
	Count       int                `json:"count"`
	Category    string             `json:"category,omitempty"`
	Threshold   *float64           `json:"threshold,omitempty"`
	Trends      []core.TrendResult `json:"trends"`
}

// CategoryTrendsResponse is the payload for per-category listings.
type CategoryTrendsResponse struct {
	GeneratedAt time.Time                     `json:"generated_at"`
	Categories  []string                      `json:"categories"`
	Truncated   bool                          `json:"truncated,omitempty"`
	ByCategory  map[string][]core.TrendResult `json:"by_category"`
}

// List handles GET /api/v1/trends.
func (h *TrendsAPI) List(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r.URL.Query(), h.limitCap(r))
	if err != nil {
		respondWithError(w, r, apperrors.NewInvalidInputError(err.Error()))
		return
	}

	rows, err := h.loadRows(w, r)
	if rows == nil || err != nil {
		return
	}

	category := r.URL.Query().Get("category")
	if category != "" {
		filtered := rows[:0:0]
		for _, row := range rows {
			if row.Category == category {
				filtered = append(filtered, row)
			}
		}
		rows = filtered
	}

	started := h.now()
	results := analyzer.RankTop(rows, limit)
	metrics.RecordTrendScoring(len(rows), h.now().Sub(started))

	writeJSON(w, http.StatusOK, TrendListResponse{
		GeneratedAt: h.now().UTC(),
		Count:       len(results),
		Category:    category,
		Trends:      results,
	})
}

// Categories handles GET /api/v1/trends/categories. The number of categories
// returned is capped by the caller's plan; anonymous callers get the free
// tier's cap.
func (h *TrendsAPI) Categories(w http.ResponseWriter, r *http.Request) {
	perCategory, err := parsePositiveInt(r.URL.Query().Get("per_category"), 5)
	if err != nil {
		respondWithError(w, r, apperrors.NewInvalidInputError("per_category must be a positive integer"))
		return
	}
	if perCategory > maxTrendLimit {
		perCategory = maxTrendLimit
	}

	rows, err := h.loadRows(w, r)
	if rows == nil || err != nil {
		return
	}

	started := h.now()
	grouped := analyzer.GroupByCategory(rows, perCategory)
	metrics.RecordTrendScoring(len(rows), h.now().Sub(started))

	maxCategories := planFor(r).Limits().Categories
	truncated := false
	categories := grouped.Categories
	if maxCategories != core.Unlimited && maxCategories < len(categories) {
		for _, dropped := range categories[maxCategories:] {
			delete(grouped.ByCategory, dropped)
		}
		categories = categories[:maxCategories]
		truncated = true
	}

	writeJSON(w, http.StatusOK, CategoryTrendsResponse{
		GeneratedAt: h.now().UTC(),
		Categories:  categories,
		Truncated:   truncated,
		ByCategory:  grouped.ByCategory,
	})
}

// Significant handles GET /api/v1/trends/significant. Mover detection is a
// paid feature; free and anonymous callers are directed to upgrade.
func (h *TrendsAPI) Significant(w http.ResponseWriter, r *http.Request) {
	if plan := planFor(r); plan == core.PlanFree {
		respondWithError(w, r, apperrors.NewPlanUpgradeRequiredError("significant mover detection requires the pro plan"))
		return
	}

	threshold := defaultThreshold
	if raw := r.URL.Query().Get("threshold"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			respondWithError(w, r, apperrors.NewInvalidInputError("threshold must be a number"))
			return
		}
		threshold = parsed
	}

	rows, err := h.loadRows(w, r)
	if rows == nil || err != nil {
		return
	}

	started := h.now()
	results := analyzer.DetectSignificant(rows, threshold)
	metrics.RecordTrendScoring(len(rows), h.now().Sub(started))

	writeJSON(w, http.StatusOK, TrendListResponse{
		GeneratedAt: h.now().UTC(),
		Count:       len(results),
		Threshold:   &threshold,
		Trends:      results,
	})
}

// loadRows reads the latest snapshot and applies the affiliate tag. On failure
// it writes the error response and returns nil.
func (h *TrendsAPI) loadRows(w http.ResponseWriter, r *http.Request) ([]core.ProductSnapshot, error) {
	rows, err := h.Loader.LoadLatest()
	if err != nil {
		respondWithError(w, r, apperrors.WrapDataProcessing(r.Context(), err, "failed to load snapshot data"))
		return nil, err
	}
	if rows == nil {
		rows = []core.ProductSnapshot{}
	}
	return h.applyAffiliateTag(rows), nil
}

// applyAffiliateTag fills in affiliate links for rows that lack one.
func (h *TrendsAPI) applyAffiliateTag(rows []core.ProductSnapshot) []core.ProductSnapshot {
	if h.AffiliateTag == "" {
		return rows
	}
	for i := range rows {
		if rows[i].AffiliateURL == "" && rows[i].ASIN != "" {
			rows[i].AffiliateURL = fmt.Sprintf("https://www.amazon.co.jp/dp/%s?tag=%s", rows[i].ASIN, url.QueryEscape(h.AffiliateTag))
		}
	}
	return rows
}

func (h *TrendsAPI) limitCap(r *http.Request) int {
	if middleware.UserFromContext(r.Context()) == nil {
		return anonymousTrendLimit
	}
	return maxTrendLimit
}

func (h *TrendsAPI) now() time.Time {
	if h.Clock != nil {
		return h.Clock()
	}
	return time.Now()
}

// planFor resolves the caller's plan, defaulting to free for anonymous access.
func planFor(r *http.Request) core.Plan {
	if user := middleware.UserFromContext(r.Context()); user != nil {
		return user.Plan
	}
	return core.PlanFree
}

func parseLimit(query url.Values, maxAllowed int) (int, error) {
	limit, err := parsePositiveInt(query.Get("limit"), defaultTrendLimit)
	if err != nil {
		return 0, fmt.Errorf("limit must be a positive integer")
	}
	if limit > maxAllowed {
		limit = maxAllowed
	}
	return limit, nil
}

func parsePositiveInt(raw string, fallback int) (int, error) {
	if raw == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed <= 0 {
		return 0, fmt.Errorf("expected a positive integer, got %q", raw)
	}
	return parsed, nil
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
