package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/ecomtrend/ecomtrend/internal/core/analyzer"
	"github.com/ecomtrend/ecomtrend/internal/core/snapshot"
	apperrors "github.com/ecomtrend/ecomtrend/internal/errors"
	"github.com/ecomtrend/ecomtrend/internal/output"
	"github.com/ecomtrend/ecomtrend/internal/server/middleware"
)

// ExportAPI serves downloadable trend reports gated by plan.
type ExportAPI struct {
	Trends *TrendsAPI
	Clock  func() time.Time
}

// NewExportAPI constructs the export handler.
func NewExportAPI(trends *TrendsAPI) *ExportAPI {
	return &ExportAPI{Trends: trends, Clock: time.Now}
}

// Export handles GET /api/v1/export?format=. The format must be one the
// caller's plan includes; the route requires an API key.
func (h *ExportAPI) Export(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())
	if user == nil {
		respondWithError(w, r, apperrors.NewUnauthorizedError("api key required"))
		return
	}

	requested := r.URL.Query().Get("format")
	if requested == "" {
		requested = string(output.FormatMarkdown)
	}

	format, err := output.ParseFormat(requested)
	if err != nil || format == output.FormatTable {
		respondWithError(w, r, apperrors.NewInvalidInputError(fmt.Sprintf("format %q is not exportable", requested)))
		return
	}

	if !user.Plan.Limits().CanExport(string(format)) {
		respondWithError(w, r, apperrors.NewPlanUpgradeRequiredError(
			fmt.Sprintf("the %s plan does not include %s export", user.Plan, format)))
		return
	}

	limit, err := parseLimit(r.URL.Query(), maxTrendLimit)
	if err != nil {
		respondWithError(w, r, apperrors.NewInvalidInputError(err.Error()))
		return
	}

	rows, loadErr := h.Trends.loadRows(w, r)
	if rows == nil || loadErr != nil {
		return
	}

	now := h.now().UTC()
	report := &output.Report{
		Title:       "EcomTrend Report " + now.Format("2006-01-02"),
		GeneratedAt: now,
		Top:         analyzer.RankTop(rows, limit),
		Significant: analyzer.DetectSignificant(rows, defaultThreshold),
	}

	rendered, err := output.NewFormatter(format).FormatReport(report)
	if err != nil {
		respondWithError(w, r, apperrors.WrapDataProcessing(r.Context(), err, "failed to render report"))
		return
	}

	filename := fmt.Sprintf("ecomtrend_%s.%s", now.Format("20060102"), format.Extension())
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(rendered))
}

func (h *ExportAPI) now() time.Time {
	if h.Clock != nil {
		return h.Clock()
	}
	return time.Now()
}

// BuildReport assembles the report the export and distribution paths share.
func BuildReport(loader *snapshot.Loader, affiliateTag string, limit int, at time.Time) (*output.Report, error) {
	trends := NewTrendsAPI(loader, affiliateTag)
	rows, err := loader.LoadLatest()
	if err != nil {
		return nil, err
	}
	rows = trends.applyAffiliateTag(rows)

	grouped := analyzer.GroupByCategory(rows, limit)
	return &output.Report{
		Title:       "EcomTrend Report " + at.UTC().Format("2006-01-02"),
		GeneratedAt: at.UTC(),
		Top:         analyzer.RankTop(rows, limit),
		Significant: analyzer.DetectSignificant(rows, defaultThreshold),
		Categories:  grouped.Categories,
		ByCategory:  grouped.ByCategory,
	}, nil
}
