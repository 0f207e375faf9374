// Package analyzer turns collected product snapshots into ranked trend scores.
//
// Scoring is best-effort: rows with missing optional fields contribute zero
// for those factors and never produce an error.
package analyzer

import (
	"math"
	"sort"

	"github.com/ecomtrend/ecomtrend/internal/core"
)

// Weighting caps for the three score contributions.
const (
	rankChangeCap = 50.0
	reviewCap     = 30.0
	ratingFloor   = 4.0
	ratingWeight  = 20.0
)

// significantPool is the candidate pool examined by DetectSignificant.
const significantPool = 100

// Score computes the composite trend score for one snapshot.
//
// Contributions:
//   - rank change: rank_change_percent / 2, capped at 50. The raw value is
//     used as-is, so a negative rank change (a falling product) lowers the
//     total below what the other factors alone would give.
//   - reviews: log10(review_count) * 10 when review_count > 0, capped at 30.
//   - rating: (rating - 4.0) * 20 when rating >= 4.0.
//
// The sum is rounded to 2 decimal places.
func Score(row core.ProductSnapshot) float64 {
	score := 0.0

	if row.RankChangePercent != nil {
		score += math.Min(*row.RankChangePercent/2, rankChangeCap)
	}

	if row.ReviewCount != nil && *row.ReviewCount > 0 {
		score += math.Min(math.Log10(float64(*row.ReviewCount))*10, reviewCap)
	}

	if row.Rating != nil && *row.Rating >= ratingFloor {
		score += (*row.Rating - ratingFloor) * ratingWeight
	}

	return math.Round(score*100) / 100
}

// scoreAll scores every row, preserving input order.
func scoreAll(rows []core.ProductSnapshot) []core.TrendResult {
	results := make([]core.TrendResult, 0, len(rows))
	for _, row := range rows {
		results = append(results, core.TrendResult{
			ProductSnapshot: row,
			TrendScore:      Score(row),
		})
	}
	return results
}

// sortByScore orders results descending by score. The sort is stable, so
// equal scores keep their original input order.
func sortByScore(results []core.TrendResult) {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].TrendScore > results[j].TrendScore
	})
}

// RankTop scores all rows and returns the topN highest, sorted descending.
// An empty input yields an empty slice.
func RankTop(rows []core.ProductSnapshot, topN int) []core.TrendResult {
	results := scoreAll(rows)
	sortByScore(results)

	if topN < 0 {
		topN = 0
	}
	if topN < len(results) {
		results = results[:topN]
	}
	return results
}

// CategoryTrends holds per-category rankings plus the category order of first
// occurrence in the input, so callers can iterate deterministically.
type CategoryTrends struct {
	Categories []string
	ByCategory map[string][]core.TrendResult
}

// GroupByCategory partitions rows by exact category label, scores and sorts
// each partition descending, and truncates each to perCategoryLimit.
func GroupByCategory(rows []core.ProductSnapshot, perCategoryLimit int) CategoryTrends {
	grouped := CategoryTrends{
		ByCategory: make(map[string][]core.TrendResult),
	}

	for _, result := range scoreAll(rows) {
		if _, seen := grouped.ByCategory[result.Category]; !seen {
			grouped.Categories = append(grouped.Categories, result.Category)
		}
		grouped.ByCategory[result.Category] = append(grouped.ByCategory[result.Category], result)
	}

	for category, results := range grouped.ByCategory {
		sortByScore(results)
		if perCategoryLimit >= 0 && perCategoryLimit < len(results) {
			results = results[:perCategoryLimit]
		}
		grouped.ByCategory[category] = results
	}

	return grouped
}

// DetectSignificant returns the top-ranked rows whose rank-change percentage
// meets thresholdPercent, examining the 100 highest-scoring candidates.
func DetectSignificant(rows []core.ProductSnapshot, thresholdPercent float64) []core.TrendResult {
	return DetectSignificantN(rows, thresholdPercent, significantPool)
}

// DetectSignificantN is DetectSignificant with an explicit candidate pool size.
func DetectSignificantN(rows []core.ProductSnapshot, thresholdPercent float64, pool int) []core.TrendResult {
	candidates := RankTop(rows, pool)
	significant := make([]core.TrendResult, 0, len(candidates))
	for _, result := range candidates {
		if result.RankChangeValue() >= thresholdPercent {
			significant = append(significant, result)
		}
	}
	return significant
}
