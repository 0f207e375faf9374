package output

import (
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
)

// CSVFormatter renders the report's top products as CSV, one row per product.
// Spreadsheet imports are the main consumer, so optional cells stay empty
// rather than using placeholder dashes.
type CSVFormatter struct{}

func (f *CSVFormatter) FormatReport(report *Report) (string, error) {
	if report == nil {
		return "", fmt.Errorf("report is nil")
	}

	var sb strings.Builder
	w := csv.NewWriter(&sb)

	header := []string{"rank", "asin", "name", "category", "trend_score", "current_rank", "rank_change_percent", "review_count", "rating", "price", "currency", "affiliate_url"}
	if err := w.Write(header); err != nil {
		return "", fmt.Errorf("failed to write csv header: %w", err)
	}

	for i, row := range report.Top {
		record := []string{
			strconv.Itoa(i + 1),
			row.ASIN,
			row.Name,
			row.Category,
			formatScore(row.TrendScore),
			strconv.Itoa(row.CurrentRank),
			csvOptionalFloat(row.RankChangePercent),
			csvOptionalInt(row.ReviewCount),
			csvOptionalFloat(row.Rating),
			csvOptionalFloat(row.Price),
			row.Currency,
			row.AffiliateURL,
		}
		if err := w.Write(record); err != nil {
			return "", fmt.Errorf("failed to write csv row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("failed to flush csv: %w", err)
	}
	return sb.String(), nil
}

func csvOptionalInt(value *int) string {
	if value == nil {
		return ""
	}
	return strconv.Itoa(*value)
}

func csvOptionalFloat(value *float64) string {
	if value == nil {
		return ""
	}
	return strconv.FormatFloat(*value, 'f', -1, 64)
}
