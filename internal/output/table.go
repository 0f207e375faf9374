package output

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/ecomtrend/ecomtrend/internal/core"
)

// TableFormatter renders reports as terminal tables using go-pretty.
type TableFormatter struct{}

// FormatReport renders the report's top products as a rounded table, with a
// second table for significant movers when present.
func (f *TableFormatter) FormatReport(report *Report) (string, error) {
	if report == nil {
		return "", fmt.Errorf("report is nil")
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s (generated %s)\n", report.Title, report.GeneratedAt.Format("2006-01-02 15:04 MST")))
	sb.WriteString(renderTrendTable(report.Top))

	if len(report.Significant) > 0 {
		sb.WriteString("\nSignificant movers\n")
		sb.WriteString(renderTrendTable(report.Significant))
	}

	return sb.String(), nil
}

func renderTrendTable(rows []core.TrendResult) string {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"#", "ASIN", "Product", "Category", "Score", "Rank %", "Reviews", "Rating", "Price"})

	for i, row := range rows {
		t.AppendRow(table.Row{
			i + 1,
			row.ASIN,
			truncate(row.Name, 40),
			row.Category,
			formatScore(row.TrendScore),
			formatOptionalFloat(row.RankChangePercent),
			formatOptionalInt(row.ReviewCount),
			formatOptionalFloat(row.Rating),
			formatPrice(row.ProductSnapshot),
		})
	}

	t.AppendFooter(table.Row{"", "", "", "", "", "", "", "Total", len(rows)})
	return t.Render() + "\n"
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-1]) + "..."
}
