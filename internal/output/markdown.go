package output

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ecomtrend/ecomtrend/internal/core"
)

// MarkdownFormatter renders the newsletter-style Markdown report. This is the
// layout distributed to subscribers and published to the reports directory.
type MarkdownFormatter struct{}

func (f *MarkdownFormatter) FormatReport(report *Report) (string, error) {
	if report == nil {
		return "", fmt.Errorf("report is nil")
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("# %s\n\n", escapeMarkdownCell(report.Title)))
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", report.GeneratedAt.Format("2006-01-02 15:04 MST")))

	sb.WriteString("## Top Trending Products\n\n")
	writeMarkdownTable(&sb, report.Top)

	if len(report.Significant) > 0 {
		sb.WriteString("\n## Significant Movers\n\n")
		writeMarkdownTable(&sb, report.Significant)
	}

	if len(report.ByCategory) > 0 {
		categories := report.Categories
		if len(categories) == 0 {
			for name := range report.ByCategory {
				categories = append(categories, name)
			}
			sort.Strings(categories)
		}
		for _, name := range categories {
			rows := report.ByCategory[name]
			if len(rows) == 0 {
				continue
			}
			sb.WriteString(fmt.Sprintf("\n## %s\n\n", escapeMarkdownCell(name)))
			writeMarkdownTable(&sb, rows)
		}
	}

	return sb.String(), nil
}

func writeMarkdownTable(sb *strings.Builder, rows []core.TrendResult) {
	sb.WriteString("| # | Product | Score | Rank % | Reviews | Rating | Price |\n")
	sb.WriteString("|---|---------|-------|----------|---------|--------|-------|\n")
	for i, row := range rows {
		name := escapeMarkdownCell(row.Name)
		if row.AffiliateURL != "" {
			name = fmt.Sprintf("[%s](%s)", name, row.AffiliateURL)
		}
		sb.WriteString(fmt.Sprintf("| %d | %s | %s | %s | %s | %s | %s |\n",
			i+1,
			name,
			formatScore(row.TrendScore),
			formatOptionalFloat(row.RankChangePercent),
			formatOptionalInt(row.ReviewCount),
			formatOptionalFloat(row.Rating),
			formatPrice(row.ProductSnapshot),
		))
	}
}

// escapeMarkdownCell keeps pipes from breaking table layout.
func escapeMarkdownCell(s string) string {
	return strings.ReplaceAll(s, "|", "\\|")
}
