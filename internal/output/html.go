package output

import (
	"fmt"
	"html/template"
	"strings"

	"github.com/ecomtrend/ecomtrend/internal/core"
)

// HTMLFormatter renders the report as a standalone HTML page suitable for
// email bodies and exports.
type HTMLFormatter struct{}

var htmlReportTemplate = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html lang="ja">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: sans-serif; margin: 2em; color: #222; }
table { border-collapse: collapse; margin-bottom: 2em; }
th, td { border: 1px solid #ccc; padding: 6px 10px; text-align: left; }
th { background: #f4f4f4; }
.generated { color: #666; font-size: 0.9em; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
<p class="generated">Generated: {{.Generated}}</p>
<h2>Top Trending Products</h2>
{{.TopTable}}
{{if .SignificantTable}}<h2>Significant Movers</h2>
{{.SignificantTable}}{{end}}
</body>
</html>
`))

type htmlReportData struct {
	Title            string
	Generated        string
	TopTable         template.HTML
	SignificantTable template.HTML
}

func (f *HTMLFormatter) FormatReport(report *Report) (string, error) {
	if report == nil {
		return "", fmt.Errorf("report is nil")
	}

	data := htmlReportData{
		Title:     report.Title,
		Generated: report.GeneratedAt.Format("2006-01-02 15:04 MST"),
		TopTable:  renderHTMLTable(report.Top),
	}
	if len(report.Significant) > 0 {
		data.SignificantTable = renderHTMLTable(report.Significant)
	}

	var sb strings.Builder
	if err := htmlReportTemplate.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("failed to render html report: %w", err)
	}
	return sb.String(), nil
}

func renderHTMLTable(rows []core.TrendResult) template.HTML {
	var sb strings.Builder
	sb.WriteString("<table>\n<tr><th>#</th><th>Product</th><th>Category</th><th>Score</th><th>Rank %</th><th>Reviews</th><th>Rating</th><th>Price</th></tr>\n")
	for i, row := range rows {
		name := template.HTMLEscapeString(row.Name)
		if row.AffiliateURL != "" {
			name = fmt.Sprintf(`<a href="%s">%s</a>`, template.HTMLEscapeString(row.AffiliateURL), name)
		}
		sb.WriteString(fmt.Sprintf("<tr><td>%d</td><td>%s</td><td>%s</td><td>%s</td><td>%s</td><td>%s</td><td>%s</td><td>%s</td></tr>\n",
			i+1,
			name,
			template.HTMLEscapeString(row.Category),
			formatScore(row.TrendScore),
			formatOptionalFloat(row.RankChangePercent),
			formatOptionalInt(row.ReviewCount),
			formatOptionalFloat(row.Rating),
			formatPrice(row.ProductSnapshot),
		))
	}
	sb.WriteString("</table>")
	// Cells are individually escaped above.
	return template.HTML(sb.String()) // #nosec G203
}
