// Package output renders trend reports in the formats the subscription
// tiers can export: terminal table, JSON, Markdown, CSV and HTML.
package output

import (
	"fmt"
	"strings"
	"time"

	"github.com/ecomtrend/ecomtrend/internal/core"
)

// Format represents an output format.
type Format string

const (
	FormatTable    Format = "table"
	FormatJSON     Format = "json"
	FormatMarkdown Format = "md"
	FormatCSV      Format = "csv"
	FormatHTML     Format = "html"
)

// Report is a fully assembled trend report ready for rendering.
type Report struct {
	Title       string                        `json:"title"`
	GeneratedAt time.Time                     `json:"generated_at"`
	Top         []core.TrendResult            `json:"top"`
	Significant []core.TrendResult            `json:"significant,omitempty"`
	Categories  []string                      `json:"categories,omitempty"`
	ByCategory  map[string][]core.TrendResult `json:"by_category,omitempty"`
}

// Formatter renders a trend report.
type Formatter interface {
	FormatReport(report *Report) (string, error)
}

// ParseFormat validates and normalizes a format string.
func ParseFormat(value string) (Format, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	switch normalized {
	case "", string(FormatTable):
		return FormatTable, nil
	case string(FormatJSON):
		return FormatJSON, nil
	case string(FormatMarkdown), "markdown":
		return FormatMarkdown, nil
	case string(FormatCSV):
		return FormatCSV, nil
	case string(FormatHTML):
		return FormatHTML, nil
	default:
		return "", fmt.Errorf("unsupported output format: %s", value)
	}
}

// NewFormatter returns a formatter for the requested format.
func NewFormatter(format Format) Formatter {
	switch format {
	case FormatJSON:
		return &JSONFormatter{Indent: true}
	case FormatMarkdown:
		return &MarkdownFormatter{}
	case FormatCSV:
		return &CSVFormatter{}
	case FormatHTML:
		return &HTMLFormatter{}
	default:
		return &TableFormatter{}
	}
}

// ContentType returns the MIME type served for the format.
func (f Format) ContentType() string {
	switch f {
	case FormatJSON:
		return "application/json"
	case FormatCSV:
		return "text/csv; charset=utf-8"
	case FormatHTML:
		return "text/html; charset=utf-8"
	case FormatMarkdown:
		return "text/markdown; charset=utf-8"
	default:
		return "text/plain; charset=utf-8"
	}
}

// Extension returns the file extension used when writing reports to disk.
func (f Format) Extension() string {
	switch f {
	case FormatJSON:
		return "json"
	case FormatCSV:
		return "csv"
	case FormatHTML:
		return "html"
	case FormatMarkdown:
		return "md"
	default:
		return "txt"
	}
}

func formatScore(score float64) string {
	return fmt.Sprintf("%.2f", score)
}

func formatOptionalInt(value *int) string {
	if value == nil {
		return "-"
	}
	return fmt.Sprintf("%d", *value)
}

func formatOptionalFloat(value *float64) string {
	if value == nil {
		return "-"
	}
	return fmt.Sprintf("%.1f", *value)
}

func formatPrice(row core.ProductSnapshot) string {
	if row.Price == nil {
		return "-"
	}
	currency := row.Currency
	if currency == "" {
		currency = "JPY"
	}
	return fmt.Sprintf("%.0f %s", *row.Price, currency)
}
