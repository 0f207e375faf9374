// Package snapshot reads and writes the collected product snapshot files the
// analyzer consumes. Files are CSVs named products_YYYYMMDD_HHMMSS.csv in the
// raw data directory; the newest file is the current dataset.
package snapshot

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ecomtrend/ecomtrend/internal/core"
)

const filePattern = "products_*.csv"

var csvHeader = []string{
	"asin", "name", "category", "current_rank", "previous_rank",
	"rank_change", "rank_change_percent", "price", "currency",
	"review_count", "rating", "affiliate_url", "timestamp", "source",
}

// Loader reads snapshot files from a data directory.
type Loader struct {
	dataDir string
}

// NewLoader constructs a Loader rooted at dataDir.
func NewLoader(dataDir string) *Loader {
	return &Loader{dataDir: dataDir}
}

// snapshotFiles returns the matching files sorted ascending by name. The
// timestamped naming scheme makes lexical order chronological.
func (l *Loader) snapshotFiles() ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(l.dataDir, filePattern))
	if err != nil {
		return nil, fmt.Errorf("list snapshot files: %w", err)
	}
	sort.Strings(matches)
	return matches, nil
}

// LoadLatest reads the newest snapshot file. A missing directory or an empty
// directory yields an empty slice, not an error: scoring a dataset that does
// not exist is a normal empty result.
func (l *Loader) LoadLatest() ([]core.ProductSnapshot, error) {
	files, err := l.snapshotFiles()
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, nil
	}
	return readFile(files[len(files)-1])
}

// LoadHistorical reads and concatenates the newest `days` snapshot files,
// assuming one collection run per day.
func (l *Loader) LoadHistorical(days int) ([]core.ProductSnapshot, error) {
	files, err := l.snapshotFiles()
	if err != nil {
		return nil, err
	}
	if len(files) == 0 || days <= 0 {
		return nil, nil
	}

	if len(files) > days {
		files = files[len(files)-days:]
	}

	var rows []core.ProductSnapshot
	for _, file := range files {
		batch, err := readFile(file)
		if err != nil {
			return nil, err
		}
		rows = append(rows, batch...)
	}
	return rows, nil
}

// Write saves rows as a new snapshot file named for the given time and
// returns the path.
func (l *Loader) Write(rows []core.ProductSnapshot, at time.Time) (string, error) {
	if err := os.MkdirAll(l.dataDir, 0o755); err != nil {
		return "", fmt.Errorf("create data directory: %w", err)
	}

	path := filepath.Join(l.dataDir, fmt.Sprintf("products_%s.csv", at.Format("20060102_150405")))
	f, err := os.Create(path) // #nosec G304 -- path is derived from configured data dir
	if err != nil {
		return "", fmt.Errorf("create snapshot file: %w", err)
	}
	defer f.Close() // nolint:errcheck // best-effort cleanup

	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		return "", fmt.Errorf("write snapshot header: %w", err)
	}

	for _, row := range rows {
		record := []string{
			row.ASIN,
			row.Name,
			row.Category,
			strconv.Itoa(row.CurrentRank),
			formatOptionalInt(row.PreviousRank),
			formatOptionalInt(row.RankChange),
			formatOptionalFloat(row.RankChangePercent),
			formatOptionalFloat(row.Price),
			row.Currency,
			formatOptionalInt(row.ReviewCount),
			formatOptionalFloat(row.Rating),
			row.AffiliateURL,
			row.CollectedAt.UTC().Format(time.RFC3339),
			"movers_shakers",
		}
		if err := w.Write(record); err != nil {
			return "", fmt.Errorf("write snapshot row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("flush snapshot file: %w", err)
	}
	return path, nil
}

func readFile(path string) ([]core.ProductSnapshot, error) {
	f, err := os.Open(path) // #nosec G304 -- path comes from the configured data dir glob
	if err != nil {
		return nil, fmt.Errorf("open snapshot file: %w", err)
	}
	defer f.Close() // nolint:errcheck // read-only file

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("read snapshot header: %w", err)
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		// Files written by utf-8-sig tooling carry a BOM on the first cell.
		columns[strings.TrimPrefix(strings.TrimSpace(name), "\uFEFF")] = i
	}

	var rows []core.ProductSnapshot
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read snapshot row: %w", err)
		}

		row := core.ProductSnapshot{
			ASIN:              field(record, columns, "asin"),
			Name:              field(record, columns, "name"),
			Category:          field(record, columns, "category"),
			Currency:          field(record, columns, "currency"),
			AffiliateURL:      field(record, columns, "affiliate_url"),
			PreviousRank:      parseOptionalInt(field(record, columns, "previous_rank")),
			RankChange:        parseOptionalInt(field(record, columns, "rank_change")),
			RankChangePercent: parseOptionalFloat(field(record, columns, "rank_change_percent")),
			Price:             parseOptionalFloat(field(record, columns, "price")),
			ReviewCount:       parseOptionalInt(field(record, columns, "review_count")),
			Rating:            parseOptionalFloat(field(record, columns, "rating")),
		}

		if rank, err := strconv.Atoi(field(record, columns, "current_rank")); err == nil {
			row.CurrentRank = rank
		}
		if ts, err := time.Parse(time.RFC3339, field(record, columns, "timestamp")); err == nil {
			row.CollectedAt = ts
		}

		rows = append(rows, row)
	}
	return rows, nil
}

func field(record []string, columns map[string]int, name string) string {
	idx, ok := columns[name]
	if !ok || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}

// parseOptionalInt maps empty or malformed cells to absent.
func parseOptionalInt(value string) *int {
	if value == "" {
		return nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return nil
	}
	return &parsed
}

func parseOptionalFloat(value string) *float64 {
	if value == "" {
		return nil
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil
	}
	return &parsed
}

func formatOptionalInt(value *int) string {
	if value == nil {
		return ""
	}
	return strconv.Itoa(*value)
}

func formatOptionalFloat(value *float64) string {
	if value == nil {
		return ""
	}
	return strconv.FormatFloat(*value, 'f', -1, 64)
}
