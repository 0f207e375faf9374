package snapshot

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ecomtrend/ecomtrend/internal/core"
)

func writeCSV(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

const sampleCSV = `asin,name,category,current_rank,previous_rank,rank_change,rank_change_percent,price,currency,review_count,rating,affiliate_url,timestamp,source
B0TEST0001,Wireless Earbuds,electronics,3,12,9,75.0,4980,JPY,1523,4.4,https://amazon.co.jp/dp/B0TEST0001?tag=ecomtrend-22,2025-06-01T06:00:00Z,movers_shakers
B0TEST0002,Mini Blender,kitchen,8,,,,-,JPY,,,https://amazon.co.jp/dp/B0TEST0002?tag=ecomtrend-22,2025-06-01T06:00:00Z,movers_shakers
`

func TestLoadLatestPicksNewestFile(t *testing.T) {
	dir := t.TempDir()
	writeCSV(t, dir, "products_20250530_060000.csv", "asin,name,category,current_rank\nB0OLD00001,Old Product,toys,5\n")
	writeCSV(t, dir, "products_20250601_060000.csv", sampleCSV)

	rows, err := NewLoader(dir).LoadLatest()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, "B0TEST0001", rows[0].ASIN)
	require.Equal(t, "electronics", rows[0].Category)
	require.Equal(t, 3, rows[0].CurrentRank)
}

func TestLoadLatestOptionalFields(t *testing.T) {
	dir := t.TempDir()
	writeCSV(t, dir, "products_20250601_060000.csv", sampleCSV)

	rows, err := NewLoader(dir).LoadLatest()
	require.NoError(t, err)

	full := rows[0]
	require.NotNil(t, full.RankChangePercent)
	require.Equal(t, 75.0, *full.RankChangePercent)
	require.NotNil(t, full.ReviewCount)
	require.Equal(t, 1523, *full.ReviewCount)
	require.NotNil(t, full.Rating)
	require.Equal(t, 4.4, *full.Rating)

	// Empty and malformed cells degrade to absent, never an error.
	sparse := rows[1]
	require.Nil(t, sparse.RankChangePercent)
	require.Nil(t, sparse.Price)
	require.Nil(t, sparse.ReviewCount)
	require.Nil(t, sparse.Rating)
}

func TestLoadLatestByteOrderMark(t *testing.T) {
	dir := t.TempDir()
	writeCSV(t, dir, "products_20250601_060000.csv", "\uFEFF"+sampleCSV)

	rows, err := NewLoader(dir).LoadLatest()
	require.NoError(t, err)
	require.Len(t, rows, 2)

	// The BOM sits on the first header cell; the asin column must still bind.
	require.Equal(t, "B0TEST0001", rows[0].ASIN)
}

func TestLoadLatestMissingDirectory(t *testing.T) {
	rows, err := NewLoader(filepath.Join(t.TempDir(), "nope")).LoadLatest()
	require.NoError(t, err)
	require.Empty(t, rows)
}

func TestLoadHistorical(t *testing.T) {
	dir := t.TempDir()
	writeCSV(t, dir, "products_20250530_060000.csv", "asin,name,category,current_rank\nB0A,Product A,toys,1\n")
	writeCSV(t, dir, "products_20250531_060000.csv", "asin,name,category,current_rank\nB0B,Product B,toys,2\n")
	writeCSV(t, dir, "products_20250601_060000.csv", "asin,name,category,current_rank\nB0C,Product C,toys,3\n")

	rows, err := NewLoader(dir).LoadHistorical(2)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, "B0B", rows[0].ASIN)
	require.Equal(t, "B0C", rows[1].ASIN)

	all, err := NewLoader(dir).LoadHistorical(10)
	require.NoError(t, err)
	require.Len(t, all, 3)
}

func TestWriteRoundTrip(t *testing.T) {
	dir := t.TempDir()
	loader := NewLoader(dir)

	pct := 42.5
	reviews := 321
	rows := []core.ProductSnapshot{{
		ASIN:              "B0TEST0009",
		Name:              "Desk Lamp",
		Category:          "home",
		CurrentRank:       7,
		RankChangePercent: &pct,
		ReviewCount:       &reviews,
		Currency:          "JPY",
		AffiliateURL:      "https://amazon.co.jp/dp/B0TEST0009?tag=ecomtrend-22",
		CollectedAt:       time.Date(2025, 6, 1, 6, 0, 0, 0, time.UTC),
	}}

	path, err := loader.Write(rows, time.Date(2025, 6, 1, 6, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.FileExists(t, path)

	loaded, err := loader.LoadLatest()
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	require.Equal(t, "B0TEST0009", loaded[0].ASIN)
	require.NotNil(t, loaded[0].RankChangePercent)
	require.Equal(t, 42.5, *loaded[0].RankChangePercent)
	require.Nil(t, loaded[0].Rating)
}
