package analyzer

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ecomtrend/ecomtrend/internal/core"
)

func floatPtr(v float64) *float64 { return &v }
func intPtr(v int) *int           { return &v }

func snapshot(asin, category string, rankChange float64, reviews int, rating float64) core.ProductSnapshot {
	return core.ProductSnapshot{
		ASIN:              asin,
		Name:              "Product " + asin,
		Category:          category,
		CurrentRank:       1,
		RankChangePercent: floatPtr(rankChange),
		ReviewCount:       intPtr(reviews),
		Rating:            floatPtr(rating),
		AffiliateURL:      "https://amazon.co.jp/dp/" + asin,
	}
}

func TestScoreWorkedExample(t *testing.T) {
	// 100% rank change caps at 50, 1000 reviews caps at 30, 4.5 rating adds 10.
	row := snapshot("B001", "electronics", 100, 1000, 4.5)
	require.Equal(t, 90.00, Score(row))
}

func TestScoreContributions(t *testing.T) {
	cases := []struct {
		name string
		row  core.ProductSnapshot
		want float64
	}{
		{"all absent", core.ProductSnapshot{ASIN: "B000"}, 0},
		{"rank change only", core.ProductSnapshot{RankChangePercent: floatPtr(40)}, 20},
		{"rank change capped", core.ProductSnapshot{RankChangePercent: floatPtr(500)}, 50},
		{"reviews only", core.ProductSnapshot{ReviewCount: intPtr(100)}, 20},
		{"reviews capped", core.ProductSnapshot{ReviewCount: intPtr(10000000)}, 30},
		{"zero reviews ignored", core.ProductSnapshot{ReviewCount: intPtr(0)}, 0},
		{"rating below floor ignored", core.ProductSnapshot{Rating: floatPtr(3.9)}, 0},
		{"rating at floor", core.ProductSnapshot{Rating: floatPtr(4.0)}, 0},
		{"perfect rating", core.ProductSnapshot{Rating: floatPtr(5.0)}, 20},
		// The literal formula does not clamp negative rank changes.
		{"negative rank change penalizes", core.ProductSnapshot{RankChangePercent: floatPtr(-20), Rating: floatPtr(5.0)}, 10},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, Score(tc.row))
		})
	}
}

func TestScoreBounds(t *testing.T) {
	for change := 0.0; change <= 200; change += 25 {
		for _, reviews := range []int{0, 1, 10, 1000, 5000000} {
			for rating := 0.0; rating <= 5.0; rating += 0.5 {
				row := snapshot("B001", "toys", change, reviews, rating)
				score := Score(row)
				require.GreaterOrEqual(t, score, 0.0)
				require.LessOrEqual(t, score, 100.0)
			}
		}
	}
}

func TestScoreMonotonicity(t *testing.T) {
	base := snapshot("B001", "toys", 40, 500, 4.2)
	baseScore := Score(base)

	moreChange := base
	moreChange.RankChangePercent = floatPtr(60)
	require.GreaterOrEqual(t, Score(moreChange), baseScore)

	moreReviews := base
	moreReviews.ReviewCount = intPtr(5000)
	require.GreaterOrEqual(t, Score(moreReviews), baseScore)

	betterRating := base
	betterRating.Rating = floatPtr(4.8)
	require.GreaterOrEqual(t, Score(betterRating), baseScore)
}

func TestRankTop(t *testing.T) {
	rows := []core.ProductSnapshot{
		snapshot("B001", "electronics", 10, 10, 3.0),
		snapshot("B002", "electronics", 100, 1000, 4.5),
		snapshot("B003", "toys", 50, 100, 4.0),
	}

	top := RankTop(rows, 2)
	require.Len(t, top, 2)
	require.Equal(t, "B002", top[0].ASIN)
	require.Equal(t, "B003", top[1].ASIN)
	require.GreaterOrEqual(t, top[0].TrendScore, top[1].TrendScore)
}

func TestRankTopEmptyInput(t *testing.T) {
	require.Empty(t, RankTop(nil, 20))
	require.Empty(t, RankTop([]core.ProductSnapshot{}, 20))
}

func TestRankTopCapsAtInputSize(t *testing.T) {
	rows := []core.ProductSnapshot{snapshot("B001", "toys", 10, 10, 4.0)}
	require.Len(t, RankTop(rows, 50), 1)
}

func TestRankTopStableTies(t *testing.T) {
	// Identical rows score identically; input order must be preserved.
	rows := make([]core.ProductSnapshot, 10)
	for i := range rows {
		rows[i] = snapshot(fmt.Sprintf("B%03d", i), "toys", 30, 100, 4.2)
	}

	top := RankTop(rows, 10)
	for i, result := range top {
		require.Equal(t, fmt.Sprintf("B%03d", i), result.ASIN)
	}
}

func TestGroupByCategory(t *testing.T) {
	rows := []core.ProductSnapshot{
		snapshot("B001", "electronics", 10, 10, 3.0),
		snapshot("B002", "toys", 100, 1000, 4.5),
		snapshot("B003", "electronics", 50, 100, 4.0),
		snapshot("B004", "kitchen", 20, 50, 4.1),
	}

	grouped := GroupByCategory(rows, 10)

	require.Equal(t, []string{"electronics", "toys", "kitchen"}, grouped.Categories)

	total := 0
	for _, results := range grouped.ByCategory {
		total += len(results)
	}
	require.Equal(t, len(rows), total, "partition must preserve the union of input rows")

	electronics := grouped.ByCategory["electronics"]
	require.Len(t, electronics, 2)
	require.Equal(t, "B003", electronics[0].ASIN)
}

func TestGroupByCategoryLimit(t *testing.T) {
	rows := []core.ProductSnapshot{
		snapshot("B001", "toys", 10, 10, 3.0),
		snapshot("B002", "toys", 100, 1000, 4.5),
		snapshot("B003", "toys", 50, 100, 4.0),
	}

	grouped := GroupByCategory(rows, 2)
	require.Len(t, grouped.ByCategory["toys"], 2)
	require.Equal(t, "B002", grouped.ByCategory["toys"][0].ASIN)
}

func TestDetectSignificant(t *testing.T) {
	rows := []core.ProductSnapshot{
		snapshot("B001", "toys", 90, 10, 3.0),
		snapshot("B002", "toys", 40, 1000, 4.5),
		snapshot("B003", "toys", 85, 100, 4.0),
	}

	significant := DetectSignificant(rows, 80)
	require.Len(t, significant, 2)
	for _, result := range significant {
		require.GreaterOrEqual(t, result.RankChangeValue(), 80.0)
	}
}

func TestDetectSignificantIsSubsetOfRankTop(t *testing.T) {
	rows := make([]core.ProductSnapshot, 0, 30)
	for i := 0; i < 30; i++ {
		rows = append(rows, snapshot(fmt.Sprintf("B%03d", i), "toys", float64(i*5), i*10, 4.0))
	}

	top := RankTop(rows, 100)
	inTop := make(map[string]bool, len(top))
	for _, result := range top {
		inTop[result.ASIN] = true
	}

	loose := DetectSignificant(rows, 50)
	tight := DetectSignificant(rows, 100)

	for _, result := range loose {
		require.True(t, inTop[result.ASIN])
	}
	require.LessOrEqual(t, len(tight), len(loose), "raising the threshold never grows the result")
}
