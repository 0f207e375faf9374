package core

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParsePlan(t *testing.T) {
	plan, err := ParsePlan("  Pro ")
	require.NoError(t, err)
	require.Equal(t, PlanPro, plan)

	_, err = ParsePlan("platinum")
	require.Error(t, err)
}

func TestPlanLimits(t *testing.T) {
	free := PlanFree.Limits()
	require.Equal(t, 10, free.DailyReports)
	require.Equal(t, 2, free.Categories)
	require.Equal(t, 100, free.APICallsPerDay)
	require.False(t, free.RealtimeAlerts)
	require.Zero(t, free.PriceJPY)

	pro := PlanPro.Limits()
	require.True(t, pro.RealtimeAlerts)
	require.False(t, pro.CustomDashboard)
	require.Equal(t, 980, pro.PriceJPY)

	ent := PlanEnterprise.Limits()
	require.Equal(t, Unlimited, ent.DailyReports)
	require.Equal(t, Unlimited, ent.APICallsPerDay)
	require.True(t, ent.CustomDashboard)
}

func TestPlanLimitsUnknownFallsBackToFree(t *testing.T) {
	require.Equal(t, PlanFree.Limits(), Plan("platinum").Limits())
}

func TestCanExport(t *testing.T) {
	require.True(t, PlanFree.Limits().CanExport("md"))
	require.True(t, PlanFree.Limits().CanExport(" MD "))
	require.False(t, PlanFree.Limits().CanExport("csv"))
	require.True(t, PlanPro.Limits().CanExport("csv"))
	require.False(t, PlanPro.Limits().CanExport("excel"))
	require.True(t, PlanEnterprise.Limits().CanExport("excel"))
}

func TestLoadPlanOverrides(t *testing.T) {
	original := planLimits[PlanPro]
	t.Cleanup(func() {
		planLimits[PlanPro] = original
	})

	path := filepath.Join(t.TempDir(), "plans.yaml")
	content := `pro:
  display_name: Pro Plus
  daily_reports: 250
  categories: 20
  api_calls_per_day: 5000
  realtime_alerts: true
  export_formats: [md, csv]
  support_level: priority
  price_jpy: 1480
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	require.NoError(t, LoadPlanOverrides(path))

	pro := PlanPro.Limits()
	require.Equal(t, "Pro Plus", pro.DisplayName)
	require.Equal(t, 250, pro.DailyReports)
	require.Equal(t, 1480, pro.PriceJPY)
	require.True(t, pro.CanExport("csv"))
	require.False(t, pro.CanExport("json"))

	// Untouched tiers keep their defaults.
	require.Equal(t, 10, PlanFree.Limits().DailyReports)
}

func TestLoadPlanOverridesRejectsUnknownTier(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plans.yaml")
	require.NoError(t, os.WriteFile(path, []byte("platinum:\n  daily_reports: 1\n"), 0o644))
	require.Error(t, LoadPlanOverrides(path))
}
