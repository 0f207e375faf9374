package core

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// Plan identifies a subscription tier.
type Plan string

const (
	PlanFree       Plan = "free"
	PlanPro        Plan = "pro"
	PlanEnterprise Plan = "enterprise"
)

// Unlimited marks a quota with no cap.
const Unlimited = -1

// PlanLimits describes the quotas and capabilities of one tier.
type PlanLimits struct {
	DisplayName     string   `yaml:"display_name" json:"display_name"`
	DailyReports    int      `yaml:"daily_reports" json:"daily_reports"`
	Categories      int      `yaml:"categories" json:"categories"`
	APICallsPerDay  int      `yaml:"api_calls_per_day" json:"api_calls_per_day"`
	RealtimeAlerts  bool     `yaml:"realtime_alerts" json:"realtime_alerts"`
	CustomDashboard bool     `yaml:"custom_dashboard" json:"custom_dashboard"`
	ExportFormats   []string `yaml:"export_formats" json:"export_formats"`
	SupportLevel    string   `yaml:"support_level" json:"support_level"`
	PriceJPY        int      `yaml:"price_jpy" json:"price_jpy"`
}

// CanExport reports whether the tier may export in the given format.
func (l PlanLimits) CanExport(format string) bool {
	return slices.Contains(l.ExportFormats, strings.ToLower(strings.TrimSpace(format)))
}

var planLimits = map[Plan]PlanLimits{
	PlanFree: {
		DisplayName:    "Free",
		DailyReports:   10,
		Categories:     2,
		APICallsPerDay: 100,
		ExportFormats:  []string{"md"},
		SupportLevel:   "community",
		PriceJPY:       0,
	},
	PlanPro: {
		DisplayName:    "Pro",
		DailyReports:   100,
		Categories:     10,
		APICallsPerDay: 1000,
		RealtimeAlerts: true,
		ExportFormats:  []string{"md", "html", "csv", "json"},
		SupportLevel:   "email",
		PriceJPY:       980,
	},
	PlanEnterprise: {
		DisplayName:     "Enterprise",
		DailyReports:    Unlimited,
		Categories:      Unlimited,
		APICallsPerDay:  Unlimited,
		RealtimeAlerts:  true,
		CustomDashboard: true,
		ExportFormats:   []string{"md", "html", "csv", "json", "excel", "api"},
		SupportLevel:    "dedicated",
		PriceJPY:        4980,
	},
}

// Plans returns the known tiers in ascending price order.
func Plans() []Plan {
	return []Plan{PlanFree, PlanPro, PlanEnterprise}
}

// ParsePlan validates and normalizes a plan name.
func ParsePlan(value string) (Plan, error) {
	normalized := Plan(strings.ToLower(strings.TrimSpace(value)))
	switch normalized {
	case PlanFree, PlanPro, PlanEnterprise:
		return normalized, nil
	default:
		return "", fmt.Errorf("unknown plan: %s", value)
	}
}

// Limits returns the quota table for the plan. Unknown plans fall back to
// the free tier.
func (p Plan) Limits() PlanLimits {
	if limits, ok := planLimits[p]; ok {
		return limits
	}
	return planLimits[PlanFree]
}

// LoadPlanOverrides replaces the built-in tier table with definitions from a
// YAML file. Tiers absent from the file keep their defaults.
func LoadPlanOverrides(path string) error {
	data, err := os.ReadFile(path) // #nosec G304 -- operator-supplied config path
	if err != nil {
		return fmt.Errorf("read plan overrides: %w", err)
	}

	overrides := map[Plan]PlanLimits{}
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return fmt.Errorf("parse plan overrides: %w", err)
	}

	for plan, limits := range overrides {
		if _, err := ParsePlan(string(plan)); err != nil {
			return err
		}
		planLimits[plan] = limits
	}
	return nil
}
