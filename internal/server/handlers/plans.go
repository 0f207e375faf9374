package handlers

import (
	"net/http"

	"github.com/ecomtrend/ecomtrend/internal/core"
)

// PlanEntry is one tier in the public plan listing.
type PlanEntry struct {
	Plan   core.Plan       `json:"plan"`
	Limits core.PlanLimits `json:"limits"`
}

// PlansHandler handles GET /api/v1/plans. The tier table is public so
// prospective subscribers can compare quotas before registering.
func PlansHandler(w http.ResponseWriter, r *http.Request) {
	plans := core.Plans()
	entries := make([]PlanEntry, 0, len(plans))
	for _, plan := range plans {
		entries = append(entries, PlanEntry{Plan: plan, Limits: plan.Limits()})
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"count": len(entries),
		"plans": entries,
	})
}
