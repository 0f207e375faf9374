package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/ecomtrend/ecomtrend/internal/core"
)

var plansCmd = &cobra.Command{
	Use:   "plans",
	Short: "Show the subscription plan tiers",
	Long:  "Show the subscription plan tiers with their quotas, export formats and pricing.",
	Run: func(cmd *cobra.Command, args []string) {
		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.SetStyle(table.StyleRounded)
		t.AppendHeader(table.Row{"Plan", "Price (JPY/mo)", "Daily Reports", "Categories", "API Calls/Day", "Export Formats", "Support"})

		for _, plan := range core.Plans() {
			limits := plan.Limits()
			t.AppendRow(table.Row{
				limits.DisplayName,
				limits.PriceJPY,
				formatQuota(limits.DailyReports),
				formatQuota(limits.Categories),
				formatQuota(limits.APICallsPerDay),
				strings.Join(limits.ExportFormats, ", "),
				limits.SupportLevel,
			})
		}

		t.Render()
	},
}

func formatQuota(value int) string {
	if value == core.Unlimited {
		return "unlimited"
	}
	return fmt.Sprintf("%d", value)
}

func init() {
	rootCmd.AddCommand(plansCmd)
}
