package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ecomtrend/ecomtrend/internal/config"
	"github.com/ecomtrend/ecomtrend/internal/core/snapshot"
	"github.com/ecomtrend/ecomtrend/internal/distribute"
	errwrap "github.com/ecomtrend/ecomtrend/internal/errors"
	"github.com/ecomtrend/ecomtrend/internal/observability"
	"github.com/ecomtrend/ecomtrend/internal/output"
	"github.com/ecomtrend/ecomtrend/internal/server/handlers"
)

var (
	reportFormat     string
	reportLimit      int
	reportOutputDir  string
	reportDistribute bool
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Generate a trend report from the latest snapshot",
	Long: `Generate a trend report from the newest collected snapshot.

The report is written to the configured reports directory. With --distribute
it is also delivered to newsletter subscribers and configured webhooks.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.FromViper(viper.GetViper())
		if err != nil {
			return errwrap.WrapConfigInvalid(cmd.Context(), err, "configuration is invalid")
		}

		format, err := output.ParseFormat(reportFormat)
		if err != nil {
			return errwrap.NewInvalidInputError(err.Error())
		}

		loader := snapshot.NewLoader(cfg.Data.RawDir)
		now := time.Now()

		report, err := handlers.BuildReport(loader, cfg.Affiliate.Tag, reportLimit, now)
		if err != nil {
			return errwrap.WrapDataProcessing(cmd.Context(), err, "failed to build report")
		}
		if len(report.Top) == 0 {
			observability.CLILogger.Warn("No snapshot data found",
				zap.String("raw_dir", cfg.Data.RawDir))
		}

		rendered, err := output.NewFormatter(format).FormatReport(report)
		if err != nil {
			return errwrap.WrapDataProcessing(cmd.Context(), err, "failed to render report")
		}

		// Table output is for terminals; everything else lands in the reports dir.
		if format == output.FormatTable {
			fmt.Print(rendered)
			return nil
		}

		reportsDir := reportOutputDir
		if reportsDir == "" {
			reportsDir = cfg.Data.ReportsDir
		}
		if err := os.MkdirAll(reportsDir, 0o755); err != nil {
			return errwrap.WrapInternal(cmd.Context(), err, "failed to create reports directory")
		}

		path := filepath.Join(reportsDir, fmt.Sprintf("ecomtrend_%s.%s", now.Format("20060102"), format.Extension()))
		if err := os.WriteFile(path, []byte(rendered), 0o644); err != nil {
			return errwrap.WrapInternal(cmd.Context(), err, "failed to write report")
		}

		observability.CLILogger.Info("Report written",
			zap.String("path", path),
			zap.String("format", string(format)),
			zap.Int("products", len(report.Top)))
		fmt.Println(path)

		if reportDistribute {
			return distributeReport(cmd, cfg, report)
		}
		return nil
	},
}

// distributeReport delivers the report over every configured channel.
func distributeReport(cmd *cobra.Command, cfg *config.Config, report *output.Report) error {
	markdown, err := (&output.MarkdownFormatter{}).FormatReport(report)
	if err != nil {
		return errwrap.WrapDataProcessing(cmd.Context(), err, "failed to render markdown body")
	}
	html, err := (&output.HTMLFormatter{}).FormatReport(report)
	if err != nil {
		return errwrap.WrapDataProcessing(cmd.Context(), err, "failed to render html body")
	}

	msg := distribute.Message{
		Subject: report.Title,
		Text:    markdown,
		HTML:    html,
	}

	var senders []distribute.Sender
	if url := cfg.Distribute.Slack.WebhookURL; url != "" {
		senders = append(senders, &distribute.SlackSender{WebhookURL: url})
	}
	if url := cfg.Distribute.Discord.WebhookURL; url != "" {
		senders = append(senders, &distribute.DiscordSender{WebhookURL: url})
	}

	email := distribute.NewEmailSender(cfg.Distribute.Email)
	if email.Configured() {
		db, err := openStore(cmd.Context(), cfg)
		if err != nil {
			return errwrap.WrapDatabaseError(cmd.Context(), err, "failed to open store for subscriber list")
		}
		defer db.Close() // nolint:errcheck // read-only usage

		subscribers, err := db.ListActiveSubscribers(cmd.Context())
		if err != nil {
			return errwrap.WrapDatabaseError(cmd.Context(), err, "failed to list subscribers")
		}
		for _, sub := range subscribers {
			msg.Recipients = append(msg.Recipients, sub.Email)
		}
		if len(msg.Recipients) > 0 {
			senders = append(senders, email)
		}
	}

	if len(senders) == 0 {
		observability.CLILogger.Warn("No distribution channels configured")
		return nil
	}

	multi := distribute.NewMulti(senders...)
	observability.CLILogger.Info("Distributing report",
		zap.Strings("channels", multi.Channels()),
		zap.Int("email_recipients", len(msg.Recipients)))

	if err := multi.Send(cmd.Context(), msg); err != nil {
		return errwrap.WrapInternal(cmd.Context(), err, "report distribution failed")
	}
	return nil
}

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().StringVarP(&reportFormat, "format", "f", "md", "output format (table, md, html, csv, json)")
	reportCmd.Flags().IntVarP(&reportLimit, "limit", "n", 20, "number of top products to include")
	reportCmd.Flags().StringVarP(&reportOutputDir, "output", "o", "", "override the reports directory")
	reportCmd.Flags().BoolVar(&reportDistribute, "distribute", false, "deliver the report to subscribers and webhooks")
}
