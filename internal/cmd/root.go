package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ecomtrend/ecomtrend/internal/config"
	"github.com/ecomtrend/ecomtrend/internal/core"
	"github.com/ecomtrend/ecomtrend/internal/observability"
)

const (
	binaryName = "ecomtrend"
	envPrefix  = "ECOMTREND"
)

var (
	cfgFile string
	verbose bool

	// Version info set by main package
	versionInfo struct {
		Version   string
		Commit    string
		BuildDate string
	}
)

// SetVersionInfo is called by main package to set version information
func SetVersionInfo(version, commit, buildDate string) {
	versionInfo.Version = version
	versionInfo.Commit = commit
	versionInfo.BuildDate = buildDate
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   binaryName,
	Short: "E-commerce trend detection and reporting",
	Long: `EcomTrend scores product movement from collected ranking snapshots,
serves the results over an HTTP API, and distributes periodic reports.

Use the subcommands to perform specific operations.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", fmt.Sprintf("config file (default is %s/config.yaml)", config.DefaultConfigDir()))
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (sets log level to debug)")

	// Bind flags to viper
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	// Initialize CLI logger early so we can use it in config loading
	observability.InitCLILogger(binaryName, verbose)

	// Local .env keeps SMTP and webhook secrets out of committed config files.
	if err := godotenv.Load(); err == nil && verbose {
		observability.CLILogger.Debug("Loaded environment from .env file")
	}

	if cfgFile != "" {
		// Use config file from flag
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(config.DefaultConfigDir())
		viper.AddConfigPath("./config")
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix(envPrefix)
	viper.AutomaticEnv()

	// If a config file is found, read it in
	if err := viper.ReadInConfig(); err == nil {
		if verbose {
			observability.CLILogger.Debug("Using config file", zap.String("path", viper.ConfigFileUsed()))
		}
	} else {
		// It's OK if config file doesn't exist, we have defaults
		if verbose {
			if _, ok := err.(viper.ConfigFileNotFoundError); ok {
				observability.CLILogger.Debug("No config file found, using defaults and environment variables")
			} else {
				observability.CLILogger.Warn("Error reading config file", zap.Error(err))
			}
		}
	}

	// Set defaults
	setDefaults()

	// Plan overrides let operators reprice tiers without a rebuild.
	if overridePath := viper.GetString("data.plan_overrides"); overridePath != "" {
		if _, err := os.Stat(overridePath); err == nil {
			if err := core.LoadPlanOverrides(overridePath); err != nil {
				observability.CLILogger.Warn("Failed to load plan overrides", zap.Error(err))
			}
		}
	}
}

// setDefaults sets default configuration values
func setDefaults() {
	// Server defaults
	viper.SetDefault("server.host", "localhost")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.write_timeout", "30s")
	viper.SetDefault("server.idle_timeout", "120s")
	viper.SetDefault("server.shutdown_timeout", "10s")

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.profile", "structured")

	// Store defaults
	viper.SetDefault("store.driver", "libsql")
	viper.SetDefault("store.path", config.DefaultStorePath())
	viper.SetDefault("store.url", "")
	viper.SetDefault("store.auth_token", "")

	// Data defaults
	viper.SetDefault("data.raw_dir", config.DefaultRawDataDir())
	viper.SetDefault("data.reports_dir", config.DefaultReportsDir())
	viper.SetDefault("data.plan_overrides", "")

	// Rate limit defaults
	viper.SetDefault("rate_limit.global_requests_per_minute", 1000)
	viper.SetDefault("rate_limit.global_requests_per_second", 50)
	viper.SetDefault("rate_limit.ip_requests_per_minute", 100)
	viper.SetDefault("rate_limit.ip_requests_per_second", 10)
	viper.SetDefault("rate_limit.auth_requests_per_minute", 300)
	viper.SetDefault("rate_limit.auth_requests_per_second", 30)
	viper.SetDefault("rate_limit.login_attempts_per_minute", 5)
	viper.SetDefault("rate_limit.register_attempts_per_minute", 3)
	viper.SetDefault("rate_limit.block_duration", "5m")
	viper.SetDefault("rate_limit.whitelist_ips", "127.0.0.1,::1")
	viper.SetDefault("rate_limit.blacklist_ips", "")

	// Affiliate defaults
	viper.SetDefault("affiliate.tag", "")

	// Distribution defaults
	viper.SetDefault("distribute.email.host", "")
	viper.SetDefault("distribute.email.port", 587)
	viper.SetDefault("distribute.email.username", "")
	viper.SetDefault("distribute.email.password", "")
	viper.SetDefault("distribute.email.from", "")
	viper.SetDefault("distribute.slack.webhook_url", "")
	viper.SetDefault("distribute.discord.webhook_url", "")

	// Metrics defaults
	viper.SetDefault("metrics.enabled", true)
	viper.SetDefault("metrics.port", 9090)

	// Health check defaults
	viper.SetDefault("health.enabled", true)

	// Debug defaults
	viper.SetDefault("debug.enabled", false)
	viper.SetDefault("debug.pprof_enabled", false)
}
