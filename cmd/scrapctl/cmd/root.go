// Package cmd implements the scrapctl commands.
package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Raj-venom/scrap-dai-client/internal/config"
	"github.com/Raj-venom/scrap-dai-client/internal/metrics"
)

var (
	cfgFile    string
	envFile    string
	jsonOut    bool
	yamlOut    bool
	debug      bool
	logFormat  string
	metricsOut string

	cfg    *config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "scrapctl",
	Short: "Sell and collect scrap from the terminal",
	Long: `scrapctl talks to the scrap marketplace backend.

Sellers place pickup orders through a five-step wizard; collectors list,
accept and complete pickups.

Examples:
  scrapctl login --role user --email sita@example.com
  scrapctl catalog list
  scrapctl order create --material <id> --item <scrapId>=3 --date "$(date -d tomorrow +%F)" \
      --time "7 AM - 9 AM" --address Kathmandu --image ./steel.jpg
  scrapctl pickups list`,
	SilenceUsage:       true,
	SilenceErrors:      true,
	PersistentPreRunE:  setup,
	PersistentPostRunE: writeMetrics,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default searches ., ~/.scrapdai, /etc/scrapdai)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "dotenv file to load (default .env)")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "output JSON")
	rootCmd.PersistentFlags().BoolVar(&yamlOut, "yaml", false, "output YAML")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format (text, json)")
	rootCmd.PersistentFlags().StringVar(&metricsOut, "metrics-out", "", "write client metrics to this file on exit")
}

// Execute runs the root command.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		printError(err)
	}
	return err
}

func setup(cmd *cobra.Command, args []string) error {
	if jsonOut && yamlOut {
		return fmt.Errorf("--json and --yaml are mutually exclusive")
	}

	var err error
	cfg, err = config.Load(config.LoadOptions{ConfigFile: cfgFile, EnvFile: envFile})
	if err != nil {
		return err
	}

	if os.Getenv("DEBUG") == "true" {
		debug = true
	}
	logger = newLogger(os.Stderr, logFormat, debug)
	slog.SetDefault(logger)
	return nil
}

func writeMetrics(cmd *cobra.Command, args []string) error {
	if metricsOut == "" {
		return nil
	}
	if err := metrics.WriteTextfile(metricsOut); err != nil {
		return fmt.Errorf("failed to write metrics: %w", err)
	}
	return nil
}

func newLogger(w io.Writer, format string, debug bool) *slog.Logger {
	level := slog.LevelWarn
	if debug {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
