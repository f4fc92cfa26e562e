// Command recgo serves track recommendations from precomputed model
// bundles and inspects the bundles themselves.
package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/tracknova/recgo"
	"github.com/tracknova/recgo/config"
)

var (
	flagConfig  string
	flagVerbose bool
)

var rootCmd = &cobra.Command{
	Use:   "recgo",
	Short: "Multi-model music recommendation engine",
	Long: `Recgo serves track recommendations from immutable, precomputed model
artifacts (embedding matrices with track ids and cluster labels).

Configuration is read from recgo.yaml (or the file named by --config /
RECGO_CONFIG) and RECGO_ environment variables.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagConfig, "config", "c", "", "Path to config file")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Enable debug logging")
}

// newEngine builds an engine from the CLI's configuration flags.
func newEngine() (*recgo.Engine, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, err
	}

	level := slog.LevelWarn
	if flagVerbose {
		level = slog.LevelDebug
	}
	return recgo.New(cfg, recgo.WithLogLevel(level))
}
