// Package cmd provides the command-line interface for nsim.
package cmd

import (
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "nsim",
	Short: "nsim simulates networks of spiking neurons.",
	Long: `nsim simulates networks of spiking neurons described in YAML ` +
		`files. It can also check that recordings do not depend on how ` +
		`simulated time is split into runs.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "",
		"Log level (debug, info, warn, error). Overrides the network file.")
}

// Execute adds all child commands to the root command and sets flags
// appropriately.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

// logLevel returns the --log-level flag, or fallback if the flag is unset.
func logLevel(cmd *cobra.Command, fallback zap.AtomicLevel) (zap.AtomicLevel, error) {
	name, _ := cmd.Flags().GetString("log-level")
	if name == "" {
		return fallback, nil
	}

	return zap.ParseAtomicLevel(name)
}

// newLogger builds a development logger for debug output and a production
// logger otherwise.
func newLogger(level zap.AtomicLevel) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if level.Level() <= zapcore.DebugLevel {
		cfg = zap.NewDevelopmentConfig()
	}

	cfg.Level = level
	cfg.OutputPaths = []string{"stderr"}

	return cfg.Build()
}
