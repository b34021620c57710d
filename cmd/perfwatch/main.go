// cmd/perfwatch/main.go
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/signalnine/perfwatch/internal/config"
	"github.com/signalnine/perfwatch/internal/logging"
	"github.com/signalnine/perfwatch/internal/store"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

var (
	cfgPath string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:           "perfwatch",
	Short:         "Host performance anomaly detection and root-cause analysis",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "perfwatch %s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to YAML config (defaults when empty)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(monitorCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(baselinesCmd)
	rootCmd.AddCommand(anomaliesCmd)
	rootCmd.AddCommand(versionCmd)
}

// env is what every subcommand starts from.
type env struct {
	cfg   *config.Config
	log   *zap.Logger
	store *store.Store
}

func setup() (*env, error) {
	cfg, cfgErr := config.Load(cfgPath)
	log, err := logging.New(cfg.Logging, verbose)
	if err != nil {
		return nil, err
	}
	if cfgErr != nil {
		log.Warn("config not loaded, using defaults", zap.Error(cfgErr))
	}

	st, err := store.Open(cfg.Storage.DatabasePath, store.WithLogger(log.Named("store")))
	if err != nil {
		return nil, err
	}
	return &env{cfg: cfg, log: log, store: st}, nil
}

func (e *env) close() {
	if err := e.store.Close(); err != nil {
		e.log.Warn("close database", zap.Error(err))
	}
	_ = e.log.Sync()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
