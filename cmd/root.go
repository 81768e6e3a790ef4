package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/site-scout/internal/apperr"
	"github.com/sells-group/site-scout/internal/config"
	"github.com/sells-group/site-scout/internal/metrics"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:          "site-scout",
	Short:        "POI cache and brand density analysis",
	Long:         "Fetches brand POIs from Gaode into a local cache, computes city density heatmaps and scores candidate sites against nearby competitors.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("config")
		c, err := config.LoadFile(path)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if addr, _ := cmd.Flags().GetString("metrics-addr"); addr != "" {
			cfg.Metrics.Addr = addr
		}

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		metrics.ExposeBuildInfo(version)

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file (default ./config.yaml)")
	rootCmd.PersistentFlags().String("metrics-addr", "", "serve /metrics, /healthz and /readyz on this address while the command runs")
	rootCmd.Version = version
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		logFailure(err)
		os.Exit(1)
	}
}

// logFailure records the classification of a failed command.
func logFailure(err error) {
	var ae *apperr.Error
	if !errors.As(err, &ae) {
		return
	}
	zap.L().Error("command failed",
		zap.String("code", string(ae.Code)),
		zap.Int("status", ae.Status()),
		zap.Bool("retryable", ae.Retryable()),
		zap.Error(err),
	)
	_ = zap.L().Sync()
}
