package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	api "statement_metrics/pkg/api/metrics"
	"statement_metrics/pkg/bootstrap"
	"statement_metrics/pkg/config"
	"statement_metrics/pkg/core/refresh"
)

var cfgPath string

func main() {
	var rootCmd = &cobra.Command{
		Use:   "api",
		Short: "Serve statement metrics over HTTP",
		RunE:  runServer,
	}

	rootCmd.Flags().StringVarP(&cfgPath, "config", "c", "",
		"Path to a YAML config file (default is "+config.DefaultFile+" when present)")

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func runServer(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	logger := cfg.Logger()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logger.WithContext(ctx)

	deps, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize: %w", err)
	}
	defer deps.Close()

	if len(cfg.Refresh.Tickers) > 0 {
		if cfg.Provider.APIToken == "" {
			logger.Warn().Msg("refresh tickers configured without a provider token, scheduler disabled")
		} else {
			sched := refresh.NewScheduler(deps.Cache, deps.Client, logger)
			if err := sched.Start(cfg.Refresh.Schedule, cfg.Refresh.Tickers); err != nil {
				return fmt.Errorf("failed to start refresh scheduler: %w", err)
			}
			defer sched.Stop()
		}
	}

	h := api.NewHandler(deps.Engine, deps.Open, cfg.Valuation.RiskFreeRate, cfg.Valuation.EquityRiskPremium)
	server := api.NewWebAPI(logger, h, api.Config{Addr: cfg.Server.Addr})

	logger.Info().Msg("routes: GET /api/v1/catalog, /api/v1/tickers/{ticker}/{ratios,fcff,wacc,metrics/{metric},analysis,report}")
	return server.Start(ctx)
}
