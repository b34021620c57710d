// cmd/perfwatch/monitor.go
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/signalnine/perfwatch/internal/agent"
	"github.com/signalnine/perfwatch/internal/analysis"
	"github.com/signalnine/perfwatch/internal/collector"
	"github.com/signalnine/perfwatch/internal/recommend"
	"github.com/signalnine/perfwatch/internal/report"
	"github.com/signalnine/perfwatch/internal/server"
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Collect metrics, detect anomalies and explain them until interrupted",
	RunE:  runMonitor,
}

func runMonitor(cmd *cobra.Command, args []string) error {
	e, err := setup()
	if err != nil {
		return err
	}
	defer e.close()
	cfg, log := e.cfg, e.log

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	coll := collector.New(cfg.Collection, collector.WithLogger(log.Named("collector")))
	rep := report.New(os.Stdout, cfg.Display)
	if info, err := coll.SystemInfo(ctx); err != nil {
		log.Warn("system info unavailable", zap.Error(err))
	} else {
		rep.Banner(info, cfg.Collection.Interval)
	}

	analysisLog := log.Named("analysis")
	baselines := analysis.NewBaselineStore(analysis.WithLogger(analysisLog), analysis.WithWriter(e.store))
	detector := analysis.NewDetector(baselines, analysis.LevelsFromMap(cfg.Analysis.SeverityLevels),
		analysis.WithLogger(analysisLog))
	explainer := analysis.NewReconstructor(e.store, e.store, analysis.WithLogger(analysisLog))
	recommender := recommend.New(cfg.Recommendations, e.store, recommend.WithLogger(log.Named("recommend")))

	ag := agent.New(agent.Deps{
		Config:      cfg,
		Collector:   coll,
		Store:       e.store,
		Baselines:   baselines,
		Detector:    detector,
		Explainer:   explainer,
		Recommender: recommender,
		Dashboard:   rep,
		Logger:      log,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return ag.Run(gctx) })
	if cfg.Server.Enabled {
		api := server.NewAPI(e.store, baselines, cfg.Server.APIKey, server.WithLogger(log.Named("server")))
		srv := server.New(cfg.Server, api.Routes(), log)
		g.Go(func() error { return srv.Run(gctx) })
	}
	runErr := g.Wait()

	summaryCtx := context.Background()
	size, err := e.store.SizeMB(summaryCtx)
	if err != nil {
		log.Warn("database size unavailable", zap.Error(err))
	}
	counts, err := e.store.RowCounts(summaryCtx)
	if err != nil {
		log.Warn("row counts unavailable", zap.Error(err))
	}
	rep.ShutdownSummary(ag.Cycles(), size, counts)
	return runErr
}
