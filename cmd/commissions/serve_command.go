package main

import (
	"context"
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"commissions/internal/admin"
	"commissions/internal/adminapi"
	"commissions/internal/logging"
	"commissions/internal/pipelinejob"
	"commissions/internal/preflight"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var bind string
	var convertOnStart bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the admin JSON API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), ctx, bind, convertOnStart)
		},
	}
	cmd.Flags().StringVar(&bind, "bind", "", "Override the configured listen address")
	cmd.Flags().BoolVar(&convertOnStart, "convert-on-start", false, "Run one pipeline pass before accepting requests")
	return cmd
}

func runServer(cmdCtx context.Context, ctx *commandContext, bind string, convertOnStart bool) error {
	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := ctx.ensureConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger, err := ctx.ensureLogger()
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	if err := preflight.FirstFailure(preflight.RunAll(cfg)); err != nil {
		return err
	}

	store, err := ctx.openStore()
	if err != nil {
		return err
	}

	var registry *prometheus.Registry
	if cfg.API.Metrics {
		registry = prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	var metrics *pipelinejob.Metrics
	if registry != nil {
		metrics = pipelinejob.NewMetrics(registry)
	}
	job := pipelinejob.New(cfg, logger, pipelinejob.WithMetrics(metrics))
	svc := admin.New(store, job, logger, admin.WithAsyncPipeline())
	defer svc.Wait()

	if convertOnStart {
		if _, err := job.Run(signalCtx); err != nil {
			logging.WarnWithContext(logger, "startup conversion failed", "pipeline_startup_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "derivatives may be stale until the next mutation"),
			)
		}
	}

	address := strings.TrimSpace(bind)
	if address == "" {
		address = cfg.API.Bind
	}
	var limiter *rate.Limiter
	if cfg.API.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.API.RateLimit), cfg.API.RateBurst)
	}
	server := adminapi.New(address, adminapi.Deps{
		Admin:    svc,
		Job:      job,
		Registry: registry,
		Limiter:  limiter,
		Logger:   logger,
	})
	if err := server.Start(signalCtx); err != nil {
		return err
	}

	<-signalCtx.Done()
	logger.Info("commissions api shutting down")
	server.Shutdown()
	return nil
}
