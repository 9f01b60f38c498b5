package taskworker

import (
	"context"

	"github.com/openkcm/common-sdk/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/materials-data-facility/connect/internal/async"
	"github.com/materials-data-facility/connect/internal/async/tasks"
	"github.com/materials-data-facility/connect/internal/clients"
	"github.com/materials-data-facility/connect/internal/config"
	"github.com/materials-data-facility/connect/internal/log"
	"github.com/materials-data-facility/connect/internal/metrics"
)

// Handlers returns the task handlers the worker serves.
func Handlers(svc *clients.Services) []async.TaskHandler {
	return []async.TaskHandler{
		tasks.NewSubmissionStarter(svc.Flows),
		tasks.NewSubmissionSyncer(svc.Flows),
		tasks.NewFlowSync(svc.Flows, svc.Store, svc.Metrics),
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	err := logger.InitAsDefault(cfg.Logger, cfg.Application)
	if err != nil {
		return oops.In("main").
			Wrapf(err, "Failed to initialise the logger")
	}

	var mt *metrics.Metrics
	if cfg.Telemetry.Metrics.Prometheus.Enabled {
		mt = metrics.New(prometheus.DefaultRegisterer)
	}

	factory := clients.NewFactory(cfg)
	defer func() {
		err := factory.Close(context.WithoutCancel(ctx))
		if err != nil {
			log.Error(ctx, "Failed to close the clients", err)
		}
	}()

	svc, err := factory.Services(ctx, mt)
	if err != nil {
		return oops.In("main").Wrapf(err, "creating services")
	}

	if !svc.Flow.Deployed() {
		log.Warn(ctx, "Flow is not deployed, submissions stay pending until it is")
	}

	worker, err := async.New(cfg)
	if err != nil {
		return oops.In("main").Wrapf(err, "failed to create the worker")
	}

	worker.RegisterTasks(ctx, Handlers(svc))

	err = worker.RunWorker(ctx)
	if err != nil {
		return oops.In("main").Wrapf(err, "failed to start the worker")
	}

	<-ctx.Done()

	err = worker.Shutdown(context.WithoutCancel(ctx))
	if err != nil {
		return oops.In("main").Wrapf(err, "%s", async.ErrClientShutdown.Error())
	}

	log.Info(ctx, "shutting down worker")

	return nil
}

func Cmd(buildInfo string) *cobra.Command {
	var cmd = &cobra.Command{
		Use:   "task-worker",
		Short: "MDF Connect Task Worker",
		Long:  "MDF Connect Task Worker - starts submission flows and folds run progress into their status.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadForBuild(buildInfo)
			if err != nil {
				return oops.In("main").Wrapf(err, "failed to load the config")
			}

			return run(cmd.Context(), cfg)
		},
	}

	return cmd
}
