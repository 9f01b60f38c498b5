package apiserver

import (
	"context"
	"log/slog"
	"syscall"
	"time"

	"github.com/openkcm/common-sdk/pkg/health"
	"github.com/openkcm/common-sdk/pkg/logger"
	"github.com/openkcm/common-sdk/pkg/otlp"
	"github.com/openkcm/common-sdk/pkg/status"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/materials-data-facility/connect/internal/async"
	"github.com/materials-data-facility/connect/internal/clients"
	"github.com/materials-data-facility/connect/internal/config"
	"github.com/materials-data-facility/connect/internal/daemon"
	"github.com/materials-data-facility/connect/internal/flow"
	"github.com/materials-data-facility/connect/internal/handlers"
	"github.com/materials-data-facility/connect/internal/log"
	"github.com/materials-data-facility/connect/internal/manager"
	"github.com/materials-data-facility/connect/internal/metrics"
)

const healthStatusTimeoutS = 5 * time.Second

// readyChecker is implemented by stores that can report on their backend.
type readyChecker interface {
	Ready(ctx context.Context) error
}

// - Starts the status server
// - Starts the Connect API server
func run(ctx context.Context, cfg *config.Config) error {
	err := logger.InitAsDefault(cfg.Logger, cfg.Application)
	if err != nil {
		return oops.In("main").
			Wrapf(err, "Failed to initialise the logger")
	}

	log.Debug(ctx, "Starting the application", slog.Any("config", cfg))

	err = otlp.Init(ctx, &cfg.Application, &cfg.Telemetry, &cfg.Logger)
	if err != nil {
		return oops.In("main").
			Wrapf(err, "Failed to load the telemetry")
	}

	startStatusServer(ctx, cfg)

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

	checkStore(ctx, svc)

	asyncApp, err := async.New(cfg)
	if err != nil {
		return oops.In("main").Wrapf(err, "creating the task queue client")
	}

	submissions := manager.NewSubmissionManager(svc.Store, svc.Flows, asyncApp.Client(), cfg,
		manager.WithChangeFunc(svc.OnChange),
		manager.WithMetrics(mt),
	)

	api := handlers.NewAPI(submissions, func() *flow.GlobusAutomateFlow { return svc.Flow })

	s, err := daemon.NewConnectServer(cfg, api)
	if err != nil {
		return oops.In("main").Wrapf(err, "creating connect api server")
	}

	err = s.Start(ctx)
	if err != nil {
		return oops.In("main").Wrapf(err, "starting connect api server")
	}

	<-ctx.Done()

	err = s.Close(context.WithoutCancel(ctx))
	if err != nil {
		return oops.In("main").Wrapf(err, "closing server")
	}

	err = asyncApp.Shutdown(context.WithoutCancel(ctx))
	if err != nil {
		return oops.In("main").Wrapf(err, "closing the task queue client")
	}

	return nil
}

// checkStore logs whether the status table is reachable. The server still
// starts so the readiness check can report the outage.
func checkStore(ctx context.Context, svc *clients.Services) {
	rc, ok := svc.Store.(readyChecker)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, healthStatusTimeoutS)
	defer cancel()

	err := rc.Ready(ctx)
	if err != nil {
		log.Error(ctx, "Status store is not ready", err)
		return
	}

	log.Info(ctx, "Status store is ready")
}

func startStatusServer(ctx context.Context, cfg *config.Config) {
	liveness := status.WithLiveness(
		health.NewHandler(
			health.NewChecker(health.WithDisabledAutostart()),
		),
	)

	readiness := status.WithReadiness(
		health.NewHandler(
			health.NewChecker(
				health.WithDisabledAutostart(),
				health.WithTimeout(healthStatusTimeoutS),
				health.WithStatusListener(func(ctx context.Context, state health.State) {
					log.Info(ctx, "readiness status changed", slog.String("status", string(state.Status)))
				}),
			),
		),
	)

	go func() {
		err := status.Start(ctx, &cfg.BaseConfig, liveness, readiness)
		if err != nil {
			log.Error(ctx, "Failure on the status server", err)

			_ = syscall.Kill(syscall.Getpid(), syscall.SIGTERM)
		}
	}()
}

func Cmd(buildInfo string) *cobra.Command {
	var cmd = &cobra.Command{
		Use:   "api-server",
		Short: "MDF Connect API Server",
		Long: "MDF Connect API Server accepts dataset submissions, reports their status " +
			"and lets curators accept or reject held submissions.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadForBuild(buildInfo)
			if err != nil {
				return oops.In("main").Wrapf(err, "failed to load config")
			}

			err = run(cmd.Context(), cfg)
			if err != nil {
				return oops.In("main").Wrapf(err, "failed to run the api server")
			}

			return nil
		},
	}

	return cmd
}
