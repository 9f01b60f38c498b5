package taskscheduler

import (
	"github.com/openkcm/common-sdk/pkg/logger"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/materials-data-facility/connect/internal/async"
	"github.com/materials-data-facility/connect/internal/config"
	"github.com/materials-data-facility/connect/internal/log"
)

func Cmd(buildInfo string) *cobra.Command {
	var cmd = &cobra.Command{
		Use:   "task-scheduler",
		Short: "MDF Connect Task Scheduler",
		Long:  "MDF Connect Task Scheduler - enqueues the periodic flow sync and other scheduled tasks.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			cfg, err := config.LoadForBuild(buildInfo)
			if err != nil {
				return oops.In("main").Wrapf(err, "failed to load the config")
			}

			err = logger.InitAsDefault(cfg.Logger, cfg.Application)
			if err != nil {
				return oops.In("main").
					Wrapf(err, "Failed to initialise the logger")
			}

			scheduler, err := async.New(cfg)
			if err != nil {
				return oops.In("main").Wrapf(err, "failed to create the scheduler")
			}

			err = scheduler.RunScheduler()
			if err != nil {
				return oops.In("main").Wrapf(err, "failed to start the scheduler job")
			}

			<-ctx.Done()

			err = scheduler.Shutdown(ctx)
			if err != nil {
				return oops.In("main").Wrapf(err, "failed to shutdown the scheduler")
			}

			log.Info(ctx, "shutting down scheduler")

			return nil
		},
	}

	return cmd
}
