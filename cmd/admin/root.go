package admin

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/openkcm/common-sdk/pkg/logger"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/materials-data-facility/connect/internal/async"
	"github.com/materials-data-facility/connect/internal/clients"
	"github.com/materials-data-facility/connect/internal/config"
	"github.com/materials-data-facility/connect/internal/flow"
	"github.com/materials-data-facility/connect/internal/repo"
)

// env is filled in before any admin subcommand runs.
type env struct {
	cfg      *config.Config
	factory  *clients.Factory
	asyncApp *async.App
}

func (e *env) flow(ctx context.Context) (*flow.GlobusAutomateFlow, error) {
	return e.factory.Flow(ctx)
}

func (e *env) table(ctx context.Context) (TableCreator, error) {
	return e.factory.DynamoStore(ctx)
}

func (e *env) store(ctx context.Context) (repo.StatusStore, error) {
	return e.factory.StatusStore(ctx)
}

func (e *env) taskQueue() (*async.App, error) {
	if e.asyncApp != nil {
		return e.asyncApp, nil
	}

	app, err := async.New(e.cfg)
	if err != nil {
		return nil, oops.In("admin").Wrapf(err, "failed to create the task queue client")
	}

	e.asyncApp = app

	return app, nil
}

func (e *env) inspector() (Inspector, error) {
	app, err := e.taskQueue()
	if err != nil {
		return nil, err
	}

	return app.Inspector(), nil
}

func (e *env) client() (async.Client, error) {
	app, err := e.taskQueue()
	if err != nil {
		return nil, err
	}

	return app.Client(), nil
}

// NewRootCmd is the admin command group. With --sleep it blocks until the
// process is signalled so a container can stay up for exec sessions.
func NewRootCmd(ctx context.Context) *cobra.Command {
	cmd := newRootCmd()
	cmd.SetContext(ctx)

	return cmd
}

func newRootCmd() *cobra.Command {
	var sleep bool

	cmd := &cobra.Command{
		Use:   "admin",
		Short: "MDF Connect administration",
		Long:  "Deploy the flow, create the status table, inspect submissions and the task queue.",
		Run: func(cmd *cobra.Command, _ []string) {
			if !sleep {
				_ = cmd.Help()
				return
			}

			cmd.Println("Pod running...")

			sigCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			<-sigCtx.Done()
			cmd.Println("Shutting down gracefully...")
		},
	}

	cmd.PersistentFlags().BoolVar(&sleep, "sleep", false, "Enable sleep mode")

	return cmd
}

// Cmd wires the admin commands to the clients built from the config.
func Cmd(buildInfo string) *cobra.Command {
	e := &env{}

	cmd := newRootCmd()
	cmd.PersistentPreRunE = func(_ *cobra.Command, _ []string) error {
		cfg, err := config.LoadForBuild(buildInfo)
		if err != nil {
			return oops.In("admin").Wrapf(err, "failed to load config")
		}

		err = logger.InitAsDefault(cfg.Logger, cfg.Application)
		if err != nil {
			return oops.In("admin").Wrapf(err, "Failed to initialise the logger")
		}

		e.cfg = cfg
		e.factory = clients.NewFactory(cfg)

		return nil
	}
	cmd.PersistentPostRunE = func(cmd *cobra.Command, _ []string) error {
		if e.asyncApp != nil {
			err := e.asyncApp.Shutdown(cmd.Context())
			if err != nil {
				return err
			}
		}

		if e.factory != nil {
			return e.factory.Close(cmd.Context())
		}

		return nil
	}

	cmd.AddCommand(
		NewFlowCmd(e.flow, func() string { return e.cfg.Globus.FlowFile }),
		NewTableCmd(e.table),
		NewSubmissionCmd(e.store),
		NewTasksCmd(e.inspector, e.client),
	)

	return cmd
}
