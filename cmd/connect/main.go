package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/openkcm/common-sdk/pkg/utils"
	"github.com/spf13/cobra"

	slogctx "github.com/veqryn/slog-context"

	"github.com/materials-data-facility/connect/cmd/admin"
	"github.com/materials-data-facility/connect/cmd/apiserver"
	"github.com/materials-data-facility/connect/cmd/taskscheduler"
	"github.com/materials-data-facility/connect/cmd/taskworker"
)

var (
	// BuildInfo will be set by the build system
	BuildInfo = "{}"

	skipGracefulShutdown    bool
	gracefulShutdownSec     int64
	gracefulShutdownMessage string
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "MDF Connect Version",
	RunE: func(cmd *cobra.Command, _ []string) error {
		skipGracefulShutdown = true

		value, err := utils.ExtractFromComplexValue(BuildInfo)
		if err != nil {
			return err
		}

		slog.InfoContext(cmd.Context(), value)

		return nil
	},
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "connect",
		Short: "MDF Connect - dataset submission service",
		Long: "MDF Connect accepts dataset submissions for the Materials Data Facility, " +
			"moves the data with Globus Flows and tracks every submission's progress.",
	}

	cmd.PersistentFlags().Int64Var(&gracefulShutdownSec, "graceful-shutdown",
		1,
		"graceful shutdown seconds",
	)
	cmd.PersistentFlags().StringVar(&gracefulShutdownMessage, "graceful-shutdown-message",
		"Graceful shutdown in %d seconds",
		"graceful shutdown message",
	)

	adminCmd := admin.Cmd(BuildInfo)
	adminCmd.PreRun = func(*cobra.Command, []string) { skipGracefulShutdown = true }

	postRun := adminCmd.PersistentPostRunE
	adminCmd.PersistentPostRunE = func(cmd *cobra.Command, args []string) error {
		skipGracefulShutdown = true
		return postRun(cmd, args)
	}

	cmd.AddCommand(
		versionCmd,
		apiserver.Cmd(BuildInfo),
		taskscheduler.Cmd(BuildInfo),
		taskworker.Cmd(BuildInfo),
		adminCmd,
	)

	return cmd
}

func execute() error {
	ctx, cancelOnSignal := signal.NotifyContext(
		context.Background(),
		os.Interrupt, syscall.SIGTERM,
	)
	defer cancelOnSignal()

	err := rootCmd().ExecuteContext(ctx)
	if err != nil {
		slogctx.Error(ctx, "Failed to start the application", "error", err)
		_, _ = fmt.Fprintln(os.Stderr, err)

		return err
	}

	// graceful shutdown so running goroutines may finish
	if !skipGracefulShutdown {
		_, _ = fmt.Fprintln(os.Stderr, fmt.Sprintf(gracefulShutdownMessage, gracefulShutdownSec))
		time.Sleep(time.Duration(gracefulShutdownSec) * time.Second)
	}

	return nil
}

func main() {
	err := execute()
	if err != nil {
		os.Exit(1)
	}
}
