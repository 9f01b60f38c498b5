package admin

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/materials-data-facility/connect/internal/api/transform"
	"github.com/materials-data-facility/connect/internal/repo"
)

func NewSubmissionCmd(store func(ctx context.Context) (repo.StatusStore, error)) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "submission",
		Short: "Inspect submissions",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show <source_id>",
		Short: "Show a submission and its translated status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := store(cmd.Context())
			if err != nil {
				cmd.PrintErrf("Failed to connect to the status store: %v\n", err)
				return err
			}

			sub, err := s.Get(cmd.Context(), args[0])
			if err != nil {
				cmd.PrintErrf("Failed to get submission: %v\n", err)
				return err
			}

			out, err := transform.ToAPI(*sub)
			if err != nil {
				cmd.PrintErrf("Failed to render submission: %v\n", err)
				return err
			}

			return printJSON(cmd, out)
		},
	})

	return cmd
}
