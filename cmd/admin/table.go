package admin

import (
	"context"

	"github.com/spf13/cobra"
)

// TableCreator creates the status table with its indexes.
type TableCreator interface {
	CreateTable(ctx context.Context) error
}

func NewTableCmd(creator func(ctx context.Context) (TableCreator, error)) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "table",
		Short: "Manage the status table",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "create",
		Short: "Create the status table",
		Long:  "Create the DynamoDB status table with its user and source name indexes.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			tc, err := creator(cmd.Context())
			if err != nil {
				cmd.PrintErrf("Failed to connect to the status store: %v\n", err)
				return err
			}

			err = tc.CreateTable(cmd.Context())
			if err != nil {
				cmd.PrintErrf("Failed to create table: %v\n", err)
				return err
			}

			cmd.Println("Status table created")

			return nil
		},
	})

	return cmd
}
