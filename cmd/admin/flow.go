package admin

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/materials-data-facility/connect/internal/flow"
)

const (
	formatJSON = "json"
	formatYAML = "yaml"
)

// FlowSource returns the flow handle the flow commands act on.
type FlowSource func(ctx context.Context) (*flow.GlobusAutomateFlow, error)

// flowSummary is what `flow show` prints.
type flowSummary struct {
	FlowID    string   `json:"flow_id"`
	FlowScope string   `json:"flow_scope"`
	Title     string   `json:"title"`
	Deployed  bool     `json:"deployed"`
	States    []string `json:"states"`
}

func NewFlowCmd(source FlowSource, flowFile func() string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "flow",
		Short: "Manage the Globus flow",
	}

	cmd.AddCommand(
		newFlowDeployCmd(source, flowFile),
		newFlowShowCmd(source),
		newFlowExportCmd(source),
	)

	return cmd
}

func newFlowDeployCmd(source FlowSource, flowFile func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "deploy",
		Short: "Create or update the flow and save its handle",
		Long: "Create the flow in Globus Flows, or update it in place when the flow file\n" +
			"already names a deployed flow, then write the handle back to the flow file.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			handle, err := source(cmd.Context())
			if err != nil {
				cmd.PrintErrf("Failed to load flow: %v\n", err)
				return err
			}

			err = handle.Deploy(cmd.Context())
			if err != nil {
				cmd.PrintErrf("Failed to deploy flow: %v\n", err)
				return err
			}

			err = handle.Save(flowFile())
			if err != nil {
				cmd.PrintErrf("Failed to save flow: %v\n", err)
				return err
			}

			cmd.Printf("Flow %s deployed with scope %s\n", handle.FlowID, handle.FlowScope)

			return nil
		},
	}
}

func newFlowShowCmd(source FlowSource) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the flow handle",
		RunE: func(cmd *cobra.Command, _ []string) error {
			handle, err := source(cmd.Context())
			if err != nil {
				cmd.PrintErrf("Failed to load flow: %v\n", err)
				return err
			}

			return printJSON(cmd, flowSummary{
				FlowID:    handle.FlowID,
				FlowScope: handle.FlowScope,
				Title:     handle.Title,
				Deployed:  handle.Deployed(),
				States:    handle.Definition.StateNames(),
			})
		},
	}
}

func newFlowExportCmd(source FlowSource) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Print the flow definition",
		RunE: func(cmd *cobra.Command, _ []string) error {
			handle, err := source(cmd.Context())
			if err != nil {
				cmd.PrintErrf("Failed to load flow: %v\n", err)
				return err
			}

			var data []byte

			switch format {
			case formatJSON:
				data, err = handle.Definition.JSON()
			case formatYAML:
				data, err = handle.Definition.YAML()
			default:
				err = fmt.Errorf("%w: %s", ErrUnknownFormat, format)
			}

			if err != nil {
				cmd.PrintErrf("Failed to export flow: %v\n", err)
				return err
			}

			cmd.Print(string(data))

			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", formatYAML, "Output format: yaml or json")

	return cmd
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "\t")
	if err != nil {
		cmd.PrintErrf("Failed to marshal to JSON: %v\n", err)
		return err
	}

	cmd.Println(string(data))

	return nil
}
