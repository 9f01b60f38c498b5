package flow

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"

	"github.com/materials-data-facility/connect/internal/clients/globus"
	"github.com/materials-data-facility/connect/internal/errs"
)

const maxLabelLength = 64

var (
	ErrNotDeployed = errors.New("flow is not deployed")
	ErrDeployFlow  = errors.New("failed to deploy flow")
	ErrRunFlow     = errors.New("failed to run flow")
	ErrRunStatus   = errors.New("failed to get flow run status")
	ErrCancelRun   = errors.New("failed to cancel flow run")
	ErrSaveFlow    = errors.New("failed to save flow")
	ErrLoadFlow    = errors.New("failed to load flow")
)

// FlowsAPI is the part of the Globus Flows service the runner needs.
type FlowsAPI interface {
	CreateFlow(ctx context.Context, req globus.FlowRequest) (*globus.Flow, error)
	UpdateFlow(ctx context.Context, flowID string, req globus.FlowRequest) (*globus.Flow, error)
	GetFlow(ctx context.Context, flowID string) (*globus.Flow, error)
	RunFlow(ctx context.Context, flowID, flowScope string, req globus.RunRequest) (*globus.Run, error)
	ListRuns(ctx context.Context, flowID, label string) ([]globus.Run, error)
	GetRun(ctx context.Context, runID string) (*globus.Run, error)
	GetRunLog(ctx context.Context, runID string) ([]globus.LogEntry, error)
	CancelRun(ctx context.Context, runID string) (*globus.Run, error)
}

var _ FlowsAPI = (*globus.FlowsClient)(nil)

// Visibility lists the Globus identities or groups allowed to act on the
// flow and its runs.
type Visibility struct {
	FlowViewers        []string `json:"flow_viewers,omitempty"`
	FlowStarters       []string `json:"flow_starters,omitempty"`
	FlowAdministrators []string `json:"flow_administrators,omitempty"`
	RunManagers        []string `json:"run_managers,omitempty"`
	RunMonitors        []string `json:"run_monitors,omitempty"`
}

// GlobusAutomateFlow is a handle on a deployed flow. The handle is what
// gets saved to disk so later processes can run the same flow.
type GlobusAutomateFlow struct {
	FlowID      string         `json:"flow_id,omitempty"`
	FlowScope   string         `json:"flow_scope,omitempty"`
	Title       string         `json:"title"`
	Subtitle    string         `json:"subtitle,omitempty"`
	Description string         `json:"description,omitempty"`
	Keywords    []string       `json:"keywords,omitempty"`
	Visibility  Visibility     `json:"visibility"`
	Definition  *Definition    `json:"definition"`
	InputSchema map[string]any `json:"input_schema"`

	client FlowsAPI
}

// RunStatus is the remote state of a run together with its log.
type RunStatus struct {
	Run *globus.Run
	Log []globus.LogEntry
}

// NewGlobusAutomateFlow creates an undeployed handle.
func NewGlobusAutomateFlow(
	client FlowsAPI,
	title string,
	definition *Definition,
	inputSchema map[string]any,
) *GlobusAutomateFlow {
	return &GlobusAutomateFlow{
		Title:       title,
		Definition:  definition,
		InputSchema: inputSchema,
		client:      client,
	}
}

// LoadFlow reads a handle written by Save.
func LoadFlow(path string, client FlowsAPI) (*GlobusAutomateFlow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.Wrap(ErrLoadFlow, err)
	}

	f := &GlobusAutomateFlow{}

	err = json.Unmarshal(data, f)
	if err != nil {
		return nil, errs.Wrap(ErrLoadFlow, err)
	}

	if f.Definition == nil {
		return nil, errs.Wrapf(ErrLoadFlow, "definition is missing")
	}

	f.client = client

	return f, nil
}

// Save writes the handle as JSON.
func (f *GlobusAutomateFlow) Save(path string) error {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return errs.Wrap(ErrSaveFlow, err)
	}

	err = os.MkdirAll(filepath.Dir(path), 0o750)
	if err != nil {
		return errs.Wrap(ErrSaveFlow, err)
	}

	err = os.WriteFile(path, data, 0o600)
	if err != nil {
		return errs.Wrap(ErrSaveFlow, err)
	}

	return nil
}

func (f *GlobusAutomateFlow) Deployed() bool {
	return f.FlowID != "" && f.FlowScope != ""
}

// Deploy creates the flow, or updates it in place when the handle already
// carries a flow id that the service still knows.
func (f *GlobusAutomateFlow) Deploy(ctx context.Context) error {
	err := f.Definition.Validate()
	if err != nil {
		return errs.Wrap(ErrDeployFlow, err)
	}

	req := globus.FlowRequest{
		Title:              f.Title,
		Subtitle:           f.Subtitle,
		Description:        f.Description,
		Keywords:           f.Keywords,
		Definition:         f.Definition,
		InputSchema:        f.InputSchema,
		FlowViewers:        f.Visibility.FlowViewers,
		FlowStarters:       f.Visibility.FlowStarters,
		FlowAdministrators: f.Visibility.FlowAdministrators,
		RunManagers:        f.Visibility.RunManagers,
		RunMonitors:        f.Visibility.RunMonitors,
	}

	var deployed *globus.Flow

	if f.FlowID != "" {
		deployed, err = f.client.UpdateFlow(ctx, f.FlowID, req)
		if globus.IsNotFound(err) {
			deployed, err = f.client.CreateFlow(ctx, req)
		}
	} else {
		deployed, err = f.client.CreateFlow(ctx, req)
	}

	if err != nil {
		return errs.Wrap(ErrDeployFlow, err)
	}

	f.FlowID = deployed.ID
	if deployed.GlobusAuthScope != "" {
		f.FlowScope = deployed.GlobusAuthScope
	}

	return nil
}

// Run starts the flow and returns the run id. An unfinished run that
// already carries label is returned instead of starting another one, and a
// failed start whose outcome is unknown is resolved the same way.
func (f *GlobusAutomateFlow) Run(ctx context.Context, input any, label string, tags []string) (string, error) {
	if !f.Deployed() {
		return "", ErrNotDeployed
	}

	if len(label) > maxLabelLength {
		label = label[:maxLabelLength]
	}

	runID, err := f.unfinishedRun(ctx, label)
	if err != nil {
		return "", errs.Wrap(ErrRunFlow, err)
	}

	if runID != "" {
		return runID, nil
	}

	run, err := f.client.RunFlow(ctx, f.FlowID, f.FlowScope, globus.RunRequest{
		Body:        input,
		Label:       label,
		Tags:        tags,
		RunManagers: f.Visibility.RunManagers,
		RunMonitors: f.Visibility.RunMonitors,
	})
	if err == nil {
		return run.RunID, nil
	}

	if globus.MayHaveSucceeded(err) {
		runID, lookupErr := f.unfinishedRun(ctx, label)
		if lookupErr != nil {
			return "", errs.Wrap(ErrRunFlow, errors.Join(err, lookupErr))
		}

		if runID != "" {
			return runID, nil
		}
	}

	return "", errs.Wrap(ErrRunFlow, err)
}

func (f *GlobusAutomateFlow) unfinishedRun(ctx context.Context, label string) (string, error) {
	if label == "" {
		return "", nil
	}

	runs, err := f.client.ListRuns(ctx, f.FlowID, label)
	if err != nil {
		return "", err
	}

	for _, run := range runs {
		if run.Label == label && !run.Finished() {
			return run.RunID, nil
		}
	}

	return "", nil
}

func (f *GlobusAutomateFlow) RunStatus(ctx context.Context, runID string) (*RunStatus, error) {
	run, err := f.client.GetRun(ctx, runID)
	if err != nil {
		return nil, errs.Wrap(ErrRunStatus, err)
	}

	entries, err := f.client.GetRunLog(ctx, runID)
	if err != nil {
		return nil, errs.Wrap(ErrRunStatus, err)
	}

	return &RunStatus{Run: run, Log: entries}, nil
}

// CancelRun asks the service to stop a run. Runs that already finished
// or no longer exist are left alone.
func (f *GlobusAutomateFlow) CancelRun(ctx context.Context, runID string) error {
	run, err := f.client.GetRun(ctx, runID)
	if err != nil {
		if globus.IsNotFound(err) {
			return nil
		}

		return errs.Wrap(ErrCancelRun, err)
	}

	if run.Finished() {
		return nil
	}

	_, err = f.client.CancelRun(ctx, runID)
	if err != nil {
		return errs.Wrap(ErrCancelRun, err)
	}

	return nil
}
