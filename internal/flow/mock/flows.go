package mock

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/materials-data-facility/connect/internal/clients/globus"
)

// Flows is an in-memory Globus Flows service.
type Flows struct {
	mu sync.Mutex

	flows   map[string]*globus.Flow
	runs    map[string]*globus.Run
	logs    map[string][]globus.LogEntry
	inputs  map[string]any
	order   []string
	counter int

	// RunErr makes RunFlow fail when set.
	RunErr error
	// LostRunErr makes RunFlow start the run and then fail.
	LostRunErr error
	// StatusErr makes GetRun fail when set.
	StatusErr error

	Cancelled []string
}

func NewFlows() *Flows {
	return &Flows{
		flows:  make(map[string]*globus.Flow),
		runs:   make(map[string]*globus.Run),
		logs:   make(map[string][]globus.LogEntry),
		inputs: make(map[string]any),
	}
}

func notFound(kind, id string) error {
	return &globus.APIError{Status: http.StatusNotFound, Code: "NOT_FOUND", Message: kind + " " + id + " not found"}
}

func (f *Flows) CreateFlow(_ context.Context, req globus.FlowRequest) (*globus.Flow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.counter++
	id := fmt.Sprintf("flow-%d", f.counter)
	flow := &globus.Flow{
		ID:              id,
		Title:           req.Title,
		Subtitle:        req.Subtitle,
		Description:     req.Description,
		Keywords:        req.Keywords,
		GlobusAuthScope: "https://auth.globus.org/scopes/" + id + "/flow_" + id + "_user",
	}
	f.flows[id] = flow

	return flow, nil
}

func (f *Flows) UpdateFlow(_ context.Context, flowID string, req globus.FlowRequest) (*globus.Flow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	flow, ok := f.flows[flowID]
	if !ok {
		return nil, notFound("flow", flowID)
	}

	flow.Title = req.Title
	flow.Subtitle = req.Subtitle
	flow.Description = req.Description
	flow.Keywords = req.Keywords

	return flow, nil
}

func (f *Flows) GetFlow(_ context.Context, flowID string) (*globus.Flow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	flow, ok := f.flows[flowID]
	if !ok {
		return nil, notFound("flow", flowID)
	}

	return flow, nil
}

func (f *Flows) RunFlow(_ context.Context, flowID, flowScope string, req globus.RunRequest) (*globus.Run, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.RunErr != nil {
		return nil, f.RunErr
	}

	flow, ok := f.flows[flowID]
	if !ok {
		return nil, notFound("flow", flowID)
	}

	if flow.GlobusAuthScope != flowScope {
		return nil, &globus.APIError{Status: http.StatusForbidden, Message: "wrong scope"}
	}

	f.counter++
	run := &globus.Run{
		RunID:  fmt.Sprintf("run-%d", f.counter),
		FlowID: flowID,
		Status: globus.RunStatusActive,
		Label:  req.Label,
	}
	f.runs[run.RunID] = run
	f.inputs[run.RunID] = req.Body
	f.logs[run.RunID] = []globus.LogEntry{{Code: globus.LogFlowStarted}}
	f.order = append(f.order, run.RunID)

	if f.LostRunErr != nil {
		return nil, f.LostRunErr
	}

	return run, nil
}

func (f *Flows) ListRuns(_ context.Context, flowID, label string) ([]globus.Run, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []globus.Run

	for i := len(f.order) - 1; i >= 0; i-- {
		run := f.runs[f.order[i]]
		if run.FlowID == flowID && (label == "" || run.Label == label) {
			out = append(out, *run)
		}
	}

	return out, nil
}

func (f *Flows) GetRun(_ context.Context, runID string) (*globus.Run, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.StatusErr != nil {
		return nil, f.StatusErr
	}

	run, ok := f.runs[runID]
	if !ok {
		return nil, notFound("run", runID)
	}

	out := *run

	return &out, nil
}

func (f *Flows) GetRunLog(_ context.Context, runID string) ([]globus.LogEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.runs[runID]; !ok {
		return nil, notFound("run", runID)
	}

	return append([]globus.LogEntry(nil), f.logs[runID]...), nil
}

func (f *Flows) CancelRun(_ context.Context, runID string) (*globus.Run, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	run, ok := f.runs[runID]
	if !ok {
		return nil, notFound("run", runID)
	}

	run.Status = globus.RunStatusEnded
	f.logs[runID] = append(f.logs[runID], globus.LogEntry{Code: globus.LogFlowCanceled})
	f.Cancelled = append(f.Cancelled, runID)

	return run, nil
}

// Runs returns the ids of every run started so far.
func (f *Flows) Runs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]string, 0, len(f.runs))
	for id := range f.runs {
		out = append(out, id)
	}

	return out
}

// Input returns the body a run was started with.
func (f *Flows) Input(runID string) any {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.inputs[runID]
}

// Progress appends log entries and sets the run status.
func (f *Flows) Progress(runID, runStatus string, entries ...globus.LogEntry) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if run, ok := f.runs[runID]; ok {
		run.Status = runStatus
	}

	f.logs[runID] = append(f.logs[runID], entries...)
}

// Started is a log entry for a state beginning.
func Started(state string) globus.LogEntry {
	return globus.LogEntry{Code: globus.LogActionStarted, Details: map[string]any{"state_name": state}}
}

// Completed is a log entry for a state finishing.
func Completed(state string) globus.LogEntry {
	return globus.LogEntry{Code: globus.LogActionCompleted, Details: map[string]any{"state_name": state}}
}

// Failed is a log entry for a state failing with description.
func Failed(state, description string) globus.LogEntry {
	return globus.LogEntry{
		Code:        globus.LogActionFailed,
		Description: description,
		Details:     map[string]any{"state_name": state},
	}
}
