package globus

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	retry "github.com/avast/retry-go/v5"

	"github.com/materials-data-facility/connect/internal/errs"
)

const (
	delay        = 200 * time.Millisecond
	maxDelay     = 5 * time.Second
	attempts     = 4
	logPageLimit = 100
	maxErrorBody = 4096
)

// Run statuses reported by the Flows service.
const (
	RunStatusActive    = "ACTIVE"
	RunStatusInactive  = "INACTIVE"
	RunStatusSucceeded = "SUCCEEDED"
	RunStatusFailed    = "FAILED"
	RunStatusEnded     = "ENDED"
)

// Log entry codes reported by the Flows service.
const (
	LogFlowStarted     = "FlowStarted"
	LogFlowSucceeded   = "FlowSucceeded"
	LogFlowFailed      = "FlowFailed"
	LogFlowCanceled    = "FlowCanceled"
	LogActionStarted   = "ActionStarted"
	LogActionCompleted = "ActionCompleted"
	LogActionFailed    = "ActionFailed"
	LogPassCompleted   = "PassCompleted"
	LogChoiceCompleted = "ChoiceCompleted"
	LogFailed          = "Failed"
)

type Config struct {
	Delay    time.Duration
	MaxDelay time.Duration
	Attempts uint
}

// FlowRequest is the body used to create or update a flow.
type FlowRequest struct {
	Title              string   `json:"title"`
	Subtitle           string   `json:"subtitle,omitempty"`
	Description        string   `json:"description,omitempty"`
	Keywords           []string `json:"keywords,omitempty"`
	Definition         any      `json:"definition"`
	InputSchema        any      `json:"input_schema"`
	FlowViewers        []string `json:"flow_viewers,omitempty"`
	FlowStarters       []string `json:"flow_starters,omitempty"`
	FlowAdministrators []string `json:"flow_administrators,omitempty"`
	RunManagers        []string `json:"run_managers,omitempty"`
	RunMonitors        []string `json:"run_monitors,omitempty"`
}

type Flow struct {
	ID              string          `json:"id"`
	Title           string          `json:"title"`
	Subtitle        string          `json:"subtitle,omitempty"`
	Description     string          `json:"description,omitempty"`
	Keywords        []string        `json:"keywords,omitempty"`
	Definition      json.RawMessage `json:"definition,omitempty"`
	InputSchema     json.RawMessage `json:"input_schema,omitempty"`
	GlobusAuthScope string          `json:"globus_auth_scope"`
	CreatedAt       string          `json:"created_at,omitempty"`
	UpdatedAt       string          `json:"updated_at,omitempty"`
}

type RunRequest struct {
	Body        any      `json:"body"`
	Label       string   `json:"label,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	RunManagers []string `json:"run_managers,omitempty"`
	RunMonitors []string `json:"run_monitors,omitempty"`
}

type Run struct {
	RunID          string          `json:"run_id"`
	FlowID         string          `json:"flow_id"`
	Status         string          `json:"status"`
	DisplayStatus  string          `json:"display_status,omitempty"`
	Label          string          `json:"label,omitempty"`
	StartTime      string          `json:"start_time,omitempty"`
	CompletionTime string          `json:"completion_time,omitempty"`
	Details        json.RawMessage `json:"details,omitempty"`
}

// Finished reports whether the run can make no further progress.
func (r *Run) Finished() bool {
	switch r.Status {
	case RunStatusSucceeded, RunStatusFailed, RunStatusEnded:
		return true
	default:
		return false
	}
}

type LogEntry struct {
	Code        string         `json:"code"`
	Description string         `json:"description"`
	Time        string         `json:"time"`
	Details     map[string]any `json:"details,omitempty"`
}

// StateName returns the flow state the entry belongs to, if any.
func (e LogEntry) StateName() string {
	name, _ := e.Details["state_name"].(string)
	return name
}

type runPage struct {
	Runs        []Run  `json:"runs"`
	HasNextPage bool   `json:"has_next_page"`
	Marker      string `json:"marker"`
}

type runLogPage struct {
	Entries     []LogEntry `json:"entries"`
	HasNextPage bool       `json:"has_next_page"`
	Marker      string     `json:"marker"`
}

// FlowsClient talks to the Globus Flows service.
type FlowsClient struct {
	baseURL string
	auth    Authorizer
	config  Config
}

type Option func(*FlowsClient)

func WithBaseURL(baseURL string) Option {
	return func(c *FlowsClient) {
		if baseURL != "" {
			c.baseURL = strings.TrimSuffix(baseURL, "/")
		}
	}
}

func WithConfig(cfg Config) Option {
	return func(c *FlowsClient) {
		if cfg.Attempts > 0 {
			c.config = cfg
		}
	}
}

func NewFlowsClient(auth Authorizer, opts ...Option) *FlowsClient {
	c := &FlowsClient{
		baseURL: DefaultFlowsURL,
		auth:    auth,
		config:  Config{Delay: delay, MaxDelay: maxDelay, Attempts: attempts},
	}

	for _, o := range opts {
		o(c)
	}

	return c
}

func (c *FlowsClient) CreateFlow(ctx context.Context, req FlowRequest) (*Flow, error) {
	flow := &Flow{}

	err := c.do(ctx, retryable, ScopeManageFlows, http.MethodPost, "/flows", nil, req, flow)
	if err != nil {
		return nil, err
	}

	return flow, nil
}

func (c *FlowsClient) UpdateFlow(ctx context.Context, flowID string, req FlowRequest) (*Flow, error) {
	if flowID == "" {
		return nil, ErrMissingID
	}

	flow := &Flow{}

	err := c.do(ctx, retryable, ScopeManageFlows, http.MethodPut, "/flows/"+url.PathEscape(flowID), nil, req, flow)
	if err != nil {
		return nil, err
	}

	return flow, nil
}

func (c *FlowsClient) GetFlow(ctx context.Context, flowID string) (*Flow, error) {
	if flowID == "" {
		return nil, ErrMissingID
	}

	flow := &Flow{}

	err := c.do(ctx, retryable, ScopeManageFlows, http.MethodGet, "/flows/"+url.PathEscape(flowID), nil, nil, flow)
	if err != nil {
		return nil, err
	}

	return flow, nil
}

// RunFlow starts a run. flowScope is the scope the flow was deployed with.
// Starting a run is not idempotent, so the request is only sent again when
// the service refused it with a 429.
func (c *FlowsClient) RunFlow(ctx context.Context, flowID, flowScope string, req RunRequest) (*Run, error) {
	if flowID == "" {
		return nil, ErrMissingID
	}

	if flowScope == "" {
		return nil, ErrMissingFlowScope
	}

	run := &Run{}

	err := c.do(ctx, rejected, flowScope, http.MethodPost, "/flows/"+url.PathEscape(flowID)+"/run", nil, req, run)
	if err != nil {
		return nil, err
	}

	return run, nil
}

// ListRuns returns the runs of flowID carrying label, newest first.
func (c *FlowsClient) ListRuns(ctx context.Context, flowID, label string) ([]Run, error) {
	if flowID == "" {
		return nil, ErrMissingID
	}

	var (
		runs   []Run
		marker string
	)

	for {
		query := url.Values{
			"filter_flow_id": []string{flowID},
			"orderby":        []string{"start_time DESC"},
		}
		if label != "" {
			query.Set("filter_label", label)
		}

		if marker != "" {
			query.Set("marker", marker)
		}

		page := &runPage{}

		err := c.do(ctx, retryable, ScopeRunStatus, http.MethodGet, "/runs", query, nil, page)
		if err != nil {
			return nil, err
		}

		runs = append(runs, page.Runs...)

		if !page.HasNextPage || page.Marker == "" {
			return runs, nil
		}

		marker = page.Marker
	}
}

func (c *FlowsClient) GetRun(ctx context.Context, runID string) (*Run, error) {
	if runID == "" {
		return nil, ErrMissingID
	}

	run := &Run{}

	err := c.do(ctx, retryable, ScopeRunStatus, http.MethodGet, "/runs/"+url.PathEscape(runID), nil, nil, run)
	if err != nil {
		return nil, err
	}

	return run, nil
}

// GetRunLog returns every log entry of a run, oldest first.
func (c *FlowsClient) GetRunLog(ctx context.Context, runID string) ([]LogEntry, error) {
	if runID == "" {
		return nil, ErrMissingID
	}

	var (
		entries []LogEntry
		marker  string
	)

	for {
		query := url.Values{"limit": []string{strconv.Itoa(logPageLimit)}}
		if marker != "" {
			query.Set("marker", marker)
		}

		page := &runLogPage{}

		err := c.do(ctx, retryable, ScopeRunStatus, http.MethodGet, "/runs/"+url.PathEscape(runID)+"/log", query, nil, page)
		if err != nil {
			return nil, err
		}

		entries = append(entries, page.Entries...)

		if !page.HasNextPage || page.Marker == "" {
			return entries, nil
		}

		marker = page.Marker
	}
}

func (c *FlowsClient) CancelRun(ctx context.Context, runID string) (*Run, error) {
	if runID == "" {
		return nil, ErrMissingID
	}

	run := &Run{}

	err := c.do(ctx, retryable, ScopeRunManage, http.MethodPost, "/runs/"+url.PathEscape(runID)+"/cancel", nil, nil, run)
	if err != nil {
		return nil, err
	}

	return run, nil
}

func (c *FlowsClient) do(
	ctx context.Context,
	retryIf func(error) bool,
	scope, method, path string,
	query url.Values,
	in, out any,
) error {
	client, err := c.auth.Client(scope)
	if err != nil {
		return errs.Wrap(ErrRequestFailed, err)
	}

	var body []byte
	if in != nil {
		body, err = json.Marshal(in)
		if err != nil {
			return errs.Wrap(ErrEncodeRequest, err)
		}
	}

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	return c.getRetrier(retryIf).Do(func() error {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		return c.send(ctx, client, method, target, body, out)
	})
}

func (c *FlowsClient) send(
	ctx context.Context,
	client *http.Client,
	method, target string,
	body []byte,
	out any,
) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return errs.Wrap(ErrRequestFailed, err)
	}

	req.Header.Set("Accept", "application/json")

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := client.Do(req)
	if err != nil {
		return errs.Wrap(ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}

	err = json.NewDecoder(resp.Body).Decode(out)
	if err != nil && !errors.Is(err, io.EOF) {
		return errs.Wrap(ErrDecodeResponse, err)
	}

	return nil
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	if json.Unmarshal(raw, apiErr) != nil || apiErr.Message == "" {
		apiErr.Message = strings.TrimSpace(string(raw))
	}

	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}

	return errs.Wrap(ErrRequestFailed, apiErr)
}

func retryable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Retryable()
	}

	return errors.Is(err, ErrRequestFailed)
}

func rejected(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusTooManyRequests
}

func (c *FlowsClient) getRetrier(retryIf func(error) bool) *retry.Retrier {
	return retry.New(
		retry.RetryIf(retryIf),
		retry.Delay(c.config.Delay),
		retry.MaxDelay(c.config.MaxDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.Attempts(c.config.Attempts),
		retry.LastErrorOnly(true),
	)
}
