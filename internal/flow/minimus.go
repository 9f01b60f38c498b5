package flow

import (
	"github.com/materials-data-facility/connect/internal/status"
	"github.com/materials-data-facility/connect/utils/ptr"
)

const (
	StateUserPermissions   = "UserPermissions"
	StateUserTransfer      = "UserTransfer"
	StateCheckUserTransfer = "CheckUserTransfer"
	StateNotifyUserEnd     = "NotifyUserEnd"
	StateTransferFailed    = "TransferFailed"

	TransferActionURL       = "https://actions.globus.org/transfer/transfer"
	TransferActionScope     = "https://auth.globus.org/scopes/actions.globus.org/transfer/transfer"
	PermissionActionURL     = "https://actions.globus.org/transfer/set_permission"
	NotificationActionURL   = "https://actions.globus.org/notification/notify"
	NotificationActionScope = "https://auth.globus.org/scopes/actions.globus.org/notification/notify"

	MinimusTitle = "MDF Connect Minimus"
)

// StepMap assigns flow states to the status step they report on. Steps
// that no flow state reports on are not requested.
var StepMap = map[string]string{
	StateUserPermissions:   status.StepDataTransfer,
	StateUserTransfer:      status.StepDataTransfer,
	StateCheckUserTransfer: status.StepDataTransfer,
	StateNotifyUserEnd:     status.StepIngestCleanup,
}

// stepStates is the reverse of StepMap. The last state of each list
// finishes the step.
var stepStates = map[string][]string{
	status.StepDataTransfer:  {StateUserPermissions, StateUserTransfer, StateCheckUserTransfer},
	status.StepIngestCleanup: {StateNotifyUserEnd},
}

// StatesFor returns the flow states reporting on step, in flow order.
func StatesFor(step string) []string {
	return stepStates[step]
}

// NewMinimusFlow returns an undeployed handle on the minimus flow.
func NewMinimusFlow(client FlowsAPI) *GlobusAutomateFlow {
	f := NewGlobusAutomateFlow(client, MinimusTitle, MinimusDefinition(), MinimusInputSchema())
	f.Subtitle = "Transfer submitted data into MDF"
	f.Keywords = []string{"MDF", "Connect", "materials"}

	return f
}

// MinimusDefinition is the four step MDF flow: grant the submitter access
// to the destination, transfer the data, check the transfer and notify
// the submitter.
func MinimusDefinition() *Definition {
	return &Definition{
		Comment: "MDF Connect minimus flow",
		StartAt: StateUserPermissions,
		States: map[string]*State{
			StateUserPermissions: {
				Type:      StateTypeAction,
				Comment:   "Give the submitter write access to the destination directory",
				ActionURL: PermissionActionURL,
				Parameters: map[string]any{
					"operation":      "CREATE",
					"endpoint_id.$":  "$.destination_endpoint_id",
					"path.$":         "$.destination_path",
					"principal_type": "identity",
					"principal.$":    "$.user_identity_id",
					"permissions":    "rw",
				},
				ResultPath: "$.UserPermissionsResult",
				Next:       StateUserTransfer,
			},
			StateUserTransfer: {
				Type:        StateTypeAction,
				Comment:     "Transfer the submitted data to the destination",
				ActionURL:   TransferActionURL,
				ActionScope: TransferActionScope,
				Parameters: map[string]any{
					"source_endpoint_id.$":      "$.source_endpoint_id",
					"destination_endpoint_id.$": "$.destination_endpoint_id",
					"transfer_items.$":          "$.transfer_items",
					"label.$":                   "$.label",
				},
				ResultPath:               "$.UserTransferResult",
				ExceptionOnActionFailure: ptr.PointTo(false),
				WaitTime:                 86400,
				Catch: []CatchRule{{
					ErrorEquals: []string{"States.ALL"},
					Next:        StateTransferFailed,
					ResultPath:  "$.UserTransferError",
				}},
				Next: StateCheckUserTransfer,
			},
			StateCheckUserTransfer: {
				Type:    StateTypeChoice,
				Comment: "Continue only when the transfer succeeded",
				Choices: []ChoiceRule{{
					Variable:     "$.UserTransferResult.details.status",
					StringEquals: "SUCCEEDED",
					Next:         StateNotifyUserEnd,
				}},
				Default: StateTransferFailed,
			},
			StateNotifyUserEnd: {
				Type:        StateTypeAction,
				Comment:     "Tell the submitter the submission finished",
				ActionURL:   NotificationActionURL,
				ActionScope: NotificationActionScope,
				Parameters: map[string]any{
					"destination.$":         "$.user_email",
					"subject":               "MDF Connect submission finished",
					"body_template":         "Your submission $source_id finished processing.",
					"body_variables":        map[string]any{"source_id.$": "$.source_id"},
					"notification_method":   "email",
					"notification_type":     "success",
					"notification_priority": "low",
				},
				ResultPath: "$.NotifyUserEndResult",
				End:        true,
			},
			StateTransferFailed: {
				Type:  StateTypeFail,
				Cause: "The data transfer failed",
				Error: "TransferFailed",
			},
		},
	}
}

// MinimusInputSchema is the JSON schema of the input BuildInput produces.
func MinimusInputSchema() map[string]any {
	str := map[string]any{"type": "string"}

	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"required": []any{
			"source_id", "label", "source_endpoint_id", "destination_endpoint_id",
			"destination_path", "transfer_items", "user_identity_id", "user_email",
		},
		"properties": map[string]any{
			"source_id":               str,
			"label":                   str,
			"source_endpoint_id":      str,
			"destination_endpoint_id": str,
			"destination_path":        str,
			"user_identity_id":        str,
			"user_email":              str,
			"transfer_items": map[string]any{
				"type":     "array",
				"minItems": 1,
				"items": map[string]any{
					"type":     "object",
					"required": []any{"source_path", "destination_path"},
					"properties": map[string]any{
						"source_path":      str,
						"destination_path": str,
						"recursive":        map[string]any{"type": "boolean"},
					},
				},
			},
		},
	}
}
