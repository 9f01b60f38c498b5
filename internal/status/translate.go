package status

import "fmt"

// StepStatus is the human readable view of one step.
type StepStatus struct {
	Step        string `json:"step"`
	Description string `json:"description"`
	Code        string `json:"code"`
	Text        string `json:"text"`
}

// Translate renders every step of s. messages holds the optional per-step
// text keyed by step name.
func Translate(s StatusCode, messages map[string]string) []StepStatus {
	out := make([]StepStatus, 0, len(Steps))

	for i, step := range Steps {
		code := CodeUnknown
		if i < len(s) {
			code = Code(s[i])
		}

		out = append(out, StepStatus{
			Step:        step.Name,
			Description: step.Description,
			Code:        code.String(),
			Text:        describe(step.Description, code, messages[step.Name]),
		})
	}

	return out
}

func describe(desc string, code Code, msg string) string {
	if msg == "" && code.CarriesMessage() {
		msg = "no details available"
	}

	switch code {
	case CodeNotStarted:
		return desc + " has not started yet."
	case CodeInProgress:
		return desc + " is in progress."
	case CodeRetrying:
		return fmt.Sprintf("%s is retrying: %s", desc, msg)
	case CodeRetryLater:
		return fmt.Sprintf("%s failed (step will be retried): %s", desc, msg)
	case CodeHeld:
		return desc + " is waiting for a curator."
	case CodeSuccess:
		return desc + " was successful."
	case CodeSuccessMsg:
		return fmt.Sprintf("%s was successful: %s", desc, msg)
	case CodeSuccessLink:
		return fmt.Sprintf("%s was successful: %s", desc, msg)
	case CodeNotRequested:
		return desc + " was not requested or required."
	case CodeFailed:
		return fmt.Sprintf("%s failed: %s", desc, msg)
	case CodeCancelled:
		return desc + " was cancelled."
	case CodeUnknown:
		return fmt.Sprintf("%s is in an unknown state: %s", desc, msg)
	default:
		return fmt.Sprintf("%s has an unrecognised code %q.", desc, byte(code))
	}
}
