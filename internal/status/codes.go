package status

// Code is the single-character state of one step.
type Code byte

const (
	CodeNotStarted   Code = 'z'
	CodeInProgress   Code = 'P'
	CodeRetrying     Code = 'T'
	CodeRetryLater   Code = 'R'
	CodeHeld         Code = 'H'
	CodeUnknown      Code = 'U'
	CodeSuccess      Code = 'S'
	CodeSuccessMsg   Code = 'M'
	CodeSuccessLink  Code = 'L'
	CodeNotRequested Code = 'N'
	CodeFailed       Code = 'F'
	CodeCancelled    Code = 'X'
)

func (c Code) String() string {
	return string(c)
}

var knownCodes = map[Code]struct{}{
	CodeNotStarted: {}, CodeInProgress: {}, CodeRetrying: {}, CodeRetryLater: {},
	CodeHeld: {}, CodeUnknown: {}, CodeSuccess: {}, CodeSuccessMsg: {},
	CodeSuccessLink: {}, CodeNotRequested: {}, CodeFailed: {}, CodeCancelled: {},
}

// Valid reports whether c is one of the defined codes.
func (c Code) Valid() bool {
	_, ok := knownCodes[c]
	return ok
}

// Terminal codes never change once written.
func (c Code) Terminal() bool {
	switch c {
	case CodeSuccess, CodeSuccessMsg, CodeSuccessLink, CodeNotRequested, CodeFailed, CodeCancelled:
		return true
	default:
		return false
	}
}

// Done codes let the following step start.
func (c Code) Done() bool {
	switch c {
	case CodeSuccess, CodeSuccessMsg, CodeSuccessLink, CodeNotRequested:
		return true
	default:
		return false
	}
}

// CarriesMessage reports whether the per-step message is part of the
// translated text for c.
func (c Code) CarriesMessage() bool {
	switch c {
	case CodeSuccessMsg, CodeSuccessLink, CodeFailed, CodeRetryLater, CodeRetrying, CodeUnknown:
		return true
	default:
		return false
	}
}
