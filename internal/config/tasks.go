package config

const (
	TypeSubmissionStart = "submission:start"
	TypeSubmissionSync  = "submission:sync"
	TypeFlowSync        = "flow:sync"
)

var DefinedTasks = map[string]struct{}{
	TypeSubmissionStart: {},
	TypeSubmissionSync:  {},
	TypeFlowSync:        {},
}

// PeriodicTasks are scheduled unless the scheduler config overrides them.
var PeriodicTasks = map[string]Task{
	TypeFlowSync: {
		TaskType: TypeFlowSync,
		Enabled:  true,
		Cronspec: "@every 1m",
		Retries:  0,
	},
}
