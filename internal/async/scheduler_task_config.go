package async

import (
	"maps"
	"slices"

	"github.com/hibiken/asynq"

	"github.com/materials-data-facility/connect/internal/config"
)

// ScheduledTaskConfigProvider implements asynq PeriodicTaskConfigProvider interface.
type ScheduledTaskConfigProvider struct {
	Config *config.Config
}

// GetConfigs merges the configured tasks over the default periodic tasks
// and returns the enabled ones.
func (p *ScheduledTaskConfigProvider) GetConfigs() ([]*asynq.PeriodicTaskConfig, error) {
	tasks := maps.Clone(config.PeriodicTasks)

	for _, t := range p.Config.Scheduler.Tasks {
		tasks[t.TaskType] = t
	}

	configs := make([]*asynq.PeriodicTaskConfig, 0, len(tasks))

	for _, taskType := range slices.Sorted(maps.Keys(tasks)) {
		cfg := tasks[taskType]
		if !cfg.Enabled {
			continue
		}

		configs = append(configs, &asynq.PeriodicTaskConfig{
			Cronspec: cfg.Cronspec,
			Task: asynq.NewTask(
				taskType,
				nil,
				asynq.MaxRetry(cfg.Retries),
			),
		})
	}

	return configs, nil
}
