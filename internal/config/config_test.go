package config_test

import (
	"testing"

	"github.com/openkcm/common-sdk/pkg/commoncfg"
	"github.com/stretchr/testify/assert"

	"github.com/materials-data-facility/connect/internal/config"
	"github.com/materials-data-facility/connect/internal/testutils"
)

func validConfig() config.Config {
	return config.Config{
		Dynamo: config.Dynamo{Region: "us-east-1", Table: "mdf-connect-status"},
		Globus: config.Globus{
			ClientID: "client",
			ClientSecret: commoncfg.SourceRef{
				Source: commoncfg.EmbeddedSourceValue,
				Value:  "secret",
			},
		},
		Destination: config.Destination{
			EndpointID: testutils.TestDestEndpoint,
			BasePath:   "/mdf_connect/prod/data/",
			TestPath:   "/mdf_connect/test/data/",
		},
		Retry: config.Retry{Attempts: 5},
	}
}

func TestValidateScheduler(t *testing.T) {
	t.Run("Should successfully validate", func(t *testing.T) {
		scheduler := config.Scheduler{
			Tasks: []config.Task{
				{
					TaskType: config.TypeFlowSync,
					Cronspec: "@every 1m",
				},
			},
		}
		assert.NoError(t, scheduler.Validate())
	})

	t.Run("Should fail validation on unknown task", func(t *testing.T) {
		scheduler := config.Scheduler{
			Tasks: []config.Task{
				{
					TaskType: "UnknownTask",
					Cronspec: "@daily",
				},
			},
		}
		assert.ErrorIs(t, scheduler.Validate(), config.ErrNonDefinedTaskType)
	})

	t.Run("Should fail validation on repeated task", func(t *testing.T) {
		scheduler := config.Scheduler{
			Tasks: []config.Task{
				{TaskType: config.TypeFlowSync, Cronspec: "@every 1m"},
				{TaskType: config.TypeFlowSync, Cronspec: "@every 5m"},
			},
		}
		assert.ErrorIs(t, scheduler.Validate(), config.ErrRepeatedTaskType)
	})
}

func TestValidateConfig(t *testing.T) {
	mutator := testutils.NewMutator(validConfig)

	tests := []struct {
		name   string
		config config.Config
		expErr error
	}{
		{
			name:   "Valid configuration",
			config: mutator(nil),
		},
		{
			name: "Local store needs no table",
			config: mutator(func(c *config.Config) {
				c.Dynamo = config.Dynamo{Local: true}
			}),
		},
		{
			name: "Missing table",
			config: mutator(func(c *config.Config) {
				c.Dynamo.Table = ""
			}),
			expErr: config.ErrDynamoEmptyTable,
		},
		{
			name: "Missing region",
			config: mutator(func(c *config.Config) {
				c.Dynamo.Region = ""
			}),
			expErr: config.ErrDynamoEmptyRegion,
		},
		{
			name: "Missing client id",
			config: mutator(func(c *config.Config) {
				c.Globus.ClientID = ""
			}),
			expErr: config.ErrGlobusEmptyClientID,
		},
		{
			name: "Missing client secret",
			config: mutator(func(c *config.Config) {
				c.Globus.ClientSecret = commoncfg.SourceRef{}
			}),
			expErr: config.ErrGlobusNoClientSecret,
		},
		{
			name: "Secrets manager secret replaces client credentials",
			config: mutator(func(c *config.Config) {
				c.Globus = config.Globus{SecretName: "mdf/globus"}
			}),
		},
		{
			name: "Missing destination endpoint",
			config: mutator(func(c *config.Config) {
				c.Destination.EndpointID = ""
			}),
			expErr: config.ErrDestinationEmptyID,
		},
		{
			name: "Relative destination path",
			config: mutator(func(c *config.Config) {
				c.Destination.TestPath = "test/data"
			}),
			expErr: config.ErrDestinationPath,
		},
		{
			name: "Enabled notifier without target",
			config: mutator(func(c *config.Config) {
				c.Notifier = config.Notifier{Enabled: true, AMQP: config.AMQP{URL: "amqp://localhost:5672"}}
			}),
			expErr: config.ErrAMQPEmptyTarget,
		},
		{
			name: "Enabled notifier without url",
			config: mutator(func(c *config.Config) {
				c.Notifier = config.Notifier{Enabled: true}
			}),
			expErr: config.ErrAMQPEmptyURL,
		},
		{
			name: "Zero retry attempts",
			config: mutator(func(c *config.Config) {
				c.Retry.Attempts = 0
			}),
			expErr: config.ErrRetryAttempts,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.expErr == nil {
				assert.NoError(t, err)
				return
			}

			assert.ErrorIs(t, err, config.ErrConfigurationValuesError)
			assert.ErrorIs(t, err, tt.expErr)
		})
	}
}

func TestIsCurator(t *testing.T) {
	cfg := config.Config{Curators: []string{testutils.TestCuratorID}}

	assert.True(t, cfg.IsCurator(testutils.TestCuratorID))
	assert.False(t, cfg.IsCurator(testutils.TestUserID))
}
