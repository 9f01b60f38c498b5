package admin_test

import (
	"bytes"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/materials-data-facility/connect/cmd/admin"
	"github.com/materials-data-facility/connect/internal/async"
	"github.com/materials-data-facility/connect/internal/config"
	asyncUtils "github.com/materials-data-facility/connect/utils/async"
)

func inspector() (admin.Inspector, error) {
	return &admin.MockInspector{}, nil
}

func execute(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(t.Context())

	return out.String(), err
}

func TestQueuesCmd(t *testing.T) {
	out, err := execute(t, admin.NewQueuesCmd(inspector))
	require.NoError(t, err)
	assert.Contains(t, out, "- default")
	assert.Contains(t, out, "- critical")
}

func TestStatsCmd(t *testing.T) {
	tests := []struct {
		name string
		flag string
		want string
	}{
		{name: "QueueInfo", flag: "--queue-info", want: "\"Size\": 42"},
		{name: "History", flag: "--weekly-history", want: "\"Processed\": 10"},
		{name: "Pending", flag: "--pending-tasks", want: "submission:start:copper_v1"},
		{name: "Active", flag: "--active-tasks", want: "task-active"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, admin.NewStatsCmd(inspector), "--queue", "default", tt.flag)
			require.NoError(t, err)
			assert.Contains(t, out, tt.want)
		})
	}

	t.Run("RequiresOneOption", func(t *testing.T) {
		_, err := execute(t, admin.NewStatsCmd(inspector), "--queue", "default")
		assert.Error(t, err)
	})
}

func TestInvokeCmd(t *testing.T) {
	newCmd := func(client *async.MockClient) *cobra.Command {
		return admin.NewInvokeCmd(func() (async.Client, error) { return client, nil })
	}

	t.Run("FlowSync", func(t *testing.T) {
		client := &async.MockClient{}

		out, err := execute(t, newCmd(client), "--task", config.TypeFlowSync)
		require.NoError(t, err)
		assert.Contains(t, out, "Task flow:sync enqueued with ID: mock-task-id")
		assert.Empty(t, client.LastTask.Payload())
	})

	t.Run("SubmissionSync", func(t *testing.T) {
		client := &async.MockClient{}

		_, err := execute(t, newCmd(client),
			"--task", config.TypeSubmissionSync, "--source-id", "copper_oxide_films_v1")
		require.NoError(t, err)

		payload, err := asyncUtils.ParseTaskPayload(client.LastTask.Payload())
		require.NoError(t, err)
		assert.Equal(t, "copper_oxide_films_v1", payload.SourceID)
	})

	t.Run("SubmissionTaskWithoutSourceID", func(t *testing.T) {
		client := &async.MockClient{}

		_, err := execute(t, newCmd(client), "--task", config.TypeSubmissionStart)
		require.ErrorIs(t, err, asyncUtils.ErrMissingSourceID)
		assert.Zero(t, client.CallCount)
	})

	t.Run("UnknownTask", func(t *testing.T) {
		_, err := execute(t, newCmd(&async.MockClient{}), "--task", "unknown-task")
		assert.ErrorIs(t, err, admin.ErrUnknownTask)
	})
}
