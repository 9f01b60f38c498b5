package admin_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/materials-data-facility/connect/cmd/admin"
	"github.com/materials-data-facility/connect/internal/flow"
	"github.com/materials-data-facility/connect/internal/flow/mock"
)

func TestFlowCmd_Deploy(t *testing.T) {
	flows := mock.NewFlows()
	path := filepath.Join(t.TempDir(), "flow.json")

	source := func(context.Context) (*flow.GlobusAutomateFlow, error) {
		return flow.NewMinimusFlow(flows), nil
	}

	out, err := execute(t, admin.NewFlowCmd(source, func() string { return path }), "deploy")
	require.NoError(t, err)
	assert.Contains(t, out, "Flow flow-1 deployed with scope")

	saved, err := flow.LoadFlow(path, flows)
	require.NoError(t, err)
	assert.True(t, saved.Deployed())
	assert.Equal(t, "flow-1", saved.FlowID)
}

func TestFlowCmd_Show(t *testing.T) {
	source := func(context.Context) (*flow.GlobusAutomateFlow, error) {
		return flow.NewMinimusFlow(nil), nil
	}

	out, err := execute(t, admin.NewFlowCmd(source, func() string { return "" }), "show")
	require.NoError(t, err)
	assert.Contains(t, out, "\"deployed\": false")
	assert.Contains(t, out, flow.StateUserTransfer)
}

func TestFlowCmd_Export(t *testing.T) {
	source := func(context.Context) (*flow.GlobusAutomateFlow, error) {
		return flow.NewMinimusFlow(nil), nil
	}

	t.Run("YAML", func(t *testing.T) {
		out, err := execute(t, admin.NewFlowCmd(source, nil), "export")
		require.NoError(t, err)
		assert.Contains(t, out, "StartAt: UserPermissions")
	})

	t.Run("JSON", func(t *testing.T) {
		out, err := execute(t, admin.NewFlowCmd(source, nil), "export", "--format", "json")
		require.NoError(t, err)
		assert.Contains(t, out, "\"StartAt\": \"UserPermissions\"")
	})

	t.Run("UnknownFormat", func(t *testing.T) {
		_, err := execute(t, admin.NewFlowCmd(source, nil), "export", "--format", "xml")
		assert.ErrorIs(t, err, admin.ErrUnknownFormat)
	})
}

func TestFlowCmd_SourceError(t *testing.T) {
	errLoad := errors.New("no credentials")
	source := func(context.Context) (*flow.GlobusAutomateFlow, error) {
		return nil, errLoad
	}

	_, err := execute(t, admin.NewFlowCmd(source, nil), "show")
	assert.ErrorIs(t, err, errLoad)
}
