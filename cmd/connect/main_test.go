package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRootCmd(t *testing.T) {
	cmd := rootCmd()

	names := make([]string, 0, len(cmd.Commands()))
	for _, c := range cmd.Commands() {
		names = append(names, c.Name())
	}

	assert.Subset(t, names, []string{"version", "api-server", "task-worker", "task-scheduler", "admin"})
	assert.NotNil(t, cmd.PersistentFlags().Lookup("graceful-shutdown"))
}
