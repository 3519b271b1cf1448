package db

import (
	"context"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunMigrationsRejectsUnknownCommand(t *testing.T) {
	err := RunMigrations(context.Background(), nil, "sideways")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown migrate command "sideways"`)
}

func TestRunMigrationsRequiresPool(t *testing.T) {
	err := RunMigrations(context.Background(), nil, "status")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nil pool")
}

func TestMigrationCommandsCoverCLI(t *testing.T) {
	for _, cmd := range []string{"up", "down", "status", "version"} {
		_, ok := migrationCommands[cmd]
		assert.True(t, ok, cmd)
	}
}

func TestEmbeddedMigrationsPresent(t *testing.T) {
	names, err := fs.Glob(embedMigrations, "migrations/*.sql")
	require.NoError(t, err)
	assert.NotEmpty(t, names)
}
