package configuration

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestConfiguration tests the configuration package basic functionality
func TestConfiguration(t *testing.T) {
	t.Run("configuration_struct_exists", func(t *testing.T) {
		require.NotNil(t, &C, "Configuration should not be nil")

		require.NotNil(t, &C.App, "App configuration should exist")
		require.NotNil(t, &C.Database, "Database configuration should exist")
	})

	t.Run("configuration_has_required_fields", func(t *testing.T) {
		config := &C

		require.NotNil(t, config.App, "App config should be present")
		require.NotNil(t, config.Database, "Database config should be present")
		require.NotNil(t, config.Database.MySql, "MySQL config should be present")
		require.NotNil(t, config.Database.Psql, "PostgreSQL config should be present")
		require.NotNil(t, config.Database.Mongo, "MongoDB config should be present")
	})

	t.Run("scheduler_defaults_applied", func(t *testing.T) {
		require.Greater(t, C.Scheduler.TickSeconds, 0, "tick interval should default to a positive value")
		require.Greater(t, C.Scheduler.BatchSize, 0, "batch size should default to a positive value")
		require.Greater(t, C.Scheduler.PublishTimeoutSeconds, 0, "publish timeout should default to a positive value")
		require.NotEmpty(t, C.Platforms.Enabled, "enabled platforms should have a default set")
	})
}
