package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationNames_Ordered(t *testing.T) {
	names, err := migrationNames()
	require.NoError(t, err)
	assert.Equal(t, []string{"001_catalog.sql", "002_telemetry.sql", "003_waitlist.sql"}, names)
}

func TestMigrations_CreateEveryTable(t *testing.T) {
	var all string
	names, err := migrationNames()
	require.NoError(t, err)
	for _, n := range names {
		b, err := migrationsFS.ReadFile("migrations/" + n)
		require.NoError(t, err)
		all += string(b)
	}
	for _, table := range []string{"courses", "course_skills", "lessons", "course_resources",
		"lesson_stats", "viewer_sessions", "waitlist_entries", "email_logs"} {
		assert.Contains(t, all, "CREATE TABLE IF NOT EXISTS "+table+" (", table)
	}
}
