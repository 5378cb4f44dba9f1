package migrations

import (
	"context"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedSourceListsInitialMigration(t *testing.T) {
	src, err := Source()
	require.NoError(t, err)
	defer src.Close()

	first, err := src.First()
	require.NoError(t, err)
	assert.Equal(t, uint(1), first)

	up, _, err := src.ReadUp(first)
	require.NoError(t, err)
	body, err := io.ReadAll(up)
	require.NoError(t, err)
	up.Close()

	for _, table := range []string{"users", "pets", "pet_activities", "pet_meals", "pet_moods",
		"pet_health_records", "sitter_profiles", "sitter_availability", "sitter_reviews", "bookings",
		"payment_methods", "payments", "posts", "post_media", "post_comments", "post_likes",
		"chat_messages", "notifications", "scans"} {
		assert.Contains(t, string(body), "CREATE TABLE IF NOT EXISTS "+table+" (", table)
	}

	down, _, err := src.ReadDown(first)
	require.NoError(t, err)
	body, err = io.ReadAll(down)
	require.NoError(t, err)
	down.Close()
	assert.Equal(t, 19, strings.Count(string(body), "DROP TABLE IF EXISTS"))
}

func TestApplyAgainstPostgres(t *testing.T) {
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set; skipping migration integration test")
	}
	require.NoError(t, Apply(context.Background(), dsn))

	mg, err := Open(dsn)
	require.NoError(t, err)
	defer mg.Close()
	version, dirty, err := mg.Version()
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
	assert.False(t, dirty)
}
