//go:build integration && postgres

package httpapi

import (
	"context"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	app "github.com/pawmate/pawmate/internal/app"
	"github.com/pawmate/pawmate/internal/app/storage/postgres"
	"github.com/pawmate/pawmate/internal/config"
	"github.com/pawmate/pawmate/internal/platform/database"
	"github.com/pawmate/pawmate/internal/platform/migrations"
	"github.com/pawmate/pawmate/pkg/logger"
)

// Runs the HTTP surface against a migrated Postgres database.
func TestIntegrationPostgres(t *testing.T) {
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set; skipping Postgres integration")
	}
	ctx := context.Background()
	require.NoError(t, migrations.Apply(ctx, dsn))

	cfg := config.Default()
	cfg.Database.DSN = dsn
	cfg.Auth.JWTSecret = "integration-secret-0123"
	cfg.Media.LocalDir = t.TempDir()
	cfg.Jobs.Enabled = false

	db, err := database.Open(ctx, cfg.Database)
	require.NoError(t, err)
	defer db.Close()

	application, err := app.New(ctx, cfg, app.StoresFrom(postgres.New(db)), nil, logger.NewNop())
	require.NoError(t, err)
	handler, err := NewHandler(application, Options{DB: db}, logger.NewNop())
	require.NoError(t, err)
	require.NoError(t, application.Start(ctx))
	defer func() { _ = application.Stop(context.Background()) }()

	api := &testAPI{t: t, handler: handler, app: application}
	owner := api.register("it-"+time.Now().Format("150405.000000")+"@pawmate.app", "Integration", "")

	var p struct {
		ID string `json:"id"`
	}
	api.call(http.MethodPost, "/v1/pets", owner.Token, map[string]interface{}{"name": "Rex", "species": "dog"}, http.StatusCreated, &p)
	api.call(http.MethodPost, "/v1/pets/"+p.ID+"/activities", owner.Token, map[string]interface{}{
		"kind": "walk", "duration_minutes": 20,
	}, http.StatusCreated, nil)

	var streak struct {
		Current int `json:"current"`
	}
	api.call(http.MethodGet, "/v1/pets/"+p.ID+"/streak", owner.Token, nil, http.StatusOK, &streak)
	assert.Equal(t, 1, streak.Current)

	var health struct {
		Checks map[string]string `json:"checks"`
	}
	api.call(http.MethodGet, "/healthz", "", nil, http.StatusOK, &health)
	assert.Equal(t, "ok", health.Checks["database"])
}
