package main

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Hobrus/hobrushealth.git/internal/app/tracker"
	"github.com/Hobrus/hobrushealth.git/internal/app/tracker/config"
)

func testConfig() *config.Config {
	return &config.Config{
		MetricsFilePath: "/app/config/health_metrics.json",
		UpdateInterval:  time.Hour,
		MetricsPort:     9100,
		LogLevel:        "info",
		DBName:          "healthcheck",
		DBUser:          "healthdbuser",
		DBPassword:      "secret",
		DBHost:          "localhost",
		DBPort:          "5432",
		AdminDBName:     "postgres",
	}
}

func TestNewLogger(t *testing.T) {
	assert.Equal(t, logrus.DebugLevel, newLogger("debug").GetLevel())
	assert.Equal(t, logrus.InfoLevel, newLogger("loud").GetLevel())
}

func TestSetupApp(t *testing.T) {
	logger, _ := test.NewNullLogger()

	a, err := setupApp(logger, testConfig(), afero.NewMemMapFs())
	require.NoError(t, err)

	assert.Equal(t, ":9100", a.server.Addr)
	assert.Equal(t, time.Hour, a.tracker.Interval)
	assert.Equal(t, tracker.StateIdle, a.tracker.State())

	w := httptest.NewRecorder()
	a.server.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "# TYPE body_weight gauge")

	w = httptest.NewRecorder()
	a.server.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/status", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"state": "idle"}`, w.Body.String())
}

func TestSetupApp_MissingInputSkipsCycle(t *testing.T) {
	logger, _ := test.NewNullLogger()

	a, err := setupApp(logger, testConfig(), afero.NewMemMapFs())
	require.NoError(t, err)

	// Without an input file the cycle never reaches the database.
	outcome, err := a.tracker.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, tracker.OutcomeSkipped, outcome)
}

type ensurerFunc func(ctx context.Context) error

func (f ensurerFunc) Ensure(ctx context.Context) error { return f(ctx) }

func TestInitDatabase(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		calls := 0
		err := initDatabase(context.Background(), ensurerFunc(func(context.Context) error {
			calls++
			return nil
		}))
		require.NoError(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("permanent error", func(t *testing.T) {
		boom := errors.New("permission denied")
		err := initDatabase(context.Background(), ensurerFunc(func(context.Context) error { return boom }))
		assert.ErrorIs(t, err, boom)
	})

	t.Run("interrupted while retrying", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		calls := 0
		err := initDatabase(ctx, ensurerFunc(func(context.Context) error {
			calls++
			return &pgconn.PgError{Code: "57P03", Message: "the database system is starting up"}
		}))
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, calls)
	})
}
