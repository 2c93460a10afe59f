// Package databasetest starts a migrated postgres for repository tests.
package databasetest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/Farcas-Consult/rams-sub000/db"
	"github.com/Farcas-Consult/rams-sub000/pkg/database"
)

const (
	user     = "rams"
	password = "rams"
	name     = "rams_test"
)

func Logger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

// Start runs postgres in a container, applies the embedded migrations and
// returns a connected DB. The test is skipped in short mode or when no
// container runtime is available.
func Start(t *testing.T) database.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:15-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     user,
				"POSTGRES_PASSWORD": password,
				"POSTGRES_DB":       name,
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Skipf("postgres container unavailable: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	logger := Logger()
	conn, err := database.Connect(ctx, database.Config{
		Host:     host,
		Port:     port.Int(),
		User:     user,
		Password: password,
		Name:     name,
	}, logger)
	require.NoError(t, err, "failed to connect to %s", fmt.Sprintf("%s:%d", host, port.Int()))
	t.Cleanup(func() { _ = conn.Close() })

	migrations := database.NewMigrationService(logger, &database.MigrationConfig{
		Embedded:     db.Migrations,
		EmbeddedPath: db.MigrationsPath,
	})
	require.NoError(t, migrations.Migrate(conn.SQL(), name))

	return conn
}

// AssertStatus asserts that err is an HTTP error carrying status.
func AssertStatus(t *testing.T, err error, status int) {
	t.Helper()
	require.Error(t, err)
	assert.True(t, httperror.IsHTTPError(err), "expected HTTP error, got: %v", err)
	assert.Equal(t, status, httperror.GetStatusCode(err), "expected %d, got: %d", status, httperror.GetStatusCode(err))
}
