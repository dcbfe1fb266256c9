//go:build postgres

/*
Integration coverage for the PostgreSQL-backed identity store against a
real database, grounded on sandrolain-events-bridge's own
testcontainers-go + modules/postgres integration test shape
(src/connectors/pgsql/pgsql_integration_test.go). Gated behind the
`postgres` build tag so `go test ./...` never needs Docker.
*/
package postgres_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"

	"gatekeeperd/internal/identity"
	"gatekeeperd/internal/identity/postgres"
)

const identitiesSchema = `
CREATE TABLE IF NOT EXISTS identities (
	username                   TEXT PRIMARY KEY,
	password_hash              TEXT NOT NULL,
	allowed_client_id          TEXT NOT NULL DEFAULT '',
	is_admin                   BOOLEAN NOT NULL DEFAULT FALSE,
	is_active                  BOOLEAN NOT NULL DEFAULT TRUE,
	allowed_publish_patterns   TEXT NOT NULL DEFAULT '',
	allowed_subscribe_patterns TEXT NOT NULL DEFAULT '',
	max_connections            INTEGER NOT NULL DEFAULT 0,
	login_count                BIGINT NOT NULL DEFAULT 0,
	last_login_at              TIMESTAMPTZ,
	last_login_ip              TEXT,
	created_at                 TIMESTAMPTZ NOT NULL,
	updated_at                 TIMESTAMPTZ NOT NULL
)`

func startPostgresContainer(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16",
		tcpostgres.WithDatabase("gatekeeperd_test"),
		tcpostgres.WithUsername("gatekeeperd"),
		tcpostgres.WithPassword("gatekeeperd"),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	connString := fmt.Sprintf("postgres://gatekeeperd:gatekeeperd@%s:%s/gatekeeperd_test?sslmode=disable", host, port.Port())

	var conn *pgx.Conn
	for i := 0; i < 10; i++ {
		conn, err = pgx.Connect(ctx, connString)
		if err == nil {
			break
		}
		time.Sleep(time.Second)
	}
	require.NoError(t, err)
	defer conn.Close(ctx)

	_, err = conn.Exec(ctx, identitiesSchema)
	require.NoError(t, err)

	return connString
}

func TestPostgresStoreCreateLookupUpdateDelete(t *testing.T) {
	connString := startPostgresContainer(t)

	store, err := postgres.New(connString, 10)
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()

	created, err := store.Create(ctx, identity.NewIdentityRequest{
		Username:               "integration-device",
		Password:               "s3cret!!",
		AllowedPublishPatterns: []string{"devices/integration-device/telemetry"},
		IsActive:               true,
		MaxConnections:         1,
	})
	require.NoError(t, err)
	require.Equal(t, "integration-device", created.Username)

	_, err = store.Create(ctx, identity.NewIdentityRequest{Username: "integration-device", Password: "x"})
	require.ErrorIs(t, err, identity.ErrAlreadyExists)

	fetched, err := store.Lookup(ctx, "integration-device")
	require.NoError(t, err)
	require.Equal(t, []string{"devices/integration-device/telemetry"}, fetched.AllowedPublishPatterns)
	require.True(t, fetched.IsActive)

	require.NoError(t, store.RecordSuccessfulLogin(ctx, "integration-device", "203.0.113.5"))
	afterLogin, err := store.Lookup(ctx, "integration-device")
	require.NoError(t, err)
	require.EqualValues(t, 1, afterLogin.LoginCount)
	require.NotNil(t, afterLogin.LastLoginAt)
	require.Equal(t, "203.0.113.5", afterLogin.LastLoginIP)

	newMax := 5
	updated, err := store.Update(ctx, "integration-device", identity.UpdateIdentityRequest{MaxConnections: &newMax})
	require.NoError(t, err)
	require.Equal(t, 5, updated.MaxConnections)

	require.NoError(t, store.Ping(ctx))

	require.NoError(t, store.Delete(ctx, "integration-device"))
	_, err = store.Lookup(ctx, "integration-device")
	require.ErrorIs(t, err, identity.ErrNotFound)

	err = store.Delete(ctx, "integration-device")
	require.ErrorIs(t, err, identity.ErrNotFound)
}
