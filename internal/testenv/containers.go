// Package testenv starts throwaway infrastructure for integration tests.
// Tests using it are skipped unless SORREL_INTEGRATION=1.
package testenv

import (
	"context"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const integrationEnv = "SORREL_INTEGRATION"

// RequireIntegration skips t unless integration tests are enabled.
func RequireIntegration(t *testing.T) {
	t.Helper()
	if testing.Short() || os.Getenv(integrationEnv) != "1" {
		t.Skipf("set %s=1 to run integration tests", integrationEnv)
	}
}

type Postgres struct {
	container testcontainers.Container
	Host      string
	Port      string
	User      string
	Password  string
	Database  string
}

// StartPostgres runs postgres:15-alpine and terminates it when t finishes.
func StartPostgres(ctx context.Context, t *testing.T) *Postgres {
	t.Helper()

	pg := &Postgres{User: "sorrel", Password: "sorrel", Database: "catalog"}
	req := testcontainers.ContainerRequest{
		Image:        "postgres:15-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     pg.User,
			"POSTGRES_PASSWORD": pg.Password,
			"POSTGRES_DB":       pg.Database,
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("start postgres: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("postgres host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("postgres port: %v", err)
	}
	pg.container, pg.Host, pg.Port = container, host, port.Port()
	return pg
}

type Redis struct {
	container testcontainers.Container
	Host      string
	Port      int
}

// StartRedis runs redis:7-alpine and terminates it when t finishes.
func StartRedis(ctx context.Context, t *testing.T) *Redis {
	t.Helper()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor: wait.ForLog("Ready to accept connections").
			WithStartupTimeout(30 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("start redis: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	portNum, err := strconv.Atoi(port.Port())
	if err != nil {
		t.Fatalf("redis port %q: %v", port.Port(), err)
	}
	return &Redis{container: container, Host: host, Port: portNum}
}
