package testenv

import (
	"context"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/sorrel/pkg/database"
)

// NopLogger discards every log line.
func NopLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

// MigrationsDir is the absolute path of db/pg in this repository.
func MigrationsDir() string {
	_, file, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(file), "..", "..", "db", "pg")
}

// MigratedPostgres starts postgres, applies the catalog schema and returns a pool.
func MigratedPostgres(ctx context.Context, t *testing.T) database.DB {
	t.Helper()

	pg := StartPostgres(ctx, t)
	logger := NopLogger()

	db, err := database.Open(ctx, database.Config{
		Host:     pg.Host,
		Port:     pg.Port,
		User:     pg.User,
		Password: pg.Password,
		Name:     pg.Database,
		SSLMode:  "disable",
	}, logger)
	if err != nil {
		t.Fatalf("open postgres: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	migrations := database.NewMigrationService(logger, &database.MigrationConfig{MigrationFolderPath: MigrationsDir()})
	if err := migrations.Migrate(db, pg.Database); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}
