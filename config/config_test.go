package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noEnvFile(t *testing.T) string {
	return filepath.Join(t.TempDir(), "missing.env")
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(LoadOptions{EnvFile: noEnvFile(t)})
	require.NoError(t, err)

	assert.Equal(t, "sorrel", cfg.AppName)
	assert.Equal(t, 0.75, cfg.MatchThreshold)
	assert.Equal(t, 20, cfg.DedupBrandGroupLimit)
	assert.Equal(t, 150, cfg.CandidateMaxPosting)
	assert.Equal(t, "db/pg", cfg.DatabaseMigrationFolderPath)
	assert.Equal(t, "5432", cfg.DatabasePort)
	assert.Equal(t, 10*time.Second, cfg.DatabaseConnMaxLifetime)
	assert.Equal(t, int64(0x736f7272656c), cfg.CatalogLockKey)
	assert.Nil(t, cfg.BrandKeywordList())
	assert.Equal(t, []string{"localhost:9092"}, cfg.Consumer().Brokers)
}

func TestLoad_Layers(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "sorrel.yaml")
	require.NoError(t, os.WriteFile(file, []byte("DB_HOST: db.internal\nMATCH_THRESHOLD: 0.8\n"), 0o600))
	envFile := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(envFile, []byte("DB_NAME=from_dotenv\n"), 0o600))

	t.Setenv("MATCH_THRESHOLD", "0.9")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092")
	t.Setenv("BRAND_KEYWORDS", "אסם,תנובה")
	t.Setenv("OTLP_HEADERS", "api-key=secret")
	t.Setenv("KAFKA_BATCH_TIMEOUT_MS", "250")
	t.Cleanup(func() { os.Unsetenv("DB_NAME") })

	cfg, err := Load(LoadOptions{File: file, EnvFile: envFile})
	require.NoError(t, err)

	assert.Equal(t, "db.internal", cfg.DatabaseHost, "file overrides defaults")
	assert.Equal(t, 0.9, cfg.MatchThreshold, "environment overrides file")
	assert.Equal(t, "from_dotenv", cfg.DatabaseName)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Producer().Brokers)
	assert.Equal(t, 250*time.Millisecond, cfg.Producer().BatchTimeout)
	assert.Equal(t, []string{"אסם", "תנובה"}, cfg.BrandKeywordList())
	assert.Equal(t, map[string]string{"api-key": "secret"}, cfg.Tracing().OTLP.Headers)
}

func TestLoad_Invalid(t *testing.T) {
	t.Setenv("MATCH_THRESHOLD", "1.5")
	_, err := Load(LoadOptions{EnvFile: noEnvFile(t)})
	assert.ErrorContains(t, err, "MATCH_THRESHOLD")
}
