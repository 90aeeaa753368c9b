package config

import (
	"strings"
	"time"

	"github.com/Ramsey-B/sorrel/pkg/database"
	"github.com/Ramsey-B/sorrel/pkg/kafka"
	"github.com/Ramsey-B/sorrel/pkg/redis"
	"github.com/Ramsey-B/sorrel/pkg/tracing"
	"github.com/Ramsey-B/sorrel/pkg/tracing/exporters"
)

type Config struct {
	AppName            string `env:"APP_NAME"`
	LogLevel           string `env:"LOG_LEVEL"`
	PrettyLogs         bool   `env:"PRETTY_LOGS"`
	StartupMaxAttempts int    `env:"STARTUP_MAX_ATTEMPTS"`

	// PostgreSQL
	DatabaseDriver                string        `env:"DB_DRIVER"`
	DatabaseHost                  string        `env:"DB_HOST"`
	DatabasePort                  string        `env:"DB_PORT"`
	DatabaseUserName              string        `env:"DB_USER_NAME"`
	DatabasePassword              string        `env:"DB_PASSWORD"`
	DatabaseName                  string        `env:"DB_NAME"`
	DatabaseSSLMode               string        `env:"DB_SQL_MODE"`
	DatabaseMaxOpenConns          int           `env:"DB_MAX_OPEN_CONNS"`
	DatabaseMaxIdleConns          int           `env:"DB_MAX_IDLE_CONNS"`
	DatabaseConnMaxLifetime       time.Duration `env:"DB_CONN_MAX_LIFETIME"`
	DatabaseMigrationFolderPath   string        `env:"DB_MIGRATION_FOLDER_PATH"`
	DatabaseMigrationVersion      int           `env:"DB_MIGRATION_VERSION"`
	DatabaseMigrationForce        int           `env:"DB_MIGRATION_FORCE"`
	DatabaseMigrationAutoRollback bool          `env:"DB_MIGRATION_AUTO_ROLLBACK"`

	// Catalog writer lock
	CatalogLockKey      int64         `env:"CATALOG_LOCK_KEY"`
	CatalogLockRedisKey string        `env:"CATALOG_LOCK_REDIS_KEY"`
	CatalogLockTTL      time.Duration `env:"CATALOG_LOCK_TTL"`
	CatalogLockWait     time.Duration `env:"CATALOG_LOCK_WAIT"`

	// Redis (cross-host maintenance coordination)
	RedisEnabled  bool   `env:"REDIS_ENABLED"`
	RedisHost     string `env:"REDIS_HOST"`
	RedisPort     int    `env:"REDIS_PORT"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB"`

	// Kafka consumer (listing batches)
	KafkaBrokers       string        `env:"KAFKA_BROKERS"`
	KafkaInputTopic    string        `env:"KAFKA_INPUT_TOPIC"`
	KafkaConsumerGroup string        `env:"KAFKA_CONSUMER_GROUP"`
	KafkaMaxAttempts   int           `env:"KAFKA_MAX_ATTEMPTS"`
	KafkaRetryBackoff  time.Duration `env:"KAFKA_RETRY_BACKOFF"`

	// Kafka producer (catalog events); empty topic disables events
	KafkaOutputTopic  string `env:"KAFKA_OUTPUT_TOPIC"`
	KafkaBatchSize    int    `env:"KAFKA_BATCH_SIZE"`
	KafkaBatchTimeout int    `env:"KAFKA_BATCH_TIMEOUT_MS"`
	KafkaRequiredAcks int    `env:"KAFKA_REQUIRED_ACKS"`
	KafkaCompression  string `env:"KAFKA_COMPRESSION"`

	// Matching and maintenance
	MatchThreshold       float64 `env:"MATCH_THRESHOLD"`
	BrandKeywords        string  `env:"BRAND_KEYWORDS"`
	DedupBrandGroupLimit int     `env:"DEDUP_BRAND_GROUP_LIMIT"`
	CandidateMaxPosting  int     `env:"CANDIDATE_MAX_POSTING"`

	MetricsAddr string `env:"METRICS_ADDR"`

	// Tracing
	TracingEnabled  bool          `env:"TRACING_ENABLED"`
	TracingExporter string        `env:"TRACING_EXPORTER"`
	OTLPEndpoint    string        `env:"OTLP_ENDPOINT"`
	OTLPProtocol    string        `env:"OTLP_PROTOCOL"`
	OTLPInsecure    bool          `env:"OTLP_INSECURE"`
	OTLPHeaders     string        `env:"OTLP_HEADERS"`
	OTLPTimeout     time.Duration `env:"OTLP_TIMEOUT"`
}

func (c Config) Database() database.Config {
	return database.Config{
		Driver:          c.DatabaseDriver,
		Host:            c.DatabaseHost,
		Port:            c.DatabasePort,
		User:            c.DatabaseUserName,
		Password:        c.DatabasePassword,
		Name:            c.DatabaseName,
		SSLMode:         c.DatabaseSSLMode,
		MaxOpenConns:    c.DatabaseMaxOpenConns,
		MaxIdleConns:    c.DatabaseMaxIdleConns,
		ConnMaxLifetime: c.DatabaseConnMaxLifetime,
	}
}

func (c Config) Migration() *database.MigrationConfig {
	return &database.MigrationConfig{
		MigrationFolderPath: c.DatabaseMigrationFolderPath,
		Version:             uint(max(c.DatabaseMigrationVersion, 0)),
		Force:               c.DatabaseMigrationForce,
		AutoRollback:        c.DatabaseMigrationAutoRollback,
	}
}

func (c Config) Redis() redis.Config {
	return redis.Config{
		Host:     c.RedisHost,
		Port:     c.RedisPort,
		Password: c.RedisPassword,
		DB:       c.RedisDB,
	}
}

func (c Config) Consumer() kafka.ConsumerConfig {
	return kafka.ConsumerConfig{
		Brokers:       splitList(c.KafkaBrokers),
		Topic:         c.KafkaInputTopic,
		ConsumerGroup: c.KafkaConsumerGroup,
		MaxAttempts:   c.KafkaMaxAttempts,
		RetryBackoff:  c.KafkaRetryBackoff,
	}
}

func (c Config) Producer() kafka.ProducerConfig {
	return kafka.ProducerConfig{
		Brokers:      splitList(c.KafkaBrokers),
		Topic:        c.KafkaOutputTopic,
		BatchSize:    c.KafkaBatchSize,
		BatchTimeout: time.Duration(c.KafkaBatchTimeout) * time.Millisecond,
		RequiredAcks: c.KafkaRequiredAcks,
		Compression:  c.KafkaCompression,
	}
}

func (c Config) Tracing() tracing.Config {
	return tracing.Config{
		Enabled:     c.TracingEnabled,
		ServiceName: c.AppName,
		Exporter:    c.TracingExporter,
		OTLP: exporters.OTLPConfig{
			Endpoint: c.OTLPEndpoint,
			Protocol: c.OTLPProtocol,
			Insecure: c.OTLPInsecure,
			Headers:  splitPairs(c.OTLPHeaders),
			Timeout:  c.OTLPTimeout,
		},
	}
}

// BrandKeywordList returns the configured brand keywords, or nil for the built-in list.
func (c Config) BrandKeywordList() []string {
	return splitList(c.BrandKeywords)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// splitPairs parses "k1=v1,k2=v2".
func splitPairs(s string) map[string]string {
	out := make(map[string]string)
	for _, part := range splitList(s) {
		k, v, ok := strings.Cut(part, "=")
		if !ok {
			continue
		}
		out[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return out
}
