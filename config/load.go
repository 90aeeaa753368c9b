// Package config loads service configuration. Values come from the embedded
// defaults, then an optional YAML file, then a .env file, then the process
// environment, each layer overriding the previous one.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

//go:embed defaults.yaml
var defaults []byte

type LoadOptions struct {
	// File is an optional YAML file keyed by environment variable names.
	File string
	// EnvFile is loaded into the environment when it exists. Defaults to ".env".
	EnvFile string
}

func Load(opts LoadOptions) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(rawbytes.Provider(defaults), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if opts.File != "" {
		content, err := os.ReadFile(opts.File)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", opts.File, err)
		}
	}

	envFile := opts.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", envFile, err)
	}

	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "env"}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	if c.MatchThreshold <= 0 || c.MatchThreshold >= 1 {
		errs = append(errs, fmt.Errorf("MATCH_THRESHOLD must be in (0, 1), got %v", c.MatchThreshold))
	}
	if c.DatabaseMigrationFolderPath == "" {
		errs = append(errs, errors.New("DB_MIGRATION_FOLDER_PATH is required"))
	}
	if c.DedupBrandGroupLimit <= 0 {
		errs = append(errs, errors.New("DEDUP_BRAND_GROUP_LIMIT must be positive"))
	}
	if c.CandidateMaxPosting < 3 {
		errs = append(errs, errors.New("CANDIDATE_MAX_POSTING must be at least 3"))
	}
	if c.StartupMaxAttempts <= 0 {
		errs = append(errs, errors.New("STARTUP_MAX_ATTEMPTS must be positive"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}
