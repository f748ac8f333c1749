package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Loader layers configuration sources. From lowest to highest priority:
//  1. Default values
//  2. <dir>/base.yaml
//  3. <dir>/<environment>.yaml
//  4. Environment variables
type Loader struct {
	dir     string
	env     Environment
	lookup  func(string) (string, bool)
	sources []string
}

// NewLoader creates a loader reading files from dir
func NewLoader(dir string, env Environment) *Loader {
	if dir == "" {
		dir = "config"
	}
	return &Loader{dir: dir, env: env, lookup: os.LookupEnv}
}

// Dir returns the directory configuration files are read from
func (l *Loader) Dir() string { return l.dir }

// Load builds and validates the configuration
func (l *Loader) Load() (*Config, error) {
	l.sources = []string{"defaults"}
	cfg := Default(l.env)

	for _, name := range []string{"base", strings.ToLower(string(l.env))} {
		if err := l.loadFile(name, cfg); err != nil {
			return nil, err
		}
	}

	if err := l.applyEnvironment(cfg); err != nil {
		return nil, err
	}
	l.sources = append(l.sources, "environment")
	cfg.LoadedFrom = l.sources

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func (l *Loader) loadFile(name string, cfg *Config) error {
	for _, ext := range []string{"yaml", "yml"} {
		path := filepath.Join(l.dir, name+"."+ext)
		data, err := os.ReadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("failed to parse %s: %w", path, err)
		}
		l.sources = append(l.sources, path)
		return nil
	}
	return nil
}

// applyEnvironment overlays PLASMA_* variables on cfg
func (l *Loader) applyEnvironment(cfg *Config) error {
	strs := map[string]*string{
		"PLASMA_LOG_LEVEL":      &cfg.LogLevel,
		"PLASMA_SERVER_ADDRESS": &cfg.Server.Address,
		"PLASMA_STORAGE_DRIVER": &cfg.Storage.Driver,
		"PLASMA_BADGER_PATH":    &cfg.Storage.BadgerPath,
		"PLASMA_DYNAMODB_TABLE": &cfg.Storage.DynamoDBTable,
		"AWS_REGION":            &cfg.AWS.Region,
		"PLASMA_EVENTS_DRIVER":  &cfg.Events.Driver,
		"PLASMA_EVENT_BUS_NAME": &cfg.Events.BusName,
		"PLASMA_JWT_SECRET":     &cfg.Auth.JWTSecret,
		"PLASMA_JWT_ISSUER":     &cfg.Auth.Issuer,
		"PLASMA_OTLP_ENDPOINT":  &cfg.Tracing.Endpoint,
	}
	for key, target := range strs {
		if v, ok := l.lookup(key); ok && v != "" {
			*target = v
		}
	}

	ints := map[string]*int{
		"PLASMA_SAMPLE_THRESHOLD":     &cfg.Analysis.SampleThreshold,
		"PLASMA_AGGREGATOR_THRESHOLD": &cfg.Analysis.AggregatorThreshold,
	}
	for key, target := range ints {
		v, ok := l.lookup(key)
		if !ok || v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*target = n
	}

	bools := map[string]*bool{
		"PLASMA_AUTH_ENABLED":    &cfg.Auth.Enabled,
		"PLASMA_TRACING_ENABLED": &cfg.Tracing.Enabled,
		"PLASMA_METRICS_ENABLED": &cfg.Metrics.Enabled,
	}
	for key, target := range bools {
		v, ok := l.lookup(key)
		if !ok || v == "" {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*target = b
	}

	if v, ok := l.lookup("PLASMA_CORS_ORIGINS"); ok && v != "" {
		cfg.CORS.AllowedOrigins = strings.Split(v, ",")
	}
	return nil
}

// CurrentEnvironment reads PLASMA_ENV, defaulting to development
func CurrentEnvironment() Environment {
	switch env := Environment(strings.ToLower(os.Getenv("PLASMA_ENV"))); env {
	case Staging, Production:
		return env
	default:
		return Development
	}
}

// Load reads the configuration for the current environment from dir
func Load(dir string) (*Config, error) {
	return NewLoader(dir, CurrentEnvironment()).Load()
}
