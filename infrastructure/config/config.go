// Package config loads the service configuration from layered sources:
// built-in defaults, config/base.yaml, config/<environment>.yaml and finally
// environment variables.
package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Environment names a deployment environment
type Environment string

const (
	Development Environment = "development"
	Staging     Environment = "staging"
	Production  Environment = "production"
)

// Storage drivers
const (
	StorageMemory   = "memory"
	StorageBadger   = "badger"
	StorageDynamoDB = "dynamodb"
)

// Event drivers
const (
	EventsLog         = "log"
	EventsEventBridge = "eventbridge"
)

// Config holds all application configuration
type Config struct {
	Environment Environment `yaml:"environment" validate:"required,oneof=development staging production"`
	LogLevel    string      `yaml:"log_level" validate:"oneof=debug info warn error"`

	Server   Server   `yaml:"server"`
	Analysis Analysis `yaml:"analysis"`
	Sessions Sessions `yaml:"sessions"`
	Storage  Storage  `yaml:"storage"`
	AWS      AWS      `yaml:"aws"`
	Events   Events   `yaml:"events"`
	Auth     Auth     `yaml:"auth"`
	Tracing  Tracing  `yaml:"tracing"`
	Metrics  Metrics  `yaml:"metrics"`
	CORS     CORS     `yaml:"cors"`

	// LoadedFrom lists the sources that contributed, lowest priority first
	LoadedFrom []string `yaml:"-"`
}

type Server struct {
	Address         string        `yaml:"address" validate:"required"`
	ReadTimeout     time.Duration `yaml:"read_timeout" validate:"min=0"`
	WriteTimeout    time.Duration `yaml:"write_timeout" validate:"min=0"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" validate:"min=0"`
	MaxRequestSize  int64         `yaml:"max_request_size" validate:"min=1024"`
}

// Analysis tunes sample ingestion
type Analysis struct {
	// SampleThreshold is the maximum number of samples in one request
	SampleThreshold int `yaml:"sample_threshold" validate:"min=1,max=10000"`
	// AggregatorThreshold is the sample count at which an aggregation is ready
	AggregatorThreshold int `yaml:"aggregator_threshold" validate:"min=1"`
}

type Sessions struct {
	TTL             time.Duration `yaml:"ttl" validate:"min=0"`
	CleanupInterval time.Duration `yaml:"cleanup_interval" validate:"min=0"`
}

type Storage struct {
	Driver        string `yaml:"driver" validate:"oneof=memory badger dynamodb"`
	BadgerPath    string `yaml:"badger_path" validate:"required_if=Driver badger"`
	DynamoDBTable string `yaml:"dynamodb_table" validate:"required_if=Driver dynamodb"`
}

type AWS struct {
	Region string `yaml:"region"`
}

type Events struct {
	Driver  string `yaml:"driver" validate:"oneof=log eventbridge"`
	BusName string `yaml:"bus_name" validate:"required_if=Driver eventbridge"`
	Source  string `yaml:"source"`
}

type Auth struct {
	Enabled   bool   `yaml:"enabled"`
	JWTSecret string `yaml:"jwt_secret" validate:"required_if=Enabled true"`
	Issuer    string `yaml:"issuer"`
}

type Tracing struct {
	Enabled     bool    `yaml:"enabled"`
	Endpoint    string  `yaml:"endpoint" validate:"required_if=Enabled true"`
	ServiceName string  `yaml:"service_name"`
	SampleRate  float64 `yaml:"sample_rate" validate:"min=0,max=1"`
}

type Metrics struct {
	Enabled bool `yaml:"enabled"`
}

type CORS struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// Default returns the built-in configuration for env
func Default(env Environment) *Config {
	return &Config{
		Environment: env,
		LogLevel:    "info",
		Server: Server{
			Address:         ":8080",
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			MaxRequestSize:  10 * 1024 * 1024,
		},
		Analysis: Analysis{
			SampleThreshold:     100,
			AggregatorThreshold: 20,
		},
		Sessions: Sessions{
			TTL:             2 * time.Hour,
			CleanupInterval: 5 * time.Minute,
		},
		Storage: Storage{
			Driver:     StorageMemory,
			BadgerPath: "data/snapshots",
		},
		AWS: AWS{Region: "eu-central-1"},
		Events: Events{
			Driver: EventsLog,
			Source: "plasma.schema",
		},
		Auth: Auth{Issuer: "plasma"},
		Tracing: Tracing{
			ServiceName: "plasma-schema",
			SampleRate:  0.1,
		},
		Metrics: Metrics{Enabled: true},
		CORS:    CORS{AllowedOrigins: []string{"*"}},
	}
}

var validate = validator.New()

// Validate checks struct rules and the production requirements
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.IsProduction() {
		if c.Storage.Driver == StorageMemory {
			return fmt.Errorf("storage.driver memory is not allowed in production")
		}
		if !c.Auth.Enabled {
			return fmt.Errorf("auth must be enabled in production")
		}
	}
	return nil
}

// IsDevelopment checks if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == Development
}

// IsProduction checks if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == Production
}
