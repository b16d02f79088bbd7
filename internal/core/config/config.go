package config

import (
	"time"

	"github.com/ingmarAvocado/abs-worker/internal/certify"
	"github.com/ingmarAvocado/abs-worker/internal/infra/arweave"
	"github.com/ingmarAvocado/abs-worker/internal/infra/ledger"
	redisq "github.com/ingmarAvocado/abs-worker/internal/infra/redis"
	"github.com/ingmarAvocado/abs-worker/internal/infra/storage/postgres"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server      ServerConfig    `yaml:"server"`
	Logging     LoggingConfig   `yaml:"logging"`
	Database    postgres.Config `yaml:"database"`
	Redis       redisq.Config   `yaml:"redis"`
	Ledger      ledger.Config   `yaml:"ledger"`
	Storage     arweave.Config  `yaml:"storage"`
	Worker      WorkerConfig    `yaml:"worker"`
	Retry       RetryConfig     `yaml:"retry"`
	Monitor     MonitorConfig   `yaml:"monitor"`
	Certificate certify.Config  `yaml:"certificate"`
}

// ServerConfig holds health/metrics HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// WorkerConfig holds dispatcher settings.
type WorkerConfig struct {
	Concurrency    int           `yaml:"concurrency"`
	DequeueTimeout time.Duration `yaml:"dequeue_timeout"`
}

// RetryConfig holds retry behavior for externally-facing calls.
type RetryConfig struct {
	MaxAttempts     int           `yaml:"max_attempts"`
	InitialDelay    time.Duration `yaml:"initial_delay"`
	MaxDelay        time.Duration `yaml:"max_delay"`
	BackoffMultiple float64       `yaml:"backoff_multiple"`
	// ConfirmAttempts bounds how often a confirmation-wait timeout is
	// retried before failing the workflow.
	ConfirmAttempts int `yaml:"confirm_attempts"`
}

// MonitorConfig holds confirmation polling settings.
type MonitorConfig struct {
	RequiredConfirmations uint64        `yaml:"required_confirmations"`
	PollInterval          time.Duration `yaml:"poll_interval"`
	MaxWait               time.Duration `yaml:"max_wait"`
}
