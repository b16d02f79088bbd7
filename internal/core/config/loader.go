package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v2"
)

var versionPattern = regexp.MustCompile(`^\d+\.\d+(\.\d+)?$`)

// Load reads configuration from a YAML file.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg AppConfig
	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Worker.Concurrency == 0 {
		cfg.Worker.Concurrency = 10
	}
	if cfg.Worker.DequeueTimeout == 0 {
		cfg.Worker.DequeueTimeout = 5 * time.Second
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry.MaxAttempts = 3
	}
	if cfg.Retry.InitialDelay == 0 {
		cfg.Retry.InitialDelay = 5 * time.Second
	}
	if cfg.Retry.MaxDelay == 0 {
		cfg.Retry.MaxDelay = 60 * time.Second
	}
	if cfg.Retry.BackoffMultiple == 0 {
		cfg.Retry.BackoffMultiple = 2.0
	}
	if cfg.Retry.ConfirmAttempts == 0 {
		cfg.Retry.ConfirmAttempts = 2
	}
	if cfg.Monitor.RequiredConfirmations == 0 {
		cfg.Monitor.RequiredConfirmations = 6
	}
	if cfg.Monitor.PollInterval == 0 {
		cfg.Monitor.PollInterval = 2 * time.Second
	}
	if cfg.Monitor.MaxWait == 0 {
		cfg.Monitor.MaxWait = 10 * time.Minute
	}
	if cfg.Certificate.Version == "" {
		cfg.Certificate.Version = "1.0"
	}
	if cfg.Certificate.StoragePath == "" {
		cfg.Certificate.StoragePath = "/tmp/certificates"
	}
}

func validate(cfg *AppConfig) error {
	if cfg.Ledger.Endpoint == "" {
		return fmt.Errorf("ledger.endpoint is required")
	}

	if !versionPattern.MatchString(cfg.Certificate.Version) {
		return fmt.Errorf("certificate.version must be a semantic version (e.g. '1.0'), got %q", cfg.Certificate.Version)
	}

	if key := cfg.Certificate.SigningKeyHex; key != "" {
		trimmed := strings.TrimPrefix(key, "0x")
		decoded, err := hex.DecodeString(trimmed)
		if err != nil {
			return fmt.Errorf("certificate.signing_key_hex must be valid hexadecimal")
		}
		if len(decoded) != 32 {
			return fmt.Errorf("certificate.signing_key_hex must be 32 bytes (64 hex characters), got %d bytes", len(decoded))
		}
	}

	if err := os.MkdirAll(cfg.Certificate.StoragePath, 0o755); err != nil {
		return fmt.Errorf("cannot create certificate storage path %s: %w", cfg.Certificate.StoragePath, err)
	}

	return nil
}
