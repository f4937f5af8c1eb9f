package config

import (
	"errors"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"
)

// Config holds toolkit-wide settings, populated from environment variables.
// Command-line flags seed their defaults from these values, so the
// environment sets site policy and flags override per run.
type Config struct {
	Workers     int
	MaxSnapKM   float64
	DatasetName string
	Format      string

	LogLevel  string
	LogFormat string

	MetricsAddr     string
	ShutdownTimeout time.Duration

	AnnounceBrokers []string
	AnnounceTopic   string
}

// Load reads configuration from environment variables, applying defaults
// where unset.
func Load() (*Config, error) {
	workers, err := parseWorkers()
	if err != nil {
		return nil, err
	}

	maxSnap, err := parsePositiveFloat("MAX_SNAP_KM", 10)
	if err != nil {
		return nil, err
	}

	shutdownTimeout, err := parseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Workers:         workers,
		MaxSnapKM:       maxSnap,
		DatasetName:     envOrDefault("DATASET_NAME", "fort.63.nc"),
		Format:          envOrDefault("OUTPUT_FORMAT", "container"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "text"),
		MetricsAddr:     os.Getenv("METRICS_ADDR"),
		ShutdownTimeout: shutdownTimeout,
		AnnounceBrokers: SplitBrokers(os.Getenv("ANNOUNCE_BROKERS")),
		AnnounceTopic:   envOrDefault("ANNOUNCE_TOPIC", "adcirc-etl-jobs"),
	}

	if cfg.DatasetName == "" {
		return nil, errors.New("DATASET_NAME is required")
	}
	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		return nil, errors.New("LOG_FORMAT must be \"text\" or \"json\"")
	}
	if len(cfg.AnnounceBrokers) > 0 && cfg.AnnounceTopic == "" {
		return nil, errors.New("ANNOUNCE_BROKERS is set but ANNOUNCE_TOPIC is empty")
	}

	return cfg, nil
}

// Announce reports whether job results should be published to Kafka.
func (c *Config) Announce() bool { return len(c.AnnounceBrokers) > 0 }

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// parseWorkers returns the worker-pool size: EXTRACT_WORKERS when set,
// otherwise the detected host parallelism.
func parseWorkers() (int, error) {
	s := os.Getenv("EXTRACT_WORKERS")
	if s == "" {
		return runtime.NumCPU(), nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, errors.New("EXTRACT_WORKERS must be a positive integer")
	}
	return n, nil
}

func parsePositiveFloat(key string, def float64) (float64, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v <= 0 {
		return 0, errors.New(key + " must be a positive number")
	}
	return v, nil
}

func parseShutdownTimeout() (time.Duration, error) {
	s := envOrDefault("SHUTDOWN_TIMEOUT", "10s")
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, errors.New("invalid SHUTDOWN_TIMEOUT")
	}
	return d, nil
}

// SplitBrokers parses a comma-separated broker list, dropping empty entries.
// Shared with the flag layer so -announce-brokers and ANNOUNCE_BROKERS parse
// identically.
func SplitBrokers(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	brokers := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			brokers = append(brokers, p)
		}
	}
	return brokers
}
