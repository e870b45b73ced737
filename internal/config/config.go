// Package config loads server configuration from an optional YAML file
// merged with environment variables. Environment variables win.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	HTTPAddr string `koanf:"http_addr"`
	Env      string `koanf:"env"` // "dev" | "prod"

	// DB
	DBPath string `koanf:"db_path"` // e.g. "./data/deurapi.db"

	// OAuth resource server
	AuthServerURL      string `koanf:"auth_server_url"`  // trailing slash expected
	BoardResource      string `koanf:"board_resource"`   // board-level resource path
	DeviceResource     string `koanf:"device_resource"`  // device-level resource path
	AuthTimeoutSeconds int    `koanf:"auth_timeout_seconds"`

	// Error documentation base, used for the href field of error bodies.
	DocsBaseURL string `koanf:"docs_base_url"`

	// Scan source for pass enrollment: "local" reads the attempts table,
	// "door" polls the door controller's failure log over HTTP.
	ScanSource      string `koanf:"scan_source"`
	DoorFailuresURL string `koanf:"door_failures_url"`

	// Attempt retention
	AttemptRetentionDays int `koanf:"attempt_retention_days"` // 0 = keep forever
	PruneIntervalHours   int `koanf:"prune_interval_hours"`
}

const (
	DefaultHTTPAddr           = ":8080"
	DefaultDBPath             = "./data/deurapi.db"
	DefaultAuthTimeoutSeconds = 5
	DefaultBoardResource      = "board"
	DefaultDeviceResource     = "resource"
	DefaultScanSource         = "local"
	DefaultRetentionDays      = 0
	DefaultPruneInterval      = 6
)

// Load reads the optional YAML file at path (empty string skips the file)
// and applies DEURAPI_* environment overrides on top.
func Load(path string) (Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	cfg := Config{
		HTTPAddr:             envOrKoanf("DEURAPI_HTTP_ADDR", k, "http_addr", DefaultHTTPAddr),
		Env:                  strings.ToLower(envOrKoanf("DEURAPI_ENV", k, "env", "dev")),
		DBPath:               envOrKoanf("DEURAPI_DB_PATH", k, "db_path", DefaultDBPath),
		AuthServerURL:        envOrKoanf("DEURAPI_AUTH_SERVER_URL", k, "auth_server_url", ""),
		BoardResource:        envOrKoanf("DEURAPI_BOARD_RESOURCE", k, "board_resource", DefaultBoardResource),
		DeviceResource:       envOrKoanf("DEURAPI_DEVICE_RESOURCE", k, "device_resource", DefaultDeviceResource),
		AuthTimeoutSeconds:   envOrKoanfInt("DEURAPI_AUTH_TIMEOUT_SECONDS", k, "auth_timeout_seconds", DefaultAuthTimeoutSeconds),
		DocsBaseURL:          envOrKoanf("DEURAPI_DOCS_BASE_URL", k, "docs_base_url", ""),
		ScanSource:           strings.ToLower(envOrKoanf("DEURAPI_SCAN_SOURCE", k, "scan_source", DefaultScanSource)),
		DoorFailuresURL:      envOrKoanf("DEURAPI_DOOR_FAILURES_URL", k, "door_failures_url", ""),
		AttemptRetentionDays: envOrKoanfInt("DEURAPI_ATTEMPT_RETENTION_DAYS", k, "attempt_retention_days", DefaultRetentionDays),
		PruneIntervalHours:   envOrKoanfInt("DEURAPI_PRUNE_INTERVAL_HOURS", k, "prune_interval_hours", DefaultPruneInterval),
	}

	if cfg.Env != "dev" && cfg.Env != "prod" {
		// fail-soft: treat unknown as dev
		cfg.Env = "dev"
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.AuthServerURL == "" {
		return fmt.Errorf("auth_server_url is required")
	}
	if c.ScanSource != "local" && c.ScanSource != "door" {
		return fmt.Errorf("scan_source must be \"local\" or \"door\", got %q", c.ScanSource)
	}
	if c.ScanSource == "door" && c.DoorFailuresURL == "" {
		return fmt.Errorf("door_failures_url is required when scan_source=door")
	}
	if c.AuthTimeoutSeconds <= 0 {
		return fmt.Errorf("auth_timeout_seconds must be positive")
	}
	return nil
}

func envOrKoanf(envKey string, k *koanf.Koanf, key, def string) string {
	if v := strings.TrimSpace(os.Getenv(envKey)); v != "" {
		return v
	}
	if v := k.String(key); v != "" {
		return v
	}
	return def
}

func envOrKoanfInt(envKey string, k *koanf.Koanf, key string, def int) int {
	if v := strings.TrimSpace(os.Getenv(envKey)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return n
		}
		return def
	}
	if k.Exists(key) {
		return k.Int(key)
	}
	return def
}
