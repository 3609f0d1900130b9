package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/facility-freshness/internal/domain"
	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/joho/godotenv"
)

// Default source endpoints: the public unit catalog and the published link sheet.
const (
	DefaultCatalogURL   = "https://torre-control-production.up.railway.app/api/unidades/publico"
	DefaultLinkSheetURL = "https://docs.google.com/spreadsheets/d/e/2PACX-1vRmdYQBqZYY30hQt9hU2hzpVAsBwaSdpIg0LbbFCoJ5z3ouswU6lrnihg39CQPNd62J48H6D5mDzY6F/pub?gid=0&single=true&output=csv"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	CatalogURL       string
	LinkSheetURL     string
	FetchTimeout     time.Duration
	RefreshInterval  time.Duration
	DatePolicy       domain.DatePolicy
	MacroRegionsFile string

	HTTPAddr         string
	LogLevel         string
	LogFormat        string
	ShutdownTimeout  time.Duration
	ResponseCacheTTL time.Duration

	// Snapshot publishing.
	KafkaEnabled       bool
	KafkaBrokers       []string
	KafkaSnapshotTopic string
}

// LoadEnvFiles loads variables from .env files into the process environment.
// Variables already set are left alone, and earlier files take precedence over
// later ones. Missing files are ignored.
func LoadEnvFiles(files ...string) {
	if len(files) == 0 {
		files = []string{".env.local", ".env"}
	}
	for _, f := range files {
		_ = godotenv.Load(f)
	}
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	fetchTimeout, err := parsePositiveDuration("FETCH_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}
	refreshInterval, err := parseNonNegativeDuration("REFRESH_INTERVAL", "15m")
	if err != nil {
		return nil, err
	}
	cacheTTL, err := parseNonNegativeDuration("RESPONSE_CACHE_TTL", "30s")
	if err != nil {
		return nil, err
	}

	policy, err := domain.ParseDatePolicy(sharedcfg.EnvOrDefault("DATE_POLICY", string(domain.DatePolicyStrict)))
	if err != nil {
		return nil, fmt.Errorf("invalid DATE_POLICY: %w", err)
	}

	kafkaEnabled, err := parseBool("KAFKA_ENABLED", false)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		CatalogURL:       sharedcfg.EnvOrDefault("CATALOG_URL", DefaultCatalogURL),
		LinkSheetURL:     sharedcfg.EnvOrDefault("LINK_SHEET_URL", DefaultLinkSheetURL),
		FetchTimeout:     fetchTimeout,
		RefreshInterval:  refreshInterval,
		DatePolicy:       policy,
		MacroRegionsFile: os.Getenv("MACRO_REGIONS_FILE"),

		HTTPAddr:         sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:         sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:        sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:  shutdownTimeout,
		ResponseCacheTTL: cacheTTL,

		KafkaEnabled:       kafkaEnabled,
		KafkaBrokers:       sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSnapshotTopic: sharedcfg.EnvOrDefault("KAFKA_SNAPSHOT_TOPIC", "facility-freshness-snapshots"),
	}

	if err := validateURL("CATALOG_URL", cfg.CatalogURL); err != nil {
		return nil, err
	}
	if err := validateURL("LINK_SHEET_URL", cfg.LinkSheetURL); err != nil {
		return nil, err
	}
	if cfg.KafkaEnabled {
		if len(cfg.KafkaBrokers) == 0 {
			return nil, errors.New("KAFKA_BROKERS is required when KAFKA_ENABLED is true")
		}
		if strings.TrimSpace(cfg.KafkaSnapshotTopic) == "" {
			return nil, errors.New("KAFKA_SNAPSHOT_TOPIC is required when KAFKA_ENABLED is true")
		}
	}

	return cfg, nil
}

func parsePositiveDuration(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, fallback))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s: must be a positive duration", key)
	}
	return d, nil
}

func parseNonNegativeDuration(key, fallback string) (time.Duration, error) {
	v := sharedcfg.EnvOrDefault(key, fallback)
	if v == "0" {
		return 0, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("invalid %s: must be a duration, 0 to disable", key)
	}
	return d, nil
}

func parseBool(key string, fallback bool) (bool, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %q", key, v)
	}
	return b, nil
}

func validateURL(key, raw string) error {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid %s: %q is not an http(s) URL", key, raw)
	}
	return nil
}
