package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Fare regions selectable with FARE_REGION.
const (
	RegionDefault    = "default"
	RegionPugetSound = "pugetsound"
	RegionAtlanta    = "atlanta"
	RegionFreeWindow = "freewindow"
)

// Interline policies selectable with INTERLINE_POLICY.
const (
	InterlineNever     = "never"
	InterlineAlways    = "always"
	InterlineSameRoute = "same_route"
)

type Config struct {
	DatabaseURL            string
	City                   string
	CatalogRefreshInterval time.Duration
	FeedID                 string
	NATSURL                string
	NATSSubjectPrefix      string
	LogNATSSubjects        bool
	MetricsAddr            string
	LogLevel               slog.Level
	Location               *time.Location
	Region                 string
	FreeTransferWindow     time.Duration
	AnalyzeInterlined      bool
	InterlinePolicy        string
	BatchConcurrency       int
}

func Load() (*Config, error) {
	// Load .env into environment (ignore if missing)
	_ = godotenv.Load()

	cfg := &Config{}

	// Database URL (cluster DSN): prefer DATABASE_URL / PG_DSN, else build from PG* vars
	dsn := firstNonEmpty(
		os.Getenv("DATABASE_URL"),
		os.Getenv("PG_DSN"),
	)
	if dsn == "" {
		host := getenvDefault("PGHOST", "127.0.0.1")
		port := getenvDefault("PGPORT", "5432")
		user := getenvDefault("PGUSER", "postgres")
		pass := os.Getenv("PGPASSWORD")
		db := os.Getenv("PGDATABASE")
		// with CITY the feed database is resolved from the 'postgres' meta database
		if db == "" && firstNonEmpty(os.Getenv("CITY"), os.Getenv("CITY_NAME")) != "" {
			db = "postgres"
		}
		if db == "" {
			return nil, errors.New("PGDATABASE or DATABASE_URL must be set (set PGDATABASE=postgres when using CITY)")
		}
		sslmode := getenvDefault("PGSSLMODE", "disable")
		if pass != "" {
			cfg.DatabaseURL = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", urlEscape(user), urlEscape(pass), host, port, db, sslmode)
		} else {
			cfg.DatabaseURL = fmt.Sprintf("postgres://%s@%s:%s/%s?sslmode=%s", urlEscape(user), host, port, db, sslmode)
		}
	} else {
		cfg.DatabaseURL = dsn
	}

	// City name for dynamic DB resolution
	cfg.City = firstNonEmpty(os.Getenv("CITY"), os.Getenv("CITY_NAME"))

	refresh, err := positiveInt("CATALOG_REFRESH_MINUTES", 30)
	if err != nil {
		return nil, err
	}
	cfg.CatalogRefreshInterval = time.Duration(refresh) * time.Minute

	cfg.FeedID = getenvDefault("FEED_ID", "1")

	cfg.NATSURL = getenvDefault("NATS_URL", "nats://127.0.0.1:4222")
	cfg.NATSSubjectPrefix = strings.Trim(getenvDefault("NATS_SUBJECT_PREFIX", "fares"), ".")
	if cfg.NATSSubjectPrefix == "" {
		return nil, errors.New("invalid NATS_SUBJECT_PREFIX: empty")
	}

	// Debug logging for NATS subjects
	cfg.LogNATSSubjects = parseBool(os.Getenv("LOG_NATS_SUBJECTS"))

	// Metrics listen address (e.g., ":9102"). Empty disables the metrics server.
	cfg.MetricsAddr = os.Getenv("METRICS_ADDR")

	if err := cfg.LogLevel.UnmarshalText([]byte(getenvDefault("LOG_LEVEL", "info"))); err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %v", err)
	}

	// Time zone
	tzName := getenvDefault("TZ", "")
	if tzName == "" {
		cfg.Location = time.Local
	} else {
		loc, err := time.LoadLocation(tzName)
		if err != nil {
			return nil, fmt.Errorf("invalid TZ: %v", err)
		}
		cfg.Location = loc
	}

	cfg.Region = strings.ToLower(getenvDefault("FARE_REGION", RegionDefault))
	switch cfg.Region {
	case RegionDefault, RegionPugetSound, RegionAtlanta, RegionFreeWindow:
	default:
		return nil, fmt.Errorf("invalid FARE_REGION: %q", cfg.Region)
	}

	window, err := positiveInt("FREE_TRANSFER_WINDOW_MINUTES", 150)
	if err != nil {
		return nil, err
	}
	cfg.FreeTransferWindow = time.Duration(window) * time.Minute
	cfg.AnalyzeInterlined = parseBool(os.Getenv("ANALYZE_INTERLINED_TRANSFERS"))

	cfg.InterlinePolicy = strings.ToLower(getenvDefault("INTERLINE_POLICY", InterlineNever))
	switch cfg.InterlinePolicy {
	case InterlineNever, InterlineAlways, InterlineSameRoute:
	default:
		return nil, fmt.Errorf("invalid INTERLINE_POLICY: %q", cfg.InterlinePolicy)
	}

	if cfg.BatchConcurrency, err = positiveInt("BATCH_CONCURRENCY", 8); err != nil {
		return nil, err
	}

	return cfg, nil
}

func getenvDefault(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func positiveInt(k string, def int) (int, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", k, v)
	}
	return n, nil
}

func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "t", "yes", "y", "on":
		return true
	}
	return false
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func urlEscape(s string) string {
	// Minimal escape for DSN user/pass with special chars
	r := strings.NewReplacer("@", "%40", ":", "%3A", "/", "%2F", "?", "%3F", "#", "%23")
	return r.Replace(s)
}
