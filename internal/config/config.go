// Package config loads and validates environment variables at startup.
// Fail-fast: if a variable is missing or malformed, the process exits with an error.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Store drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

// Blob backends.
const (
	BlobLocal = "local"
	BlobS3    = "s3"
)

// Config holds all runtime configuration for the application service.
type Config struct {
	HTTPPort string
	GRPCPort string

	StoreDriver string
	DatabaseURL string
	SQLitePath  string
	RedisURL    string // optional; events and shared rate limits need it

	BlobBackend string
	ResumeDir   string
	S3          S3

	SMTP          SMTP
	TemplatesFile string
	SeedFile      string // optional YAML directory of users and jobs

	RequestTimeout     time.Duration
	SweepIntervalHours int // 0 disables the orphan sweeper
	SweepGrace         time.Duration
}

type S3 struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// SMTP is unused when Host is empty; mail is then logged instead of sent.
type SMTP struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Load reads environment variables and returns a validated Config.
func Load() (*Config, error) {
	cfg := &Config{
		HTTPPort:      getenv("PORTAL_PORT", "8080"),
		GRPCPort:      getenv("GRPC_PORT", "9090"),
		StoreDriver:   strings.ToLower(getenv("STORE_DRIVER", DriverPostgres)),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		SQLitePath:    getenv("SQLITE_PATH", "portal.db"),
		RedisURL:      os.Getenv("REDIS_URL"),
		BlobBackend:   strings.ToLower(getenv("BLOB_BACKEND", BlobLocal)),
		ResumeDir:     getenv("RESUME_DIR", "uploads/resumes"),
		TemplatesFile: os.Getenv("NOTIFY_TEMPLATES_FILE"),
		SeedFile:      os.Getenv("SEED_FILE"),
		S3: S3{
			Endpoint:  os.Getenv("S3_ENDPOINT"),
			AccessKey: os.Getenv("S3_ACCESS_KEY"),
			SecretKey: os.Getenv("S3_SECRET_KEY"),
			Bucket:    getenv("S3_BUCKET", "portal-resumes"),
		},
		SMTP: SMTP{
			Host:     os.Getenv("SMTP_HOST"),
			Username: os.Getenv("SMTP_USERNAME"),
			Password: os.Getenv("SMTP_PASSWORD"),
			From:     getenv("MAIL_FROM", "JobConnect <noreply@jobconnect.local>"),
		},
	}

	switch cfg.StoreDriver {
	case DriverPostgres:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required when STORE_DRIVER=postgres")
		}
	case DriverSQLite, DriverMemory:
	default:
		return nil, fmt.Errorf("STORE_DRIVER must be postgres, sqlite or memory, got %q", cfg.StoreDriver)
	}

	switch cfg.BlobBackend {
	case BlobLocal:
	case BlobS3:
		if cfg.S3.Endpoint == "" {
			return nil, fmt.Errorf("S3_ENDPOINT is required when BLOB_BACKEND=s3")
		}
	default:
		return nil, fmt.Errorf("BLOB_BACKEND must be local or s3, got %q", cfg.BlobBackend)
	}

	var err error
	if cfg.S3.UseSSL, err = getbool("S3_USE_SSL", true); err != nil {
		return nil, err
	}
	if cfg.SMTP.Port, err = getint("SMTP_PORT", 587); err != nil {
		return nil, err
	}
	if cfg.RequestTimeout, err = getduration("REQUEST_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.SweepIntervalHours, err = getint("SWEEP_INTERVAL_HOURS", 6); err != nil {
		return nil, err
	}
	if cfg.SweepIntervalHours < 0 {
		return nil, fmt.Errorf("SWEEP_INTERVAL_HOURS must not be negative")
	}
	if cfg.SweepGrace, err = getduration("SWEEP_GRACE", 24*time.Hour); err != nil {
		return nil, err
	}

	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getint(key string, fallback int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return v, nil
}

func getbool(key string, fallback bool) (bool, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return false, fmt.Errorf("%s must be a boolean: %w", key, err)
	}
	return v, nil
}

func getduration(key string, fallback time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration such as 30s: %w", key, err)
	}
	if v <= 0 {
		return 0, fmt.Errorf("%s must be positive", key)
	}
	return v, nil
}
