package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App        AppConfig
	Logger     LoggerConfig
	Store      StoreConfig
	Postgres   PostgresConfig
	Redis      RedisConfig
	Analysis   AnalysisConfig
	Classifier ClassifierConfig
	DocQA      DocQAConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
	BodyLimitMB           int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level      string
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// StoreConfig selects and configures the ticket store backend.
type StoreConfig struct {
	Backend        string
	Path           string
	RecoverCorrupt bool
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	MigrationsDir  string
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Enabled        bool
	Addr           string
	Password       string
	DB             int
	CacheTTLSecond int
	EventsChannel  string
}

// AnalysisConfig tunes the pattern engine and ticket creation paths.
type AnalysisConfig struct {
	PeriodHours     int
	ThresholdSigma  float64
	MinExcess       float64
	PerDevice       bool
	ReactiveTickets bool
	WindowTickets   bool
}

// ClassifierConfig points at an optional rule table file.
type ClassifierConfig struct {
	RulesPath string
	Watch     bool
}

// DocQAConfig configures the remote document question-answering capability.
type DocQAConfig struct {
	Endpoint        string
	TimeoutSeconds  int
	DefaultQuestion string
	MaxImageMB      int
	// ImageHosts, when set, is the only set of hosts images are fetched from.
	ImageHosts []string
	// AllowPrivateHosts lets image fetches reach private and loopback addresses.
	AllowPrivateHosts bool
}

const (
	StoreBackendFile     = "file"
	StoreBackendPostgres = "postgres"
)

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "noc-incidents"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
			BodyLimitMB:           getEnvAsInt("HTTP_BODY_LIMIT_MB", 32),
		},
		Logger: LoggerConfig{
			Level:      getEnv("LOG_LEVEL", "info"),
			File:       os.Getenv("LOG_FILE"),
			MaxSizeMB:  getEnvAsInt("LOG_MAX_SIZE_MB", 100),
			MaxBackups: getEnvAsInt("LOG_MAX_BACKUPS", 5),
			MaxAgeDays: getEnvAsInt("LOG_MAX_AGE_DAYS", 30),
		},
		Store: StoreConfig{
			Backend:        getEnv("TICKET_STORE_BACKEND", StoreBackendFile),
			Path:           getEnv("TICKET_STORE_PATH", "tickets.json"),
			RecoverCorrupt: getEnvAsBool("TICKET_STORE_RECOVER_CORRUPT", false),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			MigrationsDir:  getEnv("POSTGRES_MIGRATIONS_DIR", "migrations"),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Enabled:        getEnvAsBool("REDIS_ENABLED", false),
			Addr:           getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password:       os.Getenv("REDIS_PASSWORD"),
			DB:             redisDB,
			CacheTTLSecond: getEnvAsInt("REDIS_TICKET_CACHE_TTL_SECONDS", 3600),
			EventsChannel:  getEnv("REDIS_EVENTS_CHANNEL", "noc.incidents.events"),
		},
		Analysis: AnalysisConfig{
			PeriodHours:     getEnvAsInt("ANALYSIS_PERIOD_HOURS", 24),
			ThresholdSigma:  getEnvAsFloat("ANALYSIS_THRESHOLD_SIGMA", 2.0),
			MinExcess:       getEnvAsFloat("ANALYSIS_MIN_EXCESS", 0.1),
			PerDevice:       getEnvAsBool("ANALYSIS_PER_DEVICE", false),
			ReactiveTickets: getEnvAsBool("ANALYSIS_REACTIVE_TICKETS", false),
			WindowTickets:   getEnvAsBool("ANALYSIS_WINDOW_TICKETS", true),
		},
		Classifier: ClassifierConfig{
			RulesPath: os.Getenv("CLASSIFIER_RULES_PATH"),
			Watch:     getEnvAsBool("CLASSIFIER_WATCH", false),
		},
		DocQA: DocQAConfig{
			Endpoint:          os.Getenv("DOCQA_ENDPOINT"),
			TimeoutSeconds:    getEnvAsInt("DOCQA_TIMEOUT_SECONDS", 10),
			DefaultQuestion:   getEnv("DOCQA_DEFAULT_QUESTION", "What is the invoice number?"),
			MaxImageMB:        getEnvAsInt("DOCQA_MAX_IMAGE_MB", 10),
			ImageHosts:        getEnvAsList("DOCQA_IMAGE_HOSTS"),
			AllowPrivateHosts: getEnvAsBool("DOCQA_ALLOW_PRIVATE_HOSTS", false),
		},
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// CacheTTL returns how long cached tickets live in Redis.
func (r RedisConfig) CacheTTL() time.Duration {
	if r.CacheTTLSecond <= 0 {
		return 0
	}
	return time.Duration(r.CacheTTLSecond) * time.Second
}

// Timeout bounds a single document-QA exchange.
func (d DocQAConfig) Timeout() time.Duration {
	if d.TimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(d.TimeoutSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsFloat(key string, fallback float64) float64 {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
