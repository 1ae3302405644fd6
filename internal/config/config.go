package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
)

var Module = fx.Module("config",
	fx.Provide(Load),
	fx.Provide(NewSettingsHolder),
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string

	OTLPEndpoint string

	DBType             string
	DBHost             string
	DBPort             string
	DBName             string
	DBUser             string
	DBPassword         string
	DBSSLMode          string
	DBMaxIdleConn      int
	DBMaxOpenConn      int
	DBConnMaxLifetime  int
	DBConnMaxIdleTime  int
	DBStatementTimeout time.Duration

	AuthJWTSecret string
	AuthIssuer    string
	AuthTokenTTL  time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	VaultAgeIdentity string

	Blob BlobConfig

	Bootstrap BootstrapConfig

	Scheduler SchedulerConfig
}

type BlobConfig struct {
	Driver      string
	FSRoot      string
	S3Bucket    string
	S3Region    string
	S3Endpoint  string
	S3PathStyle bool
}

type SchedulerConfig struct {
	Enabled               bool
	Interval              time.Duration
	SequenceRetentionDays int
}

type BootstrapConfig struct {
	AdminUsername string
	AdminPassword string
	AdminName     string
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		AppName:            getenv("APP_SERVICE", "itstaffcheck"),
		AppVersion:         getenv("APP_VERSION", "2.0.0"),
		Environment:        getenv("ENVIRONMENT", "development"),
		HTTPAddr:           getenv("HTTP_ADDR", ":8080"),
		OTLPEndpoint:       getenv("OTLP_ENDPOINT", "localhost:4317"),
		DBType:             getenv("DATABASE_TYPE", "postgres"),
		DBHost:             getenv("DATABASE_HOST", "localhost"),
		DBPort:             getenv("DATABASE_PORT", "5432"),
		DBName:             getenv("DATABASE_NAME", "itstaffcheck"),
		DBUser:             getenv("DATABASE_USER", "postgres"),
		DBPassword:         getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:          getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:      getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:      getenvInt("DATABASE_MAX_OPEN_CONN", 20),
		DBConnMaxLifetime:  getenvInt("DATABASE_CONN_MAX_LIFETIME", 300),
		DBConnMaxIdleTime:  getenvInt("DATABASE_CONN_MAX_IDLE_TIME", 60),
		DBStatementTimeout: getenvDuration("DB_STATEMENT_TIMEOUT", 15*time.Second),
		AuthJWTSecret:      strings.TrimSpace(getenv("AUTH_JWT_SECRET", "")),
		AuthIssuer:         strings.TrimSpace(getenv("AUTH_ISSUER", "itstaffcheck")),
		AuthTokenTTL:       getenvDuration("AUTH_TOKEN_TTL", 12*time.Hour),
		RedisAddr:          strings.TrimSpace(getenv("REDIS_ADDR", "")),
		RedisPassword:      getenv("REDIS_PASSWORD", ""),
		RedisDB:            getenvInt("REDIS_DB", 0),
		VaultAgeIdentity:   strings.TrimSpace(getenv("VAULT_AGE_IDENTITY", "")),
		Blob: BlobConfig{
			Driver:      strings.ToLower(getenv("BLOB_DRIVER", "fs")),
			FSRoot:      getenv("BLOB_FS_ROOT", "./data/attachments"),
			S3Bucket:    strings.TrimSpace(getenv("BLOB_S3_BUCKET", "")),
			S3Region:    getenv("BLOB_S3_REGION", "us-east-1"),
			S3Endpoint:  strings.TrimSpace(getenv("BLOB_S3_ENDPOINT", "")),
			S3PathStyle: getenvBool("BLOB_S3_PATH_STYLE", false),
		},
		Bootstrap: BootstrapConfig{
			AdminUsername: strings.TrimSpace(getenv("BOOTSTRAP_ADMIN_USERNAME", "admin")),
			AdminPassword: getenv("BOOTSTRAP_ADMIN_PASSWORD", ""),
			AdminName:     getenv("BOOTSTRAP_ADMIN_NAME", "Administrator"),
		},
		Scheduler: SchedulerConfig{
			Enabled:               getenvBool("SCHEDULER_ENABLED", true),
			Interval:              getenvDuration("SCHEDULER_INTERVAL", 5*time.Minute),
			SequenceRetentionDays: getenvInt("TICKET_SEQUENCE_RETENTION_DAYS", 90),
		},
	}

	if cfg.AuthJWTSecret == "" {
		log.Printf("[config] AUTH_JWT_SECRET is empty; bearer tokens cannot be issued")
	}

	return cfg
}

func (c Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.Environment), "production")
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvDuration(key string, def time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := time.ParseDuration(value)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}
