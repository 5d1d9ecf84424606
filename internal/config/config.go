package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string

	SnowflakeNode int64
	AutoMigrate   bool

	// StoreType selects the document store backend: sql, mongo or memory.
	StoreType string

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int

	MongoURI      string
	MongoDatabase string

	RedisAddr        string
	RedisPassword    string
	RedisDB          int
	SettingsCacheTTL time.Duration

	SettingsFile string

	LogLevel  string
	LogFormat string

	OTLPEndpoint      string
	OTLPProtocol      string
	OtelEnabled       bool
	OtelSamplingRatio float64
}

const (
	StoreSQL    = "sql"
	StoreMongo  = "mongo"
	StoreMemory = "memory"
)

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		AppName:           getenv("APP_SERVICE", "clinicbill"),
		AppVersion:        getenv("APP_VERSION", "0.1.0"),
		Environment:       getenv("ENVIRONMENT", "development"),
		HTTPAddr:          getenv("HTTP_ADDR", ":8080"),
		SnowflakeNode:     getenvInt64("SNOWFLAKE_NODE", 1),
		AutoMigrate:       getenvBool("AUTO_MIGRATE", true),
		StoreType:         normalizeStoreType(getenv("STORE_TYPE", StoreSQL)),
		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "clinicbill"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     int(getenvInt64("DATABASE_MAX_IDLE_CONN", 5)),
		DBMaxOpenConn:     int(getenvInt64("DATABASE_MAX_OPEN_CONN", 20)),
		DBConnMaxLifetime: int(getenvInt64("DATABASE_CONN_MAX_LIFETIME", 300)),
		DBConnMaxIdleTime: int(getenvInt64("DATABASE_CONN_MAX_IDLE_TIME", 60)),
		MongoURI:          strings.TrimSpace(getenv("MONGO_URI", "mongodb://localhost:27017")),
		MongoDatabase:     getenv("MONGO_DATABASE", "clinicbill"),
		RedisAddr:         strings.TrimSpace(getenv("REDIS_ADDR", "")),
		RedisPassword:     getenv("REDIS_PASSWORD", ""),
		RedisDB:           int(getenvInt64("REDIS_DB", 0)),
		SettingsCacheTTL:  getenvDuration("SETTINGS_CACHE_TTL", 30*time.Second),
		SettingsFile:      strings.TrimSpace(getenv("SETTINGS_FILE", "")),
		LogLevel:          strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogFormat:         strings.ToLower(getenv("LOG_FORMAT", "json")),
		OTLPEndpoint:      getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		OTLPProtocol:      strings.ToLower(getenv("OTEL_EXPORTER_OTLP_PROTOCOL", "grpc")),
		OtelEnabled:       getenvBool("OTEL_ENABLED", false),
		OtelSamplingRatio: getenvFloat("OTEL_SAMPLING_RATIO", 0.1),
	}

	return cfg
}

// IsProduction reports whether the service runs in production.
func (c Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.Environment), "production")
}

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case StoreMongo, "mongodb":
		return StoreMongo
	case StoreMemory, "inmemory":
		return StoreMemory
	default:
		return StoreSQL
	}
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

func getenvInt64(key string, def int64) int64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return def
	}
	return parsed
}

func getenvFloat(key string, def float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(value, 64)
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
	if err != nil {
		return def
	}
	return parsed
}
