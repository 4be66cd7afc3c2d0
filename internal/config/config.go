package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string

	// DefaultOrgID is the platform organization. Its manager-tier members
	// administer global ACLs.
	DefaultOrgID int64
	// BootstrapOwnerID is made owner of the platform organization at startup.
	BootstrapOwnerID int64

	AuthJWTSecret string

	OTLPEndpoint string

	AccessConfigPath string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// PermissionQueryRate is tokens per second for each user's
	// /permissions calls. Zero disables the limiter.
	PermissionQueryRate  float64
	PermissionQueryBurst int

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
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		AppName:              getenv("APP_SERVICE", "bell24h"),
		AppVersion:           getenv("APP_VERSION", "0.1.0"),
		Environment:          getenv("ENVIRONMENT", "development"),
		HTTPAddr:             getenv("HTTP_ADDR", ":8080"),
		DefaultOrgID:         getenvInt64("DEFAULT_ORG", 0),
		BootstrapOwnerID:     getenvInt64("BOOTSTRAP_OWNER_USER_ID", 0),
		AuthJWTSecret:        strings.TrimSpace(getenv("AUTH_JWT_SECRET", "")),
		OTLPEndpoint:         getenv("OTLP_ENDPOINT", "localhost:4317"),
		AccessConfigPath:     strings.TrimSpace(getenv("ACCESS_CONFIG_PATH", "")),
		RedisAddr:            strings.TrimSpace(getenv("REDIS_ADDR", "")),
		RedisPassword:        getenv("REDIS_PASSWORD", ""),
		RedisDB:              int(getenvInt64("REDIS_DB", 0)),
		PermissionQueryRate:  getenvFloat("RATE_LIMIT_PERMISSIONS_RATE", 0),
		PermissionQueryBurst: int(getenvInt64("RATE_LIMIT_PERMISSIONS_BURST", 20)),
		DBType:               getenv("DATABASE_TYPE", "postgres"),
		DBHost:               getenv("DATABASE_HOST", "localhost"),
		DBPort:               getenv("DATABASE_PORT", "5432"),
		DBName:               getenv("DATABASE_NAME", "bell24h"),
		DBUser:               getenv("DATABASE_USER", "postgres"),
		DBPassword:           getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:            getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:        int(getenvInt64("DATABASE_MAX_IDLE_CONN", 10)),
		DBMaxOpenConn:        int(getenvInt64("DATABASE_MAX_OPEN_CONN", 50)),
		DBConnMaxLifetime:    int(getenvInt64("DATABASE_CONN_MAX_LIFETIME", 300)),
		DBConnMaxIdleTime:    int(getenvInt64("DATABASE_CONN_MAX_IDLE_TIME", 60)),
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
