package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string

	DBType     string
	DBHost     string
	DBPort     string
	DBName     string
	DBUser     string
	DBPassword string
	DBSSLMode  string

	// Source credentials. Empty or placeholder keys turn the
	// corresponding collector run into an immediate failure.
	GovDataAPIKey     string
	YouthCenterAPIKey string

	// External source endpoints, overridable for local fixtures.
	GovDataBaseURL     string
	YouthCenterBaseURL string
	BokjiroListURL     string

	CollectionInterval time.Duration
	CollectionOnStart  bool
	PageDelay          time.Duration
	CollectorDelay     time.Duration

	HTTPClientTimeout time.Duration
}

// Module provides the loaded configuration to the fx graph.
var Module = fx.Provide(Load)

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		AppName:     getenv("APP_SERVICE", "subsidytracker"),
		AppVersion:  getenv("APP_VERSION", "0.1.0"),
		Environment: getenv("ENVIRONMENT", "development"),
		HTTPAddr:    getenv("HTTP_ADDR", ":8080"),

		DBType:     getenv("DATABASE_TYPE", "sqlite"),
		DBHost:     getenv("DATABASE_HOST", "localhost"),
		DBPort:     getenv("DATABASE_PORT", "5432"),
		DBName:     getenv("DATABASE_NAME", "subsidytracker"),
		DBUser:     getenv("DATABASE_USER", "postgres"),
		DBPassword: getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:  getenv("DATABASE_SSLMODE", "disable"),

		GovDataAPIKey:     strings.TrimSpace(getenv("GOVDATA_API_KEY", "")),
		YouthCenterAPIKey: strings.TrimSpace(getenv("YOUTHCENTER_API_KEY", "")),

		GovDataBaseURL:     getenv("GOVDATA_BASE_URL", "https://api.odcloud.kr/api/gov24/v3/serviceList"),
		YouthCenterBaseURL: getenv("YOUTHCENTER_BASE_URL", "https://www.youthcenter.go.kr/go/ythip/getPlcy"),
		BokjiroListURL:     getenv("BOKJIRO_LIST_URL", "https://www.bokjiro.go.kr/ssis-tbu/twataa/wlfareInfo/moveTWAT52011M.do"),

		CollectionInterval: time.Duration(getenvInt("COLLECTION_INTERVAL_HOURS", 24)) * time.Hour,
		CollectionOnStart:  getenvBool("COLLECTION_ON_START", true),
		PageDelay:          getenvDuration("COLLECTION_PAGE_DELAY", 300*time.Millisecond),
		CollectorDelay:     getenvDuration("COLLECTION_COLLECTOR_DELAY", 2*time.Second),

		HTTPClientTimeout: getenvDuration("HTTP_CLIENT_TIMEOUT", 30*time.Second),
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
	if err != nil {
		return def
	}
	return parsed
}
