package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Store drivers.
const (
	StoreMemory   = "memory"
	StoreSQLite   = "sqlite"
	StoreSupabase = "supabase"
)

// VIN decoder backends.
const (
	VINDecoderHTTP = "http"
	VINDecoderMock = "mock"
)

// Config holds all application configuration.
// Values are loaded from environment variables with sensible defaults.
type Config struct {
	// Server
	Port        int
	LogLevel    string
	CORSOrigins []string

	// HTTP client
	HTTPTimeout time.Duration

	// Resilience
	MaxRetries     int
	InitialBackoff time.Duration
	MaxConcurrency int

	// Cache
	CacheTTL time.Duration

	// Observability
	OTLPEndpoint string

	// Storage
	StoreDriver string
	SQLitePath  string

	// Supabase
	SupabaseURL        string
	SupabaseAnonKey    string
	SupabaseServiceKey string

	// Reference data
	CatalogPath string // optional YAML override of the embedded catalog

	// VIN decoding
	VINDecoder       string
	VINDecoderURL    string
	VINDecodeTimeout time.Duration

	// Identity
	SingpassDefaultNRIC string

	// Documents and records
	DocumentSigningSecret string
	DocumentTokenTTL      time.Duration
	FingerprintKey        string
	PolicyPrefix          string
	Brand                 string
}

// Load reads configuration from environment variables with defaults.
func Load() *Config {
	return &Config{
		Port:        getEnvInt("PORT", 8080),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		CORSOrigins: getEnvList("CORS_ORIGINS", []string{"*"}),

		HTTPTimeout: getEnvDuration("HTTP_TIMEOUT", 10*time.Second),

		MaxRetries:     getEnvInt("MAX_RETRIES", 3),
		InitialBackoff: getEnvDuration("INITIAL_BACKOFF", 100*time.Millisecond),
		MaxConcurrency: getEnvInt("MAX_CONCURRENCY", 50),

		CacheTTL: getEnvDuration("CACHE_TTL", 24*time.Hour),

		OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),

		StoreDriver: strings.ToLower(getEnv("STORE_DRIVER", StoreMemory)),
		SQLitePath:  getEnv("SQLITE_PATH", "data/quotes.db"),

		SupabaseURL:        getEnv("SUPABASE_URL", ""),
		SupabaseAnonKey:    getEnv("SUPABASE_ANON_KEY", ""),
		SupabaseServiceKey: getEnv("SUPABASE_SERVICE_ROLE_KEY", ""),

		CatalogPath: getEnv("CATALOG_PATH", ""),

		VINDecoder:       strings.ToLower(getEnv("VIN_DECODER", VINDecoderMock)),
		VINDecoderURL:    getEnv("VIN_DECODER_URL", "https://vpic.nhtsa.dot.gov"),
		VINDecodeTimeout: getEnvDuration("VIN_DECODE_TIMEOUT", 5*time.Second),

		SingpassDefaultNRIC: getEnv("SINGPASS_DEFAULT_NRIC", "S1234567A"),

		DocumentSigningSecret: getEnv("DOCUMENT_SIGNING_SECRET", "motor-quote-dev-secret-change-me"),
		DocumentTokenTTL:      getEnvDuration("DOCUMENT_TOKEN_TTL", 366*24*time.Hour),
		FingerprintKey:        getEnv("FINGERPRINT_KEY", "motor-quote-dev-fingerprint"),
		PolicyPrefix:          getEnv("POLICY_PREFIX", "TRV"),
		Brand:                 getEnv("BRAND_NAME", "Income Insurance"),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

// getEnvList splits a comma-separated value, dropping empty entries.
func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
