package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration
type Config struct {
	Env         string
	Server      ServerConfig
	Redis       RedisConfig
	Places      PlacesConfig
	Geolocation GeolocationConfig
	Maps        MapsConfig
	Search      SearchConfig
	Session     SessionConfig
	OTEL        OTELConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host           string
	Port           int
	AllowedOrigins []string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// PlacesConfig selects and configures the places-search provider.
type PlacesConfig struct {
	Provider string
	APIKey   string
	BaseURL  string
	CacheTTL time.Duration
}

// GeolocationConfig holds forward/reverse geocoding configuration.
type GeolocationConfig struct {
	Provider     string
	APIKey       string
	BaseURL      string
	DefaultPlace string
}

// MapsConfig configures the static map proxy.
type MapsConfig struct {
	APIKey string
}

// SearchConfig tunes the nearest-facility pipeline.
type SearchConfig struct {
	ResultThreshold    int
	DedupeThresholdDeg float64
	RequestTimeout     time.Duration
	StrategiesFile     string
	Strategies         []StrategyConfig
	WarmTerms          []string
}

// SessionConfig holds search-session lifecycle settings.
type SessionConfig struct {
	IdleTTL time.Duration
}

// OTELConfig holds OpenTelemetry configuration
type OTELConfig struct {
	ServiceName    string
	ServiceVersion string
	Endpoint       string
	Enabled        bool
}

// StrategyConfig is one entry of the strategy plan file.
type StrategyConfig struct {
	Name         string `yaml:"name"`
	Scope        string `yaml:"scope"`
	RadiusMeters int    `yaml:"radius_meters"`
	Limit        int    `yaml:"limit"`
	UseTerm      bool   `yaml:"use_term"`
}

type strategyFile struct {
	Strategies []StrategyConfig `yaml:"strategies"`
}

// Load loads configuration from environment variables, reading a .env file first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Env: getEnv("ENV", "production"),
		Server: ServerConfig{
			Host:           getEnv("SERVER_HOST", "0.0.0.0"),
			Port:           getEnvAsInt("SERVER_PORT", 8080),
			AllowedOrigins: getEnvAsList("ALLOWED_ORIGINS", []string{"*"}),
		},
		Redis: RedisConfig{
			Enabled:  getEnvAsBool("REDIS_ENABLED", true),
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvAsInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Places: PlacesConfig{
			Provider: getEnv("PLACES_PROVIDER", "geoapify"),
			APIKey:   getEnv("PLACES_API_KEY", ""),
			BaseURL:  getEnv("PLACES_BASE_URL", ""),
			CacheTTL: getEnvAsDuration("PLACES_CACHE_TTL", 10*time.Minute),
		},
		Geolocation: GeolocationConfig{
			Provider:     getEnv("GEOLOCATION_PROVIDER", "geoapify"),
			APIKey:       getEnv("GEOLOCATION_API_KEY", ""),
			BaseURL:      getEnv("GEOLOCATION_BASE_URL", ""),
			DefaultPlace: getEnv("DEFAULT_PLACE", "Bhubaneswar, Odisha, India"),
		},
		Maps: MapsConfig{
			APIKey: getEnv("MAPS_API_KEY", ""),
		},
		Search: SearchConfig{
			ResultThreshold:    getEnvAsInt("SEARCH_RESULT_THRESHOLD", 10),
			DedupeThresholdDeg: getEnvAsFloat("SEARCH_DEDUPE_THRESHOLD_DEG", 0.001),
			RequestTimeout:     getEnvAsDuration("SEARCH_REQUEST_TIMEOUT", 0),
			StrategiesFile:     getEnv("STRATEGIES_FILE", ""),
			WarmTerms:          getEnvAsList("SEARCH_WARM_TERMS", nil),
		},
		Session: SessionConfig{
			IdleTTL: getEnvAsDuration("SESSION_IDLE_TTL", 30*time.Minute),
		},
		OTEL: OTELConfig{
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "gramaarogya-facilities"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "1.0.0"),
			Endpoint:       getEnv("OTEL_ENDPOINT", ""),
			Enabled:        getEnvAsBool("OTEL_ENABLED", false),
		},
	}

	if cfg.Places.APIKey == "" {
		cfg.Places.APIKey = cfg.Geolocation.APIKey
	}
	if cfg.Geolocation.APIKey == "" {
		cfg.Geolocation.APIKey = cfg.Places.APIKey
	}

	if cfg.Search.ResultThreshold <= 0 {
		return nil, fmt.Errorf("SEARCH_RESULT_THRESHOLD must be positive, got %d", cfg.Search.ResultThreshold)
	}
	if cfg.Search.DedupeThresholdDeg < 0 {
		return nil, fmt.Errorf("SEARCH_DEDUPE_THRESHOLD_DEG must not be negative, got %v", cfg.Search.DedupeThresholdDeg)
	}

	if cfg.Search.StrategiesFile != "" {
		strategies, err := LoadStrategies(cfg.Search.StrategiesFile)
		if err != nil {
			return nil, err
		}
		cfg.Search.Strategies = strategies
	}

	return cfg, nil
}

// LoadStrategies reads a YAML strategy plan.
func LoadStrategies(path string) ([]StrategyConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read strategies file %q: %w", path, err)
	}
	return ParseStrategies(data)
}

// ParseStrategies decodes a YAML strategy plan and checks each entry.
func ParseStrategies(data []byte) ([]StrategyConfig, error) {
	var file strategyFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse strategies: %w", err)
	}
	if len(file.Strategies) == 0 {
		return nil, fmt.Errorf("strategies file declares no strategies")
	}
	for i, s := range file.Strategies {
		if s.RadiusMeters <= 0 {
			return nil, fmt.Errorf("strategy %d (%s): radius_meters must be positive", i, s.Name)
		}
		switch s.Scope {
		case "specific", "generic", "broad":
		default:
			return nil, fmt.Errorf("strategy %d (%s): unknown scope %q", i, s.Name, s.Scope)
		}
	}
	return file.Strategies, nil
}

// RedisAddr returns the Redis address
func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
