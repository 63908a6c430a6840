package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	apperrors "github.com/zatekoja/clinicfinder/pkg/errors"
)

// Config holds all application configuration
type Config struct {
	Env         string
	Server      ServerConfig
	Data        DataConfig
	Cache       CacheConfig
	Redis       RedisConfig
	Geolocation GeolocationConfig
	OpenAI      OpenAIConfig
	Recommender RecommenderConfig
	OTEL        OTELConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host           string
	Port           int
	AllowedOrigins []string
}

// DataConfig points at the clinic dataset and the YAML mapping tables.
type DataConfig struct {
	ClinicCSVPath      string
	ZH2ENPath          string
	TagMapPath         string
	TypeMapPath        string
	SpecialtyIndexPath string
}

// CacheConfig selects the geocode/search cache backend.
type CacheConfig struct {
	Backend    string
	SQLitePath string
	MemorySize int
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// GeolocationConfig holds geolocation provider configuration
type GeolocationConfig struct {
	Provider string
	APIKey   string
	Language string
	QPS      float64
	Timeout  time.Duration
}

// OpenAIConfig holds OpenAI configuration
type OpenAIConfig struct {
	APIKey            string
	Model             string
	BaseURL           string
	RequestsPerSecond float64
	Timeout           time.Duration
}

// RecommenderConfig tunes the clinic selection pipeline.
type RecommenderConfig struct {
	MaxTags               int
	MaxClinics            int
	CandidateLimit        int
	RegistryRadiusKm      float64
	RegistryBackfillBelow int
	ExternalFallbackBelow int
	ClinicQualifier       string
}

// OTELConfig holds OpenTelemetry configuration
type OTELConfig struct {
	ServiceName    string
	ServiceVersion string
	Endpoint       string
	Enabled        bool
}

const (
	CacheBackendSQLite = "sqlite"
	CacheBackendRedis  = "redis"
	CacheBackendMemory = "memory"
)

// Load loads configuration from an optional .env file and the environment.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	v.SetDefault("ENV", "development")
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_PORT", 8080)
	v.SetDefault("ALLOWED_ORIGINS", "*")
	v.SetDefault("CLINIC_CSV_PATH", "data/clinics_standard.csv")
	v.SetDefault("ZH2EN_PATH", "data/zh2en.yaml")
	v.SetDefault("TAG_MAP_PATH", "data/tag_map.yaml")
	v.SetDefault("TYPE_MAP_PATH", "data/type_map.yaml")
	v.SetDefault("CACHE_BACKEND", CacheBackendSQLite)
	v.SetDefault("CACHE_SQLITE_PATH", "cache/gmaps_cache.db")
	v.SetDefault("CACHE_MEMORY_SIZE", 4096)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("GEOLOCATION_PROVIDER", "google")
	v.SetDefault("GEOLOCATION_LANGUAGE", "zh-TW")
	v.SetDefault("GEOLOCATION_QPS", 4)
	v.SetDefault("HTTP_TIMEOUT", "30s")
	v.SetDefault("OPENAI_MODEL", "gpt-4o")
	v.SetDefault("OPENAI_BASE_URL", "https://api.openai.com/v1")
	v.SetDefault("OPENAI_RPS", 2)
	v.SetDefault("OPENAI_TIMEOUT", "60s")
	v.SetDefault("MAX_TAGS", 3)
	v.SetDefault("MAX_CLINICS", 5)
	v.SetDefault("CANDIDATE_LIMIT", 30)
	v.SetDefault("REGISTRY_RADIUS_KM", 8)
	v.SetDefault("REGISTRY_BACKFILL_BELOW", 3)
	v.SetDefault("EXTERNAL_FALLBACK_BELOW", 3)
	v.SetDefault("CLINIC_QUALIFIER", "診所")
	v.SetDefault("OTEL_SERVICE_NAME", "clinicfinder")
	v.SetDefault("OTEL_SERVICE_VERSION", "1.0.0")
	v.SetDefault("OTEL_ENABLED", false)

	// A missing .env is fine; the environment alone is enough.
	_ = v.ReadInConfig()

	mapsKey := v.GetString("GMPS_KEY")
	if mapsKey == "" {
		mapsKey = v.GetString("GMAPS_API_KEY")
	}

	clinicCSV := v.GetString("CLINIC_CSV_PATH")
	indexPath := v.GetString("SPECIALTY_INDEX_PATH")
	if indexPath == "" {
		indexPath = clinicCSV
	}

	cfg := &Config{
		Env: v.GetString("ENV"),
		Server: ServerConfig{
			Host:           v.GetString("SERVER_HOST"),
			Port:           v.GetInt("SERVER_PORT"),
			AllowedOrigins: splitList(v.GetString("ALLOWED_ORIGINS")),
		},
		Data: DataConfig{
			ClinicCSVPath:      clinicCSV,
			ZH2ENPath:          v.GetString("ZH2EN_PATH"),
			TagMapPath:         v.GetString("TAG_MAP_PATH"),
			TypeMapPath:        v.GetString("TYPE_MAP_PATH"),
			SpecialtyIndexPath: indexPath,
		},
		Cache: CacheConfig{
			Backend:    strings.ToLower(v.GetString("CACHE_BACKEND")),
			SQLitePath: v.GetString("CACHE_SQLITE_PATH"),
			MemorySize: v.GetInt("CACHE_MEMORY_SIZE"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("REDIS_HOST"),
			Port:     v.GetInt("REDIS_PORT"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		Geolocation: GeolocationConfig{
			Provider: strings.ToLower(v.GetString("GEOLOCATION_PROVIDER")),
			APIKey:   mapsKey,
			Language: v.GetString("GEOLOCATION_LANGUAGE"),
			QPS:      v.GetFloat64("GEOLOCATION_QPS"),
			Timeout:  v.GetDuration("HTTP_TIMEOUT"),
		},
		OpenAI: OpenAIConfig{
			APIKey:            v.GetString("OPENAI_API_KEY"),
			Model:             v.GetString("OPENAI_MODEL"),
			BaseURL:           v.GetString("OPENAI_BASE_URL"),
			RequestsPerSecond: v.GetFloat64("OPENAI_RPS"),
			Timeout:           v.GetDuration("OPENAI_TIMEOUT"),
		},
		Recommender: RecommenderConfig{
			MaxTags:               v.GetInt("MAX_TAGS"),
			MaxClinics:            v.GetInt("MAX_CLINICS"),
			CandidateLimit:        v.GetInt("CANDIDATE_LIMIT"),
			RegistryRadiusKm:      v.GetFloat64("REGISTRY_RADIUS_KM"),
			RegistryBackfillBelow: v.GetInt("REGISTRY_BACKFILL_BELOW"),
			ExternalFallbackBelow: v.GetInt("EXTERNAL_FALLBACK_BELOW"),
			ClinicQualifier:       v.GetString("CLINIC_QUALIFIER"),
		},
		OTEL: OTELConfig{
			ServiceName:    v.GetString("OTEL_SERVICE_NAME"),
			ServiceVersion: v.GetString("OTEL_SERVICE_VERSION"),
			Endpoint:       v.GetString("OTEL_ENDPOINT"),
			Enabled:        v.GetBool("OTEL_ENABLED"),
		},
	}

	return cfg, nil
}

// Validate rejects configurations the process cannot start with.
func (c *Config) Validate() error {
	switch c.Geolocation.Provider {
	case "google":
		if c.Geolocation.APIKey == "" {
			return apperrors.NewConfigurationError("GMPS_KEY or GMAPS_API_KEY must be set for the google provider", nil)
		}
		// Offline mode (mock maps) may run without an LLM; production may not.
		if c.OpenAI.APIKey == "" {
			return apperrors.NewConfigurationError("OPENAI_API_KEY must be set for the google provider", nil)
		}
	case "mock":
	default:
		return apperrors.NewConfigurationError(fmt.Sprintf("unknown GEOLOCATION_PROVIDER %q", c.Geolocation.Provider), nil)
	}

	switch c.Cache.Backend {
	case CacheBackendSQLite, CacheBackendRedis, CacheBackendMemory:
	default:
		return apperrors.NewConfigurationError(fmt.Sprintf("unknown CACHE_BACKEND %q", c.Cache.Backend), nil)
	}

	if c.Data.ClinicCSVPath == "" {
		return apperrors.NewConfigurationError("CLINIC_CSV_PATH is required", nil)
	}
	if c.Recommender.MaxClinics <= 0 || c.Recommender.MaxTags <= 0 {
		return apperrors.NewConfigurationError("MAX_CLINICS and MAX_TAGS must be positive", nil)
	}

	return nil
}

// IsDev reports whether the process runs in development mode.
func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// RedisAddr returns the Redis address
func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ListenAddr returns the HTTP listen address.
func (c *ServerConfig) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
