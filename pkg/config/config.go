package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	CORS     CORSConfig
	Log      LogConfig
	Upstream UpstreamConfig
	Grades   GradesConfig
	Cache    CacheConfig
	Resolver ResolverConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// UpstreamConfig points at the gradebook host API used to fill score gaps.
type UpstreamConfig struct {
	BaseURL  string
	APIToken string
	Timeout  time.Duration
	PageSize int
}

// GradesConfig controls letter-grade rendering.
type GradesConfig struct {
	LetterGradesEnabled bool
	DefaultScale        string
}

// CacheConfig governs the Redis-backed listing and scale caches.
type CacheConfig struct {
	Enabled    bool
	ListingTTL time.Duration
	ScaleTTL   time.Duration
}

// ResolverConfig tunes background score resolution and waits.
type ResolverConfig struct {
	Workers      int
	WaitTimeout  time.Duration
	PollInterval time.Duration
	CourseTTL    time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{Secret: v.GetString("JWT_SECRET")}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Upstream = UpstreamConfig{
		BaseURL:  strings.TrimRight(v.GetString("UPSTREAM_BASE_URL"), "/"),
		APIToken: v.GetString("UPSTREAM_API_TOKEN"),
		Timeout:  parseDuration(v.GetString("UPSTREAM_TIMEOUT"), 10*time.Second),
		PageSize: v.GetInt("UPSTREAM_PAGE_SIZE"),
	}

	cfg.Grades = GradesConfig{
		LetterGradesEnabled: v.GetBool("LETTER_GRADES_ENABLED"),
		DefaultScale:        v.GetString("DEFAULT_GRADING_SCALE"),
	}

	cfg.Cache = CacheConfig{
		Enabled:    v.GetBool("ENABLE_CACHE"),
		ListingTTL: parseDuration(v.GetString("LISTING_CACHE_TTL"), 2*time.Minute),
		ScaleTTL:   parseDuration(v.GetString("SCALE_CACHE_TTL"), 30*time.Minute),
	}

	workers := v.GetInt("RESOLVE_WORKERS")
	if workers <= 0 {
		workers = 4
	}
	cfg.Resolver = ResolverConfig{
		Workers:      workers,
		WaitTimeout:  parseDuration(v.GetString("WAIT_TIMEOUT"), 30*time.Second),
		PollInterval: parseDuration(v.GetString("WAIT_POLL_INTERVAL"), 500*time.Millisecond),
		CourseTTL:    parseDuration(v.GetString("COURSE_TTL"), time.Hour),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "whatif_grades")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("UPSTREAM_BASE_URL", "https://api.schoology.com/v1")
	v.SetDefault("UPSTREAM_API_TOKEN", "")
	v.SetDefault("UPSTREAM_TIMEOUT", "10s")
	v.SetDefault("UPSTREAM_PAGE_SIZE", 200)

	v.SetDefault("LETTER_GRADES_ENABLED", true)
	v.SetDefault("DEFAULT_GRADING_SCALE", "90:A,80:B,70:C,60:D,0:F")

	v.SetDefault("ENABLE_CACHE", false)
	v.SetDefault("LISTING_CACHE_TTL", "2m")
	v.SetDefault("SCALE_CACHE_TTL", "30m")

	v.SetDefault("RESOLVE_WORKERS", 4)
	v.SetDefault("WAIT_TIMEOUT", "30s")
	v.SetDefault("WAIT_POLL_INTERVAL", "500ms")
	v.SetDefault("COURSE_TTL", "1h")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
