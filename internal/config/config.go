package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kapu/creator-directory-go/internal/constants"
)

type Config struct {
	Sources  SourcesConfig
	Pipeline PipelineConfig
	Refresh  RefreshConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	HTTP     HTTPConfig
	Logging  LoggingConfig
}

// SourcesConfig holds provider credentials. An empty key disables that adapter.
type SourcesConfig struct {
	YouTubeAPIKey     string
	BooksAPIKey       string
	KnowledgeAPIKey   string
	EnableWikipedia   bool
	EnablePodcasts    bool
	EnableMentions    bool
	AdapterTimeout    time.Duration
	RequestsPerSecond float64
	ProbeLinks        bool
	LinkProbeTimeout  time.Duration
}

type PipelineConfig struct {
	MinConfidenceToSave int
	InterItemDelay      time.Duration
	SingleTimeout       time.Duration
	BatchTimeout        time.Duration
	ListTimeout         time.Duration
	MaxBatchSize        int
}

type RefreshConfig struct {
	Enabled  bool
	Interval time.Duration
	Limit    int
}

type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

type HTTPConfig struct {
	Addr              string
	AdminToken        string
	RequestsPerMinute int
}

type LoggingConfig struct {
	Level  string
	Format string
	File   string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	googleKey := getEnv("GOOGLE_API_KEY", "")

	cfg := &Config{
		Sources: SourcesConfig{
			YouTubeAPIKey:     getEnv("YOUTUBE_API_KEY", googleKey),
			BooksAPIKey:       getEnv("GOOGLE_BOOKS_API_KEY", googleKey),
			KnowledgeAPIKey:   getEnv("GOOGLE_KG_API_KEY", googleKey),
			EnableWikipedia:   getEnvBool("SOURCE_WIKIPEDIA_ENABLED", true),
			EnablePodcasts:    getEnvBool("SOURCE_PODCASTS_ENABLED", true),
			EnableMentions:    getEnvBool("SOURCE_MENTIONS_ENABLED", true),
			AdapterTimeout:    getEnvDuration("SOURCE_TIMEOUT", constants.SourceConfig.AdapterTimeout),
			RequestsPerSecond: getEnvFloat("SOURCE_REQUESTS_PER_SECOND", constants.SourceConfig.RequestsPerSecond),
			ProbeLinks:        getEnvBool("VALIDATION_PROBE_LINKS", true),
			LinkProbeTimeout:  getEnvDuration("VALIDATION_LINK_TIMEOUT", constants.LinkProbe.Timeout),
		},
		Pipeline: PipelineConfig{
			MinConfidenceToSave: getEnvInt("MIN_CONFIDENCE_TO_SAVE", constants.Scoring.MinConfidenceToSave),
			InterItemDelay:      getEnvDuration("PIPELINE_ITEM_DELAY", constants.PipelineConfig.InterItemDelay),
			SingleTimeout:       getEnvDuration("PIPELINE_SINGLE_TIMEOUT", constants.PipelineConfig.SingleTimeout),
			BatchTimeout:        getEnvDuration("PIPELINE_BATCH_TIMEOUT", constants.PipelineConfig.BatchTimeout),
			ListTimeout:         getEnvDuration("PIPELINE_LIST_TIMEOUT", constants.PipelineConfig.ListTimeout),
			MaxBatchSize:        getEnvInt("PIPELINE_MAX_BATCH", constants.PipelineConfig.MaxBatchSize),
		},
		Refresh: RefreshConfig{
			Enabled:  getEnvBool("REFRESH_ENABLED", true),
			Interval: getEnvDuration("REFRESH_INTERVAL", constants.Refresh.SchedulerInterval),
			Limit:    getEnvInt("REFRESH_LIMIT", constants.Refresh.SchedulerBatch),
		},
		Postgres: PostgresConfig{
			Host:     getEnv("POSTGRES_HOST", "localhost"),
			Port:     getEnvInt("POSTGRES_PORT", 5432),
			User:     getEnv("POSTGRES_USER", "creators"),
			Password: getEnv("POSTGRES_PASSWORD", ""),
			Database: getEnv("POSTGRES_DB", "creators"),
			SSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
			MaxConns: getEnvInt("POSTGRES_MAX_CONNS", constants.Database.MaxOpenConns),
		},
		Redis: RedisConfig{
			Enabled:  getEnvBool("REDIS_ENABLED", false),
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		HTTP: HTTPConfig{
			Addr:              getEnv("HTTP_ADDR", ":8080"),
			AdminToken:        getEnv("ADMIN_TOKEN", ""),
			RequestsPerMinute: getEnvInt("HTTP_ADMIN_RPM", 30),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "console"),
			File:   getEnv("LOG_FILE", ""),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Pipeline.MinConfidenceToSave < 0 || c.Pipeline.MinConfidenceToSave > 100 {
		return fmt.Errorf("MIN_CONFIDENCE_TO_SAVE must be within 0..100")
	}
	if c.Pipeline.MaxBatchSize <= 0 {
		return fmt.Errorf("PIPELINE_MAX_BATCH must be positive")
	}
	if c.Pipeline.SingleTimeout <= 0 || c.Pipeline.BatchTimeout <= 0 || c.Pipeline.ListTimeout <= 0 {
		return fmt.Errorf("pipeline timeouts must be positive")
	}
	if c.Sources.AdapterTimeout <= 0 {
		return fmt.Errorf("SOURCE_TIMEOUT must be positive")
	}
	if c.Sources.AdapterTimeout >= c.Pipeline.SingleTimeout {
		return fmt.Errorf("SOURCE_TIMEOUT must be shorter than PIPELINE_SINGLE_TIMEOUT")
	}
	if c.Refresh.Enabled && c.Refresh.Limit <= 0 {
		return fmt.Errorf("REFRESH_LIMIT must be positive when refresh is enabled")
	}
	if c.Postgres.Host == "" || c.Postgres.Database == "" {
		return fmt.Errorf("POSTGRES_HOST and POSTGRES_DB are required")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

// getEnvDuration accepts Go durations ("90s") or bare seconds ("90").
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}

// ParseNames splits a comma or newline separated list of creator names.
func ParseNames(value string) []string {
	if value == "" {
		return []string{}
	}
	parts := strings.FieldsFunc(value, func(r rune) bool { return r == ',' || r == '\n' })
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
