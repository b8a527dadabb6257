package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds application configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Storage  StorageConfig
	CRM      CRMConfig
	Matching MatchingConfig
	Lexicon  LexiconConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port            string
	Host            string
	Environment     string
	AllowedOrigins  []string
	ShutdownTimeout int
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host        string
	Port        string
	User        string
	Password    string
	Name        string
	SSLMode     string
	MaxConns    int
	MinConns    int
	AutoMigrate bool
}

// RedisConfig holds Redis configuration. An empty Host disables the distributed run lock.
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	LockTTL  time.Duration
}

// StorageConfig holds transcript object storage configuration
type StorageConfig struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	Prefix          string
	UseSSL          bool
}

// CRMConfig holds CRM registry configuration
type CRMConfig struct {
	BaseURL        string
	APIToken       string
	PageSize       int
	RequestTimeout time.Duration
}

// MatchingConfig holds the knobs of a matching run
type MatchingConfig struct {
	AutoApplyThreshold int           `envconfig:"AUTO_APPLY_THRESHOLD" default:"70"`
	SuggestThreshold   int           `envconfig:"SUGGEST_THRESHOLD" default:"70"`
	AutoApply          bool          `envconfig:"AUTO_APPLY" default:"true"`
	IncludeInactive    bool          `envconfig:"INCLUDE_INACTIVE" default:"false"`
	FirstLines         int           `envconfig:"FIRST_LINES" default:"30"`
	WordsPerMinute     float64       `envconfig:"WORDS_PER_MINUTE" default:"150"`
	Workers            int           `envconfig:"WORKERS" default:"4"`
	CRMMaxElapsed      time.Duration `envconfig:"CRM_MAX_ELAPSED" default:"30s"`
	CRMInitialInterval time.Duration `envconfig:"CRM_INITIAL_INTERVAL" default:"1s"`
	CRMMaxInterval     time.Duration `envconfig:"CRM_MAX_INTERVAL" default:"10s"`
	JobRetries         int           `envconfig:"JOB_RETRIES" default:"3"`
	JobBaseDelay       time.Duration `envconfig:"JOB_BASE_DELAY" default:"1s"`
}

// LexiconConfig points at the locale data files
type LexiconConfig struct {
	LexiconFile         string
	TransliterationFile string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	config, err := LoadUnchecked()
	if err != nil {
		return nil, err
	}

	// Validate required fields
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// LoadUnchecked loads configuration without Validate, for commands that only
// touch part of it (migrations need no CRM)
func LoadUnchecked() (*Config, error) {
	// Load .env file if exists (ignore error if file doesn't exist)
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found, using environment variables or defaults")
	}

	config := &Config{
		Server: ServerConfig{
			Port:            getEnv("PORT", "8080"),
			Host:            getEnv("HOST", "0.0.0.0"),
			Environment:     getEnv("ENVIRONMENT", "development"),
			AllowedOrigins:  getEnvAsList("ALLOWED_ORIGINS", "http://localhost:3000"),
			ShutdownTimeout: getEnvAsInt("SHUTDOWN_TIMEOUT", 10),
		},
		Database: DatabaseConfig{
			Host:        getEnv("DB_HOST", "localhost"),
			Port:        getEnv("DB_PORT", "5432"),
			User:        getEnv("DB_USER", "postgres"),
			Password:    getEnv("DB_PASSWORD", "postgres"),
			Name:        getEnv("DB_NAME", "lesson_attribution"),
			SSLMode:     getEnv("DB_SSLMODE", "disable"),
			MaxConns:    getEnvAsInt("DB_MAX_CONNS", 25),
			MinConns:    getEnvAsInt("DB_MIN_CONNS", 5),
			AutoMigrate: getEnvAsBool("DB_AUTO_MIGRATE", false),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", ""),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			LockTTL:  getEnvAsDuration("REDIS_LOCK_TTL", "30m"),
		},
		Storage: StorageConfig{
			Endpoint:        getEnv("STORAGE_ENDPOINT", ""),
			AccessKeyID:     getEnv("STORAGE_ACCESS_KEY", "minioadmin"),
			SecretAccessKey: getEnv("STORAGE_SECRET_KEY", "minioadmin"),
			BucketName:      getEnv("STORAGE_BUCKET", "lesson-transcripts"),
			Prefix:          getEnv("STORAGE_PREFIX", "transcripts/"),
			UseSSL:          getEnvAsBool("STORAGE_USE_SSL", false),
		},
		CRM: CRMConfig{
			BaseURL:        getEnv("CRM_BASE_URL", ""),
			APIToken:       getEnv("CRM_API_TOKEN", ""),
			PageSize:       getEnvAsInt("CRM_PAGE_SIZE", 100),
			RequestTimeout: getEnvAsDuration("CRM_REQUEST_TIMEOUT", "30s"),
		},
		Lexicon: LexiconConfig{
			LexiconFile:         getEnv("LEXICON_FILE", ""),
			TransliterationFile: getEnv("TRANSLITERATION_FILE", ""),
		},
	}

	if err := envconfig.Process("MATCHING", &config.Matching); err != nil {
		return nil, fmt.Errorf("failed to read MATCHING_* settings: %w", err)
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.CRM.BaseURL == "" {
		return fmt.Errorf("CRM_BASE_URL is required")
	}
	if c.CRM.PageSize < 1 {
		return fmt.Errorf("CRM_PAGE_SIZE must be positive")
	}
	return c.Matching.Validate()
}

// Validate checks matching thresholds and pool sizing
func (m MatchingConfig) Validate() error {
	if m.AutoApplyThreshold < 0 || m.AutoApplyThreshold > 100 {
		return fmt.Errorf("MATCHING_AUTO_APPLY_THRESHOLD must be within [0,100], got %d", m.AutoApplyThreshold)
	}
	if m.SuggestThreshold < 0 || m.SuggestThreshold > 100 {
		return fmt.Errorf("MATCHING_SUGGEST_THRESHOLD must be within [0,100], got %d", m.SuggestThreshold)
	}
	if m.Workers < 1 {
		return fmt.Errorf("MATCHING_WORKERS must be at least 1")
	}
	if m.JobRetries < 1 {
		return fmt.Errorf("MATCHING_JOB_RETRIES must be at least 1")
	}
	if m.FirstLines < 1 {
		return fmt.Errorf("MATCHING_FIRST_LINES must be at least 1")
	}
	if m.WordsPerMinute <= 0 {
		return fmt.Errorf("MATCHING_WORDS_PER_MINUTE must be positive")
	}
	return nil
}

// DefaultMatching returns the matching defaults without reading the environment
func DefaultMatching() MatchingConfig {
	return MatchingConfig{
		AutoApplyThreshold: 70,
		SuggestThreshold:   70,
		AutoApply:          true,
		FirstLines:         30,
		WordsPerMinute:     150,
		Workers:            4,
		CRMMaxElapsed:      30 * time.Second,
		CRMInitialInterval: time.Second,
		CRMMaxInterval:     10 * time.Second,
		JobRetries:         3,
		JobBaseDelay:       time.Second,
	}
}

// GetDatabaseDSN returns the database connection string
func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// GetRedisAddr returns the Redis address
func (c *Config) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", c.Redis.Host, c.Redis.Port)
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := getEnv(key, defaultValue)
	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		duration, _ = time.ParseDuration(defaultValue)
	}
	return duration
}

func getEnvAsList(key, defaultValue string) []string {
	var out []string
	for _, part := range strings.Split(getEnv(key, defaultValue), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
