package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the caloriebot server.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	AI        AIConfig
}

type ServerConfig struct {
	Port int
	Env  string
}

type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	URL string
}

// AuthConfig holds the tokens the front-end adapter and operators present.
type AuthConfig struct {
	ServiceToken string
	AdminToken   string
}

// RateLimitConfig controls both the durable sliding-window limiter and the
// Redis fast-path limiter in front of the API.
type RateLimitConfig struct {
	Window            time.Duration
	MaxRequests       int
	FastPathPerMinute int
}

type AIConfig struct {
	Provider        string
	AnalysisTimeout time.Duration
	OpenAI          OpenAIConfig
	Gemini          GeminiConfig
}

type OpenAIConfig struct {
	APIKey      string
	Model       string
	VisionModel string
}

type GeminiConfig struct {
	APIKey string
	Model  string
}

var validProviders = map[string]bool{
	"openai": true,
	"gemini": true,
}

// Load reads configuration from the environment (and a local .env file when
// present) and returns a validated Config. Returns an error with a
// descriptive message if any required value is missing or invalid.
func Load() (*Config, error) {
	// Optional; real deployments set env vars directly.
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port: envInt("CALORIEBOT_PORT", 8080),
			Env:  envString("CALORIEBOT_ENV", "development"),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    envInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envDuration("DATABASE_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			URL: os.Getenv("REDIS_URL"),
		},
		Auth: AuthConfig{
			ServiceToken: os.Getenv("SERVICE_TOKEN"),
			AdminToken:   os.Getenv("ADMIN_TOKEN"),
		},
		RateLimit: RateLimitConfig{
			Window:            envDurationSecs("RATE_LIMIT_WINDOW_SECS", time.Minute),
			MaxRequests:       envInt("RATE_LIMIT_MAX_REQUESTS", 20),
			FastPathPerMinute: envInt("RATE_LIMIT_FAST_PATH_PER_MINUTE", 60),
		},
		AI: AIConfig{
			Provider:        os.Getenv("AI_PROVIDER"),
			AnalysisTimeout: envDurationSecs("AI_ANALYSIS_TIMEOUT_SECS", 60*time.Second),
			OpenAI: OpenAIConfig{
				APIKey:      os.Getenv("OPENAI_API_KEY"),
				Model:       envString("OPENAI_MODEL", "gpt-4o"),
				VisionModel: envString("OPENAI_VISION_MODEL", "gpt-4o"),
			},
			Gemini: GeminiConfig{
				APIKey: os.Getenv("GEMINI_API_KEY"),
				Model:  envString("GEMINI_MODEL", "gemini-1.5-flash"),
			},
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadDatabase reads only the database configuration, for tools that never
// touch Redis or the AI provider.
func LoadDatabase() (DatabaseConfig, error) {
	_ = godotenv.Load()

	cfg := DatabaseConfig{
		URL:             os.Getenv("DATABASE_URL"),
		MaxOpenConns:    envInt("DATABASE_MAX_OPEN_CONNS", 25),
		MaxIdleConns:    envInt("DATABASE_MAX_IDLE_CONNS", 5),
		ConnMaxLifetime: envDuration("DATABASE_CONN_MAX_LIFETIME", 5*time.Minute),
	}
	if cfg.URL == "" {
		return DatabaseConfig{}, fmt.Errorf("DATABASE_URL is required")
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Redis.URL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}

	if c.Auth.ServiceToken == "" {
		return fmt.Errorf("SERVICE_TOKEN is required")
	}

	if c.RateLimit.MaxRequests <= 0 {
		return fmt.Errorf("RATE_LIMIT_MAX_REQUESTS must be positive, got %d", c.RateLimit.MaxRequests)
	}

	if c.AI.Provider == "" {
		return fmt.Errorf("AI_PROVIDER is required")
	}
	if !validProviders[c.AI.Provider] {
		return fmt.Errorf("AI_PROVIDER must be one of openai, gemini; got %q", c.AI.Provider)
	}

	if c.AI.Provider == "openai" && c.AI.OpenAI.APIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required when AI_PROVIDER is openai")
	}
	if c.AI.Provider == "gemini" && c.AI.Gemini.APIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY is required when AI_PROVIDER is gemini")
	}

	return nil
}

func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}

func envDurationSecs(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	secs, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return time.Duration(secs) * time.Second
}
