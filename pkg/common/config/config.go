package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	// Server
	ServerPort   string
	ServerHost   string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// MongoDB (suggestion document store)
	MongoURI        string
	MongoDB         string
	MongoCollection string

	// Postgres (review audit log)
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	// Redis
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	// Kafka
	KafkaBrokers []string
	KafkaTopic   string

	// Which adapter backs the provider contract: openai, anthropic, inference
	AIProvider string

	// OpenAI-compatible provider
	OpenAIAPIKey    string
	OpenAIBaseURL   string
	OpenAIModelName string
	OpenAIMinDelay  time.Duration

	// Anthropic provider (credential pool)
	AnthropicAPIKeys   []string
	AnthropicBaseURL   string
	AnthropicModelName string

	// Hosted-model inference provider
	InferenceBaseURL string
	InferenceAPIKey  string

	// Pipeline
	ProviderTimeout    time.Duration
	URLAnalysisDelay   time.Duration
	MaxConcurrentRuns  int
	StatsCacheTTL      time.Duration
	CredentialPoolFile string
}

func Load() *Config {
	return &Config{
		ServerPort:   getEnv("SERVER_PORT", "8080"),
		ServerHost:   getEnv("SERVER_HOST", "0.0.0.0"),
		ReadTimeout:  getDuration("READ_TIMEOUT", 30*time.Second),
		WriteTimeout: getDuration("WRITE_TIMEOUT", 30*time.Second),

		MongoURI:        getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:         getEnv("MONGO_DB", "aibob"),
		MongoCollection: getEnv("MONGO_COLLECTION", "suggestions"),

		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "aibob"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "aibob123"),
		PostgresDB:       getEnv("POSTGRES_DB", "aibob"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getIntEnv("REDIS_DB", 0),

		KafkaBrokers: getStringSliceEnv("KAFKA_BROKERS", []string{"localhost:9092"}),
		KafkaTopic:   getEnv("KAFKA_TOPIC", "aibob-suggestions"),

		AIProvider: getEnv("AI_PROVIDER", "openai"),

		OpenAIAPIKey:    getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:   getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		OpenAIModelName: getEnv("OPENAI_MODEL_NAME", "gpt-4"),
		OpenAIMinDelay:  getDuration("OPENAI_MIN_DELAY", 100*time.Millisecond),

		AnthropicAPIKeys:   getStringSliceEnv("ANTHROPIC_API_KEYS", nil),
		AnthropicBaseURL:   getEnv("ANTHROPIC_BASE_URL", "https://api.anthropic.com/v1"),
		AnthropicModelName: getEnv("ANTHROPIC_MODEL_NAME", "claude-3-5-sonnet-20241022"),

		InferenceBaseURL: getEnv("INFERENCE_BASE_URL", ""),
		InferenceAPIKey:  getEnv("INFERENCE_API_KEY", ""),

		ProviderTimeout:    getDuration("PROVIDER_TIMEOUT", 30*time.Second),
		URLAnalysisDelay:   getDuration("URL_ANALYSIS_DELAY", 500*time.Millisecond),
		MaxConcurrentRuns:  getIntEnv("MAX_CONCURRENT_RUNS", 4),
		StatsCacheTTL:      getDuration("STATS_CACHE_TTL", 30*time.Second),
		CredentialPoolFile: getEnv("CREDENTIAL_POOL_FILE", ""),
	}
}

// CredentialPool is the optional YAML file listing provider credentials the
// rotating adapter cycles through when it hits a rate limit.
type CredentialPool struct {
	Anthropic []string `yaml:"anthropic"`
	OpenAI    []string `yaml:"openai"`
}

// LoadCredentialPool reads the pool file named by CREDENTIAL_POOL_FILE and
// merges its keys into the config. Missing file is an error; an unset path
// is not.
func (c *Config) LoadCredentialPool() error {
	if c.CredentialPoolFile == "" {
		return nil
	}
	raw, err := os.ReadFile(c.CredentialPoolFile)
	if err != nil {
		return fmt.Errorf("read credential pool: %w", err)
	}
	var pool CredentialPool
	if err := yaml.Unmarshal(raw, &pool); err != nil {
		return fmt.Errorf("parse credential pool: %w", err)
	}
	if len(pool.Anthropic) > 0 {
		c.AnthropicAPIKeys = append(c.AnthropicAPIKeys, pool.Anthropic...)
	}
	if len(pool.OpenAI) > 0 && c.OpenAIAPIKey == "" {
		c.OpenAIAPIKey = pool.OpenAI[0]
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getStringSliceEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				out = append(out, trimmed)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
