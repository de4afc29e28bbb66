package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// UpsertPolicy controls which values win when the same identity key is
// ingested more than once. It applies to both stores.
type UpsertPolicy string

const (
	// FirstWriteWins keeps the values already stored and ignores re-ingestion.
	FirstWriteWins UpsertPolicy = "first-write-wins"
	// LastWriteWins overwrites stored scalar properties with the latest values.
	LastWriteWins UpsertPolicy = "last-write-wins"
)

// Config holds all application configuration
type Config struct {
	// App
	Port string
	Env  string

	// SQLite
	SQLitePath string

	// Neo4j
	Neo4jURI      string
	Neo4jUser     string
	Neo4jPassword string

	// Twitter API
	TwitterBearerToken string
	FetchLimit         int

	// OpenAI
	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAIModel   string

	// Ingestion
	Policy  UpsertPolicy
	DataDir string

	// Metrics
	MetricsAddr string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file, but don't fail if it doesn't exist
	_ = godotenv.Load()

	cfg := &Config{
		Port:               getEnv("PORT", "8080"),
		Env:                getEnv("ENV", "development"),
		SQLitePath:         getEnv("SQLITE_PATH", "data/twitter.db"),
		Neo4jURI:           getEnv("NEO4J_URI", "bolt://localhost:7687"),
		Neo4jUser:          getEnv("NEO4J_USER", "neo4j"),
		Neo4jPassword:      getEnv("NEO4J_PASSWORD", ""),
		TwitterBearerToken: getEnv("TWITTER_BEARER_TOKEN", ""),
		FetchLimit:         getEnvInt("FETCH_LIMIT", 5),
		OpenAIAPIKey:       getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:      getEnv("OPENAI_BASE_URL", ""),
		OpenAIModel:        getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		Policy:             UpsertPolicy(getEnv("UPSERT_POLICY", string(LastWriteWins))),
		DataDir:            getEnv("DATA_DIR", "data"),
		MetricsAddr:        getEnv("METRICS_ADDR", ""),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that required configuration values are set
func (c *Config) Validate() error {
	if c.SQLitePath == "" {
		return fmt.Errorf("SQLITE_PATH is required")
	}
	if c.Neo4jURI == "" {
		return fmt.Errorf("NEO4J_URI is required")
	}
	if c.Neo4jUser == "" {
		return fmt.Errorf("NEO4J_USER is required")
	}
	if c.Neo4jPassword == "" {
		return fmt.Errorf("NEO4J_PASSWORD is required")
	}
	if c.Policy != FirstWriteWins && c.Policy != LastWriteWins {
		return fmt.Errorf("UPSERT_POLICY must be %q or %q, got %q", FirstWriteWins, LastWriteWins, c.Policy)
	}
	if c.FetchLimit < 1 {
		return fmt.Errorf("FETCH_LIMIT must be positive")
	}
	// Twitter and OpenAI credentials are optional: --load runs need neither
	return nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var result int
		if _, err := fmt.Sscanf(value, "%d", &result); err == nil {
			return result
		}
	}
	return defaultValue
}
