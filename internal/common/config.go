package common

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	LLM      LLMConfig
	Pipeline PipelineConfig
}

// DatabaseConfig holds database-related configuration.
type DatabaseConfig struct {
	DSN             string
	MaxConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
	HealthTimeout   time.Duration
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Addr      string
	UploadDir string
}

// LLMConfig holds model backend configuration.
type LLMConfig struct {
	Backend     string // "openai" (cloud or any OpenAI-compatible server) | "anthropic"
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float32
	MaxTokens   int
	Timeout     time.Duration
}

// PipelineConfig holds analysis pipeline configuration.
type PipelineConfig struct {
	SchemaProfile string // "full" | "compact"
	MaxInputChars int
	OutputDir     string
	Workers       int
}

// LoadConfig loads configuration from environment variables. A .env file in
// the working directory is applied first if present.
func LoadConfig() *Config {
	_ = godotenv.Load()

	return &Config{
		Database: DatabaseConfig{
			DSN:             getEnv("DB_URL", ""),
			MaxConns:        getEnvAsInt32("DB_MAX_CONNS", 10),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			HealthTimeout:   getEnvAsDuration("DB_HEALTH_TIMEOUT", 3*time.Second),
		},
		Server: ServerConfig{
			Addr:      getEnv("HTTP_ADDR", ":8080"),
			UploadDir: getEnv("UPLOAD_DIR", "./uploads"),
		},
		LLM: LLMConfig{
			Backend:     getEnv("LLM_BACKEND", "openai"),
			BaseURL:     getEnv("LLM_BASE_URL", ""),
			APIKey:      getEnv("LLM_API_KEY", os.Getenv("OPENAI_API_KEY")),
			Model:       getEnv("LLM_MODEL", "gpt-4o-mini"),
			Temperature: getEnvAsFloat32("LLM_TEMPERATURE", 0.3),
			MaxTokens:   getEnvAsInt("LLM_MAX_TOKENS", 8000),
			Timeout:     getEnvAsDuration("LLM_TIMEOUT", 180*time.Second),
		},
		Pipeline: PipelineConfig{
			SchemaProfile: getEnv("SCHEMA_PROFILE", "full"),
			MaxInputChars: getEnvAsInt("MAX_INPUT_CHARS", 15000),
			OutputDir:     getEnv("OUTPUT_DIR", "./reports"),
			Workers:       getEnvAsInt("PIPELINE_WORKERS", 4),
		},
	}
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

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
