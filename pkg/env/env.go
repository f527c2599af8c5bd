package env

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds environment variables
type Config struct {
	// Fastly
	APIToken  string
	StartDate string
	BaseURL   string

	// Outputs
	StateDSN     string
	KafkaBrokers []string
}

// Load reads environment variables, first loading the .env file in workDir
// when there is one. Variables already set in the process take precedence.
func Load(workDir string) (*Config, error) {
	envFile := filepath.Join(workDir, ".env")
	if _, err := os.Stat(envFile); err == nil {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("error loading .env file: %v", err)
		}
	}

	var brokers []string
	for _, b := range strings.Split(getEnvOrDefault("TAP_KAFKA_BROKERS", ""), ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}

	return &Config{
		APIToken:  getEnvOrDefault("FASTLY_API_TOKEN", ""),
		StartDate: getEnvOrDefault("FASTLY_START_DATE", ""),
		BaseURL:   getEnvOrDefault("FASTLY_BASE_URL", ""),

		StateDSN:     getEnvOrDefault("TAP_STATE_DSN", ""),
		KafkaBrokers: brokers,
	}, nil
}

// getEnvOrDefault returns environment variable value or default if not set
func getEnvOrDefault(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
