package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// APIKeyEnvVar is the environment variable (and .env key) holding the OpenRouter API key
const APIKeyEnvVar = "OPENROUTER_API_KEY"

// DefaultEnvFile is the dotenv file consulted when the key is not in the environment
const DefaultEnvFile = ".env"

// ErrCredentialMissing is returned when no API key can be found. Callers must treat it
// as fatal before touching the network.
var ErrCredentialMissing = errors.New("OPENROUTER_API_KEY not found")

// Settings holds the environment-driven configuration shared by both commands
type Settings struct {
	BaseURL      string        `env:"OPENROUTER_BASE_URL" envDefault:"https://openrouter.ai/api/v1"`
	HTTPTimeout  time.Duration `env:"OPENROUTER_HTTP_TIMEOUT" envDefault:"30s"`
	ProbeTimeout time.Duration `env:"OPENROUTER_PROBE_TIMEOUT" envDefault:"60s"`
	ModelsConfig string        `env:"OPENROUTER_MODELS_CONFIG" envDefault:"config/models.config.json"`
	ReportPath   string        `env:"OPENROUTER_VALIDATION_REPORT" envDefault:"model_validation_report.json"`
	EnvFile      string        `env:"OPENROUTER_ENV_FILE" envDefault:".env"`
}

// Load parses Settings from the process environment
func Load() (*Settings, error) {
	cfg := &Settings{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("OPENROUTER_BASE_URL must not be empty")
	}
	return cfg, nil
}

// ResolveAPIKey returns the API key from the environment, falling back to envFile.
// A missing or unreadable envFile is not an error on its own; only the absence of a
// key is.
func ResolveAPIKey(envFile string) (string, error) {
	if key := strings.TrimSpace(os.Getenv(APIKeyEnvVar)); key != "" {
		return key, nil
	}

	if envFile == "" {
		envFile = DefaultEnvFile
	}
	if values, err := godotenv.Read(envFile); err == nil {
		if key := strings.TrimSpace(values[APIKeyEnvVar]); key != "" {
			return key, nil
		}
	}

	return "", fmt.Errorf("%w: set it as an environment variable or add it to %s", ErrCredentialMissing, envFile)
}

// MaskKey shortens a key for display, keeping only its first characters
func MaskKey(key string) string {
	const visible = 15
	if len(key) <= visible {
		return strings.Repeat("*", len(key))
	}
	return key[:visible] + "..."
}
