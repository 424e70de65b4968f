package config

import (
	"os"
	"strings"

	"reelforge/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Auth   AuthConfig `validate:"required"`
	AI     AIConfig   `validate:"required"`
	Server ServerConfig
}

// AuthConfig holds token-proxy settings. The proxy exchanges nothing for a
// short-lived platform access token plus the project it is scoped to.
type AuthConfig struct {
	ProxyEndpoint string `validate:"required"`
}

// AIConfig holds generative platform settings
type AIConfig struct {
	CompletionModel string
	FallbackModel   string
	ImageModel      string
	VideoModel      string
	TTSModel        string
	TTSVoice        string
	Regions         []string
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port    string
	GinMode string
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	authConfig, err := loadAuthConfig()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load auth configuration")
	}

	config := &Config{
		Auth:   *authConfig,
		AI:     *loadAIConfig(),
		Server: *loadServerConfig(),
	}

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}
	return config, nil
}

func loadAuthConfig() (*AuthConfig, error) {
	endpoint := os.Getenv("TOKEN_PROXY_URL")
	if endpoint == "" {
		return nil, errors.ConfigInvalid("TOKEN_PROXY_URL is required")
	}
	return &AuthConfig{ProxyEndpoint: endpoint}, nil
}

func loadAIConfig() *AIConfig {
	return &AIConfig{
		CompletionModel: getEnvOrDefault("COMPLETION_MODEL", "gemini-2.5-pro"),
		FallbackModel:   getEnvOrDefault("FALLBACK_MODEL", "gemini-2.0-flash"),
		ImageModel:      getEnvOrDefault("IMAGE_MODEL", "imagen-4.0-generate-001"),
		VideoModel:      getEnvOrDefault("VIDEO_MODEL", "veo-3.1-generate-preview"),
		TTSModel:        getEnvOrDefault("TTS_MODEL", "gemini-2.5-flash-preview-tts"),
		TTSVoice:        getEnvOrDefault("TTS_VOICE", "Kore"),
		Regions:         getEnvListOrDefault("REGIONS", []string{"us-central1", "us-east5", "europe-west1"}),
	}
}

func loadServerConfig() *ServerConfig {
	return &ServerConfig{
		Port:    getEnvOrDefault("PORT", "8080"),
		GinMode: getEnvOrDefault("GIN_MODE", "debug"),
	}
}

func validateConfig(config *Config) error {
	if config.Auth.ProxyEndpoint == "" {
		return errors.ConfigInvalid("token proxy endpoint is required")
	}
	if len(config.AI.Regions) == 0 {
		return errors.ConfigInvalid("at least one region is required")
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvListOrDefault(key string, defaultValue []string) []string {
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
