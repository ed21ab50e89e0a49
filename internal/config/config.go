package config

import (
	"errors"
	"os"

	"chat-widget-relay/internal/relay"
)

// Config holds everything the relay server reads from the environment.
type Config struct {
	Port string

	// Upstream engine. WebhookURL wins when both are set.
	WebhookURL  string
	OpenAIKey   string
	OpenAIModel string

	FallbackMessage string

	// Transcript archive. DatabaseURL wins when both are set; neither
	// means no archive.
	DatabaseURL string
	RedisURL    string
}

// Load reads configuration from the environment. godotenv.Load is the
// caller's job so tests can set plain env vars.
func Load() (*Config, error) {
	cfg := &Config{
		Port:            getenv("PORT", "8080"),
		WebhookURL:      os.Getenv("UPSTREAM_WEBHOOK_URL"),
		OpenAIKey:       os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:     os.Getenv("OPENAI_MODEL"),
		FallbackMessage: getenv("FALLBACK_MESSAGE", relay.DefaultFallbackMessage),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		RedisURL:        os.Getenv("REDIS_URL"),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("config: port must not be empty")
	}
	if c.WebhookURL == "" && c.OpenAIKey == "" {
		return errors.New("config: either UPSTREAM_WEBHOOK_URL or OPENAI_API_KEY must be set")
	}
	return nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
