package config

import (
	"os"
	"strconv"
)

type Config struct {
	Port            int
	NatsURL         string
	NatsToken       string
	DatabaseURL     string
	LogLevel        string
	AnthropicAPIKey string
	AnthropicModel  string
	APIToken        string
	MaxTurns        int
}

func Load() Config {
	return Config{
		Port:            envInt("TALLY_PORT", 8810),
		NatsURL:         envStr("NATS_URL", "nats://pulse:4222"),
		NatsToken:       envStr("NATS_TOKEN", ""),
		DatabaseURL:     envStr("DATABASE_URL", ""),
		LogLevel:        envStr("LOG_LEVEL", "info"),
		AnthropicAPIKey: envStr("ANTHROPIC_API_KEY", ""),
		AnthropicModel:  envStr("TALLY_MODEL", "claude-sonnet-4-20250514"),
		APIToken:        envStr("TALLY_API_TOKEN", ""),
		MaxTurns:        envInt("TALLY_MAX_TURNS", 12),
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
