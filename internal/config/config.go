// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds all application configuration.
type Config struct {
	Port        string
	FrontendURL string
	DBPath      string

	GeminiAPIKey string
	GeminiModel  string

	MSFRPCURL   string
	MSFRPCToken string

	ShodanAPIKey string

	FloodImage            string
	AttackStopTimeoutSecs int

	SessionIdleTTLSecs int
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Port:                  getEnv("PORT", "8080"),
		FrontendURL:           getEnv("FRONTEND_URL", ""),
		DBPath:                getEnv("DB_PATH", "./data/aranea.db"),
		GeminiAPIKey:          getEnv("GEMINI_API_KEY", ""),
		GeminiModel:           getEnv("GEMINI_MODEL", ""),
		MSFRPCURL:             getEnv("MSF_RPC_URL", "http://127.0.0.1:8081/api/v1/json-rpc"),
		MSFRPCToken:           getEnv("MSF_RPC_TOKEN", ""),
		ShodanAPIKey:          getEnv("SHODAN_API_KEY", ""),
		FloodImage:            getEnv("FLOOD_IMAGE", "utkudarilmaz/hping3:latest"),
		AttackStopTimeoutSecs: getEnvInt("ATTACK_STOP_TIMEOUT_SECS", 5),
		SessionIdleTTLSecs:    getEnvInt("SESSION_IDLE_TTL_SECS", 3600),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.DBPath == "" {
		return fmt.Errorf("DB_PATH cannot be empty")
	}
	if c.GeminiAPIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY cannot be empty")
	}
	if c.MSFRPCURL == "" {
		return fmt.Errorf("MSF_RPC_URL cannot be empty")
	}
	if c.FloodImage == "" {
		return fmt.Errorf("FLOOD_IMAGE cannot be empty")
	}
	if c.AttackStopTimeoutSecs <= 0 {
		return fmt.Errorf("ATTACK_STOP_TIMEOUT_SECS must be > 0")
	}
	if c.SessionIdleTTLSecs <= 0 {
		return fmt.Errorf("SESSION_IDLE_TTL_SECS must be > 0")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.FrontendURL == "" ||
		strings.Contains(c.FrontendURL, "localhost") ||
		strings.Contains(c.FrontendURL, "127.0.0.1")
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}
