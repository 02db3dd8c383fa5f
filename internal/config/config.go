// package config loads application configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Mode is the identity the agent runs as.
type Mode string

// Mode constants. The mode is picked once from the credentials present.
const (
	ModeUser Mode = "user"
	ModeBot  Mode = "bot"
)

// configuration errors
var (
	ErrMissingAPI     = errors.New("API_ID and API_HASH are required")
	ErrNoCredential   = errors.New("one of SESSION_STRING or BOT_TOKEN is required")
	ErrTwoCredentials = errors.New("SESSION_STRING and BOT_TOKEN are mutually exclusive")
	ErrMissingAdmin   = errors.New("ADMIN_ID is required in bot mode")
	ErrNegativePacing = errors.New("pacing durations must not be negative")
)

// Config holds all application configuration.
type Config struct {
	// telegram
	TGApiID      int
	TGApiHash    string
	TGSessionStr string
	TGBotToken   string
	AdminID      int64
	BotSessionDB string

	// pacing
	InviteDelay   time.Duration
	FloodCooldown time.Duration
	ErrorDelay    time.Duration

	// nats (optional)
	NatsURL string

	// server
	HTTPPort int

	// logging
	LogLevel string
	LogFile  string
}

// Load reads configuration from environment variables with sensible defaults.
// A .env file in the working directory is applied first if it exists; real
// environment variables take precedence over it.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{
		TGApiID:       getEnvInt("API_ID", 0),
		TGApiHash:     getEnv("API_HASH", ""),
		TGSessionStr:  getEnv("SESSION_STRING", ""),
		TGBotToken:    getEnv("BOT_TOKEN", ""),
		AdminID:       getEnvInt64("ADMIN_ID", 0),
		BotSessionDB:  getEnv("BOT_SESSION_DB", "bot_session.db"),
		InviteDelay:   getEnvDuration("INVITE_DELAY", 2*time.Second),
		FloodCooldown: getEnvDuration("FLOOD_COOLDOWN", 60*time.Second),
		ErrorDelay:    getEnvDuration("ERROR_DELAY", time.Second),
		NatsURL:       getEnv("NATS_URL", ""),
		HTTPPort:      getEnvInt("PORT", 8080),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogFile:       getEnv("LOG_FILE", ""),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that exactly one credential is present and the mode has
// everything it needs.
func (c *Config) Validate() error {
	if c.TGApiID == 0 || c.TGApiHash == "" {
		return ErrMissingAPI
	}
	switch {
	case c.TGSessionStr == "" && c.TGBotToken == "":
		return ErrNoCredential
	case c.TGSessionStr != "" && c.TGBotToken != "":
		return ErrTwoCredentials
	}
	if c.Mode() == ModeBot && c.AdminID == 0 {
		return ErrMissingAdmin
	}
	if c.InviteDelay < 0 || c.FloodCooldown < 0 || c.ErrorDelay < 0 {
		return ErrNegativePacing
	}
	return nil
}

// Mode reports which identity the credentials select.
func (c *Config) Mode() Mode {
	if c.TGBotToken != "" {
		return ModeBot
	}
	return ModeUser
}

// getEnv returns the value of an environment variable or a default value.
func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// getEnvInt returns the integer value of an environment variable or a default.
func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvInt64(key string, defaultVal int64) int64 {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.ParseInt(val, 10, 64); err == nil {
			return i
		}
	}
	return defaultVal
}

// getEnvDuration accepts Go durations ("90s") and bare seconds ("90").
func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(val); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(val); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultVal
}
