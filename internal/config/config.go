package config

import (
	"fmt"
	"os"
	"strconv"
)

type Config struct {
	Addr        string
	MaxMessages int
	LogLevel    string
	LogFile     string
}

func Load() (*Config, error) {
	maxMessages, err := strconv.Atoi(getEnv("MAX_MESSAGES", "1000"))
	if err != nil {
		return nil, fmt.Errorf("MAX_MESSAGES must be an integer: %w", err)
	}

	cfg := &Config{
		Addr:        getEnv("CHAT_ADDR", ":3000"),
		MaxMessages: maxMessages,
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogFile:     os.Getenv("LOG_FILE"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.MaxMessages <= 0 {
		return fmt.Errorf("MAX_MESSAGES must be greater than 0")
	}

	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}
