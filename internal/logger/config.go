package logger

import (
	"io"
	"os"
	"strconv"
)

// Config holds logger configuration.
type Config struct {
	Level       string    // debug, info, warn, error
	Format      string    // json, text
	Output      io.Writer // overrides stdout when set
	ServiceName string

	// File enables a rotated log file in addition to stdout.
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Level:       "info",
		Format:      "json",
		ServiceName: "leadflow",
		MaxSizeMB:   100,
		MaxBackups:  7,
		MaxAgeDays:  30,
		Compress:    true,
	}
}

// ApplyEnv overrides rotation settings from LOG_MAX_SIZE, LOG_MAX_BACKUPS,
// LOG_MAX_AGE and LOG_COMPRESS.
func (c *Config) ApplyEnv() *Config {
	c.MaxSizeMB = getEnvInt("LOG_MAX_SIZE", c.MaxSizeMB)
	c.MaxBackups = getEnvInt("LOG_MAX_BACKUPS", c.MaxBackups)
	c.MaxAgeDays = getEnvInt("LOG_MAX_AGE", c.MaxAgeDays)
	c.Compress = getEnvBool("LOG_COMPRESS", c.Compress)
	if name := os.Getenv("SERVICE_NAME"); name != "" {
		c.ServiceName = name
	}
	return c
}

func getEnvBool(key string, defaultVal bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return defaultVal
	}
	return b
}

func getEnvInt(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return i
}
