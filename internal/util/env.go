// Package util provides environment variable parsing helpers shared across components.
package util

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// ParseBoolEnv parses a boolean environment variable with a default value.
// Accepts: true/1/yes/on and false/0/no/off (case-insensitive). Invalid values return default.
func ParseBoolEnv(key string, defaultValue bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue
	}
	switch strings.ToLower(strings.TrimSpace(val)) {
	case "true", "1", "yes", "on":
		return true
	case "false", "0", "no", "off":
		return false
	default:
		slog.Warn("ParseBoolEnv: invalid boolean value, using default", "key", key, "value", val, "default", defaultValue)
		return defaultValue
	}
}

// ParseMillisEnv parses an environment variable holding a millisecond count
// into a duration. Empty, non-numeric, or non-positive values return default.
func ParseMillisEnv(key string, defaultValue time.Duration) time.Duration {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return defaultValue
	}
	ms, err := strconv.Atoi(val)
	if err != nil || ms <= 0 {
		slog.Warn("ParseMillisEnv: invalid millisecond value, using default", "key", key, "value", val, "default", defaultValue)
		return defaultValue
	}
	return time.Duration(ms) * time.Millisecond
}
