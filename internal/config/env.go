package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// getEnvAsBool parses a boolean environment variable with a default.
func getEnvAsBool(key string, defaultVal bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes":
		return true
	case "0", "false", "no":
		return false
	default:
		return defaultVal
	}
}

// getEnvAsInt retrieves an environment variable as an integer with a default fallback.
func getEnvAsInt(name string, defaultVal int) int {
	if valStr := strings.TrimSpace(os.Getenv(name)); valStr != "" {
		if val, err := strconv.Atoi(valStr); err == nil {
			return val
		}
	}
	return defaultVal
}

// getEnvAsFloat retrieves an environment variable as a float64 with a default fallback.
func getEnvAsFloat(name string, defaultVal float64) float64 {
	if valStr := strings.TrimSpace(os.Getenv(name)); valStr != "" {
		if val, err := strconv.ParseFloat(valStr, 64); err == nil {
			return val
		}
	}
	return defaultVal
}

// getEnvAsMillis reads a whole number of milliseconds. Negative values fall
// back to the default.
func getEnvAsMillis(name string, defaultMs int) time.Duration {
	ms := getEnvAsInt(name, defaultMs)
	if ms < 0 {
		ms = defaultMs
	}
	return time.Duration(ms) * time.Millisecond
}

// getEnvAsSlice splits an environment variable by sep and trims each element.
func getEnvAsSlice(name string, defaultVal []string, sep string) []string {
	valStr := os.Getenv(name)
	if valStr == "" {
		return defaultVal
	}
	parts := strings.Split(valStr, sep)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
