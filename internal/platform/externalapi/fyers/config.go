// Package fyers provides a client for the Fyers brokerage data and auth APIs.
package fyers

import (
	"os"
	"time"
)

const defaultBaseURL = "https://api-t1.fyers.in"

// Config holds configuration for the Fyers API client.
type Config struct {
	BaseURL    string        // Base URL for both data and auth endpoints
	Resolution string        // Candle resolution in minutes ("5")
	Timeout    time.Duration // Per-request HTTP timeout
}

// LoadConfig loads Fyers configuration from environment variables.
func LoadConfig() Config {
	cfg := Config{
		BaseURL:    os.Getenv("FYERS_BASE_URL"),
		Resolution: "5",
		Timeout:    10 * time.Second,
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if d, err := time.ParseDuration(os.Getenv("FYERS_TIMEOUT")); err == nil && d > 0 {
		cfg.Timeout = d
	}
	return cfg
}
