// Package config reads the process configuration from the environment.
// Every knob has a usable default, so a bare `go run .` serves a working
// instance against a local SQLite file.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// DefaultMetadataURL is the CDN document describing the track currently
// on air plus the five previously played ones.
const DefaultMetadataURL = "https://d3d4yli4hf5bmh.cloudfront.net/metadatav2.json"

type Config struct {
	// Port the HTTP server listens on.
	Port string

	// DatabaseURL selects the rating store backend: postgres:// or
	// postgresql:// for PostgreSQL, anything else is treated as a
	// SQLite location (optionally prefixed with sqlite://).
	DatabaseURL string

	// MetadataURL is the upstream now-playing JSON document.
	MetadataURL string

	// MetadataTimeout bounds a single upstream fetch.
	MetadataTimeout time.Duration

	// BuildVersion tags responses for cache busting. Defaults to the
	// process start time so every restart invalidates cached assets.
	BuildVersion string

	// StaticDir holds the player assets. Served only when it exists.
	StaticDir string

	// LogMode selects the zap config: "production" or "development".
	LogMode string

	// RateLimitRPS / RateLimitBurst throttle rating submissions per
	// client. RPS of zero disables the limiter.
	RateLimitRPS   float64
	RateLimitBurst int

	// CORSOrigins is the list of allowed origins; "*" allows any.
	CORSOrigins []string
}

// Load builds a Config from the environment, validating the few values
// that can be malformed. It never reads files; callers wanting .env
// support load it before calling (main does, via godotenv).
func Load() (*Config, error) {
	cfg := &Config{
		Port:         getEnv("PORT", "8080"),
		DatabaseURL:  getEnv("DATABASE_URL", "sqlite:///ratings.db"),
		MetadataURL:  getEnv("METADATA_URL", DefaultMetadataURL),
		BuildVersion: getEnv("BUILD_VERSION", time.Now().Format("20060102150405")),
		StaticDir:    getEnv("STATIC_DIR", "./static"),
		LogMode:      getEnv("LOG_MODE", "development"),
	}

	u, err := url.Parse(cfg.MetadataURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, fmt.Errorf("METADATA_URL %q is not a valid http(s) URL", cfg.MetadataURL)
	}

	timeoutSecs, err := getEnvInt("METADATA_TIMEOUT", 10)
	if err != nil {
		return nil, err
	}
	cfg.MetadataTimeout = time.Duration(timeoutSecs) * time.Second

	cfg.RateLimitRPS, err = getEnvFloat("RATE_LIMIT_RPS", 5)
	if err != nil {
		return nil, err
	}
	cfg.RateLimitBurst, err = getEnvInt("RATE_LIMIT_BURST", 10)
	if err != nil {
		return nil, err
	}

	for _, origin := range strings.Split(getEnv("CORS_ORIGINS", "*"), ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			cfg.CORSOrigins = append(cfg.CORSOrigins, origin)
		}
	}
	if len(cfg.CORSOrigins) == 0 {
		cfg.CORSOrigins = []string{"*"}
	}

	return cfg, nil
}

// Addr is the listen address for http.Server.
func (c *Config) Addr() string {
	return ":" + c.Port
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s %q is not an integer", key, v)
	}
	return n, nil
}

func getEnvFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s %q is not a number", key, v)
	}
	return f, nil
}
