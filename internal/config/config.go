// Package config provides application configuration management with support for environment variables, command-line flags, and .env files.
package config

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/listenupapp/exercise-resolver/internal/validation"
)

// Config holds the application configuration.
type Config struct {
	App       AppConfig       `json:"app"`
	Logger    LoggerConfig    `json:"logger"`
	Server    ServerConfig    `json:"server"`
	Catalog   CatalogConfig   `json:"catalog"`
	Cache     CacheConfig     `json:"cache"`
	Search    SearchConfig    `json:"search"`
	RateLimit RateLimitConfig `json:"rateLimit"`
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string `json:"env" validate:"oneof=development staging production"`
	// DataPath is the root for the persistent cache and the search index.
	DataPath string `json:"dataPath" validate:"required"`
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string `json:"level" validate:"oneof=debug info warn error DEBUG INFO WARN ERROR"`
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	Port           string        `json:"port" validate:"required,numeric"`
	ReadTimeout    time.Duration `json:"readTimeout" validate:"gt=0"`
	WriteTimeout   time.Duration `json:"writeTimeout" validate:"gt=0"`
	IdleTimeout    time.Duration `json:"idleTimeout" validate:"gt=0"`
	AllowedOrigins []string      `json:"allowedOrigins"`
}

// CatalogConfig holds catalog source configuration.
type CatalogConfig struct {
	// Source is a JSON file path, a SQLite file path or an http(s) URL.
	Source string `json:"source" validate:"notblank"`
	// AssetBaseURL is prefixed to image filenames by the image URL endpoint.
	AssetBaseURL string        `json:"assetBaseUrl" validate:"omitempty,url"`
	Watch        bool          `json:"watch"`
	FetchTimeout time.Duration `json:"fetchTimeout" validate:"gt=0"`
}

// CacheConfig holds resolution cache configuration.
type CacheConfig struct {
	TTL time.Duration `json:"ttl" validate:"gt=0"`
	// Persistent enables the badger tier under Path.
	Persistent bool   `json:"persistent"`
	Path       string `json:"path"`
}

// SearchConfig holds suggestion index configuration.
type SearchConfig struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// RateLimitConfig holds per-client API rate limiting.
type RateLimitConfig struct {
	Enabled bool    `json:"enabled"`
	RPS     float64 `json:"rps" validate:"gt=0"`
	Burst   int     `json:"burst" validate:"gte=1"`
}

// LoadConfig loads configuration from multiple sources with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
func LoadConfig(args []string) (*Config, error) {
	fs := flag.NewFlagSet("exercise-resolver", flag.ContinueOnError)

	env := fs.String("env", "", "Environment (development, staging, production)")
	logLevel := fs.String("log-level", "", "Log level (debug, info, warn, error)")
	dataPath := fs.String("data-path", "", "Base path for the persistent cache and search index")

	// Server flags
	serverPort := fs.String("port", "", "Server port (default: 8080)")
	readTimeout := fs.String("read-timeout", "", "HTTP read timeout (default: 15s)")
	writeTimeout := fs.String("write-timeout", "", "HTTP write timeout (default: 30s)")
	idleTimeout := fs.String("idle-timeout", "", "HTTP idle timeout (default: 60s)")
	allowedOrigins := fs.String("allowed-origins", "", "Comma-separated CORS origins (default: *)")

	// Catalog flags
	catalogSource := fs.String("catalog", "", "Catalog file path, SQLite path or URL")
	assetBaseURL := fs.String("asset-base-url", "", "Base URL prefixed to exercise image filenames")
	catalogWatch := fs.String("watch", "", "Reload the catalog when the file changes (default: true)")
	fetchTimeout := fs.String("fetch-timeout", "", "Remote catalog fetch timeout (default: 30s)")

	// Cache flags
	cacheTTL := fs.String("cache-ttl", "", "Resolution cache TTL (default: 168h)")
	cachePersistent := fs.String("cache-persistent", "", "Persist resolutions across restarts (default: true)")
	cachePath := fs.String("cache-path", "", "Persistent cache directory (default: {data}/cache)")

	// Search flags
	searchEnabled := fs.String("search-enabled", "", "Enable suggestions (default: true)")
	searchPath := fs.String("search-path", "", "Search index directory (default: {data}/search)")

	// Rate limit flags
	rateLimitEnabled := fs.String("rate-limit", "", "Enable per-client rate limiting (default: true)")
	rateLimitRPS := fs.String("rate-limit-rps", "", "Requests per second per client (default: 20)")
	rateLimitBurst := fs.String("rate-limit-burst", "", "Burst per client (default: 40)")

	envFile := fs.String("env-file", ".env", "Path to .env file")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	// Load .env file if it exists (silently ignore if not found).
	_ = loadEnvFile(*envFile)

	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(*env, "ENV", "development"),
			DataPath:    getConfigValue(*dataPath, "DATA_PATH", ""),
		},
		Logger: LoggerConfig{
			Level: getConfigValue(*logLevel, "LOG_LEVEL", "info"),
		},
		Server: ServerConfig{
			Port:           getConfigValue(*serverPort, "SERVER_PORT", "8080"),
			AllowedOrigins: splitList(getConfigValue(*allowedOrigins, "ALLOWED_ORIGINS", "*")),
		},
		Catalog: CatalogConfig{
			Source:       getConfigValue(*catalogSource, "CATALOG_SOURCE", ""),
			AssetBaseURL: getConfigValue(*assetBaseURL, "ASSET_BASE_URL", ""),
			Watch:        getBoolConfigValue(*catalogWatch, "CATALOG_WATCH", true),
		},
		Cache: CacheConfig{
			Persistent: getBoolConfigValue(*cachePersistent, "CACHE_PERSISTENT", true),
			Path:       getConfigValue(*cachePath, "CACHE_PATH", ""),
		},
		Search: SearchConfig{
			Enabled: getBoolConfigValue(*searchEnabled, "SEARCH_ENABLED", true),
			Path:    getConfigValue(*searchPath, "SEARCH_PATH", ""),
		},
		RateLimit: RateLimitConfig{
			Enabled: getBoolConfigValue(*rateLimitEnabled, "RATE_LIMIT_ENABLED", true),
			Burst:   getIntConfigValue(*rateLimitBurst, "RATE_LIMIT_BURST", 40),
		},
	}

	durations := []struct {
		dst      *time.Duration
		flag     string
		envKey   string
		fallback string
	}{
		{&cfg.Server.ReadTimeout, *readTimeout, "SERVER_READ_TIMEOUT", "15s"},
		{&cfg.Server.WriteTimeout, *writeTimeout, "SERVER_WRITE_TIMEOUT", "30s"},
		{&cfg.Server.IdleTimeout, *idleTimeout, "SERVER_IDLE_TIMEOUT", "60s"},
		{&cfg.Catalog.FetchTimeout, *fetchTimeout, "CATALOG_FETCH_TIMEOUT", "30s"},
		{&cfg.Cache.TTL, *cacheTTL, "CACHE_TTL", "168h"},
	}
	for _, d := range durations {
		raw := getConfigValue(d.flag, d.envKey, d.fallback)
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", strings.ToLower(d.envKey), raw, err)
		}
		*d.dst = parsed
	}

	rps := getConfigValue(*rateLimitRPS, "RATE_LIMIT_RPS", "20")
	parsedRPS, err := strconv.ParseFloat(rps, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid rate limit rps %q: %w", rps, err)
	}
	cfg.RateLimit.RPS = parsedRPS

	if err := cfg.expandPaths(); err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required config values are present and valid.
func (c *Config) Validate() error {
	return validation.New().Validate(c)
}

// IsRemoteCatalog reports whether the catalog is fetched over HTTP.
func (c *Config) IsRemoteCatalog() bool {
	s := strings.ToLower(c.Catalog.Source)
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// expandPath expands ~ and makes the path absolute.
// If path is empty and defaultPath is provided, uses the default.
func expandPath(path, defaultPath string) (string, error) {
	if path == "" {
		return defaultPath, nil
	}

	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = absPath
	}

	return filepath.Clean(path), nil
}

// expandPaths resolves the data root (default ~/ExerciseResolver), the cache and
// search directories beneath it, and a local catalog path. URLs are left alone.
func (c *Config) expandPaths() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}

	if c.App.DataPath, err = expandPath(c.App.DataPath, filepath.Join(homeDir, "ExerciseResolver")); err != nil {
		return err
	}
	if c.Cache.Path, err = expandPath(c.Cache.Path, filepath.Join(c.App.DataPath, "cache")); err != nil {
		return err
	}
	if c.Search.Path, err = expandPath(c.Search.Path, filepath.Join(c.App.DataPath, "search")); err != nil {
		return err
	}

	if c.Catalog.Source != "" && !c.IsRemoteCatalog() {
		if c.Catalog.Source, err = expandPath(c.Catalog.Source, ""); err != nil {
			return err
		}
	}
	return nil
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}
	return defaultValue
}

// getBoolConfigValue returns a bool from flag, env var, or default.
// Accepts: "true", "1", "yes" (case-insensitive) as true; anything else is false.
func getBoolConfigValue(flagValue, envKey string, defaultValue bool) bool {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	strValue = strings.ToLower(strValue)
	return strValue == "true" || strValue == "1" || strValue == "yes"
}

// getIntConfigValue returns an int from flag, env var, or default.
func getIntConfigValue(flagValue, envKey string, defaultValue int) int {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	result, err := strconv.Atoi(strValue)
	if err != nil {
		return defaultValue
	}
	return result
}

func splitList(s string) []string {
	out := []string{}
	for part := range strings.SplitSeq(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// loadEnvFile loads environment variables from a .env file.
// Format: KEY=value (one per line, # for comments).
func loadEnvFile(path string) error {
	file, err := os.Open(path) //#nosec G304 -- Config file path from user input is expected
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return fmt.Errorf("invalid format at line %d: %s", lineNum, line)
		}

		key = strings.TrimSpace(key)
		value = strings.Trim(strings.TrimSpace(value), `"'`)

		// Only set if not already set (env vars take precedence over .env file).
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("failed to set env var %s: %w", key, err)
			}
		}
	}

	return scanner.Err()
}
