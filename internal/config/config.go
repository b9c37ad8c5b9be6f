package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/pendergraft/berarelay/internal/validation"
)

// ProjectFiles is the search order for project config files
var ProjectFiles = []string{"berarelay.toml", ".berarelay.toml"}

// Config holds all configuration for a relay run
type Config struct {
	Lookup   LookupConfig
	Verifier VerifierConfig
	Work     WorkConfig
	Resolve  ResolveConfig
	HTTP     HTTPConfig
	Logging  LoggingConfig
	History  HistoryConfig
	Metrics  MetricsConfig

	// Sources records where each non-default value came from, for `config show`.
	Sources map[string]string
}

// LookupConfig holds the source lookup service (RouteScan) settings
type LookupConfig struct {
	BaseURL string
	Network string
	ChainID int
}

// VerifierConfig holds the verification service (BeraScan) settings
type VerifierConfig struct {
	APIURL  string
	SiteURL string
	APIKey  string
	Strict  bool // fail the run on a business-level rejection
}

// WorkConfig holds local working directory settings
type WorkConfig struct {
	Dir string
}

// ResolveConfig holds contract name resolution settings
type ResolveConfig struct {
	Strategy string // "by-hint" or "first-key"
}

// HTTPConfig holds outbound HTTP client settings
type HTTPConfig struct {
	Timeout   int     // seconds
	RateLimit float64 // requests per second, 0 disables
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level  string
	Format string // "text" or "json"
}

// HistoryConfig holds submission history storage settings
type HistoryConfig struct {
	Type        string // "none", "sqlite" or "postgres"
	SQLitePath  string
	PostgresURL string
}

// MetricsConfig holds metrics output settings
type MetricsConfig struct {
	TextfilePath string
}

// FileConfig is the TOML project configuration
type FileConfig struct {
	ChainID  int    `toml:"chain_id,omitempty"`
	WorkDir  string `toml:"work_dir,omitempty"`
	Strategy string `toml:"strategy,omitempty"`
	Strict   *bool  `toml:"strict,omitempty"`

	Lookup struct {
		BaseURL string `toml:"base_url,omitempty"`
		Network string `toml:"network,omitempty"`
	} `toml:"lookup,omitempty"`

	Verifier struct {
		APIURL  string `toml:"api_url,omitempty"`
		SiteURL string `toml:"site_url,omitempty"`
	} `toml:"verifier,omitempty"`

	HTTP struct {
		Timeout   int     `toml:"timeout,omitempty"`
		RateLimit float64 `toml:"rate_limit,omitempty"`
	} `toml:"http,omitempty"`

	Logging struct {
		Level  string `toml:"level,omitempty"`
		Format string `toml:"format,omitempty"`
	} `toml:"logging,omitempty"`

	History struct {
		Type       string `toml:"type,omitempty"`
		SQLitePath string `toml:"sqlite_path,omitempty"`
	} `toml:"history,omitempty"`

	Metrics struct {
		Textfile string `toml:"textfile,omitempty"`
	} `toml:"metrics,omitempty"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Lookup: LookupConfig{
			BaseURL: "https://api.routescan.io",
			Network: "mainnet",
			ChainID: 80094,
		},
		Verifier: VerifierConfig{
			APIURL:  "https://api.berascan.com/api",
			SiteURL: "https://berascan.com",
		},
		Work: WorkConfig{
			Dir: "./bera",
		},
		Resolve: ResolveConfig{
			Strategy: "by-hint",
		},
		HTTP: HTTPConfig{
			Timeout:   30,
			RateLimit: 5,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		History: HistoryConfig{
			Type:       "none",
			SQLitePath: "./bera/history.db",
		},
		Sources: make(map[string]string),
	}
}

// Load builds the configuration from defaults, the project file at path (or the
// first of ProjectFiles when path is empty), a .env file and the environment.
// A missing project file is not an error; an explicitly named one is.
func Load(path string) (*Config, error) {
	cfg := Default()

	filePath, err := findProjectFile(path)
	if err != nil {
		return nil, err
	}
	if filePath != "" {
		if err := cfg.applyFile(filePath); err != nil {
			return nil, err
		}
	}

	// .env is optional; variables already present in the environment win.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}
	cfg.applyEnv()

	return cfg, nil
}

func findProjectFile(path string) (string, error) {
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return "", fmt.Errorf("config file %s: %w", path, err)
		}
		return path, nil
	}
	for _, name := range ProjectFiles {
		if _, err := os.Stat(name); err == nil {
			return name, nil
		}
	}
	return "", nil
}

// LoadFile decodes a TOML project file
func LoadFile(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var fc FileConfig
	if _, err := toml.Decode(string(data), &fc); err != nil {
		return nil, fmt.Errorf("parsing TOML: %w", err)
	}
	return &fc, nil
}

func (c *Config) applyFile(path string) error {
	fc, err := LoadFile(path)
	if err != nil {
		return fmt.Errorf("loading %s: %w", path, err)
	}

	src := "file:" + path
	c.setString("lookup.base_url", &c.Lookup.BaseURL, fc.Lookup.BaseURL, src)
	c.setString("lookup.network", &c.Lookup.Network, fc.Lookup.Network, src)
	c.setInt("chain_id", &c.Lookup.ChainID, fc.ChainID, src)
	c.setString("verifier.api_url", &c.Verifier.APIURL, fc.Verifier.APIURL, src)
	c.setString("verifier.site_url", &c.Verifier.SiteURL, fc.Verifier.SiteURL, src)
	c.setString("work_dir", &c.Work.Dir, fc.WorkDir, src)
	c.setString("strategy", &c.Resolve.Strategy, fc.Strategy, src)
	if fc.Strict != nil {
		c.Verifier.Strict = *fc.Strict
		c.Sources["strict"] = src
	}
	c.setInt("http.timeout", &c.HTTP.Timeout, fc.HTTP.Timeout, src)
	if fc.HTTP.RateLimit > 0 {
		c.HTTP.RateLimit = fc.HTTP.RateLimit
		c.Sources["http.rate_limit"] = src
	}
	c.setString("logging.level", &c.Logging.Level, fc.Logging.Level, src)
	c.setString("logging.format", &c.Logging.Format, fc.Logging.Format, src)
	c.setString("history.type", &c.History.Type, fc.History.Type, src)
	c.setString("history.sqlite_path", &c.History.SQLitePath, fc.History.SQLitePath, src)
	c.setString("metrics.textfile", &c.Metrics.TextfilePath, fc.Metrics.Textfile, src)
	return nil
}

func (c *Config) applyEnv() {
	c.setString("lookup.base_url", &c.Lookup.BaseURL, os.Getenv("ROUTESCAN_API_URL"), "env:ROUTESCAN_API_URL")
	c.setString("lookup.network", &c.Lookup.Network, os.Getenv("ROUTESCAN_NETWORK"), "env:ROUTESCAN_NETWORK")
	c.setInt("chain_id", &c.Lookup.ChainID, getEnvInt("CHAIN_ID", 0), "env:CHAIN_ID")
	c.setString("verifier.api_url", &c.Verifier.APIURL, os.Getenv("BERASCAN_API_URL"), "env:BERASCAN_API_URL")
	c.setString("verifier.site_url", &c.Verifier.SiteURL, os.Getenv("BERASCAN_SITE_URL"), "env:BERASCAN_SITE_URL")
	c.setString("verifier.api_key", &c.Verifier.APIKey, os.Getenv("BERASCAN_API_KEY"), "env:BERASCAN_API_KEY")
	if v := os.Getenv("STRICT_VERIFY"); v != "" {
		c.Verifier.Strict = getEnvBool("STRICT_VERIFY", false)
		c.Sources["strict"] = "env:STRICT_VERIFY"
	}
	c.setString("work_dir", &c.Work.Dir, os.Getenv("WORK_DIR"), "env:WORK_DIR")
	c.setString("strategy", &c.Resolve.Strategy, os.Getenv("RESOLVE_STRATEGY"), "env:RESOLVE_STRATEGY")
	c.setInt("http.timeout", &c.HTTP.Timeout, getEnvInt("HTTP_TIMEOUT", 0), "env:HTTP_TIMEOUT")
	if v := getEnvFloat("HTTP_RATE_LIMIT", -1); v >= 0 {
		c.HTTP.RateLimit = v
		c.Sources["http.rate_limit"] = "env:HTTP_RATE_LIMIT"
	}
	c.setString("logging.level", &c.Logging.Level, os.Getenv("LOG_LEVEL"), "env:LOG_LEVEL")
	c.setString("logging.format", &c.Logging.Format, os.Getenv("LOG_FORMAT"), "env:LOG_FORMAT")
	c.setString("history.type", &c.History.Type, os.Getenv("HISTORY_STORE"), "env:HISTORY_STORE")
	c.setString("history.sqlite_path", &c.History.SQLitePath, os.Getenv("HISTORY_SQLITE_PATH"), "env:HISTORY_SQLITE_PATH")
	c.setString("history.postgres_url", &c.History.PostgresURL, os.Getenv("DATABASE_URL"), "env:DATABASE_URL")
	c.setString("metrics.textfile", &c.Metrics.TextfilePath, os.Getenv("METRICS_TEXTFILE"), "env:METRICS_TEXTFILE")

	// If DATABASE_URL is set and no store was chosen, default to postgres
	if c.History.PostgresURL != "" && c.History.Type == "none" {
		c.History.Type = "postgres"
	}
}

// Override applies a command line flag value when it is non-empty
func (c *Config) Override(key string, dst *string, value string) {
	c.setString(key, dst, value, "flag")
}

// OverrideBool applies a boolean command line flag that was explicitly set
func (c *Config) OverrideBool(key string, dst *bool, value bool) {
	*dst = value
	c.Sources[key] = "flag"
}

// Validate checks values that would otherwise fail late in the run
func (c *Config) Validate() error {
	switch c.Resolve.Strategy {
	case "by-hint", "first-key":
	default:
		return fmt.Errorf("unknown resolve strategy %q (want by-hint or first-key)", c.Resolve.Strategy)
	}
	switch c.History.Type {
	case "none", "sqlite", "postgres":
	default:
		return fmt.Errorf("unknown history store %q", c.History.Type)
	}
	if c.History.Type == "postgres" && c.History.PostgresURL == "" {
		return errors.New("history store postgres requires DATABASE_URL")
	}
	if err := validation.ValidateChainID(c.Lookup.ChainID); err != nil {
		return err
	}
	if c.HTTP.RateLimit < 0 {
		return errors.New("rate limit cannot be negative")
	}
	return nil
}

// SourceOf returns where a setting came from ("default" when untouched)
func (c *Config) SourceOf(key string) string {
	if src, ok := c.Sources[key]; ok {
		return src
	}
	return "default"
}

func (c *Config) setString(key string, dst *string, value, src string) {
	if value == "" {
		return
	}
	*dst = value
	c.Sources[key] = src
}

func (c *Config) setInt(key string, dst *int, value int, src string) {
	if value == 0 {
		return
	}
	*dst = value
	c.Sources[key] = src
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}
