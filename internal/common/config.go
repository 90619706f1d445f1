package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Environment string        `toml:"environment"` // "development" or "production"
	Amazon      AmazonConfig  `toml:"amazon"`
	Engine      EngineConfig  `toml:"engine"`
	Webhook     WebhookConfig `toml:"webhook"`
	Import      ImportConfig  `toml:"import"`
	Storage     StorageConfig `toml:"storage"`
	Logging     LoggingConfig `toml:"logging"`
}

// AmazonConfig holds the account credentials and target storefront.
type AmazonConfig struct {
	Email    string `toml:"email" validate:"required,email"`
	Password string `toml:"password" validate:"required"`
	MFASeed  string `toml:"mfa_seed"` // optional base32 TOTP seed
	Region   string `toml:"region" validate:"required"`
	BaseURL  string `toml:"base_url" validate:"omitempty,url"` // overrides the region-derived storefront root
}

// SiteRoot returns the storefront root URL for the configured region.
func (a AmazonConfig) SiteRoot() string {
	if a.BaseURL != "" {
		if strings.HasSuffix(a.BaseURL, "/") {
			return a.BaseURL
		}
		return a.BaseURL + "/"
	}
	return fmt.Sprintf("https://www.amazon.%s/", a.Region)
}

// EngineConfig selects and tunes the navigation transport used for the
// authentication phase.
type EngineConfig struct {
	Type           string        `toml:"type" validate:"oneof=http chromedp"` // "http" (default) or "chromedp"
	Headless       bool          `toml:"headless"`
	NoSandbox      bool          `toml:"no_sandbox"`
	UserAgent      string        `toml:"user_agent"`
	RequestTimeout time.Duration `toml:"request_timeout"` // per-call upper bound for every network operation
}

// WebhookConfig configures the outbound delivery sink.
type WebhookConfig struct {
	URL     string        `toml:"url" validate:"omitempty,url"`
	Timeout time.Duration `toml:"timeout"`
}

// ImportConfig controls cycle behavior.
type ImportConfig struct {
	ClearAfterImport bool          `toml:"clear_after_import"`
	PollInterval     time.Duration `toml:"poll_interval" validate:"min=5s"`
	DeleteDelay      time.Duration `toml:"delete_delay"` // pacing between per-item removal requests
	Debug            bool          `toml:"debug"`
}

// StorageConfig holds the Badger session store location.
type StorageConfig struct {
	Path           string `toml:"path"`
	ResetOnStartup bool   `toml:"reset_on_startup"`
}

type LoggingConfig struct {
	Level  string   `toml:"level"`  // "debug", "info", "warn", "error"
	Output []string `toml:"output"` // "stdout", "file"
}

// NewDefaultConfig creates a configuration with default values.
// Technical parameters are hardcoded here for production stability; only
// user-facing settings should be exposed in importo.toml.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Amazon: AmazonConfig{
			Region: "de",
		},
		Engine: EngineConfig{
			Type:           "http",
			Headless:       true,
			NoSandbox:      false,
			UserAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
			RequestTimeout: 20 * time.Second,
		},
		Webhook: WebhookConfig{
			Timeout: 15 * time.Second,
		},
		Import: ImportConfig{
			ClearAfterImport: true,
			PollInterval:     5 * time.Minute,
			DeleteDelay:      500 * time.Millisecond,
		},
		Storage: StorageConfig{
			Path: "./data",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"stdout", "file"},
		},
	}
}

// LoadFromFiles loads configuration with priority: defaults -> file1 -> file2
// -> ... -> env. Later files override earlier files.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// Validate checks the loaded configuration for structural problems before the
// first cycle runs.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("IMPORTO_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	// Amazon account
	if email := os.Getenv("IMPORTO_AMAZON_EMAIL"); email != "" {
		config.Amazon.Email = email
	}
	if password := os.Getenv("IMPORTO_AMAZON_PASSWORD"); password != "" {
		config.Amazon.Password = password
	}
	if seed := os.Getenv("IMPORTO_AMAZON_MFA_SEED"); seed != "" {
		config.Amazon.MFASeed = seed
	}
	if region := os.Getenv("IMPORTO_AMAZON_REGION"); region != "" {
		config.Amazon.Region = region
	}

	// Engine
	if engine := os.Getenv("IMPORTO_ENGINE"); engine != "" {
		config.Engine.Type = engine
	}
	if headless := os.Getenv("IMPORTO_ENGINE_HEADLESS"); headless != "" {
		if h, err := strconv.ParseBool(headless); err == nil {
			config.Engine.Headless = h
		}
	}
	if userAgent := os.Getenv("IMPORTO_ENGINE_USER_AGENT"); userAgent != "" {
		config.Engine.UserAgent = userAgent
	}
	if timeout := os.Getenv("IMPORTO_ENGINE_REQUEST_TIMEOUT"); timeout != "" {
		if t, err := time.ParseDuration(timeout); err == nil {
			config.Engine.RequestTimeout = t
		}
	}

	// Webhook
	if url := os.Getenv("IMPORTO_WEBHOOK_URL"); url != "" {
		config.Webhook.URL = url
	}
	if timeout := os.Getenv("IMPORTO_WEBHOOK_TIMEOUT"); timeout != "" {
		if t, err := time.ParseDuration(timeout); err == nil {
			config.Webhook.Timeout = t
		}
	}

	// Import behavior
	if clear := os.Getenv("IMPORTO_CLEAR_AFTER_IMPORT"); clear != "" {
		if c, err := strconv.ParseBool(clear); err == nil {
			config.Import.ClearAfterImport = c
		}
	}
	if interval := os.Getenv("IMPORTO_POLL_INTERVAL"); interval != "" {
		if i, err := time.ParseDuration(interval); err == nil {
			config.Import.PollInterval = i
		}
	}
	if debug := os.Getenv("IMPORTO_DEBUG"); debug != "" {
		if d, err := strconv.ParseBool(debug); err == nil {
			config.Import.Debug = d
		}
	}

	// Storage
	if path := os.Getenv("IMPORTO_STORAGE_PATH"); path != "" {
		config.Storage.Path = path
	}

	// Logging
	if level := os.Getenv("IMPORTO_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if output := os.Getenv("IMPORTO_LOG_OUTPUT"); output != "" {
		outputs := []string{}
		for _, o := range splitString(output, ",") {
			trimmed := trimSpace(o)
			if trimmed != "" {
				outputs = append(outputs, trimmed)
			}
		}
		if len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}
}

// Sanitized returns a copy of the config safe for logging: the password is
// fully masked and the MFA seed keeps only its visible prefix.
func (c *Config) Sanitized() Config {
	clone := *c
	clone.Amazon.Password = Mask(c.Amazon.Password, 0)
	clone.Amazon.MFASeed = Mask(c.Amazon.MFASeed, 2)
	return clone
}

// IsProduction returns true if the environment is set to production
func (c *Config) IsProduction() bool {
	env := trimSpace(c.Environment)
	return env == "production" || env == "prod"
}

// Helper functions for string manipulation
func splitString(s, sep string) []string {
	result := []string{}
	start := 0
	for i := 0; i < len(s); i++ {
		if i+len(sep) <= len(s) && s[i:i+len(sep)] == sep {
			result = append(result, s[start:i])
			start = i + len(sep)
			i = start - 1
		}
	}
	result = append(result, s[start:])
	return result
}

func trimSpace(s string) string {
	start := 0
	end := len(s)
	for start < end && (s[start] == ' ' || s[start] == '\t' || s[start] == '\n' || s[start] == '\r') {
		start++
	}
	for end > start && (s[end-1] == ' ' || s[end-1] == '\t' || s[end-1] == '\n' || s[end-1] == '\r') {
		end--
	}
	return s[start:end]
}
