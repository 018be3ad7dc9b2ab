package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// LegacyCredentialsFile is read from the home directory when no API key is
// configured. It holds either "key" or "user_id:key".
const LegacyCredentialsFile = ".pvforecast_credentials"

// Load loads the configuration from file, environment and .env. A missing
// config file is not an error unless configPath names it explicitly.
func Load(configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("error loading .env: %w", err)
	}

	v := viper.New()

	// Set default values
	setDefaults(v)
	bindEnv(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Look for config in standard locations
		v.SetConfigName("config")
		v.SetConfigType("yaml")

		// Check current directory first
		v.AddConfigPath(".")

		// Check home directory
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".pvforecast"))
		}

		// Check /etc
		v.AddConfigPath("/etc/pvforecast/")
	}

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if cfg.Credentials.APIKey == "" {
		if home, err := os.UserHomeDir(); err == nil {
			if err := applyLegacyCredentials(&cfg, filepath.Join(home, LegacyCredentialsFile)); err != nil {
				return nil, err
			}
		}
	}

	// Validate configuration
	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Credentials have no defaults but must be known keys for env binding
	v.SetDefault("credentials.user_id", "")
	v.SetDefault("credentials.api_key", "")

	// API defaults
	v.SetDefault("api.base_url", "https://api0.solar.sheffield.ac.uk/pvforecast/api/v4/")
	v.SetDefault("api.retries", 3)
	v.SetDefault("api.retry_delay", "500ms")
	v.SetDefault("api.timeout", "30s")
	v.SetDefault("api.legacy_csv", false)
	v.SetDefault("api.rate_limit", 0)
	v.SetDefault("api.burst", 1)

	v.SetDefault("proxy.http", "")
	v.SetDefault("proxy.https", "")

	// Output defaults
	v.SetDefault("output.float_format", "%.3f")
	v.SetDefault("output.postgres", "")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.color", true)
}

// bindEnv maps PVFORECAST_SECTION_KEY variables onto config keys. The API key
// also honours the PVForecastAPIKey variable used by older tooling.
func bindEnv(v *viper.Viper) {
	v.SetEnvPrefix("PVFORECAST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	_ = v.BindEnv("credentials.user_id", "PVFORECAST_CREDENTIALS_USER_ID", "PVFORECAST_USER_ID")
	_ = v.BindEnv("credentials.api_key", "PVFORECAST_CREDENTIALS_API_KEY", "PVFORECAST_API_KEY", "PVForecastAPIKey")
}

// applyLegacyCredentials fills in credentials from a key file. A missing file
// is ignored.
func applyLegacyCredentials(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("error reading %s: %w", path, err)
	}

	content := strings.TrimSpace(string(data))
	if content == "" {
		return nil
	}
	if user, key, ok := strings.Cut(content, ":"); ok {
		if cfg.Credentials.UserID == "" {
			cfg.Credentials.UserID = strings.TrimSpace(user)
		}
		cfg.Credentials.APIKey = strings.TrimSpace(key)
		return nil
	}
	cfg.Credentials.APIKey = content
	return nil
}

// validate checks if the configuration is valid
func validate(cfg *Config) error {
	if cfg.API.BaseURL == "" {
		return fmt.Errorf("api.base_url is required")
	}

	if cfg.API.Retries < 0 {
		return fmt.Errorf("api.retries must not be negative: %d", cfg.API.Retries)
	}

	if cfg.API.Timeout <= 0 {
		return fmt.Errorf("api.timeout must be positive: %s", cfg.API.Timeout)
	}

	if cfg.API.RateLimit < 0 {
		return fmt.Errorf("api.rate_limit must not be negative: %g", cfg.API.RateLimit)
	}

	if !strings.Contains(cfg.Output.FloatFormat, "%") {
		return fmt.Errorf("invalid output.float_format: %q", cfg.Output.FloatFormat)
	}

	// Validate logging level
	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[cfg.Logging.Level] {
		return fmt.Errorf("invalid logging level: %s", cfg.Logging.Level)
	}

	// Validate logging format
	validFormats := map[string]bool{
		"console": true,
		"json":    true,
	}
	if !validFormats[cfg.Logging.Format] {
		return fmt.Errorf("invalid logging format: %s", cfg.Logging.Format)
	}

	return nil
}

// RequireCredentials reports whether both halves of the credentials are set.
// It is checked after command-line overrides are applied.
func (c *Config) RequireCredentials() error {
	if c.Credentials.UserID == "" {
		return fmt.Errorf("credentials.user_id must be set (flag --user-id or PVFORECAST_USER_ID)")
	}
	if c.Credentials.APIKey == "" {
		return fmt.Errorf("credentials.api_key must be set (flag --api-key, PVFORECAST_API_KEY or ~/%s)", LegacyCredentialsFile)
	}
	return nil
}
