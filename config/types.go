package config

import "time"

// Config represents the complete configuration structure
type Config struct {
	Credentials CredentialsConfig `mapstructure:"credentials"`
	API         APIConfig         `mapstructure:"api"`
	Proxy       ProxyConfig       `mapstructure:"proxy"`
	Output      OutputConfig      `mapstructure:"output"`
	Logging     LoggingConfig     `mapstructure:"logging"`
}

// CredentialsConfig holds the PV_Forecast user id and API key
type CredentialsConfig struct {
	UserID string `mapstructure:"user_id"`
	APIKey string `mapstructure:"api_key"`
}

// APIConfig controls how the client talks to the PV_Forecast API
type APIConfig struct {
	BaseURL    string        `mapstructure:"base_url"`
	Retries    int           `mapstructure:"retries"`
	RetryDelay time.Duration `mapstructure:"retry_delay"`
	Timeout    time.Duration `mapstructure:"timeout"`
	LegacyCSV  bool          `mapstructure:"legacy_csv"`
	RateLimit  float64       `mapstructure:"rate_limit"`
	Burst      int           `mapstructure:"burst"`
}

// ProxyConfig holds per-scheme proxy addresses
type ProxyConfig struct {
	HTTP  string `mapstructure:"http"`
	HTTPS string `mapstructure:"https"`
}

// OutputConfig contains output settings
type OutputConfig struct {
	FloatFormat string `mapstructure:"float_format"`
	// Postgres is a lib/pq connection string; empty disables the export.
	Postgres string `mapstructure:"postgres"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Color  bool   `mapstructure:"color"`
}
