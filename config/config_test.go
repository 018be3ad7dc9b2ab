package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		API: APIConfig{
			BaseURL: "https://api0.solar.sheffield.ac.uk/pvforecast/api/v4/",
			Retries: 3,
			Timeout: 30 * time.Second,
		},
		Output:  OutputConfig{FloatFormat: "%.3f"},
		Logging: LoggingConfig{Level: "info", Format: "console"},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "Valid configuration",
			mutate: func(*Config) {},
		},
		{
			name:    "Missing base URL",
			mutate:  func(c *Config) { c.API.BaseURL = "" },
			wantErr: "api.base_url is required",
		},
		{
			name:    "Negative retries",
			mutate:  func(c *Config) { c.API.Retries = -1 },
			wantErr: "api.retries must not be negative",
		},
		{
			name:    "Zero timeout",
			mutate:  func(c *Config) { c.API.Timeout = 0 },
			wantErr: "api.timeout must be positive",
		},
		{
			name:    "Negative rate limit",
			mutate:  func(c *Config) { c.API.RateLimit = -2 },
			wantErr: "api.rate_limit must not be negative",
		},
		{
			name:    "Float format without verb",
			mutate:  func(c *Config) { c.Output.FloatFormat = "3f" },
			wantErr: "invalid output.float_format",
		},
		{
			name:    "Invalid logging level",
			mutate:  func(c *Config) { c.Logging.Level = "verbose" },
			wantErr: "invalid logging level: verbose",
		},
		{
			name:    "Invalid logging format",
			mutate:  func(c *Config) { c.Logging.Format = "xml" },
			wantErr: "invalid logging format: xml",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := validate(cfg)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

// isolate points HOME at an empty directory and clears credential variables.
func isolate(t *testing.T) string {
	home := t.TempDir()
	t.Setenv("HOME", home)
	for _, name := range []string{
		"PVFORECAST_USER_ID", "PVFORECAST_API_KEY", "PVForecastAPIKey",
		"PVFORECAST_CREDENTIALS_USER_ID", "PVFORECAST_CREDENTIALS_API_KEY",
	} {
		t.Setenv(name, "")
		os.Unsetenv(name)
	}
	return home
}

func TestLoadDefaultsWithoutConfigFile(t *testing.T) {
	isolate(t)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "https://api0.solar.sheffield.ac.uk/pvforecast/api/v4/", cfg.API.BaseURL)
	assert.Equal(t, 3, cfg.API.Retries)
	assert.Equal(t, 500*time.Millisecond, cfg.API.RetryDelay)
	assert.Equal(t, 30*time.Second, cfg.API.Timeout)
	assert.Equal(t, "%.3f", cfg.Output.FloatFormat)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Error(t, cfg.RequireCredentials())
}

func TestLoadConfigFile(t *testing.T) {
	isolate(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
credentials:
  user_id: "1234"
  api_key: file-key
api:
  retries: 5
  timeout: 10s
  legacy_csv: true
proxy:
  https: http://proxy.local:3128
logging:
  level: debug
  format: json
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "1234", cfg.Credentials.UserID)
	assert.Equal(t, "file-key", cfg.Credentials.APIKey)
	assert.Equal(t, 5, cfg.API.Retries)
	assert.Equal(t, 10*time.Second, cfg.API.Timeout)
	assert.True(t, cfg.API.LegacyCSV)
	assert.Equal(t, "http://proxy.local:3128", cfg.Proxy.HTTPS)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.NoError(t, cfg.RequireCredentials())
}

func TestLoadMissingExplicitConfigFile(t *testing.T) {
	isolate(t)

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadEnvironmentOverridesFile(t *testing.T) {
	isolate(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("credentials:\n  user_id: \"1\"\n  api_key: file-key\n"), 0o600))

	t.Setenv("PVFORECAST_API_KEY", "env-key")
	t.Setenv("PVFORECAST_API_RETRIES", "7")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "env-key", cfg.Credentials.APIKey)
	assert.Equal(t, "1", cfg.Credentials.UserID)
	assert.Equal(t, 7, cfg.API.Retries)
}

func TestLoadLegacyAPIKeyVariable(t *testing.T) {
	isolate(t)
	t.Setenv("PVForecastAPIKey", "legacy-env-key")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "legacy-env-key", cfg.Credentials.APIKey)
}

func TestLoadLegacyCredentialsFile(t *testing.T) {
	tests := []struct {
		name       string
		content    string
		wantUserID string
		wantKey    string
	}{
		{
			name:    "Key only",
			content: "abc123\n",
			wantKey: "abc123",
		},
		{
			name:       "User and key",
			content:    "1234:abc123\n",
			wantUserID: "1234",
			wantKey:    "abc123",
		},
		{
			name:    "Empty file",
			content: "\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			home := isolate(t)
			require.NoError(t, os.WriteFile(filepath.Join(home, LegacyCredentialsFile), []byte(tt.content), 0o600))

			cfg, err := Load("")
			require.NoError(t, err)
			assert.Equal(t, tt.wantUserID, cfg.Credentials.UserID)
			assert.Equal(t, tt.wantKey, cfg.Credentials.APIKey)
		})
	}
}

func TestRequireCredentials(t *testing.T) {
	cfg := validConfig()
	assert.ErrorContains(t, cfg.RequireCredentials(), "user_id")

	cfg.Credentials.UserID = "1234"
	assert.ErrorContains(t, cfg.RequireCredentials(), "api_key")

	cfg.Credentials.APIKey = "key"
	assert.NoError(t, cfg.RequireCredentials())
}
