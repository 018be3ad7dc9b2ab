package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/s0up4200/pvforecast/config"
	"github.com/s0up4200/pvforecast/pvforecast"
)

var (
	cfgFile string
	cfg     *config.Config
	logger  zerolog.Logger

	// Persistent flags
	userID     string
	apiKey     string
	httpProxy  string
	httpsProxy string
	quiet      bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "pvforecast",
	Short: "Download PV generation forecasts from the PV_Forecast API",
	Long: `pvforecast downloads solar PV generation forecasts from the Sheffield Solar
PV_Forecast API for GB, either the latest forecast or every forecast issued
within a window, for the national aggregate or a single GSP or PES region.

Without --start or --end the latest forecast is fetched.`,
	Example: `  pvforecast --user-id 1234 --api-key KEY
  pvforecast -s "2021-02-20 00:00:00" -e "2021-02-23 23:00:00" --entity-id 120 --base-times 07:00 -o gsp120.csv
  pvforecast --where 'clock(forecast_base_gmt) == "07:00" && generation_mw > 100'`,
	SilenceUsage:      true,
	PersistentPreRunE: initializeApp,
	RunE:              runFetch,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	flags.StringVar(&userID, "user-id", "", "PV_Forecast user id")
	flags.StringVar(&apiKey, "api-key", "", "PV_Forecast API key")
	flags.StringVar(&httpProxy, "http-proxy", "", "HTTP proxy address")
	flags.StringVar(&httpsProxy, "https-proxy", "", "HTTPS proxy address")
	flags.BoolVarP(&quiet, "quiet", "q", false, "only log warnings and errors, and don't print results")
}

// initializeApp loads the configuration, applies command-line overrides and
// sets up logging.
func initializeApp(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Flags take precedence over environment and config file
	if userID != "" {
		cfg.Credentials.UserID = userID
	}
	if apiKey != "" {
		cfg.Credentials.APIKey = apiKey
	}
	if httpProxy != "" {
		cfg.Proxy.HTTP = httpProxy
	}
	if httpsProxy != "" {
		cfg.Proxy.HTTPS = httpsProxy
	}
	if quiet && (cfg.Logging.Level == "debug" || cfg.Logging.Level == "info") {
		cfg.Logging.Level = "warn"
	}

	logger = setupLogger(cfg.Logging)
	return nil
}

// setupLogger configures the zerolog logger
func setupLogger(cfg config.LoggingConfig) zerolog.Logger {
	// Set log level
	level := zerolog.InfoLevel
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = zerolog.DebugLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}

	zerolog.SetGlobalLevel(level)

	// Configure output format
	if cfg.Format == "json" {
		return zerolog.New(os.Stderr).With().Timestamp().Logger()
	}

	// Console format, colour only on a terminal
	output := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
		NoColor:    !cfg.Color || !isTerminal(os.Stderr),
	}

	return zerolog.New(output).With().Timestamp().Logger()
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// newClient connects to the API with the loaded configuration.
func newClient(ctx context.Context) (*pvforecast.Client, error) {
	if err := cfg.RequireCredentials(); err != nil {
		return nil, err
	}

	opts := []pvforecast.Option{
		pvforecast.WithBaseURL(cfg.API.BaseURL),
		pvforecast.WithRetries(cfg.API.Retries),
		pvforecast.WithRetryDelay(cfg.API.RetryDelay),
		pvforecast.WithTimeout(cfg.API.Timeout),
		pvforecast.WithProxy(pvforecast.ProxyConfig{HTTP: cfg.Proxy.HTTP, HTTPS: cfg.Proxy.HTTPS}),
	}
	if cfg.API.RateLimit > 0 {
		opts = append(opts, pvforecast.WithRateLimit(cfg.API.RateLimit, cfg.API.Burst))
	}
	if cfg.API.LegacyCSV {
		opts = append(opts, pvforecast.WithLegacyCSV())
	}

	client, err := pvforecast.NewClient(ctx, cfg.Credentials.UserID, cfg.Credentials.APIKey, logger, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create PV_Forecast client: %w", err)
	}
	return client, nil
}
