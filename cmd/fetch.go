package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/s0up4200/pvforecast/filter"
	"github.com/s0up4200/pvforecast/pvforecast"
	"github.com/s0up4200/pvforecast/store"
)

// cliTimeLayout is the format of --start and --end. Values are UTC.
const cliTimeLayout = "2006-01-02 15:04:05"

// defaultStart is the earliest forecast base the API holds.
var defaultStart = time.Date(2014, 1, 1, 0, 30, 0, 0, time.UTC)

var (
	startFlag   string
	endFlag     string
	entityType  string
	entityID    int64
	extraFields string
	baseTimes   []string
	outfile     string
	whereExpr   string
	postgresDSN string
)

func init() {
	addFetchFlags(rootCmd)
}

// addFetchFlags registers the download flags on cmd.
func addFetchFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVarP(&startFlag, "start", "s", "", `window start "yyyy-mm-dd HH:MM:SS" in UTC (default 2014-01-01 00:30:00)`)
	flags.StringVarP(&endFlag, "end", "e", "", `window end "yyyy-mm-dd HH:MM:SS" in UTC (default now)`)
	flags.StringVar(&entityType, "entity-type", string(pvforecast.EntityGSP), "entity type, gsp or pes")
	flags.Int64Var(&entityID, "entity-id", 0, "entity id, 0 for the national aggregate")
	flags.StringVar(&extraFields, "extra-fields", "", "comma-separated extra fields to request, e.g. ucl,lcl")
	flags.StringSliceVar(&baseTimes, "base-times", nil, "only fetch forecasts issued at these UTC clock times (HH:MM)")
	flags.StringVarP(&outfile, "outfile", "o", "", "write the results as CSV to this file")
	flags.StringVar(&whereExpr, "where", "", "only keep rows matching this filter expression")
	flags.StringVar(&postgresDSN, "postgres", "", "upsert the results into PostgreSQL (connection string)")
}

// fetchOptions are the inputs of a forecast download.
type fetchOptions struct {
	query     pvforecast.Query
	latest    bool
	window    pvforecast.Window
	where     string
	floatFmt  string
	outfile   string
	postgres  string
	printRows bool
}

func runFetch(cmd *cobra.Command, args []string) error {
	opts, err := fetchOptionsFromFlags(cmd, time.Now())
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	client, err := newClient(ctx)
	if err != nil {
		return err
	}

	table, err := collectForecast(ctx, client, opts)
	if err != nil {
		return err
	}

	if opts.postgres != "" {
		if err := saveToPostgres(ctx, opts.postgres, opts.query.EntityType, table); err != nil {
			return err
		}
	}

	if opts.outfile != "" {
		return writeOutfile(opts.outfile, table, opts.floatFmt, stdinPrompt)
	}
	if opts.printRows {
		return table.WriteCSV(cmd.OutOrStdout(), opts.floatFmt)
	}
	return nil
}

// fetchOptionsFromFlags validates the command line and resolves defaults.
func fetchOptionsFromFlags(cmd *cobra.Command, now time.Time) (fetchOptions, error) {
	opts := fetchOptions{
		query: pvforecast.Query{
			EntityType:  pvforecast.EntityType(strings.ToLower(entityType)),
			EntityID:    entityID,
			ExtraFields: extraFields,
		},
		where:     whereExpr,
		floatFmt:  cfg.Output.FloatFormat,
		outfile:   outfile,
		postgres:  cfg.Output.Postgres,
		printRows: !quiet,
	}
	if postgresDSN != "" {
		opts.postgres = postgresDSN
	}

	flags := cmd.Flags()
	if !flags.Changed("start") && !flags.Changed("end") {
		if len(baseTimes) > 0 {
			return opts, fmt.Errorf("--base-times requires --start or --end")
		}
		opts.latest = true
		return opts, nil
	}

	start, end := defaultStart, now.UTC()
	var err error
	if startFlag != "" {
		if start, err = parseCLITime(startFlag); err != nil {
			return opts, fmt.Errorf("invalid --start: %w", err)
		}
	}
	if endFlag != "" {
		if end, err = parseCLITime(endFlag); err != nil {
			return opts, fmt.Errorf("invalid --end: %w", err)
		}
	}
	opts.window = pvforecast.Window{Start: start, End: end, BaseTimes: baseTimes}
	return opts, nil
}

// parseCLITime reads "yyyy-mm-dd HH:MM:SS" as UTC, and also accepts ISO-8601
// with an explicit zone.
func parseCLITime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.ParseInLocation(cliTimeLayout, s, time.UTC); err == nil {
		return t, nil
	}
	t, err := pvforecast.ParseTime(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("expected %q or an ISO-8601 timestamp with zone, got %q", "yyyy-mm-dd HH:MM:SS", s)
	}
	return t, nil
}

// collectForecast downloads, tabulates and filters forecasts.
func collectForecast(ctx context.Context, api pvforecast.API, opts fetchOptions) (*pvforecast.Table, error) {
	var (
		forecast *pvforecast.Forecast
		err      error
	)
	if opts.latest {
		logger.Info().
			Str("entity_type", string(opts.query.EntityType)).
			Int64("entity_id", opts.query.EntityID).
			Msg("Fetching latest forecast")
		forecast, err = api.Latest(ctx, opts.query)
	} else {
		logger.Info().
			Str("entity_type", string(opts.query.EntityType)).
			Int64("entity_id", opts.query.EntityID).
			Time("start", opts.window.Start).
			Time("end", opts.window.End).
			Strs("base_times", opts.window.BaseTimes).
			Msg("Fetching forecasts for window")
		forecast, err = api.GetForecasts(ctx, opts.window, opts.query)
	}
	if err != nil {
		return nil, err
	}

	table, err := forecast.Table()
	if err != nil {
		return nil, fmt.Errorf("failed to build table: %w", err)
	}

	if opts.where != "" {
		before := table.Len()
		if table, err = filter.Apply(ctx, opts.where, table); err != nil {
			return nil, fmt.Errorf("invalid --where expression: %w", err)
		}
		logger.Debug().Int("rows", before).Int("matched", table.Len()).Msg("Applied row filter")
	}

	logger.Info().Int("rows", table.Len()).Msg("Forecast downloaded")
	return table, nil
}

func saveToPostgres(ctx context.Context, dsn string, entityType pvforecast.EntityType, table *pvforecast.Table) error {
	db, err := store.Open(ctx, dsn, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	forecast := &pvforecast.Forecast{Columns: table.Columns(), Rows: table.Rows()}
	if _, err := db.SaveForecast(ctx, entityType, forecast); err != nil {
		return fmt.Errorf("failed to save forecast: %w", err)
	}
	return nil
}
