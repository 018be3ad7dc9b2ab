package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/s0up4200/pvforecast/pvforecast"
)

var (
	basesStart        string
	basesEnd          string
	basesForecastType string
)

// basesCmd represents the bases command
var basesCmd = &cobra.Command{
	Use:   "bases",
	Short: "List the forecast bases issued within a window",
	Long: `List the forecast base timestamps the API holds between --start and --end.

National bases cover the GB aggregate; regional bases cover GSP and PES forecasts.`,
	RunE: runBases,
}

func init() {
	rootCmd.AddCommand(basesCmd)

	basesCmd.Flags().StringVarP(&basesStart, "start", "s", "", `window start "yyyy-mm-dd HH:MM:SS" in UTC (required)`)
	basesCmd.Flags().StringVarP(&basesEnd, "end", "e", "", `window end "yyyy-mm-dd HH:MM:SS" in UTC (default now)`)
	basesCmd.Flags().StringVar(&basesForecastType, "forecast-type", string(pvforecast.ForecastNational), "national or regional")
	_ = basesCmd.MarkFlagRequired("start")
}

func runBases(cmd *cobra.Command, args []string) error {
	start, err := parseCLITime(basesStart)
	if err != nil {
		return fmt.Errorf("invalid --start: %w", err)
	}
	end := time.Now().UTC()
	if basesEnd != "" {
		if end, err = parseCLITime(basesEnd); err != nil {
			return fmt.Errorf("invalid --end: %w", err)
		}
	}

	ctx := cmd.Context()
	client, err := newClient(ctx)
	if err != nil {
		return err
	}

	bases, err := client.GetForecastBases(ctx, start, end, pvforecast.ForecastType(basesForecastType))
	if err != nil {
		return err
	}

	logger.Info().Int("count", len(bases)).Str("forecast_type", basesForecastType).Msg("Forecast bases listed")
	out := cmd.OutOrStdout()
	for _, b := range bases {
		fmt.Fprintln(out, b)
	}
	return nil
}
