package pvforecast

import (
	"context"
	"fmt"
	"slices"
)

// GetForecasts fetches every forecast issued within the window, one request
// per discovered forecast base, and concatenates the rows. Bases are fetched
// sequentially in the order the discovery endpoint returns them.
func (c *Client) GetForecasts(ctx context.Context, w Window, q Query) (*Forecast, error) {
	if err := validateRange(w.Start, w.End); err != nil {
		return nil, err
	}
	if err := validateBaseTimes(w.BaseTimes); err != nil {
		return nil, err
	}
	if err := c.refs.validate(nil, q); err != nil {
		return nil, err
	}

	raw, err := c.GetForecastBases(ctx, w.Start, w.End, q.forecastType())
	if err != nil {
		return nil, fmt.Errorf("failed to list forecast bases: %w", err)
	}

	result := &Forecast{}
	var fetched int
	for _, s := range raw {
		base, err := parseAPITime(s)
		if err != nil {
			return nil, &CommunicationError{Attempts: 1, Err: fmt.Errorf("invalid forecast base %q: %w", s, err)}
		}
		if len(w.BaseTimes) > 0 && !slices.Contains(w.BaseTimes, base.Format("15:04")) {
			continue
		}

		f, err := c.GetForecast(ctx, base, q)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch forecast base %s: %w", FormatTime(base), err)
		}
		fetched++
		if len(f.Rows) > 0 {
			result.Rows = append(result.Rows, f.Rows...)
			result.Columns = f.Columns
		}
	}

	c.logger.Debug().
		Int("bases_listed", len(raw)).
		Int("bases_fetched", fetched).
		Int("rows", len(result.Rows)).
		Msg("Fetched forecasts for window")

	return result, nil
}
