package pvforecast

import (
	"context"
	"time"
)

// API defines the PV_Forecast operations used by callers such as the CLI.
type API interface {
	// Latest returns the most recent forecast
	Latest(ctx context.Context, q Query) (*Forecast, error)

	// GetForecast returns the forecast issued at base
	GetForecast(ctx context.Context, base time.Time, q Query) (*Forecast, error)

	// GetForecasts returns every forecast issued within the window
	GetForecasts(ctx context.Context, w Window, q Query) (*Forecast, error)

	// GetForecastBases lists the forecast bases issued within [start, end]
	GetForecastBases(ctx context.Context, start, end time.Time, forecastType ForecastType) ([]string, error)
}

var _ API = (*Client)(nil)
