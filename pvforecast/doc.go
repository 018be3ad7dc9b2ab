// Package pvforecast provides a client for the Sheffield Solar PV_Forecast API.
//
// The client authenticates every request with a user id and API key, retries
// transient failures with exponential backoff, and decodes forecast payloads
// into rows or a column-typed Table.
//
// # Usage
//
//	logger := zerolog.New(os.Stderr)
//	client, err := pvforecast.NewClient(ctx, userID, apiKey, logger,
//		pvforecast.WithRetries(3),
//	)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	// Latest national forecast
//	forecast, err := client.Latest(ctx, pvforecast.NationalQuery())
//
//	// All 07:00 forecasts for GSP 120 over three days, as a table
//	forecasts, err := client.GetForecasts(ctx, pvforecast.Window{
//		Start:     time.Date(2021, 2, 20, 0, 0, 0, 0, time.UTC),
//		End:       time.Date(2021, 2, 23, 23, 0, 0, 0, time.UTC),
//		BaseTimes: []string{"07:00"},
//	}, pvforecast.Query{EntityType: pvforecast.EntityGSP, EntityID: 120})
//	table, err := forecasts.Table()
//
// # Error Handling
//
// Errors fall into four families, each matched with errors.Is:
//
//   - ErrAuthentication: invalid credentials (ErrInvalidCredentials) or
//     credentials without access to the resource (ErrUnauthorized)
//   - ErrCommunication: retries exhausted or an undecodable payload
//   - ErrValidation: rejected input, never sent to the API
//   - ErrRange: a window with a missing bound or end before start
//
// The typed errors (*ValidationError, *RangeError, ...) carry the offending
// value and can be recovered with errors.As.
package pvforecast
