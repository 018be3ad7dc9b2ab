package pvforecast

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Client is a PV_Forecast API client. It owns the entity reference lists
// fetched at construction; build a new client to refresh them.
type Client struct {
	baseURL string
	creds   Credentials
	fetcher *fetcher
	decoder Decoder
	refs    references
	logger  zerolog.Logger
}

// NewClient creates a new PV_Forecast client and eagerly fetches the pes and
// gsp reference lists used to validate entity ids.
func NewClient(ctx context.Context, userID, apiKey string, logger zerolog.Logger, opts ...Option) (*Client, error) {
	if userID == "" {
		return nil, fmt.Errorf("user_id is required")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("api_key is required")
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	// Ensure base URL ends with a slash
	baseURL := strings.TrimRight(o.baseURL, "/") + "/"

	c := &Client{
		baseURL: baseURL,
		creds:   Credentials{UserID: userID, APIKey: apiKey},
		fetcher: newFetcher(o, logger),
		decoder: o.decoder,
		logger:  logger,
	}

	var err error
	if c.refs.gsp, err = c.fetchReferenceIDs(ctx, "gsp_list", EntityGSP.IDColumn()); err != nil {
		return nil, fmt.Errorf("failed to fetch GSP list: %w", err)
	}
	if c.refs.pes, err = c.fetchReferenceIDs(ctx, "pes_list", EntityPES.IDColumn()); err != nil {
		return nil, fmt.Errorf("failed to fetch PES list: %w", err)
	}

	logger.Debug().
		Int("gsp_count", len(c.refs.gsp)).
		Int("pes_count", len(c.refs.pes)).
		Msg("Loaded PV_Forecast reference lists")

	return c, nil
}

func (c *Client) fetchReferenceIDs(ctx context.Context, endpoint, column string) (map[int64]struct{}, error) {
	params := appendCredentials(nil, c.creds, JSONDecoder{}.Format())
	body, err := c.fetcher.fetch(ctx, c.baseURL+endpoint+"?"+params.Encode())
	if err != nil {
		return nil, err
	}
	ids, err := decodeIDs(body, column)
	if err != nil {
		return nil, &CommunicationError{URL: endpoint, Attempts: 1, Err: err}
	}
	return ids, nil
}

// HasEntity reports whether id is a known identifier for the entity type.
// Zero (the national aggregate) is always known.
func (c *Client) HasEntity(entityType EntityType, id int64) bool {
	return c.refs.validate(nil, Query{EntityType: entityType, EntityID: id}) == nil
}

// Latest returns the most recent forecast for the query.
func (c *Client) Latest(ctx context.Context, q Query) (*Forecast, error) {
	return c.getForecast(ctx, nil, q)
}

// GetForecast returns the forecast issued at base for the query.
func (c *Client) GetForecast(ctx context.Context, base time.Time, q Query) (*Forecast, error) {
	return c.getForecast(ctx, &base, q)
}

func (c *Client) getForecast(ctx context.Context, base *time.Time, q Query) (*Forecast, error) {
	if err := c.refs.validate(base, q); err != nil {
		return nil, err
	}

	params := compileParams(base, q.ExtraFields, c.creds, c.decoder.Format())
	requestURL := c.buildURL(string(q.EntityType), q.EntityID, params)

	ev := c.logger.Debug().Str("url", redactURL(requestURL))
	if base != nil {
		ev = ev.Time("forecast_base", base.UTC())
	}
	ev.Msg("Fetching forecast")

	body, err := c.fetcher.fetch(ctx, requestURL)
	if err != nil {
		return nil, err
	}

	rows, columns, err := c.decoder.Decode(body)
	if err != nil {
		return nil, &CommunicationError{URL: redactURL(requestURL), Attempts: 1, Err: err}
	}
	return &Forecast{Columns: columns, Rows: rows}, nil
}

// GetForecastBases lists the forecast bases available between start and end.
func (c *Client) GetForecastBases(ctx context.Context, start, end time.Time, forecastType ForecastType) ([]string, error) {
	if err := validateRange(start, end); err != nil {
		return nil, err
	}
	id, ok := forecastType.endpointID()
	if !ok {
		return nil, &ValidationError{Field: "forecast_type", Value: string(forecastType), Kind: ErrInvalidForecastType}
	}

	var params Params
	params.Add("start", FormatTime(start))
	params.Add("end", FormatTime(end))
	params = appendCredentials(params, c.creds, JSONDecoder{}.Format())
	requestURL := c.buildURL("forecast_bases_list", int64(id), params)

	body, err := c.fetcher.fetch(ctx, requestURL)
	if err != nil {
		return nil, err
	}
	bases, err := decodeBases(body)
	if err != nil {
		return nil, &CommunicationError{URL: redactURL(requestURL), Attempts: 1, Err: err}
	}
	return bases, nil
}

// buildURL constructs {base}{segment}/{id}?{params}.
func (c *Client) buildURL(segment string, id int64, params Params) string {
	return fmt.Sprintf("%s%s/%d?%s", c.baseURL, segment, id, params.Encode())
}
