package pvforecast

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient(t *testing.T) {
	api := newFakeAPI(t)
	client := newTestClient(t, api)

	assert.Equal(t, 2, api.requestCount(), "constructor fetches both reference lists")
	assert.True(t, client.HasEntity(EntityGSP, 120))
	assert.True(t, client.HasEntity(EntityPES, 23))
	assert.True(t, client.HasEntity(EntityPES, 0))
	assert.False(t, client.HasEntity(EntityGSP, 999))
	assert.False(t, client.HasEntity("region", 1))

	for _, u := range api.requests {
		assert.Equal(t, testUserID, u.Query().Get("user_id"))
		assert.Equal(t, testAPIKey, u.Query().Get("key"))
	}
}

func TestNewClientRequiresCredentials(t *testing.T) {
	tests := []struct {
		name   string
		userID string
		apiKey string
	}{
		{"missing user id", "", testAPIKey},
		{"missing api key", testUserID, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newFakeAPI(t)
			server := httptest.NewServer(api)
			defer server.Close()

			_, err := NewClient(context.Background(), tt.userID, tt.apiKey, zerolog.Nop(), WithBaseURL(server.URL+"/api/v4/"))
			require.Error(t, err)
			assert.Zero(t, api.requestCount())
		})
	}
}

func TestNewClientInvalidCredentials(t *testing.T) {
	api := newFakeAPI(t)
	server := httptest.NewServer(api)
	defer server.Close()

	_, err := NewClient(context.Background(), testUserID, "wrong", zerolog.Nop(),
		WithBaseURL(server.URL+"/api/v4"),
		WithRetryDelay(time.Millisecond),
	)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAuthentication)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.Equal(t, 1, api.requestCount(), "authentication failures are not retried")
	assert.NotContains(t, err.Error(), "wrong")
}

func TestNewClientUnreachable(t *testing.T) {
	api := newFakeAPI(t)
	api.override = func(w http.ResponseWriter, r *http.Request) bool {
		w.WriteHeader(http.StatusBadGateway)
		return true
	}
	server := httptest.NewServer(api)
	defer server.Close()

	_, err := NewClient(context.Background(), testUserID, testAPIKey, zerolog.Nop(),
		WithBaseURL(server.URL+"/api/v4/"),
		WithRetries(1),
		WithRetryDelay(time.Millisecond),
	)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCommunication)
	assert.Equal(t, 2, api.requestCount())
}

func TestLatest(t *testing.T) {
	api := newFakeAPI(t)
	base := time.Date(2021, 2, 20, 7, 0, 0, 0, time.UTC)
	api.forecasts[""] = halfHourly(0, base, 4)
	client := newTestClient(t, api)

	forecast, err := client.Latest(context.Background(), NationalQuery())
	require.NoError(t, err)
	assert.Equal(t, forecastMeta, forecast.Columns)
	assert.Equal(t, 4, forecast.Len())

	reqs := api.forecastRequests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "/api/v4/gsp/0", reqs[0].Path)
	assert.False(t, reqs[0].Query().Has("forecast_base_GMT"))
	assert.Equal(t, "json", reqs[0].Query().Get("data_format"))
}

func TestGetForecast(t *testing.T) {
	api := newFakeAPI(t)
	base := time.Date(2021, 2, 20, 7, 0, 0, 0, time.UTC)
	api.forecasts[FormatTime(base)] = halfHourly(120, base, 3)
	client := newTestClient(t, api)

	forecast, err := client.GetForecast(context.Background(), base.In(time.FixedZone("CET", 3600)),
		Query{EntityType: EntityGSP, EntityID: 120, ExtraFields: "ucl,lcl"})
	require.NoError(t, err)
	require.Equal(t, 3, forecast.Len())
	assert.Equal(t, int64(120), forecast.Rows[0][0])

	reqs := api.forecastRequests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "/api/v4/gsp/120", reqs[0].Path)
	assert.Equal(t, "2021-02-20T07:00:00Z", reqs[0].Query().Get("forecast_base_GMT"))
	assert.Equal(t, "ucl,lcl", reqs[0].Query().Get("extra_fields"))

	// Parameter order is fixed.
	raw := reqs[0].RawQuery
	assert.True(t, strings.HasPrefix(raw, "forecast_base_GMT="), raw)
	assert.True(t, strings.HasSuffix(raw, "data_format=json"), raw)
}

func TestGetForecastValidationMakesNoRequest(t *testing.T) {
	tests := []struct {
		name string
		base time.Time
		q    Query
		kind error
	}{
		{"naive base", time.Time{}, NationalQuery(), ErrNaiveTimestamp},
		{"unknown entity", time.Now(), Query{EntityType: EntityGSP, EntityID: 999}, ErrEntityNotFound},
		{"bad entity type", time.Now(), Query{EntityType: "region"}, ErrInvalidEntityType},
		{"spaced extra fields", time.Now(), Query{EntityType: EntityGSP, ExtraFields: "a, b"}, ErrInvalidExtraFields},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newFakeAPI(t)
			client := newTestClient(t, api)
			before := api.requestCount()

			_, err := client.GetForecast(context.Background(), tt.base, tt.q)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrValidation)
			assert.ErrorIs(t, err, tt.kind)
			assert.Equal(t, before, api.requestCount())
		})
	}
}

func TestGetForecastUndecodablePayload(t *testing.T) {
	api := newFakeAPI(t)
	api.forecasts[""] = "not a table"
	client := newTestClient(t, api)

	_, err := client.Latest(context.Background(), NationalQuery())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCommunication)
}

func TestGetForecastUnauthorized(t *testing.T) {
	api := newFakeAPI(t)
	client := newTestClient(t, api)
	api.override = func(w http.ResponseWriter, r *http.Request) bool {
		if !strings.Contains(r.URL.Path, "/pes/") {
			return false
		}
		w.Write([]byte(`{"error": "Your account does not give access to PES forecasts"}`))
		return true
	}

	_, err := client.Latest(context.Background(), Query{EntityType: EntityPES, EntityID: 23})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAuthentication)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestGetForecastBases(t *testing.T) {
	api := newFakeAPI(t)
	api.bases = []string{"2021-02-20T07:00:00Z", "2021-02-20T07:30:00Z"}
	client := newTestClient(t, api)

	start := time.Date(2021, 2, 20, 0, 0, 0, 0, time.UTC)
	end := time.Date(2021, 2, 21, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		forecastType ForecastType
		path         string
	}{
		{ForecastNational, "/api/v4/forecast_bases_list/0"},
		{ForecastRegional, "/api/v4/forecast_bases_list/1"},
	}

	for _, tt := range tests {
		t.Run(string(tt.forecastType), func(t *testing.T) {
			bases, err := client.GetForecastBases(context.Background(), start, end, tt.forecastType)
			require.NoError(t, err)
			assert.Equal(t, api.bases, bases)

			api.mu.Lock()
			last := api.requests[len(api.requests)-1]
			api.mu.Unlock()
			assert.Equal(t, tt.path, last.Path)
			assert.Equal(t, "2021-02-20T00:00:00Z", last.Query().Get("start"))
			assert.Equal(t, "2021-02-21T00:00:00Z", last.Query().Get("end"))
		})
	}
}

func TestGetForecastBasesRejectsInput(t *testing.T) {
	api := newFakeAPI(t)
	client := newTestClient(t, api)
	start := time.Date(2021, 2, 20, 0, 0, 0, 0, time.UTC)
	before := api.requestCount()

	_, err := client.GetForecastBases(context.Background(), start, start.Add(time.Hour), "hourly")
	assert.ErrorIs(t, err, ErrInvalidForecastType)

	_, err = client.GetForecastBases(context.Background(), start, start.Add(-time.Hour), ForecastNational)
	assert.ErrorIs(t, err, ErrRangeOrder)

	_, err = client.GetForecastBases(context.Background(), time.Time{}, start, ForecastNational)
	assert.ErrorIs(t, err, ErrRangeNaive)

	assert.Equal(t, before, api.requestCount())
}

func TestLegacyCSVClient(t *testing.T) {
	api := newFakeAPI(t)
	api.override = func(w http.ResponseWriter, r *http.Request) bool {
		if !strings.Contains(r.URL.Path, "/gsp/") {
			return false
		}
		assert.Equal(t, "csv", r.URL.Query().Get("data_format"))
		w.Write([]byte("region_id,forecast_base_GMT,datetime_GMT,generation_MW\n" +
			"0,2019-06-01 07:00:00,2019-06-01 07:30:00,1234.5\n"))
		return true
	}
	client := newTestClient(t, api, WithLegacyCSV())

	forecast, err := client.Latest(context.Background(), NationalQuery())
	require.NoError(t, err)
	require.Equal(t, 1, forecast.Len())
	assert.Equal(t, "generation_MW", forecast.Columns[3])
	assert.Equal(t, 1234.5, forecast.Rows[0][3])
}
