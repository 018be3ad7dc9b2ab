package pvforecast

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

const (
	testUserID = "1234"
	testAPIKey = "secret-key"
)

var forecastMeta = []string{"gsp_id", "forecast_base_gmt", "datetime_gmt", "generation_mw"}

// fakeAPI is an in-memory PV_Forecast API.
type fakeAPI struct {
	t *testing.T

	mu       sync.Mutex
	requests []*url.URL

	gspIDs []int64
	pesIDs []int64
	// bases is returned by forecast_bases_list; nil means an empty list.
	bases []string
	// forecasts maps forecast_base_GMT ("" for latest) to a payload.
	forecasts map[string]any
	// override handles a request before the router when it returns true.
	override func(w http.ResponseWriter, r *http.Request) bool
}

func newFakeAPI(t *testing.T) *fakeAPI {
	return &fakeAPI{
		t:         t,
		gspIDs:    []int64{0, 26, 103, 120},
		pesIDs:    []int64{10, 23},
		forecasts: make(map[string]any),
	}
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.requests = append(f.requests, r.URL)
	f.mu.Unlock()

	if f.override != nil && f.override(w, r) {
		return
	}

	q := r.URL.Query()
	if q.Get("user_id") != testUserID || q.Get("key") != testAPIKey {
		w.Write([]byte(`{"error": "Your api key is not valid."}`))
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/api/v4/")
	switch {
	case path == "gsp_list":
		writeJSON(w, listPayload("gsp_id", f.gspIDs))
	case path == "pes_list":
		writeJSON(w, listPayload("pes_id", f.pesIDs))
	case strings.HasPrefix(path, "forecast_bases_list/"):
		bases := f.bases
		if bases == nil {
			bases = []string{}
		}
		writeJSON(w, bases)
	case strings.HasPrefix(path, "gsp/"), strings.HasPrefix(path, "pes/"):
		payload, ok := f.forecasts[q.Get("forecast_base_GMT")]
		if !ok {
			payload = map[string]any{"data": [][]any{}, "meta": forecastMeta}
		}
		writeJSON(w, payload)
	default:
		http.NotFound(w, r)
	}
}

// forecastRequests returns the requests made to forecast endpoints.
func (f *fakeAPI) forecastRequests() []*url.URL {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*url.URL
	for _, u := range f.requests {
		if strings.Contains(u.Path, "/gsp/") || strings.Contains(u.Path, "/pes/") {
			out = append(out, u)
		}
	}
	return out
}

func (f *fakeAPI) requestCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func listPayload(column string, ids []int64) map[string]any {
	data := make([][]any, len(ids))
	for i, id := range ids {
		data[i] = []any{id, "name"}
	}
	return map[string]any{"data": data, "meta": []string{column, "name"}}
}

// halfHourly builds n half-hourly rows for entity id starting at base.
func halfHourly(id int64, base time.Time, n int) map[string]any {
	data := make([][]any, n)
	for i := range data {
		target := base.Add(time.Duration(i+1) * 30 * time.Minute)
		data[i] = []any{id, FormatTime(base), FormatTime(target), float64(i)*1.5 + 0.25}
	}
	return map[string]any{"data": data, "meta": forecastMeta}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

// newTestClient starts a fake API and a client connected to it.
func newTestClient(t *testing.T, api *fakeAPI, opts ...Option) *Client {
	t.Helper()
	server := httptest.NewServer(api)
	t.Cleanup(server.Close)

	opts = append([]Option{WithBaseURL(server.URL + "/api/v4/"), WithRetryDelay(time.Millisecond)}, opts...)
	client, err := NewClient(context.Background(), testUserID, testAPIKey, zerolog.Nop(), opts...)
	require.NoError(t, err)
	return client
}
