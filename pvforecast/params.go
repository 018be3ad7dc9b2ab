package pvforecast

import (
	"net/url"
	"strings"
	"time"
)

// Param is a single query-string parameter.
type Param struct {
	Key   string
	Value string
}

// Params is an ordered list of query-string parameters.
type Params []Param

// Add appends a parameter.
func (p *Params) Add(key, value string) {
	*p = append(*p, Param{Key: key, Value: value})
}

// Get returns the first value for key.
func (p Params) Get(key string) (string, bool) {
	for _, kv := range p {
		if kv.Key == key {
			return kv.Value, true
		}
	}
	return "", false
}

// Encode renders the parameters in order as a query string.
func (p Params) Encode() string {
	var sb strings.Builder
	for i, kv := range p {
		if i > 0 {
			sb.WriteByte('&')
		}
		sb.WriteString(url.QueryEscape(kv.Key))
		sb.WriteByte('=')
		sb.WriteString(url.QueryEscape(kv.Value))
	}
	return sb.String()
}

const isoLayout = "2006-01-02T15:04:05.999999Z07:00"

// FormatTime formats t as ISO-8601 in UTC with a "Z" suffix.
func FormatTime(t time.Time) string {
	return t.UTC().Format(isoLayout)
}

// compileParams assembles the query for a forecast request. The base is
// omitted when nil, which the API treats as "most recent".
func compileParams(base *time.Time, extraFields string, creds Credentials, dataFormat string) Params {
	var p Params
	if base != nil {
		p.Add("forecast_base_GMT", FormatTime(*base))
	}
	if extraFields != "" {
		p.Add("extra_fields", extraFields)
	}
	return appendCredentials(p, creds, dataFormat)
}

func appendCredentials(p Params, creds Credentials, dataFormat string) Params {
	p.Add("user_id", creds.UserID)
	p.Add("key", creds.APIKey)
	p.Add("data_format", dataFormat)
	return p
}

// ParseTime parses an ISO-8601 timestamp that carries zone information
// ("Z" or a numeric offset). Zone-less input is rejected with
// ErrNaiveTimestamp rather than assumed to be UTC.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05Z07:00", "2006-01-02T15:04Z07:00"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, &ValidationError{Field: "timestamp", Value: s, Kind: ErrNaiveTimestamp}
}

// parseAPITime parses timestamps as returned by the API. The API reports
// *_gmt columns, so zone-less values are read as UTC.
func parseAPITime(s string) (time.Time, error) {
	if t, err := ParseTime(s); err == nil {
		return t, nil
	}
	var lastErr error
	for _, layout := range []string{"2006-01-02T15:04:05.999999999", legacyTimeLayout, "2006-01-02"} {
		t, err := time.ParseInLocation(layout, strings.TrimSpace(s), time.UTC)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}
