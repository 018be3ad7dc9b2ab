package pvforecast

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompileParams(t *testing.T) {
	creds := Credentials{UserID: "1234", APIKey: "abc"}
	base := time.Date(2021, 2, 20, 7, 0, 0, 0, time.UTC)

	tests := []struct {
		name        string
		base        *time.Time
		extraFields string
		want        string
	}{
		{
			name: "latest without extra fields",
			want: "user_id=1234&key=abc&data_format=json",
		},
		{
			name:        "base and extra fields",
			base:        &base,
			extraFields: "cap,ucl",
			want:        "forecast_base_GMT=2021-02-20T07%3A00%3A00Z&extra_fields=cap%2Cucl&user_id=1234&key=abc&data_format=json",
		},
		{
			name: "base only",
			base: &base,
			want: "forecast_base_GMT=2021-02-20T07%3A00%3A00Z&user_id=1234&key=abc&data_format=json",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := compileParams(tt.base, tt.extraFields, creds, "json")
			assert.Equal(t, tt.want, got.Encode())
		})
	}
}

func TestCompileParamsConvertsToUTC(t *testing.T) {
	paris := time.FixedZone("CET", 3600)
	base := time.Date(2021, 2, 20, 8, 0, 0, 0, paris)

	p := compileParams(&base, "", Credentials{UserID: "1", APIKey: "k"}, "csv")
	got, ok := p.Get("forecast_base_GMT")
	require.True(t, ok)
	assert.Equal(t, "2021-02-20T07:00:00Z", got)

	format, ok := p.Get("data_format")
	require.True(t, ok)
	assert.Equal(t, "csv", format)

	_, ok = p.Get("extra_fields")
	assert.False(t, ok)
}

func TestFormatTime(t *testing.T) {
	tests := []struct {
		name string
		in   time.Time
		want string
	}{
		{"whole seconds", time.Date(2021, 2, 20, 7, 0, 0, 0, time.UTC), "2021-02-20T07:00:00Z"},
		{"microseconds", time.Date(2021, 2, 20, 7, 0, 0, 250000000, time.UTC), "2021-02-20T07:00:00.25Z"},
		{"offset", time.Date(2021, 6, 1, 1, 30, 0, 0, time.FixedZone("BST", 3600)), "2021-06-01T00:30:00Z"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatTime(tt.in))
		})
	}
}

func TestParseTime(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    time.Time
		wantErr bool
	}{
		{"utc suffix", "2021-02-20T07:00:00Z", time.Date(2021, 2, 20, 7, 0, 0, 0, time.UTC), false},
		{"numeric offset", "2021-02-20T08:00:00+01:00", time.Date(2021, 2, 20, 7, 0, 0, 0, time.UTC), false},
		{"space separator", "2021-02-20 07:00:00+00:00", time.Date(2021, 2, 20, 7, 0, 0, 0, time.UTC), false},
		{"minute precision", "2021-02-20T07:00Z", time.Date(2021, 2, 20, 7, 0, 0, 0, time.UTC), false},
		{"naive", "2021-02-20T07:00:00", time.Time{}, true},
		{"naive with space", "2021-02-20 07:00:00", time.Time{}, true},
		{"garbage", "yesterday", time.Time{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTime(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrValidation)
				assert.ErrorIs(t, err, ErrNaiveTimestamp)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s", got)
			assert.Equal(t, time.UTC, got.Location())
		})
	}
}

func TestParseAPITimeAcceptsNaive(t *testing.T) {
	want := time.Date(2021, 2, 20, 7, 0, 0, 0, time.UTC)
	for _, in := range []string{"2021-02-20T07:00:00Z", "2021-02-20T07:00:00", "2021-02-20 07:00:00"} {
		got, err := parseAPITime(in)
		require.NoError(t, err, in)
		assert.True(t, want.Equal(got), in)
	}

	_, err := parseAPITime("not a time")
	assert.Error(t, err)
}
