package pvforecast

import (
	"fmt"
	"strings"
	"time"
)

// EntityType selects the aggregation unit a forecast is reported for.
type EntityType string

const (
	// EntityPES is a regional (PES) grouping.
	EntityPES EntityType = "pes"
	// EntityGSP is a grid supply point.
	EntityGSP EntityType = "gsp"
)

// IDColumn returns the name of the identifier column for the entity type.
func (e EntityType) IDColumn() string {
	return string(e) + "_id"
}

// ForecastType selects which discovery endpoint variant is queried.
type ForecastType string

const (
	ForecastNational ForecastType = "national"
	ForecastRegional ForecastType = "regional"
)

// endpointID maps the forecast type to its forecast_bases_list path segment.
func (f ForecastType) endpointID() (int, bool) {
	switch ForecastType(strings.ToLower(string(f))) {
	case ForecastNational:
		return 0, true
	case ForecastRegional:
		return 1, true
	}
	return 0, false
}

// Credentials are attached to every outgoing request.
type Credentials struct {
	UserID string
	APIKey string
}

// Query selects the entity and output fields of a forecast request.
// EntityID 0 means the national aggregate.
type Query struct {
	EntityType  EntityType
	EntityID    int64
	ExtraFields string
}

// NationalQuery returns a query for the national GSP aggregate.
func NationalQuery() Query {
	return Query{EntityType: EntityGSP}
}

func (q Query) forecastType() ForecastType {
	if q.EntityID == 0 {
		return ForecastNational
	}
	return ForecastRegional
}

// Window describes a paginated request. BaseTimes optionally restricts the
// forecast bases fetched to those whose UTC clock time (HH:MM) is listed.
type Window struct {
	Start     time.Time
	End       time.Time
	BaseTimes []string
}

// Row is one decoded row. Values are int64, float64, string, bool or nil.
type Row []any

// Forecast is a list-of-rows result with its column names.
type Forecast struct {
	Columns []string
	Rows    []Row
}

// Len returns the number of rows.
func (f *Forecast) Len() int {
	if f == nil {
		return 0
	}
	return len(f.Rows)
}

// Table converts the forecast into a column-typed table.
func (f *Forecast) Table() (*Table, error) {
	return ToTable(f.Rows, f.Columns)
}

// ForecastRow is the typed view of a single forecast row.
type ForecastRow struct {
	EntityID     int64
	ForecastBase time.Time
	Target       time.Time
	GenerationMW float64
	Extra        map[string]any
}

// Records returns the typed view of every row. The first four columns must be
// the entity id, forecast base, target time and generation; any further
// columns are returned in Extra keyed by lower-cased column name.
func (f *Forecast) Records() ([]ForecastRow, error) {
	if len(f.Rows) == 0 {
		return nil, nil
	}
	if len(f.Columns) < 4 {
		return nil, fmt.Errorf("forecast has %d columns, need at least 4", len(f.Columns))
	}

	records := make([]ForecastRow, 0, len(f.Rows))
	for i, row := range f.Rows {
		if len(row) != len(f.Columns) {
			return nil, fmt.Errorf("row %d has %d values, want %d", i, len(row), len(f.Columns))
		}
		var rec ForecastRow
		var err error
		if rec.EntityID, err = asInt(row[0]); err != nil {
			return nil, fmt.Errorf("row %d: %s: %w", i, f.Columns[0], err)
		}
		if rec.ForecastBase, err = asTime(row[1]); err != nil {
			return nil, fmt.Errorf("row %d: %s: %w", i, f.Columns[1], err)
		}
		if rec.Target, err = asTime(row[2]); err != nil {
			return nil, fmt.Errorf("row %d: %s: %w", i, f.Columns[2], err)
		}
		if rec.GenerationMW, err = asFloat(row[3]); err != nil {
			return nil, fmt.Errorf("row %d: %s: %w", i, f.Columns[3], err)
		}
		if len(row) > 4 {
			rec.Extra = make(map[string]any, len(row)-4)
			for j := 4; j < len(row); j++ {
				rec.Extra[strings.ToLower(f.Columns[j])] = row[j]
			}
		}
		records = append(records, rec)
	}
	return records, nil
}
