package pvforecast

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"
)

// ColumnKind is the element type of a table column.
type ColumnKind int

const (
	KindInt ColumnKind = iota
	KindFloat
	KindTime
	KindObject
)

func (k ColumnKind) String() string {
	switch k {
	case KindInt:
		return "int64"
	case KindFloat:
		return "float64"
	case KindTime:
		return "datetime"
	default:
		return "object"
	}
}

// timeColumns are parsed into KindTime columns.
var timeColumns = map[string]bool{
	"forecast_base_gmt": true,
	"datetime_gmt":      true,
}

// Column is a typed table column. Only the slice matching Kind is populated.
type Column struct {
	Name    string
	Kind    ColumnKind
	Ints    []int64
	Floats  []float64
	Times   []time.Time
	Objects []any
}

// Value returns the i-th value boxed as any.
func (c *Column) Value(i int) any {
	switch c.Kind {
	case KindInt:
		return c.Ints[i]
	case KindFloat:
		return c.Floats[i]
	case KindTime:
		return c.Times[i]
	default:
		return c.Objects[i]
	}
}

func (c *Column) subset(idx []int) *Column {
	out := &Column{Name: c.Name, Kind: c.Kind}
	for _, i := range idx {
		switch c.Kind {
		case KindInt:
			out.Ints = append(out.Ints, c.Ints[i])
		case KindFloat:
			out.Floats = append(out.Floats, c.Floats[i])
		case KindTime:
			out.Times = append(out.Times, c.Times[i])
		default:
			out.Objects = append(out.Objects, c.Objects[i])
		}
	}
	return out
}

// Table is a labeled, column-typed view of forecast rows.
type Table struct {
	columns []*Column
	index   map[string]int
	nrows   int
}

// ToTable converts rows into a table. Column names are lower-cased and nil
// values become NaN; see ColumnKind for the typing rules.
func ToTable(rows []Row, columns []string) (*Table, error) {
	t := &Table{
		columns: make([]*Column, len(columns)),
		index:   make(map[string]int, len(columns)),
		nrows:   len(rows),
	}

	for i, row := range rows {
		if len(row) != len(columns) {
			return nil, fmt.Errorf("row %d has %d values, want %d", i, len(row), len(columns))
		}
	}

	for j, name := range columns {
		name = strings.ToLower(name)
		values := make([]any, len(rows))
		for i, row := range rows {
			values[i] = row[j]
		}
		col, err := buildColumn(name, values)
		if err != nil {
			return nil, err
		}
		t.columns[j] = col
		t.index[name] = j
	}
	return t, nil
}

func buildColumn(name string, values []any) (*Column, error) {
	col := &Column{Name: name}

	if timeColumns[name] {
		col.Kind = KindTime
		col.Times = make([]time.Time, len(values))
		for i, v := range values {
			t, err := asTime(v)
			if err != nil {
				return nil, fmt.Errorf("column %s row %d: %w", name, i, err)
			}
			col.Times[i] = t
		}
		return col, nil
	}

	col.Kind = inferKind(values)
	switch col.Kind {
	case KindInt:
		col.Ints = make([]int64, len(values))
		for i, v := range values {
			col.Ints[i] = v.(int64)
		}
	case KindFloat:
		col.Floats = make([]float64, len(values))
		for i, v := range values {
			f, err := asFloat(v)
			if err != nil {
				return nil, fmt.Errorf("column %s row %d: %w", name, i, err)
			}
			col.Floats[i] = f
		}
	default:
		col.Objects = make([]any, len(values))
		for i, v := range values {
			if v == nil {
				v = math.NaN()
			}
			col.Objects[i] = v
		}
	}
	return col, nil
}

// inferKind picks int64 for all-integer columns, float64 for numeric columns
// containing floats or nulls, and object for anything else. An empty or
// all-null column is float64.
func inferKind(values []any) ColumnKind {
	kind := KindInt
	for _, v := range values {
		switch v.(type) {
		case int64:
		case float64, nil:
			kind = KindFloat
		default:
			return KindObject
		}
	}
	if len(values) == 0 {
		return KindFloat
	}
	return kind
}

// Len returns the number of rows.
func (t *Table) Len() int { return t.nrows }

// Columns returns the column names in order.
func (t *Table) Columns() []string {
	names := make([]string, len(t.columns))
	for i, c := range t.columns {
		names[i] = c.Name
	}
	return names
}

// Column returns the named column.
func (t *Table) Column(name string) (*Column, bool) {
	i, ok := t.index[strings.ToLower(name)]
	if !ok {
		return nil, false
	}
	return t.columns[i], true
}

// Record returns row i keyed by column name.
func (t *Table) Record(i int) map[string]any {
	rec := make(map[string]any, len(t.columns))
	for _, c := range t.columns {
		rec[c.Name] = c.Value(i)
	}
	return rec
}

// Rows re-extracts the table as rows. Time columns yield time.Time values.
func (t *Table) Rows() []Row {
	rows := make([]Row, t.nrows)
	for i := range rows {
		row := make(Row, len(t.columns))
		for j, c := range t.columns {
			row[j] = c.Value(i)
		}
		rows[i] = row
	}
	return rows
}

// Subset returns a new table holding only the rows at idx, in that order.
func (t *Table) Subset(idx []int) *Table {
	out := &Table{
		columns: make([]*Column, len(t.columns)),
		index:   t.index,
		nrows:   len(idx),
	}
	for j, c := range t.columns {
		out.columns[j] = c.subset(idx)
	}
	return out
}

// WriteCSV writes the table with a header line. Floats use floatFormat
// (e.g. "%.3f"), NaN and zero times are written as empty fields.
func (t *Table) WriteCSV(w io.Writer, floatFormat string) error {
	if floatFormat == "" {
		floatFormat = "%g"
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns()); err != nil {
		return err
	}

	record := make([]string, len(t.columns))
	for i := 0; i < t.nrows; i++ {
		for j, c := range t.columns {
			record[j] = formatCell(c.Value(i), floatFormat)
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatCell(v any, floatFormat string) string {
	switch val := v.(type) {
	case nil:
		return ""
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		if math.IsNaN(val) {
			return ""
		}
		return fmt.Sprintf(floatFormat, val)
	case time.Time:
		if val.IsZero() {
			return ""
		}
		return val.UTC().Format("2006-01-02 15:04:05+00:00")
	default:
		return fmt.Sprint(val)
	}
}

func asInt(v any) (int64, error) {
	switch val := v.(type) {
	case int64:
		return val, nil
	case float64:
		if val != math.Trunc(val) || math.IsNaN(val) || math.IsInf(val, 0) {
			return 0, fmt.Errorf("non-integral value %v", val)
		}
		return int64(val), nil
	case string:
		return strconv.ParseInt(strings.TrimSpace(val), 10, 64)
	}
	return 0, fmt.Errorf("unexpected value %v (%T)", v, v)
}

func asFloat(v any) (float64, error) {
	switch val := v.(type) {
	case nil:
		return math.NaN(), nil
	case float64:
		return val, nil
	case int64:
		return float64(val), nil
	case string:
		return strconv.ParseFloat(strings.TrimSpace(val), 64)
	}
	return 0, fmt.Errorf("unexpected value %v (%T)", v, v)
}

func asTime(v any) (time.Time, error) {
	switch val := v.(type) {
	case nil:
		return time.Time{}, nil
	case time.Time:
		return val.UTC(), nil
	case string:
		return parseAPITime(val)
	}
	return time.Time{}, fmt.Errorf("unexpected value %v (%T)", v, v)
}
