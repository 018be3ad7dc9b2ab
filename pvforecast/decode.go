package pvforecast

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// legacyTimeLayout is the timestamp format of the v0 CSV payload.
const legacyTimeLayout = "2006-01-02 15:04:05"

// Decoder turns a fetched payload into rows and column names.
type Decoder interface {
	Decode(payload []byte) ([]Row, []string, error)
	// Format is the data_format query value the decoder expects.
	Format() string
}

// JSONDecoder decodes the {"data": [[...]], "meta": [...]} payload of the
// current API generation.
type JSONDecoder struct{}

type jsonPayload struct {
	Data []json.RawMessage `json:"data"`
	Meta []string          `json:"meta"`
}

func (JSONDecoder) Format() string { return "json" }

// Decode implements Decoder.
func (JSONDecoder) Decode(payload []byte) ([]Row, []string, error) {
	var p jsonPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, nil, fmt.Errorf("failed to decode response: %w", err)
	}

	rows := make([]Row, 0, len(p.Data))
	for i, raw := range p.Data {
		row, err := decodeJSONRow(raw)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to decode row %d: %w", i, err)
		}
		rows = append(rows, row)
	}
	return rows, p.Meta, nil
}

func decodeJSONRow(raw json.RawMessage) (Row, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var values []any
	if err := dec.Decode(&values); err != nil {
		return nil, err
	}

	row := make(Row, len(values))
	for i, v := range values {
		switch val := v.(type) {
		case json.Number:
			n, err := normalizeNumber(val)
			if err != nil {
				return nil, err
			}
			row[i] = n
		case string, nil:
			row[i] = val
		case bool:
			row[i] = val
		default:
			return nil, fmt.Errorf("unsupported value %v at position %d", v, i)
		}
	}
	return row, nil
}

// normalizeNumber keeps integral numbers as int64 and everything else as float64.
func normalizeNumber(n json.Number) (any, error) {
	s := n.String()
	if !strings.ContainsAny(s, ".eE") {
		if i, err := n.Int64(); err == nil {
			return i, nil
		}
	}
	return n.Float64()
}

// CSVDecoder decodes the delimited-text payload of the legacy (v0) API
// generation: a header line, then rows of id, two timestamps and floats.
type CSVDecoder struct{}

func (CSVDecoder) Format() string { return "csv" }

// Decode implements Decoder. The header line only supplies column names; all
// values are parsed by position.
func (CSVDecoder) Decode(payload []byte) ([]Row, []string, error) {
	r := csv.NewReader(bytes.NewReader(payload))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read header: %w", err)
	}
	columns := make([]string, len(header))
	for i, h := range header {
		columns[i] = strings.TrimSpace(h)
	}

	var rows []Row
	for line := 2; ; line++ {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("line %d: %w", line, err)
		}
		if len(record) < 3 {
			return nil, nil, fmt.Errorf("line %d: expected at least 3 fields, got %d", line, len(record))
		}
		row, err := decodeCSVRow(record)
		if err != nil {
			return nil, nil, fmt.Errorf("line %d: %w", line, err)
		}
		rows = append(rows, row)
	}
	return rows, columns, nil
}

func decodeCSVRow(record []string) (Row, error) {
	row := make(Row, len(record))

	id, err := strconv.ParseInt(strings.TrimSpace(record[0]), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid id %q: %w", record[0], err)
	}
	row[0] = id

	for i := 1; i <= 2; i++ {
		t, err := time.ParseInLocation(legacyTimeLayout, strings.TrimSpace(record[i]), time.UTC)
		if err != nil {
			return nil, fmt.Errorf("invalid timestamp %q: %w", record[i], err)
		}
		row[i] = FormatTime(t)
	}

	for i := 3; i < len(record); i++ {
		field := strings.TrimSpace(record[i])
		if field == "" {
			row[i] = nil
			continue
		}
		f, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid value %q in column %d: %w", field, i, err)
		}
		row[i] = f
	}
	return row, nil
}

// decodeBases extracts forecast base strings from a discovery response. The
// endpoint returns either a bare JSON array or the usual data/meta envelope.
func decodeBases(payload []byte) ([]string, error) {
	var bare []string
	if err := json.Unmarshal(payload, &bare); err == nil {
		return bare, nil
	}

	var envelope struct {
		Data []json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return nil, fmt.Errorf("failed to decode forecast bases: %w", err)
	}

	bases := make([]string, 0, len(envelope.Data))
	for _, raw := range envelope.Data {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			bases = append(bases, s)
			continue
		}
		var row []string
		if err := json.Unmarshal(raw, &row); err != nil || len(row) == 0 {
			return nil, fmt.Errorf("unexpected forecast base entry %s", string(raw))
		}
		bases = append(bases, row[0])
	}
	return bases, nil
}

// decodeIDs extracts the unique, non-null ids of column from a reference list.
func decodeIDs(payload []byte, column string) (map[int64]struct{}, error) {
	rows, meta, err := JSONDecoder{}.Decode(payload)
	if err != nil {
		return nil, err
	}

	idx := -1
	for i, name := range meta {
		if strings.EqualFold(name, column) {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("column %q missing from reference list", column)
	}

	ids := make(map[int64]struct{}, len(rows))
	for _, row := range rows {
		if idx >= len(row) || row[idx] == nil {
			continue
		}
		id, err := asInt(row[idx])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", column, err)
		}
		ids[id] = struct{}{}
	}
	return ids, nil
}
