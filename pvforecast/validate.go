package pvforecast

import (
	"regexp"
	"strings"
	"time"
)

// references holds the entity ids fetched at construction. It is never
// mutated afterwards and is safe for concurrent readers.
type references struct {
	pes map[int64]struct{}
	gsp map[int64]struct{}
}

// validate checks a forecast request before any network call. base is nil
// when the latest forecast is requested.
func (r *references) validate(base *time.Time, q Query) error {
	if base != nil && base.IsZero() {
		return &ValidationError{Field: "forecast_base_gmt", Value: *base, Kind: ErrNaiveTimestamp}
	}

	var ids map[int64]struct{}
	switch q.EntityType {
	case EntityPES:
		ids = r.pes
	case EntityGSP:
		ids = r.gsp
	default:
		return &ValidationError{Field: "entity_type", Value: string(q.EntityType), Kind: ErrInvalidEntityType}
	}

	if strings.ContainsAny(q.ExtraFields, " \t\r\n") {
		return &ValidationError{Field: "extra_fields", Value: q.ExtraFields, Kind: ErrInvalidExtraFields}
	}

	if q.EntityID == 0 {
		return nil
	}
	if _, ok := ids[q.EntityID]; !ok {
		return &ValidationError{Field: q.EntityType.IDColumn(), Value: q.EntityID, Kind: ErrEntityNotFound}
	}
	return nil
}

// validateRange requires both bounds to be set and end >= start.
func validateRange(start, end time.Time) error {
	if start.IsZero() || end.IsZero() {
		return &RangeError{Start: start, End: end, Kind: ErrRangeNaive}
	}
	if end.Before(start) {
		return &RangeError{Start: start, End: end, Kind: ErrRangeOrder}
	}
	return nil
}

var clockTimePattern = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

// validateBaseTimes requires every entry to be a zero-padded HH:MM clock time.
func validateBaseTimes(times []string) error {
	for _, t := range times {
		if !clockTimePattern.MatchString(t) {
			return &ValidationError{Field: "forecast_base_times", Value: t, Kind: ErrInvalidClockTime}
		}
	}
	return nil
}
