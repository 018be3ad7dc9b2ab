package pvforecast

import (
	"errors"
	"fmt"
	"time"
)

// Error families. Every error returned by the client matches exactly one of
// these with errors.Is.
var (
	// ErrAuthentication indicates the API rejected the credentials.
	ErrAuthentication = errors.New("authentication failed")
	// ErrCommunication indicates the API could not be reached or returned an unusable payload.
	ErrCommunication = errors.New("error communicating with the PV_Forecast API")
	// ErrValidation indicates a malformed or unknown input value.
	ErrValidation = errors.New("invalid input")
	// ErrRange indicates an invalid start/end window.
	ErrRange = errors.New("invalid time range")
)

// Authentication kinds.
var (
	ErrInvalidCredentials = errors.New("the user_id and/or api_key entered are invalid")
	ErrUnauthorized       = errors.New("the user_id and api_key do not give access to the data requested")
)

// Validation kinds.
var (
	ErrNaiveTimestamp      = errors.New("timestamp must be timezone-aware")
	ErrInvalidEntityType   = errors.New("entity_type must be either 'pes' or 'gsp'")
	ErrInvalidExtraFields  = errors.New("extra_fields must be a comma-separated string with no spaces")
	ErrEntityNotFound      = errors.New("identifier not found")
	ErrInvalidClockTime    = errors.New("forecast base times must be time strings in the format HH:MM")
	ErrInvalidForecastType = errors.New("forecast_type must be 'national' or 'regional'")
)

// Range kinds.
var (
	ErrRangeNaive = errors.New("start and end must be timezone-aware")
	ErrRangeOrder = errors.New("end must be later than start")
)

// AuthenticationError is returned when a 200 response carries one of the
// API's authentication failure markers.
type AuthenticationError struct {
	Kind error
	URL  string
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("%s: %s", ErrAuthentication, e.Kind)
}

func (e *AuthenticationError) Unwrap() []error {
	return []error{ErrAuthentication, e.Kind}
}

// CommunicationError is returned when the retry budget is exhausted or the
// payload cannot be decoded.
type CommunicationError struct {
	URL        string
	Attempts   int
	StatusCode int // last HTTP status seen, 0 if none
	Err        error
}

func (e *CommunicationError) Error() string {
	switch {
	case e.StatusCode != 0:
		return fmt.Sprintf("%s: status %d after %d attempt(s)", ErrCommunication, e.StatusCode, e.Attempts)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", ErrCommunication, e.Err)
	}
	return ErrCommunication.Error()
}

func (e *CommunicationError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrCommunication}
	}
	return []error{ErrCommunication, e.Err}
}

// ValidationError describes a rejected input value.
type ValidationError struct {
	Field string
	Value any
	Kind  error
}

func (e *ValidationError) Error() string {
	switch e.Kind {
	case ErrEntityNotFound:
		return fmt.Sprintf("the %s %v was not found", e.Field, e.Value)
	case ErrNaiveTimestamp:
		return fmt.Sprintf("the %s must be a timezone-aware timestamp", e.Field)
	}
	return fmt.Sprintf("%s (got %q)", e.Kind, fmt.Sprint(e.Value))
}

func (e *ValidationError) Unwrap() []error {
	return []error{ErrValidation, e.Kind}
}

// RangeError describes a rejected start/end window.
type RangeError struct {
	Start time.Time
	End   time.Time
	Kind  error
}

func (e *RangeError) Error() string {
	if e.Kind == ErrRangeOrder {
		return fmt.Sprintf("%s (start %s, end %s)", e.Kind,
			e.Start.UTC().Format(time.RFC3339), e.End.UTC().Format(time.RFC3339))
	}
	return e.Kind.Error()
}

func (e *RangeError) Unwrap() []error {
	return []error{ErrRange, e.Kind}
}
