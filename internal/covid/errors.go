package covid

import "errors"

var (
	// ErrInvalidTimestamp is returned when an epoch value cannot be turned into a date.
	ErrInvalidTimestamp = errors.New("invalid timestamp")

	// ErrNetwork is returned when the upstream service could not be reached.
	ErrNetwork = errors.New("network error")

	// ErrUpstream is returned for failed statuses or malformed upstream bodies.
	ErrUpstream = errors.New("upstream error")

	// ErrUnknownCounty is returned when a county is not configured or has no data.
	ErrUnknownCounty = errors.New("unknown county")

	// ErrInsufficientData is returned when there are no records to aggregate.
	ErrInsufficientData = errors.New("insufficient data")

	// ErrInvalidValue is returned when a count field is not numeric.
	ErrInvalidValue = errors.New("invalid value")
)
