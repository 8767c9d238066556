package covid

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// DateField is the attribute carrying the feature timestamp.
const DateField = "date"

// DateLayout is the layout of normalized record dates.
const DateLayout = "2006-01-02"

// maxEpochMillis bounds plausible timestamps (2100-01-01T00:00:00Z).
var maxEpochMillis = time.Date(2100, time.January, 1, 0, 0, 0, 0, time.UTC).UnixMilli()

// Normalizer converts epoch milliseconds into calendar dates in a fixed location.
type Normalizer struct {
	loc *time.Location
}

// NewNormalizer returns a Normalizer for loc. A nil loc means UTC.
func NewNormalizer(loc *time.Location) *Normalizer {
	if loc == nil {
		loc = time.UTC
	}
	return &Normalizer{loc: loc}
}

// Location returns the zone dates are computed in.
func (n *Normalizer) Location() *time.Location {
	return n.loc
}

// Normalize formats ms (milliseconds since the epoch) as YYYY-MM-DD.
func (n *Normalizer) Normalize(ms int64) (string, error) {
	if ms < 0 || ms >= maxEpochMillis {
		return "", fmt.Errorf("%w: %d is outside the supported range", ErrInvalidTimestamp, ms)
	}
	return time.UnixMilli(ms).In(n.loc).Format(DateLayout), nil
}

// NormalizeValue normalizes a decoded JSON value holding epoch milliseconds.
func (n *Normalizer) NormalizeValue(v any) (string, error) {
	ms, err := epochMillis(v)
	if err != nil {
		return "", err
	}
	return n.Normalize(ms)
}

// Decorate returns a copy of rec whose "date" is replaced by its normalized form.
func (n *Normalizer) Decorate(rec map[string]any) (Record, error) {
	raw, ok := rec[DateField]
	if !ok {
		return nil, fmt.Errorf("%w: record has no %q attribute", ErrInvalidTimestamp, DateField)
	}
	date, err := n.NormalizeValue(raw)
	if err != nil {
		return nil, err
	}

	out := make(Record, len(rec))
	for k, v := range rec {
		out[k] = v
	}
	out[DateField] = date
	return out, nil
}

// DecorateAll decorates the attributes of every feature, keeping order.
func (n *Normalizer) DecorateAll(features []RawFeature) ([]Record, error) {
	records := make([]Record, 0, len(features))
	for i, f := range features {
		rec, err := n.Decorate(f.Attributes)
		if err != nil {
			return nil, fmt.Errorf("feature %d: %w", i, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

func epochMillis(v any) (int64, error) {
	switch t := v.(type) {
	case json.Number:
		if ms, err := t.Int64(); err == nil {
			return ms, nil
		}
		f, err := t.Float64()
		if err != nil {
			return 0, fmt.Errorf("%w: %q is not a number", ErrInvalidTimestamp, t.String())
		}
		return integralFloat(f, ErrInvalidTimestamp)
	case int64:
		return t, nil
	case int:
		return int64(t), nil
	case int32:
		return int64(t), nil
	case float64:
		return integralFloat(t, ErrInvalidTimestamp)
	default:
		return 0, fmt.Errorf("%w: unsupported type %T", ErrInvalidTimestamp, v)
	}
}

// countValue reads a daily count. Upstream nulls count as zero.
func countValue(v any) (int64, error) {
	switch t := v.(type) {
	case nil:
		return 0, nil
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return n, nil
		}
		f, err := t.Float64()
		if err != nil {
			return 0, fmt.Errorf("%w: %q is not a number", ErrInvalidValue, t.String())
		}
		return integralFloat(f, ErrInvalidValue)
	case int64:
		return t, nil
	case int:
		return int64(t), nil
	case float64:
		return integralFloat(t, ErrInvalidValue)
	default:
		return 0, fmt.Errorf("%w: unsupported type %T", ErrInvalidValue, v)
	}
}

func integralFloat(f float64, sentinel error) (int64, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) || math.Abs(f) > 1<<53 {
		return 0, fmt.Errorf("%w: %v is not an integer", sentinel, f)
	}
	return int64(f), nil
}
