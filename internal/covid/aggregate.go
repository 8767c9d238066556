package covid

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// AverageWindow is the number of trailing records in the recent average.
const AverageWindow = 7

// TrailingAverage returns the mean of field over the last window records,
// rounded to two decimals (half away from zero). A series shorter than the
// window is averaged over the records it has; an empty one is an error.
func TrailingAverage(series []Record, field string, window int) (decimal.Decimal, error) {
	if window <= 0 {
		return decimal.Zero, fmt.Errorf("window must be greater than zero")
	}
	if len(series) == 0 {
		return decimal.Zero, fmt.Errorf("%w: no %s records to average", ErrInsufficientData, field)
	}

	tail := series
	if len(tail) > window {
		tail = tail[len(tail)-window:]
	}

	var sum int64
	for i, rec := range tail {
		v, err := countValue(rec[field])
		if err != nil {
			return decimal.Zero, fmt.Errorf("record %d field %q: %w", len(series)-len(tail)+i, field, err)
		}
		sum += v
	}

	avg := decimal.NewFromInt(sum).Div(decimal.NewFromInt(int64(len(tail))))
	return avg.Round(2), nil
}

// RecentAverage is TrailingAverage over the series' own count field and AverageWindow.
func RecentAverage(s Series) (decimal.Decimal, error) {
	return TrailingAverage(s.Records, s.Kind.Field(), AverageWindow)
}
