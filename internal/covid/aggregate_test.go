package covid

import (
	"encoding/json"
	"errors"
	"strconv"
	"testing"
)

func deathRecords(values ...int64) []Record {
	out := make([]Record, len(values))
	for i, v := range values {
		out[i] = Record{
			"date":   "2020-04-" + strconv.Itoa(10+i),
			"deaths": json.Number(strconv.FormatInt(v, 10)),
		}
	}
	return out
}

func TestTrailingAverage(t *testing.T) {
	tests := []struct {
		name   string
		values []int64
		window int
		want   string
	}{
		{"exactly seven", []int64{1, 2, 3, 4, 5, 6, 7}, 7, "4.00"},
		{"only the last seven count", []int64{100, 100, 100, 1, 2, 3, 4, 5, 6, 7}, 7, "4.00"},
		{"shorter than window", []int64{1, 2}, 7, "1.50"},
		{"single record", []int64{9}, 7, "9.00"},
		{"repeating decimal", []int64{0, 0, 0, 0, 0, 0, 1}, 7, "0.14"},
		{"rounds up", []int64{1, 1, 0}, 7, "0.67"},
		{"half rounds up", []int64{0, 0, 0, 0, 0, 0, 0, 1}, 8, "0.13"},
		{"negative corrections", []int64{-3, 0}, 7, "-1.50"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := TrailingAverage(deathRecords(tc.values...), "deaths", tc.window)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.StringFixed(2) != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, got.StringFixed(2))
			}
		})
	}
}

func TestTrailingAverageEmpty(t *testing.T) {
	if _, err := TrailingAverage(nil, "deaths", AverageWindow); !errors.Is(err, ErrInsufficientData) {
		t.Fatalf("expected ErrInsufficientData, got %v", err)
	}
	if _, err := RecentAverage(Series{Kind: Deaths}); !errors.Is(err, ErrInsufficientData) {
		t.Fatalf("expected ErrInsufficientData, got %v", err)
	}
}

func TestTrailingAverageValues(t *testing.T) {
	records := deathRecords(2, 4)
	records = append(records, Record{"date": "2020-04-20", "deaths": nil})

	got, err := TrailingAverage(records, "deaths", AverageWindow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.StringFixed(2) != "2.00" {
		t.Fatalf("null should count as zero, got %s", got.StringFixed(2))
	}

	records = append(records, Record{"date": "2020-04-21", "deaths": "many"})
	if _, err := TrailingAverage(records, "deaths", AverageWindow); !errors.Is(err, ErrInvalidValue) {
		t.Fatalf("expected ErrInvalidValue, got %v", err)
	}

	if _, err := TrailingAverage(records, "deaths", 0); err == nil {
		t.Fatal("expected error for zero window")
	}
}

func TestRecentAverageUsesKindField(t *testing.T) {
	s := Series{Kind: Cases, Records: []Record{
		{"date": "2020-04-10", "cases": json.Number("10"), "deaths": json.Number("1000")},
		{"date": "2020-04-11", "cases": json.Number("20"), "deaths": json.Number("1000")},
	}}

	got, err := RecentAverage(s)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.StringFixed(2) != "15.00" {
		t.Fatalf("expected 15.00, got %s", got.StringFixed(2))
	}
}
