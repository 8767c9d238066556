package covid

import (
	"fmt"
	"sort"
	"strings"
)

// SeriesKind selects which upstream dataset a series is read from.
type SeriesKind int

const (
	Deaths SeriesKind = iota
	Cases
)

// SeriesKinds lists every supported kind in display order.
var SeriesKinds = []SeriesKind{Deaths, Cases}

type kindInfo struct {
	name      string
	label     string
	dataset   string
	field     string
	outFields string
}

var kinds = map[SeriesKind]kindInfo{
	Deaths: {
		name:      "deaths",
		label:     "Deaths",
		dataset:   "Covid_Deaths_County",
		field:     "deaths",
		outFields: "ObjectId,deaths,date",
	},
	Cases: {
		name:      "cases",
		label:     "Cases",
		dataset:   "Covid_Cases_County",
		field:     "cases",
		outFields: "ObjectId,cases,date,county",
	},
}

// ParseSeriesKind maps "deaths" or "cases" onto a SeriesKind.
func ParseSeriesKind(s string) (SeriesKind, error) {
	for k, info := range kinds {
		if strings.EqualFold(s, info.name) {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unsupported series kind %q", s)
}

func (k SeriesKind) String() string { return kinds[k].name }

// Label is the human readable trace name, e.g. "Deaths".
func (k SeriesKind) Label() string { return kinds[k].label }

// Dataset is the ArcGIS feature service name backing this kind.
func (k SeriesKind) Dataset() string { return kinds[k].dataset }

// Field is the attribute holding the daily count.
func (k SeriesKind) Field() string { return kinds[k].field }

// OutFields is the comma separated attribute list requested upstream.
func (k SeriesKind) OutFields() string { return kinds[k].outFields }

// RawFeature is a single feature as returned by the feature service.
// Numbers are kept as json.Number so epoch milliseconds keep full precision.
type RawFeature struct {
	Attributes map[string]any `json:"attributes"`
}

// FeatureSet is the validated body of a feature service query.
type FeatureSet struct {
	Features []RawFeature `json:"features"`
}

// Record is a feature's attributes with "date" rewritten to YYYY-MM-DD.
type Record map[string]any

// Date returns the normalized date of the record.
func (r Record) Date() string {
	s, _ := r[DateField].(string)
	return s
}

// Series is an ordered (ascending by date) list of records of one kind.
type Series struct {
	Kind    SeriesKind `json:"-"`
	Records []Record   `json:"records"`
}

// Point is a single (date, count) pair.
type Point struct {
	Date  string `json:"date"`
	Value int64  `json:"value"`
}

// Points extracts the (date, count) pairs of the series, in order.
func (s Series) Points() ([]Point, error) {
	field := s.Kind.Field()
	points := make([]Point, 0, len(s.Records))
	for i, rec := range s.Records {
		v, err := countValue(rec[field])
		if err != nil {
			return nil, fmt.Errorf("record %d field %q: %w", i, field, err)
		}
		points = append(points, Point{Date: rec.Date(), Value: v})
	}
	return points, nil
}

// Counties is the immutable set of county names accepted by the service.
type Counties struct {
	names []string
	set   map[string]struct{}
}

// NewCounties builds a county set; blank and duplicate names are dropped.
func NewCounties(names []string) Counties {
	c := Counties{set: make(map[string]struct{}, len(names))}
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		if _, ok := c.set[n]; ok {
			continue
		}
		c.set[n] = struct{}{}
		c.names = append(c.names, n)
	}
	sort.Strings(c.names)
	return c
}

// Contains reports whether name is a configured county. Matching is exact.
func (c Counties) Contains(name string) bool {
	_, ok := c.set[name]
	return ok
}

// Names returns the sorted county names.
func (c Counties) Names() []string {
	out := make([]string, len(c.names))
	copy(out, c.names)
	return out
}

// Len returns the number of configured counties.
func (c Counties) Len() int { return len(c.names) }
