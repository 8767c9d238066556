// Package arcgis queries the county COVID-19 feature services published on ArcGIS Online.
package arcgis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/i474232898/covid-county-charts/internal/covid"
)

// DefaultBaseURL is the services root of the Pennsylvania DOH organisation.
const DefaultBaseURL = "https://services2.arcgis.com/xtuWQvb2YQnp0z3F/arcgis/rest/services"

// DefaultRecordCount is large enough for the full observed history; paging is not implemented.
const DefaultRecordCount = 32000

// Options configures a Client. Zero values fall back to defaults.
type Options struct {
	BaseURL     string
	Timeout     time.Duration
	RecordCount int
	Backoff     BackoffConfig
}

// Client implements covid.Fetcher against the ArcGIS REST API.
type Client struct {
	http        *resty.Client
	baseURL     string
	recordCount int
	backoff     BackoffConfig
	circuits    map[covid.SeriesKind]*gobreaker.CircuitBreaker
	log         *zap.Logger
}

var _ covid.Fetcher = (*Client)(nil)

// NewClient builds a Client using the given resty client, which may be nil.
func NewClient(httpClient *resty.Client, opts Options, log *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = resty.New()
	}
	if opts.Timeout > 0 {
		httpClient.SetTimeout(opts.Timeout)
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.RecordCount <= 0 {
		opts.RecordCount = DefaultRecordCount
	}
	if opts.Backoff.InitialInterval <= 0 {
		opts.Backoff.InitialInterval = 500 * time.Millisecond
	}
	if opts.Backoff.MaxInterval <= 0 {
		opts.Backoff.MaxInterval = 5 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}

	circuits := make(map[covid.SeriesKind]*gobreaker.CircuitBreaker, len(covid.SeriesKinds))
	for _, kind := range covid.SeriesKinds {
		circuits[kind] = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:         kind.Dataset(),
			MaxRequests:  5,
			Interval:     1 * time.Minute,
			Timeout:      2 * time.Minute,
			IsSuccessful: countsAsSuccess,
			OnStateChange: func(name string, from, to gobreaker.State) {
				log.Warn("circuit breaker state changed",
					zap.String("dataset", name),
					zap.String("from", from.String()),
					zap.String("to", to.String()),
				)
			},
		})
	}

	return &Client{
		http:        httpClient,
		baseURL:     strings.TrimRight(opts.BaseURL, "/"),
		recordCount: opts.RecordCount,
		backoff:     opts.Backoff,
		circuits:    circuits,
		log:         log,
	}
}

// QueryURL returns the query endpoint of the dataset backing kind.
func (c *Client) QueryURL(kind covid.SeriesKind) string {
	return fmt.Sprintf("%s/%s/FeatureServer/0/query", c.baseURL, kind.Dataset())
}

// QueryParams returns the query string used to read a county's series.
func (c *Client) QueryParams(county string, kind covid.SeriesKind) map[string]string {
	return map[string]string{
		"f":                 "json",
		"where":             fmt.Sprintf("county='%s'", strings.ReplaceAll(county, "'", "''")),
		"returnGeometry":    "false",
		"spatialRel":        "esriSpatialRelIntersects",
		"outFields":         kind.OutFields(),
		"orderByFields":     "date asc",
		"resultOffset":      "0",
		"resultRecordCount": strconv.Itoa(c.recordCount),
		"resultType":        "standard",
		"cacheHint":         "true",
	}
}

// FetchSeries queries the dataset for kind filtered to county, ordered by date.
func (c *Client) FetchSeries(ctx context.Context, county string, kind covid.SeriesKind) (covid.FeatureSet, error) {
	url := c.QueryURL(kind)
	params := c.QueryParams(county, kind)

	start := time.Now()
	resp, err := doWithResilience(ctx, c.backoff, c.circuits[kind], func(ctx context.Context) (*resty.Response, error) {
		return c.http.R().
			SetContext(ctx).
			SetHeader("Accept", "application/json").
			SetQueryParams(params).
			Get(url)
	})
	if err != nil {
		c.log.Warn("feature query failed",
			zap.String("dataset", kind.Dataset()),
			zap.String("county", county),
			zap.Error(err),
		)
		return covid.FeatureSet{}, err
	}

	set, err := decodeFeatureSet(resp.Body())
	if err != nil {
		return covid.FeatureSet{}, fmt.Errorf("%s for %s: %w", kind.Dataset(), county, err)
	}

	c.log.Debug("feature query completed",
		zap.String("dataset", kind.Dataset()),
		zap.String("county", county),
		zap.Int("features", len(set.Features)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return set, nil
}

// envelope is the top level of a query response. ArcGIS reports query
// errors with a 200 status and an "error" object instead of features.
type envelope struct {
	Features *[]covid.RawFeature `json:"features"`
	Error    *struct {
		Code    int      `json:"code"`
		Message string   `json:"message"`
		Details []string `json:"details"`
	} `json:"error"`
}

func decodeFeatureSet(body []byte) (covid.FeatureSet, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var env envelope
	if err := dec.Decode(&env); err != nil {
		return covid.FeatureSet{}, fmt.Errorf("%w: decode body: %v", covid.ErrUpstream, err)
	}
	if env.Error != nil {
		msg := env.Error.Message
		if len(env.Error.Details) > 0 {
			msg += " (" + strings.Join(env.Error.Details, "; ") + ")"
		}
		return covid.FeatureSet{}, fmt.Errorf("%w: arcgis error %d: %s", covid.ErrUpstream, env.Error.Code, msg)
	}
	if env.Features == nil {
		return covid.FeatureSet{}, fmt.Errorf("%w: response has no features array", covid.ErrUpstream)
	}
	for i, f := range *env.Features {
		if f.Attributes == nil {
			return covid.FeatureSet{}, fmt.Errorf("%w: feature %d has no attributes", covid.ErrUpstream, i)
		}
	}
	return covid.FeatureSet{Features: *env.Features}, nil
}
