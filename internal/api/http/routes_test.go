package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/i474232898/covid-county-charts/internal/covid"
	"github.com/i474232898/covid-county-charts/internal/store"
)

const day = int64(24 * time.Hour / time.Millisecond)

type stubFetcher struct {
	err   error
	empty bool
}

func (f *stubFetcher) FetchSeries(ctx context.Context, county string, kind covid.SeriesKind) (covid.FeatureSet, error) {
	if f.err != nil {
		return covid.FeatureSet{}, f.err
	}
	if f.empty {
		return covid.FeatureSet{}, nil
	}
	set := covid.FeatureSet{}
	for i := int64(0); i < 7; i++ {
		set.Features = append(set.Features, covid.RawFeature{Attributes: map[string]any{
			"ObjectId":   json.Number(strconv.FormatInt(i+1, 10)),
			"date":       json.Number(strconv.FormatInt(1584316800000+i*day, 10)),
			kind.Field(): json.Number(strconv.FormatInt((i+1)*int64(kind+1), 10)),
		}})
	}
	return set, nil
}

func newTestApp(f covid.Fetcher, digests covid.DigestStore) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	app.Use(recover.New())

	counties := covid.NewCounties([]string{"Allegheny", "Philadelphia"})
	svc := covid.NewService(f, counties, covid.NewNormalizer(time.UTC), zap.NewNop())
	RegisterRoutes(app, svc, Options{Digests: digests, Logger: zap.NewNop(), RequestTimeout: 5 * time.Second})
	return app
}

func get(t *testing.T, app *fiber.App, target string) (int, string) {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, target, nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp.StatusCode, string(body)
}

func TestDeathChart(t *testing.T) {
	app := newTestApp(&stubFetcher{}, nil)

	status, body := get(t, app, "/death-chart?county=Allegheny")
	if status != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, status, body)
	}
	for _, want := range []string{"Allegheny County Death/Cases Data", "4.00", "Daily Cases"} {
		if !strings.Contains(body, want) {
			t.Errorf("chart page is missing %q", want)
		}
	}
}

func TestDeathChartNotFound(t *testing.T) {
	app := newTestApp(&stubFetcher{}, nil)

	for _, target := range []string{
		"/death-chart?county=Atlantis",
		"/death-chart",
		"/death-chart?county=",
	} {
		status, body := get(t, app, target)
		if status != http.StatusNotFound {
			t.Errorf("%s: expected status %d, got %d", target, http.StatusNotFound, status)
		}
		if body != NotFoundMessage {
			t.Errorf("%s: unexpected body %q", target, body)
		}
	}
}

func TestDeathChartNoUpstreamData(t *testing.T) {
	app := newTestApp(&stubFetcher{empty: true}, nil)

	status, _ := get(t, app, "/death-chart?county=Philadelphia")
	if status != http.StatusNotFound {
		t.Fatalf("expected status %d, got %d", http.StatusNotFound, status)
	}
}

func TestDeathChartUpstreamFailure(t *testing.T) {
	for _, err := range []error{
		fmt.Errorf("%w: unexpected status code 500", covid.ErrUpstream),
		fmt.Errorf("%w: connection refused", covid.ErrNetwork),
	} {
		app := newTestApp(&stubFetcher{err: err}, nil)

		status, body := get(t, app, "/death-chart?county=Allegheny")
		if status != http.StatusBadGateway {
			t.Fatalf("expected status %d, got %d", http.StatusBadGateway, status)
		}
		if !strings.Contains(body, "failed to fetch county data") {
			t.Errorf("unexpected body %s", body)
		}
	}
}

func TestDeathChartUnexpectedFailure(t *testing.T) {
	app := newTestApp(&stubFetcher{err: fmt.Errorf("disk on fire")}, nil)
	if status, _ := get(t, app, "/death-chart?county=Allegheny"); status != http.StatusInternalServerError {
		t.Fatalf("expected status %d, got %d", http.StatusInternalServerError, status)
	}
}

func TestIndex(t *testing.T) {
	digests := store.NewMemoryStore(0, 0)
	digests.SaveDigest(covid.Digest{
		County:       "Philadelphia",
		DeathAverage: decimal.RequireFromString("12.5"),
		LastDate:     "2020-05-01",
		ComputedAt:   time.Now().UTC(),
	})
	app := newTestApp(&stubFetcher{}, digests)

	status, body := get(t, app, "/")
	if status != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, status)
	}
	for _, want := range []string{
		`href="/death-chart?county=Allegheny"`,
		`href="/death-chart?county=Philadelphia"`,
		"12.50 deaths/day as of 2020-05-01",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("index is missing %q", want)
		}
	}
}

func TestCountiesEndpoint(t *testing.T) {
	app := newTestApp(&stubFetcher{}, nil)

	status, body := get(t, app, "/api/v1/counties")
	if status != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, status)
	}
	var payload struct {
		Counties []string `json:"counties"`
	}
	if err := json.Unmarshal([]byte(body), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(payload.Counties) != 2 || payload.Counties[0] != "Allegheny" {
		t.Fatalf("unexpected counties %v", payload.Counties)
	}
}

func TestSeriesEndpoint(t *testing.T) {
	app := newTestApp(&stubFetcher{}, nil)

	status, body := get(t, app, "/api/v1/series?county=Allegheny&kind=cases")
	if status != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, status, body)
	}
	var payload struct {
		Kind    string           `json:"kind"`
		Records []map[string]any `json:"records"`
	}
	if err := json.Unmarshal([]byte(body), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Kind != "cases" || len(payload.Records) != 7 {
		t.Fatalf("unexpected payload %+v", payload)
	}
	if payload.Records[0]["date"] != "2020-03-16" {
		t.Fatalf("expected normalized date, got %v", payload.Records[0]["date"])
	}

	if status, _ := get(t, app, "/api/v1/series?county=Allegheny&kind=recoveries"); status != http.StatusBadRequest {
		t.Errorf("expected status %d for bad kind, got %d", http.StatusBadRequest, status)
	}
	if status, _ := get(t, app, "/api/v1/series?kind=deaths"); status != http.StatusBadRequest {
		t.Errorf("expected status %d for missing county, got %d", http.StatusBadRequest, status)
	}
	if status, _ := get(t, app, "/api/v1/series?county=Atlantis"); status != http.StatusNotFound {
		t.Errorf("expected status %d for unknown county, got %d", http.StatusNotFound, status)
	}
}

func TestSummaryEndpoint(t *testing.T) {
	app := newTestApp(&stubFetcher{}, nil)

	status, body := get(t, app, "/api/v1/summary?county=Philadelphia")
	if status != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, status, body)
	}
	var payload struct {
		DeathAverage string `json:"deathAverage"`
		Deaths       struct {
			Records  int    `json:"records"`
			LastDate string `json:"lastDate"`
		} `json:"deaths"`
	}
	if err := json.Unmarshal([]byte(body), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.DeathAverage != "4.00" || payload.Deaths.Records != 7 || payload.Deaths.LastDate != "2020-03-22" {
		t.Fatalf("unexpected summary %+v", payload)
	}
}

func TestDigestHistoryEndpoint(t *testing.T) {
	digests := store.NewMemoryStore(0, 0)
	now := time.Now().UTC()
	for i, avg := range []string{"10", "12.5"} {
		digests.SaveDigest(covid.Digest{
			County:       "Philadelphia",
			DeathAverage: decimal.RequireFromString(avg),
			LastDate:     fmt.Sprintf("2020-05-0%d", i+1),
			ComputedAt:   now.Add(time.Duration(i) * time.Hour),
		})
	}
	app := newTestApp(&stubFetcher{}, digests)

	status, body := get(t, app, "/api/v1/digests?county=Philadelphia")
	if status != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, status, body)
	}
	var payload struct {
		County  string `json:"county"`
		Digests []struct {
			DeathAverage decimal.Decimal `json:"deathAverage"`
			LastDate     string          `json:"lastDate"`
		} `json:"digests"`
	}
	if err := json.Unmarshal([]byte(body), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.County != "Philadelphia" || len(payload.Digests) != 2 {
		t.Fatalf("unexpected history %+v", payload)
	}
	if payload.Digests[0].LastDate != "2020-05-01" || payload.Digests[1].DeathAverage.StringFixed(2) != "12.50" {
		t.Errorf("history must be oldest first, got %+v", payload.Digests)
	}

	tests := []struct {
		name    string
		target  string
		digests covid.DigestStore
		want    int
	}{
		{"missing county", "/api/v1/digests", digests, http.StatusBadRequest},
		{"unknown county", "/api/v1/digests?county=Atlantis", digests, http.StatusNotFound},
		{"no digests yet", "/api/v1/digests?county=Allegheny", digests, http.StatusNotFound},
		{"scheduler disabled", "/api/v1/digests?county=Philadelphia", nil, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, _ := get(t, newTestApp(&stubFetcher{}, tt.digests), tt.target)
			if status != tt.want {
				t.Errorf("expected status %d, got %d", tt.want, status)
			}
		})
	}
}
