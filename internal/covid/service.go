package covid

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Service validates counties, fetches their series and reshapes them for charting.
type Service struct {
	fetcher    Fetcher
	counties   Counties
	normalizer *Normalizer
	log        *zap.Logger
}

// NewService creates a new Service.
func NewService(fetcher Fetcher, counties Counties, normalizer *Normalizer, log *zap.Logger) *Service {
	if normalizer == nil {
		normalizer = NewNormalizer(time.UTC)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		fetcher:    fetcher,
		counties:   counties,
		normalizer: normalizer,
		log:        log,
	}
}

// Counties returns the configured county set.
func (s *Service) Counties() Counties {
	return s.counties
}

// Series fetches and normalizes one series for a configured county.
func (s *Service) Series(ctx context.Context, county string, kind SeriesKind) (Series, error) {
	if !s.counties.Contains(county) {
		return Series{}, fmt.Errorf("%w: %q", ErrUnknownCounty, county)
	}
	return s.fetchSeries(ctx, county, kind)
}

// CountyReport fetches deaths and cases concurrently and computes the recent
// death average. Nothing is returned unless both fetches succeed.
func (s *Service) CountyReport(ctx context.Context, county string) (Report, error) {
	if !s.counties.Contains(county) {
		return Report{}, fmt.Errorf("%w: %q", ErrUnknownCounty, county)
	}

	var deaths, cases Series
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		deaths, err = s.fetchSeries(gctx, county, Deaths)
		return err
	})
	g.Go(func() error {
		var err error
		cases, err = s.fetchSeries(gctx, county, Cases)
		return err
	})
	if err := g.Wait(); err != nil {
		s.log.Warn("county report failed", zap.String("county", county), zap.Error(err))
		return Report{}, err
	}

	if len(deaths.Records) == 0 {
		return Report{}, fmt.Errorf("%w: no upstream data for %q", ErrUnknownCounty, county)
	}

	avg, err := RecentAverage(deaths)
	if err != nil {
		return Report{}, err
	}

	s.log.Debug("county report built",
		zap.String("county", county),
		zap.Int("deaths", len(deaths.Records)),
		zap.Int("cases", len(cases.Records)),
		zap.String("deathAverage", avg.StringFixed(2)),
	)

	return Report{
		County:       county,
		Deaths:       deaths,
		Cases:        cases,
		DeathAverage: avg,
	}, nil
}

// Digest computes the recent death average for a county.
func (s *Service) Digest(ctx context.Context, county string) (Digest, error) {
	deaths, err := s.Series(ctx, county, Deaths)
	if err != nil {
		return Digest{}, err
	}
	avg, err := RecentAverage(deaths)
	if err != nil {
		return Digest{}, err
	}
	return Digest{
		County:       county,
		DeathAverage: avg,
		LastDate:     deaths.Records[len(deaths.Records)-1].Date(),
		Records:      len(deaths.Records),
		ComputedAt:   time.Now().UTC(),
	}, nil
}

func (s *Service) fetchSeries(ctx context.Context, county string, kind SeriesKind) (Series, error) {
	set, err := s.fetcher.FetchSeries(ctx, county, kind)
	if err != nil {
		return Series{}, fmt.Errorf("fetch %s for %s: %w", kind, county, err)
	}
	records, err := s.normalizer.DecorateAll(set.Features)
	if err != nil {
		return Series{}, fmt.Errorf("%w: %s for %s: %w", ErrUpstream, kind, county, err)
	}
	return Series{Kind: kind, Records: records}, nil
}
