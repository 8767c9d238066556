package scheduler

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/i474232898/covid-county-charts/internal/covid"
)

// maxConcurrentDigests bounds parallel upstream queries per run.
const maxConcurrentDigests = 4

// Digester computes a county digest.
type Digester interface {
	Digest(ctx context.Context, county string) (covid.Digest, error)
}

// Scheduler periodically refreshes the death digest of every configured county.
type Scheduler struct {
	scheduler *gocron.Scheduler
	digester  Digester
	store     covid.DigestStore
	counties  []string
	interval  time.Duration
	timeout   time.Duration
	log       *zap.Logger

	// ctx bounds scheduled runs; Stop cancels it.
	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a new Scheduler.
func New(counties []string, interval time.Duration, digester Digester, store covid.DigestStore, log *zap.Logger) *Scheduler {
	if log == nil {
		log = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		digester:  digester,
		store:     store,
		counties:  counties,
		interval:  interval,
		timeout:   time.Minute,
		log:       log,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start schedules the periodic job and starts the underlying scheduler.
// A non-positive interval disables the job.
func (s *Scheduler) Start() error {
	if len(s.counties) == 0 || s.interval <= 0 {
		s.log.Info("scheduler: digest job disabled",
			zap.Int("counties", len(s.counties)),
			zap.Duration("interval", s.interval),
		)
		return nil
	}

	_, err := s.scheduler.Every(s.interval).Do(s.run)
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

func (s *Scheduler) run() {
	s.RunOnce(s.ctx)
}

// RunOnce refreshes every county's digest and returns how many succeeded.
func (s *Scheduler) RunOnce(ctx context.Context) int {
	s.log.Info("scheduler: running digest job", zap.Int("counties", len(s.counties)))

	results := make([]bool, len(s.counties))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentDigests)
	for i, county := range s.counties {
		i, county := i, county
		g.Go(func() error {
			cctx, cancel := context.WithTimeout(gctx, s.timeout)
			defer cancel()

			d, err := s.digester.Digest(cctx, county)
			if err != nil {
				s.log.Warn("scheduler: digest failed", zap.String("county", county), zap.Error(err))
				return nil
			}
			s.store.SaveDigest(d)
			results[i] = true
			return nil
		})
	}
	_ = g.Wait()

	ok := 0
	for _, r := range results {
		if r {
			ok++
		}
	}
	s.log.Info("scheduler: completed digest job", zap.Int("succeeded", ok), zap.Int("counties", len(s.counties)))
	return ok
}

// Stop cancels in-flight digests and stops the scheduler.
func (s *Scheduler) Stop() {
	s.cancel()
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
