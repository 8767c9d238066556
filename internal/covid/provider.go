package covid

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Fetcher abstracts the upstream feature service.
type Fetcher interface {
	FetchSeries(ctx context.Context, county string, kind SeriesKind) (FeatureSet, error)
}

// Report is everything the chart page needs for one county.
type Report struct {
	County       string          `json:"county"`
	Deaths       Series          `json:"deaths"`
	Cases        Series          `json:"cases"`
	DeathAverage decimal.Decimal `json:"deathAverage"`
}

// Digest is a periodically computed summary of a county's recent deaths.
type Digest struct {
	County       string          `json:"county"`
	DeathAverage decimal.Decimal `json:"deathAverage"`
	LastDate     string          `json:"lastDate"`
	Records      int             `json:"records"`
	ComputedAt   time.Time       `json:"computedAt"` // always UTC
}

// DigestStore is the contract the digest store must satisfy.
type DigestStore interface {
	SaveDigest(d Digest)
	Latest(county string) (Digest, error)
	History(county string) ([]Digest, error)
}
