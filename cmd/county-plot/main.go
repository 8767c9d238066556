// Command county-plot writes a single-series county chart to an HTML file.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/go-resty/resty/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/i474232898/covid-county-charts/internal/chart"
	"github.com/i474232898/covid-county-charts/internal/config"
	"github.com/i474232898/covid-county-charts/internal/covid"
	"github.com/i474232898/covid-county-charts/internal/covid/arcgis"
	"github.com/i474232898/covid-county-charts/internal/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		county string
		kind   string
		out    string
	)

	cmd := &cobra.Command{
		Use:   "county-plot",
		Short: "Plot one county's daily deaths or cases",
		RunE: func(cmd *cobra.Command, _ []string) error {
			k, err := covid.ParseSeriesKind(kind)
			if err != nil {
				return err
			}
			if out == "" {
				out = fmt.Sprintf("%s-%s.html", strings.ToLower(strings.ReplaceAll(county, " ", "-")), k)
			}
			return run(cmd.Context(), county, k, out)
		},
	}

	cmd.Flags().StringVarP(&county, "county", "c", "Allegheny", "county to plot")
	cmd.Flags().StringVarP(&kind, "kind", "k", "deaths", "series to plot (deaths or cases)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output HTML file (default <county>-<kind>.html)")
	return cmd
}

func run(ctx context.Context, county string, kind covid.SeriesKind, out string) error {
	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}
	zlog, err := logging.New(cfg.LogLevel, cfg.Environment)
	if err != nil {
		return err
	}
	defer func() { _ = zlog.Sync() }()

	counties, err := config.LoadCounties(cfg.CountiesFile)
	if err != nil {
		return err
	}
	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	fetcher := arcgis.NewClient(resty.New(), arcgis.Options{
		BaseURL:     cfg.ArcGISBaseURL,
		Timeout:     cfg.HTTPTimeout,
		RecordCount: cfg.ResultRecordCount,
		Backoff: arcgis.BackoffConfig{
			MaxRetries:      cfg.FetchRetries,
			InitialInterval: config.FetchBackoffInitial,
			MaxInterval:     config.FetchBackoffMax,
		},
	}, zlog.Named("arcgis"))
	service := covid.NewService(fetcher, counties, covid.NewNormalizer(loc), zlog.Named("covid"))

	ctx, cancel := context.WithTimeout(ctx, cfg.RequestTimeout)
	defer cancel()

	series, err := service.Series(ctx, county, kind)
	if err != nil {
		return err
	}
	spec, err := chart.BuildSingleSeries(series, county)
	if err != nil {
		return err
	}
	if avg, err := covid.RecentAverage(series); err == nil {
		spec.Subtitle = fmt.Sprintf("Average over the last %d records: %s", covid.AverageWindow, avg.StringFixed(2))
	}

	if dir := filepath.Dir(out); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.Create(out)
	if err != nil {
		return err
	}
	if err := chart.Render(spec, f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	zlog.Info("chart written", zap.String("county", county), zap.String("kind", kind.String()), zap.String("file", out), zap.Int("records", len(series.Records)))
	return nil
}
