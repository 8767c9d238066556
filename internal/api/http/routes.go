package httpapi

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/i474232898/covid-county-charts/internal/chart"
	"github.com/i474232898/covid-county-charts/internal/covid"
)

// NotFoundMessage is the body of every not-found response.
const NotFoundMessage = "The requested data was not found."

var validate = validator.New()

// Options carries the optional collaborators of the routes.
type Options struct {
	// Digests, when set, feeds the recent averages shown on the index page
	// and the digest history endpoint.
	Digests covid.DigestStore
	Logger  *zap.Logger

	// RequestTimeout bounds the upstream work done for a single request.
	RequestTimeout time.Duration
}

type indexEntry struct {
	Name   string
	Digest *covid.Digest
}

type handler struct {
	service *covid.Service
	digests covid.DigestStore
	log     *zap.Logger
	timeout time.Duration
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, service *covid.Service, opts Options) {
	h := &handler{
		service: service,
		digests: opts.Digests,
		log:     opts.Logger,
		timeout: opts.RequestTimeout,
	}
	if h.log == nil {
		h.log = zap.NewNop()
	}
	if h.timeout <= 0 {
		h.timeout = 30 * time.Second
	}

	app.Get("/", h.index)
	app.Get("/death-chart", h.deathChart)

	v1 := app.Group("/api/v1")
	v1.Get("/counties", h.counties)
	v1.Get("/series", h.series)
	v1.Get("/summary", h.summary)
	v1.Get("/digests", h.digestHistory)
}

// ErrorHandler renders not-found errors as plain text and everything else as JSON.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	if code == fiber.StatusNotFound {
		return c.Status(code).SendString(NotFoundMessage)
	}
	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": err.Error(),
	})
}

func (h *handler) index(c *fiber.Ctx) error {
	names := h.service.Counties().Names()
	entries := make([]indexEntry, 0, len(names))
	for _, name := range names {
		e := indexEntry{Name: name}
		if h.digests != nil {
			if d, err := h.digests.Latest(name); err == nil {
				e.Digest = &d
			}
		}
		entries = append(entries, e)
	}

	var buf bytes.Buffer
	if err := indexTemplate.Execute(&buf, fiber.Map{"Counties": entries}); err != nil {
		h.log.Error("render index failed", zap.Error(err))
		return fiber.NewError(fiber.StatusInternalServerError, "failed to render index")
	}
	c.Type("html", "utf-8")
	return c.Send(buf.Bytes())
}

func (h *handler) deathChart(c *fiber.Ctx) error {
	q, err := parseCountyQuery(c)
	if err != nil {
		return fiber.ErrNotFound
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), h.timeout)
	defer cancel()

	report, err := h.service.CountyReport(ctx, q.County)
	if err != nil {
		return h.serviceError(q.County, err)
	}

	spec, err := chart.BuildCountyChart(report.Deaths, report.Cases, report.County)
	if err != nil {
		return h.serviceError(q.County, err)
	}
	spec.Subtitle = fmt.Sprintf("Average daily deaths over the last %d records: %s",
		covid.AverageWindow, report.DeathAverage.StringFixed(2))

	page, err := chart.RenderString(spec)
	if err != nil {
		h.log.Error("render chart failed", zap.String("county", q.County), zap.Error(err))
		return fiber.NewError(fiber.StatusInternalServerError, "failed to render chart")
	}
	c.Type("html", "utf-8")
	return c.SendString(page)
}

func (h *handler) counties(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"counties": h.service.Counties().Names(),
	})
}

func (h *handler) series(c *fiber.Ctx) error {
	var q seriesQuery
	q.County = c.Query("county")
	q.Kind = c.Query("kind", covid.Deaths.String())
	if err := validate.Struct(q); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	kind, err := covid.ParseSeriesKind(q.Kind)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), h.timeout)
	defer cancel()

	s, err := h.service.Series(ctx, q.County, kind)
	if err != nil {
		return h.serviceError(q.County, err)
	}
	return c.JSON(fiber.Map{
		"county":  q.County,
		"kind":    kind.String(),
		"records": s.Records,
	})
}

func (h *handler) summary(c *fiber.Ctx) error {
	q, err := parseCountyQuery(c)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), h.timeout)
	defer cancel()

	report, err := h.service.CountyReport(ctx, q.County)
	if err != nil {
		return h.serviceError(q.County, err)
	}
	return c.JSON(fiber.Map{
		"county":       report.County,
		"deathAverage": report.DeathAverage.StringFixed(2),
		"window":       covid.AverageWindow,
		"deaths":       describe(report.Deaths),
		"cases":        describe(report.Cases),
	})
}

// digestHistory lists the retained scheduler digests of a county, oldest first.
func (h *handler) digestHistory(c *fiber.Ctx) error {
	q, err := parseCountyQuery(c)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if !h.service.Counties().Contains(q.County) || h.digests == nil {
		return fiber.ErrNotFound
	}

	history, err := h.digests.History(q.County)
	if err != nil {
		return fiber.ErrNotFound
	}
	return c.JSON(fiber.Map{
		"county":  q.County,
		"digests": history,
	})
}

// serviceError maps pipeline errors onto HTTP errors.
func (h *handler) serviceError(county string, err error) error {
	switch {
	case errors.Is(err, covid.ErrUnknownCounty), errors.Is(err, covid.ErrInsufficientData):
		return fiber.ErrNotFound
	case errors.Is(err, covid.ErrNetwork), errors.Is(err, covid.ErrUpstream):
		h.log.Warn("upstream failure", zap.String("county", county), zap.Error(err))
		return fiber.NewError(fiber.StatusBadGateway, "failed to fetch county data from upstream")
	default:
		h.log.Error("request failed", zap.String("county", county), zap.Error(err))
		return fiber.NewError(fiber.StatusInternalServerError, "failed to build county data")
	}
}

type seriesSummary struct {
	Records   int    `json:"records"`
	FirstDate string `json:"firstDate,omitempty"`
	LastDate  string `json:"lastDate,omitempty"`
}

func describe(s covid.Series) seriesSummary {
	out := seriesSummary{Records: len(s.Records)}
	if len(s.Records) > 0 {
		out.FirstDate = s.Records[0].Date()
		out.LastDate = s.Records[len(s.Records)-1].Date()
	}
	return out
}

// countyQuery holds the county query parameter.
type countyQuery struct {
	County string `validate:"required"`
}

func parseCountyQuery(c *fiber.Ctx) (countyQuery, error) {
	q := countyQuery{County: c.Query("county")}
	if err := validate.Struct(q); err != nil {
		return q, err
	}
	return q, nil
}

// seriesQuery holds query parameters for the series endpoint.
type seriesQuery struct {
	County string `validate:"required"`
	Kind   string `validate:"required,oneof=deaths cases"`
}
