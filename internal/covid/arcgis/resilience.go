package arcgis

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker"

	"github.com/i474232898/covid-county-charts/internal/covid"
)

// BackoffConfig controls exponential backoff behaviour.
type BackoffConfig struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

var (
	errCircuitOpen   = errors.New("circuit breaker open")
	errInvalidConfig = errors.New("invalid backoff configuration")
)

// transportError marks failures that never produced an HTTP response.
type transportError struct{ err error }

func (e *transportError) Error() string { return e.err.Error() }
func (e *transportError) Unwrap() error { return e.err }

// callerAbortError marks requests abandoned because the caller's context
// ended. They say nothing about upstream health.
type callerAbortError struct{ err error }

func (e *callerAbortError) Error() string { return e.err.Error() }
func (e *callerAbortError) Unwrap() error { return e.err }

// countsAsSuccess keeps caller aborts from tripping the breaker.
func countsAsSuccess(err error) bool {
	var abort *callerAbortError
	return err == nil || errors.As(err, &abort)
}

// statusError marks responses with a non-success status.
type statusError struct{ code int }

func (e *statusError) Error() string { return fmt.Sprintf("unexpected status code %d", e.code) }

// doWithResilience runs send through the circuit breaker. Only transport
// failures are retried, with exponential backoff.
func doWithResilience(
	ctx context.Context,
	backoff BackoffConfig,
	cb *gobreaker.CircuitBreaker,
	send func(ctx context.Context) (*resty.Response, error),
) (*resty.Response, error) {
	if backoff.MaxRetries < 0 || backoff.InitialInterval <= 0 {
		return nil, errInvalidConfig
	}

	var attempt int
	for {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %v", covid.ErrNetwork, ctx.Err())
		}

		result, err := cb.Execute(func() (interface{}, error) {
			resp, execErr := send(ctx)
			if execErr != nil {
				if ctx.Err() != nil {
					return nil, &callerAbortError{err: ctx.Err()}
				}
				return nil, &transportError{err: execErr}
			}
			if resp.IsError() || resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
				return nil, &statusError{code: resp.StatusCode()}
			}
			return resp, nil
		})

		if err == nil {
			resp, ok := result.(*resty.Response)
			if !ok {
				return nil, fmt.Errorf("%w: unexpected result type from circuit breaker", covid.ErrUpstream)
			}
			return resp, nil
		}

		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %w: %v", covid.ErrUpstream, errCircuitOpen, err)
		}

		var abort *callerAbortError
		if errors.As(err, &abort) {
			return nil, fmt.Errorf("%w: %v", covid.ErrNetwork, abort)
		}

		var se *statusError
		if errors.As(err, &se) {
			return nil, fmt.Errorf("%w: %v", covid.ErrUpstream, se)
		}

		if attempt >= backoff.MaxRetries {
			return nil, fmt.Errorf("%w: %v", covid.ErrNetwork, err)
		}

		delay := backoff.InitialInterval * time.Duration(math.Pow(2, float64(attempt)))
		if delay > backoff.MaxInterval && backoff.MaxInterval > 0 {
			delay = backoff.MaxInterval
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, fmt.Errorf("%w: %v", covid.ErrNetwork, ctx.Err())
		case <-timer.C:
		}

		attempt++
	}
}
