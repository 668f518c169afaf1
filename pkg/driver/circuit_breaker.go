package driver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"

	"github.com/soundprediction/scenegraph/pkg/alert"
	"github.com/soundprediction/scenegraph/pkg/config"
)

// CircuitBreakerDriver wraps a StoreClient with circuit breaking logic. Only
// store communication failures count against the breaker; invalid queries
// and updates do not.
type CircuitBreakerDriver struct {
	client StoreClient
	cb     *gobreaker.CircuitBreaker
}

// NewCircuitBreakerDriver creates a new circuit breaker around client.
func NewCircuitBreakerDriver(client StoreClient, cfg config.CircuitBreakerConfig, alerter alert.Alerter, logger *slog.Logger) *CircuitBreakerDriver {
	if logger == nil {
		logger = slog.Default()
	}
	minRequests := cfg.MinRequests
	if minRequests == 0 {
		minRequests = 3
	}

	st := gobreaker.Settings{
		Name:        fmt.Sprintf("%s-store", client.Provider()),
		MaxRequests: cfg.MaxRequests,
		Interval:    time.Duration(cfg.Interval) * time.Second,
		Timeout:     time.Duration(cfg.Timeout) * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= minRequests && failureRatio >= cfg.ReadyToTripRatio
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !errors.Is(err, ErrStoreUnavailable)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
			if to == gobreaker.StateOpen && alerter != nil {
				msg := fmt.Sprintf("Circuit Breaker '%s' changed status from %s to %s. Too many store failures detected.", name, from, to)
				if err := alerter.Alert(fmt.Sprintf("URGENT: Circuit Breaker Tripped - %s", name), msg); err != nil {
					logger.Error("failed to send circuit breaker alert", "error", err)
				}
			}
		},
	}

	return &CircuitBreakerDriver{
		client: client,
		cb:     gobreaker.NewCircuitBreaker(st),
	}
}

// State returns the breaker state.
func (c *CircuitBreakerDriver) State() gobreaker.State {
	return c.cb.State()
}

// Query implements FactQuerier
func (c *CircuitBreakerDriver) Query(ctx context.Context, q *Query) ([]Binding, error) {
	rows, err := c.cb.Execute(func() (interface{}, error) {
		return c.client.Query(ctx, q)
	})
	if err != nil {
		return nil, c.wrap("query", err)
	}
	return rows.([]Binding), nil
}

// Update implements FactUpdater
func (c *CircuitBreakerDriver) Update(ctx context.Context, u *Update) error {
	_, err := c.cb.Execute(func() (interface{}, error) {
		return nil, c.client.Update(ctx, u)
	})
	return c.wrap("update", err)
}

// Ping bypasses the breaker so health checks report the store's own state.
func (c *CircuitBreakerDriver) Ping(ctx context.Context) error {
	return c.client.Ping(ctx)
}

// Provider implements StoreClient
func (c *CircuitBreakerDriver) Provider() StoreProvider {
	return c.client.Provider()
}

// Close implements StoreClient
func (c *CircuitBreakerDriver) Close(ctx context.Context) error {
	return c.client.Close(ctx)
}

func (c *CircuitBreakerDriver) wrap(op string, err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return &StoreCommunicationError{Op: op, Provider: c.client.Provider(), Err: err}
	}
	return err
}
