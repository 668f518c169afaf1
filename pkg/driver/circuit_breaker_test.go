package driver

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundprediction/scenegraph/pkg/config"
)

// mockStore is a StoreClient whose behavior is set per test.
type mockStore struct {
	QueryFunc  func(ctx context.Context, q *Query) ([]Binding, error)
	UpdateFunc func(ctx context.Context, u *Update) error
	PingFunc   func(ctx context.Context) error
}

func (m *mockStore) Query(ctx context.Context, q *Query) ([]Binding, error) {
	if m.QueryFunc != nil {
		return m.QueryFunc(ctx, q)
	}
	return nil, nil
}

func (m *mockStore) Update(ctx context.Context, u *Update) error {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, u)
	}
	return nil
}

func (m *mockStore) Ping(ctx context.Context) error {
	if m.PingFunc != nil {
		return m.PingFunc(ctx)
	}
	return nil
}

func (m *mockStore) Provider() StoreProvider         { return StoreProviderSPARQL }
func (m *mockStore) Close(ctx context.Context) error { return nil }

type recordingAlerter struct {
	mu       sync.Mutex
	subjects []string
}

func (r *recordingAlerter) Alert(subject, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subjects = append(r.subjects, subject)
	return nil
}

func breakerConfig() config.CircuitBreakerConfig {
	return config.CircuitBreakerConfig{
		Enabled:          true,
		MaxRequests:      1,
		Interval:         60,
		Timeout:          60,
		MinRequests:      3,
		ReadyToTripRatio: 0.6,
	}
}

func TestCircuitBreakerTripsOnStoreFailures(t *testing.T) {
	calls := 0
	store := &mockStore{
		UpdateFunc: func(ctx context.Context, u *Update) error {
			calls++
			return storeError(StoreProviderSPARQL, "update", errors.New("connection refused"))
		},
	}
	alerter := &recordingAlerter{}
	cb := NewCircuitBreakerDriver(store, breakerConfig(), alerter, nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		err := cb.Update(ctx, &Update{})
		assert.ErrorIs(t, err, ErrStoreUnavailable)
	}
	assert.Equal(t, gobreaker.StateOpen, cb.State())
	require.Len(t, alerter.subjects, 1)
	assert.Contains(t, alerter.subjects[0], "sparql-store")

	err := cb.Update(ctx, &Update{})
	assert.ErrorIs(t, err, ErrStoreUnavailable, "open breaker reports the store as unavailable")
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, 3, calls, "open breaker does not reach the store")

	_, err = cb.Query(ctx, classQuery())
	assert.ErrorIs(t, err, ErrStoreUnavailable)

	assert.NoError(t, cb.Ping(ctx), "ping bypasses the breaker")
}

func TestCircuitBreakerIgnoresInvalidRequests(t *testing.T) {
	invalid := errors.New("invalid update: bad subject")
	store := &mockStore{
		UpdateFunc: func(ctx context.Context, u *Update) error { return invalid },
	}
	cb := NewCircuitBreakerDriver(store, breakerConfig(), &recordingAlerter{}, nil)

	for i := 0; i < 10; i++ {
		err := cb.Update(context.Background(), &Update{})
		assert.ErrorIs(t, err, invalid)
		assert.NotErrorIs(t, err, ErrStoreUnavailable)
	}
	assert.Equal(t, gobreaker.StateClosed, cb.State())
}

func TestCircuitBreakerPassesResults(t *testing.T) {
	want := []Binding{{"s": {Kind: "iri", Value: ex + "a"}}}
	store := &mockStore{
		QueryFunc: func(ctx context.Context, q *Query) ([]Binding, error) { return want, nil },
	}
	cb := NewCircuitBreakerDriver(store, breakerConfig(), nil, nil)

	got, err := cb.Query(context.Background(), classQuery())
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Equal(t, StoreProviderSPARQL, cb.Provider())
	assert.NoError(t, cb.Close(context.Background()))
}
