package driver

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundprediction/scenegraph/pkg/config"
)

func TestNewFromConfig(t *testing.T) {
	ctx := context.Background()

	t.Run("badger in memory", func(t *testing.T) {
		cfg := &config.Config{Store: config.StoreConfig{Driver: "badger", InMemory: true}}
		client, err := NewFromConfig(ctx, cfg, nil)
		require.NoError(t, err)
		defer client.Close(ctx)

		assert.IsType(t, &BadgerDriver{}, client)
		assert.NoError(t, client.Ping(ctx))
	})

	t.Run("breaker wraps the store", func(t *testing.T) {
		cfg := &config.Config{
			Store:          config.StoreConfig{Driver: "badger", InMemory: true},
			CircuitBreaker: breakerConfig(),
		}
		client, err := NewFromConfig(ctx, cfg, nil)
		require.NoError(t, err)
		defer client.Close(ctx)

		assert.IsType(t, &CircuitBreakerDriver{}, client)
		assert.Equal(t, StoreProviderBadger, client.Provider())
	})

	t.Run("sparql", func(t *testing.T) {
		cfg := &config.Config{Store: config.StoreConfig{Driver: "sparql", URL: "http://fuseki:3030", Dataset: "scenes"}}
		client, err := NewFromConfig(ctx, cfg, nil)
		require.NoError(t, err)

		sd, ok := client.(*SPARQLDriver)
		require.True(t, ok)
		assert.Equal(t, "http://fuseki:3030/scenes/query", sd.queryURL)
	})

	t.Run("unknown driver", func(t *testing.T) {
		cfg := &config.Config{Store: config.StoreConfig{Driver: "falkordb"}}
		_, err := NewFromConfig(ctx, cfg, nil)
		assert.ErrorContains(t, err, "unsupported store driver")
	})
}
