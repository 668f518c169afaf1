package driver

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/soundprediction/scenegraph/pkg/alert"
	"github.com/soundprediction/scenegraph/pkg/config"
)

// NewFromConfig creates the store client selected by cfg.Store.Driver,
// wrapped in a circuit breaker when cfg.CircuitBreaker.Enabled is set.
func NewFromConfig(ctx context.Context, cfg *config.Config, logger *slog.Logger) (StoreClient, error) {
	if logger == nil {
		logger = slog.Default()
	}
	sc := cfg.Store

	var (
		client StoreClient
		err    error
	)
	switch StoreProvider(sc.Driver) {
	case StoreProviderSPARQL:
		client, err = NewSPARQLDriver(SPARQLConfig{
			Endpoint:  sc.URL,
			Dataset:   sc.Dataset,
			QueryURL:  sc.QueryURL,
			UpdateURL: sc.UpdateURL,
			Username:  sc.Username,
			Password:  sc.Password,
			Timeout:   sc.Timeout,
			Logger:    logger,
		})
	case StoreProviderNeo4j:
		var n *Neo4jDriver
		n, err = NewNeo4jDriver(Neo4jConfig{
			URI:      sc.URI,
			Username: sc.Username,
			Password: sc.Password,
			Database: sc.Database,
			Logger:   logger,
		})
		if err == nil {
			if ierr := n.CreateIndices(ctx); ierr != nil {
				logger.Warn("failed to create neo4j indices", "error", ierr)
			}
			client = n
		}
	case StoreProviderBadger:
		client, err = NewBadgerDriver(BadgerConfig{
			Path:     sc.Path,
			InMemory: sc.InMemory,
			Logger:   logger,
		})
	default:
		return nil, fmt.Errorf("unsupported store driver %q (want sparql, neo4j or badger)", sc.Driver)
	}
	if err != nil {
		return nil, err
	}

	if cfg.CircuitBreaker.Enabled {
		client = NewCircuitBreakerDriver(client, cfg.CircuitBreaker, alert.New(cfg.Alert, logger), logger)
	}
	logger.Info("graph store configured", "driver", sc.Driver, "circuit_breaker", cfg.CircuitBreaker.Enabled)
	return client, nil
}
