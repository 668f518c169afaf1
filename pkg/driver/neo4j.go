package driver

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Neo4jConfig configures a Neo4jDriver.
type Neo4jConfig struct {
	URI      string
	Username string
	Password string
	Database string
	Logger   *slog.Logger
}

// Neo4jDriver implements StoreClient for Neo4j. Facts are stored as Fact
// nodes; see translateQuery for the query mapping.
type Neo4jDriver struct {
	client   neo4j.DriverWithContext
	database string
	logger   *slog.Logger
}

// NewNeo4jDriver creates a new Neo4j driver instance.
func NewNeo4jDriver(cfg Neo4jConfig) (*Neo4jDriver, error) {
	client, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.Username, cfg.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("failed to create neo4j driver: %w", err)
	}

	database := cfg.Database
	if database == "" {
		database = "neo4j"
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Neo4jDriver{
		client:   client,
		database: database,
		logger:   logger,
	}, nil
}

// Query implements FactQuerier.
func (n *Neo4jDriver) Query(ctx context.Context, q *Query) ([]Binding, error) {
	cypher, params, err := translateQuery(q)
	if err != nil {
		return nil, fmt.Errorf("invalid query: %w", err)
	}

	session := n.client.NewSession(ctx, neo4j.SessionConfig{DatabaseName: n.database, AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, cypher, params)
		if err != nil {
			return nil, err
		}
		return res.Collect(ctx)
	})
	if err != nil {
		return nil, storeError(StoreProviderNeo4j, "query", err)
	}

	records, err := recordsOf(result)
	if err != nil {
		return nil, storeError(StoreProviderNeo4j, "query", err)
	}

	rows := make([]Binding, 0, len(records))
	for _, record := range records {
		row, err := bindingFromRecord(record, q.Select)
		if err != nil {
			return nil, storeError(StoreProviderNeo4j, "query", err)
		}
		rows = append(rows, row)
	}
	n.logger.Debug("neo4j query", "rows", len(rows), "branches", len(q.Branches))
	return rows, nil
}

// Update implements FactUpdater. Deletion and insertion run in one write
// transaction.
func (n *Neo4jDriver) Update(ctx context.Context, u *Update) error {
	if err := u.Validate(); err != nil {
		return fmt.Errorf("invalid update: %w", err)
	}

	session := n.client.NewSession(ctx, neo4j.SessionConfig{DatabaseName: n.database})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		if len(u.Clear) > 0 {
			if _, err := tx.Run(ctx, cypherClear, map[string]any{"subjects": u.Clear}); err != nil {
				return nil, err
			}
		}
		if len(u.Insert) > 0 {
			if _, err := tx.Run(ctx, cypherInsert, map[string]any{"facts": factParams(u.Insert)}); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	if err != nil {
		return storeError(StoreProviderNeo4j, "update", err)
	}
	n.logger.Debug("neo4j update", "cleared", len(u.Clear), "inserted", len(u.Insert))
	return nil
}

// CreateIndices creates the Fact property indexes used by queries and
// updates.
func (n *Neo4jDriver) CreateIndices(ctx context.Context) error {
	indexQueries := []string{
		"CREATE INDEX fact_subject IF NOT EXISTS FOR (f:Fact) ON (f.s)",
		"CREATE INDEX fact_predicate IF NOT EXISTS FOR (f:Fact) ON (f.p)",
		"CREATE INDEX fact_object IF NOT EXISTS FOR (f:Fact) ON (f.o)",
	}

	session := n.client.NewSession(ctx, neo4j.SessionConfig{DatabaseName: n.database})
	defer session.Close(ctx)

	for _, query := range indexQueries {
		if _, err := session.Run(ctx, query, nil); err != nil {
			return storeError(StoreProviderNeo4j, "create indices", err)
		}
	}
	return nil
}

// Ping verifies connectivity.
func (n *Neo4jDriver) Ping(ctx context.Context) error {
	if err := n.client.VerifyConnectivity(ctx); err != nil {
		return storeError(StoreProviderNeo4j, "ping", err)
	}
	return nil
}

// Provider implements StoreClient.
func (n *Neo4jDriver) Provider() StoreProvider {
	return StoreProviderNeo4j
}

// Close closes the underlying driver.
func (n *Neo4jDriver) Close(ctx context.Context) error {
	return n.client.Close(ctx)
}
