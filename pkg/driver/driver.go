package driver

import "context"

// StoreProvider identifies the graph store family behind a StoreClient.
type StoreProvider string

const (
	StoreProviderSPARQL StoreProvider = "sparql"
	StoreProviderNeo4j  StoreProvider = "neo4j"
	StoreProviderBadger StoreProvider = "badger"
)

// StoreClient is the contract the registry core depends on: one query to
// read facts, one atomic update to replace them.
type StoreClient interface {
	FactQuerier
	FactUpdater

	// Ping checks that the store is reachable.
	Ping(ctx context.Context) error

	// Provider returns the store family.
	Provider() StoreProvider

	// Close releases all resources held by the client.
	Close(ctx context.Context) error
}

// FactQuerier evaluates a union of basic graph patterns.
type FactQuerier interface {
	// Query returns one binding per solution. Variables not selected by the
	// query are omitted from the rows.
	Query(ctx context.Context, q *Query) ([]Binding, error)
}

// FactUpdater applies a replace operation atomically.
type FactUpdater interface {
	// Update removes every fact whose subject is in u.Clear and then adds
	// u.Insert, as a single operation. Either all of it is applied or none.
	Update(ctx context.Context, u *Update) error
}

// IndexCreator is implemented by stores that benefit from explicit indexes.
type IndexCreator interface {
	CreateIndices(ctx context.Context) error
}
