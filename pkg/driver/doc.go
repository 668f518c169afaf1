// Package driver provides graph store clients for scenegraph.
//
// This package defines the StoreClient contract the registry core depends on
// and provides implementations for three store families.
//
// # Supported Stores
//
//   - SPARQL: any SPARQL 1.1 Protocol endpoint, e.g. Apache Jena Fuseki
//   - Neo4j: facts stored as (:Fact) nodes, queried with Cypher
//   - Badger: embedded key-value store with SPO and POS indexes
//
// # Queries and Updates
//
// Stores are addressed through descriptors rather than query text. A Query
// is a union of conjunctive fact patterns; an Update replaces every fact of
// a set of subjects in one atomic operation. Each adapter renders the
// descriptors in its own protocol: escaped SPARQL, parameterized Cypher, or
// direct index scans.
//
//	rows, err := store.Query(ctx, &driver.Query{
//		Select: []string{"s"},
//		Branches: [][]driver.Pattern{{
//			{S: driver.Var("s"), P: driver.IRI(types.RDFType), O: driver.IRI(classIRI)},
//		}},
//	})
//
// # Usage
//
//	// Fuseki
//	store, err := driver.NewSPARQLDriver(driver.SPARQLConfig{Endpoint: "http://localhost:3030", Dataset: "mainDataset"})
//
//	// Badger (embedded)
//	store, err := driver.NewBadgerDriver(driver.BadgerConfig{Path: "./scenegraph_db"})
//
// NewFromConfig selects the adapter from configuration and optionally wraps
// it in a CircuitBreakerDriver.
//
// # Thread Safety
//
// All implementations are safe for concurrent use from multiple goroutines.
package driver
