package scenegraph

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/soundprediction/scenegraph/pkg/codec"
	"github.com/soundprediction/scenegraph/pkg/config"
	"github.com/soundprediction/scenegraph/pkg/driver"
	"github.com/soundprediction/scenegraph/pkg/linker"
	"github.com/soundprediction/scenegraph/pkg/schema"
	"github.com/soundprediction/scenegraph/pkg/types"
	"github.com/soundprediction/scenegraph/pkg/updater"
)

// ErrEntityNotFound is returned by Entity when no registered entity has the
// requested identifier.
var ErrEntityNotFound = errors.New("entity not found")

// Scenegraph is the main interface for interacting with the scene object
// registry.
type Scenegraph interface {
	ObservationProcessor
	RegistryReader
	SchemaProvider

	// Ping checks that the graph store is reachable.
	Ping(ctx context.Context) error

	// Close closes the graph store.
	Close(ctx context.Context) error
}

// Client is the main implementation of the Scenegraph interface.
type Client struct {
	store   driver.StoreClient
	class   *schema.ClassSchema
	codec   *codec.Codec
	updater *updater.Updater
	config  *Config
	logger  *slog.Logger

	// serializes Process so the sequential allocator never hands one
	// identifier to two batches of this process
	mu sync.Mutex
}

// Config holds configuration for the Scenegraph client.
type Config struct {
	// Allocator mints identifiers for new entities; nil uses sequential
	// identifiers.
	Allocator updater.Allocator
	// CacheTTL enables the registry cache when positive
	CacheTTL time.Duration
}

// NewClient creates a new Scenegraph client for one entity class. A nil
// linker treats every observation as a new object.
func NewClient(store driver.StoreClient, class *schema.ClassSchema, l linker.Linker, config *Config, logger *slog.Logger) (*Client, error) {
	if store == nil {
		return nil, fmt.Errorf("graph store is required")
	}
	if class == nil {
		return nil, fmt.Errorf("class schema is required")
	}
	if config == nil {
		config = &Config{}
	}
	if logger == nil {
		logger = slog.Default()
	}

	c := codec.New(class)
	return &Client{
		store: store,
		class: class,
		codec: c,
		updater: updater.New(store, c, l, &updater.Config{
			Allocator: config.Allocator,
			CacheTTL:  config.CacheTTL,
		}, logger),
		config: config,
		logger: logger,
	}, nil
}

// NewFromConfig loads the schema, connects to the graph store and selects the
// linker and allocator named by cfg.
func NewFromConfig(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}

	class, err := LoadSchema(cfg.Schema)
	if err != nil {
		return nil, err
	}
	l, err := linker.New(cfg.Linker.Mode)
	if err != nil {
		return nil, err
	}
	alloc, err := updater.NewAllocator(cfg.Updater.Allocator)
	if err != nil {
		return nil, err
	}

	store, err := driver.NewFromConfig(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create graph store: %w", err)
	}

	client, err := NewClient(store, class, l, &Config{Allocator: alloc, CacheTTL: cfg.Updater.CacheTTL}, logger)
	if err != nil {
		_ = store.Close(ctx)
		return nil, err
	}
	return client, nil
}

// LoadSchema reads the configured schema document, or builds the scene
// object blueprint when no path is set, and reflects the configured class.
func LoadSchema(sc config.SchemaConfig) (*schema.ClassSchema, error) {
	var doc *schema.Document
	if sc.Path != "" {
		var err error
		doc, err = schema.LoadFile(sc.Path)
		if err != nil {
			return nil, err
		}
	} else {
		orientation, err := schema.ParseOrientation(sc.Orientation)
		if err != nil {
			return nil, err
		}
		doc = schema.Blueprint(sc.Namespace, orientation)
	}

	className := sc.Class
	if className == "" {
		className = schema.DefaultClass
	}
	return schema.Reflect(doc, className)
}

// GetStore returns the underlying graph store.
func (c *Client) GetStore() driver.StoreClient {
	return c.store
}

// Process reconciles a batch of observations with the registry. Calls are
// serialized.
func (c *Client) Process(ctx context.Context, batch []*types.ObservedObject) (*types.ProcessResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	start := time.Now()
	result, err := c.updater.Process(ctx, batch)
	if err != nil {
		return nil, err
	}
	c.logger.DebugContext(ctx, "process finished", "observations", len(batch), "duration", time.Since(start))
	return result, nil
}

// Entities returns every registered entity in identifier order, together
// with the stored entities that could not be reconstructed.
func (c *Client) Entities(ctx context.Context) ([]*types.Entity, []error, error) {
	return c.updater.Fetch(ctx)
}

// Entity returns the registered entity with the given identifier.
func (c *Client) Entity(ctx context.Context, id string) (*types.Entity, error) {
	if err := types.ValidateID(id); err != nil {
		return nil, err
	}
	entities, _, err := c.updater.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	for _, e := range entities {
		if e.ID == id {
			return e, nil
		}
	}
	return nil, fmt.Errorf("%w: %s %q", ErrEntityNotFound, c.class.Name, id)
}

// Schema returns the reflected class schema.
func (c *Client) Schema() *schema.ClassSchema {
	return c.class
}

// Ping checks that the graph store is reachable.
func (c *Client) Ping(ctx context.Context) error {
	return c.store.Ping(ctx)
}

// Close closes the graph store.
func (c *Client) Close(ctx context.Context) error {
	return c.store.Close(ctx)
}
