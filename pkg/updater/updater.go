// Package updater reconciles batches of observations with the entities
// registered in the graph store.
//
// For each call to Process the registered entities are fetched once, every
// valid observation is linked to a registered entity or given a fresh
// identifier, and each observation is committed with one atomic upsert.
// Observations are committed in input order, and later observations of a
// batch see the entities committed earlier in the same batch.
package updater

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/soundprediction/scenegraph/pkg/codec"
	"github.com/soundprediction/scenegraph/pkg/driver"
	"github.com/soundprediction/scenegraph/pkg/linker"
	"github.com/soundprediction/scenegraph/pkg/types"
)

// Store is the part of driver.StoreClient the updater needs.
type Store interface {
	driver.FactQuerier
	driver.FactUpdater
}

// Config holds optional Updater settings.
type Config struct {
	// Allocator mints identifiers for new entities. Defaults to Sequential.
	Allocator Allocator

	// CacheTTL enables the registry cache when positive. The cache holds the
	// decoded registry between calls, so it is only safe when this process
	// is the sole writer of the class.
	CacheTTL time.Duration
}

// Updater runs the observation update loop for one class.
type Updater struct {
	store     Store
	codec     *codec.Codec
	linker    linker.Linker
	allocator Allocator
	cache     *cache.Cache
	logger    *slog.Logger
}

type snapshot struct {
	entities []*types.Entity
	excluded []error
}

// New creates an Updater. A nil linker treats every observation as new. A
// panic inside the linker fails only the observation being linked.
func New(store Store, c *codec.Codec, l linker.Linker, cfg *Config, logger *slog.Logger) *Updater {
	if cfg == nil {
		cfg = &Config{}
	}
	if l == nil {
		l = linker.NoMatch{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	u := &Updater{
		store:     store,
		codec:     c,
		linker:    linker.Recover(l),
		allocator: cfg.Allocator,
		logger:    logger.With("component", "updater", "class", c.Class().Name),
	}
	if u.allocator == nil {
		u.allocator = Sequential{}
	}
	if cfg.CacheTTL > 0 {
		u.cache = cache.New(cfg.CacheTTL, 2*cfg.CacheTTL)
	}
	return u
}

// Fetch returns the registered entities of the class in identifier order,
// plus an *codec.IncompleteEntityError for every stored entity that could
// not be reconstructed.
func (u *Updater) Fetch(ctx context.Context) ([]*types.Entity, []error, error) {
	snap, err := u.fetch(ctx)
	if err != nil {
		return nil, nil, err
	}
	return snap.entities, snap.excluded, nil
}

func (u *Updater) fetch(ctx context.Context) (*snapshot, error) {
	if u.cache != nil {
		if v, ok := u.cache.Get(u.cacheKey()); ok {
			cached := v.(*snapshot)
			return &snapshot{
				entities: append([]*types.Entity(nil), cached.entities...),
				excluded: append([]error(nil), cached.excluded...),
			}, nil
		}
	}

	rows, err := u.store.Query(ctx, u.codec.BuildQuery())
	if err != nil {
		return nil, fmt.Errorf("failed to fetch registered entities: %w", err)
	}
	entities, err := u.codec.DecodeBindings(rows)
	snap := &snapshot{entities: entities}
	if err != nil {
		for _, e := range splitErrors(err) {
			if !errors.Is(e, &codec.IncompleteEntityError{}) {
				return nil, fmt.Errorf("failed to decode registered entities: %w", err)
			}
			snap.excluded = append(snap.excluded, e)
		}
	}
	for _, e := range snap.excluded {
		u.logger.WarnContext(ctx, "excluding incomplete entity", "error", e)
	}

	u.saveSnapshot(snap)
	return snap, nil
}

func (u *Updater) saveSnapshot(snap *snapshot) {
	if u.cache == nil {
		return
	}
	entities := append([]*types.Entity(nil), snap.entities...)
	sort.Slice(entities, func(i, j int) bool {
		return codec.LessID(entities[i].ID, entities[j].ID)
	})
	u.cache.Set(u.cacheKey(), &snapshot{
		entities: entities,
		excluded: append([]error(nil), snap.excluded...),
	}, cache.DefaultExpiration)
}

func (u *Updater) cacheKey() string {
	return u.codec.Class().IRI
}

// Invalidate drops the cached registry, if any.
func (u *Updater) Invalidate() {
	if u.cache != nil {
		u.cache.Delete(u.cacheKey())
	}
}

// Process reconciles a batch of observations with the registry.
//
// Observations that fail schema validation are rejected without touching the
// store. A failed fetch aborts the whole batch and is returned as the error;
// link and commit failures only fail their own observation. Every outcome is
// reported in the result, in batch order.
func (u *Updater) Process(ctx context.Context, batch []*types.ObservedObject) (*types.ProcessResult, error) {
	result := &types.ProcessResult{Results: make([]types.ObservationResult, len(batch))}
	normalized := make([]types.Attributes, len(batch))
	valid := 0
	for i, obs := range batch {
		res := &result.Results[i]
		res.Index = i
		res.State = types.StateReceived

		var attrs types.Attributes
		if obs != nil {
			attrs = obs.Attributes
		}
		n, err := u.codec.Normalize(attrs)
		if err != nil {
			res.State = types.StateRejected
			res.Err = err
			result.Rejected++
			u.logger.WarnContext(ctx, "observation rejected", "index", i, "error", err)
			continue
		}
		normalized[i] = n
		valid++
	}
	if valid == 0 {
		return result, nil
	}

	snap, err := u.fetch(ctx)
	if err != nil {
		return nil, err
	}
	result.Excluded = snap.excluded

	registered := snap.entities
	byID := make(map[string]int, len(registered))
	taken := make(map[string]struct{}, len(registered)+len(snap.excluded))
	for i, e := range registered {
		byID[e.ID] = i
		taken[e.ID] = struct{}{}
	}
	for _, e := range snap.excluded {
		var inc *codec.IncompleteEntityError
		if errors.As(e, &inc) && inc.ID != "" {
			taken[inc.ID] = struct{}{}
		}
	}

	cacheable := true
	for i := range batch {
		res := &result.Results[i]
		if res.State == types.StateRejected {
			continue
		}

		id, created, err := u.link(ctx, i, registered, byID, taken, normalized[i])
		if err != nil {
			u.fail(ctx, result, i, err)
			continue
		}
		res.ID = id
		res.Created = created
		if created {
			res.State = types.StateUnmatched
			taken[id] = struct{}{}
		} else {
			res.State = types.StateMatched
		}

		entity, err := u.commit(ctx, id, normalized[i])
		if err != nil {
			u.fail(ctx, result, i, err)
			u.Invalidate()
			cacheable = false
			continue
		}
		res.State = types.StateCommitted
		res.Entity = entity
		if created {
			result.Created++
			byID[id] = len(registered)
			registered = append(registered, entity)
		} else {
			result.Updated++
			registered[byID[id]] = entity
		}
		if cacheable {
			u.saveSnapshot(&snapshot{entities: registered, excluded: snap.excluded})
		}
		u.logger.DebugContext(ctx, "observation committed", "index", i, "id", id, "created", created)
	}

	u.logger.InfoContext(ctx, "batch processed",
		"observations", len(batch),
		"created", result.Created,
		"updated", result.Updated,
		"rejected", result.Rejected,
		"failed", result.Failed,
		"excluded", len(result.Excluded))
	return result, nil
}

// link returns the identifier the observation is committed under and whether
// it was freshly allocated.
func (u *Updater) link(ctx context.Context, index int, registered []*types.Entity, byID map[string]int, taken map[string]struct{}, attrs types.Attributes) (string, bool, error) {
	m, err := u.linker.Match(ctx, registered, types.NewObservedObject(attrs.Clone()))
	if err != nil {
		return "", false, &LinkError{Index: index, Err: err}
	}
	if m.Matched {
		if _, ok := byID[m.ID]; !ok {
			return "", false, &LinkError{Index: index, ID: m.ID, Err: ErrUnknownEntity}
		}
		return m.ID, false, nil
	}

	id, err := u.allocator.Allocate(registered, taken)
	if err != nil {
		return "", false, fmt.Errorf("allocate identifier for observation %d: %w", index, err)
	}
	if _, dup := taken[id]; dup {
		return "", false, fmt.Errorf("allocator returned identifier %q that is already in use", id)
	}
	if err := types.ValidateID(id); err != nil {
		return "", false, fmt.Errorf("allocator returned an invalid identifier: %w", err)
	}
	return id, true, nil
}

func (u *Updater) commit(ctx context.Context, id string, attrs types.Attributes) (*types.Entity, error) {
	upsert, err := u.codec.BuildUpsert(id, attrs)
	if err != nil {
		return nil, err
	}
	if err := u.store.Update(ctx, upsert); err != nil {
		return nil, fmt.Errorf("failed to commit entity %q: %w", id, err)
	}
	return &types.Entity{ID: id, Class: u.codec.Class().Name, Attributes: attrs}, nil
}

func (u *Updater) fail(ctx context.Context, result *types.ProcessResult, index int, err error) {
	res := &result.Results[index]
	res.State = types.StateFailed
	res.Err = err
	result.Failed++
	u.logger.ErrorContext(ctx, "observation failed", "index", index, "id", res.ID, "error", err)
}

// splitErrors flattens an errors.Join result.
func splitErrors(err error) []error {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		return joined.Unwrap()
	}
	return []error{err}
}
