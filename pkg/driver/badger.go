package driver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dgraph-io/badger/v4"

	"github.com/soundprediction/scenegraph/pkg/types"
)

// Key layout. Components are separated by NUL, which facts may not contain.
//
//	spo: "s" 0 subject 0 predicate 0 object
//	pos: "p" 0 predicate 0 object 0 subject
//
// object is "i" + IRI or "l" + datatype + 0x1f + lexical form. Both indexes
// store the JSON-encoded fact as value.
const (
	spoTag = "s"
	posTag = "p"
	keySep = "\x00"
	dtSep  = "\x1f"
	iriTag = "i"
	litTag = "l"
)

// BadgerConfig configures a BadgerDriver.
type BadgerConfig struct {
	// Path is the database directory. Ignored when InMemory is set.
	Path     string
	InMemory bool
	Logger   *slog.Logger
}

// BadgerDriver is an embedded StoreClient backed by Badger. Each Update runs
// in a single Badger transaction.
type BadgerDriver struct {
	db     *badger.DB
	logger *slog.Logger
}

// NewBadgerDriver opens (or creates) a Badger database.
func NewBadgerDriver(cfg BadgerConfig) (*BadgerDriver, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if cfg.Path == "" {
			return nil, fmt.Errorf("badger path is required unless in_memory is set")
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithLogger(&badgerLogger{logger: logger.With("component", "badger")})

	db, err := badger.Open(opts)
	if err != nil {
		return nil, storeError(StoreProviderBadger, "open", err)
	}
	return &BadgerDriver{db: db, logger: logger}, nil
}

// Query implements FactQuerier.
func (d *BadgerDriver) Query(ctx context.Context, q *Query) ([]Binding, error) {
	if err := q.Validate(); err != nil {
		return nil, fmt.Errorf("invalid query: %w", err)
	}

	var rows []Binding
	err := d.db.View(func(txn *badger.Txn) error {
		for _, branch := range q.Branches {
			solutions, err := evaluate(ctx, &txnSource{txn: txn}, branch)
			if err != nil {
				return err
			}
			for _, sol := range solutions {
				row := make(Binding, len(q.Select))
				for _, v := range q.Select {
					row[v] = sol[v]
				}
				rows = append(rows, row)
			}
		}
		return nil
	})
	if err != nil {
		return nil, storeError(StoreProviderBadger, "query", err)
	}
	return rows, nil
}

// Update implements FactUpdater.
func (d *BadgerDriver) Update(ctx context.Context, u *Update) error {
	if err := u.Validate(); err != nil {
		return fmt.Errorf("invalid update: %w", err)
	}
	for _, f := range u.Insert {
		if containsNUL(f) {
			return fmt.Errorf("invalid update: fact %s contains a NUL byte", f)
		}
	}

	err := d.db.Update(func(txn *badger.Txn) error {
		for _, subject := range u.Clear {
			if err := ctx.Err(); err != nil {
				return err
			}
			if strings.Contains(subject, keySep) {
				return fmt.Errorf("subject %q contains a NUL byte", subject)
			}
			facts, err := scan(txn, []byte(spoTag+keySep+subject+keySep))
			if err != nil {
				return err
			}
			for _, f := range facts {
				if err := txn.Delete(spoKey(f)); err != nil {
					return err
				}
				if err := txn.Delete(posKey(f)); err != nil {
					return err
				}
			}
		}
		for _, f := range u.Insert {
			val, err := json.Marshal(f)
			if err != nil {
				return err
			}
			if err := txn.Set(spoKey(f), val); err != nil {
				return err
			}
			if err := txn.Set(posKey(f), val); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return storeError(StoreProviderBadger, "update", err)
	}
	d.logger.Debug("badger update", "cleared", len(u.Clear), "inserted", len(u.Insert))
	return nil
}

// Ping reports whether the database is open.
func (d *BadgerDriver) Ping(ctx context.Context) error {
	if d.db.IsClosed() {
		return storeError(StoreProviderBadger, "ping", errors.New("database is closed"))
	}
	return nil
}

// Provider implements StoreClient.
func (d *BadgerDriver) Provider() StoreProvider {
	return StoreProviderBadger
}

// Close closes the database.
func (d *BadgerDriver) Close(ctx context.Context) error {
	return d.db.Close()
}

func containsNUL(f types.Fact) bool {
	return strings.Contains(f.Subject, keySep) || strings.Contains(f.Predicate, keySep) ||
		strings.Contains(f.Object.Value, keySep) || strings.Contains(f.Object.Datatype, keySep)
}

func objectKey(t types.Term) string {
	if t.IsIRI() {
		return iriTag + t.Value
	}
	return litTag + t.Datatype + dtSep + t.Value
}

func spoKey(f types.Fact) []byte {
	return []byte(spoTag + keySep + f.Subject + keySep + f.Predicate + keySep + objectKey(f.Object))
}

func posKey(f types.Fact) []byte {
	return []byte(posTag + keySep + f.Predicate + keySep + objectKey(f.Object) + keySep + f.Subject)
}

// scan returns the facts stored under every key with the given prefix.
func scan(txn *badger.Txn, prefix []byte) ([]types.Fact, error) {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	it := txn.NewIterator(opts)
	defer it.Close()

	var facts []types.Fact
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		var f types.Fact
		err := it.Item().Value(func(val []byte) error {
			return json.Unmarshal(val, &f)
		})
		if err != nil {
			return nil, fmt.Errorf("corrupt fact at %q: %w", bytes.ReplaceAll(it.Item().Key(), []byte(keySep), []byte("|")), err)
		}
		facts = append(facts, f)
	}
	return facts, nil
}

// txnSource resolves patterns against a Badger transaction using the most
// selective index.
type txnSource struct {
	txn *badger.Txn
}

func (s *txnSource) candidates(subject, predicate *string, object *types.Term) ([]types.Fact, error) {
	switch {
	case subject != nil:
		prefix := spoTag + keySep + *subject + keySep
		if predicate != nil {
			prefix += *predicate + keySep
			if object != nil {
				prefix += objectKey(*object)
				facts, err := scan(s.txn, []byte(prefix))
				if err != nil {
					return nil, err
				}
				// the prefix also matches longer object keys
				return filterObject(facts, *object), nil
			}
		}
		return scan(s.txn, []byte(prefix))
	case predicate != nil:
		prefix := posTag + keySep + *predicate + keySep
		if object != nil {
			prefix += objectKey(*object) + keySep
		}
		return scan(s.txn, []byte(prefix))
	default:
		return scan(s.txn, []byte(spoTag+keySep))
	}
}

func filterObject(facts []types.Fact, object types.Term) []types.Fact {
	out := facts[:0]
	for _, f := range facts {
		if f.Object == object {
			out = append(out, f)
		}
	}
	return out
}

// badgerLogger routes Badger's log output to slog.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...any) {
	l.logger.Error(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l *badgerLogger) Warningf(format string, args ...any) {
	l.logger.Warn(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l *badgerLogger) Infof(format string, args ...any) {
	l.logger.Debug(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l *badgerLogger) Debugf(format string, args ...any) {
	l.logger.Debug(strings.TrimSpace(fmt.Sprintf(format, args...)))
}
