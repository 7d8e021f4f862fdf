// Package cql implements the column-family persistence adapter: a badger-
// backed key/value store exposing a small CQL-like textual query façade.
// Grounded on pkg/kv/kv.go's prefix-keyed badger wrapper (Open/Close/
// Iterate/Flush/Compact shape) generalised to a (keyspace, table, primary
// key) addressing scheme.
package cql

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"

	"github.com/coldforge/membrain/internal/brainerr"
)

// Adapter is the column-family K/V persistence layer.
type Adapter struct {
	db       *badger.DB
	closed   bool
	closedMu sync.RWMutex

	tablesMu sync.Mutex
	tables   map[string]bool // "ks.table" -> registered
}

// Options mirrors pkg/kv.Options, trimmed to what this adapter needs.
type Options struct {
	Dir        string
	SyncWrites bool
	InMemory   bool
}

// DefaultOptions returns sensible defaults for dir.
func DefaultOptions(dir string) Options {
	return Options{Dir: dir, SyncWrites: false}
}

// Open opens (or creates) the adapter's badger database.
func Open(opt Options) (*Adapter, error) {
	if !opt.InMemory && opt.Dir == "" {
		opt.Dir = filepath.Join(os.TempDir(), "membrain-coredb")
	}
	opts := badger.DefaultOptions(opt.Dir)
	opts.SyncWrites = opt.SyncWrites
	opts.Compression = options.ZSTD
	opts.InMemory = opt.InMemory
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, brainerr.Wrap(brainerr.StoreFailed, "open badger", err)
	}
	a := &Adapter{db: db, tables: make(map[string]bool)}
	if err := a.loadTableRegistry(); err != nil {
		db.Close()
		return nil, err
	}
	return a, nil
}

const metaTablesKey = "__meta__:tables"

func (a *Adapter) loadTableRegistry() error {
	return a.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(metaTablesKey))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		val, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		var names []string
		if err := json.Unmarshal(val, &names); err != nil {
			return err
		}
		a.tablesMu.Lock()
		for _, n := range names {
			a.tables[n] = true
		}
		a.tablesMu.Unlock()
		return nil
	})
}

func (a *Adapter) persistTableRegistryLocked() error {
	names := make([]string, 0, len(a.tables))
	for n := range a.tables {
		names = append(names, n)
	}
	sort.Strings(names)
	buf, err := json.Marshal(names)
	if err != nil {
		return err
	}
	return a.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(metaTablesKey), buf)
	})
}

// Close closes the database.
func (a *Adapter) Close() error {
	a.closedMu.Lock()
	defer a.closedMu.Unlock()
	if a.closed {
		return nil
	}
	a.closed = true
	return a.db.Close()
}

func (a *Adapter) checkOpen() error {
	a.closedMu.RLock()
	defer a.closedMu.RUnlock()
	if a.closed {
		return brainerr.Wrap(brainerr.ClosedBrain, "adapter is closed", nil)
	}
	return nil
}

// Flush guarantees durability of all writes so far.
func (a *Adapter) Flush() error {
	return a.db.Sync()
}

// Compact reclaims space from the value log.
func (a *Adapter) Compact() error {
	err := a.db.RunValueLogGC(0.5)
	if err == badger.ErrNoRewrite {
		return nil
	}
	return err
}

func rowKey(ks, table, pk string) string {
	return fmt.Sprintf("%s:%s:%s", ks, table, pk)
}

func rowPrefix(ks, table string) string {
	return fmt.Sprintf("%s:%s:", ks, table)
}

func tableKey(ks, table string) string { return ks + "." + table }

// registerTable marks (ks, table) as existing; idempotent.
func (a *Adapter) registerTable(ks, table string) error {
	a.tablesMu.Lock()
	defer a.tablesMu.Unlock()
	key := tableKey(ks, table)
	if a.tables[key] {
		return nil
	}
	a.tables[key] = true
	return a.persistTableRegistryLocked()
}

// hasTable reports whether (ks, table) has been created.
func (a *Adapter) hasTable(ks, table string) bool {
	a.tablesMu.Lock()
	defer a.tablesMu.Unlock()
	return a.tables[tableKey(ks, table)]
}

// putRow writes cols (already string-serialised per the schema rules) under
// (ks, table, pk), then flushes for durability.
func (a *Adapter) putRow(ks, table, pk string, cols map[string]string, order []string) error {
	if err := a.checkOpen(); err != nil {
		return err
	}
	stored := storedRow{Order: order, Values: cols}
	buf, err := json.Marshal(stored)
	if err != nil {
		return brainerr.Wrap(brainerr.StoreFailed, "marshal row", err)
	}
	err = a.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(rowKey(ks, table, pk)), buf)
	})
	if err != nil {
		return brainerr.Wrap(brainerr.StoreFailed, "write row", err)
	}
	return a.Flush()
}

// deleteRow removes (ks, table, pk), then flushes.
func (a *Adapter) deleteRow(ks, table, pk string) error {
	if err := a.checkOpen(); err != nil {
		return err
	}
	err := a.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(rowKey(ks, table, pk)))
	})
	if err != nil {
		return brainerr.Wrap(brainerr.StoreFailed, "delete row", err)
	}
	return a.Flush()
}

// getRow reads a single row by primary key.
func (a *Adapter) getRow(ks, table, pk string) (storedRow, bool, error) {
	if err := a.checkOpen(); err != nil {
		return storedRow{}, false, err
	}
	var out storedRow
	found := false
	err := a.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(rowKey(ks, table, pk)))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		val, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		if err := json.Unmarshal(val, &out); err != nil {
			return err
		}
		found = true
		return nil
	})
	if err != nil {
		return storedRow{}, false, brainerr.Wrap(brainerr.StoreFailed, "read row", err)
	}
	return out, found, nil
}

// scanTable returns every row in (ks, table), in key order.
func (a *Adapter) scanTable(ks, table string) ([]storedRow, error) {
	if err := a.checkOpen(); err != nil {
		return nil, err
	}
	prefix := []byte(rowPrefix(ks, table))
	var rows []storedRow
	err := a.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			val, err := it.Item().ValueCopy(nil)
			if err != nil {
				continue
			}
			var row storedRow
			if err := json.Unmarshal(val, &row); err != nil {
				continue
			}
			rows = append(rows, row)
		}
		return nil
	})
	if err != nil {
		return nil, brainerr.Wrap(brainerr.StoreFailed, "scan table", err)
	}
	return rows, nil
}

type storedRow struct {
	Order  []string          `json:"order"`
	Values map[string]string `json:"values"`
}
