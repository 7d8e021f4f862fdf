package tierstore

import (
	"fmt"
	"strings"
	"sync"

	"github.com/coldforge/membrain/internal/cql"
	"github.com/coldforge/membrain/internal/record"
)

// Keyspace is the single keyspace the core uses.
const Keyspace = "memory_brain"

// DurableTier is a durable CRUD tier backed by the CQL adapter: Episodic,
// Semantic, or Procedural.
type DurableTier struct {
	mu      sync.Mutex // serialises writes to this tier; reads pass through to the adapter
	adapter *cql.Adapter
	table   string
	tier    record.Tier
}

// NewDurableTier opens (creating if needed) the named table for tier.
func NewDurableTier(adapter *cql.Adapter, tier record.Tier) (*DurableTier, error) {
	table := string(tier)
	ddl := fmt.Sprintf(
		"CREATE TABLE %s.%s (id TEXT PK, content TEXT, context TEXT, tier TEXT, emotion TEXT, created_at BIGINT, last_accessed BIGINT, access_count INT, strength TEXT, embedding TEXT, tags TEXT, associations TEXT)",
		Keyspace, table,
	)
	if _, err := adapter.Execute(ddl); err != nil {
		return nil, err
	}
	return &DurableTier{adapter: adapter, table: table, tier: tier}, nil
}

func (d *DurableTier) insertStmt(r *record.Record) string {
	cols, order := toRow(r)
	var colNames, vals []string
	for _, c := range order {
		colNames = append(colNames, c)
		vals = append(vals, "'"+cql.EscapeString(cols[c])+"'")
	}
	return fmt.Sprintf("INSERT INTO %s.%s (%s) VALUES (%s)",
		Keyspace, d.table, strings.Join(colNames, ", "), strings.Join(vals, ", "))
}

// Put upserts r.
func (d *DurableTier) Put(r *record.Record) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, err := d.adapter.Execute(d.insertStmt(r))
	return err
}

// Get fetches a record by exact id.
func (d *DurableTier) Get(id string) (*record.Record, bool, error) {
	q := fmt.Sprintf("SELECT * FROM %s.%s WHERE id = '%s'", Keyspace, d.table, cql.EscapeString(id))
	res, err := d.adapter.Execute(q)
	if err != nil {
		return nil, false, err
	}
	if len(res.Rows) == 0 {
		return nil, false, nil
	}
	r, err := rowToRecord(res)
	if err != nil {
		return nil, false, err
	}
	return r, true, nil
}

// Delete removes a record by id.
func (d *DurableTier) Delete(id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	q := fmt.Sprintf("DELETE FROM %s.%s WHERE id = '%s'", Keyspace, d.table, cql.EscapeString(id))
	_, err := d.adapter.Execute(q)
	return err
}

// All returns every record in the tier (full scan).
func (d *DurableTier) All() ([]*record.Record, error) {
	q := fmt.Sprintf("SELECT * FROM %s.%s", Keyspace, d.table)
	res, err := d.adapter.Execute(q)
	if err != nil {
		return nil, err
	}
	return rowsToRecords(res)
}

// SearchSubstring returns records whose content contains query
// (case-insensitive).
func (d *DurableTier) SearchSubstring(query string) ([]*record.Record, error) {
	all, err := d.All()
	if err != nil {
		return nil, err
	}
	var out []*record.Record
	for _, r := range all {
		if r.MatchesSubstring(query) {
			out = append(out, r)
		}
	}
	return out, nil
}

// GetByIDPrefix returns the first record, in key order, whose id starts
// with prefix, or nil if none does. It does not check that the match is
// unique.
func (d *DurableTier) GetByIDPrefix(prefix string) (*record.Record, error) {
	all, err := d.All()
	if err != nil {
		return nil, err
	}
	for _, r := range all {
		if strings.HasPrefix(r.ID, prefix) {
			return r, nil
		}
	}
	return nil, nil
}

func rowToRecord(res cqlResult) (*record.Record, error) {
	cols := make(map[string]string, len(res.Columns))
	for i, c := range res.Columns {
		cols[c] = res.Rows[0][i]
	}
	return fromRow(cols)
}

func rowsToRecords(res cqlResult) ([]*record.Record, error) {
	out := make([]*record.Record, 0, len(res.Rows))
	for _, row := range res.Rows {
		cols := make(map[string]string, len(res.Columns))
		for i, c := range res.Columns {
			cols[c] = row[i]
		}
		r, err := fromRow(cols)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// cqlResult is a narrow alias to avoid importing cql.Result's package name
// twice in this file's signatures; it is structurally identical.
type cqlResult = cql.Result
