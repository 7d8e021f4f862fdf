package cql

import (
	"fmt"
	"strings"

	"github.com/google/shlex"

	"github.com/coldforge/membrain/internal/brainerr"
)

// Result is the outcome of Execute: either a row set (Columns/Rows
// populated) or a bare success/failure.
type Result struct {
	Success bool
	Columns []string
	Rows    [][]string
}

// EscapeString doubles single quotes, per the schema's escaping rule.
func EscapeString(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

func unescapeString(s string) string {
	return strings.ReplaceAll(s, "''", "'")
}

// Execute runs one statement of the supported CQL subset:
//
//	CREATE KEYSPACE <ks> WITH REPLICATION = {...}
//	CREATE TABLE <ks>.<t> (<col defs>)
//	INSERT INTO <ks>.<t> (...) VALUES (...)
//	DELETE FROM <ks>.<t> WHERE <pk> = '<id>'
//	SELECT * FROM <ks>.<t> [WHERE <pk> = '<id>']
func (a *Adapter) Execute(query string) (Result, error) {
	stmt := strings.TrimSpace(query)
	upper := strings.ToUpper(stmt)

	switch {
	case strings.HasPrefix(upper, "CREATE KEYSPACE"):
		return a.execCreateKeyspace(stmt)
	case strings.HasPrefix(upper, "CREATE TABLE"):
		return a.execCreateTable(stmt)
	case strings.HasPrefix(upper, "INSERT INTO"):
		return a.execInsert(stmt)
	case strings.HasPrefix(upper, "DELETE FROM"):
		return a.execDelete(stmt)
	case strings.HasPrefix(upper, "SELECT"):
		return a.execSelect(stmt)
	default:
		return Result{}, brainerr.Wrap(brainerr.InvalidInput, "unrecognised statement: "+stmt, nil)
	}
}

// execCreateKeyspace is idempotent: keyspaces aren't separately tracked,
// only (keyspace, table) pairs are, so this is a syntax-accepted no-op that
// always succeeds.
func (a *Adapter) execCreateKeyspace(stmt string) (Result, error) {
	fields := strings.Fields(stmt)
	if len(fields) < 3 {
		return Result{}, brainerr.Wrap(brainerr.InvalidInput, "malformed CREATE KEYSPACE", nil)
	}
	return Result{Success: true}, nil
}

// execCreateTable parses "CREATE TABLE ks.table (col defs)" and registers
// the (ks, table) pair. Column defs are accepted but not separately
// enforced beyond what the schema the core writes already guarantees.
func (a *Adapter) execCreateTable(stmt string) (Result, error) {
	open := strings.Index(stmt, "(")
	head := stmt
	if open >= 0 {
		head = stmt[:open]
	}
	fields := strings.Fields(head)
	if len(fields) < 3 {
		return Result{}, brainerr.Wrap(brainerr.InvalidInput, "malformed CREATE TABLE", nil)
	}
	ks, table, err := splitKsTable(fields[2])
	if err != nil {
		return Result{}, err
	}
	if err := a.registerTable(ks, table); err != nil {
		return Result{}, err
	}
	return Result{Success: true}, nil
}

func splitKsTable(qualified string) (ks, table string, err error) {
	parts := strings.SplitN(qualified, ".", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", brainerr.Wrap(brainerr.InvalidInput, "expected keyspace.table, got "+qualified, nil)
	}
	return parts[0], parts[1], nil
}

// execInsert parses "INSERT INTO ks.table (c1, c2, ...) VALUES (v1, v2, ...)".
func (a *Adapter) execInsert(stmt string) (Result, error) {
	into := strings.Index(strings.ToUpper(stmt), "INTO")
	valuesIdx := strings.Index(strings.ToUpper(stmt), "VALUES")
	if into < 0 || valuesIdx < 0 {
		return Result{}, brainerr.Wrap(brainerr.InvalidInput, "malformed INSERT", nil)
	}
	tablePart := strings.TrimSpace(stmt[into+4 : valuesIdx])
	parenOpen := strings.Index(tablePart, "(")
	parenClose := strings.LastIndex(tablePart, ")")
	if parenOpen < 0 || parenClose < 0 {
		return Result{}, brainerr.Wrap(brainerr.InvalidInput, "malformed INSERT column list", nil)
	}
	qualified := strings.TrimSpace(tablePart[:parenOpen])
	ks, table, err := splitKsTable(qualified)
	if err != nil {
		return Result{}, err
	}
	if !a.hasTable(ks, table) {
		return Result{}, brainerr.Wrap(brainerr.InvalidInput, fmt.Sprintf("no such table %s.%s", ks, table), nil)
	}
	cols, err := splitIdentList(tablePart[parenOpen+1 : parenClose])
	if err != nil {
		return Result{}, err
	}

	valuesPart := strings.TrimSpace(stmt[valuesIdx+6:])
	vOpen := strings.Index(valuesPart, "(")
	vClose := strings.LastIndex(valuesPart, ")")
	if vOpen < 0 || vClose < 0 {
		return Result{}, brainerr.Wrap(brainerr.InvalidInput, "malformed VALUES list", nil)
	}
	vals, err := splitValueList(valuesPart[vOpen+1 : vClose])
	if err != nil {
		return Result{}, err
	}
	if len(cols) != len(vals) {
		return Result{}, brainerr.Wrap(brainerr.InvalidInput, "column/value count mismatch", nil)
	}

	rowMap := make(map[string]string, len(cols))
	for i, c := range cols {
		rowMap[c] = vals[i]
	}
	pk, ok := rowMap["id"]
	if !ok || pk == "" {
		return Result{}, brainerr.Wrap(brainerr.InvalidInput, "INSERT requires an id column", nil)
	}
	if err := a.putRow(ks, table, pk, rowMap, cols); err != nil {
		return Result{}, err
	}
	return Result{Success: true}, nil
}

// execDelete parses "DELETE FROM ks.table WHERE pk = 'id'".
func (a *Adapter) execDelete(stmt string) (Result, error) {
	from := strings.Index(strings.ToUpper(stmt), "FROM")
	where := strings.Index(strings.ToUpper(stmt), "WHERE")
	if from < 0 || where < 0 {
		return Result{}, brainerr.Wrap(brainerr.InvalidInput, "malformed DELETE", nil)
	}
	qualified := strings.TrimSpace(stmt[from+4 : where])
	ks, table, err := splitKsTable(qualified)
	if err != nil {
		return Result{}, err
	}
	_, pk, err := parseEqualityClause(stmt[where+5:])
	if err != nil {
		return Result{}, err
	}
	if err := a.deleteRow(ks, table, pk); err != nil {
		return Result{}, err
	}
	return Result{Success: true}, nil
}

// execSelect handles "SELECT * FROM ks.table" and "SELECT * FROM ks.table
// WHERE pk = 'id'".
func (a *Adapter) execSelect(stmt string) (Result, error) {
	from := strings.Index(strings.ToUpper(stmt), "FROM")
	if from < 0 {
		return Result{}, brainerr.Wrap(brainerr.InvalidInput, "malformed SELECT", nil)
	}
	rest := strings.TrimSpace(stmt[from+4:])
	where := strings.Index(strings.ToUpper(rest), "WHERE")

	var qualified string
	var hasFilter bool
	var filterValue string
	if where >= 0 {
		qualified = strings.TrimSpace(rest[:where])
		_, v, err := parseEqualityClause(rest[where+5:])
		if err != nil {
			return Result{}, err
		}
		hasFilter = true
		filterValue = v
	} else {
		qualified = rest
	}
	ks, table, err := splitKsTable(qualified)
	if err != nil {
		return Result{}, err
	}

	if hasFilter {
		row, found, err := a.getRow(ks, table, filterValue)
		if err != nil {
			return Result{}, err
		}
		if !found {
			return Result{Success: true}, nil
		}
		return rowsToResult([]storedRow{row}), nil
	}

	rows, err := a.scanTable(ks, table)
	if err != nil {
		return Result{}, err
	}
	return rowsToResult(rows), nil
}

func rowsToResult(rows []storedRow) Result {
	if len(rows) == 0 {
		return Result{Success: true}
	}
	columns := rows[0].Order
	out := make([][]string, len(rows))
	for i, r := range rows {
		vals := make([]string, len(columns))
		for j, c := range columns {
			vals[j] = r.Values[c]
		}
		out[i] = vals
	}
	return Result{Success: true, Columns: columns, Rows: out}
}

// parseEqualityClause parses "col = 'value'" (optionally followed by more
// text, ignored — the core only ever filters on a single primary-key
// equality) using shlex for quote-aware tokenising.
func parseEqualityClause(clause string) (col, value string, err error) {
	tokens, splitErr := shlex.Split(clause)
	if splitErr != nil || len(tokens) < 3 {
		return "", "", brainerr.Wrap(brainerr.InvalidInput, "malformed WHERE clause: "+clause, splitErr)
	}
	if tokens[1] != "=" {
		return "", "", brainerr.Wrap(brainerr.InvalidInput, "WHERE clause must use =", nil)
	}
	return tokens[0], unescapeString(trimQuotes(tokens[2])), nil
}

func trimQuotes(s string) string {
	if len(s) >= 2 && s[0] == '\'' && s[len(s)-1] == '\'' {
		return s[1 : len(s)-1]
	}
	return s
}

func splitIdentList(s string) ([]string, error) {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			return nil, brainerr.Wrap(brainerr.InvalidInput, "empty identifier in list", nil)
		}
		out = append(out, p)
	}
	return out, nil
}

// splitValueList splits a VALUES(...) body on top-level commas, respecting
// single-quoted strings (which may contain escaped '' and literal commas).
func splitValueList(s string) ([]string, error) {
	var out []string
	var cur strings.Builder
	inQuote := false
	runes := []rune(s)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case r == '\'':
			if inQuote && i+1 < len(runes) && runes[i+1] == '\'' {
				cur.WriteString("''")
				i++
				continue
			}
			inQuote = !inQuote
			cur.WriteRune(r)
		case r == ',' && !inQuote:
			out = append(out, strings.TrimSpace(cur.String()))
			cur.Reset()
		default:
			cur.WriteRune(r)
		}
	}
	out = append(out, strings.TrimSpace(cur.String()))

	for i, v := range out {
		out[i] = unescapeString(trimQuotes(v))
	}
	return out, nil
}
