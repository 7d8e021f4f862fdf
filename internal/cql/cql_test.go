package cql

import "testing"

func openTestAdapter(t *testing.T) *Adapter {
	t.Helper()
	a, err := Open(Options{InMemory: true})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { a.Close() })
	return a
}

func TestCreateKeyspaceIdempotent(t *testing.T) {
	a := openTestAdapter(t)
	for i := 0; i < 2; i++ {
		res, err := a.Execute("CREATE KEYSPACE memory_brain WITH REPLICATION = {'class': 'SimpleStrategy'}")
		if err != nil {
			t.Fatalf("CREATE KEYSPACE attempt %d: %v", i, err)
		}
		if !res.Success {
			t.Errorf("CREATE KEYSPACE attempt %d not successful", i)
		}
	}
}

func TestCreateTableIdempotent(t *testing.T) {
	a := openTestAdapter(t)
	stmt := "CREATE TABLE memory_brain.episodic (id TEXT PK, content TEXT)"
	for i := 0; i < 2; i++ {
		if _, err := a.Execute(stmt); err != nil {
			t.Fatalf("CREATE TABLE attempt %d: %v", i, err)
		}
	}
}

func TestInsertSelectByPK(t *testing.T) {
	a := openTestAdapter(t)
	a.Execute("CREATE TABLE memory_brain.episodic (id TEXT PK, content TEXT)")
	_, err := a.Execute("INSERT INTO memory_brain.episodic (id, content) VALUES ('abc-1', 'hello world')")
	if err != nil {
		t.Fatalf("INSERT: %v", err)
	}

	res, err := a.Execute("SELECT * FROM memory_brain.episodic WHERE id = 'abc-1'")
	if err != nil {
		t.Fatalf("SELECT: %v", err)
	}
	if len(res.Rows) != 1 {
		t.Fatalf("len(Rows) = %d, want 1", len(res.Rows))
	}
	idIdx, contentIdx := -1, -1
	for i, c := range res.Columns {
		switch c {
		case "id":
			idIdx = i
		case "content":
			contentIdx = i
		}
	}
	if res.Rows[0][idIdx] != "abc-1" || res.Rows[0][contentIdx] != "hello world" {
		t.Errorf("row = %v, want [abc-1, hello world]", res.Rows[0])
	}
}

func TestInsertEscapesQuotes(t *testing.T) {
	a := openTestAdapter(t)
	a.Execute("CREATE TABLE memory_brain.episodic (id TEXT PK, content TEXT)")
	content := EscapeString("it's a test")
	_, err := a.Execute("INSERT INTO memory_brain.episodic (id, content) VALUES ('x', '" + content + "')")
	if err != nil {
		t.Fatalf("INSERT: %v", err)
	}
	res, _ := a.Execute("SELECT * FROM memory_brain.episodic WHERE id = 'x'")
	for i, c := range res.Columns {
		if c == "content" && res.Rows[0][i] != "it's a test" {
			t.Errorf("content = %q, want %q", res.Rows[0][i], "it's a test")
		}
	}
}

func TestSelectFullScan(t *testing.T) {
	a := openTestAdapter(t)
	a.Execute("CREATE TABLE memory_brain.episodic (id TEXT PK, content TEXT)")
	a.Execute("INSERT INTO memory_brain.episodic (id, content) VALUES ('1', 'a')")
	a.Execute("INSERT INTO memory_brain.episodic (id, content) VALUES ('2', 'b')")

	res, err := a.Execute("SELECT * FROM memory_brain.episodic")
	if err != nil {
		t.Fatalf("SELECT *: %v", err)
	}
	if len(res.Rows) != 2 {
		t.Errorf("len(Rows) = %d, want 2", len(res.Rows))
	}
}

func TestDeleteRemovesRow(t *testing.T) {
	a := openTestAdapter(t)
	a.Execute("CREATE TABLE memory_brain.episodic (id TEXT PK, content TEXT)")
	a.Execute("INSERT INTO memory_brain.episodic (id, content) VALUES ('1', 'a')")
	if _, err := a.Execute("DELETE FROM memory_brain.episodic WHERE id = '1'"); err != nil {
		t.Fatalf("DELETE: %v", err)
	}
	res, _ := a.Execute("SELECT * FROM memory_brain.episodic WHERE id = '1'")
	if len(res.Rows) != 0 {
		t.Errorf("row should be gone after DELETE, got %v", res.Rows)
	}
}

func TestInsertIntoUnknownTableFails(t *testing.T) {
	a := openTestAdapter(t)
	_, err := a.Execute("INSERT INTO memory_brain.nope (id) VALUES ('1')")
	if err == nil {
		t.Error("INSERT into unregistered table should fail")
	}
}
