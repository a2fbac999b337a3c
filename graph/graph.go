package graph

import (
	"database/sql"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// InMemory is the store location sentinel for an ephemeral in-memory
// graph. Each in-memory Graph gets its own uuid-named shared-cache
// database, so independent in-memory graphs never observe each other.
const InMemory = ":memory:"

// DefaultBounceThreshold is the compiled-text length past which a
// selection constructor collapses its expression to a flat id list.
// SQLite's parser handles nesting far beyond this; the low default
// keeps worst-case statement depth small at negligible cost.
const DefaultBounceThreshold = 128

const schemaSQL = `
CREATE TABLE IF NOT EXISTS nodes (
	id INTEGER NOT NULL,
	label TEXT DEFAULT '',
	tags TEXT DEFAULT '{}',
	PRIMARY KEY(id)
);
CREATE TABLE IF NOT EXISTS edges (
	id INTEGER NOT NULL,
	source INTEGER NOT NULL,
	target INTEGER NOT NULL,
	label TEXT DEFAULT '',
	tags TEXT DEFAULT '{}',
	PRIMARY KEY(id),
	FOREIGN KEY(source) REFERENCES nodes(id),
	FOREIGN KEY(target) REFERENCES nodes(id)
);
CREATE INDEX IF NOT EXISTS edge_src ON edges(source);
CREATE INDEX IF NOT EXISTS edge_tgt ON edges(target);
CREATE INDEX IF NOT EXISTS edge_lbl ON edges(label);
CREATE INDEX IF NOT EXISTS node_lbl ON nodes(label);
`

// Graph is a session over one backing store. It owns the connection,
// the schema, the vertex/edge id counters used for unkeyed insertion,
// and the single currently open transaction.
//
// One Graph per backing store at a time; concurrent external writers
// are undefined behavior. All methods must be called from one
// goroutine (or be externally serialized).
type Graph struct {
	db   *sql.DB
	tx   *sql.Tx
	path string // backing file; empty for in-memory
	keep bool   // retain the backing file on Close

	bounce int
	log    *zap.Logger

	nextNodeID uint64
	nextEdgeID uint64
	calls      uint64
}

// Option configures a Graph at Open time.
type Option func(*openConfig)

type openConfig struct {
	erase  bool
	keep   bool
	bounce int
	log    *zap.Logger
}

// WithErase purges all vertices and edges after opening, by removing
// the backing file before the connection is made.
func WithErase() Option {
	return func(c *openConfig) { c.erase = true }
}

// NonPersistent deletes the backing file when the Graph is closed.
// In-memory graphs are always non-persistent.
func NonPersistent() Option {
	return func(c *openConfig) { c.keep = false }
}

// WithBounceThreshold overrides DefaultBounceThreshold. Lower values
// bounce more eagerly; raising it trades statement depth for fewer
// intermediate id queries.
func WithBounceThreshold(n int) Option {
	return func(c *openConfig) { c.bounce = n }
}

// WithLogger attaches a logger; every executed statement is logged at
// Debug level. Defaults to a nop logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *openConfig) { c.log = l }
}

// Open creates or opens the store at path and returns a session over
// it. Pass InMemory for an ephemeral store. The schema and secondary
// indices are ensured, id counters are primed from the existing rows,
// and a transaction is opened.
func Open(path string, opts ...Option) (*Graph, error) {
	cfg := openConfig{keep: true, bounce: DefaultBounceThreshold, log: zap.NewNop()}
	for _, opt := range opts {
		opt(&cfg)
	}

	dsn := path
	inMemory := path == InMemory || path == ""
	if inMemory {
		// A uuid-named shared-cache DB keeps the data alive across
		// pool reconnects while isolating it from other sessions.
		dsn = fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	} else if cfg.erase {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("erase store %s: %w", path, err)
		}
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to store %s: %w", path, err)
	}

	// SQLite supports one writer; a single pooled connection avoids
	// SQLITE_BUSY and keeps the open transaction on one connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	g := &Graph{
		db:     db,
		path:   path,
		keep:   cfg.keep && !inMemory,
		bounce: cfg.bounce,
		log:    cfg.log,
	}
	if inMemory {
		g.path = ""
	}

	if err := g.bootstrap(); err != nil {
		db.Close()
		return nil, err
	}
	if err := g.begin(); err != nil {
		db.Close()
		return nil, err
	}
	return g, nil
}

func (g *Graph) bootstrap() error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if err := g.exec(pragma); err != nil {
			return fmt.Errorf("apply %q: %w", pragma, err)
		}
	}
	if err := g.exec(schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}

	// Prime counters so unkeyed insertion never collides with rows
	// already in a reopened store.
	var err error
	if g.nextNodeID, err = g.maxID("nodes"); err != nil {
		return err
	}
	if g.nextEdgeID, err = g.maxID("edges"); err != nil {
		return err
	}
	g.nextNodeID++
	g.nextEdgeID++
	return nil
}

func (g *Graph) maxID(table string) (uint64, error) {
	res, err := g.query("SELECT COALESCE(MAX(id), 0) AS id FROM " + table)
	if err != nil {
		return 0, fmt.Errorf("prime %s id counter: %w", table, err)
	}
	var id uint64
	if _, err := fmt.Sscan(res.Body[0][0], &id); err != nil {
		return 0, fmt.Errorf("prime %s id counter: parse %q: %w", table, res.Body[0][0], err)
	}
	return id, nil
}

// Close commits the open transaction and releases the connection. A
// non-persistent file-backed store is deleted afterwards.
func (g *Graph) Close() error {
	if g.db == nil {
		return nil
	}
	var firstErr error
	if g.tx != nil {
		g.calls++
		if err := g.tx.Commit(); err != nil {
			firstErr = fmt.Errorf("final commit: %w", err)
		}
		g.tx = nil
	}
	if err := g.db.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("close store: %w", err)
	}
	g.db = nil
	if !g.keep && g.path != "" {
		if err := os.Remove(g.path); err != nil && !os.IsNotExist(err) && firstErr == nil {
			firstErr = fmt.Errorf("remove store %s: %w", g.path, err)
		}
	}
	return firstErr
}

// Commit finalizes the open transaction, making prior changes durable,
// and opens the next one.
func (g *Graph) Commit() error {
	if g.tx == nil {
		return ErrClosed
	}
	g.calls++
	if err := g.tx.Commit(); err != nil {
		g.tx = nil
		return fmt.Errorf("commit: %w", err)
	}
	return g.begin()
}

// Rollback discards all changes since the last Commit or Rollback and
// opens the next transaction.
func (g *Graph) Rollback() error {
	if g.tx == nil {
		return ErrClosed
	}
	g.calls++
	if err := g.tx.Rollback(); err != nil {
		g.tx = nil
		return fmt.Errorf("rollback: %w", err)
	}
	return g.begin()
}

func (g *Graph) begin() error {
	g.calls++
	tx, err := g.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	g.tx = tx
	return nil
}

// Path returns the backing file path, or "" for an in-memory graph.
func (g *Graph) Path() string {
	return g.path
}

// Calls returns the number of SQL statements submitted so far,
// including bounce collapses, per-element Filter materializations, and
// transaction control. Monotonically increasing; intended for
// profiling and for tests asserting on round-trip counts.
func (g *Graph) Calls() uint64 {
	return g.calls
}

// Vertices returns the selection of all vertices.
func (g *Graph) Vertices() Vertices {
	return newVertices(g, "SELECT * FROM nodes")
}

// Edges returns the selection of all edges.
func (g *Graph) Edges() Edges {
	return newEdges(g, "SELECT * FROM edges")
}

// VerticesWhere returns all vertices satisfying a raw SQL condition.
// The condition may reference id, label and tags; label and tag
// content is stored codec-encoded.
func (g *Graph) VerticesWhere(cond string) Vertices {
	return newVertices(g, "SELECT * FROM nodes WHERE "+cond)
}

// EdgesWhere returns all edges satisfying a raw SQL condition.
func (g *Graph) EdgesWhere(cond string) Edges {
	return newEdges(g, "SELECT * FROM edges WHERE "+cond)
}

// AddVertex inserts a vertex under the next unused id and returns a
// selection over it.
func (g *Graph) AddVertex() (Vertices, error) {
	id := g.nextNodeID
	v, err := g.AddVertexWithID(id)
	if err != nil {
		return Vertices{}, err
	}
	return v, nil
}

// AddVertexWithID inserts a vertex under a caller-chosen id. Inserting
// a duplicate id fails on the primary-key constraint.
func (g *Graph) AddVertexWithID(id uint64) (Vertices, error) {
	if err := g.exec("INSERT INTO nodes (id, tags) VALUES (?, json('{}'))", id); err != nil {
		return Vertices{}, fmt.Errorf("add vertex %d: %w", id, err)
	}
	if id >= g.nextNodeID {
		g.nextNodeID = id + 1
	}
	return g.VerticesWhere(fmt.Sprintf("id = %d", id)), nil
}

// AddEdge inserts an edge from source to target under the next unused
// edge id. Both endpoints must be live vertex ids; dangling endpoints
// fail on the foreign-key constraint.
func (g *Graph) AddEdge(source, target uint64) (Edges, error) {
	id := g.nextEdgeID
	err := g.exec("INSERT INTO edges (id, source, target, tags) VALUES (?, ?, ?, json('{}'))",
		id, source, target)
	if err != nil {
		return Edges{}, fmt.Errorf("add edge %d->%d: %w", source, target, err)
	}
	g.nextEdgeID = id + 1
	return g.EdgesWhere(fmt.Sprintf("id = %d", id)), nil
}

// exec runs a statement that produces no rows.
func (g *Graph) exec(stmt string, args ...any) error {
	if g.db == nil {
		return ErrClosed
	}
	g.calls++
	start := time.Now()
	_, err := g.runner().Exec(stmt, args...)
	g.log.Debug("exec",
		zap.String("sql", stmt),
		zap.Duration("elapsed", time.Since(start)),
		zap.Error(err))
	if err != nil {
		return fmt.Errorf("exec %q: %w", compact(stmt), err)
	}
	return nil
}

// query runs a statement and materializes every row into a Result.
func (g *Graph) query(stmt string, args ...any) (*Result, error) {
	if g.db == nil {
		return nil, ErrClosed
	}
	g.calls++
	start := time.Now()
	rows, err := g.runner().Query(stmt, args...)
	g.log.Debug("query",
		zap.String("sql", stmt),
		zap.Duration("elapsed", time.Since(start)),
		zap.Error(err))
	if err != nil {
		return nil, fmt.Errorf("query %q: %w", compact(stmt), err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("query %q: columns: %w", compact(stmt), err)
	}
	out := &Result{Headers: cols}
	for rows.Next() {
		cells := make([]sql.NullString, len(cols))
		dest := make([]any, len(cols))
		for i := range cells {
			dest[i] = &cells[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("query %q: scan: %w", compact(stmt), err)
		}
		row := make([]string, len(cols))
		for i, c := range cells {
			if c.Valid {
				row[i] = c.String
			} else {
				row[i] = "NULL"
			}
		}
		out.Body = append(out.Body, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query %q: %w", compact(stmt), err)
	}
	return out, nil
}

type sqlRunner interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
}

// runner returns the open transaction, or the bare connection during
// bootstrap before the first transaction exists.
func (g *Graph) runner() sqlRunner {
	if g.tx != nil {
		return g.tx
	}
	return g.db
}

// compact collapses whitespace for error messages and logs.
func compact(stmt string) string {
	return strings.Join(strings.Fields(stmt), " ")
}
