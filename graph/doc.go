// Package graph implements a property-graph query layer on top of an
// embedded SQLite store.
//
// A Graph owns one SQLite connection, a single always-open transaction,
// and the id counters used for unkeyed insertion. It hands out Vertices
// and Edges selections: immutable, lazily evaluated descriptions of
// "which rows qualify", compiled internally to SQL text. Combinators
// are pure and never touch the database; only materializing calls
// (IDs, Label, Tag, Select, Erase, degree queries) execute SQL.
//
// ARCHITECTURE:
//
// Query composition by subquery nesting:
// Every combinator wraps the current compiled text as a nested
// subquery: Where produces SELECT * FROM (<prev>) WHERE <cond>, Join
// produces <prev> UNION <other>, and so on. Composition is therefore
// unbounded in principle, but SQLite's statement parser has bounded
// recursion depth, so a long enough chain would eventually overflow it.
//
// The bounce:
// Every selection constructor checks its compiled text against the
// graph's bounce threshold. Past the threshold the constructor runs an
// id-only query against the text being discarded and replaces it with
// a flat "SELECT * FROM <table> WHERE id IN (<ids>)" expression. This
// resets nesting depth to one while preserving exact row membership,
// converting an unbounded-depth failure mode into bounded eager work
// that only triggers once chains actually grow long. Chains of tens of
// thousands of combinators stay legal at the cost of one extra query
// per threshold crossing.
//
// Determinism:
// Every terminal query is ordered by ascending id. Two identical
// graphs always produce identical results, row for row.
//
// Content safety:
// Labels, tag keys, and tag values pass through the codec package
// (uppercase hex) before entering generated SQL text or the JSON tag
// blob, so arbitrary bytes (quotes, JSON structure, non-printable
// content) round-trip exactly. Callers only ever see decoded values.
//
// Errors inside combinators (a failed bounce, selections from two
// different graphs) are carried stickily on the selection and surface
// at the next materializing call. Nothing is retried; a failure inside
// the open transaction does not roll back prior work; call Rollback
// to discard it.
//
// The package is purely synchronous and single-threaded. A Graph
// assumes one logical reader/writer; concurrent use requires external
// serialization or separate Graphs over separate stores.
package graph
