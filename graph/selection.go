package graph

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gqlite/gqlite/codec"
)

// selection is the shared core of Vertices and Edges: an owning graph,
// the backing table, the compiled SQL text describing which rows
// qualify, and a sticky error. Selections are immutable values; every
// combinator builds a fresh one.
type selection struct {
	g     *Graph
	table string
	cmd   string
	err   error
}

// newSelection wraps compiled text, applying the bounce: text longer
// than the graph's threshold is immediately collapsed to a flat id
// list, resetting subquery nesting depth to one while preserving exact
// row membership. A failed collapse is carried as the sticky error.
func newSelection(g *Graph, table, cmd string) selection {
	if len(cmd) > g.bounce {
		ids, err := idList(g, cmd)
		if err != nil {
			return selection{g: g, table: table, err: fmt.Errorf("bounce: %w", err)}
		}
		cmd = flatIDCmd(table, ids)
	}
	return selection{g: g, table: table, cmd: cmd}
}

func (s selection) fail(err error) selection {
	return selection{g: s.g, table: s.table, err: err}
}

// compatible guards binary combinators: both operands must be healthy
// and owned by the same graph session.
func (s selection) compatible(o selection) error {
	switch {
	case s.err != nil:
		return s.err
	case o.err != nil:
		return o.err
	case s.g != o.g:
		return ErrCrossGraph
	}
	return nil
}

// ids materializes the selection's ascending id list.
func (s selection) ids() ([]uint64, error) {
	if s.err != nil {
		return nil, s.err
	}
	return idList(s.g, s.cmd)
}

func idList(g *Graph, cmd string) ([]uint64, error) {
	res, err := g.query(fmt.Sprintf("SELECT id FROM (%s) ORDER BY id", cmd))
	if err != nil {
		return nil, err
	}
	ids := make([]uint64, 0, res.Size())
	for _, row := range res.Body {
		id, err := strconv.ParseUint(row[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse id %q: %w", row[0], err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// flatIDCmd is the bounced form: depth-one, membership by literal ids.
func flatIDCmd(table string, ids []uint64) string {
	if len(ids) == 0 {
		return "SELECT * FROM " + table + " WHERE 0"
	}
	return fmt.Sprintf("SELECT * FROM %s WHERE id IN (%s)", table, idCSV(ids))
}

func idCSV(ids []uint64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatUint(id, 10)
	}
	return strings.Join(parts, ",")
}

// label materializes (id, label) with labels decoded.
func (s selection) label() (*Result, error) {
	if s.err != nil {
		return nil, s.err
	}
	res, err := s.g.query(fmt.Sprintf("SELECT id, label FROM (%s) ORDER BY id", s.cmd))
	if err != nil {
		return nil, err
	}
	if err := decodeColumn(res, "label"); err != nil {
		return nil, err
	}
	return res, nil
}

// tag materializes (id, <key>) with values decoded. Rows lacking the
// key carry the NULL cell.
func (s selection) tag(key string) (*Result, error) {
	if s.err != nil {
		return nil, s.err
	}
	ek := codec.EncodeString(key)
	res, err := s.g.query(fmt.Sprintf(
		`SELECT id, json_extract(tags, '$.%s') AS "%s" FROM (%s) ORDER BY id`,
		ek, ek, s.cmd))
	if err != nil {
		return nil, err
	}
	if err := decodeColumn(res, ek); err != nil {
		return nil, err
	}
	res.Headers[1] = key
	return res, nil
}

// tagColumns materializes several columns at once. Keys naming real
// columns of the backing table pass through as-is; all others are
// extracted from the tag blob.
func (s selection) tagColumns(keys []string, rawCols map[string]bool) (*Result, error) {
	if s.err != nil {
		return nil, s.err
	}
	cols := make([]string, 0, len(keys)+1)
	cols = append(cols, "id")
	type decodeSpec struct {
		header  int
		decoded string
	}
	var decodes []decodeSpec
	for _, key := range keys {
		if key == "id" {
			continue
		}
		if rawCols[key] {
			cols = append(cols, key)
			if key == "label" {
				decodes = append(decodes, decodeSpec{header: len(cols) - 1, decoded: key})
			}
			continue
		}
		ek := codec.EncodeString(key)
		cols = append(cols, fmt.Sprintf(`json_extract(tags, '$.%s') AS "%s"`, ek, ek))
		decodes = append(decodes, decodeSpec{header: len(cols) - 1, decoded: key})
	}
	res, err := s.g.query(fmt.Sprintf(
		"SELECT %s FROM (%s) ORDER BY id", strings.Join(cols, ", "), s.cmd))
	if err != nil {
		return nil, err
	}
	for _, d := range decodes {
		if err := decodeColumn(res, res.Headers[d.header]); err != nil {
			return nil, err
		}
		res.Headers[d.header] = d.decoded
	}
	return res, nil
}

// keySet materializes the distinct decoded tag keys, ascending. The
// codec is byte-order preserving, so sorting the encoded column sorts
// the decoded keys too.
func (s selection) keySet() ([]string, error) {
	if s.err != nil {
		return nil, s.err
	}
	res, err := s.g.query(fmt.Sprintf(
		"SELECT DISTINCT key FROM (%s) JOIN JSON_EACH(tags) ORDER BY key", s.cmd))
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, res.Size())
	for _, row := range res.Body {
		key, err := codec.DecodeString(row[0])
		if err != nil {
			return nil, fmt.Errorf("decode tag key: %w", err)
		}
		keys = append(keys, key)
	}
	return keys, nil
}

// selectExpr is the raw escape hatch: SELECT id, <expr> FROM (...).
// Results are returned as stored; label and tag content is encoded.
func (s selection) selectExpr(expr string) (*Result, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.g.query(fmt.Sprintf("SELECT id, %s FROM (%s) ORDER BY id", expr, s.cmd))
}

// setLabel updates the label of every selected row.
func (s selection) setLabel(label string) error {
	if s.err != nil {
		return s.err
	}
	return s.g.exec(fmt.Sprintf(
		"UPDATE %s SET label = ? WHERE id IN (SELECT id FROM (%s))", s.table, s.cmd),
		codec.EncodeString(label))
}

// setTag associates key with value on every selected row.
func (s selection) setTag(key, value string) error {
	if s.err != nil {
		return s.err
	}
	return s.g.exec(fmt.Sprintf(
		"UPDATE %s SET tags = json_set(tags, '$.%s', ?) WHERE id IN (SELECT id FROM (%s))",
		s.table, codec.EncodeString(key), s.cmd),
		codec.EncodeString(value))
}

// decodeColumn decodes every non-NULL cell of the named column in
// place.
func decodeColumn(res *Result, column string) error {
	if res.Empty() {
		return nil
	}
	idx, err := res.IndexOf(column)
	if err != nil {
		return err
	}
	for _, row := range res.Body {
		if row[idx] == "NULL" {
			continue
		}
		decoded, err := codec.DecodeString(row[idx])
		if err != nil {
			return fmt.Errorf("decode column %q: %w", column, err)
		}
		row[idx] = decoded
	}
	return nil
}
