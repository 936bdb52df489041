package source

import (
	"fmt"
	"sort"
	"strings"
)

// Record is one row keyed by column name.
type Record map[string]any

// Records returns a cursor over recs. Columns are the union of all keys,
// sorted; a key missing from one record reads as an ErrUnknownColumn error
// for that row only.
func Records(recs []Record) Cursor {
	seen := map[string]struct{}{}
	var cols []string
	for _, r := range recs {
		for k := range r {
			if _, ok := seen[k]; !ok {
				seen[k] = struct{}{}
				cols = append(cols, k)
			}
		}
	}
	sort.Strings(cols)
	return &recordCursor{recs: recs, cols: cols, pos: -1}
}

type recordCursor struct {
	recs   []Record
	cols   []string
	pos    int
	closed bool
}

func (c *recordCursor) Columns() []string { return c.cols }

func (c *recordCursor) Next() bool {
	if c.closed || c.pos >= len(c.recs) {
		return false
	}
	c.pos++
	return c.pos < len(c.recs)
}

func (c *recordCursor) Value(column string) (any, error) {
	if c.closed || c.pos < 0 || c.pos >= len(c.recs) {
		return nil, ErrNoRow
	}
	rec := c.recs[c.pos]
	if v, ok := rec[column]; ok {
		return v, nil
	}
	// Keys that differ only by case resolve to the first one in Columns order.
	match, found := "", false
	for k := range rec {
		if strings.EqualFold(k, column) && (!found || k < match) {
			match, found = k, true
		}
	}
	if found {
		return rec[match], nil
	}
	return nil, fmt.Errorf("%w %q in record %d", ErrUnknownColumn, column, c.pos+1)
}

func (c *recordCursor) Err() error { return nil }

func (c *recordCursor) Close() error {
	c.closed = true
	return nil
}
