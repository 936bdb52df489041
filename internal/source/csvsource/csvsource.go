// Package csvsource reads delimited text as a source.Cursor. The first record
// is the header; every later record is one row whose values are strings.
package csvsource

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"dataimport/internal/source"
)

// utf8BOM is stripped from the first header cell if present.
const utf8BOM = "\uFEFF"

// ErrShortRecord is returned by Value when the current record has fewer
// fields than the header.
var ErrShortRecord = errors.New("record shorter than header")

// Options configures the reader. The zero value reads comma-separated input
// with strict quoting and keeps header names as written.
type Options struct {
	// Comma is the field delimiter. When zero, ',' is used.
	Comma rune
	// LazyQuotes tolerates stray quotes inside fields.
	LazyQuotes bool
	// TrimSpace trims leading/trailing white space from each value.
	TrimSpace bool
	// EmptyAsNull reads empty fields as nil instead of "".
	EmptyAsNull bool
	// NormalizeHeaders folds header names to lower-case ASCII identifiers
	// (accents stripped, separators turned into "_").
	NormalizeHeaders bool
	// HeaderMap renames header names after normalization.
	HeaderMap map[string]string
}

// Cursor is a streaming CSV cursor.
type Cursor struct {
	r       *csv.Reader
	closer  io.Closer
	opt     Options
	cols    []string
	ix      source.Index
	rec     []string
	line    int
	current bool
	err     error
}

var _ source.Cursor = (*Cursor)(nil)

// New reads the header from r and returns a cursor over the remaining
// records. If r is an io.Closer, Close closes it.
func New(r io.Reader, opt Options) (*Cursor, error) {
	cr := csv.NewReader(r)
	if opt.Comma != 0 {
		cr.Comma = opt.Comma
	}
	cr.LazyQuotes = opt.LazyQuotes
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("csvsource: missing header")
		}
		return nil, fmt.Errorf("csvsource: read header: %w", err)
	}
	cols := Headers(header, opt)

	c := &Cursor{r: cr, opt: opt, cols: cols, ix: source.NewIndex(cols), line: 1}
	if cl, ok := r.(io.Closer); ok {
		c.closer = cl
	}
	return c, nil
}

// Headers cleans raw header cells: BOM removal, trimming, optional
// normalization and renaming through opt.HeaderMap.
func Headers(raw []string, opt Options) []string {
	out := make([]string, len(raw))
	for i, h := range raw {
		if i == 0 {
			h = strings.TrimPrefix(h, utf8BOM)
		}
		h = strings.TrimSpace(h)
		if opt.NormalizeHeaders {
			h = NormalizeName(h)
		}
		if to, ok := opt.HeaderMap[h]; ok {
			h = to
		}
		out[i] = h
	}
	return out
}

// NormalizeName converts arbitrary header text into a lowercase ASCII
// identifier:
//  1. lowercase
//  2. strip accents (NFD → remove Mn → NFC)
//  3. keep [a-z0-9_]; convert space/dash/dot to underscore; drop others
//  4. fallback to "col" if empty
func NormalizeName(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))

	t := transform.Chain(
		norm.NFD,
		runes.Remove(runes.In(unicode.Mn)),
		norm.NFC,
	)
	ascii, _, _ := transform.String(t, s)

	var b strings.Builder
	prevUnderscore := false
	for _, r := range ascii {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			prevUnderscore = false
		case r == '_' || r == ' ' || r == '-' || r == '.':
			if !prevUnderscore {
				b.WriteRune('_')
				prevUnderscore = true
			}
		}
	}
	name := strings.Trim(b.String(), "_")
	if name == "" {
		return "col"
	}
	return name
}

// Columns implements source.Cursor.
func (c *Cursor) Columns() []string { return c.cols }

// Next reads the next record. Malformed input ends iteration and is
// reported by Err.
func (c *Cursor) Next() bool {
	c.current = false
	if c.err != nil {
		return false
	}
	rec, err := c.r.Read()
	if err != nil {
		if !errors.Is(err, io.EOF) {
			c.err = fmt.Errorf("csvsource: %w", err)
		}
		return false
	}
	c.line++
	c.rec = rec
	c.current = true
	return true
}

// Value implements source.Cursor.
func (c *Cursor) Value(column string) (any, error) {
	if !c.current {
		return nil, source.ErrNoRow
	}
	i, err := c.ix.Lookup(column)
	if err != nil {
		return nil, err
	}
	if i >= len(c.rec) {
		return nil, fmt.Errorf("%w: record %d has %d fields, %q is field %d",
			ErrShortRecord, c.line, len(c.rec), column, i+1)
	}
	v := c.rec[i]
	if c.opt.TrimSpace {
		v = strings.TrimSpace(v)
	}
	if v == "" && c.opt.EmptyAsNull {
		return nil, nil
	}
	return v, nil
}

// Err implements source.Cursor.
func (c *Cursor) Err() error { return c.err }

// Close closes the underlying reader when it is closable.
func (c *Cursor) Close() error {
	c.current = false
	if c.closer == nil {
		return nil
	}
	err := c.closer.Close()
	c.closer = nil
	return err
}
