package storage

import (
	"errors"
	"fmt"
	"strings"
)

// Dialect describes how a backend quotes identifiers. The closing quote is
// escaped by doubling it.
type Dialect struct {
	Name  string
	Open  string
	Close string
}

var (
	// Brackets is SQL Server quoting: [name].
	Brackets = Dialect{Name: "brackets", Open: "[", Close: "]"}
	// DoubleQuotes is ANSI quoting used by Postgres and SQLite: "name".
	DoubleQuotes = Dialect{Name: "ansi", Open: `"`, Close: `"`}
	// Backticks is MySQL quoting: `name`.
	Backticks = Dialect{Name: "backticks", Open: "`", Close: "`"}
)

// QuoteIdent quotes a single identifier part.
func (d Dialect) QuoteIdent(id string) string {
	return d.Open + strings.ReplaceAll(id, d.Close, d.Close+d.Close) + d.Close
}

// QuoteIdents quotes each name in cols.
func (d Dialect) QuoteIdents(cols []string) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = d.QuoteIdent(c)
	}
	return out
}

// ErrInvalidTableName is returned by ParseTable for empty names or parts.
var ErrInvalidTableName = errors.New("invalid table name")

// Table is a parsed, possibly schema-qualified table name.
type Table struct {
	// Name is the name as given by the caller.
	Name string
	// Parts are the unquoted name parts, e.g. ["dbo", "orders"].
	Parts []string
	// Quoted is Parts quoted with the backend dialect and joined with ".".
	Quoted string
}

func (t Table) String() string { return t.Quoted }

// ParseTable splits name on unquoted dots, strips any quoting the caller
// already applied ([x], "x" or `x`) and re-quotes every part with d. It is the
// only place a table name is turned into SQL text.
func ParseTable(d Dialect, name string) (Table, error) {
	raw := strings.TrimSpace(name)
	if raw == "" {
		return Table{}, fmt.Errorf("%w: empty", ErrInvalidTableName)
	}
	parts, err := splitName(raw)
	if err != nil {
		return Table{}, fmt.Errorf("%w: %q: %v", ErrInvalidTableName, name, err)
	}
	quoted := make([]string, len(parts))
	for i, p := range parts {
		if p == "" {
			return Table{}, fmt.Errorf("%w: %q has an empty part", ErrInvalidTableName, name)
		}
		quoted[i] = d.QuoteIdent(p)
	}
	return Table{Name: name, Parts: parts, Quoted: strings.Join(quoted, ".")}, nil
}

// splitName walks s once, honouring the three quoting styles so that dots
// inside a quoted part do not split it.
func splitName(s string) ([]string, error) {
	var (
		parts []string
		cur   strings.Builder
		i     int
	)
	for i < len(s) {
		c := s[i]
		switch c {
		case '[', '"', '`':
			closer := c
			if c == '[' {
				closer = ']'
			}
			i++
			for {
				if i >= len(s) {
					return nil, errors.New("unterminated quoted identifier")
				}
				if s[i] == closer {
					if i+1 < len(s) && s[i+1] == closer {
						cur.WriteByte(closer)
						i += 2
						continue
					}
					i++
					break
				}
				cur.WriteByte(s[i])
				i++
			}
		case '.':
			parts = append(parts, strings.TrimSpace(cur.String()))
			cur.Reset()
			i++
		default:
			cur.WriteByte(c)
			i++
		}
	}
	parts = append(parts, strings.TrimSpace(cur.String()))
	return parts, nil
}

// ClearMode selects the statement used to empty the destination before the
// first batch.
type ClearMode string

const (
	// ClearDelete issues DELETE FROM; portable and transactional.
	ClearDelete ClearMode = "delete"
	// ClearTruncate issues TRUNCATE TABLE; not available on SQLite.
	ClearTruncate ClearMode = "truncate"
)

// Statements are the SQL texts the import engine runs against one table.
type Statements struct {
	Probe    string
	Delete   string
	Truncate string
	Count    string
}

// Clear returns the clear statement for mode. Unknown modes fall back to
// DELETE.
func (s Statements) Clear(mode ClearMode) string {
	if mode == ClearTruncate {
		return s.Truncate
	}
	return s.Delete
}

// StatementsFor builds the probe, clear and count statements for t.
func StatementsFor(t Table) Statements {
	return Statements{
		Probe:    "SELECT * FROM " + t.Quoted + " WHERE 1 = 0",
		Delete:   "DELETE FROM " + t.Quoted,
		Truncate: "TRUNCATE TABLE " + t.Quoted,
		Count:    "SELECT COUNT(*) FROM " + t.Quoted,
	}
}
