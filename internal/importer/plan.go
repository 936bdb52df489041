package importer

import (
	"fmt"

	"dataimport/internal/source"
)

// Mapping routes one source column to one destination column.
type Mapping struct {
	Source      string `json:"source" yaml:"source"`
	Destination string `json:"destination" yaml:"destination"`
}

// field is one compiled read: source column -> destination position.
type field struct {
	source  string
	column  string
	dest    int // -1 when the destination column does not exist
	kind    ColumnKind
	convert converter
}

// plan is the compiled materialization for one job. write lists the shape
// positions sent to the bulk write, in shape order; names are their column
// names.
type plan struct {
	shape  *Shape
	fields []field
	write  []int
	names  []string
	all    bool
}

// newPlan compiles the fields read for every row.
//
// With mappings, each mapping is one field and only the mapped destination
// columns are written. Without mappings, every destination column the cursor
// exposes is read by name; when the cursor exposes none of them (or reports no
// columns) all destination columns are read so that each miss is reported.
func newPlan(shape *Shape, sourceCols []string, mappings []Mapping) plan {
	p := plan{shape: shape}
	used := make([]bool, len(shape.Columns))

	if len(mappings) > 0 {
		for _, m := range mappings {
			f := field{source: m.Source, column: m.Destination, dest: -1}
			if i, ok := shape.Lookup(m.Destination); ok {
				f.dest = i
				f.column = shape.Columns[i].Name
				f.kind = shape.Columns[i].Kind
				f.convert = converterFor(shape.Columns[i])
				used[i] = true
			}
			p.fields = append(p.fields, f)
		}
	} else {
		have := source.NewIndex(sourceCols)
		for i, c := range shape.Columns {
			if _, err := have.Lookup(c.Name); err == nil {
				used[i] = true
			}
		}
		if !anyTrue(used) {
			for i := range used {
				used[i] = true
			}
		}
		for i, c := range shape.Columns {
			if used[i] {
				p.fields = append(p.fields, field{
					source: c.Name, column: c.Name, dest: i,
					kind: c.Kind, convert: converterFor(c),
				})
			}
		}
	}

	for i, ok := range used {
		if ok {
			p.write = append(p.write, i)
			p.names = append(p.names, shape.Columns[i].Name)
		}
	}
	p.all = len(p.write) == len(shape.Columns)
	return p
}

func anyTrue(bs []bool) bool {
	for _, b := range bs {
		if b {
			return true
		}
	}
	return false
}

// read produces the destination value of f for the cursor's current row.
// The returned raw value is the source value as read, for error reporting.
func (f *field) read(cur source.Cursor) (v, raw any, err error) {
	if f.dest < 0 {
		return nil, nil, fmt.Errorf("%w: %q", ErrNotInDestination, f.column)
	}
	raw, err = cur.Value(f.source)
	if err != nil {
		return nil, nil, err
	}
	v, err = f.convert(sanitize(raw, f.kind))
	if err != nil {
		return nil, raw, err
	}
	return v, raw, nil
}

// project returns rows narrowed to the written columns. Rows are returned
// unchanged when every column is written.
func (p *plan) project(rows [][]any) [][]any {
	if p.all {
		return rows
	}
	out := make([][]any, len(rows))
	for r, row := range rows {
		vals := make([]any, len(p.write))
		for j, i := range p.write {
			vals[j] = row[i]
		}
		out[r] = vals
	}
	return out
}
