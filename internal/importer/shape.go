package importer

import (
	"errors"
	"strings"

	"dataimport/internal/source"
	"dataimport/internal/storage"
)

// ColumnKind is the Go representation a destination column accepts.
type ColumnKind int

const (
	AnyColumn ColumnKind = iota
	StringColumn
	IntColumn
	FloatColumn
	DecimalColumn
	BoolColumn
	TimeColumn
	BytesColumn
)

func (k ColumnKind) String() string {
	switch k {
	case StringColumn:
		return "string"
	case IntColumn:
		return "int"
	case FloatColumn:
		return "float"
	case DecimalColumn:
		return "decimal"
	case BoolColumn:
		return "bool"
	case TimeColumn:
		return "time"
	case BytesColumn:
		return "bytes"
	}
	return "any"
}

// ShapeColumn is one destination column with its resolved kind.
type ShapeColumn struct {
	storage.Column
	Kind ColumnKind
}

// Shape is the empty, typed template of a destination table. Every row the
// engine materializes has exactly len(Columns) values in column order.
type Shape struct {
	Table   storage.Table
	Columns []ShapeColumn
	index   source.Index
}

// NewShape builds a Shape from probed column metadata.
func NewShape(table storage.Table, cols []storage.Column) (*Shape, error) {
	if len(cols) == 0 {
		return nil, errors.New("destination reports no columns")
	}
	s := &Shape{Table: table, Columns: make([]ShapeColumn, len(cols))}
	names := make([]string, len(cols))
	for i, c := range cols {
		s.Columns[i] = ShapeColumn{Column: c, Kind: kindOf(c.DatabaseType)}
		names[i] = c.Name
	}
	s.index = source.NewIndex(names)
	return s, nil
}

// NewRow allocates one empty row.
func (s *Shape) NewRow() []any { return make([]any, len(s.Columns)) }

// Lookup returns the position of the named column, matching exactly first and
// then case-insensitively.
func (s *Shape) Lookup(name string) (int, bool) {
	i, err := s.index.Lookup(name)
	return i, err == nil
}

// Names returns the column names in order.
func (s *Shape) Names() []string {
	out := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		out[i] = c.Name
	}
	return out
}

var kindsByType = map[string]ColumnKind{
	"CHAR": StringColumn, "VARCHAR": StringColumn, "NCHAR": StringColumn,
	"NVARCHAR": StringColumn, "TEXT": StringColumn, "NTEXT": StringColumn,
	"BPCHAR": StringColumn, "CHARACTER": StringColumn, "CHARACTER VARYING": StringColumn,
	"CLOB": StringColumn, "TINYTEXT": StringColumn, "MEDIUMTEXT": StringColumn,
	"LONGTEXT": StringColumn, "UUID": StringColumn, "UNIQUEIDENTIFIER": StringColumn,
	"JSON": StringColumn, "JSONB": StringColumn, "XML": StringColumn,
	"CITEXT": StringColumn, "ENUM": StringColumn, "NAME": StringColumn,

	"INT": IntColumn, "INTEGER": IntColumn, "BIGINT": IntColumn, "SMALLINT": IntColumn,
	"TINYINT": IntColumn, "MEDIUMINT": IntColumn, "INT2": IntColumn, "INT4": IntColumn,
	"INT8": IntColumn, "SERIAL": IntColumn, "BIGSERIAL": IntColumn, "YEAR": IntColumn,

	"REAL": FloatColumn, "FLOAT": FloatColumn, "FLOAT4": FloatColumn, "FLOAT8": FloatColumn,
	"DOUBLE": FloatColumn, "DOUBLE PRECISION": FloatColumn,

	"DECIMAL": DecimalColumn, "NUMERIC": DecimalColumn, "MONEY": DecimalColumn,
	"SMALLMONEY": DecimalColumn, "DEC": DecimalColumn, "FIXED": DecimalColumn,

	"BOOL": BoolColumn, "BOOLEAN": BoolColumn, "BIT": BoolColumn,

	"DATE": TimeColumn, "DATETIME": TimeColumn, "DATETIME2": TimeColumn,
	"SMALLDATETIME": TimeColumn, "DATETIMEOFFSET": TimeColumn, "TIMESTAMP": TimeColumn,
	"TIMESTAMPTZ": TimeColumn, "TIMESTAMP WITH TIME ZONE": TimeColumn,
	"TIMESTAMP WITHOUT TIME ZONE": TimeColumn,

	"BINARY": BytesColumn, "VARBINARY": BytesColumn, "IMAGE": BytesColumn, "BYTEA": BytesColumn,
	"BLOB": BytesColumn, "TINYBLOB": BytesColumn, "MEDIUMBLOB": BytesColumn, "LONGBLOB": BytesColumn,

	// Names that would trip the affinity fallback below, or whose text forms
	// the drivers parse themselves.
	"INTERVAL": AnyColumn, "POINT": AnyColumn, "TIME": AnyColumn, "TIMETZ": AnyColumn,
	"TIME WITH TIME ZONE": AnyColumn, "TIME WITHOUT TIME ZONE": AnyColumn,
	"LINE": AnyColumn, "LSEG": AnyColumn, "BOX": AnyColumn, "PATH": AnyColumn,
	"POLYGON": AnyColumn, "CIRCLE": AnyColumn, "INET": AnyColumn, "CIDR": AnyColumn,
	"MACADDR": AnyColumn, "MACADDR8": AnyColumn, "TSVECTOR": AnyColumn, "TSQUERY": AnyColumn,
	"GEOMETRY": AnyColumn, "GEOGRAPHY": AnyColumn, "HIERARCHYID": AnyColumn,
	"SQL_VARIANT": AnyColumn, "MULTIPOINT": AnyColumn,
}

// kindOf maps an upper-cased database type name to a ColumnKind. Names not in
// the table fall back to SQLite's affinity rules, which also cover most
// declared aliases on other engines. Array ("_INT4") and range ("INT8RANGE")
// types are left to the driver.
func kindOf(dbType string) ColumnKind {
	t := strings.TrimPrefix(strings.ToUpper(strings.TrimSpace(dbType)), "UNSIGNED ")
	if k, ok := kindsByType[t]; ok {
		return k
	}
	switch {
	case t == "", strings.HasPrefix(t, "_"), strings.HasSuffix(t, "[]"),
		strings.HasSuffix(t, "RANGE"), strings.HasPrefix(t, "INTERVAL"):
		return AnyColumn
	case strings.Contains(t, "INT"):
		return IntColumn
	case strings.Contains(t, "CHAR"), strings.Contains(t, "CLOB"), strings.Contains(t, "TEXT"):
		return StringColumn
	case strings.Contains(t, "BLOB"):
		return BytesColumn
	case strings.Contains(t, "REAL"), strings.Contains(t, "FLOA"), strings.Contains(t, "DOUB"):
		return FloatColumn
	case strings.Contains(t, "DEC"), strings.Contains(t, "NUMERIC"):
		return DecimalColumn
	}
	return AnyColumn
}
