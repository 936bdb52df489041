package importer

import (
	"bytes"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// corruptChar is the control character some upstream systems leave in text
// fields; bulk copy rejects it, so such values are imported as "".
const corruptChar = "\x00"

// timeLayouts are tried in order when a text value targets a time column.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02",
	"02.01.2006",
}

// converter turns a sanitized source value into a value for one destination
// column. A nil result leaves the column NULL.
type converter func(v any) (any, error)

// sanitize replaces a value whose text contains corruptChar with "". Binary
// destinations keep raw bytes untouched.
func sanitize(v any, kind ColumnKind) any {
	switch x := v.(type) {
	case string:
		if strings.Contains(x, corruptChar) {
			return ""
		}
	case []byte:
		if kind != BytesColumn && bytes.Contains(x, []byte(corruptChar)) {
			return ""
		}
	case fmt.Stringer:
		if strings.Contains(x.String(), corruptChar) {
			return ""
		}
	}
	return v
}

// converterFor compiles the conversion for one destination column.
func converterFor(c ShapeColumn) converter {
	switch c.Kind {
	case StringColumn:
		return func(v any) (any, error) { return toString(v, c.Length) }
	case IntColumn:
		return toInt
	case FloatColumn:
		return toFloat
	case DecimalColumn:
		return toDecimal
	case BoolColumn:
		return toBool
	case TimeColumn:
		return toTime
	case BytesColumn:
		return func(v any) (any, error) { return toBytes(v, c.Length) }
	}
	return func(v any) (any, error) { return v, nil }
}

func toString(v any, maxLen int64) (any, error) {
	var s string
	switch x := v.(type) {
	case nil:
		return nil, nil
	case string:
		s = x
	case []byte:
		s = string(x)
	case time.Time:
		s = x.Format(time.RFC3339Nano)
	case fmt.Stringer:
		s = x.String()
	default:
		s = fmt.Sprint(x)
	}
	if maxLen > 0 && int64(utf8.RuneCountInString(s)) > maxLen {
		return nil, fmt.Errorf("%w: %d > %d", ErrValueTooLong, utf8.RuneCountInString(s), maxLen)
	}
	return s, nil
}

func toInt(v any) (any, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case int:
		return int64(x), nil
	case int8:
		return int64(x), nil
	case int16:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case int64:
		return x, nil
	case uint8:
		return int64(x), nil
	case uint16:
		return int64(x), nil
	case uint32:
		return int64(x), nil
	case uint:
		if uint64(x) > math.MaxInt64 {
			return nil, fmt.Errorf("%w: %d overflows int64", ErrConversion, x)
		}
		return int64(x), nil
	case uint64:
		if x > math.MaxInt64 {
			return nil, fmt.Errorf("%w: %d overflows int64", ErrConversion, x)
		}
		return int64(x), nil
	case float32:
		return floatToInt(float64(x))
	case float64:
		return floatToInt(x)
	case bool:
		if x {
			return int64(1), nil
		}
		return int64(0), nil
	case []byte:
		return parseInt(string(x))
	case string:
		return parseInt(x)
	}
	return nil, fmt.Errorf("%w: %T to int", ErrConversion, v)
}

func floatToInt(f float64) (any, error) {
	if f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 {
		return nil, fmt.Errorf("%w: %v is not an integer", ErrConversion, f)
	}
	return int64(f), nil
}

// parseInt accepts plain integers and integral decimals such as "42.0".
func parseInt(s string) (any, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i, nil
	}
	if strings.IndexByte(s, '.') >= 0 {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return floatToInt(f)
		}
	}
	return nil, fmt.Errorf("%w: %q to int", ErrConversion, s)
}

func toFloat(v any) (any, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int:
		return float64(x), nil
	case int8:
		return float64(x), nil
	case int16:
		return float64(x), nil
	case int32:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case uint8:
		return float64(x), nil
	case uint16:
		return float64(x), nil
	case uint32:
		return float64(x), nil
	case uint64:
		return float64(x), nil
	case []byte:
		return parseFloat(string(x))
	case string:
		return parseFloat(x)
	}
	return nil, fmt.Errorf("%w: %T to float", ErrConversion, v)
}

func parseFloat(s string) (any, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %q to float", ErrConversion, s)
	}
	return f, nil
}

// toDecimal returns exact numeric values as decimal strings so no precision
// is lost on the way to NUMERIC and MONEY columns; the drivers parse the text.
func toDecimal(v any) (any, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprint(x), nil
	case float32:
		return floatToDecimal(float64(x), 32)
	case float64:
		return floatToDecimal(x, 64)
	case []byte:
		return parseDecimal(string(x))
	case string:
		return parseDecimal(x)
	case fmt.Stringer:
		return parseDecimal(x.String())
	}
	return nil, fmt.Errorf("%w: %T to decimal", ErrConversion, v)
}

func floatToDecimal(f float64, bits int) (any, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("%w: %v to decimal", ErrConversion, f)
	}
	return strconv.FormatFloat(f, 'f', -1, bits), nil
}

// parseDecimal accepts plain decimal text with an optional sign and exponent.
// Values with an exponent are rewritten in positional form.
func parseDecimal(s string) (any, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if strings.ContainsAny(s, "/_xXpPoObB") {
		return nil, fmt.Errorf("%w: %q to decimal", ErrConversion, s)
	}
	r, ok := new(big.Rat).SetString(s)
	if !ok {
		return nil, fmt.Errorf("%w: %q to decimal", ErrConversion, s)
	}
	if !strings.ContainsAny(s, "eE") {
		return strings.TrimPrefix(s, "+"), nil
	}
	prec, exact := r.FloatPrec()
	if !exact {
		return nil, fmt.Errorf("%w: %q to decimal", ErrConversion, s)
	}
	return r.FloatString(prec), nil
}

func toBool(v any) (any, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case bool:
		return x, nil
	case int:
		return intToBool(int64(x))
	case int64:
		return intToBool(x)
	case int32:
		return intToBool(int64(x))
	case []byte:
		return parseBool(string(x))
	case string:
		return parseBool(x)
	}
	return nil, fmt.Errorf("%w: %T to bool", ErrConversion, v)
}

func intToBool(i int64) (any, error) {
	switch i {
	case 0:
		return false, nil
	case 1:
		return true, nil
	}
	return nil, fmt.Errorf("%w: %d to bool", ErrConversion, i)
}

func parseBool(s string) (any, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return nil, nil
	case "1", "t", "true", "yes", "y":
		return true, nil
	case "0", "f", "false", "no", "n":
		return false, nil
	}
	return nil, fmt.Errorf("%w: %q to bool", ErrConversion, s)
}

func toTime(v any) (any, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case time.Time:
		return x, nil
	case []byte:
		return parseTime(string(x))
	case string:
		return parseTime(x)
	}
	return nil, fmt.Errorf("%w: %T to time", ErrConversion, v)
}

func parseTime(s string) (any, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return nil, fmt.Errorf("%w: %q to time", ErrConversion, s)
}

func toBytes(v any, maxLen int64) (any, error) {
	var b []byte
	switch x := v.(type) {
	case nil:
		return nil, nil
	case []byte:
		b = x
	case string:
		b = []byte(x)
	default:
		return nil, fmt.Errorf("%w: %T to bytes", ErrConversion, v)
	}
	if maxLen > 0 && int64(len(b)) > maxLen {
		return nil, fmt.Errorf("%w: %d > %d bytes", ErrValueTooLong, len(b), maxLen)
	}
	return b, nil
}
