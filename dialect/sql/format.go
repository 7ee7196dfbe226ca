package sql

import (
	"database/sql/driver"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/syssam/dbkit"
	"github.com/syssam/dbkit/dialect"
)

// RawExpr is an SQL expression that is emitted verbatim. It marks column
// defaults and values that must not go through literal escaping.
type RawExpr string

// Raw returns s as an SQL expression marker.
func Raw(s string) RawExpr { return RawExpr(s) }

// RenderSQL implements Renderer.
func (r RawExpr) RenderSQL(*Formatter) string { return string(r) }

// String implements fmt.Stringer.
func (r RawExpr) String() string { return string(r) }

// Renderer is implemented by values that render themselves as an SQL
// fragment for a given dialect, e.g. expressions of the sqlcond package.
type Renderer interface {
	RenderSQL(f *Formatter) string
}

// Formatter quotes identifiers and formats literals for one dialect.
// A Formatter is immutable and safe for concurrent use.
type Formatter struct {
	info dialect.Info
}

// NewFormatter returns a Formatter for the named dialect. Unknown names
// fall back to Postgres.
func NewFormatter(name string) *Formatter {
	info, ok := dialect.Lookup(name)
	if !ok {
		info = dialect.MustLookup(dialect.Postgres)
	}
	return &Formatter{info: info}
}

// Dialect returns the canonical dialect name.
func (f *Formatter) Dialect() string { return f.info.Name }

// Info returns the dialect identity.
func (f *Formatter) Info() dialect.Info { return f.info }

// Ident quotes s as a single identifier. Internal quote characters are
// doubled, so the result always parses back to s.
func (f *Formatter) Ident(s string) string {
	switch f.info.Family {
	case dialect.FamilyPostgres:
		return pq.QuoteIdentifier(s)
	case dialect.FamilyMySQL:
		return "`" + strings.ReplaceAll(s, "`", "``") + "`"
	default:
		return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
	}
}

// QualifiedIdent quotes each non-empty part and joins them with dots.
func (f *Formatter) QualifiedIdent(parts ...string) string {
	quoted := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			quoted = append(quoted, f.Ident(p))
		}
	}
	return strings.Join(quoted, ".")
}

var bareIdentRe = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// IdentIfNeeded returns s unquoted when it is a lowercase bare identifier
// that is not reserved in the dialect, and the quoted form otherwise.
func (f *Formatter) IdentIfNeeded(s string) string {
	if bareIdentRe.MatchString(s) && !IsReserved(f.info.Name, s) {
		return s
	}
	return f.Ident(s)
}

// valuerError is the panic value of Literal when a driver.Valuer fails.
type valuerError struct{ err error }

func (e valuerError) Error() string { return e.err.Error() }
func (e valuerError) Unwrap() error { return e.err }

// FormatLiteral is like Literal but returns the error of a failing
// driver.Valuer instead of panicking.
func (f *Formatter) FormatLiteral(v any) (s string, err error) {
	defer func() {
		if r := recover(); r != nil {
			ve, ok := r.(valuerError)
			if !ok {
				panic(r)
			}
			err = ve.err
		}
	}()
	return f.Literal(v), nil
}

// Literal formats v as an SQL literal of the dialect.
//
// Supported values are nil, strings, booleans, integers, floats, time.Time
// (ISO 8601), []byte, uuid.UUID, RawExpr and Renderer (emitted verbatim),
// driver.Valuer, fmt.Stringer, slices (ARRAY[...] on the Postgres family,
// JSON text elsewhere), and maps or structs (JSON text). Literal panics if
// a driver.Valuer fails; use FormatLiteral for values that may.
func (f *Formatter) Literal(v any) string {
	switch v := v.(type) {
	case nil:
		return "NULL"
	case RawExpr:
		return string(v)
	case Renderer:
		return v.RenderSQL(f)
	case string:
		return f.stringLiteral(v)
	case bool:
		return f.boolLiteral(v)
	case int:
		return strconv.FormatInt(int64(v), 10)
	case int8:
		return strconv.FormatInt(int64(v), 10)
	case int16:
		return strconv.FormatInt(int64(v), 10)
	case int32:
		return strconv.FormatInt(int64(v), 10)
	case int64:
		return strconv.FormatInt(v, 10)
	case uint:
		return strconv.FormatUint(uint64(v), 10)
	case uint8:
		return strconv.FormatUint(uint64(v), 10)
	case uint16:
		return strconv.FormatUint(uint64(v), 10)
	case uint32:
		return strconv.FormatUint(uint64(v), 10)
	case uint64:
		return strconv.FormatUint(v, 10)
	case float32:
		return f.floatLiteral(float64(v), 32)
	case float64:
		return f.floatLiteral(v, 64)
	case time.Time:
		return f.timeLiteral(v)
	case json.RawMessage:
		return f.stringLiteral(string(v))
	case []byte:
		return f.bytesLiteral(v)
	case uuid.UUID:
		return f.stringLiteral(v.String())
	case driver.Valuer:
		dv, err := v.Value()
		if err != nil {
			panic(valuerError{fmt.Errorf("dbkit: sql: literal of %T: %w", v, err)})
		}
		return f.Literal(dv)
	case fmt.Stringer:
		return f.stringLiteral(v.String())
	}
	return f.reflectLiteral(reflect.ValueOf(v))
}

// mysqlEscaper escapes string literals for MySQL, which treats backslash
// as an escape character unless NO_BACKSLASH_ESCAPES is set.
var mysqlEscaper = strings.NewReplacer(`\`, `\\`, "'", "''")

func (f *Formatter) stringLiteral(s string) string {
	switch f.info.Family {
	case dialect.FamilyPostgres:
		// QuoteLiteral switches to the E'' form when s holds a backslash.
		return strings.TrimLeft(pq.QuoteLiteral(s), " ")
	case dialect.FamilyMySQL:
		return "'" + mysqlEscaper.Replace(s) + "'"
	default:
		return "'" + strings.ReplaceAll(s, "'", "''") + "'"
	}
}

func (f *Formatter) boolLiteral(b bool) string {
	if f.info.Family == dialect.FamilySQLite {
		if b {
			return "1"
		}
		return "0"
	}
	if b {
		return "TRUE"
	}
	return "FALSE"
}

func (f *Formatter) floatLiteral(v float64, bits int) string {
	switch {
	case math.IsNaN(v), math.IsInf(v, 0):
		if f.info.Family != dialect.FamilyPostgres {
			return "NULL"
		}
		switch {
		case math.IsNaN(v):
			return "'NaN'"
		case v > 0:
			return "'Infinity'"
		default:
			return "'-Infinity'"
		}
	}
	return strconv.FormatFloat(v, 'g', -1, bits)
}

func (f *Formatter) timeLiteral(t time.Time) string {
	if f.info.Family == dialect.FamilyMySQL {
		return "'" + t.UTC().Format("2006-01-02 15:04:05.999999") + "'"
	}
	return "'" + t.Format(time.RFC3339Nano) + "'"
}

func (f *Formatter) bytesLiteral(b []byte) string {
	if f.info.Family == dialect.FamilyPostgres {
		return `'\x` + hex.EncodeToString(b) + `'::bytea`
	}
	return "X'" + strings.ToUpper(hex.EncodeToString(b)) + "'"
}

func (f *Formatter) reflectLiteral(rv reflect.Value) string {
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return "NULL"
		}
		return f.Literal(rv.Elem().Interface())
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return "NULL"
		}
		if f.info.Family != dialect.FamilyPostgres {
			return f.jsonLiteral(rv.Interface())
		}
		if rv.Len() == 0 {
			return "'{}'"
		}
		elems := make([]string, rv.Len())
		for i := range elems {
			elems[i] = f.Literal(rv.Index(i).Interface())
		}
		return "ARRAY[" + strings.Join(elems, ", ") + "]"
	case reflect.Map, reflect.Struct:
		return f.jsonLiteral(rv.Interface())
	case reflect.String:
		return f.stringLiteral(rv.String())
	case reflect.Bool:
		return f.boolLiteral(rv.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(rv.Uint(), 10)
	case reflect.Float32, reflect.Float64:
		return f.floatLiteral(rv.Float(), 64)
	}
	return f.stringLiteral(fmt.Sprint(rv.Interface()))
}

func (f *Formatter) jsonLiteral(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return f.stringLiteral(fmt.Sprint(v))
	}
	return f.stringLiteral(string(b))
}

// Format renders a template in the style of Postgres format(): %I quotes
// an identifier, %L formats a literal, %s inserts the plain value and %%
// emits a percent sign.
func (f *Formatter) Format(tmpl string, args ...any) (string, error) {
	var (
		b strings.Builder
		n int
	)
	for i := 0; i < len(tmpl); i++ {
		c := tmpl[i]
		if c != '%' {
			b.WriteByte(c)
			continue
		}
		if i+1 >= len(tmpl) {
			return "", dbkit.NewInvalidArgumentError("sql.Format", tmpl, "template ends with a lone %")
		}
		i++
		verb := tmpl[i]
		if verb == '%' {
			b.WriteByte('%')
			continue
		}
		if n >= len(args) {
			return "", dbkit.InvalidArgumentf("sql.Format", tmpl, "missing argument for %%%c at position %d", verb, n+1)
		}
		arg := args[n]
		n++
		switch verb {
		case 'I':
			b.WriteString(f.Ident(fmt.Sprint(arg)))
		case 'L':
			lit, err := f.FormatLiteral(arg)
			if err != nil {
				return "", err
			}
			b.WriteString(lit)
		case 's':
			if arg != nil {
				fmt.Fprint(&b, arg)
			}
		default:
			return "", dbkit.InvalidArgumentf("sql.Format", tmpl, "unknown verb %%%c", verb)
		}
	}
	if n != len(args) {
		return "", dbkit.InvalidArgumentf("sql.Format", tmpl, "%d arguments given, %d used", len(args), n)
	}
	return b.String(), nil
}

// Placeholder returns the n-th (1-based) placeholder of the dialect.
func (f *Formatter) Placeholder(n int) string {
	return f.info.Placeholder(n)
}

// Rebind rewrites ? placeholders in query to the dialect style. Queries
// for dialects using ? are returned unchanged.
func Rebind(name, query string) (string, error) {
	if dialect.FamilyOf(name) != dialect.FamilyPostgres {
		return query, nil
	}
	return sq.Dollar.ReplacePlaceholders(query)
}
