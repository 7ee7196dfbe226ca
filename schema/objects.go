package schema

import (
	"fmt"
	"strings"

	"github.com/syssam/dbkit"
	"github.com/syssam/dbkit/dialect"
	"github.com/syssam/dbkit/dialect/sql"
)

// postgresFormatter returns the formatter of a Postgres family dialect, or
// an error naming the object kind the dialect does not support.
func postgresFormatter(kind, name, dialectName string) (*sql.Formatter, error) {
	info, ok := dialect.Lookup(dialectName)
	if !ok {
		return nil, dbkit.NewInvalidArgumentError("schema."+kind, dialectName, "unknown dialect")
	}
	if !info.IsPostgres() {
		return nil, dbkit.InvalidArgumentf("schema."+kind, name, "%s objects are not supported by %s", strings.ToLower(kind), info.Name)
	}
	return sql.NewFormatter(info.Name), nil
}

// DomainCheck is a named CHECK constraint of a domain. The expression
// refers to the value as VALUE.
type DomainCheck struct {
	Name string
	Expr string
}

// Domain is a user-defined domain type.
type Domain struct {
	Name      string
	Schema    string
	BaseType  string
	NotNull   bool
	Default   any
	Collation string
	Checks    []DomainCheck
}

// NewDomain returns a domain over the base type.
//
//	schema.NewDomain("email", "TEXT").SetNotNull().Check("email_format", "VALUE ~ '@'")
func NewDomain(name, baseType string) *Domain {
	return &Domain{Name: name, BaseType: baseType}
}

// SetNotNull marks the domain NOT NULL.
func (d *Domain) SetNotNull() *Domain {
	d.NotNull = true
	return d
}

// SetDefault sets the domain default. Use sql.Raw for expressions.
func (d *Domain) SetDefault(v any) *Domain {
	d.Default = v
	return d
}

// Collate sets the domain collation.
func (d *Domain) Collate(c string) *Domain {
	d.Collation = c
	return d
}

// Check adds a named check constraint.
func (d *Domain) Check(name, expr string) *Domain {
	d.Checks = append(d.Checks, DomainCheck{Name: name, Expr: expr})
	return d
}

// ToSQL returns the CREATE DOMAIN statement.
func (d *Domain) ToSQL(dialectName string) (string, error) {
	f, err := postgresFormatter("Domain", d.Name, dialectName)
	if err != nil {
		return "", err
	}
	if d.Name == "" || d.BaseType == "" {
		return "", dbkit.NewInvalidArgumentError("schema.Domain", d.Name, "domain requires a name and a base type")
	}
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE DOMAIN %s AS %s", f.QualifiedIdent(d.Schema, d.Name), d.BaseType)
	if d.Collation != "" {
		b.WriteString(" COLLATE " + f.Ident(d.Collation))
	}
	if d.Default != nil {
		b.WriteString(" DEFAULT " + f.Literal(d.Default))
	}
	if d.NotNull {
		b.WriteString(" NOT NULL")
	}
	for _, c := range d.Checks {
		if c.Name != "" {
			b.WriteString(" CONSTRAINT " + f.Ident(c.Name))
		}
		b.WriteString(" CHECK (" + c.Expr + ")")
	}
	return b.String(), nil
}

// Attribute is one attribute of a composite type.
type Attribute struct {
	Name string
	Type string
}

// Composite is a user-defined composite type.
type Composite struct {
	Name       string
	Schema     string
	Attributes []Attribute
}

// NewComposite returns an empty composite type.
//
//	schema.NewComposite("address").Attr("street", "TEXT").Attr("zip", "VARCHAR(10)")
func NewComposite(name string) *Composite {
	return &Composite{Name: name}
}

// Attr appends an attribute.
func (c *Composite) Attr(name, typ string) *Composite {
	c.Attributes = append(c.Attributes, Attribute{Name: name, Type: typ})
	return c
}

// ToSQL returns the CREATE TYPE ... AS (...) statement.
func (c *Composite) ToSQL(dialectName string) (string, error) {
	f, err := postgresFormatter("Composite", c.Name, dialectName)
	if err != nil {
		return "", err
	}
	if len(c.Attributes) == 0 {
		return "", dbkit.NewInvalidArgumentError("schema.Composite", c.Name, "composite type requires at least one attribute")
	}
	attrs := make([]string, len(c.Attributes))
	for i, a := range c.Attributes {
		attrs[i] = f.Ident(a.Name) + " " + a.Type
	}
	return fmt.Sprintf("CREATE TYPE %s AS (%s)", f.QualifiedIdent(c.Schema, c.Name), strings.Join(attrs, ", ")), nil
}

// Enum is a user-defined enum type.
type Enum struct {
	Name   string
	Schema string
	Values []string
}

// NewEnum returns an enum type with the given labels.
func NewEnum(name string, values ...string) *Enum {
	return &Enum{Name: name, Values: values}
}

// ToSQL returns the CREATE TYPE ... AS ENUM statement.
func (e *Enum) ToSQL(dialectName string) (string, error) {
	f, err := postgresFormatter("Enum", e.Name, dialectName)
	if err != nil {
		return "", err
	}
	if len(e.Values) == 0 {
		return "", dbkit.NewInvalidArgumentError("schema.Enum", e.Name, "enum requires at least one value")
	}
	vals := make([]string, len(e.Values))
	for i, v := range e.Values {
		vals[i] = f.Literal(v)
	}
	return fmt.Sprintf("CREATE TYPE %s AS ENUM (%s)", f.QualifiedIdent(e.Schema, e.Name), strings.Join(vals, ", ")), nil
}

// Sequence is a sequence generator. Zero numeric options are omitted.
type Sequence struct {
	Name      string
	Schema    string
	Type      string
	Start     int64
	Increment int64
	MinValue  int64
	MaxValue  int64
	Cache     int64
	Cycle     bool
	OwnedBy   string // "table.column"
}

// NewSequence returns a sequence with server defaults.
func NewSequence(name string) *Sequence {
	return &Sequence{Name: name}
}

// As sets the sequence data type.
func (s *Sequence) As(typ string) *Sequence { s.Type = typ; return s }

// StartWith sets the start value.
func (s *Sequence) StartWith(n int64) *Sequence { s.Start = n; return s }

// IncrementBy sets the increment.
func (s *Sequence) IncrementBy(n int64) *Sequence { s.Increment = n; return s }

// Range sets the minimum and maximum values.
func (s *Sequence) Range(minValue, maxValue int64) *Sequence {
	s.MinValue, s.MaxValue = minValue, maxValue
	return s
}

// CacheSize sets the number of preallocated values.
func (s *Sequence) CacheSize(n int64) *Sequence { s.Cache = n; return s }

// Cycled makes the sequence wrap around.
func (s *Sequence) Cycled() *Sequence { s.Cycle = true; return s }

// Owned ties the sequence to a table column.
func (s *Sequence) Owned(table, column string) *Sequence {
	s.OwnedBy = table + "." + column
	return s
}

// ToSQL returns the CREATE SEQUENCE statement. MariaDB supports sequences
// with the same options.
func (s *Sequence) ToSQL(dialectName string) (string, error) {
	info, ok := dialect.Lookup(dialectName)
	if !ok {
		return "", dbkit.NewInvalidArgumentError("schema.Sequence", dialectName, "unknown dialect")
	}
	if !info.IsPostgres() && info.Name != dialect.MariaDB {
		return "", dbkit.InvalidArgumentf("schema.Sequence", s.Name, "sequences are not supported by %s", info.Name)
	}
	f := sql.NewFormatter(info.Name)
	var b strings.Builder
	b.WriteString("CREATE SEQUENCE " + f.QualifiedIdent(s.Schema, s.Name))
	if s.Type != "" && info.IsPostgres() {
		b.WriteString(" AS " + s.Type)
	}
	if s.Increment != 0 {
		fmt.Fprintf(&b, " INCREMENT BY %d", s.Increment)
	}
	if s.MinValue != 0 {
		fmt.Fprintf(&b, " MINVALUE %d", s.MinValue)
	}
	if s.MaxValue != 0 {
		fmt.Fprintf(&b, " MAXVALUE %d", s.MaxValue)
	}
	if s.Start != 0 {
		fmt.Fprintf(&b, " START WITH %d", s.Start)
	}
	if s.Cache != 0 {
		fmt.Fprintf(&b, " CACHE %d", s.Cache)
	}
	if s.Cycle {
		b.WriteString(" CYCLE")
	}
	if s.OwnedBy != "" && info.IsPostgres() {
		table, column, _ := strings.Cut(s.OwnedBy, ".")
		b.WriteString(" OWNED BY " + f.QualifiedIdent(table, column))
	}
	return b.String(), nil
}

// Function is a stored function.
type Function struct {
	Name       string
	Schema     string
	Args       string // argument list, e.g. "a integer, b integer".
	Returns    string
	Language   string
	Body       string
	Volatility string // IMMUTABLE, STABLE or VOLATILE.
}

// ToSQL returns the CREATE OR REPLACE FUNCTION statement.
func (fn *Function) ToSQL(dialectName string) (string, error) {
	f, err := postgresFormatter("Function", fn.Name, dialectName)
	if err != nil {
		return "", err
	}
	lang := fn.Language
	if lang == "" {
		lang = "plpgsql"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE OR REPLACE FUNCTION %s(%s) RETURNS %s LANGUAGE %s", f.QualifiedIdent(fn.Schema, fn.Name), fn.Args, fn.Returns, lang)
	if fn.Volatility != "" {
		b.WriteString(" " + strings.ToUpper(fn.Volatility))
	}
	b.WriteString(" AS " + dollarQuote(fn.Body))
	return b.String(), nil
}

// dollarQuote wraps body in a dollar-quoted string whose tag does not
// occur in body.
func dollarQuote(body string) string {
	tag := "$$"
	for i := 0; strings.Contains(body, tag); i++ {
		tag = fmt.Sprintf("$fn%d$", i)
	}
	return tag + body + tag
}

// Trigger is a table trigger.
type Trigger struct {
	Name     string
	Table    string
	Schema   string
	Timing   string   // BEFORE, AFTER or INSTEAD OF.
	Events   []string // INSERT, UPDATE, DELETE, TRUNCATE.
	ForEach  string   // ROW or STATEMENT.
	When     string
	Function string
}

// ToSQL returns the CREATE TRIGGER statement.
func (tr *Trigger) ToSQL(dialectName string) (string, error) {
	f, err := postgresFormatter("Trigger", tr.Name, dialectName)
	if err != nil {
		return "", err
	}
	if len(tr.Events) == 0 || tr.Function == "" {
		return "", dbkit.NewInvalidArgumentError("schema.Trigger", tr.Name, "trigger requires events and a function")
	}
	timing, forEach := tr.Timing, tr.ForEach
	if timing == "" {
		timing = "BEFORE"
	}
	if forEach == "" {
		forEach = "ROW"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TRIGGER %s %s %s ON %s FOR EACH %s",
		f.Ident(tr.Name), strings.ToUpper(timing), strings.ToUpper(strings.Join(tr.Events, " OR ")),
		f.QualifiedIdent(tr.Schema, tr.Table), strings.ToUpper(forEach))
	if tr.When != "" {
		b.WriteString(" WHEN (" + tr.When + ")")
	}
	b.WriteString(" EXECUTE FUNCTION " + f.QualifiedIdent(tr.Schema, tr.Function) + "()")
	return b.String(), nil
}

// Extension is a Postgres extension.
type Extension struct {
	Name    string
	Schema  string
	Version string
}

// ToSQL returns the CREATE EXTENSION statement.
func (e *Extension) ToSQL(dialectName string) (string, error) {
	f, err := postgresFormatter("Extension", e.Name, dialectName)
	if err != nil {
		return "", err
	}
	s := "CREATE EXTENSION IF NOT EXISTS " + f.Ident(e.Name)
	if e.Schema != "" {
		s += " WITH SCHEMA " + f.Ident(e.Schema)
	}
	if e.Version != "" {
		s += " VERSION " + f.Literal(e.Version)
	}
	return s, nil
}
