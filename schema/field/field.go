package field

import (
	"fmt"
	"strings"

	"github.com/syssam/dbkit"
	"github.com/syssam/dbkit/dialect/sql"
	"github.com/syssam/dbkit/dialect/sqlschema"
)

// Family groups SQL types that share rendering and validation rules.
type Family uint8

// Type families.
const (
	FamilyInvalid Family = iota
	FamilyInteger
	FamilySerial
	FamilyNumeric
	FamilyFloat
	FamilyMoney
	FamilyString
	FamilyBinary
	FamilyTemporal
	FamilyBoolean
	FamilyUUID
	FamilyJSON
	FamilyXML
	FamilyGeometric
	FamilyNetwork
	FamilyBit
	FamilyTextSearch
	FamilyRange
	FamilyOID
	FamilyVector
	FamilyPostGIS
	FamilyUser
)

var familyNames = [...]string{
	FamilyInvalid:    "invalid",
	FamilyInteger:    "integer",
	FamilySerial:     "serial",
	FamilyNumeric:    "numeric",
	FamilyFloat:      "float",
	FamilyMoney:      "money",
	FamilyString:     "string",
	FamilyBinary:     "binary",
	FamilyTemporal:   "temporal",
	FamilyBoolean:    "boolean",
	FamilyUUID:       "uuid",
	FamilyJSON:       "json",
	FamilyXML:        "xml",
	FamilyGeometric:  "geometric",
	FamilyNetwork:    "network",
	FamilyBit:        "bit",
	FamilyTextSearch: "text_search",
	FamilyRange:      "range",
	FamilyOID:        "oid",
	FamilyVector:     "vector",
	FamilyPostGIS:    "postgis",
	FamilyUser:       "user",
}

// String returns the family name.
func (f Family) String() string {
	if int(f) < len(familyNames) {
		return familyNames[f]
	}
	return fmt.Sprintf("family(%d)", f)
}

// Integer reports whether columns of the family hold integers.
func (f Family) Integer() bool { return f == FamilyInteger || f == FamilySerial }

// Builder is the interface implemented by column builders.
type Builder interface {
	Descriptor() *Descriptor
}

// Reference describes an inline foreign key.
type Reference struct {
	Table    string
	Column   string
	OnDelete sqlschema.ReferentialAction
	OnUpdate sqlschema.ReferentialAction
}

// ReferenceOption configures a Reference.
type ReferenceOption func(*Reference)

// OnDelete sets the ON DELETE action of a reference.
func OnDelete(a sqlschema.ReferentialAction) ReferenceOption {
	return func(r *Reference) { r.OnDelete = a }
}

// OnUpdate sets the ON UPDATE action of a reference.
func OnUpdate(a sqlschema.ReferentialAction) ReferenceOption {
	return func(r *Reference) { r.OnUpdate = a }
}

// Check is a column CHECK constraint. When Expr is empty the check is an
// IN (or NOT IN) list over Values.
type Check struct {
	Name   string
	Values []any
	Negate bool
	Expr   string
}

// Identity holds the options of an identity column.
type Identity struct {
	Always    bool
	Start     int64
	Increment int64
	MinValue  int64
	MaxValue  int64
	Cache     int64
	Cycle     bool
}

// IdentityOptions are the sequence options of an identity column.
// Zero values are omitted from DDL.
type IdentityOptions struct {
	Start     int64
	Increment int64
	MinValue  int64
	MaxValue  int64
	Cache     int64
	Cycle     bool
}

// Generated is a generated column expression.
type Generated struct {
	Expr   sql.Renderer
	Stored bool
}

// A Descriptor for column configuration.
type Descriptor struct {
	Name          string            // logical column name.
	StorageKey    string            // physical column name, if it differs.
	Type          string            // base SQL type token, e.g. VARCHAR.
	Family        Family            // type family.
	Length        int               // length or dimensions; 0 is unset.
	Precision     *int              // numeric or fractional-seconds precision.
	Scale         *int              // numeric scale.
	TypeArgs      []string          // verbatim type arguments, e.g. GEOMETRY(Point, 4326).
	Timezone      bool              // WITH TIME ZONE.
	ArrayDims     int               // array dimensions; 0 is scalar.
	Nullable      bool              // explicit Nullable() call.
	NotNull       bool              // NOT NULL.
	Default       any               // literal default or sql.RawExpr.
	PrimaryKey    bool              // single-column primary key.
	Unique        bool              // UNIQUE.
	Autoincrement bool              // SQLite AUTOINCREMENT / MySQL AUTO_INCREMENT.
	Identity      *Identity         // GENERATED ... AS IDENTITY.
	Reference     *Reference        // inline REFERENCES.
	Checks        []Check           // column checks.
	Generated     *Generated        // GENERATED ALWAYS AS (...).
	Collation     string            // COLLATE.
	Comment       string            // column comment.
	TrackingID    string            // stable id that survives renames.
	SchemaType    map[string]string // per-dialect type override.
	Err           error
}

// Column returns the physical column name.
func (d *Descriptor) Column() string {
	if d.StorageKey != "" {
		return d.StorageKey
	}
	return d.Name
}

// HasDefault reports whether the column has a default value.
func (d *Descriptor) HasDefault() bool { return d.Default != nil }

// DefaultIsExpr reports whether the default is a raw SQL expression.
func (d *Descriptor) DefaultIsExpr() bool {
	_, ok := d.Default.(sql.RawExpr)
	return ok
}

// IsArray reports whether the column is an array column.
func (d *Descriptor) IsArray() bool { return d.ArrayDims > 0 }

// SQLType returns the Postgres rendering of the column type, e.g.
// VARCHAR(255), NUMERIC(10, 2), TIMESTAMP(3) WITH TIME ZONE or TEXT[].
func (d *Descriptor) SQLType() string {
	var b strings.Builder
	b.WriteString(d.Type)
	switch {
	case len(d.TypeArgs) > 0:
		b.WriteString("(" + strings.Join(d.TypeArgs, ", ") + ")")
	case d.Length > 0:
		fmt.Fprintf(&b, "(%d)", d.Length)
	case d.Precision != nil && d.Scale != nil:
		fmt.Fprintf(&b, "(%d, %d)", *d.Precision, *d.Scale)
	case d.Precision != nil:
		fmt.Fprintf(&b, "(%d)", *d.Precision)
	}
	if d.Timezone {
		b.WriteString(" WITH TIME ZONE")
	}
	for range d.ArrayDims {
		b.WriteString("[]")
	}
	return b.String()
}

// Column is a column builder. Every decorator mutates the descriptor and
// returns the builder; invalid arguments are recorded on Descriptor().Err.
type Column struct {
	desc *Descriptor
}

func newColumn(name, typ string, family Family) *Column {
	c := &Column{desc: &Descriptor{Name: name, Type: typ, Family: family}}
	if name == "" {
		c.fail("column name must not be empty")
	}
	return c
}

func (c *Column) fail(reason string) {
	if c.desc.Err == nil {
		c.desc.Err = dbkit.NewInvalidArgumentError("field."+c.desc.Type, c.desc.Name, reason)
	}
}

func (c *Column) failf(format string, args ...any) {
	c.fail(fmt.Sprintf(format, args...))
}

// NotNull marks the column NOT NULL.
func (c *Column) NotNull() *Column {
	c.desc.NotNull = true
	c.desc.Nullable = false
	return c
}

// Nullable marks the column nullable. Columns are nullable by default.
func (c *Column) Nullable() *Column {
	c.desc.Nullable = true
	c.desc.NotNull = false
	return c
}

// Default sets the default value. Pass sql.Raw (or a helper such as
// GenRandomUUID) for an SQL expression; other values are formatted as
// literals.
func (c *Column) Default(v any) *Column {
	if c.desc.Generated != nil {
		c.fail("a generated column cannot have a default")
		return c
	}
	if c.desc.Identity != nil {
		c.fail("an identity column cannot have a default")
		return c
	}
	c.desc.Default = v
	return c
}

// DefaultExpr sets an SQL expression default.
func (c *Column) DefaultExpr(expr string) *Column {
	return c.Default(sql.Raw(expr))
}

// PrimaryKey marks the column as the primary key.
func (c *Column) PrimaryKey() *Column {
	c.desc.PrimaryKey = true
	return c
}

// Unique adds a UNIQUE constraint on the column.
func (c *Column) Unique() *Column {
	c.desc.Unique = true
	return c
}

// References adds an inline foreign key to table(column).
func (c *Column) References(table, column string, opts ...ReferenceOption) *Column {
	if table == "" || column == "" {
		c.fail("references requires a table and a column")
		return c
	}
	ref := &Reference{Table: table, Column: column}
	for _, opt := range opts {
		opt(ref)
	}
	c.desc.Reference = ref
	return c
}

// Check adds a named CHECK constraint restricting the column to values.
func (c *Column) Check(name string, values ...any) *Column {
	if len(values) == 0 {
		c.fail("check requires at least one value")
		return c
	}
	c.desc.Checks = append(c.desc.Checks, Check{Name: name, Values: values})
	return c
}

// CheckNot adds a named CHECK constraint excluding values.
func (c *Column) CheckNot(name string, values ...any) *Column {
	if len(values) == 0 {
		c.fail("check requires at least one value")
		return c
	}
	c.desc.Checks = append(c.desc.Checks, Check{Name: name, Values: values, Negate: true})
	return c
}

// CheckExpr adds a named CHECK constraint with a raw boolean expression.
func (c *Column) CheckExpr(name, expr string) *Column {
	c.desc.Checks = append(c.desc.Checks, Check{Name: name, Expr: expr})
	return c
}

// Array makes the column an array with the given number of dimensions.
func (c *Column) Array(dims ...int) *Column {
	n := 1
	if len(dims) > 0 {
		n = dims[0]
	}
	if n < 1 {
		c.failf("array dimensions must be positive, got %d", n)
		return c
	}
	c.desc.ArrayDims = n
	return c
}

// Length sets the length of character, bit and vector types.
func (c *Column) Length(n int) *Column {
	switch c.desc.Family {
	case FamilyString, FamilyBit, FamilyVector:
	default:
		c.failf("length is not supported by %s", c.desc.Type)
		return c
	}
	if n <= 0 {
		c.failf("length must be positive, got %d", n)
		return c
	}
	c.desc.Length = n
	return c
}

// Precision sets the precision of numeric types or the fractional-seconds
// precision of temporal types.
func (c *Column) Precision(p int) *Column {
	switch c.desc.Family {
	case FamilyNumeric:
		if p < 1 || p > 1000 {
			c.failf("precision must be between 1 and 1000, got %d", p)
			return c
		}
	case FamilyTemporal:
		if p < 0 || p > 6 {
			c.failf("fractional seconds precision must be between 0 and 6, got %d", p)
			return c
		}
	case FamilyFloat:
		if p < 1 || p > 53 {
			c.failf("float precision must be between 1 and 53, got %d", p)
			return c
		}
	default:
		c.failf("precision is not supported by %s", c.desc.Type)
		return c
	}
	c.desc.Precision = &p
	return c
}

// Scale sets the scale of numeric types.
func (c *Column) Scale(s int) *Column {
	if c.desc.Family != FamilyNumeric {
		c.failf("scale is not supported by %s", c.desc.Type)
		return c
	}
	if s < 0 || c.desc.Precision != nil && s > *c.desc.Precision {
		c.failf("scale %d out of range", s)
		return c
	}
	c.desc.Scale = &s
	return c
}

// WithTimezone switches TIME and TIMESTAMP columns to WITH TIME ZONE.
func (c *Column) WithTimezone() *Column {
	switch c.desc.Type {
	case "TIME", "TIMESTAMP":
		c.desc.Timezone = true
	default:
		c.failf("time zone is not supported by %s", c.desc.Type)
	}
	return c
}

// Collate sets the column collation.
func (c *Column) Collate(collation string) *Column {
	c.desc.Collation = collation
	return c
}

// Comment sets the column comment.
func (c *Column) Comment(s string) *Column {
	c.desc.Comment = s
	return c
}

// Autoincrement marks an integer column as auto-incrementing.
func (c *Column) Autoincrement() *Column {
	if !c.desc.Family.Integer() {
		c.failf("autoincrement requires an integer column, got %s", c.desc.Type)
		return c
	}
	c.desc.Autoincrement = true
	return c
}

// GeneratedAlwaysAsIdentity makes the column GENERATED ALWAYS AS IDENTITY.
func (c *Column) GeneratedAlwaysAsIdentity(opts ...IdentityOptions) *Column {
	return c.identity(true, opts)
}

// GeneratedByDefaultAsIdentity makes the column GENERATED BY DEFAULT AS
// IDENTITY.
func (c *Column) GeneratedByDefaultAsIdentity(opts ...IdentityOptions) *Column {
	return c.identity(false, opts)
}

func (c *Column) identity(always bool, opts []IdentityOptions) *Column {
	if c.desc.Family != FamilyInteger {
		c.failf("identity requires SMALLINT, INTEGER or BIGINT, got %s", c.desc.Type)
		return c
	}
	if c.desc.Default != nil {
		c.fail("an identity column cannot have a default")
		return c
	}
	id := &Identity{Always: always}
	if len(opts) > 0 {
		o := opts[0]
		id.Start, id.Increment, id.MinValue, id.MaxValue, id.Cache, id.Cycle =
			o.Start, o.Increment, o.MinValue, o.MaxValue, o.Cache, o.Cycle
	}
	c.desc.Identity = id
	c.desc.NotNull = true
	return c
}

// GeneratedAlwaysAs makes the column a generated column. expr is a string
// or an sql.Renderer such as an sqlcond expression.
func (c *Column) GeneratedAlwaysAs(expr any, stored bool) *Column {
	if c.desc.Default != nil {
		c.fail("a generated column cannot have a default")
		return c
	}
	var r sql.Renderer
	switch e := expr.(type) {
	case string:
		r = sql.Raw(e)
	case sql.Renderer:
		r = e
	default:
		c.failf("unsupported generated expression %T", expr)
		return c
	}
	c.desc.Generated = &Generated{Expr: r, Stored: stored}
	return c
}

// TrackingID sets a stable identifier that survives column renames.
func (c *Column) TrackingID(id string) *Column {
	c.desc.TrackingID = id
	return c
}

// StorageKey sets the physical column name when it differs from the
// logical name.
func (c *Column) StorageKey(key string) *Column {
	c.desc.StorageKey = key
	return c
}

// SchemaType overrides the column type per dialect.
//
//	field.Text("bio").SchemaType(map[string]string{
//	    dialect.MySQL: "MEDIUMTEXT",
//	})
func (c *Column) SchemaType(types map[string]string) *Column {
	c.desc.SchemaType = types
	return c
}

// Descriptor implements the Builder interface by returning its descriptor.
func (c *Column) Descriptor() *Descriptor {
	return c.desc
}
