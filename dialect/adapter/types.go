package adapter

import (
	"fmt"
	"strings"

	"github.com/go-openapi/inflect"

	"github.com/syssam/dbkit/dialect"
	"github.com/syssam/dbkit/schema/field"
)

// friendly renders the canonical lower-case spelling of a catalog type.
func friendly(typ string) string {
	d := field.ParseType("", typ)
	name := d.Type
	if d.Family != field.FamilyUser {
		name = strings.ToLower(name)
	}
	if d.Timezone {
		switch d.Type {
		case "TIMESTAMP":
			name = "timestamptz"
		case "TIME":
			name = "timetz"
		}
	}
	var b strings.Builder
	b.WriteString(name)
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
	for range d.ArrayDims {
		b.WriteString("[]")
	}
	return b.String()
}

// MapTypeToInternal returns the native column type of the dialect, e.g.
// "jsonb" is JSON on MySQL and "timestamptz" is TIMESTAMP WITH TIME ZONE
// on Postgres.
func (c *core) MapTypeToInternal(typ string) string {
	return field.ParseType("", typ).TypeFor(c.info.Name)
}

var goTypes = map[string]string{
	"SMALLINT":         "int16",
	"INTEGER":          "int32",
	"BIGINT":           "int64",
	"SMALLSERIAL":      "int16",
	"SERIAL":           "int32",
	"BIGSERIAL":        "int64",
	"REAL":             "float32",
	"DOUBLE PRECISION": "float64",
	"FLOAT":            "float64",
	"BOOLEAN":          "bool",
	"BYTEA":            "[]byte",
	"UUID":             "uuid.UUID",
	"JSON":             "json.RawMessage",
	"JSONB":            "json.RawMessage",
	"DATE":             "time.Time",
	"TIMESTAMP":        "time.Time",
	"OID":              "uint32",
}

// GoType returns the Go type of a column type. Numeric, interval and
// unknown types map to string.
func (c *core) GoType(typ string) string {
	if c.info.IsMySQL() && tinyBool.MatchString(typ) {
		return "bool"
	}
	d := field.ParseType("", typ)
	t, ok := goTypes[d.Type]
	switch {
	case c.info.Family == dialect.FamilySQLite && d.Family.Integer():
		t = "int64"
	case !ok:
		t = "string"
	}
	for range d.ArrayDims {
		t = "[]" + t
	}
	return t
}

var initialisms = map[string]bool{
	"ID": true, "URL": true, "UUID": true, "JSON": true, "SQL": true,
	"API": true, "HTTP": true, "IP": true, "HTML": true,
}

// goName returns the exported Go name of a column, e.g. "owner_id" is
// OwnerID.
func goName(column string) string {
	words := strings.FieldsFunc(column, func(r rune) bool { return r == '_' || r == '-' || r == ' ' })
	var b strings.Builder
	for _, w := range words {
		if u := strings.ToUpper(w); initialisms[u] {
			b.WriteString(u)
			continue
		}
		b.WriteString(inflect.Camelize(strings.ToLower(w)))
	}
	return b.String()
}

// GoField returns the struct field holding a column. Nullable scalar
// columns become pointers.
func (c *core) GoField(d *field.Descriptor) GoField {
	typ := c.GoType(d.SQLType())
	if !d.NotNull && !d.PrimaryKey && d.Identity == nil && !strings.HasPrefix(typ, "[]") && typ != "json.RawMessage" {
		typ = "*" + typ
	}
	return GoField{Name: goName(d.Column()), Type: typ, Tag: fmt.Sprintf("`db:%q`", d.Column())}
}
