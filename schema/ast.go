package schema

import (
	"strings"

	atlas "ariga.io/atlas/sql/schema"

	"github.com/syssam/dbkit/dialect"
	"github.com/syssam/dbkit/dialect/sql"
	"github.com/syssam/dbkit/dialect/sqlschema"
	"github.com/syssam/dbkit/schema/field"
)

// ToAST converts the table into an atlas schema table. Referenced tables
// are stubs holding only the referenced columns; Bundle.ToAST links them
// to the real tables.
func (t *Table) ToAST() (*atlas.Table, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	f := sql.NewFormatter(dialect.Postgres)
	at := atlas.NewTable(t.Name)
	if t.Options.Comment != "" {
		at.SetComment(t.Options.Comment)
	}
	if t.Annotation.Charset != "" {
		at.SetCharset(t.Annotation.Charset)
	}
	if t.Annotation.Collation != "" {
		at.SetCollation(t.Annotation.Collation)
	}
	cols := make(map[string]*atlas.Column, len(t.Columns))
	for _, c := range t.Columns {
		ac := astColumn(f, c)
		cols[c.Column()] = ac
		at.AddColumns(ac)
	}
	if pk := t.PrimaryKeyColumns(); len(pk) > 0 {
		parts := make([]*atlas.Column, len(pk))
		for i, name := range pk {
			parts[i] = cols[name]
		}
		idx := atlas.NewPrimaryKey(parts...)
		idx.Name = t.PrimaryKeyName
		at.SetPrimaryKey(idx)
	}
	for _, c := range t.Columns {
		if c.Unique && !c.PrimaryKey {
			at.AddIndexes(atlas.NewUniqueIndex(t.Name + "_" + c.Column() + "_key").AddColumns(cols[c.Column()]))
		}
	}
	for _, u := range t.Uniques {
		name := u.Name
		if name == "" {
			name = t.Name + "_" + strings.Join(t.columnNames(u.Columns), "_") + "_key"
		}
		idx := atlas.NewUniqueIndex(name)
		for _, c := range t.columnNames(u.Columns) {
			idx.AddColumns(cols[c])
		}
		at.AddIndexes(idx)
	}
	for _, idx := range t.Indexes {
		ai := atlas.NewIndex(t.IndexName(idx)).SetUnique(idx.Unique)
		if idx.Comment != "" {
			ai.SetComment(idx.Comment)
		}
		for _, part := range idx.Columns {
			var p *atlas.IndexPart
			if part.Expr != "" {
				p = atlas.NewExprPart(&atlas.RawExpr{X: part.Expr})
			} else {
				p = atlas.NewColumnPart(cols[t.columnName(part.Name)])
			}
			ai.AddParts(p.SetDesc(part.Direction == "DESC"))
		}
		at.AddIndexes(ai)
	}
	for _, c := range t.Columns {
		for _, ck := range c.Checks {
			expr := ck.Expr
			if expr == "" {
				expr = columnCheckExpr(f, c, ck)
			}
			at.AddChecks(atlas.NewCheck().SetName(ck.Name).SetExpr(expr))
		}
	}
	for _, ck := range t.Checks {
		at.AddChecks(atlas.NewCheck().SetName(ck.Name).SetExpr(ck.Expr))
	}
	for _, c := range t.Columns {
		if ref := c.Reference; ref != nil {
			fk := atlas.NewForeignKey(t.Name + "_" + c.Column() + "_fkey").
				AddColumns(cols[c.Column()]).
				SetOnDelete(refOption(ref.OnDelete)).
				SetOnUpdate(refOption(ref.OnUpdate))
			linkStub(fk, ref.Table, []string{ref.Column})
			at.AddForeignKeys(fk)
		}
	}
	for _, d := range t.ForeignKeys {
		fk := atlas.NewForeignKey(d.StorageKey).
			SetOnDelete(refOption(d.OnDelete)).
			SetOnUpdate(refOption(d.OnUpdate))
		for _, c := range t.columnNames(d.Columns) {
			fk.AddColumns(cols[c])
		}
		linkStub(fk, d.RefTable, d.RefColumns)
		at.AddForeignKeys(fk)
	}
	return at, nil
}

func linkStub(fk *atlas.ForeignKey, table string, columns []string) {
	ref := atlas.NewTable(table)
	for _, c := range columns {
		rc := atlas.NewColumn(c)
		ref.AddColumns(rc)
		fk.AddRefColumns(rc)
	}
	fk.SetRefTable(ref)
}

func columnCheckExpr(f *sql.Formatter, c *field.Descriptor, ck field.Check) string {
	vals := make([]string, len(ck.Values))
	for i, v := range ck.Values {
		vals[i] = f.Literal(v)
	}
	op := " IN ("
	if ck.Negate {
		op = " NOT IN ("
	}
	return f.Ident(c.Column()) + op + strings.Join(vals, ", ") + ")"
}

func refOption(a sqlschema.ReferentialAction) atlas.ReferenceOption {
	return atlas.ReferenceOption(a.String())
}

func astColumn(f *sql.Formatter, c *field.Descriptor) *atlas.Column {
	ac := atlas.NewColumn(c.Column())
	ac.Type = &atlas.ColumnType{
		Type: astType(c),
		Raw:  c.SQLType(),
		Null: !c.NotNull && !c.PrimaryKey,
	}
	switch v := c.Default.(type) {
	case nil:
	case sql.RawExpr:
		ac.SetDefault(&atlas.RawExpr{X: string(v)})
	default:
		ac.SetDefault(&atlas.Literal{V: f.Literal(v)})
	}
	if c.Comment != "" {
		ac.SetComment(c.Comment)
	}
	if c.Collation != "" {
		ac.SetCollation(c.Collation)
	}
	if g := c.Generated; g != nil {
		kind := "STORED"
		if !g.Stored {
			kind = "VIRTUAL"
		}
		ac.SetGeneratedExpr(&atlas.GeneratedExpr{Expr: g.Expr.RenderSQL(f), Type: kind})
	}
	return ac
}

func astType(c *field.Descriptor) atlas.Type {
	t := strings.ToLower(c.Type)
	if c.IsArray() {
		return &atlas.UnsupportedType{T: c.SQLType()}
	}
	switch c.Family {
	case field.FamilyInteger, field.FamilySerial:
		return &atlas.IntegerType{T: t}
	case field.FamilyNumeric, field.FamilyMoney:
		d := &atlas.DecimalType{T: t}
		if c.Precision != nil {
			d.Precision = *c.Precision
		}
		if c.Scale != nil {
			d.Scale = *c.Scale
		}
		return d
	case field.FamilyFloat:
		ft := &atlas.FloatType{T: t}
		if c.Precision != nil {
			ft.Precision = *c.Precision
		}
		return ft
	case field.FamilyString:
		return &atlas.StringType{T: t, Size: c.Length}
	case field.FamilyBinary:
		return &atlas.BinaryType{T: t}
	case field.FamilyTemporal:
		if c.Timezone {
			t += " with time zone"
		}
		return &atlas.TimeType{T: t, Precision: c.Precision}
	case field.FamilyBoolean:
		return &atlas.BoolType{T: t}
	case field.FamilyUUID:
		return &atlas.UUIDType{T: t}
	case field.FamilyJSON:
		return &atlas.JSONType{T: t}
	case field.FamilyGeometric, field.FamilyPostGIS:
		return &atlas.SpatialType{T: strings.ToLower(c.SQLType())}
	default:
		return &atlas.UnsupportedType{T: c.SQLType()}
	}
}

// ToAST converts the bundle into an atlas schema. Foreign keys are linked
// to the bundle tables they reference, and enums become schema objects.
func (b *Bundle) ToAST() (*atlas.Schema, error) {
	name := b.Name
	if name == "" {
		name = "public"
	}
	s := atlas.New(name)
	tables := make(map[string]*atlas.Table, len(b.Tables))
	for _, t := range b.Tables {
		at, err := t.ToAST()
		if err != nil {
			return nil, err
		}
		tables[t.Name] = at
		s.AddTables(at)
	}
	for _, at := range tables {
		for _, fk := range at.ForeignKeys {
			ref, ok := tables[fk.RefTable.Name]
			if !ok {
				continue
			}
			cols := make([]*atlas.Column, 0, len(fk.RefColumns))
			for _, rc := range fk.RefColumns {
				if c, ok := ref.Column(rc.Name); ok {
					cols = append(cols, c)
				}
			}
			if len(cols) == len(fk.RefColumns) {
				fk.RefTable, fk.RefColumns = ref, cols
			}
		}
	}
	for _, e := range b.Enums {
		s.AddObjects(&atlas.EnumType{T: e.Name, Values: e.Values, Schema: s})
	}
	return s, nil
}
