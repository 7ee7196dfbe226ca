package schema

import (
	"fmt"
	"strings"
)

// ConstraintDef is a table constraint as rendered for one dialect. Unnamed
// constraints get the name the database assigns them.
type ConstraintDef struct {
	Name    string
	Kind    ConstraintKind
	Columns []string
	// Body is the definition without the CONSTRAINT clause, e.g.
	// UNIQUE ("email").
	Body string
	// Inline is set when the constraint is part of a column definition.
	Inline bool
}

// Def returns the constraint as it appears in ALTER TABLE ADD.
func (c ConstraintDef) Def(quote func(string) string) string {
	return "CONSTRAINT " + quote(c.Name) + " " + c.Body
}

// ConstraintDefs returns the constraints of the table as rendered for the
// named dialect, in the order primary key, column constraints, unique,
// check, foreign key. Unique indexes are not constraints.
func (t *Table) ConstraintDefs(dialectName string) ([]ConstraintDef, error) {
	b, err := newBuilder(t, dialectName)
	if err != nil {
		return nil, err
	}
	return b.constraints(), nil
}

func (b *builder) constraints() []ConstraintDef {
	var (
		cs     []ConstraintDef
		t      = b.t
		mysql  = b.info.IsMySQL()
		taken  = make(map[string]bool)
		checks int
		fks    int
	)
	// name returns the given name, or base made unique the way the
	// database does it.
	name := func(given, base string) string {
		if given != "" {
			taken[given] = true
			return given
		}
		n := base
		for i := 1; taken[n]; i++ {
			if mysql {
				n = fmt.Sprintf("%s_%d", base, i+1)
			} else {
				n = fmt.Sprintf("%s%d", base, i)
			}
		}
		taken[n] = true
		return n
	}
	checkBase := func(col string) string {
		switch {
		case mysql:
			checks++
			return fmt.Sprintf("%s_chk_%d", t.Name, checks)
		case col != "":
			return t.Name + "_" + col + "_check"
		}
		return t.Name + "_check"
	}
	if pk := t.PrimaryKeyColumns(); len(pk) > 0 {
		cs = append(cs, ConstraintDef{
			Name:    name(t.PrimaryKeyName, t.Name+"_pkey"),
			Kind:    ConstraintPrimaryKey,
			Columns: pk,
			Body:    "PRIMARY KEY (" + b.idents(pk) + ")",
			Inline:  len(pk) == 1,
		})
	}
	inline := t.inlinePK()
	for _, c := range t.Columns {
		col := c.Column()
		if c.Unique && col != inline {
			base := t.Name + "_" + col + "_key"
			if mysql {
				base = col
			}
			cs = append(cs, ConstraintDef{
				Name:    name("", base),
				Kind:    ConstraintUnique,
				Columns: []string{col},
				Body:    "UNIQUE (" + b.f.Ident(col) + ")",
				Inline:  true,
			})
		}
		for _, ck := range c.Checks {
			var n string
			if ck.Name != "" {
				n = name(ck.Name, "")
			} else {
				n = name("", checkBase(col))
			}
			cs = append(cs, ConstraintDef{
				Name:    n,
				Kind:    ConstraintCheck,
				Columns: []string{col},
				Body:    "CHECK (" + b.checkExpr(c, ck) + ")",
				Inline:  true,
			})
		}
		if ref := c.Reference; ref != nil {
			cs = append(cs, ConstraintDef{
				Name:    name("", t.Name+"_"+col+"_fkey"),
				Kind:    ConstraintForeignKey,
				Columns: []string{col},
				Body:    "FOREIGN KEY (" + b.f.Ident(col) + ") " + b.references(ref.Table, []string{ref.Column}, ref.OnDelete, ref.OnUpdate),
				Inline:  !mysql,
			})
		}
	}
	for _, u := range t.Uniques {
		cols := t.columnNames(u.Columns)
		base := t.Name + "_" + strings.Join(cols, "_") + "_key"
		if mysql {
			base = cols[0]
		}
		cs = append(cs, ConstraintDef{
			Name:    name(u.Name, base),
			Kind:    ConstraintUnique,
			Columns: cols,
			Body:    "UNIQUE (" + b.idents(cols) + ")",
		})
	}
	for _, ck := range t.Checks {
		var n string
		if ck.Name != "" {
			n = name(ck.Name, "")
		} else {
			n = name("", checkBase(""))
		}
		cs = append(cs, ConstraintDef{Name: n, Kind: ConstraintCheck, Body: "CHECK (" + ck.Expr + ")"})
	}
	for _, fk := range t.ForeignKeys {
		cols := t.columnNames(fk.Columns)
		base := t.Name + "_" + strings.Join(cols, "_") + "_fkey"
		if mysql && fk.StorageKey == "" {
			fks++
			base = fmt.Sprintf("%s_ibfk_%d", t.Name, fks)
		}
		cs = append(cs, ConstraintDef{
			Name:    name(fk.StorageKey, base),
			Kind:    ConstraintForeignKey,
			Columns: cols,
			Body:    b.foreignKeyBody(fk),
		})
	}
	return cs
}
