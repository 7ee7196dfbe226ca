package schema

import (
	"context"
	stdsql "database/sql"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/syssam/dbkit/dialect/sql"
	"github.com/syssam/dbkit/dialect/sqlschema"
	dbschema "github.com/syssam/dbkit/schema"
	"github.com/syssam/dbkit/schema/edge"
	"github.com/syssam/dbkit/schema/field"
	"github.com/syssam/dbkit/schema/index"
)

// pg builds catalog queries with $N placeholders.
var pg = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// postgresCatalog reads pg_catalog. It serves the whole Postgres family;
// objects a variant does not support come back as empty result sets.
type postgresCatalog struct {
	crdb bool
}

func (c postgresCatalog) defaultSchema(ctx context.Context, q querier) (string, error) {
	return scalar(ctx, q, "SELECT current_schema()")
}

func (c postgresCatalog) version(ctx context.Context, q querier) (string, error) {
	if c.crdb {
		return scalar(ctx, q, "SELECT version()")
	}
	return scalar(ctx, q, "SHOW server_version")
}

func (postgresCatalog) schemas(ctx context.Context, q querier) ([]string, error) {
	var names []string
	_, err := query(ctx, q, pg.Select("nspname").
		From("pg_catalog.pg_namespace").
		Where(sq.NotEq{"nspname": []string{"pg_catalog", "information_schema", "crdb_internal", "pg_extension"}}).
		Where(sq.NotLike{"nspname": "pg_toast%"}).
		Where(sq.NotLike{"nspname": "pg_temp%"}).
		OrderBy("nspname"),
		func(rows *stdsql.Rows) error {
			var name string
			if err := rows.Scan(&name); err != nil {
				return err
			}
			names = append(names, name)
			return nil
		})
	return names, err
}

func (c postgresCatalog) steps(o *options) []step {
	steps := []step{
		{StepTables, c.tables},
		{StepColumns, c.columns},
		{StepConstraints, c.constraints},
		{StepIndexes, c.indexes},
		{StepChecks, c.checks},
		{StepEnums, c.enums},
		{StepDomains, c.domains},
		{StepSequences, c.sequences},
		{StepComposites, c.composites},
		{StepExtensions, c.extensions},
	}
	if o.functions {
		steps = append(steps, step{StepFunctions, c.functions})
	}
	if o.triggers {
		steps = append(steps, step{StepTriggers, c.triggers})
	}
	if o.collations {
		steps = append(steps, step{StepCollations, c.collations})
	}
	return steps
}

// relations selects the ordinary and partitioned tables of the schema.
func relations(columns ...string) sq.SelectBuilder {
	return pg.Select(columns...).
		From("pg_catalog.pg_class c").
		Join("pg_catalog.pg_namespace n ON n.oid = c.relnamespace").
		Where("c.relkind IN ('r', 'p')")
}

func (postgresCatalog) tables(ctx context.Context, s *state) (int, error) {
	return query(ctx, s.q, relations("c.relname", "COALESCE(obj_description(c.oid, 'pg_class'), '')").
		Where(sq.Eq{"n.nspname": s.schema}).
		Where("NOT c.relispartition").
		OrderBy("c.relname"),
		func(rows *stdsql.Rows) error {
			t := &dbschema.Table{}
			if err := rows.Scan(&t.Name, &t.Options.Comment); err != nil {
				return err
			}
			s.addTable(t)
			return nil
		})
}

func (postgresCatalog) columns(ctx context.Context, s *state) (int, error) {
	return query(ctx, s.q, relations(
		"c.relname",
		"a.attname",
		"format_type(a.atttypid, a.atttypmod)",
		"a.attnotnull",
		"COALESCE(pg_get_expr(d.adbin, d.adrelid), '')",
		"a.attidentity::text",
		"a.attgenerated::text",
		"COALESCE(col_description(c.oid, a.attnum), '')",
		"COALESCE(co.collname, '')",
	).
		Join("pg_catalog.pg_attribute a ON a.attrelid = c.oid").
		LeftJoin("pg_catalog.pg_attrdef d ON d.adrelid = a.attrelid AND d.adnum = a.attnum").
		LeftJoin("pg_catalog.pg_collation co ON co.oid = a.attcollation AND co.collname <> 'default'").
		Where(sq.Eq{"n.nspname": s.schema}).
		Where("a.attnum > 0 AND NOT a.attisdropped").
		OrderBy("c.relname", "a.attnum"),
		func(rows *stdsql.Rows) error {
			var (
				r     pgColumn
				table string
			)
			if err := rows.Scan(&table, &r.name, &r.typ, &r.notNull, &r.def, &r.identity, &r.generated, &r.comment, &r.collation); err != nil {
				return err
			}
			t := s.table(table)
			if t == nil {
				return nil
			}
			t.Columns = append(t.Columns, r.descriptor())
			return nil
		})
}

type pgColumn struct {
	name, typ, def      string
	notNull             bool
	identity, generated string
	comment, collation  string
}

var serialTypes = map[string]string{
	"SMALLINT": "SMALLSERIAL",
	"INTEGER":  "SERIAL",
	"BIGINT":   "BIGSERIAL",
}

func (r pgColumn) descriptor() *field.Descriptor {
	d := field.ParseType(r.name, r.typ)
	d.NotNull = r.notNull
	d.Comment = r.comment
	d.Collation = r.collation
	switch {
	case r.identity == "a" || r.identity == "d":
		d.Identity = &field.Identity{Always: r.identity == "a"}
	case r.generated == "s":
		d.Generated = &field.Generated{Expr: sql.Raw(r.def), Stored: true}
	case strings.HasPrefix(r.def, "nextval(") && serialTypes[d.Type] != "":
		d.Type, d.Family = serialTypes[d.Type], field.FamilySerial
	case r.def != "":
		d.Default = sql.Raw(r.def)
	}
	return d
}

// keyParts unnests the key columns of a constraint with their position.
const keyParts = "unnest(con.conkey, con.confkey) WITH ORDINALITY AS u(attnum, refnum, ord)"

func (postgresCatalog) constraints(ctx context.Context, s *state) (int, error) {
	type row struct {
		table, name, kind, column, refTable, refColumn string
		onDelete, onUpdate                             string
		deferrable, deferred                           bool
	}
	var (
		order []string
		byKey = make(map[string][]row)
	)
	n, err := query(ctx, s.q, pg.Select(
		"c.relname",
		"con.conname",
		"con.contype::text",
		"COALESCE(a.attname, '')",
		"COALESCE(fc.relname, '')",
		"COALESCE(fa.attname, '')",
		"con.confdeltype::text",
		"con.confupdtype::text",
		"con.condeferrable",
		"con.condeferred",
	).
		From("pg_catalog.pg_constraint con").
		Join("pg_catalog.pg_class c ON c.oid = con.conrelid").
		Join("pg_catalog.pg_namespace n ON n.oid = c.relnamespace").
		CrossJoin("LATERAL "+keyParts).
		LeftJoin("pg_catalog.pg_attribute a ON a.attrelid = c.oid AND a.attnum = u.attnum").
		LeftJoin("pg_catalog.pg_class fc ON fc.oid = con.confrelid").
		LeftJoin("pg_catalog.pg_attribute fa ON fa.attrelid = con.confrelid AND fa.attnum = u.refnum").
		Where(sq.Eq{"n.nspname": s.schema, "con.contype": []string{"p", "u", "f"}}).
		OrderBy("c.relname", "con.conname", "u.ord"),
		func(rows *stdsql.Rows) error {
			var r row
			if err := rows.Scan(&r.table, &r.name, &r.kind, &r.column, &r.refTable, &r.refColumn,
				&r.onDelete, &r.onUpdate, &r.deferrable, &r.deferred); err != nil {
				return err
			}
			key := r.table + "." + r.name
			if _, ok := byKey[key]; !ok {
				order = append(order, key)
			}
			byKey[key] = append(byKey[key], r)
			return nil
		})
	if err != nil {
		return n, err
	}
	for _, key := range order {
		parts := byKey[key]
		first := parts[0]
		t := s.table(first.table)
		if t == nil {
			continue
		}
		columns := make([]string, len(parts))
		refs := make([]string, len(parts))
		for i, p := range parts {
			columns[i], refs[i] = p.column, p.refColumn
		}
		switch first.kind {
		case "p":
			t.PrimaryKey, t.PrimaryKeyName = columns, first.name
		case "u":
			t.Uniques = append(t.Uniques, &dbschema.Unique{Name: first.name, Columns: columns})
		case "f":
			fk := &edge.Descriptor{
				Columns:           columns,
				RefTable:          first.refTable,
				RefColumns:        refs,
				StorageKey:        first.name,
				Deferrable:        first.deferrable,
				InitiallyDeferred: first.deferred,
			}
			fk.OnDelete, _ = sqlschema.ActionFromCode(first.onDelete)
			fk.OnUpdate, _ = sqlschema.ActionFromCode(first.onUpdate)
			t.ForeignKeys = append(t.ForeignKeys, fk)
		}
	}
	return n, nil
}

func (postgresCatalog) indexes(ctx context.Context, s *state) (int, error) {
	type row struct {
		table, name, method, column, expr, where string
		unique, desc, nullsFirst                 bool
	}
	var (
		order []string
		byKey = make(map[string][]row)
	)
	n, err := query(ctx, s.q, pg.Select(
		"t.relname",
		"i.relname",
		"ix.indisunique",
		"am.amname",
		"COALESCE(a.attname, '')",
		"pg_get_indexdef(ix.indexrelid, k.ord::int, true)",
		"(ix.indoption[k.ord - 1] & 1) = 1",
		"(ix.indoption[k.ord - 1] & 2) = 2",
		"COALESCE(pg_get_expr(ix.indpred, ix.indrelid), '')",
	).
		From("pg_catalog.pg_index ix").
		Join("pg_catalog.pg_class t ON t.oid = ix.indrelid").
		Join("pg_catalog.pg_class i ON i.oid = ix.indexrelid").
		Join("pg_catalog.pg_namespace n ON n.oid = t.relnamespace").
		Join("pg_catalog.pg_am am ON am.oid = i.relam").
		CrossJoin("LATERAL unnest(ix.indkey) WITH ORDINALITY AS k(attnum, ord)").
		LeftJoin("pg_catalog.pg_attribute a ON a.attrelid = t.oid AND a.attnum = k.attnum AND k.attnum > 0").
		Where(sq.Eq{"n.nspname": s.schema}).
		Where("NOT ix.indisprimary AND k.ord <= ix.indnkeyatts").
		Where("NOT EXISTS (SELECT 1 FROM pg_catalog.pg_constraint con WHERE con.conindid = ix.indexrelid AND con.contype IN ('p', 'u'))").
		OrderBy("t.relname", "i.relname", "k.ord"),
		func(rows *stdsql.Rows) error {
			var r row
			if err := rows.Scan(&r.table, &r.name, &r.unique, &r.method, &r.column, &r.expr,
				&r.desc, &r.nullsFirst, &r.where); err != nil {
				return err
			}
			key := r.table + "." + r.name
			if _, ok := byKey[key]; !ok {
				order = append(order, key)
			}
			byKey[key] = append(byKey[key], r)
			return nil
		})
	if err != nil {
		return n, err
	}
	for _, key := range order {
		parts := byKey[key]
		first := parts[0]
		t := s.table(first.table)
		if t == nil {
			continue
		}
		idx := &index.Descriptor{StorageKey: first.name, Unique: first.unique, Where: first.where}
		if first.method != "btree" {
			idx.Method = first.method
		}
		for _, p := range parts {
			col := &index.Column{Name: p.column}
			if p.column == "" {
				col.Expr = p.expr
			} else {
				idx.Fields = append(idx.Fields, p.column)
			}
			switch {
			case p.desc:
				col.Direction = index.Desc
				if !p.nullsFirst {
					col.Nulls = index.NullsLast
				}
			case p.nullsFirst:
				col.Nulls = index.NullsFirst
			}
			idx.Columns = append(idx.Columns, col)
		}
		t.Indexes = append(t.Indexes, idx)
	}
	return n, nil
}

func (postgresCatalog) checks(ctx context.Context, s *state) (int, error) {
	return query(ctx, s.q, pg.Select("c.relname", "con.conname", "pg_get_constraintdef(con.oid)").
		From("pg_catalog.pg_constraint con").
		Join("pg_catalog.pg_class c ON c.oid = con.conrelid").
		Join("pg_catalog.pg_namespace n ON n.oid = c.relnamespace").
		Where(sq.Eq{"n.nspname": s.schema, "con.contype": "c"}).
		OrderBy("c.relname", "con.conname"),
		func(rows *stdsql.Rows) error {
			var table, name, def string
			if err := rows.Scan(&table, &name, &def); err != nil {
				return err
			}
			if t := s.table(table); t != nil {
				t.Checks = append(t.Checks, &dbschema.Check{Name: name, Expr: checkExpr(def)})
			}
			return nil
		})
}

// checkExpr strips the CHECK keyword and the outer parentheses from a
// constraint definition: "CHECK ((price > 0)) NOT VALID" is "(price > 0)".
func checkExpr(def string) string {
	def = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(def), "NOT VALID"))
	if len(def) >= 5 && strings.EqualFold(def[:5], "CHECK") {
		def = strings.TrimSpace(def[5:])
	}
	if strings.HasPrefix(def, "(") && strings.HasSuffix(def, ")") && balanced(def[1:len(def)-1]) {
		def = def[1 : len(def)-1]
	}
	return def
}

// balanced reports whether the parentheses of s are balanced.
func balanced(s string) bool {
	depth := 0
	for _, r := range s {
		switch r {
		case '(':
			depth++
		case ')':
			if depth--; depth < 0 {
				return false
			}
		}
	}
	return depth == 0
}

// types selects the user types of the schema.
func types(columns ...string) sq.SelectBuilder {
	return pg.Select(columns...).
		From("pg_catalog.pg_type t").
		Join("pg_catalog.pg_namespace n ON n.oid = t.typnamespace")
}

func (postgresCatalog) enums(ctx context.Context, s *state) (int, error) {
	var last *dbschema.Enum
	return query(ctx, s.q, types("t.typname", "e.enumlabel").
		Join("pg_catalog.pg_enum e ON e.enumtypid = t.oid").
		Where(sq.Eq{"n.nspname": s.schema}).
		OrderBy("t.typname", "e.enumsortorder"),
		func(rows *stdsql.Rows) error {
			var name, label string
			if err := rows.Scan(&name, &label); err != nil {
				return err
			}
			if last == nil || last.Name != name {
				last = &dbschema.Enum{Name: name, Schema: s.schema}
				s.bundle.Enums = append(s.bundle.Enums, last)
			}
			last.Values = append(last.Values, label)
			return nil
		})
}

func (postgresCatalog) domains(ctx context.Context, s *state) (int, error) {
	var last *dbschema.Domain
	return query(ctx, s.q, types(
		"t.typname",
		"format_type(t.typbasetype, t.typtypmod)",
		"t.typnotnull",
		"COALESCE(t.typdefault, '')",
		"COALESCE(con.conname, '')",
		"COALESCE(pg_get_constraintdef(con.oid), '')",
	).
		LeftJoin("pg_catalog.pg_constraint con ON con.contypid = t.oid").
		Where(sq.Eq{"n.nspname": s.schema, "t.typtype": "d"}).
		OrderBy("t.typname", "con.conname"),
		func(rows *stdsql.Rows) error {
			var (
				name, base, def, check, checkDef string
				notNull                          bool
			)
			if err := rows.Scan(&name, &base, &notNull, &def, &check, &checkDef); err != nil {
				return err
			}
			if last == nil || last.Name != name {
				last = &dbschema.Domain{Name: name, Schema: s.schema, BaseType: base, NotNull: notNull}
				if def != "" {
					last.Default = sql.Raw(def)
				}
				s.bundle.Domains = append(s.bundle.Domains, last)
			}
			if check != "" {
				last.Checks = append(last.Checks, dbschema.DomainCheck{Name: check, Expr: checkExpr(checkDef)})
			}
			return nil
		})
}

func (postgresCatalog) sequences(ctx context.Context, s *state) (int, error) {
	return query(ctx, s.q, pg.Select(
		"s.sequencename",
		"s.data_type::text",
		"s.start_value",
		"s.increment_by",
		"s.min_value",
		"s.max_value",
		"s.cache_size",
		"s.cycle",
	).
		From("pg_catalog.pg_sequences s").
		Where(sq.Eq{"s.schemaname": s.schema}).
		// Sequences owned by serial and identity columns belong to the column.
		Where("NOT EXISTS (SELECT 1 FROM pg_catalog.pg_depend d WHERE d.classid = 'pg_catalog.pg_class'::regclass "+
			"AND d.objid = (quote_ident(s.schemaname) || '.' || quote_ident(s.sequencename))::regclass AND d.deptype IN ('a', 'i'))").
		OrderBy("s.sequencename"),
		func(rows *stdsql.Rows) error {
			seq := &dbschema.Sequence{Schema: s.schema}
			if err := rows.Scan(&seq.Name, &seq.Type, &seq.Start, &seq.Increment,
				&seq.MinValue, &seq.MaxValue, &seq.Cache, &seq.Cycle); err != nil {
				return err
			}
			seq.Type = strings.ToUpper(seq.Type)
			s.bundle.Sequences = append(s.bundle.Sequences, seq)
			return nil
		})
}

func (postgresCatalog) composites(ctx context.Context, s *state) (int, error) {
	var last *dbschema.Composite
	return query(ctx, s.q, types("t.typname", "a.attname", "format_type(a.atttypid, a.atttypmod)").
		Join("pg_catalog.pg_class c ON c.oid = t.typrelid AND c.relkind = 'c'").
		Join("pg_catalog.pg_attribute a ON a.attrelid = c.oid AND a.attnum > 0 AND NOT a.attisdropped").
		Where(sq.Eq{"n.nspname": s.schema}).
		OrderBy("t.typname", "a.attnum"),
		func(rows *stdsql.Rows) error {
			var name string
			var attr dbschema.Attribute
			if err := rows.Scan(&name, &attr.Name, &attr.Type); err != nil {
				return err
			}
			if last == nil || last.Name != name {
				last = &dbschema.Composite{Name: name, Schema: s.schema}
				s.bundle.Composites = append(s.bundle.Composites, last)
			}
			last.Attributes = append(last.Attributes, attr)
			return nil
		})
}

func (postgresCatalog) extensions(ctx context.Context, s *state) (int, error) {
	return query(ctx, s.q, pg.Select("e.extname", "n.nspname", "e.extversion").
		From("pg_catalog.pg_extension e").
		Join("pg_catalog.pg_namespace n ON n.oid = e.extnamespace").
		Where(sq.NotEq{"e.extname": "plpgsql"}).
		OrderBy("e.extname"),
		func(rows *stdsql.Rows) error {
			e := &dbschema.Extension{}
			if err := rows.Scan(&e.Name, &e.Schema, &e.Version); err != nil {
				return err
			}
			s.bundle.Extensions = append(s.bundle.Extensions, e)
			return nil
		})
}

var volatility = map[string]string{"i": "IMMUTABLE", "s": "STABLE", "v": "VOLATILE"}

func (postgresCatalog) functions(ctx context.Context, s *state) (int, error) {
	return query(ctx, s.q, pg.Select(
		"p.proname",
		"pg_get_function_arguments(p.oid)",
		"pg_get_function_result(p.oid)",
		"l.lanname",
		"p.prosrc",
		"p.provolatile::text",
	).
		From("pg_catalog.pg_proc p").
		Join("pg_catalog.pg_namespace n ON n.oid = p.pronamespace").
		Join("pg_catalog.pg_language l ON l.oid = p.prolang").
		Where(sq.Eq{"n.nspname": s.schema, "p.prokind": "f"}).
		Where("NOT EXISTS (SELECT 1 FROM pg_catalog.pg_depend d WHERE d.objid = p.oid AND d.deptype = 'e')").
		OrderBy("p.proname"),
		func(rows *stdsql.Rows) error {
			fn := &dbschema.Function{Schema: s.schema}
			var vol string
			if err := rows.Scan(&fn.Name, &fn.Args, &fn.Returns, &fn.Language, &fn.Body, &vol); err != nil {
				return err
			}
			fn.Volatility = volatility[vol]
			s.bundle.Functions = append(s.bundle.Functions, fn)
			return nil
		})
}

// Bits of pg_trigger.tgtype.
const (
	tgRow      = 1 << 0
	tgBefore   = 1 << 1
	tgInsert   = 1 << 2
	tgDelete   = 1 << 3
	tgUpdate   = 1 << 4
	tgTruncate = 1 << 5
	tgInstead  = 1 << 6
)

func (postgresCatalog) triggers(ctx context.Context, s *state) (int, error) {
	return query(ctx, s.q, pg.Select("tg.tgname", "c.relname", "tg.tgtype", "p.proname").
		From("pg_catalog.pg_trigger tg").
		Join("pg_catalog.pg_class c ON c.oid = tg.tgrelid").
		Join("pg_catalog.pg_namespace n ON n.oid = c.relnamespace").
		Join("pg_catalog.pg_proc p ON p.oid = tg.tgfoid").
		Where(sq.Eq{"n.nspname": s.schema}).
		Where("NOT tg.tgisinternal").
		OrderBy("c.relname", "tg.tgname"),
		func(rows *stdsql.Rows) error {
			tr := &dbschema.Trigger{Schema: s.schema}
			var typ int
			if err := rows.Scan(&tr.Name, &tr.Table, &typ, &tr.Function); err != nil {
				return err
			}
			switch {
			case typ&tgInstead != 0:
				tr.Timing = "INSTEAD OF"
			case typ&tgBefore != 0:
				tr.Timing = "BEFORE"
			default:
				tr.Timing = "AFTER"
			}
			for _, e := range []struct {
				bit  int
				name string
			}{{tgInsert, "INSERT"}, {tgUpdate, "UPDATE"}, {tgDelete, "DELETE"}, {tgTruncate, "TRUNCATE"}} {
				if typ&e.bit != 0 {
					tr.Events = append(tr.Events, e.name)
				}
			}
			tr.ForEach = "STATEMENT"
			if typ&tgRow != 0 {
				tr.ForEach = "ROW"
			}
			s.bundle.Triggers = append(s.bundle.Triggers, tr)
			return nil
		})
}

func (postgresCatalog) collations(ctx context.Context, s *state) (int, error) {
	return query(ctx, s.q, pg.Select("c.collname").
		From("pg_catalog.pg_collation c").
		Join("pg_catalog.pg_namespace n ON n.oid = c.collnamespace").
		Where(sq.Eq{"n.nspname": s.schema}).
		OrderBy("c.collname"),
		func(rows *stdsql.Rows) error {
			var name string
			if err := rows.Scan(&name); err != nil {
				return err
			}
			s.bundle.Collations = append(s.bundle.Collations, name)
			return nil
		})
}
