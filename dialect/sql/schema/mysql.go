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

// my builds catalog queries with ? placeholders.
var my = sq.StatementBuilder.PlaceholderFormat(sq.Question)

// mysqlCatalog reads information_schema of MySQL and MariaDB.
type mysqlCatalog struct{}

func (mysqlCatalog) defaultSchema(ctx context.Context, q querier) (string, error) {
	return scalar(ctx, q, "SELECT DATABASE()")
}

func (mysqlCatalog) version(ctx context.Context, q querier) (string, error) {
	return scalar(ctx, q, "SELECT VERSION()")
}

func (mysqlCatalog) schemas(ctx context.Context, q querier) ([]string, error) {
	var names []string
	_, err := query(ctx, q, my.Select("schema_name").
		From("information_schema.schemata").
		Where(sq.NotEq{"schema_name": []string{"information_schema", "mysql", "performance_schema", "sys"}}).
		OrderBy("schema_name"),
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

func (c mysqlCatalog) steps(o *options) []step {
	steps := []step{
		{StepTables, c.tables},
		{StepColumns, c.columns},
		{StepConstraints, c.constraints},
		{StepIndexes, c.indexes},
		{StepChecks, c.checks},
	}
	if o.functions {
		steps = append(steps, step{StepFunctions, c.functions})
	}
	if o.triggers {
		steps = append(steps, step{StepTriggers, c.triggers})
	}
	return steps
}

func (mysqlCatalog) tables(ctx context.Context, s *state) (int, error) {
	return query(ctx, s.q, my.Select("table_name", "table_comment").
		From("information_schema.tables").
		Where(sq.Eq{"table_schema": s.schema, "table_type": "BASE TABLE"}).
		OrderBy("table_name"),
		func(rows *stdsql.Rows) error {
			t := &dbschema.Table{}
			if err := rows.Scan(&t.Name, &t.Options.Comment); err != nil {
				return err
			}
			s.addTable(t)
			return nil
		})
}

func (mysqlCatalog) columns(ctx context.Context, s *state) (int, error) {
	return query(ctx, s.q, my.Select(
		"table_name",
		"column_name",
		"column_type",
		"is_nullable",
		"column_default",
		"extra",
		"column_comment",
		"COALESCE(collation_name, '')",
		"COALESCE(generation_expression, '')",
	).
		From("information_schema.columns").
		Where(sq.Eq{"table_schema": s.schema}).
		OrderBy("table_name", "ordinal_position"),
		func(rows *stdsql.Rows) error {
			var (
				r     myColumn
				table string
			)
			if err := rows.Scan(&table, &r.name, &r.typ, &r.nullable, &r.def, &r.extra, &r.comment, &r.collation, &r.generation); err != nil {
				return err
			}
			if t := s.table(table); t != nil {
				t.Columns = append(t.Columns, r.descriptor(s.info.Name))
			}
			return nil
		})
}

type myColumn struct {
	name, typ, nullable, extra string
	def                        stdsql.NullString
	comment, collation         string
	generation                 string
}

// mysqlType normalizes a column_type. Array-like types reported by some
// MySQL-compatible servers ("int[]") are stored as JSON.
func mysqlType(typ string) string {
	if strings.HasSuffix(strings.TrimSpace(typ), "[]") {
		return "json"
	}
	return typ
}

func (r myColumn) descriptor(dialectName string) *field.Descriptor {
	typ := mysqlType(r.typ)
	d := field.ParseType(r.name, typ)
	if lower := strings.ToLower(typ); strings.HasPrefix(lower, "enum(") || strings.HasPrefix(lower, "set(") {
		d.Type, d.TypeArgs = strings.ToUpper(typ[:strings.IndexByte(typ, '(')]), nil
	}
	// The native type round-trips exactly.
	d.SchemaType = map[string]string{dialectName: typ}
	d.NotNull = r.nullable == "NO"
	d.Comment = r.comment
	d.Collation = r.collation
	extra := strings.ToUpper(r.extra)
	switch {
	case strings.Contains(extra, "AUTO_INCREMENT"):
		d.Autoincrement = true
	case strings.Contains(extra, "GENERATED") && r.generation != "":
		d.Generated = &field.Generated{Expr: sql.Raw(r.generation), Stored: strings.Contains(extra, "STORED")}
	case r.def.Valid && strings.Contains(extra, "DEFAULT_GENERATED"):
		d.Default = sql.Raw(r.def.String)
	case r.def.Valid && (d.Family.Integer() || d.Family == field.FamilyNumeric || d.Family == field.FamilyFloat):
		d.Default = sql.Raw(r.def.String)
	case r.def.Valid && strings.EqualFold(r.def.String, "NULL"):
	case r.def.Valid:
		d.Default = r.def.String
	}
	return d
}

func (mysqlCatalog) constraints(ctx context.Context, s *state) (int, error) {
	type row struct {
		table, name, kind, column, refTable, refColumn, onDelete, onUpdate string
	}
	var (
		order []string
		byKey = make(map[string][]row)
	)
	n, err := query(ctx, s.q, my.Select(
		"kcu.table_name",
		"kcu.constraint_name",
		"tc.constraint_type",
		"kcu.column_name",
		"COALESCE(kcu.referenced_table_name, '')",
		"COALESCE(kcu.referenced_column_name, '')",
		"COALESCE(rc.delete_rule, '')",
		"COALESCE(rc.update_rule, '')",
	).
		From("information_schema.key_column_usage kcu").
		Join("information_schema.table_constraints tc ON tc.constraint_schema = kcu.constraint_schema "+
			"AND tc.table_name = kcu.table_name AND tc.constraint_name = kcu.constraint_name").
		LeftJoin("information_schema.referential_constraints rc ON rc.constraint_schema = kcu.constraint_schema "+
			"AND rc.constraint_name = kcu.constraint_name").
		Where(sq.Eq{"kcu.table_schema": s.schema, "tc.constraint_type": []string{"PRIMARY KEY", "UNIQUE", "FOREIGN KEY"}}).
		OrderBy("kcu.table_name", "kcu.constraint_name", "kcu.ordinal_position"),
		func(rows *stdsql.Rows) error {
			var r row
			if err := rows.Scan(&r.table, &r.name, &r.kind, &r.column, &r.refTable, &r.refColumn, &r.onDelete, &r.onUpdate); err != nil {
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
		case "PRIMARY KEY":
			t.PrimaryKey = columns
		case "UNIQUE":
			t.Uniques = append(t.Uniques, &dbschema.Unique{Name: first.name, Columns: columns})
		case "FOREIGN KEY":
			fk := &edge.Descriptor{Columns: columns, RefTable: first.refTable, RefColumns: refs, StorageKey: first.name}
			fk.OnDelete, _ = sqlschema.ParseAction(first.onDelete)
			fk.OnUpdate, _ = sqlschema.ParseAction(first.onUpdate)
			t.ForeignKeys = append(t.ForeignKeys, fk)
		}
	}
	return n, nil
}

func (mysqlCatalog) indexes(ctx context.Context, s *state) (int, error) {
	type row struct {
		table, name, column, collation, method string
		nonUnique                              bool
		seq                                    int
	}
	var (
		order []string
		byKey = make(map[string][]row)
	)
	n, err := query(ctx, s.q, my.Select(
		"table_name",
		"index_name",
		"non_unique",
		"seq_in_index",
		"COALESCE(column_name, '')",
		"COALESCE(collation, 'A')",
		"index_type",
	).
		From("information_schema.statistics").
		Where(sq.Eq{"table_schema": s.schema}).
		Where(sq.NotEq{"index_name": "PRIMARY"}).
		OrderBy("table_name", "index_name", "seq_in_index"),
		func(rows *stdsql.Rows) error {
			var r row
			if err := rows.Scan(&r.table, &r.name, &r.nonUnique, &r.seq, &r.column, &r.collation, &r.method); err != nil {
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
		if t == nil || hasUnique(t, first.name) {
			continue
		}
		idx := &index.Descriptor{StorageKey: first.name, Unique: !first.nonUnique}
		if m := strings.ToLower(first.method); m != "btree" {
			idx.Method = m
		}
		for _, p := range parts {
			col := &index.Column{Name: p.column}
			if p.collation == "D" {
				col.Direction = index.Desc
			}
			idx.Fields = append(idx.Fields, p.column)
			idx.Columns = append(idx.Columns, col)
		}
		t.Indexes = append(t.Indexes, idx)
	}
	return n, nil
}

// hasUnique reports whether the table has a UNIQUE constraint with the
// given name. MySQL reports the backing index of the constraint too.
func hasUnique(t *dbschema.Table, name string) bool {
	for _, u := range t.Uniques {
		if u.Name == name {
			return true
		}
	}
	return false
}

func (mysqlCatalog) checks(ctx context.Context, s *state) (int, error) {
	return query(ctx, s.q, my.Select("tc.table_name", "cc.constraint_name", "cc.check_clause").
		From("information_schema.check_constraints cc").
		Join("information_schema.table_constraints tc ON tc.constraint_schema = cc.constraint_schema "+
			"AND tc.constraint_name = cc.constraint_name").
		Where(sq.Eq{"cc.constraint_schema": s.schema, "tc.constraint_type": "CHECK"}).
		OrderBy("tc.table_name", "cc.constraint_name"),
		func(rows *stdsql.Rows) error {
			var table, name, clause string
			if err := rows.Scan(&table, &name, &clause); err != nil {
				return err
			}
			if t := s.table(table); t != nil {
				t.Checks = append(t.Checks, &dbschema.Check{Name: name, Expr: checkExpr(clause)})
			}
			return nil
		})
}

func (mysqlCatalog) functions(ctx context.Context, s *state) (int, error) {
	return query(ctx, s.q, my.Select("routine_name", "COALESCE(dtd_identifier, '')", "COALESCE(routine_definition, '')", "is_deterministic").
		From("information_schema.routines").
		Where(sq.Eq{"routine_schema": s.schema, "routine_type": "FUNCTION"}).
		OrderBy("routine_name"),
		func(rows *stdsql.Rows) error {
			fn := &dbschema.Function{Schema: s.schema, Language: "SQL"}
			var deterministic string
			if err := rows.Scan(&fn.Name, &fn.Returns, &fn.Body, &deterministic); err != nil {
				return err
			}
			if deterministic == "YES" {
				fn.Volatility = "IMMUTABLE"
			}
			s.bundle.Functions = append(s.bundle.Functions, fn)
			return nil
		})
}

func (mysqlCatalog) triggers(ctx context.Context, s *state) (int, error) {
	return query(ctx, s.q, my.Select("trigger_name", "event_object_table", "action_timing", "event_manipulation", "action_orientation").
		From("information_schema.triggers").
		Where(sq.Eq{"trigger_schema": s.schema}).
		OrderBy("event_object_table", "trigger_name"),
		func(rows *stdsql.Rows) error {
			tr := &dbschema.Trigger{Schema: s.schema}
			var event string
			if err := rows.Scan(&tr.Name, &tr.Table, &tr.Timing, &event, &tr.ForEach); err != nil {
				return err
			}
			tr.Events = []string{event}
			s.bundle.Triggers = append(s.bundle.Triggers, tr)
			return nil
		})
}
