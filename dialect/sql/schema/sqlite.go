package schema

import (
	"context"
	stdsql "database/sql"
	"strings"
	"unicode"

	sq "github.com/Masterminds/squirrel"

	"github.com/syssam/dbkit/dialect/sql"
	"github.com/syssam/dbkit/dialect/sqlschema"
	dbschema "github.com/syssam/dbkit/schema"
	"github.com/syssam/dbkit/schema/edge"
	"github.com/syssam/dbkit/schema/field"
	"github.com/syssam/dbkit/schema/index"
)

// lite builds catalog queries with ? placeholders.
var lite = sq.StatementBuilder.PlaceholderFormat(sq.Question)

// sqliteCatalog reads sqlite_master and the table-valued pragma functions.
// Turso (libSQL) shares it.
type sqliteCatalog struct{}

func (sqliteCatalog) defaultSchema(context.Context, querier) (string, error) {
	return "main", nil
}

func (sqliteCatalog) version(ctx context.Context, q querier) (string, error) {
	return scalar(ctx, q, "SELECT sqlite_version()")
}

func (sqliteCatalog) schemas(ctx context.Context, q querier) ([]string, error) {
	var names []string
	_, err := query(ctx, q, lite.Select("name").From("pragma_database_list").OrderBy("seq"),
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

func (c sqliteCatalog) steps(*options) []step {
	return []step{
		{StepTables, c.tables},
		{StepColumns, c.columns},
		{StepConstraints, c.constraints},
		{StepIndexes, c.indexes},
		{StepChecks, c.checks},
		{StepTriggers, c.triggers},
	}
}

// pragma selects from a table-valued pragma function. The pragma
// argument is bound through its hidden arg column.
func pragma(fn, arg string, columns ...string) sq.SelectBuilder {
	return lite.Select(columns...).From(fn).Where(sq.Eq{"arg": arg})
}

func (sqliteCatalog) tables(ctx context.Context, s *state) (int, error) {
	return query(ctx, s.q, lite.Select("name", "COALESCE(sql, '')").
		From("sqlite_master").
		Where(sq.Eq{"type": "table"}).
		Where(sq.NotLike{"name": "sqlite_%"}).
		OrderBy("name"),
		func(rows *stdsql.Rows) error {
			var name, create string
			if err := rows.Scan(&name, &create); err != nil {
				return err
			}
			upper := strings.ToUpper(create)
			t := &dbschema.Table{Name: name}
			t.Options.WithoutRowid = strings.Contains(upper, "WITHOUT ROWID")
			t.Options.Strict = strings.HasSuffix(strings.TrimRight(upper, "; \n"), "STRICT")
			if s.addTable(t) {
				s.ddl[name] = create
			}
			return nil
		})
}

// Values of the hidden column of pragma_table_xinfo.
const (
	hiddenVirtual = 2
	hiddenStored  = 3
)

func (sqliteCatalog) columns(ctx context.Context, s *state) (int, error) {
	total := 0
	for _, t := range s.bundle.Tables {
		var pk []struct {
			name string
			seq  int
		}
		n, err := query(ctx, s.q, pragma("pragma_table_xinfo", t.Name, "name", "type", `"notnull"`, "dflt_value", "pk", "hidden").
			OrderBy("cid"),
			func(rows *stdsql.Rows) error {
				var (
					name, typ     string
					notNull       bool
					def           stdsql.NullString
					pkSeq, hidden int
				)
				if err := rows.Scan(&name, &typ, &notNull, &def, &pkSeq, &hidden); err != nil {
					return err
				}
				d := field.ParseType(name, typ)
				d.NotNull = notNull
				switch {
				case hidden == hiddenVirtual || hidden == hiddenStored:
					d.Generated = &field.Generated{Expr: sql.Raw(generatedExpr(s.ddl[t.Name], name)), Stored: hidden == hiddenStored}
				case def.Valid:
					d.Default = sql.Raw(def.String)
				}
				if pkSeq > 0 {
					pk = append(pk, struct {
						name string
						seq  int
					}{name, pkSeq})
				}
				t.Columns = append(t.Columns, d)
				return nil
			})
		total += n
		if err != nil {
			return total, err
		}
		if len(pk) > 0 {
			t.PrimaryKey = make([]string, len(pk))
			for _, p := range pk {
				t.PrimaryKey[p.seq-1] = p.name
			}
		}
		if len(pk) == 1 && strings.Contains(strings.ToUpper(s.ddl[t.Name]), "AUTOINCREMENT") {
			if c, ok := t.Column(pk[0].name); ok {
				c.Autoincrement = true
			}
		}
	}
	return total, nil
}

func (sqliteCatalog) constraints(ctx context.Context, s *state) (int, error) {
	total := 0
	for _, t := range s.bundle.Tables {
		var last *edge.Descriptor
		lastID := -1
		n, err := query(ctx, s.q, pragma("pragma_foreign_key_list", t.Name, "id", `"table"`, `"from"`, `COALESCE("to", '')`, "on_update", "on_delete").
			OrderBy("id", "seq"),
			func(rows *stdsql.Rows) error {
				var (
					id                                int
					ref, from, to, onUpdate, onDelete string
				)
				if err := rows.Scan(&id, &ref, &from, &to, &onUpdate, &onDelete); err != nil {
					return err
				}
				if last == nil || id != lastID {
					last = &edge.Descriptor{RefTable: ref}
					last.OnUpdate, _ = sqlschema.ParseAction(onUpdate)
					last.OnDelete, _ = sqlschema.ParseAction(onDelete)
					t.ForeignKeys = append(t.ForeignKeys, last)
					lastID = id
				}
				last.Columns = append(last.Columns, from)
				last.RefColumns = append(last.RefColumns, to)
				return nil
			})
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func (sqliteCatalog) indexes(ctx context.Context, s *state) (int, error) {
	total := 0
	for _, t := range s.bundle.Tables {
		type entry struct {
			name, origin, create string
			unique               bool
		}
		var list []entry
		n, err := query(ctx, s.q, lite.Select("il.name", `il."unique"`, "il.origin", "COALESCE(m.sql, '')").
			From("pragma_index_list il").
			LeftJoin("sqlite_master m ON m.type = 'index' AND m.name = il.name").
			Where(sq.Eq{"il.arg": t.Name}).
			OrderBy("il.name"),
			func(rows *stdsql.Rows) error {
				var e entry
				if err := rows.Scan(&e.name, &e.unique, &e.origin, &e.create); err != nil {
					return err
				}
				list = append(list, e)
				return nil
			})
		total += n
		if err != nil {
			return total, err
		}
		for _, e := range list {
			if e.origin == "pk" {
				continue
			}
			var (
				names []string
				cols  []*index.Column
			)
			parts := indexParts(e.create)
			n, err := query(ctx, s.q, pragma("pragma_index_xinfo", e.name, "seqno", "COALESCE(name, '')", `"desc"`).
				Where(sq.Eq{"key": 1}).
				OrderBy("seqno"),
				func(rows *stdsql.Rows) error {
					var (
						seq  int
						name string
						desc bool
					)
					if err := rows.Scan(&seq, &name, &desc); err != nil {
						return err
					}
					col := &index.Column{Name: name}
					if name == "" && seq < len(parts) {
						col.Expr = parts[seq]
					} else {
						names = append(names, name)
					}
					if desc {
						col.Direction = index.Desc
					}
					cols = append(cols, col)
					return nil
				})
			total += n
			if err != nil {
				return total, err
			}
			if e.origin == "u" {
				u := &dbschema.Unique{Columns: names}
				if !strings.HasPrefix(e.name, "sqlite_autoindex_") {
					u.Name = e.name
				}
				t.Uniques = append(t.Uniques, u)
				continue
			}
			t.Indexes = append(t.Indexes, &index.Descriptor{
				StorageKey: e.name,
				Unique:     e.unique,
				Fields:     names,
				Columns:    cols,
				Where:      indexWhere(e.create),
			})
		}
	}
	return total, nil
}

func (sqliteCatalog) checks(_ context.Context, s *state) (int, error) {
	n := 0
	for _, t := range s.bundle.Tables {
		for _, c := range tableChecks(s.ddl[t.Name]) {
			t.Checks = append(t.Checks, c)
			n++
		}
	}
	return n, nil
}

func (sqliteCatalog) triggers(ctx context.Context, s *state) (int, error) {
	return query(ctx, s.q, lite.Select("name", "tbl_name", "COALESCE(sql, '')").
		From("sqlite_master").
		Where(sq.Eq{"type": "trigger"}).
		OrderBy("tbl_name", "name"),
		func(rows *stdsql.Rows) error {
			tr := &dbschema.Trigger{Schema: s.schema, ForEach: "ROW"}
			var create string
			if err := rows.Scan(&tr.Name, &tr.Table, &create); err != nil {
				return err
			}
			if s.table(tr.Table) == nil {
				return nil
			}
			words := strings.Fields(strings.ToUpper(create))
			for i, w := range words {
				switch w {
				case "BEFORE", "AFTER":
					if tr.Timing == "" {
						tr.Timing = w
					}
				case "INSTEAD":
					if tr.Timing == "" {
						tr.Timing = "INSTEAD OF"
					}
				case "INSERT", "UPDATE", "DELETE":
					if len(tr.Events) == 0 && i > 0 {
						tr.Events = []string{w}
					}
				}
			}
			s.bundle.Triggers = append(s.bundle.Triggers, tr)
			return nil
		})
}

// splitTop splits s at top-level commas, outside parentheses and quotes.
func splitTop(s string) []string {
	var (
		parts []string
		depth int
		quote rune
		start int
	)
	for i, r := range s {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '\'' || r == '"' || r == '`':
			quote = r
		case r == '(':
			depth++
		case r == ')':
			depth--
		case r == ',' && depth == 0:
			parts = append(parts, strings.TrimSpace(s[start:i]))
			start = i + 1
		}
	}
	if rest := strings.TrimSpace(s[start:]); rest != "" {
		parts = append(parts, rest)
	}
	return parts
}

// enclosed returns the text inside the first parenthesized group that
// starts at or after from.
func enclosed(s string, from int) (string, int) {
	open := strings.IndexByte(s[from:], '(')
	if open < 0 {
		return "", -1
	}
	open += from
	depth := 0
	var quote rune
	for i, r := range s[open:] {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '\'' || r == '"':
			quote = r
		case r == '(':
			depth++
		case r == ')':
			if depth--; depth == 0 {
				return s[open+1 : open+i], open + i + 1
			}
		}
	}
	return "", -1
}

// indexParts returns the key parts of a CREATE INDEX statement.
func indexParts(create string) []string {
	if create == "" {
		return nil
	}
	on := strings.Index(strings.ToUpper(create), " ON ")
	if on < 0 {
		return nil
	}
	body, _ := enclosed(create, on)
	parts := splitTop(body)
	for i, p := range parts {
		// Drop a trailing ASC or DESC, reported separately.
		fields := strings.Fields(p)
		if n := len(fields); n > 1 && (strings.EqualFold(fields[n-1], "ASC") || strings.EqualFold(fields[n-1], "DESC")) {
			parts[i] = strings.TrimSpace(p[:strings.LastIndex(p, fields[n-1])])
		}
	}
	return parts
}

// indexWhere returns the predicate of a partial index.
func indexWhere(create string) string {
	i := strings.LastIndex(strings.ToUpper(create), " WHERE ")
	if i < 0 {
		return ""
	}
	return strings.TrimSpace(create[i+len(" WHERE "):])
}

// tableChecks extracts the CHECK constraints of a CREATE TABLE statement.
func tableChecks(create string) []*dbschema.Check {
	body, _ := enclosed(create, 0)
	var checks []*dbschema.Check
	for _, def := range splitTop(body) {
		upper := strings.ToUpper(def)
		i := keyword(upper, "CHECK")
		if i < 0 {
			continue
		}
		c := &dbschema.Check{}
		if strings.HasPrefix(upper, "CONSTRAINT ") {
			if f := strings.Fields(def); len(f) > 1 {
				c.Name = strings.Trim(f[1], "\"`[]")
			}
		}
		c.Expr, _ = enclosed(def, i)
		checks = append(checks, c)
	}
	return checks
}

// generatedExpr returns the expression of a generated column from the
// CREATE TABLE statement.
func generatedExpr(create, column string) string {
	body, _ := enclosed(create, 0)
	for _, def := range splitTop(body) {
		f := strings.Fields(def)
		if len(f) == 0 || strings.Trim(f[0], "\"`[]") != column {
			continue
		}
		if i := keyword(strings.ToUpper(def), "AS"); i >= 0 {
			expr, _ := enclosed(def, i)
			return expr
		}
	}
	return ""
}

// keyword returns the index of kw in s as a whole word, or -1.
func keyword(s, kw string) int {
	for from := 0; ; {
		i := strings.Index(s[from:], kw)
		if i < 0 {
			return -1
		}
		i += from
		end := i + len(kw)
		if (i == 0 || !isWord(rune(s[i-1]))) && (end == len(s) || !isWord(rune(s[end]))) {
			return i
		}
		from = end
	}
}

func isWord(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
