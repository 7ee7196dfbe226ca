package schema

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/syssam/dbkit"
	"github.com/syssam/dbkit/dialect"
	"github.com/syssam/dbkit/dialect/sql"
	"github.com/syssam/dbkit/dialect/sqlschema"
	"github.com/syssam/dbkit/schema/edge"
	"github.com/syssam/dbkit/schema/field"
	"github.com/syssam/dbkit/schema/index"
)

// MySQL table defaults, used when no annotation overrides them.
const (
	DefaultEngine    = "InnoDB"
	DefaultCharset   = "utf8mb4"
	DefaultCollation = "utf8mb4_unicode_ci"
)

// builder renders the DDL of one table for one dialect.
type builder struct {
	t    *Table
	info dialect.Info
	f    *sql.Formatter
}

func newBuilder(t *Table, name string) (*builder, error) {
	info, ok := dialect.Lookup(name)
	if !ok {
		return nil, dbkit.NewInvalidArgumentError("schema.ToSQL", name, "unknown dialect")
	}
	return &builder{t: t, info: info, f: sql.NewFormatter(info.Name)}, nil
}

// ToSQL returns the CREATE TABLE statement of the table for the named
// dialect.
func (t *Table) ToSQL(dialectName string) (string, error) {
	b, err := newBuilder(t, dialectName)
	if err != nil {
		return "", err
	}
	return b.createTable()
}

// ToCreateIndexSQL returns the CREATE INDEX statements of the table in
// declaration order.
func (t *Table) ToCreateIndexSQL(dialectName string) ([]string, error) {
	b, err := newBuilder(t, dialectName)
	if err != nil {
		return nil, err
	}
	stmts := make([]string, 0, len(t.Indexes))
	for _, idx := range t.Indexes {
		s, err := b.createIndex(idx)
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, s)
	}
	return stmts, nil
}

// Statements returns the CREATE TABLE statement, the COMMENT ON statements
// of the Postgres family and the CREATE INDEX statements.
func (t *Table) Statements(dialectName string) ([]string, error) {
	b, err := newBuilder(t, dialectName)
	if err != nil {
		return nil, err
	}
	create, err := b.createTable()
	if err != nil {
		return nil, err
	}
	stmts := append([]string{create}, b.comments()...)
	indexes, err := t.ToCreateIndexSQL(dialectName)
	if err != nil {
		return nil, err
	}
	return append(stmts, indexes...), nil
}

// IndexSQL returns the CREATE INDEX statement of one index of the table.
func (t *Table) IndexSQL(dialectName string, idx *index.Descriptor) (string, error) {
	b, err := newBuilder(t, dialectName)
	if err != nil {
		return "", err
	}
	return b.createIndex(idx)
}

// ColumnSQL returns the definition of the named column as it appears in
// CREATE TABLE, e.g. for ALTER TABLE ... ADD COLUMN.
func (t *Table) ColumnSQL(dialectName, column string) (string, error) {
	b, err := newBuilder(t, dialectName)
	if err != nil {
		return "", err
	}
	c, ok := t.Column(column)
	if !ok {
		return "", dbkit.NewInvalidArgumentError("schema.ColumnSQL", column, "unknown column of table "+t.Name)
	}
	if err := b.checkColumn(c); err != nil {
		return "", err
	}
	return b.columnDef(c), nil
}

// DefaultSQL returns the rendered default of the named column, or "" if
// the column has no default.
func (t *Table) DefaultSQL(dialectName, column string) (string, error) {
	b, err := newBuilder(t, dialectName)
	if err != nil {
		return "", err
	}
	c, ok := t.Column(column)
	if !ok {
		return "", dbkit.NewInvalidArgumentError("schema.DefaultSQL", column, "unknown column of table "+t.Name)
	}
	if !c.HasDefault() {
		return "", nil
	}
	return b.defaultValue(c), nil
}

func (b *builder) tableIdent() string {
	return b.f.QualifiedIdent(b.t.Schema, b.t.Name)
}

func (b *builder) fail(format string, args ...any) error {
	return dbkit.InvalidArgumentf("schema.ToSQL", b.t.Name, format, args...)
}

func (b *builder) check() error {
	var errs []error
	sqlite := b.info.IsSQLite()
	inline := b.t.inlinePK()
	for _, c := range b.t.Columns {
		if !c.Autoincrement || !sqlite {
			continue
		}
		switch {
		case c.Column() != inline:
			errs = append(errs, b.fail("AUTOINCREMENT column %q must be the single-column primary key", c.Name))
		case c.TypeFor(b.info.Name) != "INTEGER":
			errs = append(errs, b.fail("AUTOINCREMENT column %q must be INTEGER PRIMARY KEY, got %s", c.Name, c.TypeFor(b.info.Name)))
		case b.t.Options.WithoutRowid:
			errs = append(errs, b.fail("AUTOINCREMENT is not allowed on WITHOUT ROWID tables"))
		}
	}
	for _, c := range b.t.Columns {
		if err := b.checkColumn(c); err != nil {
			errs = append(errs, err)
		}
	}
	if (b.t.Partition != nil || b.t.PartitionOf != nil) && !b.info.IsPostgres() {
		errs = append(errs, b.fail("declarative partitioning is not supported by %s", b.info.Name))
	}
	return dbkit.NewAggregateError(errs...)
}

// checkColumn reports column features the dialect cannot render.
// CockroachDB is the only member of the Postgres family with virtual
// computed columns.
func (b *builder) checkColumn(c *field.Descriptor) error {
	if g := c.Generated; g != nil && !g.Stored && b.info.IsPostgres() && b.info.Name != dialect.CRDB {
		return b.fail("column %q: virtual generated columns are not supported by %s, use a stored column", c.Name, b.info.DisplayName)
	}
	return nil
}

func (b *builder) createTable() (string, error) {
	if err := b.check(); err != nil {
		return "", err
	}
	var s strings.Builder
	s.WriteString("CREATE ")
	switch {
	case b.t.Options.Temporary:
		s.WriteString("TEMPORARY ")
	case b.t.Options.Unlogged && b.info.IsPostgres():
		s.WriteString("UNLOGGED ")
	}
	s.WriteString("TABLE ")
	if b.t.Options.IfNotExists {
		s.WriteString("IF NOT EXISTS ")
	}
	s.WriteString(b.tableIdent())
	if p := b.t.PartitionOf; p != nil {
		bound, err := p.Bound.render(b.f)
		if err != nil {
			return "", b.fail("%v", err)
		}
		fmt.Fprintf(&s, " PARTITION OF %s", b.f.QualifiedIdent(b.t.Schema, p.Parent))
		if defs := b.tableConstraints(); len(defs) > 0 {
			s.WriteString(" (" + strings.Join(defs, ", ") + ")")
		}
		s.WriteString(" " + bound)
		return s.String(), nil
	}
	defs := make([]string, 0, len(b.t.Columns))
	for _, c := range b.t.Columns {
		defs = append(defs, b.columnDef(c))
	}
	defs = append(defs, b.tableConstraints()...)
	s.WriteString(" (" + strings.Join(defs, ", ") + ")")
	if p := b.t.Partition; p != nil {
		s.WriteString(" " + p.render(b.f, b.t))
	}
	s.WriteString(b.tableSuffix())
	return s.String(), nil
}

// tableSuffix returns the trailing table options of the dialect.
func (b *builder) tableSuffix() string {
	switch {
	case b.info.IsMySQL():
		a := b.t.Annotation
		engine, charset, collation := a.Engine, a.Charset, a.Collation
		if engine == "" {
			engine = DefaultEngine
		}
		if charset == "" {
			charset = DefaultCharset
		}
		if collation == "" {
			collation = DefaultCollation
		}
		suffix := fmt.Sprintf(" ENGINE=%s DEFAULT CHARSET=%s COLLATE=%s", engine, charset, collation)
		if c := b.t.Options.Comment; c != "" && b.withComments() {
			suffix += " COMMENT=" + b.f.Literal(c)
		}
		if a.Options != "" {
			suffix += " " + a.Options
		}
		return suffix
	case b.info.IsSQLite():
		var opts []string
		if b.t.Options.Strict {
			opts = append(opts, "STRICT")
		}
		if b.t.Options.WithoutRowid {
			opts = append(opts, "WITHOUT ROWID")
		}
		if len(opts) > 0 {
			return " " + strings.Join(opts, ", ")
		}
	default:
		if b.t.Annotation.Options != "" {
			return " " + b.t.Annotation.Options
		}
	}
	return ""
}

func (b *builder) withComments() bool {
	enabled, _ := b.t.Annotation.GetWithComments()
	return enabled
}

// ModifyColumnSQL is like ColumnSQL without the PRIMARY KEY, UNIQUE,
// CHECK and REFERENCES clauses, which MySQL MODIFY COLUMN would add again.
func (t *Table) ModifyColumnSQL(dialectName, column string) (string, error) {
	b, err := newBuilder(t, dialectName)
	if err != nil {
		return "", err
	}
	c, ok := t.Column(column)
	if !ok {
		return "", dbkit.NewInvalidArgumentError("schema.ModifyColumnSQL", column, "unknown column of table "+t.Name)
	}
	if err := b.checkColumn(c); err != nil {
		return "", err
	}
	return b.column(c, true), nil
}

func (b *builder) columnDef(c *field.Descriptor) string { return b.column(c, false) }

// column renders one column definition. Clause order:
// type, COLLATE, PRIMARY KEY, identity, NOT NULL, DEFAULT, UNIQUE, CHECK,
// REFERENCES, GENERATED ALWAYS AS, COMMENT. A bare definition has no
// constraint clauses.
func (b *builder) column(c *field.Descriptor, bare bool) string {
	parts := []string{b.f.Ident(c.Column()), c.TypeFor(b.info.Name)}
	if c.Collation != "" {
		if b.info.IsPostgres() {
			parts = append(parts, "COLLATE "+b.f.Ident(c.Collation))
		} else {
			parts = append(parts, "COLLATE "+c.Collation)
		}
	}
	inlinePK := c.Column() == b.t.inlinePK()
	if inlinePK && !bare {
		parts = append(parts, "PRIMARY KEY")
		if c.Autoincrement && b.info.IsSQLite() {
			parts = append(parts, "AUTOINCREMENT")
		}
	}
	if clause := b.identity(c); clause != "" {
		parts = append(parts, clause)
	}
	if (c.NotNull && !inlinePK) || (inlinePK && bare) {
		parts = append(parts, "NOT NULL")
	}
	if c.HasDefault() {
		parts = append(parts, "DEFAULT "+b.defaultValue(c))
	}
	if !bare {
		if c.Unique && !inlinePK {
			parts = append(parts, "UNIQUE")
		}
		for _, ck := range c.Checks {
			parts = append(parts, b.columnCheck(c, ck))
		}
		if ref := c.Reference; ref != nil && !b.info.IsMySQL() {
			parts = append(parts, b.references(ref.Table, []string{ref.Column}, ref.OnDelete, ref.OnUpdate))
		}
	}
	if g := c.Generated; g != nil {
		kind := "STORED"
		if !g.Stored {
			kind = "VIRTUAL"
		}
		parts = append(parts, fmt.Sprintf("GENERATED ALWAYS AS (%s) %s", g.Expr.RenderSQL(b.f), kind))
	}
	if c.Comment != "" && b.info.IsMySQL() && b.withComments() {
		parts = append(parts, "COMMENT "+b.f.Literal(c.Comment))
	}
	return strings.Join(parts, " ")
}

// identity renders the identity or auto-increment clause of a column.
func (b *builder) identity(c *field.Descriptor) string {
	switch {
	case b.info.IsMySQL():
		if c.Identity != nil || c.Autoincrement || c.Family == field.FamilySerial {
			return "AUTO_INCREMENT"
		}
	case b.info.IsPostgres():
		if id := c.Identity; id != nil {
			return identityClause(id)
		}
		if c.Autoincrement && c.Family == field.FamilyInteger {
			return "GENERATED BY DEFAULT AS IDENTITY"
		}
	}
	return ""
}

func identityClause(id *field.Identity) string {
	kind := "BY DEFAULT"
	if id.Always {
		kind = "ALWAYS"
	}
	var opts []string
	if id.Start != 0 {
		opts = append(opts, fmt.Sprintf("START WITH %d", id.Start))
	}
	if id.Increment != 0 {
		opts = append(opts, fmt.Sprintf("INCREMENT BY %d", id.Increment))
	}
	if id.MinValue != 0 {
		opts = append(opts, fmt.Sprintf("MINVALUE %d", id.MinValue))
	}
	if id.MaxValue != 0 {
		opts = append(opts, fmt.Sprintf("MAXVALUE %d", id.MaxValue))
	}
	if id.Cache != 0 {
		opts = append(opts, fmt.Sprintf("CACHE %d", id.Cache))
	}
	if id.Cycle {
		opts = append(opts, "CYCLE")
	}
	clause := "GENERATED " + kind + " AS IDENTITY"
	if len(opts) > 0 {
		clause += " (" + strings.Join(opts, " ") + ")"
	}
	return clause
}

var (
	keywordDefault = regexp.MustCompile(`(?i)^(CURRENT_TIMESTAMP|CURRENT_DATE|CURRENT_TIME|LOCALTIMESTAMP|LOCALTIME|NULL|TRUE|FALSE)(\(\d*\))?$`)
	callDefault    = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.]*\([^()]*\)$`)
)

// defaultExprs translates common Postgres default expressions.
var defaultExprs = map[dialect.Family]map[string]string{
	dialect.FamilyMySQL: {
		"now()":             "CURRENT_TIMESTAMP",
		"gen_random_uuid()": "(UUID())",
	},
	dialect.FamilySQLite: {
		"now()":             "CURRENT_TIMESTAMP",
		"gen_random_uuid()": "(lower(hex(randomblob(16))))",
	},
}

// defaultValue renders a column default. A keyword default is emitted
// bare everywhere, a single function call is emitted bare on the Postgres
// family and any other expression is parenthesized.
func (b *builder) defaultValue(c *field.Descriptor) string {
	raw, ok := c.Default.(sql.RawExpr)
	if !ok {
		return b.f.Literal(c.Default)
	}
	x := strings.TrimSpace(string(raw))
	if t, ok := defaultExprs[b.info.Family][strings.ToLower(x)]; ok {
		return t
	}
	switch {
	case keywordDefault.MatchString(x):
		return x
	case b.info.IsPostgres() && callDefault.MatchString(x):
		return x
	default:
		return "(" + x + ")"
	}
}

func (b *builder) columnCheck(c *field.Descriptor, ck field.Check) string {
	return b.constraint(ck.Name, "CHECK ("+b.checkExpr(c, ck)+")")
}

func (b *builder) checkExpr(c *field.Descriptor, ck field.Check) string {
	if ck.Expr != "" {
		return ck.Expr
	}
	vals := make([]string, len(ck.Values))
	for i, v := range ck.Values {
		vals[i] = b.f.Literal(v)
	}
	op := "IN"
	if ck.Negate {
		op = "NOT IN"
	}
	return fmt.Sprintf("%s %s (%s)", b.f.Ident(c.Column()), op, strings.Join(vals, ", "))
}

func (b *builder) constraint(name, body string) string {
	if name == "" {
		return body
	}
	return "CONSTRAINT " + b.f.Ident(name) + " " + body
}

func (b *builder) idents(columns []string) string {
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = b.f.Ident(c)
	}
	return strings.Join(quoted, ", ")
}

func (b *builder) references(table string, columns []string, onDelete, onUpdate sqlschema.ReferentialAction) string {
	clause := fmt.Sprintf("REFERENCES %s (%s)", b.f.QualifiedIdent(b.t.Schema, table), b.idents(columns))
	if !onDelete.IsDefault() {
		clause += " ON DELETE " + onDelete.String()
	}
	if !onUpdate.IsDefault() {
		clause += " ON UPDATE " + onUpdate.String()
	}
	return clause
}

// deferrable reports whether the dialect accepts DEFERRABLE constraints.
func (b *builder) deferrable() bool {
	switch b.info.Name {
	case dialect.CRDB, dialect.DSQL:
		return false
	}
	return !b.info.IsMySQL()
}

// tableConstraints renders the table-level constraints in the order
// PRIMARY KEY, UNIQUE, CHECK, FOREIGN KEY.
func (b *builder) tableConstraints() []string {
	var defs []string
	if pk := b.t.PrimaryKeyColumns(); len(pk) > 1 {
		defs = append(defs, b.constraint(b.t.PrimaryKeyName, "PRIMARY KEY ("+b.idents(pk)+")"))
	}
	for _, u := range b.t.Uniques {
		defs = append(defs, b.constraint(u.Name, "UNIQUE ("+b.idents(b.t.columnNames(u.Columns))+")"))
	}
	for _, ck := range b.t.Checks {
		defs = append(defs, b.constraint(ck.Name, "CHECK ("+ck.Expr+")"))
	}
	if b.info.IsMySQL() {
		// MySQL parses and ignores column-level REFERENCES.
		for _, c := range b.t.Columns {
			if ref := c.Reference; ref != nil {
				name := fmt.Sprintf("%s_%s_fkey", b.t.Name, c.Column())
				body := "FOREIGN KEY (" + b.f.Ident(c.Column()) + ") " + b.references(ref.Table, []string{ref.Column}, ref.OnDelete, ref.OnUpdate)
				defs = append(defs, b.constraint(name, body))
			}
		}
	}
	for _, fk := range b.t.ForeignKeys {
		defs = append(defs, b.foreignKey(fk))
	}
	return defs
}

func (b *builder) foreignKey(fk *edge.Descriptor) string {
	return b.constraint(fk.StorageKey, b.foreignKeyBody(fk))
}

func (b *builder) foreignKeyBody(fk *edge.Descriptor) string {
	body := "FOREIGN KEY (" + b.idents(b.t.columnNames(fk.Columns)) + ") " +
		b.references(fk.RefTable, fk.RefColumns, fk.OnDelete, fk.OnUpdate)
	if fk.Deferrable && b.deferrable() {
		body += " DEFERRABLE"
		if fk.InitiallyDeferred {
			body += " INITIALLY DEFERRED"
		}
	}
	return body
}

// comments returns the COMMENT ON statements of the Postgres family.
func (b *builder) comments() []string {
	if !b.info.IsPostgres() || !b.withComments() {
		return nil
	}
	var stmts []string
	if c := b.t.Options.Comment; c != "" {
		stmts = append(stmts, fmt.Sprintf("COMMENT ON TABLE %s IS %s", b.tableIdent(), b.f.Literal(c)))
	}
	for _, col := range b.t.Columns {
		if col.Comment != "" {
			stmts = append(stmts, fmt.Sprintf("COMMENT ON COLUMN %s.%s IS %s", b.tableIdent(), b.f.Ident(col.Column()), b.f.Literal(col.Comment)))
		}
	}
	for _, idx := range b.t.Indexes {
		if idx.Comment != "" {
			stmts = append(stmts, fmt.Sprintf("COMMENT ON INDEX %s IS %s", b.f.QualifiedIdent(b.t.Schema, b.indexName(idx)), b.f.Literal(idx.Comment)))
		}
	}
	return stmts
}

// IndexName returns the name of an index: its StorageKey, or a name derived
// from the table and key columns.
func (t *Table) IndexName(idx *index.Descriptor) string {
	if idx.StorageKey != "" {
		return idx.StorageKey
	}
	parts := []string{t.Name}
	for _, c := range idx.Columns {
		if c.Expr != "" {
			parts = append(parts, "expr")
			continue
		}
		parts = append(parts, t.columnName(c.Name))
	}
	if idx.Unique {
		return strings.Join(parts, "_") + "_key"
	}
	return strings.Join(parts, "_") + "_idx"
}

func (b *builder) indexName(idx *index.Descriptor) string { return b.t.IndexName(idx) }

func indexAnnotation(idx *index.Descriptor) sqlschema.IndexAnnotation {
	var ants []sqlschema.IndexAnnotation
	for _, a := range idx.Annotations {
		switch a := a.(type) {
		case sqlschema.IndexAnnotation:
			ants = append(ants, a)
		case *sqlschema.IndexAnnotation:
			ants = append(ants, *a)
		}
	}
	return sqlschema.MergeIndex(ants...)
}

func (b *builder) createIndex(idx *index.Descriptor) (string, error) {
	ant := indexAnnotation(idx)
	method := idx.Method
	if m, ok := ant.TypeFor(b.info.Name); ok {
		method = m
	}
	var s strings.Builder
	s.WriteString("CREATE ")
	if idx.Unique {
		s.WriteString("UNIQUE ")
	}
	s.WriteString("INDEX ")
	if idx.Concurrent && b.info.IsPostgres() {
		s.WriteString("CONCURRENTLY ")
	}
	if b.t.Options.IfNotExists && b.info.Name != dialect.MySQL {
		s.WriteString("IF NOT EXISTS ")
	}
	name := b.indexName(idx)
	if b.info.IsSQLite() && b.t.Schema != "" {
		s.WriteString(b.f.QualifiedIdent(b.t.Schema, name))
	} else {
		s.WriteString(b.f.Ident(name))
	}
	s.WriteString(" ON ")
	if b.info.IsSQLite() {
		s.WriteString(b.f.Ident(b.t.Name))
	} else {
		s.WriteString(b.tableIdent())
	}
	if method != "" && b.info.IsPostgres() {
		s.WriteString(" USING " + method)
	}
	parts := make([]string, len(idx.Columns))
	for i, c := range idx.Columns {
		parts[i] = b.indexPart(c, ant)
	}
	s.WriteString(" (" + strings.Join(parts, ", ") + ")")
	if method != "" && b.info.IsMySQL() {
		s.WriteString(" USING " + strings.ToUpper(method))
	}
	if len(ant.IncludeColumns) > 0 && b.info.IsPostgres() {
		s.WriteString(" INCLUDE (" + b.idents(b.t.columnNames(ant.IncludeColumns)) + ")")
	}
	if ant.StorageParams != "" && b.info.IsPostgres() {
		s.WriteString(" WITH (" + ant.StorageParams + ")")
	}
	if idx.Where != "" {
		if b.info.IsMySQL() {
			return "", b.fail("partial index %q is not supported by %s", name, b.info.Name)
		}
		s.WriteString(" WHERE " + idx.Where)
	}
	if idx.Comment != "" && b.info.IsMySQL() && b.withComments() {
		s.WriteString(" COMMENT " + b.f.Literal(idx.Comment))
	}
	return s.String(), nil
}

func (b *builder) indexPart(c *index.Column, ant sqlschema.IndexAnnotation) string {
	var part string
	if c.Expr != "" {
		part = "(" + c.Expr + ")"
	} else {
		col := b.t.columnName(c.Name)
		part = b.f.Ident(col)
		if n, ok := ant.PrefixColumns[c.Name]; ok && b.info.IsMySQL() {
			part += fmt.Sprintf("(%d)", n)
		}
	}
	if c.Collation != "" {
		if b.info.IsPostgres() {
			part += " COLLATE " + b.f.Ident(c.Collation)
		} else {
			part += " COLLATE " + c.Collation
		}
	}
	if c.OpClass != "" && b.info.IsPostgres() {
		part += " " + c.OpClass
	}
	if c.Direction != index.DirectionUnset {
		part += " " + string(c.Direction)
	}
	if c.Nulls != index.NullsUnset && !b.info.IsMySQL() {
		part += " NULLS " + string(c.Nulls)
	}
	return part
}

// UniqueColumnSets returns the physical column sets covered by a unique
// column, unique constraint or unique index.
func (t *Table) UniqueColumnSets() [][]string {
	var sets [][]string
	for _, c := range t.Columns {
		if c.Unique {
			sets = append(sets, []string{c.Column()})
		}
	}
	for _, u := range t.Uniques {
		sets = append(sets, t.columnNames(u.Columns))
	}
	for _, idx := range t.Indexes {
		if idx.Unique && len(idx.Fields) == len(idx.Columns) {
			sets = append(sets, t.columnNames(idx.Fields))
		}
	}
	return sets
}
