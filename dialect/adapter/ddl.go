package adapter

import (
	"slices"
	"strings"

	"github.com/syssam/dbkit"
	"github.com/syssam/dbkit/dialect"
	"github.com/syssam/dbkit/schema"
	"github.com/syssam/dbkit/schema/field"
	"github.com/syssam/dbkit/schema/index"
)

// columnChange is a column present in both tables whose definition differs.
type columnChange struct {
	from, to  *field.Descriptor
	typ       bool
	null      bool
	def       bool
	toDefault string
}

// tableDiff holds the differences between two versions of a table.
type tableDiff struct {
	added      []*field.Descriptor
	dropped    []*field.Descriptor
	modified   []columnChange
	addedIdx   []*index.Descriptor
	droppedIdx []*index.Descriptor
	// addedCons and droppedCons exclude the constraints carried by ADD
	// COLUMN and DROP COLUMN; inlineCons holds those of ADD COLUMN.
	addedCons   []schema.ConstraintDef
	droppedCons []schema.ConstraintDef
	inlineCons  []schema.ConstraintDef
}

func (d *tableDiff) empty() bool {
	return len(d.added)+len(d.dropped)+len(d.modified)+len(d.addedIdx)+len(d.droppedIdx)+
		len(d.addedCons)+len(d.droppedCons) == 0
}

func nullable(t *schema.Table, c *field.Descriptor) bool {
	return !c.NotNull && !c.PrimaryKey && !slices.Contains(t.PrimaryKeyColumns(), c.Column())
}

func (c *core) diff(from, to *schema.Table) (*tableDiff, error) {
	d := &tableDiff{}
	for _, fc := range from.Columns {
		if _, ok := to.Column(fc.Column()); !ok {
			d.dropped = append(d.dropped, fc)
		}
	}
	for _, tc := range to.Columns {
		fc, ok := from.Column(tc.Column())
		if !ok {
			d.added = append(d.added, tc)
			continue
		}
		fromDef, err := from.DefaultSQL(c.info.Name, fc.Column())
		if err != nil {
			return nil, err
		}
		toDef, err := to.DefaultSQL(c.info.Name, tc.Column())
		if err != nil {
			return nil, err
		}
		ch := columnChange{
			from:      fc,
			to:        tc,
			typ:       !strings.EqualFold(fc.TypeFor(c.info.Name), tc.TypeFor(c.info.Name)),
			null:      nullable(from, fc) != nullable(to, tc),
			def:       fromDef != toDef,
			toDefault: toDef,
		}
		if ch.typ || ch.null || ch.def {
			d.modified = append(d.modified, ch)
		}
	}
	fromIdx, err := c.indexes(from)
	if err != nil {
		return nil, err
	}
	toIdx, err := c.indexes(to)
	if err != nil {
		return nil, err
	}
	for _, idx := range from.Indexes {
		if def, ok := toIdx[from.IndexName(idx)]; !ok || def != fromIdx[from.IndexName(idx)] {
			d.droppedIdx = append(d.droppedIdx, idx)
		}
	}
	for _, idx := range to.Indexes {
		if def, ok := fromIdx[to.IndexName(idx)]; !ok || def != toIdx[to.IndexName(idx)] {
			d.addedIdx = append(d.addedIdx, idx)
		}
	}
	if err := c.diffConstraints(from, to, d); err != nil {
		return nil, err
	}
	return d, nil
}

// diffConstraints compares the constraints of both tables by name. A
// constraint whose definition changed is dropped and added again.
func (c *core) diffConstraints(from, to *schema.Table, d *tableDiff) error {
	fromCons, err := from.ConstraintDefs(c.info.Name)
	if err != nil {
		return err
	}
	toCons, err := to.ConstraintDefs(c.info.Name)
	if err != nil {
		return err
	}
	byName := func(cs []schema.ConstraintDef) map[string]schema.ConstraintDef {
		m := make(map[string]schema.ConstraintDef, len(cs))
		for _, con := range cs {
			m[con.Name] = con
		}
		return m
	}
	fromBy, toBy := byName(fromCons), byName(toCons)
	same := func(a, b schema.ConstraintDef) bool { return a.Kind == b.Kind && a.Body == b.Body }
	within := func(cols []string, ds []*field.Descriptor) bool {
		return len(cols) > 0 && !slices.ContainsFunc(cols, func(col string) bool {
			return !slices.ContainsFunc(ds, func(d *field.Descriptor) bool { return d.Column() == col })
		})
	}
	for _, fc := range fromCons {
		if tc, ok := toBy[fc.Name]; ok && same(fc, tc) {
			continue
		}
		// MySQL refuses to drop a column used by a foreign key.
		if within(fc.Columns, d.dropped) && !(c.info.IsMySQL() && fc.Kind == schema.ConstraintForeignKey) {
			continue
		}
		d.droppedCons = append(d.droppedCons, fc)
	}
	for _, tc := range toCons {
		if fc, ok := fromBy[tc.Name]; ok && same(fc, tc) {
			continue
		}
		if tc.Inline && within(tc.Columns, d.added) {
			d.inlineCons = append(d.inlineCons, tc)
			continue
		}
		d.addedCons = append(d.addedCons, tc)
	}
	return nil
}

// indexes returns the CREATE INDEX statements of a table keyed by index
// name.
func (c *core) indexes(t *schema.Table) (map[string]string, error) {
	m := make(map[string]string, len(t.Indexes))
	for _, idx := range t.Indexes {
		s, err := t.IndexSQL(c.info.Name, idx)
		if err != nil {
			return nil, err
		}
		m[t.IndexName(idx)] = s
	}
	return m, nil
}

func (c *core) tableIdent(t *schema.Table) string {
	return c.f.QualifiedIdent(t.Schema, t.Name)
}

func columnRef(t *schema.Table, d *field.Descriptor) string {
	return t.Name + "." + d.Column()
}

// GenerateCreateTable returns the CREATE TABLE statement, the comment
// statements of the Postgres family and the CREATE INDEX statements.
func (c *core) GenerateCreateTable(t *schema.Table) ([]Statement, error) {
	if t == nil {
		return nil, dbkit.NewInvalidArgumentError("adapter.GenerateCreateTable", "table", "table is required")
	}
	all, err := t.Statements(c.info.Name)
	if err != nil {
		return nil, err
	}
	stmts := make([]Statement, 0, len(all))
	stmts = append(stmts, Statement{SQL: all[0], Type: StatementCreate, Affects: []string{t.Name}})
	comments := all[1 : len(all)-len(t.Indexes)]
	for _, s := range comments {
		stmts = append(stmts, Statement{SQL: s, Type: StatementAlter, Affects: []string{t.Name}})
	}
	for i, idx := range t.Indexes {
		stmts = append(stmts, Statement{
			SQL:     all[len(all)-len(t.Indexes)+i],
			Type:    StatementCreate,
			Affects: []string{t.Name, t.IndexName(idx)},
		})
	}
	return stmts, nil
}

// GenerateCreateIndex returns the CREATE INDEX statement of an index of t.
func (c *core) GenerateCreateIndex(t *schema.Table, idx *index.Descriptor) (Statement, error) {
	if t == nil || idx == nil {
		return Statement{}, dbkit.NewInvalidArgumentError("adapter.GenerateCreateIndex", "index", "table and index are required")
	}
	s, err := t.IndexSQL(c.info.Name, idx)
	if err != nil {
		return Statement{}, err
	}
	return Statement{SQL: s, Type: StatementCreate, Affects: []string{t.Name, t.IndexName(idx)}}, nil
}

// GenerateAlterTable diffs two versions of a table. Columns only in to
// are added, columns only in from are dropped (destructive) and columns
// whose type, nullability or default differ are modified (destructive
// iff the type changed). Changed indexes are dropped and recreated, and
// so are changed primary key, unique, check and foreign key constraints.
// Unnamed constraints are matched by the name the database gives them.
func (c *core) GenerateAlterTable(from, to *schema.Table) ([]Statement, error) {
	if from == nil || to == nil {
		return nil, dbkit.NewInvalidArgumentError("adapter.GenerateAlterTable", "table", "both tables are required")
	}
	if from.Name != to.Name || from.Schema != to.Schema {
		return nil, dbkit.NewInvalidArgumentError("adapter.GenerateAlterTable", to.Name, "table "+from.Name+" cannot be altered into a differently named table")
	}
	d, err := c.diff(from, to)
	if err != nil {
		return nil, err
	}
	if d.empty() {
		return []Statement{}, nil
	}
	return c.ops.alterTable(from, to, d)
}

// alterInPlace emits the diff as ALTER TABLE statements in the order: drop
// constraints, drop indexes, add columns, modify columns, drop columns,
// create indexes, add constraints.
func (c *core) alterInPlace(from, to *schema.Table, d *tableDiff, modify func(*schema.Table, columnChange) (Statement, error)) ([]Statement, error) {
	var stmts []Statement
	// CockroachDB swaps the primary key in one statement.
	alterPK := c.info.Name == dialect.CRDB && slices.ContainsFunc(d.addedCons, isPK)
	for _, k := range dropOrder {
		for _, con := range d.droppedCons {
			if con.Kind == k && !(alterPK && isPK(con)) {
				stmts = append(stmts, c.dropConstraint(from, con))
			}
		}
	}
	for _, idx := range d.droppedIdx {
		stmts = append(stmts, c.dropIndex(from, idx))
	}
	table := c.tableIdent(to)
	for _, col := range d.added {
		def, err := to.ColumnSQL(c.info.Name, col.Column())
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, Statement{
			SQL:     "ALTER TABLE " + table + " ADD COLUMN " + def,
			Type:    StatementAlter,
			Affects: []string{columnRef(to, col)},
		})
	}
	for _, ch := range d.modified {
		s, err := modify(to, ch)
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, s)
	}
	for _, col := range d.dropped {
		stmts = append(stmts, Statement{
			SQL:         "ALTER TABLE " + table + " DROP COLUMN " + c.f.Ident(col.Column()),
			Type:        StatementAlter,
			Destructive: true,
			Affects:     []string{columnRef(from, col)},
		})
	}
	for _, idx := range d.addedIdx {
		s, err := c.GenerateCreateIndex(to, idx)
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, s)
	}
	for _, k := range addOrder {
		for _, con := range d.addedCons {
			if con.Kind == k {
				stmts = append(stmts, c.addConstraint(to, con, alterPK))
			}
		}
	}
	return stmts, nil
}

var (
	dropOrder = []schema.ConstraintKind{schema.ConstraintForeignKey, schema.ConstraintCheck, schema.ConstraintUnique, schema.ConstraintPrimaryKey}
	addOrder  = []schema.ConstraintKind{schema.ConstraintPrimaryKey, schema.ConstraintUnique, schema.ConstraintCheck, schema.ConstraintForeignKey}
)

func isPK(c schema.ConstraintDef) bool { return c.Kind == schema.ConstraintPrimaryKey }

func (c *core) dropConstraint(t *schema.Table, con schema.ConstraintDef) Statement {
	action := "DROP CONSTRAINT " + c.f.Ident(con.Name)
	if c.info.IsMySQL() {
		switch con.Kind {
		case schema.ConstraintPrimaryKey:
			action = "DROP PRIMARY KEY"
		case schema.ConstraintUnique:
			action = "DROP INDEX " + c.f.Ident(con.Name)
		case schema.ConstraintForeignKey:
			action = "DROP FOREIGN KEY " + c.f.Ident(con.Name)
		case schema.ConstraintCheck:
			if c.info.Name == dialect.MySQL {
				action = "DROP CHECK " + c.f.Ident(con.Name)
			}
		}
	}
	return Statement{
		SQL:     "ALTER TABLE " + c.tableIdent(t) + " " + action,
		Type:    StatementDrop,
		Affects: []string{t.Name, con.Name},
	}
}

func (c *core) addConstraint(t *schema.Table, con schema.ConstraintDef, alterPK bool) Statement {
	action := "ADD " + con.Def(c.f.Ident)
	switch {
	case isPK(con) && alterPK:
		action = "ALTER PRIMARY KEY USING COLUMNS (" + strings.TrimPrefix(con.Body, "PRIMARY KEY (")
	case isPK(con) && c.info.IsMySQL():
		action = "ADD " + con.Body
	}
	return Statement{
		SQL:     "ALTER TABLE " + c.tableIdent(t) + " " + action,
		Type:    StatementAlter,
		Affects: []string{t.Name, con.Name},
	}
}

func (c *core) dropIndex(t *schema.Table, idx *index.Descriptor) Statement {
	name := t.IndexName(idx)
	s := "DROP INDEX " + c.f.QualifiedIdent(t.Schema, name)
	if c.info.IsMySQL() {
		s = "DROP INDEX " + c.f.Ident(name) + " ON " + c.tableIdent(t)
	}
	return Statement{SQL: s, Type: StatementDrop, Affects: []string{t.Name, name}}
}

// GenerateDropTable returns the DROP TABLE statement of a table.
func (c *core) GenerateDropTable(table string, opts DropOptions) Statement {
	var b strings.Builder
	b.WriteString("DROP TABLE ")
	if opts.IfExists {
		b.WriteString("IF EXISTS ")
	}
	b.WriteString(c.f.QualifiedIdent(strings.Split(table, ".")...))
	if opts.Cascade && c.info.IsPostgres() {
		b.WriteString(" CASCADE")
	}
	return Statement{SQL: b.String(), Type: StatementDrop, Destructive: true, Affects: []string{table}}
}

func (c *core) GetMigrationTableDDL(table string) (string, error) {
	if table == "" {
		table = DefaultMigrationTable
	}
	t, err := c.ops.migrationTable(table)
	if err != nil {
		return "", err
	}
	return t.ToSQL(c.info.Name)
}

// migrationColumns are the columns of the migration history table after
// its key. Aurora DSQL has no JSON column type and stores metadata as text.
func migrationColumns() []field.Builder {
	return []field.Builder{
		field.Varchar("name", 255).NotNull(),
		field.Varchar("filename", 255).NotNull(),
		field.Varchar("hash", 64).NotNull(),
		field.Integer("batch").NotNull(),
		field.Timestamptz("applied_at").NotNull().Default(field.Now()),
		field.Integer("execution_time_ms").NotNull().Default(0),
		field.JSON("metadata").SchemaType(map[string]string{dialect.DSQL: "TEXT"}),
		field.Text("sql_up"),
		field.Text("sql_down"),
		field.Varchar("source", 32),
	}
}
