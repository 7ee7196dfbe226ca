package compat

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/auxten/postgresql-parser/pkg/sql/parser"

	"github.com/syssam/dbkit/dialect"
	dbschema "github.com/syssam/dbkit/schema"
	"github.com/syssam/dbkit/schema/field"
)

// Validator applies a catalog to schemas and raw SQL. It is stateless and
// safe for concurrent use.
type Validator struct {
	dialect  string
	catalog  *Catalog
	disabled map[string]bool
}

// Option configures a Validator.
type Option func(*Validator)

// WithCatalog replaces the built-in catalog of the dialect.
func WithCatalog(c *Catalog) Option {
	return func(v *Validator) {
		v.catalog = c
	}
}

// Disable suppresses the diagnostics of the given rule codes.
func Disable(codes ...string) Option {
	return func(v *Validator) {
		for _, c := range codes {
			v.disabled[c] = true
		}
	}
}

// NewValidator returns a validator for the dialect. Dialects without a
// built-in catalog validate everything as compatible.
func NewValidator(dialectName string, opts ...Option) *Validator {
	name, ok := dialect.Normalize(dialectName)
	if !ok {
		name = dialectName
	}
	v := &Validator{dialect: name, disabled: make(map[string]bool)}
	if c, ok := CatalogFor(name); ok {
		v.catalog = c
	}
	for _, opt := range opts {
		opt(v)
	}
	if v.catalog == nil {
		v.catalog = NewCatalog(name)
	}
	return v
}

// Dialect returns the dialect name of the validator.
func (v *Validator) Dialect() string { return v.dialect }

// Catalog returns the catalog in use.
func (v *Validator) Catalog() *Catalog { return v.catalog }

// run collects the diagnostics of one validation.
type run struct {
	v    *Validator
	res  *Result
	seen map[string]bool
}

func (v *Validator) newRun() *run {
	return &run{v: v, res: newResult(v.dialect), seen: make(map[string]bool)}
}

// emit instantiates the rule with the code at loc. Unknown or disabled
// codes, and repeated findings, are dropped.
func (r *run) emit(code string, loc Location, detected string) {
	if code == "" || r.v.disabled[code] {
		return
	}
	rule, ok := r.v.catalog.Lookup(code)
	if !ok {
		return
	}
	key := fmt.Sprintf("%s|%+v|%s", code, loc, detected)
	if r.seen[key] {
		return
	}
	r.seen[key] = true
	r.res.add(rule.Instantiate(loc, detected))
}

func (r *run) feature(f Feature, loc Location, detected string) {
	r.emit(r.v.catalog.features[f], loc, detected)
}

// Validate checks a schema bundle.
func (v *Validator) Validate(b *dbschema.Bundle) *Result {
	r := v.newRun()
	classes := r.classify(b)
	for _, t := range b.Tables {
		r.table(t)
		r.tenancy(t, classes)
	}
	r.objects(b)
	return r.res
}

// ValidateTable checks a single table.
func (v *Validator) ValidateTable(t *dbschema.Table) *Result {
	return v.Validate(dbschema.NewBundle(t))
}

// ValidateSQL scans raw SQL. Locations carry the line of each finding;
// loc supplies the context, such as the migration or function name.
func (v *Validator) ValidateSQL(sql string, loc Location) *Result {
	r := v.newRun()
	r.scan(sql, loc)
	return r.res
}

func (r *run) table(t *dbschema.Table) {
	loc := Location{Table: t.Name}
	switch {
	case t.Options.Temporary:
		r.feature(FeatureTemporary, loc, "TEMPORARY")
	case t.Options.Unlogged:
		r.feature(FeatureUnlogged, loc, "UNLOGGED")
	}
	switch {
	case t.Partition != nil:
		r.feature(FeaturePartition, loc, "PARTITION BY "+strings.ToUpper(string(t.Partition.Strategy)))
	case t.PartitionOf != nil:
		r.feature(FeaturePartition, loc, "PARTITION OF "+t.PartitionOf.Parent)
	}
	for _, c := range t.Columns {
		r.column(t, c)
	}
	for _, fk := range t.ForeignKeys {
		floc := Location{Table: t.Name, Constraint: fk.StorageKey}
		r.feature(FeatureForeignKey, floc, "REFERENCES "+fk.RefTable)
		if fk.Deferrable {
			r.feature(FeatureDeferrable, floc, "DEFERRABLE")
		}
	}
	for _, idx := range t.Indexes {
		iloc := Location{Table: t.Name, Index: t.IndexName(idx)}
		if m := strings.ToLower(idx.Method); m != "" {
			r.emit(r.v.catalog.methods[m], iloc, m)
		}
		if idx.Where != "" {
			r.feature(FeaturePartialIndex, iloc, "WHERE "+idx.Where)
		}
		for _, ic := range idx.Columns {
			if ic.Expr != "" {
				r.feature(FeatureExpressionIndex, iloc, ic.Expr)
				break
			}
		}
	}
}

func (r *run) column(t *dbschema.Table, d *field.Descriptor) {
	loc := Location{Table: t.Name, Column: d.Column()}
	detected := d.SQLType()
	if code := r.typeCode(d); code != "" {
		r.emit(code, loc, detected)
	}
	if d.Identity != nil {
		r.feature(FeatureIdentity, loc, "GENERATED AS IDENTITY")
	}
	if d.DefaultIsExpr() {
		if expr := fmt.Sprint(d.Default); strings.Contains(strings.ToLower(expr), "nextval(") {
			r.feature(FeatureSequence, loc, expr)
		}
	}
	if ref := d.Reference; ref != nil {
		r.feature(FeatureForeignKey, loc, "REFERENCES "+ref.Table)
	}
}

// typeCode returns the rule code of the column type, if any. Arrays are
// checked first, then the type token, then the type family.
func (r *run) typeCode(d *field.Descriptor) string {
	c := r.v.catalog
	switch {
	case d.ArrayDims > 1 && c.features[FeatureNestedArray] != "":
		return c.features[FeatureNestedArray]
	case d.ArrayDims > 0 && c.features[FeatureArray] != "":
		return c.features[FeatureArray]
	}
	token := strings.ToUpper(d.Type)
	if d.Timezone {
		token += " WITH TIME ZONE"
	}
	if code, ok := c.tokens[token]; ok {
		return code
	}
	return c.families[d.Family]
}

func (r *run) objects(b *dbschema.Bundle) {
	for _, e := range b.Enums {
		r.feature(FeatureEnum, Location{Object: e.Name}, "ENUM")
	}
	for _, d := range b.Domains {
		r.feature(FeatureDomain, Location{Object: d.Name}, "DOMAIN "+d.BaseType)
	}
	for _, ct := range b.Composites {
		r.feature(FeatureComposite, Location{Object: ct.Name}, "COMPOSITE")
	}
	for _, s := range b.Sequences {
		r.feature(FeatureSequence, Location{Object: s.Name}, "SEQUENCE "+s.Name)
	}
	for _, e := range b.Extensions {
		r.feature(FeatureExtension, Location{Object: e.Name}, e.Name)
	}
	for _, coll := range b.Collations {
		r.feature(FeatureCollation, Location{Object: coll}, coll)
	}
	for _, tr := range b.Triggers {
		r.feature(FeatureTrigger, Location{Table: tr.Table, Object: tr.Name}, "TRIGGER "+tr.Name)
	}
	c := r.v.catalog
	for _, fn := range b.Functions {
		loc := Location{Object: fn.Name}
		lang := strings.ToLower(fn.Language)
		if lang == "" {
			lang = "plpgsql"
		}
		if code, ok := c.langs[lang]; ok {
			r.emit(code, loc, "LANGUAGE "+lang)
		} else if c.languages != nil && !c.languages[lang] {
			r.feature(FeatureLanguage, loc, "LANGUAGE "+lang)
		}
		if fn.Body != "" {
			r.scanRules(fn.Body, loc)
		}
	}
}

// classify returns the tenancy class of the tables of b.
func (r *run) classify(b *dbschema.Bundle) map[string]tableClass {
	t := r.v.catalog.tenancy
	if t == nil {
		return nil
	}
	classes := make(map[string]tableClass, len(b.Tables))
	for _, tbl := range b.Tables {
		classes[tbl.Name] = t.classify(tbl)
	}
	return classes
}

type tableClass int

const (
	classShared tableClass = iota
	classTenant
	classBuiltin
)

func (t *Tenancy) classify(tbl *dbschema.Table) tableClass {
	if slices.Contains(t.Builtin, tbl.Name) {
		return classBuiltin
	}
	if t.isKey(tbl) {
		return classTenant
	}
	return classShared
}

// isKey reports whether the table has a UUID NOT NULL tenant column.
func (t *Tenancy) isKey(tbl *dbschema.Table) bool {
	c, ok := tbl.Column(t.Column)
	return ok && c.Family == field.FamilyUUID && c.ArrayDims == 0 && (c.NotNull || c.PrimaryKey || slices.Contains(tbl.PrimaryKeyColumns(), c.Column()))
}

// classOf classifies a referenced table that may be outside the bundle.
// Unknown tables are taken as shared.
func (r *run) classOf(name string, classes map[string]tableClass) tableClass {
	if cl, ok := classes[name]; ok {
		return cl
	}
	if slices.Contains(r.v.catalog.tenancy.Builtin, name) {
		return classBuiltin
	}
	return classShared
}

func (r *run) tenancy(t *dbschema.Table, classes map[string]tableClass) {
	ten := r.v.catalog.tenancy
	if ten == nil {
		return
	}
	loc := Location{Table: t.Name}
	switch classes[t.Name] {
	case classBuiltin:
		r.emit("NILE-BT-001", loc, t.Name)
		return
	case classShared:
		if c, ok := t.Column(ten.Column); ok {
			r.emit("NILE-TC-003", Location{Table: t.Name, Column: c.Column()}, tenantColumnType(c))
		}
		r.emit("NILE-TC-002", loc, "")
	case classTenant:
		r.emit("NILE-TC-001", loc, "")
		pk := t.PrimaryKeyColumns()
		switch i := slices.Index(pk, ten.Column); {
		case i < 0:
			r.emit("NILE-PK-001", Location{Table: t.Name, Constraint: t.PrimaryKeyName}, strings.Join(pk, ", "))
		case i > 0:
			r.emit("NILE-PK-002", Location{Table: t.Name, Constraint: t.PrimaryKeyName}, strings.Join(pk, ", "))
		}
		for _, cs := range t.Constraints() {
			if cs.Kind == dbschema.ConstraintUnique && !slices.Contains(cs.Columns, ten.Column) {
				r.emit("NILE-UQ-001", Location{Table: t.Name, Constraint: constraintName(cs.Name, cs.Columns)}, strings.Join(cs.Columns, ", "))
			}
		}
		for _, idx := range t.Indexes {
			if !idx.Unique {
				continue
			}
			var cols []string
			for _, ic := range idx.Columns {
				cols = append(cols, ic.Name)
			}
			if !slices.Contains(cols, ten.Column) && !slices.Contains(idx.Fields, ten.Column) {
				r.emit("NILE-UQ-001", Location{Table: t.Name, Constraint: t.IndexName(idx)}, strings.Join(cols, ", "))
			}
		}
	}
	for _, cs := range t.Constraints() {
		if cs.Kind != dbschema.ConstraintForeignKey || cs.RefTable == t.Name {
			continue
		}
		ref := r.classOf(cs.RefTable, classes)
		floc := Location{Table: t.Name, Constraint: constraintName(cs.Name, cs.Columns)}
		switch from := classes[t.Name]; {
		case ref == classBuiltin:
		case from == classShared && ref == classTenant:
			r.emit("NILE-FK-001", floc, cs.RefTable)
		case from == classTenant && ref == classShared:
			r.emit("NILE-FK-002", floc, cs.RefTable)
		case from == classTenant && ref == classTenant:
			if !slices.Contains(cs.Columns, ten.Column) || !slices.Contains(cs.RefColumns, ten.Column) {
				r.emit("NILE-FK-003", floc, cs.RefTable)
			}
		}
	}
}

func tenantColumnType(c *field.Descriptor) string {
	s := c.SQLType()
	if !c.NotNull {
		s += " NULL"
	}
	return s
}

func constraintName(name string, columns []string) string {
	if name != "" {
		return name
	}
	return "(" + strings.Join(columns, ", ") + ")"
}

var (
	lineComment  = regexp.MustCompile(`--[^\n]*`)
	blockComment = regexp.MustCompile(`(?s)/\*.*?\*/`)
	createTable  = regexp.MustCompile(`(?i)\bCREATE\s+(?:(?:GLOBAL|LOCAL)\s+)?(?:TEMP(?:ORARY)?\s+|UNLOGGED\s+)?TABLE\s+(?:IF\s+NOT\s+EXISTS\s+)?([\w."]+)\s*\(`)
	addColumn    = regexp.MustCompile(`(?i)\bALTER\s+TABLE\s+(?:IF\s+EXISTS\s+)?(?:ONLY\s+)?([\w."]+)\s+ADD\s+(?:COLUMN\s+)?(?:IF\s+NOT\s+EXISTS\s+)?([\w"]+)\s+([^,;]+)`)
	nonColumns   = []string{"CONSTRAINT", "PRIMARY", "UNIQUE", "CHECK", "FOREIGN", "EXCLUDE", "LIKE", "INDEX", "KEY"}
)

// stripComments blanks out comments, keeping newlines so line numbers
// stay stable.
func stripComments(sql string) string {
	blank := func(s string) string {
		return strings.Map(func(r rune) rune {
			if r == '\n' {
				return r
			}
			return ' '
		}, s)
	}
	sql = blockComment.ReplaceAllStringFunc(sql, blank)
	return lineComment.ReplaceAllStringFunc(sql, blank)
}

func lineOf(sql string, offset int) int {
	return 1 + strings.Count(sql[:offset], "\n")
}

func (r *run) scan(sql string, loc Location) {
	sql = stripComments(sql)
	r.scanColumns(sql, loc)
	r.scanRules(sql, loc)
	if code := r.v.catalog.grammar; code != "" && strings.TrimSpace(sql) != "" {
		if _, err := parser.Parse(sql); err != nil {
			msg, _, _ := strings.Cut(err.Error(), "\n")
			r.emit(code, loc, msg)
		}
	}
}

// scanRules runs the SQL feature rules. Each rule is reported once, with
// the longest match as the detected literal.
func (r *run) scanRules(sql string, loc Location) {
	for _, rule := range r.v.catalog.sql {
		var (
			best  string
			start = -1
		)
		for _, m := range rule.pattern.FindAllStringIndex(sql, -1) {
			text := strings.TrimSpace(sql[m[0]:m[1]])
			if rule.except != nil && rule.except.MatchString(text) {
				continue
			}
			if len(text) > len(best) {
				best, start = text, m[0]
			}
		}
		if start < 0 {
			continue
		}
		l := loc
		l.Line = lineOf(sql, start) + max(loc.Line-1, 0)
		r.emit(rule.code, l, best)
	}
}

// columnDecl is a column declaration found in raw DDL.
type columnDecl struct {
	table, name, rest string
	offset            int
}

// scanColumns applies the type rules to the column declarations of
// CREATE TABLE and ALTER TABLE ... ADD COLUMN statements.
func (r *run) scanColumns(sql string, loc Location) {
	if len(r.v.catalog.types) == 0 {
		return
	}
	for _, decl := range columnDecls(sql) {
		for _, tr := range r.v.catalog.types {
			m := tr.pattern.FindString(decl.rest)
			if m == "" {
				continue
			}
			l := loc
			l.Table, l.Column = decl.table, decl.name
			l.Line = lineOf(sql, decl.offset) + max(loc.Line-1, 0)
			r.emit(tr.code, l, strings.TrimSpace(m))
			break
		}
	}
}

func columnDecls(sql string) []columnDecl {
	var decls []columnDecl
	for _, m := range createTable.FindAllStringSubmatchIndex(sql, -1) {
		table := unquoteName(sql[m[2]:m[3]])
		open := m[1] - 1
		end := matchParen(sql, open)
		if end < 0 {
			continue
		}
		offset := open + 1
		for _, item := range splitTop(sql[open+1 : end]) {
			if d, ok := parseColumnDecl(table, item); ok {
				d.offset = offset + leadingSpace(item)
				decls = append(decls, d)
			}
			offset += len(item) + 1
		}
	}
	for _, m := range addColumn.FindAllStringSubmatchIndex(sql, -1) {
		name := sql[m[4]:m[5]]
		if slices.Contains(nonColumns, strings.ToUpper(name)) {
			continue
		}
		decls = append(decls, columnDecl{
			table:  unquoteName(sql[m[2]:m[3]]),
			name:   unquoteName(name),
			rest:   strings.TrimSpace(sql[m[6]:m[7]]),
			offset: m[4],
		})
	}
	return decls
}

func parseColumnDecl(table, item string) (columnDecl, bool) {
	item = strings.TrimSpace(item)
	if item == "" {
		return columnDecl{}, false
	}
	var name, rest string
	switch q := item[0]; q {
	case '"', '`':
		end := strings.IndexByte(item[1:], q)
		if end < 0 {
			return columnDecl{}, false
		}
		name, rest = item[1:end+1], item[end+2:]
	default:
		name, rest, _ = strings.Cut(item, " ")
		if i := strings.IndexAny(name, "\t\n\r"); i >= 0 {
			name, rest = item[:i], item[i:]
		}
		if slices.Contains(nonColumns, strings.ToUpper(name)) {
			return columnDecl{}, false
		}
	}
	return columnDecl{table: table, name: name, rest: strings.TrimSpace(rest)}, true
}

// matchParen returns the index of the parenthesis closing the one at
// open, skipping quoted text, or -1.
func matchParen(s string, open int) int {
	depth := 0
	var quote byte
	for i := open; i < len(s); i++ {
		ch := s[i]
		switch {
		case quote != 0:
			if ch == quote {
				quote = 0
			}
		case ch == '\'' || ch == '"' || ch == '`':
			quote = ch
		case ch == '(':
			depth++
		case ch == ')':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// splitTop splits s at commas outside parentheses and quotes.
func splitTop(s string) []string {
	var (
		parts []string
		depth int
		quote byte
		last  int
	)
	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch {
		case quote != 0:
			if ch == quote {
				quote = 0
			}
		case ch == '\'' || ch == '"' || ch == '`':
			quote = ch
		case ch == '(':
			depth++
		case ch == ')':
			depth--
		case ch == ',' && depth == 0:
			parts = append(parts, s[last:i])
			last = i + 1
		}
	}
	return append(parts, s[last:])
}

func leadingSpace(s string) int {
	return len(s) - len(strings.TrimLeft(s, " \t\r\n"))
}

// unquoteName returns the last segment of a possibly qualified and quoted
// name.
func unquoteName(s string) string {
	if i := strings.LastIndexByte(s, '.'); i >= 0 {
		s = s[i+1:]
	}
	return strings.Trim(s, "\"`")
}
