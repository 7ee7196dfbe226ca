package schema

import (
	"fmt"
	"slices"
	"strings"

	dbschema "github.com/syssam/dbkit/schema"
	"github.com/syssam/dbkit/schema/field"
	"github.com/syssam/dbkit/schema/index"
)

// ValidationError is a structural problem found by comparing or checking
// table models.
type ValidationError struct {
	Table   string
	Column  string
	Message string
	// Breaking indicates if this is a breaking change.
	Breaking bool
}

func (e *ValidationError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("%s.%s: %s", e.Table, e.Column, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Table, e.Message)
}

// ValidationResult holds the findings of a validation. Errors block a
// migration, warnings need review.
type ValidationResult struct {
	Errors   []*ValidationError
	Warnings []*ValidationError
}

// HasErrors reports whether any error was found.
func (r *ValidationResult) HasErrors() bool { return len(r.Errors) > 0 }

// HasWarnings reports whether any warning was found.
func (r *ValidationResult) HasWarnings() bool { return len(r.Warnings) > 0 }

// HasBreakingChanges reports whether an error or warning is breaking.
func (r *ValidationResult) HasBreakingChanges() bool {
	breaking := func(e *ValidationError) bool { return e.Breaking }
	return slices.ContainsFunc(r.Errors, breaking) || slices.ContainsFunc(r.Warnings, breaking)
}

func (r *ValidationResult) String() string {
	if !r.HasErrors() && !r.HasWarnings() {
		return "No issues found"
	}
	var b strings.Builder
	for _, sec := range []struct {
		title string
		list  []*ValidationError
	}{{"Errors", r.Errors}, {"Warnings", r.Warnings}} {
		if len(sec.list) == 0 {
			continue
		}
		fmt.Fprintf(&b, "%s:\n", sec.title)
		for _, e := range sec.list {
			tag := ""
			if e.Breaking {
				tag = " [BREAKING]"
			}
			fmt.Fprintf(&b, "  - %s%s\n", e, tag)
		}
	}
	return b.String()
}

// ValidateOption relaxes ValidateDiff.
type ValidateOption func(*validateConfig)

type validateConfig struct {
	dropColumn, dropTable, dropIndex, nullToNotNull bool
}

// AllowDropColumn reports dropped columns as warnings.
func AllowDropColumn() ValidateOption {
	return func(c *validateConfig) { c.dropColumn = true }
}

// AllowDropTable reports dropped tables as warnings.
func AllowDropTable() ValidateOption {
	return func(c *validateConfig) { c.dropTable = true }
}

// AllowDropIndex reports dropped indexes as warnings.
func AllowDropIndex() ValidateOption {
	return func(c *validateConfig) { c.dropIndex = true }
}

// AllowNullToNotNull reports nullable columns becoming NOT NULL as
// warnings.
func AllowNullToNotNull() ValidateOption {
	return func(c *validateConfig) { c.nullToNotNull = true }
}

// add records err as a warning when allowed, as an error otherwise.
func (r *ValidationResult) add(err *ValidationError, allowed bool) {
	if allowed {
		r.Warnings = append(r.Warnings, err)
		return
	}
	r.Errors = append(r.Errors, err)
}

func (r *ValidationResult) warn(table, column, format string, args ...any) {
	r.Warnings = append(r.Warnings, &ValidationError{Table: table, Column: column, Message: fmt.Sprintf(format, args...)})
}

func (r *ValidationResult) fail(table, column, format string, args ...any) {
	r.Errors = append(r.Errors, &ValidationError{Table: table, Column: column, Message: fmt.Sprintf(format, args...)})
}

func (r *ValidationResult) merge(other *ValidationResult) {
	r.Errors = append(r.Errors, other.Errors...)
	r.Warnings = append(r.Warnings, other.Warnings...)
}

// ValidateDiff validates the change from the current tables, typically
// introspected, to the desired tables. Breaking changes are errors unless
// allowed by an option; risky changes are warnings.
//
//	current, _ := insp.Inspect(ctx)
//	result := schema.ValidateDiff(current.Tables, desired.Tables)
//	if result.HasBreakingChanges() {
//	    log.Fatal("breaking changes detected:\n", result)
//	}
func ValidateDiff(current, desired []*dbschema.Table, opts ...ValidateOption) *ValidationResult {
	cfg := &validateConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	result := &ValidationResult{}
	desiredMap := make(map[string]*dbschema.Table, len(desired))
	for _, t := range desired {
		desiredMap[t.Name] = t
	}
	for _, t := range sortedTables(current) {
		d, ok := desiredMap[t.Name]
		if !ok {
			result.add(&ValidationError{Table: t.Name, Message: "table will be dropped", Breaking: true}, cfg.dropTable)
			continue
		}
		validateTableDiff(t, d, cfg, result)
	}
	return result
}

func sortedTables(tables []*dbschema.Table) []*dbschema.Table {
	sorted := slices.Clone(tables)
	slices.SortFunc(sorted, func(a, b *dbschema.Table) int { return strings.Compare(a.Name, b.Name) })
	return sorted
}

// columns indexes the columns of a table by physical name.
func columns(t *dbschema.Table) map[string]*field.Descriptor {
	m := make(map[string]*field.Descriptor, len(t.Columns))
	for _, c := range t.Columns {
		m[c.Column()] = c
	}
	return m
}

// nullable reports whether a column accepts NULL.
func nullable(t *dbschema.Table, c *field.Descriptor) bool {
	return !c.NotNull && !c.PrimaryKey && !slices.Contains(t.PrimaryKeyColumns(), c.Column())
}

func validateTableDiff(current, desired *dbschema.Table, cfg *validateConfig, result *ValidationResult) {
	currentCols, desiredCols := columns(current), columns(desired)
	for _, c := range current.Columns {
		if _, ok := desiredCols[c.Column()]; !ok {
			result.add(&ValidationError{Table: current.Name, Column: c.Column(), Message: "column will be dropped", Breaking: true}, cfg.dropColumn)
		}
	}
	for _, d := range desired.Columns {
		name := d.Column()
		c, ok := currentCols[name]
		if !ok {
			if !nullable(desired, d) && !d.HasDefault() && d.Identity == nil && d.Generated == nil && d.Family != field.FamilySerial {
				result.warn(current.Name, name, "new NOT NULL column without default value may fail if table has data")
			}
			continue
		}
		if from, to := c.SQLType(), d.SQLType(); !strings.EqualFold(from, to) {
			result.warn(current.Name, name, "column type changing from %s to %s", from, to)
		}
		if nullable(current, c) && !nullable(desired, d) {
			result.add(&ValidationError{
				Table:    current.Name,
				Column:   name,
				Message:  "column changing from NULL to NOT NULL may fail if column has NULL values",
				Breaking: true,
			}, cfg.nullToNotNull)
		}
		if c.Length > 0 && d.Length > 0 && d.Length < c.Length {
			result.warn(current.Name, name, "column size reducing from %d to %d may truncate data", c.Length, d.Length)
		}
		if !c.Unique && d.Unique {
			result.warn(current.Name, name, "adding UNIQUE constraint may fail if duplicate values exist")
		}
	}
	if from, to := current.PrimaryKeyColumns(), desired.PrimaryKeyColumns(); len(from) > 0 && !slices.Equal(from, to) {
		result.warn(current.Name, "", "primary key changing from %v to %v", from, to)
	}
	for _, idx := range current.Indexes {
		if idx.StorageKey == "" {
			continue
		}
		found := slices.ContainsFunc(desired.Indexes, func(d *index.Descriptor) bool { return d.StorageKey == idx.StorageKey })
		if !found {
			result.add(&ValidationError{Table: current.Name, Message: fmt.Sprintf("index %q will be dropped", idx.StorageKey)}, cfg.dropIndex)
		}
	}
}

// ValidateTable checks a single table definition: duplicate columns and
// indexes, unknown columns in keys, and a missing primary key.
func ValidateTable(t *dbschema.Table) *ValidationResult {
	result := &ValidationResult{}
	if len(t.PrimaryKeyColumns()) == 0 {
		result.warn(t.Name, "", "table has no primary key")
	}
	cols := make(map[string]bool, len(t.Columns))
	for _, c := range t.Columns {
		if cols[c.Column()] {
			result.fail(t.Name, c.Column(), "duplicate column name")
		}
		cols[c.Column()] = true
		cols[c.Name] = true
	}
	idxNames := make(map[string]bool, len(t.Indexes))
	for _, idx := range t.Indexes {
		if idx.StorageKey != "" && idxNames[idx.StorageKey] {
			result.fail(t.Name, "", "duplicate index name: %s", idx.StorageKey)
		}
		idxNames[idx.StorageKey] = true
		for _, col := range idx.Fields {
			if !cols[col] {
				result.fail(t.Name, "", "index %q references non-existent column %q", idx.StorageKey, col)
			}
		}
	}
	for _, u := range t.Uniques {
		for _, col := range u.Columns {
			if !cols[col] {
				result.fail(t.Name, "", "unique constraint %q references non-existent column %q", u.Name, col)
			}
		}
	}
	for _, fk := range t.ForeignKeys {
		for _, col := range fk.Columns {
			if !cols[col] {
				result.fail(t.Name, "", "foreign key references non-existent column %q", col)
			}
		}
		if len(fk.RefColumns) > 0 && len(fk.RefColumns) != len(fk.Columns) {
			result.fail(t.Name, "", "foreign key to %q has %d columns but references %d", fk.RefTable, len(fk.Columns), len(fk.RefColumns))
		}
	}
	return result
}

// ValidateSchema validates all tables and the foreign keys between them.
func ValidateSchema(tables []*dbschema.Table) *ValidationResult {
	result := &ValidationResult{}
	byName := make(map[string]*dbschema.Table, len(tables))
	for _, t := range tables {
		if _, ok := byName[t.Name]; ok {
			result.fail(t.Name, "", "duplicate table name")
		}
		byName[t.Name] = t
		result.merge(ValidateTable(t))
	}
	for _, t := range tables {
		for _, fk := range t.ForeignKeys {
			ref, ok := byName[fk.RefTable]
			if !ok {
				result.fail(t.Name, "", "foreign key references non-existent table %q", fk.RefTable)
				continue
			}
			for _, col := range fk.RefColumns {
				if _, ok := ref.Column(col); !ok {
					result.fail(t.Name, "", "foreign key references non-existent column %q of table %q", col, fk.RefTable)
				}
			}
		}
		for _, c := range t.Columns {
			if c.Reference == nil {
				continue
			}
			if _, ok := byName[c.Reference.Table]; !ok {
				result.fail(t.Name, c.Column(), "reference to non-existent table %q", c.Reference.Table)
			}
		}
	}
	return result
}
