// Package sqlschema provides SQL-specific annotations and referential
// actions for dbkit table definitions.
//
// Import this package as:
//
//	import "github.com/syssam/dbkit/dialect/sqlschema"
//
// # Table Annotations
//
// MySQL storage options and multi-schema placement:
//
//	schema.DefineTable("users", cols,
//	    schema.Annotations(sqlschema.Engine("InnoDB"), sqlschema.Charset("utf8mb4")),
//	)
//
// # Index Annotations
//
// Dialect-specific access methods, covering columns and MySQL prefixes:
//
//	index.Fields("title").Annotations(sqlschema.IndexTypes(map[string]string{
//	    dialect.Postgres: "GIN",
//	    dialect.MySQL:    "FULLTEXT",
//	}))
//	index.Fields("email").Annotations(sqlschema.IncludeColumns("name"))
//
// # Referential Actions
//
// Available constants for ON DELETE and ON UPDATE:
//
//	sqlschema.Cascade    - Delete/update related rows
//	sqlschema.SetNull    - Set foreign key to NULL
//	sqlschema.Restrict   - Prevent delete/update if related rows exist
//	sqlschema.SetDefault - Set foreign key to default value
//	sqlschema.NoAction   - No action (database default)
package sqlschema

import (
	"maps"
	"strings"
)

// AnnotationName is the name used for SQL annotations.
const AnnotationName = "sql"

// ReferentialAction defines the ON DELETE / ON UPDATE behavior of a
// foreign key.
type ReferentialAction string

const (
	NoAction   ReferentialAction = "NO ACTION"
	Restrict   ReferentialAction = "RESTRICT"
	Cascade    ReferentialAction = "CASCADE"
	SetNull    ReferentialAction = "SET NULL"
	SetDefault ReferentialAction = "SET DEFAULT"
)

// IsDefault reports whether a is unset or NO ACTION. Default actions are
// not emitted in DDL.
func (a ReferentialAction) IsDefault() bool {
	return a == "" || a == NoAction
}

// String implements fmt.Stringer.
func (a ReferentialAction) String() string {
	if a == "" {
		return string(NoAction)
	}
	return string(a)
}

// ActionFromCode maps the single-character codes stored in the Postgres
// catalog (pg_constraint.confdeltype / confupdtype) to actions.
func ActionFromCode(code string) (ReferentialAction, bool) {
	switch code {
	case "a":
		return NoAction, true
	case "r":
		return Restrict, true
	case "c":
		return Cascade, true
	case "n":
		return SetNull, true
	case "d":
		return SetDefault, true
	}
	return "", false
}

// ParseAction parses an action name as reported by information_schema
// or written by users. Case, underscores and repeated spaces are ignored.
func ParseAction(s string) (ReferentialAction, bool) {
	norm := strings.Join(strings.Fields(strings.ReplaceAll(strings.ToUpper(s), "_", " ")), " ")
	switch a := ReferentialAction(norm); a {
	case NoAction, Restrict, Cascade, SetNull, SetDefault:
		return a, true
	case "":
		return NoAction, true
	}
	return "", false
}

// Annotation holds SQL-specific settings for tables.
// Can be used with functional constructors or struct literals:
//
//	// Functional style
//	sqlschema.Engine("InnoDB")
//
//	// Struct literal style
//	sqlschema.Annotation{Engine: "InnoDB", Charset: "utf8mb4"}
type Annotation struct {
	// Schema specifies the database schema of the table.
	Schema string

	// Engine sets the MySQL storage engine.
	Engine string

	// Charset sets the default character set (MySQL).
	Charset string

	// Collation sets the default collation (MySQL).
	Collation string

	// Options holds additional raw table options appended to CREATE TABLE.
	Options string

	// WithComments controls whether comments are emitted as COMMENT ON
	// statements. Defaults to true.
	WithComments *bool
}

// Name implements the schema annotation interface.
func (Annotation) Name() string {
	return AnnotationName
}

// Schema sets the database schema of a table.
func Schema(name string) Annotation {
	return Annotation{Schema: name}
}

// Engine sets the MySQL storage engine.
//
// Example:
//
//	schema.Annotations(sqlschema.Engine("InnoDB"))
func Engine(engine string) Annotation {
	return Annotation{Engine: engine}
}

// Charset sets the default character set of a MySQL table.
func Charset(charset string) Annotation {
	return Annotation{Charset: charset}
}

// Collation sets the default collation of a MySQL table.
func Collation(c string) Annotation {
	return Annotation{Collation: c}
}

// Options appends raw table options, e.g. "ROW_FORMAT=DYNAMIC".
func Options(opts string) Annotation {
	return Annotation{Options: opts}
}

// WithComments controls whether table and column comments are emitted.
func WithComments(enable bool) Annotation {
	return Annotation{WithComments: &enable}
}

// GetWithComments returns the comment setting and whether it was set.
func (a Annotation) GetWithComments() (bool, bool) {
	if a.WithComments == nil {
		return true, false // default is true
	}
	return *a.WithComments, true
}

// Merge combines multiple annotations. Later annotations take precedence.
func Merge(annotations ...Annotation) Annotation {
	result := Annotation{}
	for _, a := range annotations {
		if a.Schema != "" {
			result.Schema = a.Schema
		}
		if a.Engine != "" {
			result.Engine = a.Engine
		}
		if a.Charset != "" {
			result.Charset = a.Charset
		}
		if a.Collation != "" {
			result.Collation = a.Collation
		}
		if a.Options != "" {
			result.Options = a.Options
		}
		if a.WithComments != nil {
			result.WithComments = a.WithComments
		}
	}
	return result
}

// IndexAnnotation holds SQL-specific settings for indexes.
type IndexAnnotation struct {
	// Types provides dialect-specific index methods.
	// Map from dialect name to index method.
	Types map[string]string

	// PrefixColumns specifies prefix length per column (MySQL).
	PrefixColumns map[string]uint

	// IncludeColumns specifies columns to include in a covering index.
	IncludeColumns []string

	// StorageParams sets WITH (...) storage parameters (Postgres).
	StorageParams string
}

// Name implements the schema annotation interface.
func (IndexAnnotation) Name() string {
	return AnnotationName
}

// IndexTypes sets the index method per dialect.
func IndexTypes(types map[string]string) IndexAnnotation {
	return IndexAnnotation{Types: types}
}

// PrefixColumn sets the MySQL prefix length of an index column.
func PrefixColumn(column string, prefix uint) IndexAnnotation {
	return IndexAnnotation{PrefixColumns: map[string]uint{column: prefix}}
}

// IncludeColumns adds covering columns (INCLUDE) to an index.
func IncludeColumns(columns ...string) IndexAnnotation {
	return IndexAnnotation{IncludeColumns: columns}
}

// StorageParams sets index storage parameters, e.g. "fillfactor=90".
func StorageParams(params string) IndexAnnotation {
	return IndexAnnotation{StorageParams: params}
}

// TypeFor returns the index method configured for the dialect, if any.
func (a IndexAnnotation) TypeFor(dialect string) (string, bool) {
	t, ok := a.Types[dialect]
	return t, ok
}

// MergeIndex combines index annotations. Later annotations take precedence
// for scalar settings; maps and column lists are unioned.
func MergeIndex(annotations ...IndexAnnotation) IndexAnnotation {
	result := IndexAnnotation{}
	for _, a := range annotations {
		if len(a.Types) > 0 {
			if result.Types == nil {
				result.Types = make(map[string]string, len(a.Types))
			}
			maps.Copy(result.Types, a.Types)
		}
		if len(a.PrefixColumns) > 0 {
			if result.PrefixColumns == nil {
				result.PrefixColumns = make(map[string]uint, len(a.PrefixColumns))
			}
			maps.Copy(result.PrefixColumns, a.PrefixColumns)
		}
		result.IncludeColumns = append(result.IncludeColumns, a.IncludeColumns...)
		if a.StorageParams != "" {
			result.StorageParams = a.StorageParams
		}
	}
	return result
}
