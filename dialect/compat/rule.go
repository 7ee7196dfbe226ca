package compat

import (
	"fmt"
	"slices"
	"strings"
)

// Severity of a diagnostic.
type Severity string

// Severities, from the most to the least severe.
const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Category groups rules by the kind of construct they apply to.
type Category string

// Rule categories.
const (
	CategoryDataType     Category = "DATA_TYPE"
	CategorySyntax       Category = "SYNTAX"
	CategoryTrigger      Category = "TRIGGER"
	CategorySequence     Category = "SEQUENCE"
	CategoryConstraint   Category = "CONSTRAINT"
	CategoryDDL          Category = "DDL"
	CategoryDML          Category = "DML"
	CategoryFunction     Category = "FUNCTION"
	CategoryIndex        Category = "INDEX"
	CategoryTransaction  Category = "TRANSACTION"
	CategoryBuiltinTable Category = "built-in-table"
	CategoryForeignKey   Category = "foreign-key"
	CategoryPrimaryKey   Category = "primary-key"
	CategoryAdmin        Category = "admin"
)

// AutoFix describes the mechanical rewrite that resolves a diagnostic.
// Consumers apply it; the validator never rewrites its input.
type AutoFix struct {
	Description       string
	OriginalType      string
	ReplacementType   string
	AdditionalChanges []string
}

func (f *AutoFix) clone() *AutoFix {
	if f == nil {
		return nil
	}
	c := *f
	c.AdditionalChanges = slices.Clone(f.AdditionalChanges)
	return &c
}

// Rule is a catalog entry. Message is a template where {table}, {column},
// {constraint}, {index}, {object} and {detected} are replaced by the
// location of a finding.
type Rule struct {
	Code        string
	Severity    Severity
	Category    Category
	Feature     string
	Message     string
	Alternative string
	DocsURL     string
	AutoFix     *AutoFix
}

func (r *Rule) clone() *Rule {
	c := *r
	c.AutoFix = r.AutoFix.clone()
	return &c
}

// Location is where a diagnostic was found. Only the relevant fields are
// set.
type Location struct {
	Table      string
	Column     string
	Constraint string
	Index      string
	Object     string
	Line       int
}

// String formats the location, e.g. "orders.tenant_id" or "line 3".
func (l Location) String() string {
	var parts []string
	switch {
	case l.Table != "" && l.Column != "":
		parts = append(parts, l.Table+"."+l.Column)
	case l.Table != "":
		parts = append(parts, l.Table)
	}
	if l.Constraint != "" {
		parts = append(parts, "constraint "+l.Constraint)
	}
	if l.Index != "" {
		parts = append(parts, "index "+l.Index)
	}
	if l.Object != "" {
		parts = append(parts, l.Object)
	}
	if l.Line > 0 {
		parts = append(parts, fmt.Sprintf("line %d", l.Line))
	}
	return strings.Join(parts, ", ")
}

// Diagnostic is a rule instantiated at a location.
type Diagnostic struct {
	Code        string
	Severity    Severity
	Category    Category
	Feature     string
	Message     string
	Alternative string
	Location    Location
	Detected    string
	DocsURL     string
	AutoFix     *AutoFix
}

// Instantiate fills the message template of the rule.
func (r *Rule) Instantiate(loc Location, detected string) Diagnostic {
	msg := strings.NewReplacer(
		"{table}", loc.Table,
		"{column}", loc.Column,
		"{constraint}", loc.Constraint,
		"{index}", loc.Index,
		"{object}", loc.Object,
		"{detected}", detected,
	).Replace(r.Message)
	return Diagnostic{
		Code:        r.Code,
		Severity:    r.Severity,
		Category:    r.Category,
		Feature:     r.Feature,
		Message:     msg,
		Alternative: r.Alternative,
		Location:    loc,
		Detected:    detected,
		DocsURL:     r.DocsURL,
		AutoFix:     r.AutoFix.clone(),
	}
}

// Result is the outcome of a validation. It is valid iff it holds no
// error diagnostics.
type Result struct {
	Dialect  string
	Valid    bool
	Errors   []Diagnostic
	Warnings []Diagnostic
	Info     []Diagnostic
}

func newResult(dialectName string) *Result {
	return &Result{Dialect: dialectName, Valid: true}
}

func (r *Result) add(d Diagnostic) {
	switch d.Severity {
	case SeverityError:
		r.Errors = append(r.Errors, d)
		r.Valid = false
	case SeverityWarning:
		r.Warnings = append(r.Warnings, d)
	default:
		r.Info = append(r.Info, d)
	}
}

// Merge appends the diagnostics of other to r.
func (r *Result) Merge(other *Result) {
	for _, d := range other.Diagnostics() {
		r.add(d)
	}
}

// Counts returns the number of diagnostics per severity.
func (r *Result) Counts() (errors, warnings, info int) {
	return len(r.Errors), len(r.Warnings), len(r.Info)
}

// Diagnostics returns all diagnostics, errors first.
func (r *Result) Diagnostics() []Diagnostic {
	all := make([]Diagnostic, 0, len(r.Errors)+len(r.Warnings)+len(r.Info))
	all = append(all, r.Errors...)
	all = append(all, r.Warnings...)
	return append(all, r.Info...)
}

// Codes returns the codes of all diagnostics, errors first.
func (r *Result) Codes() []string {
	var codes []string
	for _, d := range r.Diagnostics() {
		codes = append(codes, d.Code)
	}
	return codes
}

// Has reports whether a diagnostic with the code was emitted.
func (r *Result) Has(code string) bool {
	for _, d := range r.Diagnostics() {
		if d.Code == code {
			return true
		}
	}
	return false
}
