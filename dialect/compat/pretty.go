package compat

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	ansiReset  = "\033[0m"
	ansiRed    = "\033[31m"
	ansiYellow = "\033[33m"
	ansiCyan   = "\033[36m"
	ansiGreen  = "\033[32m"
)

var (
	title      = cases.Title(language.English)
	titleSpace = strings.NewReplacer("_", " ", "-", " ")
)

func severityColor(s Severity) string {
	switch s {
	case SeverityError:
		return ansiRed
	case SeverityWarning:
		return ansiYellow
	default:
		return ansiCyan
	}
}

// Title returns the display name of a category, e.g. "Data Type" for
// DATA_TYPE and "Built In Table" for built-in-table.
func (c Category) Title() string {
	return title.String(titleSpace.Replace(string(c)))
}

// Pretty writes a human readable report of r, one block per diagnostic
// followed by a summary line. Colors are ANSI escapes.
func (r *Result) Pretty(w io.Writer, color bool) error {
	paint := func(code, s string) string {
		if !color {
			return s
		}
		return code + s + ansiReset
	}
	var b strings.Builder
	for _, d := range r.Diagnostics() {
		fmt.Fprintf(&b, "%s [%s] %s: %s\n", paint(severityColor(d.Severity), strings.ToUpper(string(d.Severity))), d.Code, d.Category.Title(), d.Message)
		if loc := d.Location.String(); loc != "" {
			fmt.Fprintf(&b, "  at: %s\n", loc)
		}
		if d.Detected != "" {
			fmt.Fprintf(&b, "  found: %s\n", d.Detected)
		}
		if d.Alternative != "" {
			fmt.Fprintf(&b, "  use instead: %s\n", d.Alternative)
		}
		if d.AutoFix != nil {
			fmt.Fprintf(&b, "  fix: %s\n", d.AutoFix.Description)
		}
		if d.DocsURL != "" {
			fmt.Fprintf(&b, "  docs: %s\n", d.DocsURL)
		}
	}
	errs, warns, info := r.Counts()
	status := paint(ansiGreen, "PASSED")
	if !r.Valid {
		status = paint(ansiRed, "FAILED")
	}
	fmt.Fprintf(&b, "%d errors, %d warnings, %d info; Status: %s\n", errs, warns, info, status)
	_, err := io.WriteString(w, b.String())
	return err
}

// String returns the uncolored report.
func (r *Result) String() string {
	var b strings.Builder
	_ = r.Pretty(&b, false)
	return b.String()
}
