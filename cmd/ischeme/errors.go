package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/opal-lang/ischeme/runtime/driver"
	"github.com/opal-lang/ischeme/runtime/parser"
)

// CLIError represents a formatted CLI error with context
type CLIError struct {
	Type    string // "args", "io", "config", "plan"
	Message string
	Details string // Additional context
	Hint    string // How to fix it
}

// Error implements the error interface
func (e *CLIError) Error() string {
	var b strings.Builder
	b.WriteString(e.Message)
	if e.Details != "" {
		b.WriteString("\n")
		b.WriteString(e.Details)
	}
	if e.Hint != "" {
		b.WriteString("\n")
		b.WriteString(e.Hint)
	}
	return b.String()
}

// reporter writes errors and warnings about one script
type reporter struct {
	w        io.Writer
	st       styles
	source   []byte
	filename string
}

// FormatError formats an error for CLI output
func (r *reporter) FormatError(err error) {
	if err == nil {
		return
	}

	var perr *parser.ParseError
	var diag *driver.Diagnostic
	var cerr *CLIError
	switch {
	case errors.As(err, &perr):
		r.formatParseError(perr)
	case errors.As(err, &diag):
		r.formatDiagnostic(diag)
	case errors.As(err, &cerr):
		r.formatCLIError(cerr)
	default:
		_, _ = fmt.Fprintf(r.w, "%s%s\n", r.st.err.Render("Error: "), err.Error())
	}
}

func (r *reporter) formatParseError(err *parser.ParseError) {
	f := parser.ErrorFormatter{Source: r.source, Filename: r.filename}
	_, _ = fmt.Fprintf(r.w, "%s%s", r.st.err.Render("Error: "), f.Format(err))
}

// formatDiagnostic prints an engine error or warning with the script line
// it points at.
func (r *reporter) formatDiagnostic(d *driver.Diagnostic) {
	prefix := r.st.err.Render("Error: ")
	if d.IsWarning() {
		prefix = r.st.warn.Render("Warning: ")
	}

	location := ""
	if d.Pos.IsValid() {
		if r.filename != "" {
			location = r.filename + ":"
		}
		location += d.Pos.String() + ": "
	}
	_, _ = fmt.Fprintf(r.w, "%s%s%s\n", prefix, location, d.Message)

	f := parser.ErrorFormatter{Source: r.source}
	if snippet := f.Snippet(d.Pos.Line, d.Pos.Column, ""); snippet != "" {
		_, _ = fmt.Fprintln(r.w, r.st.dim.Render(strings.TrimSuffix(snippet, "\n")))
	}
	if d.Suggestion != "" {
		_, _ = fmt.Fprintf(r.w, "%s did you mean '%s'?\n", r.st.hint.Render("Hint:"), d.Suggestion)
	}
	if len(d.Related) > 0 && d.Kind == driver.IncompleteCaseStatement {
		_, _ = fmt.Fprintf(r.w, "%s add an alternative for %s\n", r.st.hint.Render("Hint:"), strings.Join(d.Related, ", "))
	}
}

// formatCLIError formats CLI errors
func (r *reporter) formatCLIError(err *CLIError) {
	_, _ = fmt.Fprintf(r.w, "%s%s\n", r.st.err.Render("Error: "), err.Message)

	if err.Details != "" {
		_, _ = fmt.Fprintf(r.w, "\n%s\n", err.Details)
	}

	if err.Hint != "" {
		_, _ = fmt.Fprintf(r.w, "%s%s\n", r.st.hint.Render("Hint: "), err.Hint)
	}
}

// warnings prints every warning the driver recorded
func (r *reporter) warnings(ws []*driver.Diagnostic) {
	for _, w := range ws {
		r.formatDiagnostic(w)
	}
}
