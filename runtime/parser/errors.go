package parser

import (
	"fmt"
	"strings"

	"github.com/opal-lang/ischeme/runtime/driver"
	"github.com/opal-lang/ischeme/runtime/lexer"
)

// ParseError represents a syntax error with enough context for a
// user-friendly message
type ParseError struct {
	// Location
	Filename string         // Source filename (empty for stdin/string)
	Position lexer.Position // Line, column, offset

	// Core error info
	Message string // Clear, specific: "missing ';'"
	Context string // What we were parsing: "choice declaration"

	// What went wrong
	Expected []lexer.TokenType // What tokens would be valid
	Got      lexer.TokenType   // What we found instead
	GotText  string            // Source text of the offending token

	// How to fix it
	Suggestion string // Actionable fix: "end the statement with ';'"
	Example    string // Valid syntax: "tool: xml2ly;"
}

// Error returns the one-line form: position, message, context and the
// expected tokens.
func (e *ParseError) Error() string {
	var b strings.Builder
	if e.Filename != "" {
		b.WriteString(e.Filename)
		b.WriteByte(':')
	}
	fmt.Fprintf(&b, "%d:%d: %s", e.Position.Line, e.Position.Column, e.Message)
	if e.Context != "" {
		b.WriteString(" in ")
		b.WriteString(e.Context)
	}
	if exp := e.expectation(); exp != "" {
		b.WriteString(" (")
		b.WriteString(exp)
		b.WriteByte(')')
	}
	return b.String()
}

// Unwrap lets callers match any ParseError with errors.Is(err, driver.ErrSyntax).
func (e *ParseError) Unwrap() error {
	return driver.ErrSyntax
}

// Pos returns the error position in the driver's coordinates.
func (e *ParseError) Pos() driver.Pos {
	return driver.Pos{Line: e.Position.Line, Column: e.Position.Column}
}

func (e *ParseError) expectation() string {
	if len(e.Expected) == 0 {
		return ""
	}
	names := make([]string, len(e.Expected))
	for i, t := range e.Expected {
		names[i] = t.Describe()
	}
	got := e.Got.Describe()
	if e.GotText != "" && e.Got != lexer.STRING {
		got = fmt.Sprintf("'%s'", e.GotText)
	}
	return fmt.Sprintf("expected %s, got %s", strings.Join(names, " or "), got)
}

// ErrorFormatter renders errors with a Rust/Clang style source snippet.
type ErrorFormatter struct {
	Source   []byte
	Filename string
	Compact  bool // omit the example line
}

// Format renders a parse error:
//
//	piece.ischeme:3:15: missing ';' in tool statement
//	  --> 3:15
//	   |
//	 3 | tool: xml2ly
//	   |             ^ expected ';'
//	   = help: end the statement with ';'
func (f ErrorFormatter) Format(err *ParseError) string {
	var b strings.Builder
	b.WriteString(err.Error())
	b.WriteByte('\n')

	label := ""
	if len(err.Expected) > 0 {
		names := make([]string, len(err.Expected))
		for i, t := range err.Expected {
			names[i] = t.Describe()
		}
		label = "expected " + strings.Join(names, " or ")
	}
	b.WriteString(f.Snippet(err.Position.Line, err.Position.Column, label))

	if err.Suggestion != "" {
		fmt.Fprintf(&b, "   = help: %s\n", err.Suggestion)
	}
	if err.Example != "" && !f.Compact {
		fmt.Fprintf(&b, "   = example: %s\n", err.Example)
	}
	return b.String()
}

// Snippet shows the source line at line with a caret under column, followed
// by label. It returns "" when the position is outside the source.
func (f ErrorFormatter) Snippet(line, column int, label string) string {
	if len(f.Source) == 0 || line <= 0 {
		return ""
	}
	lines := strings.Split(string(f.Source), "\n")
	if line > len(lines) {
		return ""
	}
	lineContent := strings.TrimRight(lines[line-1], "\r")

	var snippet strings.Builder
	fmt.Fprintf(&snippet, "  --> %d:%d\n", line, column)
	snippet.WriteString("   |\n")
	fmt.Fprintf(&snippet, "%2d | %s\n", line, lineContent)
	snippet.WriteString("   | ")
	if column > 0 && column <= len(lineContent)+1 {
		snippet.WriteString(strings.Repeat(" ", column-1) + "^")
		if label != "" {
			snippet.WriteString(" " + label)
		}
	}
	snippet.WriteByte('\n')
	return snippet.String()
}
