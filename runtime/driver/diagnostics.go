package driver

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies a diagnostic.
type ErrorKind int

const (
	InternalError ErrorKind = iota
	SyntaxError
	DuplicateDeclaration
	DuplicateLabel
	ReservedLabel
	UnknownName
	UnknownLabel
	LabelNotInChoice
	UnknownChoiceInSelect
	UnknownLabelInSelect
	DuplicateLabelInCaseStatement
	IncompleteCaseStatement
	AmbiguousChoiceSelection
	MissingDefaultLabel
	MissingTool
	NoInputSource
	Warning
)

var kindNames = [...]string{
	InternalError:                 "internal error",
	SyntaxError:                   "syntax error",
	DuplicateDeclaration:          "duplicate declaration",
	DuplicateLabel:                "duplicate label",
	ReservedLabel:                 "reserved label",
	UnknownName:                   "unknown name",
	UnknownLabel:                  "unknown label",
	LabelNotInChoice:              "label not in choice",
	UnknownChoiceInSelect:         "unknown choice in select",
	UnknownLabelInSelect:          "unknown label in select",
	DuplicateLabelInCaseStatement: "duplicate label in case statement",
	IncompleteCaseStatement:       "incomplete case statement",
	AmbiguousChoiceSelection:      "ambiguous choice selection",
	MissingDefaultLabel:           "missing default label",
	MissingTool:                   "missing tool",
	NoInputSource:                 "no input source",
	Warning:                       "warning",
}

// sentinels holds one comparable error per kind so callers can use errors.Is.
var sentinels = func() []error {
	errs := make([]error, len(kindNames))
	for i, name := range kindNames {
		errs[i] = errors.New(name)
	}
	return errs
}()

// Sentinel errors matched by errors.Is against any *Diagnostic of that kind.
var (
	ErrInternal                      = InternalError.Err()
	ErrSyntax                        = SyntaxError.Err()
	ErrDuplicateDeclaration          = DuplicateDeclaration.Err()
	ErrDuplicateLabel                = DuplicateLabel.Err()
	ErrReservedLabel                 = ReservedLabel.Err()
	ErrUnknownName                   = UnknownName.Err()
	ErrUnknownLabel                  = UnknownLabel.Err()
	ErrLabelNotInChoice              = LabelNotInChoice.Err()
	ErrUnknownChoiceInSelect         = UnknownChoiceInSelect.Err()
	ErrUnknownLabelInSelect          = UnknownLabelInSelect.Err()
	ErrDuplicateLabelInCaseStatement = DuplicateLabelInCaseStatement.Err()
	ErrIncompleteCaseStatement       = IncompleteCaseStatement.Err()
	ErrAmbiguousChoiceSelection      = AmbiguousChoiceSelection.Err()
	ErrMissingDefaultLabel           = MissingDefaultLabel.Err()
	ErrMissingTool                   = MissingTool.Err()
	ErrNoInputSource                 = NoInputSource.Err()
)

func (k ErrorKind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
	return kindNames[k]
}

// Err returns the sentinel error for the kind.
func (k ErrorKind) Err() error {
	if k < 0 || int(k) >= len(sentinels) {
		return sentinels[InternalError]
	}
	return sentinels[k]
}

// Severity tells fatal diagnostics from warnings.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
)

func (s Severity) String() string {
	if s == SeverityWarning {
		return "warning"
	}
	return "error"
}

// Pos is a 1-based line and column in the script. The zero Pos means the
// diagnostic is not tied to a script location, as for command-line options.
type Pos struct {
	Line   int
	Column int
}

// IsValid reports whether the position points into the script.
func (p Pos) IsValid() bool {
	return p.Line > 0
}

func (p Pos) String() string {
	if !p.IsValid() {
		return "-"
	}
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Diagnostic is a user-facing error or warning about a script or the options
// driving it.
type Diagnostic struct {
	Kind       ErrorKind
	Severity   Severity
	Message    string
	Pos        Pos
	Suggestion string   // closest known name, if any
	Related    []string // e.g. the labels missing from a case statement
}

// Error formats the diagnostic on a single line, prefixed by its position.
func (d *Diagnostic) Error() string {
	var b strings.Builder
	if d.Pos.IsValid() {
		b.WriteString(d.Pos.String())
		b.WriteString(": ")
	}
	b.WriteString(d.Message)
	if d.Suggestion != "" {
		fmt.Fprintf(&b, " (did you mean '%s'?)", d.Suggestion)
	}
	return b.String()
}

// Unwrap exposes the kind sentinel to errors.Is.
func (d *Diagnostic) Unwrap() error {
	return d.Kind.Err()
}

// IsWarning reports whether the diagnostic is non-fatal.
func (d *Diagnostic) IsWarning() bool {
	return d.Severity == SeverityWarning
}

func newError(kind ErrorKind, pos Pos, format string, args ...interface{}) *Diagnostic {
	return &Diagnostic{
		Kind:     kind,
		Severity: SeverityError,
		Message:  fmt.Sprintf(format, args...),
		Pos:      pos,
	}
}

func newWarning(pos Pos, format string, args ...interface{}) *Diagnostic {
	return &Diagnostic{
		Kind:     Warning,
		Severity: SeverityWarning,
		Message:  fmt.Sprintf(format, args...),
		Pos:      pos,
	}
}

// AsDiagnostic extracts the *Diagnostic from err, if there is one.
func AsDiagnostic(err error) (*Diagnostic, bool) {
	var d *Diagnostic
	if errors.As(err, &d) {
		return d, true
	}
	return nil, false
}
