// Package driver is the semantic engine of the iScheme interpreter.
//
// A parser reports each grammar event to a Driver through the Actions
// interface. The Driver accumulates options in nested scopes, keeps the
// choice and input registries, checks case statements for completeness and
// uniqueness, resolves select directives and, once the script ends, builds
// the command plan.
//
// Every user-facing problem is returned as a *Diagnostic. A broken calling
// sequence (popping the main block, closing a case that was never opened) is
// an internal error: the invariant panic is recovered at the Actions
// boundary and returned as a *Diagnostic of kind InternalError.
package driver

import (
	"log/slog"

	"github.com/opal-lang/ischeme/core/invariant"
	"github.com/opal-lang/ischeme/core/planfmt"
)

// Actions is the set of grammar events a parser reports, in source order.
//
// BeginScript comes first and EndScript last. A case statement is reported
// as BeginCase, then for each alternative BeginAlternative, its labels, the
// alternative's elements and EndAlternative, then EndCase.
type Actions interface {
	BeginScript(pos Pos) error
	SetTool(name string, pos Pos) error
	AddInputSource(name string, pos Pos) error
	RegisterOption(opt Option, pos Pos) error

	DeclareChoice(name string, pos Pos) error
	AddChoiceLabel(choice, label string, pos Pos) error
	SetChoiceDefault(choice, label string, pos Pos) error

	DeclareInput(name string, pos Pos) error
	AddInputName(input, name string, pos Pos) error
	SetInputDefault(input, name string, pos Pos) error

	BeginCase(subject string, pos Pos) error
	BeginAlternative(pos Pos) error
	AddAlternativeLabel(label string, pos Pos) error
	EndAlternative(pos Pos) error
	EndCase(pos Pos) error

	Select(choice, label string, pos Pos) error
	EndScript(pos Pos) error
}

// Trace selects which engine activities are logged at debug level.
type Trace uint8

const (
	TraceChoices Trace = 1 << iota
	TraceInputs
	TraceCases
	TraceBlocks
	TraceParsing
	TraceScanning
)

// Has reports whether every flag of t is set.
func (tr Trace) Has(t Trace) bool {
	return tr&t == t
}

// Config configures a Driver.
type Config struct {
	// Selects are the command-line select directives, in command-line order.
	Selects []Directive
	// Inputs, when not empty, replace the script's input sources.
	Inputs []string
	// KnownTools lists the tools the script may name without a warning.
	// An empty list disables the check.
	KnownTools []string

	Trace  Trace
	Logger *slog.Logger // nil discards log output
}

// Driver owns all semantic state for a single script run.
// It is not safe for concurrent use.
type Driver struct {
	config Config
	logger *slog.Logger

	tool    string
	toolPos Pos
	sources []string

	scopes   ScopeStack
	choices  *Table
	inputs   *Table
	cases    []*CaseChecker
	resolver *SelectResolver

	choiceCaseOccurred bool
	caseOccurred       bool

	warnings []*Diagnostic
	plan     *planfmt.Plan
	done     bool
}

var _ Actions = (*Driver)(nil)

// New creates a Driver ready to receive BeginScript.
func New(config Config) *Driver {
	logger := config.Logger
	if logger == nil {
		logger = discard
	}

	d := &Driver{
		config:  config,
		logger:  logger,
		choices: NewTable(KindChoice),
		inputs:  NewTable(KindInput),
	}
	d.resolver = newSelectResolver(d.choices, config.Selects, d.warn, d.tracer(TraceChoices))
	return d
}

// tracer returns the logger for one trace concern, or a discarding logger
// when the concern is not traced.
func (d *Driver) tracer(t Trace) *slog.Logger {
	if d.config.Trace.Has(t) {
		return d.logger
	}
	return discard
}

var discard = slog.New(slog.DiscardHandler)

func (d *Driver) warn(w *Diagnostic) {
	d.warnings = append(d.warnings, w)
	d.logger.Warn(w.Message, "pos", w.Pos.String())
}

// Warnings returns the warnings recorded so far.
func (d *Driver) Warnings() []*Diagnostic {
	out := make([]*Diagnostic, len(d.warnings))
	copy(out, d.warnings)
	return out
}

// Plan returns the command plan built by EndScript, or nil before that.
func (d *Driver) Plan() *planfmt.Plan { return d.plan }

func (d *Driver) Tool() string        { return d.tool }
func (d *Driver) Choices() *Table     { return d.choices }
func (d *Driver) Inputs() *Table      { return d.inputs }
func (d *Driver) Scopes() *ScopeStack { return &d.scopes }
func (d *Driver) CaseDepth() int      { return len(d.cases) }
func (d *Driver) CaseOccurred() bool  { return d.caseOccurred }

// ScriptInputs returns the input sources named by the script.
func (d *Driver) ScriptInputs() []string {
	out := make([]string, len(d.sources))
	copy(out, d.sources)
	return out
}

// Selections returns the selections resolved so far.
func (d *Driver) Selections() []Selection { return d.resolver.Selections() }

// internal turns an invariant violation raised by a broken calling
// sequence into an InternalError diagnostic. It must be deferred directly.
func internal(errp *error) {
	r := recover()
	if r == nil {
		return
	}
	v, ok := r.(*invariant.Violation)
	if !ok {
		panic(r)
	}
	*errp = &Diagnostic{
		Kind:     InternalError,
		Severity: SeverityError,
		Message:  v.Error(),
	}
}

func (d *Driver) BeginScript(pos Pos) (err error) {
	defer internal(&err)
	invariant.Precondition(d.scopes.Depth() == 0, "script already begun")
	d.scopes.Push("main")
	d.tracer(TraceBlocks).Debug("push block", "name", "main", "depth", d.scopes.Depth())
	return nil
}

func (d *Driver) SetTool(name string, pos Pos) (err error) {
	defer internal(&err)
	if d.tool != "" {
		return newError(DuplicateDeclaration, pos, "tool is already set to '%s' at %s", d.tool, d.toolPos)
	}
	d.tool, d.toolPos = name, pos
	d.tracer(TraceInputs).Debug("tool", "name", name)

	if len(d.config.KnownTools) > 0 && !contains(d.config.KnownTools, name) {
		w := newWarning(pos, "tool '%s' is not a known tool", name)
		w.Suggestion = findClosestMatch(name, d.config.KnownTools)
		d.warn(w)
	}
	return nil
}

func (d *Driver) AddInputSource(name string, pos Pos) (err error) {
	defer internal(&err)
	// Repeated sources are kept: each one yields its own commands
	if contains(d.sources, name) {
		d.warn(newWarning(pos, "input '%s' is given more than once", name))
	}
	d.sources = append(d.sources, name)
	d.tracer(TraceInputs).Debug("input source", "name", name)
	return nil
}

func (d *Driver) RegisterOption(opt Option, pos Pos) (err error) {
	defer internal(&err)
	top := d.scopes.Top()
	top.Append(opt)
	d.tracer(TraceBlocks).Debug("option", "block", top.Name(), "name", opt.Name, "value", opt.Value)
	return nil
}

func (d *Driver) DeclareChoice(name string, pos Pos) error {
	return d.declare(d.choices, name, pos)
}

func (d *Driver) AddChoiceLabel(choice, label string, pos Pos) error {
	return d.addLabel(d.choices, choice, label, pos)
}

func (d *Driver) SetChoiceDefault(choice, label string, pos Pos) error {
	return d.setDefault(d.choices, choice, label, pos)
}

func (d *Driver) DeclareInput(name string, pos Pos) error {
	return d.declare(d.inputs, name, pos)
}

func (d *Driver) AddInputName(input, name string, pos Pos) error {
	return d.addLabel(d.inputs, input, name, pos)
}

func (d *Driver) SetInputDefault(input, name string, pos Pos) error {
	return d.setDefault(d.inputs, input, name, pos)
}

// declare registers name in t. Choice and input names share one namespace
// since a case statement may be over either.
func (d *Driver) declare(t *Table, name string, pos Pos) (err error) {
	defer internal(&err)
	if other := d.otherTable(t); other.Get(name) != nil {
		prev := other.Get(name)
		return newError(DuplicateDeclaration, pos,
			"%s '%s' is already declared as %s at %s", t.Kind(), name, other.Kind(), prev.DeclaredAt())
	}
	if _, err := t.Declare(name, pos); err != nil {
		return err
	}
	d.tracer(traceFor(t)).Debug("declare", "kind", t.Kind().String(), "name", name)
	return nil
}

func (d *Driver) addLabel(t *Table, name, label string, pos Pos) (err error) {
	defer internal(&err)
	if err := t.AddLabel(name, label, pos); err != nil {
		return err
	}
	d.tracer(traceFor(t)).Debug("label", "kind", t.Kind().String(), "name", name, "label", label)
	return nil
}

func (d *Driver) setDefault(t *Table, name, label string, pos Pos) (err error) {
	defer internal(&err)
	if err := t.SetDefaultLabel(name, label, pos); err != nil {
		return err
	}
	d.tracer(traceFor(t)).Debug("default", "kind", t.Kind().String(), "name", name, "label", label)
	return nil
}

func (d *Driver) otherTable(t *Table) *Table {
	if t == d.choices {
		return d.inputs
	}
	return d.choices
}

func traceFor(t *Table) Trace {
	if t.Kind() == KindInput {
		return TraceInputs
	}
	return TraceChoices
}

func (d *Driver) BeginCase(subject string, pos Pos) (err error) {
	defer internal(&err)
	c := d.choices.Get(subject)
	if c == nil {
		c = d.inputs.Get(subject)
	}
	if c == nil {
		diag := newError(UnknownName, pos, "'%s' in case statement is neither a choice nor an input", subject)
		diag.Suggestion = findClosestMatch(subject, append(d.choices.Names(), d.inputs.Names()...))
		return diag
	}

	c.usedInCase = true
	d.cases = append(d.cases, newCaseChecker(c, pos))
	d.tracer(TraceCases).Debug("begin case", "subject", subject, "kind", c.Kind().String(), "depth", len(d.cases))
	return nil
}

func (d *Driver) currentCase() *CaseChecker {
	invariant.Precondition(len(d.cases) > 0, "no open case statement")
	return d.cases[len(d.cases)-1]
}

func (d *Driver) BeginAlternative(pos Pos) (err error) {
	defer internal(&err)
	cc := d.currentCase()
	cc.BeginAlternative()
	b := d.scopes.Push(cc.Subject().Name() + " alternative")
	d.tracer(TraceBlocks).Debug("push block", "name", b.Name(), "depth", d.scopes.Depth())
	return nil
}

func (d *Driver) AddAlternativeLabel(label string, pos Pos) (err error) {
	defer internal(&err)
	cc := d.currentCase()
	if err := cc.AddLabel(label, pos); err != nil {
		return err
	}
	d.tracer(TraceCases).Debug("case label", "subject", cc.Subject().Name(), "label", label)
	return nil
}

// EndAlternative pops the alternative's block and enriches the block of each
// of its labels with the same options.
func (d *Driver) EndAlternative(pos Pos) (err error) {
	defer internal(&err)
	cc := d.currentCase()
	labels := cc.EndAlternative()

	targets := make([]*OptionsBlock, len(labels))
	for i, l := range labels {
		targets[i] = cc.Subject().Block(l)
	}
	popped := d.scopes.PopMergingInto(targets...)
	d.tracer(TraceBlocks).Debug("pop block", "name", popped.Name(), "options", popped.Len(),
		"labels", labels, "depth", d.scopes.Depth())
	return nil
}

func (d *Driver) EndCase(pos Pos) (err error) {
	defer internal(&err)
	cc := d.currentCase()
	if err := cc.Close(pos); err != nil {
		return err
	}
	d.cases = d.cases[:len(d.cases)-1]
	d.caseOccurred = true
	if cc.Subject().Kind() == KindChoice {
		d.choiceCaseOccurred = true
	}
	d.tracer(TraceCases).Debug("end case", "subject", cc.Subject().Name(), "depth", len(d.cases))
	return nil
}

func (d *Driver) Select(choice, label string, pos Pos) (err error) {
	defer internal(&err)
	return d.resolver.SelectInScript(choice, label, pos)
}

// EndScript runs the final semantics pass and builds the command plan.
func (d *Driver) EndScript(pos Pos) (err error) {
	defer internal(&err)
	invariant.Precondition(!d.done, "script already ended")
	invariant.Invariant(d.scopes.Depth() == 1, "options block stack depth is %d at end of script, expected 1", d.scopes.Depth())
	invariant.Invariant(len(d.cases) == 0, "%d case statement(s) still open at end of script", len(d.cases))
	d.done = true

	if err := d.resolver.ApplyOptionDirectives(); err != nil {
		return err
	}
	selections, err := d.resolver.Resolve(d.choiceCaseOccurred, pos)
	if err != nil {
		return err
	}

	if d.tool == "" {
		return newError(MissingTool, pos, "no 'tool:' statement in script")
	}

	sources, err := d.resolveSources(pos)
	if err != nil {
		return err
	}

	gen := &CommandGenerator{
		Tool:       d.tool,
		Sources:    sources,
		Main:       d.scopes.Main(),
		Inputs:     d.inputs,
		Selections: selections,
	}
	d.plan = gen.Generate()
	d.logger.Debug("plan built", "commands", d.plan.Len(), "sources", len(sources), "selections", len(selections))
	return nil
}

// resolveSources picks the input sources: command-line inputs, else the
// script's input statements, else the default of the only input axis.
func (d *Driver) resolveSources(pos Pos) ([]string, error) {
	if len(d.config.Inputs) > 0 {
		if len(d.sources) > 0 {
			d.tracer(TraceInputs).Debug("script inputs overridden", "script", d.sources, "options", d.config.Inputs)
		}
		return append([]string{}, d.config.Inputs...), nil
	}
	if len(d.sources) > 0 {
		return d.ScriptInputs(), nil
	}
	if d.inputs.Len() == 1 {
		if name, ok := d.inputs.All()[0].DefaultLabel(); ok {
			return []string{name}, nil
		}
	}
	return nil, newError(NoInputSource, pos, "no input source: add an 'input:' statement or use '--input'")
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
