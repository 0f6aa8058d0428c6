package driver

import (
	"strings"

	"github.com/opal-lang/ischeme/core/invariant"
)

// AllLabels is the pseudo label selecting every label of a choice.
// It is matched case-insensitively and cannot be declared as a label.
const AllLabels = "all"

// IsAllLabels reports whether label is the "all" pseudo label.
func IsAllLabels(label string) bool {
	return strings.EqualFold(label, AllLabels)
}

// Kind tells choices from inputs.
type Kind int

const (
	KindChoice Kind = iota
	KindInput
)

func (k Kind) String() string {
	if k == KindInput {
		return "input"
	}
	return "choice"
}

// SelectionState records how a choice's labels were selected.
type SelectionState int

const (
	SelectionNone SelectionState = iota
	SelectionSuppliedByOption
	SelectionSetInScript
)

func (s SelectionState) String() string {
	switch s {
	case SelectionSuppliedByOption:
		return "supplied by option"
	case SelectionSetInScript:
		return "set in script"
	default:
		return "none"
	}
}

// Choice is a named, finite set of labels with one options block per label.
// Inputs share the same structure, keyed on input-source names.
type Choice struct {
	kind         Kind
	name         string
	declaredAt   Pos
	labels       []string
	blocks       map[string]*OptionsBlock
	defaultLabel string
	state        SelectionState
	selected     []string
	usedInCase   bool
}

func newChoice(kind Kind, name string, pos Pos) *Choice {
	return &Choice{
		kind:       kind,
		name:       name,
		declaredAt: pos,
		blocks:     make(map[string]*OptionsBlock),
	}
}

func (c *Choice) Kind() Kind                 { return c.kind }
func (c *Choice) Name() string               { return c.name }
func (c *Choice) DeclaredAt() Pos            { return c.declaredAt }
func (c *Choice) State() SelectionState      { return c.state }
func (c *Choice) UsedInCaseStatement() bool  { return c.usedInCase }
func (c *Choice) HasLabel(label string) bool { return c.blocks[label] != nil }

// Labels returns the labels in declaration order.
func (c *Choice) Labels() []string {
	out := make([]string, len(c.labels))
	copy(out, c.labels)
	return out
}

// DefaultLabel returns the default label, if one was declared.
func (c *Choice) DefaultLabel() (string, bool) {
	return c.defaultLabel, c.defaultLabel != ""
}

// Block returns the options block of label, or nil for an unknown label.
func (c *Choice) Block(label string) *OptionsBlock {
	return c.blocks[label]
}

// Selected returns the labels selected so far, in selection order.
func (c *Choice) Selected() []string {
	out := make([]string, len(c.selected))
	copy(out, c.selected)
	return out
}

// Table is a name-indexed registry of choices or of inputs.
type Table struct {
	kind    Kind
	entries map[string]*Choice
	order   []string
}

// NewTable creates an empty registry for kind.
func NewTable(kind Kind) *Table {
	return &Table{
		kind:    kind,
		entries: make(map[string]*Choice),
	}
}

func (t *Table) Kind() Kind { return t.kind }
func (t *Table) Len() int   { return len(t.order) }

// Names returns the declared names in declaration order.
func (t *Table) Names() []string {
	out := make([]string, len(t.order))
	copy(out, t.order)
	return out
}

// All returns the entries in declaration order.
func (t *Table) All() []*Choice {
	out := make([]*Choice, len(t.order))
	for i, name := range t.order {
		out[i] = t.entries[name]
	}
	return out
}

// Get returns the entry for name, or nil.
func (t *Table) Get(name string) *Choice {
	return t.entries[name]
}

// Declare registers a new entry. A name can only be declared once.
func (t *Table) Declare(name string, pos Pos) (*Choice, error) {
	if prev := t.entries[name]; prev != nil {
		return nil, newError(DuplicateDeclaration, pos,
			"%s '%s' is already declared at %s", t.kind, name, prev.declaredAt)
	}
	c := newChoice(t.kind, name, pos)
	t.entries[name] = c
	t.order = append(t.order, name)
	return c, nil
}

// AddLabel adds label to the entry name and creates the label's empty block.
func (t *Table) AddLabel(name, label string, pos Pos) error {
	c := t.entries[name]
	invariant.NotNil(c, "declared "+t.kind.String())

	if IsAllLabels(label) {
		return newError(ReservedLabel, pos,
			"label '%s' is reserved and cannot be used in %s '%s'", label, t.kind, name)
	}
	if c.HasLabel(label) {
		return newError(DuplicateLabel, pos,
			"label '%s' occurs more than once in %s '%s'", label, t.kind, name)
	}
	c.labels = append(c.labels, label)
	c.blocks[label] = NewOptionsBlock(name + ":" + label)
	return nil
}

// SetDefaultLabel sets the default label of the entry name.
func (t *Table) SetDefaultLabel(name, label string, pos Pos) error {
	c := t.entries[name]
	invariant.NotNil(c, "declared "+t.kind.String())

	if !c.HasLabel(label) {
		d := newError(LabelNotInChoice, pos,
			"default label '%s' is not a label of %s '%s'", label, t.kind, name)
		d.Suggestion = findClosestMatch(label, c.labels)
		return d
	}
	c.defaultLabel = label
	return nil
}

// Lookup returns the entry for name or an UnknownName diagnostic.
func (t *Table) Lookup(name string, pos Pos) (*Choice, error) {
	if c := t.entries[name]; c != nil {
		return c, nil
	}
	d := newError(UnknownName, pos, "%s '%s' is unknown", t.kind, name)
	d.Suggestion = findClosestMatch(name, t.order)
	return nil, d
}
