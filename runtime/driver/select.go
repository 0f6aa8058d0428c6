package driver

import (
	"fmt"
	"log/slog"
	"strings"
)

// Directive asks for one label of a choice, or every label with "all".
type Directive struct {
	Choice string
	Label  string
}

// ParseDirective parses the CHOICE:LABEL form used on the command line.
func ParseDirective(s string) (Directive, error) {
	choice, label, ok := strings.Cut(s, ":")
	choice, label = strings.TrimSpace(choice), strings.TrimSpace(label)
	if !ok || choice == "" || label == "" {
		return Directive{}, fmt.Errorf("invalid select %q: expected CHOICE:LABEL", s)
	}
	return Directive{Choice: choice, Label: label}, nil
}

func (d Directive) String() string {
	return d.Choice + ":" + d.Label
}

// Selection is one resolved (choice, label) pair whose block takes part in
// command generation.
type Selection struct {
	Choice *Choice
	Label  string
}

// Block returns the options block of the selected label.
func (s Selection) Block() *OptionsBlock {
	return s.Choice.Block(s.Label)
}

// SelectResolver decides which labels are in force. Directives given as
// command-line options take precedence over select statements in the script.
type SelectResolver struct {
	choices    *Table
	directives []Directive
	overridden map[string]bool
	selections []Selection
	warn       func(*Diagnostic)
	logger     *slog.Logger
}

func newSelectResolver(choices *Table, directives []Directive, warn func(*Diagnostic), logger *slog.Logger) *SelectResolver {
	r := &SelectResolver{
		choices:    choices,
		directives: directives,
		overridden: make(map[string]bool),
		warn:       warn,
		logger:     logger,
	}
	for _, d := range directives {
		r.overridden[d.Choice] = true
	}
	return r
}

// Selections returns the selections made so far.
func (r *SelectResolver) Selections() []Selection {
	out := make([]Selection, len(r.selections))
	copy(out, r.selections)
	return out
}

// SelectInScript handles a select statement of the script. It is ignored,
// with a warning, when a command-line directive names the same choice.
func (r *SelectResolver) SelectInScript(choiceName, label string, pos Pos) error {
	c, err := r.lookup(choiceName, pos)
	if err != nil {
		return err
	}
	if r.overridden[choiceName] {
		r.warn(newWarning(pos,
			"'select' label '%s' for choice '%s' ignored, it is overridden by a '--select' option",
			label, choiceName))
		return nil
	}
	return r.selectLabels(c, label, SelectionSetInScript, pos)
}

// ApplyOptionDirectives resolves the command-line directives in order.
func (r *SelectResolver) ApplyOptionDirectives() error {
	for _, d := range r.directives {
		c, err := r.lookup(d.Choice, Pos{})
		if err != nil {
			return err
		}
		if err := r.selectLabels(c, d.Label, SelectionSuppliedByOption, Pos{}); err != nil {
			return err
		}
		if !c.usedInCase {
			r.warn(newWarning(Pos{},
				"choice '%s' supplied by option '--select %s' has not been used in any case statement",
				d.Choice, d))
		}
	}
	return nil
}

// Resolve returns the final selections. When nothing was selected, a script
// with a single choice falls back to its default label. With several
// choices the selection is ambiguous, unless no case statement over a
// choice occurred: every choice block is then empty and the main block
// alone is used.
func (r *SelectResolver) Resolve(choiceCaseOccurred bool, pos Pos) ([]Selection, error) {
	if len(r.selections) > 0 {
		return r.Selections(), nil
	}

	switch r.choices.Len() {
	case 0:
		return nil, nil
	case 1:
		c := r.choices.All()[0]
		label, ok := c.DefaultLabel()
		if !ok {
			return nil, newError(MissingDefaultLabel, pos,
				"no label selected for choice '%s' and it has no default label", c.Name())
		}
		r.logger.Debug("using default label", "choice", c.Name(), "label", label)
		c.selected = append(c.selected, label)
		r.selections = append(r.selections, Selection{Choice: c, Label: label})
		return r.Selections(), nil
	default:
		if !choiceCaseOccurred {
			return nil, nil
		}
		names := r.choices.Names()
		d := newError(AmbiguousChoiceSelection, pos,
			"%d choices are declared (%s) but none is selected, use 'select' or '--select'",
			len(names), strings.Join(names, ", "))
		d.Related = names
		return nil, d
	}
}

func (r *SelectResolver) lookup(name string, pos Pos) (*Choice, error) {
	c := r.choices.Get(name)
	if c != nil {
		return c, nil
	}
	d := newError(UnknownChoiceInSelect, pos, "choice '%s' in select is unknown", name)
	d.Suggestion = findClosestMatch(name, r.choices.Names())
	return nil, d
}

func (r *SelectResolver) selectLabels(c *Choice, label string, state SelectionState, pos Pos) error {
	var labels []string
	switch {
	case IsAllLabels(label):
		labels = c.labels
	case c.HasLabel(label):
		labels = []string{label}
	default:
		d := newError(UnknownLabelInSelect, pos,
			"label '%s' in select is not a label of choice '%s'", label, c.Name())
		d.Suggestion = findClosestMatch(label, c.labels)
		return d
	}

	c.state = state
	for _, l := range labels {
		if r.isSelected(c, l) {
			r.warn(newWarning(pos, "label '%s' of choice '%s' is already selected", l, c.Name()))
			continue
		}
		r.logger.Debug("selected", "choice", c.Name(), "label", l, "state", state.String())
		c.selected = append(c.selected, l)
		r.selections = append(r.selections, Selection{Choice: c, Label: l})
	}
	return nil
}

func (r *SelectResolver) isSelected(c *Choice, label string) bool {
	for _, l := range c.selected {
		if l == label {
			return true
		}
	}
	return false
}
