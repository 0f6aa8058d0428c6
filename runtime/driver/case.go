package driver

import (
	"strings"

	"github.com/opal-lang/ischeme/core/invariant"
)

// CaseChecker tracks one case statement while it is being parsed: which
// labels of its subject have been used so far and which labels the current
// alternative applies to. A case statement must use every label exactly once.
type CaseChecker struct {
	subject       *Choice
	pos           Pos
	used          map[string]bool
	current       []string
	inAlternative bool
	closed        bool
}

func newCaseChecker(subject *Choice, pos Pos) *CaseChecker {
	invariant.NotNil(subject, "case subject")
	return &CaseChecker{
		subject: subject,
		pos:     pos,
		used:    make(map[string]bool),
	}
}

// Subject returns the choice or input the case statement is over.
func (c *CaseChecker) Subject() *Choice { return c.subject }

// BeginAlternative starts a new alternative with no labels.
func (c *CaseChecker) BeginAlternative() {
	invariant.Precondition(!c.closed, "case statement over '%s' is closed", c.subject.Name())
	invariant.Precondition(!c.inAlternative, "alternative already open in case statement over '%s'", c.subject.Name())
	c.current = nil
	c.inAlternative = true
}

// AddLabel adds label to the current alternative.
func (c *CaseChecker) AddLabel(label string, pos Pos) error {
	invariant.Precondition(c.inAlternative, "no open alternative in case statement over '%s'", c.subject.Name())

	if !c.subject.HasLabel(label) {
		d := newError(UnknownLabel, pos,
			"label '%s' is not a label of %s '%s'", label, c.subject.Kind(), c.subject.Name())
		d.Suggestion = findClosestMatch(label, c.subject.labels)
		return d
	}
	if c.used[label] {
		return newError(DuplicateLabelInCaseStatement, pos,
			"label '%s' occurs more than once in case statement over %s '%s'",
			label, c.subject.Kind(), c.subject.Name())
	}
	c.used[label] = true
	c.current = append(c.current, label)
	return nil
}

// CurrentLabels returns the labels of the open alternative.
func (c *CaseChecker) CurrentLabels() []string {
	out := make([]string, len(c.current))
	copy(out, c.current)
	return out
}

// EndAlternative closes the current alternative and returns its labels.
func (c *CaseChecker) EndAlternative() []string {
	invariant.Precondition(c.inAlternative, "no open alternative in case statement over '%s'", c.subject.Name())
	invariant.Invariant(len(c.current) > 0, "alternative without labels in case statement over '%s'", c.subject.Name())
	c.inAlternative = false
	return c.CurrentLabels()
}

// UsedLabels returns the labels used so far, in declaration order.
func (c *CaseChecker) UsedLabels() []string {
	return c.filterLabels(true)
}

// UnusedLabels returns the labels not used yet, in declaration order.
func (c *CaseChecker) UnusedLabels() []string {
	return c.filterLabels(false)
}

func (c *CaseChecker) filterLabels(used bool) []string {
	var out []string
	for _, l := range c.subject.labels {
		if c.used[l] == used {
			out = append(out, l)
		}
	}
	return out
}

// Close ends the case statement and fails if some labels were never used.
func (c *CaseChecker) Close(pos Pos) error {
	invariant.Precondition(!c.inAlternative, "case statement over '%s' closed inside an alternative", c.subject.Name())
	invariant.Precondition(!c.closed, "case statement over '%s' closed twice", c.subject.Name())
	c.closed = true

	unused := c.UnusedLabels()
	if len(unused) == 0 {
		return nil
	}
	d := newError(IncompleteCaseStatement, pos,
		"case statement over %s '%s' (line %d) does not use label(s): %s",
		c.subject.Kind(), c.subject.Name(), c.pos.Line, strings.Join(unused, ", "))
	d.Related = unused
	return d
}
