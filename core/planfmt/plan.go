// Package planfmt defines the command plan produced by the iScheme driver
// and its deterministic binary form.
//
// A plan is an ordered list of fully resolved tool invocations. It can be
// rendered as shell command lines, encoded to canonical CBOR, hashed with
// BLAKE2b-256 and written to or read from a plan file.
package planfmt

import (
	"fmt"
	"strings"

	"mvdan.cc/sh/v3/syntax"
)

// Plan is the ordered list of commands to launch.
type Plan struct {
	Commands []Command `cbor:"1,keyasint"`
}

// Command is one resolved tool invocation.
type Command struct {
	Tool   string   `cbor:"1,keyasint"`
	Input  string   `cbor:"2,keyasint"`
	Choice string   `cbor:"3,keyasint,omitempty"` // empty when no choice block applies
	Label  string   `cbor:"4,keyasint,omitempty"`
	Args   []string `cbor:"5,keyasint"`
}

// Line renders the command as a single shell command line:
// tool, input, then the option arguments, each quoted only when needed.
func (c Command) Line() string {
	parts := make([]string, 0, len(c.Args)+2)
	parts = append(parts, Quote(c.Tool), Quote(c.Input))
	for _, arg := range c.Args {
		parts = append(parts, Quote(arg))
	}
	return strings.Join(parts, " ")
}

// Argv returns the command as an argument vector for direct execution.
func (c Command) Argv() []string {
	argv := make([]string, 0, len(c.Args)+2)
	argv = append(argv, c.Tool, c.Input)
	return append(argv, c.Args...)
}

// Lines renders every command of the plan.
func (p *Plan) Lines() []string {
	lines := make([]string, len(p.Commands))
	for i, c := range p.Commands {
		lines[i] = c.Line()
	}
	return lines
}

// Len returns the number of commands.
func (p *Plan) Len() int {
	return len(p.Commands)
}

// Quote returns s unchanged when the shell would read it back as a single
// word, and a quoted form otherwise.
func Quote(s string) string {
	q, err := syntax.Quote(s, syntax.LangBash)
	if err != nil {
		// Only reachable for strings bash cannot represent, such as NUL bytes.
		return fmt.Sprintf("%q", s)
	}
	return q
}
