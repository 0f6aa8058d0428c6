package driver

import (
	"strings"

	"github.com/opal-lang/ischeme/core/planfmt"
)

// Option is a single (name, value) pair bound for the tool's command line.
// An option without a value renders as a bare flag. HasValue marks a value
// written in the script even when it is empty, as in -title "".
type Option struct {
	Name     string `yaml:"name"`
	Value    string `yaml:"value,omitempty"`
	HasValue bool   `yaml:"hasValue,omitempty"`
}

func (o Option) bare() bool { return o.Value == "" && !o.HasValue }

// Args returns the command-line words of the option.
func (o Option) Args() []string {
	if o.bare() {
		return []string{o.Name}
	}
	return []string{o.Name, o.Value}
}

// String renders the option as it appears in a command line.
func (o Option) String() string {
	if o.bare() {
		return planfmt.Quote(o.Name)
	}
	return planfmt.Quote(o.Name) + " " + planfmt.Quote(o.Value)
}

// OptionsBlock is an ordered, named collection of options.
// Insertion order is preserved and duplicates are kept.
type OptionsBlock struct {
	name    string
	entries []Option
}

// NewOptionsBlock creates an empty block.
func NewOptionsBlock(name string) *OptionsBlock {
	return &OptionsBlock{name: name}
}

func (b *OptionsBlock) Name() string { return b.name }
func (b *OptionsBlock) Len() int     { return len(b.entries) }

// Options returns a copy of the entries in insertion order.
func (b *OptionsBlock) Options() []Option {
	out := make([]Option, len(b.entries))
	copy(out, b.entries)
	return out
}

// Append adds an option at the end of the block.
func (b *OptionsBlock) Append(opt Option) {
	b.entries = append(b.entries, opt)
}

// MergeFrom appends all of other's entries after the block's own.
func (b *OptionsBlock) MergeFrom(other *OptionsBlock) {
	b.entries = append(b.entries, other.entries...)
}

// Args flattens the block into command-line words.
func (b *OptionsBlock) Args() []string {
	var args []string
	for _, opt := range b.entries {
		args = append(args, opt.Args()...)
	}
	return args
}

// AsOptionsString renders the block as space separated, shell quoted options.
func (b *OptionsBlock) AsOptionsString() string {
	parts := make([]string, len(b.entries))
	for i, opt := range b.entries {
		parts[i] = opt.String()
	}
	return strings.Join(parts, " ")
}
