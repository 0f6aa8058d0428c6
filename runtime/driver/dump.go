package driver

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Snapshot is a structured view of the driver state for display modes.
type Snapshot struct {
	Tool        string          `yaml:"tool"`
	Inputs      []string        `yaml:"inputs,omitempty"`
	MainOptions []Option        `yaml:"mainOptions,omitempty"`
	Scopes      []string        `yaml:"scopes"`
	Choices     []ChoiceDump    `yaml:"choices,omitempty"`
	InputAxes   []ChoiceDump    `yaml:"inputAxes,omitempty"`
	Selected    []SelectionDump `yaml:"selected,omitempty"`
	Warnings    []string        `yaml:"warnings,omitempty"`
}

// ChoiceDump describes one choice or input axis.
type ChoiceDump struct {
	Name       string      `yaml:"name"`
	Default    string      `yaml:"default,omitempty"`
	State      string      `yaml:"state"`
	UsedInCase bool        `yaml:"usedInCase"`
	Labels     []LabelDump `yaml:"labels"`
}

// LabelDump is one label with its accumulated options.
type LabelDump struct {
	Label   string   `yaml:"label"`
	Options []Option `yaml:"options,omitempty"`
}

// SelectionDump is one resolved (choice, label) pair.
type SelectionDump struct {
	Choice string `yaml:"choice"`
	Label  string `yaml:"label"`
}

// Snapshot captures the current state of the registries and scope stack.
func (d *Driver) Snapshot() Snapshot {
	s := Snapshot{
		Tool:      d.tool,
		Inputs:    d.ScriptInputs(),
		Scopes:    d.scopes.Names(),
		Choices:   dumpTable(d.choices),
		InputAxes: dumpTable(d.inputs),
	}
	if d.scopes.Depth() > 0 {
		s.MainOptions = d.scopes.Main().Options()
	}
	for _, sel := range d.resolver.Selections() {
		s.Selected = append(s.Selected, SelectionDump{Choice: sel.Choice.Name(), Label: sel.Label})
	}
	for _, w := range d.warnings {
		s.Warnings = append(s.Warnings, w.Error())
	}
	return s
}

func dumpTable(t *Table) []ChoiceDump {
	var out []ChoiceDump
	for _, c := range t.All() {
		cd := ChoiceDump{
			Name:       c.Name(),
			Default:    c.defaultLabel,
			State:      c.State().String(),
			UsedInCase: c.UsedInCaseStatement(),
		}
		for _, l := range c.labels {
			cd.Labels = append(cd.Labels, LabelDump{Label: l, Options: c.Block(l).Options()})
		}
		out = append(out, cd)
	}
	return out
}

// DumpYAML writes the snapshot as YAML.
func (d *Driver) DumpYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(d.Snapshot()); err != nil {
		return fmt.Errorf("dump driver state: %w", err)
	}
	return enc.Close()
}
