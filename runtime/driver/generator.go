package driver

import (
	"github.com/opal-lang/ischeme/core/invariant"
	"github.com/opal-lang/ischeme/core/planfmt"
)

// CommandGenerator cross-multiplies input sources with the resolved option
// blocks. For every source, in order, and every selection, in order, it emits
// one command made of the tool, the source, the main block's options, the
// options of the input axes naming that source and the selected block's
// options. Without selections each source yields a single command.
type CommandGenerator struct {
	Tool       string
	Sources    []string
	Main       *OptionsBlock
	Inputs     *Table
	Selections []Selection
}

// Generate builds the command plan.
func (g *CommandGenerator) Generate() *planfmt.Plan {
	invariant.Precondition(g.Tool != "", "tool must be set")
	invariant.NotNil(g.Main, "main options block")

	p := &planfmt.Plan{}
	for _, source := range g.Sources {
		base := append([]string{}, g.Main.Args()...)
		if g.Inputs != nil {
			for _, in := range g.Inputs.All() {
				if b := in.Block(source); b != nil {
					base = append(base, b.Args()...)
				}
			}
		}

		if len(g.Selections) == 0 {
			p.Commands = append(p.Commands, planfmt.Command{
				Tool:  g.Tool,
				Input: source,
				Args:  base,
			})
			continue
		}

		for _, sel := range g.Selections {
			args := make([]string, 0, len(base)+sel.Block().Len()*2)
			args = append(args, base...)
			args = append(args, sel.Block().Args()...)
			p.Commands = append(p.Commands, planfmt.Command{
				Tool:   g.Tool,
				Input:  source,
				Choice: sel.Choice.Name(),
				Label:  sel.Label,
				Args:   args,
			})
		}
	}

	invariant.Postcondition(len(p.Commands) == len(g.Sources)*max(1, len(g.Selections)),
		"plan has %d commands for %d sources and %d selections",
		len(p.Commands), len(g.Sources), len(g.Selections))
	return p
}
