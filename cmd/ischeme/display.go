package main

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/opal-lang/ischeme/core/planfmt"
	"github.com/opal-lang/ischeme/runtime/driver"
	"github.com/opal-lang/ischeme/runtime/lexer"
)

// DisplayTokens lists the script tokens with their positions
func DisplayTokens(w io.Writer, source []byte) {
	lex := lexer.NewLexer(string(source))
	for _, tok := range lex.GetTokens() {
		text := tok.String()
		if tok.Err != "" {
			text += "  (" + tok.Err + ")"
		}
		_, _ = fmt.Fprintf(w, "%4d:%-3d %-9s %s\n", tok.Position.Line, tok.Position.Column, tok.Type, text)
	}
}

// DisplayToolAndInput shows the tool, the input sources and the commands
// of the plan
func DisplayToolAndInput(w io.Writer, st styles, d *driver.Driver) {
	plan := d.Plan()

	var sources []string
	for _, c := range plan.Commands {
		if len(sources) == 0 || sources[len(sources)-1] != c.Input {
			sources = append(sources, c.Input)
		}
	}

	_, _ = fmt.Fprintf(w, "%s %s\n", st.heading.Render("Tool:"), d.Tool())
	_, _ = fmt.Fprintf(w, "%s %s\n", st.heading.Render("Inputs:"), strings.Join(sources, ", "))
	_, _ = fmt.Fprintf(w, "%s\n", st.heading.Render(fmt.Sprintf("Commands (%d):", plan.Len())))
	for i, line := range plan.Lines() {
		_, _ = fmt.Fprintf(w, "%s %s\n", st.dim.Render(fmt.Sprintf("%3d.", i+1)), st.command.Render(line))
	}
}

// DisplayOptions shows the main block and the block of every label
func DisplayOptions(w io.Writer, st styles, snap driver.Snapshot) {
	_, _ = fmt.Fprintln(w, st.heading.Render("Main options:"))
	writeOptions(w, st, "  ", snap.MainOptions)

	axes := []struct {
		title string
		dumps []driver.ChoiceDump
	}{
		{"Choice", snap.Choices},
		{"Input", snap.InputAxes},
	}
	for _, axis := range axes {
		for _, c := range axis.dumps {
			header := fmt.Sprintf("%s '%s'", axis.title, c.Name)
			if c.Default != "" {
				header += fmt.Sprintf(" (default: %s)", c.Default)
			}
			_, _ = fmt.Fprintln(w, st.heading.Render(header+":"))
			for _, l := range c.Labels {
				_, _ = fmt.Fprintf(w, "  %s\n", l.Label)
				writeOptions(w, st, "    ", l.Options)
			}
		}
	}
}

func writeOptions(w io.Writer, st styles, indent string, opts []driver.Option) {
	if len(opts) == 0 {
		_, _ = fmt.Fprintf(w, "%s%s\n", indent, st.dim.Render("(none)"))
		return
	}
	for _, o := range opts {
		_, _ = fmt.Fprintf(w, "%s%s\n", indent, o.String())
	}
}

// WritePlanFile writes the encoded plan to path and returns its hex digest
func WritePlanFile(path string, plan *planfmt.Plan) (string, error) {
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create plan file: %w", err)
	}
	digest, err := planfmt.Write(f, plan)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return "", fmt.Errorf("write plan file %s: %w", path, err)
	}
	return hex.EncodeToString(digest[:]), nil
}
