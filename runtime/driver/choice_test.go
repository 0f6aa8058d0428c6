package driver

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func layoutTable(t *testing.T) *Table {
	t.Helper()
	tbl := NewTable(KindChoice)
	_, err := tbl.Declare("layout", Pos{Line: 1, Column: 8})
	require.NoError(t, err)
	require.NoError(t, tbl.AddLabel("layout", "score", Pos{Line: 1, Column: 17}))
	require.NoError(t, tbl.AddLabel("layout", "part", Pos{Line: 1, Column: 25}))
	require.NoError(t, tbl.SetDefaultLabel("layout", "score", Pos{Line: 1, Column: 40}))
	return tbl
}

func TestTableDeclare(t *testing.T) {
	tbl := layoutTable(t)

	c := tbl.Get("layout")
	require.NotNil(t, c)
	assert.Equal(t, KindChoice, c.Kind())
	assert.Equal(t, []string{"score", "part"}, c.Labels())
	def, ok := c.DefaultLabel()
	assert.True(t, ok)
	assert.Equal(t, "score", def)
	assert.NotNil(t, c.Block("score"))
	assert.Equal(t, "layout:score", c.Block("score").Name())
	assert.Nil(t, c.Block("nope"))
	assert.Equal(t, SelectionNone, c.State())
	assert.False(t, c.UsedInCaseStatement())
	assert.Equal(t, []string{"layout"}, tbl.Names())
}

func TestTableErrors(t *testing.T) {
	tests := []struct {
		name       string
		action     func(tbl *Table) error
		kind       error
		message    string
		suggestion string
	}{
		{
			name:    "duplicate declaration",
			action:  func(tbl *Table) error { _, err := tbl.Declare("layout", Pos{Line: 4, Column: 1}); return err },
			kind:    ErrDuplicateDeclaration,
			message: "4:1: choice 'layout' is already declared at 1:8",
		},
		{
			name:    "duplicate label",
			action:  func(tbl *Table) error { return tbl.AddLabel("layout", "part", Pos{Line: 2, Column: 3}) },
			kind:    ErrDuplicateLabel,
			message: "2:3: label 'part' occurs more than once in choice 'layout'",
		},
		{
			name:    "reserved label",
			action:  func(tbl *Table) error { return tbl.AddLabel("layout", "ALL", Pos{Line: 2, Column: 3}) },
			kind:    ErrReservedLabel,
			message: "2:3: label 'ALL' is reserved and cannot be used in choice 'layout'",
		},
		{
			name:       "default not in choice",
			action:     func(tbl *Table) error { return tbl.SetDefaultLabel("layout", "scor", Pos{Line: 2, Column: 3}) },
			kind:       ErrLabelNotInChoice,
			message:    "2:3: default label 'scor' is not a label of choice 'layout' (did you mean 'score'?)",
			suggestion: "score",
		},
		{
			name:       "unknown name",
			action:     func(tbl *Table) error { _, err := tbl.Lookup("layuot", Pos{Line: 9, Column: 6}); return err },
			kind:       ErrUnknownName,
			message:    "9:6: choice 'layuot' is unknown (did you mean 'layout'?)",
			suggestion: "layout",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.action(layoutTable(t))
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.kind), "expected %v, got %v", tt.kind, err)
			assert.Equal(t, tt.message, err.Error())

			d, ok := AsDiagnostic(err)
			require.True(t, ok)
			assert.Equal(t, tt.suggestion, d.Suggestion)
			assert.False(t, d.IsWarning())
		})
	}
}

func TestLookupWithoutCandidates(t *testing.T) {
	_, err := NewTable(KindInput).Lookup("voice", Pos{})
	require.Error(t, err)
	assert.Equal(t, "input 'voice' is unknown", err.Error())
}

func TestIsAllLabels(t *testing.T) {
	for _, s := range []string{"all", "ALL", "All"} {
		assert.True(t, IsAllLabels(s), s)
	}
	assert.False(t, IsAllLabels("alla"))
}

func TestFindClosestMatch(t *testing.T) {
	candidates := []string{"score", "part", "parts", "conductor"}
	tests := []struct {
		target string
		want   string
	}{
		{"par", "part"},
		{"cond", "conductor"},
		{"scroe", "score"},
		{"xyzzy", ""},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			assert.Equal(t, tt.want, findClosestMatch(tt.target, candidates))
		})
	}
	assert.Equal(t, "", findClosestMatch("x", nil))
}
