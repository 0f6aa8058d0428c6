package lexer

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tokenExpectation represents expected token for table-driven tests
type tokenExpectation struct {
	Type   TokenType
	Text   string
	Line   int
	Column int
}

// assertTokens compares actual tokens with expected, providing clear error messages
func assertTokens(t *testing.T, input string, expected []tokenExpectation) {
	t.Helper()

	tokens := NewLexer(input).GetTokens()
	var actual []tokenExpectation
	for _, token := range tokens {
		actual = append(actual, tokenExpectation{
			Type:   token.Type,
			Text:   token.String(),
			Line:   token.Position.Line,
			Column: token.Position.Column,
		})
	}

	if diff := cmp.Diff(expected, actual); diff != "" {
		t.Errorf("token mismatch (-expected +actual):\n%s", diff)
	}
}

func TestEmptyInput(t *testing.T) {
	assertTokens(t, "", []tokenExpectation{
		{EOF, "", 1, 1},
	})
}

func TestStatements(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []tokenExpectation
	}{
		{
			name:  "tool",
			input: "tool: xml2ly;",
			expected: []tokenExpectation{
				{TOOL, "tool", 1, 1},
				{COLON, "", 1, 5},
				{NAME, "xml2ly", 1, 7},
				{SEMICOLON, "", 1, 13},
				{EOF, "", 1, 14},
			},
		},
		{
			name:  "input_path",
			input: "input: ../scores/piece.xml;",
			expected: []tokenExpectation{
				{INPUT, "input", 1, 1},
				{COLON, "", 1, 6},
				{NAME, "../scores/piece.xml", 1, 8},
				{SEMICOLON, "", 1, 27},
				{EOF, "", 1, 28},
			},
		},
		{
			name:  "options",
			input: `-title "Hello" -page-size A4`,
			expected: []tokenExpectation{
				{OPTION, "-title", 1, 1},
				{STRING, `"Hello"`, 1, 8},
				{OPTION, "-page-size", 1, 16},
				{NAME, "A4", 1, 27},
				{EOF, "", 1, 29},
			},
		},
		{
			name:  "double_dash_option",
			input: "--lilypond-run-date",
			expected: []tokenExpectation{
				{OPTION, "--lilypond-run-date", 1, 1},
				{EOF, "", 1, 20},
			},
		},
		{
			name:  "choice_across_lines",
			input: "# header\nchoice layout : score | part ,\n  default : score ;",
			expected: []tokenExpectation{
				{CHOICE, "choice", 2, 1},
				{NAME, "layout", 2, 8},
				{COLON, "", 2, 15},
				{NAME, "score", 2, 17},
				{BAR, "", 2, 23},
				{NAME, "part", 2, 25},
				{COMMA, "", 2, 30},
				{DEFAULT, "default", 3, 3},
				{COLON, "", 3, 11},
				{NAME, "score", 3, 13},
				{SEMICOLON, "", 3, 19},
				{EOF, "", 3, 20},
			},
		},
		{
			name:  "name_value_pair",
			input: "-x staff=2",
			expected: []tokenExpectation{
				{OPTION, "-x", 1, 1},
				{NAME, "staff", 1, 4},
				{EQUALS, "", 1, 9},
				{INTEGER, "2", 1, 10},
				{EOF, "", 1, 11},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertTokens(t, tt.input, tt.expected)
		})
	}
}

func TestNumbers(t *testing.T) {
	assertTokens(t, "12 -3 1.5 12pt 1.", []tokenExpectation{
		{INTEGER, "12", 1, 1},
		{INTEGER, "-3", 1, 4},
		{DOUBLE, "1.5", 1, 7},
		{NAME, "12pt", 1, 11},
		{NAME, "1.", 1, 16},
		{EOF, "", 1, 18},
	})
}

func TestKeywords(t *testing.T) {
	tokens := NewLexer("tool input choice default case select every all").GetTokens()
	var types []TokenType
	for _, tok := range tokens {
		types = append(types, tok.Type)
	}
	assert.Equal(t, []TokenType{TOOL, INPUT, CHOICE, DEFAULT, CASE, SELECT, EVERY, NAME, EOF}, types)
	for _, tok := range tokens[:7] {
		assert.True(t, tok.Type.IsKeyword(), tok.Type.String())
	}
	assert.False(t, NAME.IsKeyword())
}

func TestStringValues(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{`"plain"`, "plain"},
		{`'it\'s'`, "it's"},
		{`"a\tb"`, "a\tb"},
		{`"x\\y"`, `x\y`},
		{`""`, ""},
		{`"Gloria in excelsis"`, "Gloria in excelsis"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			tok := NewLexer(tt.input).NextToken()
			require.Equal(t, STRING, tok.Type)
			assert.Equal(t, tt.want, tok.Value())
		})
	}
}

func TestIllegal(t *testing.T) {
	tests := []struct {
		name  string
		input string
		text  string
		err   string
	}{
		{"unterminated", `"abc`, `"abc`, "unterminated string"},
		{"newline_in_string", "'abc\n'", "'abc", "unterminated string"},
		{"stray_character", "@", "@", "unexpected character"},
		{"lone_dash", "- x", "-", "option name expected after '-'"},
		{"unicode", "é", "é", "unexpected character"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tok := NewLexer(tt.input).NextToken()
			assert.Equal(t, ILLEGAL, tok.Type)
			assert.Equal(t, tt.text, tok.String())
			assert.Equal(t, tt.err, tok.Err)
		})
	}
}

func TestHasSpaceBefore(t *testing.T) {
	tokens := NewLexer("a  b;# c\nd").GetTokens()
	require.Len(t, tokens, 5)
	assert.False(t, tokens[0].HasSpaceBefore)
	assert.True(t, tokens[1].HasSpaceBefore)
	assert.False(t, tokens[2].HasSpaceBefore)
	assert.True(t, tokens[3].HasSpaceBefore)
}

func TestOffsets(t *testing.T) {
	tokens := NewLexer("tool:\n  x;").GetTokens()
	require.Len(t, tokens, 5)
	assert.Equal(t, Position{Line: 2, Column: 3, Offset: 8}, tokens[2].Position)
}

func TestEOFIsSticky(t *testing.T) {
	l := NewLexer("x")
	assert.Equal(t, NAME, l.NextToken().Type)
	assert.Equal(t, EOF, l.NextToken().Type)
	assert.Equal(t, EOF, l.NextToken().Type)
}

func TestTraceLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	NewLexer("tool", WithLogger(logger)).GetTokens()
	assert.Contains(t, buf.String(), "type=TOOL")
	assert.Contains(t, buf.String(), "type=EOF")
}

func TestTokenTypeDescribe(t *testing.T) {
	assert.Equal(t, "';'", SEMICOLON.Describe())
	assert.Equal(t, "'case'", CASE.Describe())
	assert.Equal(t, "end of script", EOF.Describe())
	assert.Equal(t, "a name", NAME.Describe())
}
