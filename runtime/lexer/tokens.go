package lexer

import (
	"strings"
)

// TokenType represents lexical tokens of the iScheme script language
type TokenType int

const (
	// Special tokens
	EOF TokenType = iota
	ILLEGAL

	// Keywords
	TOOL    // tool
	INPUT   // input
	CHOICE  // choice
	DEFAULT // default
	CASE    // case
	SELECT  // select
	EVERY   // every

	// Punctuation
	COLON     // :
	SEMICOLON // ;
	COMMA     // ,
	BAR       // |
	EQUALS    // =

	// Literals and content
	NAME    // piece.xml, layout, A4
	OPTION  // -title, --page-size
	INTEGER // 12, -3
	DOUBLE  // 1.5, -0.25
	STRING  // "text" or 'text', quotes included in Text
)

// Token represents a lexical token
type Token struct {
	Type           TokenType
	Text           []byte // Raw source bytes; nil for self-identifying tokens
	Position       Position
	HasSpaceBefore bool // True if whitespace or a comment preceded this token
	Err            string
}

// String returns the token text as a string (for testing and debugging)
func (t Token) String() string {
	if t.Text == nil {
		return ""
	}
	return string(t.Text)
}

// Value returns the semantic value of the token: the unquoted, unescaped
// contents for STRING tokens, the raw text otherwise.
func (t Token) Value() string {
	if t.Type != STRING || len(t.Text) < 2 {
		return t.String()
	}
	body := t.Text[1 : len(t.Text)-1]

	var b strings.Builder
	b.Grow(len(body))
	for i := 0; i < len(body); i++ {
		ch := body[i]
		if ch != '\\' || i+1 >= len(body) {
			b.WriteByte(ch)
			continue
		}
		i++
		switch body[i] {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		default:
			b.WriteByte(body[i])
		}
	}
	return b.String()
}

// Position represents a position in the source code
type Position struct {
	Line   int // 1-based line number
	Column int // 1-based column number
	Offset int // 0-based byte offset
}

// String returns a string representation of the token type
func (t TokenType) String() string {
	switch t {
	case EOF:
		return "EOF"
	case ILLEGAL:
		return "ILLEGAL"
	case TOOL:
		return "TOOL"
	case INPUT:
		return "INPUT"
	case CHOICE:
		return "CHOICE"
	case DEFAULT:
		return "DEFAULT"
	case CASE:
		return "CASE"
	case SELECT:
		return "SELECT"
	case EVERY:
		return "EVERY"
	case COLON:
		return "COLON"
	case SEMICOLON:
		return "SEMICOLON"
	case COMMA:
		return "COMMA"
	case BAR:
		return "BAR"
	case EQUALS:
		return "EQUALS"
	case NAME:
		return "NAME"
	case OPTION:
		return "OPTION"
	case INTEGER:
		return "INTEGER"
	case DOUBLE:
		return "DOUBLE"
	case STRING:
		return "STRING"
	default:
		return "UNKNOWN"
	}
}

// Describe returns a human readable description used in syntax errors
func (t TokenType) Describe() string {
	switch t {
	case EOF:
		return "end of script"
	case COLON:
		return "':'"
	case SEMICOLON:
		return "';'"
	case COMMA:
		return "','"
	case BAR:
		return "'|'"
	case EQUALS:
		return "'='"
	case NAME:
		return "a name"
	case OPTION:
		return "an option"
	case INTEGER, DOUBLE:
		return "a number"
	case STRING:
		return "a string"
	case ILLEGAL:
		return "an illegal character"
	default:
		return "'" + strings.ToLower(t.String()) + "'"
	}
}

// IsKeyword reports whether the token type is a reserved word
func (t TokenType) IsKeyword() bool {
	return t >= TOOL && t <= EVERY
}
