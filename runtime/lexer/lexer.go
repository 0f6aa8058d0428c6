package lexer

import (
	"log/slog"
	"unicode/utf8"
)

// ASCII lookup tables, filled in init
var (
	isWhitespace [128]bool
	isNameStart  [128]bool
	isNamePart   [128]bool
	isDigit      [128]bool
)

func init() {
	for _, ch := range []byte{' ', '\t', '\r', '\n', '\f', '\v'} {
		isWhitespace[ch] = true
	}
	for ch := 0; ch < 128; ch++ {
		c := byte(ch)
		letter := (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
		digit := c >= '0' && c <= '9'
		isDigit[c] = digit
		isNameStart[c] = letter || c == '_' || c == '.' || c == '/' || c == '~'
		isNamePart[c] = letter || digit || c == '_' || c == '.' || c == '/' || c == '~' || c == '-' || c == '+'
	}
}

// LexerOpt represents a lexer configuration option
type LexerOpt func(*Lexer)

// WithLogger traces every scanned token at debug level
func WithLogger(logger *slog.Logger) LexerOpt {
	return func(l *Lexer) {
		l.logger = logger
	}
}

// Lexer turns iScheme script source into tokens
type Lexer struct {
	input    []byte
	position int
	line     int
	column   int

	logger *slog.Logger
}

// NewLexer creates a new lexer instance with optional configuration
func NewLexer(input string, opts ...LexerOpt) *Lexer {
	l := &Lexer{}
	for _, opt := range opts {
		opt(l)
	}
	l.Init([]byte(input))
	return l
}

// Init resets the lexer with new input (following Go scanner pattern)
func (l *Lexer) Init(input []byte) {
	l.input = input
	l.position = 0
	l.line = 1
	l.column = 1
}

// NextToken returns the next token; EOF is returned repeatedly at end of input
func (l *Lexer) NextToken() Token {
	tok := l.lexToken()
	if l.logger != nil {
		l.logger.Debug("scanned",
			"type", tok.Type.String(),
			"text", tok.String(),
			"line", tok.Position.Line,
			"column", tok.Position.Column)
	}
	return tok
}

// GetTokens returns all remaining tokens, EOF included
func (l *Lexer) GetTokens() []Token {
	var tokens []Token
	for {
		tok := l.NextToken()
		tokens = append(tokens, tok)
		if tok.Type == EOF {
			return tokens
		}
	}
}

// lexToken performs the actual tokenization work
func (l *Lexer) lexToken() Token {
	hadSpace := l.skipWhitespaceAndComments()

	start := l.pos()
	if l.position >= len(l.input) {
		return Token{Type: EOF, Position: start, HasSpaceBefore: hadSpace}
	}

	ch := l.currentChar()

	if ch < 128 && isNameStart[ch] {
		return l.lexName(start, hadSpace)
	}

	if ch < 128 && isDigit[ch] {
		return l.lexNumber(start, hadSpace)
	}

	switch ch {
	case '"', '\'':
		return l.lexString(start, ch, hadSpace)
	case '-':
		return l.lexDash(start, hadSpace)
	case ':':
		return l.punct(COLON, start, hadSpace)
	case ';':
		return l.punct(SEMICOLON, start, hadSpace)
	case ',':
		return l.punct(COMMA, start, hadSpace)
	case '|':
		return l.punct(BAR, start, hadSpace)
	case '=':
		return l.punct(EQUALS, start, hadSpace)
	}

	// Unrecognized character, consumed whole even when multi-byte
	begin := l.position
	l.advanceChar()
	return Token{
		Type:           ILLEGAL,
		Text:           l.input[begin:l.position],
		Position:       start,
		HasSpaceBefore: hadSpace,
		Err:            "unexpected character",
	}
}

func (l *Lexer) punct(t TokenType, start Position, hadSpace bool) Token {
	l.advanceChar()
	return Token{Type: t, Position: start, HasSpaceBefore: hadSpace}
}

// skipWhitespaceAndComments skips blanks, newlines and '#' line comments.
// Returns true if anything was skipped.
func (l *Lexer) skipWhitespaceAndComments() bool {
	start := l.position
	for l.position < len(l.input) {
		ch := l.input[l.position]
		switch {
		case ch < 128 && isWhitespace[ch]:
			l.advanceChar()
		case ch == '#':
			for l.position < len(l.input) && l.input[l.position] != '\n' {
				l.advanceChar()
			}
		default:
			return l.position > start
		}
	}
	return l.position > start
}

// lexName reads a name or keyword
func (l *Lexer) lexName(start Position, hadSpace bool) Token {
	begin := l.position
	l.readNameRest()
	text := l.input[begin:l.position]
	return Token{
		Type:           lookupKeyword(string(text)),
		Text:           text,
		Position:       start,
		HasSpaceBefore: hadSpace,
	}
}

func (l *Lexer) readNameRest() {
	for l.position < len(l.input) {
		ch := l.input[l.position]
		if ch >= 128 || !isNamePart[ch] {
			return
		}
		l.advanceChar()
	}
}

// lexNumber reads an integer or a double. Digits running into name
// characters, as in 12pt or 1.5mm, make a NAME.
func (l *Lexer) lexNumber(start Position, hadSpace bool) Token {
	begin := l.position
	if l.currentChar() == '-' {
		l.advanceChar()
	}
	l.readDigits()

	tokenType := INTEGER
	if l.currentChar() == '.' && l.position+1 < len(l.input) && l.isDigitAt(l.position+1) {
		tokenType = DOUBLE
		l.advanceChar()
		l.readDigits()
	}

	if ch := l.currentChar(); ch != 0 && ch < 128 && isNamePart[ch] {
		tokenType = NAME
		l.readNameRest()
	}

	return Token{
		Type:           tokenType,
		Text:           l.input[begin:l.position],
		Position:       start,
		HasSpaceBefore: hadSpace,
	}
}

func (l *Lexer) readDigits() {
	for l.position < len(l.input) && l.isDigitAt(l.position) {
		l.advanceChar()
	}
}

func (l *Lexer) isDigitAt(i int) bool {
	ch := l.input[i]
	return ch < 128 && isDigit[ch]
}

// lexDash reads an option such as -title or --page-size, or a negative number
func (l *Lexer) lexDash(start Position, hadSpace bool) Token {
	next := l.peekChar(1)
	if next < 128 && isDigit[next] {
		return l.lexNumber(start, hadSpace)
	}

	begin := l.position
	for l.currentChar() == '-' {
		l.advanceChar()
	}
	if ch := l.currentChar(); ch == 0 || ch >= 128 || !isNamePart[ch] {
		return Token{
			Type:           ILLEGAL,
			Text:           l.input[begin:l.position],
			Position:       start,
			HasSpaceBefore: hadSpace,
			Err:            "option name expected after '-'",
		}
	}
	l.readNameRest()

	return Token{
		Type:           OPTION,
		Text:           l.input[begin:l.position],
		Position:       start,
		HasSpaceBefore: hadSpace,
	}
}

// lexString reads a single or double quoted string, quotes included
func (l *Lexer) lexString(start Position, quote byte, hadSpace bool) Token {
	begin := l.position
	l.advanceChar() // opening quote

	for l.position < len(l.input) {
		ch := l.currentChar()
		if ch == quote {
			l.advanceChar()
			return Token{
				Type:           STRING,
				Text:           l.input[begin:l.position],
				Position:       start,
				HasSpaceBefore: hadSpace,
			}
		}
		if ch == '\n' {
			break
		}
		if ch == '\\' && l.position+1 < len(l.input) {
			l.advanceChar()
		}
		l.advanceChar()
	}

	return Token{
		Type:           ILLEGAL,
		Text:           l.input[begin:l.position],
		Position:       start,
		HasSpaceBefore: hadSpace,
		Err:            "unterminated string",
	}
}

// lookupKeyword returns the appropriate token type for keywords, or NAME
func lookupKeyword(text string) TokenType {
	switch text {
	case "tool":
		return TOOL
	case "input":
		return INPUT
	case "choice":
		return CHOICE
	case "default":
		return DEFAULT
	case "case":
		return CASE
	case "select":
		return SELECT
	case "every":
		return EVERY
	default:
		return NAME
	}
}

func (l *Lexer) pos() Position {
	return Position{Line: l.line, Column: l.column, Offset: l.position}
}

// currentChar returns the current byte, 0 at end of input
func (l *Lexer) currentChar() byte {
	return l.peekChar(0)
}

func (l *Lexer) peekChar(n int) byte {
	if l.position+n >= len(l.input) {
		return 0
	}
	return l.input[l.position+n]
}

// advanceChar moves to the next character, decoding UTF-8 for position tracking only
func (l *Lexer) advanceChar() {
	if l.position >= len(l.input) {
		return
	}

	ch := l.input[l.position]
	if ch < 128 {
		if ch == '\n' {
			l.line++
			l.column = 1
		} else {
			l.column++
		}
		l.position++
		return
	}

	_, size := utf8.DecodeRune(l.input[l.position:])
	if size <= 0 {
		size = 1
	}
	l.position += size
	l.column++
}
