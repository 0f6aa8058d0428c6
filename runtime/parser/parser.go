// Package parser reads iScheme scripts and reports every completed grammar
// rule to a driver.Actions, in source order. It keeps no tree: the driver
// owns all semantic state.
package parser

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/opal-lang/ischeme/core/invariant"
	"github.com/opal-lang/ischeme/runtime/driver"
	"github.com/opal-lang/ischeme/runtime/lexer"
)

// Parse parses source and drives actions with its grammar events. Parsing
// stops at the first syntax error, returned as a *ParseError, or at the first
// error returned by actions, which is passed through unchanged.
func Parse(source []byte, actions driver.Actions, opts ...ParserOpt) (err error) {
	defer invariant.Recover(&err)
	invariant.NotNil(actions, "actions")

	config := &ParserConfig{}
	for _, opt := range opts {
		opt(config)
	}

	var lexOpts []lexer.LexerOpt
	if config.tokenLogger != nil {
		lexOpts = append(lexOpts, lexer.WithLogger(config.tokenLogger))
	}
	lex := lexer.NewLexer(string(source), lexOpts...)

	logger := config.logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	p := &parser{
		tokens:   lex.GetTokens(),
		actions:  actions,
		filename: config.filename,
		logger:   logger,
	}
	return p.script()
}

// ParseString is a convenience wrapper for tests
func ParseString(input string, actions driver.Actions, opts ...ParserOpt) error {
	return Parse([]byte(input), actions, opts...)
}

// parser is the internal parser state
type parser struct {
	tokens   []lexer.Token
	pos      int
	actions  driver.Actions
	filename string
	logger   *slog.Logger
}

// examples shows valid syntax for each construct in error messages
var examples = map[string]string{
	"tool statement":        "tool: xml2ly;",
	"input statement":       `input: "my piece.xml";`,
	"choice declaration":    "choice layout: score | part, default: score;",
	"input declaration":     "input voice: soprano.xml | alto.xml, default: soprano.xml;",
	"case statement":        "case layout: score: -page-size A4; part: -page-size A5; ;",
	"case alternative":      "score | part: -title X;",
	"select statement":      "select layout: part;",
	"every statement":       "every layout;",
	"option":                "-title \"Gloria\"",
	"script":                "tool: xml2ly;",
	"label":                 "score",
	"default label":         "default: score",
	"nested case statement": "case paper: a4: -paper a4; letter: -paper letter; ;",
}

// script parses the whole input: BeginScript, statements, EndScript
func (p *parser) script() error {
	p.logger.Debug("→ script", "tokens", len(p.tokens))

	if err := p.actions.BeginScript(p.posOf(p.current())); err != nil {
		return err
	}

	for !p.isAtEnd() {
		prevPos := p.pos
		if err := p.statement(); err != nil {
			return err
		}
		// INVARIANT: Parser must make progress in each iteration
		invariant.Invariant(p.pos > prevPos, "parser stuck in script() at token %d", p.pos)
	}

	p.logger.Debug("← script")
	return p.actions.EndScript(p.posOf(p.current()))
}

// statement parses one top-level element
func (p *parser) statement() error {
	switch p.current().Type {
	case lexer.TOOL:
		return p.toolStatement()
	case lexer.INPUT:
		if p.peek(1).Type == lexer.COLON {
			return p.inputStatement()
		}
		return p.axisDeclaration("input declaration", p.actions.DeclareInput, p.actions.AddInputName, p.actions.SetInputDefault)
	case lexer.CHOICE:
		return p.axisDeclaration("choice declaration", p.actions.DeclareChoice, p.actions.AddChoiceLabel, p.actions.SetChoiceDefault)
	case lexer.CASE:
		return p.caseStatement("case statement")
	case lexer.SELECT:
		return p.selectStatement()
	case lexer.EVERY:
		return p.everyStatement()
	case lexer.OPTION:
		return p.option()
	default:
		return p.unexpected("script",
			lexer.TOOL, lexer.INPUT, lexer.CHOICE, lexer.CASE, lexer.SELECT, lexer.EVERY, lexer.OPTION)
	}
}

// toolStatement parses: tool: NAME;
func (p *parser) toolStatement() error {
	const context = "tool statement"
	p.logger.Debug("→ toolStatement", "line", p.current().Position.Line)
	p.advance() // tool

	if _, err := p.consume(lexer.COLON, context); err != nil {
		return err
	}
	nameTok := p.current()
	name, err := p.word(context)
	if err != nil {
		return err
	}
	if _, err := p.consume(lexer.SEMICOLON, context); err != nil {
		return err
	}
	return p.actions.SetTool(name, p.posOf(nameTok))
}

// inputStatement parses: input: NAME;
func (p *parser) inputStatement() error {
	const context = "input statement"
	p.logger.Debug("→ inputStatement", "line", p.current().Position.Line)
	p.advance() // input
	p.advance() // :

	nameTok := p.current()
	name, err := p.word(context)
	if err != nil {
		return err
	}
	if _, err := p.consume(lexer.SEMICOLON, context); err != nil {
		return err
	}
	return p.actions.AddInputSource(name, p.posOf(nameTok))
}

// axisDeclaration parses choice and input declarations, which share one form:
//
//	KEYWORD NAME : l1 | l2 ... [, default: lK] ;
func (p *parser) axisDeclaration(
	context string,
	declare func(string, driver.Pos) error,
	addLabel func(string, string, driver.Pos) error,
	setDefault func(string, string, driver.Pos) error,
) error {
	p.logger.Debug("→ axisDeclaration", "kind", context, "line", p.current().Position.Line)
	p.advance() // choice | input

	nameTok, err := p.consume(lexer.NAME, context)
	if err != nil {
		return err
	}
	name := nameTok.Value()
	if err := declare(name, p.posOf(nameTok)); err != nil {
		return err
	}
	if _, err := p.consume(lexer.COLON, context); err != nil {
		return err
	}

	for {
		labelTok := p.current()
		label, err := p.label(context)
		if err != nil {
			return err
		}
		if err := addLabel(name, label, p.posOf(labelTok)); err != nil {
			return err
		}
		if !p.match(lexer.BAR) {
			break
		}
	}

	if p.match(lexer.COMMA) {
		if _, err := p.consume(lexer.DEFAULT, context); err != nil {
			return err
		}
		if _, err := p.consume(lexer.COLON, "default label"); err != nil {
			return err
		}
		defTok := p.current()
		def, err := p.label("default label")
		if err != nil {
			return err
		}
		if err := setDefault(name, def, p.posOf(defTok)); err != nil {
			return err
		}
	}

	_, err = p.consume(lexer.SEMICOLON, context)
	return err
}

// caseStatement parses: case NAME : alternative+ ;
func (p *parser) caseStatement(context string) error {
	caseTok := p.advance() // case
	p.logger.Debug("→ caseStatement", "line", caseTok.Position.Line)

	subjectTok, err := p.consume(lexer.NAME, context)
	if err != nil {
		return err
	}
	if err := p.actions.BeginCase(subjectTok.Value(), p.posOf(subjectTok)); err != nil {
		return err
	}
	if _, err := p.consume(lexer.COLON, context); err != nil {
		return err
	}
	if p.check(lexer.SEMICOLON) {
		perr := p.errorAt(p.current(), "no alternative", context)
		perr.Suggestion = "give each label of '" + subjectTok.Value() + "' an alternative"
		return perr
	}

	for !p.check(lexer.SEMICOLON) {
		prevPos := p.pos
		if err := p.alternative(); err != nil {
			return err
		}
		invariant.Invariant(p.pos > prevPos, "parser stuck in caseStatement() at token %d", p.pos)
	}

	endTok := p.advance() // ;
	p.logger.Debug("← caseStatement", "subject", subjectTok.Value())
	return p.actions.EndCase(p.posOf(endTok))
}

// alternative parses: label (| label)* : element* ;
func (p *parser) alternative() error {
	const context = "case alternative"
	p.logger.Debug("→ alternative", "line", p.current().Position.Line)

	if err := p.actions.BeginAlternative(p.posOf(p.current())); err != nil {
		return err
	}

	for {
		labelTok := p.current()
		label, err := p.label(context)
		if err != nil {
			return err
		}
		if err := p.actions.AddAlternativeLabel(label, p.posOf(labelTok)); err != nil {
			return err
		}
		if !p.match(lexer.BAR) {
			break
		}
	}
	if _, err := p.consume(lexer.COLON, context); err != nil {
		return err
	}

	for !p.check(lexer.SEMICOLON) {
		prevPos := p.pos
		var err error
		switch p.current().Type {
		case lexer.OPTION:
			err = p.option()
		case lexer.CASE:
			err = p.caseStatement("nested case statement")
		default:
			err = p.unexpected(context, lexer.OPTION, lexer.CASE, lexer.SEMICOLON)
		}
		if err != nil {
			return err
		}
		invariant.Invariant(p.pos > prevPos, "parser stuck in alternative() at token %d", p.pos)
	}

	endTok := p.advance() // ;
	return p.actions.EndAlternative(p.posOf(endTok))
}

// selectStatement parses: select NAME : LABEL ;
func (p *parser) selectStatement() error {
	const context = "select statement"
	p.logger.Debug("→ selectStatement", "line", p.current().Position.Line)
	p.advance() // select

	nameTok, err := p.consume(lexer.NAME, context)
	if err != nil {
		return err
	}
	if _, err := p.consume(lexer.COLON, context); err != nil {
		return err
	}
	label, err := p.label(context)
	if err != nil {
		return err
	}
	if _, err := p.consume(lexer.SEMICOLON, context); err != nil {
		return err
	}
	return p.actions.Select(nameTok.Value(), label, p.posOf(nameTok))
}

// everyStatement parses: every NAME ; which selects all labels of NAME
func (p *parser) everyStatement() error {
	const context = "every statement"
	p.logger.Debug("→ everyStatement", "line", p.current().Position.Line)
	p.advance() // every

	nameTok, err := p.consume(lexer.NAME, context)
	if err != nil {
		return err
	}
	if _, err := p.consume(lexer.SEMICOLON, context); err != nil {
		return err
	}
	return p.actions.Select(nameTok.Value(), driver.AllLabels, p.posOf(nameTok))
}

// option parses an option and its optional value
func (p *parser) option() error {
	optTok := p.advance()
	p.logger.Debug("→ option", "name", optTok.String())

	opt := driver.Option{Name: optTok.String()}
	switch p.current().Type {
	case lexer.STRING:
		opt.Value, opt.HasValue = p.concatStrings(), true
	case lexer.NAME, lexer.INTEGER, lexer.DOUBLE:
		opt.Value, opt.HasValue = p.compoundValue(), true
	case lexer.ILLEGAL:
		return p.illegal(p.current())
	default:
		if p.keywordValue() {
			opt.Value, opt.HasValue = p.compoundValue(), true
		}
	}

	return p.actions.RegisterOption(opt, p.posOf(optTok))
}

// keywordValue reports whether the current keyword is an option value
// rather than the start of the next statement. "default" is always a value;
// the other keywords are values unless followed by ':' or a name.
func (p *parser) keywordValue() bool {
	tok := p.current()
	if !tok.Type.IsKeyword() {
		return false
	}
	if tok.Type == lexer.DEFAULT {
		return true
	}
	next := p.peek(1).Type
	return next != lexer.COLON && next != lexer.NAME
}

// compoundValue reads name, number, name=value or name:value. The parts
// must touch: "a = b" is not one value.
func (p *parser) compoundValue() string {
	first := p.advance()
	value := first.Value()

	sep := p.current()
	if (sep.Type == lexer.EQUALS || sep.Type == lexer.COLON) && !sep.HasSpaceBefore {
		next := p.peek(1)
		isValue := next.Type == lexer.NAME || next.Type == lexer.INTEGER || next.Type == lexer.DOUBLE || next.Type.IsKeyword()
		if isValue && !next.HasSpaceBefore {
			p.advance()
			p.advance()
			if sep.Type == lexer.EQUALS {
				return value + "=" + next.Value()
			}
			return value + ":" + next.Value()
		}
	}
	return value
}

// concatStrings concatenates adjacent string literals
func (p *parser) concatStrings() string {
	var b strings.Builder
	for p.check(lexer.STRING) {
		b.WriteString(p.advance().Value())
	}
	return b.String()
}

// word reads a name or a (possibly concatenated) string
func (p *parser) word(context string) (string, error) {
	switch p.current().Type {
	case lexer.STRING:
		return p.concatStrings(), nil
	case lexer.NAME:
		return p.advance().Value(), nil
	default:
		return "", p.unexpected(context, lexer.NAME, lexer.STRING)
	}
}

// label reads a choice label or input name. Keywords are plain labels here.
func (p *parser) label(context string) (string, error) {
	tok := p.current()
	switch {
	case tok.Type == lexer.NAME, tok.Type == lexer.INTEGER, tok.Type == lexer.DOUBLE, tok.Type.IsKeyword():
		return p.advance().Value(), nil
	case tok.Type == lexer.STRING:
		return p.concatStrings(), nil
	default:
		return "", p.unexpected(context, lexer.NAME, lexer.STRING)
	}
}

// Helper methods

func (p *parser) current() lexer.Token {
	return p.peek(0)
}

// peek returns the token n positions ahead, EOF past the end
func (p *parser) peek(n int) lexer.Token {
	invariant.InRange(n, 0, 1, "lookahead")
	if p.pos+n >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[p.pos+n]
}

// advance consumes the current token and returns it
func (p *parser) advance() lexer.Token {
	tok := p.current()
	if !p.isAtEnd() {
		p.pos++
	}
	return tok
}

func (p *parser) isAtEnd() bool {
	return p.current().Type == lexer.EOF
}

func (p *parser) check(t lexer.TokenType) bool {
	return p.current().Type == t
}

func (p *parser) match(types ...lexer.TokenType) bool {
	for _, t := range types {
		if p.check(t) {
			p.advance()
			return true
		}
	}
	return false
}

// consume expects a token of type t
func (p *parser) consume(t lexer.TokenType, context string) (lexer.Token, error) {
	if p.check(t) {
		return p.advance(), nil
	}
	return lexer.Token{}, p.unexpected(context, t)
}

func (p *parser) posOf(tok lexer.Token) driver.Pos {
	return driver.Pos{Line: tok.Position.Line, Column: tok.Position.Column}
}

// unexpected reports the current token when one of expected was required
func (p *parser) unexpected(context string, expected ...lexer.TokenType) *ParseError {
	tok := p.current()
	if tok.Type == lexer.ILLEGAL {
		return p.illegal(tok)
	}

	message := "unexpected " + tok.Type.Describe()
	if tok.Text != nil && tok.Type != lexer.STRING {
		message = fmt.Sprintf("unexpected '%s'", tok.Text)
	}
	if len(expected) == 1 {
		message = "missing " + expected[0].Describe()
	}
	perr := p.errorAt(tok, message, context)
	perr.Expected = expected
	if len(expected) == 1 && expected[0] == lexer.SEMICOLON {
		perr.Suggestion = "end the statement with ';'"
	}
	return perr
}

// illegal reports a token the lexer could not scan
func (p *parser) illegal(tok lexer.Token) *ParseError {
	perr := p.errorAt(tok, tok.Err, "")
	if tok.Err == "unterminated string" {
		perr.Suggestion = "close the string on the same line"
	}
	return perr
}

func (p *parser) errorAt(tok lexer.Token, message, context string) *ParseError {
	p.logger.Debug("syntax error", "message", message, "context", context,
		"line", tok.Position.Line, "column", tok.Position.Column)
	return &ParseError{
		Filename: p.filename,
		Position: tok.Position,
		Message:  message,
		Context:  context,
		Got:      tok.Type,
		GotText:  tok.String(),
		Example:  examples[context],
	}
}
