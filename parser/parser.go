package parser

import (
	"fmt"

	"github.com/deicod/sigma/lexer"
	"github.com/deicod/sigma/nodes"
)

// TemplateSyntaxError represents a syntax error in an expression
type TemplateSyntaxError struct {
	Message string
	Line    int
	Column  int
	Name    string
	Source  string
}

func (e *TemplateSyntaxError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("%s at line %d, column %d in %s", e.Message, e.Line, e.Column, e.Name)
	}
	return fmt.Sprintf("%s at line %d, column %d", e.Message, e.Line, e.Column)
}

// Parser is a recursive-descent parser for template expressions
type Parser struct {
	stream *lexer.TokenStream
	source string
	name   string
	line   int
}

// NewParser tokenizes source and returns a parser positioned at its first
// token. name is the template the expression comes from and line its line
// number; both only decorate error messages.
func NewParser(source, name string, line int) (*Parser, error) {
	config := lexer.DefaultLexerConfig()
	if line > 0 {
		config.Line = line
	}
	stream, err := lexer.NewLexer(config).Tokenize(source)
	if err != nil {
		return nil, err
	}

	return &Parser{
		stream: stream,
		source: source,
		name:   name,
		line:   config.Line,
	}, nil
}

// Fail creates a syntax error at the column of token
func (p *Parser) Fail(msg string, token lexer.Token) error {
	return &TemplateSyntaxError{
		Message: msg,
		Line:    p.line,
		Column:  token.Column,
		Name:    p.name,
		Source:  p.source,
	}
}

// Current returns the current token without consuming it
func (p *Parser) Current() lexer.Token {
	return p.stream.Peek()
}

// Stream exposes the underlying token stream
func (p *Parser) Stream() *lexer.TokenStream {
	return p.stream
}

// Expect consumes a token of the given type or fails
func (p *Parser) Expect(tokenType lexer.TokenType, what string) (lexer.Token, error) {
	token := p.stream.Peek()
	if token.Type != tokenType {
		return token, p.Fail(fmt.Sprintf("expected %s, got %s", what, describe(token)), token)
	}
	return p.stream.Next(), nil
}

// ExpectEnd fails unless every token has been consumed
func (p *Parser) ExpectEnd() error {
	if token := p.stream.Peek(); token.Type != lexer.TokenEOF {
		return p.Fail(fmt.Sprintf("unexpected %s", describe(token)), token)
	}
	return nil
}

func (p *Parser) position(token lexer.Token) nodes.Position {
	return nodes.NewPosition(token.Line, token.Column)
}

func describe(token lexer.Token) string {
	switch token.Type {
	case lexer.TokenEOF:
		return "end of expression"
	case lexer.TokenString:
		return fmt.Sprintf("string %q", token.Value)
	default:
		return fmt.Sprintf("%q", token.Value)
	}
}
