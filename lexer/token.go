package lexer

import (
	"fmt"
	"strings"
)

// TokenType represents the type of an expression token
type TokenType int

const (
	TokenEOF TokenType = iota
	TokenVariable
	TokenName
	TokenString
	TokenInteger
	TokenFloat
	TokenAssign
	TokenComparison
	TokenAdd
	TokenSub
	TokenMul
	TokenDiv
	TokenMod
	TokenPow
	TokenConcat
	TokenArrow
	TokenDoubleArrow
	TokenNot
	TokenAnd
	TokenOr
	TokenTernary
	TokenColon
	TokenComma
	TokenLeftParen
	TokenRightParen
	TokenLeftBracket
	TokenRightBracket
)

var tokenNames = map[TokenType]string{
	TokenEOF:          "EOF",
	TokenVariable:     "VARIABLE",
	TokenName:         "NAME",
	TokenString:       "STRING",
	TokenInteger:      "INTEGER",
	TokenFloat:        "FLOAT",
	TokenAssign:       "ASSIGN",
	TokenComparison:   "COMPARISON",
	TokenAdd:          "ADD",
	TokenSub:          "SUB",
	TokenMul:          "MUL",
	TokenDiv:          "DIV",
	TokenMod:          "MOD",
	TokenPow:          "POW",
	TokenConcat:       "CONCAT",
	TokenArrow:        "ARROW",
	TokenDoubleArrow:  "DOUBLE_ARROW",
	TokenNot:          "NOT",
	TokenAnd:          "AND",
	TokenOr:           "OR",
	TokenTernary:      "TERNARY",
	TokenColon:        "COLON",
	TokenComma:        "COMMA",
	TokenLeftParen:    "LPAREN",
	TokenRightParen:   "RPAREN",
	TokenLeftBracket:  "LBRACKET",
	TokenRightBracket: "RBRACKET",
}

func (tt TokenType) String() string {
	if name, ok := tokenNames[tt]; ok {
		return name
	}
	return fmt.Sprintf("Token(%d)", tt)
}

// Token represents a single token of an expression
type Token struct {
	Type     TokenType
	Value    string
	Line     int
	Column   int
	Position int
}

func (t Token) String() string {
	return fmt.Sprintf("%s('%s') at %d:%d", t.Type, t.Value, t.Line, t.Column)
}

// TokenStream represents a stream of tokens
type TokenStream struct {
	tokens []Token
	pos    int
}

func NewTokenStream(tokens []Token) *TokenStream {
	return &TokenStream{
		tokens: tokens,
		pos:    0,
	}
}

func (ts *TokenStream) Next() Token {
	if ts.pos >= len(ts.tokens) {
		return ts.eof()
	}
	token := ts.tokens[ts.pos]
	ts.pos++
	return token
}

func (ts *TokenStream) Peek() Token {
	if ts.pos >= len(ts.tokens) {
		return ts.eof()
	}
	return ts.tokens[ts.pos]
}

func (ts *TokenStream) PeekN(n int) Token {
	if ts.pos+n >= len(ts.tokens) {
		return ts.eof()
	}
	return ts.tokens[ts.pos+n]
}

// eof returns an EOF token positioned after the last real token so error
// messages can point at the end of the expression.
func (ts *TokenStream) eof() Token {
	if len(ts.tokens) == 0 {
		return Token{Type: TokenEOF, Line: 1, Column: 1}
	}
	last := ts.tokens[len(ts.tokens)-1]
	return Token{
		Type:     TokenEOF,
		Line:     last.Line,
		Column:   last.Column + len(last.Value),
		Position: last.Position + len(last.Value),
	}
}

func (ts *TokenStream) Consume(expected TokenType) (Token, error) {
	token := ts.Next()
	if token.Type != expected {
		return token, fmt.Errorf("expected %s, got %s at %d:%d",
			expected, token.Type, token.Line, token.Column)
	}
	return token, nil
}

// Expect consumes and returns a token, failing if it doesn't match the expected type
func (ts *TokenStream) Expect(expectedType TokenType) (Token, error) {
	return ts.Consume(expectedType)
}

// SkipIf consumes the current token when it has the given type.
func (ts *TokenStream) SkipIf(tokenType TokenType) bool {
	if ts.Peek().Type == tokenType {
		ts.pos++
		return true
	}
	return false
}

// SkipIfNamed consumes the current token when it is a name token with the
// given value. Keywords are case-insensitive.
func (ts *TokenStream) SkipIfNamed(value string) bool {
	token := ts.Peek()
	if token.Type == TokenName && strings.EqualFold(token.Value, value) {
		ts.pos++
		return true
	}
	return false
}

func (ts *TokenStream) Eof() bool {
	return ts.Peek().Type == TokenEOF
}

// Len returns the number of tokens in the stream.
func (ts *TokenStream) Len() int {
	return len(ts.tokens)
}
