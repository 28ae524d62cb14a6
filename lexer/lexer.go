package lexer

import (
	"fmt"
	"strings"
)

// LexerError represents a lexing error
type LexerError struct {
	Message string
	Line    int
	Column  int
	Pos     int
}

func (e LexerError) Error() string {
	return fmt.Sprintf("%s at line %d, column %d", e.Message, e.Line, e.Column)
}

// LexerConfig holds configuration for the lexer
type LexerConfig struct {
	Delimiters Delimiters
	// Line is reported as the line number of every token; expressions never
	// span lines.
	Line int
}

func DefaultLexerConfig() LexerConfig {
	return LexerConfig{
		Delimiters: DefaultDelimiters(),
		Line:       1,
	}
}

// Lexer turns expression source into tokens.
type Lexer struct {
	config LexerConfig
}

// NewLexer creates a new lexer with the given configuration
func NewLexer(config LexerConfig) *Lexer {
	if config.Line <= 0 {
		config.Line = 1
	}
	return &Lexer{config: config}
}

var operatorTokens = map[string]TokenType{
	"===": TokenComparison,
	"!==": TokenComparison,
	"==":  TokenComparison,
	"!=":  TokenComparison,
	"<>":  TokenComparison,
	"<=":  TokenComparison,
	">=":  TokenComparison,
	"<":   TokenComparison,
	">":   TokenComparison,
	"**":  TokenPow,
	"&&":  TokenAnd,
	"||":  TokenOr,
	"->":  TokenArrow,
	"=>":  TokenDoubleArrow,
	"=":   TokenAssign,
	"+":   TokenAdd,
	"-":   TokenSub,
	"*":   TokenMul,
	"/":   TokenDiv,
	"%":   TokenMod,
	".":   TokenConcat,
	"!":   TokenNot,
	"?":   TokenTernary,
	":":   TokenColon,
	",":   TokenComma,
	"(":   TokenLeftParen,
	")":   TokenRightParen,
	"[":   TokenLeftBracket,
	"]":   TokenRightBracket,
}

// Tokenize splits an expression into a token stream.
func (l *Lexer) Tokenize(source string) (*TokenStream, error) {
	var tokens []Token
	pos := 0
	for pos < len(source) {
		rest := source[pos:]
		if m := WhitespaceRegex.FindString(rest); m != "" {
			pos += len(m)
			continue
		}

		token := Token{Line: l.config.Line, Column: pos + 1, Position: pos}
		switch {
		case rest[0] == '$':
			m := VariableRegex.FindStringSubmatch(rest)
			if m == nil {
				return nil, l.fail("invalid variable name", pos)
			}
			token.Type, token.Value = TokenVariable, m[1]
			pos += len(m[0])
		case rest[0] == '\'' || rest[0] == '"':
			m := StringRegex.FindString(rest)
			if m == "" {
				return nil, l.fail("unterminated string literal", pos)
			}
			token.Type, token.Value = TokenString, unescapeString(m)
			pos += len(m)
		case rest[0] >= '0' && rest[0] <= '9':
			if m := FloatRegex.FindString(rest); m != "" {
				token.Type, token.Value = TokenFloat, m
				pos += len(m)
			} else {
				m := IntegerRegex.FindString(rest)
				token.Type, token.Value = TokenInteger, m
				pos += len(m)
			}
		default:
			if m := NameRegex.FindString(rest); m != "" {
				token.Type, token.Value = TokenName, m
				pos += len(m)
				break
			}
			m := OperatorRegex.FindString(rest)
			if m == "" {
				return nil, l.fail(fmt.Sprintf("unexpected character %q", rest[0]), pos)
			}
			token.Type, token.Value = operatorTokens[m], m
			pos += len(m)
		}
		tokens = append(tokens, token)
	}
	return NewTokenStream(tokens), nil
}

func (l *Lexer) fail(msg string, pos int) error {
	return LexerError{Message: msg, Line: l.config.Line, Column: pos + 1, Pos: pos}
}

// unescapeString strips the quotes of a string literal and resolves its
// escape sequences. Single-quoted strings only know \' and \\.
func unescapeString(literal string) string {
	quote := literal[0]
	body := literal[1 : len(literal)-1]
	if !strings.Contains(body, `\`) {
		return body
	}
	var out strings.Builder
	for i := 0; i < len(body); i++ {
		c := body[i]
		if c != '\\' || i+1 == len(body) {
			out.WriteByte(c)
			continue
		}
		next := body[i+1]
		if quote == '\'' {
			if next == '\'' || next == '\\' {
				out.WriteByte(next)
				i++
			} else {
				out.WriteByte(c)
			}
			continue
		}
		switch next {
		case 'n':
			out.WriteByte('\n')
		case 't':
			out.WriteByte('\t')
		case 'r':
			out.WriteByte('\r')
		case '"', '\\', '$':
			out.WriteByte(next)
		default:
			out.WriteByte(c)
			out.WriteByte(next)
		}
		i++
	}
	return out.String()
}

// Tokenize is a convenience wrapper using the default configuration.
func Tokenize(source string) (*TokenStream, error) {
	return NewLexer(DefaultLexerConfig()).Tokenize(source)
}
