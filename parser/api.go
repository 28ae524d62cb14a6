package parser

import (
	"strings"

	"github.com/deicod/sigma/lexer"
	"github.com/deicod/sigma/nodes"
)

// ParseExpression is a simple one-line API for parsing an expression. The
// result may be an *nodes.Assign when the source has the shape `$x = expr`.
func ParseExpression(source string) (nodes.Expr, error) {
	return ParseExpressionAt(source, "", 0)
}

// ParseExpressionAt parses an expression and reports errors against the
// given template name and line.
func ParseExpressionAt(source, name string, line int) (nodes.Expr, error) {
	p, err := NewParser(source, name, line)
	if err != nil {
		return nil, err
	}
	if p.Stream().Eof() {
		return nil, p.Fail("empty expression", p.Current())
	}

	expr, err := p.ParseStatement()
	if err != nil {
		return nil, err
	}
	if err := p.ExpectEnd(); err != nil {
		return nil, err
	}
	return expr, nil
}

// ParseArguments parses the comma separated argument list of a custom
// directive call. An empty list yields no arguments.
func ParseArguments(source, name string, line int) ([]nodes.Expr, error) {
	if strings.TrimSpace(source) == "" {
		return nil, nil
	}

	p, err := NewParser(source, name, line)
	if err != nil {
		return nil, err
	}

	var args []nodes.Expr
	for {
		arg, err := p.ParseExpression()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)

		if p.Stream().Eof() {
			return args, nil
		}
		if _, err := p.Expect(lexer.TokenComma, "','"); err != nil {
			return nil, err
		}
	}
}
