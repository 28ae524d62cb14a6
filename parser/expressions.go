package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/deicod/sigma/lexer"
	"github.com/deicod/sigma/nodes"
)

// ParseStatement parses a top-level expression, which may be an assignment
// of the exact shape `$name = expr`.
func (p *Parser) ParseStatement() (nodes.Expr, error) {
	if p.stream.Peek().Type == lexer.TokenVariable && p.stream.PeekN(1).Type == lexer.TokenAssign {
		token := p.stream.Next()
		p.stream.Next()

		target := &nodes.Name{Name: token.Value}
		target.SetPosition(p.position(token))

		value, err := p.ParseExpression()
		if err != nil {
			return nil, err
		}

		assign := &nodes.Assign{Target: target, Node: value}
		assign.SetPosition(p.position(token))
		return assign, nil
	}
	return p.ParseExpression()
}

// ParseExpression parses an expression
func (p *Parser) ParseExpression() (nodes.Expr, error) {
	return p.ParseConditionalExpr()
}

// ParseConditionalExpr parses conditional expressions (ternary operator)
func (p *Parser) ParseConditionalExpr() (nodes.Expr, error) {
	start := p.Current()

	test, err := p.ParseOr()
	if err != nil {
		return nil, err
	}

	if !p.stream.SkipIf(lexer.TokenTernary) {
		return test, nil
	}

	condExpr := &nodes.CondExpr{Test: test}
	condExpr.SetPosition(p.position(start))

	if !p.stream.SkipIf(lexer.TokenColon) {
		condExpr.Expr1, err = p.ParseConditionalExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.Expect(lexer.TokenColon, "':'"); err != nil {
			return nil, err
		}
	}

	condExpr.Expr2, err = p.ParseConditionalExpr()
	if err != nil {
		return nil, err
	}
	return condExpr, nil
}

// ParseOr parses logical OR expressions
func (p *Parser) ParseOr() (nodes.Expr, error) {
	left, err := p.ParseAnd()
	if err != nil {
		return nil, err
	}

	for {
		token := p.stream.Peek()
		if !p.stream.SkipIf(lexer.TokenOr) && !p.stream.SkipIfNamed("or") {
			return left, nil
		}
		right, err := p.ParseAnd()
		if err != nil {
			return nil, err
		}
		left = nodes.NewOr(left, right)
		left.SetPosition(p.position(token))
	}
}

// ParseAnd parses logical AND expressions
func (p *Parser) ParseAnd() (nodes.Expr, error) {
	left, err := p.ParseCompare()
	if err != nil {
		return nil, err
	}

	for {
		token := p.stream.Peek()
		if !p.stream.SkipIf(lexer.TokenAnd) && !p.stream.SkipIfNamed("and") {
			return left, nil
		}
		right, err := p.ParseCompare()
		if err != nil {
			return nil, err
		}
		left = nodes.NewAnd(left, right)
		left.SetPosition(p.position(token))
	}
}

// ParseCompare parses comparison expressions
func (p *Parser) ParseCompare() (nodes.Expr, error) {
	start := p.Current()

	expr, err := p.ParseConcat()
	if err != nil {
		return nil, err
	}

	var ops []*nodes.Operand
	for p.stream.Peek().Type == lexer.TokenComparison {
		token := p.stream.Next()
		right, err := p.ParseConcat()
		if err != nil {
			return nil, err
		}
		operand := &nodes.Operand{Op: token.Value, Expr: right}
		operand.SetPosition(p.position(token))
		ops = append(ops, operand)
	}

	if len(ops) == 0 {
		return expr, nil
	}

	compare := &nodes.Compare{Expr: expr, Ops: ops}
	compare.SetPosition(p.position(start))
	return compare, nil
}

// ParseConcat parses string concatenation with `.`
func (p *Parser) ParseConcat() (nodes.Expr, error) {
	return p.parseBinary(p.ParseMath1, lexer.TokenConcat)
}

// ParseMath1 parses addition and subtraction
func (p *Parser) ParseMath1() (nodes.Expr, error) {
	return p.parseBinary(p.ParseMath2, lexer.TokenAdd, lexer.TokenSub)
}

// ParseMath2 parses multiplication, division and modulo
func (p *Parser) ParseMath2() (nodes.Expr, error) {
	return p.parseBinary(p.ParseUnary, lexer.TokenMul, lexer.TokenDiv, lexer.TokenMod)
}

func (p *Parser) parseBinary(operand func() (nodes.Expr, error), operators ...lexer.TokenType) (nodes.Expr, error) {
	left, err := operand()
	if err != nil {
		return nil, err
	}

	for {
		token := p.stream.Peek()
		if !tokenIn(token.Type, operators) {
			return left, nil
		}
		p.stream.Next()

		right, err := operand()
		if err != nil {
			return nil, err
		}
		binExpr := &nodes.BinExpr{Left: left, Right: right, Operator: token.Value}
		binExpr.SetPosition(p.position(token))
		left = binExpr
	}
}

func tokenIn(tokenType lexer.TokenType, types []lexer.TokenType) bool {
	for _, t := range types {
		if t == tokenType {
			return true
		}
	}
	return false
}

// ParseUnary parses unary operators
func (p *Parser) ParseUnary() (nodes.Expr, error) {
	token := p.stream.Peek()

	var operator string
	switch {
	case token.Type == lexer.TokenNot:
		operator = "not"
	case token.Type == lexer.TokenName && strings.EqualFold(token.Value, "not"):
		operator = "not"
	case token.Type == lexer.TokenSub:
		operator = "-"
	case token.Type == lexer.TokenAdd:
		operator = "+"
	default:
		return p.ParsePow()
	}
	p.stream.Next()

	node, err := p.ParseUnary()
	if err != nil {
		return nil, err
	}
	unary := &nodes.UnaryExpr{Node: node, Operator: operator}
	unary.SetPosition(p.position(token))
	return unary, nil
}

// ParsePow parses the right-associative power operator
func (p *Parser) ParsePow() (nodes.Expr, error) {
	base, err := p.ParsePostfix()
	if err != nil {
		return nil, err
	}

	token := p.stream.Peek()
	if !p.stream.SkipIf(lexer.TokenPow) {
		return base, nil
	}

	exponent, err := p.ParseUnary()
	if err != nil {
		return nil, err
	}
	binExpr := &nodes.BinExpr{Left: base, Right: exponent, Operator: "**"}
	binExpr.SetPosition(p.position(token))
	return binExpr, nil
}

// ParsePostfix parses subscripts and property access
func (p *Parser) ParsePostfix() (nodes.Expr, error) {
	node, err := p.ParsePrimary()
	if err != nil {
		return nil, err
	}

	for {
		token := p.stream.Peek()
		switch token.Type {
		case lexer.TokenLeftBracket:
			p.stream.Next()
			arg, err := p.ParseExpression()
			if err != nil {
				return nil, err
			}
			if _, err := p.Expect(lexer.TokenRightBracket, "']'"); err != nil {
				return nil, err
			}
			getitem := &nodes.Getitem{Node: node, Arg: arg}
			getitem.SetPosition(p.position(token))
			node = getitem
		case lexer.TokenArrow:
			p.stream.Next()
			attr, err := p.Expect(lexer.TokenName, "property name")
			if err != nil {
				return nil, err
			}
			getattr := &nodes.Getattr{Node: node, Attr: attr.Value}
			getattr.SetPosition(p.position(token))
			node = getattr
		default:
			return node, nil
		}
	}
}

// ParsePrimary parses primary expressions
func (p *Parser) ParsePrimary() (nodes.Expr, error) {
	token := p.stream.Peek()

	var node nodes.Expr
	switch token.Type {
	case lexer.TokenVariable:
		p.stream.Next()
		node = &nodes.Name{Name: token.Value}

	case lexer.TokenString:
		p.stream.Next()
		node = nodes.NewConst(token.Value)

	case lexer.TokenInteger:
		p.stream.Next()
		if value, err := strconv.ParseInt(token.Value, 10, 64); err == nil {
			node = nodes.NewConst(value)
		} else {
			value, err := strconv.ParseFloat(token.Value, 64)
			if err != nil {
				return nil, p.Fail(fmt.Sprintf("invalid number %q", token.Value), token)
			}
			node = nodes.NewConst(value)
		}

	case lexer.TokenFloat:
		p.stream.Next()
		value, err := strconv.ParseFloat(token.Value, 64)
		if err != nil {
			return nil, p.Fail(fmt.Sprintf("invalid number %q", token.Value), token)
		}
		node = nodes.NewConst(value)

	case lexer.TokenName:
		return p.parseName()

	case lexer.TokenLeftParen:
		p.stream.Next()
		expr, err := p.ParseExpression()
		if err != nil {
			return nil, err
		}
		if _, err := p.Expect(lexer.TokenRightParen, "')'"); err != nil {
			return nil, err
		}
		return expr, nil

	case lexer.TokenLeftBracket:
		return p.ParseListOrDict()

	default:
		return nil, p.Fail(fmt.Sprintf("unexpected %s", describe(token)), token)
	}

	node.SetPosition(p.position(token))
	return node, nil
}

// parseName handles keyword constants and function calls. Any other bare
// identifier is a syntax error, which keeps statements and host keywords out
// of expressions.
func (p *Parser) parseName() (nodes.Expr, error) {
	token := p.stream.Next()

	var node nodes.Expr
	switch strings.ToLower(token.Value) {
	case "true":
		node = nodes.NewConst(true)
	case "false":
		node = nodes.NewConst(false)
	case "null":
		node = nodes.NewConst(nil)
	default:
		if p.stream.Peek().Type != lexer.TokenLeftParen {
			return nil, p.Fail(fmt.Sprintf("unknown identifier %q", token.Value), token)
		}
		p.stream.Next()
		args, err := p.parseArgumentList(lexer.TokenRightParen)
		if err != nil {
			return nil, err
		}
		node = &nodes.Call{Func: strings.ToLower(token.Value), Args: args}
	}

	node.SetPosition(p.position(token))
	return node, nil
}

// ParseListOrDict parses `[a, b]` sequences and `[k => v]` maps
func (p *Parser) ParseListOrDict() (nodes.Expr, error) {
	start, err := p.Expect(lexer.TokenLeftBracket, "'['")
	if err != nil {
		return nil, err
	}

	if p.stream.SkipIf(lexer.TokenRightBracket) {
		list := &nodes.List{}
		list.SetPosition(p.position(start))
		return list, nil
	}

	first, err := p.ParseExpression()
	if err != nil {
		return nil, err
	}

	if p.stream.Peek().Type != lexer.TokenDoubleArrow {
		items := []nodes.Expr{first}
		if p.stream.SkipIf(lexer.TokenComma) {
			rest, err := p.parseArgumentList(lexer.TokenRightBracket)
			if err != nil {
				return nil, err
			}
			items = append(items, rest...)
		} else if _, err := p.Expect(lexer.TokenRightBracket, "']'"); err != nil {
			return nil, err
		}
		list := &nodes.List{Items: items}
		list.SetPosition(p.position(start))
		return list, nil
	}

	dict := &nodes.Dict{}
	dict.SetPosition(p.position(start))
	key := first
	for {
		arrow, err := p.Expect(lexer.TokenDoubleArrow, "'=>'")
		if err != nil {
			return nil, err
		}
		value, err := p.ParseExpression()
		if err != nil {
			return nil, err
		}
		pair := &nodes.Pair{Key: key, Value: value}
		pair.SetPosition(p.position(arrow))
		dict.Items = append(dict.Items, pair)

		if p.stream.SkipIf(lexer.TokenRightBracket) {
			return dict, nil
		}
		if _, err := p.Expect(lexer.TokenComma, "',' or ']'"); err != nil {
			return nil, err
		}
		if p.stream.SkipIf(lexer.TokenRightBracket) {
			return dict, nil
		}
		key, err = p.ParseExpression()
		if err != nil {
			return nil, err
		}
	}
}

// parseArgumentList parses comma separated expressions up to and including
// the closing token. A trailing comma is allowed.
func (p *Parser) parseArgumentList(closing lexer.TokenType) ([]nodes.Expr, error) {
	var args []nodes.Expr
	for {
		if p.stream.SkipIf(closing) {
			return args, nil
		}
		arg, err := p.ParseExpression()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)

		if p.stream.SkipIf(closing) {
			return args, nil
		}
		if _, err := p.Expect(lexer.TokenComma, "','"); err != nil {
			return nil, err
		}
	}
}
