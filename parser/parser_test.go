package parser

import (
	"errors"
	"strings"
	"testing"

	"github.com/deicod/sigma/lexer"
	"github.com/deicod/sigma/nodes"
)

func TestParsePrecedence(t *testing.T) {
	tests := []struct {
		source   string
		expected string
	}{
		{
			source:   "1 + 2 * 3",
			expected: "BinExpr(left=Const(value=1), right=BinExpr(left=Const(value=2), right=Const(value=3), operator=*), operator=+)",
		},
		{
			source:   "'a' . 1 + 2",
			expected: `BinExpr(left=Const(value="a"), right=BinExpr(left=Const(value=1), right=Const(value=2), operator=+), operator=.)`,
		},
		{
			source:   "-2 ** 2",
			expected: "UnaryExpr(node=BinExpr(left=Const(value=2), right=Const(value=2), operator=**), operator=-)",
		},
		{
			source:   "$a || $b && $c",
			expected: "BinExpr(left=Name(name=a), right=BinExpr(left=Name(name=b), right=Name(name=c), operator=and), operator=or)",
		},
		{
			source:   "!$a == $b",
			expected: "Compare(expr=UnaryExpr(node=Name(name=a), operator=not), ops=[Operand(op===, expr=Name(name=b))])",
		},
		{
			source:   "$user['roles'][0]->name",
			expected: `Getattr(node=Getitem(node=Getitem(node=Name(name=user), arg=Const(value="roles")), arg=Const(value=0)), attr=name)`,
		},
		{
			source:   "$a ? 1 : 2",
			expected: "CondExpr(test=Name(name=a), expr1=Const(value=1), expr2=Const(value=2))",
		},
		{
			source:   "$a ?: 'none'",
			expected: `CondExpr(test=Name(name=a), expr1=<nil>, expr2=Const(value="none"))`,
		},
		{
			source:   "TRUE and not null",
			expected: "BinExpr(left=Const(value=true), right=UnaryExpr(node=Const(value=<nil>), operator=not), operator=and)",
		},
	}

	for _, tt := range tests {
		expr, err := ParseExpression(tt.source)
		if err != nil {
			t.Fatalf("parse %q: %v", tt.source, err)
		}
		if got := expr.String(); got != tt.expected {
			t.Fatalf("parse %q:\nexpected %s\ngot      %s", tt.source, tt.expected, got)
		}
	}
}

func TestParseLiterals(t *testing.T) {
	expr, err := ParseExpression("[1, 2.5, 'x', [], ['k' => true,],]")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	list, ok := expr.(*nodes.List)
	if !ok || len(list.Items) != 5 {
		t.Fatalf("expected list of 5 items, got %s", expr)
	}
	if c := list.Items[0].(*nodes.Const); c.Value != int64(1) {
		t.Fatalf("expected int64 1, got %#v", c.Value)
	}
	if c := list.Items[1].(*nodes.Const); c.Value != 2.5 {
		t.Fatalf("expected 2.5, got %#v", c.Value)
	}
	dict, ok := list.Items[4].(*nodes.Dict)
	if !ok || len(dict.Items) != 1 {
		t.Fatalf("expected dict with one pair, got %s", list.Items[4])
	}
}

func TestParseAssignment(t *testing.T) {
	expr, err := ParseExpression("$total = $total + $x")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assign, ok := expr.(*nodes.Assign)
	if !ok {
		t.Fatalf("expected assignment, got %s", expr)
	}
	if assign.Target.Name != "total" {
		t.Fatalf("expected target total, got %s", assign.Target.Name)
	}

	expr, err = ParseExpression("$a == 1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := expr.(*nodes.Compare); !ok {
		t.Fatalf("expected comparison, got %s", expr)
	}
}

func TestParseCall(t *testing.T) {
	expr, err := ParseExpression("IsSet($a, $b['c'])")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	call, ok := expr.(*nodes.Call)
	if !ok || call.Func != "isset" || len(call.Args) != 2 {
		t.Fatalf("expected isset call with 2 args, got %s", expr)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		source  string
		message string
	}{
		{"", "empty expression"},
		{"echo 'x'", `unknown identifier "echo"`},
		{"while ($a)", `unknown identifier "while"`},
		{"1 +", "unexpected end of expression"},
		{"(1 + 2", "expected ')'"},
		{"$a $b", `unexpected "b"`},
		{"$x = $y = 1", `unexpected "="`},
		{"[1 => ]", "unexpected"},
		{"$a ? 1", "expected ':'"},
	}

	for _, tt := range tests {
		_, err := ParseExpressionAt(tt.source, "page", 4)
		if err == nil {
			t.Fatalf("expected error for %q", tt.source)
		}
		var syntaxErr *TemplateSyntaxError
		if !errors.As(err, &syntaxErr) {
			t.Fatalf("%q: expected TemplateSyntaxError, got %T: %v", tt.source, err, err)
		}
		if !strings.Contains(err.Error(), tt.message) {
			t.Fatalf("%q: expected message containing %q, got %q", tt.source, tt.message, err.Error())
		}
		if syntaxErr.Line != 4 || syntaxErr.Name != "page" {
			t.Fatalf("%q: expected position in page line 4, got %s line %d", tt.source, syntaxErr.Name, syntaxErr.Line)
		}
	}
}

func TestParseLexerErrorPassesThrough(t *testing.T) {
	_, err := ParseExpression("'open")
	var lexErr lexer.LexerError
	if !errors.As(err, &lexErr) {
		t.Fatalf("expected LexerError, got %T", err)
	}
}

func TestParseArguments(t *testing.T) {
	args, err := ParseArguments("1, 'a, b', $x + 1", "page", 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(args) != 3 {
		t.Fatalf("expected 3 arguments, got %d", len(args))
	}
	if c, ok := args[1].(*nodes.Const); !ok || c.Value != "a, b" {
		t.Fatalf("expected string argument with comma, got %s", args[1])
	}

	args, err = ParseArguments("  ", "page", 1)
	if err != nil || len(args) != 0 {
		t.Fatalf("expected no arguments, got %v (%v)", args, err)
	}

	if _, err := ParseArguments("1,", "page", 1); err == nil {
		t.Fatal("expected error for dangling comma")
	}
}
