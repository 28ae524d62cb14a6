package runtime

import (
	"errors"
	"fmt"

	"github.com/deicod/sigma/lexer"
	"github.com/deicod/sigma/nodes"
	"github.com/deicod/sigma/parser"
)

// Evaluator implements the visitor pattern for evaluating expression nodes
// against a Context.
type Evaluator struct {
	ctx       *Context
	functions map[string]Builtin
	parsed    map[string]nodes.Expr
	template  string
	line      int
	guard     int
}

// NewEvaluator creates a new evaluator with the built-in functions
func NewEvaluator(ctx *Context) *Evaluator {
	return &Evaluator{
		ctx:       ctx,
		functions: builtins,
		parsed:    make(map[string]nodes.Expr),
	}
}

// At returns an evaluator that reports errors against the given template and
// one-based line. The context and parse cache are shared with e.
func (e *Evaluator) At(template string, line int) *Evaluator {
	at := *e
	at.template = template
	at.line = line
	at.guard = 0
	return &at
}

// Context returns the context the evaluator reads and writes
func (e *Evaluator) Context() *Context {
	return e.ctx
}

// Parse parses an expression, reusing earlier results for the same source
func (e *Evaluator) Parse(source string) (nodes.Expr, error) {
	if expr, ok := e.parsed[source]; ok {
		return expr, nil
	}
	expr, err := parser.ParseExpressionAt(sourceRestorer.Replace(source), e.template, e.line)
	if err != nil {
		return nil, e.located(NewErrorWithCause(ErrorTypeInvalidExpression, syntaxMessage(source, err), err))
	}
	e.parsed[source] = expr
	return expr, nil
}

// EvaluateString parses and evaluates an expression
func (e *Evaluator) EvaluateString(source string) (Value, error) {
	expr, err := e.Parse(source)
	if err != nil {
		return Null, err
	}
	return e.Evaluate(expr)
}

// Assign evaluates expr and binds the result to name, the way
// `$name = expr` does inside an expression.
func (e *Evaluator) Assign(name, source string) error {
	_, err := e.EvaluateString(fmt.Sprintf("$%s = %s", name, source))
	return err
}

// Evaluate evaluates an expression node. Every variable the expression
// references outside isset and empty must be bound, whether or not the
// operators end up reading it.
func (e *Evaluator) Evaluate(expr nodes.Expr) (Value, error) {
	if expr == nil {
		return Null, nil
	}
	for _, name := range nodes.Variables(expr, true) {
		if !e.ctx.Has(name) {
			return Null, e.located(NewUndefinedError(name))
		}
	}
	result := expr.Accept(e)
	if err, ok := result.(error); ok {
		return Null, e.located(err)
	}
	return result.(operand).value, nil
}

func syntaxMessage(source string, err error) string {
	var syntaxErr *parser.TemplateSyntaxError
	if errors.As(err, &syntaxErr) {
		return fmt.Sprintf("%s at column %d of %q", syntaxErr.Message, syntaxErr.Column, source)
	}
	var lexErr lexer.LexerError
	if errors.As(err, &lexErr) {
		return fmt.Sprintf("%s at column %d of %q", lexErr.Message, lexErr.Column, source)
	}
	return err.Error()
}

func (e *Evaluator) located(err error) error {
	return WrapError(err, e.template, e.line, "")
}

func (e *Evaluator) eval(expr nodes.Expr) (operand, error) {
	result := expr.Accept(e)
	if err, ok := result.(error); ok {
		return operand{}, err
	}
	return result.(operand), nil
}

// Visit implements the nodes.Visitor interface. It returns an operand or an
// error.
func (e *Evaluator) Visit(node nodes.Node) interface{} {
	switch n := node.(type) {
	case *nodes.Const:
		return defined(ValueOf(n.Value))
	case *nodes.Name:
		return e.visitName(n)
	case *nodes.List:
		return e.visitList(n)
	case *nodes.Dict:
		return e.visitDict(n)
	case *nodes.Getitem:
		return e.visitGetitem(n)
	case *nodes.Getattr:
		return e.visitGetattr(n)
	case *nodes.And:
		return e.visitAnd(n)
	case *nodes.Or:
		return e.visitOr(n)
	case *nodes.BinExpr:
		return e.visitBinExpr(n)
	case *nodes.UnaryExpr:
		return e.visitUnaryExpr(n)
	case *nodes.Compare:
		return e.visitCompare(n)
	case *nodes.CondExpr:
		return e.visitCondExpr(n)
	case *nodes.Call:
		return e.visitCall(n)
	case *nodes.Assign:
		return e.visitAssign(n)
	default:
		return NewErrorf(ErrorTypeInvalidExpression, "unknown node type: %T", node)
	}
}

func (e *Evaluator) visitName(node *nodes.Name) interface{} {
	if value, ok := e.ctx.Get(node.Name); ok {
		return defined(value)
	}
	if e.guard > 0 {
		return missing(node.Name)
	}
	return NewUndefinedError(node.Name)
}

func (e *Evaluator) visitList(node *nodes.List) interface{} {
	items := make([]Value, len(node.Items))
	for i, item := range node.Items {
		value, err := e.eval(item)
		if err != nil {
			return err
		}
		items[i] = value.value
	}
	return defined(SequenceValue(items))
}

func (e *Evaluator) visitDict(node *nodes.Dict) interface{} {
	keys := make([]string, 0, len(node.Items))
	entries := make(map[string]Value, len(node.Items))
	for _, pair := range node.Items {
		key, err := e.eval(pair.Key)
		if err != nil {
			return err
		}
		value, err := e.eval(pair.Value)
		if err != nil {
			return err
		}
		name := key.value.String()
		keys = append(keys, name)
		entries[name] = value.value
	}
	return defined(MapValue(keys, entries))
}

func (e *Evaluator) visitGetitem(node *nodes.Getitem) interface{} {
	obj, err := e.eval(node.Node)
	if err != nil {
		return err
	}
	if obj.isUndefined() {
		return obj
	}
	index, err := e.eval(node.Arg)
	if err != nil {
		return err
	}
	if value, ok := obj.value.Index(index.value); ok {
		return defined(value)
	}
	return e.missingMember(index.value.String())
}

func (e *Evaluator) visitGetattr(node *nodes.Getattr) interface{} {
	obj, err := e.eval(node.Node)
	if err != nil {
		return err
	}
	if obj.isUndefined() {
		return obj
	}
	if value, ok := obj.value.Get(node.Attr); ok {
		return defined(value)
	}
	return e.missingMember(node.Attr)
}

// missingMember is the result of reading a key or index that does not exist:
// undefined inside a guard, null elsewhere.
func (e *Evaluator) missingMember(name string) operand {
	if e.guard > 0 {
		return missing(name)
	}
	return defined(Null)
}

func (e *Evaluator) visitAnd(node *nodes.And) interface{} {
	left, err := e.eval(node.Left)
	if err != nil {
		return err
	}
	if !left.value.Truthy() {
		return defined(BoolValue(false))
	}
	right, err := e.eval(node.Right)
	if err != nil {
		return err
	}
	return defined(BoolValue(right.value.Truthy()))
}

func (e *Evaluator) visitOr(node *nodes.Or) interface{} {
	left, err := e.eval(node.Left)
	if err != nil {
		return err
	}
	if left.value.Truthy() {
		return defined(BoolValue(true))
	}
	right, err := e.eval(node.Right)
	if err != nil {
		return err
	}
	return defined(BoolValue(right.value.Truthy()))
}

func (e *Evaluator) visitBinExpr(node *nodes.BinExpr) interface{} {
	left, err := e.eval(node.Left)
	if err != nil {
		return err
	}
	right, err := e.eval(node.Right)
	if err != nil {
		return err
	}

	var result Value
	switch node.Operator {
	case ".":
		result = StringValue(left.value.String() + right.value.String())
	case "+", "-", "*", "/", "%", "**":
		result, err = arithmetic(node.Operator, left.value, right.value)
	default:
		err = NewErrorf(ErrorTypeInvalidExpression, "unknown binary operator: %s", node.Operator)
	}
	if err != nil {
		return err
	}
	return defined(result)
}

func (e *Evaluator) visitUnaryExpr(node *nodes.UnaryExpr) interface{} {
	value, err := e.eval(node.Node)
	if err != nil {
		return err
	}

	switch node.Operator {
	case "not":
		return defined(BoolValue(!value.value.Truthy()))
	case "-":
		result, err := arithmetic("*", value.value, IntValue(-1))
		if err != nil {
			return err
		}
		return defined(result)
	case "+":
		result, err := arithmetic("+", value.value, IntValue(0))
		if err != nil {
			return err
		}
		return defined(result)
	default:
		return NewErrorf(ErrorTypeInvalidExpression, "unknown unary operator: %s", node.Operator)
	}
}

func (e *Evaluator) visitCompare(node *nodes.Compare) interface{} {
	left, err := e.eval(node.Expr)
	if err != nil {
		return err
	}

	for _, op := range node.Ops {
		right, err := e.eval(op.Expr)
		if err != nil {
			return err
		}
		ok, err := compare(op.Op, left.value, right.value)
		if err != nil {
			return err
		}
		if !ok {
			return defined(BoolValue(false))
		}
		left = right
	}
	return defined(BoolValue(true))
}

func (e *Evaluator) visitCondExpr(node *nodes.CondExpr) interface{} {
	test, err := e.eval(node.Test)
	if err != nil {
		return err
	}
	if test.value.Truthy() {
		if node.Expr1 == nil {
			return test
		}
		return node.Expr1.Accept(e)
	}
	return node.Expr2.Accept(e)
}

func (e *Evaluator) visitCall(node *nodes.Call) interface{} {
	if node.IsGuard() {
		return e.visitGuard(node)
	}

	fn, ok := e.functions[node.Func]
	if !ok {
		return NewErrorf(ErrorTypeInvalidExpression, "unknown function %s()", node.Func)
	}

	args := make([]Value, len(node.Args))
	for i, arg := range node.Args {
		value, err := e.eval(arg)
		if err != nil {
			return err
		}
		args[i] = value.value
	}

	result, err := fn(args...)
	if err != nil {
		return NewErrorWithCause(ErrorTypeInvalidExpression, fmt.Sprintf("%s(): %v", node.Func, err), err)
	}
	return defined(result)
}

// visitGuard evaluates isset and empty. Their arguments may read unbound
// variables and missing keys without failing.
func (e *Evaluator) visitGuard(node *nodes.Call) interface{} {
	if len(node.Args) == 0 {
		return NewErrorf(ErrorTypeInvalidExpression, "%s() expects at least one argument", node.Func)
	}

	e.guard++
	defer func() { e.guard-- }()

	switch node.Func {
	case "empty":
		if len(node.Args) != 1 {
			return NewErrorf(ErrorTypeInvalidExpression, "empty() expects exactly one argument")
		}
		value, err := e.eval(node.Args[0])
		if err != nil {
			return err
		}
		return defined(BoolValue(value.isUndefined() || !value.value.Truthy()))
	default:
		for _, arg := range node.Args {
			value, err := e.eval(arg)
			if err != nil {
				return err
			}
			if value.isUndefined() || value.value.IsNull() {
				return defined(BoolValue(false))
			}
		}
		return defined(BoolValue(true))
	}
}

func (e *Evaluator) visitAssign(node *nodes.Assign) interface{} {
	value, err := e.eval(node.Node)
	if err != nil {
		return err
	}
	e.ctx.Set(node.Target.Name, value.value)
	return defined(StringValue(""))
}
