package nodes

import (
	"fmt"
	"strings"
)

// Position represents source code position information
type Position struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// NewPosition creates a new Position
func NewPosition(line, column int) Position {
	return Position{
		Line:   line,
		Column: column,
	}
}

// Node represents the base interface for all AST nodes
type Node interface {
	// GetPosition returns the position information for this node
	GetPosition() Position

	// SetPosition sets the position information for this node
	SetPosition(pos Position)

	// GetChildren returns all child nodes
	GetChildren() []Node

	// Accept implements the visitor pattern
	Accept(visitor Visitor) interface{}

	// String returns a string representation of the node
	String() string
}

// BaseNode provides common functionality for all nodes
type BaseNode struct {
	Pos Position `json:"pos"`
}

// GetPosition returns the position information
func (n *BaseNode) GetPosition() Position {
	return n.Pos
}

// SetPosition sets the position information
func (n *BaseNode) SetPosition(pos Position) {
	n.Pos = pos
}

// GetChildren returns the base implementation (empty slice)
func (n *BaseNode) GetChildren() []Node {
	return []Node{}
}

// Visitor implements the visitor pattern for AST traversal
type Visitor interface {
	Visit(node Node) interface{}
}

// NodeVisitorFunc is a function adapter for Visitor interface
type NodeVisitorFunc func(node Node) interface{}

func (f NodeVisitorFunc) Visit(node Node) interface{} {
	return f(node)
}

// Walk traverses the AST using the visitor pattern
func Walk(visitor Visitor, node Node) {
	if node == nil {
		return
	}

	result := visitor.Visit(node)
	if result != nil {
		// If visitor returns non-nil, stop traversal
		return
	}

	// Visit children
	for _, child := range node.GetChildren() {
		Walk(visitor, child)
	}
}

// Expr represents expression nodes
type Expr interface {
	Node
	isExpr()
}

// BaseExpr provides common functionality for expression nodes
type BaseExpr struct {
	BaseNode
}

func (n *BaseExpr) isExpr() {}

// Const represents a literal: int64, float64, string, bool or nil
type Const struct {
	BaseExpr
	Value interface{} `json:"value"`
}

func NewConst(value interface{}) *Const {
	return &Const{Value: value}
}

func (c *Const) Accept(visitor Visitor) interface{} {
	return visitor.Visit(c)
}

func (c *Const) String() string {
	return fmt.Sprintf("Const(value=%#v)", c.Value)
}

// Name represents a `$variable` reference
type Name struct {
	BaseExpr
	Name string `json:"name"`
}

func (n *Name) Accept(visitor Visitor) interface{} {
	return visitor.Visit(n)
}

func (n *Name) String() string {
	return fmt.Sprintf("Name(name=%s)", n.Name)
}

// List represents a sequence literal `[a, b]`
type List struct {
	BaseExpr
	Items []Expr `json:"items"`
}

func (l *List) Accept(visitor Visitor) interface{} {
	return visitor.Visit(l)
}

func (l *List) GetChildren() []Node {
	children := make([]Node, len(l.Items))
	for i, item := range l.Items {
		children[i] = item
	}
	return children
}

func (l *List) String() string {
	items := make([]string, len(l.Items))
	for i, item := range l.Items {
		items[i] = item.String()
	}
	return fmt.Sprintf("List(items=[%s])", strings.Join(items, ", "))
}

// Pair is one `key => value` entry of a Dict
type Pair struct {
	BaseExpr
	Key   Expr `json:"key"`
	Value Expr `json:"value"`
}

func (p *Pair) Accept(visitor Visitor) interface{} {
	return visitor.Visit(p)
}

func (p *Pair) GetChildren() []Node {
	return []Node{p.Key, p.Value}
}

func (p *Pair) String() string {
	return fmt.Sprintf("Pair(key=%v, value=%v)", p.Key, p.Value)
}

// Dict represents a map literal `['k' => v]`
type Dict struct {
	BaseExpr
	Items []*Pair `json:"items"`
}

func (d *Dict) Accept(visitor Visitor) interface{} {
	return visitor.Visit(d)
}

func (d *Dict) GetChildren() []Node {
	children := make([]Node, len(d.Items))
	for i, item := range d.Items {
		children[i] = item
	}
	return children
}

func (d *Dict) String() string {
	items := make([]string, len(d.Items))
	for i, item := range d.Items {
		items[i] = item.String()
	}
	return fmt.Sprintf("Dict(items=[%s])", strings.Join(items, ", "))
}

// Getitem represents subscript access `node[arg]`
type Getitem struct {
	BaseExpr
	Node Expr `json:"node"`
	Arg  Expr `json:"arg"`
}

func (g *Getitem) Accept(visitor Visitor) interface{} {
	return visitor.Visit(g)
}

func (g *Getitem) GetChildren() []Node {
	return []Node{g.Node, g.Arg}
}

func (g *Getitem) String() string {
	return fmt.Sprintf("Getitem(node=%v, arg=%v)", g.Node, g.Arg)
}

// Getattr represents property access `node->attr`
type Getattr struct {
	BaseExpr
	Node Expr   `json:"node"`
	Attr string `json:"attr"`
}

func (g *Getattr) Accept(visitor Visitor) interface{} {
	return visitor.Visit(g)
}

func (g *Getattr) GetChildren() []Node {
	return []Node{g.Node}
}

func (g *Getattr) String() string {
	return fmt.Sprintf("Getattr(node=%v, attr=%s)", g.Node, g.Attr)
}

// BinExpr represents binary expressions
type BinExpr struct {
	BaseExpr
	Left     Expr   `json:"left"`
	Right    Expr   `json:"right"`
	Operator string `json:"operator"`
}

func (b *BinExpr) Accept(visitor Visitor) interface{} {
	return visitor.Visit(b)
}

func (b *BinExpr) GetChildren() []Node {
	var children []Node
	if b.Left != nil {
		children = append(children, b.Left)
	}
	if b.Right != nil {
		children = append(children, b.Right)
	}
	return children
}

func (b *BinExpr) String() string {
	return fmt.Sprintf("BinExpr(left=%v, right=%v, operator=%s)",
		b.Left, b.Right, b.Operator)
}

// And represents a short-circuit logical and
type And struct {
	BinExpr
}

func NewAnd(left, right Expr) *And {
	return &And{
		BinExpr: BinExpr{
			Left:     left,
			Right:    right,
			Operator: "and",
		},
	}
}

func (a *And) Accept(visitor Visitor) interface{} {
	return visitor.Visit(a)
}

// Or represents a short-circuit logical or
type Or struct {
	BinExpr
}

func NewOr(left, right Expr) *Or {
	return &Or{
		BinExpr: BinExpr{
			Left:     left,
			Right:    right,
			Operator: "or",
		},
	}
}

func (o *Or) Accept(visitor Visitor) interface{} {
	return visitor.Visit(o)
}

// UnaryExpr represents unary expressions
type UnaryExpr struct {
	BaseExpr
	Node     Expr   `json:"node"`
	Operator string `json:"operator"`
}

func (u *UnaryExpr) Accept(visitor Visitor) interface{} {
	return visitor.Visit(u)
}

func (u *UnaryExpr) GetChildren() []Node {
	if u.Node != nil {
		return []Node{u.Node}
	}
	return []Node{}
}

func (u *UnaryExpr) String() string {
	return fmt.Sprintf("UnaryExpr(node=%v, operator=%s)", u.Node, u.Operator)
}

// Compare represents a comparison chain
type Compare struct {
	BaseExpr
	Expr Expr       `json:"expr"`
	Ops  []*Operand `json:"ops"`
}

func (c *Compare) Accept(visitor Visitor) interface{} {
	return visitor.Visit(c)
}

func (c *Compare) GetChildren() []Node {
	children := []Node{c.Expr}
	for _, op := range c.Ops {
		children = append(children, op)
	}
	return children
}

func (c *Compare) String() string {
	ops := make([]string, len(c.Ops))
	for i, op := range c.Ops {
		ops[i] = op.String()
	}
	return fmt.Sprintf("Compare(expr=%v, ops=[%s])", c.Expr, strings.Join(ops, ", "))
}

// Operand is one `op expr` step of a Compare
type Operand struct {
	BaseExpr
	Op   string `json:"op"`
	Expr Expr   `json:"expr"`
}

func (o *Operand) Accept(visitor Visitor) interface{} {
	return visitor.Visit(o)
}

func (o *Operand) GetChildren() []Node {
	if o.Expr != nil {
		return []Node{o.Expr}
	}
	return []Node{}
}

func (o *Operand) String() string {
	return fmt.Sprintf("Operand(op=%s, expr=%v)", o.Op, o.Expr)
}

// CondExpr represents `test ? expr1 : expr2`. Expr1 is nil for the short
// form `test ?: expr2`, which yields the test value when it is truthy.
type CondExpr struct {
	BaseExpr
	Test  Expr `json:"test"`
	Expr1 Expr `json:"expr1"`
	Expr2 Expr `json:"expr2"`
}

func (c *CondExpr) Accept(visitor Visitor) interface{} {
	return visitor.Visit(c)
}

func (c *CondExpr) GetChildren() []Node {
	children := []Node{c.Test}
	if c.Expr1 != nil {
		children = append(children, c.Expr1)
	}
	if c.Expr2 != nil {
		children = append(children, c.Expr2)
	}
	return children
}

func (c *CondExpr) String() string {
	return fmt.Sprintf("CondExpr(test=%v, expr1=%v, expr2=%v)", c.Test, c.Expr1, c.Expr2)
}

// Call represents a call of a built-in function
type Call struct {
	BaseExpr
	Func string `json:"func"`
	Args []Expr `json:"args"`
}

func (c *Call) Accept(visitor Visitor) interface{} {
	return visitor.Visit(c)
}

func (c *Call) GetChildren() []Node {
	children := make([]Node, len(c.Args))
	for i, arg := range c.Args {
		children[i] = arg
	}
	return children
}

func (c *Call) String() string {
	args := make([]string, len(c.Args))
	for i, arg := range c.Args {
		args[i] = arg.String()
	}
	return fmt.Sprintf("Call(func=%s, args=[%s])", c.Func, strings.Join(args, ", "))
}

// IsGuard reports whether the call is an existence guard whose arguments
// may reference undefined variables.
func (c *Call) IsGuard() bool {
	switch strings.ToLower(c.Func) {
	case "isset", "empty":
		return true
	}
	return false
}

// Assign represents `$target = node`
type Assign struct {
	BaseExpr
	Target *Name `json:"target"`
	Node   Expr  `json:"node"`
}

func (a *Assign) Accept(visitor Visitor) interface{} {
	return visitor.Visit(a)
}

func (a *Assign) GetChildren() []Node {
	return []Node{a.Target, a.Node}
}

func (a *Assign) String() string {
	return fmt.Sprintf("Assign(target=%v, node=%v)", a.Target, a.Node)
}

// Variables returns the names of all variables referenced by node, in order
// of first appearance. Assignment targets are not references. References
// inside existence guards are skipped when skipGuards is set.
func Variables(node Node, skipGuards bool) []string {
	var names []string
	seen := make(map[string]bool)
	var visitor NodeVisitorFunc
	visitor = func(n Node) interface{} {
		switch v := n.(type) {
		case *Name:
			if !seen[v.Name] {
				seen[v.Name] = true
				names = append(names, v.Name)
			}
		case *Call:
			if skipGuards && v.IsGuard() {
				return true
			}
		case *Assign:
			Walk(visitor, v.Node)
			return true
		}
		return nil
	}
	Walk(visitor, node)
	return names
}
