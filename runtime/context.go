package runtime

import "sort"

// Context is the variable store of one render. Define directives, loop
// bindings and in-expression assignments all write into it, and every
// construct parser reads from the same instance.
type Context struct {
	vars map[string]Value
}

// NewContext creates a context from Go data
func NewContext(vars map[string]interface{}) *Context {
	ctx := &Context{vars: make(map[string]Value, len(vars))}
	ctx.Merge(vars)
	return ctx
}

// Set binds a variable
func (ctx *Context) Set(name string, value Value) {
	ctx.vars[name] = value
}

// Get looks up a variable
func (ctx *Context) Get(name string) (Value, bool) {
	value, ok := ctx.vars[name]
	return value, ok
}

// Has reports whether a variable is bound
func (ctx *Context) Has(name string) bool {
	_, ok := ctx.vars[name]
	return ok
}

// Delete removes a binding
func (ctx *Context) Delete(name string) {
	delete(ctx.vars, name)
}

// Merge binds every entry of vars, converting it with ValueOf
func (ctx *Context) Merge(vars map[string]interface{}) {
	for name, value := range vars {
		ctx.vars[name] = ValueOf(value)
	}
}

// Names returns the bound variable names in sorted order
func (ctx *Context) Names() []string {
	names := make([]string, 0, len(ctx.vars))
	for name := range ctx.vars {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Clone returns an independent copy of the context. Values are immutable so
// the copy is shallow.
func (ctx *Context) Clone() *Context {
	clone := &Context{vars: make(map[string]Value, len(ctx.vars))}
	for name, value := range ctx.vars {
		clone.vars[name] = value
	}
	return clone
}

// Vars returns the bindings as plain Go data
func (ctx *Context) Vars() map[string]interface{} {
	out := make(map[string]interface{}, len(ctx.vars))
	for name, value := range ctx.vars {
		out[name] = value.Interface()
	}
	return out
}
