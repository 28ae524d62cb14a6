package runtime

// undefined marks a value read inside an isset/empty guard that does not
// exist: an unbound variable, a missing key or an index out of range. It
// never escapes the guard that produced it.
type undefined struct {
	name string
}

func (u undefined) Reason() string {
	if u.name != "" {
		return "undefined variable '$" + u.name + "'"
	}
	return "undefined"
}

// operand is what the evaluator passes between nodes: either a Value or the
// undefined sentinel when a guard is active.
type operand struct {
	value   Value
	missing *undefined
}

func defined(v Value) operand {
	return operand{value: v}
}

func missing(name string) operand {
	return operand{value: Null, missing: &undefined{name: name}}
}

func (o operand) isUndefined() bool {
	return o.missing != nil
}
