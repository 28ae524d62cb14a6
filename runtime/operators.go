package runtime

import (
	"math"
	"strings"
)

func operandNumber(op string, v Value) (numberValue, error) {
	if n, ok := toNumber(v); ok {
		return n, nil
	}
	return numberValue{}, NewErrorf(ErrorTypeInvalidExpression, "unsupported operand %s for %s", describeValue(v), op)
}

func describeValue(v Value) string {
	switch v.Kind() {
	case KindString:
		return "non-numeric string \"" + v.String() + "\""
	default:
		return v.Kind().String()
	}
}

// arithmetic applies a numeric operator. Integer operands stay integers
// unless the result needs a fraction or does not fit in int64.
func arithmetic(op string, left, right Value) (Value, error) {
	l, err := operandNumber(op, left)
	if err != nil {
		return Null, err
	}
	r, err := operandNumber(op, right)
	if err != nil {
		return Null, err
	}

	if op == "%" {
		a, b := truncate(l), truncate(r)
		if b == 0 {
			return Null, NewError(ErrorTypeInvalidExpression, "modulo by zero")
		}
		return IntValue(a % b), nil
	}

	if op == "/" {
		if r.floatValue == 0 && (r.isFloat() || r.intValue == 0) {
			return Null, NewError(ErrorTypeInvalidExpression, "division by zero")
		}
		if !l.isFloat() && !r.isFloat() && l.intValue%r.intValue == 0 {
			return IntValue(l.intValue / r.intValue), nil
		}
		return FloatValue(l.floatValue / r.floatValue), nil
	}

	if !l.isFloat() && !r.isFloat() {
		if result, ok := integerArithmetic(op, l.intValue, r.intValue); ok {
			return IntValue(result), nil
		}
	}

	a, b := l.floatValue, r.floatValue
	switch op {
	case "+":
		return FloatValue(a + b), nil
	case "-":
		return FloatValue(a - b), nil
	case "*":
		return FloatValue(a * b), nil
	case "**":
		return FloatValue(math.Pow(a, b)), nil
	default:
		return Null, NewErrorf(ErrorTypeInvalidExpression, "unknown operator %s", op)
	}
}

func truncate(n numberValue) int64 {
	if n.isFloat() {
		return int64(n.floatValue)
	}
	return n.intValue
}

// integerArithmetic reports false when the result overflows or is not an
// integer.
func integerArithmetic(op string, a, b int64) (int64, bool) {
	switch op {
	case "+":
		sum := a + b
		if (sum > a) != (b > 0) {
			return 0, false
		}
		return sum, true
	case "-":
		diff := a - b
		if (diff < a) != (b > 0) {
			return 0, false
		}
		return diff, true
	case "*":
		if a == 0 || b == 0 {
			return 0, true
		}
		product := a * b
		if product/b != a || (a == -1 && b == math.MinInt64) || (b == -1 && a == math.MinInt64) {
			return 0, false
		}
		return product, true
	case "**":
		if b < 0 {
			return 0, false
		}
		result := int64(1)
		for i := int64(0); i < b; i++ {
			next, ok := integerArithmetic("*", result, a)
			if !ok {
				return 0, false
			}
			result = next
		}
		return result, true
	}
	return 0, false
}

// compare applies a comparison operator. == and != compare loosely, with
// numeric strings equal to their number; === and !== also require the same
// kind.
func compare(op string, left, right Value) (bool, error) {
	switch op {
	case "==":
		return looseEqual(left, right), nil
	case "!=", "<>":
		return !looseEqual(left, right), nil
	case "===":
		return strictEqual(left, right), nil
	case "!==":
		return !strictEqual(left, right), nil
	}

	order := compareOrder(left, right)
	switch op {
	case "<":
		return order < 0, nil
	case "<=":
		return order <= 0, nil
	case ">":
		return order > 0, nil
	case ">=":
		return order >= 0, nil
	default:
		return false, NewErrorf(ErrorTypeInvalidExpression, "unknown comparison operator %s", op)
	}
}

func looseEqual(left, right Value) bool {
	switch {
	case left.Kind() == KindNull && right.Kind() == KindString:
		return right.str == ""
	case right.Kind() == KindNull && left.Kind() == KindString:
		return left.str == ""
	case left.Kind() == KindBool || right.Kind() == KindBool || left.Kind() == KindNull || right.Kind() == KindNull:
		return left.Truthy() == right.Truthy()
	case left.Kind() == KindSequence && right.Kind() == KindSequence:
		if len(left.items) != len(right.items) {
			return false
		}
		for i := range left.items {
			if !looseEqual(left.items[i], right.items[i]) {
				return false
			}
		}
		return true
	case left.Kind() == KindMap && right.Kind() == KindMap:
		if len(left.keys) != len(right.keys) {
			return false
		}
		for _, key := range left.keys {
			other, ok := right.entries[key]
			if !ok || !looseEqual(left.entries[key], other) {
				return false
			}
		}
		return true
	}

	if l, r, ok := numericPair(left, right); ok {
		return l == r
	}
	if left.Kind() == KindSequence || left.Kind() == KindMap || right.Kind() == KindSequence || right.Kind() == KindMap {
		return false
	}
	return left.String() == right.String()
}

func strictEqual(left, right Value) bool {
	if left.Kind() != right.Kind() {
		return false
	}
	switch left.Kind() {
	case KindNull:
		return true
	case KindBool:
		return left.boolean == right.boolean
	case KindNumber:
		if left.isFloat != right.isFloat {
			return false
		}
		if left.isFloat {
			return left.float == right.float
		}
		return left.integer == right.integer
	case KindString:
		return left.str == right.str
	case KindSequence:
		if len(left.items) != len(right.items) {
			return false
		}
		for i := range left.items {
			if !strictEqual(left.items[i], right.items[i]) {
				return false
			}
		}
		return true
	case KindMap:
		if len(left.keys) != len(right.keys) {
			return false
		}
		for i, key := range left.keys {
			if right.keys[i] != key || !strictEqual(left.entries[key], right.entries[key]) {
				return false
			}
		}
		return true
	}
	return false
}

// numericPair returns both operands as floats when each is a number or a
// numeric string and at least one is a number, or both are numeric strings.
func numericPair(left, right Value) (float64, float64, bool) {
	if left.Kind() != KindNumber && left.Kind() != KindString {
		return 0, 0, false
	}
	if right.Kind() != KindNumber && right.Kind() != KindString {
		return 0, 0, false
	}
	l, ok := toNumber(left)
	if !ok {
		return 0, 0, false
	}
	r, ok := toNumber(right)
	if !ok {
		return 0, 0, false
	}
	return l.floatValue, r.floatValue, true
}

func compareOrder(left, right Value) int {
	if left.Kind() == KindBool || right.Kind() == KindBool || left.Kind() == KindNull || right.Kind() == KindNull {
		return boolOrder(left.Truthy(), right.Truthy())
	}
	if left.Kind() == KindSequence && right.Kind() == KindSequence {
		if len(left.items) != len(right.items) {
			return intOrder(len(left.items), len(right.items))
		}
		for i := range left.items {
			if order := compareOrder(left.items[i], right.items[i]); order != 0 {
				return order
			}
		}
		return 0
	}
	if l, r, ok := numericPair(left, right); ok {
		switch {
		case l < r:
			return -1
		case l > r:
			return 1
		default:
			return 0
		}
	}
	if left.Kind() == KindSequence || left.Kind() == KindMap || right.Kind() == KindSequence || right.Kind() == KindMap {
		return intOrder(left.Len(), right.Len())
	}
	return strings.Compare(left.String(), right.String())
}

func boolOrder(a, b bool) int {
	switch {
	case a == b:
		return 0
	case a:
		return 1
	default:
		return -1
	}
}

func intOrder(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
