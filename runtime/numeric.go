package runtime

import (
	"math"
	"strconv"
	"strings"
)

type numberKind int

const (
	numberInteger numberKind = iota
	numberFloat
)

type numberValue struct {
	kind       numberKind
	intValue   int64
	floatValue float64
}

func classifyNumber(value interface{}) (numberValue, bool) {
	switch v := value.(type) {
	case int:
		return integerNumber(int64(v)), true
	case int8:
		return integerNumber(int64(v)), true
	case int16:
		return integerNumber(int64(v)), true
	case int32:
		return integerNumber(int64(v)), true
	case int64:
		return integerNumber(v), true
	case uint:
		return classifyUnsigned(uint64(v))
	case uint8:
		return classifyUnsigned(uint64(v))
	case uint16:
		return classifyUnsigned(uint64(v))
	case uint32:
		return classifyUnsigned(uint64(v))
	case uint64:
		return classifyUnsigned(v)
	case uintptr:
		return classifyUnsigned(uint64(v))
	case float32:
		return numberValue{kind: numberFloat, floatValue: float64(v)}, true
	case float64:
		return numberValue{kind: numberFloat, floatValue: v}, true
	default:
		return numberValue{}, false
	}
}

func integerNumber(i int64) numberValue {
	return numberValue{kind: numberInteger, intValue: i, floatValue: float64(i)}
}

func classifyUnsigned(v uint64) (numberValue, bool) {
	if v <= uint64(math.MaxInt64) {
		return integerNumber(int64(v)), true
	}
	return numberValue{kind: numberFloat, floatValue: float64(v)}, true
}

func (n numberValue) isFloat() bool {
	return n.kind == numberFloat
}

func (n numberValue) value() Value {
	if n.isFloat() {
		return FloatValue(n.floatValue)
	}
	return IntValue(n.intValue)
}

// parseNumericString accepts the decimal forms a template author would write
// in a string: optional sign, digits, optional fraction and exponent.
func parseNumericString(s string) (numberValue, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return numberValue{}, false
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return integerNumber(i), true
	}
	for _, r := range s {
		if !strings.ContainsRune("0123456789.eE+-", r) {
			return numberValue{}, false
		}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return numberValue{}, false
	}
	return numberValue{kind: numberFloat, floatValue: f}, true
}

// toNumber coerces a value for arithmetic. Booleans count as 0/1, null as 0
// and numeric strings as their number.
func toNumber(v Value) (numberValue, bool) {
	switch v.Kind() {
	case KindNumber:
		if v.isFloat {
			return numberValue{kind: numberFloat, floatValue: v.float}, true
		}
		return integerNumber(v.integer), true
	case KindBool:
		if v.boolean {
			return integerNumber(1), true
		}
		return integerNumber(0), true
	case KindNull:
		return integerNumber(0), true
	case KindString:
		return parseNumericString(v.str)
	default:
		return numberValue{}, false
	}
}
