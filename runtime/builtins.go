package runtime

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Builtin is a function callable from expressions
type Builtin func(args ...Value) (Value, error)

var builtins map[string]Builtin

func init() {
	builtins = map[string]Builtin{
		// String functions
		"strlen":     builtinStrlen,
		"upper":      builtinUpper,
		"strtoupper": builtinUpper,
		"lower":      builtinLower,
		"strtolower": builtinLower,
		"ucfirst":    builtinUcfirst,
		"trim":       builtinTrim,
		"implode":    builtinImplode,
		"json":       builtinJSON,

		// Collection functions
		"count":      builtinCount,
		"in_array":   builtinInArray,
		"array_keys": builtinArrayKeys,
		"range":      builtinRange,

		// Number functions
		"abs":   builtinAbs,
		"round": builtinRound,
		"max":   builtinMax,
		"min":   builtinMin,
	}
}

// BuiltinNames returns the names of the expression functions, including the
// isset and empty guards.
func BuiltinNames() []string {
	names := []string{"isset", "empty"}
	for name := range builtins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func expectArgs(args []Value, min, max int) error {
	if len(args) < min || (max >= 0 && len(args) > max) {
		switch {
		case min == max:
			return fmt.Errorf("expects %d argument(s), got %d", min, len(args))
		case max < 0:
			return fmt.Errorf("expects at least %d argument(s), got %d", min, len(args))
		default:
			return fmt.Errorf("expects %d to %d arguments, got %d", min, max, len(args))
		}
	}
	return nil
}

func builtinStrlen(args ...Value) (Value, error) {
	if err := expectArgs(args, 1, 1); err != nil {
		return Null, err
	}
	return IntValue(int64(utf8.RuneCountInString(args[0].String()))), nil
}

func builtinUpper(args ...Value) (Value, error) {
	if err := expectArgs(args, 1, 1); err != nil {
		return Null, err
	}
	return StringValue(strings.ToUpper(args[0].String())), nil
}

func builtinLower(args ...Value) (Value, error) {
	if err := expectArgs(args, 1, 1); err != nil {
		return Null, err
	}
	return StringValue(strings.ToLower(args[0].String())), nil
}

func builtinUcfirst(args ...Value) (Value, error) {
	if err := expectArgs(args, 1, 1); err != nil {
		return Null, err
	}
	s := args[0].String()
	r, size := utf8.DecodeRuneInString(s)
	if size == 0 {
		return StringValue(s), nil
	}
	return StringValue(string(unicode.ToUpper(r)) + s[size:]), nil
}

func builtinTrim(args ...Value) (Value, error) {
	if err := expectArgs(args, 1, 2); err != nil {
		return Null, err
	}
	if len(args) == 2 {
		return StringValue(strings.Trim(args[0].String(), args[1].String())), nil
	}
	return StringValue(strings.TrimSpace(args[0].String())), nil
}

// builtinImplode joins the elements of a sequence, or the values of a map,
// with a separator.
func builtinImplode(args ...Value) (Value, error) {
	if err := expectArgs(args, 2, 2); err != nil {
		return Null, err
	}
	sep, collection := args[0], args[1]
	if collection.Kind() != KindSequence && collection.Kind() != KindMap {
		return Null, fmt.Errorf("expects a sequence, got %s", collection.Kind())
	}
	items, _ := collection.Iterate()
	parts := make([]string, len(items))
	for i, item := range items {
		parts[i] = item.String()
	}
	return StringValue(strings.Join(parts, sep.String())), nil
}

func builtinJSON(args ...Value) (Value, error) {
	if err := expectArgs(args, 1, 1); err != nil {
		return Null, err
	}
	data, err := json.Marshal(args[0].Interface())
	if err != nil {
		return Null, err
	}
	return StringValue(string(data)), nil
}

func builtinCount(args ...Value) (Value, error) {
	if err := expectArgs(args, 1, 1); err != nil {
		return Null, err
	}
	switch args[0].Kind() {
	case KindSequence, KindMap:
		return IntValue(int64(args[0].Len())), nil
	case KindNull:
		return IntValue(0), nil
	default:
		return IntValue(1), nil
	}
}

func builtinInArray(args ...Value) (Value, error) {
	if err := expectArgs(args, 2, 3); err != nil {
		return Null, err
	}
	needle, haystack := args[0], args[1]
	if haystack.Kind() != KindSequence && haystack.Kind() != KindMap {
		return Null, fmt.Errorf("expects a sequence, got %s", haystack.Kind())
	}
	strict := len(args) == 3 && args[2].Truthy()
	items, _ := haystack.Iterate()
	for _, item := range items {
		if (strict && strictEqual(item, needle)) || (!strict && looseEqual(item, needle)) {
			return BoolValue(true), nil
		}
	}
	return BoolValue(false), nil
}

func builtinArrayKeys(args ...Value) (Value, error) {
	if err := expectArgs(args, 1, 1); err != nil {
		return Null, err
	}
	switch args[0].Kind() {
	case KindMap:
		keys := make([]Value, len(args[0].keys))
		for i, key := range args[0].keys {
			keys[i] = StringValue(key)
		}
		return SequenceValue(keys), nil
	case KindSequence:
		keys := make([]Value, len(args[0].items))
		for i := range args[0].items {
			keys[i] = IntValue(int64(i))
		}
		return SequenceValue(keys), nil
	default:
		return Null, fmt.Errorf("expects a sequence or map, got %s", args[0].Kind())
	}
}

// builtinRange returns the inclusive integer range from start to end, counting
// down when end is smaller.
func builtinRange(args ...Value) (Value, error) {
	if err := expectArgs(args, 2, 3); err != nil {
		return Null, err
	}
	start, ok1 := toNumber(args[0])
	end, ok2 := toNumber(args[1])
	if !ok1 || !ok2 {
		return Null, fmt.Errorf("expects numeric bounds")
	}
	step := int64(1)
	if len(args) == 3 {
		n, ok := toNumber(args[2])
		if !ok || truncate(n) == 0 {
			return Null, fmt.Errorf("step must be a non-zero number")
		}
		step = truncate(n)
		if step < 0 {
			step = -step
		}
	}

	from, to := truncate(start), truncate(end)
	span := to - from
	if span < 0 {
		span = -span
	}
	if span/step+1 > maxRangeLength {
		return Null, fmt.Errorf("range of more than %d elements", maxRangeLength)
	}
	var items []Value
	if from <= to {
		for i := from; i <= to; i += step {
			items = append(items, IntValue(i))
		}
	} else {
		for i := from; i >= to; i -= step {
			items = append(items, IntValue(i))
		}
	}
	return SequenceValue(items), nil
}

const maxRangeLength = 1 << 20

func builtinAbs(args ...Value) (Value, error) {
	if err := expectArgs(args, 1, 1); err != nil {
		return Null, err
	}
	n, ok := toNumber(args[0])
	if !ok {
		return Null, fmt.Errorf("expects a number")
	}
	if n.isFloat() {
		return FloatValue(math.Abs(n.floatValue)), nil
	}
	if n.intValue < 0 && n.intValue != math.MinInt64 {
		return IntValue(-n.intValue), nil
	}
	return IntValue(n.intValue), nil
}

// builtinRound rounds half away from zero to the given precision
func builtinRound(args ...Value) (Value, error) {
	if err := expectArgs(args, 1, 2); err != nil {
		return Null, err
	}
	n, ok := toNumber(args[0])
	if !ok {
		return Null, fmt.Errorf("expects a number")
	}
	precision := int64(0)
	if len(args) == 2 {
		p, ok := toNumber(args[1])
		if !ok {
			return Null, fmt.Errorf("precision must be a number")
		}
		precision = truncate(p)
	}

	multiplier := math.Pow10(int(precision))
	rounded := math.Round(n.floatValue*multiplier) / multiplier
	if precision <= 0 && rounded == math.Trunc(rounded) && math.Abs(rounded) < math.MaxInt64 {
		return IntValue(int64(rounded)), nil
	}
	return FloatValue(rounded), nil
}

func builtinMax(args ...Value) (Value, error) {
	return extreme(args, 1)
}

func builtinMin(args ...Value) (Value, error) {
	return extreme(args, -1)
}

// extreme implements max and min over either the arguments or the elements of
// a single sequence argument.
func extreme(args []Value, sign int) (Value, error) {
	if err := expectArgs(args, 1, -1); err != nil {
		return Null, err
	}
	candidates := args
	if len(args) == 1 {
		if args[0].Kind() != KindSequence && args[0].Kind() != KindMap {
			return Null, fmt.Errorf("expects a sequence or several values")
		}
		candidates, _ = args[0].Iterate()
		if len(candidates) == 0 {
			return Null, fmt.Errorf("expects a non-empty sequence")
		}
	}
	best := candidates[0]
	for _, candidate := range candidates[1:] {
		if compareOrder(candidate, best)*sign > 0 {
			best = candidate
		}
	}
	return best, nil
}
