package runtime

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Kind identifies the variant held by a Value.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindSequence
	KindMap
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindSequence:
		return "sequence"
	case KindMap:
		return "map"
	default:
		return "unknown"
	}
}

// Value is the tagged union every expression evaluates to. Numbers keep
// integer precision until an operation produces a fraction. Maps remember
// their key order.
type Value struct {
	kind    Kind
	boolean bool
	integer int64
	float   float64
	isFloat bool
	str     string
	items   []Value
	keys    []string
	entries map[string]Value
}

// Null is the null value.
var Null = Value{kind: KindNull}

func BoolValue(b bool) Value {
	return Value{kind: KindBool, boolean: b}
}

func IntValue(i int64) Value {
	return Value{kind: KindNumber, integer: i}
}

func FloatValue(f float64) Value {
	return Value{kind: KindNumber, float: f, isFloat: true}
}

func StringValue(s string) Value {
	return Value{kind: KindString, str: s}
}

func SequenceValue(items []Value) Value {
	return Value{kind: KindSequence, items: items}
}

// MapValue builds a map from keys in the given order. Keys missing from
// entries are skipped and duplicate keys are kept once.
func MapValue(keys []string, entries map[string]Value) Value {
	m := Value{kind: KindMap, entries: make(map[string]Value, len(entries))}
	for _, key := range keys {
		value, ok := entries[key]
		if !ok {
			continue
		}
		if _, dup := m.entries[key]; !dup {
			m.keys = append(m.keys, key)
		}
		m.entries[key] = value
	}
	return m
}

func (v Value) Kind() Kind {
	return v.kind
}

func (v Value) IsNull() bool {
	return v.kind == KindNull
}

// IsInteger reports whether v is a number without a fractional part type.
func (v Value) IsInteger() bool {
	return v.kind == KindNumber && !v.isFloat
}

// Int returns the integer form of a number.
func (v Value) Int() (int64, bool) {
	if v.kind != KindNumber {
		return 0, false
	}
	if v.isFloat {
		return int64(v.float), true
	}
	return v.integer, true
}

// Float returns the float form of a number.
func (v Value) Float() (float64, bool) {
	if v.kind != KindNumber {
		return 0, false
	}
	if v.isFloat {
		return v.float, true
	}
	return float64(v.integer), true
}

// Len returns the length of strings (in characters), sequences and maps.
func (v Value) Len() int {
	switch v.kind {
	case KindString:
		return utf8.RuneCountInString(v.str)
	case KindSequence:
		return len(v.items)
	case KindMap:
		return len(v.keys)
	default:
		return 0
	}
}

// Items returns the elements of a sequence.
func (v Value) Items() []Value {
	return v.items
}

// Keys returns the keys of a map in order.
func (v Value) Keys() []string {
	return v.keys
}

// Get looks up a map key.
func (v Value) Get(key string) (Value, bool) {
	if v.kind != KindMap {
		return Null, false
	}
	value, ok := v.entries[key]
	return value, ok
}

// Index resolves `v[index]` for sequences, maps and strings. The second
// result is false when the key or position does not exist.
func (v Value) Index(index Value) (Value, bool) {
	switch v.kind {
	case KindSequence:
		i, ok := indexPosition(index, len(v.items))
		if !ok {
			return Null, false
		}
		return v.items[i], true
	case KindMap:
		return v.Get(index.String())
	case KindString:
		runes := []rune(v.str)
		i, ok := indexPosition(index, len(runes))
		if !ok {
			return Null, false
		}
		return StringValue(string(runes[i])), true
	default:
		return Null, false
	}
}

func indexPosition(index Value, length int) (int, bool) {
	n, ok := toNumber(index)
	if !ok || (n.isFloat() && n.floatValue != math.Trunc(n.floatValue)) {
		return 0, false
	}
	i := int(n.intValue)
	if n.isFloat() {
		i = int(n.floatValue)
	}
	if i < 0 {
		i += length
	}
	if i < 0 || i >= length {
		return 0, false
	}
	return i, true
}

// Truthy coerces the value to a boolean: null, false, 0, "", "0" and empty
// collections are false.
func (v Value) Truthy() bool {
	switch v.kind {
	case KindNull:
		return false
	case KindBool:
		return v.boolean
	case KindNumber:
		if v.isFloat {
			return v.float != 0
		}
		return v.integer != 0
	case KindString:
		return v.str != "" && v.str != "0"
	case KindSequence:
		return len(v.items) > 0
	case KindMap:
		return len(v.keys) > 0
	default:
		return false
	}
}

// String renders the value as template output. True prints as "1" and
// false as the empty string; booleans nested in collections keep their JSON
// form.
func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return ""
	case KindBool:
		if v.boolean {
			return "1"
		}
		return ""
	case KindNumber:
		if !v.isFloat {
			return strconv.FormatInt(v.integer, 10)
		}
		return formatFloat(v.float)
	case KindString:
		return v.str
	default:
		data, err := json.Marshal(v.Interface())
		if err != nil {
			return fmt.Sprint(v.Interface())
		}
		return string(data)
	}
}

func formatFloat(f float64) string {
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// Interface converts the value back to plain Go data: nil, bool, int64,
// float64, string, []interface{} or map[string]interface{}.
func (v Value) Interface() interface{} {
	switch v.kind {
	case KindBool:
		return v.boolean
	case KindNumber:
		if v.isFloat {
			return v.float
		}
		return v.integer
	case KindString:
		return v.str
	case KindSequence:
		out := make([]interface{}, len(v.items))
		for i, item := range v.items {
			out[i] = item.Interface()
		}
		return out
	case KindMap:
		out := make(map[string]interface{}, len(v.keys))
		for _, key := range v.keys {
			out[key] = v.entries[key].Interface()
		}
		return out
	default:
		return nil
	}
}

// Iterate returns the loop domain of the value: 1..n for a number, the
// characters of a string, the elements of a sequence and the values of a
// map in key order.
func (v Value) Iterate() ([]Value, error) {
	switch v.kind {
	case KindNumber:
		n, _ := v.Int()
		if n < 1 {
			return nil, nil
		}
		domain := make([]Value, 0, n)
		for i := int64(1); i <= n; i++ {
			domain = append(domain, IntValue(i))
		}
		return domain, nil
	case KindString:
		domain := make([]Value, 0, len(v.str))
		for _, r := range v.str {
			domain = append(domain, StringValue(string(r)))
		}
		return domain, nil
	case KindSequence:
		return v.items, nil
	case KindMap:
		domain := make([]Value, 0, len(v.keys))
		for _, key := range v.keys {
			domain = append(domain, v.entries[key])
		}
		return domain, nil
	default:
		return nil, fmt.Errorf("cannot iterate over %s", v.kind)
	}
}

// ValueOf converts Go data into a Value. Slices and arrays become sequences;
// maps, and structs through their exported fields, become maps. Map keys
// are sorted since Go maps have no order.
func ValueOf(data interface{}) Value {
	switch v := data.(type) {
	case nil:
		return Null
	case Value:
		return v
	case bool:
		return BoolValue(v)
	case string:
		return StringValue(v)
	case []byte:
		return StringValue(string(v))
	case []interface{}:
		items := make([]Value, len(v))
		for i, item := range v {
			items[i] = ValueOf(item)
		}
		return SequenceValue(items)
	case map[string]interface{}:
		keys := make([]string, 0, len(v))
		entries := make(map[string]Value, len(v))
		for key, item := range v {
			keys = append(keys, key)
			entries[key] = ValueOf(item)
		}
		sort.Strings(keys)
		return MapValue(keys, entries)
	case json.Number:
		if n, ok := parseNumericString(v.String()); ok {
			return n.value()
		}
		return StringValue(v.String())
	case fmt.Stringer:
		if rv := reflect.ValueOf(v); rv.Kind() == reflect.Ptr && rv.IsNil() {
			return Null
		}
		if rv := reflect.ValueOf(v); rv.Kind() != reflect.Struct && rv.Kind() != reflect.Ptr {
			if n, ok := classifyNumber(data); ok {
				return n.value()
			}
		}
		return StringValue(v.String())
	}

	if n, ok := classifyNumber(data); ok {
		return n.value()
	}
	return valueOfReflect(reflect.ValueOf(data))
}

func valueOfReflect(rv reflect.Value) Value {
	switch rv.Kind() {
	case reflect.Invalid:
		return Null
	case reflect.Ptr, reflect.Interface:
		if rv.IsNil() {
			return Null
		}
		return ValueOf(rv.Elem().Interface())
	case reflect.Bool:
		return BoolValue(rv.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return IntValue(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		n, _ := classifyUnsigned(rv.Uint())
		return n.value()
	case reflect.Float32, reflect.Float64:
		return FloatValue(rv.Float())
	case reflect.String:
		return StringValue(rv.String())
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return SequenceValue(nil)
		}
		items := make([]Value, rv.Len())
		for i := range items {
			items[i] = ValueOf(rv.Index(i).Interface())
		}
		return SequenceValue(items)
	case reflect.Map:
		keys := make([]string, 0, rv.Len())
		entries := make(map[string]Value, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			key := fmt.Sprint(iter.Key().Interface())
			keys = append(keys, key)
			entries[key] = ValueOf(iter.Value().Interface())
		}
		sort.Strings(keys)
		return MapValue(keys, entries)
	case reflect.Struct:
		return structValue(rv)
	default:
		return StringValue(fmt.Sprint(rv.Interface()))
	}
}

// structValue maps exported fields, honouring `json` tag names and "-".
func structValue(rv reflect.Value) Value {
	rt := rv.Type()
	var keys []string
	entries := make(map[string]Value)
	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		if field.PkgPath != "" {
			continue
		}
		name := field.Name
		if tag := field.Tag.Get("json"); tag != "" {
			tagName := strings.Split(tag, ",")[0]
			if tagName == "-" {
				continue
			}
			if tagName != "" {
				name = tagName
			}
		}
		keys = append(keys, name)
		entries[name] = ValueOf(rv.Field(i).Interface())
	}
	return MapValue(keys, entries)
}
