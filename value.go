package quickleaf

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Kind tags the dynamic type carried by a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindString
	KindInt
	KindFloat
	KindBool
	KindArray
	KindObject
)

// Value is a tagged dynamic value stored by the cache. Equality is
// structural and tag-sensitive: a String "1" is never equal to an Int 1,
// even though their textual encodings collide. Composite kinds (Array,
// Object) are opaque to the filter predicate (4.E) — they only need to
// round-trip through storage and the durable store's JSON-like encoding.
type Value struct {
	kind Kind
	str  string
	i    int64
	f    float64
	b    bool
	arr  []Value
	obj  map[string]Value
}

func String(s string) Value { return Value{kind: KindString, str: s} }
func Int(i int64) Value     { return Value{kind: KindInt, i: i} }
func Float(f float64) Value { return Value{kind: KindFloat, f: f} }
func Bool(b bool) Value     { return Value{kind: KindBool, b: b} }
func Array(v []Value) Value { return Value{kind: KindArray, arr: v} }
func Object(m map[string]Value) Value {
	return Value{kind: KindObject, obj: m}
}

// Null is the zero Value: neither equal to an empty string nor to zero.
var Null = Value{kind: KindNull}

func (v Value) Kind() Kind { return v.kind }

func (v Value) AsString() (string, bool) {
	if v.kind != KindString {
		return "", false
	}
	return v.str, true
}

func (v Value) AsInt() (int64, bool) {
	if v.kind != KindInt {
		return 0, false
	}
	return v.i, true
}

func (v Value) AsFloat() (float64, bool) {
	if v.kind != KindFloat {
		return 0, false
	}
	return v.f, true
}

func (v Value) AsBool() (bool, bool) {
	if v.kind != KindBool {
		return false, false
	}
	return v.b, true
}

// Equal implements the structural, tag-sensitive equality rule from
// 4.B: integer and float tags are never conflated, and composite values
// compare element-wise/key-wise.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindString:
		return v.str == other.str
	case KindInt:
		return v.i == other.i
	case KindFloat:
		return v.f == other.f
	case KindBool:
		return v.b == other.b
	case KindArray:
		if len(v.arr) != len(other.arr) {
			return false
		}
		for i := range v.arr {
			if !v.arr[i].Equal(other.arr[i]) {
				return false
			}
		}
		return true
	case KindObject:
		if len(v.obj) != len(other.obj) {
			return false
		}
		for k, val := range v.obj {
			ov, ok := other.obj[k]
			if !ok || !val.Equal(ov) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// String renders a human-readable textual form. It is not the wire
// encoding used by the durable store — see MarshalCanonical.
func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindString:
		return v.str
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindArray:
		parts := make([]string, len(v.arr))
		for i, e := range v.arr {
			parts[i] = e.MarshalCanonical()
		}
		return "[" + strings.Join(parts, ",") + "]"
	case KindObject:
		return v.MarshalCanonical()
	default:
		return ""
	}
}

// MarshalCanonical produces the JSON-like encoding required by 6
// ("canonical JSON-like encoding of the tagged value") for the durable
// store's value column. Scalars round-trip exactly through ParseValue;
// composite values are encoded as their canonical JSON form.
func (v Value) MarshalCanonical() string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindString:
		return strconv.Quote(v.str)
	case KindInt:
		return fmt.Sprintf("%d", v.i)
	case KindFloat:
		return fmt.Sprintf("%sF", strconv.FormatFloat(v.f, 'g', -1, 64))
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindArray:
		parts := make([]string, len(v.arr))
		for i, e := range v.arr {
			parts[i] = e.MarshalCanonical()
		}
		return "[" + strings.Join(parts, ",") + "]"
	case KindObject:
		keys := make([]string, 0, len(v.obj))
		for k := range v.obj {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = strconv.Quote(k) + ":" + v.obj[k].MarshalCanonical()
		}
		return "{" + strings.Join(parts, ",") + "}"
	default:
		return "null"
	}
}

// ParseValue reconstructs a scalar Value from its MarshalCanonical
// encoding. It is the durable store's load-path decoder; composite
// values are not round-tripped back into structured Values (they are
// kept as opaque strings, still usable for Get/List).
func ParseValue(s string) Value {
	switch {
	case s == "null":
		return Null
	case s == "true":
		return Bool(true)
	case s == "false":
		return Bool(false)
	case len(s) >= 1 && strings.HasSuffix(s, "F"):
		if f, err := strconv.ParseFloat(strings.TrimSuffix(s, "F"), 64); err == nil {
			return Float(f)
		}
	case len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"':
		if unquoted, err := strconv.Unquote(s); err == nil {
			return String(unquoted)
		}
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return Int(i)
	}
	// Composite or unrecognized encodings are preserved verbatim as a
	// string so the round-trip never loses data outright.
	return String(s)
}
