package wire

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// Kind discriminates the dynamically typed payload tree (spec.md section
// 9: "payloads are an open schema").
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindArray
	KindMap
)

// Value is a tagged union standing in for the server's untyped JSON-like
// payload tree. Zero Value is KindNull.
type Value struct {
	kind Kind
	b    bool
	i    int64
	f    float64
	s    string
	arr  []Value
	// keys preserves insertion order; m mirrors it for lookup.
	keys []string
	m    map[string]Value
}

func Null() Value  { return Value{kind: KindNull} }
func Bool(b bool) Value  { return Value{kind: KindBool, b: b} }
func Int(i int64) Value  { return Value{kind: KindInt, i: i} }
func Float(f float64) Value { return Value{kind: KindFloat, f: f} }
func String(s string) Value { return Value{kind: KindString, s: s} }
func Array(vs ...Value) Value { return Value{kind: KindArray, arr: vs} }

// Map builds an ordered string-keyed map value, preserving the order keys
// are passed in (not sorted).
func Map(pairs ...Pair) Value {
	v := Value{kind: KindMap, m: make(map[string]Value, len(pairs))}
	for _, p := range pairs {
		if _, exists := v.m[p.Key]; !exists {
			v.keys = append(v.keys, p.Key)
		}
		v.m[p.Key] = p.Val
	}
	return v
}

// Pair is one key/value entry used to build a Map value.
type Pair struct {
	Key string
	Val Value
}

func KV(key string, val Value) Pair { return Pair{Key: key, Val: val} }

func (v Value) Kind() Kind { return v.kind }

func (v Value) IsNull() bool { return v.kind == KindNull }

// Get performs a single-level lookup into a map Value. It never panics;
// a missing key or non-map receiver yields (Null(), false).
func (v Value) Get(key string) (Value, bool) {
	if v.kind != KindMap {
		return Value{}, false
	}
	val, ok := v.m[key]
	return val, ok
}

// Path walks a dotted sequence of map keys, e.g. Path("profile", "contact", "id").
// Missing intermediate keys yield (Null(), false) rather than panicking.
func (v Value) Path(keys ...string) (Value, bool) {
	cur := v
	for _, k := range keys {
		next, ok := cur.Get(k)
		if !ok {
			return Value{}, false
		}
		cur = next
	}
	return cur, true
}

func (v Value) AsBool() (bool, bool) {
	if v.kind != KindBool {
		return false, false
	}
	return v.b, true
}

// AsInt64 accepts both a native integer Value and a decimal-string Value,
// the representation used for identifiers beyond 2^53-1 (spec.md section
// 4.1 / 9).
func (v Value) AsInt64() (int64, bool) {
	switch v.kind {
	case KindInt:
		return v.i, true
	case KindString:
		n, err := strconv.ParseInt(v.s, 10, 64)
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

func (v Value) AsFloat64() (float64, bool) {
	switch v.kind {
	case KindFloat:
		return v.f, true
	case KindInt:
		return float64(v.i), true
	default:
		return 0, false
	}
}

func (v Value) AsString() (string, bool) {
	if v.kind != KindString {
		return "", false
	}
	return v.s, true
}

func (v Value) AsArray() ([]Value, bool) {
	if v.kind != KindArray {
		return nil, false
	}
	return v.arr, true
}

// maxSafeInteger is the largest integer magnitude that round-trips
// losslessly through an IEEE-754 double, i.e. 2^53-1.
const maxSafeInteger = 1<<53 - 1

// MarshalJSON encodes the tree the way the web transport puts it on the
// wire: plain JSON, with no large-integer normalization (that rule is a
// mobile-transport decode-time concern, per spec.md section 4.1).
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNull:
		return []byte("null"), nil
	case KindBool:
		if v.b {
			return []byte("true"), nil
		}
		return []byte("false"), nil
	case KindInt:
		return []byte(strconv.FormatInt(v.i, 10)), nil
	case KindFloat:
		return json.Marshal(v.f)
	case KindString:
		return json.Marshal(v.s)
	case KindArray:
		buf := []byte{'['}
		for i, e := range v.arr {
			if i > 0 {
				buf = append(buf, ',')
			}
			eb, err := e.MarshalJSON()
			if err != nil {
				return nil, err
			}
			buf = append(buf, eb...)
		}
		buf = append(buf, ']')
		return buf, nil
	case KindMap:
		buf := []byte{'{'}
		for i, k := range v.keys {
			if i > 0 {
				buf = append(buf, ',')
			}
			kb, err := json.Marshal(k)
			if err != nil {
				return nil, err
			}
			buf = append(buf, kb...)
			buf = append(buf, ':')
			vb, err := v.m[k].MarshalJSON()
			if err != nil {
				return nil, err
			}
			buf = append(buf, vb...)
		}
		buf = append(buf, '}')
		return buf, nil
	default:
		return nil, fmt.Errorf("wire: unknown value kind %d", v.kind)
	}
}

// UnmarshalJSON decodes an inbound web-transport payload into the tree.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*v = FromJSON(raw)
	return nil
}

// FromJSON converts a decoded encoding/json value (map[string]interface{},
// []interface{}, json.Number/float64, string, bool, nil) into a Value.
func FromJSON(raw interface{}) Value {
	switch x := raw.(type) {
	case nil:
		return Null()
	case bool:
		return Bool(x)
	case string:
		return String(x)
	case float64:
		if x == float64(int64(x)) {
			return Int(int64(x))
		}
		return Float(x)
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return Int(n)
		}
		f, _ := x.Float64()
		return Float(f)
	case []interface{}:
		vs := make([]Value, len(x))
		for i, e := range x {
			vs[i] = FromJSON(e)
		}
		return Array(vs...)
	case map[string]interface{}:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		pairs := make([]Pair, len(keys))
		for i, k := range keys {
			pairs[i] = KV(k, FromJSON(x[k]))
		}
		return Map(pairs...)
	default:
		return Null()
	}
}
