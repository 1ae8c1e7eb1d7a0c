package wire

import "strconv"

// ToInterface converts the tree to plain Go values (map[string]interface{},
// []interface{}, string, bool, int64, float64, nil) suitable for a generic
// encoder such as msgpack.Marshal.
func (v Value) ToInterface() interface{} {
	switch v.kind {
	case KindNull:
		return nil
	case KindBool:
		return v.b
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	case KindString:
		return v.s
	case KindArray:
		out := make([]interface{}, len(v.arr))
		for i, e := range v.arr {
			out[i] = e.ToInterface()
		}
		return out
	case KindMap:
		out := make(map[string]interface{}, len(v.keys))
		for _, k := range v.keys {
			out[k] = v.m[k].ToInterface()
		}
		return out
	default:
		return nil
	}
}

// FromInterface converts a generically decoded value (as produced by
// msgpack.Decoder.DecodeInterface, which preserves int64/uint64 rather
// than collapsing everything to float64) into the tree, applying the
// large-integer normalization rule of spec.md section 4.1: integers whose
// magnitude exceeds 2^53-1 become decimal strings so that 64-bit chat/user
// identifiers keep full precision.
func FromInterface(raw interface{}) Value {
	switch x := raw.(type) {
	case nil:
		return Null()
	case bool:
		return Bool(x)
	case string:
		return String(x)
	case []byte:
		return String(string(x))
	case int:
		return normalizeSigned(int64(x))
	case int8:
		return normalizeSigned(int64(x))
	case int16:
		return normalizeSigned(int64(x))
	case int32:
		return normalizeSigned(int64(x))
	case int64:
		return normalizeSigned(x)
	case uint:
		return normalizeUnsigned(uint64(x))
	case uint8:
		return normalizeUnsigned(uint64(x))
	case uint16:
		return normalizeUnsigned(uint64(x))
	case uint32:
		return normalizeUnsigned(uint64(x))
	case uint64:
		return normalizeUnsigned(x)
	case float32:
		return Float(float64(x))
	case float64:
		return Float(x)
	case []interface{}:
		vs := make([]Value, len(x))
		for i, e := range x {
			vs[i] = FromInterface(e)
		}
		return Array(vs...)
	case map[string]interface{}:
		pairs := make([]Pair, 0, len(x))
		for k, e := range x {
			pairs = append(pairs, KV(k, FromInterface(e)))
		}
		return Map(pairs...)
	case map[interface{}]interface{}:
		pairs := make([]Pair, 0, len(x))
		for k, e := range x {
			pairs = append(pairs, KV(interfaceKeyToString(k), FromInterface(e)))
		}
		return Map(pairs...)
	default:
		return Null()
	}
}

func normalizeSigned(n int64) Value {
	if n > maxSafeInteger || n < -maxSafeInteger {
		return String(strconv.FormatInt(n, 10))
	}
	return Int(n)
}

func normalizeUnsigned(n uint64) Value {
	if n > maxSafeInteger {
		return String(strconv.FormatUint(n, 10))
	}
	return Int(int64(n))
}

func interfaceKeyToString(k interface{}) string {
	switch x := k.(type) {
	case string:
		return x
	case int64:
		return strconv.FormatInt(x, 10)
	case uint64:
		return strconv.FormatUint(x, 10)
	case bool:
		if x {
			return "true"
		}
		return "false"
	default:
		return "unknown"
	}
}
