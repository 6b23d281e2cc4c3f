package codec

import (
	"fmt"
	"strings"
)

// ValueKind identifies the variant held by a Value.
type ValueKind uint8

const (
	KindNull ValueKind = iota
	KindBool
	KindInt32
	KindInt64
	KindBigInt
	KindFloat64
	KindString
	KindByteList
	KindInt32List
	KindInt64List
	KindFloat64List
	KindList
	KindMap
)

func (k ValueKind) String() string {
	switch k {
	case KindNull:
		return "Null"
	case KindBool:
		return "Bool"
	case KindInt32:
		return "Int32"
	case KindInt64:
		return "Int64"
	case KindBigInt:
		return "BigInt"
	case KindFloat64:
		return "Float64"
	case KindString:
		return "String"
	case KindByteList:
		return "ByteList"
	case KindInt32List:
		return "Int32List"
	case KindInt64List:
		return "Int64List"
	case KindFloat64List:
		return "Float64List"
	case KindList:
		return "List"
	case KindMap:
		return "Map"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(k))
	}
}

// Pair is a single map entry. Map values keep their entries in insertion
// order and that order is preserved on the wire, but readers must not rely
// on it for correctness.
type Pair struct {
	Key   Value
	Value Value
}

// Value is the tagged union carried by channel payloads. Keys of map values
// may be any variant, not just strings. The zero Value is Null.
type Value struct {
	kind  ValueKind
	b     bool
	num   int64
	f     float64
	str   string
	bytes []byte
	i32s  []int32
	i64s  []int64
	f64s  []float64
	list  []Value
	pairs []Pair
}

// Null returns the null Value.
func Null() Value {
	return Value{}
}

// Bool returns a boolean Value.
func Bool(v bool) Value {
	return Value{kind: KindBool, b: v}
}

// Int32 returns a 32-bit integer Value.
func Int32(v int32) Value {
	return Value{kind: KindInt32, num: int64(v)}
}

// Int64 returns a 64-bit integer Value.
func Int64(v int64) Value {
	return Value{kind: KindInt64, num: v}
}

// BigInt returns a big-integer Value carrying the integer's ASCII
// representation verbatim.
func BigInt(digits string) Value {
	return Value{kind: KindBigInt, str: digits}
}

// Float64 returns a floating point Value.
func Float64(v float64) Value {
	return Value{kind: KindFloat64, f: v}
}

// String returns a string Value.
func String(v string) Value {
	return Value{kind: KindString, str: v}
}

// ByteList returns a byte list Value. The slice is not copied.
func ByteList(v []byte) Value {
	return Value{kind: KindByteList, bytes: v}
}

// Int32List returns an int32 list Value. The slice is not copied.
func Int32List(v []int32) Value {
	return Value{kind: KindInt32List, i32s: v}
}

// Int64List returns an int64 list Value. The slice is not copied.
func Int64List(v []int64) Value {
	return Value{kind: KindInt64List, i64s: v}
}

// Float64List returns a float64 list Value. The slice is not copied.
func Float64List(v []float64) Value {
	return Value{kind: KindFloat64List, f64s: v}
}

// List returns a heterogeneous list Value.
func List(items ...Value) Value {
	return Value{kind: KindList, list: items}
}

// Map returns a map Value with the given entries in order.
func Map(entries ...Pair) Value {
	return Value{kind: KindMap, pairs: entries}
}

// Kind returns the variant held by v.
func (v Value) Kind() ValueKind {
	return v.kind
}

// IsNull reports whether v is the null Value.
func (v Value) IsNull() bool {
	return v.kind == KindNull
}

// Bool returns the boolean variant; false for other kinds.
func (v Value) Bool() bool {
	return v.kind == KindBool && v.b
}

// Int32 returns the 32-bit integer variant; 0 for other kinds.
func (v Value) Int32() int32 {
	if v.kind == KindInt32 {
		return int32(v.num)
	}
	return 0
}

// Int64 returns the integer variant widened to 64 bits; 0 for non-integer
// kinds.
func (v Value) Int64() int64 {
	if v.kind == KindInt32 || v.kind == KindInt64 {
		return v.num
	}
	return 0
}

// Float64 returns the floating point variant; 0 for other kinds.
func (v Value) Float64() float64 {
	if v.kind == KindFloat64 {
		return v.f
	}
	return 0
}

// String returns the string variant for String and BigInt values. For every
// other kind it returns a short description, in the manner of
// reflect.Value.String.
func (v Value) String() string {
	switch v.kind {
	case KindString, KindBigInt:
		return v.str
	default:
		return "<" + v.kind.String() + " value>"
	}
}

// ByteList returns the byte list variant; nil for other kinds.
func (v Value) ByteList() []byte {
	return v.bytes
}

// Int32List returns the int32 list variant; nil for other kinds.
func (v Value) Int32List() []int32 {
	return v.i32s
}

// Int64List returns the int64 list variant; nil for other kinds.
func (v Value) Int64List() []int64 {
	return v.i64s
}

// Float64List returns the float64 list variant; nil for other kinds.
func (v Value) Float64List() []float64 {
	return v.f64s
}

// List returns the elements of a list Value; nil for other kinds.
func (v Value) List() []Value {
	return v.list
}

// Pairs returns the entries of a map Value in insertion order; nil for
// other kinds.
func (v Value) Pairs() []Pair {
	return v.pairs
}

// Len returns the element count of list, map and typed-list values, the
// byte length of strings, and 0 otherwise.
func (v Value) Len() int {
	switch v.kind {
	case KindString, KindBigInt:
		return len(v.str)
	case KindByteList:
		return len(v.bytes)
	case KindInt32List:
		return len(v.i32s)
	case KindInt64List:
		return len(v.i64s)
	case KindFloat64List:
		return len(v.f64s)
	case KindList:
		return len(v.list)
	case KindMap:
		return len(v.pairs)
	default:
		return 0
	}
}

// Get looks up a map entry by key. Lookup is a linear scan; map values are
// small in practice.
func (v Value) Get(key Value) (Value, bool) {
	for _, p := range v.pairs {
		if p.Key.Equal(key) {
			return p.Value, true
		}
	}
	return Value{}, false
}

// GetString is shorthand for Get with a string key.
func (v Value) GetString(key string) (Value, bool) {
	return v.Get(String(key))
}

// Equal reports deep equality of two values. Map entries are compared
// without regard to order, since readers must not depend on map iteration
// order.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindBool:
		return v.b == other.b
	case KindInt32, KindInt64:
		return v.num == other.num
	case KindBigInt, KindString:
		return v.str == other.str
	case KindFloat64:
		return v.f == other.f
	case KindByteList:
		if len(v.bytes) != len(other.bytes) {
			return false
		}
		for i := range v.bytes {
			if v.bytes[i] != other.bytes[i] {
				return false
			}
		}
		return true
	case KindInt32List:
		if len(v.i32s) != len(other.i32s) {
			return false
		}
		for i := range v.i32s {
			if v.i32s[i] != other.i32s[i] {
				return false
			}
		}
		return true
	case KindInt64List:
		if len(v.i64s) != len(other.i64s) {
			return false
		}
		for i := range v.i64s {
			if v.i64s[i] != other.i64s[i] {
				return false
			}
		}
		return true
	case KindFloat64List:
		if len(v.f64s) != len(other.f64s) {
			return false
		}
		for i := range v.f64s {
			if v.f64s[i] != other.f64s[i] {
				return false
			}
		}
		return true
	case KindList:
		if len(v.list) != len(other.list) {
			return false
		}
		for i := range v.list {
			if !v.list[i].Equal(other.list[i]) {
				return false
			}
		}
		return true
	case KindMap:
		// Entries compare as a multiset so duplicate keys cannot make
		// equality depend on which operand is the receiver.
		if len(v.pairs) != len(other.pairs) {
			return false
		}
		matched := make([]bool, len(other.pairs))
	outer:
		for _, p := range v.pairs {
			for i, q := range other.pairs {
				if !matched[i] && p.Key.Equal(q.Key) && p.Value.Equal(q.Value) {
					matched[i] = true
					continue outer
				}
			}
			return false
		}
		return true
	default:
		return false
	}
}

// GoString renders a debug representation.
func (v Value) GoString() string {
	switch v.kind {
	case KindNull:
		return "Null()"
	case KindBool:
		return fmt.Sprintf("Bool(%v)", v.b)
	case KindInt32:
		return fmt.Sprintf("Int32(%d)", int32(v.num))
	case KindInt64:
		return fmt.Sprintf("Int64(%d)", v.num)
	case KindBigInt:
		return fmt.Sprintf("BigInt(%q)", v.str)
	case KindFloat64:
		return fmt.Sprintf("Float64(%g)", v.f)
	case KindString:
		return fmt.Sprintf("String(%q)", v.str)
	case KindByteList:
		return fmt.Sprintf("ByteList(%d bytes)", len(v.bytes))
	case KindInt32List:
		return fmt.Sprintf("Int32List(%v)", v.i32s)
	case KindInt64List:
		return fmt.Sprintf("Int64List(%v)", v.i64s)
	case KindFloat64List:
		return fmt.Sprintf("Float64List(%v)", v.f64s)
	case KindList:
		parts := make([]string, len(v.list))
		for i, e := range v.list {
			parts[i] = e.GoString()
		}
		return "List(" + strings.Join(parts, ", ") + ")"
	case KindMap:
		parts := make([]string, len(v.pairs))
		for i, p := range v.pairs {
			parts[i] = p.Key.GoString() + ": " + p.Value.GoString()
		}
		return "Map{" + strings.Join(parts, ", ") + "}"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(v.kind))
	}
}
