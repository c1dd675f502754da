package model

import (
	"fmt"
	"strconv"
)

// Value is a single allowed value of a dimension. It is either an integer
// or a string token. Values are comparable and can be used as map keys.
type Value struct {
	str   string
	num   int64
	isInt bool
}

// Int returns an integer value.
func Int(n int64) Value {
	return Value{num: n, isInt: true}
}

// String returns a string token value.
func String(s string) Value {
	return Value{str: s}
}

// ParseValue interprets s as an integer if possible and as a token otherwise.
func ParseValue(s string) Value {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return Int(n)
	}
	return String(s)
}

// IsInt reports whether v holds an integer.
func (v Value) IsInt() bool {
	return v.isInt
}

// Int64 returns the integer held by v.
func (v Value) Int64() (int64, bool) {
	return v.num, v.isInt
}

// String formats the value the same way it appears in record identities.
func (v Value) String() string {
	if v.isInt {
		return strconv.FormatInt(v.num, 10)
	}
	return v.str
}

// GoString is used by %#v.
func (v Value) GoString() string {
	if v.isInt {
		return fmt.Sprintf("model.Int(%d)", v.num)
	}
	return fmt.Sprintf("model.String(%q)", v.str)
}

// Values converts plain Go values (int, int64, string) into Values. It panics
// on other types and is meant for literals in code and tests.
func Values(in ...any) []Value {
	out := make([]Value, 0, len(in))
	for _, v := range in {
		switch t := v.(type) {
		case int:
			out = append(out, Int(int64(t)))
		case int64:
			out = append(out, Int(t))
		case string:
			out = append(out, String(t))
		case Value:
			out = append(out, t)
		default:
			panic(fmt.Sprintf("unsupported value type %T", v))
		}
	}
	return out
}
