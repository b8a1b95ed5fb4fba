// Package value defines the tagged value domain that flows through
// variables and method inputs/outputs. The core is parametric in the
// value type (spec.md §6): methods exchange Values, and the engine only
// requires equality, cloning, and the ability to cross the worker
// boundary (spec.md §5) as an immutable snapshot.
package value

import "fmt"

// Kind tags the underlying representation of a Value.
type Kind int

const (
	KindNil Kind = iota
	KindFloat64
	KindString
	KindBool
	KindInt
)

func (k Kind) String() string {
	switch k {
	case KindNil:
		return "nil"
	case KindFloat64:
		return "float64"
	case KindString:
		return "string"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	default:
		return "unknown"
	}
}

// Value is a tagged sum over the value domain. The zero Value is ⊥
// (Kind == KindNil), representing a variable that has never been
// written.
type Value struct {
	kind Kind
	f    float64
	s    string
	b    bool
	i    int64
}

// Nil is the bottom value ⊥.
var Nil = Value{kind: KindNil}

func Float64(f float64) Value { return Value{kind: KindFloat64, f: f} }
func String(s string) Value   { return Value{kind: KindString, s: s} }
func Bool(b bool) Value       { return Value{kind: KindBool, b: b} }
func Int(i int64) Value       { return Value{kind: KindInt, i: i} }

// Kind reports the tag of v.
func (v Value) Kind() Kind { return v.kind }

// IsNil reports whether v is ⊥.
func (v Value) IsNil() bool { return v.kind == KindNil }

// Float64 returns the float payload and whether v actually holds one.
func (v Value) Float64() (float64, bool) { return v.f, v.kind == KindFloat64 }

// String returns the string payload and whether v actually holds one.
func (v Value) String() (string, bool) { return v.s, v.kind == KindString }

// Bool returns the bool payload and whether v actually holds one.
func (v Value) Bool() (bool, bool) { return v.b, v.kind == KindBool }

// Int returns the int payload and whether v actually holds one.
func (v Value) Int() (int64, bool) { return v.i, v.kind == KindInt }

// Equal reports whether two values have the same kind and payload. Two
// ⊥ values are always equal.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindNil:
		return true
	case KindFloat64:
		return v.f == other.f
	case KindString:
		return v.s == other.s
	case KindBool:
		return v.b == other.b
	case KindInt:
		return v.i == other.i
	default:
		return false
	}
}

// Clone returns an independent copy of v. Every Value here is already a
// plain immutable struct, so Clone is a value copy — it exists as an
// explicit operation because it is part of the value domain's required
// capability set (spec.md §6) and a richer Kind (e.g. a slice/map
// payload) would need to deep-copy here.
func (v Value) Clone() Value { return v }

// GoString renders v for logs and error messages.
func (v Value) GoString() string {
	switch v.kind {
	case KindNil:
		return "⊥"
	case KindFloat64:
		return fmt.Sprintf("%g", v.f)
	case KindString:
		return fmt.Sprintf("%q", v.s)
	case KindBool:
		return fmt.Sprintf("%t", v.b)
	case KindInt:
		return fmt.Sprintf("%d", v.i)
	default:
		return "<invalid>"
	}
}
