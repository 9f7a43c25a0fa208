// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package expr

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Kind identifies which variant a Value holds.
type Kind int

const (
	KindNull Kind = iota
	KindBoolean
	KindNumber
	KindString
	KindArray
	KindObject
)

// String returns the lowercase type name used in results ("null", "boolean",
// "number", "string", "array", "object").
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBoolean:
		return "boolean"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return "invalid"
	}
}

// Value is one of the six expression value variants: Null, Boolean, Number,
// String, Array, or *Object. The set is closed; no other type may implement
// it.
type Value interface {
	Kind() Kind

	// Interface returns the plain Go representation (nil, bool, float64,
	// string, []any, or map[string]any).
	Interface() any
}

// Null is the absent value.
type Null struct{}

// Boolean is a true/false value.
type Boolean bool

// Number is a double-precision numeric value.
type Number float64

// String is a text value.
type String string

// Array is an ordered sequence of values.
type Array []Value

// Object is a mapping from names to values that preserves insertion order.
type Object struct {
	m *orderedmap.OrderedMap[string, Value]
}

func (Null) Kind() Kind    { return KindNull }
func (Boolean) Kind() Kind { return KindBoolean }
func (Number) Kind() Kind  { return KindNumber }
func (String) Kind() Kind  { return KindString }
func (Array) Kind() Kind   { return KindArray }
func (*Object) Kind() Kind { return KindObject }

func (Null) Interface() any      { return nil }
func (v Boolean) Interface() any { return bool(v) }
func (v Number) Interface() any  { return float64(v) }
func (v String) Interface() any  { return string(v) }

func (v Array) Interface() any {
	out := make([]any, len(v))
	for i, el := range v {
		out[i] = el.Interface()
	}
	return out
}

func (v *Object) Interface() any {
	out := make(map[string]any, v.Len())
	for pair := v.m.Oldest(); pair != nil; pair = pair.Next() {
		out[pair.Key] = pair.Value.Interface()
	}
	return out
}

// NewObject creates an empty object.
func NewObject() *Object {
	return &Object{m: orderedmap.New[string, Value]()}
}

// Set stores a value under name, appending the key if it is new.
func (v *Object) Set(name string, val Value) {
	v.m.Set(name, val)
}

// Get returns the value stored under name.
func (v *Object) Get(name string) (Value, bool) {
	return v.m.Get(name)
}

// Len returns the number of keys.
func (v *Object) Len() int {
	return v.m.Len()
}

// Keys returns the object's keys in insertion order.
func (v *Object) Keys() []string {
	keys := make([]string, 0, v.m.Len())
	for pair := v.m.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	return keys
}

// Values returns the object's values in insertion order.
func (v *Object) Values() []Value {
	vals := make([]Value, 0, v.m.Len())
	for pair := v.m.Oldest(); pair != nil; pair = pair.Next() {
		vals = append(vals, pair.Value)
	}
	return vals
}

// FromAny converts a plain Go value (as produced by YAML or JSON decoding)
// into a Value. Unsupported types are rendered through fmt as strings.
func FromAny(v any) Value {
	switch val := v.(type) {
	case nil:
		return Null{}
	case bool:
		return Boolean(val)
	case int:
		return Number(float64(val))
	case int32:
		return Number(float64(val))
	case int64:
		return Number(float64(val))
	case uint64:
		return Number(float64(val))
	case float32:
		return Number(float64(val))
	case float64:
		return Number(val)
	case string:
		return String(val)
	case []any:
		arr := make(Array, len(val))
		for i, el := range val {
			arr[i] = FromAny(el)
		}
		return arr
	case []string:
		arr := make(Array, len(val))
		for i, el := range val {
			arr[i] = String(el)
		}
		return arr
	case map[string]any:
		obj := NewObject()
		for _, k := range sortedKeys(val) {
			obj.Set(k, FromAny(val[k]))
		}
		return obj
	case map[any]any:
		obj := NewObject()
		for k, el := range val {
			obj.Set(fmt.Sprintf("%v", k), FromAny(el))
		}
		return obj
	default:
		return String(fmt.Sprintf("%v", v))
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	// Go maps have no order; sort so snapshots built from the same data
	// always produce the same object layout.
	sort.Strings(keys)
	return keys
}

// Truthy is the total coercion from any Value to a boolean, used by !, &&,
// and ||. Booleans are themselves; numbers are falsy only for 0 and NaN;
// strings are falsy only when empty; null is falsy; arrays and objects are
// always truthy regardless of emptiness.
func Truthy(v Value) bool {
	switch val := v.(type) {
	case Null:
		return false
	case Boolean:
		return bool(val)
	case Number:
		f := float64(val)
		return f != 0 && !math.IsNaN(f)
	case String:
		return val != ""
	default:
		return true
	}
}

// looseEquals implements the loose structural equality used by == and !=
// and by contains(). Null equals only null. For scalar operands, if either
// side is a number the other is coerced to a number first; otherwise both
// are compared as strings. Arrays and objects compare structurally against
// the same kind and never equal a scalar.
func looseEquals(a, b Value) bool {
	if a.Kind() == KindNull || b.Kind() == KindNull {
		return a.Kind() == KindNull && b.Kind() == KindNull
	}

	switch av := a.(type) {
	case Array:
		bv, ok := b.(Array)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !looseEquals(av[i], bv[i]) {
				return false
			}
		}
		return true
	case *Object:
		bv, ok := b.(*Object)
		if !ok || av.Len() != bv.Len() {
			return false
		}
		for pair := av.m.Oldest(); pair != nil; pair = pair.Next() {
			other, found := bv.Get(pair.Key)
			if !found || !looseEquals(pair.Value, other) {
				return false
			}
		}
		return true
	}
	if b.Kind() == KindArray || b.Kind() == KindObject {
		return false
	}

	// Scalar comparison.
	if a.Kind() == KindNumber || b.Kind() == KindNumber {
		an, bn := toNumber(a), toNumber(b)
		return an == bn // NaN compares unequal to everything, including NaN
	}
	as, _ := coerceString(a)
	bs, _ := coerceString(b)
	return as == bs
}

// toNumber coerces a value to a number for comparison. Non-numeric strings,
// arrays, and objects coerce to NaN.
func toNumber(v Value) float64 {
	switch val := v.(type) {
	case Null:
		return 0
	case Boolean:
		if val {
			return 1
		}
		return 0
	case Number:
		return float64(val)
	case String:
		s := strings.TrimSpace(string(val))
		if s == "" {
			return 0
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
		if u, err := strconv.ParseUint(strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X"), 16, 64); err == nil && (strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X")) {
			return float64(u)
		}
		return math.NaN()
	default:
		return math.NaN()
	}
}

// coerceString converts a scalar value to text: null becomes "", booleans
// "true"/"false", numbers their shortest round-trip decimal form. Arrays and
// objects are not implicitly coercible and yield a TypeError; use toJSON for
// those.
func coerceString(v Value) (string, error) {
	switch val := v.(type) {
	case Null:
		return "", nil
	case Boolean:
		if val {
			return "true", nil
		}
		return "false", nil
	case Number:
		return formatNumber(float64(val)), nil
	case String:
		return string(val), nil
	default:
		return "", &TypeError{Message: fmt.Sprintf("cannot convert %s to string; use toJSON", v.Kind())}
	}
}

// formatNumber renders a number as its shortest round-trip decimal text.
func formatNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	}
	if f == math.Trunc(f) && math.Abs(f) < 1e21 {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}
