// Package ctyutil converts between plain Go values and cty values for node
// implementations.
package ctyutil

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/zclconf/go-cty/cty"
	ctyjson "github.com/zclconf/go-cty/cty/json"
)

// FromGo converts any JSON-encodable Go value into a cty value of its
// implied type. Nil becomes a null of dynamic type.
func FromGo(v any) (cty.Value, error) {
	if v == nil {
		return cty.NullVal(cty.DynamicPseudoType), nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return cty.NilVal, fmt.Errorf("encode %T: %w", v, err)
	}
	return FromJSON(raw)
}

// FromJSON decodes a JSON document into a cty value of its implied type.
func FromJSON(raw []byte) (cty.Value, error) {
	ty, err := ctyjson.ImpliedType(raw)
	if err != nil {
		return cty.NilVal, fmt.Errorf("infer type: %w", err)
	}
	v, err := ctyjson.Unmarshal(raw, ty)
	if err != nil {
		return cty.NilVal, fmt.Errorf("decode: %w", err)
	}
	return v, nil
}

// ToJSON encodes v as plain JSON using its own type. NilVal encodes as null.
func ToJSON(v cty.Value) ([]byte, error) {
	if v == cty.NilVal {
		return []byte("null"), nil
	}
	return ctyjson.Marshal(v, v.Type())
}

// StringMap returns a map(string) value. An empty map is typed, not null.
func StringMap(m map[string]string) cty.Value {
	if len(m) == 0 {
		return cty.MapValEmpty(cty.String)
	}
	vals := make(map[string]cty.Value, len(m))
	for k, v := range m {
		vals[k] = cty.StringVal(v)
	}
	return cty.MapVal(vals)
}

// SortedKeys returns the keys of m in ascending order.
func SortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
