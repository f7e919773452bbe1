// Package schema converts RAML data types to JSON Schema and validates
// example values against them.
package schema

import (
	"bytes"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/goccy/go-json"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"raml-toolkit/internal/model"
)

// FromShape returns the JSON Schema for s. Recursive types are cut at the
// first repetition with an unconstrained schema.
func FromShape(s *model.Shape) map[string]any {
	return fromShape(s, map[*model.Shape]bool{})
}

func fromShape(s *model.Shape, stack map[*model.Shape]bool) map[string]any {
	if s == nil || stack[s] {
		return map[string]any{}
	}
	stack[s] = true
	defer delete(stack, s)

	if s.IsReference() {
		out := fromShape(s.Link, stack)
		if s.Description != "" {
			out["description"] = s.Description
		}
		return out
	}

	out := map[string]any{}
	if s.Description != "" {
		out["description"] = s.Description
	}
	switch s.BaseType() {
	case "string", "date-only", "time-only", "datetime-only", "datetime":
		out["type"] = "string"
		if p := facetString(s, func(x *model.Shape) string { return x.Pattern }); p != "" {
			out["pattern"] = p
		}
		if v := facetInt(s, func(x *model.Shape) *int { return x.MinLength }); v != nil {
			out["minLength"] = *v
		}
		if v := facetInt(s, func(x *model.Shape) *int { return x.MaxLength }); v != nil {
			out["maxLength"] = *v
		}
	case "number", "integer":
		out["type"] = s.BaseType()
		if v := facetFloat(s, func(x *model.Shape) *float64 { return x.Minimum }); v != nil {
			out["minimum"] = *v
		}
		if v := facetFloat(s, func(x *model.Shape) *float64 { return x.Maximum }); v != nil {
			out["maximum"] = *v
		}
	case "boolean":
		out["type"] = "boolean"
	case "nil":
		out["type"] = "null"
	case "object":
		out["type"] = "object"
		props := map[string]any{}
		var required []string
		for _, p := range s.EffectiveProperties() {
			props[p.Name] = fromShape(p.Shape, stack)
			if p.Required {
				required = append(required, p.Name)
			}
		}
		if len(props) > 0 {
			out["properties"] = props
		}
		if len(required) > 0 {
			sort.Strings(required)
			out["required"] = required
		}
	case "array":
		out["type"] = "array"
		if items := s.ItemShape(); items != nil {
			out["items"] = fromShape(items, stack)
		}
	case "union":
		var anyOf []any
		for _, v := range s.Variants() {
			anyOf = append(anyOf, fromShape(v, stack))
		}
		if len(anyOf) > 0 {
			out["anyOf"] = anyOf
		}
	}
	if enum := facetEnum(s); len(enum) > 0 {
		out["enum"] = Normalize(enum)
	}
	return out
}

// Compile builds a validator for s.
func Compile(s *model.Shape) (*jsonschema.Schema, error) {
	data, err := json.Marshal(FromShape(s))
	if err != nil {
		return nil, err
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("shape.json", bytes.NewReader(data)); err != nil {
		return nil, err
	}
	return compiler.Compile("shape.json")
}

// Validate checks value against the JSON Schema of s.
func Validate(s *model.Shape, value any) error {
	compiled, err := Compile(s)
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	return compiled.Validate(Normalize(value))
}

// Normalize converts decoded YAML values into the value space the JSON
// Schema validator expects.
func Normalize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = Normalize(val)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[fmt.Sprint(k)] = Normalize(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = Normalize(val)
		}
		return out
	case int:
		return float64(t)
	case int64:
		return float64(t)
	case uint64:
		return float64(t)
	case float64:
		if math.IsInf(t, 0) || math.IsNaN(t) {
			return fmt.Sprint(t)
		}
		return t
	case time.Time:
		return t.Format(time.RFC3339)
	default:
		return v
	}
}

func facetString(s *model.Shape, get func(*model.Shape) string) string {
	v, _ := model.LookupFacet(s, func(x *model.Shape) (string, bool) { return get(x), get(x) != "" })
	return v
}

func facetInt(s *model.Shape, get func(*model.Shape) *int) *int {
	v, _ := model.LookupFacet(s, func(x *model.Shape) (*int, bool) { return get(x), get(x) != nil })
	return v
}

func facetFloat(s *model.Shape, get func(*model.Shape) *float64) *float64 {
	v, _ := model.LookupFacet(s, func(x *model.Shape) (*float64, bool) { return get(x), get(x) != nil })
	return v
}

func facetEnum(s *model.Shape) []any {
	v, _ := model.LookupFacet(s, func(x *model.Shape) ([]any, bool) { return x.Enum, len(x.Enum) > 0 })
	return v
}
