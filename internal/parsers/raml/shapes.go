package raml

import (
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"raml-toolkit/internal/model"
)

func (p *parser) shape(n *yaml.Node, name, location string) *model.Shape {
	n = deref(n)
	s := &model.Shape{Name: name, Location: location}
	if isNull(n) {
		s.Type = "string"
		return s
	}
	s.Line = n.Line
	switch n.Kind {
	case yaml.ScalarNode:
		typeExpr(s, n.Value)
		return s
	case yaml.SequenceNode:
		inherit(s, strList(n))
		return s
	case yaml.MappingNode:
	default:
		s.Type = "any"
		return s
	}

	for _, kv := range pairs(n) {
		if kv.key.Value != "type" && kv.key.Value != "schema" {
			continue
		}
		switch kv.value.Kind {
		case yaml.ScalarNode:
			typeExpr(s, kv.value.Value)
		case yaml.SequenceNode:
			inherit(s, strList(kv.value))
		case yaml.MappingNode:
			inline := p.shape(kv.value, name, location)
			*s = *inline
		}
	}

	for _, kv := range pairs(n) {
		v := kv.value
		switch kv.key.Value {
		case "description":
			s.Description = scalar(v)
		case "properties":
			s.Properties = p.properties(v, location)
		case "items":
			s.Items = p.shape(v, "", location)
		case "enum":
			if list, ok := decode(v).([]any); ok {
				s.Enum = list
			}
		case "pattern":
			s.Pattern = scalar(v)
		case "format":
			s.Format = scalar(v)
		case "minLength":
			s.MinLength = intFacet(v)
		case "maxLength":
			s.MaxLength = intFacet(v)
		case "minimum":
			s.Minimum = floatFacet(v)
		case "maximum":
			s.Maximum = floatFacet(v)
		case "example":
			s.Example = exampleValue(v)
		case "examples":
			s.Examples = map[string]any{}
			for _, ex := range pairs(v) {
				s.Examples[ex.key.Value] = exampleValue(ex.value)
			}
		case "default":
			s.Default = decode(v)
		}
	}

	if s.Type == "" {
		switch {
		case len(s.Properties) > 0:
			s.Type = "object"
		case s.Items != nil:
			s.Type = "array"
		default:
			s.Type = "string"
		}
	}
	return s
}

// typeExpr applies a RAML type expression such as "Customer",
// "string[]", "Cat | Dog" or "(A | B)[]" to s.
func typeExpr(s *model.Shape, expr string) {
	expr = strings.TrimSpace(expr)
	switch {
	case expr == "":
		s.Type = "string"
	case looksLikeExternalSchema(expr):
		s.Type = "any"
	case len(splitUnion(expr)) > 1:
		s.Type = "union"
		for _, part := range splitUnion(expr) {
			v := &model.Shape{Location: s.Location, Line: s.Line}
			typeExpr(v, part)
			s.AnyOf = append(s.AnyOf, v)
		}
	case strings.HasSuffix(expr, "[]"):
		s.Type = "array"
		item := &model.Shape{Location: s.Location, Line: s.Line}
		typeExpr(item, strings.TrimSuffix(expr, "[]"))
		s.Items = item
	case strings.HasPrefix(expr, "(") && strings.HasSuffix(expr, ")"):
		typeExpr(s, expr[1:len(expr)-1])
	default:
		s.Type = expr
		if !model.IsBuiltinType(expr) {
			s.Inherits = []string{expr}
		}
	}
}

func inherit(s *model.Shape, names []string) {
	switch len(names) {
	case 0:
		s.Type = "string"
	case 1:
		typeExpr(s, names[0])
	default:
		s.Type = names[0]
		for _, n := range names {
			if !model.IsBuiltinType(n) {
				s.Inherits = append(s.Inherits, n)
			}
		}
	}
}

func splitUnion(expr string) []string {
	var parts []string
	depth, start := 0, 0
	for i, r := range expr {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
		case '|':
			if depth == 0 {
				parts = append(parts, strings.TrimSpace(expr[start:i]))
				start = i + 1
			}
		}
	}
	return append(parts, strings.TrimSpace(expr[start:]))
}

func looksLikeExternalSchema(v string) bool {
	v = strings.TrimSpace(v)
	return strings.HasPrefix(v, "{") || strings.HasPrefix(v, "<")
}

var exampleWrapperKeys = map[string]bool{"value": true, "strict": true, "displayName": true, "description": true}

// exampleValue unwraps the `value:` form of an example when the mapping
// holds nothing but example facets.
func exampleValue(n *yaml.Node) any {
	n = deref(n)
	if n != nil && n.Kind == yaml.MappingNode {
		var value *yaml.Node
		wrapper := true
		for _, kv := range pairs(n) {
			if kv.key.Value == "value" {
				value = kv.value
			}
			if !exampleWrapperKeys[kv.key.Value] && !isAnnotation(kv.key.Value) {
				wrapper = false
			}
		}
		if wrapper && value != nil {
			return decode(value)
		}
	}
	return decode(n)
}

func decode(n *yaml.Node) any {
	n = deref(n)
	if n == nil {
		return nil
	}
	var out any
	if err := n.Decode(&out); err != nil {
		return n.Value
	}
	return out
}

func intFacet(n *yaml.Node) *int {
	v, err := strconv.Atoi(scalar(n))
	if err != nil {
		return nil
	}
	return &v
}

func floatFacet(n *yaml.Node) *float64 {
	v, err := strconv.ParseFloat(scalar(n), 64)
	if err != nil {
		return nil
	}
	return &v
}

type pair struct {
	key, value *yaml.Node
}

func pairs(n *yaml.Node) []pair {
	n = deref(n)
	if n == nil || n.Kind != yaml.MappingNode {
		return nil
	}
	out := make([]pair, 0, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		out = append(out, pair{key: n.Content[i], value: deref(n.Content[i+1])})
	}
	return out
}

func deref(n *yaml.Node) *yaml.Node {
	for n != nil && n.Kind == yaml.AliasNode {
		n = n.Alias
	}
	return n
}

func scalar(n *yaml.Node) string {
	n = deref(n)
	if n == nil || n.Kind != yaml.ScalarNode || n.Tag == "!!null" {
		return ""
	}
	return n.Value
}

func strList(n *yaml.Node) []string {
	n = deref(n)
	if n == nil {
		return nil
	}
	switch n.Kind {
	case yaml.ScalarNode:
		if v := scalar(n); v != "" {
			return []string{v}
		}
	case yaml.SequenceNode:
		var out []string
		for _, item := range n.Content {
			if v := scalar(item); v != "" {
				out = append(out, v)
			}
		}
		return out
	}
	return nil
}

func isNull(n *yaml.Node) bool {
	return n == nil || (n.Kind == yaml.ScalarNode && n.Tag == "!!null")
}

func isAnnotation(key string) bool {
	return strings.HasPrefix(key, "(") && strings.HasSuffix(key, ")")
}
