package raml

import (
	"sort"
	"strings"

	"github.com/goccy/go-json"

	"raml-toolkit/internal/model"
	"raml-toolkit/internal/schema"
)

// validateExamples checks every example and default value against the type
// it is declared on.
func (p *parser) validateExamples(doc *model.Document) {
	seen := map[*model.Shape]bool{}
	visited := map[*model.Document]bool{}
	var walkDoc func(d *model.Document)
	walkDoc = func(d *model.Document) {
		if d == nil || visited[d] {
			return
		}
		visited[d] = true
		for _, ref := range d.References {
			walkDoc(ref)
		}
		for _, s := range d.Declares {
			p.checkShape(s, seen)
		}
		p.checkShape(d.Fragment, seen)
		if d.Encodes == nil {
			return
		}
		for _, ep := range d.Encodes.EndPoints {
			p.checkProperties(ep.URIParameters, seen)
			for _, op := range ep.Operations {
				p.checkProperties(op.QueryParameters, seen)
				p.checkProperties(op.Headers, seen)
				for _, b := range op.Body {
					p.checkShape(b.Schema, seen)
				}
				for _, r := range op.Responses {
					for _, b := range r.Body {
						p.checkShape(b.Schema, seen)
					}
				}
			}
		}
	}
	walkDoc(doc)
}

func (p *parser) checkProperties(props []*model.Property, seen map[*model.Shape]bool) {
	for _, prop := range props {
		p.checkShape(prop.Shape, seen)
	}
}

func (p *parser) checkShape(s *model.Shape, seen map[*model.Shape]bool) {
	if s == nil || seen[s] {
		return
	}
	seen[s] = true
	label := s.Name
	if label == "" {
		label = s.Type
	}
	if s.Example != nil {
		p.checkValue(s, label, "example", s.Example)
	}
	names := make([]string, 0, len(s.Examples))
	for name := range s.Examples {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		p.checkValue(s, label, "example '"+name+"'", s.Examples[name])
	}
	if s.Default != nil {
		p.checkValue(s, label, "default", s.Default)
	}
	p.checkProperties(s.Properties, seen)
	p.checkShape(s.Items, seen)
	for _, v := range s.AnyOf {
		p.checkShape(v, seen)
	}
}

func (p *parser) checkValue(s *model.Shape, label, what string, value any) {
	if str, ok := value.(string); ok && !isStringType(s.BaseType()) {
		trimmed := strings.TrimSpace(str)
		if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
			var decoded any
			if err := json.Unmarshal([]byte(trimmed), &decoded); err == nil {
				value = decoded
			}
		}
	}
	if err := schema.Validate(s, value); err != nil {
		p.report(violationf(CodeInvalidExample, s.Location, s.Line, "invalid %s for '%s': %v", what, label, err))
	}
}

func isStringType(t string) bool {
	switch t {
	case "string", "date-only", "time-only", "datetime-only", "datetime", "any", "union":
		return true
	}
	return false
}
