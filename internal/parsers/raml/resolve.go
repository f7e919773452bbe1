package raml

import (
	"regexp"
	"strings"

	"raml-toolkit/internal/model"
)

// Resolution pipelines.
const (
	PipelineDefault       = "default"
	PipelineEditing       = "editing"
	PipelineCompatibility = "compatibility"
)

// Pipelines lists the supported resolution pipelines.
var Pipelines = []string{PipelineDefault, PipelineEditing, PipelineCompatibility}

// Resolve returns a resolved copy of doc; doc itself is not modified.
//
// editing applies resource types, links type references and applies
// traits, keeping declarations.
// default additionally flattens inheritance, inlines links and drops
// declarations, traits and references. compatibility flattens like default
// but keeps the (flattened) declarations and the links of plain references
// to them.
func Resolve(doc *model.Document, pipeline string) (*model.Document, error) {
	if doc == nil {
		return nil, violationf(CodeResolution, "", 0, "no model to resolve")
	}
	switch pipeline {
	case PipelineDefault, PipelineEditing, PipelineCompatibility:
	default:
		return nil, violationf(CodeResolutionPipeline, doc.Location, 0, "unknown resolution pipeline %q", pipeline)
	}

	out := doc.Clone()
	applyResourceTypes(out)
	link(out, nil)
	applyTraits(out)
	if pipeline == PipelineEditing {
		return out, nil
	}

	flatten(out, pipeline == PipelineCompatibility)
	out.Traits = nil
	out.ResourceTypes = nil
	for _, ref := range out.References {
		ref.Traits = nil
		ref.ResourceTypes = nil
	}
	if pipeline == PipelineDefault {
		out.Declares = nil
		out.Uses = map[string]*model.Document{}
		out.References = nil
	}
	return out, nil
}

// applyResourceTypes merges the methods of each endpoint's resource type
// into the endpoint. Methods the endpoint declares keep their own facets;
// optional methods are only merged into existing ones.
func applyResourceTypes(doc *model.Document) {
	if doc.Encodes == nil {
		return
	}
	for _, ep := range doc.Encodes.EndPoints {
		rt := doc.ResourceType(ep.Type)
		if ep.Type == "" || rt == nil {
			continue
		}
		params := map[string]string{
			"resourcePath":     ep.Path,
			"resourcePathName": resourcePathName(ep.RelativePath),
		}
		for k, v := range ep.TypeParams {
			params[k] = v
		}
		for _, tmpl := range rt.Operations {
			op := tmpl.Clone()
			substituteOperation(op, params)
			existing := findOperation(ep.Operations, op.Method)
			switch {
			case existing != nil:
				mergeOperation(existing, op)
			case !rt.Optional[op.Method]:
				ep.Operations = append(ep.Operations, op)
			}
		}
	}
}

func findOperation(ops []*model.Operation, method string) *model.Operation {
	for _, op := range ops {
		if op.Method == method {
			return op
		}
	}
	return nil
}

func mergeOperation(own, extra *model.Operation) {
	if own.DisplayName == "" {
		own.DisplayName = extra.DisplayName
	}
	if own.Description == "" {
		own.Description = extra.Description
	}
	for _, name := range extra.Is {
		if !containsString(own.Is, name) {
			own.Is = append(own.Is, name)
		}
	}
	own.QueryParameters = mergeProperties(own.QueryParameters, extra.QueryParameters)
	own.Headers = mergeProperties(own.Headers, extra.Headers)
	if len(own.Body) == 0 {
		own.Body = extra.Body
	}
	own.Responses = mergeResponses(own.Responses, extra.Responses)
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// resourcePathName is the rightmost segment of the path that is not a URI
// parameter.
func resourcePathName(rel string) string {
	segments := strings.Split(strings.Trim(rel, "/"), "/")
	for i := len(segments) - 1; i >= 0; i-- {
		if seg := segments[i]; seg != "" && !strings.ContainsAny(seg, "{}") {
			return seg
		}
	}
	return ""
}

var paramRe = regexp.MustCompile(`<<\s*(\w+)\s*>>`)

func substitute(s string, params map[string]string) string {
	if !strings.Contains(s, "<<") {
		return s
	}
	return paramRe.ReplaceAllStringFunc(s, func(m string) string {
		if v, ok := params[paramRe.FindStringSubmatch(m)[1]]; ok {
			return v
		}
		return m
	})
}

func substituteOperation(op *model.Operation, params map[string]string) {
	op.DisplayName = substitute(op.DisplayName, params)
	op.Description = substitute(op.Description, params)
	for i := range op.Is {
		op.Is[i] = substitute(op.Is[i], params)
	}
	seen := map[*model.Shape]bool{}
	substituteProps(op.QueryParameters, params, seen)
	substituteProps(op.Headers, params, seen)
	for _, b := range op.Body {
		substituteShape(b.Schema, params, seen)
	}
	for _, r := range op.Responses {
		r.Description = substitute(r.Description, params)
		substituteProps(r.Headers, params, seen)
		for _, b := range r.Body {
			substituteShape(b.Schema, params, seen)
		}
	}
}

func substituteProps(props []*model.Property, params map[string]string, seen map[*model.Shape]bool) {
	for _, p := range props {
		p.Name = substitute(p.Name, params)
		substituteShape(p.Shape, params, seen)
	}
}

func substituteShape(s *model.Shape, params map[string]string, seen map[*model.Shape]bool) {
	if s == nil || seen[s] {
		return
	}
	seen[s] = true
	if t := s.Type; strings.Contains(t, "<<") {
		s.Inherits = nil
		typeExpr(s, substitute(t, params))
	} else {
		for i := range s.Inherits {
			s.Inherits[i] = substitute(s.Inherits[i], params)
		}
	}
	s.Description = substitute(s.Description, params)
	substituteProps(s.Properties, params, seen)
	substituteShape(s.Items, params, seen)
	for _, v := range s.AnyOf {
		substituteShape(v, params, seen)
	}
}

func applyTraits(doc *model.Document) {
	if doc.Encodes == nil {
		return
	}
	for _, ep := range doc.Encodes.EndPoints {
		for _, op := range ep.Operations {
			for _, name := range op.Is {
				t := doc.Trait(name)
				if t == nil {
					continue
				}
				op.QueryParameters = mergeProperties(op.QueryParameters, t.QueryParameters)
				op.Headers = mergeProperties(op.Headers, t.Headers)
				op.Responses = mergeResponses(op.Responses, t.Responses)
			}
		}
	}
}

func mergeProperties(own, extra []*model.Property) []*model.Property {
	for _, p := range extra {
		if !hasProperty(own, p.Name) {
			cp := *p
			own = append(own, &cp)
		}
	}
	return own
}

func mergeResponses(own, extra []*model.Response) []*model.Response {
	for _, r := range extra {
		var existing *model.Response
		for _, o := range own {
			if o.StatusCode == r.StatusCode {
				existing = o
				break
			}
		}
		if existing == nil {
			cp := *r
			own = append(own, &cp)
			continue
		}
		if existing.Description == "" {
			existing.Description = r.Description
		}
		existing.Headers = mergeProperties(existing.Headers, r.Headers)
		if len(existing.Body) == 0 {
			existing.Body = r.Body
		}
	}
	return own
}

type flatShape struct {
	shape    *model.Shape
	base     string
	props    []*model.Property
	items    *model.Shape
	variants []*model.Shape
	enum     []any
	pattern  string
	format   string
	minLen   *int
	maxLen   *int
	min      *float64
	max      *float64
	desc     string
}

// flatten computes every shape's effective facets first and only then
// rewrites the shapes, so parents are read before they are modified. With
// keepRefs, plain references to declared types stay linked.
func flatten(doc *model.Document, keepRefs bool) {
	var plan []flatShape
	seen := map[*model.Shape]bool{}
	var visit func(s *model.Shape)
	visit = func(s *model.Shape) {
		if s == nil || seen[s] {
			return
		}
		seen[s] = true
		if keepRefs && s.IsReference() && s.Link.ID != "" {
			s.Parents = []*model.Shape{s.Link}
			visit(s.Link)
			return
		}
		f := flatShape{shape: s, base: s.BaseType(), props: s.EffectiveProperties(), items: s.ItemShape(), variants: s.Variants()}
		f.enum, _ = model.LookupFacet(s, func(x *model.Shape) ([]any, bool) { return x.Enum, len(x.Enum) > 0 })
		f.pattern, _ = model.LookupFacet(s, func(x *model.Shape) (string, bool) { return x.Pattern, x.Pattern != "" })
		f.format, _ = model.LookupFacet(s, func(x *model.Shape) (string, bool) { return x.Format, x.Format != "" })
		f.desc, _ = model.LookupFacet(s, func(x *model.Shape) (string, bool) { return x.Description, x.Description != "" })
		f.minLen, _ = model.LookupFacet(s, func(x *model.Shape) (*int, bool) { return x.MinLength, x.MinLength != nil })
		f.maxLen, _ = model.LookupFacet(s, func(x *model.Shape) (*int, bool) { return x.MaxLength, x.MaxLength != nil })
		f.min, _ = model.LookupFacet(s, func(x *model.Shape) (*float64, bool) { return x.Minimum, x.Minimum != nil })
		f.max, _ = model.LookupFacet(s, func(x *model.Shape) (*float64, bool) { return x.Maximum, x.Maximum != nil })
		plan = append(plan, f)
		for _, p := range f.props {
			visit(p.Shape)
		}
		visit(f.items)
		for _, v := range f.variants {
			visit(v)
		}
		for _, parent := range s.Parents {
			visit(parent)
		}
	}
	walkShapes(doc, visit)

	for _, f := range plan {
		s := f.shape
		s.Type = f.base
		s.Properties = f.props
		s.Items = f.items
		s.AnyOf = f.variants
		s.Enum = f.enum
		s.Pattern = f.pattern
		s.Format = f.format
		s.Description = f.desc
		s.MinLength, s.MaxLength = f.minLen, f.maxLen
		s.Minimum, s.Maximum = f.min, f.max
		s.Link = nil
		s.Parents = nil
	}
}

// walkShapes calls fn for every top-level shape reachable from doc.
func walkShapes(doc *model.Document, fn func(*model.Shape)) {
	visited := map[*model.Document]bool{}
	var walk func(d *model.Document)
	walk = func(d *model.Document) {
		if d == nil || visited[d] {
			return
		}
		visited[d] = true
		for _, ref := range d.References {
			walk(ref)
		}
		for _, s := range d.Declares {
			fn(s)
		}
		fn(d.Fragment)
		for _, t := range d.Traits {
			walkProps(t.QueryParameters, fn)
			walkProps(t.Headers, fn)
		}
		if d.Encodes == nil {
			return
		}
		for _, ep := range d.Encodes.EndPoints {
			walkProps(ep.URIParameters, fn)
			for _, op := range ep.Operations {
				walkProps(op.QueryParameters, fn)
				walkProps(op.Headers, fn)
				for _, b := range op.Body {
					fn(b.Schema)
				}
				for _, r := range op.Responses {
					walkProps(r.Headers, fn)
					for _, b := range r.Body {
						fn(b.Schema)
					}
				}
			}
		}
	}
	walk(doc)
}

func walkProps(props []*model.Property, fn func(*model.Shape)) {
	for _, p := range props {
		fn(p.Shape)
	}
}
