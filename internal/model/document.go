package model

import "strings"

var scalarTypes = map[string]bool{
	"string": true, "number": true, "integer": true, "boolean": true,
	"date-only": true, "time-only": true, "datetime-only": true, "datetime": true,
	"file": true, "nil": true,
}

// IsBuiltinType reports whether name is a RAML built-in type.
func IsBuiltinType(name string) bool {
	switch name {
	case "object", "array", "union", "any":
		return true
	}
	return scalarTypes[name]
}

// NewDocument returns an empty API document.
func NewDocument() *Document {
	return &Document{Kind: KindDocument, Version: "1.0", Uses: map[string]*Document{}}
}

// WithEncodes sets the encoded API and returns d.
func (d *Document) WithEncodes(api *WebAPI) *Document {
	d.Encodes = api
	return d
}

// WithReferences replaces the document references with refs (nil entries
// are skipped) and returns d.
func (d *Document) WithReferences(refs ...*Document) *Document {
	d.References = nil
	for _, ref := range refs {
		if ref != nil {
			d.References = append(d.References, ref)
		}
	}
	return d
}

// Declared returns the type declared in d under name, following a
// `namespace.Type` prefix through the uses map.
func (d *Document) Declared(name string) *Shape {
	if d == nil || name == "" {
		return nil
	}
	if ns, rest, ok := strings.Cut(name, "."); ok {
		if lib := d.Uses[ns]; lib != nil {
			return lib.Declared(rest)
		}
	}
	for _, s := range d.Declares {
		if s.Name == name {
			return s
		}
	}
	return nil
}

// Trait returns the trait named name, following library namespaces.
func (d *Document) Trait(name string) *Trait {
	if d == nil {
		return nil
	}
	if ns, rest, ok := strings.Cut(name, "."); ok {
		if lib := d.Uses[ns]; lib != nil {
			return lib.Trait(rest)
		}
	}
	for _, t := range d.Traits {
		if t.Name == name {
			return t
		}
	}
	return nil
}

// ResourceType returns the resource type named name, following library
// namespaces.
func (d *Document) ResourceType(name string) *ResourceType {
	if d == nil {
		return nil
	}
	if ns, rest, ok := strings.Cut(name, "."); ok {
		if lib := d.Uses[ns]; lib != nil {
			return lib.ResourceType(rest)
		}
	}
	for _, rt := range d.ResourceTypes {
		if rt.Name == name {
			return rt
		}
	}
	return nil
}

// WithName sets the API name and returns a.
func (a *WebAPI) WithName(name string) *WebAPI {
	a.Name = name
	return a
}

// Resolved follows Link until a concrete shape is reached.
func (s *Shape) Resolved() *Shape {
	seen := map[*Shape]bool{}
	for s != nil && s.Link != nil && !seen[s] {
		seen[s] = true
		s = s.Link
	}
	return s
}

// Clone returns a deep copy of d. Shapes shared inside the source remain
// shared in the copy and links are rewired to the copied targets.
func (d *Document) Clone() *Document {
	c := &cloner{docs: map[*Document]*Document{}, shapes: map[*Shape]*Shape{}}
	return c.doc(d)
}

type cloner struct {
	docs   map[*Document]*Document
	shapes map[*Shape]*Shape
}

func (c *cloner) doc(d *Document) *Document {
	if d == nil {
		return nil
	}
	if out, ok := c.docs[d]; ok {
		return out
	}
	out := &Document{
		ID:       d.ID,
		Location: d.Location,
		Kind:     d.Kind,
		Version:  d.Version,
		Uses:     make(map[string]*Document, len(d.Uses)),
	}
	c.docs[d] = out
	for _, s := range d.Declares {
		out.Declares = append(out.Declares, c.shape(s))
	}
	for _, t := range d.Traits {
		out.Traits = append(out.Traits, c.trait(t))
	}
	for _, rt := range d.ResourceTypes {
		cp := *rt
		cp.Operations = nil
		for _, op := range rt.Operations {
			cp.Operations = append(cp.Operations, c.operation(op))
		}
		out.ResourceTypes = append(out.ResourceTypes, &cp)
	}
	for ns, lib := range d.Uses {
		out.Uses[ns] = c.doc(lib)
	}
	for _, ref := range d.References {
		out.References = append(out.References, c.doc(ref))
	}
	out.Fragment = c.shape(d.Fragment)
	if d.Encodes != nil {
		api := *d.Encodes
		api.MediaTypes = append([]string(nil), d.Encodes.MediaTypes...)
		api.Protocols = append([]string(nil), d.Encodes.Protocols...)
		api.EndPoints = nil
		for _, ep := range d.Encodes.EndPoints {
			api.EndPoints = append(api.EndPoints, c.endpoint(ep))
		}
		out.Encodes = &api
	}
	return out
}

func (c *cloner) endpoint(ep *EndPoint) *EndPoint {
	out := *ep
	out.URIParameters = c.props(ep.URIParameters)
	if ep.TypeParams != nil {
		out.TypeParams = make(map[string]string, len(ep.TypeParams))
		for k, v := range ep.TypeParams {
			out.TypeParams[k] = v
		}
	}
	out.Operations = nil
	for _, op := range ep.Operations {
		out.Operations = append(out.Operations, c.operation(op))
	}
	return &out
}

func (c *cloner) operation(op *Operation) *Operation {
	o := *op
	o.Is = append([]string(nil), op.Is...)
	o.QueryParameters = c.props(op.QueryParameters)
	o.Headers = c.props(op.Headers)
	o.Body = c.payloads(op.Body)
	o.Responses = c.responses(op.Responses)
	return &o
}

func (c *cloner) trait(t *Trait) *Trait {
	out := *t
	out.QueryParameters = c.props(t.QueryParameters)
	out.Headers = c.props(t.Headers)
	out.Responses = c.responses(t.Responses)
	return &out
}

func (c *cloner) responses(in []*Response) []*Response {
	if in == nil {
		return nil
	}
	out := make([]*Response, 0, len(in))
	for _, r := range in {
		cp := *r
		cp.Headers = c.props(r.Headers)
		cp.Body = c.payloads(r.Body)
		out = append(out, &cp)
	}
	return out
}

func (c *cloner) payloads(in []*Payload) []*Payload {
	if in == nil {
		return nil
	}
	out := make([]*Payload, 0, len(in))
	for _, p := range in {
		out = append(out, &Payload{MediaType: p.MediaType, Schema: c.shape(p.Schema)})
	}
	return out
}

func (c *cloner) props(in []*Property) []*Property {
	if in == nil {
		return nil
	}
	out := make([]*Property, 0, len(in))
	for _, p := range in {
		out = append(out, &Property{Name: p.Name, Required: p.Required, Shape: c.shape(p.Shape)})
	}
	return out
}

func (c *cloner) shape(s *Shape) *Shape {
	if s == nil {
		return nil
	}
	if out, ok := c.shapes[s]; ok {
		return out
	}
	out := *s
	c.shapes[s] = &out
	out.Inherits = append([]string(nil), s.Inherits...)
	out.Enum = append([]any(nil), s.Enum...)
	if s.Examples != nil {
		out.Examples = make(map[string]any, len(s.Examples))
		for k, v := range s.Examples {
			out.Examples[k] = v
		}
	}
	out.Properties = c.props(s.Properties)
	out.Items = c.shape(s.Items)
	out.AnyOf = nil
	for _, a := range s.AnyOf {
		out.AnyOf = append(out.AnyOf, c.shape(a))
	}
	out.Link = c.shape(s.Link)
	out.Parents = nil
	for _, p := range s.Parents {
		out.Parents = append(out.Parents, c.shape(p))
	}
	return &out
}

// Clone returns a deep copy of op; no shape is shared with the source.
func (op *Operation) Clone() *Operation {
	c := &cloner{docs: map[*Document]*Document{}, shapes: map[*Shape]*Shape{}}
	return c.operation(op)
}
