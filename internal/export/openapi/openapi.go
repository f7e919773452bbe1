// Package openapi exports parsed RAML APIs as OpenAPI 3 documents.
package openapi

import (
	"bytes"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"raml-toolkit/internal/canonical"
	"raml-toolkit/internal/model"
	"raml-toolkit/internal/schema"
)

const componentPrefix = "#/components/schemas/"

var pathParamRe = regexp.MustCompile(`\{\+?(\w+)\}`)

// FromModel converts doc to an OpenAPI 3.0 document. Declared types,
// including those of used libraries, become component schemas and plain
// references to them become $ref. doc is best resolved with the editing or
// compatibility pipeline; a default-resolved model exports fully inlined.
func FromModel(doc *model.Document) (*openapi3.T, error) {
	if doc == nil || doc.Encodes == nil {
		return nil, errors.New("openapi: document does not encode an API")
	}
	api := doc.Encodes
	c := newConverter(doc)

	out := &openapi3.T{
		OpenAPI: "3.0.3",
		Info: &openapi3.Info{
			Title:       api.Name,
			Description: api.Description,
			Version:     api.Version,
		},
		Paths: openapi3.Paths{},
	}
	if out.Info.Version == "" {
		out.Info.Version = "1.0.0"
	}
	if api.BaseURI != "" {
		out.Servers = openapi3.Servers{serverFor(api)}
	}

	for _, name := range c.order {
		if out.Components == nil {
			out.Components = &openapi3.Components{Schemas: openapi3.Schemas{}}
		}
		out.Components.Schemas[name] = &openapi3.SchemaRef{Value: c.declared(c.byName[name])}
	}

	byPath := map[string]*model.EndPoint{}
	for _, ep := range api.EndPoints {
		byPath[ep.Path] = ep
	}
	ids := canonical.OperationIDs(api)
	for _, ep := range api.EndPoints {
		if len(ep.Operations) == 0 {
			continue
		}
		item := &openapi3.PathItem{Summary: ep.DisplayName, Description: ep.Description}
		params := c.pathParameters(ep, byPath)
		for _, op := range ep.Operations {
			item.SetOperation(strings.ToUpper(op.Method), c.operation(op, ids[op], params))
		}
		out.Paths[ep.Path] = item
	}
	return out, nil
}

func serverFor(api *model.WebAPI) *openapi3.Server {
	srv := &openapi3.Server{URL: api.BaseURI}
	for _, m := range pathParamRe.FindAllStringSubmatch(api.BaseURI, -1) {
		if srv.Variables == nil {
			srv.Variables = map[string]*openapi3.ServerVariable{}
		}
		def := m[1]
		if m[1] == "version" && api.Version != "" {
			def = api.Version
		}
		srv.Variables[m[1]] = &openapi3.ServerVariable{Default: def}
	}
	return srv
}

type converter struct {
	names  map[*model.Shape]string
	byName map[string]*model.Shape
	order  []string
}

func newConverter(doc *model.Document) *converter {
	c := &converter{names: map[*model.Shape]string{}, byName: map[string]*model.Shape{}}
	add := func(prefix string, d *model.Document) {
		for _, s := range d.Declares {
			name := prefix + s.Name
			if _, dup := c.byName[name]; dup {
				continue
			}
			c.names[s] = name
			c.byName[name] = s
			c.order = append(c.order, name)
		}
	}
	add("", doc)
	namespaces := make([]string, 0, len(doc.Uses))
	for ns := range doc.Uses {
		namespaces = append(namespaces, ns)
	}
	sort.Strings(namespaces)
	for _, ns := range namespaces {
		add(ns+".", doc.Uses[ns])
	}
	return c
}

func (c *converter) pathParameters(ep *model.EndPoint, byPath map[string]*model.EndPoint) openapi3.Parameters {
	var params openapi3.Parameters
	for _, m := range pathParamRe.FindAllStringSubmatch(ep.Path, -1) {
		name := m[1]
		prop := findURIParameter(ep, name, byPath)
		p := &openapi3.Parameter{Name: name, In: openapi3.ParameterInPath, Required: true}
		if prop != nil {
			p.Description = prop.Shape.Description
			p.Schema = c.ref(prop.Shape, nil)
		} else {
			p.Schema = openapi3.NewStringSchema().NewRef()
		}
		params = append(params, &openapi3.ParameterRef{Value: p})
	}
	return params
}

// findURIParameter looks for name on ep, then on the endpoints of the
// enclosing resources.
func findURIParameter(ep *model.EndPoint, name string, byPath map[string]*model.EndPoint) *model.Property {
	for _, p := range ep.URIParameters {
		if p.Name == name {
			return p
		}
	}
	path := ep.Path
	for {
		i := strings.LastIndex(path, "/")
		if i <= 0 {
			return nil
		}
		path = path[:i]
		if parent, ok := byPath[path]; ok {
			for _, p := range parent.URIParameters {
				if p.Name == name {
					return p
				}
			}
		}
	}
}

func (c *converter) operation(op *model.Operation, id string, pathParams openapi3.Parameters) *openapi3.Operation {
	out := &openapi3.Operation{
		OperationID: id,
		Summary:     op.DisplayName,
		Description: op.Description,
		Parameters:  append(openapi3.Parameters(nil), pathParams...),
		Responses:   openapi3.Responses{},
	}
	for _, p := range op.QueryParameters {
		out.Parameters = append(out.Parameters, c.parameter(p, openapi3.ParameterInQuery))
	}
	for _, p := range op.Headers {
		out.Parameters = append(out.Parameters, c.parameter(p, openapi3.ParameterInHeader))
	}
	if len(op.Body) > 0 {
		out.RequestBody = &openapi3.RequestBodyRef{Value: &openapi3.RequestBody{
			Required: true,
			Content:  c.content(op.Body),
		}}
	}
	for _, r := range op.Responses {
		desc := r.Description
		if desc == "" {
			desc = "Status " + r.StatusCode
		}
		resp := &openapi3.Response{Description: &desc}
		if len(r.Body) > 0 {
			resp.Content = c.content(r.Body)
		}
		for _, h := range r.Headers {
			if resp.Headers == nil {
				resp.Headers = openapi3.Headers{}
			}
			resp.Headers[h.Name] = &openapi3.HeaderRef{Value: &openapi3.Header{Parameter: openapi3.Parameter{
				Description: h.Shape.Description,
				Required:    h.Required,
				Schema:      c.ref(h.Shape, nil),
			}}}
		}
		out.Responses[r.StatusCode] = &openapi3.ResponseRef{Value: resp}
	}
	if len(out.Responses) == 0 {
		desc := "Successful response"
		out.Responses["default"] = &openapi3.ResponseRef{Value: &openapi3.Response{Description: &desc}}
	}
	return out
}

func (c *converter) parameter(p *model.Property, in string) *openapi3.ParameterRef {
	return &openapi3.ParameterRef{Value: &openapi3.Parameter{
		Name:        p.Name,
		In:          in,
		Required:    p.Required,
		Description: p.Shape.Description,
		Schema:      c.ref(p.Shape, nil),
	}}
}

func (c *converter) content(payloads []*model.Payload) openapi3.Content {
	content := openapi3.Content{}
	for _, p := range payloads {
		mt := &openapi3.MediaType{Schema: c.ref(p.Schema, nil)}
		if p.Schema != nil && p.Schema.Example != nil {
			mt.Example = schema.Normalize(p.Schema.Example)
		}
		content[p.MediaType] = mt
	}
	return content
}

// ref returns a $ref for declared types and plain references to them, and
// an inline schema otherwise.
func (c *converter) ref(s *model.Shape, stack map[*model.Shape]bool) *openapi3.SchemaRef {
	if s == nil {
		return &openapi3.SchemaRef{Value: &openapi3.Schema{}}
	}
	if name, ok := c.names[s]; ok {
		return openapi3.NewSchemaRef(componentPrefix+name, nil)
	}
	if s.IsReference() && s.Description == "" {
		if name, ok := c.names[s.Link]; ok {
			return openapi3.NewSchemaRef(componentPrefix+name, nil)
		}
	}
	if stack == nil {
		stack = map[*model.Shape]bool{}
	}
	return &openapi3.SchemaRef{Value: c.inline(s, stack)}
}

func (c *converter) declared(s *model.Shape) *openapi3.Schema {
	return c.inline(s, map[*model.Shape]bool{})
}

func (c *converter) inline(s *model.Shape, stack map[*model.Shape]bool) *openapi3.Schema {
	if stack[s] {
		return &openapi3.Schema{}
	}
	stack[s] = true
	defer delete(stack, s)

	out := &openapi3.Schema{Description: s.Description}
	if out.Description == "" {
		out.Description, _ = model.LookupFacet(s, func(x *model.Shape) (string, bool) { return x.Description, x.Description != "" })
	}

	child := func(x *model.Shape) *openapi3.SchemaRef {
		if name, ok := c.names[x]; ok {
			return openapi3.NewSchemaRef(componentPrefix+name, nil)
		}
		if x != nil && x.IsReference() && x.Description == "" {
			if name, ok := c.names[x.Link]; ok {
				return openapi3.NewSchemaRef(componentPrefix+name, nil)
			}
		}
		if x == nil {
			return &openapi3.SchemaRef{Value: &openapi3.Schema{}}
		}
		return &openapi3.SchemaRef{Value: c.inline(x, stack)}
	}

	switch base := s.BaseType(); base {
	case "string":
		out.Type = openapi3.TypeString
		c.stringFacets(s, out)
	case "date-only":
		out.Type, out.Format = openapi3.TypeString, "date"
	case "datetime":
		out.Type, out.Format = openapi3.TypeString, "date-time"
	case "time-only", "datetime-only":
		out.Type = openapi3.TypeString
	case "file":
		out.Type, out.Format = openapi3.TypeString, "binary"
	case "number", "integer":
		out.Type = base
		out.Min, _ = model.LookupFacet(s, func(x *model.Shape) (*float64, bool) { return x.Minimum, x.Minimum != nil })
		out.Max, _ = model.LookupFacet(s, func(x *model.Shape) (*float64, bool) { return x.Maximum, x.Maximum != nil })
		if f, _ := model.LookupFacet(s, func(x *model.Shape) (string, bool) { return x.Format, x.Format != "" }); f != "" {
			out.Format = f
		}
	case "boolean":
		out.Type = openapi3.TypeBoolean
	case "nil":
		out.Nullable = true
	case "object":
		out.Type = openapi3.TypeObject
		for _, p := range s.EffectiveProperties() {
			if out.Properties == nil {
				out.Properties = openapi3.Schemas{}
			}
			out.Properties[p.Name] = child(p.Shape)
			if p.Required {
				out.Required = append(out.Required, p.Name)
			}
		}
		sort.Strings(out.Required)
	case "array":
		out.Type = openapi3.TypeArray
		out.Items = child(s.ItemShape())
	case "union":
		for _, v := range s.Variants() {
			out.AnyOf = append(out.AnyOf, child(v))
		}
	}
	if enum, _ := model.LookupFacet(s, func(x *model.Shape) ([]any, bool) { return x.Enum, len(x.Enum) > 0 }); len(enum) > 0 {
		for _, v := range enum {
			out.Enum = append(out.Enum, schema.Normalize(v))
		}
	}
	if s.Default != nil {
		out.Default = schema.Normalize(s.Default)
	}
	return out
}

func (c *converter) stringFacets(s *model.Shape, out *openapi3.Schema) {
	out.Pattern, _ = model.LookupFacet(s, func(x *model.Shape) (string, bool) { return x.Pattern, x.Pattern != "" })
	if v, ok := model.LookupFacet(s, func(x *model.Shape) (*int, bool) { return x.MinLength, x.MinLength != nil }); ok && *v > 0 {
		out.MinLength = uint64(*v)
	}
	if v, ok := model.LookupFacet(s, func(x *model.Shape) (*int, bool) { return x.MaxLength, x.MaxLength != nil }); ok && *v >= 0 {
		maxLen := uint64(*v)
		out.MaxLength = &maxLen
	}
	out.Format, _ = model.LookupFacet(s, func(x *model.Shape) (string, bool) { return x.Format, x.Format != "" })
}

// Marshal encodes t as "json" (indented) or "yaml".
func Marshal(t *openapi3.T, format string) ([]byte, error) {
	data, err := t.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("marshal openapi: %w", err)
	}
	switch format {
	case "", "json":
		var buf bytes.Buffer
		if err := json.Indent(&buf, data, "", "  "); err != nil {
			return nil, fmt.Errorf("marshal openapi: %w", err)
		}
		buf.WriteByte('\n')
		return buf.Bytes(), nil
	case "yaml":
		var v any
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, fmt.Errorf("marshal openapi: %w", err)
		}
		return yaml.Marshal(v)
	default:
		return nil, fmt.Errorf("unsupported openapi format %q", format)
	}
}
