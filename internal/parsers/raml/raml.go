package raml

import (
	"context"
	"errors"
	"fmt"
	"path"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"raml-toolkit/internal/model"
)

// LooksLikeRAML reports whether raw looks like a RAML document.
func LooksLikeRAML(raw []byte) bool {
	s := strings.TrimSpace(string(raw))
	return strings.HasPrefix(s, "#%RAML")
}

// Option configures a parse.
type Option func(*options)

type options struct {
	reader   Reader
	validate bool
}

// WithReader sets the reader used for the root file, includes and libraries.
func WithReader(r Reader) Option {
	return func(o *options) {
		if r != nil {
			o.reader = r
		}
	}
}

// WithValidation toggles validation. When enabled (the default) any
// violation fails the parse with a *Report.
func WithValidation(enabled bool) Option {
	return func(o *options) { o.validate = enabled }
}

// ParseFile parses the RAML file at location (a path or http(s) URL).
// Include and library references are resolved relative to the including
// file. IO and context errors are returned as they are; problems with the
// document itself are *Violation or *Report values.
func ParseFile(ctx context.Context, location string, opts ...Option) (*model.Document, error) {
	p := newParser(ctx, opts)
	doc, err := p.load(location)
	return p.finish(doc, err)
}

// Parse parses in-memory RAML content. location anchors relative includes.
func Parse(ctx context.Context, raw []byte, location string, opts ...Option) (*model.Document, error) {
	p := newParser(ctx, opts)
	doc, err := p.parse(raw, location)
	return p.finish(doc, err)
}

type parser struct {
	ctx        context.Context
	opts       options
	docs       map[string]*model.Document
	loading    map[string]bool
	violations []*Violation
}

func newParser(ctx context.Context, opts []Option) *parser {
	o := options{reader: FileReader{}, validate: true}
	for _, opt := range opts {
		opt(&o)
	}
	return &parser{
		ctx:     ctx,
		opts:    o,
		docs:    map[string]*model.Document{},
		loading: map[string]bool{},
	}
}

func (p *parser) report(v *Violation) {
	p.violations = append(p.violations, v)
}

func (p *parser) finish(doc *model.Document, err error) (*model.Document, error) {
	if err != nil {
		return nil, err
	}
	if err := p.ctx.Err(); err != nil {
		return nil, err
	}
	link(doc, p.report)
	if !p.opts.validate {
		return doc, nil
	}
	p.validateExamples(doc)
	if len(p.violations) > 0 {
		return nil, &Report{Location: doc.Location, Violations: p.violations}
	}
	return doc, nil
}

func (p *parser) load(location string) (*model.Document, error) {
	if doc, ok := p.docs[location]; ok {
		return doc, nil
	}
	if p.loading[location] {
		return nil, violationf(CodeCyclicReference, location, 0, "library %s uses itself", location)
	}
	raw, err := p.opts.reader.Read(p.ctx, location)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", location, err)
	}
	return p.parse(raw, location)
}

var headerRe = regexp.MustCompile(`^#%RAML\s+(0\.8|1\.0)(?:\s+(\S.*))?$`)

func parseHeader(raw []byte, location string) (version, fragment string, err error) {
	first, _, _ := strings.Cut(strings.TrimPrefix(string(raw), "\ufeff"), "\n")
	first = strings.TrimSpace(first)
	m := headerRe.FindStringSubmatch(first)
	if m == nil {
		return "", "", violationf(CodeHeader, location, 1, "missing or invalid RAML header %q", first)
	}
	return m[1], strings.TrimSpace(m[2]), nil
}

func (p *parser) parse(raw []byte, location string) (*model.Document, error) {
	version, fragment, err := parseHeader(raw, location)
	if err != nil {
		return nil, err
	}
	var root yaml.Node
	if err := yaml.Unmarshal(raw, &root); err != nil {
		return nil, violationf(CodeSyntax, location, 0, "%s", err.Error())
	}

	p.loading[location] = true
	defer delete(p.loading, location)

	doc := &model.Document{
		ID:       location,
		Location: location,
		Version:  version,
		Uses:     map[string]*model.Document{},
	}
	var body *yaml.Node
	if len(root.Content) > 0 {
		body = deref(root.Content[0])
	}
	p.expandIncludes(body, location, 0)

	name := strings.TrimSuffix(path.Base(location), path.Ext(location))
	switch fragment {
	case "":
		doc.Kind = model.KindDocument
		p.buildAPI(doc, body)
	case "Library":
		doc.Kind = model.KindLibrary
		p.buildLibrary(doc, body)
	case "DataType":
		doc.Kind = model.KindDataType
		doc.Fragment = p.shape(body, name, location)
		doc.Fragment.ID = location + "#/shape"
	case "Trait":
		doc.Kind = model.KindTrait
		doc.Traits = []*model.Trait{p.trait(name, body, location)}
	case "NamedExample":
		doc.Kind = model.KindExample
	default:
		return nil, violationf(CodeHeader, location, 1, "unsupported RAML fragment %q", fragment)
	}
	p.docs[location] = doc
	return doc, nil
}

const maxIncludeDepth = 32

func (p *parser) expandIncludes(n *yaml.Node, base string, depth int) {
	if n == nil {
		return
	}
	if n.Kind == yaml.ScalarNode && n.Tag == "!include" {
		p.include(n, base, depth)
		return
	}
	for _, c := range n.Content {
		p.expandIncludes(c, base, depth)
	}
}

func (p *parser) include(n *yaml.Node, base string, depth int) {
	line := n.Line
	null := yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Line: line}
	if depth >= maxIncludeDepth {
		p.report(violationf(CodeCyclicReference, base, line, "include of %s nested too deeply", n.Value))
		*n = null
		return
	}
	target := ResolveLocation(base, n.Value)
	raw, err := p.opts.reader.Read(p.ctx, target)
	if err != nil {
		p.report(violationf(CodeIncludeFailed, base, line, "cannot include %s: %v", n.Value, err))
		*n = null
		return
	}
	switch strings.ToLower(path.Ext(target)) {
	case ".raml", ".yaml", ".yml":
		var inc yaml.Node
		if err := yaml.Unmarshal(raw, &inc); err != nil {
			p.report(violationf(CodeSyntax, target, 0, "%s", err.Error()))
			*n = null
			return
		}
		if len(inc.Content) == 0 {
			*n = null
			return
		}
		content := deref(inc.Content[0])
		p.expandIncludes(content, target, depth+1)
		*n = *content
	default:
		*n = yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: string(raw), Line: line, Style: yaml.LiteralStyle}
	}
}

var (
	httpMethods = map[string]bool{
		"get": true, "post": true, "put": true, "patch": true,
		"delete": true, "head": true, "options": true, "trace": true, "connect": true,
	}
	uriParamRe = regexp.MustCompile(`\{\+?(\w+)\}`)

	declarationKeys = map[string]bool{"uses": true, "types": true, "schemas": true, "traits": true, "resourceTypes": true}
	ignoredRootKeys = map[string]bool{
		"annotationTypes": true, "securitySchemes": true,
		"securedBy": true, "documentation": true, "baseUriParameters": true, "usage": true,
	}
)

func (p *parser) buildAPI(doc *model.Document, body *yaml.Node) {
	api := &model.WebAPI{}
	doc.Encodes = api
	if body == nil || body.Kind != yaml.MappingNode {
		p.report(violationf(CodeMissingTitle, doc.Location, 1, "API title is required"))
		return
	}
	p.declarations(doc, body)
	var resources []pair
	for _, kv := range pairs(body) {
		key := kv.key.Value
		switch {
		case key == "title":
			api.Name = strings.TrimSpace(scalar(kv.value))
		case key == "description":
			api.Description = scalar(kv.value)
		case key == "version":
			api.Version = scalar(kv.value)
		case key == "baseUri":
			api.BaseURI = scalar(kv.value)
		case key == "mediaType":
			api.MediaTypes = strList(kv.value)
		case key == "protocols":
			api.Protocols = strList(kv.value)
		case strings.HasPrefix(key, "/"):
			resources = append(resources, kv)
		case declarationKeys[key], ignoredRootKeys[key], isAnnotation(key):
		default:
			p.report(violationf(CodeInvalidFacet, doc.Location, kv.key.Line,
				"property '%s' not supported in a RAML %s API", key, doc.Version))
		}
	}
	for _, r := range resources {
		p.endpoint(doc, api, r.value, "", r.key.Value)
	}
	if api.Name == "" {
		p.report(violationf(CodeMissingTitle, doc.Location, body.Line, "API title is required"))
	}
}

func (p *parser) buildLibrary(doc *model.Document, body *yaml.Node) {
	if body == nil || body.Kind != yaml.MappingNode {
		return
	}
	p.declarations(doc, body)
	for _, kv := range pairs(body) {
		key := kv.key.Value
		if declarationKeys[key] || ignoredRootKeys[key] || isAnnotation(key) {
			continue
		}
		p.report(violationf(CodeInvalidFacet, doc.Location, kv.key.Line,
			"property '%s' not supported in a RAML %s library", key, doc.Version))
	}
}

func (p *parser) declarations(doc *model.Document, body *yaml.Node) {
	for _, kv := range pairs(body) {
		if kv.key.Value == "uses" {
			p.uses(doc, kv.value)
		}
	}
	for _, kv := range pairs(body) {
		switch kv.key.Value {
		case "types", "schemas":
			for _, decl := range pairs(kv.value) {
				name := decl.key.Value
				if declaredLocally(doc, name) {
					p.report(violationf(CodeDuplicate, doc.Location, decl.key.Line, "type '%s' declared more than once", name))
					continue
				}
				s := p.shape(decl.value, name, doc.Location)
				s.ID = doc.Location + "#/declares/" + name
				doc.Declares = append(doc.Declares, s)
			}
		case "traits":
			for _, decl := range traitDeclarations(kv.value) {
				doc.Traits = append(doc.Traits, p.trait(decl.key.Value, decl.value, doc.Location))
			}
		case "resourceTypes":
			for _, decl := range traitDeclarations(kv.value) {
				doc.ResourceTypes = append(doc.ResourceTypes, p.resourceType(doc, decl.key.Value, decl.value))
			}
		}
	}
}

func declaredLocally(doc *model.Document, name string) bool {
	for _, s := range doc.Declares {
		if s.Name == name {
			return true
		}
	}
	return false
}

// traitDeclarations accepts both the mapping form and the RAML 0.8
// sequence-of-mappings form.
func traitDeclarations(n *yaml.Node) []pair {
	n = deref(n)
	if n == nil || n.Kind != yaml.SequenceNode {
		return pairs(n)
	}
	var out []pair
	for _, item := range n.Content {
		out = append(out, pairs(item)...)
	}
	return out
}

func (p *parser) uses(doc *model.Document, n *yaml.Node) {
	for _, kv := range pairs(n) {
		ns := kv.key.Value
		target := ResolveLocation(doc.Location, scalar(kv.value))
		lib, err := p.load(target)
		if err != nil {
			var v *Violation
			if errors.As(err, &v) {
				p.report(v)
			} else {
				p.report(violationf(CodeIncludeFailed, doc.Location, kv.key.Line, "cannot load library '%s': %v", ns, err))
			}
			continue
		}
		if lib.Kind != model.KindLibrary {
			p.report(violationf(CodeInvalidFacet, doc.Location, kv.key.Line, "'%s' does not reference a RAML library", ns))
			continue
		}
		doc.Uses[ns] = lib
		if !hasReference(doc, lib) {
			doc.References = append(doc.References, lib)
		}
	}
}

func hasReference(doc, ref *model.Document) bool {
	for _, r := range doc.References {
		if r == ref {
			return true
		}
	}
	return false
}

func (p *parser) endpoint(doc *model.Document, api *model.WebAPI, n *yaml.Node, parent, rel string) {
	ep := &model.EndPoint{Path: parent + rel, RelativePath: rel}
	api.EndPoints = append(api.EndPoints, ep)

	var is []string
	var methods, children []pair
	for _, kv := range pairs(n) {
		key := kv.key.Value
		switch {
		case key == "displayName":
			ep.DisplayName = scalar(kv.value)
		case key == "description":
			ep.Description = scalar(kv.value)
		case key == "uriParameters":
			ep.URIParameters = p.properties(kv.value, doc.Location)
		case key == "is":
			is = traitRefs(kv.value)
		case key == "type":
			ep.Type, ep.TypeParams = resourceTypeRef(kv.value)
		case key == "securedBy", isAnnotation(key):
		case httpMethods[key]:
			methods = append(methods, kv)
		case strings.HasPrefix(key, "/"):
			children = append(children, kv)
		default:
			p.report(violationf(CodeInvalidFacet, doc.Location, kv.key.Line,
				"property '%s' not supported in a RAML %s resource", key, doc.Version))
		}
	}

	for _, m := range uriParamRe.FindAllStringSubmatch(rel, -1) {
		if hasProperty(ep.URIParameters, m[1]) {
			continue
		}
		ep.URIParameters = append(ep.URIParameters, &model.Property{
			Name:     m[1],
			Required: true,
			Shape:    &model.Shape{Name: m[1], Type: "string", Location: doc.Location},
		})
	}

	for _, m := range methods {
		op := p.operation(doc, api, m.key.Value, m.value)
		op.Is = append(append([]string(nil), is...), op.Is...)
		ep.Operations = append(ep.Operations, op)
	}
	for _, c := range children {
		p.endpoint(doc, api, c.value, ep.Path, c.key.Value)
	}
}

// resourceTypeRef reads `type: name` or `type: { name: { param: value } }`.
func resourceTypeRef(n *yaml.Node) (string, map[string]string) {
	n = deref(n)
	if n == nil {
		return "", nil
	}
	switch n.Kind {
	case yaml.ScalarNode:
		return n.Value, nil
	case yaml.MappingNode:
		kvs := pairs(n)
		if len(kvs) == 0 {
			return "", nil
		}
		params := map[string]string{}
		for _, param := range pairs(kvs[0].value) {
			params[param.key.Value] = scalar(param.value)
		}
		return kvs[0].key.Value, params
	}
	return "", nil
}

func hasProperty(props []*model.Property, name string) bool {
	for _, p := range props {
		if p.Name == name {
			return true
		}
	}
	return false
}

func traitRefs(n *yaml.Node) []string {
	n = deref(n)
	if n == nil {
		return nil
	}
	switch n.Kind {
	case yaml.ScalarNode:
		return []string{n.Value}
	case yaml.SequenceNode:
		var out []string
		for _, item := range n.Content {
			item = deref(item)
			switch item.Kind {
			case yaml.ScalarNode:
				out = append(out, item.Value)
			case yaml.MappingNode:
				if len(item.Content) > 0 {
					out = append(out, item.Content[0].Value)
				}
			}
		}
		return out
	}
	return nil
}

func (p *parser) operation(doc *model.Document, api *model.WebAPI, method string, n *yaml.Node) *model.Operation {
	op := &model.Operation{Method: method}
	for _, kv := range pairs(n) {
		key := kv.key.Value
		switch {
		case key == "displayName":
			op.DisplayName = scalar(kv.value)
		case key == "description":
			op.Description = scalar(kv.value)
		case key == "queryParameters":
			op.QueryParameters = p.properties(kv.value, doc.Location)
		case key == "headers":
			op.Headers = p.properties(kv.value, doc.Location)
		case key == "body":
			op.Body = p.body(api, kv.value, doc.Location)
		case key == "responses":
			op.Responses = p.responses(doc, api, kv.value)
		case key == "is":
			op.Is = traitRefs(kv.value)
		case key == "securedBy", key == "protocols", key == "queryString", isAnnotation(key):
		default:
			p.report(violationf(CodeInvalidFacet, doc.Location, kv.key.Line,
				"property '%s' not supported in a RAML %s operation", key, doc.Version))
		}
	}
	return op
}

func (p *parser) body(api *model.WebAPI, n *yaml.Node, location string) []*model.Payload {
	n = deref(n)
	if isNull(n) {
		return nil
	}
	if n.Kind == yaml.MappingNode && hasMediaTypeKeys(n) {
		var out []*model.Payload
		for _, kv := range pairs(n) {
			out = append(out, &model.Payload{MediaType: kv.key.Value, Schema: p.payloadShape(kv.value, location)})
		}
		return out
	}
	mediaTypes := []string{"application/json"}
	if api != nil && len(api.MediaTypes) > 0 {
		mediaTypes = api.MediaTypes
	}
	s := p.payloadShape(n, location)
	out := make([]*model.Payload, 0, len(mediaTypes))
	for _, mt := range mediaTypes {
		out = append(out, &model.Payload{MediaType: mt, Schema: s})
	}
	return out
}

func (p *parser) payloadShape(n *yaml.Node, location string) *model.Shape {
	if isNull(deref(n)) {
		return &model.Shape{Type: "any", Location: location}
	}
	return p.shape(n, "", location)
}

func hasMediaTypeKeys(n *yaml.Node) bool {
	for _, kv := range pairs(n) {
		if strings.Contains(kv.key.Value, "/") {
			return true
		}
	}
	return false
}

func (p *parser) responses(doc *model.Document, api *model.WebAPI, n *yaml.Node) []*model.Response {
	var out []*model.Response
	for _, kv := range pairs(n) {
		r := &model.Response{StatusCode: kv.key.Value}
		for _, rkv := range pairs(kv.value) {
			key := rkv.key.Value
			switch {
			case key == "description":
				r.Description = scalar(rkv.value)
			case key == "headers":
				r.Headers = p.properties(rkv.value, doc.Location)
			case key == "body":
				r.Body = p.body(api, rkv.value, doc.Location)
			case isAnnotation(key):
			default:
				p.report(violationf(CodeInvalidFacet, doc.Location, rkv.key.Line,
					"property '%s' not supported in a RAML %s response", key, doc.Version))
			}
		}
		out = append(out, r)
	}
	return out
}

func (p *parser) trait(name string, n *yaml.Node, location string) *model.Trait {
	t := &model.Trait{Name: name}
	for _, kv := range pairs(n) {
		switch kv.key.Value {
		case "description":
			t.Description = scalar(kv.value)
		case "queryParameters":
			t.QueryParameters = p.properties(kv.value, location)
		case "headers":
			t.Headers = p.properties(kv.value, location)
		case "responses":
			t.Responses = p.responses(&model.Document{Location: location, Version: "1.0"}, nil, kv.value)
		}
	}
	return t
}

// resourceType parses a resource type declaration. Its methods are kept
// unlinked: <<parameters>> are only known once the type is applied.
func (p *parser) resourceType(doc *model.Document, name string, n *yaml.Node) *model.ResourceType {
	rt := &model.ResourceType{Name: name, Optional: map[string]bool{}}
	var is []string
	for _, kv := range pairs(n) {
		key := kv.key.Value
		method := strings.TrimSuffix(key, "?")
		switch {
		case key == "description":
			rt.Description = scalar(kv.value)
		case key == "is":
			is = traitRefs(kv.value)
		case httpMethods[method]:
			if method != key {
				rt.Optional[method] = true
			}
			rt.Operations = append(rt.Operations, p.operation(doc, doc.Encodes, method, kv.value))
		case key == "type":
			p.report(violationf(CodeInvalidFacet, doc.Location, kv.key.Line,
				"resource type '%s' cannot extend another resource type", name))
		case key == "displayName", key == "usage", key == "uriParameters", key == "securedBy", isAnnotation(key):
		default:
			p.report(violationf(CodeInvalidFacet, doc.Location, kv.key.Line,
				"property '%s' not supported in a RAML %s resource type", key, doc.Version))
		}
	}
	for _, op := range rt.Operations {
		op.Is = append(append([]string(nil), is...), op.Is...)
	}
	return rt
}

func (p *parser) properties(n *yaml.Node, location string) []*model.Property {
	var out []*model.Property
	for _, kv := range pairs(n) {
		name := kv.key.Value
		required := true
		if strings.HasSuffix(name, "?") {
			name = strings.TrimSuffix(name, "?")
			required = false
		}
		s := p.shape(kv.value, name, location)
		if r, ok := requiredFacet(kv.value); ok {
			required = r
		}
		out = append(out, &model.Property{Name: name, Required: required, Shape: s})
	}
	return out
}

func requiredFacet(n *yaml.Node) (bool, bool) {
	for _, kv := range pairs(n) {
		if kv.key.Value == "required" {
			b, err := strconv.ParseBool(scalar(kv.value))
			return b, err == nil
		}
	}
	return false, false
}
