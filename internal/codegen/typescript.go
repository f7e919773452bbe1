package codegen

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"raml-toolkit/internal/canonical"
	"raml-toolkit/internal/collection"
	"raml-toolkit/internal/model"
)

const header = "// Code generated by raml-toolkit. DO NOT EDIT.\n\n"

var uriParamRe = regexp.MustCompile(`\{\+?(\w+)\}`)

// GenerateGroup generates the TypeScript files of a group: one module per
// API, the shared client.ts and an index.ts re-exporting every module.
func GenerateGroup(group *collection.ApiGroup) (map[string]string, error) {
	files := make(map[string]string)
	var modules []string
	for _, api := range group.Apis {
		code, err := GenerateTypeScriptModule(api)
		if err != nil {
			return nil, fmt.Errorf("generate %s: %w", api.Name, err)
		}
		fileName := api.Name + ".ts"
		if _, dup := files[fileName]; dup {
			return nil, fmt.Errorf("generate %s: duplicate api name in group %s", api.Name, group.Name)
		}
		files[fileName] = code
		modules = append(modules, api.Name)
	}
	files["client.ts"] = generateClientFile()
	files["index.ts"] = generateIndexFile(modules)
	return files, nil
}

// GenerateTypeScriptModule generates the module of one API: an interface
// per declared data type and a client class with one method per operation.
func GenerateTypeScriptModule(api *collection.ApiModel) (string, error) {
	doc := api.Model()
	if doc == nil || doc.Encodes == nil {
		return "", fmt.Errorf("%s does not encode an API", api.Path)
	}
	g := newGenerator(doc, api.DataTypes)

	var b strings.Builder
	b.WriteString(header)
	b.WriteString("import { type ClientConfig, request } from './client';\n\n")

	for _, s := range g.order {
		g.writeInterface(&b, s)
	}
	g.writeClient(&b, doc.Encodes)
	return b.String(), nil
}

type generator struct {
	names map[*model.Shape]string
	order []*model.Shape
}

func newGenerator(doc *model.Document, fallback []*model.Shape) *generator {
	g := &generator{names: map[*model.Shape]string{}}
	taken := map[string]bool{}
	add := func(prefix string, shapes []*model.Shape) {
		for _, s := range shapes {
			name := canonical.UpperCamel(prefix + s.Name)
			if name == "" || taken[name] {
				continue
			}
			taken[name] = true
			g.names[s] = name
			g.order = append(g.order, s)
		}
	}
	add("", doc.Declares)
	namespaces := make([]string, 0, len(doc.Uses))
	for ns := range doc.Uses {
		namespaces = append(namespaces, ns)
	}
	sort.Strings(namespaces)
	for _, ns := range namespaces {
		add(ns+".", doc.Uses[ns].Declares)
	}
	if len(g.order) == 0 {
		add("", fallback)
	}
	return g
}

func (g *generator) writeInterface(b *strings.Builder, s *model.Shape) {
	name := g.names[s]
	writeDoc(b, "", s.Description)
	if s.BaseType() != "object" {
		fmt.Fprintf(b, "export type %s = %s;\n\n", name, g.inline(s, map[*model.Shape]bool{}))
		return
	}
	fmt.Fprintf(b, "export interface %s {\n", name)
	g.writeProperties(b, "  ", s.EffectiveProperties(), map[*model.Shape]bool{s: true})
	b.WriteString("}\n\n")
}

func (g *generator) writeProperties(b *strings.Builder, indent string, props []*model.Property, stack map[*model.Shape]bool) {
	for _, p := range props {
		optional := ""
		if !p.Required {
			optional = "?"
		}
		if p.Shape != nil {
			writeDoc(b, indent, p.Shape.Description)
		}
		fmt.Fprintf(b, "%s%s%s: %s;\n", indent, quote(p.Name), optional, g.typeOf(p.Shape, stack))
	}
}

// typeOf returns the TypeScript type of s, naming declared types.
func (g *generator) typeOf(s *model.Shape, stack map[*model.Shape]bool) string {
	if s == nil {
		return "any"
	}
	if name, ok := g.names[s]; ok {
		return name
	}
	if s.IsReference() {
		if name, ok := g.names[s.Link]; ok {
			return name
		}
	}
	return g.inline(s, stack)
}

func (g *generator) inline(s *model.Shape, stack map[*model.Shape]bool) string {
	if stack[s] && g.names[s] == "" {
		return "any"
	}
	stack[s] = true
	defer delete(stack, s)

	if enum, _ := model.LookupFacet(s, func(x *model.Shape) ([]any, bool) { return x.Enum, len(x.Enum) > 0 }); len(enum) > 0 {
		literals := make([]string, 0, len(enum))
		for _, v := range enum {
			if str, ok := v.(string); ok {
				literals = append(literals, quote(str))
			} else {
				literals = append(literals, fmt.Sprint(v))
			}
		}
		return strings.Join(literals, " | ")
	}

	switch s.BaseType() {
	case "string", "date-only", "time-only", "datetime-only", "datetime":
		return "string"
	case "number", "integer":
		return "number"
	case "boolean":
		return "boolean"
	case "nil":
		return "null"
	case "array":
		return "Array<" + g.typeOf(s.ItemShape(), stack) + ">"
	case "union":
		var parts []string
		for _, v := range s.Variants() {
			parts = append(parts, g.typeOf(v, stack))
		}
		if len(parts) == 0 {
			return "any"
		}
		return strings.Join(parts, " | ")
	case "object":
		props := s.EffectiveProperties()
		if len(props) == 0 {
			return "Record<string, any>"
		}
		var b strings.Builder
		b.WriteString("{ ")
		for _, p := range props {
			optional := ""
			if !p.Required {
				optional = "?"
			}
			fmt.Fprintf(&b, "%s%s: %s; ", quote(p.Name), optional, g.typeOf(p.Shape, stack))
		}
		b.WriteString("}")
		return b.String()
	default:
		return "any"
	}
}

func (g *generator) writeClient(b *strings.Builder, api *model.WebAPI) {
	className := canonical.UpperCamel(api.Name)
	writeDoc(b, "", api.Description)
	fmt.Fprintf(b, "export class %s {\n", className)
	fmt.Fprintf(b, "  static readonly defaultBaseUri = %s;\n\n", quote(defaultBaseURI(api)))
	fmt.Fprintf(b, "  constructor(private readonly config: ClientConfig = { baseUri: %s.defaultBaseUri }) {}\n", className)

	ids := canonical.OperationIDs(api)
	for _, ep := range api.EndPoints {
		for _, op := range ep.Operations {
			b.WriteString("\n")
			g.writeMethod(b, ep, op, ids[op])
		}
	}
	b.WriteString("}\n")
}

func defaultBaseURI(api *model.WebAPI) string {
	return uriParamRe.ReplaceAllStringFunc(api.BaseURI, func(m string) string {
		if strings.Trim(m, "{+}") == "version" && api.Version != "" {
			return api.Version
		}
		return m
	})
}

func (g *generator) writeMethod(b *strings.Builder, ep *model.EndPoint, op *model.Operation, name string) {
	desc := op.Description
	if desc == "" {
		desc = op.DisplayName
	}
	writeDoc(b, "  ", desc)

	var fields []string
	anyRequired := false
	addGroup := func(key string, props []*model.Property) {
		if len(props) == 0 {
			return
		}
		required := false
		var parts []string
		for _, p := range props {
			optional := "?"
			if p.Required {
				optional = ""
				required = true
			}
			parts = append(parts, fmt.Sprintf("%s%s: %s", quote(p.Name), optional, g.typeOf(p.Shape, map[*model.Shape]bool{})))
		}
		optional := "?"
		if required {
			optional = ""
			anyRequired = true
		}
		fields = append(fields, fmt.Sprintf("%s%s: { %s }", key, optional, strings.Join(parts, "; ")))
	}
	addGroup("uriParameters", uriParameters(ep))
	addGroup("queryParameters", op.QueryParameters)
	addGroup("headers", op.Headers)
	if len(op.Body) > 0 {
		fields = append(fields, "body: "+g.typeOf(op.Body[0].Schema, map[*model.Shape]bool{}))
		anyRequired = true
	}

	param, arg := "", "{}"
	if len(fields) > 0 {
		optional := ""
		if !anyRequired {
			optional = "?"
		}
		param = fmt.Sprintf("options%s: { %s }", optional, strings.Join(fields, "; "))
		arg = "options"
	}
	result := g.resultType(op)
	fmt.Fprintf(b, "  async %s(%s): Promise<%s> {\n", name, param, result)
	fmt.Fprintf(b, "    return request<%s>(this.config, %s, %s, %s);\n", result, quote(strings.ToUpper(op.Method)), quote(ep.Path), arg)
	b.WriteString("  }\n")
}

// uriParameters returns the parameters of every {name} in the endpoint's
// full path, defaulting undeclared ones to required strings.
func uriParameters(ep *model.EndPoint) []*model.Property {
	var out []*model.Property
	for _, m := range uriParamRe.FindAllStringSubmatch(ep.Path, -1) {
		var found *model.Property
		for _, p := range ep.URIParameters {
			if p.Name == m[1] {
				found = p
			}
		}
		if found == nil {
			found = &model.Property{Name: m[1], Required: true, Shape: &model.Shape{Type: "string"}}
		}
		out = append(out, found)
	}
	return out
}

func (g *generator) resultType(op *model.Operation) string {
	for _, r := range op.Responses {
		if !strings.HasPrefix(r.StatusCode, "2") {
			continue
		}
		if len(r.Body) == 0 {
			return "void"
		}
		return g.typeOf(r.Body[0].Schema, map[*model.Shape]bool{})
	}
	return "void"
}

func writeDoc(b *strings.Builder, indent, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	text = strings.ReplaceAll(text, "*/", "*\\/")
	comment := strings.ReplaceAll(text, "\n", "\n"+indent+" * ")
	fmt.Fprintf(b, "%s/** %s */\n", indent, comment)
}

func quote(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`, "\n", `\n`)
	return "'" + r.Replace(s) + "'"
}

// generateIndexFile generates index.ts that re-exports every API module
// under its name.
func generateIndexFile(modules []string) string {
	var b strings.Builder
	b.WriteString(header)
	b.WriteString("export * from './client';\n")
	for _, name := range modules {
		fmt.Fprintf(&b, "export * as %s from './%s';\n", canonical.Identifier(name), name)
	}
	return b.String()
}

// generateClientFile generates client.ts, the fetch wrapper every module
// calls into.
func generateClientFile() string {
	return header + `export interface ClientConfig {
  baseUri: string;
  headers?: Record<string, string>;
  fetch?: typeof fetch;
}

export interface RequestOptions {
  uriParameters?: Record<string, unknown>;
  queryParameters?: Record<string, unknown>;
  headers?: Record<string, unknown>;
  body?: unknown;
}

export async function request<T>(
  config: ClientConfig,
  method: string,
  path: string,
  options: RequestOptions = {},
): Promise<T> {
  const resolved = path.replace(/\{\+?(\w+)\}/g, (_, name: string) =>
    encodeURIComponent(String(options.uriParameters?.[name] ?? '')));
  const query: string[] = [];
  for (const [key, value] of Object.entries(options.queryParameters ?? {})) {
    if (value !== undefined) query.push(encodeURIComponent(key) + '=' + encodeURIComponent(String(value)));
  }
  let url = config.baseUri.replace(/\/$/, '') + resolved;
  if (query.length > 0) url += '?' + query.join('&');

  const headers: Record<string, string> = { ...config.headers };
  for (const [key, value] of Object.entries(options.headers ?? {})) {
    if (value !== undefined) headers[key] = String(value);
  }
  let body: string | undefined;
  if (options.body !== undefined) {
    headers['Content-Type'] ??= 'application/json';
    body = JSON.stringify(options.body);
  }

  const response = await (config.fetch ?? fetch)(url, { method, headers, body });
  if (!response.ok) {
    throw new Error(` + "`${method} ${resolved} failed: ${response.status} ${response.statusText}`" + `);
  }
  if (response.status === 204) {
    return undefined as T;
  }
  return (await response.json()) as T;
}
`
}
