// Package apiparser wraps the RAML modeling layer with the small API the
// generators use: parsing, naming, data type listing and resolution.
package apiparser

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"

	"raml-toolkit/internal/canonical"
	"raml-toolkit/internal/model"
	"raml-toolkit/internal/parsers/raml"
)

// Backend is the modeling layer behind the wrapper.
type Backend interface {
	ParseFile(ctx context.Context, path string) (*model.Document, error)
	Resolve(doc *model.Document, pipeline string) (*model.Document, error)
}

// RAMLBackend parses and resolves with the raml package.
type RAMLBackend struct {
	Options []raml.Option
}

func (b RAMLBackend) ParseFile(ctx context.Context, path string) (*model.Document, error) {
	return raml.ParseFile(ctx, path, b.Options...)
}

func (b RAMLBackend) Resolve(doc *model.Document, pipeline string) (*model.Document, error) {
	return raml.Resolve(doc, pipeline)
}

// Parser runs wrapper operations against a Backend.
type Parser struct {
	backend Backend
	logger  *slog.Logger
}

// New returns a Parser. A nil backend selects RAMLBackend with validation
// and a nil logger logs to slog.Default().
func New(backend Backend, logger *slog.Logger) *Parser {
	if backend == nil {
		backend = RAMLBackend{}
	}
	return &Parser{backend: backend, logger: logger}
}

func (p *Parser) log() *slog.Logger {
	if p.logger == nil {
		return slog.Default().With("component", "apiparser")
	}
	return p.logger.With("component", "apiparser")
}

// ParseRamlFile parses the RAML file at path. Errors raised by the modeling
// layer are returned as *Error; anything else is returned as is.
func (p *Parser) ParseRamlFile(ctx context.Context, path string) (*model.Document, error) {
	p.log().Debug("parsing raml", "path", path)
	doc, err := p.backend.ParseFile(ctx, path)
	if err != nil {
		return nil, wrapLibraryError(err)
	}
	return doc, nil
}

// ResolveApiModel resolves doc with the named pipeline.
func (p *Parser) ResolveApiModel(doc *model.Document, pipeline string) (*model.Document, error) {
	if doc == nil {
		return nil, errors.New("Invalid API model provided to resolve")
	}
	if pipeline == "" {
		return nil, errors.New("Invalid resolution pipeline provided to resolve")
	}
	p.log().Debug("resolving model", "location", doc.Location, "pipeline", pipeline)
	resolved, err := p.backend.Resolve(doc, pipeline)
	if err != nil {
		return nil, wrapLibraryError(err)
	}
	return resolved, nil
}

var std = New(nil, nil)

// ParseRamlFile parses path with the default RAML backend.
func ParseRamlFile(ctx context.Context, path string) (*model.Document, error) {
	return std.ParseRamlFile(ctx, path)
}

// ResolveApiModel resolves doc with the default RAML backend.
func ResolveApiModel(doc *model.Document, pipeline string) (*model.Document, error) {
	return std.ResolveApiModel(doc, pipeline)
}

// GetApiName returns the name of the API encoded by doc in lowerCamelCase.
func GetApiName(doc *model.Document) (string, error) {
	var name string
	if doc != nil && doc.Encodes != nil {
		name = doc.Encodes.Name
	}
	normalized := canonical.LowerCamel(name)
	if normalized == "" {
		return "", errors.New("Invalid name provided to normalize")
	}
	return normalized, nil
}

// GetAllDataTypes returns the types declared by doc followed by those of the
// libraries and documents it references, depth first. A declaration reached
// more than once is listed once.
func GetAllDataTypes(doc *model.Document) []*model.Shape {
	var out []*model.Shape
	seenShape := map[string]bool{}
	seenDoc := map[*model.Document]bool{}
	var walk func(d *model.Document)
	walk = func(d *model.Document) {
		if d == nil || seenDoc[d] {
			return
		}
		seenDoc[d] = true
		for _, s := range d.Declares {
			key := s.ID
			if key == "" {
				key = d.Location + "#/declares/" + s.Name
			}
			if seenShape[key] {
				continue
			}
			seenShape[key] = true
			out = append(out, s)
		}
		for _, ref := range d.References {
			walk(ref)
		}
		namespaces := make([]string, 0, len(d.Uses))
		for ns := range d.Uses {
			namespaces = append(namespaces, ns)
		}
		sort.Strings(namespaces)
		for _, ns := range namespaces {
			walk(d.Uses[ns])
		}
	}
	walk(doc)
	return out
}

// libraryError is implemented by failures raised by the modeling layer.
type libraryError interface {
	error
	Code() string
}

// Error is a modeling layer failure. Message is the library text without
// its code prefix and LibraryError holds the original value.
type Error struct {
	Message      string
	LibraryError error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.LibraryError }

func wrapLibraryError(err error) error {
	var lib libraryError
	if !errors.As(err, &lib) {
		return err
	}
	msg := lib.Error()
	if rest, ok := strings.CutPrefix(msg, lib.Code()+": "); ok {
		msg = rest
	}
	return &Error{Message: msg, LibraryError: lib}
}
