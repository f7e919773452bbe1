// Package collection loads groups of RAML APIs for code generation.
package collection

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/goccy/go-json"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"raml-toolkit/internal/apiparser"
	"raml-toolkit/internal/model"
	"raml-toolkit/internal/parsers/raml"
)

// MetadataFile is the asset descriptor read from the directory of a RAML file.
const MetadataFile = "exchange.json"

// Metadata describes the asset an API was published as.
type Metadata struct {
	Name       string   `json:"name"`
	Version    string   `json:"version"`
	GroupID    string   `json:"groupId"`
	AssetID    string   `json:"assetId"`
	Main       string   `json:"main"`
	Classifier string   `json:"classifier,omitempty"`
	Tags       []string `json:"tags,omitempty"`
}

// ApiModel is one parsed RAML file.
type ApiModel struct {
	Path      string
	Name      string
	Document  *model.Document
	Resolved  *model.Document
	DataTypes []*model.Shape
	Metadata  *Metadata
}

// Model returns the resolved document when there is one.
func (m *ApiModel) Model() *model.Document {
	if m.Resolved != nil {
		return m.Resolved
	}
	return m.Document
}

// ApiGroup is a named list of APIs.
type ApiGroup struct {
	Name string
	Apis []*ApiModel
}

func (g *ApiGroup) SetName(name string) { g.Name = name }

type options struct {
	parser      *apiparser.Parser
	pipeline    string
	concurrency int
	logger      *slog.Logger
}

// Option configures reading.
type Option func(*options)

// WithParser sets the parser used for every file.
func WithParser(p *apiparser.Parser) Option { return func(o *options) { o.parser = p } }

// WithPipeline resolves every model with the named pipeline. Without it
// models are left unresolved.
func WithPipeline(pipeline string) Option { return func(o *options) { o.pipeline = pipeline } }

// WithConcurrency bounds the number of files parsed at once.
func WithConcurrency(n int) Option { return func(o *options) { o.concurrency = n } }

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option { return func(o *options) { o.logger = l } }

func buildOptions(opts []Option) *options {
	o := &options{concurrency: 4}
	for _, opt := range opts {
		opt(o)
	}
	if o.parser == nil {
		o.parser = apiparser.New(nil, o.logger)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.concurrency < 1 {
		o.concurrency = 1
	}
	return o
}

// ReadApiModel parses, names and optionally resolves the RAML file at path.
func ReadApiModel(ctx context.Context, path string, opts ...Option) (*ApiModel, error) {
	return readApiModel(ctx, path, buildOptions(opts))
}

func readApiModel(ctx context.Context, path string, o *options) (*ApiModel, error) {
	doc, err := o.parser.ParseRamlFile(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	name, err := apiparser.GetApiName(doc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	m := &ApiModel{
		Path:      path,
		Name:      name,
		Document:  doc,
		DataTypes: apiparser.GetAllDataTypes(doc),
	}
	if o.pipeline != "" {
		m.Resolved, err = o.parser.ResolveApiModel(doc, o.pipeline)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}
	if !raml.IsURL(path) {
		m.Metadata, err = readMetadata(filepath.Join(filepath.Dir(path), MetadataFile))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}
	o.logger.Debug("api loaded", "component", "collection", "path", path, "name", name, "types", len(m.DataTypes))
	return m, nil
}

func readMetadata(path string) (*Metadata, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read metadata: %w", err)
	}
	var md Metadata
	if err := json.Unmarshal(raw, &md); err != nil {
		return nil, fmt.Errorf("decode %s: %w", MetadataFile, err)
	}
	return &md, nil
}

// ReadGroup parses every file in paths. The APIs keep the order of paths and
// the first failure cancels the rest.
func ReadGroup(ctx context.Context, paths []string, opts ...Option) (*ApiGroup, error) {
	return readGroup(ctx, paths, buildOptions(opts))
}

func readGroup(ctx context.Context, paths []string, o *options) (*ApiGroup, error) {
	apis := make([]*ApiModel, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.concurrency)
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			m, err := readApiModel(gctx, path, o)
			if err != nil {
				return err
			}
			apis[i] = m
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &ApiGroup{Apis: apis}, nil
}

// ApiCollection holds groups of APIs by name.
type ApiCollection map[string]*ApiGroup

// ReadCollection reads every group of description, which maps group names
// to RAML file lists. Groups are read in name order.
func ReadCollection(ctx context.Context, description map[string][]string, opts ...Option) (ApiCollection, error) {
	o := buildOptions(opts)
	names := make([]string, 0, len(description))
	for name := range description {
		names = append(names, name)
	}
	sort.Strings(names)

	c := ApiCollection{}
	for _, name := range names {
		o.logger.Info("reading api group", "component", "collection", "group", name, "files", len(description[name]))
		group, err := readGroup(ctx, description[name], o)
		if err != nil {
			return nil, fmt.Errorf("group %s: %w", name, err)
		}
		group.SetName(name)
		c[name] = group
	}
	return c, nil
}

// Names returns the group names in sorted order.
func (c ApiCollection) Names() []string {
	names := make([]string, 0, len(c))
	for name := range c {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Group returns the named group, or nil.
func (c ApiCollection) Group(name string) *ApiGroup {
	return c[name]
}

// LoadDescription reads a collection description from a YAML or JSON file.
// Relative file paths are taken relative to the description's directory.
func LoadDescription(path string) (map[string][]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read description: %w", err)
	}
	var desc map[string][]string
	if err := yaml.Unmarshal(raw, &desc); err != nil {
		return nil, fmt.Errorf("parse description %s: %w", path, err)
	}
	return ResolvePaths(desc, filepath.Dir(path)), nil
}

// ResolvePaths returns a copy of description with relative file paths
// joined to dir. URLs and absolute paths are kept.
func ResolvePaths(description map[string][]string, dir string) map[string][]string {
	out := make(map[string][]string, len(description))
	for group, files := range description {
		resolved := make([]string, 0, len(files))
		for _, f := range files {
			if !raml.IsURL(f) && !filepath.IsAbs(f) {
				f = filepath.Join(dir, f)
			}
			resolved = append(resolved, f)
		}
		out[group] = resolved
	}
	return out
}
