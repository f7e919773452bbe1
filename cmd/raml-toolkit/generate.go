package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"raml-toolkit/internal/codegen"
	"raml-toolkit/internal/collection"
	"raml-toolkit/internal/filter"
)

func newGenerateCmd(a *app) *cobra.Command {
	var (
		description string
		outDir      string
	)
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate TypeScript SDK sources for a collection of APIs",
		Long: `Reads every API group named by the config (or by --description, a file
mapping group names to RAML files), resolves the models and writes one
TypeScript module per API plus a client and an index file per group.
When openapi_format is set in the config an OpenAPI document is written
next to each module.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			apis := a.cfg.APIs
			if description != "" {
				desc, err := collection.LoadDescription(description)
				if err != nil {
					return err
				}
				apis = desc
			}
			if len(apis) == 0 {
				return errors.New("no apis to generate: pass --config or --description")
			}
			if outDir == "" {
				outDir = a.cfg.OutputDir
			}

			c, err := collection.ReadCollection(cmd.Context(), apis,
				collection.WithParser(a.parser),
				collection.WithPipeline(a.cfg.Pipeline),
				collection.WithConcurrency(a.cfg.Concurrency),
				collection.WithLogger(a.logger),
			)
			if err != nil {
				return err
			}
			for _, name := range c.Names() {
				for _, api := range c.Group(name).Apis {
					if n := filter.Apply(api.Model(), a.cfg.Filter); n > 0 {
						a.logger.Info("operations filtered", "api", api.Name, "removed", n)
					}
				}
			}

			written, err := codegen.WriteCollection(c, outDir, a.logger)
			if err != nil {
				return err
			}
			if a.cfg.OpenAPIFormat != "" {
				docs, err := a.writeOpenAPI(c, outDir)
				if err != nil {
					return err
				}
				written = append(written, docs...)
			}
			for _, path := range written {
				a.printf("%s\n", path)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&description, "description", "", "YAML or JSON file mapping group names to RAML files")
	cmd.Flags().StringVarP(&outDir, "output-dir", "o", "", "output directory (default from config, else renderedTemplates)")
	return cmd
}

func (a *app) writeOpenAPI(c collection.ApiCollection, outDir string) ([]string, error) {
	var written []string
	for _, name := range c.Names() {
		dir := filepath.Join(outDir, name)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
		for _, api := range c.Group(name).Apis {
			// Filtering already happened on the shared model.
			out, err := a.exportOpenAPI(api.Model(), a.cfg.OpenAPIFormat)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", api.Path, err)
			}
			path := filepath.Join(dir, api.Name+".openapi."+a.cfg.OpenAPIFormat)
			if err := os.WriteFile(path, out, 0o644); err != nil {
				return nil, fmt.Errorf("write %s: %w", path, err)
			}
			written = append(written, path)
		}
	}
	return written, nil
}
