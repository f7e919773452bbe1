package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"raml-toolkit/internal/export/openapi"
	"raml-toolkit/internal/filter"
	"raml-toolkit/internal/model"
)

func newOpenAPICmd(a *app) *cobra.Command {
	var (
		format   string
		pipeline string
		output   string
	)
	cmd := &cobra.Command{
		Use:   "openapi <file>",
		Short: "Convert a RAML file to an OpenAPI 3 document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := a.parser.ParseRamlFile(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if pipeline == "" {
				pipeline = a.cfg.Pipeline
			}
			if doc, err = a.parser.ResolveApiModel(doc, pipeline); err != nil {
				return err
			}
			if format == "" {
				format = a.cfg.OpenAPIFormat
			}
			out, err := a.exportOpenAPI(doc, format)
			if err != nil {
				return err
			}
			if output == "" {
				_, err = a.stdout.Write(out)
				return err
			}
			if err := os.WriteFile(output, out, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", output, err)
			}
			a.logger.Info("openapi document written", "path", output)
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "", "output format: json, yaml (default json)")
	cmd.Flags().StringVar(&pipeline, "pipeline", "", "resolution pipeline (default from config, else compatibility)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to this file instead of stdout")
	return cmd
}

// exportOpenAPI applies the configured operation filter and renders doc.
func (a *app) exportOpenAPI(doc *model.Document, format string) ([]byte, error) {
	if n := filter.Apply(doc, a.cfg.Filter); n > 0 {
		a.logger.Debug("operations filtered", "removed", n)
	}
	t, err := openapi.FromModel(doc)
	if err != nil {
		return nil, err
	}
	if format == "" {
		format = "json"
	}
	return openapi.Marshal(t, format)
}
