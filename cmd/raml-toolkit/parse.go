package main

import (
	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"raml-toolkit/internal/apiparser"
	"raml-toolkit/internal/model"
)

type endpointSummary struct {
	Path    string   `json:"path"`
	Methods []string `json:"methods"`
}

type apiSummary struct {
	Title     string            `json:"title"`
	Name      string            `json:"name"`
	Version   string            `json:"version,omitempty"`
	BaseURI   string            `json:"baseUri,omitempty"`
	EndPoints []endpointSummary `json:"endpoints"`
	DataTypes []string          `json:"dataTypes"`
}

func newParseCmd(a *app) *cobra.Command {
	var (
		pipeline string
		asJSON   bool
	)
	cmd := &cobra.Command{
		Use:   "parse <file>",
		Short: "Parse a RAML file and print a summary of its API",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := a.parser.ParseRamlFile(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if pipeline != "" {
				if doc, err = a.parser.ResolveApiModel(doc, pipeline); err != nil {
					return err
				}
			}
			summary, err := summarize(doc)
			if err != nil {
				return err
			}
			if asJSON {
				out, err := json.MarshalIndent(summary, "", "  ")
				if err != nil {
					return err
				}
				a.printf("%s\n", out)
				return nil
			}
			a.printSummary(summary)
			return nil
		},
	}
	cmd.Flags().StringVar(&pipeline, "pipeline", "", "resolve the model with this pipeline before printing")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the summary as JSON")
	return cmd
}

func summarize(doc *model.Document) (*apiSummary, error) {
	name, err := apiparser.GetApiName(doc)
	if err != nil {
		return nil, err
	}
	api := doc.Encodes
	s := &apiSummary{
		Title:     api.Name,
		Name:      name,
		Version:   api.Version,
		BaseURI:   api.BaseURI,
		EndPoints: []endpointSummary{},
		DataTypes: []string{},
	}
	for _, ep := range api.EndPoints {
		e := endpointSummary{Path: ep.Path, Methods: []string{}}
		for _, op := range ep.Operations {
			e.Methods = append(e.Methods, op.Method)
		}
		s.EndPoints = append(s.EndPoints, e)
	}
	for _, t := range apiparser.GetAllDataTypes(doc) {
		s.DataTypes = append(s.DataTypes, t.Name)
	}
	return s, nil
}

func (a *app) printSummary(s *apiSummary) {
	a.printf("%s (%s)\n", s.Title, s.Name)
	if s.Version != "" {
		a.printf("  version:  %s\n", s.Version)
	}
	if s.BaseURI != "" {
		a.printf("  baseUri:  %s\n", s.BaseURI)
	}
	a.printf("  endpoints: %d\n", len(s.EndPoints))
	for _, e := range s.EndPoints {
		a.printf("    %-40s %v\n", e.Path, e.Methods)
	}
	a.printf("  data types: %d\n", len(s.DataTypes))
	for _, t := range s.DataTypes {
		a.printf("    %s\n", t)
	}
}
