package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"raml-toolkit/internal/config"
	"raml-toolkit/internal/parsers/raml"
)

func newValidateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file>...",
		Short: "Validate RAML files and report every violation",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			// Validation is the point of this command regardless of config.
			parser := a.newParser(true)
			failed := 0
			for _, path := range args {
				_, err := parser.ParseRamlFile(cmd.Context(), path)
				if err == nil {
					a.printf("ok    %s\n", path)
					continue
				}
				failed++
				a.printf("FAIL  %s\n", path)
				var report *raml.Report
				if errors.As(err, &report) {
					for _, v := range report.Violations {
						a.printf("      %s\n", v.Error())
					}
					continue
				}
				a.printf("      %v\n", err)
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d files invalid", failed, len(args))
			}
			return nil
		},
	}
}

func newCheckConfigCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "check-config <file>",
		Short: "Validate a config file without expanding environment variables",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := config.Read(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if err := config.Check(data); err != nil {
				return err
			}
			a.printf("ok    %s\n", args[0])
			return nil
		},
	}
}
