package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"raml-toolkit/internal/apiparser"
	"raml-toolkit/internal/collection"
	"raml-toolkit/internal/config"
	"raml-toolkit/internal/fetch"
	"raml-toolkit/internal/logging"
	"raml-toolkit/internal/parsers/raml"
	"raml-toolkit/internal/redact"
)

// app holds what every subcommand needs once flags and config are read.
type app struct {
	configPath string
	logFormat  string
	logLevel   string

	cfg      *config.Config
	logger   *slog.Logger
	redactor *redact.Redactor
	parser   *apiparser.Parser
	stdout   io.Writer
}

func newRootCmd() *cobra.Command {
	a := &app{}
	rootCmd := &cobra.Command{
		Use:   "raml-toolkit",
		Short: "Parse RAML APIs and generate SDK artifacts",
		Long: `raml-toolkit parses RAML 1.0 API specifications, validates them and
turns collections of APIs into TypeScript SDK sources and OpenAPI documents.

Examples:
  raml-toolkit parse api.raml
  raml-toolkit validate apis/*.raml
  raml-toolkit openapi api.raml --format yaml -o api.yaml
  raml-toolkit generate --config toolkit.yaml`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			a.stdout = cmd.OutOrStdout()
			return a.init(cmd.Context(), cmd.ErrOrStderr())
		},
	}

	rootCmd.PersistentFlags().StringVar(&a.configPath, "config", "", "config file path or URL")
	rootCmd.PersistentFlags().StringVar(&a.logFormat, "log-format", "", "log output format: text, json (default from config, else text)")
	rootCmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error (default from config, else info)")

	rootCmd.AddCommand(newParseCmd(a))
	rootCmd.AddCommand(newValidateCmd(a))
	rootCmd.AddCommand(newOpenAPICmd(a))
	rootCmd.AddCommand(newGenerateCmd(a))
	rootCmd.AddCommand(newCheckConfigCmd(a))
	return rootCmd
}

func (a *app) init(ctx context.Context, stderr io.Writer) error {
	if a.configPath != "" {
		cfg, err := config.Load(ctx, a.configPath)
		if err != nil {
			return err
		}
		if !raml.IsURL(a.configPath) {
			cfg.APIs = collection.ResolvePaths(cfg.APIs, filepath.Dir(a.configPath))
		}
		a.cfg = cfg
	} else {
		a.cfg = &config.Config{}
		a.cfg.ApplyDefaults()
	}

	format, level := a.cfg.Log.Format, a.cfg.Log.Level
	if a.logFormat != "" {
		format = a.logFormat
	}
	if a.logLevel != "" {
		level = a.logLevel
	}
	if f, ok := stderr.(*os.File); ok && f == os.Stderr {
		a.logger = logging.Setup(format, level)
	} else {
		a.logger = logging.New(stderr, format, level)
	}

	a.redactor = redact.NewRedactor()
	a.redactor.AddSecrets(a.cfg.Secrets())
	a.parser = a.newParser(a.cfg.ValidationEnabled())
	return nil
}

func (a *app) fetcher() *fetch.Fetcher {
	return fetch.FromConfig(a.cfg, a.logger, a.redactor)
}

func (a *app) newParser(validate bool) *apiparser.Parser {
	backend := apiparser.RAMLBackend{Options: []raml.Option{
		raml.WithReader(a.fetcher()),
		raml.WithValidation(validate),
	}}
	return apiparser.New(backend, a.logger)
}

func (a *app) printf(format string, args ...any) {
	fmt.Fprintf(a.stdout, format, args...)
}
