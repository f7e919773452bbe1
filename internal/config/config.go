package config

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"raml-toolkit/internal/parsers/raml"
)

type Config struct {
	APIs          map[string][]string `json:"apis" yaml:"apis"`
	Pipeline      string              `json:"pipeline,omitempty" yaml:"pipeline,omitempty"`
	OutputDir     string              `json:"output_dir,omitempty" yaml:"output_dir,omitempty"`
	Validation    *bool               `json:"validate,omitempty" yaml:"validate,omitempty"`
	Concurrency   int                 `json:"concurrency,omitempty" yaml:"concurrency,omitempty"`
	OpenAPIFormat string              `json:"openapi_format,omitempty" yaml:"openapi_format,omitempty"`
	Fetch         FetchConfig         `json:"fetch,omitempty" yaml:"fetch,omitempty"`
	Filter        *OperationFilter    `json:"filter,omitempty" yaml:"filter,omitempty"`
	Log           LogConfig           `json:"log,omitempty" yaml:"log,omitempty"`
}

// FetchConfig controls how remote RAML files are downloaded.
type FetchConfig struct {
	TimeoutSeconds int         `json:"timeout_seconds,omitempty" yaml:"timeout_seconds,omitempty"`
	Retries        int         `json:"retries,omitempty" yaml:"retries,omitempty"`
	Auth           *AuthConfig `json:"auth,omitempty" yaml:"auth,omitempty"`
}

type AuthConfig struct {
	Type     string `json:"type" yaml:"type"`
	Token    string `json:"token,omitempty" yaml:"token,omitempty"`       // bearer
	Username string `json:"username,omitempty" yaml:"username,omitempty"` // basic
	Password string `json:"password,omitempty" yaml:"password,omitempty"` // basic
	Header   string `json:"header,omitempty" yaml:"header,omitempty"`     // api-key header name
	Value    string `json:"value,omitempty" yaml:"value,omitempty"`       // api-key value
}

type LogConfig struct {
	Format string `json:"format,omitempty" yaml:"format,omitempty"` // "text" or "json"
	Level  string `json:"level,omitempty" yaml:"level,omitempty"`
}

func (c *Config) ApplyDefaults() {
	if c.Pipeline == "" {
		c.Pipeline = raml.PipelineCompatibility
	}
	if c.OutputDir == "" {
		c.OutputDir = "renderedTemplates"
	}
	if c.Validation == nil {
		defaultTrue := true
		c.Validation = &defaultTrue
	}
	if c.Concurrency == 0 {
		c.Concurrency = 4
	}
	if c.Fetch.TimeoutSeconds == 0 {
		c.Fetch.TimeoutSeconds = 15
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// ValidationEnabled returns whether examples are validated while parsing (default: true)
func (c *Config) ValidationEnabled() bool {
	if c.Validation == nil {
		return true
	}
	return *c.Validation
}

// GroupNames returns the configured group names in sorted order.
func (c *Config) GroupNames() []string {
	names := make([]string, 0, len(c.APIs))
	for name := range c.APIs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (c *Config) Validate() error {
	if len(c.APIs) == 0 {
		return fmt.Errorf("no apis configured")
	}
	for _, group := range c.GroupNames() {
		if strings.TrimSpace(group) == "" {
			return fmt.Errorf("apis: group name is required")
		}
		files := c.APIs[group]
		if len(files) == 0 {
			return fmt.Errorf("apis.%s: at least one file is required", group)
		}
		seen := map[string]struct{}{}
		for i, f := range files {
			if strings.TrimSpace(f) == "" {
				return fmt.Errorf("apis.%s[%d]: file is required", group, i)
			}
			if _, ok := seen[f]; ok {
				return fmt.Errorf("apis.%s[%d]: duplicate file %q", group, i, f)
			}
			seen[f] = struct{}{}
		}
	}
	if !slices.Contains(raml.Pipelines, c.Pipeline) {
		return fmt.Errorf("pipeline must be one of %s, got %q", strings.Join(raml.Pipelines, ", "), c.Pipeline)
	}
	if c.Concurrency < 0 {
		return fmt.Errorf("concurrency must be >= 0")
	}
	switch c.OpenAPIFormat {
	case "", "json", "yaml":
	default:
		return fmt.Errorf("openapi_format must be 'json' or 'yaml', got %q", c.OpenAPIFormat)
	}
	if c.Fetch.TimeoutSeconds < 0 {
		return fmt.Errorf("fetch.timeout_seconds must be >= 0")
	}
	if c.Fetch.Retries < 0 {
		return fmt.Errorf("fetch.retries must be >= 0")
	}
	if c.Fetch.Auth != nil {
		if err := c.Fetch.Auth.Validate(); err != nil {
			return fmt.Errorf("fetch: %w", err)
		}
	}
	if c.Filter != nil {
		if err := c.Filter.Validate(); err != nil {
			return err
		}
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("log.format must be 'text' or 'json', got %q", c.Log.Format)
	}
	return nil
}

func (a *AuthConfig) Validate() error {
	switch a.Type {
	case "":
		return fmt.Errorf("auth.type is required")
	case "bearer":
		if a.Token == "" {
			return fmt.Errorf("auth.token is required for bearer")
		}
	case "basic":
		if a.Username == "" || a.Password == "" {
			return fmt.Errorf("auth.username and auth.password are required for basic")
		}
	case "api-key":
		if a.Header == "" || a.Value == "" {
			return fmt.Errorf("auth.header and auth.value are required for api-key")
		}
	default:
		return fmt.Errorf("unsupported auth.type %q", a.Type)
	}
	return nil
}

func (f *OperationFilter) Validate() error {
	if f.Mode == "" {
		return fmt.Errorf("filter.mode is required")
	}
	mode := strings.ToLower(f.Mode)
	if mode != "allowlist" && mode != "blocklist" {
		return fmt.Errorf("filter.mode must be 'allowlist' or 'blocklist', got %q", f.Mode)
	}
	if len(f.Operations) == 0 {
		return fmt.Errorf("filter.operations cannot be empty")
	}

	for j, op := range f.Operations {
		if op.OperationID == "" && op.Method == "" && op.Path == "" {
			return fmt.Errorf("filter.operations[%d]: at least one of operation_id, method, or path is required", j)
		}
		if op.OperationID != "" {
			if err := validateGlobPattern(op.OperationID); err != nil {
				return fmt.Errorf("filter.operations[%d].operation_id: %w", j, err)
			}
		}
		if op.Path != "" {
			if err := validateGlobPattern(op.Path); err != nil {
				return fmt.Errorf("filter.operations[%d].path: %w", j, err)
			}
		}
		if op.Method != "" {
			if err := validateMethodPattern(op.Method); err != nil {
				return fmt.Errorf("filter.operations[%d].method: %w", j, err)
			}
		}
	}

	return nil
}

func validateGlobPattern(pattern string) error {
	if strings.Contains(pattern, "***") {
		return fmt.Errorf("invalid glob pattern: too many consecutive asterisks")
	}
	return nil
}

func validateMethodPattern(method string) error {
	method = strings.ToUpper(method)
	if method == "*" {
		return nil
	}
	validMethods := []string{"GET", "POST", "PUT", "DELETE", "PATCH", "HEAD", "OPTIONS", "CONNECT", "TRACE"}
	for _, valid := range validMethods {
		if method == valid {
			return nil
		}
	}
	return fmt.Errorf("invalid HTTP method %q", method)
}

// Secrets returns the credentials that must never reach the logs.
func (c *Config) Secrets() []string {
	a := c.Fetch.Auth
	if a == nil {
		return nil
	}
	switch a.Type {
	case "bearer":
		if a.Token != "" {
			return []string{a.Token}
		}
	case "basic":
		if a.Password != "" {
			return []string{a.Password}
		}
	case "api-key":
		if a.Value != "" {
			return []string{a.Value}
		}
	}
	return nil
}

type OperationFilter struct {
	Mode       string             `json:"mode" yaml:"mode"`             // "allowlist" or "blocklist"
	Operations []OperationPattern `json:"operations" yaml:"operations"` // List of patterns
}

type OperationPattern struct {
	OperationID string `json:"operation_id,omitempty" yaml:"operation_id,omitempty"` // Pattern for the derived operation id (e.g., "get*")
	Method      string `json:"method,omitempty" yaml:"method,omitempty"`             // HTTP method pattern (e.g., "GET", "POST", "*")
	Path        string `json:"path,omitempty" yaml:"path,omitempty"`                 // Path pattern (e.g., "/customers/*", "/admin/**")
	Summary     string `json:"summary,omitempty" yaml:"summary,omitempty"`           // Optional description for documentation
}
