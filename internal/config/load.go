package config

import (
	"context"
	"fmt"
	"os"

	"raml-toolkit/internal/parsers/raml"
)

// Load reads the config from a local file or an http(s) URL.
func Load(ctx context.Context, location string) (*Config, error) {
	data, err := Read(ctx, location)
	if err != nil {
		return nil, err
	}
	return LoadFromBytes(data)
}

// Read returns the raw config at location. Remote configs are requested
// with the bearer token in RAML_TOOLKIT_CONFIG_TOKEN when it is set.
func Read(ctx context.Context, location string) ([]byte, error) {
	if raml.IsURL(location) {
		return fetchRemote(ctx, location, os.Getenv("RAML_TOOLKIT_CONFIG_TOKEN"))
	}
	data, err := os.ReadFile(location)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return data, nil
}

func (c *Config) ExpandEnv() error {
	for group, files := range c.APIs {
		for i := range files {
			var err error
			files[i], err = ExpandEnvStrict(files[i])
			if err != nil {
				return fmt.Errorf("apis.%s[%d]: %w", group, i, err)
			}
		}
	}
	var err error
	c.OutputDir, err = ExpandEnvStrict(c.OutputDir)
	if err != nil {
		return fmt.Errorf("output_dir: %w", err)
	}
	if a := c.Fetch.Auth; a != nil {
		fields := []struct {
			name string
			val  *string
		}{
			{"token", &a.Token},
			{"username", &a.Username},
			{"password", &a.Password},
			{"header", &a.Header},
			{"value", &a.Value},
		}
		for _, f := range fields {
			if *f.val == "" {
				continue
			}
			*f.val, err = ExpandEnvStrict(*f.val)
			if err != nil {
				return fmt.Errorf("fetch.auth.%s: %w", f.name, err)
			}
		}
	}
	return nil
}
