// Package codegen renders TypeScript SDK sources for collections of RAML
// APIs.
package codegen

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"raml-toolkit/internal/collection"
)

// WriteCollection generates every group of c into outDir/<group>/, bundles
// each group into index.js and returns the written paths in sorted order.
func WriteCollection(c collection.ApiCollection, outDir string, logger *slog.Logger) ([]string, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var written []string
	for _, name := range c.Names() {
		group := c.Group(name)
		logger.Debug("generating TypeScript for group", "component", "codegen", "group", name, "apis", len(group.Apis))
		files, err := GenerateGroup(group)
		if err != nil {
			return nil, fmt.Errorf("generate typescript for %s: %w", name, err)
		}
		dir := filepath.Join(outDir, name)
		paths, err := WriteFiles(dir, files)
		if err != nil {
			return nil, err
		}
		written = append(written, paths...)

		js, err := Bundle(dir)
		if err != nil {
			return nil, fmt.Errorf("bundle %s: %w", name, err)
		}
		bundle := filepath.Join(dir, "index.js")
		if err := os.WriteFile(bundle, js, 0644); err != nil {
			return nil, fmt.Errorf("write bundle: %w", err)
		}
		logger.Debug("bundle written", "component", "codegen", "group", name, "bytes", len(js))
		written = append(written, bundle)
	}
	sort.Strings(written)
	logger.Info("sdk sources written", "component", "codegen", "dir", outDir, "files", len(written))
	return written, nil
}

// WriteFiles writes files (name to content) into dir, creating it as needed.
func WriteFiles(dir string, files map[string]string) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)
	paths := make([]string, 0, len(names))
	for _, name := range names {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(files[name]), 0644); err != nil {
			return nil, fmt.Errorf("write %s: %w", name, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}
