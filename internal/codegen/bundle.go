package codegen

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
)

// BundleGlobal is the global the bundled SDK assigns its exports to.
const BundleGlobal = "sdk"

// Bundle compiles the TypeScript sources in dir, starting from index.ts,
// into a single JavaScript IIFE. Warnings fail the build as well.
func Bundle(dir string) ([]byte, error) {
	result := api.Build(api.BuildOptions{
		EntryPoints: []string{filepath.Join(dir, "index.ts")},
		Bundle:      true,
		Write:       false,
		Format:      api.FormatIIFE,
		GlobalName:  BundleGlobal,
		Target:      api.ES2020,
		Platform:    api.PlatformNeutral,
		LogLevel:    api.LogLevelSilent,
	})

	msgs := append(result.Errors, result.Warnings...)
	if len(msgs) > 0 {
		var errs []string
		for _, m := range msgs {
			text := m.Text
			if m.Location != nil {
				text = fmt.Sprintf("%s:%d: %s", filepath.Base(m.Location.File), m.Location.Line, m.Text)
			}
			errs = append(errs, text)
		}
		return nil, fmt.Errorf("build errors: %s", strings.Join(errs, "; "))
	}

	if len(result.OutputFiles) == 0 {
		return nil, fmt.Errorf("no output from esbuild")
	}
	return result.OutputFiles[0].Contents, nil
}
