package raml

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// Reader loads the raw content of a RAML file or one of its includes.
type Reader interface {
	Read(ctx context.Context, location string) ([]byte, error)
}

// FileReader reads local files only.
type FileReader struct{}

func (FileReader) Read(ctx context.Context, location string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if IsURL(location) {
		return nil, fmt.Errorf("read %s: remote locations need a fetching reader", location)
	}
	return os.ReadFile(location)
}

// IsURL reports whether location is an http(s) URL.
func IsURL(location string) bool {
	lower := strings.ToLower(location)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// ResolveLocation resolves ref relative to the file at base.
func ResolveLocation(base, ref string) string {
	ref = strings.TrimSpace(ref)
	if IsURL(ref) {
		return ref
	}
	if IsURL(base) {
		b, err := url.Parse(base)
		if err != nil {
			return ref
		}
		r, err := url.Parse(ref)
		if err != nil {
			return ref
		}
		return b.ResolveReference(r).String()
	}
	if filepath.IsAbs(ref) {
		return ref
	}
	return filepath.Join(filepath.Dir(base), filepath.FromSlash(ref))
}
