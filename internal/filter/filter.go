// Package filter drops operations from a parsed API according to the
// allowlist or blocklist in the configuration.
package filter

import (
	"path/filepath"
	"strings"

	"raml-toolkit/internal/canonical"
	"raml-toolkit/internal/config"
	"raml-toolkit/internal/model"
)

// Apply removes the operations of doc rejected by f and returns how many
// were removed. Endpoints left without operations are dropped. A nil
// filter keeps everything.
func Apply(doc *model.Document, f *config.OperationFilter) int {
	if f == nil || doc == nil || doc.Encodes == nil {
		return 0
	}
	ids := canonical.OperationIDs(doc.Encodes)
	removed := 0
	endpoints := doc.Encodes.EndPoints[:0]
	for _, ep := range doc.Encodes.EndPoints {
		before := len(ep.Operations)
		ep.Operations = filterOperations(ep.Path, ep.Operations, ids, f)
		removed += before - len(ep.Operations)
		if before > 0 && len(ep.Operations) == 0 {
			continue
		}
		endpoints = append(endpoints, ep)
	}
	doc.Encodes.EndPoints = endpoints
	return removed
}

func filterOperations(path string, ops []*model.Operation, ids map[*model.Operation]string, f *config.OperationFilter) []*model.Operation {
	mode := strings.ToLower(f.Mode)

	result := make([]*model.Operation, 0, len(ops))
	for _, op := range ops {
		matches := operationMatches(path, op, ids[op], f.Operations)

		// Allowlist: keep if matches
		// Blocklist: keep if NOT matches
		keep := (mode == "allowlist" && matches) || (mode == "blocklist" && !matches)

		if keep {
			result = append(result, op)
		}
	}

	return result
}

// operationMatches checks if operation matches ANY of the patterns
func operationMatches(path string, op *model.Operation, id string, patterns []config.OperationPattern) bool {
	for _, pattern := range patterns {
		if patternMatches(path, op, id, pattern) {
			return true
		}
	}
	return false
}

// patternMatches checks if a single pattern matches the operation
func patternMatches(path string, op *model.Operation, id string, pattern config.OperationPattern) bool {
	if pattern.OperationID != "" {
		if !globMatch(pattern.OperationID, id) {
			return false
		}
	}

	if pattern.Method != "" {
		methodPattern := strings.ToUpper(pattern.Method)
		opMethod := strings.ToUpper(op.Method)

		if methodPattern != "*" && methodPattern != opMethod {
			return false
		}
	}

	if pattern.Path != "" {
		if !globMatch(pattern.Path, path) {
			return false
		}
	}

	// All specified fields matched
	return true
}

// globMatch performs glob pattern matching with * and ?
// * matches any sequence of characters except /
// ** matches any sequence of whole path segments
// ? matches any single character
func globMatch(pattern, str string) bool {
	if strings.Contains(pattern, "**") {
		parts := strings.Split(pattern, "**")
		if len(parts) == 2 {
			// Pattern like "/admin/**" or "**/admin"
			prefix := strings.TrimSuffix(parts[0], "/")
			suffix := strings.TrimPrefix(parts[1], "/")
			if prefix != "" && str != prefix && !strings.HasPrefix(str, prefix+"/") {
				return false
			}
			if suffix != "" && str != suffix && !strings.HasSuffix(str, "/"+suffix) {
				return false
			}
			return true
		}
	}

	matched, err := filepath.Match(pattern, str)
	if err != nil {
		return false
	}

	return matched
}
