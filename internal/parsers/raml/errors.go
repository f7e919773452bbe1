package raml

import (
	"fmt"
	"strings"
)

// Violation codes reported by the parser and resolver.
const (
	CodeSyntax                 = "syntax"
	CodeHeader                 = "header"
	CodeMissingTitle           = "missing-title"
	CodeUnresolvedType         = "unresolved-reference"
	CodeUnresolvedTrait        = "unresolved-trait"
	CodeUnresolvedResourceType = "unresolved-resource-type"
	CodeDuplicate              = "duplicate-declaration"
	CodeInvalidFacet           = "invalid-facet"
	CodeInvalidExample         = "invalid-example"
	CodeCyclicReference        = "cyclic-reference"
	CodeIncludeFailed          = "include-failed"
	CodeResolution             = "resolution"
	CodeResolutionPipeline     = "resolution-pipeline"
	CodeValidation             = "validation"
)

// Violation is a problem found in a RAML document. Its text has the form
// "raml.<code>: <message>".
type Violation struct {
	Kind     string
	Message  string
	Location string
	Line     int
}

func (v *Violation) Code() string { return "raml." + v.Kind }

func (v *Violation) Error() string {
	return v.Code() + ": " + v.detail()
}

func (v *Violation) detail() string {
	switch {
	case v.Location != "" && v.Line > 0:
		return fmt.Sprintf("%s (%s:%d)", v.Message, v.Location, v.Line)
	case v.Location != "":
		return fmt.Sprintf("%s (%s)", v.Message, v.Location)
	default:
		return v.Message
	}
}

func violationf(kind, location string, line int, format string, args ...any) *Violation {
	return &Violation{Kind: kind, Message: fmt.Sprintf(format, args...), Location: location, Line: line}
}

// Report aggregates every violation found while validating one document.
type Report struct {
	Location   string
	Violations []*Violation
}

func (r *Report) Code() string { return "raml." + CodeValidation }

func (r *Report) Error() string {
	parts := make([]string, 0, len(r.Violations))
	for _, v := range r.Violations {
		parts = append(parts, v.detail())
	}
	return r.Code() + ": " + strings.Join(parts, "; ")
}

// Unwrap exposes the individual violations to errors.Is / errors.As.
func (r *Report) Unwrap() []error {
	out := make([]error, 0, len(r.Violations))
	for _, v := range r.Violations {
		out = append(out, v)
	}
	return out
}
