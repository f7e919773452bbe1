package apiparser

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"raml-toolkit/internal/model"
	"raml-toolkit/internal/parsers/raml"
)

var (
	validRamlFile   = filepath.Join("testdata", "site", "site.raml")
	invalidRamlFile = filepath.Join("testdata", "invalid", "search-invalid.raml")
)

type fakeBackend struct {
	err error
}

func (f fakeBackend) ParseFile(context.Context, string) (*model.Document, error) {
	return nil, f.err
}

func (f fakeBackend) Resolve(*model.Document, string) (*model.Document, error) {
	return nil, f.err
}

type fakeLibraryError struct{}

func (*fakeLibraryError) Code() string { return "raml.fake.error" }

func (*fakeLibraryError) Error() string {
	return "raml.fake.error: AMF doesn't like real Errors."
}

func TestParseRamlFile_Invalid(t *testing.T) {
	_, err := ParseRamlFile(context.Background(), invalidRamlFile)
	if err == nil {
		t.Fatal("expected error for invalid RAML file")
	}
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %T, want *Error", err)
	}
	var report *raml.Report
	if !errors.As(apiErr.LibraryError, &report) {
		t.Errorf("LibraryError = %T, want *raml.Report", apiErr.LibraryError)
	}
}

func TestParseRamlFile_Valid(t *testing.T) {
	doc, err := ParseRamlFile(context.Background(), validRamlFile)
	if err != nil {
		t.Fatalf("ParseRamlFile failed: %v", err)
	}
	if doc == nil || doc.Encodes == nil || len(doc.Declares) == 0 {
		t.Fatalf("document is empty: %+v", doc)
	}
}

func TestParseRamlFile_RethrowsLibraryErrors(t *testing.T) {
	fake := &fakeLibraryError{}
	p := New(fakeBackend{err: fake}, nil)

	_, err := p.ParseRamlFile(context.Background(), invalidRamlFile)
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %T, want *Error", err)
	}
	if apiErr.Error() != "AMF doesn't like real Errors." {
		t.Errorf("Error() = %q, want %q", apiErr.Error(), "AMF doesn't like real Errors.")
	}
	if apiErr.LibraryError != fake {
		t.Errorf("LibraryError = %v, want the fake library error", apiErr.LibraryError)
	}
}

func TestParseRamlFile_RegularErrorsUnmodified(t *testing.T) {
	fake := errors.New("Beam me up, Scotty!")
	p := New(fakeBackend{err: fake}, nil)

	_, err := p.ParseRamlFile(context.Background(), invalidRamlFile)
	if err != fake {
		t.Errorf("error = %v, want the original error", err)
	}
}

func TestGetAllDataTypes(t *testing.T) {
	want := []string{
		"product_search_result",
		"ClassA",
		"customer_product_list_item",
		"query",
		"ClassB",
		"search_request",
		"password_change_request",
		"result_page",
		"sort",
	}

	check := func(t *testing.T, doc *model.Document) {
		t.Helper()
		got := GetAllDataTypes(doc)
		if len(got) != len(want) {
			names := make([]string, 0, len(got))
			for _, s := range got {
				names = append(names, s.Name)
			}
			t.Fatalf("data types = %v, want %v", names, want)
		}
		for i := range want {
			if got[i].Name != want[i] {
				t.Errorf("data types[%d] = %q, want %q", i, got[i].Name, want[i])
			}
		}
	}

	t.Run("valid RAML file", func(t *testing.T) {
		doc, err := ParseRamlFile(context.Background(), validRamlFile)
		if err != nil {
			t.Fatalf("ParseRamlFile failed: %v", err)
		}
		check(t, doc)
	})

	t.Run("valid RAML file with references", func(t *testing.T) {
		ref, err := ParseRamlFile(context.Background(), validRamlFile)
		if err != nil {
			t.Fatalf("ParseRamlFile failed: %v", err)
		}
		main, err := ParseRamlFile(context.Background(), validRamlFile)
		if err != nil {
			t.Fatalf("ParseRamlFile failed: %v", err)
		}
		main.WithReferences(ref)
		check(t, main)
	})
}

func TestGetApiName(t *testing.T) {
	const want = "shopperCustomers"
	tests := []struct {
		name  string
		input string
	}{
		{"space", "Shopper Customers"},
		{"dash", "Shopper-Customers"},
		{"underscore", "Shopper_Customers"},
		{"dot", "shopper.customers"},
		{"all lowercase", "shopper customers"},
		{"camelCase", "shopperCustomers"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := model.NewDocument().WithEncodes(new(model.WebAPI).WithName(tt.input))
			got, err := GetApiName(doc)
			if err != nil {
				t.Fatalf("GetApiName(%q) failed: %v", tt.input, err)
			}
			if got != want {
				t.Errorf("GetApiName(%q) = %q, want %q", tt.input, got, want)
			}
		})
	}
}

func TestGetApiName_Invalid(t *testing.T) {
	tests := []struct {
		name string
		doc  *model.Document
	}{
		{"empty name", model.NewDocument().WithEncodes(new(model.WebAPI).WithName(""))},
		{"no encoded api", model.NewDocument()},
		{"nil document", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := GetApiName(tt.doc)
			if err == nil || err.Error() != "Invalid name provided to normalize" {
				t.Errorf("error = %v, want %q", err, "Invalid name provided to normalize")
			}
		})
	}
}

func TestResolveApiModel(t *testing.T) {
	t.Run("nil model", func(t *testing.T) {
		_, err := ResolveApiModel(nil, raml.PipelineEditing)
		if err == nil || err.Error() != "Invalid API model provided to resolve" {
			t.Errorf("error = %v", err)
		}
	})

	t.Run("empty pipeline", func(t *testing.T) {
		_, err := ResolveApiModel(model.NewDocument(), "")
		if err == nil || err.Error() != "Invalid resolution pipeline provided to resolve" {
			t.Errorf("error = %v", err)
		}
	})

	t.Run("unknown pipeline", func(t *testing.T) {
		_, err := ResolveApiModel(model.NewDocument(), "bogus")
		var apiErr *Error
		if !errors.As(err, &apiErr) {
			t.Fatalf("error = %T, want *Error", err)
		}
		var v *raml.Violation
		if !errors.As(err, &v) || v.Kind != raml.CodeResolutionPipeline {
			t.Errorf("LibraryError = %v, want resolution-pipeline violation", apiErr.LibraryError)
		}
	})

	t.Run("valid model and pipeline", func(t *testing.T) {
		doc, err := ParseRamlFile(context.Background(), validRamlFile)
		if err != nil {
			t.Fatalf("ParseRamlFile failed: %v", err)
		}
		resolved, err := ResolveApiModel(doc, raml.PipelineEditing)
		if err != nil {
			t.Fatalf("ResolveApiModel failed: %v", err)
		}
		if resolved == nil || resolved == doc {
			t.Errorf("resolved = %p, want a new document", resolved)
		}
	})
}
