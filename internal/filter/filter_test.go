package filter

import (
	"testing"

	"raml-toolkit/internal/config"
	"raml-toolkit/internal/model"
)

func TestGlobMatch(t *testing.T) {
	tests := []struct {
		pattern string
		str     string
		want    bool
	}{
		// operation id patterns
		{"getCustomer*", "getCustomersCustomerId", true},
		{"getCustomer*", "patchCustomersCustomerId", false},
		{"*Password", "putCustomersCustomerIdPassword", true},
		{"*", "anything", true},

		// Path patterns with **
		{"/customers/**", "/customers/{customerId}", true},
		{"/customers/**", "/customers/{customerId}/password", true},
		{"/admin/**", "/customers/admin", false},
		{"**/password", "/customers/{customerId}/password", true},
		{"/customers/**", "/customers_archive", false},
		{"/customers/**", "/customers", true},
		{"**/password", "/customers/{customerId}/reset_password", false},

		// Simple path patterns
		{"/product_search/*", "/product_search/{productId}", true},
		{"/product_search/*", "/product_search/{productId}/images", false},

		// Exact matches
		{"/product_search", "/product_search", true},
		{"/product_search", "/product_search/{productId}", false},
	}

	for _, tt := range tests {
		t.Run(tt.pattern+"_"+tt.str, func(t *testing.T) {
			got := globMatch(tt.pattern, tt.str)
			if got != tt.want {
				t.Errorf("globMatch(%q, %q) = %v, want %v", tt.pattern, tt.str, got, tt.want)
			}
		})
	}
}

func TestPatternMatches(t *testing.T) {
	op := &model.Operation{Method: "get"}
	path := "/customers/{customerId}"

	tests := []struct {
		name    string
		pattern config.OperationPattern
		want    bool
	}{
		{"matches operation_id", config.OperationPattern{OperationID: "getCustomers*"}, true},
		{"matches method case-insensitively", config.OperationPattern{Method: "GET"}, true},
		{"matches path", config.OperationPattern{Path: "/customers/*"}, true},
		{"matches combined (AND logic)", config.OperationPattern{Method: "GET", Path: "/customers/*"}, true},
		{"no match - wrong operation_id", config.OperationPattern{OperationID: "patch*"}, false},
		{"no match - wrong method", config.OperationPattern{Method: "POST"}, false},
		{"no match - combined fails", config.OperationPattern{Method: "POST", Path: "/customers/*"}, false},
		{"wildcard method matches", config.OperationPattern{Method: "*"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := patternMatches(path, op, "getCustomersCustomerId", tt.pattern)
			if got != tt.want {
				t.Errorf("patternMatches() = %v, want %v", got, tt.want)
			}
		})
	}
}

func testDocument() *model.Document {
	api := &model.WebAPI{Name: "Shopper Customers", EndPoints: []*model.EndPoint{
		{Path: "/customers", Operations: []*model.Operation{{Method: "post"}}},
		{Path: "/customers/{customerId}", Operations: []*model.Operation{{Method: "get"}, {Method: "patch"}, {Method: "delete"}}},
		{Path: "/customers/{customerId}/password", Operations: []*model.Operation{{Method: "put"}}},
	}}
	return model.NewDocument().WithEncodes(api)
}

func methods(doc *model.Document) map[string][]string {
	out := map[string][]string{}
	for _, ep := range doc.Encodes.EndPoints {
		for _, op := range ep.Operations {
			out[ep.Path] = append(out[ep.Path], op.Method)
		}
	}
	return out
}

func TestApply_Allowlist(t *testing.T) {
	doc := testDocument()
	removed := Apply(doc, &config.OperationFilter{
		Mode:       "allowlist",
		Operations: []config.OperationPattern{{Method: "GET"}, {OperationID: "put*"}},
	})

	if removed != 3 {
		t.Errorf("removed = %d, want 3", removed)
	}
	got := methods(doc)
	if len(doc.Encodes.EndPoints) != 2 {
		t.Fatalf("endpoints = %v, want 2", got)
	}
	if ms := got["/customers/{customerId}"]; len(ms) != 1 || ms[0] != "get" {
		t.Errorf("/customers/{customerId} = %v, want [get]", ms)
	}
	if ms := got["/customers/{customerId}/password"]; len(ms) != 1 {
		t.Errorf("/customers/{customerId}/password = %v, want [put]", ms)
	}
}

func TestApply_Blocklist(t *testing.T) {
	doc := testDocument()
	removed := Apply(doc, &config.OperationFilter{
		Mode:       "blocklist",
		Operations: []config.OperationPattern{{Method: "DELETE"}, {Path: "**/password"}},
	})

	if removed != 2 {
		t.Errorf("removed = %d, want 2", removed)
	}
	if got := methods(doc); len(got["/customers/{customerId}"]) != 2 || len(got) != 2 {
		t.Errorf("remaining = %v", got)
	}
}

func TestApply_NoFilter(t *testing.T) {
	doc := testDocument()
	if removed := Apply(doc, nil); removed != 0 {
		t.Errorf("removed = %d, want 0", removed)
	}
	if len(doc.Encodes.EndPoints) != 3 {
		t.Errorf("endpoints = %d, want 3", len(doc.Encodes.EndPoints))
	}
}

func TestApply_BlocklistSkipsSiblingPaths(t *testing.T) {
	api := &model.WebAPI{EndPoints: []*model.EndPoint{
		{Path: "/customers/{customerId}", Operations: []*model.Operation{{Method: "get"}}},
		{Path: "/customers_archive", Operations: []*model.Operation{{Method: "get"}}},
	}}
	doc := model.NewDocument().WithEncodes(api)

	removed := Apply(doc, &config.OperationFilter{
		Mode:       "blocklist",
		Operations: []config.OperationPattern{{Path: "/customers/**"}},
	})
	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}
	if got := methods(doc); len(got["/customers_archive"]) != 1 || len(got) != 1 {
		t.Errorf("remaining = %v, want only /customers_archive", got)
	}
}

func TestApply_DeduplicatedOperationIDs(t *testing.T) {
	api := &model.WebAPI{EndPoints: []*model.EndPoint{
		{Path: "/order-items", Operations: []*model.Operation{{Method: "get"}}},
		{Path: "/order_items", Operations: []*model.Operation{{Method: "get"}}},
	}}
	doc := model.NewDocument().WithEncodes(api)

	removed := Apply(doc, &config.OperationFilter{
		Mode:       "blocklist",
		Operations: []config.OperationPattern{{OperationID: "getOrderItems2"}},
	})
	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}
	if got := methods(doc); len(got["/order-items"]) != 1 || len(got) != 1 {
		t.Errorf("remaining = %v, want only /order-items", got)
	}
}
