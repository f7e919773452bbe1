package model

import "testing"

func TestDeclaredFollowsLibraryNamespace(t *testing.T) {
	lib := &Document{Kind: KindLibrary, Declares: []*Shape{{Name: "Address", Type: "object"}}}
	doc := NewDocument()
	doc.Declares = []*Shape{{Name: "Customer", Type: "object"}}
	doc.Uses["common"] = lib

	if got := doc.Declared("Customer"); got == nil || got.Name != "Customer" {
		t.Fatalf("Declared(Customer) = %v", got)
	}
	if got := doc.Declared("common.Address"); got == nil || got.Name != "Address" {
		t.Fatalf("Declared(common.Address) = %v", got)
	}
	if got := doc.Declared("missing.Address"); got != nil {
		t.Fatalf("Declared(missing.Address) = %v, want nil", got)
	}
}

func TestCloneKeepsLinksInsideCopy(t *testing.T) {
	base := &Shape{ID: "a#/declares/Base", Name: "Base", Type: "object"}
	child := &Shape{ID: "a#/declares/Child", Name: "Child", Type: "Base", Link: base}
	doc := NewDocument()
	doc.Declares = []*Shape{base, child}
	doc.WithEncodes((&WebAPI{}).WithName("Shop"))

	cp := doc.Clone()
	if cp.Declares[0] == base {
		t.Fatal("clone shares declared shape with source")
	}
	if cp.Declares[1].Link != cp.Declares[0] {
		t.Fatal("clone link does not point at cloned declaration")
	}
	cp.Encodes.Name = "Other"
	if doc.Encodes.Name != "Shop" {
		t.Fatalf("source API renamed to %q", doc.Encodes.Name)
	}
}

func TestWithReferencesSkipsNil(t *testing.T) {
	doc := NewDocument().WithReferences(nil, NewDocument())
	if len(doc.References) != 1 {
		t.Fatalf("len(References) = %d, want 1", len(doc.References))
	}
}

func TestWithReferencesReplaces(t *testing.T) {
	first, second := NewDocument(), NewDocument()
	doc := NewDocument().WithReferences(first).WithReferences(second)
	if len(doc.References) != 1 || doc.References[0] != second {
		t.Fatalf("References = %v, want only the second document", doc.References)
	}
}

func TestResourceTypeFollowsLibraryNamespace(t *testing.T) {
	lib := &Document{Kind: KindLibrary, ResourceTypes: []*ResourceType{{Name: "collection"}}}
	doc := NewDocument()
	doc.ResourceTypes = []*ResourceType{{Name: "item"}}
	doc.Uses["common"] = lib

	if got := doc.ResourceType("item"); got == nil || got.Name != "item" {
		t.Errorf("ResourceType(item) = %v", got)
	}
	if got := doc.ResourceType("common.collection"); got == nil || got.Name != "collection" {
		t.Errorf("ResourceType(common.collection) = %v", got)
	}
	if got := doc.ResourceType("collection"); got != nil {
		t.Errorf("ResourceType(collection) = %v, want nil", got)
	}
}

func TestOperationClone(t *testing.T) {
	item := &Shape{Name: "item", Type: "<<item>>", Inherits: []string{"<<item>>"}}
	op := &Operation{
		Method:          "get",
		Is:              []string{"paged"},
		QueryParameters: []*Property{{Name: "q", Shape: &Shape{Type: "string"}}},
		Responses:       []*Response{{StatusCode: "200", Body: []*Payload{{MediaType: "application/json", Schema: item}}}},
	}

	cp := op.Clone()
	cp.Is[0] = "other"
	cp.QueryParameters[0].Name = "other"
	cp.Responses[0].Body[0].Schema.Inherits[0] = "Customer"

	if op.Is[0] != "paged" || op.QueryParameters[0].Name != "q" {
		t.Errorf("source operation modified: %+v", op)
	}
	if item.Inherits[0] != "<<item>>" {
		t.Errorf("source shape modified: %v", item.Inherits)
	}
}

func TestResolvedStopsOnCycle(t *testing.T) {
	a := &Shape{Name: "A"}
	b := &Shape{Name: "B", Link: a}
	a.Link = b
	if got := a.Resolved(); got == nil {
		t.Fatal("Resolved returned nil on cycle")
	}
}
