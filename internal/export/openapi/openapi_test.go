package openapi

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/getkin/kin-openapi/openapi3"

	"raml-toolkit/internal/model"
	"raml-toolkit/internal/parsers/raml"
)

var siteRAML = filepath.Join("..", "..", "parsers", "raml", "testdata", "site", "site.raml")

func exportSite(t *testing.T, pipeline string) *openapi3.T {
	t.Helper()
	doc, err := raml.ParseFile(context.Background(), siteRAML)
	if err != nil {
		t.Fatalf("ParseFile failed: %v", err)
	}
	resolved, err := raml.Resolve(doc, pipeline)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	out, err := FromModel(resolved)
	if err != nil {
		t.Fatalf("FromModel failed: %v", err)
	}
	if err := out.Validate(context.Background()); err != nil {
		t.Fatalf("exported document is invalid: %v", err)
	}
	return out
}

func TestFromModel_Site(t *testing.T) {
	out := exportSite(t, raml.PipelineEditing)

	if out.Info.Title != "Shopper Site" || out.Info.Version != "v1" {
		t.Errorf("Info = %+v", out.Info)
	}
	if len(out.Servers) != 1 || out.Servers[0].Variables["version"].Default != "v1" {
		t.Errorf("Servers = %+v", out.Servers)
	}

	for _, path := range []string{"/product_search", "/product_search/{productId}", "/customers/{customerId}/password"} {
		if out.Paths[path] == nil {
			t.Errorf("missing path %s", path)
		}
	}

	search := out.Paths["/product_search"]
	if search.Get == nil || search.Post == nil {
		t.Fatalf("/product_search operations = %+v", search.Operations())
	}
	if search.Get.OperationID != "getProductSearch" {
		t.Errorf("OperationID = %q, want getProductSearch", search.Get.OperationID)
	}
	var names []string
	for _, p := range search.Get.Parameters {
		names = append(names, p.Value.Name)
	}
	if strings.Join(names, ",") != "q,offset,limit" {
		t.Errorf("parameters = %v, want q,offset,limit", names)
	}
	if search.Get.Responses["400"] == nil {
		t.Error("trait response 400 not exported")
	}
	body := search.Post.RequestBody.Value.Content["application/json"]
	if body == nil || body.Schema.Ref != "#/components/schemas/search_request" {
		t.Errorf("request body = %+v, want $ref to search_request", body)
	}

	item := out.Paths["/product_search/{productId}"].Get
	if len(item.Parameters) != 1 || item.Parameters[0].Value.In != openapi3.ParameterInPath {
		t.Errorf("item parameters = %+v", item.Parameters)
	}
}

func TestFromModel_Components(t *testing.T) {
	out := exportSite(t, raml.PipelineEditing)
	schemas := out.Components.Schemas

	for _, name := range []string{"ClassA", "ClassB", "search_request", "common.sort", "customer_product_list_item"} {
		if schemas[name] == nil {
			t.Errorf("missing component %s", name)
		}
	}

	classB := schemas["ClassB"].Value
	if classB.Type != openapi3.TypeObject || len(classB.Properties) != 3 {
		t.Errorf("ClassB = %+v, want object with inherited properties", classB)
	}
	if score := classB.Properties["score"].Value; score.Min == nil || *score.Min != 0 {
		t.Errorf("score minimum = %v, want 0", score.Min)
	}
	if got := strings.Join(classB.Required, ","); got != "id,score" {
		t.Errorf("ClassB required = %q, want id,score", got)
	}

	sorts := schemas["search_request"].Value.Properties["sorts"].Value
	if sorts.Type != openapi3.TypeArray || sorts.Items.Ref != "#/components/schemas/common.sort" {
		t.Errorf("sorts = %+v, want array of common.sort", sorts)
	}
	password := schemas["password_change_request"].Value.Properties["password"].Value
	if password.MinLength != 8 {
		t.Errorf("password minLength = %d, want 8", password.MinLength)
	}
}

func TestFromModel_DefaultPipelineInlines(t *testing.T) {
	out := exportSite(t, raml.PipelineDefault)
	if out.Components != nil && len(out.Components.Schemas) > 0 {
		t.Errorf("components = %d, want none", len(out.Components.Schemas))
	}
	body := out.Paths["/product_search"].Post.RequestBody.Value.Content["application/json"].Schema
	if body.Ref != "" || body.Value.Type != openapi3.TypeObject {
		t.Errorf("body = %+v, want inline object", body)
	}
}

func TestFromModel_NoAPI(t *testing.T) {
	if _, err := FromModel(model.NewDocument()); err == nil {
		t.Error("expected error for document without API")
	}
	if _, err := FromModel(nil); err == nil {
		t.Error("expected error for nil document")
	}
}

func TestFromModel_UniqueOperationIDs(t *testing.T) {
	api := &model.WebAPI{Name: "Orders", EndPoints: []*model.EndPoint{
		{Path: "/order-items", Operations: []*model.Operation{{Method: "get"}}},
		{Path: "/order_items", Operations: []*model.Operation{{Method: "get"}}},
	}}
	out, err := FromModel(model.NewDocument().WithEncodes(api))
	if err != nil {
		t.Fatalf("FromModel failed: %v", err)
	}
	if err := out.Validate(context.Background()); err != nil {
		t.Fatalf("exported document is invalid: %v", err)
	}
	if got := out.Paths["/order-items"].Get.OperationID; got != "getOrderItems" {
		t.Errorf("/order-items operationId = %q, want %q", got, "getOrderItems")
	}
	if got := out.Paths["/order_items"].Get.OperationID; got != "getOrderItems2" {
		t.Errorf("/order_items operationId = %q, want %q", got, "getOrderItems2")
	}
}

func TestMarshal(t *testing.T) {
	out := exportSite(t, raml.PipelineEditing)
	tests := []struct {
		format string
		want   string
	}{
		{"json", `"openapi": "3.0.3"`},
		{"yaml", "openapi: 3.0.3"},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			data, err := Marshal(out, tt.format)
			if err != nil {
				t.Fatalf("Marshal failed: %v", err)
			}
			if !strings.Contains(string(data), tt.want) {
				t.Errorf("output missing %q:\n%s", tt.want, data)
			}
		})
	}
	if _, err := Marshal(out, "xml"); err == nil {
		t.Error("expected error for unsupported format")
	}
}
