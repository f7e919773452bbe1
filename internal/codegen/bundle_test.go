package codegen

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dop251/goja"
	"github.com/goccy/go-json"

	"raml-toolkit/internal/collection"
	"raml-toolkit/internal/logging"
	"raml-toolkit/internal/parsers/raml"
)

type fetchCall struct {
	url    string
	method string
}

// newSDKRuntime loads the bundled SDK into a fresh goja VM whose fetch
// records each call and answers with status and body.
func newSDKRuntime(t *testing.T, js []byte, status int, body string) (*goja.Runtime, *[]fetchCall) {
	t.Helper()
	vm := goja.New()
	var calls []fetchCall
	vm.Set("fetch", func(call goja.FunctionCall) goja.Value {
		fc := fetchCall{url: call.Argument(0).String(), method: "GET"}
		if opts, ok := call.Argument(1).Export().(map[string]any); ok {
			if m, ok := opts["method"].(string); ok {
				fc.method = m
			}
		}
		calls = append(calls, fc)

		resp := vm.NewObject()
		resp.Set("ok", status >= 200 && status < 300)
		resp.Set("status", status)
		resp.Set("statusText", "stub")
		resp.Set("json", func(goja.FunctionCall) goja.Value {
			var v any
			if err := json.Unmarshal([]byte(body), &v); err != nil {
				panic(vm.NewGoError(err))
			}
			return vm.ToValue(v)
		})
		return resp
	})
	if _, err := vm.RunString(string(js)); err != nil {
		t.Fatalf("load bundle: %v", err)
	}
	return vm, &calls
}

func settle(t *testing.T, vm *goja.Runtime, script string) *goja.Promise {
	t.Helper()
	v, err := vm.RunString(script)
	if err != nil {
		t.Fatalf("run %q: %v", script, err)
	}
	p, ok := v.Export().(*goja.Promise)
	if !ok {
		t.Fatalf("%q returned %T, want a promise", script, v.Export())
	}
	return p
}

func bundleSite(t *testing.T) []byte {
	t.Helper()
	c := collection.ApiCollection{
		"shopper": {Name: "shopper", Apis: []*collection.ApiModel{readSite(t, raml.PipelineCompatibility)}},
	}
	dir := t.TempDir()
	if _, err := WriteCollection(c, dir, logging.Discard()); err != nil {
		t.Fatalf("WriteCollection failed: %v", err)
	}
	js, err := os.ReadFile(filepath.Join(dir, "shopper", "index.js"))
	if err != nil {
		t.Fatalf("read bundle: %v", err)
	}
	return js
}

func TestBundle_RunsGeneratedClient(t *testing.T) {
	js := bundleSite(t)

	tests := []struct {
		name       string
		script     string
		wantMethod string
		wantURL    string
	}{
		{
			name:       "uri parameters are encoded",
			script:     `new sdk.shopperSite.ShopperSite().getProductSearchProductId({ uriParameters: { productId: 'p 1' } })`,
			wantMethod: "GET",
			wantURL:    "https://api.example.com/site/v1/product_search/p%201",
		},
		{
			name:       "query parameters skip undefined",
			script:     `new sdk.shopperSite.ShopperSite({ baseUri: 'http://localhost:8080/' }).getProductSearch({ queryParameters: { q: 'red shoes', offset: undefined, limit: 5 } })`,
			wantMethod: "GET",
			wantURL:    "http://localhost:8080/product_search?q=red%20shoes&limit=5",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vm, calls := newSDKRuntime(t, js, 200, `{"id": "p1", "score": 3}`)
			p := settle(t, vm, tt.script)
			if p.State() != goja.PromiseStateFulfilled {
				t.Fatalf("promise state = %v, result %v", p.State(), p.Result())
			}
			if len(*calls) != 1 {
				t.Fatalf("fetch calls = %d, want 1", len(*calls))
			}
			got := (*calls)[0]
			if got.method != tt.wantMethod {
				t.Errorf("method = %q, want %q", got.method, tt.wantMethod)
			}
			if got.url != tt.wantURL {
				t.Errorf("url = %q, want %q", got.url, tt.wantURL)
			}
			result, _ := p.Result().Export().(map[string]any)
			if result["id"] != "p1" {
				t.Errorf("result = %v, want id p1", result)
			}
		})
	}
}

func TestBundle_RejectsFailedResponse(t *testing.T) {
	vm, _ := newSDKRuntime(t, bundleSite(t), 404, `{}`)
	p := settle(t, vm, `new sdk.shopperSite.ShopperSite().getProductSearchProductId({ uriParameters: { productId: 'x' } })`)
	if p.State() != goja.PromiseStateRejected {
		t.Fatalf("promise state = %v, want rejected", p.State())
	}
	if msg := p.Result().String(); !strings.Contains(msg, "GET /product_search/x failed: 404") {
		t.Errorf("rejection = %q", msg)
	}
}

func TestBundle_ReportsCompileErrors(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"index.ts":  "export * from './broken';\n",
		"broken.ts": "export const x = ;\n",
	}
	if _, err := WriteFiles(dir, files); err != nil {
		t.Fatalf("WriteFiles failed: %v", err)
	}
	_, err := Bundle(dir)
	if err == nil {
		t.Fatal("expected build error")
	}
	if !strings.Contains(err.Error(), "broken.ts") {
		t.Errorf("error = %v, want the failing file named", err)
	}
}
