package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"
)

var (
	siteRAML    = filepath.Join("..", "..", "internal", "parsers", "raml", "testdata", "site", "site.raml")
	invalidRAML = filepath.Join("..", "..", "internal", "parsers", "raml", "testdata", "invalid", "search-invalid.raml")
)

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestParse_JSON(t *testing.T) {
	out, _, err := run(t, "parse", "--json", siteRAML)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	var got apiSummary
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if got.Name != "shopperSite" || got.Title != "Shopper Site" {
		t.Errorf("name = %q title = %q", got.Name, got.Title)
	}
	if len(got.EndPoints) != 3 {
		t.Errorf("len(EndPoints) = %d, want 3", len(got.EndPoints))
	}
	if len(got.DataTypes) != 9 {
		t.Errorf("len(DataTypes) = %d, want 9: %v", len(got.DataTypes), got.DataTypes)
	}
}

func TestParse_Text(t *testing.T) {
	out, _, err := run(t, "parse", siteRAML)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	for _, want := range []string{"Shopper Site (shopperSite)", "/product_search/{productId}", "password_change_request"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestValidate(t *testing.T) {
	out, _, err := run(t, "validate", siteRAML, invalidRAML)
	if err == nil || err.Error() != "1 of 2 files invalid" {
		t.Fatalf("error = %v, want 1 of 2 files invalid", err)
	}
	if !strings.Contains(out, "ok    "+siteRAML) {
		t.Errorf("output missing ok line:\n%s", out)
	}
	if !strings.Contains(out, "FAIL  "+invalidRAML) || !strings.Contains(out, "raml.invalid-example") {
		t.Errorf("output missing violations:\n%s", out)
	}
}

func TestOpenAPI_YAML(t *testing.T) {
	out, _, err := run(t, "openapi", "--format", "yaml", siteRAML)
	if err != nil {
		t.Fatalf("openapi failed: %v", err)
	}
	for _, want := range []string{"openapi: 3.0.3", "/product_search:", "ClassB:"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}
}

func TestOpenAPI_OutputFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "site.json")
	if _, _, err := run(t, "openapi", "-o", path, siteRAML); err != nil {
		t.Fatalf("openapi failed: %v", err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if doc["openapi"] != "3.0.3" {
		t.Errorf("openapi = %v, want 3.0.3", doc["openapi"])
	}
}

func TestGenerate_Config(t *testing.T) {
	dir := t.TempDir()
	out, _, err := run(t, "generate", "--config", filepath.Join("testdata", "toolkit.yaml"), "-o", dir)
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	for _, name := range []string{"client.ts", "index.ts", "shopperSite.ts", "shopperSite.openapi.yaml"} {
		path := filepath.Join(dir, "site", name)
		if _, err := os.Stat(path); err != nil {
			t.Errorf("%s not written: %v", name, err)
		}
		if !strings.Contains(out, path) {
			t.Errorf("output does not list %s", path)
		}
	}

	ts, err := os.ReadFile(filepath.Join(dir, "site", "shopperSite.ts"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(ts), "async getProductSearch(") {
		t.Error("getProductSearch missing")
	}
	if strings.Contains(string(ts), "putCustomersCustomerIdPassword") {
		t.Error("blocked operation was generated")
	}
}

func TestGenerate_Description(t *testing.T) {
	dir := t.TempDir()
	desc := filepath.Join("..", "..", "internal", "collection", "testdata", "description.yaml")
	if _, _, err := run(t, "generate", "--description", desc, "-o", dir); err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	for _, path := range []string{
		filepath.Join(dir, "shopper", "shopperSite.ts"),
		filepath.Join(dir, "shopper", "shopperCustomers.ts"),
		filepath.Join(dir, "customer", "shopperCustomers.ts"),
	} {
		if _, err := os.Stat(path); err != nil {
			t.Errorf("%s not written: %v", path, err)
		}
	}
}

func TestGenerate_NoAPIs(t *testing.T) {
	_, _, err := run(t, "generate")
	if err == nil || !strings.Contains(err.Error(), "no apis to generate") {
		t.Fatalf("error = %v, want no apis", err)
	}
}

func TestCheckConfig(t *testing.T) {
	if _, _, err := run(t, "check-config", filepath.Join("testdata", "toolkit.yaml")); err != nil {
		t.Errorf("check-config failed: %v", err)
	}

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(bad, []byte("pipeline: nope\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, _, err := run(t, "check-config", bad); err == nil {
		t.Error("check-config accepted a config without apis")
	}
}

func TestCheckConfig_RemoteToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer cfg-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte("apis:\n  site:\n    - https://example.com/site.raml\n"))
	}))
	defer server.Close()

	t.Setenv("RAML_TOOLKIT_CONFIG_TOKEN", "cfg-token")
	out, _, err := run(t, "check-config", server.URL+"/toolkit.yaml")
	if err != nil {
		t.Fatalf("check-config failed: %v", err)
	}
	if !strings.HasPrefix(out, "ok    ") {
		t.Errorf("output = %q", out)
	}
}
