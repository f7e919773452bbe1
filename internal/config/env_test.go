package config

import "testing"

func TestExpandEnvStrict(t *testing.T) {
	t.Setenv("TEST_TOKEN", "abc123")
	t.Setenv("TEST_EMPTY", "")

	tests := []struct {
		input string
		want  string
	}{
		{"Bearer ${TEST_TOKEN}", "Bearer abc123"},
		{"no references", "no references"},
		{"${RAML_TOOLKIT_UNSET:-apis}/site.raml", "apis/site.raml"},
		{"${TEST_EMPTY:-fallback}", "fallback"},
		{"${TEST_TOKEN:-unused}", "abc123"},
		{"${RAML_TOOLKIT_UNSET:-}x", "x"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ExpandEnvStrict(tt.input)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ExpandEnvStrict(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestExpandEnvStrictMissing(t *testing.T) {
	_, err := ExpandEnvStrict("${MISSING_VAR}")
	if err == nil || err.Error() != "missing env var MISSING_VAR" {
		t.Fatalf("error = %v, want missing env var", err)
	}
}
