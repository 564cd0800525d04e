package prompts

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"
)

func TestStoreLoadsAllKeys(t *testing.T) {
	s, err := NewStore()
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	want := []string{
		KeyChat, KeyDefault, KeyExtract, KeyNER, KeyRetryJSON,
		KeySchemaGen, KeySchemaGenRephrase, KeySummary,
		KeySynthesizeSystem, KeySynthesizeUser, KeyVideo, KeyWindowUser,
	}
	got := s.Keys()
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Keys() = %v, want %v", got, want)
	}
}

func TestRenderExtract(t *testing.T) {
	s, err := NewStore()
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	out, err := s.Render(KeyExtract, map[string]any{
		"Date":   "2026-08-31",
		"Schema": `{"type":"object"}`,
	})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	for _, want := range []string{"2026-08-31", `{"type":"object"}`, "triple backticks"} {
		if !strings.Contains(out, want) {
			t.Errorf("rendered prompt missing %q", want)
		}
	}
}

func TestRenderWindowUser(t *testing.T) {
	s, _ := NewStore()
	out, err := s.Render(KeyWindowUser, map[string]any{
		"Start": 19, "End": 38, "TotalPages": 45,
		"HasPrevious": true, "HasNext": true,
		"Question": "List the section headings.",
	})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	for _, want := range []string{"pages 19 through 38", "45-page", "Earlier pages exist", "Later pages exist", "List the section headings."} {
		if !strings.Contains(out, want) {
			t.Errorf("rendered prompt missing %q:\n%s", want, out)
		}
	}

	out, err = s.Render(KeyWindowUser, map[string]any{
		"Start": 1, "End": 20, "TotalPages": 45,
		"HasPrevious": false, "HasNext": true,
		"Question": "q",
	})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if strings.Contains(out, "Earlier pages exist") {
		t.Error("first window should not mention earlier pages")
	}
}

func TestRenderSynthesizeSystemOptionalSchema(t *testing.T) {
	s, _ := NewStore()
	withSchema, err := s.Render(KeySynthesizeSystem, map[string]any{"Schema": `{"type":"object"}`})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(withSchema, "JSON schema") {
		t.Error("schema variant should instruct JSON output")
	}
	without, err := s.Render(KeySynthesizeSystem, map[string]any{"Schema": ""})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if strings.Contains(without, "JSON schema:") {
		t.Error("schemaless variant should not embed a schema block")
	}
}

func TestRenderUnknownKey(t *testing.T) {
	s, _ := NewStore()
	if _, err := s.Render("nope", nil); err == nil {
		t.Error("unknown key should error")
	}
}

func TestHashStable(t *testing.T) {
	s, _ := NewStore()
	h1 := s.Hash(KeyExtract)
	h2 := s.Hash(KeyExtract)
	if h1 == "" || h1 != h2 {
		t.Errorf("Hash unstable: %q vs %q", h1, h2)
	}
	if s.Hash(KeyExtract) == s.Hash(KeyChat) {
		t.Error("different templates should hash differently")
	}
}

func TestVariables(t *testing.T) {
	s, _ := NewStore()
	got := s.Variables(KeyExtract)
	want := []string{"Date", "Schema"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Variables(extract) = %v, want %v", got, want)
	}
}

func TestExtractVariables(t *testing.T) {
	got := ExtractVariables("Hello {{.Name}}, window {{ .Window.Start }} to {{.Window.End}}, again {{.Name}}")
	want := []string{"Name", "Window.End", "Window.Start"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ExtractVariables = %v, want %v", got, want)
	}
}

func TestDefaultSchemaIsValidJSON(t *testing.T) {
	if !json.Valid([]byte(DefaultSchema())) {
		t.Error("embedded default schema is not valid JSON")
	}
}
