// Package prompts holds the embedded prompt templates. Embedded .tmpl
// files in code are the source of truth; callers render them by key.
package prompts

import (
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"sync"
	"text/template"
)

//go:embed templates/*.tmpl templates/default_schema.json
var templateFS embed.FS

// Prompt keys, one per embedded template.
const (
	KeyExtract           = "extract"
	KeyDefault           = "default"
	KeyChat              = "chat"
	KeySummary           = "summary"
	KeyNER               = "ner"
	KeyVideo             = "video"
	KeySchemaGen         = "schema_gen"
	KeySchemaGenRephrase = "schema_gen_rephrase"
	KeySynthesizeSystem  = "synthesize_system"
	KeySynthesizeUser    = "synthesize_user"
	KeyWindowUser        = "window_user"
	KeyRetryJSON         = "retry_json"
)

// Store parses and renders the embedded prompt templates.
type Store struct {
	templates map[string]*template.Template
	raw       map[string]string
}

var (
	defaultStore *Store
	loadOnce     sync.Once
	loadErr      error
)

// Default returns the process-wide store of embedded prompts.
func Default() (*Store, error) {
	loadOnce.Do(func() {
		defaultStore, loadErr = NewStore()
	})
	return defaultStore, loadErr
}

// NewStore parses all embedded templates.
func NewStore() (*Store, error) {
	s := &Store{
		templates: make(map[string]*template.Template),
		raw:       make(map[string]string),
	}
	entries, err := fs.Glob(templateFS, "templates/*.tmpl")
	if err != nil {
		return nil, err
	}
	for _, path := range entries {
		data, err := templateFS.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading embedded prompt %s: %w", path, err)
		}
		key := strings.TrimSuffix(strings.TrimPrefix(path, "templates/"), ".tmpl")
		tmpl, err := template.New(key).Parse(string(data))
		if err != nil {
			return nil, fmt.Errorf("parsing prompt %s: %w", key, err)
		}
		s.templates[key] = tmpl
		s.raw[key] = string(data)
	}
	return s, nil
}

// Render executes the named template with data.
func (s *Store) Render(key string, data any) (string, error) {
	tmpl, ok := s.templates[key]
	if !ok {
		return "", fmt.Errorf("unknown prompt key %q (have %v)", key, s.Keys())
	}
	var b strings.Builder
	if err := tmpl.Execute(&b, data); err != nil {
		return "", fmt.Errorf("rendering prompt %s: %w", key, err)
	}
	return strings.TrimSpace(b.String()), nil
}

// Raw returns the unrendered template text for a key.
func (s *Store) Raw(key string) (string, bool) {
	text, ok := s.raw[key]
	return text, ok
}

// Hash returns the SHA256 hash of the raw template text.
func (s *Store) Hash(key string) string {
	text, ok := s.raw[key]
	if !ok {
		return ""
	}
	return HashText(text)
}

// Variables returns the variable names referenced by the template.
func (s *Store) Variables(key string) []string {
	text, ok := s.raw[key]
	if !ok {
		return nil
	}
	return ExtractVariables(text)
}

// Keys returns all prompt keys, sorted.
func (s *Store) Keys() []string {
	keys := make([]string, 0, len(s.templates))
	for k := range s.templates {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// DefaultSchema returns the embedded page-content schema used when the
// caller supplies no output schema.
func DefaultSchema() string {
	data, err := templateFS.ReadFile("templates/default_schema.json")
	if err != nil {
		// The file is embedded at build time; absence is a programmer error.
		panic(err)
	}
	return string(data)
}
