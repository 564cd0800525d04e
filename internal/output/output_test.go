package output

import (
	"bytes"
	"strings"
	"testing"
)

func TestWriteTo(t *testing.T) {
	data := map[string]any{"answer": 42}

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		if err := WriteTo(&buf, FormatJSON, data); err != nil {
			t.Fatalf("WriteTo: %v", err)
		}
		if !strings.Contains(buf.String(), `"answer": 42`) {
			t.Errorf("output = %q", buf.String())
		}
	})

	t.Run("yaml", func(t *testing.T) {
		var buf bytes.Buffer
		if err := WriteTo(&buf, FormatYAML, data); err != nil {
			t.Fatalf("WriteTo: %v", err)
		}
		if !strings.Contains(buf.String(), "answer: 42") {
			t.Errorf("output = %q", buf.String())
		}
	})

	t.Run("unknown", func(t *testing.T) {
		var buf bytes.Buffer
		if err := WriteTo(&buf, Format("xml"), data); err == nil {
			t.Error("expected error for unknown format")
		}
	})
}

func TestSetFormat(t *testing.T) {
	t.Cleanup(func() { SetFormat("json") })

	SetFormat("yaml")
	if GetFormat() != FormatYAML {
		t.Errorf("format = %q", GetFormat())
	}
	SetFormat("csv")
	if GetFormat() != FormatJSON {
		t.Errorf("unknown format should fall back to json, got %q", GetFormat())
	}
}
