// Package output renders command results for the CLI in the format the
// user asked for.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Format is a CLI output format.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// globalFormat is set by the root command's --output flag.
var globalFormat = FormatJSON

// SetFormat sets the global output format. Unknown values fall back to
// JSON, which is what most results are anyway.
func SetFormat(format string) {
	switch Format(format) {
	case FormatYAML:
		globalFormat = FormatYAML
	default:
		globalFormat = FormatJSON
	}
}

// GetFormat returns the current global output format.
func GetFormat() Format {
	return globalFormat
}

// Print writes data to stdout in the configured format.
func Print(data any) error {
	return WriteTo(os.Stdout, globalFormat, data)
}

// WriteTo writes data to the given writer in the specified format.
func WriteTo(w io.Writer, format Format, data any) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(data)
	default:
		return fmt.Errorf("unknown output format: %s", format)
	}
}

// PrintRaw writes pre-encoded JSON to stdout, re-indenting it for the
// configured format instead of double-encoding it as a string.
func PrintRaw(raw json.RawMessage) error {
	var data any
	if err := json.Unmarshal(raw, &data); err != nil {
		// Not JSON after all; print as-is.
		_, werr := fmt.Println(string(raw))
		return werr
	}
	return Print(data)
}
