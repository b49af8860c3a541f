package export

import (
	"errors"
	"fmt"
	"strings"
)

// Format identifies an export file format.
type Format string

// Supported formats.
const (
	FormatMarkdown Format = "markdown"
	FormatText     Format = "txt"
	FormatHTML     Format = "html"
	FormatXLSX     Format = "xlsx"
)

// ErrUnsupportedFormat is returned for formats this package cannot write.
var ErrUnsupportedFormat = errors.New("unsupported format")

// FormatInfo describes a supported format.
type FormatInfo struct {
	Format      Format `json:"format"`
	Extension   string `json:"extension"`
	Description string `json:"description"`
}

var formats = []FormatInfo{
	{Format: FormatMarkdown, Extension: "md", Description: "Markdown with optional YAML front matter"},
	{Format: FormatText, Extension: "txt", Description: "Plain text"},
	{Format: FormatHTML, Extension: "html", Description: "Standalone HTML document"},
	{Format: FormatXLSX, Extension: "xlsx", Description: "Excel workbook, one row per article"},
}

// SupportedFormats lists every format Export accepts.
func SupportedFormats() []FormatInfo {
	out := make([]FormatInfo, len(formats))
	copy(out, formats)
	return out
}

// ParseFormat normalizes s and checks that it is supported. "md" is
// accepted as an alias for markdown.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	if f == "md" {
		f = FormatMarkdown
	}
	if !f.IsValid() {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, s)
	}
	return f, nil
}

// IsValid reports whether f is a supported format.
func (f Format) IsValid() bool {
	for _, info := range formats {
		if info.Format == f {
			return true
		}
	}
	return false
}

// Extension returns the file extension for f, without the dot.
func (f Format) Extension() string {
	for _, info := range formats {
		if info.Format == f {
			return info.Extension
		}
	}
	return string(f)
}
