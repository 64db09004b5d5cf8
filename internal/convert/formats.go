// Package convert turns office documents into Markdown, through pandoc where
// available and in-process readers for spreadsheets and presentations.
package convert

import (
	"errors"
	"path/filepath"
	"strings"
)

// ErrUnsupported is returned for extensions outside the format table.
var ErrUnsupported = errors.New("unsupported format")

// Method selects the conversion path of a format.
type Method int

const (
	MethodPandoc Method = iota
	MethodPDF
	MethodSpreadsheet
	MethodPresentation
)

// Format is one row of the supported-format table.
type Format struct {
	Ext         string
	Description string
	Method      Method
}

var formats = []Format{
	{".docx", "Word Document", MethodPandoc},
	{".doc", "Word Document (old format)", MethodPandoc},
	{".pdf", "PDF Document", MethodPDF},
	{".xlsx", "Excel Spreadsheet", MethodSpreadsheet},
	{".xls", "Excel Spreadsheet (old format)", MethodSpreadsheet},
	{".pptx", "PowerPoint Presentation", MethodPresentation},
	{".ppt", "PowerPoint Presentation (old format)", MethodPresentation},
	{".odt", "OpenDocument Text", MethodPandoc},
	{".rtf", "Rich Text Format", MethodPandoc},
	{".html", "HTML Document", MethodPandoc},
	{".htm", "HTML Document", MethodPandoc},
}

// RequiredTools describes the external programs each path depends on.
var RequiredTools = []string{
	"pandoc (most formats)",
	"pdftotext (PDFs without pandoc) - poppler-utils",
	"spreadsheets and PowerPoint fallback are read in-process",
}

// Formats returns the supported formats in display order.
func Formats() []Format {
	out := make([]Format, len(formats))
	copy(out, formats)
	return out
}

// Extensions lists the supported extensions.
func Extensions() []string {
	exts := make([]string, 0, len(formats))
	for _, f := range formats {
		exts = append(exts, f.Ext)
	}
	return exts
}

// Lookup finds the format of path by its lower-cased extension.
func Lookup(path string) (Format, bool) {
	ext := strings.ToLower(filepath.Ext(path))
	for _, f := range formats {
		if f.Ext == ext {
			return f, true
		}
	}
	return Format{}, false
}

// Supported reports whether path has a convertible extension.
func Supported(path string) bool {
	_, ok := Lookup(path)
	return ok
}

// OutputPath returns the Markdown path for in. An explicit out is forced to
// the .md extension.
func OutputPath(in, out string) string {
	if out == "" {
		out = in
	}
	if filepath.Ext(out) == ".md" {
		return out
	}
	return strings.TrimSuffix(out, filepath.Ext(out)) + ".md"
}

func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
