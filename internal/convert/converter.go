package convert

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/adamavenir/skillkit/internal/shell"
	"github.com/adamavenir/skillkit/internal/ui"
)

var pandocHints = []string{
	"Linux:   sudo apt install pandoc",
	"macOS:   brew install pandoc",
	"Windows: https://pandoc.org/installing.html",
}

var pdftotextHints = []string{
	"Install: sudo apt install poppler-utils",
}

// Converter converts single files. The zero value is not usable; set Runner
// and UI.
type Converter struct {
	Runner         shell.Runner
	UI             *ui.Printer
	Log            *zap.Logger
	Overwrite      bool
	ExtractImages  bool
	DeleteOriginal bool

	pandoc *bool
}

// Result describes one converted or skipped file.
type Result struct {
	Output  string
	Skipped bool
}

func (c *Converter) log() *zap.Logger {
	if c.Log == nil {
		return zap.NewNop()
	}
	return c.Log
}

func (c *Converter) pandocAvailable() bool {
	if c.pandoc == nil {
		ok := shell.Available(c.Runner, "pandoc")
		c.pandoc = &ok
		c.log().Debug("pandoc lookup", zap.Bool("available", ok))
	}
	return *c.pandoc
}

// ConvertFile converts in to Markdown at out, or next to in when out is
// empty. An existing output is left alone unless Overwrite is set.
func (c *Converter) ConvertFile(ctx context.Context, in, out string) (Result, error) {
	info, err := os.Stat(in)
	if err != nil {
		return Result{}, fmt.Errorf("file not found: %s", in)
	}
	if info.IsDir() {
		return Result{}, fmt.Errorf("%s is a directory", in)
	}

	format, ok := Lookup(in)
	if !ok {
		return Result{}, fmt.Errorf("%w: %s (%s); supported: %s",
			ErrUnsupported, filepath.Ext(in), filepath.Base(in), strings.Join(Extensions(), ", "))
	}

	out = OutputPath(in, out)
	result := Result{Output: out}
	if _, err := os.Stat(out); err == nil && !c.Overwrite {
		c.UI.Info("Skipping (already exists): %s", filepath.Base(out))
		result.Skipped = true
		return result, nil
	}
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return result, err
	}

	c.UI.Info("Converting: %s → %s", filepath.Base(in), filepath.Base(out))
	switch format.Method {
	case MethodPandoc:
		err = c.convertWithPandoc(ctx, in, out)
	case MethodPDF:
		err = c.convertPDF(ctx, in, out)
	case MethodSpreadsheet:
		err = convertSpreadsheet(in, out)
	case MethodPresentation:
		err = c.convertPresentation(ctx, in, out)
	}
	if err != nil {
		return result, err
	}
	c.UI.Success("Converted: %s", filepath.Base(out))

	if c.DeleteOriginal {
		if err := os.Remove(in); err != nil {
			return result, fmt.Errorf("converted but could not delete original: %w", err)
		}
		c.UI.Info("Deleted original: %s", filepath.Base(in))
	}
	return result, nil
}

// PandocArgs builds the pandoc command line for one conversion.
func PandocArgs(in, out string, extractImages bool) []string {
	args := []string{in, "-t", "markdown", "-o", out}
	if extractImages {
		args = append(args, "--extract-media", filepath.Join(filepath.Dir(out), "images"))
	}
	return append(args, "--wrap=none", "--markdown-headings=atx")
}

func (c *Converter) convertWithPandoc(ctx context.Context, in, out string) error {
	if !c.pandocAvailable() {
		return &shell.MissingToolError{Tool: "pandoc", Hints: pandocHints}
	}
	if c.ExtractImages {
		if err := os.MkdirAll(filepath.Join(filepath.Dir(out), "images"), 0o755); err != nil {
			return err
		}
	}
	if _, err := c.Runner.Run(ctx, "", "pandoc", PandocArgs(in, out, c.ExtractImages)...); err != nil {
		return fmt.Errorf("conversion failed: %w", err)
	}
	return nil
}

func (c *Converter) convertPDF(ctx context.Context, in, out string) error {
	if c.pandocAvailable() {
		c.UI.Info("Using pandoc for PDF conversion...")
		return c.convertWithPandoc(ctx, in, out)
	}

	c.UI.Warn("Pandoc not available, trying pdftotext...")
	if !shell.Available(c.Runner, "pdftotext") {
		return &shell.MissingToolError{Tool: "pdftotext", Hints: append([]string{"Neither pandoc nor pdftotext available"}, pdftotextHints...)}
	}
	res, err := c.Runner.Run(ctx, "", "pdftotext", in, "-")
	if err != nil {
		return fmt.Errorf("pdf extraction failed: %w", err)
	}

	var b strings.Builder
	writePreamble(&b, stem(in), "PDF - formatting may be limited")
	b.Write(res.Stdout)
	return os.WriteFile(out, []byte(b.String()), 0o644)
}

func (c *Converter) convertPresentation(ctx context.Context, in, out string) error {
	if c.pandocAvailable() {
		return c.convertWithPandoc(ctx, in, out)
	}
	c.log().Debug("pandoc missing, reading presentation in-process", zap.String("file", in))
	slides, err := ReadPresentation(in)
	if err != nil {
		return fmt.Errorf("presentation conversion failed: %w", err)
	}
	return os.WriteFile(out, []byte(RenderPresentation(stem(in), slides)), 0o644)
}

func convertSpreadsheet(in, out string) error {
	sheets, err := ReadWorkbook(in)
	if err != nil {
		return fmt.Errorf("spreadsheet conversion failed: %w", err)
	}
	return os.WriteFile(out, []byte(RenderWorkbook(stem(in), sheets)), 0o644)
}

func writePreamble(b *strings.Builder, title, source string) {
	fmt.Fprintf(b, "# %s\n\n", title)
	fmt.Fprintf(b, "*Converted from %s*\n\n", source)
	b.WriteString("---\n\n")
}

// Hints returns install hints carried by err, if any.
func Hints(err error) []string {
	var missing *shell.MissingToolError
	if errors.As(err, &missing) {
		return missing.Hints
	}
	return nil
}
