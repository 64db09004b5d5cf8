package command

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/adamavenir/skillkit/internal/shell/shelltest"
)

func TestConvertSupportedFormats(t *testing.T) {
	output, err := executeCommand(NewConvertCmd("test"), "--supported-formats")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	for _, want := range []string{"Supported document formats:", "  .docx    - Word Document", "  .pptx    - PowerPoint Presentation", "Required tools:", "  - pandoc (most formats)"} {
		if !strings.Contains(output, want) {
			t.Fatalf("expected %q in output:\n%s", want, output)
		}
	}
}

func TestConvertRequiresInput(t *testing.T) {
	output, err := executeCommand(NewConvertCmd("test"))
	if err == nil || !strings.Contains(output, "Error: one of --file or --folder is required") {
		t.Fatalf("expected missing input error, got %v / %q", err, output)
	}
}

func TestConvertFileAndFolderAreExclusive(t *testing.T) {
	_, err := executeCommand(NewConvertCmd("test"), "--file", "a.docx", "--folder", "docs")
	if err == nil || !strings.Contains(err.Error(), "none of the others can be") {
		t.Fatalf("expected mutual exclusion error, got %v", err)
	}
}

func TestConvertWatchRequiresFolder(t *testing.T) {
	output, err := executeCommand(NewConvertCmd("test"), "--file", "a.docx", "--watch")
	if err == nil || !strings.Contains(output, "--watch requires --folder") {
		t.Fatalf("expected watch error, got %v / %q", err, output)
	}
}

func TestConvertSingleFileUnsupported(t *testing.T) {
	useRunner(t, shelltest.New())
	path := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	output, err := executeCommand(NewConvertCmd("test"), "--file", path)
	if err == nil || !strings.Contains(output, "Error: unsupported format: .txt") {
		t.Fatalf("expected unsupported error, got %v / %q", err, output)
	}
}

func TestConvertFolderReportsFailures(t *testing.T) {
	dir := t.TempDir()
	pdf := filepath.Join(dir, "report.pdf")
	for _, name := range []string{pdf, filepath.Join(dir, "memo.docx")} {
		if err := os.WriteFile(name, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	useRunner(t, shelltest.New().On("pdftotext "+pdf+" -", shelltest.Response{Stdout: "Quarterly numbers\n"}))

	output, err := executeCommand(NewConvertCmd("test"), "--folder", dir, "--quiet")
	if err == nil || !strings.Contains(err.Error(), "1 file(s) failed") {
		t.Fatalf("expected failure count error, got %v", err)
	}
	if !strings.Contains(output, "Successfully converted: 1") || !strings.Contains(output, "Failed: 1") {
		t.Fatalf("expected summary in quiet output:\n%s", output)
	}
	if strings.Contains(output, "Converting:") {
		t.Fatalf("--quiet must hide progress:\n%s", output)
	}

	data, err := os.ReadFile(filepath.Join(dir, "Markdown", "report.md"))
	if err != nil {
		t.Fatalf("expected converted pdf: %v", err)
	}
	if !strings.Contains(string(data), "Quarterly numbers") {
		t.Fatalf("unexpected markdown: %q", data)
	}
}
