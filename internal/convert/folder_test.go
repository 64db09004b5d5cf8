package convert

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adamavenir/skillkit/internal/shell/shelltest"
)

func seedFolder(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeWorkbook(t, filepath.Join(dir, "budget.xlsx"), map[string][]any{"A1": {"Item", "Cost"}, "A2": {"paper", 4}})
	writeFile(t, filepath.Join(dir, "notes.txt"), "ignored")
	writeFile(t, filepath.Join(dir, "sub", "design.docx"), "docx")
	writeFile(t, filepath.Join(dir, "sub", "deep", "broken.pptx"), "not a zip")
	return dir
}

func TestConvertFolderFlat(t *testing.T) {
	dir := seedFolder(t)
	conv, out := newConverter(shelltest.New())

	summary, err := conv.ConvertFolder(context.Background(), dir, "", false)
	require.NoError(t, err)
	assert.Equal(t, Summary{Succeeded: 1}, summary)
	assert.FileExists(t, filepath.Join(dir, DefaultFolderOutput, "budget.md"))
	assert.Contains(t, out.String(), "Converting 1 files from")
}

func TestConvertFolderRecursivePreservesStructure(t *testing.T) {
	dir := seedFolder(t)
	outDir := filepath.Join(t.TempDir(), "md")
	// pandoc only succeeds for the docx; the pptx run has no canned answer.
	fake := shelltest.New().OnPrefix("pandoc "+filepath.Join(dir, "sub", "design.docx"), shelltest.Response{})
	conv, out := newConverter(fake)

	summary, err := conv.ConvertFolder(context.Background(), dir, outDir, true)
	require.NoError(t, err)
	assert.Equal(t, Summary{Succeeded: 2, Failed: 1}, summary)
	assert.False(t, summary.OK())

	assert.FileExists(t, filepath.Join(outDir, "budget.md"))
	assert.True(t, fake.Ran("pandoc "+filepath.Join(dir, "sub", "design.docx")+" -t markdown -o "+filepath.Join(outDir, "sub", "design.md")))
	assert.Contains(t, out.String(), "broken.pptx")
}

func TestConvertFolderSkipsOwnOutputDirectory(t *testing.T) {
	dir := seedFolder(t)
	writeWorkbook(t, filepath.Join(dir, DefaultFolderOutput, "stale.xlsx"), map[string][]any{"A1": {"x"}})

	files, err := FolderFiles(dir, true, filepath.Join(dir, DefaultFolderOutput))
	require.NoError(t, err)
	for _, f := range files {
		assert.NotContains(t, f, "stale.xlsx")
	}
	assert.Len(t, files, 3)
}

func TestConvertFolderCountsSkips(t *testing.T) {
	dir := seedFolder(t)
	writeFile(t, filepath.Join(dir, DefaultFolderOutput, "budget.md"), "existing")
	conv, _ := newConverter(shelltest.New())

	summary, err := conv.ConvertFolder(context.Background(), dir, "", false)
	require.NoError(t, err)
	assert.Equal(t, Summary{Skipped: 1}, summary)
	assert.True(t, summary.OK())
}

func TestConvertFolderEmpty(t *testing.T) {
	dir := t.TempDir()
	conv, out := newConverter(shelltest.New())
	summary, err := conv.ConvertFolder(context.Background(), dir, "", false)
	require.NoError(t, err)
	assert.Equal(t, Summary{}, summary)
	assert.Contains(t, out.String(), "No supported documents found")
}

func TestConvertFolderMissing(t *testing.T) {
	conv, _ := newConverter(shelltest.New())
	_, err := conv.ConvertFolder(context.Background(), filepath.Join(t.TempDir(), "missing"), "", false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "folder not found")
}

func TestFolderOutput(t *testing.T) {
	got, err := FolderOutput("/in", "/out", "/in/a/b/c.docx", true)
	require.NoError(t, err)
	assert.Equal(t, filepath.FromSlash("/out/a/b/c.md"), got)

	got, err = FolderOutput("/in", "/out", "/in/a/b/c.docx", false)
	require.NoError(t, err)
	assert.Equal(t, filepath.FromSlash("/out/c.md"), got)
}

func TestFolderWatcherConvertsNewFiles(t *testing.T) {
	dir := t.TempDir()
	outDir := filepath.Join(t.TempDir(), "md")
	conv, _ := newConverter(shelltest.New())

	fw, err := conv.NewFolderWatcher(dir, outDir, false)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- fw.Run(ctx) }()

	writeWorkbook(t, filepath.Join(dir, "live.xlsx"), map[string][]any{"A1": {"k", "v"}})
	writeFile(t, filepath.Join(dir, "ignored.txt"), "x")

	target := filepath.Join(outDir, "live.md")
	deadline := time.Now().Add(10 * time.Second)
	for {
		if _, err := os.Stat(target); err == nil {
			break
		}
		if time.Now().After(deadline) {
			cancel()
			<-done
			t.Fatalf("watcher did not produce %s", target)
		}
		time.Sleep(50 * time.Millisecond)
	}

	cancel()
	require.NoError(t, <-done)
	assert.NoFileExists(t, filepath.Join(outDir, "ignored.md"))
}
