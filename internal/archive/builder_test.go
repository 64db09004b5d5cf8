package archive

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/klauspost/compress/zip"

	"github.com/adamavenir/skillkit/internal/shell/shelltest"
)

type mapTree map[string]string

func (m mapTree) Files(_ context.Context, prefix string) ([]File, error) {
	var files []File
	for name := range m {
		if strings.HasPrefix(name, prefix) {
			files = append(files, File{Path: name, Mode: 0o644})
		}
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}

func (m mapTree) ReadFile(_ context.Context, path string) ([]byte, error) {
	data, ok := m[path]
	if !ok {
		return nil, errors.New("missing " + path)
	}
	return []byte(data), nil
}

func sampleTree() mapTree {
	return mapTree{
		"README.md":                           "# skills",
		"install.sh":                          "#!/bin/sh",
		"skills/agile-board/SKILL.md":         "agile",
		"skills/agile-board/scripts/setup.py": "print()",
		"skills/testing/SKILL.md":             "testing",
		"skills/testing/references/a.md":      "ref",
		"skills/drafts/notes.md":              "no marker",
		"skills/nested/deep/SKILL.md":         "too deep",
	}
}

func newBuilder(tree Tree) *Builder {
	return &Builder{
		Tree:     tree,
		UnitsDir: "skills",
		Marker:   "SKILL.md",
		ModTime:  time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func readZip(t *testing.T, path string) map[string]string {
	t.Helper()
	reader, err := zip.OpenReader(path)
	if err != nil {
		t.Fatalf("open zip: %v", err)
	}
	defer reader.Close()

	out := map[string]string{}
	for _, f := range reader.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("open entry %s: %v", f.Name, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatalf("read entry %s: %v", f.Name, err)
		}
		out[f.Name] = string(data)
	}
	return out
}

func TestDiscoverUnits(t *testing.T) {
	names, err := newBuilder(sampleTree()).DiscoverUnits(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expected := []string{"agile-board", "testing"}
	if diff := cmp.Diff(expected, names); diff != "" {
		t.Fatalf("unexpected units (-want +got):\n%s", diff)
	}
}

func TestBuildFullKeepsPaths(t *testing.T) {
	tree := sampleTree()
	dest := filepath.Join(t.TempDir(), "dist", "claude-code-skills-v1.zip")

	archive, err := newBuilder(tree).BuildFull(context.Background(), dest)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if archive.Entries != len(tree) {
		t.Fatalf("expected %d entries, got %d", len(tree), archive.Entries)
	}
	if archive.Size == 0 {
		t.Fatalf("expected non-empty archive")
	}

	got := readZip(t, dest)
	if diff := cmp.Diff(map[string]string(tree), got); diff != "" {
		t.Fatalf("full archive mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildUnitRewritesPaths(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "skills")

	archive, err := newBuilder(sampleTree()).BuildUnit(context.Background(), dir, "agile-board")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if archive.Path != filepath.Join(dir, "agile-board.zip") {
		t.Fatalf("unexpected path %s", archive.Path)
	}

	got := readZip(t, archive.Path)
	expected := map[string]string{
		"agile-board/SKILL.md":         "agile",
		"agile-board/scripts/setup.py": "print()",
	}
	if diff := cmp.Diff(expected, got); diff != "" {
		t.Fatalf("unit archive mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildUnitEmpty(t *testing.T) {
	dir := t.TempDir()
	_, err := newBuilder(sampleTree()).BuildUnit(context.Background(), dir, "ghost")
	if !errors.Is(err, ErrEmptyUnit) {
		t.Fatalf("expected ErrEmptyUnit, got %v", err)
	}
	if _, statErr := zip.OpenReader(filepath.Join(dir, "ghost.zip")); statErr == nil {
		t.Fatalf("empty unit must not produce an archive")
	}
}

func TestPlan(t *testing.T) {
	plan, err := newBuilder(sampleTree()).Plan(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(plan.Files) != 8 {
		t.Fatalf("expected 8 files, got %d", len(plan.Files))
	}
	if len(plan.Units) != 2 || plan.Units[0].Name != "agile-board" || len(plan.Units[1].Files) != 2 {
		t.Fatalf("unexpected units: %#v", plan.Units)
	}
}

func TestBuildFullReadErrorRemovesPartialArchive(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "full.zip")
	tree := brokenTree{mapTree{"a.txt": "a"}}

	if _, err := newBuilder(tree).BuildFull(context.Background(), dest); err == nil {
		t.Fatalf("expected error")
	}
	if _, err := zip.OpenReader(dest); err == nil {
		t.Fatalf("partial archive left behind")
	}
}

type brokenTree struct{ mapTree }

func (brokenTree) ReadFile(context.Context, string) ([]byte, error) {
	return nil, errors.New("boom")
}

func TestGitTreeFiles(t *testing.T) {
	fake := shelltest.New().
		On("git ls-tree -r -z --full-tree HEAD -- skills/", shelltest.Response{
			Stdout: "100644 blob 1111\tskills/b/SKILL.md\x00" +
				"100755 blob 2222\tskills/a/run.sh\x00" +
				"120000 blob 3333\tskills/a/link.md\x00" +
				"160000 commit 4444\tskills/vendored\x00" +
				"100644 blob 5555\tskills/a/ padded name.md \x00",
		})
	tree := &GitTree{Dir: "/repo", Runner: fake}

	files, err := tree.Files(context.Background(), "skills/")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expected := []File{
		{Path: "skills/a/ padded name.md ", Mode: 0o644},
		{Path: "skills/a/link.md", Mode: fs.ModeSymlink | 0o777},
		{Path: "skills/a/run.sh", Mode: 0o755},
		{Path: "skills/b/SKILL.md", Mode: 0o644},
	}
	if diff := cmp.Diff(expected, files); diff != "" {
		t.Fatalf("unexpected files (-want +got):\n%s", diff)
	}
	if fake.Calls[0].Dir != "/repo" {
		t.Fatalf("expected command to run in repo dir, got %s", fake.Calls[0].Dir)
	}
}

func TestGitTreeFilesRejectsMalformedEntry(t *testing.T) {
	fake := shelltest.New().On("git ls-tree -r -z --full-tree HEAD", shelltest.Response{Stdout: "README.md\x00"})
	if _, err := (&GitTree{Runner: fake}).Files(context.Background(), ""); err == nil {
		t.Fatalf("expected an error for an entry without mode and type")
	}
}

func TestSplitNULKeepsSurroundingSpaces(t *testing.T) {
	got := splitNUL([]byte(" a \x00\x00b\x00"))
	if diff := cmp.Diff([]string{" a ", "b"}, got); diff != "" {
		t.Fatalf("unexpected records (-want +got):\n%s", diff)
	}
}

type modeTree struct {
	mapTree
	modes map[string]fs.FileMode
}

func (m modeTree) Files(ctx context.Context, prefix string) ([]File, error) {
	files, err := m.mapTree.Files(ctx, prefix)
	for i := range files {
		if mode, ok := m.modes[files[i].Path]; ok {
			files[i].Mode = mode
		}
	}
	return files, err
}

func TestBuildFullPreservesSymlinksAndExecutables(t *testing.T) {
	tree := modeTree{
		mapTree: mapTree{"docs/guide.md": "guide", "docs/latest.md": "guide.md", "install.sh": "#!/bin/sh"},
		modes: map[string]fs.FileMode{
			"docs/latest.md": fs.ModeSymlink | 0o777,
			"install.sh":     0o755,
		},
	}
	dest := filepath.Join(t.TempDir(), "full.zip")
	if _, err := newBuilder(tree).BuildFull(context.Background(), dest); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	reader, err := zip.OpenReader(dest)
	if err != nil {
		t.Fatalf("open zip: %v", err)
	}
	defer reader.Close()
	modes := map[string]fs.FileMode{}
	for _, f := range reader.File {
		modes[f.Name] = f.Mode()
	}
	expected := map[string]fs.FileMode{
		"docs/guide.md":  0o644,
		"docs/latest.md": fs.ModeSymlink | 0o777,
		"install.sh":     0o755,
	}
	if diff := cmp.Diff(expected, modes); diff != "" {
		t.Fatalf("unexpected modes (-want +got):\n%s", diff)
	}
	if got := readZip(t, dest)["docs/latest.md"]; got != "guide.md" {
		t.Fatalf("symlink entry must hold its target, got %q", got)
	}
}

func TestGitTreeFilesFailure(t *testing.T) {
	fake := shelltest.New().
		OnPrefix("git ls-tree", shelltest.Fail("git", 128, "fatal: not a git repository"))
	tree := &GitTree{Dir: "/repo", Runner: fake}

	if _, err := tree.Files(context.Background(), ""); err == nil || !strings.Contains(err.Error(), "not a git repository") {
		t.Fatalf("expected git failure, got %v", err)
	}
}

func TestGitTreeVersion(t *testing.T) {
	now := time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC)

	tagged := &GitTree{Runner: shelltest.New().On("git describe --tags --always --dirty", shelltest.Response{Stdout: "v1.2.0\n"})}
	if v := tagged.Version(context.Background(), now); v != "v1.2.0" {
		t.Fatalf("expected tag version, got %q", v)
	}

	untagged := &GitTree{Runner: shelltest.New()}
	if v := untagged.Version(context.Background(), now); v != "20250304" {
		t.Fatalf("expected date version, got %q", v)
	}
}

func TestGitTreeChanges(t *testing.T) {
	fake := shelltest.New().On("git status --porcelain", shelltest.Response{Stdout: " M README.md\n?? new.txt\n\n"})
	changes, err := (&GitTree{Runner: fake}).Changes(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff([]string{" M README.md", "?? new.txt"}, changes); diff != "" {
		t.Fatalf("unexpected changes (-want +got):\n%s", diff)
	}
}
