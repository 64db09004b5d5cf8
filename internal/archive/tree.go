// Package archive packages version-controlled files into zip archives: one
// archive of the whole tree and one per unit directory.
package archive

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/adamavenir/skillkit/internal/shell"
)

// File is one committed file. Mode is 0o644, 0o755, or fs.ModeSymlink|0o777
// for a symbolic link, whose content is the link target.
type File struct {
	Path string
	Mode fs.FileMode
}

// Tree enumerates committed files and reads their committed content.
type Tree interface {
	Files(ctx context.Context, prefix string) ([]File, error)
	ReadFile(ctx context.Context, path string) ([]byte, error)
}

// GitTree reads files from the HEAD commit of the repository at Dir, so
// uncommitted local modifications never reach an archive.
type GitTree struct {
	Dir    string
	Runner shell.Runner
	Log    *zap.Logger
}

// Files lists blobs committed at HEAD, optionally limited to prefix, sorted
// by path. Submodule entries have no content in this repository and are
// skipped with a warning.
func (g *GitTree) Files(ctx context.Context, prefix string) ([]File, error) {
	args := []string{"ls-tree", "-r", "-z", "--full-tree", "HEAD"}
	if prefix != "" {
		args = append(args, "--", prefix)
	}
	res, err := g.Runner.Run(ctx, g.Dir, "git", args...)
	if err != nil {
		return nil, fmt.Errorf("git ls-tree failed: %w", err)
	}

	var files []File
	for _, record := range splitNUL(res.Stdout) {
		meta, name, ok := strings.Cut(record, "\t")
		fields := strings.Fields(meta)
		if !ok || len(fields) != 3 {
			return nil, fmt.Errorf("unexpected git ls-tree entry %q", record)
		}
		switch fields[1] {
		case "blob":
			files = append(files, File{Path: name, Mode: blobMode(fields[0])})
		case "commit":
			if g.Log != nil {
				g.Log.Warn("skipping submodule, its files are not part of this repository", zap.String("path", name))
			}
		}
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}

func blobMode(mode string) fs.FileMode {
	switch mode {
	case "120000":
		return fs.ModeSymlink | 0o777
	case "100755":
		return 0o755
	default:
		return 0o644
	}
}

// ReadFile returns the content of path at HEAD.
func (g *GitTree) ReadFile(ctx context.Context, path string) ([]byte, error) {
	res, err := g.Runner.Run(ctx, g.Dir, "git", "show", "HEAD:"+path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return res.Stdout, nil
}

// Changes returns `git status --porcelain` lines: work that will not be archived.
func (g *GitTree) Changes(ctx context.Context) ([]string, error) {
	res, err := g.Runner.Run(ctx, g.Dir, "git", "status", "--porcelain")
	if err != nil {
		return nil, fmt.Errorf("git status failed: %w", err)
	}
	var lines []string
	for _, line := range strings.Split(string(res.Stdout), "\n") {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	return lines, nil
}

// Version derives a version from git tags, falling back to the date.
func (g *GitTree) Version(ctx context.Context, now time.Time) string {
	res, err := g.Runner.Run(ctx, g.Dir, "git", "describe", "--tags", "--always", "--dirty")
	if err == nil {
		if version := strings.TrimSpace(string(res.Stdout)); version != "" {
			return version
		}
	}
	return now.Format("20060102")
}

// TopLevel returns the root of the repository containing dir.
func TopLevel(ctx context.Context, runner shell.Runner, dir string) (string, error) {
	res, err := runner.Run(ctx, dir, "git", "rev-parse", "--show-toplevel")
	if err != nil {
		return "", fmt.Errorf("not a git repository: %w", err)
	}
	return strings.TrimSpace(string(res.Stdout)), nil
}

// splitNUL splits NUL-terminated records, dropping only empty ones. Names may
// legitimately start or end with spaces.
func splitNUL(data []byte) []string {
	var records []string
	for _, part := range bytes.Split(data, []byte{0}) {
		if len(part) > 0 {
			records = append(records, string(part))
		}
	}
	return records
}

// Paths returns the paths of files in order.
func Paths(files []File) []string {
	paths := make([]string, len(files))
	for i, f := range files {
		paths[i] = f.Path
	}
	return paths
}
