package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zip"
	"go.uber.org/zap"
)

// ErrEmptyUnit is returned by BuildUnit for a unit with no tracked files.
var ErrEmptyUnit = errors.New("no tracked files")

const compressionLevel = 6

// Builder produces the full archive and the per-unit archives.
type Builder struct {
	Tree Tree
	// UnitsDir is the directory whose children are units, e.g. "skills".
	UnitsDir string
	// Marker is the file whose presence makes a child of UnitsDir a unit.
	Marker  string
	ModTime time.Time
	Log     *zap.Logger
}

// Unit is one discovered unit and its tracked files.
type Unit struct {
	Name  string
	Files []string
}

// Plan is what a build would package.
type Plan struct {
	Files []string
	Units []Unit
}

// Archive is a written zip file.
type Archive struct {
	Path    string
	Entries int
	Size    int64
}

func (b *Builder) log() *zap.Logger {
	if b.Log == nil {
		return zap.NewNop()
	}
	return b.Log
}

func (b *Builder) unitPrefix(name string) string {
	return strings.TrimSuffix(b.UnitsDir, "/") + "/" + name + "/"
}

// DiscoverUnits finds <UnitsDir>/<name>/<Marker> among tracked files and
// returns the sorted, deduplicated unit names.
func (b *Builder) DiscoverUnits(ctx context.Context) ([]string, error) {
	root := strings.TrimSuffix(b.UnitsDir, "/")
	files, err := b.Tree.Files(ctx, root+"/")
	if err != nil {
		return nil, err
	}
	seen := map[string]bool{}
	var names []string
	for _, file := range files {
		parts := strings.Split(file.Path, "/")
		if len(parts) != 3 || parts[0] != root || parts[2] != b.Marker {
			continue
		}
		if !seen[parts[1]] {
			seen[parts[1]] = true
			names = append(names, parts[1])
		}
	}
	sort.Strings(names)
	return names, nil
}

// UnitFiles lists the tracked files of one unit.
func (b *Builder) UnitFiles(ctx context.Context, name string) ([]string, error) {
	files, err := b.Tree.Files(ctx, b.unitPrefix(name))
	if err != nil {
		return nil, err
	}
	return Paths(files), nil
}

// Plan enumerates everything a build would package without writing.
func (b *Builder) Plan(ctx context.Context) (Plan, error) {
	files, err := b.Tree.Files(ctx, "")
	if err != nil {
		return Plan{}, err
	}
	names, err := b.DiscoverUnits(ctx)
	if err != nil {
		return Plan{}, err
	}
	plan := Plan{Files: Paths(files)}
	for _, name := range names {
		unitFiles, err := b.UnitFiles(ctx, name)
		if err != nil {
			return Plan{}, err
		}
		plan.Units = append(plan.Units, Unit{Name: name, Files: unitFiles})
	}
	return plan, nil
}

type entry struct {
	name   string
	source string
	mode   os.FileMode
}

// BuildFull writes every tracked file, paths unchanged, to dest.
func (b *Builder) BuildFull(ctx context.Context, dest string) (Archive, error) {
	files, err := b.Tree.Files(ctx, "")
	if err != nil {
		return Archive{}, err
	}
	entries := make([]entry, 0, len(files))
	for _, file := range files {
		entries = append(entries, entry{name: file.Path, source: file.Path, mode: file.Mode})
	}
	return b.write(ctx, dest, entries)
}

// BuildUnit writes the unit's files to <dir>/<name>.zip with the unit
// directory as the archive root: skills/foo/SKILL.md becomes foo/SKILL.md.
func (b *Builder) BuildUnit(ctx context.Context, dir, name string) (Archive, error) {
	dest := filepath.Join(dir, name+".zip")
	prefix := b.unitPrefix(name)
	files, err := b.Tree.Files(ctx, prefix)
	if err != nil {
		return Archive{Path: dest}, err
	}
	if len(files) == 0 {
		return Archive{Path: dest}, fmt.Errorf("unit %q: %w", name, ErrEmptyUnit)
	}
	entries := make([]entry, 0, len(files))
	for _, file := range files {
		rel := strings.TrimPrefix(file.Path, prefix)
		entries = append(entries, entry{name: path.Join(name, rel), source: file.Path, mode: file.Mode})
	}
	return b.write(ctx, dest, entries)
}

func (b *Builder) write(ctx context.Context, dest string, entries []entry) (Archive, error) {
	result := Archive{Path: dest}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return result, fmt.Errorf("create output dir: %w", err)
	}
	file, err := os.Create(dest)
	if err != nil {
		return result, fmt.Errorf("create %s: %w", dest, err)
	}

	if err := b.writeEntries(ctx, file, entries); err != nil {
		file.Close()
		_ = os.Remove(dest)
		return result, err
	}
	if err := file.Close(); err != nil {
		return result, err
	}

	info, err := os.Stat(dest)
	if err != nil {
		return result, err
	}
	result.Entries = len(entries)
	result.Size = info.Size()
	b.log().Debug("archive written", zap.String("path", dest), zap.Int("entries", len(entries)), zap.Int64("bytes", result.Size))
	return result, nil
}

func (b *Builder) writeEntries(ctx context.Context, out io.Writer, entries []entry) error {
	zw := zip.NewWriter(out)
	zw.RegisterCompressor(zip.Deflate, func(w io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(w, compressionLevel)
	})

	modTime := b.ModTime
	if modTime.IsZero() {
		modTime = time.Now()
	}
	for _, e := range entries {
		data, err := b.Tree.ReadFile(ctx, e.source)
		if err != nil {
			return err
		}
		header := &zip.FileHeader{Name: e.name, Method: zip.Deflate, Modified: modTime}
		mode := e.mode
		if mode == 0 {
			mode = 0o644
		}
		header.SetMode(mode)
		w, err := zw.CreateHeader(header)
		if err != nil {
			return fmt.Errorf("add %s: %w", e.name, err)
		}
		if _, err := w.Write(data); err != nil {
			return fmt.Errorf("add %s: %w", e.name, err)
		}
	}
	return zw.Close()
}
