package convert

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// DefaultFolderOutput is the output directory name used inside an input
// folder when no output is given.
const DefaultFolderOutput = "Markdown"

// Summary counts the outcomes of a folder conversion.
type Summary struct {
	Succeeded int
	Skipped   int
	Failed    int
}

// OK reports whether no file failed.
func (s Summary) OK() bool {
	return s.Failed == 0
}

func (s *Summary) add(res Result, err error) {
	switch {
	case err != nil:
		s.Failed++
	case res.Skipped:
		s.Skipped++
	default:
		s.Succeeded++
	}
}

// FolderFiles lists the supported files of dir. Unsupported files are
// ignored; with recursive the walk skips the skip directory.
func FolderFiles(dir string, recursive bool, skip string) ([]string, error) {
	var files []string
	if !recursive {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, err
		}
		for _, entry := range entries {
			if entry.Type().IsRegular() && Supported(entry.Name()) {
				files = append(files, filepath.Join(dir, entry.Name()))
			}
		}
		return files, nil
	}

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if skip != "" && path != dir && samePath(path, skip) {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() && Supported(path) {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// FolderOutput maps an input file to its Markdown path under outDir. With
// recursive the path relative to inDir is preserved; otherwise the output
// is flat.
func FolderOutput(inDir, outDir, file string, recursive bool) (string, error) {
	if !recursive {
		return OutputPath(filepath.Join(outDir, filepath.Base(file)), ""), nil
	}
	rel, err := filepath.Rel(inDir, file)
	if err != nil {
		return "", err
	}
	return OutputPath(filepath.Join(outDir, rel), ""), nil
}

// ConvertFolder converts every supported file in inDir into outDir. Per-file
// failures are reported and counted; only an unreadable folder is an error.
func (c *Converter) ConvertFolder(ctx context.Context, inDir, outDir string, recursive bool) (Summary, error) {
	var summary Summary
	if info, err := os.Stat(inDir); err != nil || !info.IsDir() {
		return summary, fmt.Errorf("folder not found: %s", inDir)
	}
	if outDir == "" {
		outDir = filepath.Join(inDir, DefaultFolderOutput)
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return summary, err
	}

	files, err := FolderFiles(inDir, recursive, outDir)
	if err != nil {
		return summary, err
	}
	if len(files) == 0 {
		c.UI.Warn("No supported documents found in %s", inDir)
		return summary, nil
	}

	c.UI.Blank()
	c.UI.Info("Converting %d files from %s", len(files), inDir)
	c.UI.Info("Output to: %s", outDir)
	c.UI.Blank()

	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		out, err := FolderOutput(inDir, outDir, file, recursive)
		if err == nil {
			var res Result
			res, err = c.ConvertFile(ctx, file, out)
			summary.add(res, err)
		} else {
			summary.Failed++
		}
		if err != nil {
			c.UI.Fail("%s: %v", filepath.Base(file), err)
			for _, hint := range Hints(err) {
				c.UI.Hint("%s", hint)
			}
			c.log().Debug("conversion failed", zap.String("file", file), zap.Error(err))
		}
	}
	return summary, nil
}

func samePath(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return filepath.Clean(a) == filepath.Clean(b)
	}
	return absA == absB
}
