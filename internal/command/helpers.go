package command

import (
	"os"
	"path/filepath"
)

func absPath(path string) (string, error) {
	return filepath.Abs(path)
}

// relativeTo renders path relative to base when it sits below it.
func relativeTo(base, path string) string {
	rel, err := filepath.Rel(base, path)
	if err != nil || rel == ".." || filepath.IsAbs(rel) || len(rel) > 2 && rel[:3] == ".."+string(filepath.Separator) {
		return path
	}
	return rel
}

func flagOrEnv(value, env string) string {
	if value != "" {
		return value
	}
	return os.Getenv(env)
}
