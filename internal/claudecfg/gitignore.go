package claudecfg

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// GitignoreStatus reports what EnsureGitignoreEntry did.
type GitignoreStatus int

const (
	GitignoreAdded GitignoreStatus = iota
	GitignorePresent
	GitignoreMissing
)

// EnsureGitignoreEntry appends entry, preceded by a comment line, to the
// project's .gitignore when the file exists and does not mention it yet.
// A project without a .gitignore is reported and left untouched.
func EnsureGitignoreEntry(projectDir, entry, comment string) (GitignoreStatus, error) {
	path := filepath.Join(projectDir, ".gitignore")
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return GitignoreMissing, nil
		}
		return GitignoreMissing, err
	}

	content := string(data)
	if strings.Contains(content, entry) {
		return GitignorePresent, nil
	}

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return GitignoreMissing, err
	}
	defer file.Close()

	block := "\n"
	if comment != "" {
		block += "# " + comment + "\n"
	}
	block += entry + "\n"
	if _, err := file.WriteString(block); err != nil {
		return GitignoreMissing, err
	}
	return GitignoreAdded, nil
}
