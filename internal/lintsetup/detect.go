// Package lintsetup detects the languages of a project, installs their
// linters and wires them into pre-commit hooks.
package lintsetup

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/gobwas/glob"
)

// Language is a detected project language.
type Language string

const (
	Python     Language = "python"
	TypeScript Language = "typescript"
	Flutter    Language = "flutter"
	CSharp     Language = "csharp"
	Terraform  Language = "terraform"
)

var languageLabels = map[Language]string{
	Python:     "Python",
	TypeScript: "TypeScript/JavaScript",
	Flutter:    "Flutter/Dart",
	CSharp:     "C#",
	Terraform:  "Terraform",
}

// Label is the display name of the language.
func (l Language) Label() string {
	if label, ok := languageLabels[l]; ok {
		return label
	}
	return string(l)
}

// markerFiles detect a language by a file in the project root.
var markerFiles = []struct {
	lang  Language
	files []string
}{
	{Python, []string{"pyproject.toml", "setup.py", "requirements.txt"}},
	{TypeScript, []string{"package.json", "tsconfig.json"}},
	{Flutter, []string{"pubspec.yaml"}},
}

// treePatterns detect a language by a file anywhere below the root.
var treePatterns = []struct {
	lang    Language
	pattern glob.Glob
}{
	{CSharp, glob.MustCompile("*.{csproj,sln}")},
	{Terraform, glob.MustCompile("*.tf")},
}

var skippedDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	".terraform":   true,
}

// Detect returns the languages found in root, sorted by name.
func Detect(root string) ([]Language, error) {
	found := map[Language]bool{}
	for _, m := range markerFiles {
		for _, name := range m.files {
			if fileExists(filepath.Join(root, name)) {
				found[m.lang] = true
				break
			}
		}
	}

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && skippedDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		for _, p := range treePatterns {
			if !found[p.lang] && p.pattern.Match(d.Name()) {
				found[p.lang] = true
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	langs := make([]Language, 0, len(found))
	for lang := range found {
		langs = append(langs, lang)
	}
	sort.Slice(langs, func(i, j int) bool { return langs[i] < langs[j] })
	return langs, nil
}

func has(langs []Language, lang Language) bool {
	for _, l := range langs {
		if l == lang {
			return true
		}
	}
	return false
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
