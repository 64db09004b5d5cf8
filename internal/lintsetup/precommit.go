package lintsetup

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// PreCommitFile is the pre-commit configuration file name.
const PreCommitFile = ".pre-commit-config.yaml"

// PreCommitConfig is the document pre-commit reads.
type PreCommitConfig struct {
	Repos []Repo `yaml:"repos"`
}

// Repo is one hook source.
type Repo struct {
	Repo  string `yaml:"repo"`
	Rev   string `yaml:"rev,omitempty"`
	Hooks []Hook `yaml:"hooks"`
}

// Hook is one hook of a repo.
type Hook struct {
	ID                     string   `yaml:"id"`
	Name                   string   `yaml:"name,omitempty"`
	Entry                  string   `yaml:"entry,omitempty"`
	Language               string   `yaml:"language,omitempty"`
	Args                   []string `yaml:"args,omitempty,flow"`
	AdditionalDependencies []string `yaml:"additional_dependencies,omitempty,flow"`
	Files                  string   `yaml:"files,omitempty"`
	Types                  []string `yaml:"types,omitempty,flow"`
	PassFilenames          *bool    `yaml:"pass_filenames,omitempty"`
}

var baseRepo = Repo{
	Repo: "https://github.com/pre-commit/pre-commit-hooks",
	Rev:  "v4.5.0",
	Hooks: []Hook{
		{ID: "trailing-whitespace"},
		{ID: "end-of-file-fixer"},
		{ID: "check-yaml"},
		{ID: "check-added-large-files"},
	},
}

var noFilenames = false

var languageRepos = []struct {
	lang  Language
	repos []Repo
}{
	{Python, []Repo{
		{Repo: "https://github.com/psf/black", Rev: "24.1.1", Hooks: []Hook{{ID: "black", Args: []string{"--line-length=100"}}}},
		{Repo: "https://github.com/astral-sh/ruff-pre-commit", Rev: "v0.1.14", Hooks: []Hook{{ID: "ruff", Args: []string{"--fix"}}}},
		{Repo: "https://github.com/pre-commit/mirrors-mypy", Rev: "v1.8.0", Hooks: []Hook{{ID: "mypy", AdditionalDependencies: []string{"types-requests"}}}},
	}},
	{TypeScript, []Repo{
		{Repo: "https://github.com/pre-commit/mirrors-eslint", Rev: "v8.56.0", Hooks: []Hook{{ID: "eslint", Files: `\.(js|jsx|ts|tsx)$`, Args: []string{"--fix"}}}},
		{Repo: "https://github.com/pre-commit/mirrors-prettier", Rev: "v3.1.0", Hooks: []Hook{{ID: "prettier"}}},
	}},
	{Flutter, []Repo{
		{Repo: "local", Hooks: []Hook{{
			ID: "dart-format", Name: "dart format", Entry: "dart",
			Args: []string{"format", "--line-length=100"}, Language: "system", Types: []string{"dart"},
		}}},
		{Repo: "local", Hooks: []Hook{{
			ID: "dart-analyze", Name: "dart analyze", Entry: "dart",
			Args: []string{"analyze", "--fatal-infos"}, Language: "system", PassFilenames: &noFilenames,
		}}},
	}},
	{Terraform, []Repo{
		{Repo: "https://github.com/antonbabenko/pre-commit-terraform", Rev: "v1.86.0", Hooks: []Hook{{ID: "terraform_fmt"}, {ID: "terraform_validate"}}},
	}},
}

// BuildPreCommitConfig returns the base hooks followed by the hooks of each
// detected language.
func BuildPreCommitConfig(langs []Language) PreCommitConfig {
	cfg := PreCommitConfig{Repos: []Repo{baseRepo}}
	for _, lr := range languageRepos {
		if has(langs, lr.lang) {
			cfg.Repos = append(cfg.Repos, lr.repos...)
		}
	}
	return cfg
}

// RenderPreCommitConfig encodes cfg with a header naming the languages.
func RenderPreCommitConfig(cfg PreCommitConfig, langs []Language) ([]byte, error) {
	names := make([]string, len(langs))
	for i, l := range langs {
		names[i] = string(l)
	}

	var buf bytes.Buffer
	buf.WriteString("# Generated by lint-setup\n")
	fmt.Fprintf(&buf, "# Languages detected: %s\n\n", strings.Join(names, ", "))

	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WritePreCommitConfig writes the config for langs into root.
func WritePreCommitConfig(root string, langs []Language) (string, error) {
	data, err := RenderPreCommitConfig(BuildPreCommitConfig(langs), langs)
	if err != nil {
		return "", err
	}
	path := filepath.Join(root, PreCommitFile)
	return path, os.WriteFile(path, data, 0o644)
}

// DroppedRepos lists the repos of previous that next no longer contains.
func DroppedRepos(previous, next PreCommitConfig) []string {
	kept := map[string]bool{}
	for _, r := range next.Repos {
		kept[r.Repo] = true
	}
	var dropped []string
	for _, r := range previous.Repos {
		if !kept[r.Repo] {
			dropped = append(dropped, r.Repo)
		}
	}
	return dropped
}

// ReadPreCommitConfig parses an existing config file.
func ReadPreCommitConfig(path string) (PreCommitConfig, error) {
	var cfg PreCommitConfig
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	err = yaml.Unmarshal(data, &cfg)
	return cfg, err
}

const pyprojectTemplate = `[tool.ruff]
line-length = 100
target-version = "py311"

[tool.ruff.lint]
select = [
    "E",   # pycodestyle errors
    "W",   # pycodestyle warnings
    "F",   # pyflakes
    "I",   # isort
    "N",   # pep8-naming
    "UP",  # pyupgrade
    "B",   # flake8-bugbear
]
ignore = [
    "E501",  # Line too long (handled by formatter)
]

[tool.ruff.lint.per-file-ignores]
"scripts/poc/**/*.py" = ["ALL"]
"tests/**/*.py" = ["S101"]

[tool.mypy]
python_version = "3.11"
warn_return_any = true
warn_unused_configs = true
disallow_untyped_defs = false
`

// EnsurePyproject creates pyproject.toml with ruff and mypy settings when
// absent. It reports whether the file was created.
func EnsurePyproject(root string) (bool, error) {
	path := filepath.Join(root, "pyproject.toml")
	if fileExists(path) {
		return false, nil
	}
	return true, os.WriteFile(path, []byte(pyprojectTemplate), 0o644)
}
