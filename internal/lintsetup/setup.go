package lintsetup

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"go.uber.org/zap"

	"github.com/adamavenir/skillkit/internal/shell"
	"github.com/adamavenir/skillkit/internal/ui"
)

// ErrNoLanguages is returned when no supported language is found.
var ErrNoLanguages = errors.New("no supported languages detected")

var (
	pythonTools = []string{"black", "ruff", "mypy"}
	nodeTools   = []string{"eslint", "prettier"}
)

// Setup configures linting for one project.
type Setup struct {
	Root        string
	Home        string
	PathEnv     string
	Python      string
	SkipInstall bool
	RunHooks    bool
	Runner      shell.Runner
	UI          *ui.Printer
	Log         *zap.Logger
}

// Report summarizes a finished setup.
type Report struct {
	Languages        []Language
	ConfigPath       string
	PyprojectCreated bool
	HooksInstalled   bool
	HooksPassed      bool
	// DroppedRepos are hook sources of a replaced config that the new one lacks.
	DroppedRepos []string
}

func (s *Setup) log() *zap.Logger {
	if s.Log == nil {
		return zap.NewNop()
	}
	return s.Log
}

func (s *Setup) python() string {
	if s.Python == "" {
		return "python3"
	}
	return s.Python
}

// Run performs detection, tool installation, config generation and hook
// installation in order.
func (s *Setup) Run(ctx context.Context) (Report, error) {
	var report Report
	s.UI.Section("Git Workflow - Linting Setup")
	s.UI.Blank()

	langs, err := s.detect()
	if err != nil {
		return report, err
	}
	report.Languages = langs

	if !s.SkipInstall {
		if err := s.installTools(ctx, langs); err != nil {
			return report, err
		}
	} else {
		s.UI.Info("Skipping tool installation (--skip-install)")
	}
	s.checkPath()

	s.UI.Blank()
	s.UI.Info("Generating %s...", PreCommitFile)
	if has(langs, Python) {
		created, err := EnsurePyproject(s.Root)
		if err != nil {
			return report, fmt.Errorf("write pyproject.toml: %w", err)
		}
		if created {
			s.UI.Success("Created pyproject.toml with ruff configuration")
		}
		report.PyprojectCreated = created
	}
	report.DroppedRepos = s.checkExistingConfig(langs)
	path, err := WritePreCommitConfig(s.Root, langs)
	if err != nil {
		return report, fmt.Errorf("write %s: %w", PreCommitFile, err)
	}
	report.ConfigPath = path
	s.UI.Success("Created %s", path)

	report.HooksInstalled = s.installHooks(ctx)
	if s.RunHooks && report.HooksInstalled {
		report.HooksPassed = s.testHooks(ctx)
	}

	s.UI.Blank()
	s.UI.Success("Setup complete!")
	s.UI.Blank()
	s.UI.Plain("Next steps:")
	s.UI.Plain("  1. Review changes: git diff")
	s.UI.Plain("  2. Commit config files: git add %s pyproject.toml", PreCommitFile)
	s.UI.Plain("  3. Hooks will now run automatically on 'git commit'")
	s.UI.Plain("  4. Bypass hooks if needed: git commit --no-verify")
	return report, nil
}

func (s *Setup) checkExistingConfig(langs []Language) []string {
	existing, err := ReadPreCommitConfig(filepath.Join(s.Root, PreCommitFile))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		s.UI.Warn("Existing %s could not be parsed and will be replaced: %v", PreCommitFile, err)
		return nil
	}
	dropped := DroppedRepos(existing, BuildPreCommitConfig(langs))
	if len(dropped) > 0 {
		s.UI.Warn("Replacing existing %s; hooks from these repos will be removed:", PreCommitFile)
		for _, repo := range dropped {
			s.UI.Plain("    %s", repo)
		}
	}
	return dropped
}

func (s *Setup) detect() ([]Language, error) {
	s.UI.Info("Detecting project languages...")
	langs, err := Detect(s.Root)
	if err != nil {
		return nil, err
	}
	for _, l := range langs {
		s.UI.Success("%s detected", l.Label())
	}
	if len(langs) == 0 {
		s.UI.Warn("No supported languages detected")
		s.UI.Hint("Supported: Python, TypeScript/JS, Flutter, C#, Terraform")
		return nil, ErrNoLanguages
	}
	return langs, nil
}

func (s *Setup) installTools(ctx context.Context, langs []Language) error {
	s.UI.Blank()
	s.UI.Info("Installing linting tools...")

	if has(langs, Python) {
		if err := s.installPythonTools(ctx); err != nil {
			return err
		}
	}
	if has(langs, TypeScript) {
		s.installNodeTools(ctx)
	}
	if has(langs, Flutter) {
		if shell.Available(s.Runner, "dart") {
			s.UI.Success("Dart tooling available (Flutter SDK)")
		} else {
			s.UI.Warn("Dart not found, please install Flutter SDK")
		}
	}
	if has(langs, Terraform) {
		if shell.Available(s.Runner, "terraform") {
			s.UI.Success("Terraform CLI available")
		} else {
			s.UI.Warn("Terraform not found, please install from https://terraform.io/")
		}
	}
	return nil
}

func (s *Setup) installPythonTools(ctx context.Context) error {
	var missing []string
	for _, tool := range pythonTools {
		if !shell.Available(s.Runner, tool) {
			missing = append(missing, tool)
		}
	}
	if len(missing) == 0 {
		s.UI.Success("All Python tools already installed")
		return nil
	}

	s.UI.Info("Installing Python tools: %s", strings.Join(missing, ", "))
	args := append([]string{"-m", "pip", "install", "--user"}, missing...)
	if _, err := s.Runner.Run(ctx, s.Root, s.python(), args...); err != nil {
		return fmt.Errorf("failed to install Python tools: %w", err)
	}
	s.UI.Success("Python tools installed")
	return nil
}

func (s *Setup) installNodeTools(ctx context.Context) {
	if !shell.Available(s.Runner, "npm") {
		s.UI.Warn("npm not found, skipping TypeScript tool installation")
		s.UI.Hint("Please install Node.js: https://nodejs.org/")
		return
	}

	var missing []string
	for _, tool := range nodeTools {
		local := filepath.Join(s.Root, "node_modules", ".bin", tool)
		if !shell.Available(s.Runner, tool) && !fileExists(local) {
			missing = append(missing, tool)
		}
	}
	if len(missing) == 0 {
		s.UI.Success("All Node.js tools already available")
		return
	}

	s.UI.Info("Installing Node.js tools: %s", strings.Join(missing, ", "))
	args := append([]string{"install", "--save-dev"}, missing...)
	if _, err := s.Runner.Run(ctx, s.Root, "npm", args...); err != nil {
		s.UI.Fail("Failed to install Node.js tools: %v", err)
		return
	}
	s.UI.Success("Node.js tools installed")
}

// PathAdvice returns the shell instructions for adding the user script
// directory to PATH, or nil when nothing is needed.
func PathAdvice(home, pathEnv string) []string {
	if runtime.GOOS == "windows" {
		scripts := filepath.Join(os.Getenv("APPDATA"), "Python", "Scripts")
		if !fileExists(scripts) || onPath(pathEnv, scripts) {
			return nil
		}
		return []string{
			scripts + " not in PATH",
			"Add it via System Properties > Environment Variables",
		}
	}

	localBin := filepath.Join(home, ".local", "bin")
	if !fileExists(localBin) || onPath(pathEnv, localBin) {
		return nil
	}
	rc := filepath.Join(home, ".bashrc")
	if zshrc := filepath.Join(home, ".zshrc"); fileExists(zshrc) {
		rc = zshrc
	}
	return []string{
		localBin + " not in PATH",
		"Add this to " + rc + ":",
		`  export PATH="$HOME/.local/bin:$PATH"`,
		"Then run: source " + rc,
	}
}

func onPath(pathEnv, dir string) bool {
	for _, entry := range filepath.SplitList(pathEnv) {
		if filepath.Clean(entry) == filepath.Clean(dir) {
			return true
		}
	}
	return false
}

func (s *Setup) checkPath() {
	s.UI.Blank()
	s.UI.Info("Checking PATH configuration...")
	advice := PathAdvice(s.Home, s.PathEnv)
	if len(advice) == 0 {
		s.UI.Success("PATH configured correctly")
		return
	}
	s.UI.Warn("%s", advice[0])
	for _, line := range advice[1:] {
		s.UI.Hint("%s", line)
	}
}

func (s *Setup) installHooks(ctx context.Context) bool {
	s.UI.Blank()
	s.UI.Info("Installing pre-commit hooks...")

	if !fileExists(filepath.Join(s.Root, ".git")) {
		s.UI.Warn("Not a git repository, skipping hook installation")
		s.UI.Hint("Run 'git init' first, then re-run lint-setup")
		return false
	}

	_, err := s.Runner.Run(ctx, s.Root, "pre-commit", "install")
	if shell.IsMissing(err) && !s.SkipInstall {
		s.UI.Warn("pre-commit not found, installing...")
		if _, err := s.Runner.Run(ctx, s.Root, s.python(), "-m", "pip", "install", "--user", "pre-commit"); err != nil {
			s.UI.Fail("Failed to install pre-commit: %v", err)
			return false
		}
		_, err = s.Runner.Run(ctx, s.Root, "pre-commit", "install")
	}
	if err != nil {
		s.UI.Fail("Failed to install hooks: %v", err)
		s.log().Debug("pre-commit install failed", zap.Error(err))
		return false
	}
	s.UI.Success("Pre-commit hooks installed")
	return true
}

func (s *Setup) testHooks(ctx context.Context) bool {
	s.UI.Blank()
	s.UI.Info("Testing pre-commit hooks...")

	res, err := s.Runner.Run(ctx, s.Root, "pre-commit", "run", "--all-files")
	switch {
	case err == nil:
		s.UI.Success("All hooks passed")
		return true
	case shell.IsMissing(err):
		s.UI.Warn("pre-commit not in PATH, skipping test")
	default:
		s.UI.Warn("Some hooks made changes or failed:")
		s.UI.Plain("%s", strings.TrimRight(string(res.Stdout), "\n"))
		s.UI.Blank()
		s.UI.Hint("This is normal for first run - hooks may auto-fix formatting")
		s.UI.Hint("Run 'git diff' to see changes, then commit them")
	}
	return false
}
