package board

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/adamavenir/skillkit/internal/claudecfg"
	"github.com/adamavenir/skillkit/internal/prompt"
	"github.com/adamavenir/skillkit/internal/ui"
)

// ConfigRelPath is where the project-local board config is written.
const ConfigRelPath = ".claude/agile-board-config.json"

// ErrConfigExists is returned when the config exists, no --force was given
// and no answer could be read.
var ErrConfigExists = errors.New("config exists and no --force flag provided")

// Options carries every value that can replace an interactive prompt.
type Options struct {
	ProjectDir string
	BoardType  string
	Force      bool

	APIToken            string
	RepositoryID        string
	WorkspaceName       string
	WorkspaceID         string
	OrganizationID      string
	DefaultPipelineID   string
	DefaultPipelineName string
	DefaultLabels       string

	JiraURL    string
	ProjectKey string

	TeamID            string
	LinearWorkspaceID string
}

// Wizard runs one setup session.
type Wizard struct {
	Opts   Options
	Prompt *prompt.Prompter
	UI     *ui.Printer
	Paths  claudecfg.Paths
	ZenHub ZenHubAPI
	GitHub RepoDetector
	Log    *zap.Logger
}

// Outcome summarizes a finished session.
type Outcome struct {
	Cancelled      bool
	Kind           string
	ConfigPath     string
	Registered     bool
	PermissionPath string
}

func (w *Wizard) log() *zap.Logger {
	if w.Log == nil {
		return zap.NewNop()
	}
	return w.Log
}

// ConfigPath returns the absolute path of the project-local config.
func (w *Wizard) ConfigPath() string {
	return filepath.Join(w.Opts.ProjectDir, filepath.FromSlash(ConfigRelPath))
}

// Run executes the wizard. A declined overwrite returns Cancelled with a nil
// error and leaves every file untouched.
func (w *Wizard) Run(ctx context.Context) (Outcome, error) {
	configPath := w.ConfigPath()
	outcome := Outcome{ConfigPath: configPath}

	w.UI.Section("Agile Board Setup Wizard")
	w.UI.Blank()
	w.UI.Info("Current project: %s", w.Opts.ProjectDir)
	w.UI.Info("Config will be saved to: %s", configPath)
	w.UI.Blank()

	proceed, err := w.confirmOverwrite(ctx, configPath)
	if err != nil {
		return outcome, err
	}
	if !proceed {
		w.UI.Fail("Setup cancelled")
		outcome.Cancelled = true
		return outcome, nil
	}

	kind, err := w.chooseKind(ctx)
	if err != nil {
		return outcome, err
	}
	outcome.Kind = kind.Name

	record, server, err := kind.Collect(ctx, w)
	if err != nil {
		return outcome, err
	}

	if err := claudecfg.SaveDocument(configPath, record); err != nil {
		return outcome, err
	}
	w.UI.Success("Project config saved: %s", configPath)

	if kind.Implemented && server != nil {
		outcome.Registered = w.registerServer(kind.Name, *server)
		outcome.PermissionPath = w.allowPermission(kind.Name)
	} else {
		w.UI.Info("%s is a placeholder: skipping MCP server and permission setup", DisplayName(kind.Name))
	}

	w.updateGitignore()

	w.UI.Blank()
	w.UI.Success("Setup complete!")
	w.UI.Blank()
	w.UI.Plain("Next steps:")
	w.UI.Plain("  - Restart Claude Code if it's currently running")
	w.UI.Plain("  - Use the agile-board skill to create issues")
	w.UI.Plain("  - To reconfigure: rerun with --force")
	return outcome, nil
}

func (w *Wizard) confirmOverwrite(ctx context.Context, configPath string) (bool, error) {
	if _, err := os.Stat(configPath); err != nil {
		return true, nil
	}
	if w.Opts.Force {
		w.UI.Warn("Overwriting existing config (--force)")
		w.UI.Blank()
		return true, nil
	}

	w.UI.Warn("Config file already exists!")
	overwrite, err := w.Prompt.Confirm(ctx, "Overwrite existing config?", false)
	if errors.Is(err, prompt.ErrNoInput) {
		return false, ErrConfigExists
	}
	if err != nil {
		return false, err
	}
	w.UI.Blank()
	return overwrite, nil
}

func (w *Wizard) chooseKind(ctx context.Context) (Kind, error) {
	if w.Opts.BoardType != "" {
		kind, ok := LookupKind(w.Opts.BoardType)
		if !ok {
			return Kind{}, fmt.Errorf("unknown board type %q (choose from %s)", w.Opts.BoardType, strings.Join(KindNames(), ", "))
		}
		w.UI.Success("Board type: %s (from args)", DisplayName(kind.Name))
		w.UI.Blank()
		return kind, nil
	}

	all := Kinds()
	w.UI.Plain("Which agile board do you use?")
	for i, k := range all {
		w.UI.Plain("  %d. %s", i+1, k.Label())
	}
	w.UI.Blank()

	idx, err := w.Prompt.Choose(ctx, "Enter choice", len(all))
	if err != nil {
		return Kind{}, err
	}
	w.UI.Success("Selected: %s", DisplayName(all[idx].Name))
	w.UI.Blank()
	return all[idx], nil
}

func (w *Wizard) registerServer(kind string, server claudecfg.MCPServer) bool {
	result, err := claudecfg.RegisterMCPServer(w.Paths, w.Opts.ProjectDir, kind, server)
	if errors.Is(err, claudecfg.ErrRegistryMissing) {
		w.UI.Warn("%s not found - skipping MCP server setup", result.Path)
		return false
	}
	if err != nil {
		w.UI.Warn("Error updating %s: %v", result.Path, err)
		w.UI.Hint("You may need to manually add the MCP server configuration.")
		return false
	}
	if result.Replaced != nil {
		w.log().Debug("replaced mcp server", zap.String("kind", kind), zap.String("previous_command", result.Replaced.Command))
	}
	w.UI.Success("Updated MCP server config: %s", result.Path)
	return true
}

func (w *Wizard) allowPermission(kind string) string {
	wildcard := PermissionWildcard(kind)
	result, err := claudecfg.AllowPermission(w.Paths, wildcard)
	if err != nil {
		w.UI.Warn("Error updating %s: %v", result.Path, err)
		return ""
	}
	if !result.Added {
		w.UI.Info("Permission wildcard already exists: %s", wildcard)
		return result.Path
	}
	w.UI.Success("Added permission wildcard: %s", wildcard)
	if result.Overlaps != "" {
		w.UI.Info("Existing entry %s looks like it already matches; added the exact wildcard anyway", result.Overlaps)
	}
	w.UI.Success("Updated permissions: %s", result.Path)
	return result.Path
}

func (w *Wizard) updateGitignore() {
	status, err := claudecfg.EnsureGitignoreEntry(w.Opts.ProjectDir, ConfigRelPath, "Agile board config (project-specific)")
	if err != nil {
		w.UI.Warn("Could not update .gitignore: %v", err)
		return
	}
	switch status {
	case claudecfg.GitignoreAdded:
		w.UI.Success("Added to .gitignore: %s", ConfigRelPath)
	case claudecfg.GitignorePresent:
		w.UI.Info("Already in .gitignore: %s", ConfigRelPath)
	case claudecfg.GitignoreMissing:
		w.UI.Warn("No .gitignore found - add this to .gitignore: %s", ConfigRelPath)
	}
}

// value returns given when set and otherwise asks question.
func (w *Wizard) value(ctx context.Context, given, question string) (string, error) {
	if given != "" {
		return given, nil
	}
	return w.Prompt.Ask(ctx, question)
}

func (w *Wizard) placeholderNotice(name string) {
	w.UI.Section(name + " Configuration")
	w.UI.Blank()
	w.UI.Warn("%s integration is planned but not yet implemented.", name)
	w.UI.Plain("This will create a placeholder configuration.")
	w.UI.Blank()
}

func splitCommaList(value string) []string {
	parts := strings.Split(value, ",")
	items := make([]string, 0, len(parts))
	for _, part := range parts {
		item := strings.TrimSpace(part)
		if item == "" {
			continue
		}
		items = append(items, item)
	}
	return items
}
