// Package board implements the agile board setup wizard: it collects the
// settings of one board integration, writes the project-local board config and
// registers the board's MCP server with Claude Code.
package board

import (
	"context"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/adamavenir/skillkit/internal/claudecfg"
)

// Record is the project-local config document of one board kind. Each kind
// serializes its own struct with board_type as the first key.
type Record any

// Kind is one supported board integration.
type Kind struct {
	Name  string
	Title string
	// Implemented kinds register an MCP server and a permission; placeholders
	// only write their record.
	Implemented bool
	Collect     func(ctx context.Context, w *Wizard) (Record, *claudecfg.MCPServer, error)
}

var kinds = []Kind{
	{Name: "zenhub", Title: "ZenHub", Implemented: true, Collect: collectZenHub},
	{Name: "jira", Title: "Jira", Collect: collectJira},
	{Name: "linear", Title: "Linear", Collect: collectLinear},
}

// Label is the entry shown in the interactive board menu.
func (k Kind) Label() string {
	if k.Implemented {
		return k.Title
	}
	return k.Title + " (planned)"
}

// Kinds returns the registered board kinds in menu order.
func Kinds() []Kind {
	out := make([]Kind, len(kinds))
	copy(out, kinds)
	return out
}

// KindNames returns the registered kind names.
func KindNames() []string {
	names := make([]string, 0, len(kinds))
	for _, k := range kinds {
		names = append(names, k.Name)
	}
	return names
}

// LookupKind finds a kind by name, case-insensitively.
func LookupKind(name string) (Kind, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, k := range kinds {
		if k.Name == name {
			return k, true
		}
	}
	return Kind{}, false
}

// DisplayName title-cases a kind name for messages.
func DisplayName(name string) string {
	return cases.Title(language.English).String(name)
}

// PermissionWildcard is the settings entry that auto-approves every MCP tool
// of the kind's server.
func PermissionWildcard(kind string) string {
	return "mcp__" + kind + "__*"
}

// ZenHubConfig is the project-local record for ZenHub.
type ZenHubConfig struct {
	BoardType           string   `json:"board_type"`
	WorkspaceID         string   `json:"workspace_id"`
	RepositoryID        string   `json:"repository_id"`
	OrganizationID      string   `json:"organization_id"`
	DefaultPipelineID   string   `json:"default_pipeline_id"`
	DefaultPipelineName string   `json:"default_pipeline_name"`
	DefaultLabels       []string `json:"default_labels"`
}

// JiraConfig is the placeholder record for Jira.
type JiraConfig struct {
	BoardType     string   `json:"board_type"`
	JiraURL       string   `json:"jira_url"`
	ProjectKey    string   `json:"project_key"`
	DefaultLabels []string `json:"default_labels"`
}

// LinearConfig is the placeholder record for Linear.
type LinearConfig struct {
	BoardType     string   `json:"board_type"`
	TeamID        string   `json:"team_id"`
	WorkspaceID   string   `json:"workspace_id"`
	DefaultLabels []string `json:"default_labels"`
}

func collectJira(ctx context.Context, w *Wizard) (Record, *claudecfg.MCPServer, error) {
	w.placeholderNotice("Jira")

	jiraURL, err := w.value(ctx, w.Opts.JiraURL, "Jira URL (e.g., https://your-company.atlassian.net)")
	if err != nil {
		return nil, nil, err
	}
	projectKey, err := w.value(ctx, w.Opts.ProjectKey, "Project key (e.g., PROJ)")
	if err != nil {
		return nil, nil, err
	}
	return JiraConfig{
		BoardType:     "jira",
		JiraURL:       strings.TrimRight(jiraURL, "/"),
		ProjectKey:    strings.ToUpper(projectKey),
		DefaultLabels: []string{},
	}, nil, nil
}

func collectLinear(ctx context.Context, w *Wizard) (Record, *claudecfg.MCPServer, error) {
	w.placeholderNotice("Linear")

	teamID, err := w.value(ctx, w.Opts.TeamID, "Team ID")
	if err != nil {
		return nil, nil, err
	}
	workspaceID, err := w.value(ctx, w.Opts.LinearWorkspaceID, "Workspace ID")
	if err != nil {
		return nil, nil, err
	}
	return LinearConfig{
		BoardType:     "linear",
		TeamID:        teamID,
		WorkspaceID:   workspaceID,
		DefaultLabels: []string{},
	}, nil, nil
}
