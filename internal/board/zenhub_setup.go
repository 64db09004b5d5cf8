package board

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/adamavenir/skillkit/internal/claudecfg"
)

// ErrOrganizationRequired is returned in --force mode when the organization
// could be neither fetched nor taken from flags.
var ErrOrganizationRequired = errors.New("organization ID is required in non-interactive mode")

func collectZenHub(ctx context.Context, w *Wizard) (Record, *claudecfg.MCPServer, error) {
	w.UI.Section("ZenHub Configuration")
	w.UI.Blank()

	token, err := w.zenhubToken(ctx)
	if err != nil {
		return nil, nil, err
	}
	w.UI.Blank()

	repositoryID, err := w.zenhubRepository(ctx)
	if err != nil {
		return nil, nil, err
	}
	w.UI.Blank()

	workspaceID, err := w.zenhubWorkspace(ctx, token)
	if err != nil {
		return nil, nil, err
	}
	w.UI.Blank()

	pipelineID, pipelineName, organizationID, err := w.zenhubPipeline(ctx, token, workspaceID)
	if err != nil {
		return nil, nil, err
	}
	w.UI.Blank()

	labels, err := w.zenhubLabels(ctx)
	if err != nil {
		return nil, nil, err
	}

	record := ZenHubConfig{
		BoardType:           "zenhub",
		WorkspaceID:         workspaceID,
		RepositoryID:        repositoryID,
		OrganizationID:      organizationID,
		DefaultPipelineID:   pipelineID,
		DefaultPipelineName: pipelineName,
		DefaultLabels:       labels,
	}
	server := &claudecfg.MCPServer{
		Command: "npx",
		Args:    ZenHubMCPServerArgs(workspaceID),
		Env:     map[string]string{"API_TOKEN": token},
	}
	return record, server, nil
}

func (w *Wizard) zenhubToken(ctx context.Context) (string, error) {
	if token := w.Opts.APIToken; token != "" {
		w.UI.Success("API Token: %s... (from args)", truncate(token, 10))
		return token, nil
	}
	w.UI.Plain("You'll need a ZenHub API Token:")
	w.UI.Plain("  Get it from: app.zenhub.com → Settings → API Tokens")
	w.UI.Blank()
	return w.Prompt.AskSecret(ctx, "ZenHub API Token (starts with 'zh_')")
}

func (w *Wizard) zenhubRepository(ctx context.Context) (string, error) {
	if w.Opts.RepositoryID != "" {
		return w.Opts.RepositoryID, nil
	}
	if w.GitHub != nil {
		repo, err := w.GitHub.DetectRepository(ctx, w.Opts.ProjectDir)
		if err == nil {
			w.UI.Success("Auto-detected repository: %s (ID: %s)", repo.NameWithOwner, repo.ID)
			return repo.ID, nil
		}
		w.log().Debug("repository auto-detection failed", zap.Error(err))
	}
	w.UI.Warn("Could not auto-detect GitHub repository ID")
	return w.Prompt.Ask(ctx, "GitHub Repository ID (GraphQL ID)")
}

func (w *Wizard) zenhubWorkspace(ctx context.Context, token string) (string, error) {
	if w.Opts.WorkspaceID != "" {
		w.UI.Success("Workspace ID: %s (from args)", w.Opts.WorkspaceID)
		return w.Opts.WorkspaceID, nil
	}

	name := w.Opts.WorkspaceName
	if name == "" {
		w.UI.Plain("To find your workspace, I need to search by name.")
		w.UI.Plain("You can get the workspace name from app.zenhub.com")
		w.UI.Blank()
		var err error
		if name, err = w.Prompt.Ask(ctx, "Workspace name (or part of it)"); err != nil {
			return "", err
		}
	}
	if name == "" {
		w.UI.Warn("Workspace name required. Please enter workspace ID manually.")
		return w.manualWorkspaceID(ctx)
	}

	w.UI.Info("Searching for workspaces matching '%s'...", name)
	workspaces, err := w.ZenHub.SearchWorkspaces(ctx, token, name)
	if err != nil {
		w.UI.Warn("%v", err)
	}
	if len(workspaces) == 0 {
		w.UI.Warn("No workspaces found. Please enter workspace ID manually.")
		return w.manualWorkspaceID(ctx)
	}

	w.UI.Blank()
	w.UI.Plain("Found workspaces:")
	for i, ws := range workspaces {
		w.UI.Plain("  %d. %s (ID: %s)", i+1, ws.Name, ws.ID)
		if len(ws.Repositories) > 0 {
			w.UI.Plain("     Repositories: %s", strings.Join(ws.Repositories, ", "))
		}
	}
	w.UI.Blank()

	if len(workspaces) == 1 {
		w.UI.Success("Selected: %s", workspaces[0].Name)
		return workspaces[0].ID, nil
	}
	idx, err := w.Prompt.Choose(ctx, "Select workspace", len(workspaces))
	if err != nil {
		return "", err
	}
	w.UI.Success("Selected: %s", workspaces[idx].Name)
	return workspaces[idx].ID, nil
}

func (w *Wizard) manualWorkspaceID(ctx context.Context) (string, error) {
	w.UI.Plain("You can find it at: app.zenhub.com/workspaces/{workspace-id}/...")
	return w.Prompt.Ask(ctx, "Workspace ID")
}

func (w *Wizard) zenhubPipeline(ctx context.Context, token, workspaceID string) (pipelineID, pipelineName, organizationID string, err error) {
	pipelineID = w.Opts.DefaultPipelineID
	pipelineName = w.Opts.DefaultPipelineName
	organizationID = w.Opts.OrganizationID

	if pipelineID != "" && organizationID != "" {
		w.UI.Success("Pipeline: %s (from args)", pipelineName)
		return pipelineID, pipelineName, organizationID, nil
	}

	w.UI.Info("Fetching workspace pipelines and organization...")
	details, fetchErr := w.ZenHub.Workspace(ctx, token, workspaceID)
	if fetchErr != nil {
		w.UI.Warn("%v", fetchErr)
	}

	if details.OrganizationID != "" && organizationID == "" {
		organizationID = details.OrganizationID
		w.UI.Success("Organization ID: %s", organizationID)
	}

	switch {
	case pipelineID != "":
	case len(details.Pipelines) == 0:
		w.UI.Warn("Could not fetch pipelines. Please enter manually.")
		if pipelineID, err = w.Prompt.Ask(ctx, "Default pipeline ID"); err != nil {
			return
		}
		if pipelineName, err = w.Prompt.AskDefault(ctx, "Default pipeline name", "Product Backlog"); err != nil {
			return
		}
	default:
		w.UI.Blank()
		w.UI.Plain("Available pipelines:")
		for i, p := range details.Pipelines {
			w.UI.Plain("  %d. %s (ID: %s)", i+1, p.Name, p.ID)
		}
		w.UI.Blank()
		var idx int
		if idx, err = w.Prompt.Choose(ctx, "Select default pipeline", len(details.Pipelines)); err != nil {
			return
		}
		pipelineID = details.Pipelines[idx].ID
		pipelineName = details.Pipelines[idx].Name
		w.UI.Success("Selected: %s", pipelineName)
	}

	if organizationID == "" {
		if w.Opts.Force {
			err = ErrOrganizationRequired
			return
		}
		w.UI.Warn("Could not fetch organization ID")
		if organizationID, err = w.Prompt.Ask(ctx, "Organization ID"); err != nil {
			return
		}
	}
	return pipelineID, pipelineName, organizationID, nil
}

func (w *Wizard) zenhubLabels(ctx context.Context) ([]string, error) {
	var input string
	switch {
	case w.Opts.DefaultLabels != "":
		input = w.Opts.DefaultLabels
		w.UI.Success("Labels: %s (from args)", input)
	case w.Opts.Force:
		w.UI.Success("Labels: (none)")
	default:
		var err error
		if input, err = w.Prompt.Ask(ctx, "Default labels (comma-separated, optional)"); err != nil {
			return nil, err
		}
	}
	return splitCommaList(input), nil
}

func truncate(value string, n int) string {
	if len(value) <= n {
		return value
	}
	return value[:n]
}
