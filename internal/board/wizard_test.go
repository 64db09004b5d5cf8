package board

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adamavenir/skillkit/internal/claudecfg"
	"github.com/adamavenir/skillkit/internal/prompt"
	"github.com/adamavenir/skillkit/internal/shell/shelltest"
	"github.com/adamavenir/skillkit/internal/ui"
)

type fakeZenHub struct {
	workspaces []map[string]any
	pipelines  []map[string]any
	orgID      string
	requests   []graphQLRequest
}

func (f *fakeZenHub) server(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req graphQLRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.requests = append(f.requests, req)
		if r.Header.Get("Authorization") != "Bearer zh_token" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"message":"bad token"}`))
			return
		}

		var data any
		switch {
		case strings.Contains(req.Query, "searchWorkspaces"):
			data = map[string]any{"viewer": map[string]any{"searchWorkspaces": map[string]any{"nodes": f.workspaces}}}
		default:
			workspace := map[string]any{"pipelinesConnection": map[string]any{"nodes": f.pipelines}}
			if f.orgID != "" {
				workspace["zenhubOrganization"] = map[string]any{"id": f.orgID}
			}
			data = map[string]any{"workspace": workspace}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"data": data})
	}))
	t.Cleanup(srv.Close)
	return srv
}

type harness struct {
	wizard  *Wizard
	out     *bytes.Buffer
	home    string
	project string
	gh      *shelltest.Fake
}

func newHarness(t *testing.T, input string, zh *fakeZenHub, opts Options) *harness {
	t.Helper()
	home := t.TempDir()
	project := t.TempDir()
	opts.ProjectDir = project

	out := &bytes.Buffer{}
	gh := shelltest.New().On("gh repo view --json id,nameWithOwner", shelltest.Response{
		Stdout: `{"id":"R_kgDOabc","nameWithOwner":"acme/widgets"}`,
	})

	if zh == nil {
		zh = &fakeZenHub{}
	}
	srv := zh.server(t)

	return &harness{
		wizard: &Wizard{
			Opts:   opts,
			Prompt: prompt.New(strings.NewReader(input), out),
			UI:     ui.New(out),
			Paths:  claudecfg.Paths{Home: home},
			ZenHub: NewZenHubClient(srv.URL, nil),
			GitHub: GitHubCLI{Runner: gh},
		},
		out:     out,
		home:    home,
		project: project,
		gh:      gh,
	}
}

func (h *harness) writeRegistry(t *testing.T) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(h.home, ".claude.json"), []byte(`{"projects":{}}`), 0o644))
}

func (h *harness) writeGitignore(t *testing.T) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(h.project, ".gitignore"), []byte("dist/\n"), 0o644))
}

func readDoc(t *testing.T, path string) map[string]any {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	return doc
}

func TestWizardZenHubNonInteractive(t *testing.T) {
	h := newHarness(t, "", nil, Options{
		BoardType:           "zenhub",
		Force:               true,
		APIToken:            "zh_token_abcdef",
		RepositoryID:        "R_repo",
		WorkspaceID:         "ws-1",
		OrganizationID:      "org-1",
		DefaultPipelineID:   "pl-1",
		DefaultPipelineName: "Product Backlog",
		DefaultLabels:       "bug, ,feature",
	})
	h.writeRegistry(t)
	h.writeGitignore(t)

	outcome, err := h.wizard.Run(context.Background())
	require.NoError(t, err)
	assert.False(t, outcome.Cancelled)
	assert.True(t, outcome.Registered)
	assert.Equal(t, "zenhub", outcome.Kind)

	data, err := os.ReadFile(outcome.ConfigPath)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "{\n  \"board_type\": \"zenhub\""), "board_type must be the first key")

	var record ZenHubConfig
	require.NoError(t, json.Unmarshal(data, &record))
	assert.Equal(t, ZenHubConfig{
		BoardType:           "zenhub",
		WorkspaceID:         "ws-1",
		RepositoryID:        "R_repo",
		OrganizationID:      "org-1",
		DefaultPipelineID:   "pl-1",
		DefaultPipelineName: "Product Backlog",
		DefaultLabels:       []string{"bug", "feature"},
	}, record)

	registry := readDoc(t, h.wizard.Paths.RegistryPath())
	server := registry["projects"].(map[string]any)[h.project].(map[string]any)["mcpServers"].(map[string]any)["zenhub"].(map[string]any)
	assert.Equal(t, "npx", server["command"])
	assert.Contains(t, server["args"], "X-zh-workspace:ws-1")
	assert.Equal(t, "zh_token_abcdef", server["env"].(map[string]any)["API_TOKEN"])

	settings := readDoc(t, filepath.Join(h.home, ".claude", "settings.json"))
	assert.Equal(t, []any{"mcp__zenhub__*"}, settings["permissions"].(map[string]any)["allow"])

	gitignore, err := os.ReadFile(filepath.Join(h.project, ".gitignore"))
	require.NoError(t, err)
	assert.Contains(t, string(gitignore), ConfigRelPath)

	assert.Contains(t, h.out.String(), "zh_token_a... (from args)")
	assert.False(t, h.gh.Ran("gh"), "repository id was given; gh must not run")
}

func TestWizardZenHubInteractiveChain(t *testing.T) {
	zh := &fakeZenHub{
		workspaces: []map[string]any{
			{"id": "ws-a", "name": "Alpha", "repositoriesConnection": map[string]any{"nodes": []any{map[string]any{"name": "widgets"}}}},
			{"id": "ws-b", "name": "Alpha Two", "repositoriesConnection": map[string]any{"nodes": []any{}}},
		},
		pipelines: []map[string]any{{"id": "pl-new", "name": "New Issues"}, {"id": "pl-back", "name": "Backlog"}},
		orgID:     "org-9",
	}
	h := newHarness(t, "zh_token\nalpha\n2\n1\nbug, feature\n", zh, Options{BoardType: "zenhub"})
	h.writeRegistry(t)

	outcome, err := h.wizard.Run(context.Background())
	require.NoError(t, err)

	var record ZenHubConfig
	require.NoError(t, json.Unmarshal(mustRead(t, outcome.ConfigPath), &record))
	assert.Equal(t, "R_kgDOabc", record.RepositoryID)
	assert.Equal(t, "ws-b", record.WorkspaceID)
	assert.Equal(t, "org-9", record.OrganizationID)
	assert.Equal(t, "pl-new", record.DefaultPipelineID)
	assert.Equal(t, "New Issues", record.DefaultPipelineName)
	assert.Equal(t, []string{"bug", "feature"}, record.DefaultLabels)

	require.Len(t, zh.requests, 2)
	assert.Equal(t, "alpha", zh.requests[0].Variables["query"])
	assert.Equal(t, "ws-b", zh.requests[1].Variables["id"])

	out := h.out.String()
	assert.Contains(t, out, "Auto-detected repository: acme/widgets")
	assert.Contains(t, out, "Repositories: widgets")
	assert.Contains(t, out, "No .gitignore found")
}

func mustRead(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return data
}

func TestWizardWorkspaceSearchFallsBackToManualEntry(t *testing.T) {
	zh := &fakeZenHub{orgID: "org-1", pipelines: []map[string]any{{"id": "p", "name": "P"}}}
	h := newHarness(t, "zh_token\nnothing\nws-manual\n1\n\n", zh, Options{BoardType: "zenhub", RepositoryID: "R"})

	outcome, err := h.wizard.Run(context.Background())
	require.NoError(t, err)

	var record ZenHubConfig
	require.NoError(t, json.Unmarshal(mustRead(t, outcome.ConfigPath), &record))
	assert.Equal(t, "ws-manual", record.WorkspaceID)
	assert.Equal(t, []string{}, record.DefaultLabels)
	assert.Contains(t, h.out.String(), "No workspaces found")
}

func TestWizardManualPipelineNameDefaults(t *testing.T) {
	zh := &fakeZenHub{orgID: "org-1"}
	h := newHarness(t, "pl-manual\n\n\n", zh, Options{
		BoardType:    "zenhub",
		APIToken:     "zh_token",
		RepositoryID: "R",
		WorkspaceID:  "ws-1",
	})

	outcome, err := h.wizard.Run(context.Background())
	require.NoError(t, err)

	var record ZenHubConfig
	require.NoError(t, json.Unmarshal(mustRead(t, outcome.ConfigPath), &record))
	assert.Equal(t, "pl-manual", record.DefaultPipelineID)
	assert.Equal(t, "Product Backlog", record.DefaultPipelineName)
	assert.Contains(t, h.out.String(), "Default pipeline name [Product Backlog]: ")
}

func TestWizardInvalidWorkspaceChoiceIsFatal(t *testing.T) {
	zh := &fakeZenHub{workspaces: []map[string]any{{"id": "a", "name": "A"}, {"id": "b", "name": "B"}}}
	h := newHarness(t, "zh_token\nx\n9\n", zh, Options{BoardType: "zenhub", RepositoryID: "R"})

	_, err := h.wizard.Run(context.Background())
	assert.True(t, errors.Is(err, prompt.ErrInvalidChoice), "got %v", err)
	_, statErr := os.Stat(h.wizard.ConfigPath())
	assert.True(t, os.IsNotExist(statErr))
}

func TestWizardForceWithoutOrganization(t *testing.T) {
	zh := &fakeZenHub{pipelines: []map[string]any{{"id": "p", "name": "P"}}}
	h := newHarness(t, "", zh, Options{
		BoardType:         "zenhub",
		Force:             true,
		APIToken:          "zh_token",
		RepositoryID:      "R",
		WorkspaceID:       "ws",
		DefaultPipelineID: "p",
	})

	_, err := h.wizard.Run(context.Background())
	assert.True(t, errors.Is(err, ErrOrganizationRequired), "got %v", err)
}

func TestWizardDeclinedOverwriteLeavesFileUnchanged(t *testing.T) {
	h := newHarness(t, "n\n", nil, Options{BoardType: "zenhub"})
	path := h.wizard.ConfigPath()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	original := []byte(`{"board_type": "zenhub", "workspace_id": "keep"}`)
	require.NoError(t, os.WriteFile(path, original, 0o644))

	outcome, err := h.wizard.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, outcome.Cancelled)
	assert.Equal(t, original, mustRead(t, path))
	assert.Contains(t, h.out.String(), "Setup cancelled")
}

func TestWizardExistingConfigWithoutInput(t *testing.T) {
	h := newHarness(t, "", nil, Options{BoardType: "zenhub"})
	path := h.wizard.ConfigPath()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(`{}`), 0o644))

	_, err := h.wizard.Run(context.Background())
	assert.True(t, errors.Is(err, ErrConfigExists), "got %v", err)
}

func TestWizardPlaceholderSkipsRegistryAndPermissions(t *testing.T) {
	h := newHarness(t, "", nil, Options{
		BoardType:  "jira",
		JiraURL:    "https://acme.atlassian.net/",
		ProjectKey: "proj",
	})
	h.writeRegistry(t)

	outcome, err := h.wizard.Run(context.Background())
	require.NoError(t, err)
	assert.False(t, outcome.Registered)

	var record JiraConfig
	require.NoError(t, json.Unmarshal(mustRead(t, outcome.ConfigPath), &record))
	assert.Equal(t, JiraConfig{BoardType: "jira", JiraURL: "https://acme.atlassian.net", ProjectKey: "PROJ", DefaultLabels: []string{}}, record)

	assert.Equal(t, `{"projects":{}}`, string(mustRead(t, filepath.Join(h.home, ".claude.json"))))
	_, statErr := os.Stat(filepath.Join(h.home, ".claude", "settings.json"))
	assert.True(t, os.IsNotExist(statErr), "placeholder kinds must not touch settings")
}

func TestWizardMenuSelection(t *testing.T) {
	h := newHarness(t, "3\nteam-1\nws-1\n", nil, Options{})

	outcome, err := h.wizard.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "linear", outcome.Kind)
	assert.Contains(t, h.out.String(), "  1. ZenHub\n  2. Jira (planned)\n  3. Linear (planned)\n")

	var record LinearConfig
	require.NoError(t, json.Unmarshal(mustRead(t, outcome.ConfigPath), &record))
	assert.Equal(t, "team-1", record.TeamID)
	assert.Equal(t, "ws-1", record.WorkspaceID)
}

func TestWizardMenuInvalidChoice(t *testing.T) {
	h := newHarness(t, "7\n", nil, Options{})
	_, err := h.wizard.Run(context.Background())
	assert.True(t, errors.Is(err, prompt.ErrInvalidChoice), "got %v", err)
}

func TestWizardUnknownBoardType(t *testing.T) {
	h := newHarness(t, "", nil, Options{BoardType: "trello"})
	_, err := h.wizard.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown board type")
}

func TestWizardMissingRegistryStillWritesPermissions(t *testing.T) {
	opts := Options{
		BoardType:      "zenhub",
		Force:          true,
		APIToken:       "zh_token",
		RepositoryID:   "R",
		WorkspaceID:    "ws",
		OrganizationID: "org",

		DefaultPipelineID: "p",
	}
	h := newHarness(t, "", nil, opts)

	outcome, err := h.wizard.Run(context.Background())
	require.NoError(t, err)
	assert.False(t, outcome.Registered)
	assert.Contains(t, h.out.String(), "skipping MCP server setup")
	assert.FileExists(t, filepath.Join(h.home, ".claude", "settings.json"))
}

func TestWizardRerunDoesNotDuplicatePermission(t *testing.T) {
	opts := Options{
		BoardType:         "zenhub",
		Force:             true,
		APIToken:          "zh_token",
		RepositoryID:      "R",
		WorkspaceID:       "ws",
		OrganizationID:    "org",
		DefaultPipelineID: "p",
	}
	h := newHarness(t, "", nil, opts)

	_, err := h.wizard.Run(context.Background())
	require.NoError(t, err)
	_, err = h.wizard.Run(context.Background())
	require.NoError(t, err)

	settings := readDoc(t, filepath.Join(h.home, ".claude", "settings.json"))
	assert.Equal(t, []any{"mcp__zenhub__*"}, settings["permissions"].(map[string]any)["allow"])
	assert.Contains(t, h.out.String(), "Permission wildcard already exists")
}

func TestZenHubClientReportsHTTPErrors(t *testing.T) {
	srv := (&fakeZenHub{}).server(t)
	client := NewZenHubClient(srv.URL, nil)

	_, err := client.SearchWorkspaces(context.Background(), "wrong", "x")
	var gqlErr *GraphQLError
	require.True(t, errors.As(err, &gqlErr), "got %v", err)
	assert.Equal(t, http.StatusUnauthorized, gqlErr.Status)
	assert.Contains(t, gqlErr.Error(), "bad token")
}

func TestZenHubClientReportsGraphQLErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":null,"errors":[{"message":"Field 'x' doesn't exist"}]}`))
	}))
	defer srv.Close()

	_, err := NewZenHubClient(srv.URL, nil).Workspace(context.Background(), "t", "ws")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Field 'x' doesn't exist")
}

func TestGitHubCLIFailure(t *testing.T) {
	gh := GitHubCLI{Runner: shelltest.New()}
	_, err := gh.DetectRepository(context.Background(), "/tmp")
	assert.Error(t, err)
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "Zenhub", DisplayName("zenhub"))
	assert.Equal(t, "mcp__linear__*", PermissionWildcard("linear"))
}
