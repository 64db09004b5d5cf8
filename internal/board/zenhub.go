package board

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// DefaultZenHubEndpoint is the public ZenHub GraphQL API.
const DefaultZenHubEndpoint = "https://api.zenhub.com/public/graphql"

// ZenHubMCPURL is the remote MCP endpoint Claude Code connects to.
const ZenHubMCPURL = "https://api.zenhub.com/mcp"

// Workspace is a ZenHub workspace returned by a name search.
type Workspace struct {
	ID           string
	Name         string
	Repositories []string
}

// Pipeline is a column of a ZenHub workspace board.
type Pipeline struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// WorkspaceDetails holds the pipelines and owning organization of a workspace.
type WorkspaceDetails struct {
	Pipelines      []Pipeline
	OrganizationID string
}

// ZenHubAPI is the subset of the ZenHub GraphQL API the wizard needs.
type ZenHubAPI interface {
	SearchWorkspaces(ctx context.Context, token, name string) ([]Workspace, error)
	Workspace(ctx context.Context, token, id string) (WorkspaceDetails, error)
}

// GraphQLError carries the raw error payload of a GraphQL response.
type GraphQLError struct {
	Status   int
	Messages []string
	Body     string
}

func (e *GraphQLError) Error() string {
	if len(e.Messages) > 0 {
		return "GraphQL error: " + strings.Join(e.Messages, "; ")
	}
	return fmt.Sprintf("GraphQL request failed with status %d: %s", e.Status, strings.TrimSpace(e.Body))
}

// ZenHubClient talks to the ZenHub GraphQL endpoint.
type ZenHubClient struct {
	Endpoint string
	HTTP     *http.Client
	Log      *zap.Logger
}

// NewZenHubClient returns a client for endpoint, or the public API when empty.
func NewZenHubClient(endpoint string, log *zap.Logger) *ZenHubClient {
	if endpoint == "" {
		endpoint = DefaultZenHubEndpoint
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &ZenHubClient{
		Endpoint: endpoint,
		HTTP:     &http.Client{Timeout: 30 * time.Second},
		Log:      log,
	}
}

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

func (c *ZenHubClient) do(ctx context.Context, token, query string, variables map[string]any, out any) error {
	payload, err := json.Marshal(graphQLRequest{Query: query, Variables: variables})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	c.Log.Debug("zenhub graphql", zap.String("endpoint", c.Endpoint), zap.Any("variables", variables))
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &GraphQLError{Status: resp.StatusCode, Body: string(body)}
	}

	var envelope graphQLResponse
	if err := json.Unmarshal(body, &envelope); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	if len(envelope.Errors) > 0 {
		gqlErr := &GraphQLError{Status: resp.StatusCode, Body: string(body)}
		for _, e := range envelope.Errors {
			gqlErr.Messages = append(gqlErr.Messages, e.Message)
		}
		return gqlErr
	}
	if len(envelope.Data) == 0 || string(envelope.Data) == "null" {
		return &GraphQLError{Status: resp.StatusCode, Body: string(body)}
	}
	return json.Unmarshal(envelope.Data, out)
}

const searchWorkspacesQuery = `query SearchWorkspaces($query: String!) {
  viewer {
    searchWorkspaces(query: $query) {
      nodes {
        id
        name
        repositoriesConnection { nodes { id name ghId } }
      }
    }
  }
}`

// SearchWorkspaces finds workspaces whose name matches name. ZenHub cannot
// list every workspace, so a search term is required.
func (c *ZenHubClient) SearchWorkspaces(ctx context.Context, token, name string) ([]Workspace, error) {
	var data struct {
		Viewer struct {
			SearchWorkspaces struct {
				Nodes []struct {
					ID                     string `json:"id"`
					Name                   string `json:"name"`
					RepositoriesConnection struct {
						Nodes []struct {
							Name string `json:"name"`
						} `json:"nodes"`
					} `json:"repositoriesConnection"`
				} `json:"nodes"`
			} `json:"searchWorkspaces"`
		} `json:"viewer"`
	}
	if err := c.do(ctx, token, searchWorkspacesQuery, map[string]any{"query": name}, &data); err != nil {
		return nil, err
	}

	var workspaces []Workspace
	for _, node := range data.Viewer.SearchWorkspaces.Nodes {
		ws := Workspace{ID: node.ID, Name: node.Name}
		for _, repo := range node.RepositoriesConnection.Nodes {
			ws.Repositories = append(ws.Repositories, repo.Name)
		}
		workspaces = append(workspaces, ws)
	}
	return workspaces, nil
}

const workspaceQuery = `query Workspace($id: ID!) {
  workspace(id: $id) {
    pipelinesConnection { nodes { id name } }
    zenhubOrganization { id }
  }
}`

// Workspace fetches the pipelines and organization of a workspace.
func (c *ZenHubClient) Workspace(ctx context.Context, token, id string) (WorkspaceDetails, error) {
	var data struct {
		Workspace *struct {
			PipelinesConnection struct {
				Nodes []Pipeline `json:"nodes"`
			} `json:"pipelinesConnection"`
			ZenhubOrganization *struct {
				ID string `json:"id"`
			} `json:"zenhubOrganization"`
		} `json:"workspace"`
	}
	if err := c.do(ctx, token, workspaceQuery, map[string]any{"id": id}, &data); err != nil {
		return WorkspaceDetails{}, err
	}
	if data.Workspace == nil {
		return WorkspaceDetails{}, fmt.Errorf("workspace %s not found", id)
	}
	details := WorkspaceDetails{Pipelines: data.Workspace.PipelinesConnection.Nodes}
	if data.Workspace.ZenhubOrganization != nil {
		details.OrganizationID = data.Workspace.ZenhubOrganization.ID
	}
	return details, nil
}

// ZenHubMCPServerArgs builds the mcp-remote arguments for a workspace.
func ZenHubMCPServerArgs(workspaceID string) []string {
	return []string{
		"-y",
		"mcp-remote",
		ZenHubMCPURL,
		"--header",
		"Authorization:${API_TOKEN}",
		"--header",
		"X-zh-workspace:" + workspaceID,
	}
}
