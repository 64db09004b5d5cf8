package board

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/adamavenir/skillkit/internal/shell"
)

// Repository identifies a GitHub repository by its GraphQL node id.
type Repository struct {
	ID            string `json:"id"`
	NameWithOwner string `json:"nameWithOwner"`
}

// RepoDetector finds the GitHub repository of a project directory.
type RepoDetector interface {
	DetectRepository(ctx context.Context, dir string) (Repository, error)
}

// GitHubCLI detects repositories through an authenticated `gh` CLI.
type GitHubCLI struct {
	Runner shell.Runner
}

func (g GitHubCLI) DetectRepository(ctx context.Context, dir string) (Repository, error) {
	res, err := g.Runner.Run(ctx, dir, "gh", "repo", "view", "--json", "id,nameWithOwner")
	if err != nil {
		return Repository{}, err
	}
	var repo Repository
	if err := json.Unmarshal(res.Stdout, &repo); err != nil {
		return Repository{}, fmt.Errorf("parse gh output: %w", err)
	}
	if repo.ID == "" {
		return Repository{}, fmt.Errorf("gh returned no repository id")
	}
	return repo, nil
}
