package claudecfg

import (
	"errors"
	"fmt"
)

// ErrRegistryMissing is returned when ~/.claude.json does not exist. The
// registry is owned by Claude Code, so it is never created here.
var ErrRegistryMissing = errors.New("registry not found")

// MCPServer describes how Claude Code launches an MCP server.
type MCPServer struct {
	Command string            `json:"command"`
	Args    []string          `json:"args"`
	Env     map[string]string `json:"env,omitempty"`
}

// RegisterResult describes what RegisterMCPServer changed.
type RegisterResult struct {
	Path           string
	CreatedProject bool
	Replaced       *MCPServer
}

// newProjectEntry mirrors the entry Claude Code creates for a fresh project.
func newProjectEntry() map[string]any {
	return map[string]any{
		"allowedTools":               []any{},
		"mcpContextUris":             []any{},
		"mcpServers":                 map[string]any{},
		"enabledMcpjsonServers":      []any{},
		"disabledMcpjsonServers":     []any{},
		"hasTrustDialogAccepted":     true,
		"projectOnboardingSeenCount": 1,
	}
}

// RegisterMCPServer stores server under projects.<projectDir>.mcpServers.<name>
// in the registry, replacing any previous server of that name.
func RegisterMCPServer(paths Paths, projectDir, name string, server MCPServer) (RegisterResult, error) {
	path := paths.RegistryPath()
	result := RegisterResult{Path: path}

	doc, exists, err := LoadDocument(path)
	if err != nil {
		return result, err
	}
	if !exists {
		return result, fmt.Errorf("%w: %s", ErrRegistryMissing, path)
	}

	projects, err := doc.Object("projects")
	if err != nil {
		return result, err
	}
	if _, ok := projects[projectDir]; !ok {
		projects[projectDir] = newProjectEntry()
		result.CreatedProject = true
	}
	project, err := projects.Object(projectDir)
	if err != nil {
		return result, err
	}
	servers, err := project.Object("mcpServers")
	if err != nil {
		return result, err
	}

	if existing, ok := servers[name]; ok {
		var previous MCPServer
		if err := decode(existing, &previous); err == nil {
			result.Replaced = &previous
		}
	}
	servers[name] = server.toMap()

	if err := SaveDocument(path, doc); err != nil {
		return result, err
	}
	return result, nil
}

func (s MCPServer) toMap() map[string]any {
	args := make([]any, 0, len(s.Args))
	for _, arg := range s.Args {
		args = append(args, arg)
	}
	entry := map[string]any{
		"command": s.Command,
		"args":    args,
	}
	if len(s.Env) > 0 {
		env := make(map[string]any, len(s.Env))
		for key, value := range s.Env {
			env[key] = value
		}
		entry["env"] = env
	}
	return entry
}
