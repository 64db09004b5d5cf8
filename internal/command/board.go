package command

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/adamavenir/skillkit/internal/board"
	"github.com/adamavenir/skillkit/internal/claudecfg"
	"github.com/adamavenir/skillkit/internal/prompt"
	"github.com/adamavenir/skillkit/internal/ui"
)

var errSetupCancelled = errors.New("setup cancelled")

// NewBoardSetupCmd builds board-setup.
func NewBoardSetupCmd(version string) *cobra.Command {
	cmd := newToolCmd(BoardSetupName,
		"Configure an agile board integration for this project",
		"Collects agile board settings interactively or from flags, writes\n"+
			".claude/agile-board-config.json, registers the board's MCP server in\n"+
			"~/.claude.json and allows its tools in ~/.claude/settings.json.\n\n"+
			"Supported board types: "+strings.Join(board.KindNames(), ", "),
		version)

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		log, err := commandLogger(cmd)
		if err != nil {
			return writeCommandError(cmd, err)
		}
		defer syncLogger(log)

		ctx, stop := interruptible(cmd)
		defer stop()

		projectDir, err := workingDir(cmd, "project-dir")
		if err != nil {
			return writeCommandError(cmd, err)
		}
		paths, err := claudecfg.DefaultPaths()
		if err != nil {
			return writeCommandError(cmd, err)
		}

		opts := boardOptions(cmd)
		opts.ProjectDir = projectDir
		endpoint, _ := cmd.Flags().GetString("zenhub-endpoint")

		out := cmd.OutOrStdout()
		wizard := &board.Wizard{
			Opts:   opts,
			Prompt: prompt.New(cmd.InOrStdin(), out),
			UI:     ui.New(out),
			Paths:  paths,
			ZenHub: board.NewZenHubClient(endpoint, log),
			GitHub: board.GitHubCLI{Runner: newRunner(log)},
			Log:    log,
		}

		outcome, err := wizard.Run(ctx)
		if err != nil && (errors.Is(err, prompt.ErrInterrupted) || ctx.Err() != nil) {
			fmt.Fprintln(out)
			fmt.Fprintln(out, "Setup cancelled")
			return reportedError{errSetupCancelled}
		}
		if err != nil {
			return writeCommandError(cmd, err)
		}
		log.Debug("board setup finished",
			zap.String("kind", outcome.Kind),
			zap.Bool("cancelled", outcome.Cancelled),
			zap.String("config", outcome.ConfigPath),
			zap.Bool("registered", outcome.Registered),
			zap.String("permissions", outcome.PermissionPath))
		return nil
	}

	flags := cmd.Flags()
	flags.String("project-dir", "", "project to configure (default: current directory)")
	flags.String("board-type", "", "board type: "+strings.Join(board.KindNames(), ", "))
	flags.Bool("force", false, "overwrite an existing config and never prompt for optional values")
	flags.String("api-token", "", "ZenHub API token (default: $ZENHUB_API_TOKEN)")
	flags.String("repository-id", "", "GitHub repository GraphQL ID")
	flags.String("workspace-name", "", "ZenHub workspace name to search for")
	flags.String("workspace-id", "", "ZenHub workspace ID")
	flags.String("organization-id", "", "ZenHub organization ID")
	flags.String("default-pipeline-id", "", "pipeline new issues are placed in")
	flags.String("default-pipeline-name", "", "display name of the default pipeline")
	flags.String("default-labels", "", "comma-separated labels applied to new issues")
	flags.String("jira-url", "", "Jira base URL")
	flags.String("project-key", "", "Jira project key")
	flags.String("team-id", "", "Linear team ID")
	flags.String("linear-workspace-id", "", "Linear workspace ID")
	flags.String("zenhub-endpoint", board.DefaultZenHubEndpoint, "ZenHub GraphQL endpoint")
	_ = flags.MarkHidden("zenhub-endpoint")

	return cmd
}

func boardOptions(cmd *cobra.Command) board.Options {
	get := func(name string) string {
		value, _ := cmd.Flags().GetString(name)
		return value
	}
	force, _ := cmd.Flags().GetBool("force")
	return board.Options{
		BoardType:           get("board-type"),
		Force:               force,
		APIToken:            flagOrEnv(get("api-token"), "ZENHUB_API_TOKEN"),
		RepositoryID:        get("repository-id"),
		WorkspaceName:       get("workspace-name"),
		WorkspaceID:         get("workspace-id"),
		OrganizationID:      get("organization-id"),
		DefaultPipelineID:   get("default-pipeline-id"),
		DefaultPipelineName: get("default-pipeline-name"),
		DefaultLabels:       get("default-labels"),
		JiraURL:             get("jira-url"),
		ProjectKey:          get("project-key"),
		TeamID:              get("team-id"),
		LinearWorkspaceID:   get("linear-workspace-id"),
	}
}
