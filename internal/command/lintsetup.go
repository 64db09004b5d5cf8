package command

import (
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/adamavenir/skillkit/internal/lintsetup"
	"github.com/adamavenir/skillkit/internal/ui"
)

// NewLintSetupCmd builds lint-setup.
func NewLintSetupCmd(version string) *cobra.Command {
	cmd := newToolCmd(LintSetupName,
		"Set up linters and pre-commit hooks for a project",
		"Detects the project's languages, installs their linters, writes\n"+
			".pre-commit-config.yaml and installs the git hooks.\n\n"+
			"Supports Python, TypeScript/JavaScript, Flutter/Dart, C# and Terraform.",
		version)

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		log, err := commandLogger(cmd)
		if err != nil {
			return writeCommandError(cmd, err)
		}
		defer syncLogger(log)

		ctx, stop := interruptible(cmd)
		defer stop()

		root, err := workingDir(cmd, "project-dir")
		if err != nil {
			return writeCommandError(cmd, err)
		}
		home, err := os.UserHomeDir()
		if err != nil {
			return writeCommandError(cmd, err)
		}

		setup := &lintsetup.Setup{
			Root:    root,
			Home:    home,
			PathEnv: os.Getenv("PATH"),
			Runner:  newRunner(log),
			UI:      ui.New(cmd.OutOrStdout()),
			Log:     log,
		}
		setup.Python, _ = cmd.Flags().GetString("python")
		setup.SkipInstall, _ = cmd.Flags().GetBool("skip-install")
		setup.RunHooks, _ = cmd.Flags().GetBool("run")

		if _, err := setup.Run(ctx); err != nil {
			if errors.Is(err, lintsetup.ErrNoLanguages) {
				return reportedError{err}
			}
			return writeCommandError(cmd, err)
		}
		return nil
	}

	cmd.Flags().String("project-dir", "", "project to configure (default: current directory)")
	cmd.Flags().Bool("skip-install", false, "do not install missing tools")
	cmd.Flags().Bool("run", false, "run every hook against all files after installing")
	cmd.Flags().String("python", "python3", "Python interpreter used for pip installs")

	return cmd
}
