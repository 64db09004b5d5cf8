package command

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/adamavenir/skillkit/internal/logging"
	"github.com/adamavenir/skillkit/internal/shell"
)

// Tool names, one per binary under cmd/.
const (
	PackName       = "skill-pack"
	BoardSetupName = "board-setup"
	ConvertName    = "doc2md"
	SharePointName = "sp-access"
	LintSetupName  = "lint-setup"
)

// Version is overwritten at build time using -ldflags.
var Version = "dev"

// Replaced in tests.
var (
	newRunner = func(log *zap.Logger) shell.Runner { return shell.NewExec(log) }
	now       = time.Now
)

// newToolCmd applies the settings every tool shares. Tools whose own flags
// claim --version pass an empty version.
func newToolCmd(use, short, long, version string) *cobra.Command {
	cmd := &cobra.Command{
		Use:           use,
		Short:         short,
		Long:          long,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	if version != "" {
		cmd.Version = version
		cmd.SetVersionTemplate(use + " version {{.Version}}\n")
	}
	cmd.SetOut(os.Stdout)
	cmd.SetErr(os.Stderr)
	cmd.Flags().BoolP("verbose", "v", false, "log diagnostic detail to stderr")
	return cmd
}

func commandLogger(cmd *cobra.Command) (*zap.Logger, error) {
	verbose, _ := cmd.Flags().GetBool("verbose")
	return logging.New(verbose)
}

func syncLogger(log *zap.Logger) {
	_ = log.Sync()
}

// interruptible cancels the returned context on SIGINT or SIGTERM.
func interruptible(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func workingDir(cmd *cobra.Command, flag string) (string, error) {
	dir, _ := cmd.Flags().GetString(flag)
	if dir == "" {
		return os.Getwd()
	}
	return absPath(dir)
}

func ExecutePack() error {
	return NewPackCmd().Execute()
}

func ExecuteBoardSetup() error {
	return NewBoardSetupCmd(Version).Execute()
}

func ExecuteConvert() error {
	return NewConvertCmd(Version).Execute()
}

func ExecuteSharePoint() error {
	return NewSharePointCmd(Version).Execute()
}

func ExecuteLintSetup() error {
	return NewLintSetupCmd(Version).Execute()
}
