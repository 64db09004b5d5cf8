package command

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/adamavenir/skillkit/internal/archive"
)

const maxListedChanges = 20

// NewPackCmd builds skill-pack. Its --version flag overrides the archive
// version, so the binary carries no version flag of its own.
func NewPackCmd() *cobra.Command {
	cmd := newToolCmd(PackName,
		"Package committed skills into distributable zip archives",
		"Builds one zip of every committed file plus one zip per skill directory.\n"+
			"Only committed content is packaged; commit changes first to include them.",
		"")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		log, err := commandLogger(cmd)
		if err != nil {
			return writeCommandError(cmd, err)
		}
		defer syncLogger(log)

		ctx, stop := interruptible(cmd)
		defer stop()

		dir, err := workingDir(cmd, "repo")
		if err != nil {
			return writeCommandError(cmd, err)
		}
		runner := newRunner(log)
		root, err := archive.TopLevel(ctx, runner, dir)
		if err != nil {
			return writeCommandError(cmd, err)
		}

		unitsDir, _ := cmd.Flags().GetString("units-dir")
		marker, _ := cmd.Flags().GetString("marker")
		tree := &archive.GitTree{Dir: root, Runner: runner, Log: log}
		builder := &archive.Builder{
			Tree:     tree,
			UnitsDir: unitsDir,
			Marker:   marker,
			ModTime:  now(),
			Log:      log,
		}
		out := cmd.OutOrStdout()

		if list, _ := cmd.Flags().GetBool("list"); list {
			plan, err := builder.Plan(ctx)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			printPlan(out, plan)
			return nil
		}

		version, _ := cmd.Flags().GetString("version")
		if version == "" {
			version = tree.Version(ctx, now())
		}
		log.Debug("packaging", zap.String("root", root), zap.String("version", version))

		changes, err := tree.Changes(ctx)
		if err != nil {
			log.Warn("could not check for uncommitted changes", zap.Error(err))
		}
		printChanges(out, changes)

		output, _ := cmd.Flags().GetString("output")
		if !filepath.IsAbs(output) {
			output = filepath.Join(root, output)
		}
		name, _ := cmd.Flags().GetString("name")

		full, err := builder.BuildFull(ctx, filepath.Join(output, fmt.Sprintf("%s-%s.zip", name, version)))
		if err != nil {
			return writeCommandError(cmd, err)
		}
		fmt.Fprintf(out, "Full distribution:  %s  (%s)\n", relativeTo(root, full.Path), humanize.IBytes(uint64(full.Size)))

		units, err := builder.DiscoverUnits(ctx)
		if err != nil {
			return writeCommandError(cmd, err)
		}
		unitOutput := filepath.Join(output, "skills")
		fmt.Fprintf(out, "\nClaude Desktop skills (%d):\n", len(units))
		for _, unit := range units {
			built, err := builder.BuildUnit(ctx, unitOutput, unit)
			if errors.Is(err, archive.ErrEmptyUnit) {
				fmt.Fprintf(out, "  Warning: no tracked files found for skill '%s', skipping\n", unit)
				continue
			}
			if err != nil {
				return writeCommandError(cmd, err)
			}
			fmt.Fprintf(out, "  %s  (%s)\n", relativeTo(root, built.Path), humanize.IBytes(uint64(built.Size)))
		}

		printInstallInstructions(out, name, filepath.Base(full.Path), relativeTo(root, unitOutput))
		return nil
	}

	cmd.Flags().String("version", "", "override the version string (e.g. v1.2.0)")
	cmd.Flags().StringP("output", "o", "dist", "root output directory, relative to the repository root")
	cmd.Flags().Bool("list", false, "preview the files that would be packaged, then exit")
	cmd.Flags().String("name", "claude-code-skills", "base name of the full distribution archive")
	cmd.Flags().String("units-dir", "skills", "directory whose children are packaged individually")
	cmd.Flags().String("marker", "SKILL.md", "file that marks a child directory as a skill")
	cmd.Flags().String("repo", "", "repository to package (default: current directory)")

	return cmd
}

func printPlan(out io.Writer, plan archive.Plan) {
	fmt.Fprintf(out, "Full distribution (%d files):\n", len(plan.Files))
	for _, file := range plan.Files {
		fmt.Fprintf(out, "  %s\n", file)
	}
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Individual skills to package for Claude Desktop (%d):\n", len(plan.Units))
	for _, unit := range plan.Units {
		fmt.Fprintf(out, "  %s  (%d files)\n", unit.Name, len(unit.Files))
	}
}

func printChanges(out io.Writer, changes []string) {
	if len(changes) == 0 {
		return
	}
	fmt.Fprintln(out, "Warning: uncommitted changes will NOT be included in the archives.")
	fmt.Fprintln(out, "Run 'git commit' first to include them:")
	fmt.Fprintln(out)
	shown := changes
	if len(shown) > maxListedChanges {
		shown = shown[:maxListedChanges]
	}
	for _, change := range shown {
		fmt.Fprintf(out, "  %s\n", change)
	}
	if extra := len(changes) - len(shown); extra > 0 {
		fmt.Fprintf(out, "  ... and %d more\n", extra)
	}
	fmt.Fprintln(out)
}

func printInstallInstructions(out io.Writer, name, archiveFile, unitDir string) {
	fmt.Fprintln(out)
	fmt.Fprintln(out, "--- Install instructions ---")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Claude Code (Linux/Mac):")
	fmt.Fprintf(out, "  unzip %s -d %s && cd %s && bash install.sh\n", archiveFile, name, name)
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Claude Code (Windows):")
	fmt.Fprintf(out, "  Expand-Archive %s -DestinationPath %s\n", archiveFile, name)
	fmt.Fprintf(out, "  cd %s && .\\install.ps1\n", name)
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Claude Desktop:")
	fmt.Fprintln(out, "  Settings > Capabilities > Skills > Upload ZIP")
	fmt.Fprintf(out, "  Upload individual skill zips from: %s/\n", filepath.ToSlash(unitDir))
}
