package command

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/adamavenir/skillkit/internal/convert"
	"github.com/adamavenir/skillkit/internal/ui"
)

// NewConvertCmd builds doc2md.
func NewConvertCmd(version string) *cobra.Command {
	cmd := newToolCmd(ConvertName,
		"Convert office documents to Markdown",
		"Converts Word, PDF, Excel, PowerPoint, OpenDocument, RTF and HTML files to\n"+
			"Markdown, one file at a time or a whole folder.",
		version)

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if show, _ := cmd.Flags().GetBool("supported-formats"); show {
			printSupportedFormats(out)
			return nil
		}

		file, _ := cmd.Flags().GetString("file")
		folder, _ := cmd.Flags().GetString("folder")
		if file == "" && folder == "" {
			return writeCommandError(cmd, errors.New("one of --file or --folder is required"))
		}
		watch, _ := cmd.Flags().GetBool("watch")
		if watch && folder == "" {
			return writeCommandError(cmd, errors.New("--watch requires --folder"))
		}

		log, err := commandLogger(cmd)
		if err != nil {
			return writeCommandError(cmd, err)
		}
		defer syncLogger(log)

		ctx, stop := interruptible(cmd)
		defer stop()

		printer := ui.New(out)
		printer.Quiet, _ = cmd.Flags().GetBool("quiet")
		conv := &convert.Converter{
			Runner: newRunner(log),
			UI:     printer,
			Log:    log,
		}
		conv.Overwrite, _ = cmd.Flags().GetBool("overwrite")
		conv.ExtractImages, _ = cmd.Flags().GetBool("extract-images")
		conv.DeleteOriginal, _ = cmd.Flags().GetBool("delete-original")
		output, _ := cmd.Flags().GetString("output")

		if file != "" {
			if _, err := conv.ConvertFile(ctx, file, output); err != nil {
				return writeCommandError(cmd, err)
			}
			return nil
		}

		recursive, _ := cmd.Flags().GetBool("recursive")
		summary, err := conv.ConvertFolder(ctx, folder, output, recursive)
		if err != nil {
			return writeCommandError(cmd, err)
		}
		printSummary(printer, summary)

		if watch {
			watcher, err := conv.NewFolderWatcher(folder, output, recursive)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			if err := watcher.Run(ctx); err != nil {
				return writeCommandError(cmd, err)
			}
			return nil
		}

		if !summary.OK() {
			return fmt.Errorf("%d file(s) failed to convert", summary.Failed)
		}
		return nil
	}

	flags := cmd.Flags()
	flags.StringP("file", "f", "", "convert a single file")
	flags.String("folder", "", "convert every supported file in a folder")
	flags.StringP("output", "o", "", "output file (single file) or folder (default: <folder>/Markdown)")
	flags.BoolP("recursive", "r", false, "include subfolders, preserving their structure")
	flags.Bool("overwrite", false, "replace existing Markdown files")
	flags.Bool("extract-images", false, "extract embedded images next to the output")
	flags.Bool("delete-original", false, "delete each source file after it converts")
	flags.BoolP("quiet", "q", false, "only print errors")
	flags.Bool("watch", false, "keep converting new or changed files in --folder until interrupted")
	flags.Bool("supported-formats", false, "list supported formats and exit")
	cmd.MarkFlagsMutuallyExclusive("file", "folder")

	return cmd
}

func printSupportedFormats(out io.Writer) {
	fmt.Fprintln(out, "Supported document formats:")
	for _, f := range convert.Formats() {
		fmt.Fprintf(out, "  %-8s - %s\n", f.Ext, f.Description)
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Required tools:")
	for _, tool := range convert.RequiredTools {
		fmt.Fprintf(out, "  - %s\n", tool)
	}
}

func printSummary(p *ui.Printer, s convert.Summary) {
	// The summary is printed even with --quiet.
	quiet := p.Quiet
	p.Quiet = false
	defer func() { p.Quiet = quiet }()

	p.Blank()
	p.Success("Successfully converted: %d", s.Succeeded+s.Skipped)
	if s.Skipped > 0 {
		p.Info("Skipped (already converted): %d", s.Skipped)
	}
	if s.Failed > 0 {
		p.Fail("Failed: %d", s.Failed)
	}
}
