package command

import (
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/adamavenir/skillkit/internal/sharepoint"
	"github.com/adamavenir/skillkit/internal/ui"
)

// NewSharePointCmd builds sp-access.
func NewSharePointCmd(version string) *cobra.Command {
	cmd := newToolCmd(SharePointName,
		"Browse SharePoint documents through Microsoft Graph",
		"Lists, downloads or inspects the item a SharePoint URL points at, using\n"+
			"an access token from the Azure CLI (run 'az login' first).\n\n"+
			"Set GRAPH_BASE_URL to target a national cloud.",
		version)

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		raw, _ := cmd.Flags().GetString("url")
		actionName, _ := cmd.Flags().GetString("action")
		action, err := sharepoint.ParseAction(actionName)
		if err != nil {
			return writeCommandError(cmd, err)
		}
		loc, err := sharepoint.ParseURL(raw)
		if err != nil {
			return writeCommandError(cmd, err)
		}

		log, err := commandLogger(cmd)
		if err != nil {
			return writeCommandError(cmd, err)
		}
		defer syncLogger(log)

		ctx, stop := interruptible(cmd)
		defer stop()

		baseURL := os.Getenv("GRAPH_BASE_URL")
		if baseURL == "" {
			baseURL = sharepoint.DefaultBaseURL
		}
		log.Debug("graph endpoint", zap.String("base_url", baseURL))

		printer := ui.New(cmd.OutOrStdout())
		printer.Info("SharePoint URL: %s", raw)

		session := &sharepoint.Session{
			Location: loc,
			Runner:   newRunner(log),
			BaseURL:  baseURL,
			UI:       printer,
			Log:      log,
		}
		output, _ := cmd.Flags().GetString("output")
		if err := session.Run(ctx, action, output); err != nil {
			return writeCommandError(cmd, err)
		}

		printer.Blank()
		printer.Success("Done!")
		return nil
	}

	cmd.Flags().String("url", "", "SharePoint URL of a site, folder or file")
	cmd.Flags().String("action", string(sharepoint.ActionList), "action to perform: list, download or metadata")
	cmd.Flags().StringP("output", "o", ".", "output directory for downloads")
	_ = cmd.MarkFlagRequired("url")

	return cmd
}

