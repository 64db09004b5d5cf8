package sharepoint

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/adamavenir/skillkit/internal/shell"
	"github.com/adamavenir/skillkit/internal/ui"
)

// Action is what the session does once the library is resolved.
type Action string

const (
	ActionList     Action = "list"
	ActionDownload Action = "download"
	ActionMetadata Action = "metadata"
)

// Actions lists the valid actions.
var Actions = []Action{ActionList, ActionDownload, ActionMetadata}

// ParseAction validates an action name.
func ParseAction(name string) (Action, error) {
	for _, a := range Actions {
		if string(a) == name {
			return a, nil
		}
	}
	names := make([]string, len(Actions))
	for i, a := range Actions {
		names[i] = string(a)
	}
	return "", fmt.Errorf("invalid action %q (choose from %s)", name, strings.Join(names, ", "))
}

var siteHints = []string{
	"Possible issues:",
	"  - Tenant mismatch (use correct `az login --tenant <id>`)",
	"  - No permission to access this site",
	"  - Site path incorrect",
}

// Session runs the resolve-then-act pipeline for one URL. Every step is
// fatal.
type Session struct {
	Location Location
	Runner   shell.Runner
	BaseURL  string
	UI       *ui.Printer
	Log      *zap.Logger
	Now      func() time.Time

	client  *Client
	siteID  string
	driveID string
}

func (s *Session) log() *zap.Logger {
	if s.Log == nil {
		return zap.NewNop()
	}
	return s.Log
}

func (s *Session) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

// Run authenticates, resolves the site and library, then performs action.
func (s *Session) Run(ctx context.Context, action Action, outputDir string) error {
	s.UI.Info("Parsed:")
	s.UI.Plain("   Host: %s", s.Location.Host)
	s.UI.Plain("   Site: %s", s.Location.SitePath)
	s.UI.Plain("   Path: %s", s.Location.ItemPath)
	s.UI.Blank()

	if err := s.Connect(ctx); err != nil {
		return err
	}

	switch action {
	case ActionList:
		return s.List(ctx)
	case ActionDownload:
		return s.Download(ctx, outputDir)
	case ActionMetadata:
		return s.Metadata(ctx)
	default:
		return fmt.Errorf("invalid action %q", action)
	}
}

// Connect performs the authentication and resolution steps.
func (s *Session) Connect(ctx context.Context) error {
	az := AzureCLI{Runner: s.Runner}
	if err := az.CheckInstalled(ctx); err != nil {
		return err
	}
	token, err := az.AccessToken(ctx)
	if err != nil {
		return err
	}
	s.inspectToken(token)
	s.client = NewClient(s.BaseURL, token, s.log())

	site, err := s.client.Site(ctx, s.Location.Host, s.Location.SitePath)
	if err != nil {
		return &StepError{Step: "Could not access site " + s.Location.Host + s.Location.SitePath, Err: err, Hints: siteHints}
	}
	s.siteID = site.ID
	s.UI.Success("Site: %s (%s)", site.DisplayName, site.Name)

	drives, err := s.client.Drives(ctx, site.ID)
	if err != nil {
		return &StepError{Step: "Could not get document libraries", Err: err}
	}
	if len(drives) == 0 {
		return &StepError{Step: "No document libraries found"}
	}
	s.driveID = drives[0].ID
	s.UI.Success("Library: %s", drives[0].Name)
	return nil
}

func (s *Session) inspectToken(token string) {
	claims, err := InspectToken(token)
	if err != nil {
		s.log().Debug("access token is not a readable JWT", zap.Error(err))
		return
	}
	s.log().Debug("access token",
		zap.Strings("audience", claims.Audience),
		zap.Time("expires_at", claims.ExpiresAt),
		zap.String("tenant", claims.TenantID),
		zap.String("user", claims.User))
	if claims.Expired(s.now()) {
		s.UI.Warn("Access token expired at %s; run az login again if requests fail", claims.ExpiresAt.Format(time.RFC3339))
	}
}

// SortItems orders folders before files, each group by name.
func SortItems(items []Item) []Item {
	sorted := make([]Item, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		fi, fj := sorted[i].IsFolder(), sorted[j].IsFolder()
		if fi != fj {
			return fi
		}
		return sorted[i].Name < sorted[j].Name
	})
	return sorted
}

// List prints the children of the item path.
func (s *Session) List(ctx context.Context) error {
	path := s.Location.ItemPath
	items, err := s.client.Children(ctx, s.driveID, s.Location.DriveRelativePath())
	if err != nil {
		return &StepError{Step: "Could not list folder " + path, Err: err}
	}

	s.UI.Blank()
	s.UI.Plain("Folder: %s", path)
	s.UI.Plain("Items: %d", len(items))
	s.UI.Blank()

	var folders, files []Item
	for _, item := range SortItems(items) {
		switch {
		case item.IsFolder():
			folders = append(folders, item)
		case item.IsFile():
			files = append(files, item)
		}
	}
	if len(folders) > 0 {
		s.UI.Plain("Folders:")
		for _, item := range folders {
			s.UI.Plain("  📁 %s (%d items, %s)", item.Name, item.Folder.ChildCount, humanize.IBytes(uint64(item.Size)))
		}
	}
	if len(files) > 0 {
		if len(folders) > 0 {
			s.UI.Blank()
		}
		s.UI.Plain("Files:")
		for _, item := range files {
			s.UI.Plain("  📄 %s (%s, modified: %s)", item.Name, humanize.IBytes(uint64(item.Size)), datePart(item.LastModifiedDateTime))
		}
	}
	return nil
}

func (s *Session) item(ctx context.Context, notFound string) (Item, error) {
	item, err := s.client.Item(ctx, s.driveID, s.Location.DriveRelativePath())
	if err != nil {
		return Item{}, &StepError{Step: notFound + ": " + s.Location.ItemPath, Err: err}
	}
	return item, nil
}

// Download saves the item at the item path into outputDir.
func (s *Session) Download(ctx context.Context, outputDir string) error {
	item, err := s.item(ctx, "File not found")
	if err != nil {
		return err
	}
	s.UI.Info("Downloading: %s", item.Name)
	path, n, err := s.client.Download(ctx, item, outputDir)
	if err != nil {
		return &StepError{Step: "Download failed", Err: err}
	}
	s.UI.Success("Downloaded to: %s (%s)", path, humanize.IBytes(uint64(n)))
	return nil
}

// Metadata prints the properties of the item at the item path.
func (s *Session) Metadata(ctx context.Context) error {
	item, err := s.item(ctx, "Item not found")
	if err != nil {
		return err
	}
	kind := "File"
	if item.IsFolder() {
		kind = "Folder"
	}

	s.UI.Blank()
	s.UI.Plain("Metadata:")
	s.UI.Plain("  Name: %s", item.Name)
	s.UI.Plain("  Type: %s", kind)
	s.UI.Plain("  Size: %s", humanize.IBytes(uint64(item.Size)))
	s.UI.Plain("  Created: %s", datePart(item.CreatedDateTime))
	s.UI.Plain("  Modified: %s", datePart(item.LastModifiedDateTime))
	s.UI.Plain("  Created By: %s", orUnknown(item.CreatedBy.User.DisplayName))
	s.UI.Plain("  Modified By: %s", orUnknown(item.LastModifiedBy.User.DisplayName))
	s.UI.Plain("  Web URL: %s", orUnknown(item.WebURL))
	if item.IsFolder() {
		s.UI.Plain("  Child Count: %d", item.Folder.ChildCount)
	}
	return nil
}

func datePart(timestamp string) string {
	if timestamp == "" {
		return "Unknown"
	}
	if len(timestamp) > 10 {
		return timestamp[:10]
	}
	return timestamp
}

func orUnknown(value string) string {
	if value == "" {
		return "Unknown"
	}
	return value
}
