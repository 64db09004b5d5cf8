// Package sharepoint browses SharePoint document libraries through Microsoft
// Graph, authenticating with an Azure CLI access token.
package sharepoint

import (
	"fmt"
	"net/url"
	"strings"
)

// siteMarkers are the path prefixes that introduce a site collection.
var siteMarkers = []string{"/sites/", "/teams/"}

// Location is a sharing URL split into the parts Graph addresses
// separately.
type Location struct {
	Host     string
	SitePath string
	ItemPath string
}

func (l Location) String() string {
	return l.Host + l.SitePath + l.ItemPath
}

// ParseURL decomposes a SharePoint URL. An id query parameter naming a site
// path wins over the URL path, since viewer links carry the real item there.
// This mirrors common link shapes and is not a platform contract.
func ParseURL(raw string) (Location, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return Location{}, fmt.Errorf("invalid url: %w", err)
	}
	if u.Host == "" {
		return Location{}, fmt.Errorf("invalid url %q: missing host", raw)
	}

	loc := Location{Host: u.Host}
	loc.SitePath, loc.ItemPath = splitSitePath(u.Path)

	if id := u.Query().Get("id"); id != "" {
		if site, item, ok := splitIDParam(id); ok {
			loc.SitePath, loc.ItemPath = site, item
		}
	}
	return loc, nil
}

func splitSitePath(path string) (site, item string) {
	idx, marker := -1, ""
	for _, m := range siteMarkers {
		if i := strings.Index(path, m); i >= 0 && (idx < 0 || i < idx) {
			idx, marker = i, m
		}
	}
	if idx < 0 {
		return "", path
	}

	rest := path[idx+len(marker):]
	name, tail, found := strings.Cut(rest, "/")
	site = marker + name
	if found {
		item = "/" + tail
	}
	return site, item
}

func splitIDParam(id string) (site, item string, ok bool) {
	matched := false
	for _, m := range siteMarkers {
		if strings.HasPrefix(id, m) {
			matched = true
			break
		}
	}
	if !matched {
		return "", "", false
	}
	// "", "sites", name, library, rest...
	parts := strings.SplitN(id, "/", 5)
	if len(parts) < 4 {
		return "", "", false
	}
	return "/" + parts[1] + "/" + parts[2], "/" + strings.Join(parts[3:], "/"), true
}

// DriveRelativePath drops the library segment from the item path. An empty
// result addresses the library root.
func (l Location) DriveRelativePath() string {
	trimmed := strings.Trim(l.ItemPath, "/")
	_, rest, found := strings.Cut(trimmed, "/")
	if !found {
		return ""
	}
	return rest
}

// drivePathEndpoint addresses rel inside a drive, escaping each segment.
func drivePathEndpoint(driveID, rel, suffix string) string {
	if rel == "" {
		return "/drives/" + driveID + "/root" + strings.TrimPrefix(suffix, ":")
	}
	segments := strings.Split(rel, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return "/drives/" + driveID + "/root:/" + strings.Join(segments, "/") + suffix
}
