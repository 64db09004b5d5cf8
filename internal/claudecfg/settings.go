package claudecfg

import (
	"fmt"

	"github.com/gobwas/glob"
)

// Permissions is the typed view of the settings "permissions" object.
type Permissions struct {
	Allow []string `json:"allow"`
	Deny  []string `json:"deny"`
	Ask   []string `json:"ask"`
}

// AllowResult reports the outcome of AllowPermission.
type AllowResult struct {
	Path  string
	Added bool
	// Overlaps names an existing broader entry whose wildcard also matches
	// the pattern. It is informational; the pattern is appended regardless.
	Overlaps string
}

// AllowPermission appends pattern to permissions.allow in the settings file,
// creating the file and its parents when absent. Only an identical entry
// prevents the append.
func AllowPermission(paths Paths, pattern string) (AllowResult, error) {
	path := paths.SettingsPath()
	result := AllowResult{Path: path}

	doc, _, err := LoadDocument(path)
	if err != nil {
		return result, err
	}
	permissions, err := doc.Object("permissions")
	if err != nil {
		return result, err
	}

	var current Permissions
	if err := decode(map[string]any(permissions), &current); err != nil {
		return result, fmt.Errorf("decode permissions: %w", err)
	}

	for _, entry := range current.Allow {
		if entry == pattern {
			return result, nil
		}
	}
	result.Overlaps = overlappingPattern(current.Allow, pattern)

	allow := make([]any, 0, len(current.Allow)+1)
	for _, entry := range current.Allow {
		allow = append(allow, entry)
	}
	permissions["allow"] = append(allow, pattern)

	if err := SaveDocument(path, doc); err != nil {
		return result, err
	}
	result.Added = true
	return result, nil
}

// overlappingPattern returns the first entry whose wildcard matches pattern
// literally.
func overlappingPattern(entries []string, pattern string) string {
	for _, entry := range entries {
		matcher, err := glob.Compile(entry)
		if err != nil {
			continue
		}
		if matcher.Match(pattern) {
			return entry
		}
	}
	return ""
}
