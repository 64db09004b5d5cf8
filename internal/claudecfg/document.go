// Package claudecfg reads and updates the Claude configuration documents in
// the user's home directory (~/.claude.json and ~/.claude/settings.json) and
// the project's .gitignore.
//
// Every update is a single load, merge, persist cycle: the document is read
// once into a generic map so unknown keys survive, mutated in memory, and
// written back once. There is no locking; when two processes update the same
// file concurrently the last writer wins.
package claudecfg

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/mitchellh/mapstructure"
)

// Document is a JSON object loaded without a fixed schema.
type Document map[string]any

// Paths locates the home-directory documents.
type Paths struct {
	Home string
}

// DefaultPaths resolves the current user's home directory.
func DefaultPaths() (Paths, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Paths{}, err
	}
	return Paths{Home: home}, nil
}

// RegistryPath is the per-user project registry (~/.claude.json).
func (p Paths) RegistryPath() string {
	return filepath.Join(p.Home, ".claude.json")
}

// SettingsPath is the per-user settings file (~/.claude/settings.json).
func (p Paths) SettingsPath() string {
	return filepath.Join(p.Home, ".claude", "settings.json")
}

// LoadDocument reads path. A missing file yields an empty document and
// exists=false.
func LoadDocument(path string) (doc Document, exists bool, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Document{}, false, nil
		}
		return nil, false, err
	}
	doc = Document{}
	if len(bytes.TrimSpace(data)) == 0 {
		return doc, true, nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return nil, true, fmt.Errorf("parse %s: %w", path, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, true, fmt.Errorf("parse %s: unexpected data after top-level object", path)
	}
	return doc, true, nil
}

// SaveDocument writes doc as two-space indented JSON, creating parent
// directories as needed.
func SaveDocument(path string, doc any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create %s: %w", filepath.Dir(path), err)
	}
	data, err := MarshalIndent(doc)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// MarshalIndent encodes v with two-space indentation, no HTML escaping and a
// trailing newline.
func MarshalIndent(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}
	return buf.Bytes(), nil
}

// Object returns the nested object at key, creating it when absent.
func (d Document) Object(key string) (Document, error) {
	switch value := d[key].(type) {
	case nil:
		child := Document{}
		d[key] = map[string]any(child)
		return child, nil
	case map[string]any:
		return Document(value), nil
	default:
		return nil, fmt.Errorf("%q is %T, expected an object", key, value)
	}
}

// decode fills out from a generic value using the json field tags.
func decode(input, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:  out,
		TagName: "json",
	})
	if err != nil {
		return err
	}
	return decoder.Decode(input)
}
