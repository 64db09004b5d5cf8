package convert

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const watchDebounce = 500 * time.Millisecond

// FolderWatcher re-converts documents as they are created or written.
type FolderWatcher struct {
	conv      Converter
	inDir     string
	outDir    string
	recursive bool
	watcher   *fsnotify.Watcher
	pending   map[string]*time.Timer
	due       chan string
}

// NewFolderWatcher starts watching inDir. Outputs are always refreshed on
// change, whatever the converter's Overwrite setting.
func (c *Converter) NewFolderWatcher(inDir, outDir string, recursive bool) (*FolderWatcher, error) {
	if outDir == "" {
		outDir = filepath.Join(inDir, DefaultFolderOutput)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	fw := &FolderWatcher{
		conv:      *c,
		inDir:     inDir,
		outDir:    outDir,
		recursive: recursive,
		watcher:   watcher,
		pending:   map[string]*time.Timer{},
		due:       make(chan string, 16),
	}
	fw.conv.Overwrite = true

	if err := fw.addDir(inDir); err != nil {
		_ = watcher.Close()
		return nil, err
	}
	return fw, nil
}

func (fw *FolderWatcher) addDir(dir string) error {
	if err := fw.watcher.Add(dir); err != nil {
		return err
	}
	if !fw.recursive {
		return nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if samePath(path, fw.outDir) {
			continue
		}
		if err := fw.addDir(path); err != nil {
			fw.conv.log().Debug("watch: failed to add directory", zap.String("dir", path), zap.Error(err))
		}
	}
	return nil
}

// Run handles events until ctx is done.
func (fw *FolderWatcher) Run(ctx context.Context) error {
	defer fw.Close()
	fw.conv.UI.Info("Watching %s for changes (Ctrl+C to stop)", fw.inDir)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fw.watcher.Events:
			if !ok {
				return nil
			}
			fw.handle(ctx, event)
		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return nil
			}
			fw.conv.log().Warn("watch error", zap.Error(err))
		case path := <-fw.due:
			delete(fw.pending, path)
			fw.convert(ctx, path)
		}
	}
}

// Close stops the watcher and any pending conversions.
func (fw *FolderWatcher) Close() error {
	for path, timer := range fw.pending {
		timer.Stop()
		delete(fw.pending, path)
	}
	return fw.watcher.Close()
}

func (fw *FolderWatcher) handle(ctx context.Context, event fsnotify.Event) {
	if event.Has(fsnotify.Create) && fw.recursive {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if !samePath(event.Name, fw.outDir) {
				if err := fw.addDir(event.Name); err != nil {
					fw.conv.log().Debug("watch: failed to add directory", zap.String("dir", event.Name), zap.Error(err))
				}
			}
			return
		}
	}
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return
	}
	if !Supported(event.Name) {
		return
	}
	fw.schedule(ctx, event.Name)
}

func (fw *FolderWatcher) schedule(ctx context.Context, path string) {
	if timer, ok := fw.pending[path]; ok {
		timer.Stop()
	}
	fw.pending[path] = time.AfterFunc(watchDebounce, func() {
		select {
		case fw.due <- path:
		case <-ctx.Done():
		}
	})
}

func (fw *FolderWatcher) convert(ctx context.Context, path string) {
	if _, err := os.Stat(path); err != nil {
		return
	}
	out, err := FolderOutput(fw.inDir, fw.outDir, path, fw.recursive)
	if err == nil {
		_, err = fw.conv.ConvertFile(ctx, path, out)
	}
	if err != nil {
		fw.conv.UI.Fail("%s: %v", filepath.Base(path), err)
		for _, hint := range Hints(err) {
			fw.conv.UI.Hint("%s", hint)
		}
	}
}
