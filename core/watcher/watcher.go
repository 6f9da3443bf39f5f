package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/tristendillon/dtsbundle/core/logger"
	"github.com/tristendillon/dtsbundle/core/models"
)

type FileWatcher interface {
	Watch(ctx context.Context) error
	Close() error
}

type FileWatcherImpl struct {
	FileWatcher *models.FileWatcher
	// relevant reports whether a slash-separated path relative to the root
	// is an input. Events for anything else are ignored.
	relevant func(relPath string) bool
}

func NewFileWatcher(rootDir string, excludePaths []string, relevant func(relPath string) bool) (*FileWatcherImpl, error) {
	fw, err := models.NewFileWatcher(rootDir, excludePaths)
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if relevant == nil {
		relevant = func(string) bool { return true }
	}
	return &FileWatcherImpl{
		FileWatcher: fw,
		relevant:    relevant,
	}, nil
}

// Watch blocks until ctx is done, running OnChange once per burst of
// relevant events.
func (fw *FileWatcherImpl) Watch(ctx context.Context) error {
	if err := fw.addWatchersRecursively(fw.FileWatcher.RootDir); err != nil {
		return fmt.Errorf("failed to add watchers: %w", err)
	}

	if err := fw.FileWatcher.OnStart(); err != nil {
		logger.Error("Watcher.OnStart failed: %v", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fw.FileWatcher.Watcher.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}

			if fw.shouldExcludePath(event.Name) {
				continue
			}

			if event.Has(fsnotify.Create) {
				if stat, err := os.Stat(event.Name); err == nil && stat.IsDir() {
					logger.Debug("Adding watcher for new directory: %s", event.Name)
					if err := fw.addWatchersRecursively(event.Name); err != nil {
						logger.Warn("Failed to watch %s: %v", event.Name, err)
					}
					continue
				}
			}

			if !fw.isRelevant(event) {
				continue
			}

			logger.Debug("File event: %s %s", event.Op, event.Name)
			fw.debounceGenerate()

		case err, ok := <-fw.FileWatcher.Watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			logger.Error("Watcher error: %v", err)
		}
	}
}

func (fw *FileWatcherImpl) isRelevant(event fsnotify.Event) bool {
	if event.Has(fsnotify.Chmod) && !event.Has(fsnotify.Write) {
		return false
	}

	relPath, err := filepath.Rel(fw.FileWatcher.RootDir, event.Name)
	if err != nil {
		return false
	}
	if fw.relevant(filepath.ToSlash(relPath)) {
		return true
	}

	// A removed directory may have held inputs.
	removed := event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename)
	return removed && filepath.Ext(event.Name) == ""
}

func (fw *FileWatcherImpl) debounceGenerate() {
	fw.FileWatcher.Mutex.Lock()
	defer fw.FileWatcher.Mutex.Unlock()

	if fw.FileWatcher.DebounceTimer != nil {
		fw.FileWatcher.DebounceTimer.Stop()
	}

	fw.FileWatcher.DebounceTimer = time.AfterFunc(fw.FileWatcher.Debounce, func() {
		fw.FileWatcher.RunMutex.Lock()
		defer fw.FileWatcher.RunMutex.Unlock()

		logger.Debug("File changes detected, regenerating...")
		if err := fw.FileWatcher.OnChange(); err != nil {
			logger.Error("Watcher.OnChange failed: %v", err)
		}
	})
}

func (fw *FileWatcherImpl) Close() error {
	fw.FileWatcher.Mutex.Lock()
	defer fw.FileWatcher.Mutex.Unlock()

	if fw.FileWatcher.DebounceTimer != nil {
		fw.FileWatcher.DebounceTimer.Stop()
	}

	if err := fw.FileWatcher.OnClose(); err != nil {
		logger.Error("Watcher.OnClose failed: %v", err)
	}

	return fw.FileWatcher.Watcher.Close()
}

// shouldExcludePath matches path against ExcludePaths, which may be relative
// to the root or absolute.
func (fw *FileWatcherImpl) shouldExcludePath(path string) bool {
	relPath, err := filepath.Rel(fw.FileWatcher.RootDir, path)
	if err != nil {
		return false
	}

	relPath = filepath.Clean(relPath)

	for _, excludePath := range fw.FileWatcher.ExcludePaths {
		if filepath.IsAbs(excludePath) {
			rel, err := filepath.Rel(fw.FileWatcher.RootDir, excludePath)
			if err != nil {
				continue
			}
			excludePath = rel
		}
		excludePath = filepath.Clean(excludePath)

		if relPath == excludePath {
			return true
		}
		if strings.HasPrefix(relPath, excludePath+string(filepath.Separator)) {
			return true
		}
	}

	return false
}

func (fw *FileWatcherImpl) addWatchersRecursively(root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if !info.IsDir() {
			return nil
		}

		if fw.shouldExcludePath(path) {
			logger.Debug("Excluding directory: %s", path)
			return filepath.SkipDir
		}

		logger.Debug("Adding watcher for: %s", path)
		if err := fw.FileWatcher.Watcher.Add(path); err != nil {
			return fmt.Errorf("failed to add watcher for %s: %w", path, err)
		}

		return nil
	})
}
