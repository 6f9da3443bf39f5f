package models

import (
	"fmt"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const DefaultDebounce = 500 * time.Millisecond

type FileWatcher struct {
	Watcher       *fsnotify.Watcher
	RootDir       string
	ExcludePaths  []string
	Debounce      time.Duration
	DebounceTimer *time.Timer
	Mutex         sync.Mutex
	OnStart       func() error
	OnChange      func() error
	OnClose       func() error

	// RunMutex keeps OnChange runs from overlapping when one outlasts the
	// debounce window.
	RunMutex sync.Mutex
}

func NewFileWatcher(rootDir string, excludePaths []string) (*FileWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	fw := &FileWatcher{
		Watcher:      watcher,
		RootDir:      rootDir,
		Debounce:     DefaultDebounce,
		OnStart:      func() error { return fmt.Errorf("OnStart not set") },
		OnChange:     func() error { return fmt.Errorf("OnChange not set") },
		OnClose:      func() error { return nil },
		ExcludePaths: append([]string{".git", "node_modules"}, excludePaths...),
	}

	return fw, nil
}

func (fw *FileWatcher) AddOnStartFunc(onStart func() error) {
	fw.OnStart = onStart
}

func (fw *FileWatcher) AddOnChangeFunc(generateFunc func() error) {
	fw.OnChange = generateFunc
}

func (fw *FileWatcher) AddOnCloseFunc(onClose func() error) {
	fw.OnClose = onClose
}
