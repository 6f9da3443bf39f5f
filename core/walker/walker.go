package walker

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/tristendillon/dtsbundle/core/logger"
	"github.com/tristendillon/dtsbundle/core/models"
)

type DeclarationWalker struct {
	Root    string
	Include []string
	Exclude []string
	// Skip holds paths (files or directories) that are never inputs, such as
	// the bundle outputs.
	Skip []string
}

var defaultExclude = []string{
	"**/.git/**",
	"**/node_modules/**",
}

func NewDeclarationWalker(root string, include, exclude, skip []string) *DeclarationWalker {
	return &DeclarationWalker{
		Root:    root,
		Include: include,
		Exclude: append(append([]string{}, defaultExclude...), exclude...),
		Skip:    skip,
	}
}

// Walk returns every matching file under Root sorted by relative path, so a
// run sees its inputs in a stable order.
func (w *DeclarationWalker) Walk() ([]models.SourceFile, error) {
	var discovered []models.SourceFile

	skip := make(map[string]bool, len(w.Skip))
	for _, s := range w.Skip {
		if abs, err := filepath.Abs(s); err == nil {
			skip[abs] = true
		}
	}

	err := filepath.WalkDir(w.Root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if abs, err := filepath.Abs(path); err == nil && skip[abs] {
			logger.Debug("Skipping output path: %s", path)
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		relPath, err := filepath.Rel(w.Root, path)
		if err != nil {
			return err
		}
		if relPath == "." {
			return nil
		}
		slashed := filepath.ToSlash(relPath)

		if d.IsDir() {
			if w.excludedDir(slashed) {
				logger.Debug("Excluding directory: %s", relPath)
				return filepath.SkipDir
			}
			return nil
		}

		if !w.Matches(slashed) {
			return nil
		}

		discovered = append(discovered, models.SourceFile{
			Path:    path,
			RelPath: slashed,
		})
		logger.Debug("Discovered declaration file: %s", slashed)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(discovered, func(i, j int) bool {
		return discovered[i].RelPath < discovered[j].RelPath
	})
	return discovered, nil
}

// Matches reports whether a slash-separated relative path is an input.
func (w *DeclarationWalker) Matches(relPath string) bool {
	if w.Excluded(relPath) {
		return false
	}
	for _, pattern := range w.Include {
		if matched, err := doublestar.Match(pattern, relPath); err == nil && matched {
			return true
		}
	}
	return false
}

func (w *DeclarationWalker) Excluded(relPath string) bool {
	for _, pattern := range w.Exclude {
		if matched, err := doublestar.Match(pattern, relPath); err == nil && matched {
			return true
		}
	}
	return false
}

// excludedDir prunes a directory when everything below it would be excluded,
// which is how "dir/**" patterns are written.
func (w *DeclarationWalker) excludedDir(dir string) bool {
	return w.Excluded(dir) || w.Excluded(dir+"/_")
}

// ReadFile loads the bytes of a discovered file.
func ReadFile(f models.SourceFile) (models.SourceFile, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return f, err
	}
	f.Content = data
	return f, nil
}
