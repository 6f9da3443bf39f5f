package generator

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tristendillon/dtsbundle/core/bundler"
	"github.com/tristendillon/dtsbundle/core/cache"
	"github.com/tristendillon/dtsbundle/core/config"
	"github.com/tristendillon/dtsbundle/core/logger"
	"github.com/tristendillon/dtsbundle/core/models"
	"github.com/tristendillon/dtsbundle/core/report"
	"github.com/tristendillon/dtsbundle/core/walker"
)

var (
	ErrNoInputs    = errors.New("no declaration files matched")
	ErrFilesFailed = errors.New("one or more files failed")
	ErrOutOfDate   = errors.New("outputs are out of date")
)

type Generator struct {
	wd      string
	cfg     *config.Config
	check   bool
	diffOut io.Writer
	cache   *cache.RewriteCache
	warn    func(format string, args ...interface{})
}

type Option func(*Generator)

// WithCheck compares outputs instead of writing them, printing a diff of
// every drifted output to w when it is not nil.
func WithCheck(w io.Writer) Option {
	return func(g *Generator) {
		g.check = true
		g.diffOut = w
	}
}

// WithCache keeps rewrite results between runs, which is how watch mode
// avoids rewriting untouched files.
func WithCache(c *cache.RewriteCache) Option {
	return func(g *Generator) {
		g.cache = c
	}
}

func WithWarnFunc(warn func(format string, args ...interface{})) Option {
	return func(g *Generator) {
		g.warn = warn
	}
}

func NewGenerator(wd string, cfg *config.Config, opts ...Option) *Generator {
	g := &Generator{wd: wd, cfg: cfg}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Run performs one discovery and transform pass. Per-file failures are
// recorded in the summary and reported as ErrFilesFailed after every other
// file was processed.
func (g *Generator) Run(ctx context.Context) (*models.Summary, error) {
	start := time.Now()

	files, err := g.discover()
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w under %s", ErrNoInputs, g.resolve(g.cfg.Input.Root))
	}

	loaded, readErrs, err := g.readAll(ctx, files)
	if err != nil {
		return nil, err
	}

	summary := &models.Summary{}
	if g.cfg.Output.Dir != "" {
		err = g.runPerFile(ctx, loaded, readErrs, summary)
	} else {
		err = g.runBundle(ctx, loaded, readErrs, summary)
	}
	if err != nil {
		return summary, err
	}

	if g.cache != nil {
		g.cache.LogStats()
	}
	logger.Debug("Run finished in %v", time.Since(start))

	if summary.Failed > 0 {
		return summary, fmt.Errorf("%w: %d of %d", ErrFilesFailed, summary.Failed, len(files))
	}
	if g.check && summary.OutOfDate > 0 {
		return summary, fmt.Errorf("%w: %d output(s) differ", ErrOutOfDate, summary.OutOfDate)
	}
	return summary, nil
}

// Walker returns the walker a run uses, so the watcher filters events with
// the same rules.
func (g *Generator) Walker() *walker.DeclarationWalker {
	return walker.NewDeclarationWalker(
		g.resolve(g.cfg.Input.Root),
		g.cfg.Input.Include,
		g.cfg.Input.Exclude,
		g.OutputPaths(),
	)
}

// OutputPaths lists the absolute paths a run writes to.
func (g *Generator) OutputPaths() []string {
	if g.cfg.Output.Dir != "" {
		return []string{g.resolve(g.cfg.Output.Dir)}
	}
	return []string{g.resolve(g.cfg.Output.File)}
}

func (g *Generator) discover() ([]models.SourceFile, error) {
	files, err := g.Walker().Walk()
	if err != nil {
		return nil, fmt.Errorf("failed to walk directory: %w", err)
	}
	logger.Debug("Discovered %d declaration files", len(files))
	return files, nil
}

// readAll loads file contents concurrently. Results keep discovery order;
// a failed read is kept per file instead of aborting the run.
func (g *Generator) readAll(ctx context.Context, files []models.SourceFile) ([]models.SourceFile, []error, error) {
	loaded := make([]models.SourceFile, len(files))
	readErrs := make([]error, len(files))

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(g.cfg.Concurrency)
	for i, f := range files {
		i, f := i, f
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			read, err := walker.ReadFile(f)
			if err != nil {
				readErrs[i] = fmt.Errorf("failed to read %s: %w", f.RelPath, err)
			}
			loaded[i] = read
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, nil, err
	}
	return loaded, readErrs, nil
}

func (g *Generator) newBundler() (*bundler.Bundler, error) {
	var opts []bundler.Option
	if g.cache != nil {
		opts = append(opts, bundler.WithCache(g.cache))
	}
	if g.warn != nil {
		opts = append(opts, bundler.WithWarnFunc(g.warn))
	}
	return bundler.New(g.cfg, opts...)
}

// runPerFile writes one output per input under output.dir. Every output
// carries the import header accumulated up to and including its input.
func (g *Generator) runPerFile(ctx context.Context, files []models.SourceFile, readErrs []error, summary *models.Summary) error {
	b, err := g.newBundler()
	if err != nil {
		return err
	}
	outDir := g.resolve(g.cfg.Output.Dir)

	for i, f := range files {
		if err := ctx.Err(); err != nil {
			return err
		}

		outPath := filepath.Join(outDir, filepath.FromSlash(f.RelPath))
		res := models.FileResult{
			Source:     f.RelPath,
			OutputPath: g.display(outPath),
			InputBytes: len(f.Content),
		}

		if readErrs[i] != nil {
			g.fail(summary, res, readErrs[i])
			continue
		}

		data, out, err := b.TransformFile(f.RelPath, f.Content, "")
		if err != nil {
			g.fail(summary, res, err)
			continue
		}
		res.OutputBytes = len(data)
		res.Imports = out.Imports
		res.Diagnostics = out.Diagnostics
		res.CacheHit = out.CacheHit

		changed, err := g.emit(outPath, data)
		if err != nil {
			g.fail(summary, res, err)
			continue
		}
		res.Changed = changed
		if changed && g.check {
			summary.OutOfDate++
		}
		summary.Files = append(summary.Files, res)
		logger.Debug("Processed %s -> %s", f.RelPath, res.OutputPath)
	}
	return nil
}

// runBundle concatenates every input in discovery order and transforms the
// result once, so the single output has one import header.
func (g *Generator) runBundle(ctx context.Context, files []models.SourceFile, readErrs []error, summary *models.Summary) error {
	enc, err := bundler.LookupEncoding(g.cfg.Encoding)
	if err != nil {
		return err
	}

	outPath := g.resolve(g.cfg.Output.File)
	parts := make([]bundler.Part, 0, len(files))
	inputBytes := 0
	for i, f := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		if readErrs[i] != nil {
			g.fail(summary, models.FileResult{Source: f.RelPath, OutputPath: g.display(outPath)}, readErrs[i])
			continue
		}
		text, err := bundler.Decode(enc, f.Content)
		if err != nil {
			g.fail(summary, models.FileResult{Source: f.RelPath, OutputPath: g.display(outPath)}, fmt.Errorf("failed to decode %s: %w", f.RelPath, err))
			continue
		}
		parts = append(parts, bundler.Part{Name: f.RelPath, Text: text})
		inputBytes += len(f.Content)
	}
	if len(parts) == 0 {
		return nil
	}

	res := models.FileResult{
		Source:     fmt.Sprintf("%d files", len(parts)),
		OutputPath: g.display(outPath),
		InputBytes: inputBytes,
	}

	b, err := g.newBundler()
	if err != nil {
		return err
	}
	out, err := b.TransformParts(res.OutputPath, parts)
	if err != nil {
		g.fail(summary, res, err)
		return nil
	}
	data, err := bundler.Encode(enc, out.Text)
	if err != nil {
		g.fail(summary, res, fmt.Errorf("failed to encode %s: %w", res.OutputPath, err))
		return nil
	}
	res.OutputBytes = len(data)
	res.Imports = out.Imports
	res.Diagnostics = out.Diagnostics
	res.CacheHit = out.CacheHit

	changed, err := g.emit(outPath, data)
	if err != nil {
		g.fail(summary, res, err)
		return nil
	}
	res.Changed = changed
	if changed && g.check {
		summary.OutOfDate++
	}
	summary.Files = append(summary.Files, res)

	logger.Info("Bundled %d files into %s", len(parts), res.OutputPath)
	return nil
}

// emit writes data to path unless it already holds exactly data. In check
// mode nothing is written and a differing output is reported as a diff.
func (g *Generator) emit(path string, data []byte) (bool, error) {
	existing, err := os.ReadFile(path)
	switch {
	case err == nil && bytes.Equal(existing, data):
		return false, nil
	case err != nil && !errors.Is(err, fs.ErrNotExist):
		return false, fmt.Errorf("failed to read existing output %s: %w", path, err)
	}

	if g.check {
		if g.diffOut != nil {
			name := g.display(path)
			fmt.Fprintf(g.diffOut, "--- %s\n+++ %s (generated)\n%s", name, name, report.LineDiff(string(existing), string(data)))
		}
		return true, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
		return false, fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return false, fmt.Errorf("failed to write %s: %w", path, err)
	}
	return true, nil
}

func (g *Generator) fail(summary *models.Summary, res models.FileResult, err error) {
	logger.Error("%s: %v", res.Source, err)
	res.Err = err
	summary.Failed++
	summary.Files = append(summary.Files, res)
}

func (g *Generator) resolve(p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(g.wd, p)
}

// display shortens path relative to the working directory when possible.
func (g *Generator) display(path string) string {
	if rel, err := filepath.Rel(g.wd, path); err == nil && !strings.HasPrefix(rel, "..") {
		return filepath.ToSlash(rel)
	}
	return path
}
