// Package bundler assembles bundled declaration text for one run. A Bundler
// owns the run's import accumulator, so every file it transforms shares one
// cumulative import header; start a new Bundler for a new run.
package bundler

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"

	"github.com/tristendillon/dtsbundle/core/cache"
	"github.com/tristendillon/dtsbundle/core/config"
	"github.com/tristendillon/dtsbundle/core/directives"
	"github.com/tristendillon/dtsbundle/core/imports"
	"github.com/tristendillon/dtsbundle/core/logger"
	"github.com/tristendillon/dtsbundle/core/rewriter"
)

type Bundler struct {
	cfg         *config.Config
	rewriter    *rewriter.Rewriter
	acc         *imports.Accumulator
	cache       *cache.RewriteCache
	fingerprint string
	directives  string
	warn        func(format string, args ...interface{})
}

type Option func(*Bundler)

// WithCache shares a rewrite cache between runs.
func WithCache(c *cache.RewriteCache) Option {
	return func(b *Bundler) {
		b.cache = c
	}
}

// WithWarnFunc redirects import diagnostics, logger.Warn by default.
func WithWarnFunc(warn func(format string, args ...interface{})) Option {
	return func(b *Bundler) {
		b.warn = warn
	}
}

// Output is the transformed text of one file.
type Output struct {
	Text        string
	Imports     int
	Diagnostics int
	CacheHit    bool
}

func New(cfg *config.Config, opts ...Option) (*Bundler, error) {
	classifier, err := imports.NewClassifier(cfg.InternalImportPaths)
	if err != nil {
		return nil, err
	}

	b := &Bundler{
		cfg:  cfg,
		warn: logger.Warn,
	}
	for _, opt := range opts {
		opt(b)
	}

	b.acc = imports.NewAccumulator(classifier,
		imports.WithWarnFunc(b.warn),
		imports.WithReExported(cfg.ExternalTypesToExport),
	)
	b.rewriter = rewriter.New(classifier, rewriter.Options{
		ModuleName:          cfg.ModuleName,
		Mode:                cfg.Wrapper.Mode,
		QuoteModuleName:     cfg.Wrapper.Quote,
		StrictWrapper:       cfg.Wrapper.Strict,
		CollapseEmptyBraces: cfg.CollapseEmptyBraces,
	})
	b.directives = directives.Format(directives.Options{
		ModuleName:            cfg.ModuleName,
		LibraryName:           cfg.LibraryName,
		ExternalTypesToExport: cfg.ExternalTypesToExport,
	})
	b.fingerprint = fingerprint(cfg)
	return b, nil
}

// Accumulator exposes the run's import table.
func (b *Bundler) Accumulator() *imports.Accumulator {
	return b.acc
}

// Transform rewrites one decoded file and assembles its output against the
// current, cumulative import header. CRLF input yields CRLF output.
func (b *Bundler) Transform(name, text string) (*Output, error) {
	return b.transform(name, text, func(string) string { return name })
}

// Part is one input of a concatenated bundle.
type Part struct {
	Name string
	Text string
}

// TransformParts joins parts with newlines and transforms them as a single
// text, so module wrappers of consecutive parts merge and the output has one
// header. Import diagnostics still name the part a statement came from.
func (b *Bundler) TransformParts(name string, parts []Part) (*Output, error) {
	texts := make([]string, len(parts))
	normalized := make([]string, len(parts))
	for i, p := range parts {
		texts[i] = p.Text
		normalized[i] = strings.ReplaceAll(p.Text, "\r\n", "\n")
	}

	origin := func(statement string) string {
		for i, text := range normalized {
			if strings.Contains(text, statement) {
				return parts[i].Name
			}
		}
		return name
	}
	return b.transform(name, strings.Join(texts, "\n"), origin)
}

func (b *Bundler) transform(name, text string, origin func(statement string) string) (*Output, error) {
	crlf := strings.Contains(text, "\r\n")
	if crlf {
		text = strings.ReplaceAll(text, "\r\n", "\n")
	}

	before := len(b.acc.Diagnostics())

	entry, hit, err := b.rewrite(text)
	if err != nil {
		return nil, fmt.Errorf("failed to rewrite %s: %w", name, err)
	}

	added := 0
	for _, statement := range entry.Statements {
		if b.acc.Add(origin(statement), statement) {
			added++
		}
	}

	out := Assemble(b.acc.Render(), b.directives, entry.Body)
	if crlf {
		out = strings.ReplaceAll(out, "\n", "\r\n")
	}

	return &Output{
		Text:        out,
		Imports:     added,
		Diagnostics: len(b.acc.Diagnostics()) - before,
		CacheHit:    hit,
	}, nil
}

// TransformFile decodes data, transforms it and encodes the result with the
// same encoding. An empty encoding uses the configured one.
func (b *Bundler) TransformFile(name string, data []byte, encodingName string) ([]byte, *Output, error) {
	enc, err := b.encoding(encodingName)
	if err != nil {
		return nil, nil, err
	}

	text, err := Decode(enc, data)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to decode %s: %w", name, err)
	}

	out, err := b.Transform(name, text)
	if err != nil {
		return nil, nil, err
	}

	encoded, err := Encode(enc, out.Text)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode %s: %w", name, err)
	}
	return encoded, out, nil
}

func (b *Bundler) rewrite(text string) (*cache.Entry, bool, error) {
	var key string
	if b.cache != nil {
		key = cache.Key(b.fingerprint, []byte(text))
		if entry, ok := b.cache.Get(key); ok {
			return entry, true, nil
		}
	}

	res, err := b.rewriter.Rewrite(text)
	if err != nil {
		return nil, false, err
	}

	entry := &cache.Entry{Body: res.Body, Statements: res.Statements}
	if b.cache != nil {
		b.cache.Set(key, entry)
	}
	return entry, false, nil
}

func (b *Bundler) encoding(name string) (encoding.Encoding, error) {
	if name == "" {
		name = b.cfg.Encoding
	}
	return LookupEncoding(name)
}

// Assemble lays out a bundle: the import header, a blank line, the export
// directives, a blank line and the body.
func Assemble(header, directives, body string) string {
	return header + "\n" + directives + "\n" + body
}

// LookupEncoding resolves a WHATWG encoding label, utf-8 when empty.
func LookupEncoding(name string) (encoding.Encoding, error) {
	if name == "" {
		name = "utf-8"
	}
	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, fmt.Errorf("unknown encoding %q: %w", name, err)
	}
	return enc, nil
}

func Decode(enc encoding.Encoding, data []byte) (string, error) {
	decoded, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return "", err
	}
	return string(decoded), nil
}

func Encode(enc encoding.Encoding, text string) ([]byte, error) {
	return enc.NewEncoder().Bytes([]byte(text))
}

// fingerprint captures every option that changes a rewrite result.
func fingerprint(cfg *config.Config) string {
	parts := []string{
		cfg.ModuleName,
		string(cfg.Wrapper.Mode),
		strconv.FormatBool(cfg.Wrapper.Quote),
		strconv.FormatBool(cfg.Wrapper.Strict),
		strconv.FormatBool(cfg.CollapseEmptyBraces),
	}
	parts = append(parts, cfg.InternalImportPaths...)
	return strings.Join(parts, "\x00")
}
