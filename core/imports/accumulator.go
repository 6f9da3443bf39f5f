package imports

import (
	"sort"
	"strings"
	"sync"

	"github.com/tristendillon/dtsbundle/core/logger"
)

// ImportRecord is everything the run has learned about one external path.
type ImportRecord struct {
	Path    string
	Binding string
	Members []string
}

func (r *ImportRecord) hasMember(member string) bool {
	for _, m := range r.Members {
		if m == member {
			return true
		}
	}
	return false
}

// lines renders the record without sorting.
func (r *ImportRecord) lines() []string {
	var out []string
	if r.Binding != "" {
		out = append(out, "import "+r.Binding+" from '"+r.Path+"';")
	}
	if len(r.Members) > 0 {
		out = append(out, "import { "+strings.Join(r.Members, ", ")+" } from '"+r.Path+"';")
	}
	if len(out) == 0 {
		out = append(out, "import '"+r.Path+"';")
	}
	return out
}

// Diagnostic describes an import statement that could not be recorded.
type Diagnostic struct {
	Source    string
	Statement string
	Reason    string
}

type Option func(*Accumulator)

// WithReExported lists paths the bundle already re-exports through an
// "export * from" directive; wildcard re-exports of them are accepted
// silently.
func WithReExported(paths []string) Option {
	return func(a *Accumulator) {
		for _, p := range paths {
			a.reExported[p] = true
		}
	}
}

// WithWarnFunc replaces the diagnostic sink, logger.Warn by default.
func WithWarnFunc(warn func(format string, args ...interface{})) Option {
	return func(a *Accumulator) {
		a.warn = warn
	}
}

// Accumulator merges external imports across every file of one run. It is
// never reset; a new run needs a new Accumulator. All methods are safe for
// concurrent use.
type Accumulator struct {
	classifier *Classifier

	mu          sync.Mutex
	records     map[string]*ImportRecord
	order       []string
	diagnostics []Diagnostic
	reExported  map[string]bool
	warn        func(format string, args ...interface{})
}

func NewAccumulator(classifier *Classifier, opts ...Option) *Accumulator {
	a := &Accumulator{
		classifier: classifier,
		records:    make(map[string]*ImportRecord),
		reExported: make(map[string]bool),
		warn:       logger.Warn,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Add classifies one import statement found in source and merges it when it
// is external. Internal statements are ignored, unrecognised ones produce a
// diagnostic. It reports whether the statement reached the table.
func (a *Accumulator) Add(source, statement string) bool {
	if path, ok := ImportPath(statement); ok && a.classifier.IsInternal(path) {
		return false
	}

	parsed, ok := Parse(statement)
	if !ok {
		a.report(source, statement, "unrecognised import statement")
		return false
	}
	if a.classifier.IsInternal(parsed.Path) {
		return false
	}
	if parsed.Shape == ShapeReExportAll {
		if !a.reExported[parsed.Path] {
			a.report(source, statement, "wildcard re-export of an external path has no import form, list it in external_types_to_export")
		}
		return false
	}
	logger.Debug("%s: %s import from %s", source, parsed.Shape, parsed.Path)

	a.mu.Lock()
	defer a.mu.Unlock()

	rec, exists := a.records[parsed.Path]
	if !exists {
		rec = &ImportRecord{Path: parsed.Path}
		a.records[parsed.Path] = rec
		a.order = append(a.order, parsed.Path)
	}

	if parsed.Binding != "" && rec.Binding == "" {
		rec.Binding = parsed.Binding
	}
	for _, m := range parsed.Members {
		if !rec.hasMember(m) {
			rec.Members = append(rec.Members, m)
		}
	}
	return true
}

func (a *Accumulator) report(source, statement, reason string) {
	a.mu.Lock()
	a.diagnostics = append(a.diagnostics, Diagnostic{Source: source, Statement: statement, Reason: reason})
	warn := a.warn
	a.mu.Unlock()

	if warn != nil {
		if source != "" {
			warn("%s: %s, dropped: %s", source, reason, statement)
		} else {
			warn("%s, dropped: %s", reason, statement)
		}
	}
}

// Render returns one line per binding, member list or bare import, sorted
// lexicographically over the rendered text, each followed by a newline.
// An empty table renders as a single newline.
func (a *Accumulator) Render() string {
	a.mu.Lock()
	var lines []string
	for _, path := range a.order {
		lines = append(lines, a.records[path].lines()...)
	}
	a.mu.Unlock()

	sort.Strings(lines)
	return strings.Join(lines, "\n") + "\n"
}

// Records returns a copy of the table in discovery order.
func (a *Accumulator) Records() []ImportRecord {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]ImportRecord, 0, len(a.order))
	for _, path := range a.order {
		rec := a.records[path]
		out = append(out, ImportRecord{
			Path:    rec.Path,
			Binding: rec.Binding,
			Members: append([]string(nil), rec.Members...),
		})
	}
	return out
}

func (a *Accumulator) Diagnostics() []Diagnostic {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]Diagnostic(nil), a.diagnostics...)
}

func (a *Accumulator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.order)
}
