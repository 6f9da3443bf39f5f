// Package rewriter turns one declaration file into a bundle body: private
// members, export keywords, reference directives and module wrappers are
// removed and import statements are collected for the run's accumulator.
//
// The work is split into named stages that run in a fixed order; later
// stages assume the earlier ones already fired.
package rewriter

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/tristendillon/dtsbundle/core/config"
	"github.com/tristendillon/dtsbundle/core/imports"
)

const (
	StageStripPrivates       = "strip-privates"
	StageStripExports        = "strip-exports"
	StageDynamicImports      = "dynamic-imports"
	StageStaticImports       = "static-imports"
	StageStripReferences     = "strip-references"
	StageCollapseBlankLines  = "collapse-blank-lines"
	StageUnwrapModule        = "unwrap-module"
	StageCollapseEmptyBraces = "collapse-empty-braces"
)

var (
	privateMember = regexp.MustCompile(`(?m)^[ \t]*(?:[A-Za-z]+[ \t]+)*private[ \t].*;[ \t]*$`)
	reExportFrom  = regexp.MustCompile(`(?m)^[ \t]*export[ \t]+(?:type[ \t]+)?(?:\*(?:[ \t]+as[ \t]+[\w$]+)?|\{[^{}]*\})[ \t]*from[ \t]*['"][^'"\n]*['"][ \t]*;[ \t]*$`)
	localExport   = regexp.MustCompile(`(?m)^[ \t]*export[ \t]+(?:\{[^{}]*\}|=[^;\n]+|as[ \t]+namespace[ \t]+[\w$]+)[ \t]*;[ \t]*$`)
	exportPrefix  = regexp.MustCompile(`(?m)^([ \t]*)export[ \t]+(?:default[ \t]+)?`)
	dynamicImport = regexp.MustCompile(`import\(\s*['"]([\w./@-]+)['"]\s*\)\.([\w$]+)`)
	staticImport  = regexp.MustCompile(`(?m)^[ \t]*import\s+(?:[^;\n{}'"=]*\{[^;{}'"]*\}\s*from\s*|[^;\n{}'"=]*\sfrom\s*)?['"][^;\n]*;`)
	reference     = regexp.MustCompile(`\s*///\s+<reference\s+.*/>`)
	blankLines    = regexp.MustCompile(`(?m)^\s*[\r\n]`)
	moduleSeam    = regexp.MustCompile(`\}\ndeclare\s+module\s+.*\{\n`)
	outerModule   = regexp.MustCompile(`(?m)^declare\s+module\s+.*\{$`)
	closingBrace  = regexp.MustCompile(`(?m)^\}[ \t]*$`)
	emptyBraces   = regexp.MustCompile(`\{\s+\}`)
)

type Options struct {
	ModuleName          string
	Mode                config.WrapperMode
	QuoteModuleName     bool
	StrictWrapper       bool
	CollapseEmptyBraces bool
}

// Pass is the state threaded through the stages of one rewrite.
type Pass struct {
	Text string
	// Statements are import statements in discovery order, to be handed to
	// the accumulator. Dynamic imports are synthesized as named imports.
	Statements []string
}

type Stage struct {
	Name  string
	Apply func(p *Pass) error
}

// Result is the outcome of rewriting one file.
type Result struct {
	Body       string
	Statements []string
}

// WrapperError reports a file that does not contain exactly one outer
// module declaration while strict wrapper checking is on.
type WrapperError struct {
	Count int
}

func (e *WrapperError) Error() string {
	return fmt.Sprintf("expected exactly one outer module declaration, found %d", e.Count)
}

type Rewriter struct {
	classifier *imports.Classifier
	opts       Options
	stages     []Stage
}

func New(classifier *imports.Classifier, opts Options) *Rewriter {
	if opts.Mode == "" {
		opts.Mode = config.WrapperFlatten
	}
	r := &Rewriter{classifier: classifier, opts: opts}
	r.stages = r.buildStages()
	return r
}

func (r *Rewriter) buildStages() []Stage {
	stages := []Stage{
		{Name: StageStripPrivates, Apply: stripPrivates},
		{Name: StageStripExports, Apply: stripExports},
		{Name: StageDynamicImports, Apply: r.resolveDynamicImports},
		{Name: StageStaticImports, Apply: resolveStaticImports},
		{Name: StageStripReferences, Apply: stripReferences},
		{Name: StageCollapseBlankLines, Apply: collapseBlankLines},
		{Name: StageUnwrapModule, Apply: r.unwrapModule},
		{Name: StageCollapseBlankLines, Apply: collapseBlankLines},
	}
	if r.opts.CollapseEmptyBraces {
		stages = append(stages, Stage{Name: StageCollapseEmptyBraces, Apply: collapseEmptyBraces})
	}
	return stages
}

// Stages returns the pipeline in execution order.
func (r *Rewriter) Stages() []Stage {
	return append([]Stage(nil), r.stages...)
}

// Rewrite runs every stage over text.
func (r *Rewriter) Rewrite(text string) (*Result, error) {
	p := &Pass{Text: text}
	for _, stage := range r.stages {
		if err := stage.Apply(p); err != nil {
			return nil, fmt.Errorf("%s: %w", stage.Name, err)
		}
	}
	return &Result{Body: p.Text, Statements: p.Statements}, nil
}

func stripPrivates(p *Pass) error {
	p.Text = privateMember.ReplaceAllString(p.Text, "")
	return nil
}

// stripExports removes module-level export statements and the export
// keyword of declarations. Re-exports from another path are handed over as
// statements so the accumulator can keep their names reachable.
func stripExports(p *Pass) error {
	p.Text = reExportFrom.ReplaceAllStringFunc(p.Text, func(statement string) string {
		p.Statements = append(p.Statements, strings.TrimSpace(statement))
		return ""
	})
	p.Text = localExport.ReplaceAllString(p.Text, "")
	p.Text = exportPrefix.ReplaceAllString(p.Text, "${1}")
	return nil
}

func (r *Rewriter) resolveDynamicImports(p *Pass) error {
	p.Text = replaceSubmatchFunc(dynamicImport, p.Text, func(groups []string) string {
		path, member := groups[1], groups[2]
		if !r.classifier.IsInternal(path) {
			p.Statements = append(p.Statements, "import { "+member+" } from '"+path+"';")
		}
		return member
	})
	return nil
}

func resolveStaticImports(p *Pass) error {
	p.Text = staticImport.ReplaceAllStringFunc(p.Text, func(statement string) string {
		p.Statements = append(p.Statements, strings.TrimSpace(statement))
		return ""
	})
	return nil
}

func stripReferences(p *Pass) error {
	p.Text = reference.ReplaceAllString(p.Text, "")
	return nil
}

func collapseBlankLines(p *Pass) error {
	p.Text = blankLines.ReplaceAllString(p.Text, "")
	return nil
}

func collapseEmptyBraces(p *Pass) error {
	p.Text = emptyBraces.ReplaceAllString(p.Text, "{}")
	return nil
}

func (r *Rewriter) unwrapModule(p *Pass) error {
	if r.opts.Mode != config.WrapperRename {
		p.Text = moduleSeam.ReplaceAllString(p.Text, "")
	}

	if r.opts.StrictWrapper {
		if n := len(outerModule.FindAllStringIndex(p.Text, -1)); n != 1 {
			return &WrapperError{Count: n}
		}
	}

	switch r.opts.Mode {
	case config.WrapperUnwrap:
		p.Text = unwrapBody(p.Text)
	default:
		p.Text = outerModule.ReplaceAllLiteralString(p.Text, r.moduleOpening())
	}
	return nil
}

func (r *Rewriter) moduleOpening() string {
	name := r.opts.ModuleName
	if r.opts.QuoteModuleName {
		name = "'" + name + "'"
	}
	return "declare module " + name + " {"
}

// unwrapBody replaces the first outer module block with its dedented body.
// The block ends at the first closing brace in column zero; members inside
// the block are indented.
func unwrapBody(text string) string {
	open := outerModule.FindStringIndex(text)
	if open == nil {
		return text
	}
	bodyStart := open[1]
	if bodyStart < len(text) && text[bodyStart] == '\n' {
		bodyStart++
	}

	end := closingBrace.FindStringIndex(text[bodyStart:])
	if end == nil {
		return text
	}
	bodyEnd := bodyStart + end[0]
	after := text[bodyStart+end[1]:]
	after = strings.TrimPrefix(after, "\n")

	return text[:open[0]] + dedent(text[bodyStart:bodyEnd]) + after
}

// dedent strips the indentation of the first non-blank line from every line
// that starts with it.
func dedent(body string) string {
	lines := strings.Split(body, "\n")
	unit := ""
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		unit = line[:len(line)-len(strings.TrimLeft(line, " \t"))]
		break
	}
	if unit == "" {
		return body
	}
	for i, line := range lines {
		lines[i] = strings.TrimPrefix(line, unit)
	}
	return strings.Join(lines, "\n")
}

func replaceSubmatchFunc(re *regexp.Regexp, s string, fn func(groups []string) string) string {
	var b strings.Builder
	last := 0
	for _, loc := range re.FindAllStringSubmatchIndex(s, -1) {
		groups := make([]string, len(loc)/2)
		for i := range groups {
			if loc[2*i] >= 0 {
				groups[i] = s[loc[2*i]:loc[2*i+1]]
			}
		}
		b.WriteString(s[last:loc[0]])
		b.WriteString(fn(groups))
		last = loc[1]
	}
	b.WriteString(s[last:])
	return b.String()
}
