package rewriter

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tristendillon/dtsbundle/core/config"
	"github.com/tristendillon/dtsbundle/core/imports"
)

const twoModules = `/// <reference types="node" />
declare module "a" {
    import { Observable } from 'rxjs';
    import { Helper } from './helper';
    export class A {
        private secret;
        value: Observable<string>;
        load(): import('lodash').Dictionary<string>;
    }
}
declare module "b" {
    export default interface B {
    }
}
`

func newRewriter(t *testing.T, opts Options, internal ...string) *Rewriter {
	t.Helper()
	c, err := imports.NewClassifier(internal)
	require.NoError(t, err)
	return New(c, opts)
}

func TestRewriteFlatten(t *testing.T) {
	t.Parallel()

	r := newRewriter(t, Options{ModuleName: "MyLib"})
	res, err := r.Rewrite(twoModules)
	require.NoError(t, err)

	want := "declare module MyLib {\n" +
		"    class A {\n" +
		"        value: Observable<string>;\n" +
		"        load(): Dictionary<string>;\n" +
		"    }\n" +
		"    interface B {\n" +
		"    }\n" +
		"}\n"
	assert.Equal(t, want, res.Body)
	assert.Equal(t, []string{
		"import { Dictionary } from 'lodash';",
		"import { Observable } from 'rxjs';",
		"import { Helper } from './helper';",
	}, res.Statements)
}

func TestRewriteUnwrap(t *testing.T) {
	t.Parallel()

	r := newRewriter(t, Options{Mode: config.WrapperUnwrap, CollapseEmptyBraces: true})
	res, err := r.Rewrite(twoModules)
	require.NoError(t, err)

	want := "class A {\n" +
		"    value: Observable<string>;\n" +
		"    load(): Dictionary<string>;\n" +
		"}\n" +
		"interface B {}\n"
	assert.Equal(t, want, res.Body)
}

func TestRewriteRenameKeepsSeams(t *testing.T) {
	t.Parallel()

	r := newRewriter(t, Options{Mode: config.WrapperRename, ModuleName: "Lib", QuoteModuleName: true})
	res, err := r.Rewrite(twoModules)
	require.NoError(t, err)

	assert.Equal(t, 2, countSubstr(res.Body, "declare module 'Lib' {"))
	assert.NotContains(t, res.Body, `"a"`)
}

func TestStrictWrapper(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mode    config.WrapperMode
		input   string
		wantErr int
	}{
		{name: "flatten merges to one", mode: config.WrapperFlatten, input: twoModules, wantErr: -1},
		{name: "rename sees two", mode: config.WrapperRename, input: twoModules, wantErr: 2},
		{name: "no wrapper", mode: config.WrapperFlatten, input: "declare class X {}\n", wantErr: 0},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r := newRewriter(t, Options{Mode: tt.mode, StrictWrapper: true})
			_, err := r.Rewrite(tt.input)
			if tt.wantErr < 0 {
				assert.NoError(t, err)
				return
			}
			var werr *WrapperError
			require.True(t, errors.As(err, &werr))
			assert.Equal(t, tt.wantErr, werr.Count)
		})
	}
}

func TestExportStrippedImportCollected(t *testing.T) {
	t.Parallel()

	r := newRewriter(t, Options{})
	res, err := r.Rewrite("import { Foo } from 'bar';\nexport class X {}")
	require.NoError(t, err)

	assert.Equal(t, "class X {}", res.Body)
	assert.Equal(t, []string{"import { Foo } from 'bar';"}, res.Statements)
}

func TestRelativeImportRemoved(t *testing.T) {
	t.Parallel()

	r := newRewriter(t, Options{})
	res, err := r.Rewrite("import { A } from './local';\n")
	require.NoError(t, err)

	assert.Equal(t, "", res.Body)
	// the statement is still handed over; the accumulator drops it
	assert.Equal(t, []string{"import { A } from './local';"}, res.Statements)
}

func TestMalformedImportStillRemoved(t *testing.T) {
	t.Parallel()

	r := newRewriter(t, Options{})
	res, err := r.Rewrite("import { Foo } from 'bar;\ndeclare const ok: number;\n")
	require.NoError(t, err)

	assert.Equal(t, "declare const ok: number;\n", res.Body)
	assert.Equal(t, []string{"import { Foo } from 'bar;"}, res.Statements)
}

func TestStripPrivates(t *testing.T) {
	t.Parallel()

	p := &Pass{Text: "class C {\n    private foo(): void;\n    static private y: number;\n    protected x;\n    isPrivate: boolean;\n}"}
	require.NoError(t, stripPrivates(p))
	assert.Equal(t, "class C {\n\n\n    protected x;\n    isPrivate: boolean;\n}", p.Text)
	assert.NotRegexp(t, privateMember, p.Text)
}

func TestStripExports(t *testing.T) {
	t.Parallel()

	in := "export = Foo;\n" +
		"export as namespace Foo;\n" +
		"export * from './x';\n" +
		"export { a, b } from 'y';\n" +
		"export {};\n" +
		"export declare const c: number;\n" +
		"    export default function f(): void;\n" +
		"declare const exported: string;\n"
	p := &Pass{Text: in}
	require.NoError(t, stripExports(p))

	want := "\n\n\n\n\n" +
		"declare const c: number;\n" +
		"    function f(): void;\n" +
		"declare const exported: string;\n"
	assert.Equal(t, want, p.Text)
	assert.Equal(t, []string{"export * from './x';", "export { a, b } from 'y';"}, p.Statements)
}

func TestImportAliasesKept(t *testing.T) {
	t.Parallel()

	in := "declare namespace NS {\n" +
		"    export import Foo = Other.Foo;\n" +
		"    import Bar = require('bar');\n" +
		"    const x: Foo;\n" +
		"}\n"
	r := newRewriter(t, Options{})
	res, err := r.Rewrite(in)
	require.NoError(t, err)

	assert.Equal(t, "declare namespace NS {\n"+
		"    import Foo = Other.Foo;\n"+
		"    import Bar = require('bar');\n"+
		"    const x: Foo;\n"+
		"}\n", res.Body)
	assert.Empty(t, res.Statements)
}

func TestDynamicImports(t *testing.T) {
	t.Parallel()

	r := newRewriter(t, Options{}, "^@acme/")
	p := &Pass{Text: `a: import('./local').Thing; b: import("@scope/pkg").Other; c: import('@acme/x').Mine;`}
	require.NoError(t, r.resolveDynamicImports(p))

	assert.Equal(t, "a: Thing; b: Other; c: Mine;", p.Text)
	assert.Equal(t, []string{"import { Other } from '@scope/pkg';"}, p.Statements)
}

func TestStaticImportsMultiLine(t *testing.T) {
	t.Parallel()

	p := &Pass{Text: "import {\n    A,\n    B\n} from 'multi';\nimport * as R from 'rx';\nimport 'side';\ndeclare const importance: number;\n"}
	require.NoError(t, resolveStaticImports(p))

	assert.Equal(t, "\n\n\ndeclare const importance: number;\n", p.Text)
	assert.Equal(t, []string{
		"import {\n    A,\n    B\n} from 'multi';",
		"import * as R from 'rx';",
		"import 'side';",
	}, p.Statements)
}

func TestStripReferencesAndBlankLines(t *testing.T) {
	t.Parallel()

	p := &Pass{Text: "/// <reference path=\"./a.d.ts\" />\n\n   \ndeclare const a: 1;\n\n\tdeclare const b: 2;\n"}
	require.NoError(t, stripReferences(p))
	require.NoError(t, collapseBlankLines(p))
	assert.Equal(t, "declare const a: 1;\n\tdeclare const b: 2;\n", p.Text)
}

func TestStagesOrder(t *testing.T) {
	t.Parallel()

	r := newRewriter(t, Options{CollapseEmptyBraces: true})
	var names []string
	for _, s := range r.Stages() {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{
		StageStripPrivates,
		StageStripExports,
		StageDynamicImports,
		StageStaticImports,
		StageStripReferences,
		StageCollapseBlankLines,
		StageUnwrapModule,
		StageCollapseBlankLines,
		StageCollapseEmptyBraces,
	}, names)
}

func TestDedent(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "a\n  b\nc", dedent("\ta\n\t  b\n\tc"))
	assert.Equal(t, "flat\n", dedent("flat\n"))
}

func countSubstr(s, sub string) int {
	n := 0
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			n++
		}
	}
	return n
}
