package bundler

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tristendillon/dtsbundle/core/cache"
	"github.com/tristendillon/dtsbundle/core/config"
	"github.com/tristendillon/dtsbundle/core/rewriter"
)

type capturedWarnings struct {
	mu    sync.Mutex
	lines []string
}

func (c *capturedWarnings) warn(format string, args ...interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines = append(c.lines, fmt.Sprintf(format, args...))
}

func newBundler(t *testing.T, mutate func(*config.Config), opts ...Option) (*Bundler, *capturedWarnings) {
	t.Helper()
	cfg := config.Default()
	if mutate != nil {
		mutate(cfg)
	}
	w := &capturedWarnings{}
	b, err := New(cfg, append([]Option{WithWarnFunc(w.warn)}, opts...)...)
	require.NoError(t, err)
	return b, w
}

func TestNamedExternalHoisted(t *testing.T) {
	t.Parallel()

	b, _ := newBundler(t, nil)
	out, err := b.Transform("x.d.ts", "import { Foo } from 'bar';\nexport class X {}")
	require.NoError(t, err)

	assert.Equal(t, "import { Foo } from 'bar';\n\n\nclass X {}", out.Text)
	assert.Equal(t, 1, out.Imports)
}

func TestRelativeImportDropped(t *testing.T) {
	t.Parallel()

	b, w := newBundler(t, nil)
	out, err := b.Transform("x.d.ts", "import { A } from './local';\ndeclare const a: A;\n")
	require.NoError(t, err)

	assert.Equal(t, "\n\n\ndeclare const a: A;\n", out.Text)
	assert.NotContains(t, out.Text, "./local")
	assert.Empty(t, w.lines)
}

func TestHeaderAccumulatesAcrossFiles(t *testing.T) {
	t.Parallel()

	b, _ := newBundler(t, func(c *config.Config) {
		c.ModuleName = "MyLib"
		c.LibraryName = "mylib"
	})

	first, err := b.Transform("one.d.ts", "import * as R from 'rx';\ndeclare const r: R.Observable<number>;\n")
	require.NoError(t, err)
	second, err := b.Transform("two.d.ts", "import { Subject } from 'rx';\nimport { get } from 'lodash';\ndeclare const s: Subject<number>;\n")
	require.NoError(t, err)

	assert.Equal(t, "import * as R from 'rx';\n\n"+
		"export = MyLib;\nexport as namespace mylib;\n\n"+
		"declare const r: R.Observable<number>;\n", first.Text)

	assert.Equal(t, "import * as R from 'rx';\n"+
		"import { Subject } from 'rx';\n"+
		"import { get } from 'lodash';\n\n"+
		"export = MyLib;\nexport as namespace mylib;\n\n"+
		"declare const s: Subject<number>;\n", second.Text)
}

func TestBareImportKept(t *testing.T) {
	t.Parallel()

	b, _ := newBundler(t, nil)
	out, err := b.Transform("p.d.ts", "import 'polyfill';\ndeclare const p: 1;\n")
	require.NoError(t, err)
	assert.Equal(t, "import 'polyfill';\n\n\ndeclare const p: 1;\n", out.Text)
}

func TestUnrecognisedImportReported(t *testing.T) {
	t.Parallel()

	b, w := newBundler(t, nil)
	out, err := b.Transform("bad.d.ts", "import { Foo } from 'bar;\nimport { Ok } from 'ok';\nexport declare const x: Ok;\n")
	require.NoError(t, err)

	assert.Equal(t, "import { Ok } from 'ok';\n\n\ndeclare const x: Ok;\n", out.Text)
	assert.Equal(t, 1, out.Diagnostics)
	require.Len(t, w.lines, 1)
	assert.Contains(t, w.lines[0], "bad.d.ts")
	assert.Contains(t, w.lines[0], "import { Foo } from 'bar;")
}

func TestExternalTypesReExported(t *testing.T) {
	t.Parallel()

	b, _ := newBundler(t, func(c *config.Config) {
		c.ModuleName = "Lib"
		c.ExternalTypesToExport = []string{"rxjs"}
	})
	out, err := b.Transform("a.d.ts", "declare const a: 1;\n")
	require.NoError(t, err)
	assert.Equal(t, "\n\nexport * from 'rxjs';\nexport = Lib;\n\ndeclare const a: 1;\n", out.Text)
}

func TestExternalReExportsKeepNames(t *testing.T) {
	t.Parallel()

	b, w := newBundler(t, nil)
	out, err := b.Transform("index.d.ts", "export * from 'rxjs';\n"+
		"export { Observable } from 'rxjs';\n"+
		"export { Local } from './local';\n"+
		"export * as Ops from 'rxjs/operators';\n")
	require.NoError(t, err)

	assert.Equal(t, "import * as Ops from 'rxjs/operators';\nimport { Observable } from 'rxjs';\n\n\n", out.Text)
	assert.Equal(t, 1, out.Diagnostics)
	require.Len(t, w.lines, 1)
	assert.Contains(t, w.lines[0], "export * from 'rxjs';")
}

func TestWildcardReExportCoveredByDirective(t *testing.T) {
	t.Parallel()

	b, w := newBundler(t, func(c *config.Config) {
		c.ExternalTypesToExport = []string{"rxjs"}
	})
	out, err := b.Transform("index.d.ts", "export * from 'rxjs';\ndeclare const a: 1;\n")
	require.NoError(t, err)

	assert.Equal(t, "\n\nexport * from 'rxjs';\n\ndeclare const a: 1;\n", out.Text)
	assert.Empty(t, w.lines)
}

func TestTransformPartsNamesOrigin(t *testing.T) {
	t.Parallel()

	b, w := newBundler(t, func(c *config.Config) { c.ModuleName = "Lib" })
	out, err := b.TransformParts("dist/index.d.ts", []Part{
		{Name: "a.d.ts", Text: "import { Ok } from 'ok';\ndeclare module 'a' {\n    class A {}\n}"},
		{Name: "b.d.ts", Text: "import { Foo } from 'bar;\r\ndeclare module 'b' {\r\n    class B {}\r\n}\r\n"},
	})
	require.NoError(t, err)

	assert.Contains(t, out.Text, "import { Ok } from 'ok';")
	assert.Contains(t, out.Text, "declare module Lib {")
	assert.Equal(t, 1, strings.Count(out.Text, "declare module"))
	require.Len(t, w.lines, 1)
	assert.True(t, strings.HasPrefix(w.lines[0], "b.d.ts: "), w.lines[0])
}

func TestDeterministicAcrossRuns(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"import { B } from 'b';\nimport * as A from 'a';\nexport class One {}\n",
		"import { C, B } from 'b';\nimport 'side';\nexport class Two {}\n",
	}
	run := func() []string {
		b, _ := newBundler(t, nil)
		var outs []string
		for i, in := range inputs {
			out, err := b.Transform(fmt.Sprintf("%d.d.ts", i), in)
			require.NoError(t, err)
			outs = append(outs, out.Text)
		}
		return outs
	}
	assert.Equal(t, run(), run())
}

func TestCacheReplayMatchesFreshRewrite(t *testing.T) {
	t.Parallel()

	rc, err := cache.NewRewriteCache(16)
	require.NoError(t, err)

	input := "import { X } from 'x';\nimport { Y } from 'bad;\nexport declare const v: import('dyn').Z;\n"

	first, w1 := newBundler(t, nil, WithCache(rc))
	a, err := first.Transform("f.d.ts", input)
	require.NoError(t, err)
	assert.False(t, a.CacheHit)

	second, w2 := newBundler(t, nil, WithCache(rc))
	b, err := second.Transform("f.d.ts", input)
	require.NoError(t, err)
	assert.True(t, b.CacheHit)

	assert.Equal(t, a.Text, b.Text)
	assert.Equal(t, first.Accumulator().Records(), second.Accumulator().Records())
	assert.Len(t, w1.lines, 1)
	assert.Len(t, w2.lines, 1)
}

func TestCacheKeyTracksOptions(t *testing.T) {
	t.Parallel()

	rc, err := cache.NewRewriteCache(16)
	require.NoError(t, err)
	input := "declare module 'a' {\n    class A {}\n}\n"

	flat, _ := newBundler(t, func(c *config.Config) { c.ModuleName = "One" }, WithCache(rc))
	_, err = flat.Transform("a.d.ts", input)
	require.NoError(t, err)

	other, _ := newBundler(t, func(c *config.Config) { c.ModuleName = "Two" }, WithCache(rc))
	out, err := other.Transform("a.d.ts", input)
	require.NoError(t, err)
	assert.False(t, out.CacheHit)
	assert.Contains(t, out.Text, "declare module Two {")
}

func TestCRLFRoundTrip(t *testing.T) {
	t.Parallel()

	b, _ := newBundler(t, nil)
	out, err := b.Transform("w.d.ts", "import { A } from 'a';\r\nexport class W {\r\n    private p;\r\n}\r\n")
	require.NoError(t, err)
	assert.Equal(t, "import { A } from 'a';\r\n\r\n\r\nclass W {\r\n}\r\n", out.Text)
}

func TestTransformFileKeepsEncoding(t *testing.T) {
	t.Parallel()

	b, _ := newBundler(t, nil)
	enc, err := LookupEncoding("utf-16le")
	require.NoError(t, err)

	data, err := Encode(enc, "import { Uni } from 'ünï-lib';\nexport class X {}\n")
	require.NoError(t, err)

	encoded, out, err := b.TransformFile("u.d.ts", data, "utf-16le")
	require.NoError(t, err)

	decoded, err := Decode(enc, encoded)
	require.NoError(t, err)
	assert.Equal(t, out.Text, decoded)
	assert.Equal(t, "import { Uni } from 'ünï-lib';\n\n\nclass X {}\n", decoded)
}

func TestTransformFileUnknownEncoding(t *testing.T) {
	t.Parallel()

	b, _ := newBundler(t, nil)
	_, _, err := b.TransformFile("u.d.ts", []byte("x"), "klingon")
	assert.Error(t, err)
}

func TestStrictWrapperFailsOnlyThatFile(t *testing.T) {
	t.Parallel()

	b, _ := newBundler(t, func(c *config.Config) { c.Wrapper.Strict = true })

	_, err := b.Transform("none.d.ts", "import { Kept } from 'kept';\ndeclare class X {}\n")
	var werr *rewriter.WrapperError
	require.True(t, errors.As(err, &werr))
	assert.Equal(t, 0, werr.Count)
	assert.Equal(t, 0, b.Accumulator().Len())

	out, err := b.Transform("ok.d.ts", "declare module 'x' {\n    class Y {}\n}\n")
	require.NoError(t, err)
	assert.Contains(t, out.Text, "declare module  {")
}

func TestInvalidInternalPattern(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.InternalImportPaths = []string{"("}
	_, err := New(cfg)
	assert.Error(t, err)
}
