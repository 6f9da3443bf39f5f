// Package directives formats the UMD export lines that close the bundle
// header.
package directives

import "strings"

type Options struct {
	ModuleName            string
	LibraryName           string
	ExternalTypesToExport []string
}

// Format returns the re-exports of external types, then `export =` and
// `export as namespace`, each on its own newline-terminated line. Empty
// values omit their directive.
func Format(opts Options) string {
	var b strings.Builder
	for _, t := range opts.ExternalTypesToExport {
		if t == "" {
			continue
		}
		b.WriteString("export * from '" + t + "';\n")
	}
	if opts.ModuleName != "" {
		b.WriteString("export = " + opts.ModuleName + ";\n")
	}
	if opts.LibraryName != "" {
		b.WriteString("export as namespace " + opts.LibraryName + ";\n")
	}
	return b.String()
}
