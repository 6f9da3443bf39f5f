package imports

import (
	"regexp"
	"strings"
)

type Shape int

const (
	ShapeBare Shape = iota
	ShapeNamespace
	ShapeDefault
	ShapeNamed
	ShapeDefaultNamed
	// ShapeReExportAll is "export * from '<path>'", which has no import form.
	ShapeReExportAll
)

func (s Shape) String() string {
	switch s {
	case ShapeBare:
		return "bare"
	case ShapeNamespace:
		return "namespace"
	case ShapeDefault:
		return "default"
	case ShapeNamed:
		return "named"
	case ShapeDefaultNamed:
		return "default+named"
	case ShapeReExportAll:
		return "re-export-all"
	default:
		return "unknown"
	}
}

// Statement is one import statement reduced to what the header needs.
type Statement struct {
	Path    string
	Shape   Shape
	Binding string
	Members []string

	// ReExport marks statements written as "export ... from".
	ReExport bool
}

const ident = `[A-Za-z_$][\w$]*`

var (
	loosePath = regexp.MustCompile(`(?:from\s+|^import\s+)['"]([^'"\n]+)['"]`)

	bareImport      = regexp.MustCompile(`^import\s+['"]([^'"\n]+)['"]\s*;$`)
	clauseImport    = regexp.MustCompile(`^import\s+(?:type\s+)?([\s\S]+?)\s+from\s+['"]([^'"\n]+)['"]\s*;$`)
	namespaceClause = regexp.MustCompile(`^\*\s+as\s+(` + ident + `)$`)
	defaultClause   = regexp.MustCompile(`^(` + ident + `)$`)
	namedClause     = regexp.MustCompile(`^\{([^{}]*)\}$`)
	mixedClause     = regexp.MustCompile(`^(` + ident + `)\s*,\s*\{([^{}]*)\}$`)
	memberSpec      = regexp.MustCompile(`^(?:type\s+)?` + ident + `(?:\s+as\s+` + ident + `)?$`)
	reExportAll     = regexp.MustCompile(`^export\s+\*\s*from\s*['"]([^'"\n]+)['"]\s*;$`)
	reExportClause  = regexp.MustCompile(`^export(\s+(?:type\s+)?(?:\*\s+as\s+` + ident + `|\{[^{}]*\})\s+from\s+['"][^'"\n]+['"]\s*;)$`)
	whitespaceRun   = regexp.MustCompile(`\s+`)
)

// ImportPath extracts the module specifier without validating the rest of
// the statement.
func ImportPath(statement string) (string, bool) {
	m := loosePath.FindStringSubmatch(strings.TrimSpace(statement))
	if m == nil {
		return "", false
	}
	return m[1], true
}

// Parse recognises the statement shapes the header can re-emit. Re-exports
// from a path parse as the import that brings the same names into scope.
func Parse(statement string) (*Statement, bool) {
	s := strings.TrimSpace(statement)

	if m := reExportAll.FindStringSubmatch(s); m != nil {
		return &Statement{Path: m[1], Shape: ShapeReExportAll, ReExport: true}, true
	}
	if m := reExportClause.FindStringSubmatch(s); m != nil {
		parsed, ok := Parse("import" + m[1])
		if !ok {
			return nil, false
		}
		parsed.ReExport = true
		return parsed, true
	}

	if m := bareImport.FindStringSubmatch(s); m != nil {
		return &Statement{Path: m[1], Shape: ShapeBare}, true
	}

	m := clauseImport.FindStringSubmatch(s)
	if m == nil {
		return nil, false
	}
	clause, path := strings.TrimSpace(m[1]), m[2]

	if c := namespaceClause.FindStringSubmatch(clause); c != nil {
		return &Statement{Path: path, Shape: ShapeNamespace, Binding: "* as " + c[1]}, true
	}
	if c := defaultClause.FindStringSubmatch(clause); c != nil {
		return &Statement{Path: path, Shape: ShapeDefault, Binding: c[1]}, true
	}
	if c := namedClause.FindStringSubmatch(clause); c != nil {
		members, ok := splitMembers(c[1])
		if !ok {
			return nil, false
		}
		if len(members) == 0 {
			return &Statement{Path: path, Shape: ShapeBare}, true
		}
		return &Statement{Path: path, Shape: ShapeNamed, Members: members}, true
	}
	if c := mixedClause.FindStringSubmatch(clause); c != nil {
		members, ok := splitMembers(c[2])
		if !ok {
			return nil, false
		}
		return &Statement{Path: path, Shape: ShapeDefaultNamed, Binding: c[1], Members: members}, true
	}

	return nil, false
}

func splitMembers(list string) ([]string, bool) {
	var members []string
	for _, raw := range strings.Split(list, ",") {
		member := whitespaceRun.ReplaceAllString(strings.TrimSpace(raw), " ")
		if member == "" {
			continue
		}
		if !memberSpec.MatchString(member) {
			return nil, false
		}
		members = append(members, member)
	}
	return members, true
}
