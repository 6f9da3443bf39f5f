package shared

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

func ToTitle(s string) string {
	if s == "" {
		return s
	}
	return cases.Title(language.Und, cases.NoLower).String(s)
}

// ToPascal joins the words of s, split on anything that is not a letter or
// digit, into one PascalCase identifier. A leading digit gets an underscore.
func ToPascal(s string) string {
	words := strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	var sb strings.Builder
	for _, w := range words {
		sb.WriteString(ToTitle(w))
	}
	out := sb.String()
	if out != "" && unicode.IsDigit(rune(out[0])) {
		out = "_" + out
	}
	return out
}

// ToCamel is ToPascal with a lowercase first letter.
func ToCamel(s string) string {
	out := ToPascal(s)
	if out == "" || out[0] == '_' {
		return out
	}
	r := []rune(out)
	r[0] = unicode.ToLower(r[0])
	return string(r)
}
