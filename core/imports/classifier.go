// Package imports decides which import statements belong to the bundle and
// merges the external ones into a single, deduplicated header.
package imports

import (
	"fmt"
	"regexp"
)

var relativePath = regexp.MustCompile(`^\.?\./.+$`)

// Classifier tells internal import paths from external ones. It is immutable
// once built and safe for concurrent use.
type Classifier struct {
	matchers []*regexp.Regexp
}

// NewClassifier compiles the configured internal path patterns. The relative
// path rule is always appended.
func NewClassifier(internalPatterns []string) (*Classifier, error) {
	matchers := make([]*regexp.Regexp, 0, len(internalPatterns)+1)
	for _, p := range internalPatterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid internal import pattern %q: %w", p, err)
		}
		matchers = append(matchers, re)
	}
	matchers = append(matchers, relativePath)
	return &Classifier{matchers: matchers}, nil
}

// IsInternal reports whether path matches any internal pattern anywhere in
// the string, or looks like a relative path.
func (c *Classifier) IsInternal(path string) bool {
	for _, m := range c.matchers {
		if m.MatchString(path) {
			return true
		}
	}
	return false
}
