// Package uritemplate compiles parametrized resource URI patterns into
// anchored matchers. Three placeholder operators are supported:
//
//	{name}  — one path segment; never matches '/', '?' or '#'
//	{+name} — reserved expansion; matches one or more characters of any
//	          kind, including separators (nested paths)
//	{/name} — zero or one '/'-prefixed segment
//
// Literal text between placeholders is matched verbatim. Templates are
// compiled once at registration time and reused for every read.
package uritemplate

import (
	"fmt"
	"regexp"
	"strings"
)

// Template is a compiled URI pattern.
type Template struct {
	raw   string
	names []string
	re    *regexp.Regexp
}

// Compile parses a pattern and builds its anchored matcher. It fails only on
// malformed placeholder syntax (unterminated or empty braces, or a variable
// name that is not an identifier).
func Compile(pattern string) (*Template, error) {
	var sb strings.Builder
	var names []string
	sb.WriteString("^")

	rest := pattern
	for {
		open := strings.IndexByte(rest, '{')
		if open < 0 {
			sb.WriteString(regexp.QuoteMeta(rest))
			break
		}
		sb.WriteString(regexp.QuoteMeta(rest[:open]))
		rest = rest[open+1:]

		closing := strings.IndexByte(rest, '}')
		if closing < 0 {
			return nil, fmt.Errorf("unterminated placeholder in %q", pattern)
		}
		expr := rest[:closing]
		rest = rest[closing+1:]

		var name, sub string
		switch {
		case strings.HasPrefix(expr, "+"):
			name = expr[1:]
			sub = "(.+)"
		case strings.HasPrefix(expr, "/"):
			name = expr[1:]
			sub = `(?:/([^/?#]+))?`
		default:
			name = expr
			sub = `([^/?#]+)`
		}
		if !validName(name) {
			return nil, fmt.Errorf("invalid placeholder %q in %q", expr, pattern)
		}
		names = append(names, name)
		sb.WriteString(sub)
	}
	sb.WriteString("$")

	re, err := regexp.Compile(sb.String())
	if err != nil {
		return nil, fmt.Errorf("compile pattern %q: %w", pattern, err)
	}
	return &Template{raw: pattern, names: names, re: re}, nil
}

// MustCompile is Compile for patterns known valid at build time.
func MustCompile(pattern string) *Template {
	t, err := Compile(pattern)
	if err != nil {
		panic(err)
	}
	return t
}

// Pattern returns the original pattern text.
func (t *Template) Pattern() string {
	return t.raw
}

// Names returns the placeholder names in order of appearance.
func (t *Template) Names() []string {
	out := make([]string, len(t.names))
	copy(out, t.names)
	return out
}

// Match tests a concrete URI against the template. Matching is all-or-nothing
// on the whole URI. On success it returns the extracted name→value map; an
// optional segment that matched zero occurrences is omitted from the map.
func (t *Template) Match(uri string) (map[string]string, bool) {
	idx := t.re.FindStringSubmatchIndex(uri)
	if idx == nil {
		return nil, false
	}
	params := make(map[string]string, len(t.names))
	for i, name := range t.names {
		start, end := idx[2*(i+1)], idx[2*(i+1)+1]
		if start < 0 {
			continue // optional placeholder absent
		}
		params[name] = uri[start:end]
	}
	return params, true
}

func validName(name string) bool {
	if name == "" {
		return false
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
		default:
			return false
		}
	}
	return true
}
