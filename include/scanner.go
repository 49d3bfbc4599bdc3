package include

import (
	"regexp"
	"strings"
)

// Directive patterns are matched against single lines with their terminators
// removed. Matching line by line instead of running a multiline pattern over
// the whole source keeps the behavior independent of regex engine multiline
// semantics: a directive counts only when it is the entire line, modulo
// whitespace. A directive buried mid-line (for example inside a comment) is
// plain text.
var (
	includeSpec = regexp.MustCompile(`^[ \t]*#include[ \t]+<([A-Za-z0-9_.]+)>[ \t]*$`)
	pragmaSpec  = regexp.MustCompile(`^[ \t]*#pragma[ \t]+once[ \t]*$`)
)

// matchInclude reports whether line is an include directive and returns the
// referenced name.
func matchInclude(line string) (string, bool) {
	m := includeSpec.FindStringSubmatch(strings.TrimSuffix(line, "\r"))
	if m == nil {
		return "", false
	}
	return m[1], true
}

// matchPragmaOnce reports whether line is an include-once marker.
func matchPragmaOnce(line string) bool {
	return pragmaSpec.MatchString(strings.TrimSuffix(line, "\r"))
}

// scanResult is what the scanner learns about a single source.
type scanResult struct {
	// includes is the set of distinct names referenced by include
	// directives. Duplicate directives collapse here; the substitution pass
	// deals with the extra occurrences textually.
	includes map[string]struct{}
	// once is true when the source declares itself include-once.
	once bool
}

// scan extracts include references and the include-once flag from raw source
// text.
func scan(content string) scanResult {
	res := scanResult{includes: make(map[string]struct{})}
	forEachLine(content, func(line, _ string) {
		if name, ok := matchInclude(line); ok {
			res.includes[name] = struct{}{}
			return
		}
		if !res.once && matchPragmaOnce(line) {
			res.once = true
		}
	})
	return res
}

// forEachLine calls fn for every line of s, passing the line without its
// terminator and the terminator itself ("\n" or "" for the last line). The
// concatenation of all line+eol pairs reproduces s exactly.
func forEachLine(s string, fn func(line, eol string)) {
	for len(s) > 0 {
		i := strings.IndexByte(s, '\n')
		if i < 0 {
			fn(s, "")
			return
		}
		fn(s[:i], "\n")
		s = s[i+1:]
	}
}
