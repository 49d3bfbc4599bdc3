// Package include resolves #include directives across a set of named GLSL
// sources, flattening them into a single document in dependency order.
//
// Sources are registered under arbitrary names with Add. A source references
// another one with a line of the form
//
//	#include <name>
//
// and may declare itself include-once with a line of the form
//
//	#pragma once
//
// Merge validates the reference graph (every reference registered, exactly
// one root, no cycles) and substitutes directives with fully merged content,
// dependencies first. An include-once source contributes its content at most
// once per merge, at the position of its first resolved occurrence.
package include

import (
	"sort"
	"strings"

	"github.com/maruel/natural"
	"go.uber.org/zap"
)

// Builder accumulates named sources and merges them on demand. It is not safe
// for concurrent use; callers may re-register sources between merges but not
// during one.
type Builder struct {
	log  *zap.Logger
	srcs map[string]string
}

// NewBuilder creates an empty Builder.
func NewBuilder(log *zap.Logger) *Builder {
	if log == nil {
		log = zap.NewNop()
	}
	return &Builder{
		log:  log.Named("include"),
		srcs: make(map[string]string),
	}
}

// Add registers content under name, replacing any earlier registration. No
// validation happens here: bad references surface when Merge runs.
func (b *Builder) Add(name, content string) {
	b.srcs[name] = content
}

// Remove deregisters a source. Removing an unknown name is a no-op.
func (b *Builder) Remove(name string) {
	delete(b.srcs, name)
}

// Get returns the raw registered content for name.
func (b *Builder) Get(name string) (string, bool) {
	content, ok := b.srcs[name]
	return content, ok
}

// Len returns the number of registered sources.
func (b *Builder) Len() int {
	return len(b.srcs)
}

// Names returns registered source names in natural order.
func (b *Builder) Names() []string {
	names := make([]string, 0, len(b.srcs))
	for name := range b.srcs {
		names = append(names, name)
	}
	sort.Sort(natural.StringSlice(names))
	return names
}

// Document is the result of a merge: the flattened content and the name of
// the root source it was assembled from.
type Document struct {
	Root    string
	Content string
}

// Merge runs the full pipeline - scan, graph validation, topological
// ordering, substitution - and returns the flattened root document. The
// registered set is left untouched; merging the same set twice yields
// identical output.
func (b *Builder) Merge() (string, error) {
	doc, err := b.Compose()
	return doc.Content, err
}

// Compose is Merge with the resolved root name attached, for callers that
// derive artifacts (file names, report entries) from it.
func (b *Builder) Compose() (Document, error) {
	scans := make(map[string]scanResult, len(b.srcs))
	for name, content := range b.srcs {
		sc := scan(content)
		scans[name] = sc
		b.log.Debug("Scanned source",
			zap.String("name", name),
			zap.Int("includes", len(sc.includes)),
			zap.Bool("once", sc.once))
	}

	g, err := buildGraph(scans)
	if err != nil {
		return Document{}, err
	}

	order, err := topoOrder(g)
	if err != nil {
		return Document{}, err
	}
	b.log.Debug("Dependency order resolved", zap.Strings("order", order))

	// visited marks include-once suppression for the whole merge session.
	visited := make(map[string]bool, len(order))
	merged := make(map[string]string, len(order))
	for _, name := range order {
		merged[name] = substitute(b.srcs[name], scans, merged, visited)
	}

	root := order[len(order)-1]
	b.log.Debug("Merge complete", zap.String("root", root))
	return Document{Root: root, Content: stripPragmaOnce(merged[root])}, nil
}

// substitute produces the merged text of one source. Dependencies appear
// earlier in the processing order, so their finished text is already in
// merged. The first directive line for a name is replaced with that text;
// duplicate directive lines for the same name are deleted. A directive for an
// include-once source already substituted anywhere this session is deleted as
// well.
func substitute(content string, scans map[string]scanResult, merged map[string]string, visited map[string]bool) string {
	var sb strings.Builder
	sb.Grow(len(content))
	seen := make(map[string]bool)
	forEachLine(content, func(line, eol string) {
		name, ok := matchInclude(line)
		if !ok {
			sb.WriteString(line)
			sb.WriteString(eol)
			return
		}
		if seen[name] {
			// duplicate directive inside the same source - drop the line
			return
		}
		seen[name] = true
		if scans[name].once && visited[name] {
			return
		}
		visited[name] = true
		sb.WriteString(merged[name])
		sb.WriteString(eol)
	})
	return sb.String()
}

// stripPragmaOnce removes include-once marker lines from the final document.
func stripPragmaOnce(content string) string {
	var sb strings.Builder
	sb.Grow(len(content))
	forEachLine(content, func(line, eol string) {
		if matchPragmaOnce(line) {
			return
		}
		sb.WriteString(line)
		sb.WriteString(eol)
	})
	return sb.String()
}
