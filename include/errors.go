package include

import (
	"fmt"
	"strings"
)

// MissingDependencyError reports an include directive referencing a source
// that was never registered.
type MissingDependencyError struct {
	// Name is the unresolved reference.
	Name string
	// From is the registered source containing the directive.
	From string
}

func (e *MissingDependencyError) Error() string {
	return fmt.Sprintf("cannot include missing source %q (referenced from %q)", e.Name, e.From)
}

// AmbiguousRootError reports that the registered set does not have exactly
// one source free of incoming references. Every merge must resolve to a
// single final document, so zero or multiple top-level sources is a
// configuration error.
type AmbiguousRootError struct {
	// Roots lists the candidate top-level sources. Empty when every source
	// is included by some other source.
	Roots []string
}

func (e *AmbiguousRootError) Error() string {
	if len(e.Roots) == 0 {
		return "no source is free of incoming includes, exactly one is required"
	}
	return fmt.Sprintf("exactly one source must not be included by any other, found %d: %s",
		len(e.Roots), strings.Join(e.Roots, ", "))
}

// CyclicDependencyError reports a reference cycle among registered sources.
type CyclicDependencyError struct {
	// Names lists the sources unreachable from the root because of the
	// cycle, in natural order.
	Names []string
}

func (e *CyclicDependencyError) Error() string {
	return fmt.Sprintf("cyclic dependency detected among: %s", strings.Join(e.Names, ", "))
}
