package include_test

import (
	"errors"
	"strings"
	"testing"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"glslinc/include"
)

func newBuilder(t *testing.T) *include.Builder {
	t.Helper()
	return include.NewBuilder(zaptest.NewLogger(t, zaptest.WrapOptions(zap.AddCaller())))
}

func TestBuilder_MergeBasic(t *testing.T) {
	b := newBuilder(t)
	b.Add("base.frag", "#version 460 core\n#include <incl0.frag>\n#include <incl1.frag>\nvoid main() {}")
	b.Add("incl0.frag", "float a() { return 1.0; }")
	b.Add("incl1.frag", "float b() { return 2.0; }")

	got, err := b.Merge()
	if err != nil {
		t.Fatalf("Merge() error = %v", err)
	}

	want := "#version 460 core\nfloat a() { return 1.0; }\nfloat b() { return 2.0; }\nvoid main() {}"
	if got != want {
		t.Errorf("Merge() = %q, want %q", got, want)
	}
}

func TestBuilder_MergeSingleSource(t *testing.T) {
	b := newBuilder(t)
	b.Add("only.frag", "#pragma once\nvoid main() {}\n")

	got, err := b.Merge()
	if err != nil {
		t.Fatalf("Merge() error = %v", err)
	}
	if got != "void main() {}\n" {
		t.Errorf("Merge() = %q, want pragma stripped", got)
	}
}

func TestBuilder_MergeDiamondIncludeOnce(t *testing.T) {
	// base pulls incl2 in through two branches; with #pragma once the
	// content must appear exactly once, where it was first resolved.
	b := newBuilder(t)
	b.Add("base", "#include <incl0>\n#include <incl1>\nvoid main() {}")
	b.Add("incl0", "#include <incl2>\nfloat f0() { return z(); }")
	b.Add("incl1", "#include <incl2>\nfloat f1() { return z(); }")
	b.Add("incl2", "#pragma once\nfloat z() { return 0.0; }")

	got, err := b.Merge()
	if err != nil {
		t.Fatalf("Merge() error = %v", err)
	}

	if n := strings.Count(got, "float z() { return 0.0; }"); n != 1 {
		t.Errorf("include-once content appears %d times, want 1\noutput:\n%s", n, got)
	}
	if strings.Contains(got, "#pragma") {
		t.Errorf("pragma marker leaked into output:\n%s", got)
	}
	if strings.Contains(got, "#include") {
		t.Errorf("unsubstituted directive in output:\n%s", got)
	}
	// siblings are ordered naturally, so incl1 is merged before incl0 and
	// wins the substitution
	want := "float f0() { return z(); }\nfloat z() { return 0.0; }\nfloat f1() { return z(); }\nvoid main() {}"
	if got != want {
		t.Errorf("Merge() = %q, want %q", got, want)
	}
}

func TestBuilder_MergeDiamondWithoutOnce(t *testing.T) {
	// without #pragma once the shared dependency is duplicated
	b := newBuilder(t)
	b.Add("base", "#include <incl0>\n#include <incl1>\n")
	b.Add("incl0", "#include <common>\nA")
	b.Add("incl1", "#include <common>\nB")
	b.Add("common", "shared")

	got, err := b.Merge()
	if err != nil {
		t.Fatalf("Merge() error = %v", err)
	}
	if n := strings.Count(got, "shared"); n != 2 {
		t.Errorf("shared content appears %d times, want 2\noutput:\n%s", n, got)
	}
}

func TestBuilder_MergeDuplicateDirective(t *testing.T) {
	b := newBuilder(t)
	b.Add("base", "#include <a>\n#include <a>\ntail")
	b.Add("a", "content")

	got, err := b.Merge()
	if err != nil {
		t.Fatalf("Merge() error = %v", err)
	}
	if got != "content\ntail" {
		t.Errorf("Merge() = %q, want duplicate directive deleted", got)
	}
}

func TestBuilder_MergeWhitespaceTolerance(t *testing.T) {
	tests := []struct {
		name string
		base string
	}{
		{"canonical", "#include <a>"},
		{"leading spaces", "    #include <a>"},
		{"leading tab", "\t#include <a>"},
		{"wide gap", "#include \t  <a>"},
		{"trailing spaces", "#include <a>   "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newBuilder(t)
			b.Add("base", tt.base)
			b.Add("a", "content")

			got, err := b.Merge()
			if err != nil {
				t.Fatalf("Merge() error = %v", err)
			}
			if got != "content" {
				t.Errorf("Merge() = %q, want %q", got, "content")
			}
		})
	}
}

func TestBuilder_MergeIgnoresMidLineDirectives(t *testing.T) {
	b := newBuilder(t)
	b.Add("base", "// #include <a>\n#include <a>\nx = 1; // #include <a>")
	b.Add("a", "content")

	got, err := b.Merge()
	if err != nil {
		t.Fatalf("Merge() error = %v", err)
	}

	want := "// #include <a>\ncontent\nx = 1; // #include <a>"
	if got != want {
		t.Errorf("Merge() = %q, want commented directives left untouched", got)
	}
}

func TestBuilder_MergeCRLF(t *testing.T) {
	b := newBuilder(t)
	b.Add("base", "#include <a>\r\nkeep\r\n")
	b.Add("a", "content")

	got, err := b.Merge()
	if err != nil {
		t.Fatalf("Merge() error = %v", err)
	}
	if got != "content\nkeep\r\n" {
		t.Errorf("Merge() = %q", got)
	}
}

func TestBuilder_MergeMissingDependency(t *testing.T) {
	b := newBuilder(t)
	b.Add("base", "#include <gone.frag>\n")

	_, err := b.Merge()
	if err == nil {
		t.Fatal("Merge() expected error for missing dependency")
	}

	var missing *include.MissingDependencyError
	if !errors.As(err, &missing) {
		t.Fatalf("Merge() error = %v, want MissingDependencyError", err)
	}
	if missing.Name != "gone.frag" {
		t.Errorf("missing.Name = %q, want %q", missing.Name, "gone.frag")
	}
	if missing.From != "base" {
		t.Errorf("missing.From = %q, want %q", missing.From, "base")
	}
}

func TestBuilder_MergeReportsAllMissing(t *testing.T) {
	b := newBuilder(t)
	b.Add("base", "#include <one>\n#include <two>\n")

	_, err := b.Merge()
	if err == nil {
		t.Fatal("Merge() expected error")
	}

	errs := multierr.Errors(err)
	if len(errs) != 2 {
		t.Fatalf("Merge() reported %d errors, want 2: %v", len(errs), err)
	}
	names := make(map[string]bool)
	for _, e := range errs {
		var missing *include.MissingDependencyError
		if !errors.As(e, &missing) {
			t.Fatalf("unexpected error type: %v", e)
		}
		names[missing.Name] = true
	}
	if !names["one"] || !names["two"] {
		t.Errorf("missing names = %v, want both 'one' and 'two'", names)
	}
}

func TestBuilder_MergeCyclicDependency(t *testing.T) {
	b := newBuilder(t)
	b.Add("base", "#include <a>\n")
	b.Add("a", "#include <b>\n")
	b.Add("b", "#include <a>\n")

	_, err := b.Merge()
	if err == nil {
		t.Fatal("Merge() expected error for cycle")
	}

	var cyclic *include.CyclicDependencyError
	if !errors.As(err, &cyclic) {
		t.Fatalf("Merge() error = %v, want CyclicDependencyError", err)
	}
	if len(cyclic.Names) != 2 || cyclic.Names[0] != "a" || cyclic.Names[1] != "b" {
		t.Errorf("cyclic.Names = %v, want [a b]", cyclic.Names)
	}
}

func TestBuilder_MergeLongCycle(t *testing.T) {
	b := newBuilder(t)
	b.Add("base", "#include <a>\n")
	b.Add("a", "#include <b>\n")
	b.Add("b", "#include <c>\n")
	b.Add("c", "#include <a>\n")

	_, err := b.Merge()
	var cyclic *include.CyclicDependencyError
	if !errors.As(err, &cyclic) {
		t.Fatalf("Merge() error = %v, want CyclicDependencyError", err)
	}
}

func TestBuilder_MergeAmbiguousRoot(t *testing.T) {
	t.Run("two roots", func(t *testing.T) {
		b := newBuilder(t)
		b.Add("base0", "#include <incl>\n")
		b.Add("base1", "#include <incl>\n")
		b.Add("incl", "content")

		_, err := b.Merge()
		var ambiguous *include.AmbiguousRootError
		if !errors.As(err, &ambiguous) {
			t.Fatalf("Merge() error = %v, want AmbiguousRootError", err)
		}
		if len(ambiguous.Roots) != 2 || ambiguous.Roots[0] != "base0" || ambiguous.Roots[1] != "base1" {
			t.Errorf("ambiguous.Roots = %v, want [base0 base1]", ambiguous.Roots)
		}
	})

	t.Run("no root", func(t *testing.T) {
		b := newBuilder(t)
		b.Add("a", "#include <b>\n")
		b.Add("b", "#include <a>\n")

		_, err := b.Merge()
		var ambiguous *include.AmbiguousRootError
		if !errors.As(err, &ambiguous) {
			t.Fatalf("Merge() error = %v, want AmbiguousRootError", err)
		}
		if len(ambiguous.Roots) != 0 {
			t.Errorf("ambiguous.Roots = %v, want empty", ambiguous.Roots)
		}
	})
}

func TestBuilder_MergeIdempotent(t *testing.T) {
	b := newBuilder(t)
	b.Add("base", "#include <incl0>\n#include <incl1>\nvoid main() {}")
	b.Add("incl0", "#include <shared>\nA")
	b.Add("incl1", "#include <shared>\nB")
	b.Add("shared", "#pragma once\nS")

	first, err := b.Merge()
	if err != nil {
		t.Fatalf("first Merge() error = %v", err)
	}
	second, err := b.Merge()
	if err != nil {
		t.Fatalf("second Merge() error = %v", err)
	}
	if first != second {
		t.Errorf("Merge() not idempotent:\nfirst:  %q\nsecond: %q", first, second)
	}
}

func TestBuilder_AddReplaces(t *testing.T) {
	b := newBuilder(t)
	b.Add("base", "old")
	b.Add("base", "new")

	got, err := b.Merge()
	if err != nil {
		t.Fatalf("Merge() error = %v", err)
	}
	if got != "new" {
		t.Errorf("Merge() = %q, want re-registration to replace content", got)
	}
}

func TestBuilder_RemoveAndGet(t *testing.T) {
	b := newBuilder(t)
	b.Add("a", "content")

	if got, ok := b.Get("a"); !ok || got != "content" {
		t.Errorf("Get(a) = %q, %v", got, ok)
	}
	if _, ok := b.Get("missing"); ok {
		t.Error("Get(missing) reported ok")
	}

	b.Remove("a")
	if _, ok := b.Get("a"); ok {
		t.Error("Get(a) after Remove reported ok")
	}
	b.Remove("a") // removing twice is fine
	if b.Len() != 0 {
		t.Errorf("Len() = %d, want 0", b.Len())
	}
}

func TestBuilder_MergeDeepChain(t *testing.T) {
	b := newBuilder(t)
	b.Add("base", "#include <l1>\nbase")
	b.Add("l1", "#include <l2>\nl1")
	b.Add("l2", "#include <l3>\nl2")
	b.Add("l3", "l3")

	got, err := b.Merge()
	if err != nil {
		t.Fatalf("Merge() error = %v", err)
	}
	want := "l3\nl2\nl1\nbase"
	if got != want {
		t.Errorf("Merge() = %q, want %q", got, want)
	}
}

func TestBuilder_MergeLeavesRegistryUntouched(t *testing.T) {
	b := newBuilder(t)
	b.Add("base", "#include <a>\n")
	b.Add("a", "#pragma once\ncontent")

	if _, err := b.Merge(); err != nil {
		t.Fatalf("Merge() error = %v", err)
	}

	got, ok := b.Get("a")
	if !ok || got != "#pragma once\ncontent" {
		t.Errorf("Get(a) after merge = %q, registry was modified", got)
	}
}

func TestBuilder_NamesNaturalOrder(t *testing.T) {
	b := newBuilder(t)
	b.Add("s10.glsl", "")
	b.Add("base.frag", "")
	b.Add("s2.glsl", "")

	got := b.Names()
	want := []string{"base.frag", "s2.glsl", "s10.glsl"}
	if len(got) != len(want) {
		t.Fatalf("Names() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Names()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestBuilder_ComposeReportsRoot(t *testing.T) {
	b := newBuilder(t)
	b.Add("base.frag", "#include <lib.glsl>\nvoid main() {}")
	b.Add("lib.glsl", "float f() { return 1.0; }")

	doc, err := b.Compose()
	if err != nil {
		t.Fatalf("Compose() error = %v", err)
	}
	if doc.Root != "base.frag" {
		t.Errorf("Compose() root = %q, want %q", doc.Root, "base.frag")
	}

	merged, err := b.Merge()
	if err != nil {
		t.Fatalf("Merge() error = %v", err)
	}
	if doc.Content != merged {
		t.Errorf("Compose() content differs from Merge(): %q vs %q", doc.Content, merged)
	}
}

func TestNewBuilder_NilLogger(t *testing.T) {
	b := include.NewBuilder(nil)
	b.Add("base", "content")
	if _, err := b.Merge(); err != nil {
		t.Fatalf("Merge() with nil logger error = %v", err)
	}
}
