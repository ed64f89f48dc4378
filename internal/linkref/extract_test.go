package linkref

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestExtract(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []int
	}{
		{"empty", "", []int{}},
		{"no references", "refactor the parser", []int{}},
		{"linking verbs", "Fixes #123 and closes #456", []int{123, 456}},
		{"embedded in token", "see abc#123", []int{}},
		{"cross repository reference", "see owner/repo#12", []int{}},
		{"html entity", "quote &#39;x&#39;", []int{}},
		{"standalone", "#7 at start, then (#8) and #9.", []int{7, 8, 9}},
		{"duplicates collapse", "#5 fixes #5 resolved #5", []int{5}},
		{"case insensitive verbs", "RESOLVES #10, Closed #11", []int{10, 11}},
		{"verb without space", "fixes#42", []int{}},
		{"verb glued to hash", "fix#123", []int{}},
		{"url fragment after verb", "see https://wiki.test/runbooks/closed#5", []int{}},
		{"verb inside a word", "prefixes #6", []int{6}},
		{"verb with colon", "Closes: #43", []int{43}},
		{"trailing letters", "#12abc is not a ref", []int{}},
		{"zero is ignored", "#0", []int{}},
		{"multiline", "Title\n\nFixes #1\nRelated #2", []int{1, 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Extract(tt.text).Sorted()
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Extract(%q) mismatch (-want +got):\n%s", tt.text, diff)
			}
		})
	}
}

func TestExtractAllKeepsTextsSeparate(t *testing.T) {
	// Joining "Fix #1" and "#2" without a separator would hide #2.
	got := ExtractAll("Fix #1", "#2").Sorted()
	if diff := cmp.Diff([]int{1, 2}, got); diff != "" {
		t.Errorf("ExtractAll mismatch (-want +got):\n%s", diff)
	}
}

func TestSet(t *testing.T) {
	s := NewSet(3, 1, 3)
	if s.Len() != 2 {
		t.Errorf("expected 2 elements, got %d", s.Len())
	}
	if !s.Contains(1) || !s.Contains(3) {
		t.Error("expected set to contain 1 and 3")
	}
	if s.Contains(2) {
		t.Error("expected set not to contain 2")
	}
	if got := NewSet().Sorted(); got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", got)
	}
}

func TestExtractorMemoizes(t *testing.T) {
	e, err := NewExtractor(8)
	if err != nil {
		t.Fatalf("NewExtractor: %v", err)
	}

	first := e.Extract("fixes #99")
	// Mutating a returned set must not leak into the memo.
	first.Add(1000)

	second := e.Extract("fixes #99")
	if diff := cmp.Diff([]int{99}, second.Sorted()); diff != "" {
		t.Errorf("memoized result mismatch (-want +got):\n%s", diff)
	}
	if e.cache.Len() != 1 {
		t.Errorf("expected 1 cached entry, got %d", e.cache.Len())
	}
}

func TestNilExtractor(t *testing.T) {
	var e *Extractor
	if got := e.ExtractAll("closes #4", "").Sorted(); !cmp.Equal(got, []int{4}) {
		t.Errorf("expected [4], got %v", got)
	}
}

func TestNewExtractorRejectsInvalidSize(t *testing.T) {
	if _, err := NewExtractor(0); err == nil {
		t.Error("expected error for zero size")
	}
}
