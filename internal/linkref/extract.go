// Package linkref extracts issue references such as "#123" or "fixes #123"
// from free text.
package linkref

import (
	"crypto/sha256"
	"regexp"
	"slices"
	"strconv"

	lru "github.com/hashicorp/golang-lru/v2"
)

var (
	// standalonePattern matches "#N" at the start of the text or after a
	// character that cannot be part of a larger token (so "abc#1",
	// "owner/repo#1" and "&#1;" do not match).
	standalonePattern = regexp.MustCompile(`(?:^|[^\w#&/])#(\d+)\b`)

	// verbPattern matches a linking keyword, then a colon or whitespace,
	// then "#N". The keyword carries the same left guard as
	// standalonePattern, so "fix#1" and ".../closed#5" do not match.
	verbPattern = regexp.MustCompile(`(?i)(?:^|[^\w#&/])(?:fix(?:e[sd])?|close[sd]?|resolve[sd]?)(?:\s*:\s*|\s+)#\s*(\d+)\b`)
)

// Set is an unordered, de-duplicated set of referenced entity numbers.
type Set map[int]struct{}

// NewSet returns a set holding the given numbers.
func NewSet(numbers ...int) Set {
	s := make(Set, len(numbers))
	for _, n := range numbers {
		s.Add(n)
	}
	return s
}

// Add inserts n into the set.
func (s Set) Add(n int) {
	s[n] = struct{}{}
}

// Contains reports whether n is in the set.
func (s Set) Contains(n int) bool {
	_, ok := s[n]
	return ok
}

// Len returns the number of elements.
func (s Set) Len() int {
	return len(s)
}

// Sorted returns the elements in ascending order. It never returns nil.
func (s Set) Sorted() []int {
	out := make([]int, 0, len(s))
	for n := range s {
		out = append(out, n)
	}
	slices.Sort(out)
	return out
}

// Extract returns the set of entity numbers referenced in text.
// Text without references yields an empty set.
func Extract(text string) Set {
	refs := make(Set)
	if text == "" {
		return refs
	}
	for _, re := range []*regexp.Regexp{standalonePattern, verbPattern} {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			n, err := strconv.Atoi(m[1])
			if err != nil || n <= 0 {
				continue
			}
			refs.Add(n)
		}
	}
	return refs
}

// ExtractAll returns the union of the references in every text.
func ExtractAll(texts ...string) Set {
	refs := make(Set)
	for _, t := range texts {
		for n := range Extract(t) {
			refs.Add(n)
		}
	}
	return refs
}

// Extractor memoizes Extract keyed by the SHA-256 of the text. The memo is
// a pure function cache: the result for a given text never changes.
type Extractor struct {
	cache *lru.Cache[[sha256.Size]byte, []int]
}

// NewExtractor creates an Extractor remembering up to size texts.
func NewExtractor(size int) (*Extractor, error) {
	cache, err := lru.New[[sha256.Size]byte, []int](size)
	if err != nil {
		return nil, err
	}
	return &Extractor{cache: cache}, nil
}

// Extract behaves like the package-level Extract. A nil Extractor does not
// memoize.
func (e *Extractor) Extract(text string) Set {
	if e == nil || e.cache == nil {
		return Extract(text)
	}
	key := sha256.Sum256([]byte(text))
	if numbers, ok := e.cache.Get(key); ok {
		return NewSet(numbers...)
	}
	refs := Extract(text)
	e.cache.Add(key, refs.Sorted())
	return refs
}

// ExtractAll behaves like the package-level ExtractAll.
func (e *Extractor) ExtractAll(texts ...string) Set {
	refs := make(Set)
	for _, t := range texts {
		for n := range e.Extract(t) {
			refs.Add(n)
		}
	}
	return refs
}
