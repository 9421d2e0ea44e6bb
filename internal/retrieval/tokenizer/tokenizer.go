// Package tokenizer turns text into the word sets used for overlap scoring.
// Words are lower-cased and split on whitespace only: punctuation stays
// attached and no stemming or stop-word removal is applied, so "beta," and
// "beta" are different words.
package tokenizer

import (
	"sort"
	"strings"
)

// Set is a set of distinct words.
type Set map[string]struct{}

// Words returns the distinct lower-cased whitespace-separated words of text.
func Words(text string) Set {
	fields := strings.Fields(strings.ToLower(text))
	set := make(Set, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}

// Overlap returns the number of words present in both sets.
func Overlap(a, b Set) int {
	if len(a) > len(b) {
		a, b = b, a
	}
	n := 0
	for w := range a {
		if _, ok := b[w]; ok {
			n++
		}
	}
	return n
}

// Sorted returns the words of s in lexical order.
func (s Set) Sorted() []string {
	words := make([]string, 0, len(s))
	for w := range s {
		words = append(words, w)
	}
	sort.Strings(words)
	return words
}
