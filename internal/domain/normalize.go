package domain

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// DefaultStripPattern strips a literal leading "www." label.
const DefaultStripPattern = `www\.`

// Normalizer derives the comparison key used to dedupe items. The key is never
// used to query a collaborator: stored items keep their original value.
type Normalizer struct {
	strip *regexp.Regexp
}

// NewNormalizer compiles pattern as a prefix match. An empty pattern disables
// stripping, leaving only case folding.
func NewNormalizer(pattern string) (*Normalizer, error) {
	if strings.TrimSpace(pattern) == "" {
		return &Normalizer{}, nil
	}
	re, err := regexp.Compile(`^(?:` + pattern + `)`)
	if err != nil {
		return nil, &OpError{
			Op:   "domain.normalizer",
			Kind: KindInvalidConfig,
			Err:  fmt.Errorf("strip pattern %q: %w", pattern, err),
		}
	}
	return &Normalizer{strip: re}, nil
}

// Key lower-cases item and strips a single leading match of the pattern.
// A match covering the whole item is ignored.
func (n *Normalizer) Key(item string) string {
	k := strings.ToLower(strings.TrimSpace(item))
	if n == nil || n.strip == nil {
		return k
	}
	loc := n.strip.FindStringIndex(k)
	if loc == nil || loc[1] == 0 || loc[1] >= len(k) {
		return k
	}
	return k[loc[1]:]
}

// NormalizeAndDedupe walks items in lexicographic order and keeps the first
// item seen for each normalization key. The result is sorted and applying the
// function to its own output returns it unchanged.
func (n *Normalizer) NormalizeAndDedupe(items []string) []string {
	sorted := make([]string, 0, len(items))
	for _, it := range items {
		if strings.TrimSpace(it) != "" {
			sorted = append(sorted, it)
		}
	}
	sort.Strings(sorted)

	seen := make(map[string]struct{}, len(sorted))
	out := make([]string, 0, len(sorted))
	for _, it := range sorted {
		k := n.Key(it)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, it)
	}
	return out
}
