// Package ravi finds occurrences of the narrator term "ravi" in page text and
// labels the surrounding context by keyword matching.
package ravi

import (
	"strings"
	"unicode"
)

const (
	// ContextRadius is the number of characters kept on each side of a match.
	ContextRadius = 100
	// MaxContextLen bounds a reported context, ellipsis included.
	MaxContextLen = 200
	ellipsis      = "..."
)

const term = "ravi"

// Classifier labels contexts with an ordered rule list.
type Classifier struct {
	rules []Rule
}

// New returns a Classifier using rules in the given priority order.
func New(rules []Rule) *Classifier {
	rs := make([]Rule, 0, len(rules))
	for _, r := range rules {
		if r.Term == "" {
			continue
		}
		rs = append(rs, Rule{Term: strings.ToLower(r.Term), Status: r.Status})
	}
	return &Classifier{rules: rs}
}

// Default returns a Classifier over the built-in English and Arabic terms.
func Default() *Classifier { return &Classifier{rules: defaultRules} }

// Classify scans pages in order and returns one result per matching window.
// Page numbers are 1-based. Pages without "ravi" contribute nothing.
func (c *Classifier) Classify(pages []string, bookName string) []AnalysisResult {
	var out []AnalysisResult
	for i, page := range pages {
		for _, m := range windows(page) {
			ctx := strings.TrimSpace(m)
			out = append(out, AnalysisResult{
				BookName: bookName,
				Status:   c.ClassifyContext(ctx),
				Page:     i + 1,
				Context:  Truncate(ctx, MaxContextLen),
			})
		}
	}
	return out
}

// windows returns the non-overlapping context windows around "ravi" in page.
// A window starts at most ContextRadius characters before the first
// unconsumed occurrence, extends over every later occurrence that starts
// within ContextRadius characters of that start, and ends ContextRadius
// characters after the last one it covers. The next search resumes at the
// window end, so nearby occurrences share one window.
func windows(page string) []string {
	rs := []rune(page)
	hits := termStarts(rs)
	if len(hits) == 0 {
		return nil
	}
	n := len([]rune(term))
	var out []string
	next := 0
	for h := 0; h < len(hits); {
		if hits[h] < next {
			h++
			continue
		}
		start := max(next, hits[h]-ContextRadius)
		last := h
		for last+1 < len(hits) && hits[last+1] <= start+ContextRadius {
			last++
		}
		end := min(len(rs), hits[last]+n+ContextRadius)
		out = append(out, string(rs[start:end]))
		next = end
		h = last + 1
	}
	return out
}

// termStarts lists the rune offsets where a case-insensitive "ravi" begins.
func termStarts(rs []rune) []int {
	var starts []int
	t := []rune(term)
	for i := 0; i+len(t) <= len(rs); i++ {
		ok := true
		for k, r := range t {
			if unicode.ToLower(rs[i+k]) != r {
				ok = false
				break
			}
		}
		if ok {
			starts = append(starts, i)
		}
	}
	return starts
}

// ClassifyContext returns the status of the first rule whose term occurs in
// the lowercased context, or Unknown.
func (c *Classifier) ClassifyContext(ctx string) Status {
	lower := strings.ToLower(ctx)
	for _, r := range c.rules {
		if strings.Contains(lower, r.Term) {
			return r.Status
		}
	}
	return Unknown
}

// Classify runs the default classifier.
func Classify(pages []string, bookName string) []AnalysisResult {
	return Default().Classify(pages, bookName)
}

// ClassifyContext runs the default rule list over a single context.
func ClassifyContext(ctx string) Status { return Default().ClassifyContext(ctx) }

// Truncate shortens s to at most max characters, ending in "..." when cut.
func Truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	if max <= len(ellipsis) {
		return string(r[:max])
	}
	return string(r[:max-len(ellipsis)]) + ellipsis
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
