// Package segment splits whole-document text into approximate page slices.
//
// The PDF decoders in use do not expose per-page character offsets for the
// joined document text, so pages are derived by a uniform proportional split
// of the total length. Page numbers produced here are approximate and callers
// depend on that numbering staying stable.
package segment

import "math"

// Split divides fullText into pageCount slices. Slice i spans characters
// [floor(i*avg), floor((i+1)*avg)) where avg is the character count divided
// by pageCount. pageCount <= 0 returns nil.
func Split(fullText string, pageCount int) []string {
	if pageCount <= 0 {
		return nil
	}
	runes := []rune(fullText)
	avg := float64(len(runes)) / float64(pageCount)
	pages := make([]string, pageCount)
	for i := 0; i < pageCount; i++ {
		start := clamp(int(math.Floor(float64(i)*avg)), len(runes))
		end := clamp(int(math.Floor(float64(i+1)*avg)), len(runes))
		pages[i] = string(runes[start:end])
	}
	return pages
}

func clamp(off, n int) int {
	if off < 0 {
		return 0
	}
	if off > n {
		return n
	}
	return off
}
