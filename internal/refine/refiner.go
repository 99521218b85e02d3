package refine

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/local/ravianalyzer/internal/logger"
	"github.com/local/ravianalyzer/internal/metrics"
	"github.com/local/ravianalyzer/internal/ravi"
)

const (
	// MaxPages is the number of hit pages sent for refinement.
	MaxPages = 10
	// MaxChars is the number of leading characters of a page that are sent.
	MaxChars = 3000
)

// Refiner runs the optional refinement pass over keyword results.
type Refiner struct {
	judge Judge
	log   zerolog.Logger
}

// New returns a Refiner. A nil judge disables refinement.
func New(judge Judge) *Refiner {
	return &Refiner{judge: judge, log: logger.Component("refine")}
}

// Enabled reports whether a judge is configured.
func (r *Refiner) Enabled() bool { return r != nil && r.judge != nil }

// Refine judges up to MaxPages distinct pages that produced keyword hits, in
// page order. If at least one page yields a finding, the refined set replaces
// keyword entirely and replaced is true. Otherwise keyword is returned as is.
// Per-page failures are logged and skipped.
func (r *Refiner) Refine(ctx context.Context, book string, pages []string, keyword []ravi.AnalysisResult) (results []ravi.AnalysisResult, replaced bool) {
	if !r.Enabled() || len(keyword) == 0 {
		return keyword, false
	}

	var refined []ravi.AnalysisResult
	for _, page := range hitPages(keyword, MaxPages) {
		if page < 1 || page > len(pages) {
			continue
		}
		if err := ctx.Err(); err != nil {
			r.log.Warn().Err(err).Str("file", book).Msg("refinement aborted")
			break
		}
		j, err := r.judge.Judge(ctx, PageRequest{Book: book, Page: page, Text: leading(pages[page-1], MaxChars)})
		if err != nil {
			r.log.Warn().Err(err).Str("file", book).Int("page", page).Msg("refinement failed for page")
			continue
		}
		if !j.Found {
			continue
		}
		status := j.Status
		if status == "" {
			status = ravi.Unknown
		}
		refined = append(refined, ravi.AnalysisResult{
			BookName: book,
			Status:   status,
			Page:     page,
			Context:  ravi.Truncate(j.Context, ravi.MaxContextLen),
		})
	}

	if len(refined) == 0 {
		metrics.IncRefinement("kept")
		return keyword, false
	}
	metrics.IncRefinement("replaced")
	r.log.Info().Str("file", book).Int("keyword", len(keyword)).Int("refined", len(refined)).Msg("refinement replaced keyword results")
	return refined, true
}

// hitPages returns the distinct pages in results, in first-seen order, capped at max.
func hitPages(results []ravi.AnalysisResult, max int) []int {
	seen := make(map[int]bool)
	var pages []int
	for _, res := range results {
		if seen[res.Page] {
			continue
		}
		seen[res.Page] = true
		pages = append(pages, res.Page)
		if len(pages) == max {
			break
		}
	}
	return pages
}

// leading returns the first n characters of s.
func leading(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
