package orchestrator

import (
    "context"
    "errors"
    "fmt"
    "time"

    "github.com/google/uuid"

    "github.com/local/ravianalyzer/internal/metrics"
    "github.com/local/ravianalyzer/internal/mupdf"
    "github.com/local/ravianalyzer/internal/ravi"
    "github.com/local/ravianalyzer/internal/segment"
)

// Result sources recorded in FileSummary.Source.
const (
    SourceKeyword = "keyword"
    SourceRefined = "refined"
)

// Upload is one file part of an analyze request.
type Upload struct {
    Name string
    Data []byte
}

// FileSummary describes how one uploaded file was processed.
type FileSummary struct {
    Name   string `json:"name"`
    Pages  int    `json:"pages"`
    Found  int    `json:"found"`
    Source string `json:"source,omitempty"`
    Note   string `json:"note,omitempty"`
    Error  string `json:"error,omitempty"`
}

// Report is the outcome of one analyze request.
type Report struct {
    ID         string                `json:"id"`
    Results    []ravi.AnalysisResult `json:"results"`
    TotalFound int                   `json:"totalFound"`
    Files      []FileSummary         `json:"files"`
    CreatedAt  time.Time             `json:"createdAt"`
}

// AnalyzeBatch processes uploads one at a time in order. A failing file
// contributes zero results and never aborts the batch.
func (o *Orchestrator) AnalyzeBatch(ctx context.Context, uploads []Upload) Report {
    start := time.Now()
    rep := Report{
        ID:        uuid.NewString(),
        Results:   []ravi.AnalysisResult{},
        Files:     make([]FileSummary, 0, len(uploads)),
        CreatedAt: start.UTC(),
    }
    for _, up := range uploads {
        results, sum := o.AnalyzeFile(ctx, up)
        if sum.Error == "" {
            o.archive(ctx, rep.ID, up)
        }
        rep.Results = append(rep.Results, results...)
        rep.Files = append(rep.Files, sum)
    }
    rep.TotalFound = len(rep.Results)
    metrics.ObserveAnalyze(time.Since(start))

    if o.deps.Results != nil {
        if err := o.deps.Results.Save(ctx, rep); err != nil {
            o.log.Warn().Err(err).Str("report_id", rep.ID).Msg("store report failed")
        }
    }
    o.log.Info().Str("report_id", rep.ID).Int("files", len(uploads)).Int("found", rep.TotalFound).
        Dur("took", time.Since(start)).Msg("batch analyzed")
    return rep
}

// AnalyzeFile detects, decodes, segments and classifies one upload, then
// runs optional refinement over the keyword results.
func (o *Orchestrator) AnalyzeFile(ctx context.Context, up Upload) (results []ravi.AnalysisResult, sum FileSummary) {
    sum = FileSummary{Name: up.Name}
    defer func() {
        if rec := recover(); rec != nil {
            o.log.Error().Interface("panic", rec).Str("file", up.Name).Msg("analyze panicked")
            results, sum.Found, sum.Source = nil, 0, ""
            sum.Error = "internal error"
            metrics.IncFile("error")
        }
    }()

    if err := o.deps.Detector.RequirePDF(up.Data, up.Name); err != nil {
        o.log.Warn().Err(err).Str("file", up.Name).Msg("rejected upload")
        sum.Error = err.Error()
        metrics.IncFile("rejected")
        return nil, sum
    }

    doc, err := o.deps.Extractor.Extract(up.Data)
    if err != nil {
        if errors.Is(err, mupdf.ErrNoText) {
            o.log.Info().Str("file", up.Name).Msg("no extractable text")
            sum.Note = "no extractable text"
            metrics.IncFile("empty")
            return nil, sum
        }
        o.log.Warn().Err(err).Str("file", up.Name).Msg("decode failed")
        sum.Error = fmt.Sprintf("decode failed: %v", err)
        metrics.IncFile("error")
        return nil, sum
    }
    if doc.PageCount < 1 {
        doc.PageCount = 1
    }
    sum.Pages = doc.PageCount

    pages := segment.Split(doc.Text, doc.PageCount)
    keyword := o.deps.Classifier.Classify(pages, up.Name)
    results, sum.Source = keyword, SourceKeyword
    if o.deps.Refiner != nil {
        if refined, replaced := o.deps.Refiner.Refine(ctx, up.Name, pages, keyword); replaced {
            results, sum.Source = refined, SourceRefined
        }
    }

    for _, r := range results {
        metrics.IncMatch(string(r.Status), sum.Source)
    }
    sum.Found = len(results)
    metrics.IncFile("ok")
    o.log.Debug().Str("file", up.Name).Str("decoder", doc.Source).Int("pages", doc.PageCount).
        Int("found", sum.Found).Str("source", sum.Source).Msg("file analyzed")
    return results, sum
}

func (o *Orchestrator) archive(ctx context.Context, reportID string, up Upload) {
    if o.deps.Archive == nil {
        return
    }
    url, err := o.deps.Archive.Put(ctx, reportID, up.Name, up.Data)
    if err != nil {
        o.log.Warn().Err(err).Str("report_id", reportID).Str("file", up.Name).Msg("archive upload failed")
        return
    }
    o.log.Debug().Str("report_id", reportID).Str("url", url).Msg("upload archived")
}
