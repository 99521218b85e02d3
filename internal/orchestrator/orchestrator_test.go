package orchestrator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/local/ravianalyzer/internal/logger"
	"github.com/local/ravianalyzer/internal/mupdf"
	"github.com/local/ravianalyzer/internal/ravi"
	"github.com/local/ravianalyzer/internal/statuscheck"
	"github.com/local/ravianalyzer/internal/store"
)

// stubExtractor maps upload bytes to a canned document.
type stubExtractor struct {
	docs map[string]mupdf.Document
	errs map[string]error
}

func (s stubExtractor) Extract(data []byte) (mupdf.Document, error) {
	key := string(data)
	if key == "%PDF-panic" {
		panic("boom")
	}
	if err, ok := s.errs[key]; ok {
		return mupdf.Document{}, err
	}
	return s.docs[key], nil
}

type stubRefiner struct {
	out []ravi.AnalysisResult
}

func (s stubRefiner) Refine(_ context.Context, _ string, _ []string, keyword []ravi.AnalysisResult) ([]ravi.AnalysisResult, bool) {
	if len(s.out) == 0 {
		return keyword, false
	}
	return s.out, true
}

type memStore struct {
	mu   sync.Mutex
	reps map[string]Report
	ids  []string
}

func (m *memStore) Save(_ context.Context, rep Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.reps == nil {
		m.reps = map[string]Report{}
	}
	m.reps[rep.ID] = rep
	m.ids = append([]string{rep.ID}, m.ids...)
	return nil
}

func (m *memStore) Load(_ context.Context, id string) (Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rep, ok := m.reps[id]
	if !ok {
		return Report{}, store.ErrNotFound
	}
	return rep, nil
}

func (m *memStore) Recent(_ context.Context, n int) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ids, nil
}

type fakeArchive struct {
	names []string
	err   error
}

func (f *fakeArchive) Put(_ context.Context, reportID, name string, _ []byte) (string, error) {
	f.names = append(f.names, name)
	return "s3://bucket/uploads/" + reportID + "/" + name, f.err
}

type fakeStatus struct{}

func (fakeStatus) Summary(context.Context) statuscheck.Summary {
	return statuscheck.Summary{Redis: statuscheck.Status{OK: true, Message: "Connected"}}
}

const (
	thiqahPDF = "%PDF-thiqah"
	plainPDF  = "%PDF-plain"
	brokenPDF = "%PDF-broken"
	blankPDF  = "%PDF-blank"
)

func newTestOrchestrator(deps Dependencies) *Orchestrator {
	if deps.Extractor == nil {
		deps.Extractor = stubExtractor{
			docs: map[string]mupdf.Document{
				thiqahPDF: {Text: "The ravi is considered thiqah and reliable.", PageCount: 1, Source: "stub"},
				plainPDF:  {Text: "The narrator is considered thiqah and reliable.", PageCount: 2, Source: "stub"},
			},
			errs: map[string]error{
				brokenPDF: errors.New("corrupt xref"),
				blankPDF:  fmt.Errorf("decode pdf: %w", mupdf.ErrNoText),
			},
		}
	}
	return New(deps)
}

type part struct {
	field, name, body string
}

func multipartRequest(t *testing.T, parts ...part) *http.Request {
	t.Helper()
	var b bytes.Buffer
	mw := multipart.NewWriter(&b)
	for _, p := range parts {
		fw, err := mw.CreateFormFile(p.field, p.name)
		require.NoError(t, err)
		_, err = fw.Write([]byte(p.body))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, "/api/analyze", &b)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func serve(o *Orchestrator, req *http.Request) *httptest.ResponseRecorder {
	mux := http.NewServeMux()
	o.RegisterRoutes(mux)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func decodeReport(t *testing.T, rec *httptest.ResponseRecorder) Report {
	t.Helper()
	var rep Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rep))
	return rep
}

func TestAnalyze_SinglePageThiqah(t *testing.T) {
	o := newTestOrchestrator(Dependencies{})
	rec := serve(o, multipartRequest(t, part{"files", "book.pdf", thiqahPDF}))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	rep := decodeReport(t, rec)
	assert.NotEmpty(t, rep.ID)
	assert.Equal(t, 1, rep.TotalFound)
	require.Len(t, rep.Results, 1)
	assert.Equal(t, ravi.AnalysisResult{
		BookName: "book.pdf",
		Status:   ravi.Thiqah,
		Page:     1,
		Context:  "The ravi is considered thiqah and reliable.",
	}, rep.Results[0])
	require.Len(t, rep.Files, 1)
	assert.Equal(t, FileSummary{Name: "book.pdf", Pages: 1, Found: 1, Source: SourceKeyword}, rep.Files[0])
}

func TestAnalyze_NoRaviYieldsEmptyArray(t *testing.T) {
	o := newTestOrchestrator(Dependencies{})
	rec := serve(o, multipartRequest(t, part{"files", "plain.pdf", plainPDF}))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"results":[]`)
	assert.Contains(t, rec.Body.String(), `"totalFound":0`)
}

func TestAnalyze_AcceptsSingularFieldName(t *testing.T) {
	o := newTestOrchestrator(Dependencies{})
	rec := serve(o, multipartRequest(t, part{"file", "a.pdf", thiqahPDF}, part{"files", "b.pdf", thiqahPDF}))

	require.Equal(t, http.StatusOK, rec.Code)
	rep := decodeReport(t, rec)
	assert.Equal(t, 2, rep.TotalFound)
	books := []string{rep.Results[0].BookName, rep.Results[1].BookName}
	assert.ElementsMatch(t, []string{"a.pdf", "b.pdf"}, books)
}

func TestAnalyze_NoFiles(t *testing.T) {
	o := newTestOrchestrator(Dependencies{})

	rec := serve(o, multipartRequest(t))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.NotEmpty(t, body["error"])

	req := httptest.NewRequest(http.MethodPost, "/api/analyze", strings.NewReader("x"))
	req.Header.Set("Content-Type", "text/plain")
	rec = serve(o, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"error"`)
}

func TestAnalyze_WrongMethod(t *testing.T) {
	o := newTestOrchestrator(Dependencies{})
	rec := serve(o, httptest.NewRequest(http.MethodGet, "/api/analyze", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestAnalyze_TooLarge(t *testing.T) {
	o := newTestOrchestrator(Dependencies{MaxUploadBytes: 128})
	rec := serve(o, multipartRequest(t, part{"files", "big.pdf", "%PDF-" + strings.Repeat("a", 4096)}))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestAnalyze_FailuresAreIsolatedPerFile(t *testing.T) {
	o := newTestOrchestrator(Dependencies{})
	rec := serve(o, multipartRequest(t,
		part{"files", "image.png", "\x89PNG\r\n\x1a\n0000"},
		part{"files", "broken.pdf", brokenPDF},
		part{"files", "blank.pdf", blankPDF},
		part{"files", "panic.pdf", "%PDF-panic"},
		part{"files", "good.pdf", thiqahPDF},
	))

	require.Equal(t, http.StatusOK, rec.Code)
	rep := decodeReport(t, rec)
	assert.Equal(t, 1, rep.TotalFound)
	assert.Equal(t, "good.pdf", rep.Results[0].BookName)

	require.Len(t, rep.Files, 5)
	assert.Contains(t, rep.Files[0].Error, "not a PDF")
	assert.Contains(t, rep.Files[1].Error, "decode failed")
	assert.Empty(t, rep.Files[2].Error)
	assert.Equal(t, "no extractable text", rep.Files[2].Note)
	assert.Equal(t, "internal error", rep.Files[3].Error)
	assert.Empty(t, rep.Files[4].Error)
	assert.Equal(t, 1, rep.Files[4].Found)
}

func TestAnalyzeFile_ZeroPageCountTreatedAsOne(t *testing.T) {
	o := newTestOrchestrator(Dependencies{Extractor: stubExtractor{docs: map[string]mupdf.Document{
		"%PDF-x": {Text: "ravi weak", PageCount: 0},
	}}})
	results, sum := o.AnalyzeFile(context.Background(), Upload{Name: "x.pdf", Data: []byte("%PDF-x")})
	assert.Equal(t, 1, sum.Pages)
	require.Len(t, results, 1)
	assert.Equal(t, 1, results[0].Page)
	assert.Equal(t, ravi.Zaeef, results[0].Status)
}

func TestAnalyze_RefinedResultsReplaceKeyword(t *testing.T) {
	refined := []ravi.AnalysisResult{{BookName: "book.pdf", Status: ravi.Zaeef, Page: 1, Context: "model says weak"}}
	o := newTestOrchestrator(Dependencies{Refiner: stubRefiner{out: refined}})
	rep := o.AnalyzeBatch(context.Background(), []Upload{{Name: "book.pdf", Data: []byte(thiqahPDF)}})

	assert.Equal(t, refined, rep.Results)
	assert.Equal(t, SourceRefined, rep.Files[0].Source)

	o = newTestOrchestrator(Dependencies{Refiner: stubRefiner{}})
	rep = o.AnalyzeBatch(context.Background(), []Upload{{Name: "book.pdf", Data: []byte(thiqahPDF)}})
	require.Len(t, rep.Results, 1)
	assert.Equal(t, ravi.Thiqah, rep.Results[0].Status)
	assert.Equal(t, SourceKeyword, rep.Files[0].Source)
}

func TestAnalyze_ArchivesOnlyAcceptedFiles(t *testing.T) {
	arch := &fakeArchive{}
	o := newTestOrchestrator(Dependencies{Archive: arch})
	o.AnalyzeBatch(context.Background(), []Upload{
		{Name: "good.pdf", Data: []byte(thiqahPDF)},
		{Name: "notes.txt", Data: []byte("plain text")},
	})
	assert.Equal(t, []string{"good.pdf"}, arch.names)

	arch = &fakeArchive{err: errors.New("s3 down")}
	o = newTestOrchestrator(Dependencies{Archive: arch})
	rep := o.AnalyzeBatch(context.Background(), []Upload{{Name: "good.pdf", Data: []byte(thiqahPDF)}})
	assert.Equal(t, 1, rep.TotalFound, "archive failure never fails analysis")
}

func TestResults_Endpoints(t *testing.T) {
	ms := &memStore{}
	o := newTestOrchestrator(Dependencies{Results: ms})
	rep := o.AnalyzeBatch(context.Background(), []Upload{{Name: "book.pdf", Data: []byte(thiqahPDF)}})

	rec := serve(o, httptest.NewRequest(http.MethodGet, "/api/results/"+rep.ID, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	got := decodeReport(t, rec)
	assert.Equal(t, rep.ID, got.ID)
	assert.Equal(t, 1, got.TotalFound)

	rec = serve(o, httptest.NewRequest(http.MethodGet, "/api/results/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = serve(o, httptest.NewRequest(http.MethodGet, "/api/results", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), rep.ID)

	bare := newTestOrchestrator(Dependencies{})
	rec = serve(bare, httptest.NewRequest(http.MethodGet, "/api/results/"+rep.ID, nil))
	assert.Equal(t, http.StatusNotImplemented, rec.Code)
	rec = serve(bare, httptest.NewRequest(http.MethodGet, "/api/results", nil))
	assert.Equal(t, http.StatusNotImplemented, rec.Code)
}

func TestHealthAndStatus(t *testing.T) {
	o := newTestOrchestrator(Dependencies{Status: fakeStatus{}})

	rec := serve(o, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	rec = serve(o, httptest.NewRequest(http.MethodGet, "/status", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var sum statuscheck.Summary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sum))
	assert.True(t, sum.Redis.OK)
}

func TestAnalyzeFile_LogsWithComponent(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, logger.Init(logger.Options{Level: "info", Out: &buf}))
	defer func() { _ = logger.Init(logger.Options{Level: "disabled", Out: &bytes.Buffer{}}) }()

	o := newTestOrchestrator(Dependencies{})
	_, sum := o.AnalyzeFile(context.Background(), Upload{Name: "notes.txt", Data: []byte("plain text")})
	require.NotEmpty(t, sum.Error)

	var ev map[string]any
	line, _, _ := bytes.Cut(buf.Bytes(), []byte("\n"))
	require.NoError(t, json.Unmarshal(line, &ev))
	assert.Equal(t, "orchestrator", ev["component"])
	assert.Equal(t, "notes.txt", ev["file"])
	assert.Equal(t, "rejected upload", ev["message"])
}
