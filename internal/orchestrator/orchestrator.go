package orchestrator

import (
    "context"
    "encoding/json"
    "errors"
    "io"
    "mime/multipart"
    "net/http"
    "strconv"
    "strings"

    "github.com/rs/zerolog"

    "github.com/local/ravianalyzer/internal/filetype"
    "github.com/local/ravianalyzer/internal/logger"
    "github.com/local/ravianalyzer/internal/mupdf"
    "github.com/local/ravianalyzer/internal/ravi"
    "github.com/local/ravianalyzer/internal/statuscheck"
    "github.com/local/ravianalyzer/internal/store"
)

// Classifier turns page texts into keyword results.
type Classifier interface {
    Classify(pages []string, book string) []ravi.AnalysisResult
}

// Refiner optionally replaces keyword results with model judgments.
type Refiner interface {
    Refine(ctx context.Context, book string, pages []string, keyword []ravi.AnalysisResult) ([]ravi.AnalysisResult, bool)
}

// ResultStore persists reports for later lookup.
type ResultStore interface {
    Save(ctx context.Context, rep Report) error
    Load(ctx context.Context, id string) (Report, error)
    Recent(ctx context.Context, n int) ([]string, error)
}

// Archive keeps a copy of uploaded bytes.
type Archive interface {
    Put(ctx context.Context, reportID, name string, data []byte) (string, error)
}

// StatusChecker reports dependency readiness for /status.
type StatusChecker interface {
    Summary(ctx context.Context) statuscheck.Summary
}

type Dependencies struct {
    Extractor  mupdf.Extractor
    Detector   *filetype.Detector
    Classifier Classifier
    Refiner    Refiner
    Results    ResultStore
    Archive    Archive
    Status     StatusChecker
    // MaxUploadBytes caps the request body; zero means 64MB.
    MaxUploadBytes int64
}

type Orchestrator struct {
    deps Dependencies
    log  zerolog.Logger
}

const defaultMaxUpload = 64 << 20

// Form field names accepted for file parts.
var fileFields = []string{"files", "file"}

func New(deps Dependencies) *Orchestrator {
    if deps.Extractor == nil { deps.Extractor = mupdf.Default() }
    if deps.Detector == nil { deps.Detector = filetype.New() }
    if deps.Classifier == nil { deps.Classifier = ravi.Default() }
    if deps.MaxUploadBytes <= 0 { deps.MaxUploadBytes = defaultMaxUpload }
    return &Orchestrator{deps: deps, log: logger.Component("orchestrator")}
}

func (o *Orchestrator) RegisterRoutes(mux *http.ServeMux) {
    mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request){ w.WriteHeader(http.StatusOK); _,_ = w.Write([]byte("ok")) })
    mux.HandleFunc("/status", o.handleStatus)
    mux.HandleFunc("/api/analyze", o.handleAnalyze)
    mux.HandleFunc("/api/results", o.handleRecent)
    mux.HandleFunc("/api/results/", o.handleResult)
}

type errorResp struct {
    Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
    w.Header().Set("Content-Type", "application/json")
    w.WriteHeader(code)
    _ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
    writeJSON(w, code, errorResp{Error: msg})
}

// handleAnalyze accepts multipart uploads under "files" (or "file") and
// returns the batch report.
func (o *Orchestrator) handleAnalyze(w http.ResponseWriter, r *http.Request) {
    if r.Method != http.MethodPost {
        writeError(w, http.StatusMethodNotAllowed, "method not allowed"); return
    }
    defer func() {
        if rec := recover(); rec != nil {
            o.log.Error().Interface("panic", rec).Msg("analyze request panicked")
            writeError(w, http.StatusInternalServerError, "Failed to analyze files")
        }
    }()

    r.Body = http.MaxBytesReader(w, r.Body, o.deps.MaxUploadBytes)
    if err := r.ParseMultipartForm(32 << 20); err != nil {
        var tooBig *http.MaxBytesError
        switch {
        case errors.As(err, &tooBig):
            writeError(w, http.StatusRequestEntityTooLarge, "upload too large")
        case errors.Is(err, http.ErrNotMultipart):
            writeError(w, http.StatusBadRequest, "No files uploaded")
        default:
            writeError(w, http.StatusBadRequest, "invalid multipart form")
        }
        return
    }
    defer func() { _ = r.MultipartForm.RemoveAll() }()

    var headers []*multipart.FileHeader
    for _, f := range fileFields {
        headers = append(headers, r.MultipartForm.File[f]...)
    }
    if len(headers) == 0 {
        writeError(w, http.StatusBadRequest, "No files uploaded"); return
    }

    uploads := make([]Upload, 0, len(headers))
    var unread []FileSummary
    for _, h := range headers {
        data, err := readPart(h)
        if err != nil {
            o.log.Warn().Err(err).Str("file", h.Filename).Msg("read upload failed")
            unread = append(unread, FileSummary{Name: h.Filename, Error: "read failed"})
            continue
        }
        uploads = append(uploads, Upload{Name: h.Filename, Data: data})
    }

    rep := o.AnalyzeBatch(r.Context(), uploads)
    rep.Files = append(rep.Files, unread...)
    writeJSON(w, http.StatusOK, rep)
}

func readPart(h *multipart.FileHeader) ([]byte, error) {
    f, err := h.Open()
    if err != nil { return nil, err }
    defer f.Close()
    return io.ReadAll(f)
}

func (o *Orchestrator) handleResult(w http.ResponseWriter, r *http.Request) {
    if r.Method != http.MethodGet {
        writeError(w, http.StatusMethodNotAllowed, "method not allowed"); return
    }
    if o.deps.Results == nil {
        writeError(w, http.StatusNotImplemented, "result store not configured"); return
    }
    id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/results/"), "/")
    if id == "" {
        writeError(w, http.StatusNotFound, "report not found"); return
    }
    rep, err := o.deps.Results.Load(r.Context(), id)
    if errors.Is(err, store.ErrNotFound) {
        writeError(w, http.StatusNotFound, "report not found"); return
    }
    if err != nil {
        o.log.Error().Err(err).Str("report_id", id).Msg("load report failed")
        writeError(w, http.StatusInternalServerError, "load failed"); return
    }
    writeJSON(w, http.StatusOK, rep)
}

func (o *Orchestrator) handleRecent(w http.ResponseWriter, r *http.Request) {
    if r.Method != http.MethodGet {
        writeError(w, http.StatusMethodNotAllowed, "method not allowed"); return
    }
    if o.deps.Results == nil {
        writeError(w, http.StatusNotImplemented, "result store not configured"); return
    }
    n, _ := strconv.Atoi(r.URL.Query().Get("limit"))
    ids, err := o.deps.Results.Recent(r.Context(), n)
    if err != nil {
        o.log.Error().Err(err).Msg("list reports failed")
        writeError(w, http.StatusInternalServerError, "list failed"); return
    }
    if ids == nil { ids = []string{} }
    writeJSON(w, http.StatusOK, map[string]any{"ids": ids})
}

func (o *Orchestrator) handleStatus(w http.ResponseWriter, r *http.Request) {
    if o.deps.Status == nil {
        writeError(w, http.StatusNotImplemented, "status not configured"); return
    }
    writeJSON(w, http.StatusOK, o.deps.Status.Summary(r.Context()))
}
