package logger

import (
    "context"
    "encoding/json"
    "fmt"
    "io"
    "os"
    "path/filepath"
    "sync"
    "time"

    "github.com/axiomhq/axiom-go/axiom"
    "github.com/axiomhq/axiom-go/axiom/ingest"
    "github.com/rs/zerolog"
    "github.com/rs/zerolog/log"
    lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

const defaultService = "ravianalyzer"

// Options defines logger initialization parameters.
type Options struct {
    Service    string
    Level      string
    Pretty     bool
    File       string
    MaxSizeMB  int
    MaxBackups int
    MaxAgeDays int
    Compress   bool

    // Extra writer, used by tests to capture output.
    Out io.Writer

    // Axiom
    SendToAxiom  bool
    AxiomAPIKey  string
    AxiomOrgID   string
    AxiomDataset string
    AxiomFlush   time.Duration
}

var (
    global = zerolog.Nop()
    ship   *shipper
)

// Init sets up the global logger: rotated file, console, optional Axiom forwarding.
func Init(opts Options) error {
    if opts.Service == "" {
        opts.Service = defaultService
    }
    if opts.File != "" {
        if err := os.MkdirAll(filepath.Dir(opts.File), 0o755); err != nil {
            return fmt.Errorf("create logs dir: %w", err)
        }
    }

    var writers []io.Writer
    if opts.File != "" {
        writers = append(writers, &lumberjack.Logger{
            Filename:   opts.File,
            MaxSize:    opts.MaxSizeMB,
            MaxBackups: opts.MaxBackups,
            MaxAge:     opts.MaxAgeDays,
            Compress:   opts.Compress,
        })
    }
    switch {
    case opts.Out != nil:
        writers = append(writers, opts.Out)
    case opts.Pretty:
        writers = append(writers, zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
    default:
        writers = append(writers, os.Stdout)
    }

    if opts.SendToAxiom && opts.AxiomAPIKey != "" {
        s, err := newShipper(opts.AxiomAPIKey, opts.AxiomOrgID, opts.AxiomDataset, opts.AxiomFlush)
        if err != nil {
            fmt.Fprintf(os.Stderr, "Axiom disabled: %v\n", err)
        } else {
            ship = s
            writers = append(writers, &axiomWriter{ship: s, service: opts.Service})
        }
    }

    zerolog.TimeFieldFormat = time.RFC3339
    lvl, err := zerolog.ParseLevel(opts.Level)
    if err != nil || opts.Level == "" {
        lvl = zerolog.InfoLevel
    }

    global = zerolog.New(io.MultiWriter(writers...)).
        Level(lvl).
        With().Timestamp().Str("service", opts.Service).
        Logger()
    log.Logger = global
    return nil
}

// Close flushes buffered Axiom events.
func Close() {
    if ship != nil {
        _ = ship.Close()
        ship = nil
    }
}

// Component returns a child of the global logger tagged with the component
// name. Call it after Init; loggers taken before Init discard everything.
func Component(name string) zerolog.Logger {
    return global.With().Str("component", name).Logger()
}

// axiomWriter forwards zerolog JSON lines to Axiom, dropping debug.
type axiomWriter struct {
    ship    *shipper
    service string
}

func (w *axiomWriter) Write(p []byte) (int, error) {
    var ev map[string]interface{}
    if err := json.Unmarshal(p, &ev); err != nil {
        ev = map[string]interface{}{"message": string(p), "level": "info"}
    }
    if lvl, ok := ev["level"].(string); ok && lvl == "debug" {
        return len(p), nil
    }
    if _, ok := ev["service"]; !ok {
        ev["service"] = w.service
    }
    if _, ok := ev[ingest.TimestampField]; !ok {
        ev[ingest.TimestampField] = time.Now()
    }
    w.ship.Send(axiom.Event(ev))
    return len(p), nil
}

// shipper batches events and ingests them on a ticker or when full.
type shipper struct {
    client  *axiom.Client
    dataset string
    ch      chan axiom.Event
    wg      sync.WaitGroup
    done    chan struct{}
    once    sync.Once
}

const batchSize = 200

func newShipper(token, orgID, dataset string, every time.Duration) (*shipper, error) {
    if dataset == "" { dataset = "dev_" + defaultService }
    opts := []axiom.Option{axiom.SetToken(token)}
    if orgID != "" { opts = append(opts, axiom.SetOrganizationID(orgID)) }
    c, err := axiom.NewClient(opts...)
    if err != nil { return nil, err }
    if every <= 0 { every = 10 * time.Second }
    s := &shipper{
        client:  c,
        dataset: dataset,
        ch:      make(chan axiom.Event, 1000),
        done:    make(chan struct{}),
    }
    s.wg.Add(1)
    go s.loop(every)
    return s, nil
}

// Send enqueues an event; it never blocks and drops when the buffer is full.
func (s *shipper) Send(ev axiom.Event) {
    select {
    case s.ch <- ev:
    default:
    }
}

func (s *shipper) loop(every time.Duration) {
    defer s.wg.Done()
    ticker := time.NewTicker(every)
    defer ticker.Stop()
    batch := make([]axiom.Event, 0, batchSize)
    flush := func() {
        if len(batch) == 0 { return }
        ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
        _, _ = s.client.IngestEvents(ctx, s.dataset, batch)
        cancel()
        batch = batch[:0]
    }
    for {
        select {
        case <-s.done:
            for {
                select {
                case ev := <-s.ch:
                    batch = append(batch, ev)
                default:
                    flush()
                    return
                }
            }
        case <-ticker.C:
            flush()
        case ev := <-s.ch:
            batch = append(batch, ev)
            if len(batch) >= batchSize { flush() }
        }
    }
}

func (s *shipper) Close() error {
    s.once.Do(func() { close(s.done) })
    s.wg.Wait()
    return nil
}
