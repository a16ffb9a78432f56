// Package pipeline orchestrates the document-to-record flow: list PDFs,
// extract text, run the batch extraction engine, then flatten and persist
// every validated invoice. Per-document failures never abort the run.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/joseph-ayodele/invoice-extractor/internal/batch"
	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/flatten"
	"github.com/joseph-ayodele/invoice-extractor/internal/store"
)

// TextExtractor is stage 1: file -> text. The PDF adapter implements it;
// tests and other front-ends may substitute their own.
type TextExtractor interface {
	ExtractText(ctx context.Context, path string) (string, int, error)
}

// Outcome classifies what happened to one document during a run.
type Outcome string

const (
	OutcomeOK          Outcome = "OK"
	OutcomeIOError     Outcome = "IO_ERROR"
	OutcomeBackend     Outcome = "BACKEND_ERROR"
	OutcomeValidation  Outcome = "VALIDATION_ERROR"
	OutcomeCanceled    Outcome = "CANCELED"
	OutcomePersistence Outcome = "PERSISTENCE_ERROR"
)

// DocumentReport is the per-document slot of a run report, index-aligned
// with the input file order. A failed document keeps its identifier and
// error kind — it is never silently dropped.
type DocumentReport struct {
	Source        string
	InvoiceNumber string
	JSONPath      string
	Items         int
	Outcome       Outcome
	Err           error
}

// Report summarizes one ProcessDirectory run.
type Report struct {
	Documents []DocumentReport
	RowSets   []flatten.RowSet
	Succeeded int
	Failed    int
}

// Processor wires the text extractor, batch engine, and persistence sink.
// Store may be nil for JSON-only runs.
type Processor struct {
	text   TextExtractor
	engine *batch.Engine
	store  *store.Store
	logger *slog.Logger
}

func NewProcessor(text TextExtractor, engine *batch.Engine, st *store.Store, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{text: text, engine: engine, store: st, logger: logger}
}

// ListPDFs returns the sorted *.pdf files in dir.
func ListPDFs(dir string) ([]string, error) {
	if st, err := os.Stat(dir); err != nil || !st.IsDir() {
		return nil, fmt.Errorf("input directory %s: %w", dir, common.ErrIO)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read directory %s: %v: %w", dir, err, common.ErrIO)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(e.Name()), ".pdf") {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

// ProcessDirectory runs the full pipeline over every *.pdf in inDir, writing
// JSON files (and relational rows when a store is configured) under outDir.
// The report's Documents slice is aligned with the sorted input file order.
func (p *Processor) ProcessDirectory(ctx context.Context, inDir, outDir string) (Report, error) {
	start := time.Now()

	files, err := ListPDFs(inDir)
	if err != nil {
		return Report{}, err
	}
	p.logger.Info("pipeline.run.start", "dir", inDir, "files", len(files))

	report := Report{Documents: make([]DocumentReport, len(files))}

	// Stage 1: text extraction. I/O failures are recorded per document and
	// excluded from the batch; siblings continue.
	docs := make([]batch.Document, 0, len(files))
	docIdx := make([]int, 0, len(files))
	for i, path := range files {
		report.Documents[i] = DocumentReport{Source: path}
		text, pages, err := p.text.ExtractText(ctx, path)
		if err != nil {
			p.logger.Error("pipeline.text.failed", "source", path, "error", err)
			report.Documents[i].Outcome = OutcomeIOError
			report.Documents[i].Err = err
			continue
		}
		p.logger.Debug("pipeline.text.ok", "source", path, "pages", pages, "chars", len(text))
		docs = append(docs, batch.Document{ID: filepath.Base(path), Text: text})
		docIdx = append(docIdx, i)
	}

	// Stage 2: one logical batch of structured-extraction requests.
	results := p.engine.Run(ctx, docs)

	// Stage 3: flatten + persist each validated invoice independently.
	for n, res := range results {
		i := docIdx[n]
		rep := &report.Documents[i]
		if res.Err != nil {
			rep.Outcome = outcomeFor(res.Err.Kind)
			rep.Err = res.Err
			continue
		}

		rs := flatten.Flatten(*res.Invoice, files[i])
		rep.InvoiceNumber = rs.Key()
		rep.Items = len(rs.Items)

		base := flatten.FallbackKey(files[i])
		path, err := store.WriteJSON(outDir, base, *res.Invoice)
		if err != nil {
			p.logger.Error("pipeline.persist.json_failed", "source", files[i], "error", err)
			rep.Outcome = OutcomePersistence
			rep.Err = err
			continue
		}
		rep.JSONPath = path

		if p.store != nil {
			if err := p.store.UpsertInvoice(ctx, rs); err != nil {
				p.logger.Error("pipeline.persist.db_failed", "source", files[i], "error", err)
				rep.Outcome = OutcomePersistence
				rep.Err = err
				continue
			}
		}

		rep.Outcome = OutcomeOK
		report.RowSets = append(report.RowSets, rs)
	}

	for _, d := range report.Documents {
		if d.Outcome == OutcomeOK {
			report.Succeeded++
		} else {
			report.Failed++
		}
	}

	p.logger.Info("pipeline.run.done",
		"files", len(files),
		"succeeded", report.Succeeded,
		"failed", report.Failed,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return report, nil
}

func outcomeFor(kind batch.Kind) Outcome {
	switch kind {
	case batch.KindValidation:
		return OutcomeValidation
	case batch.KindCanceled:
		return OutcomeCanceled
	default:
		return OutcomeBackend
	}
}
