package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/llm"
	"github.com/joseph-ayodele/invoice-extractor/internal/schema"
)

// Document is one unit of batch input: an identifier (usually the source
// filename) and the raw text extracted from it. Empty text is valid.
type Document struct {
	ID   string
	Text string
}

// Kind classifies a per-document failure.
type Kind string

const (
	KindBackend    Kind = "BACKEND"    // network/provider failure, retryable
	KindValidation Kind = "VALIDATION" // response shape rejected, not retryable
	KindCanceled   Kind = "CANCELED"   // batch context canceled before completion
)

// Error is a typed per-document failure attached to a result slot.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Result is one slot of batch output, index-aligned with the input sequence.
// Exactly one of Invoice or Err is set.
type Result struct {
	DocumentID string
	Invoice    *schema.Invoice
	Raw        []byte
	Err        *Error
}

// Engine fans extraction requests out to a bounded worker pool. The batch
// boundary exists to parallelize backend latency, not to impose atomicity:
// every document succeeds or fails on its own.
type Engine struct {
	extractor  llm.Extractor
	logger     *slog.Logger
	workers    int
	maxRetries int
	backoff    time.Duration
}

type Option func(*Engine)

func WithWorkers(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

func WithMaxRetries(n int) Option {
	return func(e *Engine) {
		if n >= 0 {
			e.maxRetries = n
		}
	}
}

func WithBackoff(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.backoff = d
		}
	}
}

func NewEngine(extractor llm.Extractor, logger *slog.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Engine{
		extractor:  extractor,
		logger:     logger,
		workers:    4,
		maxRetries: 2,
		backoff:    2 * time.Second,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Run submits one extraction request per document and waits for the joint
// completion. It always returns exactly len(docs) result slots in input
// order. Cancelling ctx aborts in-flight requests; already-completed slots
// keep their results and unfinished slots carry a CANCELED error.
func (e *Engine) Run(ctx context.Context, docs []Document) []Result {
	runID := uuid.New().String()
	start := time.Now()
	e.logger.Info("batch.run.start", "run_id", runID, "documents", len(docs), "workers", e.workers)

	results := make([]Result, len(docs))
	sem := make(chan struct{}, e.workers)
	var wg sync.WaitGroup

	for i, doc := range docs {
		wg.Add(1)
		go func(i int, doc Document) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			results[i] = e.extractOne(ctx, runID, doc)
		}(i, doc)
	}
	wg.Wait()

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	e.logger.Info("batch.run.done",
		"run_id", runID,
		"documents", len(docs),
		"succeeded", len(docs)-failed,
		"failed", failed,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return results
}

func (e *Engine) extractOne(ctx context.Context, runID string, doc Document) Result {
	res := Result{DocumentID: doc.ID}

	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			res.Err = &Error{Kind: KindCanceled, Err: canceled(err)}
			return res
		}

		inv, raw, err := e.extractor.ExtractInvoice(ctx, llm.Request{DocumentID: doc.ID, Text: doc.Text})
		if err == nil {
			res.Invoice = &inv
			res.Raw = raw
			return res
		}
		res.Raw = raw

		kind := classify(ctx, err)
		if kind == KindBackend && attempt < e.maxRetries {
			e.logger.Warn("batch.extract.retry",
				"run_id", runID, "document_id", doc.ID,
				"attempt", attempt+1, "error", err,
			)
			if !sleep(ctx, e.backoff*time.Duration(attempt+1)) {
				res.Err = &Error{Kind: KindCanceled, Err: canceled(ctx.Err())}
				return res
			}
			continue
		}

		e.logger.Error("batch.extract.failed",
			"run_id", runID, "document_id", doc.ID,
			"kind", string(kind), "attempts", attempt+1, "error", err,
		)
		res.Err = &Error{Kind: kind, Err: err}
		return res
	}
}

// classify maps an extraction error to its failure kind. Validation is
// checked first: it is a terminal verdict on the response and must not be
// masked by a cancel racing in after the call completed.
func classify(ctx context.Context, err error) Kind {
	switch {
	case errors.Is(err, common.ErrValidation):
		return KindValidation
	case ctx.Err() != nil,
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, common.ErrCanceled):
		return KindCanceled
	default:
		return KindBackend
	}
}

// canceled tags a context error with the pipeline's cancellation kind so
// callers can classify results with errors.Is alone.
func canceled(err error) error {
	return fmt.Errorf("batch canceled: %v: %w", err, common.ErrCanceled)
}

// sleep waits for d or until ctx is canceled; reports whether the full wait
// completed.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
