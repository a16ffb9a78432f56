package llm

import (
	"context"

	"github.com/joseph-ayodele/invoice-extractor/internal/schema"
)

// Request is one structured-extraction request: a document identifier and
// the raw text pulled from it. Empty text is valid input — the backend is
// expected to return nulls for attributes it cannot find.
type Request struct {
	DocumentID string
	Text       string
}

// Extractor is the interface the batch engine depends on. Implementations
// return the validated invoice plus the raw (sanitized) JSON the backend
// produced. Errors are tagged with the common error kinds so the engine can
// tell retryable backend failures from terminal validation failures.
type Extractor interface {
	ExtractInvoice(ctx context.Context, req Request) (schema.Invoice, []byte, error)
}
