package pdf

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/joseph-ayodele/invoice-extractor/internal/common"
)

// Extractor pulls text out of PDF files using pdfcpu's content-stream
// parser. Pages are concatenated with newline separators. A corrupt or
// unreadable file surfaces as an I/O error, not an extraction error.
type Extractor struct {
	log *slog.Logger
}

func NewExtractor(logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{log: logger}
}

// ExtractText returns the document text and page count. A PDF with no text
// content (e.g. a pure scan) yields an empty string and no error — the
// extraction contract treats empty text as valid null-heavy input.
func (e *Extractor) ExtractText(ctx context.Context, path string) (string, int, error) {
	start := time.Now()

	f, err := os.Open(path)
	if err != nil {
		return "", 0, fmt.Errorf("open pdf: %v: %w", err, common.ErrIO)
	}
	defer func() {
		if err := f.Close(); err != nil {
			e.log.Warn("pdf close error", "path", path, "error", err)
		}
	}()

	pdfCtx, err := api.ReadValidateAndOptimize(f, model.NewDefaultConfiguration())
	if err != nil {
		return "", 0, fmt.Errorf("read pdf %s: %v: %w", path, err, common.ErrIO)
	}

	var sb strings.Builder
	for pageNr := 1; pageNr <= pdfCtx.PageCount; pageNr++ {
		if err := ctx.Err(); err != nil {
			return "", pdfCtx.PageCount, err
		}
		text := extractPageText(pdfCtx, pageNr)
		sb.WriteString(text)
		sb.WriteByte('\n')
	}

	e.log.Debug("pdf.extract.ok",
		"path", path,
		"pages", pdfCtx.PageCount,
		"chars", sb.Len(),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return sb.String(), pdfCtx.PageCount, nil
}

func extractPageText(pdfCtx *model.Context, pageNr int) string {
	r, err := pdfcpu.ExtractPageContent(pdfCtx, pageNr)
	if err != nil || r == nil {
		return ""
	}
	data, err := io.ReadAll(r)
	if err != nil || len(data) == 0 {
		return ""
	}
	return ParseContentStream(data)
}
