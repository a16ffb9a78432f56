package store

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/schema"
)

// WriteJSON persists the full invoice as one canonical JSON file named after
// the source document's base name. Returns the written path.
func WriteJSON(dir, baseName string, inv schema.Invoice) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %v: %w", err, common.ErrIO)
	}
	b, err := schema.EncodeInvoice(inv)
	if err != nil {
		return "", fmt.Errorf("encode invoice: %w", err)
	}
	path := filepath.Join(dir, baseName+".json")
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %v: %w", path, err, common.ErrIO)
	}
	return path, nil
}
