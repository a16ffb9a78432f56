package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/llm"
	"github.com/joseph-ayodele/invoice-extractor/internal/schema"
)

// ExtractInvoice implements llm.Extractor against chat/completions with
// response_format json_object. The invoice JSON-Schema rides along as a
// system message; the response is sanitized and validated locally — the
// backend's own schema enforcement is treated as best-effort only.
func (c *Client) ExtractInvoice(ctx context.Context, req llm.Request) (schema.Invoice, []byte, error) {
	rid := uuid.New().String()
	start := time.Now()
	desc := schema.InvoiceDescriptor()

	c.log.Info("llm.extract.start",
		"req_id", rid,
		"document_id", req.DocumentID,
		"model", c.cfg.Model,
		"deployment", c.cfg.Deployment,
		"temp", c.cfg.Temperature,
		"text_len", len(req.Text),
	)

	body := map[string]any{
		"temperature":     c.cfg.Temperature,
		"response_format": map[string]any{"type": "json_object"},
		"messages": []map[string]any{
			{"role": "system", "content": llm.BuildSystemPrompt()},
			{"role": "system", "content": "JSON Schema:\n" + mustJSON(desc.JSONSchema())},
			{"role": "user", "content": llm.BuildUserPrompt(req.Text)},
		},
	}
	if c.cfg.Deployment == "" {
		body["model"] = c.cfg.Model
	}

	raw, err := c.post(ctx, c.endpoint(), body)
	if err != nil {
		c.log.Error("llm.extract.http_error",
			"req_id", rid, "document_id", req.DocumentID, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return schema.Invoice{}, nil, err
	}

	var cc struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &cc); err != nil {
		return schema.Invoice{}, raw, fmt.Errorf("decode openai response: %v: %w", err, common.ErrBackend)
	}
	if len(cc.Choices) == 0 {
		return schema.Invoice{}, raw, fmt.Errorf("no choices in openai response: %w", common.ErrBackend)
	}
	content := []byte(strings.TrimSpace(cc.Choices[0].Message.Content))

	cleaned, dropped, err := llm.StripNulls(content, desc)
	if err != nil {
		return schema.Invoice{}, content, fmt.Errorf("sanitize response: %v: %w", err, common.ErrValidation)
	}
	if len(dropped) > 0 {
		c.log.Debug("llm.extract.sanitized", "req_id", rid, "dropped", dropped)
	}

	if err := llm.Validate(desc, cleaned); err != nil {
		c.log.Error("llm.extract.schema_validation_failed",
			"req_id", rid, "document_id", req.DocumentID, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return schema.Invoice{}, cleaned, err
	}

	inv, err := schema.DecodeInvoice(cleaned)
	if err != nil {
		return schema.Invoice{}, cleaned, fmt.Errorf("unmarshal invoice: %v: %w", err, common.ErrValidation)
	}

	c.log.Info("llm.extract.ok",
		"req_id", rid,
		"document_id", req.DocumentID,
		"invoice_number", strOrEmpty(inv.InvoiceNumber),
		"items", len(inv.Items),
		"total_value", inv.TotalValue,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return inv, cleaned, nil
}

// endpoint resolves the chat/completions URL for plain OpenAI or Azure.
func (c *Client) endpoint() string {
	base := strings.TrimRight(c.cfg.Endpoint, "/")
	if c.cfg.Deployment != "" {
		return base + "/openai/deployments/" + c.cfg.Deployment + "/chat/completions?api-version=" + c.cfg.APIVersion
	}
	return base + "/chat/completions"
}

func (c *Client) post(ctx context.Context, url string, body map[string]any) ([]byte, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	if c.cfg.Deployment != "" {
		req.Header.Set("api-key", c.cfg.APIKey)
	} else {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("openai http error: %v: %w", err, common.ErrBackend)
	}
	defer func(body io.ReadCloser) {
		if err := body.Close(); err != nil {
			c.log.Warn("openai response body close error", "error", err)
		}
	}(resp.Body)

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read openai response: %v: %w", err, common.ErrBackend)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("openai status %d: %s: %w", resp.StatusCode, raw, common.ErrBackend)
	}
	return raw, nil
}

func mustJSON(v any) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

func strOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
