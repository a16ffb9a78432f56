package anthropic

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/llm"
	"github.com/joseph-ayodele/invoice-extractor/internal/schema"
)

// Config for the Anthropic messages client.
type Config struct {
	APIKey      string
	Model       string // default claude-sonnet-4-20250514
	MaxTokens   int64
	Temperature float32
	Timeout     time.Duration
}

// Client implements llm.Extractor on the Anthropic messages API. Claude has
// no response_format constraint, so the JSON-Schema is embedded in the system
// prompt and the reply is sanitized and validated the same way as any other
// backend response.
type Client struct {
	cfg    Config
	client anthropic.Client
	log    *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.Model == "" {
		cfg.Model = "claude-sonnet-4-20250514"
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 8192
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 45 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	opts := []option.RequestOption{option.WithRequestTimeout(cfg.Timeout)}
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	return &Client{
		cfg:    cfg,
		client: anthropic.NewClient(opts...),
		log:    logger,
	}
}

func (c *Client) ExtractInvoice(ctx context.Context, req llm.Request) (schema.Invoice, []byte, error) {
	rid := uuid.New().String()
	start := time.Now()
	desc := schema.InvoiceDescriptor()

	c.log.Info("llm.extract.start",
		"req_id", rid,
		"document_id", req.DocumentID,
		"model", c.cfg.Model,
		"text_len", len(req.Text),
	)

	system := llm.BuildSystemPrompt() + "\n\nJSON Schema:\n" + mustJSON(desc.JSONSchema())

	msg, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(c.cfg.Model),
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: anthropic.Float(float64(c.cfg.Temperature)),
		System:      []anthropic.TextBlockParam{{Text: system}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(llm.BuildUserPrompt(req.Text))),
		},
	})
	if err != nil {
		c.log.Error("llm.extract.http_error",
			"req_id", rid, "document_id", req.DocumentID, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return schema.Invoice{}, nil, fmt.Errorf("anthropic messages: %v: %w", err, common.ErrBackend)
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	content := []byte(stripFences(sb.String()))
	if len(content) == 0 {
		return schema.Invoice{}, nil, fmt.Errorf("empty anthropic response: %w", common.ErrBackend)
	}

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
		"items", len(inv.Items),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return inv, cleaned, nil
}

// stripFences removes a markdown code fence if the model wrapped its JSON.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func mustJSON(v any) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}
