package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/llm"
)

func completionResponse(content string) string {
	b, _ := json.Marshal(map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"content": content}},
		},
	})
	return string(b)
}

const validInvoiceJSON = `{
	"invoice_number": "INV-001",
	"date": null,
	"currency": "USD",
	"messers": "Pacific Seafood Co.",
	"customer_address": {"city": "Seattle", "country": "USA"},
	"items": [
		{"cases": 10, "code": "A1", "goods_descriptions": "SALMON FILLET", "quantity": "4,515.60 LB", "unit_value": 5.6}
	],
	"sale_conditions": ["FOB Miami"],
	"total_cases": 10,
	"total_quantity": "4,515.60 LB",
	"total_value": 25287.36
}`

func TestExtractInvoice(t *testing.T) {
	var gotAuth, gotPath string
	var gotBody map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(completionResponse(validInvoiceJSON)))
	}))
	defer srv.Close()

	c := NewClient(Config{APIKey: "sk-test", Endpoint: srv.URL, Model: "gpt-4o-mini"}, nil)
	inv, raw, err := c.ExtractInvoice(context.Background(), llm.Request{DocumentID: "a.pdf", Text: "INVOICE INV-001 ..."})
	require.NoError(t, err)

	require.Equal(t, "Bearer sk-test", gotAuth)
	require.Equal(t, "/chat/completions", gotPath)
	require.Equal(t, "gpt-4o-mini", gotBody["model"])
	require.Equal(t, map[string]any{"type": "json_object"}, gotBody["response_format"])

	require.NotNil(t, inv.InvoiceNumber)
	require.Equal(t, "INV-001", *inv.InvoiceNumber)
	require.Nil(t, inv.Date, "explicit null decodes as absent")
	require.Len(t, inv.Items, 1)
	require.Equal(t, "4,515.60 LB", inv.Items[0].Quantity)
	require.NotContains(t, string(raw), `"date"`, "null optionals are stripped from the raw payload")
}

func TestExtractInvoiceAzureConventions(t *testing.T) {
	var gotAPIKey, gotURL string
	var gotBody map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAPIKey = r.Header.Get("api-key")
		gotURL = r.URL.String()
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_, _ = w.Write([]byte(completionResponse(validInvoiceJSON)))
	}))
	defer srv.Close()

	c := NewClient(Config{
		APIKey:     "azure-key",
		Endpoint:   srv.URL,
		Deployment: "invoices-gpt4o",
		APIVersion: "2024-06-01",
	}, nil)
	_, _, err := c.ExtractInvoice(context.Background(), llm.Request{DocumentID: "a.pdf", Text: "text"})
	require.NoError(t, err)

	require.Equal(t, "azure-key", gotAPIKey)
	require.Equal(t, "/openai/deployments/invoices-gpt4o/chat/completions?api-version=2024-06-01", gotURL)
	_, hasModel := gotBody["model"]
	require.False(t, hasModel, "Azure routes by deployment, not model")
}

func TestExtractInvoiceBackendError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClient(Config{APIKey: "k", Endpoint: srv.URL}, nil)
	_, _, err := c.ExtractInvoice(context.Background(), llm.Request{DocumentID: "a.pdf", Text: "text"})
	require.Error(t, err)
	require.True(t, errors.Is(err, common.ErrBackend), "HTTP failures are retryable backend errors")
}

func TestExtractInvoiceTruncatedBody(t *testing.T) {
	// A 200 whose body dies mid-read is a backend failure, not a decode one.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "4096")
		_, _ = w.Write([]byte(`{"choices":`))
	}))
	defer srv.Close()

	c := NewClient(Config{APIKey: "k", Endpoint: srv.URL}, nil)
	_, _, err := c.ExtractInvoice(context.Background(), llm.Request{DocumentID: "a.pdf", Text: "text"})
	require.Error(t, err)
	require.True(t, errors.Is(err, common.ErrBackend))
	require.Contains(t, err.Error(), "read openai response")
}

func TestExtractInvoiceSchemaViolation(t *testing.T) {
	// Response missing required total_value: a validation failure, not a
	// backend failure.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(completionResponse(`{"sale_conditions": [], "total_cases": 1, "total_quantity": "1 KG"}`)))
	}))
	defer srv.Close()

	c := NewClient(Config{APIKey: "k", Endpoint: srv.URL}, nil)
	_, raw, err := c.ExtractInvoice(context.Background(), llm.Request{DocumentID: "a.pdf", Text: "text"})
	require.Error(t, err)
	require.True(t, errors.Is(err, common.ErrValidation))
	require.False(t, errors.Is(err, common.ErrBackend))
	require.NotEmpty(t, raw, "the offending payload is surfaced for diagnostics")
}
