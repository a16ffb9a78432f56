package openai

import (
	"log/slog"
	"net/http"
	"os"
	"time"
)

// Config for the OpenAI chat-completions client. Setting Deployment switches
// the client to Azure OpenAI URL/auth conventions (resource endpoint +
// deployment id + api-version).
type Config struct {
	APIKey      string // if empty, falls back to env OPENAI_API_KEY
	Endpoint    string // default https://api.openai.com/v1; Azure resource URL when Deployment is set
	Deployment  string // Azure deployment id; empty for plain OpenAI
	APIVersion  string // Azure api-version; default 2024-06-01
	Model       string // e.g. "gpt-4o-mini"; ignored by Azure deployments
	Temperature float32
	Timeout     time.Duration
}

type Client struct {
	cfg  Config
	http *http.Client
	log  *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = "2024-06-01"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 45 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
		log:  logger,
	}
}
