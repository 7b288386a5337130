// Package gemini wraps the generative-language SDK for single-turn prompts.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"google.golang.org/genai"
)

const (
	DefaultBaseURL    = "https://generativelanguage.googleapis.com/"
	DefaultAPIVersion = "v1beta"
	DefaultModel      = "gemini-1.5-flash"
)

var (
	// ErrNotConfigured is returned when no API key is set.
	ErrNotConfigured = errors.New("gemini: api key not configured")
	// ErrNoCandidates is returned when the upstream answers without text.
	ErrNoCandidates = errors.New("gemini: response has no candidates")
)

// Config holds the endpoint, credentials and timeout.
type Config struct {
	APIKey     string
	BaseURL    string
	APIVersion string
	Model      string
	Timeout    time.Duration
}

// Client sends single-turn prompts. Outbound requests are traced.
type Client struct {
	model   string
	models  *genai.Models
	initErr error
}

// New constructs the client. Without an API key the client stays
// unconfigured and every Generate call fails with ErrNotConfigured.
func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = DefaultAPIVersion
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	c := &Client{model: cfg.Model}
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return c
	}

	sdk, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
		HTTPClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		HTTPOptions: genai.HTTPOptions{
			BaseURL:    cfg.BaseURL,
			APIVersion: cfg.APIVersion,
		},
	})
	if err != nil {
		c.initErr = fmt.Errorf("gemini: init client: %w", err)
		return c
	}
	c.models = sdk.Models
	return c
}

// Configured reports whether an API key is present.
func (c *Client) Configured() bool {
	return c != nil && (c.models != nil || c.initErr != nil)
}

// Generate sends prompt and returns the first candidate's text.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	if !c.Configured() {
		return "", ErrNotConfigured
	}
	if c.initErr != nil {
		return "", c.initErr
	}

	resp, err := c.models.GenerateContent(ctx, c.model, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("gemini: generate: %w", err)
	}

	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, p := range candidate.Content.Parts {
			if p != nil && p.Text != "" {
				return p.Text, nil
			}
		}
	}
	return "", ErrNoCandidates
}
