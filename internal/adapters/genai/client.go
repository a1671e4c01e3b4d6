// Package genai extracts structured clinical data from lab reports with a
// generative model.
package genai

import (
	"context"
	"errors"
	"strings"

	"github.com/rotisserie/eris"
	gai "google.golang.org/genai"
)

// DefaultModel is the model used when none is configured.
const DefaultModel = "gemini-2.5-flash"

// Sentinel kinds for generation errors.
var (
	ErrNoAPIKey      = errors.New("genai api key is required")
	ErrEmptyResponse = errors.New("model returned no text")
)

// Generator produces text from a system instruction and a user prompt.
type Generator interface {
	Generate(ctx context.Context, system, prompt string) (string, error)
}

// Client is a Generator backed by the Gemini API. Responses are requested as
// JSON with a low temperature.
type Client struct {
	client *gai.Client
	model  string
}

// NewClient creates a Gemini client.
func NewClient(ctx context.Context, apiKey, model string) (*Client, error) {
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}
	if model == "" {
		model = DefaultModel
	}
	client, err := gai.NewClient(ctx, &gai.ClientConfig{
		APIKey:  apiKey,
		Backend: gai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, eris.Wrap(err, "genai: create client")
	}
	return &Client{client: client, model: model}, nil
}

// Generate sends one user turn.
func (c *Client) Generate(ctx context.Context, system, prompt string) (string, error) {
	cfg := &gai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		Temperature:      gai.Ptr[float32](0.1),
		TopP:             gai.Ptr[float32](0.8),
	}
	if system != "" {
		cfg.SystemInstruction = gai.NewContentFromText(system, gai.RoleUser)
	}
	resp, err := c.client.Models.GenerateContent(ctx, c.model,
		[]*gai.Content{gai.NewContentFromText(prompt, gai.RoleUser)}, cfg)
	if err != nil {
		return "", eris.Wrapf(err, "genai: generate with %s", c.model)
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", eris.Wrap(ErrEmptyResponse, "genai: generate")
	}
	return text, nil
}
