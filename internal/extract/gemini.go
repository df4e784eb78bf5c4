package extract

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

// DefaultModel is the Gemini model used when none is configured.
const DefaultModel = "gemini-2.0-flash"

// GeminiConfig configures the Gemini backend.
type GeminiConfig struct {
	APIKey string
	Model  string
	// BaseURL overrides the API endpoint.
	BaseURL string
}

// Gemini is a Backend over the Gemini API.
type Gemini struct {
	client *genai.Client
	model  string
}

// NewGemini constructs the Gemini client.
func NewGemini(ctx context.Context, cfg GeminiConfig) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("extract: gemini api key must be provided")
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("extract: new gemini client: %w", err)
	}
	return &Gemini{client: client, model: model}, nil
}

// Generate sends the document inline followed by the prompt.
func (g *Gemini) Generate(ctx context.Context, data []byte, mimeType, prompt string) (string, error) {
	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromBytes(data, mimeType),
			genai.NewPartFromText(prompt),
		}, genai.RoleUser),
	}
	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		return "", err
	}
	if len(resp.Candidates) == 0 {
		return "", errors.New("gemini returned no candidates")
	}
	return resp.Text(), nil
}
