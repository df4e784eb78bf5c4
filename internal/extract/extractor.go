// Package extract reads ledger fields out of uploaded documents through a
// generative-content backend.
package extract

import (
	"context"
	"log/slog"

	"github.com/odyssey-erp/ledger-intake/internal/shared"
)

// Prompt is sent alongside every document.
const Prompt = "Extract financial data: description, bill number, quantity, amount."

// Backend generates text from a document and an instruction.
type Backend interface {
	Generate(ctx context.Context, data []byte, mimeType, prompt string) (string, error)
}

// Observer is notified of every parsed response.
type Observer interface {
	ObserveExtraction(outcome string)
}

// Extractor turns document bytes into Fields.
type Extractor struct {
	backend  Backend
	logger   *slog.Logger
	observer Observer
}

// New constructs an Extractor. logger and observer may be nil.
func New(backend Backend, logger *slog.Logger, observer Observer) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{backend: backend, logger: logger, observer: observer}
}

// Extract calls the backend once. Only a failed call is an error; an
// unexpected response shape falls back to Freeform.
func (e *Extractor) Extract(ctx context.Context, data []byte, mimeType string) (Result, error) {
	text, err := e.backend.Generate(ctx, data, mimeType, Prompt)
	if err != nil {
		return Result{}, shared.Extraction("extract: generate content", err)
	}
	result := Parse(text)
	e.logger.Debug("extraction parsed",
		slog.String("outcome", result.Outcome.String()),
		slog.Int("bytes", len(data)),
		slog.String("mime_type", mimeType),
	)
	if e.observer != nil {
		e.observer.ObserveExtraction(result.Outcome.String())
	}
	return result, nil
}
