package ai

import (
	"context"

	"github.com/pkg/errors"
)

// ErrNotConfigured is returned by the Unconfigured model and embedder.
var ErrNotConfigured = errors.New("ai: no API key configured")

// Prompt is a single generation request.
type Prompt struct {
	System string
	User   string
	// JSON asks the model to answer with a JSON document.
	JSON bool
}

// Model is a hosted generative model.
type Model interface {
	Generate(ctx context.Context, p Prompt) (string, error)
}

// ModelFunc adapts a function to the Model interface.
type ModelFunc func(ctx context.Context, p Prompt) (string, error)

func (f ModelFunc) Generate(ctx context.Context, p Prompt) (string, error) { return f(ctx, p) }

type unconfigured struct{}

// Unconfigured stands for the model and embedder when no API key is set: every call fails with ErrNotConfigured.
var Unconfigured = unconfigured{}

func (unconfigured) Generate(context.Context, Prompt) (string, error) { return "", ErrNotConfigured }

func (unconfigured) EmbedDocument(context.Context, string) ([]float32, error) {
	return nil, ErrNotConfigured
}

func (unconfigured) EmbedQuery(context.Context, string) ([]float32, error) {
	return nil, ErrNotConfigured
}
