package ollama

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Backend is an implementation of the LLMBackend interface using a local
// Ollama inference server
type Backend struct {
	client    *Client
	modelName string
	logger    *zap.Logger
}

// NewBackend creates an Ollama backend for the given model
func NewBackend(client *Client, modelName string, logger *zap.Logger) *Backend {
	return &Backend{
		client:    client,
		modelName: modelName,
		logger:    logger,
	}
}

// Send submits a system+user prompt pair and returns the raw response text
func (b *Backend) Send(ctx context.Context, system, user string, wantJSON bool) (string, error) {
	messages := []Message{
		{Role: "system", Content: system},
		{Role: "user", Content: user},
	}

	content, err := b.client.Chat(ctx, b.modelName, messages, wantJSON)
	if err != nil {
		return "", fmt.Errorf("ollama chat with model %s: %w", b.modelName, err)
	}

	b.logger.Debug("Ollama response received",
		zap.String("model", b.modelName),
		zap.Int("response_size", len(content)))

	return content, nil
}

// CheckHealth verifies the Ollama server is reachable and the configured
// model is present in its model listing
func (b *Backend) CheckHealth(ctx context.Context) error {
	if !b.client.IsRunning(ctx) {
		return fmt.Errorf("ollama server at %s is not reachable", b.client.baseURL)
	}
	if !b.client.HasModel(ctx, b.modelName) {
		return fmt.Errorf("model %s is not available on the ollama server", b.modelName)
	}
	return nil
}
