package services

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"net/http"
	"net/url"

	"github.com/MegaGrindStone/gemini-web-ui/internal/models"
	"github.com/ollama/ollama/api"
)

// Ollama provides an implementation of the LLM interface for a local Ollama
// server, for running the relay without any cloud credential.
type Ollama struct {
	host string

	client *api.Client
}

// NewOllama creates a new Ollama instance with the specified host URL. If the
// provided host URL is invalid, the function will panic.
func NewOllama(host string) Ollama {
	u, err := url.Parse(host)
	if err != nil {
		panic(err)
	}

	return Ollama{
		host:   host,
		client: api.NewClient(u, &http.Client{}),
	}
}

func ollamaRequest(prompt string, cfg models.GenerationConfig, stream bool) *api.ChatRequest {
	return &api.ChatRequest{
		Model: cfg.Model,
		Messages: []api.Message{
			{
				Role:    "user",
				Content: prompt,
			},
		},
		Stream: &stream,
		Options: map[string]any{
			"temperature": cfg.Temperature,
		},
	}
}

// Chat streams responses from the Ollama model, yielding chunks in arrival
// order. Attachments are not supported by this provider and are ignored.
func (o Ollama) Chat(
	ctx context.Context,
	prompt string,
	_ []models.Attachment,
	cfg models.GenerationConfig,
) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		// Once yield reports the consumer stopped, no further chunk may reach
		// it, even if the client delivers another callback before the
		// cancellation takes effect.
		stopped := false
		if err := o.client.Chat(ctx, ollamaRequest(prompt, cfg, true), func(res api.ChatResponse) error {
			if stopped || res.Message.Content == "" {
				return nil
			}
			if !yield(res.Message.Content, nil) {
				stopped = true
				cancel()
			}
			return nil
		}); err != nil {
			if stopped || errors.Is(err, context.Canceled) {
				return
			}
			yield("", fmt.Errorf("error sending request: %w", err))
		}
	}
}

// Generate performs a single non-streaming completion.
func (o Ollama) Generate(
	ctx context.Context,
	prompt string,
	_ []models.Attachment,
	cfg models.GenerationConfig,
) (string, error) {
	var text string
	if err := o.client.Chat(ctx, ollamaRequest(prompt, cfg, false), func(res api.ChatResponse) error {
		text = res.Message.Content
		return nil
	}); err != nil {
		return "", fmt.Errorf("error sending request: %w", err)
	}
	return text, nil
}
