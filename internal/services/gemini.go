package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"

	"github.com/MegaGrindStone/gemini-web-ui/internal/models"
	goopenai "github.com/sashabaranov/go-openai"
)

// geminiOpenAIBaseURL is Google's OpenAI-compatible endpoint for the Gemini
// family of models.
const geminiOpenAIBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai/"

// Gemini provides an implementation of the LLM interface backed by the Gemini
// API, reached through its OpenAI-compatible surface. It handles both
// streaming chat sessions and single-shot completions.
type Gemini struct {
	client *goopenai.Client

	logger *slog.Logger
}

// NewGemini creates a new Gemini instance with the given API key. An empty
// key still produces a working value; requests will fail upstream with an
// authentication error, which callers surface like any other provider error.
func NewGemini(apiKey string, logger *slog.Logger) Gemini {
	cfg := goopenai.DefaultConfig(apiKey)
	cfg.BaseURL = geminiOpenAIBaseURL

	return Gemini{
		client: goopenai.NewClientWithConfig(cfg),
		logger: logger.With(slog.String("module", "gemini")),
	}
}

func chatMessages(prompt string, attachments []models.Attachment) []goopenai.ChatCompletionMessage {
	msg := goopenai.ChatCompletionMessage{
		Role: goopenai.ChatMessageRoleUser,
	}

	if len(attachments) == 0 {
		msg.Content = prompt
		return []goopenai.ChatCompletionMessage{msg}
	}

	parts := make([]goopenai.ChatMessagePart, 0, len(attachments)+1)
	if prompt != "" {
		parts = append(parts, goopenai.ChatMessagePart{
			Type: goopenai.ChatMessagePartTypeText,
			Text: prompt,
		})
	}
	for _, att := range attachments {
		parts = append(parts, goopenai.ChatMessagePart{
			Type: goopenai.ChatMessagePartTypeImageURL,
			ImageURL: &goopenai.ChatMessageImageURL{
				URL: att.Data,
			},
		})
	}
	msg.MultiContent = parts
	return []goopenai.ChatCompletionMessage{msg}
}

// Chat opens a streaming generation session and yields response chunks in
// arrival order. The iterator yields an error element when the upstream
// session cannot be opened or breaks mid-stream.
func (g Gemini) Chat(
	ctx context.Context,
	prompt string,
	attachments []models.Attachment,
	cfg models.GenerationConfig,
) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		req := goopenai.ChatCompletionRequest{
			Model:       cfg.Model,
			Messages:    chatMessages(prompt, attachments),
			Temperature: float32(cfg.Temperature),
			Stream:      true,
		}

		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		stream, err := g.client.CreateChatCompletionStream(ctx, req)
		if err != nil {
			yield("", fmt.Errorf("error sending request: %w", err))
			return
		}
		defer stream.Close()

		for {
			response, err := stream.Recv()
			if err != nil {
				if errors.Is(err, io.EOF) {
					return
				}
				if errors.Is(err, context.Canceled) {
					return
				}
				yield("", fmt.Errorf("error receiving response: %w", err))
				return
			}

			if len(response.Choices) == 0 {
				continue
			}

			if chunk := response.Choices[0].Delta.Content; chunk != "" {
				if !yield(chunk, nil) {
					return
				}
			}
		}
	}
}

// Generate performs a single non-streaming completion and returns the full
// response text.
func (g Gemini) Generate(
	ctx context.Context,
	prompt string,
	attachments []models.Attachment,
	cfg models.GenerationConfig,
) (string, error) {
	req := goopenai.ChatCompletionRequest{
		Model:       cfg.Model,
		Messages:    chatMessages(prompt, attachments),
		Temperature: float32(cfg.Temperature),
	}

	resp, err := g.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("error sending request: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("no choices found")
	}

	g.logger.Debug("Generated response",
		slog.String("model", cfg.Model),
		slog.Int("length", len(resp.Choices[0].Message.Content)))

	return resp.Choices[0].Message.Content, nil
}
