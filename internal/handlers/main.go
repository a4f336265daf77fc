package handlers

import (
	"context"
	"iter"
	"log/slog"
	"net/http"

	"github.com/MegaGrindStone/gemini-web-ui/internal/models"
	"github.com/go-playground/validator/v10"
)

// LLM represents the upstream generation service the relay forwards to. Chat
// returns an iterator that yields response chunks and potential errors;
// Generate is the single-shot, non-streaming variant.
type LLM interface {
	Chat(ctx context.Context, prompt string, attachments []models.Attachment,
		cfg models.GenerationConfig) iter.Seq2[string, error]
	Generate(ctx context.Context, prompt string, attachments []models.Attachment,
		cfg models.GenerationConfig) (string, error)
}

// Main handles the relay's HTTP surface. Each request is served
// independently; the only state shared across requests is the injected LLM,
// which is read-only at request time.
type Main struct {
	llm      LLM
	validate *validator.Validate

	logger *slog.Logger
}

const errLoggerKey = "err"

// NewMain creates a new Main instance forwarding to the provided LLM.
func NewMain(llm LLM, logger *slog.Logger) Main {
	return Main{
		llm:      llm,
		validate: validator.New(),
		logger:   logger.With(slog.String("module", "handlers")),
	}
}

// Handler returns the relay's full handler tree: both chat endpoints wrapped
// in panic recovery and CORS restricted to allowedOrigin.
func (m Main) Handler(allowedOrigin string) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/chat", m.HandleChat)
	mux.HandleFunc("/api/chat/stream", m.HandleChatStream)

	return m.recoverMiddleware(corsMiddleware(allowedOrigin, mux))
}
