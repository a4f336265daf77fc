package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/MegaGrindStone/gemini-web-ui/internal/models"
)

// parseChatRequest decodes and validates the shared request body of both chat
// endpoints. It writes the client-error response itself and reports ok=false
// when the request is unusable.
func (m Main) parseChatRequest(w http.ResponseWriter, r *http.Request) (models.ChatRequest, bool) {
	var req models.ChatRequest

	if r.Method != http.MethodPost {
		m.logger.Error("Method not allowed", slog.String("method", r.Method))
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return req, false
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		m.logger.Error("Failed to decode request body", slog.String(errLoggerKey, err.Error()))
		m.writeJSON(w, http.StatusBadRequest, models.ChatResponse{Error: "Invalid prompt"})
		return req, false
	}

	if err := m.validate.Struct(req); err != nil || strings.TrimSpace(req.Prompt) == "" {
		m.logger.Error("Invalid prompt", slog.String("prompt", req.Prompt))
		m.writeJSON(w, http.StatusBadRequest, models.ChatResponse{Error: "Invalid prompt"})
		return req, false
	}

	return req, true
}

// resolveConfig fills in the default model and temperature for requests that
// omit them or carry an unusable temperature.
func resolveConfig(cfg *models.ConfigOverride) models.GenerationConfig {
	resolved := models.DefaultGenerationConfig()
	if cfg == nil {
		return resolved
	}
	if cfg.Model != "" {
		resolved.Model = cfg.Model
	}
	if cfg.Temperature != nil && *cfg.Temperature >= 0 && *cfg.Temperature <= 2 {
		resolved.Temperature = *cfg.Temperature
	}
	return resolved
}

func (m Main) writeJSON(w http.ResponseWriter, status int, body models.ChatResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		m.logger.Error("Failed to encode response", slog.String(errLoggerKey, err.Error()))
	}
}

// HandleChat serves the non-streaming fallback endpoint. It runs a single
// generation call and returns the full text in one JSON response.
func (m Main) HandleChat(w http.ResponseWriter, r *http.Request) {
	req, ok := m.parseChatRequest(w, r)
	if !ok {
		return
	}

	text, err := m.llm.Generate(r.Context(), req.Prompt, req.Image, resolveConfig(req.Config))
	if err != nil {
		m.logger.Error("Generation failed", slog.String(errLoggerKey, err.Error()))
		m.writeJSON(w, http.StatusInternalServerError, models.ChatResponse{
			Error:   "Gemini API error",
			Details: err.Error(),
		})
		return
	}

	m.writeJSON(w, http.StatusOK, models.ChatResponse{
		Success:  true,
		Response: text,
	})
}

// HandleChatStream serves the chunked streaming endpoint. Each upstream chunk
// is written and flushed before the next one is awaited, so the client sees
// segments in exactly the order the provider produced them. An upstream
// failure after the first byte is converted into an in-band error marker
// rather than a silent disconnect.
func (m Main) HandleChatStream(w http.ResponseWriter, r *http.Request) {
	req, ok := m.parseChatRequest(w, r)
	if !ok {
		return
	}

	flusher, canFlush := w.(http.Flusher)

	wrote := false
	for chunk, err := range m.llm.Chat(r.Context(), req.Prompt, req.Image, resolveConfig(req.Config)) {
		if err != nil {
			m.logger.Error("Error from llm provider", slog.String(errLoggerKey, err.Error()))
			if !wrote {
				http.Error(w, "Gemini API error", http.StatusInternalServerError)
				return
			}
			_, _ = w.Write([]byte(models.StreamErrorMarker))
			return
		}

		if !wrote {
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			w.Header().Set("Cache-Control", "no-cache")
			w.WriteHeader(http.StatusOK)
			wrote = true
		}

		if _, err := w.Write([]byte(chunk)); err != nil {
			m.logger.Error("Failed to write chunk", slog.String(errLoggerKey, err.Error()))
			return
		}
		if canFlush {
			flusher.Flush()
		}
	}

	// A zero-chunk stream is still a success; the client is owed a 2xx.
	if !wrote {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
	}
}
