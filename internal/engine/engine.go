// Package engine implements the client-side streaming conversation engine:
// the state machine that turns a user prompt into a running relay request,
// reconciles incrementally delivered chunks into a mutable transcript, and
// durably persists the transcript after every mutation.
package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/MegaGrindStone/gemini-web-ui/internal/models"
	"github.com/MegaGrindStone/gemini-web-ui/internal/moderation"
)

// State is the engine's per-conversation lifecycle tag. Only one conversation
// may be non-idle at a time from a given engine instance.
type State string

const (
	// StateIdle means no request is in flight.
	StateIdle State = "idle"
	// StateSending means a request has been accepted but the relay has not
	// answered yet.
	StateSending State = "sending"
	// StateStreaming means response chunks are being consumed.
	StateStreaming State = "streaming"
)

// Fixed, namespaced storage keys. Transcripts live under one key per
// conversation; everything else is process-wide state.
const (
	indexKey     = "gemini_prevPrompts"
	configKey    = "gemini_config"
	templatesKey = "gemini_templates"
	eventsKey    = "gemini_events"
)

func chatKey(chatID string) string {
	return "gemini_chat_" + chatID
}

// errorSuffix is appended to the open assistant message's partial content
// when a stream fails, so the user sees what arrived plus a visible failure
// annotation.
const errorSuffix = "\n\n⚠️ Error: Failed to complete response."

// fallbackTitle names a conversation whose first prompt was attachment-only.
const fallbackTitle = "Image Prompt"

const errLoggerKey = "err"

// Store defines the durable key/value persistence the engine writes through.
// Loads must treat missing or corrupt entries as absent rather than failing.
type Store interface {
	Save(ctx context.Context, key string, value any) error
	Load(ctx context.Context, key string, dest any) (bool, error)
	Delete(ctx context.Context, key string) error
}

// Streamer opens a streaming generation request against the relay. It is
// satisfied by *api.Client.
type Streamer interface {
	StreamChat(ctx context.Context, req models.ChatRequest) (io.ReadCloser, error)
}

// Engine is the conversation state machine. It exclusively owns mutation of
// the in-memory transcript and is the sole writer to persistent storage for
// message content.
type Engine struct {
	// Online, when set, is consulted before contacting the relay; a false
	// result fails the submission fast with ErrOffline. Set before first use.
	Online func() bool

	// OnUpdate, when set, is invoked with a message snapshot after every
	// transcript mutation. This is the UI's re-render trigger. Set before
	// first use; it must not call back into the engine.
	OnUpdate func(models.Message)

	store  Store
	client Streamer
	gate   *moderation.Gate
	logger *slog.Logger

	mu            sync.Mutex
	state         State
	currentID     string
	messages      []models.Message
	openMessageID string
	index         []models.Summary
	config        models.GenerationConfig
	templates     []models.Template
	attachments   []models.Attachment

	evMu sync.Mutex
}

// New creates an Engine backed by the given store and relay client,
// initializing the conversation index, generation config, and templates from
// persistent storage. Corrupt or missing entries fall back to empty defaults.
func New(store Store, client Streamer, logger *slog.Logger) (*Engine, error) {
	e := &Engine{
		store:  store,
		client: client,
		gate:   moderation.NewGate(),
		logger: logger.With(slog.String("module", "engine")),
		state:  StateIdle,
		config: models.DefaultGenerationConfig(),
	}

	ctx := context.Background()
	if _, err := store.Load(ctx, indexKey, &e.index); err != nil {
		return nil, fmt.Errorf("failed to load conversation index: %w", err)
	}
	if _, err := store.Load(ctx, configKey, &e.config); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if _, err := store.Load(ctx, templatesKey, &e.templates); err != nil {
		return nil, fmt.Errorf("failed to load templates: %w", err)
	}

	return e, nil
}

// State reports the engine's current lifecycle tag.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// CurrentChatID reports the active conversation ID, empty when no
// conversation is open.
func (e *Engine) CurrentChatID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.currentID
}

// Messages returns a snapshot of the active transcript.
func (e *Engine) Messages() []models.Message {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Clone(e.messages)
}

// Submit runs the full submission sequence for the given prompt text plus any
// staged attachments: moderation, conversation minting, user-turn append and
// persist, placeholder append, then the streaming request and chunk loop. It
// returns once the stream ends or fails; the engine is always Idle again when
// it does.
func (e *Engine) Submit(ctx context.Context, prompt string) error {
	return e.submit(ctx, strings.TrimSpace(prompt), true)
}

func (e *Engine) submit(ctx context.Context, prompt string, useStaged bool) error {
	e.mu.Lock()

	if e.state != StateIdle {
		e.mu.Unlock()
		return ErrBusy
	}

	var attachments []models.Attachment
	if useStaged {
		attachments = e.attachments
	}

	if prompt == "" && len(attachments) == 0 {
		e.mu.Unlock()
		return ErrEmptyPrompt
	}

	if e.Online != nil && !e.Online() {
		e.mu.Unlock()
		return ErrOffline
	}

	if res := e.checkModeration(prompt); res.Flagged {
		e.mu.Unlock()
		e.logEvent(ctx, "moderation_block", map[string]any{
			"prompt": truncate(prompt, 120),
			"reason": res.Reason,
		})
		return &ModerationError{Reason: res.Reason}
	}

	// First turn of a fresh conversation mints the ID and inserts the index
	// entry at the head, persisted before anything else happens.
	if e.currentID == "" {
		title := prompt
		if title == "" {
			title = fallbackTitle
		}
		e.currentID = models.NewID()
		e.messages = nil
		e.index = slices.Insert(e.index, 0, models.Summary{ID: e.currentID, Title: title})
		if err := e.store.Save(ctx, indexKey, e.index); err != nil {
			e.logger.Error("Failed to persist conversation index", slog.String(errLoggerKey, err.Error()))
		}
	}
	chatID := e.currentID

	userMsg := models.Message{
		ID:          models.NewID(),
		Role:        models.RoleUser,
		Content:     prompt,
		Attachments: attachments,
		CreatedAt:   time.Now(),
	}
	e.messages = append(e.messages, userMsg)
	// The user's own turn is flushed before the stream starts, so a crash
	// mid-stream never loses it.
	if err := e.store.Save(ctx, chatKey(chatID), e.messages); err != nil {
		e.logger.Error("Failed to persist user message", slog.String(errLoggerKey, err.Error()))
	}

	if useStaged {
		e.attachments = nil
	}

	assistantMsg := models.Message{
		ID:        models.NewID(),
		Role:      models.RoleAssistant,
		Content:   "",
		CreatedAt: time.Now(),
	}
	e.messages = append(e.messages, assistantMsg)
	e.openMessageID = assistantMsg.ID
	e.state = StateSending
	cfg := e.config

	e.mu.Unlock()

	e.notify(userMsg)
	e.notify(assistantMsg)
	e.logEvent(ctx, "send_attempt", map[string]any{
		"length": len(prompt),
		"model":  cfg.Model,
	})

	return e.run(ctx, chatID, prompt, attachments, cfg)
}

// run issues the streaming request and drives the read loop. Chunk appends
// are strictly sequential: each read is persisted before the next is awaited.
func (e *Engine) run(
	ctx context.Context,
	chatID, prompt string,
	attachments []models.Attachment,
	cfg models.GenerationConfig,
) error {
	body, err := e.client.StreamChat(ctx, models.ChatRequest{
		Prompt: prompt,
		Image:  attachments,
		Config: &models.ConfigOverride{Model: cfg.Model, Temperature: &cfg.Temperature},
	})
	if err != nil {
		return e.failStream(ctx, chatID, err)
	}
	defer body.Close()

	e.setState(StateStreaming)

	buf := make([]byte, 4096)
	for {
		n, readErr := body.Read(buf)
		if n > 0 {
			e.appendChunk(ctx, chatID, string(buf[:n]))
		}
		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				break
			}
			return e.failStream(ctx, chatID, fmt.Errorf("error reading stream: %w", readErr))
		}
	}

	e.mu.Lock()
	e.openMessageID = ""
	e.state = StateIdle
	e.mu.Unlock()

	return nil
}

// appendChunk concatenates chunk onto the open assistant message and flushes
// the transcript. Persistence failures are logged, not fatal; the in-memory
// transcript stays authoritative.
func (e *Engine) appendChunk(ctx context.Context, chatID, chunk string) {
	e.mu.Lock()
	idx := slices.IndexFunc(e.messages, func(m models.Message) bool { return m.ID == e.openMessageID })
	if idx == -1 {
		e.mu.Unlock()
		return
	}
	e.messages[idx].Content += chunk
	msg := e.messages[idx]
	snapshot := slices.Clone(e.messages)
	e.mu.Unlock()

	if err := e.store.Save(ctx, chatKey(chatID), snapshot); err != nil {
		e.logger.Error("Failed to persist chunk", slog.String(errLoggerKey, err.Error()))
	}
	e.notify(msg)
}

// failStream recovers a mid-flight failure: the open assistant message keeps
// whatever partial content arrived, gains a visible error suffix, and the
// engine returns to Idle. The caller receives a StreamFailure wrapping cause.
func (e *Engine) failStream(ctx context.Context, chatID string, cause error) error {
	e.logger.Error("Chat stream failed", slog.String(errLoggerKey, cause.Error()))

	e.mu.Lock()
	idx := slices.IndexFunc(e.messages, func(m models.Message) bool { return m.ID == e.openMessageID })
	var msg models.Message
	var snapshot []models.Message
	if idx != -1 {
		e.messages[idx].Content += errorSuffix
		msg = e.messages[idx]
		snapshot = slices.Clone(e.messages)
	}
	e.openMessageID = ""
	e.state = StateIdle
	e.mu.Unlock()

	if snapshot != nil {
		if err := e.store.Save(ctx, chatKey(chatID), snapshot); err != nil {
			e.logger.Error("Failed to persist failed transcript", slog.String(errLoggerKey, err.Error()))
		}
		e.notify(msg)
	}

	e.logEvent(ctx, "send_error", map[string]any{"message": cause.Error()})

	return &StreamFailure{Err: cause}
}

// checkModeration runs the gate. A panic inside the check is logged and
// treated as not flagged; a broken gate never blocks sending.
func (e *Engine) checkModeration(prompt string) (res moderation.Result) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Warn("Moderation check failed", slog.Any("panic", r))
			res = moderation.Result{}
		}
	}()

	if e.gate == nil {
		return moderation.Result{}
	}
	return e.gate.Check(prompt)
}

func (e *Engine) setState(s State) {
	e.mu.Lock()
	e.state = s
	e.mu.Unlock()
}

func (e *Engine) notify(msg models.Message) {
	if e.OnUpdate != nil {
		e.OnUpdate(msg)
	}
}

// truncate caps s at n bytes without splitting a UTF-8 rune, so truncated
// event payloads stay valid through JSON round-trips.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
