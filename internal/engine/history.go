package engine

import (
	"context"
	"fmt"
	"slices"

	"github.com/MegaGrindStone/gemini-web-ui/internal/models"
)

// Summaries returns a snapshot of the conversation index, newest first.
func (e *Engine) Summaries() []models.Summary {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Clone(e.index)
}

// NewChat detaches from the active conversation so the next submission mints
// a fresh one. Staged attachments are discarded. Rejected with ErrBusy while
// a request is in flight.
func (e *Engine) NewChat() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != StateIdle {
		return ErrBusy
	}
	e.currentID = ""
	e.messages = nil
	e.openMessageID = ""
	e.attachments = nil
	return nil
}

// LoadChat opens the conversation with the given ID and returns its
// transcript. A missing or corrupt transcript is an absent one: LoadChat
// returns nil messages and no error, and the active conversation is left
// unchanged.
func (e *Engine) LoadChat(ctx context.Context, chatID string) ([]models.Message, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != StateIdle {
		return nil, ErrBusy
	}

	var messages []models.Message
	ok, err := e.store.Load(ctx, chatKey(chatID), &messages)
	if err != nil {
		return nil, fmt.Errorf("failed to load chat: %w", err)
	}
	if !ok {
		return nil, nil
	}

	e.currentID = chatID
	e.messages = messages
	e.openMessageID = ""
	return slices.Clone(messages), nil
}

// Rename sets a conversation's title and persists the index. Renaming to the
// current title rewrites a value-equal index.
func (e *Engine) Rename(ctx context.Context, chatID, title string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	idx := slices.IndexFunc(e.index, func(s models.Summary) bool { return s.ID == chatID })
	if idx == -1 {
		return nil
	}
	e.index[idx].Title = title
	return e.store.Save(ctx, indexKey, e.index)
}

// Delete removes a conversation's index entry and its persisted transcript.
// Loading the conversation afterwards reports it absent. The active
// conversation cannot be deleted while a request is in flight.
func (e *Engine) Delete(ctx context.Context, chatID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if chatID == e.currentID && e.state != StateIdle {
		return ErrBusy
	}

	idx := slices.IndexFunc(e.index, func(s models.Summary) bool { return s.ID == chatID })
	if idx != -1 {
		e.index = slices.Delete(e.index, idx, idx+1)
		if err := e.store.Save(ctx, indexKey, e.index); err != nil {
			return fmt.Errorf("failed to persist index: %w", err)
		}
	}
	if err := e.store.Delete(ctx, chatKey(chatID)); err != nil {
		return fmt.Errorf("failed to delete transcript: %w", err)
	}

	if chatID == e.currentID {
		e.currentID = ""
		e.messages = nil
	}
	return nil
}

// Pin toggles a conversation's pinned flag and moves its entry to the head
// of the index.
func (e *Engine) Pin(ctx context.Context, chatID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	idx := slices.IndexFunc(e.index, func(s models.Summary) bool { return s.ID == chatID })
	if idx == -1 {
		return nil
	}
	entry := e.index[idx]
	entry.Pinned = !entry.Pinned
	e.index = slices.Delete(e.index, idx, idx+1)
	e.index = slices.Insert(e.index, 0, entry)
	return e.store.Save(ctx, indexKey, e.index)
}

// Config returns the process-wide generation config.
func (e *Engine) Config() models.GenerationConfig {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.config
}

// SetConfig replaces the generation config and persists it. It applies to
// the next request issued; an in-flight request keeps the config it started
// with.
func (e *Engine) SetConfig(ctx context.Context, cfg models.GenerationConfig) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.config = cfg
	return e.store.Save(ctx, configKey, cfg)
}
