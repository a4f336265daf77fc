package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/MegaGrindStone/gemini-web-ui/internal/models"
	"github.com/google/uuid"
)

// maxEvents bounds the persisted diagnostics log; the oldest entries are
// dropped first.
const maxEvents = 500

// Events returns the persisted moderation/diagnostics event log, oldest
// first. A missing or corrupt log reads as empty.
func (e *Engine) Events(ctx context.Context) []models.Event {
	e.evMu.Lock()
	defer e.evMu.Unlock()

	var events []models.Event
	if _, err := e.store.Load(ctx, eventsKey, &events); err != nil {
		e.logger.Warn("Failed to load events", slog.String(errLoggerKey, err.Error()))
	}
	return events
}

// logEvent appends an entry to the event log. Logging failures never
// propagate; diagnostics must not break sending.
func (e *Engine) logEvent(ctx context.Context, name string, payload map[string]any) {
	e.evMu.Lock()
	defer e.evMu.Unlock()

	var events []models.Event
	if _, err := e.store.Load(ctx, eventsKey, &events); err != nil {
		e.logger.Warn("Failed to load events", slog.String(errLoggerKey, err.Error()))
		return
	}

	events = append(events, models.Event{
		ID:        uuid.New().String(),
		Name:      name,
		Payload:   payload,
		Timestamp: time.Now(),
	})
	if len(events) > maxEvents {
		events = events[len(events)-maxEvents:]
	}

	if err := e.store.Save(ctx, eventsKey, events); err != nil {
		e.logger.Warn("Failed to log event", slog.String(errLoggerKey, err.Error()))
	}
}
