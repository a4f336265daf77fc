package engine

import (
	"context"
	"slices"

	"github.com/MegaGrindStone/gemini-web-ui/internal/models"
)

// Retry resubmits the nearest user turn preceding the given assistant
// message. A new user/assistant pair is appended to the transcript; the
// original pair is never mutated. When no qualifying preceding user message
// exists the call is a no-op. Attachments are not replayed on retry.
func (e *Engine) Retry(ctx context.Context, assistantMessageID string) error {
	e.mu.Lock()
	idx := slices.IndexFunc(e.messages, func(m models.Message) bool { return m.ID == assistantMessageID })
	var prompt string
	if idx != -1 {
		for i := idx - 1; i >= 0; i-- {
			if e.messages[i].Role == models.RoleUser && e.messages[i].Content != "" {
				prompt = e.messages[i].Content
				break
			}
		}
	}
	e.mu.Unlock()

	if prompt == "" {
		return nil
	}
	return e.submit(ctx, prompt, false)
}
