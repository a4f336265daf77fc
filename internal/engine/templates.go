package engine

import (
	"context"
	"slices"

	"github.com/MegaGrindStone/gemini-web-ui/internal/models"
	"github.com/google/uuid"
)

// Templates returns a snapshot of the saved prompt templates, newest first.
func (e *Engine) Templates() []models.Template {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Clone(e.templates)
}

// AddTemplate saves a reusable prompt template at the head of the list.
func (e *Engine) AddTemplate(ctx context.Context, title, prompt string) (models.Template, error) {
	tmpl := models.Template{
		ID:     uuid.New().String(),
		Title:  title,
		Prompt: prompt,
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.templates = slices.Insert(e.templates, 0, tmpl)
	return tmpl, e.store.Save(ctx, templatesKey, e.templates)
}

// DeleteTemplate removes the template with the given ID. Unknown IDs are
// ignored.
func (e *Engine) DeleteTemplate(ctx context.Context, id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	idx := slices.IndexFunc(e.templates, func(t models.Template) bool { return t.ID == id })
	if idx == -1 {
		return nil
	}
	e.templates = slices.Delete(e.templates, idx, idx+1)
	return e.store.Save(ctx, templatesKey, e.templates)
}
