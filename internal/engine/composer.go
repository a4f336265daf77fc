package engine

import (
	"encoding/base64"
	"slices"

	"github.com/MegaGrindStone/gemini-web-ui/internal/models"
	"github.com/google/uuid"
)

// MaxAttachmentSize is the per-file cap enforced at capture time,
// independent of transport.
const MaxAttachmentSize = 5 * 1024 * 1024

// Attach stages a file for the next outgoing user message. Files over
// MaxAttachmentSize are rejected with ErrAttachmentTooLarge. The payload is
// stored base64-encoded with a data-URI MIME prefix.
func (e *Engine) Attach(name, mimeType string, data []byte) (models.Attachment, error) {
	if len(data) > MaxAttachmentSize {
		return models.Attachment{}, ErrAttachmentTooLarge
	}

	att := models.Attachment{
		ID:   uuid.New().String(),
		Name: name,
		Data: "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data),
	}

	e.mu.Lock()
	e.attachments = append(e.attachments, att)
	e.mu.Unlock()

	return att, nil
}

// Attachments returns a snapshot of the staged attachments. Staging is
// cleared when a submission is accepted; sent attachments stay inside the
// persisted user message.
func (e *Engine) Attachments() []models.Attachment {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Clone(e.attachments)
}

// ClearAttachments drops all staged attachments without sending them.
func (e *Engine) ClearAttachments() {
	e.mu.Lock()
	e.attachments = nil
	e.mu.Unlock()
}
