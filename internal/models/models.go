package models

import (
	"strconv"
	"sync"
	"time"
)

// Message represents a single turn inside a conversation. Content is mutable
// while the message is the open streaming target and immutable afterwards.
type Message struct {
	ID          string       `json:"id"`
	Role        Role         `json:"role"`
	Content     string       `json:"content"`
	Attachments []Attachment `json:"attachments,omitempty"`
	CreatedAt   time.Time    `json:"createdAt"`
}

// Attachment is an inline file captured by the composer. Data carries the
// base64 payload prefixed with its data-URI MIME header, so it can be handed
// to the relay without further encoding.
type Attachment struct {
	ID   string `json:"id"`
	Data string `json:"data"`
	Name string `json:"name"`
}

// Conversation is a titled, ordered sequence of messages sharing one ID. The
// full message list is persisted as a unit keyed by the conversation ID.
type Conversation struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	Pinned   bool      `json:"pinned"`
	Messages []Message `json:"messages"`
}

// Summary is the index entry for a conversation. The index is persisted
// separately from transcripts so listing conversations never loads them.
type Summary struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Pinned bool   `json:"pinned,omitempty"`
}

// GenerationConfig is the process-wide, user-editable generation setting,
// applied to the next request issued.
type GenerationConfig struct {
	Model       string  `json:"model"`
	Temperature float64 `json:"temperature"`
}

// Template is a saved prompt the user can reuse from the composer.
type Template struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Prompt string `json:"prompt"`
}

// Event is one entry in the local analytics/diagnostics log.
type Event struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Payload   map[string]any `json:"payload,omitempty"`
	Timestamp time.Time      `json:"ts"`
}

// Role represents the role of a message participant.
type Role string

const (
	// RoleUser represents a user message.
	RoleUser Role = "user"
	// RoleAssistant represents an assistant message.
	RoleAssistant Role = "assistant"
)

const (
	// DefaultModel is used when a request carries no model identifier.
	DefaultModel = "gemini-2.5-flash"
	// DefaultTemperature is used when a request carries no temperature, or an
	// unusable one.
	DefaultTemperature = 1.0
)

// DefaultGenerationConfig returns the config applied before the user ever
// touches the settings.
func DefaultGenerationConfig() GenerationConfig {
	return GenerationConfig{
		Model:       DefaultModel,
		Temperature: DefaultTemperature,
	}
}

var (
	idMu   sync.Mutex
	lastID int64
)

// NewID mints an opaque, time-ordered token. IDs minted by one process are
// strictly monotonic even when the wall clock stalls inside a millisecond, so
// is-newer comparisons between conversation IDs stay meaningful.
func NewID() string {
	idMu.Lock()
	defer idMu.Unlock()

	now := time.Now().UnixMilli()
	if now <= lastID {
		now = lastID + 1
	}
	lastID = now
	return strconv.FormatInt(now, 10)
}
