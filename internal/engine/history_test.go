package engine

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/MegaGrindStone/gemini-web-ui/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedRelay streams a different segment list per request, in call order.
// The last script answers any surplus requests.
type scriptedRelay struct {
	mu      sync.Mutex
	scripts [][]string
	calls   int
}

func (s *scriptedRelay) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	idx := s.calls
	s.calls++
	s.mu.Unlock()
	if idx >= len(s.scripts) {
		idx = len(s.scripts) - 1
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	flusher, _ := w.(http.Flusher)
	for _, seg := range s.scripts[idx] {
		_, _ = w.Write([]byte(seg))
		if flusher != nil {
			flusher.Flush()
		}
	}
}

func TestRetryAppendsNewPair(t *testing.T) {
	relay := &scriptedRelay{scripts: [][]string{{"B"}, {"C"}}}
	eng, _ := newTestEngine(t, relay)
	ctx := context.Background()

	require.NoError(t, eng.Submit(ctx, "A"))
	first := eng.Messages()
	require.Len(t, first, 2)

	require.NoError(t, eng.Retry(ctx, first[1].ID))

	msgs := eng.Messages()
	require.Len(t, msgs, 4)

	// The original pair is untouched.
	assert.Equal(t, first[0], msgs[0])
	assert.Equal(t, first[1], msgs[1])

	// A new pair with the same prompt is appended after it.
	assert.Equal(t, models.RoleUser, msgs[2].Role)
	assert.Equal(t, "A", msgs[2].Content)
	assert.Equal(t, models.RoleAssistant, msgs[3].Role)
	assert.Equal(t, "C", msgs[3].Content)
	assert.NotEqual(t, msgs[1].ID, msgs[3].ID)

	assertTranscriptPersisted(t, eng, eng.CurrentChatID(), msgs)
}

func TestRetryUnknownMessage(t *testing.T) {
	eng, calls := newTestEngine(t, streamSegments("never"))

	require.NoError(t, eng.Retry(context.Background(), "no-such-id"))
	assert.Zero(t, calls.Load())
	assert.Empty(t, eng.Messages())
}

func TestRetrySkipsEmptyUserTurns(t *testing.T) {
	eng, calls := newTestEngine(t, streamSegments("ok"))
	ctx := context.Background()

	// An attachment-only user turn has empty content and does not qualify.
	_, err := eng.Attach("cat.png", "image/png", []byte{1})
	require.NoError(t, err)
	require.NoError(t, eng.Submit(ctx, ""))

	msgs := eng.Messages()
	require.Len(t, msgs, 2)

	before := calls.Load()
	require.NoError(t, eng.Retry(ctx, msgs[1].ID))
	assert.Equal(t, before, calls.Load())
	assert.Len(t, eng.Messages(), 2)
}

func TestRetryDoesNotReplayAttachments(t *testing.T) {
	eng, _ := newTestEngine(t, streamSegments("ok"))
	ctx := context.Background()

	_, err := eng.Attach("cat.png", "image/png", []byte{1})
	require.NoError(t, err)
	require.NoError(t, eng.Submit(ctx, "what is this"))

	msgs := eng.Messages()
	require.NoError(t, eng.Retry(ctx, msgs[1].ID))

	msgs = eng.Messages()
	require.Len(t, msgs, 4)
	assert.NotEmpty(t, msgs[0].Attachments)
	assert.Empty(t, msgs[2].Attachments)
}

func TestRenameConversation(t *testing.T) {
	eng, _ := newTestEngine(t, streamSegments("ok"))
	ctx := context.Background()

	require.NoError(t, eng.Submit(ctx, "original title"))
	chatID := eng.CurrentChatID()

	require.NoError(t, eng.Rename(ctx, chatID, "better title"))
	assert.Equal(t, "better title", eng.Summaries()[0].Title)
	assert.Equal(t, "better title", persistedIndex(t, eng)[0].Title)
}

func TestRenameIdempotent(t *testing.T) {
	eng, _ := newTestEngine(t, streamSegments("ok"))
	ctx := context.Background()

	require.NoError(t, eng.Submit(ctx, "stable title"))
	chatID := eng.CurrentChatID()

	before := persistedIndex(t, eng)
	require.NoError(t, eng.Rename(ctx, chatID, "stable title"))
	assert.Equal(t, before, persistedIndex(t, eng))
}

func TestRenameUnknownConversation(t *testing.T) {
	eng, _ := newTestEngine(t, streamSegments("ok"))
	require.NoError(t, eng.Rename(context.Background(), "missing", "whatever"))
	assert.Empty(t, eng.Summaries())
}

func TestDeleteConversation(t *testing.T) {
	eng, _ := newTestEngine(t, streamSegments("ok"))
	ctx := context.Background()

	require.NoError(t, eng.Submit(ctx, "doomed"))
	chatID := eng.CurrentChatID()

	require.NoError(t, eng.Delete(ctx, chatID))

	assert.Empty(t, eng.Summaries())
	assert.Empty(t, eng.Messages())
	assert.Empty(t, eng.CurrentChatID())

	// Loading afterwards reports it absent, never an error.
	msgs, err := eng.LoadChat(ctx, chatID)
	require.NoError(t, err)
	assert.Nil(t, msgs)

	var raw []models.Message
	ok, err := eng.store.Load(ctx, chatKey(chatID), &raw)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPinMovesToHead(t *testing.T) {
	eng, _ := newTestEngine(t, streamSegments("ok"))
	ctx := context.Background()

	require.NoError(t, eng.Submit(ctx, "one"))
	firstID := eng.CurrentChatID()
	require.NoError(t, eng.NewChat())
	require.NoError(t, eng.Submit(ctx, "two"))

	index := eng.Summaries()
	require.Len(t, index, 2)
	assert.Equal(t, "two", index[0].Title)

	require.NoError(t, eng.Pin(ctx, firstID))
	index = eng.Summaries()
	assert.Equal(t, firstID, index[0].ID)
	assert.True(t, index[0].Pinned)

	// Pinning again unpins but keeps the entry at the head.
	require.NoError(t, eng.Pin(ctx, firstID))
	index = eng.Summaries()
	assert.Equal(t, firstID, index[0].ID)
	assert.False(t, index[0].Pinned)
}

func TestLoadChatAcrossRestart(t *testing.T) {
	store := newTestStore(t)
	eng, _ := newTestEngineWithStore(t, store, streamSegments("remembered"))
	ctx := context.Background()

	require.NoError(t, eng.Submit(ctx, "persist me"))
	chatID := eng.CurrentChatID()
	want := eng.Messages()

	reborn, _ := newTestEngineWithStore(t, store, streamSegments("unused"))
	assert.Equal(t, eng.Summaries(), reborn.Summaries())

	msgs, err := reborn.LoadChat(ctx, chatID)
	require.NoError(t, err)
	wantJSON, err := json.Marshal(want)
	require.NoError(t, err)
	gotJSON, err := json.Marshal(msgs)
	require.NoError(t, err)
	assert.JSONEq(t, string(wantJSON), string(gotJSON))
	assert.Equal(t, chatID, reborn.CurrentChatID())
}

func TestSetConfigPersists(t *testing.T) {
	store := newTestStore(t)
	eng, _ := newTestEngineWithStore(t, store, streamSegments("ok"))
	ctx := context.Background()

	assert.Equal(t, models.DefaultGenerationConfig(), eng.Config())

	cfg := models.GenerationConfig{Model: "gemini-2.5-pro", Temperature: 0.3}
	require.NoError(t, eng.SetConfig(ctx, cfg))

	reborn, _ := newTestEngineWithStore(t, store, streamSegments("ok"))
	assert.Equal(t, cfg, reborn.Config())
}

func TestTemplates(t *testing.T) {
	store := newTestStore(t)
	eng, _ := newTestEngineWithStore(t, store, streamSegments("ok"))
	ctx := context.Background()

	first, err := eng.AddTemplate(ctx, "Greeting", "say hello nicely")
	require.NoError(t, err)
	second, err := eng.AddTemplate(ctx, "Farewell", "say goodbye nicely")
	require.NoError(t, err)

	tmpls := eng.Templates()
	require.Len(t, tmpls, 2)
	assert.Equal(t, second.ID, tmpls[0].ID)

	require.NoError(t, eng.DeleteTemplate(ctx, first.ID))
	require.Len(t, eng.Templates(), 1)

	reborn, _ := newTestEngineWithStore(t, store, streamSegments("ok"))
	assert.Equal(t, eng.Templates(), reborn.Templates())
}

func TestNewChatWhileBusy(t *testing.T) {
	release := make(chan struct{})
	h := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		flusher, _ := w.(http.Flusher)
		_, _ = w.Write([]byte("x"))
		if flusher != nil {
			flusher.Flush()
		}
		<-release
	})
	eng, _ := newTestEngine(t, h)

	done := make(chan error, 1)
	go func() { done <- eng.Submit(context.Background(), "slow") }()

	require.Eventually(t, func() bool { return eng.State() == StateStreaming }, 2*time.Second, 5*time.Millisecond)

	assert.ErrorIs(t, eng.NewChat(), ErrBusy)
	assert.ErrorIs(t, eng.Delete(context.Background(), eng.CurrentChatID()), ErrBusy)

	close(release)
	require.NoError(t, <-done)
}
