package services_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/MegaGrindStone/gemini-web-ui/internal/models"
	"github.com/MegaGrindStone/gemini-web-ui/internal/services"
	"github.com/stretchr/testify/assert"
)

// ollamaChatLines writes an ollama-style NDJSON chat stream in one response,
// so every line is already buffered client-side when iteration starts.
func ollamaChatLines(contents ...string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/x-ndjson")
		for _, c := range contents {
			fmt.Fprintf(w, `{"message":{"role":"assistant","content":%q},"done":false}`+"\n", c)
		}
		fmt.Fprintln(w, `{"message":{"role":"assistant","content":""},"done":true}`)
	})
}

func TestOllamaChatStopsAfterBreak(t *testing.T) {
	ts := httptest.NewServer(ollamaChatLines("one", "two", "three"))
	defer ts.Close()

	ollama := services.NewOllama(ts.URL)

	// Breaking out of the range must end iteration cleanly even though more
	// chunks are already buffered; a late chunk reaching yield would panic.
	var got []string
	for chunk, err := range ollama.Chat(context.Background(), "x", nil, models.GenerationConfig{Model: "m"}) {
		if err != nil {
			t.Fatalf("Chat error = %v", err)
		}
		got = append(got, chunk)
		break
	}

	assert.Equal(t, []string{"one"}, got)
}

func TestOllamaChatStreamsInOrder(t *testing.T) {
	ts := httptest.NewServer(ollamaChatLines("Hel", "lo"))
	defer ts.Close()

	ollama := services.NewOllama(ts.URL)

	var got string
	for chunk, err := range ollama.Chat(context.Background(), "x", nil, models.GenerationConfig{Model: "m"}) {
		if err != nil {
			t.Fatalf("Chat error = %v", err)
		}
		got += chunk
	}

	assert.Equal(t, "Hello", got)
}
