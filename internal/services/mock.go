package services

import (
	"context"
	"iter"
	"strings"
	"time"

	"github.com/MegaGrindStone/gemini-web-ui/internal/models"
)

// MockDelay is the inter-segment delay used by the mock provider in a
// running server, short enough to feel instant and long enough to show the
// typing effect.
const MockDelay = 40 * time.Millisecond

// MockSegments is the fixed sequence the mock provider emits, in order. The
// exact values matter to tests downstream, so treat them as frozen.
var MockSegments = []string{
	"Hello! ",
	"This is a mock response ",
	"streamed in fixed segments, ",
	"so the rest of the system is testable ",
	"without credentials.",
}

// Mock is a deterministic, provider-independent LLM substitute. It ignores
// the prompt and configuration entirely and replays MockSegments with a small
// delay between segments to mimic incremental delivery.
type Mock struct {
	// Delay between segments. Zero means no artificial delay, which tests use
	// to keep runs fast.
	Delay time.Duration
}

// Chat yields the fixed mock segments in order, honoring ctx cancellation
// between segments.
func (m Mock) Chat(
	ctx context.Context,
	_ string,
	_ []models.Attachment,
	_ models.GenerationConfig,
) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for _, seg := range MockSegments {
			if m.Delay > 0 {
				select {
				case <-ctx.Done():
					return
				case <-time.After(m.Delay):
				}
			} else if ctx.Err() != nil {
				return
			}
			if !yield(seg, nil) {
				return
			}
		}
	}
}

// Generate returns the concatenation of the mock segments.
func (m Mock) Generate(
	_ context.Context,
	_ string,
	_ []models.Attachment,
	_ models.GenerationConfig,
) (string, error) {
	return strings.Join(MockSegments, ""), nil
}
