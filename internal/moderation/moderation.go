// Package moderation implements the synchronous pre-flight check run on
// outgoing prompt text before any network request is issued.
package moderation

import (
	"fmt"
	"strings"
)

// DefaultBlocklist is the built-in list of blocked terms.
var DefaultBlocklist = []string{"kill", "bomb", "terror", "suicide", "hate", "illegal"}

// Result reports the outcome of a check. Reason is only set when Flagged is
// true and names the matched term verbatim.
type Result struct {
	Flagged bool
	Reason  string
}

// Gate matches prompts against a block-list. The zero value is unusable; use
// NewGate.
type Gate struct {
	terms []string
}

// NewGate creates a Gate combining the default blocklist with any extra
// terms. Matching is case-insensitive substring containment.
func NewGate(extra ...string) *Gate {
	terms := make([]string, 0, len(DefaultBlocklist)+len(extra))
	for _, w := range append(append([]string{}, DefaultBlocklist...), extra...) {
		terms = append(terms, strings.ToLower(w))
	}
	return &Gate{terms: terms}
}

// Check runs the block-list against text. It is pure and performs no I/O.
// Empty input never flags. The first matching term wins.
func (g *Gate) Check(text string) Result {
	if text == "" {
		return Result{}
	}
	lower := strings.ToLower(text)
	for _, term := range g.terms {
		if strings.Contains(lower, term) {
			return Result{
				Flagged: true,
				Reason:  fmt.Sprintf("Contains suspicious word: %s", term),
			}
		}
	}
	return Result{}
}
