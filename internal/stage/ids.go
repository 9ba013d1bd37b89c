package stage

import (
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
)

// IDSource hands out tokens for step-id namespaces and user edges. Tokens
// must never repeat for the lifetime of a manager.
type IDSource interface {
	Next() string
}

// RandomIDs issues random 128-bit tokens.
type RandomIDs struct{}

// Next returns a new random token.
func (RandomIDs) Next() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// CounterIDs issues monotonically increasing tokens with a fixed prefix.
// Useful where output must be deterministic, e.g. tests and CLI previews.
type CounterIDs struct {
	prefix string
	n      atomic.Uint64
}

// NewCounterIDs creates a counter starting at 1.
func NewCounterIDs(prefix string) *CounterIDs {
	return &CounterIDs{prefix: prefix}
}

// Next returns the next token.
func (c *CounterIDs) Next() string {
	return c.prefix + strconv.FormatUint(c.n.Add(1), 10)
}
