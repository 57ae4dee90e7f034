package llm

import (
	"context"
	"time"
)

// DefaultTemperature keeps extraction output stable across runs.
const DefaultTemperature float32 = 0.3

// Options tune a single completion call. Zero values fall back to the
// backend's configured defaults.
type Options struct {
	Model       string
	Temperature float32
	MaxTokens   int
	Timeout     time.Duration
}

// Completer is the uniform contract over model backends: one prompt in, one
// raw response string out. Backends do not retry; retry policy belongs to
// the caller.
type Completer interface {
	Complete(ctx context.Context, prompt string, opts Options) (string, error)
}
