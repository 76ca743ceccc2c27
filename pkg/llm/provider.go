package llm

import (
	"context"
	"errors"
)

// Provider is a single request/response completion capability. Retries are
// the caller's responsibility.
type Provider interface {
	Complete(ctx context.Context, messages []Message) (string, error)
}

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ErrRateLimited is wrapped into provider errors when the upstream rejects a
// call with a quota or rate-limit status, so callers can back off rather
// than treat it as a hard failure.
var ErrRateLimited = errors.New("llm: rate limited")

// ErrEmptyCompletion is returned when the upstream answers successfully but
// yields no usable text.
var ErrEmptyCompletion = errors.New("llm: empty completion")
