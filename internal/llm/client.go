// Package llm is the boundary to the Generative Text Service: any
// OpenAI-compatible chat completion endpoint. It exposes a small Client
// interface with a one-shot and a streaming call, a lazily initialised
// process-wide handle, and a helper that pulls the first JSON object out of
// free-form model text.
package llm

import (
	"context"
	"errors"
)

// Message roles.
const (
	RoleSystem = "system"
	RoleUser   = "user"
)

// ErrNotConfigured is returned when no API key is configured.
var ErrNotConfigured = errors.New("llm: not configured")

// Message is one chat turn sent to the model.
type Message struct {
	Role    string
	Content string
}

// Options tune one call. Zero values fall back to the client defaults.
type Options struct {
	Model       string
	Temperature *float64
}

// Temperature returns a pointer to t for use in Options.
func Temperature(t float64) *float64 { return &t }

// Stream yields completion text fragments in order. Callers must Close it.
type Stream interface {
	Next() bool
	Current() string
	Err() error
	Close() error
}

// Client is a Generative Text Service.
type Client interface {
	Invoke(ctx context.Context, msgs []Message, opts Options) (string, error)
	Stream(ctx context.Context, msgs []Message, opts Options) (Stream, error)
}
