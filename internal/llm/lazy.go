package llm

import (
	"context"
	"sync"
)

// Lazy is a process-wide Client whose underlying connection is built on
// first use. Construction failures are remembered and returned on every
// call; callers never see a half-initialised client.
type Lazy struct {
	once  sync.Once
	build func() (Client, error)
	c     Client
	err   error
}

// NewLazy returns a Lazy that calls build exactly once.
func NewLazy(build func() (Client, error)) *Lazy {
	return &Lazy{build: build}
}

// NewLazyOpenAI returns a Lazy OpenAI client for cfg.
func NewLazyOpenAI(cfg Config) *Lazy {
	return NewLazy(func() (Client, error) {
		c, err := NewOpenAIClient(cfg)
		if err != nil {
			return nil, err
		}
		return c, nil
	})
}

// Get returns the shared client, building it on first call.
func (l *Lazy) Get() (Client, error) {
	l.once.Do(func() {
		l.c, l.err = l.build()
	})
	return l.c, l.err
}

// Invoke implements Client.
func (l *Lazy) Invoke(ctx context.Context, msgs []Message, opts Options) (string, error) {
	c, err := l.Get()
	if err != nil {
		return "", err
	}
	return c.Invoke(ctx, msgs, opts)
}

// Stream implements Client.
func (l *Lazy) Stream(ctx context.Context, msgs []Message, opts Options) (Stream, error) {
	c, err := l.Get()
	if err != nil {
		return nil, err
	}
	return c.Stream(ctx, msgs, opts)
}
