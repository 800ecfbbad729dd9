package llm

import (
	"context"
	"errors"
	"time"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/ssestream"
	"github.com/prometheus/client_golang/prometheus"
)

var llmLatency = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "llm_request_duration_seconds",
		Help:    "Duration of generative text calls in seconds.",
		Buckets: []float64{0.5, 1, 2, 5, 10, 20, 40, 60, 120, 300},
	},
	[]string{"mode"},
)

func init() {
	prometheus.MustRegister(llmLatency)
}

// Config holds the connection settings of an OpenAI-compatible endpoint.
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
	Timeout     time.Duration
}

// OpenAIClient implements Client with the official openai-go SDK.
type OpenAIClient struct {
	client      openai.Client
	model       string
	temperature float64
	timeout     time.Duration
}

// NewOpenAIClient builds a client from cfg. An empty API key yields
// ErrNotConfigured.
func NewOpenAIClient(cfg Config) (*OpenAIClient, error) {
	if cfg.APIKey == "" {
		return nil, ErrNotConfigured
	}
	if cfg.Model == "" {
		return nil, errors.New("llm: model is required")
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &OpenAIClient{
		client:      openai.NewClient(opts...),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		timeout:     cfg.Timeout,
	}, nil
}

func (c *OpenAIClient) params(msgs []Message, opts Options) openai.ChatCompletionNewParams {
	model := c.model
	if opts.Model != "" {
		model = opts.Model
	}
	temp := c.temperature
	if opts.Temperature != nil {
		temp = *opts.Temperature
	}
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case RoleSystem:
			out = append(out, openai.SystemMessage(m.Content))
		default:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(model),
		Messages:    out,
		Temperature: openai.Float(temp),
	}
}

func (c *OpenAIClient) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout > 0 {
		return context.WithTimeout(ctx, c.timeout)
	}
	return context.WithCancel(ctx)
}

// Invoke sends msgs and returns the full completion text.
func (c *OpenAIClient) Invoke(ctx context.Context, msgs []Message, opts Options) (string, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	resp, err := c.client.Chat.Completions.New(ctx, c.params(msgs, opts))
	llmLatency.WithLabelValues("invoke").Observe(time.Since(start).Seconds())
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("llm: empty choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// Stream starts a streaming completion. The upstream request is bound to
// ctx; closing the returned Stream releases it.
func (c *OpenAIClient) Stream(ctx context.Context, msgs []Message, opts Options) (Stream, error) {
	ctx, cancel := c.withTimeout(ctx)
	s := c.client.Chat.Completions.NewStreaming(ctx, c.params(msgs, opts))
	if err := s.Err(); err != nil {
		cancel()
		_ = s.Close()
		return nil, err
	}
	return &openAIStream{s: s, cancel: cancel, start: time.Now()}, nil
}

type openAIStream struct {
	s      *ssestream.Stream[openai.ChatCompletionChunk]
	cancel context.CancelFunc
	start  time.Time
	cur    string
	closed bool
}

// Next skips chunks that carry no text (role headers, finish markers).
func (o *openAIStream) Next() bool {
	for o.s.Next() {
		chunk := o.s.Current()
		if len(chunk.Choices) == 0 {
			continue
		}
		if txt := chunk.Choices[0].Delta.Content; txt != "" {
			o.cur = txt
			return true
		}
	}
	return false
}

func (o *openAIStream) Current() string { return o.cur }

func (o *openAIStream) Err() error { return o.s.Err() }

func (o *openAIStream) Close() error {
	if o.closed {
		return nil
	}
	o.closed = true
	llmLatency.WithLabelValues("stream").Observe(time.Since(o.start).Seconds())
	err := o.s.Close()
	o.cancel()
	return err
}
