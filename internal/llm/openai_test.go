package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

type capturedRequest struct {
	Model       string  `json:"model"`
	Temperature float64 `json:"temperature"`
	Stream      bool    `json:"stream"`
	Messages    []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func newFakeUpstream(t *testing.T, got *capturedRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("Authorization") != "Bearer sk-test" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, got)

		if got.Stream {
			w.Header().Set("Content-Type", "text/event-stream")
			for _, part := range []string{"", "你好", "，世界"} {
				fmt.Fprintf(w, "data: {\"id\":\"c1\",\"object\":\"chat.completion.chunk\",\"created\":1,\"model\":\"m\",\"choices\":[{\"index\":0,\"delta\":{\"content\":%q}}]}\n\n", part)
			}
			fmt.Fprint(w, "data: [DONE]\n\n")
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"c1","object":"chat.completion","created":1,"model":"m","choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"{\"status\":\"pass\"}"}}]}`)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestOpenAIClient_InvokeUsesOverrides(t *testing.T) {
	var got capturedRequest
	srv := newFakeUpstream(t, &got)

	c, err := NewOpenAIClient(Config{APIKey: "sk-test", BaseURL: srv.URL + "/v1/", Model: "default-model", Temperature: 0.7, Timeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("NewOpenAIClient: %v", err)
	}
	out, err := c.Invoke(context.Background(), []Message{{Role: RoleSystem, Content: "sys"}, {Role: RoleUser, Content: "审核"}}, Options{Temperature: Temperature(0.1)})
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if out != `{"status":"pass"}` {
		t.Fatalf("out = %q", out)
	}
	if got.Model != "default-model" || got.Temperature != 0.1 {
		t.Fatalf("request = %+v", got)
	}
	if len(got.Messages) != 2 || got.Messages[0].Role != "system" || got.Messages[1].Content != "审核" {
		t.Fatalf("messages = %+v", got.Messages)
	}
}

func TestOpenAIClient_StreamYieldsTextFragments(t *testing.T) {
	var got capturedRequest
	srv := newFakeUpstream(t, &got)

	c, err := NewOpenAIClient(Config{APIKey: "sk-test", BaseURL: srv.URL + "/v1/", Model: "m", Temperature: 0.7})
	if err != nil {
		t.Fatalf("NewOpenAIClient: %v", err)
	}
	s, err := c.Stream(context.Background(), []Message{{Role: RoleUser, Content: "写话术"}}, Options{})
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	defer s.Close()

	var parts []string
	for s.Next() {
		parts = append(parts, s.Current())
	}
	if err := s.Err(); err != nil {
		t.Fatalf("stream err: %v", err)
	}
	if strings.Join(parts, "|") != "你好|，世界" {
		t.Fatalf("parts = %v", parts)
	}
	if !got.Stream || got.Temperature != 0.7 {
		t.Fatalf("request = %+v", got)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}

func TestNewOpenAIClient_Validation(t *testing.T) {
	if _, err := NewOpenAIClient(Config{Model: "m"}); err != ErrNotConfigured {
		t.Fatalf("want ErrNotConfigured, got %v", err)
	}
	if _, err := NewOpenAIClient(Config{APIKey: "k"}); err == nil {
		t.Fatalf("expected model error")
	}
}
