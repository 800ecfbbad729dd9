package materials

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrTranscriberUnavailable is returned when no ASR endpoint is configured.
var ErrTranscriberUnavailable = errors.New("transcriber unavailable")

// Transcriber turns a media URL into text.
type Transcriber interface {
	Transcribe(ctx context.Context, mediaURL string) (string, error)
}

// ASRClient calls an ASR service: POST {URL} {"url": …} → {"text": …}.
type ASRClient struct {
	URL    string
	client *http.Client
}

// NewASRClient returns an ASRClient. An empty url yields a client whose
// Transcribe always fails with ErrTranscriberUnavailable.
func NewASRClient(url string, timeout time.Duration) *ASRClient {
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &ASRClient{URL: strings.TrimSpace(url), client: &http.Client{Timeout: timeout}}
}

// Transcribe implements Transcriber.
func (a *ASRClient) Transcribe(ctx context.Context, mediaURL string) (string, error) {
	if a == nil || a.URL == "" {
		return "", ErrTranscriberUnavailable
	}
	data, err := json.Marshal(map[string]string{"url": mediaURL})
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.URL, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("asr request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return "", fmt.Errorf("asr returned %d: %s", resp.StatusCode, string(body))
	}

	var result struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}
	return strings.TrimSpace(result.Text), nil
}
