package knowledge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/agristream/livescript/internal/domain"
)

// UpstreamError is a service-level failure reported by the remote search
// service (a non-zero code in an otherwise valid response).
type UpstreamError struct {
	Code    int
	Message string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("semantic search returned code %d: %s", e.Code, e.Message)
}

// RemoteSearcher calls the vendor semantic search endpoint
// POST {BaseURL}/search.
type RemoteSearcher struct {
	BaseURL string
	APIKey  string
	client  *http.Client
}

// NewRemoteSearcher returns a RemoteSearcher with the given request timeout.
func NewRemoteSearcher(baseURL, apiKey string, timeout time.Duration) *RemoteSearcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &RemoteSearcher{
		BaseURL: baseURL,
		APIKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

type searchRequest struct {
	Query      string   `json:"query"`
	DatasetIDs []string `json:"dataset_ids,omitempty"`
	TopK       int      `json:"top_k"`
	MinScore   float64  `json:"min_score"`
}

type searchResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Chunks  []struct {
		Content string  `json:"content"`
		Score   float64 `json:"score"`
		DocID   string  `json:"doc_id"`
	} `json:"chunks"`
}

// datasetIDs maps collections to their vendor dataset ids, skipping
// collections that have none.
func datasetIDs(cols []domain.KnowledgeCollection) []string {
	var out []string
	for _, c := range cols {
		if c.DatasetID != "" {
			out = append(out, c.DatasetID)
		}
	}
	return out
}

// Search implements Searcher. A non-zero code yields *UpstreamError.
func (r *RemoteSearcher) Search(ctx context.Context, q Query) ([]domain.ReferenceFragment, error) {
	body := searchRequest{
		Query:      q.Text,
		DatasetIDs: datasetIDs(q.Collections),
		TopK:       q.TopK,
		MinScore:   q.MinScore,
	}
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.BaseURL+"/search", bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if r.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+r.APIKey)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("semantic search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return nil, fmt.Errorf("semantic search returned %d: %s", resp.StatusCode, string(respBody))
	}

	var result searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	if result.Code != 0 {
		return nil, &UpstreamError{Code: result.Code, Message: result.Message}
	}

	out := make([]domain.ReferenceFragment, 0, len(result.Chunks))
	for _, c := range result.Chunks {
		if c.Score < q.MinScore {
			continue
		}
		out = append(out, domain.ReferenceFragment{Content: c.Content, Score: c.Score, DocID: c.DocID})
		if q.TopK > 0 && len(out) >= q.TopK {
			break
		}
	}
	return out, nil
}
